package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/metrics"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/objectstore"
	"loyalty-analytics-go/internal/store"
	"loyalty-analytics-go/internal/warehouse"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv"
	contentTypeSQL  = "text/plain"

	defaultPollInterval = 2 * time.Second
	defaultLoadTimeout  = 300 * time.Second
)

var (
	errMissingInput = errors.New("stage input not found")
	errNotArray     = errors.New("extracted document is not a json array")
)

// Stage names one ETL step
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageUnify     Stage = "unify"
	StageLoad      Stage = "load"
)

// AllStages is the canonical stage order.
var AllStages = []Stage{StageExtract, StageTransform, StageUnify, StageLoad}

// ParseStages parses a comma separated stage list. Empty means every stage.
func ParseStages(s string) ([]Stage, error) {
	if strings.TrimSpace(s) == "" {
		return AllStages, nil
	}
	var stages []Stage
	for _, part := range strings.Split(s, ",") {
		stage := Stage(strings.ToLower(strings.TrimSpace(part)))
		switch stage {
		case StageExtract, StageTransform, StageUnify, StageLoad:
			stages = append(stages, stage)
		default:
			return nil, fmt.Errorf("unknown stage %q", part)
		}
	}
	return stages, nil
}

type Options struct {
	Source   store.Store
	Objects  objectstore.Store
	Executor warehouse.StatementExecutor
	Catalog  *models.TierCatalog
	Location *time.Location
	Clock    cache.Clock

	// Date is the partition date; zero means today in Location.
	Date            time.Time
	Schema          string
	BucketUri       string
	IamRole         string
	// CopyCredentials replaces the IAM_ROLE clause when set.
	CopyCredentials string
	PollInterval    time.Duration
	LoadTimeout     time.Duration
}

// Pipeline moves one day's snapshot from the item store to the warehouse
type Pipeline struct {
	opts  Options
	paths Paths
	node  *snowflake.Node
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Objects == nil {
		return nil, fmt.Errorf("pipeline requires an object store")
	}
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultTierCatalog()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if opts.Date.IsZero() {
		opts.Date = opts.Clock.Now().In(opts.Location)
	}
	if opts.Schema == "" {
		opts.Schema = warehouse.DefaultSchema
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = defaultLoadTimeout
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create run id generator: %w", err)
	}

	return &Pipeline{
		opts:  opts,
		paths: NewPaths(opts.Date, opts.Schema),
		node:  node,
	}, nil
}

func (p *Pipeline) Paths() Paths {
	return p.paths
}

func (p *Pipeline) now() time.Time {
	return p.opts.Clock.Now().In(p.opts.Location)
}

// Extract snapshots every source table into a raw JSON document.
func (p *Pipeline) Extract(ctx context.Context) (map[string]int, error) {
	if p.opts.Source == nil {
		return nil, fmt.Errorf("extract requires an item store")
	}

	counts := make(map[string]int, len(sourceTables))
	for _, table := range sourceTables {
		n, err := p.extractTable(ctx, table)
		if err != nil {
			zap.L().Error("Failed to extract table",
				zap.String("table", table),
				zap.Error(err))
			p.recordFailure(StageExtract, table)
			counts[table] = -1
			continue
		}
		p.recordRows(StageExtract, table, n)
		counts[table] = n
	}
	return counts, nil
}

func (p *Pipeline) extractTable(ctx context.Context, table string) (int, error) {
	items, err := p.opts.Source.ScanAll(ctx, table, 0)
	if err != nil {
		return 0, err
	}
	if items == nil {
		items = []models.Item{}
	}

	body, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode items: %w", err)
	}
	if err := p.opts.Objects.Put(ctx, p.paths.Raw(table), body, contentTypeJSON); err != nil {
		return 0, err
	}
	return len(items), nil
}

// Transform flattens each raw document into a processed CSV. Row count is
// preserved; malformed fields fall back to defaults.
func (p *Pipeline) Transform(ctx context.Context) (map[string]int, error) {
	mappers := p.mappers()
	counts := make(map[string]int, len(sourceTables))
	for _, table := range sourceTables {
		n, err := p.transformTable(ctx, mappers[table])
		if err != nil {
			zap.L().Error("Failed to transform table",
				zap.String("table", table),
				zap.Error(err))
			p.recordFailure(StageTransform, table)
			counts[table] = -1
			continue
		}
		p.recordRows(StageTransform, table, n)
		counts[table] = n
	}
	return counts, nil
}

func (p *Pipeline) transformTable(ctx context.Context, m mapper) (int, error) {
	doc, err := p.opts.Objects.Get(ctx, p.paths.Raw(m.table))
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return 0, errMissingInput
		}
		return 0, err
	}

	body, n, err := transformDocument(m, doc)
	if err != nil {
		return 0, err
	}
	if err := p.opts.Objects.Put(ctx, p.paths.Processed(m.table), body, contentTypeCSV); err != nil {
		return 0, err
	}
	return n, nil
}

// RunLog is the execution log persisted after every run
type RunLog struct {
	RunId        string         `json:"run_id"`
	RunTimestamp string         `json:"run_timestamp"`
	Date         string         `json:"date"`
	Extract      map[string]int `json:"extract"`
	Transform    map[string]int `json:"transform"`
	Unify        map[string]int `json:"unify"`
	Load         *LoadResult    `json:"load,omitempty"`
	Status       string         `json:"status"`
}

// Run executes the chosen stages in canonical order and writes the execution log.
func (p *Pipeline) Run(ctx context.Context, stages []Stage) (*RunLog, error) {
	if len(stages) == 0 {
		stages = AllStages
	}
	selected := make(map[Stage]bool, len(stages))
	for _, s := range stages {
		selected[s] = true
	}

	log := &RunLog{
		RunId:        p.node.Generate().String(),
		RunTimestamp: p.now().Format(time.RFC3339),
		Date:         p.paths.Date(),
		Extract:      map[string]int{},
		Transform:    map[string]int{},
		Unify:        map[string]int{},
		Status:       LoadSuccess,
	}

	zap.L().Info("Starting ETL run",
		zap.String("run_id", log.RunId),
		zap.String("date", log.Date))

	for _, stage := range AllStages {
		if !selected[stage] {
			continue
		}
		start := time.Now()
		err := p.runStage(ctx, stage, log)
		metrics.EtlStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
		if err != nil {
			return log, fmt.Errorf("%s stage failed: %w", stage, err)
		}
	}

	if failedCounts(log.Extract) || failedCounts(log.Transform) || failedCounts(log.Unify) ||
		(log.Load != nil && log.Load.Status != LoadSuccess) {
		log.Status = LoadPartial
	}

	body, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return log, fmt.Errorf("failed to encode execution log: %w", err)
	}
	if err := p.opts.Objects.Put(ctx, p.paths.ExecutionLog(), body, contentTypeJSON); err != nil {
		return log, fmt.Errorf("failed to write execution log: %w", err)
	}

	zap.L().Info("ETL run finished",
		zap.String("run_id", log.RunId),
		zap.String("status", log.Status))
	return log, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, log *RunLog) error {
	var err error
	switch stage {
	case StageExtract:
		log.Extract, err = p.Extract(ctx)
	case StageTransform:
		log.Transform, err = p.Transform(ctx)
	case StageUnify:
		log.Unify, err = p.Unify(ctx)
	case StageLoad:
		log.Load, err = p.Load(ctx)
	}
	return err
}

func failedCounts(counts map[string]int) bool {
	for _, n := range counts {
		if n < 0 {
			return true
		}
	}
	return false
}

func (p *Pipeline) recordRows(stage Stage, table string, n int) {
	metrics.EtlRows.WithLabelValues(string(stage), table).Add(float64(n))
	zap.L().Info("Wrote table",
		zap.String("stage", string(stage)),
		zap.String("table", table),
		zap.Int("row_count", n))
}

func (p *Pipeline) recordFailure(stage Stage, table string) {
	metrics.EtlTableFailures.WithLabelValues(string(stage), table).Inc()
}
