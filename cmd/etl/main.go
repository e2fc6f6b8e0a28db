package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"loyalty-analytics-go/internal/common"
	"loyalty-analytics-go/internal/config"
	"loyalty-analytics-go/internal/etl"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/warehouse"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	dateFlag := &cli.StringFlag{
		Name:  "date",
		Usage: "partition date as YYYY-MM-DD (default: today)",
	}

	stageCommand := func(stage etl.Stage, usage string) *cli.Command {
		return &cli.Command{
			Name:  string(stage),
			Usage: usage,
			Flags: []cli.Flag{dateFlag},
			Action: func(c *cli.Context) error {
				return run(c, []etl.Stage{stage})
			},
		}
	}

	cliApp := &cli.App{
		Name:  "etl",
		Usage: "snapshot the item store into the analytics warehouse",
		Commands: []*cli.Command{
			stageCommand(etl.StageExtract, "scan every source table into raw JSON"),
			stageCommand(etl.StageTransform, "flatten raw JSON into processed CSV"),
			stageCommand(etl.StageUnify, "enrich processed CSV into warehouse tables"),
			stageCommand(etl.StageLoad, "COPY unified CSV into the warehouse"),
			{
				Name:  "run",
				Usage: "run several stages in order",
				Flags: []cli.Flag{
					dateFlag,
					&cli.StringFlag{
						Name:  "stages",
						Usage: "comma separated stages (default: all)",
					},
				},
				Action: func(c *cli.Context) error {
					stages, err := etl.ParseStages(c.String("stages"))
					if err != nil {
						return err
					}
					return run(c, stages)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		zap.L().Fatal("ETL failed", zap.Error(err))
	}
}

func run(c *cli.Context, stages []etl.Stage) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	loc := models.LoadLocation(cfg.Timezone)
	var date time.Time
	if s := c.String("date"); s != "" {
		if date, err = time.ParseInLocation(models.DateLayout, s, loc); err != nil {
			return fmt.Errorf("invalid --date %q: %w", s, err)
		}
	}

	catalog, err := common.LoadTierCatalog(cfg.TiersFile)
	if err != nil {
		return err
	}

	source, err := common.InitializeStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer source.Close()

	objects, err := common.InitializeObjectStore(cfg.ObjectStore)
	if err != nil {
		return err
	}

	opts := etl.Options{
		Source:          source,
		Objects:         objects,
		Catalog:         catalog,
		Location:        loc,
		Date:            date,
		Schema:          cfg.Warehouse.Schema,
		BucketUri:       cfg.Etl.BucketUri,
		IamRole:         cfg.Warehouse.IamRole,
		CopyCredentials: cfg.Warehouse.CopyCredentials,
		PollInterval:    cfg.Warehouse.PollInterval,
		LoadTimeout:     cfg.Warehouse.StatementTimeout,
	}

	if includes(stages, etl.StageLoad) {
		ws, err := common.InitializeWarehouse(ctx, cfg, catalog)
		if err != nil {
			return err
		}
		defer ws.Close()
		opts.Executor = warehouse.NewAsyncExecutor(ws.DB(), cfg.Warehouse.StatementTimeout, nil)
	}

	pipeline, err := etl.NewPipeline(opts)
	if err != nil {
		return err
	}

	log, err := pipeline.Run(ctx, stages)
	if log != nil {
		printRunLog(log)
	}
	return err
}

func includes(stages []etl.Stage, s etl.Stage) bool {
	for _, stage := range stages {
		if stage == s {
			return true
		}
	}
	return false
}

func printRunLog(log *etl.RunLog) {
	common.PrintHeader("ETL RUN "+log.RunId, 60)
	common.PrintField("Date", log.Date)
	common.PrintField("Started", log.RunTimestamp)
	common.PrintField("Status", log.Status)

	for _, section := range []struct {
		name   string
		counts map[string]int
	}{
		{"Extract", log.Extract},
		{"Transform", log.Transform},
		{"Unify", log.Unify},
	} {
		if len(section.counts) == 0 {
			continue
		}
		common.PrintBoxSeparator(60)
		fmt.Println("│  " + section.name)
		for _, table := range sortedKeys(section.counts) {
			rows := fmt.Sprint(section.counts[table])
			if section.counts[table] < 0 {
				rows = "failed"
			}
			common.PrintField("  "+table, rows)
		}
	}

	if log.Load != nil {
		common.PrintBoxSeparator(60)
		fmt.Println("│  Load (" + log.Load.Status + ")")
		for _, table := range sortedKeys(log.Load.Tables) {
			common.PrintField("  "+table, log.Load.Tables[table])
		}
	}
	common.PrintFooter("Run "+log.Status, 60)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
