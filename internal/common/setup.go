package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"loyalty-analytics-go/internal/aggregates"
	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/entities"
	"loyalty-analytics-go/internal/metrics"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/objectstore"
	"loyalty-analytics-go/internal/store"
	"loyalty-analytics-go/internal/warehouse"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services holds the wired components shared by the command-line tools
type Services struct {
	Store      store.Store
	Entities   *entities.Service
	Aggregates *aggregates.Store
	Reader     *aggregates.Reader
	Catalog    *models.TierCatalog
	Location   *time.Location
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices connects the item store and builds the accessors and
// aggregate reader on top of it.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	catalog, err := LoadTierCatalog(cfg.TiersFile)
	if err != nil {
		return nil, err
	}
	loc := models.LoadLocation(cfg.Timezone)

	kv, err := InitializeStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	clock := cache.SystemClock{}
	svc := entities.NewService(kv, entities.Options{
		Catalog:  catalog,
		Location: loc,
		Clock:    clock,
		ReadOnly: cfg.ReadOnly,
	})
	aggs := aggregates.NewStore(kv, clock)
	readCache := cache.New(clock).WithHooks(cache.Hooks{
		OnHit:  metrics.CacheHit,
		OnMiss: metrics.CacheMiss,
	})
	reader := aggregates.NewReader(aggs, svc, aggregates.ReaderOptions{
		Cache:    readCache,
		Clock:    clock,
		Location: loc,
		TTL:      cfg.Aggregates.CacheTTL,
		Enabled:  cfg.Aggregates.Enabled,
	})

	zap.L().Info("Services initialized",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("timezone", loc.String()),
		zap.Bool("read_only", cfg.ReadOnly),
		zap.Bool("aggregates_enabled", cfg.Aggregates.Enabled))

	return &Services{
		Store:      kv,
		Entities:   svc,
		Aggregates: aggs,
		Reader:     reader,
		Catalog:    catalog,
		Location:   loc,
	}, nil
}

// InitializeStore opens the configured item store backend.
func InitializeStore(ctx context.Context, cfg models.StoreConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "redis":
		kv, err := store.NewRedisStore(ctx, cfg, store.DefaultSchemas())
		if err != nil {
			return nil, err
		}
		return kv, nil
	case "memory":
		zap.L().Warn("Using in-memory item store; data is not persisted")
		return store.NewMemoryStore(store.DefaultSchemas()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// InitializeObjectStore opens the configured ETL object store backend.
func InitializeObjectStore(cfg models.ObjectStoreConfig) (objectstore.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "oss":
		objects, err := objectstore.NewOSSStore(cfg)
		if err != nil {
			return nil, err
		}
		return objects, nil
	case "memory":
		return objectstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}

// InitializeWarehouse connects to the warehouse; used by the ETL load stage
// and the warehouse-backed read endpoints.
func InitializeWarehouse(ctx context.Context, cfg *models.Config, catalog *models.TierCatalog) (*warehouse.Service, error) {
	return warehouse.NewService(ctx, cfg.Warehouse, warehouse.Options{
		Catalog:  catalog,
		Location: models.LoadLocation(cfg.Timezone),
	})
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
