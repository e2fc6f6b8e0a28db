/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options carries the non-connection settings of a Service
type Options struct {
	Schema   string
	Catalog  *models.TierCatalog
	Clock    cache.Clock
	Location *time.Location
}

type Service struct {
	db      *gorm.DB
	schema  string
	catalog *models.TierCatalog
	clock   cache.Clock
	loc     *time.Location
}

func NewService(ctx context.Context, cfg models.WarehouseConfig, opts Options) (*Service, error) {
	// Validate configuration
	if cfg.Dsn == "" {
		return nil, fmt.Errorf("warehouse dsn cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening warehouse connection")
	db, err := gorm.Open(postgres.Open(cfg.Dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open warehouse: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unable to access warehouse pool: %w", err)
	}

	// Set connection timeouts and limits
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping warehouse: %w", err)
	}

	if opts.Schema == "" {
		opts.Schema = cfg.Schema
	}
	zap.L().Info("Warehouse service initialized successfully", zap.String("schema", opts.Schema))
	return NewServiceFromDB(db, opts), nil
}

// NewServiceFromDB wraps an already opened connection.
func NewServiceFromDB(db *gorm.DB, opts Options) *Service {
	if opts.Schema == "" {
		opts.Schema = DefaultSchema
	}
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultTierCatalog()
	}
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		db:      db,
		schema:  opts.Schema,
		catalog: opts.Catalog,
		clock:   opts.Clock,
		loc:     opts.Location,
	}
}

func (s *Service) Close() {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		zap.L().Warn("Failed to close warehouse connection", zap.Error(err))
	}
}

// DB exposes the connection for the load executor.
func (s *Service) DB() *gorm.DB {
	return s.db
}

func (s *Service) Schema() string {
	return s.schema
}

// EnsureSchema creates any missing warehouse tables.
func (s *Service) EnsureSchema(ctx context.Context) error {
	for _, t := range Tables {
		if err := s.db.WithContext(ctx).Exec(t.DDL(s.schema)).Error; err != nil {
			return fmt.Errorf("unable to create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// sql renders a query template for the configured schema and period.
func (s *Service) sql(template string, period string) string {
	q := strings.ReplaceAll(template, "{schema}", s.schema)
	return strings.ReplaceAll(q, "{period}", period)
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

func (s *Service) raw(ctx context.Context, dest any, query string, args ...any) error {
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error; err != nil {
		zap.L().Error("Warehouse query failed", zap.Error(err))
		return fmt.Errorf("warehouse query failed: %w", err)
	}
	return nil
}

// day trims a rendered date or timestamp to YYYY-MM-DD.
func day(v string) string {
	if len(v) > len(models.DateLayout) {
		return v[:len(models.DateLayout)]
	}
	return v
}
