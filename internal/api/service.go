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

package api

import (
	"context"
	"errors"
	"fmt"

	"loyalty-analytics-go/internal/aggregates"
	"loyalty-analytics-go/internal/entities"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/warehouse"
)

const defaultLeaderboardSize = 10

var ErrInvalidRequest = errors.New("invalid request")

// WarehouseQueries is the subset of the warehouse layer served over HTTP.
type WarehouseQueries interface {
	ReferralProgramROI(ctx context.Context) (warehouse.ReferralROI, error)
	Leaderboard(ctx context.Context, name string, period warehouse.Period, limit int) ([]models.LeaderboardEntry, error)
	LoyaltySummary(ctx context.Context) (warehouse.LoyaltySummary, error)
	ListUsers(ctx context.Context, page, size int) (warehouse.Page[warehouse.UserRow], error)
	ListTransactions(ctx context.Context, page, size int) (warehouse.Page[warehouse.TransactionRow], error)
}

var _ WarehouseQueries = (*warehouse.Service)(nil)

// AnalyticsService answers dashboard reads. Aggregates are preferred; live
// accessor scans cover disabled or unseeded aggregates.
type AnalyticsService struct {
	entities  *entities.Service
	reader    *aggregates.Reader
	warehouse WarehouseQueries
}

// NewAnalyticsService wires the read paths. reader and wh may be nil.
func NewAnalyticsService(svc *entities.Service, reader *aggregates.Reader, wh WarehouseQueries) *AnalyticsService {
	return &AnalyticsService{
		entities:  svc,
		reader:    reader,
		warehouse: wh,
	}
}

func (s *AnalyticsService) HealthCheck(ctx context.Context) error {
	if _, err := s.entities.ListUsers(ctx, 1); err != nil {
		return fmt.Errorf("item store health check failed: %w", err)
	}
	return nil
}

func (s *AnalyticsService) aggregatesEnabled(ctx context.Context) bool {
	return s.reader != nil && s.reader.Enabled(ctx)
}
