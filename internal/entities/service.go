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

package entities

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"
)

var (
	ErrReadOnly           = errors.New("withdrawal updates are disabled in read-only mode")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
)

// Service exposes typed reads over the operational tables.
type Service struct {
	store    store.Store
	catalog  *models.TierCatalog
	loc      *time.Location
	clock    cache.Clock
	readOnly bool
}

type Options struct {
	Catalog  *models.TierCatalog
	Location *time.Location
	Clock    cache.Clock
	ReadOnly bool
}

func NewService(st store.Store, opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultTierCatalog()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}
	return &Service{
		store:    st,
		catalog:  opts.Catalog,
		loc:      opts.Location,
		clock:    opts.Clock,
		readOnly: opts.ReadOnly,
	}
}

func (s *Service) Catalog() *models.TierCatalog { return s.catalog }

func (s *Service) Location() *time.Location { return s.loc }

// Today is the current date in the service timezone.
func (s *Service) Today() string {
	return s.clock.Now().In(s.loc).Format(models.DateLayout)
}

// ParseDate parses a stored timestamp in the service timezone.
func (s *Service) ParseDate(v any) string {
	return models.ParseDate(v, s.loc)
}

func (s *Service) scan(ctx context.Context, table string, limit int) ([]models.Item, error) {
	items, err := s.store.ScanAll(ctx, table, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return items, nil
}

func (s *Service) queryByUser(ctx context.Context, table, index, userId string) ([]models.Item, error) {
	items, err := s.store.QueryByIndex(ctx, table, index, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by user: %w", table, err)
	}
	return items, nil
}

// ranked orders user totals descending, ties by user id, and keeps the top limit.
type ranked struct {
	userId string
	value  float64
}

func rankTotals(totals map[string]float64, limit int) []ranked {
	out := make([]ranked, 0, len(totals))
	for id, v := range totals {
		out = append(out, ranked{userId: id, value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].userId < out[j].userId
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// leaderboard resolves names for ranked totals and numbers them from 1.
func (s *Service) leaderboard(ctx context.Context, rows []ranked) []models.LeaderboardEntry {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.userId
	}
	names := s.UserNames(ctx, ids)

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LeaderboardEntry{
			Rank:     i + 1,
			UserId:   r.userId,
			UserName: names[r.userId],
			Value:    r.value,
		}
	}
	return entries
}
