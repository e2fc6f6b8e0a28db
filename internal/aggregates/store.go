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

package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loyalty-analytics-go/internal/cache"
	"loyalty-analytics-go/internal/models"
	"loyalty-analytics-go/internal/store"
)

// ErrInvalidMember is returned for weekly-map member ids that cannot be
// addressed as a path segment.
var ErrInvalidMember = errors.New("invalid leaderboard member id")

// Store reads and writes records of the aggregate table.
type Store struct {
	kv    store.Store
	clock cache.Clock
}

func NewStore(kv store.Store, clock cache.Clock) *Store {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	return &Store{kv: kv, clock: clock}
}

func aggregateKey(t models.AggregateType, id string) store.Key {
	return store.Key{"aggregateType": string(t), "aggregateId": id}
}

// Get returns nil, nil when the record does not exist.
func (s *Store) Get(ctx context.Context, t models.AggregateType, id string) (*models.AggregateRecord, error) {
	item, err := s.kv.GetItem(ctx, models.TableAggregates, aggregateKey(t, id))
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate %s/%s: %w", t, id, err)
	}

	data := item.Map("data")
	if data == nil {
		data = models.Item{}
	}
	return &models.AggregateRecord{
		Type:        t,
		Id:          id,
		LastUpdated: item.Int("lastUpdated"),
		Data:        data,
	}, nil
}

// Put overwrites the full payload.
func (s *Store) Put(ctx context.Context, t models.AggregateType, id string, data models.Item) error {
	if data == nil {
		data = models.Item{}
	}
	item := models.Item{
		"aggregateType": string(t),
		"aggregateId":   id,
		"lastUpdated":   s.clock.Now().Unix(),
		"data":          data,
	}
	if err := s.kv.PutItem(ctx, models.TableAggregates, item); err != nil {
		return fmt.Errorf("failed to put aggregate %s/%s: %w", t, id, err)
	}
	return nil
}

// UpdateDelta adds each non-zero delta to its data field in a single atomic
// update, initializing missing fields to the delta. Returns false without
// touching the store when every delta is zero.
func (s *Store) UpdateDelta(ctx context.Context, t models.AggregateType, id string, deltas map[string]float64) (bool, error) {
	add := make(map[string]float64, len(deltas))
	for field, delta := range deltas {
		if delta != 0 {
			add["data."+field] = delta
		}
	}
	if len(add) == 0 {
		return false, nil
	}

	_, err := s.kv.UpdateItem(ctx, models.TableAggregates, aggregateKey(t, id), store.Update{
		Set: map[string]any{"lastUpdated": s.clock.Now().Unix()},
		Add: add,
	})
	if err != nil {
		return false, fmt.Errorf("failed to update aggregate %s/%s: %w", t, id, err)
	}
	return true, nil
}

// IncrementMember adds delta to users.<member> of a count-map record.
func (s *Store) IncrementMember(ctx context.Context, t models.AggregateType, id, member string, delta float64) (bool, error) {
	if err := validMember(member); err != nil {
		return false, err
	}
	return s.UpdateDelta(ctx, t, id, map[string]float64{"users." + member: delta})
}

// IncrementMemberFields adds each delta to users.<member>.<field>.
func (s *Store) IncrementMemberFields(ctx context.Context, t models.AggregateType, id, member string, fields map[string]float64) (bool, error) {
	if err := validMember(member); err != nil {
		return false, err
	}
	deltas := make(map[string]float64, len(fields))
	for field, delta := range fields {
		deltas["users."+member+"."+field] = delta
	}
	return s.UpdateDelta(ctx, t, id, deltas)
}

func validMember(member string) error {
	if member == "" || strings.Contains(member, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidMember, member)
	}
	return nil
}
