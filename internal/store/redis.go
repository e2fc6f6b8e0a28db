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

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"loyalty-analytics-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check: *RedisStore must satisfy Store.
var _ Store = (*RedisStore)(nil)

const maxUpdateRetries = 5

// RedisStore keeps each item as a JSON document under <prefix>:<table>:<id>
// and each secondary index as a set of ids under <prefix>:idx:<table>:<index>:<value>.
type RedisStore struct {
	client   *redis.Client
	schemas  map[string]TableSchema
	prefix   string
	pageSize int
}

func NewRedisStore(ctx context.Context, cfg models.StoreConfig, schemas map[string]TableSchema) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if cfg.ScanPageSize <= 0 {
		return nil, fmt.Errorf("scan page size must be positive, got %d", cfg.ScanPageSize)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}
	if schemas == nil {
		schemas = DefaultSchemas()
	}

	zap.L().Info("Connecting to Redis item store",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.Database))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	zap.L().Info("Redis item store initialized successfully")
	return NewRedisStoreFromClient(client, cfg.KeyPrefix, cfg.ScanPageSize, schemas), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, pageSize int, schemas map[string]TableSchema) *RedisStore {
	if prefix == "" {
		prefix = "loyalty"
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	if schemas == nil {
		schemas = DefaultSchemas()
	}
	return &RedisStore{client: client, schemas: schemas, prefix: prefix, pageSize: pageSize}
}

func (r *RedisStore) Close() {
	if err := r.client.Close(); err != nil {
		zap.L().Warn("Failed to close redis connection", zap.Error(err))
	}
}

func (r *RedisStore) itemKey(table, id string) string {
	return r.prefix + ":" + table + ":" + id
}

func (r *RedisStore) indexKey(table, index, value string) string {
	return r.prefix + ":idx:" + table + ":" + index + ":" + value
}

// ScanAll walks SCAN cursors until the cursor returns to zero or limit is reached.
// SCAN can return a key more than once; duplicates are dropped.
func (r *RedisStore) ScanAll(ctx context.Context, table string, limit int) ([]models.Item, error) {
	if _, err := lookupSchema(r.schemas, table); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var items []models.Item
	var cursor uint64
	pages := 0

	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.itemKey(table, "*"), int64(r.pageSize)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		pages++

		fresh := keys[:0]
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, k)
			}
		}

		batch, err := r.loadItems(ctx, fresh)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s page: %w", table, err)
		}
		items = append(items, batch...)

		if limit > 0 && len(items) >= limit {
			items = items[:limit]
			break
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	zap.L().Debug("Scanned table",
		zap.String("table", table),
		zap.Int("pages", pages),
		zap.Int("items", len(items)))
	return items, nil
}

func (r *RedisStore) ScanPage(ctx context.Context, table, cursor string, pageSize int) (Page, error) {
	if _, err := lookupSchema(r.schemas, table); err != nil {
		return Page{}, err
	}
	if pageSize <= 0 {
		pageSize = r.pageSize
	}

	var start uint64
	if cursor != "" {
		c, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return Page{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		start = c
	}

	keys, next, err := r.client.Scan(ctx, start, r.itemKey(table, "*"), int64(pageSize)).Result()
	if err != nil {
		return Page{}, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	items, err := r.loadItems(ctx, keys)
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if next != 0 {
		page.Cursor = strconv.FormatUint(next, 10)
	}
	return page, nil
}

func (r *RedisStore) QueryByIndex(ctx context.Context, table, index, value string) ([]models.Item, error) {
	schema, err := lookupSchema(r.schemas, table)
	if err != nil {
		return nil, err
	}
	if _, err := lookupIndex(schema, index); err != nil {
		return nil, err
	}

	ids, err := r.client.SMembers(ctx, r.indexKey(table, index, value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s on %s: %w", index, table, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.itemKey(table, id))
	}
	return r.loadItems(ctx, keys)
}

func (r *RedisStore) GetItem(ctx context.Context, table string, key Key) (models.Item, error) {
	schema, err := lookupSchema(r.schemas, table)
	if err != nil {
		return nil, err
	}
	id, err := schema.itemId(key)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, r.itemKey(table, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s item: %w", table, err)
	}
	return decodeItem(raw)
}

func (r *RedisStore) PutItem(ctx context.Context, table string, item models.Item) error {
	schema, err := lookupSchema(r.schemas, table)
	if err != nil {
		return err
	}
	id, err := schema.itemId(schema.keyOf(item))
	if err != nil {
		return err
	}
	k := r.itemKey(table, id)

	return r.withRetry(ctx, k, func(tx *redis.Tx) error {
		previous, err := r.readForUpdate(ctx, tx, k)
		if err != nil {
			return err
		}
		return r.commit(ctx, tx, schema, id, previous, NormalizeItem(item))
	})
}

// UpdateItem applies the update under WATCH so concurrent deltas never lose writes.
// A missing item is created from its key.
func (r *RedisStore) UpdateItem(ctx context.Context, table string, key Key, update Update) (models.Item, error) {
	schema, err := lookupSchema(r.schemas, table)
	if err != nil {
		return nil, err
	}
	id, err := schema.itemId(key)
	if err != nil {
		return nil, err
	}
	k := r.itemKey(table, id)

	var updated models.Item
	err = r.withRetry(ctx, k, func(tx *redis.Tx) error {
		current, err := r.readForUpdate(ctx, tx, k)
		if err != nil {
			return err
		}
		base := current
		if base == nil {
			base = models.Item{}
			for attr, v := range key {
				base[attr] = v
			}
		}
		updated, err = applyUpdate(schema, base, update)
		if err != nil {
			return err
		}
		return r.commit(ctx, tx, schema, id, current, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *RedisStore) DeleteItem(ctx context.Context, table string, key Key) error {
	schema, err := lookupSchema(r.schemas, table)
	if err != nil {
		return err
	}
	id, err := schema.itemId(key)
	if err != nil {
		return err
	}
	k := r.itemKey(table, id)

	return r.withRetry(ctx, k, func(tx *redis.Tx) error {
		current, err := r.readForUpdate(ctx, tx, k)
		if err != nil || current == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			for index, attr := range schema.Indexes {
				if v := current.String(attr); v != "" {
					pipe.SRem(ctx, r.indexKey(schema.Name, index, v), id)
				}
			}
			return nil
		})
		return err
	})
}

func (r *RedisStore) withRetry(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, fn, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		zap.L().Debug("Optimistic lock conflict, retrying",
			zap.String("key", key),
			zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("%w: %s", ErrConcurrentModification, key)
}

func (r *RedisStore) readForUpdate(ctx context.Context, tx *redis.Tx, key string) (models.Item, error) {
	raw, err := tx.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItem(raw)
}

// commit writes the item and moves its index memberships in one MULTI block.
func (r *RedisStore) commit(ctx context.Context, tx *redis.Tx, schema TableSchema, id string, previous, next models.Item) error {
	body, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.itemKey(schema.Name, id), body, 0)
		for index, attr := range schema.Indexes {
			oldValue := previous.String(attr)
			newValue := next.String(attr)
			if oldValue == newValue {
				if newValue != "" {
					pipe.SAdd(ctx, r.indexKey(schema.Name, index, newValue), id)
				}
				continue
			}
			if oldValue != "" {
				pipe.SRem(ctx, r.indexKey(schema.Name, index, oldValue), id)
			}
			if newValue != "" {
				pipe.SAdd(ctx, r.indexKey(schema.Name, index, newValue), id)
			}
		}
		return nil
	})
	return err
}

func (r *RedisStore) loadItems(ctx context.Context, keys []string) ([]models.Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Deleted between SCAN/SMEMBERS and MGET.
			continue
		}
		item, err := decodeItem(raw)
		if err != nil {
			zap.L().Warn("Skipping undecodable item", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(raw string) (models.Item, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return NormalizeItem(m), nil
}
