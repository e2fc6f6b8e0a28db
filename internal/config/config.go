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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"loyalty-analytics-go/internal/models"
)

// Load reads the configuration from the environment. Durations use Go
// duration syntax, e.g. "90s".
func Load() (*models.Config, error) {
	cfg := &models.Config{
		Store: models.StoreConfig{
			Backend:      getEnvString("STORE_BACKEND", "redis"),
			Address:      getEnvString("REDIS_ADDR", "localhost:6379"),
			Username:     getEnvString("REDIS_USERNAME", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			Database:     getEnvInt("REDIS_DB", 0),
			KeyPrefix:    getEnvString("STORE_KEY_PREFIX", "loyalty"),
			ScanPageSize: getEnvInt("STORE_SCAN_PAGE_SIZE", 500),
		},
		ObjectStore: models.ObjectStoreConfig{
			Backend:         getEnvString("OBJECT_STORE_BACKEND", "oss"),
			Endpoint:        getEnvString("OSS_ENDPOINT", ""),
			Region:          getEnvString("OSS_REGION", "ap-south-1"),
			Bucket:          getEnvString("ETL_BUCKET", ""),
			AccessKeyId:     getEnvString("OSS_ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnvString("OSS_ACCESS_KEY_SECRET", ""),
		},
		Warehouse: models.WarehouseConfig{
			Dsn:             getEnvString("WAREHOUSE_DSN", ""),
			Schema:          getEnvString("WAREHOUSE_SCHEMA", "loyalty"),
			IamRole:         getEnvString("WAREHOUSE_IAM_ROLE", ""),
			CopyCredentials: getEnvString("WAREHOUSE_COPY_CREDENTIALS", ""),
			MaxOpenConns:    getEnvInt("WAREHOUSE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("WAREHOUSE_MAX_IDLE_CONNS", 2),
		},
		Updater: models.UpdaterConfig{
			Endpoint:           getEnvString("ROCKETMQ_ENDPOINT", ""),
			AccessKey:          getEnvString("ROCKETMQ_ACCESS_KEY", ""),
			SecretKey:          getEnvString("ROCKETMQ_SECRET_KEY", ""),
			ConsumerGroup:      getEnvString("ROCKETMQ_CONSUMER_GROUP", "loyalty-aggregates"),
			Topic:              getEnvString("ROCKETMQ_TOPIC", "loyalty-changes"),
			MaxMessageNum:      int32(getEnvInt("ROCKETMQ_MAX_MESSAGE_NUM", 16)),
			ReceiveConcurrency: getEnvInt("UPDATER_RECEIVE_CONCURRENCY", 10),
			TierLookup:         getEnvBool("UPDATER_TIER_LOOKUP", true),
			DefaultTier:        getEnvString("UPDATER_DEFAULT_TIER", models.TierBronze),
			MetricsAddr:        getEnvString("UPDATER_METRICS_ADDR", ":9090"),
		},
		Aggregates: models.AggregatesConfig{
			Enabled:         getEnvBool("USE_AGGREGATES", true),
			LeaderboardSize: getEnvInt("AGGREGATE_LEADERBOARD_SIZE", 50),
			DailyWindowDays: getEnvInt("AGGREGATE_DAILY_DAYS", 30),
			WeeklyWindow:    getEnvInt("AGGREGATE_WEEKLY_DAYS", 7),
		},
		Etl: models.EtlConfig{
			BucketUri: getEnvString("ETL_BUCKET_URI", ""),
		},
		Api: models.ApiConfig{
			ListenAddr: getEnvString("API_LISTEN_ADDR", ":8080"),
		},
		ReadOnly:  getEnvBool("READ_ONLY", true),
		Timezone:  getEnvString("TIMEZONE", "Asia/Kolkata"),
		TiersFile: getEnvString("TIERS_FILE", ""),
	}

	durations := []struct {
		key    string
		def    time.Duration
		target *time.Duration
	}{
		{"STORE_PING_TIMEOUT", 5 * time.Second, &cfg.Store.PingTimeout},
		{"WAREHOUSE_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Warehouse.ConnMaxLifetime},
		{"WAREHOUSE_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Warehouse.ConnMaxIdleTime},
		{"WAREHOUSE_PING_TIMEOUT", 5 * time.Second, &cfg.Warehouse.PingTimeout},
		{"WAREHOUSE_POLL_INTERVAL", 2 * time.Second, &cfg.Warehouse.PollInterval},
		{"WAREHOUSE_STATEMENT_TIMEOUT", 300 * time.Second, &cfg.Warehouse.StatementTimeout},
		{"ROCKETMQ_AWAIT_DURATION", 5 * time.Second, &cfg.Updater.AwaitDuration},
		{"ROCKETMQ_INVISIBLE_DURATION", 20 * time.Second, &cfg.Updater.InvisibleDuration},
		{"UPDATER_DEDUPE_WINDOW", 10 * time.Minute, &cfg.Updater.DedupeWindow},
		{"UPDATER_CLEANUP_INTERVAL", time.Minute, &cfg.Updater.CleanupInterval},
		{"UPDATER_RETRY_WINDOW", time.Hour, &cfg.Updater.RetryWindow},
		{"AGGREGATE_CACHE_TTL", 60 * time.Second, &cfg.Aggregates.CacheTTL},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	if cfg.Etl.BucketUri == "" && cfg.ObjectStore.Bucket != "" {
		cfg.Etl.BucketUri = fmt.Sprintf("s3://%s", cfg.ObjectStore.Bucket)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
