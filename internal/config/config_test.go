package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ETL_BUCKET", "etl-bucket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Warehouse.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v, want 2s", cfg.Warehouse.PollInterval)
	}
	if cfg.Warehouse.StatementTimeout != 300*time.Second {
		t.Errorf("statement timeout = %v, want 300s", cfg.Warehouse.StatementTimeout)
	}
	if !cfg.ReadOnly {
		t.Error("read-only should default to true")
	}
	if cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if cfg.Etl.BucketUri != "s3://etl-bucket" {
		t.Errorf("bucket uri = %q, want s3://etl-bucket", cfg.Etl.BucketUri)
	}
	if cfg.Updater.MaxMessageNum != 16 {
		t.Errorf("max message num = %d, want 16", cfg.Updater.MaxMessageNum)
	}
	if cfg.Updater.RetryWindow != time.Hour {
		t.Errorf("retry window = %v, want 1h", cfg.Updater.RetryWindow)
	}
	if cfg.Warehouse.CopyCredentials != "" {
		t.Errorf("copy credentials should default to empty, got %q", cfg.Warehouse.CopyCredentials)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AGGREGATE_CACHE_TTL", "15s")
	t.Setenv("READ_ONLY", "false")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("WAREHOUSE_COPY_CREDENTIALS", "aws_access_key_id=AK;aws_secret_access_key=SK")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Aggregates.CacheTTL != 15*time.Second {
		t.Errorf("cache ttl = %v, want 15s", cfg.Aggregates.CacheTTL)
	}
	if cfg.ReadOnly {
		t.Error("read-only override ignored")
	}
	if cfg.Store.Database != 3 || cfg.Store.Address != "redis:6380" {
		t.Errorf("store config = %+v", cfg.Store)
	}
	if cfg.Warehouse.CopyCredentials != "aws_access_key_id=AK;aws_secret_access_key=SK" {
		t.Errorf("copy credentials = %q", cfg.Warehouse.CopyCredentials)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("UPDATER_DEDUPE_WINDOW", "ten minutes")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid duration")
	}
}
