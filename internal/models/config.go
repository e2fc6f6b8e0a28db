package models

import "time"

// Config represents the application configuration
type Config struct {
	Store       StoreConfig
	ObjectStore ObjectStoreConfig
	Warehouse   WarehouseConfig
	Updater     UpdaterConfig
	Aggregates  AggregatesConfig
	Etl         EtlConfig
	Api         ApiConfig
	ReadOnly    bool
	Timezone    string
	TiersFile   string
}

// StoreConfig holds the operational key-value store settings
type StoreConfig struct {
	Backend      string // "redis" or "memory"
	Address      string
	Username     string
	Password     string
	Database     int
	KeyPrefix    string
	ScanPageSize int
	PingTimeout  time.Duration
}

// ObjectStoreConfig holds the ETL object storage settings
type ObjectStoreConfig struct {
	Backend         string // "oss" or "memory"
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyId     string
	AccessKeySecret string
}

// WarehouseConfig holds warehouse connection and load settings
type WarehouseConfig struct {
	Dsn              string
	Schema           string
	IamRole          string
	CopyCredentials  string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	PollInterval     time.Duration
	StatementTimeout time.Duration
}

// UpdaterConfig holds change-event consumer settings
type UpdaterConfig struct {
	Endpoint           string
	AccessKey          string
	SecretKey          string
	ConsumerGroup      string
	Topic              string
	AwaitDuration      time.Duration
	MaxMessageNum      int32
	InvisibleDuration  time.Duration
	ReceiveConcurrency int
	DedupeWindow       time.Duration
	CleanupInterval    time.Duration
	RetryWindow        time.Duration
	TierLookup         bool
	DefaultTier        string
	MetricsAddr        string
}

// AggregatesConfig holds aggregate table and read cache settings
type AggregatesConfig struct {
	Enabled         bool
	CacheTTL        time.Duration
	LeaderboardSize int
	DailyWindowDays int
	WeeklyWindow    int
}

// EtlConfig holds batch pipeline settings
type EtlConfig struct {
	BucketUri string // e.g. s3://bucket or oss://bucket, used in COPY statements
}

// ApiConfig holds read API settings
type ApiConfig struct {
	ListenAddr string
}
