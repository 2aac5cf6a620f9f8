// Package config loads and validates the service configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source names accepted for ACTIVE_DATA_SOURCE.
const (
	SourceLocalIndexer   = "local_indexer"
	SourcePublicExplorer = "public_explorer"
)

// Config is the full service configuration tree.
type Config struct {
	BlockTimeSeconds int               `mapstructure:"BLOCK_TIME_SECONDS"`
	Periods          map[string]uint64 `mapstructure:"PERIODS"`
	ActiveDataSource string            `mapstructure:"ACTIVE_DATA_SOURCE"`

	DataSources map[string]SourceConfig `mapstructure:"DATA_SOURCES"`

	Database     DatabaseConfig     `mapstructure:"DATABASE"`
	Retention    RetentionConfig    `mapstructure:"RETENTION"`
	Sync         SyncConfig         `mapstructure:"SYNC"`
	Addresses    AddressesConfig    `mapstructure:"ADDRESSES"`
	NodeRegistry NodeRegistryConfig `mapstructure:"NODE_REGISTRY"`
	Enhancement  EnhancementConfig  `mapstructure:"ENHANCEMENT"`
}

// SourceConfig tunes throughput for one upstream data source.
type SourceConfig struct {
	URL                   string `mapstructure:"URL"`
	BatchSize             uint64 `mapstructure:"BATCH_SIZE"`
	MaxConcurrent         int    `mapstructure:"MAX_CONCURRENT"`
	MinRequestDelayMS     int    `mapstructure:"MIN_REQUEST_DELAY"`
	BatchDelayMS          int    `mapstructure:"BATCH_DELAY"`
	EnableRateLimiting    bool   `mapstructure:"ENABLE_RATE_LIMITING"`
	TransactionFetchLimit int    `mapstructure:"TRANSACTION_FETCH_LIMIT"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

// MinRequestDelay returns the configured per-request delay.
func (s SourceConfig) MinRequestDelay() time.Duration {
	return time.Duration(s.MinRequestDelayMS) * time.Millisecond
}

// BatchDelay returns the configured inter-batch delay.
func (s SourceConfig) BatchDelay() time.Duration {
	return time.Duration(s.BatchDelayMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (s SourceConfig) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// DatabaseConfig locates the embedded database file.
type DatabaseConfig struct {
	Path string `mapstructure:"PATH"`
}

// RetentionConfig fixes the rolling retention window, in blocks.
type RetentionConfig struct {
	WindowBlocks uint64 `mapstructure:"WINDOW_BLOCKS"`
}

// SyncConfig drives the ingestion scheduler.
type SyncConfig struct {
	IntervalMinutes int  `mapstructure:"INTERVAL_MINUTES"`
	RunOnStart      bool `mapstructure:"RUN_ON_START"`
}

// AddressesConfig locates the static exchange/foundation address book.
type AddressesConfig struct {
	File string `mapstructure:"FILE"`
}

// NodeRegistryConfig locates the node operator registry endpoint.
type NodeRegistryConfig struct {
	URL                   string `mapstructure:"URL"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

// RequestTimeout returns the registry HTTP timeout.
func (n NodeRegistryConfig) RequestTimeout() time.Duration {
	if n.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n.RequestTimeoutSeconds) * time.Second
}

// EnhancementConfig drives the wallet enhancement engine.
type EnhancementConfig struct {
	MaxHops          int     `mapstructure:"MAX_HOPS"`
	TimeWindowBlocks uint64  `mapstructure:"TIME_WINDOW_BLOCKS"`
	MinConfidence    float64 `mapstructure:"MIN_CONFIDENCE"`
	FailedRetryHours int     `mapstructure:"FAILED_RETRY_HOURS"`

	BackgroundJob         BackgroundJobConfig         `mapstructure:"BACKGROUND_JOB"`
	MultiHop              MultiHopConfig              `mapstructure:"MULTI_HOP"`
	HistoricalDetection   HistoricalDetectionConfig   `mapstructure:"HISTORICAL_DETECTION"`
	HistoricalConnections HistoricalConnectionsConfig `mapstructure:"HISTORICAL_CONNECTIONS"`
	ParallelProcessing    ParallelProcessingConfig    `mapstructure:"PARALLEL_PROCESSING"`
}

// FailedRetry returns the cooldown applied to failed enhancement attempts.
func (e EnhancementConfig) FailedRetry() time.Duration {
	return time.Duration(e.FailedRetryHours) * time.Hour
}

// BackgroundJobConfig drives the enhancement scheduler.
type BackgroundJobConfig struct {
	Enabled              bool `mapstructure:"ENABLED"`
	IntervalMinutes      int  `mapstructure:"INTERVAL_MINUTES"`
	RunOnStart           bool `mapstructure:"RUN_ON_START"`
	MinUnknownsThreshold int  `mapstructure:"MIN_UNKNOWNS_THRESHOLD"`
}

// MultiHopConfig bounds the BFS traversal.
type MultiHopConfig struct {
	DefaultDepth         int    `mapstructure:"DEFAULT_DEPTH"`
	MaxDepth             int    `mapstructure:"MAX_DEPTH"`
	TimeWindowBlocks     uint64 `mapstructure:"TIME_WINDOW_BLOCKS"`
	MaxBranchesPerWallet int    `mapstructure:"MAX_BRANCHES_PER_WALLET"`
}

// HistoricalDetectionConfig toggles coinbase-based detection.
type HistoricalDetectionConfig struct {
	Enabled          bool   `mapstructure:"ENABLED"`
	TimeWindowBlocks uint64 `mapstructure:"TIME_WINDOW_BLOCKS"`
}

// HistoricalConnectionsConfig toggles past-connection detection.
type HistoricalConnectionsConfig struct {
	Enabled bool `mapstructure:"ENABLED"`
}

// ParallelProcessingConfig drives per-event concurrency.
type ParallelProcessingConfig struct {
	Enabled       bool `mapstructure:"ENABLED"`
	BatchSize     int  `mapstructure:"BATCH_SIZE"`
	MaxConcurrent int  `mapstructure:"MAX_CONCURRENT"`
}

// Load reads the configuration file at path, applies defaults, and validates.
// A .env file next to the working directory is honored when present.
func Load(path string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BLOCK_TIME_SECONDS", 30)
	v.SetDefault("PERIODS", map[string]uint64{
		"24h": 2880,
		"7d":  20160,
		"30d": 86400,
	})
	v.SetDefault("ACTIVE_DATA_SOURCE", SourceLocalIndexer)

	v.SetDefault("DATA_SOURCES", map[string]any{
		SourceLocalIndexer: map[string]any{
			"URL":                     "http://127.0.0.1:4000",
			"BATCH_SIZE":              50,
			"MAX_CONCURRENT":          10,
			"MIN_REQUEST_DELAY":       0,
			"BATCH_DELAY":             100,
			"ENABLE_RATE_LIMITING":    false,
			"TRANSACTION_FETCH_LIMIT": 200,
			"REQUEST_TIMEOUT_SECONDS": 30,
		},
		SourcePublicExplorer: map[string]any{
			"URL":                     "https://explorer.runonflux.io",
			"BATCH_SIZE":              10,
			"MAX_CONCURRENT":          2,
			"MIN_REQUEST_DELAY":       500,
			"BATCH_DELAY":             2000,
			"ENABLE_RATE_LIMITING":    true,
			"TRANSACTION_FETCH_LIMIT": 50,
			"REQUEST_TIMEOUT_SECONDS": 30,
		},
	})

	v.SetDefault("DATABASE.PATH", "data/exchange_flow.db")
	// Six-month window at 30-second blocks.
	v.SetDefault("RETENTION.WINDOW_BLOCKS", 518400)
	v.SetDefault("SYNC.INTERVAL_MINUTES", 2)
	v.SetDefault("SYNC.RUN_ON_START", true)
	v.SetDefault("ADDRESSES.FILE", "config/addresses.json")
	v.SetDefault("NODE_REGISTRY.URL", "https://api.runonflux.io/daemon/listzelnodes")

	v.SetDefault("ENHANCEMENT.MAX_HOPS", 3)
	v.SetDefault("ENHANCEMENT.TIME_WINDOW_BLOCKS", 86400)
	v.SetDefault("ENHANCEMENT.MIN_CONFIDENCE", 0.5)
	v.SetDefault("ENHANCEMENT.FAILED_RETRY_HOURS", 24)
	v.SetDefault("ENHANCEMENT.BACKGROUND_JOB.ENABLED", true)
	v.SetDefault("ENHANCEMENT.BACKGROUND_JOB.INTERVAL_MINUTES", 10)
	v.SetDefault("ENHANCEMENT.BACKGROUND_JOB.RUN_ON_START", false)
	v.SetDefault("ENHANCEMENT.BACKGROUND_JOB.MIN_UNKNOWNS_THRESHOLD", 10)
	v.SetDefault("ENHANCEMENT.MULTI_HOP.DEFAULT_DEPTH", 2)
	v.SetDefault("ENHANCEMENT.MULTI_HOP.MAX_DEPTH", 3)
	v.SetDefault("ENHANCEMENT.MULTI_HOP.TIME_WINDOW_BLOCKS", 86400)
	v.SetDefault("ENHANCEMENT.MULTI_HOP.MAX_BRANCHES_PER_WALLET", 5)
	v.SetDefault("ENHANCEMENT.HISTORICAL_DETECTION.ENABLED", true)
	v.SetDefault("ENHANCEMENT.HISTORICAL_DETECTION.TIME_WINDOW_BLOCKS", 1051200)
	v.SetDefault("ENHANCEMENT.HISTORICAL_CONNECTIONS.ENABLED", true)
	v.SetDefault("ENHANCEMENT.PARALLEL_PROCESSING.ENABLED", true)
	v.SetDefault("ENHANCEMENT.PARALLEL_PROCESSING.BATCH_SIZE", 6)
	v.SetDefault("ENHANCEMENT.PARALLEL_PROCESSING.MAX_CONCURRENT", 6)
}

// Validate rejects configurations that would arm a broken scheduler.
func (c *Config) Validate() error {
	if c.BlockTimeSeconds <= 0 {
		return errors.New("BLOCK_TIME_SECONDS must be positive")
	}
	if c.ActiveDataSource == "" {
		return errors.New("ACTIVE_DATA_SOURCE is required")
	}
	if _, ok := c.DataSources[c.ActiveDataSource]; !ok {
		return fmt.Errorf("ACTIVE_DATA_SOURCE %q has no DATA_SOURCES entry", c.ActiveDataSource)
	}
	for name, src := range c.DataSources {
		if name != SourceLocalIndexer && name != SourcePublicExplorer {
			return fmt.Errorf("unknown data source key %q", name)
		}
		if src.URL == "" {
			return fmt.Errorf("data source %q missing URL", name)
		}
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			return fmt.Errorf("data source %q URL %q must be http(s)", name, src.URL)
		}
		if src.BatchSize == 0 {
			return fmt.Errorf("data source %q BATCH_SIZE must be positive", name)
		}
		if src.MaxConcurrent <= 0 {
			return fmt.Errorf("data source %q MAX_CONCURRENT must be positive", name)
		}
	}
	if c.Database.Path == "" {
		return errors.New("DATABASE.PATH is required")
	}
	if c.Retention.WindowBlocks == 0 {
		return errors.New("RETENTION.WINDOW_BLOCKS must be positive")
	}
	if c.Sync.IntervalMinutes <= 0 {
		return errors.New("SYNC.INTERVAL_MINUTES must be positive")
	}
	if c.NodeRegistry.URL == "" {
		return errors.New("NODE_REGISTRY.URL is required")
	}
	e := c.Enhancement
	if e.MaxHops <= 0 || e.MaxHops > e.MultiHop.MaxDepth {
		return fmt.Errorf("ENHANCEMENT.MAX_HOPS %d out of range (1..MULTI_HOP.MAX_DEPTH %d)", e.MaxHops, e.MultiHop.MaxDepth)
	}
	if e.FailedRetryHours <= 0 {
		return errors.New("ENHANCEMENT.FAILED_RETRY_HOURS must be positive")
	}
	if e.MultiHop.MaxBranchesPerWallet <= 0 {
		return errors.New("ENHANCEMENT.MULTI_HOP.MAX_BRANCHES_PER_WALLET must be positive")
	}
	if e.ParallelProcessing.BatchSize <= 0 {
		return errors.New("ENHANCEMENT.PARALLEL_PROCESSING.BATCH_SIZE must be positive")
	}
	if e.ParallelProcessing.MaxConcurrent <= 0 {
		return errors.New("ENHANCEMENT.PARALLEL_PROCESSING.MAX_CONCURRENT must be positive")
	}
	if e.BackgroundJob.IntervalMinutes <= 0 {
		return errors.New("ENHANCEMENT.BACKGROUND_JOB.INTERVAL_MINUTES must be positive")
	}
	return nil
}

// SourceSettingsFor returns the tuning block for the named source.
func (c *Config) SourceSettingsFor(name string) (SourceConfig, error) {
	src, ok := c.DataSources[name]
	if !ok {
		return SourceConfig{}, fmt.Errorf("no DATA_SOURCES entry for %q", name)
	}
	return src, nil
}

// EnsureDatabaseDir creates the directory holding the database file.
func (c *Config) EnsureDatabaseDir() error {
	dir := filepath.Dir(c.Database.Path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir %s: %w", dir, err)
	}
	return nil
}
