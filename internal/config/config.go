package config

import "time"

// Config is the root configuration for a marketd instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Provider ProviderConfig `yaml:"provider"`
	Feed     FeedConfig     `yaml:"feed"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Populate PopulateConfig `yaml:"populate"`
	Scan     ScanConfig     `yaml:"scan"`
	Rank     RankConfig     `yaml:"rank"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProviderConfig holds bulk data provider settings.
type ProviderConfig struct {
	BaseURL    string        `yaml:"base_url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Preroll    int           `yaml:"preroll"` // Rate-limit intervals to wait out after a 429
	Pacing     float64       `yaml:"pacing"`  // Fraction of the request interval to sleep after success
}

// FeedConfig holds live event relay settings.
type FeedConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	WriteSnapshots bool          `yaml:"write_snapshots"`
}

// RedisConfig holds the cache backend. An empty addr selects the
// in-memory store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// DatabaseConfig holds the Postgres connection for the scan store and
// snapshot archive. An empty host disables both.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a Postgres connection is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// DispatchConfig holds task queue settings.
type DispatchConfig struct {
	Workers       int           `yaml:"workers"`
	RetainFor     time.Duration `yaml:"retain_for"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// PopulateConfig holds market populator settings.
type PopulateConfig struct {
	Concurrency     int      `yaml:"concurrency"`
	DisallowedTypes []string `yaml:"disallowed_types"`
}

// ScanConfig holds scan orchestrator settings.
type ScanConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Retention time.Duration `yaml:"retention"`
}

// RankConfig holds default sale ranking filters.
type RankConfig struct {
	MinPrice             int64         `yaml:"min_price"`
	MinDemand            int64         `yaml:"min_demand"`
	MaxUpdateAge         time.Duration `yaml:"max_update_age"`
	TopK                 int           `yaml:"top_k"`
	ExcludedStationTypes []string      `yaml:"excluded_station_types"`
}

// ArchiveConfig holds snapshot archive writer settings.
type ArchiveConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
