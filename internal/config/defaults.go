package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultProviderURL       = "https://www.edsm.net"
	DefaultProviderUserAgent = "galmarket"
	DefaultProviderTimeout   = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultPreroll           = 50
	DefaultPacing            = 0.8
	DefaultFeedURL           = "wss://eddn.edcd.io/relay"
	DefaultReconnectDelay    = 5 * time.Second
	DefaultCacheTTL          = 7 * 24 * time.Hour
	DefaultCachePrefix       = "galmarket"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultWorkers           = 4
	DefaultRetainFor         = 24 * time.Hour
	DefaultSweepInterval     = time.Hour
	DefaultConcurrency       = 6
	DefaultScanBatchSize     = 10
	DefaultScanRetention     = 24 * time.Hour
	DefaultMaxUpdateAge      = 48 * time.Hour
	DefaultTopK              = 20
	DefaultArchiveBatchSize  = 100
	DefaultArchiveFlush      = 5 * time.Second
	DefaultArchiveBuffer     = 1024
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

// DefaultDisallowedTypes lists station types that are skipped during
// population. Carriers move and settlement markets are tiny.
var DefaultDisallowedTypes = []string{"Fleet Carrier", "Odyssey Settlement"}

// DefaultExcludedStationTypes lists station types excluded from sale
// rankings.
var DefaultExcludedStationTypes = []string{"Fleet Carrier"}

func (c *Config) applyDefaults() {
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultProviderURL
	}
	if c.Provider.UserAgent == "" {
		c.Provider.UserAgent = DefaultProviderUserAgent
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}
	if c.Provider.Preroll == 0 {
		c.Provider.Preroll = DefaultPreroll
	}
	if c.Provider.Pacing == 0 {
		c.Provider.Pacing = DefaultPacing
	}

	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = DefaultReconnectDelay
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = DefaultCachePrefix
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultCacheTTL
	}

	applyDBDefaults(&c.Database.Postgres)

	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = DefaultWorkers
	}
	if c.Dispatch.RetainFor == 0 {
		c.Dispatch.RetainFor = DefaultRetainFor
	}
	if c.Dispatch.SweepInterval == 0 {
		c.Dispatch.SweepInterval = DefaultSweepInterval
	}

	if c.Populate.Concurrency == 0 {
		c.Populate.Concurrency = DefaultConcurrency
	}
	if c.Populate.DisallowedTypes == nil {
		c.Populate.DisallowedTypes = DefaultDisallowedTypes
	}

	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = DefaultScanBatchSize
	}
	if c.Scan.Retention == 0 {
		c.Scan.Retention = DefaultScanRetention
	}

	if c.Rank.MaxUpdateAge == 0 {
		c.Rank.MaxUpdateAge = DefaultMaxUpdateAge
	}
	if c.Rank.TopK == 0 {
		c.Rank.TopK = DefaultTopK
	}
	if c.Rank.ExcludedStationTypes == nil {
		c.Rank.ExcludedStationTypes = DefaultExcludedStationTypes
	}

	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultArchiveBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultArchiveFlush
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultArchiveBuffer
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
