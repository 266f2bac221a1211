package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL         = "https://financialmodelingprep.com/stable"
	DefaultFeedPath        = "/house-latest"
	DefaultFeedLimit       = 10
	DefaultFeedTimeout     = 15 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 1 * time.Second
	DefaultPricesURL       = "https://query1.finance.yahoo.com"
	DefaultProviderTimeout = 20 * time.Second
	DefaultPricesRate      = 2.0
	DefaultPriceCacheTTL   = 30 * time.Minute
	DefaultLookbackDays    = 60
	DefaultOptionsURL      = "https://api.marketdata.app/v1"
	DefaultOptionsRate     = 1.0
	DefaultHorizonDays     = 60
	DefaultDriver          = DriverPostgres
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultSQLitePath      = "insider-trades.db"
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 50
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAgeDays   = 30
)

func (c *Config) applyDefaults() {
	// Feed defaults
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = DefaultFeedURL
	}
	if c.Feed.Path == "" {
		c.Feed.Path = DefaultFeedPath
	}
	if c.Feed.Limit == 0 {
		c.Feed.Limit = DefaultFeedLimit
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = DefaultMaxRetries
	}
	if c.Feed.RetryBackoff == 0 {
		c.Feed.RetryBackoff = DefaultRetryBackoff
	}

	// Prices defaults
	if c.Prices.BaseURL == "" {
		c.Prices.BaseURL = DefaultPricesURL
	}
	if c.Prices.Timeout == 0 {
		c.Prices.Timeout = DefaultProviderTimeout
	}
	if c.Prices.MaxRetries == 0 {
		c.Prices.MaxRetries = DefaultMaxRetries
	}
	if c.Prices.RequestsPerSecond == 0 {
		c.Prices.RequestsPerSecond = DefaultPricesRate
	}
	if c.Prices.CacheTTL == 0 {
		c.Prices.CacheTTL = DefaultPriceCacheTTL
	}
	if c.Prices.LookbackDays == 0 {
		c.Prices.LookbackDays = DefaultLookbackDays
	}

	// Options defaults
	if c.Options.BaseURL == "" {
		c.Options.BaseURL = DefaultOptionsURL
	}
	if c.Options.Timeout == 0 {
		c.Options.Timeout = DefaultProviderTimeout
	}
	if c.Options.MaxRetries == 0 {
		c.Options.MaxRetries = DefaultMaxRetries
	}
	if c.Options.RequestsPerSecond == 0 {
		c.Options.RequestsPerSecond = DefaultOptionsRate
	}
	if c.Options.HorizonDays == 0 {
		c.Options.HorizonDays = DefaultHorizonDays
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
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
