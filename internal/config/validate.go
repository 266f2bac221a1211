package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.APIKey == "" {
		return errors.New("feed.api_key is required")
	}
	if c.Feed.Page < 0 {
		return errors.New("feed.page must be >= 0")
	}
	if c.Feed.Limit < 1 || c.Feed.Limit > 1000 {
		return fmt.Errorf("feed.limit must be between 1 and 1000, got %d", c.Feed.Limit)
	}
	if c.Feed.MaxRetries < 0 {
		return errors.New("feed.max_retries must be >= 0")
	}

	if c.Prices.RequestsPerSecond <= 0 {
		return errors.New("prices.requests_per_second must be > 0")
	}
	if c.Prices.LookbackDays < 1 {
		return errors.New("prices.lookback_days must be >= 1")
	}

	if c.Options.Enabled {
		if c.Options.Token == "" {
			return errors.New("options.token is required when options.enabled is true")
		}
		if c.Options.RequestsPerSecond <= 0 {
			return errors.New("options.requests_per_second must be > 0")
		}
		if c.Options.HorizonDays < 1 {
			return errors.New("options.horizon_days must be >= 1")
		}
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron is invalid: %w", err)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
