package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Provider.MaxRetries < 1 {
		return errors.New("provider.max_retries must be >= 1")
	}
	if c.Provider.Pacing < 0 || c.Provider.Pacing > 1 {
		return fmt.Errorf("provider.pacing must be between 0 and 1, got %v", c.Provider.Pacing)
	}

	if c.Database.Postgres.Enabled() {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.Dispatch.Workers < 1 {
		return errors.New("dispatch.workers must be >= 1")
	}
	if c.Populate.Concurrency < 1 {
		return errors.New("populate.concurrency must be >= 1")
	}
	if c.Scan.BatchSize < 1 {
		return errors.New("scan.batch_size must be >= 1")
	}
	if c.Rank.TopK < 1 {
		return errors.New("rank.top_k must be >= 1")
	}
	if c.Archive.BatchSize < 1 {
		return errors.New("archive.batch_size must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
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
