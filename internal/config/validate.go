package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.Source.URL = strings.TrimSpace(c.Source.URL)
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Store.Key = strings.TrimSpace(c.Store.Key)
	if c.Store.Key == "" {
		c.Store.Key = defaultStoreKey
	}
	if c.Store.Backend == "pg" || c.Store.Backend == "sql" {
		c.Store.Backend = BackendPostgres
	}
	if c.Server.IngestInterval == "" {
		c.Server.IngestInterval = defaultIngestInterval
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = defaultSourceTimeout
	}
	return nil
}

// Validate checks that required settings are usable.
func (c *Config) Validate() error {
	if c.Source.URL != "" {
		if _, err := url.Parse(c.Source.URL); err != nil {
			return fmt.Errorf("source.url: %w", err)
		}
	}
	switch c.Store.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Store.Dir) == "" {
			return errors.New("store.dir must be set for the file backend")
		}
	case BackendRedis:
		if c.Redis.Host == "" {
			return errors.New("redis.host must be set for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return errors.New("postgres.host and postgres.db must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Server.RevalidateSeconds <= 0 {
		return errors.New("server.revalidate_seconds must be positive")
	}
	interval, err := time.ParseDuration(c.Server.IngestInterval)
	if err != nil {
		return fmt.Errorf("server.ingest_interval: %w", err)
	}
	if interval <= 0 {
		return errors.New("server.ingest_interval must be positive")
	}
	if c.Kafka.BootstrapServers != "" && c.Kafka.Topic == "" {
		return errors.New("kafka.topic must be set when kafka is enabled")
	}
	return nil
}

// IngestEvery returns the parsed ingest interval. Only valid after Validate.
func (c *Config) IngestEvery() time.Duration {
	d, _ := time.ParseDuration(c.Server.IngestInterval)
	return d
}

// Revalidate is the document freshness window.
func (c *Config) Revalidate() time.Duration {
	return time.Duration(c.Server.RevalidateSeconds) * time.Second
}

// SourceTimeout is the per-fetch deadline for the export download.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
