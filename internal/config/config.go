package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Store backends understood by the service.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Source describes where the logbook export comes from and how strictly it
// is checked.
type Source struct {
	URL            string `toml:"url"`
	StrictRows     bool   `toml:"strict_rows"`
	StrictColumns  bool   `toml:"strict_columns"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Store selects where the published metrics document lives.
type Store struct {
	Backend string `toml:"backend"`
	Key     string `toml:"key"`
	Dir     string `toml:"dir"`
}

type Redis struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
	// EventsStream, when set and Kafka is off, receives run events via XADD.
	EventsStream string `toml:"events_stream"`
}

type Postgres struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	DBName   string `toml:"db"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

// History is the gorm DSN for the ingestion run log. Empty disables it.
type History struct {
	DSN string `toml:"dsn"`
}

// Kafka publishes metrics-updated events. Empty bootstrap servers disables it.
type Kafka struct {
	BootstrapServers string `toml:"bootstrap_servers"`
	Topic            string `toml:"topic"`
	SecurityProtocol string `toml:"security_protocol"`
	SASLMechanism    string `toml:"sasl_mechanism"`
	SASLUsername     string `toml:"sasl_username"`
	SASLPassword     string `toml:"sasl_password"`
}

type Server struct {
	Addr              string  `toml:"addr"`
	RevalidateSeconds int     `toml:"revalidate_seconds"`
	IngestInterval    string  `toml:"ingest_interval"`
	IngestRateLimit   float64 `toml:"ingest_rate_limit"`
	IngestBurst       int     `toml:"ingest_burst"`
}

// Config is the full service configuration.
//
// Sections:
//   - Source: export location and validation strictness
//   - Store: document backend and key
//   - Redis, Postgres: backend connection settings
//   - History: ingestion run log database
//   - Kafka: event publishing
//   - Server: HTTP bind, cache revalidation and the ingest schedule
type Config struct {
	AppEnv   string   `toml:"app_env"`
	Source   Source   `toml:"source"`
	Store    Store    `toml:"store"`
	Redis    Redis    `toml:"redis"`
	Postgres Postgres `toml:"postgres"`
	History  History  `toml:"history"`
	Kafka    Kafka    `toml:"kafka"`
	Server   Server   `toml:"server"`
}

// Load builds the configuration from, in increasing priority: defaults, the
// TOML file at path (or $LOGBOOK_CONFIG), and environment variables. A .env
// file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("LOGBOOK_CONFIG")
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
