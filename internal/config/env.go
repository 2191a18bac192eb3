package config

import (
	"os"
	"strconv"
	"strings"
)

func (c *Config) applyEnv() {
	setString(&c.AppEnv, "APP_ENV")

	setString(&c.Source.URL, "DATA_SOURCE_URL")
	setBool(&c.Source.StrictRows, "STRICT_VALIDATION")
	setBool(&c.Source.StrictColumns, "STRICT_COLUMNS")

	setString(&c.Store.Key, "METRICS_KEY")
	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.Dir, "STORE_DIR")

	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Port, "REDIS_PORT")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")
	setString(&c.Redis.EventsStream, "REDIS_EVENTS_STREAM")

	setString(&c.Postgres.Host, "PG_HOST")
	setString(&c.Postgres.Port, "PG_PORT")
	setString(&c.Postgres.User, "PG_USER")
	setString(&c.Postgres.DBName, "PG_DB")
	setString(&c.Postgres.Password, "PG_PASSWORD")
	setString(&c.Postgres.SSLMode, "PG_SSLMODE")

	setString(&c.History.DSN, "HISTORY_DSN")

	setString(&c.Kafka.BootstrapServers, "KAFKA_BOOTSTRAP_SERVERS")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Kafka.SecurityProtocol, "KAFKA_SECURITY_PROTOCOL")
	setString(&c.Kafka.SASLMechanism, "KAFKA_SASL_MECHANISM")
	setString(&c.Kafka.SASLUsername, "KAFKA_SASL_USERNAME")
	setString(&c.Kafka.SASLPassword, "KAFKA_SASL_PASSWORD")

	setString(&c.Server.Addr, "HTTP_ADDR")
	setString(&c.Server.IngestInterval, "INGEST_INTERVAL")
	setInt(&c.Server.RevalidateSeconds, "REVALIDATE_SECONDS")
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

// setInt and setBool ignore values that do not parse; Validate reports the
// resulting config instead.
func setInt(dst *int, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}
