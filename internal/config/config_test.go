package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"infinite-experiment/logbook/internal/config"
)

var envKeys = []string{
	"LOGBOOK_CONFIG", "APP_ENV", "DATA_SOURCE_URL", "METRICS_KEY", "STORE_BACKEND", "STORE_DIR",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	"PG_HOST", "PG_PORT", "PG_USER", "PG_DB", "PG_PASSWORD", "PG_SSLMODE", "HISTORY_DSN",
	"KAFKA_BOOTSTRAP_SERVERS", "KAFKA_TOPIC", "HTTP_ADDR", "INGEST_INTERVAL", "REVALIDATE_SECONDS",
	"STRICT_VALIDATION", "STRICT_COLUMNS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logbook.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != config.BackendFile {
		t.Fatalf("expected file backend, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Key != "metrics.json" {
		t.Fatalf("unexpected store key: %q", cfg.Store.Key)
	}
	if !cfg.Source.StrictRows || cfg.Source.StrictColumns {
		t.Fatalf("unexpected strictness defaults: %+v", cfg.Source)
	}
	if cfg.Revalidate() != 300*time.Second {
		t.Fatalf("unexpected revalidate window: %v", cfg.Revalidate())
	}
	if cfg.IngestEvery() != 15*time.Minute {
		t.Fatalf("unexpected ingest interval: %v", cfg.IngestEvery())
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
app_env = "production"

[source]
url = "https://docs.example.test/export?format=csv"
strict_columns = true

[store]
backend = "redis"

[redis]
host = "cache.internal"

[server]
revalidate_seconds = 120
`)
	t.Setenv("REDIS_HOST", "redis.override")
	t.Setenv("STRICT_VALIDATION", "false")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env, got %q", cfg.AppEnv)
	}
	if cfg.Source.URL != "https://docs.example.test/export?format=csv" {
		t.Fatalf("unexpected source url: %q", cfg.Source.URL)
	}
	if !cfg.Source.StrictColumns {
		t.Fatal("expected strict columns from file")
	}
	if cfg.Source.StrictRows {
		t.Fatal("expected STRICT_VALIDATION to disable strict rows")
	}
	if cfg.Redis.Host != "redis.override" {
		t.Fatalf("expected env to win over file, got %q", cfg.Redis.Host)
	}
	if cfg.Server.RevalidateSeconds != 120 {
		t.Fatalf("unexpected revalidate seconds: %d", cfg.Server.RevalidateSeconds)
	}
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[store]\nbackend = \"pg\"\n\n[postgres]\ndb = \"logbook\"\n")
	t.Setenv("LOGBOOK_CONFIG", path)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != config.BackendPostgres {
		t.Fatalf("expected pg alias to normalize to postgres, got %q", cfg.Store.Backend)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "s3"}, "unknown backend"},
		{"bad interval", map[string]string{"INGEST_INTERVAL": "soon"}, "ingest_interval"},
		{"zero revalidate", map[string]string{"REVALIDATE_SECONDS": "0"}, "revalidate_seconds"},
		{"postgres without db", map[string]string{"STORE_BACKEND": "postgres"}, "postgres.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load("")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[store]\nbucket = \"nope\"\n")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
