package config

const (
	defaultAppEnv            = "development"
	defaultStoreKey          = "metrics.json"
	defaultStoreDir          = "data"
	defaultRedisPort         = "6379"
	defaultRedisPrefix       = "logbook:"
	defaultPostgresPort      = "5432"
	defaultPostgresSSLMode   = "disable"
	defaultKafkaTopic        = "logbook-metrics-updated"
	defaultServerAddr        = ":8080"
	defaultRevalidateSeconds = 300
	defaultIngestInterval    = "15m"
	defaultSourceTimeout     = 30
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		AppEnv: defaultAppEnv,
		Source: Source{
			StrictRows:     true,
			TimeoutSeconds: defaultSourceTimeout,
		},
		Store: Store{
			Backend: BackendFile,
			Key:     defaultStoreKey,
			Dir:     defaultStoreDir,
		},
		Redis: Redis{
			Host:   "localhost",
			Port:   defaultRedisPort,
			Prefix: defaultRedisPrefix,
		},
		Postgres: Postgres{
			Host:    "localhost",
			Port:    defaultPostgresPort,
			SSLMode: defaultPostgresSSLMode,
		},
		Kafka: Kafka{
			Topic: defaultKafkaTopic,
		},
		Server: Server{
			Addr:              defaultServerAddr,
			RevalidateSeconds: defaultRevalidateSeconds,
			IngestInterval:    defaultIngestInterval,
			IngestRateLimit:   1.0 / 60,
			IngestBurst:       2,
		},
	}
}
