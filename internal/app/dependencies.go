package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"infinite-experiment/logbook/internal/api"
	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/config"
	"infinite-experiment/logbook/internal/db"
	"infinite-experiment/logbook/internal/db/repositories"
	"infinite-experiment/logbook/internal/events"
	"infinite-experiment/logbook/internal/ingestion"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/providers"
	"infinite-experiment/logbook/internal/services"
)

type Repositories struct {
	// Runs is nil when no history DSN is configured.
	Runs *repositories.IngestionRunRepo
	// Store is the document backend wrapped with metrics.
	Store common.DocumentStore
}

type Services struct {
	Cache     *common.CacheService
	Publisher events.Publisher
	Ingestion *services.IngestionService
	Metrics   *services.MetricsService
}

type Dependencies struct {
	Config   *config.Config
	Repo     *Repositories
	Services *Services

	closers []func() error
}

// InitDependencies connects every configured backend and builds the services.
// The caller must Close the result.
func InitDependencies(ctx context.Context, cfg *config.Config, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, store.Close)

	repos := &Repositories{Store: common.NewInstrumentedStore(store, metricsReg)}

	// Interfaces stay untyped nil when a feature is off so services can test
	// for it.
	var runs services.RunRecorder
	if cfg.History.DSN != "" {
		historyDB, err := db.OpenHistoryDB(cfg.History.DSN)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.closers = append(deps.closers, closeGorm(historyDB))
		repos.Runs = repositories.NewIngestionRunRepo(historyDB)
		runs = repos.Runs
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.BootstrapServers != "" {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			BootstrapServers: cfg.Kafka.BootstrapServers,
			Topic:            cfg.Kafka.Topic,
			SecurityProtocol: cfg.Kafka.SecurityProtocol,
			SASLMechanism:    cfg.Kafka.SASLMechanism,
			SASLUsername:     cfg.Kafka.SASLUsername,
			SASLPassword:     cfg.Kafka.SASLPassword,
		})
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		logging.Info("Publishing metrics events to Kafka", "topic", cfg.Kafka.Topic)
		publisher = kp
		deps.closers = append(deps.closers, func() error { kp.Close(); return nil })
	} else if cfg.Redis.EventsStream != "" {
		rp := events.NewRedisStreamPublisher(common.NewRedisClient(redisOptions(cfg)), cfg.Redis.EventsStream)
		logging.Info("Publishing metrics events to Redis stream", "stream", cfg.Redis.EventsStream)
		publisher = rp
		deps.closers = append(deps.closers, func() error { rp.Close(); return nil })
	}

	cacheSvc := common.NewCacheService(int(cfg.Revalidate().Seconds()), 600)
	deps.closers = append(deps.closers, cacheSvc.Close)

	provider := providers.NewDetectingProvider()
	provider.HTTP.Client.Timeout = cfg.SourceTimeout()

	ingestionSvc := services.NewIngestionService(provider, repos.Store, cacheSvc, runs, publisher, metricsReg, services.IngestionConfig{
		SourceURL:   cfg.Source.URL,
		DocumentKey: cfg.Store.Key,
		Options: ingestion.Options{
			StrictValidation: cfg.Source.StrictRows,
			StrictColumns:    cfg.Source.StrictColumns,
		},
		Revalidate: cfg.Revalidate(),
	})

	deps.Repo = repos
	deps.Services = &Services{
		Cache:     cacheSvc,
		Publisher: publisher,
		Ingestion: ingestionSvc,
		Metrics:   services.NewMetricsService(repos.Store, cacheSvc, ingestionSvc, metricsReg, cfg.Store.Key, cfg.Revalidate()),
	}
	return deps, nil
}

// API returns what the HTTP handlers need.
func (d *Dependencies) API() *api.Dependencies {
	out := &api.Dependencies{
		Metrics: d.Services.Metrics,
		Probes: map[string]api.HealthProbe{
			"store": d.Repo.Store.Ping,
		},
	}
	if d.Repo.Runs != nil {
		out.History = d.Services.Ingestion
		out.Probes["history"] = d.Repo.Runs.Ping
	}
	return out
}

// Close releases backends in reverse order of opening.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config) (common.DocumentStore, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client := common.NewRedisClient(redisOptions(cfg))
		return common.NewRedisDocumentStore(client, cfg.Redis.Prefix), nil

	case config.BackendPostgres:
		conn, err := db.InitPostgres(db.PostgresOptions{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			DBName:   cfg.Postgres.DBName,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		store, err := common.NewSQLDocumentStore(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return store, nil

	default:
		return common.NewFileDocumentStore(cfg.Store.Dir)
	}
}

func redisOptions(cfg *config.Config) common.RedisOptions {
	return common.RedisOptions{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func closeGorm(g *gorm.DB) func() error {
	return func() error {
		sqlDB, err := g.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}
