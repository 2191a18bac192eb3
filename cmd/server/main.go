package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"infinite-experiment/logbook/internal/app"
	"infinite-experiment/logbook/internal/config"
	"infinite-experiment/logbook/internal/jobs"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/middleware"
	"infinite-experiment/logbook/internal/routes"
)

// @title Logbook Metrics API
// @version 1.0
// @description Serves pilot logbook metrics built from a spreadsheet export.
// @host localhost:8080
// @BasePath /
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize structured logging
	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Logbook starting up",
		"environment", cfg.AppEnv,
		"store_backend", cfg.Store.Backend,
		"history", cfg.History.DSN != "",
		"kafka", cfg.Kafka.BootstrapServers != "",
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if err := run(cfg); err != nil {
		logging.Error("Server stopped with error", "error", err.Error())
		logging.Close()
		os.Exit(1)
	}
	logging.Info("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsReg := metrics.NewMetricsRegistry(nil)

	deps, err := app.InitDependencies(ctx, cfg, metricsReg)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logging.Warn("Error closing dependencies", "error", err.Error())
		}
	}()

	upSince := time.Now()

	// The history lookup must stay an untyped nil when history is disabled.
	var history jobs.LastRunLookup
	if deps.Repo.Runs != nil {
		history = deps.Repo.Runs
	}

	var ingestLimiter *middleware.RateLimiter
	if cfg.Server.IngestRateLimit > 0 {
		ingestLimiter = middleware.NewRateLimiter(rate.Limit(cfg.Server.IngestRateLimit), cfg.Server.IngestBurst)
	}

	router := routes.RegisterRoutes(deps.API(), metricsReg, ingestLimiter, upSince)

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jobs.InitializeJobs(gctx, deps.Services.Ingestion, history, cfg.IngestEvery())
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		logging.Info("Server starting", "addr", cfg.Server.Addr, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
