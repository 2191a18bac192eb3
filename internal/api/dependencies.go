package api

import (
	"context"
	"time"

	"infinite-experiment/logbook/internal/models"
	"infinite-experiment/logbook/internal/models/dtos"
	"infinite-experiment/logbook/internal/services"
)

// MetricsProvider serves the metrics document. *services.MetricsService
// satisfies it.
type MetricsProvider interface {
	Get(ctx context.Context) (*services.DocumentResult, error)
	Peek() (*services.DocumentResult, bool)
	Pilot(ctx context.Context, pilotID string) (*models.PilotRecord, bool, error)
	Pilots(ctx context.Context) ([]dtos.PilotSummary, bool, error)
	Refresh(ctx context.Context, opts services.RunOptions) (*services.RunResult, error)
	Revalidate() time.Duration
}

// RunHistory lists past ingestion runs. *services.IngestionService satisfies it.
type RunHistory interface {
	Runs(ctx context.Context, limit int) ([]dtos.IngestionRunResponse, error)
}

// HealthProbe checks one backing service.
type HealthProbe func(ctx context.Context) error

type Dependencies struct {
	Metrics MetricsProvider
	History RunHistory
	// Probes are keyed by the service name shown in the health check.
	Probes map[string]HealthProbe
}
