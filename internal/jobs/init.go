package jobs

import (
	"context"
	"time"

	"infinite-experiment/logbook/internal/services"
)

// InitializeJobs starts all background jobs. They stop when ctx is cancelled.
func InitializeJobs(
	ctx context.Context,
	ingester services.Ingester,
	history LastRunLookup,
	interval time.Duration,
) *IngestionJob {
	job := NewIngestionJob(ingester, history)
	go job.RunScheduled(ctx, interval)
	return job
}
