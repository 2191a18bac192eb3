package jobs

import (
	"context"
	"time"

	"infinite-experiment/logbook/internal/logging"
	gormmodels "infinite-experiment/logbook/internal/models/gorm"
	"infinite-experiment/logbook/internal/services"
)

// LastRunLookup reports the most recent successful run, or nil when there is
// none. *repositories.IngestionRunRepo satisfies it.
type LastRunLookup interface {
	LastSuccessful(ctx context.Context) (*gormmodels.IngestionRun, error)
}

// IngestionJob rebuilds the metrics document on a fixed interval.
type IngestionJob struct {
	ingester services.Ingester
	history  LastRunLookup
	now      func() time.Time
}

// NewIngestionJob creates the job. history may be nil, in which case the job
// always runs once at startup.
func NewIngestionJob(ingester services.Ingester, history LastRunLookup) *IngestionJob {
	return &IngestionJob{ingester: ingester, history: history, now: time.Now}
}

// Run performs one scheduled ingestion.
func (j *IngestionJob) Run(ctx context.Context) error {
	res, err := j.ingester.Run(ctx, services.RunOptions{Trigger: services.TriggerSchedule})
	if err != nil {
		return err
	}
	logging.Info("[IngestionJob] Scheduled ingestion complete",
		"run_id", res.RunID,
		"pilots", res.Pilots,
		"flights", res.Flights,
	)
	return nil
}

// shouldRunInitial is true when no successful run is on record within one
// interval, so restarts do not refetch a document that is still current.
func (j *IngestionJob) shouldRunInitial(ctx context.Context, interval time.Duration) bool {
	if j.history == nil {
		return true
	}
	last, err := j.history.LastSuccessful(ctx)
	if err != nil {
		logging.Warn("[IngestionJob] Error checking last run, running anyway", "error", err.Error())
		return true
	}
	if last == nil {
		logging.Info("[IngestionJob] No previous run found, running initial ingestion")
		return true
	}

	since := j.now().Sub(last.StartedAt)
	if since > interval {
		logging.Info("[IngestionJob] Last run is older than the interval, running", "since", since.Truncate(time.Second).String())
		return true
	}
	logging.Info("[IngestionJob] Last run is recent, skipping initial ingestion", "since", since.Truncate(time.Second).String())
	return false
}

// RunScheduled runs the job every interval until ctx is cancelled.
func (j *IngestionJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if j.shouldRunInitial(ctx, interval) {
		if err := j.Run(ctx); err != nil {
			logging.Error("[IngestionJob] Error in initial run", "error", err.Error())
		}
	}

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				logging.Error("[IngestionJob] Error in scheduled run", "error", err.Error())
			}
		case <-ctx.Done():
			logging.Info("[IngestionJob] Shutting down scheduled ingestion")
			return
		}
	}
}
