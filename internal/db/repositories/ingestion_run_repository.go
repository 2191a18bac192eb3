package repositories

import (
	"context"
	"errors"
	"time"

	"infinite-experiment/logbook/internal/constants"
	"infinite-experiment/logbook/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// IngestionRunRepo records pipeline runs
type IngestionRunRepo struct {
	db *gormlib.DB
}

func NewIngestionRunRepo(db *gormlib.DB) *IngestionRunRepo {
	return &IngestionRunRepo{db: db}
}

// Start inserts the run in its initial state.
func (r *IngestionRunRepo) Start(ctx context.Context, run *gorm.IngestionRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish stores the final counters, status and error text of a run.
func (r *IngestionRunRepo) Finish(ctx context.Context, run *gorm.IngestionRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now

	return r.db.WithContext(ctx).
		Model(&gorm.IngestionRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":       run.Status,
			"dry_run":      run.DryRun,
			"total_rows":   run.TotalRows,
			"valid_rows":   run.ValidRows,
			"invalid_rows": run.InvalidRows,
			"skipped_rows": run.SkippedRows,
			"pilots":       run.Pilots,
			"flights":      run.Flights,
			"error":        run.Error,
			"finished_at":  run.FinishedAt,
		}).Error
}

// Recent lists the newest runs first.
func (r *IngestionRunRepo) Recent(ctx context.Context, limit int) ([]gorm.IngestionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []gorm.IngestionRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// LastSuccessful returns the most recent run that stored a document, or nil.
func (r *IngestionRunRepo) LastSuccessful(ctx context.Context) (*gorm.IngestionRun, error) {
	var run gorm.IngestionRun
	err := r.db.WithContext(ctx).
		Where("status = ?", string(constants.RunStatusSucceeded)).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Ping checks the underlying connection for health reporting.
func (r *IngestionRunRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
