package gorm

import "time"

// IngestionRun is one execution of the logbook pipeline, whether scheduled,
// triggered over the API or run from the CLI.
type IngestionRun struct {
	ID          string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	Trigger     string     `gorm:"column:triggered_by;type:varchar(20);not null"`
	Status      string     `gorm:"column:status;type:varchar(20);not null;index"`
	SourceURL   string     `gorm:"column:source_url;type:text"`
	DryRun      bool       `gorm:"column:dry_run;not null;default:false"`
	TotalRows   int        `gorm:"column:total_rows;not null;default:0"`
	ValidRows   int        `gorm:"column:valid_rows;not null;default:0"`
	InvalidRows int        `gorm:"column:invalid_rows;not null;default:0"`
	SkippedRows int        `gorm:"column:skipped_rows;not null;default:0"`
	Pilots      int        `gorm:"column:pilots;not null;default:0"`
	Flights     int        `gorm:"column:flights;not null;default:0"`
	Error       string     `gorm:"column:error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at;not null;index"`
	FinishedAt  *time.Time `gorm:"column:finished_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
