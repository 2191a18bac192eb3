package constants

// Event types published after an ingestion run
const (
	EventMetricsUpdated  = "METRICS_UPDATED"
	EventIngestionFailed = "INGESTION_FAILED"
)
