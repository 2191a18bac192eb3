package constants

type (
	APIStatus   string
	CachePrefix string
	RunStatus   string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixDocument     CachePrefix = "DOC_"
	CachePrefixLastKnownDoc CachePrefix = "DOC_LKG_"
)

// Ingestion run states, stored in ingestion_runs.status and used as the
// status label on logbook_ingestion_runs_total.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusDryRun    RunStatus = "dry_run"
	RunStatusFailed    RunStatus = "failed"
)
