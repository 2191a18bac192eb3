package dtos

// IngestRequest is the optional body of POST /api/v1/ingest. The source is
// always the configured export; unknown fields are rejected.
type IngestRequest struct {
	DryRun bool `json:"dry_run"`
}
