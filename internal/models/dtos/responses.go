package dtos

import "time"

type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

// PilotSummary is a pilot record without its flight list.
type PilotSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	LicenseNumber  string   `json:"licenseNumber,omitempty"`
	TotalFlights   int      `json:"totalFlights"`
	TotalHours     float64  `json:"totalHours"`
	PICHours       float64  `json:"picHours"`
	NightHours     float64  `json:"nightHours"`
	IFRHours       float64  `json:"ifrHours"`
	AircraftTypes  []string `json:"aircraftTypes"`
	LastFlightDate string   `json:"lastFlightDate,omitempty"`
}

// RunResultResponse reports one ingestion run to API and CLI callers.
type RunResultResponse struct {
	RunID       string   `json:"run_id"`
	Status      string   `json:"status"`
	DryRun      bool     `json:"dry_run"`
	SourceURL   string   `json:"source_url,omitempty"`
	TotalRows   int      `json:"total_rows"`
	ValidRows   int      `json:"valid_rows"`
	InvalidRows int      `json:"invalid_rows"`
	SkippedRows int      `json:"skipped_rows"`
	Pilots      int      `json:"pilots"`
	Flights     int      `json:"flights"`
	Collisions  []string `json:"collisions,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
	GeneratedAt string   `json:"generated_at"`
}

// IngestionRunResponse is one row of run history.
type IngestionRunResponse struct {
	RunID       string     `json:"run_id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	SourceURL   string     `json:"source_url,omitempty"`
	TotalRows   int        `json:"total_rows"`
	ValidRows   int        `json:"valid_rows"`
	InvalidRows int        `json:"invalid_rows"`
	SkippedRows int        `json:"skipped_rows"`
	Pilots      int        `json:"pilots"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
