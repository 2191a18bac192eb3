package entities

import "time"

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// DocumentStatus describes the document currently being served.
type DocumentStatus struct {
	UpdatedAt string `json:"updated_at"`
	Pilots    int    `json:"pilots"`
	Stale     bool   `json:"stale"`
}

type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceStatus `json:"services"`
	Document *DocumentStatus          `json:"document,omitempty"`
	UpSince  time.Time                `json:"up_since"`
	Uptime   string                   `json:"uptime"`
}
