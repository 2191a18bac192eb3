// Package events announces finished ingestion runs to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// MetricsUpdated is the payload sent after an ingestion run. Type is one of
// constants.EventMetricsUpdated or constants.EventIngestionFailed.
type MetricsUpdated struct {
	Type         string    `json:"type"`
	RunID        string    `json:"runId"`
	DocumentKey  string    `json:"documentKey,omitempty"`
	GeneratedAt  string    `json:"generatedAt,omitempty"`
	TotalFlights int       `json:"totalFlights"`
	TotalHours   float64   `json:"totalHours"`
	Pilots       int       `json:"pilots"`
	InvalidRows  int       `json:"invalidRows"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func (e MetricsUpdated) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Publish must not block past ctx.
type Publisher interface {
	Publish(ctx context.Context, event MetricsUpdated) error
	Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, MetricsUpdated) error { return nil }

func (NoopPublisher) Close() {}
