package providers

import (
	"context"
	"fmt"
	"strings"
)

// SourceProvider fetches the raw CSV text of a logbook export.
type SourceProvider interface {
	Fetch(ctx context.Context, location string) (string, error)

	// GetProviderType returns the provider type identifier
	GetProviderType() string
}

// ProviderError carries an error code from constants so callers can map
// failures without matching on text.
type ProviderError struct {
	Code       string
	Message    string
	Details    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewSourceProvider picks the provider for location: http(s) URLs are fetched
// over the network, file:// URLs and plain paths are read from disk.
func NewSourceProvider(location string) SourceProvider {
	lower := strings.ToLower(strings.TrimSpace(location))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSourceProvider()
	}
	return NewFileSourceProvider()
}

// DetectingProvider chooses a provider per call, so one configured service can
// be pointed at a URL or a local file at run time.
type DetectingProvider struct {
	HTTP *HTTPSourceProvider
	File *FileSourceProvider
}

func NewDetectingProvider() *DetectingProvider {
	return &DetectingProvider{HTTP: NewHTTPSourceProvider(), File: NewFileSourceProvider()}
}

func (p *DetectingProvider) Fetch(ctx context.Context, location string) (string, error) {
	if _, ok := NewSourceProvider(location).(*HTTPSourceProvider); ok {
		return p.HTTP.Fetch(ctx, location)
	}
	return p.File.Fetch(ctx, location)
}

func (p *DetectingProvider) GetProviderType() string {
	return "detecting"
}
