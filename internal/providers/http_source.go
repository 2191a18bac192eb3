package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"infinite-experiment/logbook/internal/constants"
)

// maxSourceBytes caps how much of a response body is read.
const maxSourceBytes = 32 << 20

// HTTPSourceProvider downloads a published spreadsheet export.
type HTTPSourceProvider struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPSourceProvider creates a provider with conservative timeouts
func NewHTTPSourceProvider() *HTTPSourceProvider {
	return &HTTPSourceProvider{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: "logbook-ingest/1.0",
	}
}

// GetProviderType returns the provider type identifier
func (p *HTTPSourceProvider) GetProviderType() string {
	return "http"
}

// Fetch performs a GET and returns the body as text. Any non-2xx status is
// an error; caches are bypassed so every run sees the current sheet.
func (p *HTTPSourceProvider) Fetch(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", &ProviderError{
			Code:    constants.ErrCodeSourceNotConfigured,
			Message: constants.GetErrorMessage(constants.ErrCodeSourceNotConfigured),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ProviderError{
			Code:    constants.ErrCodeSourceUnreachable,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", &ProviderError{
			Code:    constants.ErrCodeSourceUnreachable,
			Message: constants.GetErrorMessage(constants.ErrCodeSourceUnreachable),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ProviderError{
			Code:       constants.ErrCodeSourceHTTPStatus,
			Message:    fmt.Sprintf("%s: %s", constants.GetErrorMessage(constants.ErrCodeSourceHTTPStatus), resp.Status),
			Details:    string(snippet),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return "", &ProviderError{
			Code:       constants.ErrCodeSourceUnreachable,
			Message:    "Failed to read response body",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	return string(body), nil
}
