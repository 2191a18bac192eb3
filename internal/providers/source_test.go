package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"infinite-experiment/logbook/internal/constants"
)

func TestHTTPSourceProvider_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("Expected no-cache header, got %q", r.Header.Get("Cache-Control"))
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("Pilot,Hours\nJane Doe,1.5\n"))
	}))
	defer server.Close()

	provider := &HTTPSourceProvider{Client: server.Client()}
	text, err := provider.Fetch(context.Background(), server.URL+"/export.csv")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.HasPrefix(text, "Pilot,Hours") {
		t.Errorf("Unexpected body %q", text)
	}
}

func TestHTTPSourceProvider_Fetch_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	provider := &HTTPSourceProvider{Client: server.Client()}
	_, err := provider.Fetch(context.Background(), server.URL)

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Code != constants.ErrCodeSourceHTTPStatus {
		t.Errorf("Expected code %s, got %s", constants.ErrCodeSourceHTTPStatus, perr.Code)
	}
	if perr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", perr.StatusCode)
	}
	if !strings.HasPrefix(perr.Message, "Failed to fetch data source: 404") {
		t.Errorf("Unexpected message %q", perr.Message)
	}
}

func TestHTTPSourceProvider_Fetch_EmptyURL(t *testing.T) {
	_, err := NewHTTPSourceProvider().Fetch(context.Background(), "")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Code != constants.ErrCodeSourceNotConfigured {
		t.Fatalf("Expected SOURCE_NOT_CONFIGURED, got %v", err)
	}
}

func TestFileSourceProvider_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logbook.csv")
	if err := os.WriteFile(path, []byte("Pilot,Hours\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := NewFileSourceProvider()
	for _, location := range []string{path, "file://" + path} {
		text, err := provider.Fetch(context.Background(), location)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", location, err)
		}
		if text != "Pilot,Hours\n" {
			t.Errorf("Fetch(%q) returned %q", location, text)
		}
	}

	_, err := provider.Fetch(context.Background(), filepath.Join(dir, "missing.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestNewSourceProvider(t *testing.T) {
	if _, ok := NewSourceProvider("https://example.test/a.csv").(*HTTPSourceProvider); !ok {
		t.Error("Expected HTTP provider for https URL")
	}
	if _, ok := NewSourceProvider("/tmp/a.csv").(*FileSourceProvider); !ok {
		t.Error("Expected file provider for a path")
	}
	if NewDetectingProvider().GetProviderType() != "detecting" {
		t.Error("Unexpected provider type")
	}
}
