package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"infinite-experiment/logbook/internal/api"
	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/middleware"
	"infinite-experiment/logbook/internal/services"
)

type stubIngester struct {
	calls int
}

func (s *stubIngester) Run(ctx context.Context, opts services.RunOptions) (*services.RunResult, error) {
	s.calls++
	return &services.RunResult{RunID: "run", DryRun: opts.DryRun}, nil
}

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) (http.Handler, *stubIngester) {
	t.Helper()
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	ing := &stubIngester{}
	svc := services.NewMetricsService(nil, common.NewCacheService(60, 60), ing, reg, "metrics.json", time.Minute)
	deps := &api.Dependencies{Metrics: svc}
	return RegisterRoutes(deps, reg, limiter, time.Now()), ing
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthCheck", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}
}

func TestRouter_RunsHiddenWithoutHistory(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ingest/runs", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
}

func TestRouter_IngestRateLimited(t *testing.T) {
	h, ing := newTestRouter(t, middleware.NewRateLimiter(rate.Every(time.Hour), 1))

	codes := make([]int, 2)
	for i := range codes {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("Expected [200 429], got %v", codes)
	}
	if ing.calls != 1 {
		t.Errorf("Expected one ingestion, got %d", ing.calls)
	}
}

func TestRouter_CrossOriginIngestNotAllowed(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	preflight := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/metrics", nil)
		req.Header.Set("Origin", "https://dashboard.example.com")
		req.Header.Set("Access-Control-Request-Method", method)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if got := preflight(http.MethodGet).Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Expected GET from a dashboard origin to be allowed")
	}
	if got := preflight(http.MethodPost).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected cross-origin POST to be refused, got Access-Control-Allow-Origin %q", got)
	}
}
