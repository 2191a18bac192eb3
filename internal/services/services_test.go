package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"

	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/constants"
	"infinite-experiment/logbook/internal/db/repositories"
	"infinite-experiment/logbook/internal/events"
	"infinite-experiment/logbook/internal/ingestion"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/models"
	gormmodels "infinite-experiment/logbook/internal/models/gorm"
	"infinite-experiment/logbook/internal/providers"
)

const testCSV = "Pilot Full Name,Flight Date,Aircraft Make/Model,Route From (ICAO),Route To (ICAO),Total Flight Time,PIC Time\n" +
	"Jane Doe,2024-05-10,C172,KSFO,KOAK,1.5,1.5\n" +
	"Jane Doe,2024-05-03,C172,KOAK,KSFO,1.0,1.0\n" +
	"Zed Young,2024-04-01,,KSJC,KMRY,2.0,2.0\n" +
	",2024-04-01,PA-28,KSJC,KMRY,1.0,1.0\n" +
	"Zed Young,2024-04-02,PA-28,KSJC,KMRY,2.0,2.0\n"

var testNow = time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

// MockSourceProvider returns canned CSV text
type MockSourceProvider struct {
	FetchFunc func(ctx context.Context, location string) (string, error)
	calls     atomic.Int32
}

func (m *MockSourceProvider) Fetch(ctx context.Context, location string) (string, error) {
	m.calls.Add(1)
	return m.FetchFunc(ctx, location)
}

func (m *MockSourceProvider) GetProviderType() string { return "mock" }

// memoryStore is a DocumentStore kept in a map
type memoryStore struct {
	mu     sync.Mutex
	docs   map[string][]byte
	putErr error
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string][]byte)}
}

func (s *memoryStore) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.docs[key] = append([]byte(nil), body...)
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	body, ok := s.docs[key]
	if !ok {
		return nil, common.ErrDocumentNotFound
	}
	return body, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }
func (s *memoryStore) Close() error               { return nil }
func (s *memoryStore) Backend() string            { return "memory" }

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MetricsUpdated
}

func (p *recordingPublisher) Publish(_ context.Context, e events.MetricsUpdated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

type fixture struct {
	provider  *MockSourceProvider
	store     *memoryStore
	cache     *common.CacheService
	publisher *recordingPublisher
	metrics   *metrics.MetricsRegistry
	runs      *repositories.IngestionRunRepo
	ingest    *IngestionService
	serve     *MetricsService
}

func setupHistoryDB(t *testing.T) *gormlib.DB {
	db, err := gormlib.Open(sqlite.Open(":memory:"), &gormlib.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&gormmodels.IngestionRun{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func newFixture(t *testing.T, csv string) *fixture {
	t.Helper()
	f := &fixture{
		provider: &MockSourceProvider{FetchFunc: func(context.Context, string) (string, error) {
			return csv, nil
		}},
		store:     newMemoryStore(),
		cache:     common.NewCacheService(300, 600),
		publisher: &recordingPublisher{},
		metrics:   metrics.NewMetricsRegistry(prometheus.NewRegistry()),
		runs:      repositories.NewIngestionRunRepo(setupHistoryDB(t)),
	}
	f.ingest = NewIngestionService(f.provider, f.store, f.cache, f.runs, f.publisher, f.metrics, IngestionConfig{
		SourceURL:   "https://example.test/logbook.csv",
		DocumentKey: "metrics.json",
		Options:     ingestion.DefaultOptions(),
		Revalidate:  time.Minute,
	})
	f.ingest.now = func() time.Time { return testNow }
	f.serve = NewMetricsService(f.store, f.cache, f.ingest, f.metrics, "metrics.json", time.Minute)
	f.serve.now = func() time.Time { return testNow }
	return f
}

func TestIngestionService_Run_Success(t *testing.T) {
	f := newFixture(t, testCSV)
	ctx := context.Background()

	res, err := f.ingest.Run(ctx, RunOptions{Trigger: TriggerSchedule})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != constants.RunStatusSucceeded {
		t.Errorf("Expected succeeded, got %s", res.Status)
	}
	want := models.RowCounts{Total: 5, Valid: 3, Invalid: 1, Skipped: 1}
	if res.Rows != want {
		t.Errorf("Expected rows %+v, got %+v", want, res.Rows)
	}
	if res.Pilots != 2 || res.Flights != 3 {
		t.Errorf("Expected 2 pilots / 3 flights, got %d / %d", res.Pilots, res.Flights)
	}
	if res.Document.Summary.TotalHours != 4.5 {
		t.Errorf("Expected 4.5 total hours, got %v", res.Document.Summary.TotalHours)
	}
	if len(res.Document.Issues) != 1 || res.Document.Issues[0].RowNumber != 4 {
		t.Errorf("Expected one issue on row 4, got %+v", res.Document.Issues)
	}

	body, err := f.store.Get(ctx, "metrics.json")
	if err != nil {
		t.Fatalf("Expected document in store: %v", err)
	}
	var stored models.MetricsDocument
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("Stored document is not JSON: %v", err)
	}
	if stored.GeneratedAt != "2024-05-10T15:30:00Z" {
		t.Errorf("Unexpected generatedAt %q", stored.GeneratedAt)
	}

	if _, ok := f.cache.Get(freshKey("metrics.json")); !ok {
		t.Error("Expected fresh document in cache")
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != constants.EventMetricsUpdated {
		t.Errorf("Expected one METRICS_UPDATED event, got %+v", f.publisher.events)
	}
	if got := testutil.ToFloat64(f.metrics.IngestionRunsTotal.WithLabelValues("succeeded")); got != 1 {
		t.Errorf("Expected 1 succeeded run metric, got %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.RowsProcessedTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("Expected 1 skipped row metric, got %v", got)
	}

	runs, err := f.ingest.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "succeeded" || runs[0].Trigger != TriggerSchedule || runs[0].InvalidRows != 1 {
		t.Errorf("Unexpected run history %+v", runs)
	}
}

func TestIngestionService_Run_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t, testCSV)

	res, err := f.ingest.Run(context.Background(), RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != constants.RunStatusDryRun {
		t.Errorf("Expected dry_run, got %s", res.Status)
	}
	if len(res.Body) == 0 {
		t.Error("Expected the encoded document on a dry run")
	}
	if _, err := f.store.Get(context.Background(), "metrics.json"); !errors.Is(err, common.ErrDocumentNotFound) {
		t.Errorf("Expected nothing stored, got %v", err)
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("Expected no events, got %+v", f.publisher.events)
	}
}

func TestIngestionService_Run_Failures(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		fetchErr error
		putErr   error
		wantCode string
	}{
		{
			name:     "all rows rejected",
			csv:      "Pilot,Date,Aircraft,Total Time\nJane Doe,not a date,,1.0\n",
			wantCode: constants.ErrCodeNoValidFlights,
		},
		{
			name:     "empty export",
			csv:      "Pilot,Date\n",
			wantCode: constants.ErrCodeEmptySource,
		},
		{
			name: "source down",
			fetchErr: &providers.ProviderError{
				Code:    constants.ErrCodeSourceHTTPStatus,
				Message: "Failed to fetch data source: 503 Service Unavailable",
			},
			wantCode: constants.ErrCodeSourceHTTPStatus,
		},
		{
			name:     "store write fails",
			csv:      testCSV,
			putErr:   errors.New("disk full"),
			wantCode: constants.ErrCodeStoreFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.csv)
			if tt.fetchErr != nil {
				f.provider.FetchFunc = func(context.Context, string) (string, error) { return "", tt.fetchErr }
			}
			f.store.putErr = tt.putErr

			res, err := f.ingest.Run(context.Background(), RunOptions{})
			if err == nil {
				t.Fatalf("Expected error, got result %+v", res)
			}
			if code := ErrorCode(err); code != tt.wantCode {
				t.Errorf("Expected code %s, got %s (%v)", tt.wantCode, code, err)
			}
			if tt.wantCode == constants.ErrCodeNoValidFlights && !errors.Is(err, ErrNoValidFlights) {
				t.Errorf("Expected ErrNoValidFlights in chain, got %v", err)
			}
			if _, ok := f.cache.Get(lastKnownGoodKey("metrics.json")); ok {
				t.Error("A failed run must not populate the cache")
			}
			if len(f.publisher.events) != 1 || f.publisher.events[0].Type != constants.EventIngestionFailed {
				t.Errorf("Expected one INGESTION_FAILED event, got %+v", f.publisher.events)
			}

			runs, _ := f.ingest.Runs(context.Background(), 1)
			if len(runs) != 1 || runs[0].Status != "failed" || runs[0].Error == "" {
				t.Errorf("Expected failed run with error text, got %+v", runs)
			}
		})
	}
}

func TestIngestionService_Run_RejectsConcurrentRun(t *testing.T) {
	f := newFixture(t, testCSV)
	started := make(chan struct{})
	release := make(chan struct{})
	f.provider.FetchFunc = func(context.Context, string) (string, error) {
		close(started)
		<-release
		return testCSV, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.ingest.Run(context.Background(), RunOptions{})
		done <- err
	}()
	<-started

	_, err := f.ingest.Run(context.Background(), RunOptions{})
	if ErrorCode(err) != constants.ErrCodeIngestionInFlight {
		t.Errorf("Expected INGESTION_IN_FLIGHT, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("First run failed: %v", err)
	}
}

func TestIngestionService_Runs_WithoutHistory(t *testing.T) {
	f := newFixture(t, testCSV)
	f.ingest.runs = nil
	if _, err := f.ingest.Runs(context.Background(), 5); ErrorCode(err) != constants.ErrCodeHistoryUnavailable {
		t.Errorf("Expected HISTORY_UNAVAILABLE, got %v", err)
	}
	if _, err := f.ingest.Run(context.Background(), RunOptions{}); err != nil {
		t.Errorf("Run should not need history: %v", err)
	}
}

func TestMetricsService_Get_IngestsOnceWhenStoreEmpty(t *testing.T) {
	f := newFixture(t, testCSV)
	ctx := context.Background()

	first, err := f.serve.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first.Origin != OriginIngestion || first.Stale {
		t.Errorf("Expected fresh ingestion result, got origin=%s stale=%v", first.Origin, first.Stale)
	}

	second, err := f.serve.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.Origin != OriginCache {
		t.Errorf("Expected cache hit, got %s", second.Origin)
	}
	if f.provider.calls.Load() != 1 {
		t.Errorf("Expected a single fetch, got %d", f.provider.calls.Load())
	}

	second.Document.Pilots[0].Name = "mutated"
	third, _ := f.serve.Get(ctx)
	if third.Document.Pilots[0].Name == "mutated" {
		t.Error("Callers must not share the cached document")
	}
}

func TestMetricsService_Get_RevalidatesStoredDocument(t *testing.T) {
	f := newFixture(t, testCSV)
	ctx := context.Background()

	res, err := f.ingest.Run(ctx, RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := f.store.Put(ctx, "metrics.json", res.Body); err != nil {
		t.Fatal(err)
	}

	got, err := f.serve.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Origin != OriginStore {
		t.Errorf("Expected store origin, got %s", got.Origin)
	}
	if f.provider.calls.Load() != 1 {
		t.Errorf("Expected no fetch beyond the dry run, got %d", f.provider.calls.Load())
	}
}

func TestMetricsService_Get_InvalidStoredDocumentIsRebuilt(t *testing.T) {
	f := newFixture(t, testCSV)
	ctx := context.Background()
	if err := f.store.Put(ctx, "metrics.json", []byte(`{"pilots": "nope"}`)); err != nil {
		t.Fatal(err)
	}

	got, err := f.serve.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Origin != OriginIngestion {
		t.Errorf("Expected rebuild through ingestion, got %s", got.Origin)
	}
}

func TestMetricsService_Get_FallsBackToLastKnownGood(t *testing.T) {
	f := newFixture(t, testCSV)
	ctx := context.Background()

	if _, err := f.serve.Get(ctx); err != nil {
		t.Fatalf("Initial Get failed: %v", err)
	}

	// Expire the fresh copy, break the store and the source.
	f.cache.Delete(freshKey("metrics.json"))
	f.store.getErr = errors.New("connection refused")

	got, err := f.serve.Get(ctx)
	if err != nil {
		t.Fatalf("Expected stale fallback, got error %v", err)
	}
	if !got.Stale || got.Origin != OriginLastKnownGood {
		t.Errorf("Expected stale last known good, got origin=%s stale=%v", got.Origin, got.Stale)
	}
	if got.Document.Summary.TotalFlights != 3 {
		t.Errorf("Unexpected fallback document %+v", got.Document.Summary)
	}
	if v := testutil.ToFloat64(f.metrics.DocumentCacheTotal.WithLabelValues("stale")); v != 1 {
		t.Errorf("Expected one stale serve, got %v", v)
	}
}

func TestMetricsService_Get_NoFallbackReturnsError(t *testing.T) {
	f := newFixture(t, "")
	f.provider.FetchFunc = func(context.Context, string) (string, error) {
		return "", errors.New("dial tcp: timeout")
	}

	_, err := f.serve.Get(context.Background())
	if ErrorCode(err) != constants.ErrCodeSourceUnreachable {
		t.Errorf("Expected SOURCE_UNREACHABLE, got %v", err)
	}
}

func TestMetricsService_PilotLookup(t *testing.T) {
	f := newFixture(t, testCSV)
	ctx := context.Background()

	pilots, stale, err := f.serve.Pilots(ctx)
	if err != nil || stale {
		t.Fatalf("Pilots failed: %v stale=%v", err, stale)
	}
	if len(pilots) != 2 || pilots[0].ID != "jane_doe" || pilots[1].ID != "zed_young" {
		t.Fatalf("Unexpected pilots %+v", pilots)
	}

	pilot, _, err := f.serve.Pilot(ctx, "zed_young")
	if err != nil {
		t.Fatalf("Pilot failed: %v", err)
	}
	if pilot.TotalFlights != 1 || len(pilot.Flights) != 1 {
		t.Errorf("Unexpected pilot record %+v", pilot)
	}

	if _, _, err := f.serve.Pilot(ctx, "nobody"); ErrorCode(err) != constants.ErrCodePilotNotFound {
		t.Errorf("Expected PILOT_NOT_FOUND, got %v", err)
	}
}

func TestIngestionService_Run_NonLatinPilotNames(t *testing.T) {
	csv := "Pilot Full Name,Flight Date,Aircraft Make/Model,Total Flight Time\n" +
		"李雷,2024-05-01,C172,1.5\n" +
		"Jane Doe,2024-05-02,C172,2.0\n" +
		"!!!,2024-05-03,C172,1.0\n" +
		"李雷,2024-05-04,PA-28,0.5\n"
	f := newFixture(t, csv)

	res, err := f.ingest.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Pilots != 2 || res.Flights != 3 {
		t.Errorf("Expected 2 pilots / 3 flights, got %d / %d", res.Pilots, res.Flights)
	}
	want := models.RowCounts{Total: 4, Valid: 3, Invalid: 0, Skipped: 1}
	if res.Rows != want {
		t.Errorf("Expected rows %+v, got %+v", want, res.Rows)
	}
	if res.Document.Summary.TotalFlights != 3 || res.Document.Summary.TotalHours != 4 {
		t.Errorf("Unexpected summary %+v", res.Document.Summary)
	}
	if _, ok := res.Document.Find("李雷"); !ok {
		t.Error("Expected a pilot record for 李雷")
	}
	if got := testutil.ToFloat64(f.metrics.RowsProcessedTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("Expected 1 skipped row metric, got %v", got)
	}
}

// waitSignal reports when an on-demand load starts waiting on a run.
type waitSignal struct {
	*IngestionService
	waiting chan struct{}
	once    sync.Once
}

func (w *waitSignal) Wait(ctx context.Context) error {
	w.once.Do(func() { close(w.waiting) })
	return w.IngestionService.Wait(ctx)
}

func TestMetricsService_Get_WaitsForScheduledRun(t *testing.T) {
	f := newFixture(t, testCSV)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.provider.FetchFunc = func(context.Context, string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return testCSV, nil
	}
	waiter := &waitSignal{IngestionService: f.ingest, waiting: make(chan struct{})}
	f.serve = NewMetricsService(f.store, f.cache, waiter, f.metrics, "metrics.json", time.Minute)
	f.serve.now = func() time.Time { return testNow }

	scheduled := make(chan error, 1)
	go func() {
		_, err := f.ingest.Run(context.Background(), RunOptions{Trigger: TriggerSchedule})
		scheduled <- err
	}()
	<-started

	type getResult struct {
		res *DocumentResult
		err error
	}
	got := make(chan getResult, 1)
	go func() {
		res, err := f.serve.Get(context.Background())
		got <- getResult{res, err}
	}()

	<-waiter.waiting
	close(release)

	if err := <-scheduled; err != nil {
		t.Fatalf("Scheduled run failed: %v", err)
	}
	r := <-got
	if r.err != nil {
		t.Fatalf("Expected Get to wait for the scheduled run, got %v", r.err)
	}
	if r.res.Stale || r.res.Document.Summary.TotalFlights != 3 {
		t.Errorf("Unexpected document origin=%s stale=%v summary=%+v", r.res.Origin, r.res.Stale, r.res.Document.Summary)
	}
	if n := f.provider.calls.Load(); n != 1 {
		t.Errorf("Expected a single fetch, got %d", n)
	}
}

func TestMetricsService_Get_CancelledCallerDoesNotAbortSharedLoad(t *testing.T) {
	f := newFixture(t, testCSV)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.provider.FetchFunc = func(ctx context.Context, _ string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return testCSV, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.serve.Get(ctx)
		first <- err
	}()
	<-started

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the cancelled caller to see context.Canceled, got %v", err)
	}
	close(release)

	res, err := f.serve.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed after another caller cancelled: %v", err)
	}
	if res.Document.Summary.TotalFlights != 3 {
		t.Errorf("Unexpected summary %+v", res.Document.Summary)
	}
	if n := f.provider.calls.Load(); n != 1 {
		t.Errorf("Expected the shared load to finish with a single fetch, got %d", n)
	}
}
