package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"infinite-experiment/logbook/internal/aggregate"
	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/constants"
	"infinite-experiment/logbook/internal/events"
	"infinite-experiment/logbook/internal/ingestion"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/models"
	"infinite-experiment/logbook/internal/models/dtos"
	gormmodels "infinite-experiment/logbook/internal/models/gorm"
	"infinite-experiment/logbook/internal/providers"
	"infinite-experiment/logbook/internal/report"
	"infinite-experiment/logbook/internal/schema"
)

// Run triggers, stored in ingestion_runs.triggered_by.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerOnDemand = "on_demand"
	TriggerCLI      = "cli"
)

// RunRecorder persists ingestion run history. *repositories.IngestionRunRepo
// satisfies it.
type RunRecorder interface {
	Start(ctx context.Context, run *gormmodels.IngestionRun) error
	Finish(ctx context.Context, run *gormmodels.IngestionRun) error
	Recent(ctx context.Context, limit int) ([]gormmodels.IngestionRun, error)
}

// IngestionConfig is the static part of a run.
type IngestionConfig struct {
	SourceURL   string
	DocumentKey string
	Options     ingestion.Options
	// Revalidate is how long a freshly built document counts as fresh in the cache.
	Revalidate time.Duration
}

type RunOptions struct {
	DryRun    bool
	SourceURL string
	Trigger   string
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	RunID      string
	Status     constants.RunStatus
	DryRun     bool
	SourceURL  string
	Rows       models.RowCounts
	Pilots     int
	Flights    int
	Collisions []aggregate.Collision
	Duration   time.Duration
	Document   models.MetricsDocument
	Body       []byte
}

// Response converts the result for API and CLI output.
func (r *RunResult) Response() dtos.RunResultResponse {
	resp := dtos.RunResultResponse{
		RunID:       r.RunID,
		Status:      string(r.Status),
		DryRun:      r.DryRun,
		SourceURL:   r.SourceURL,
		TotalRows:   r.Rows.Total,
		ValidRows:   r.Rows.Valid,
		InvalidRows: r.Rows.Invalid,
		SkippedRows: r.Rows.Skipped,
		Pilots:      r.Pilots,
		Flights:     r.Flights,
		DurationMs:  r.Duration.Milliseconds(),
		GeneratedAt: r.Document.GeneratedAt,
	}
	for _, c := range r.Collisions {
		resp.Collisions = append(resp.Collisions, c.ID)
	}
	return resp
}

// IngestionService runs the fetch, normalize, aggregate, build and publish
// pipeline. Only one run executes at a time.
type IngestionService struct {
	provider  providers.SourceProvider
	store     common.DocumentStore
	cache     common.CacheInterface
	runs      RunRecorder
	publisher events.Publisher
	metrics   *metrics.MetricsRegistry
	cfg       IngestionConfig

	now func() time.Time
	// running holds a token while a run executes.
	running chan struct{}
}

// NewIngestionService wires the pipeline. runs may be nil to disable history
// and publisher may be nil to disable events.
func NewIngestionService(
	provider providers.SourceProvider,
	store common.DocumentStore,
	cache common.CacheInterface,
	runs RunRecorder,
	publisher events.Publisher,
	metricsReg *metrics.MetricsRegistry,
	cfg IngestionConfig,
) *IngestionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.DocumentKey == "" {
		cfg.DocumentKey = "metrics.json"
	}
	return &IngestionService{
		provider:  provider,
		store:     store,
		cache:     cache,
		runs:      runs,
		publisher: publisher,
		metrics:   metricsReg,
		cfg:       cfg,
		now:       time.Now,
		running:   make(chan struct{}, 1),
	}
}

// Run executes one ingestion. A dry run does everything except write the
// store, refresh the cache and publish. It fails with INGESTION_IN_FLIGHT
// rather than queueing behind another run.
func (s *IngestionService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	select {
	case s.running <- struct{}{}:
	default:
		return nil, newServiceError(constants.ErrCodeIngestionInFlight, nil)
	}
	defer func() { <-s.running }()

	start := s.now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		SourceURL: strings.TrimSpace(opts.SourceURL),
	}
	if result.SourceURL == "" {
		result.SourceURL = s.cfg.SourceURL
	}
	trigger := opts.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	log := logging.WithRun(result.RunID)
	log.Infow("Ingestion run started", "trigger", trigger, "source", result.SourceURL, "dry_run", opts.DryRun)

	run := &gormmodels.IngestionRun{
		ID:        result.RunID,
		Trigger:   trigger,
		Status:    string(constants.RunStatusRunning),
		SourceURL: result.SourceURL,
		DryRun:    opts.DryRun,
		StartedAt: start.UTC(),
	}
	s.recordStart(ctx, run, log)

	err := s.execute(ctx, result, log)
	result.Duration = s.now().Sub(start)

	switch {
	case err != nil:
		result.Status = constants.RunStatusFailed
	case opts.DryRun:
		result.Status = constants.RunStatusDryRun
	default:
		result.Status = constants.RunStatusSucceeded
	}
	s.metrics.IngestionRunsTotal.WithLabelValues(string(result.Status)).Inc()
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	run.Status = string(result.Status)
	run.TotalRows = result.Rows.Total
	run.ValidRows = result.Rows.Valid
	run.InvalidRows = result.Rows.Invalid
	run.SkippedRows = result.Rows.Skipped
	run.Pilots = result.Pilots
	run.Flights = result.Flights
	if err != nil {
		run.Error = err.Error()
	}
	s.recordFinish(ctx, run, log)

	if err != nil {
		log.Errorw("Ingestion run failed", "error", err.Error(), "code", ErrorCode(err), "duration_ms", result.Duration.Milliseconds())
		if !opts.DryRun {
			s.publish(ctx, events.MetricsUpdated{
				Type:       constants.EventIngestionFailed,
				RunID:      result.RunID,
				Error:      err.Error(),
				OccurredAt: s.now().UTC(),
			}, log)
		}
		return nil, err
	}

	log.Infow("Ingestion run finished",
		"status", result.Status,
		"pilots", result.Pilots,
		"flights", result.Flights,
		"invalid_rows", result.Rows.Invalid,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *IngestionService) execute(ctx context.Context, result *RunResult, log *zap.SugaredLogger) error {
	text, err := s.provider.Fetch(ctx, result.SourceURL)
	if err != nil {
		var perr *providers.ProviderError
		if errors.As(err, &perr) {
			return &ServiceError{Code: perr.Code, Message: perr.Message, Err: err}
		}
		return newServiceError(constants.ErrCodeSourceUnreachable, err)
	}

	parsed, err := ingestion.ParseFlights(text, s.cfg.Options)
	if err != nil {
		if errors.Is(err, ingestion.ErrEmptySource) {
			return newServiceError(constants.ErrCodeEmptySource, err)
		}
		return newServiceError(constants.ErrCodeMalformedSource, err)
	}
	result.Rows = models.RowCounts{
		Total:   parsed.TotalRows,
		Valid:   parsed.ValidRows,
		Invalid: parsed.InvalidRows,
		Skipped: parsed.SkippedRows,
	}

	// A name made only of punctuation normalizes fine but has no pilot id.
	agg := aggregate.NewAggregator()
	for _, entry := range parsed.Entries {
		if !agg.Add(entry) {
			result.Rows.Valid--
			result.Rows.Skipped++
			log.Warnw("Row skipped, pilot name yields no id", "pilot_name", entry.Pilot.Name)
		}
	}
	s.metrics.RowsProcessedTotal.WithLabelValues("valid").Add(float64(result.Rows.Valid))
	s.metrics.RowsProcessedTotal.WithLabelValues("invalid").Add(float64(result.Rows.Invalid))
	s.metrics.RowsProcessedTotal.WithLabelValues("skipped").Add(float64(result.Rows.Skipped))
	log.Debugw("Rows normalized", "total", result.Rows.Total, "valid", result.Rows.Valid, "invalid", result.Rows.Invalid, "skipped", result.Rows.Skipped)

	if agg.Len() == 0 {
		return newServiceError(constants.ErrCodeNoValidFlights, ErrNoValidFlights)
	}
	pilots := agg.Finalize()
	result.Pilots = len(pilots)
	for _, p := range pilots {
		result.Flights += len(p.Flights)
	}
	s.metrics.FlightsProcessedTotal.Add(float64(result.Flights))

	result.Collisions = agg.Collisions()
	for _, c := range result.Collisions {
		s.metrics.SlugCollisionsDetected.Inc()
		log.Warnw("Pilot id shared by several identities", "pilot_id", c.ID, "names", c.Names, "licenses", c.LicenseNumbers)
	}

	doc := report.Build(pilots, report.Input{
		Now:       s.now(),
		SourceURL: result.SourceURL,
		Rows:      result.Rows,
		Issues:    parsed.Issues,
	})
	if err := schema.ValidateDocument(&doc); err != nil {
		return newServiceError(constants.ErrCodeSchemaViolation, err)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return newServiceError(constants.ErrCodeSchemaViolation, err)
	}
	result.Document = doc
	result.Body = body

	if result.DryRun {
		return nil
	}

	if err := s.store.Put(ctx, s.cfg.DocumentKey, body); err != nil {
		return newServiceError(constants.ErrCodeStoreFailure, err)
	}
	cacheDocument(s.cache, s.cfg.DocumentKey, doc, s.cfg.Revalidate)
	s.metrics.PilotsInDocument.Set(float64(len(doc.Pilots)))
	s.metrics.LastSuccessfulIngest.SetToCurrentTime()

	s.publish(ctx, events.MetricsUpdated{
		Type:         constants.EventMetricsUpdated,
		RunID:        result.RunID,
		DocumentKey:  s.cfg.DocumentKey,
		GeneratedAt:  doc.GeneratedAt,
		TotalFlights: doc.Summary.TotalFlights,
		TotalHours:   doc.Summary.TotalHours,
		Pilots:       len(doc.Pilots),
		InvalidRows:  result.Rows.Invalid,
		OccurredAt:   s.now().UTC(),
	}, log)
	return nil
}

// Wait blocks until no run is in flight or ctx is done.
func (s *IngestionService) Wait(ctx context.Context) error {
	select {
	case s.running <- struct{}{}:
		<-s.running
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runs lists recent ingestion runs, newest first.
func (s *IngestionService) Runs(ctx context.Context, limit int) ([]dtos.IngestionRunResponse, error) {
	if s.runs == nil {
		return nil, newServiceError(constants.ErrCodeHistoryUnavailable, nil)
	}
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, newServiceError(constants.ErrCodeHistoryUnavailable, err)
	}
	out := make([]dtos.IngestionRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, dtos.IngestionRunResponse{
			RunID:       r.ID,
			Trigger:     r.Trigger,
			Status:      r.Status,
			SourceURL:   r.SourceURL,
			TotalRows:   r.TotalRows,
			ValidRows:   r.ValidRows,
			InvalidRows: r.InvalidRows,
			SkippedRows: r.SkippedRows,
			Pilots:      r.Pilots,
			Error:       r.Error,
			StartedAt:   r.StartedAt,
			FinishedAt:  r.FinishedAt,
		})
	}
	return out, nil
}

// History failures are logged and never fail the run.
func (s *IngestionService) recordStart(ctx context.Context, run *gormmodels.IngestionRun, log *zap.SugaredLogger) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Start(ctx, run); err != nil {
		log.Warnw("Failed to record ingestion run start", "error", err.Error())
	}
}

func (s *IngestionService) recordFinish(ctx context.Context, run *gormmodels.IngestionRun, log *zap.SugaredLogger) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.Warnw("Failed to record ingestion run result", "error", err.Error())
	}
}

func (s *IngestionService) publish(ctx context.Context, event events.MetricsUpdated, log *zap.SugaredLogger) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		log.Warnw("Failed to publish event", "type", event.Type, "error", err.Error())
	}
}

func freshKey(docKey string) string {
	return string(constants.CachePrefixDocument) + docKey
}

func lastKnownGoodKey(docKey string) string {
	return string(constants.CachePrefixLastKnownDoc) + docKey
}

// cacheDocument stores doc as the fresh copy for ttl and as the last known
// good copy with no expiry.
func cacheDocument(cache common.CacheInterface, docKey string, doc models.MetricsDocument, ttl time.Duration) {
	cache.Set(freshKey(docKey), doc.Clone(), ttl)
	cache.Set(lastKnownGoodKey(docKey), doc.Clone(), common.NoExpiration)
}
