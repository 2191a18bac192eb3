package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"infinite-experiment/logbook/internal/common"
	"infinite-experiment/logbook/internal/constants"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/models"
	"infinite-experiment/logbook/internal/models/dtos"
	"infinite-experiment/logbook/internal/report"
)

// Where a served document came from.
const (
	OriginCache          = "cache"
	OriginStore          = "store"
	OriginIngestion      = "ingestion"
	OriginLastKnownGood  = "last_known_good"
	cacheResultHit       = "hit"
	cacheResultMiss      = "miss"
	cacheResultStale     = "stale"
	defaultRevalidateTTL = 5 * time.Minute
)

// Ingester runs the pipeline. *IngestionService satisfies it.
type Ingester interface {
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// RunWaiter is an Ingester that can block until its in-flight run ends.
// On-demand loads use it to wait for a scheduled run instead of failing.
type RunWaiter interface {
	Wait(ctx context.Context) error
}

// DocumentResult is a served document plus how it was obtained. Stale is
// true when a failure forced the last known good copy to be served.
type DocumentResult struct {
	Document models.MetricsDocument
	Stale    bool
	Origin   string
}

// MetricsService serves the metrics document, keeping a fresh copy in memory
// and falling back to the last good document when rebuilding fails.
type MetricsService struct {
	store      common.DocumentStore
	cache      common.CacheInterface
	ingester   Ingester
	metrics    *metrics.MetricsRegistry
	docKey     string
	revalidate time.Duration

	now   func() time.Time
	group singleflight.Group
}

func NewMetricsService(
	store common.DocumentStore,
	cache common.CacheInterface,
	ingester Ingester,
	metricsReg *metrics.MetricsRegistry,
	docKey string,
	revalidate time.Duration,
) *MetricsService {
	if docKey == "" {
		docKey = "metrics.json"
	}
	if revalidate <= 0 {
		revalidate = defaultRevalidateTTL
	}
	return &MetricsService{
		store:      store,
		cache:      cache,
		ingester:   ingester,
		metrics:    metricsReg,
		docKey:     docKey,
		revalidate: revalidate,
		now:        time.Now,
	}
}

// Revalidate is the freshness window used for Cache-Control headers.
func (s *MetricsService) Revalidate() time.Duration {
	return s.revalidate
}

// Get returns the current document. Lookup order is the fresh in-memory copy,
// then the store (revalidated), then a new ingestion when the store has
// nothing usable. Concurrent misses share one load. If loading fails and a
// last known good copy exists, that copy is served marked stale.
func (s *MetricsService) Get(ctx context.Context) (*DocumentResult, error) {
	if doc, ok := common.CachedAs[models.MetricsDocument](s.cache, freshKey(s.docKey)); ok {
		s.metrics.DocumentCacheTotal.WithLabelValues(cacheResultHit).Inc()
		return &DocumentResult{Document: doc.Clone(), Origin: OriginCache}, nil
	}
	s.metrics.DocumentCacheTotal.WithLabelValues(cacheResultMiss).Inc()

	// The shared load outlives any single caller; a caller that goes away
	// stops waiting without failing the others.
	ch := s.group.DoChan(s.docKey, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), true)
	})
	var err error
	select {
	case r := <-ch:
		if r.Err == nil {
			res := r.Val.(*DocumentResult)
			return &DocumentResult{Document: res.Document.Clone(), Origin: res.Origin}, nil
		}
		err = r.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if doc, ok := common.CachedAs[models.MetricsDocument](s.cache, lastKnownGoodKey(s.docKey)); ok {
		s.metrics.DocumentCacheTotal.WithLabelValues(cacheResultStale).Inc()
		logging.Warn("Serving last known good metrics document",
			"error", err.Error(),
			"generated_at", doc.GeneratedAt,
		)
		return &DocumentResult{Document: doc.Clone(), Stale: true, Origin: OriginLastKnownGood}, nil
	}
	return nil, err
}

// Peek returns the in-memory document without loading anything. The fresh
// copy is preferred; otherwise the last known good copy is returned as stale.
func (s *MetricsService) Peek() (*DocumentResult, bool) {
	if doc, ok := common.CachedAs[models.MetricsDocument](s.cache, freshKey(s.docKey)); ok {
		return &DocumentResult{Document: doc.Clone(), Origin: OriginCache}, true
	}
	if doc, ok := common.CachedAs[models.MetricsDocument](s.cache, lastKnownGoodKey(s.docKey)); ok {
		return &DocumentResult{Document: doc.Clone(), Stale: true, Origin: OriginLastKnownGood}, true
	}
	return nil, false
}

// load reads the store and falls back to an on-demand ingestion. When another
// run is in flight and wait is set, it waits for that run and loads again.
func (s *MetricsService) load(ctx context.Context, wait bool) (*DocumentResult, error) {
	body, err := s.store.Get(ctx, s.docKey)
	switch {
	case err == nil:
		doc, verr := report.Revalidate(body, s.now())
		if verr == nil {
			cacheDocument(s.cache, s.docKey, doc, s.revalidate)
			return &DocumentResult{Document: doc, Origin: OriginStore}, nil
		}
		logging.Warn("Stored metrics document failed validation, rebuilding",
			"key", s.docKey,
			"error", verr.Error(),
		)
	case errors.Is(err, common.ErrDocumentNotFound):
		logging.Info("No stored metrics document, running ingestion", "key", s.docKey)
	default:
		return nil, newServiceError(constants.ErrCodeStoreFailure, err)
	}

	if s.ingester == nil {
		return nil, newServiceError(constants.ErrCodeDocumentNotFound, err)
	}
	res, err := s.ingester.Run(ctx, RunOptions{Trigger: TriggerOnDemand})
	if err == nil {
		return &DocumentResult{Document: res.Document, Origin: OriginIngestion}, nil
	}
	waiter, ok := s.ingester.(RunWaiter)
	if !wait || !ok || ErrorCode(err) != constants.ErrCodeIngestionInFlight {
		return nil, err
	}

	logging.Info("Waiting for in-flight ingestion", "key", s.docKey)
	if werr := waiter.Wait(ctx); werr != nil {
		return nil, err
	}
	if doc, ok := common.CachedAs[models.MetricsDocument](s.cache, freshKey(s.docKey)); ok {
		return &DocumentResult{Document: doc, Origin: OriginCache}, nil
	}
	return s.load(ctx, false)
}

// Refresh forces an ingestion run regardless of cache state.
func (s *MetricsService) Refresh(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if s.ingester == nil {
		return nil, newServiceError(constants.ErrCodeSourceNotConfigured, nil)
	}
	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}
	return s.ingester.Run(ctx, opts)
}

// Pilot returns one pilot record by id.
func (s *MetricsService) Pilot(ctx context.Context, pilotID string) (*models.PilotRecord, bool, error) {
	res, err := s.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	pilot, ok := res.Document.Find(pilotID)
	if !ok {
		return nil, res.Stale, newServiceError(constants.ErrCodePilotNotFound, nil)
	}
	return pilot, res.Stale, nil
}

// Pilots lists every pilot without flight detail, in document order.
func (s *MetricsService) Pilots(ctx context.Context) ([]dtos.PilotSummary, bool, error) {
	res, err := s.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	out := make([]dtos.PilotSummary, 0, len(res.Document.Pilots))
	for _, p := range res.Document.Pilots {
		out = append(out, PilotSummary(p))
	}
	return out, res.Stale, nil
}

// PilotSummary drops the flight list from a record.
func PilotSummary(p models.PilotRecord) dtos.PilotSummary {
	aircraft := p.AircraftTypes
	if aircraft == nil {
		aircraft = []string{}
	}
	return dtos.PilotSummary{
		ID:             p.ID,
		Name:           p.Name,
		LicenseNumber:  p.LicenseNumber,
		TotalFlights:   p.TotalFlights,
		TotalHours:     p.TotalHours,
		PICHours:       p.PICHours,
		NightHours:     p.NightHours,
		IFRHours:       p.IFRHours,
		AircraftTypes:  aircraft,
		LastFlightDate: p.LastFlightDate,
	}
}
