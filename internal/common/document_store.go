package common

import (
	"context"
	"errors"
	"time"

	"infinite-experiment/logbook/internal/metrics"
)

// ErrDocumentNotFound is returned by DocumentStore.Get when nothing has been
// stored under the key yet.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore persists the encoded metrics document between runs and across
// instances. Put replaces the whole value atomically.
type DocumentStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error

	// Backend names the implementation for logs and metric labels.
	Backend() string
}

// InstrumentedStore records operation counts and latency for any store.
type InstrumentedStore struct {
	DocumentStore
	metrics *metrics.MetricsRegistry
}

func NewInstrumentedStore(store DocumentStore, metricsReg *metrics.MetricsRegistry) *InstrumentedStore {
	return &InstrumentedStore{DocumentStore: store, metrics: metricsReg}
}

func (s *InstrumentedStore) Put(ctx context.Context, key string, body []byte) error {
	start := time.Now()
	err := s.DocumentStore.Put(ctx, key, body)
	s.observe("put", start, err)
	return err
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	body, err := s.DocumentStore.Get(ctx, key)
	s.observe("get", start, err)
	return body, err
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	backend := s.Backend()
	s.metrics.StoreOpsTotal.WithLabelValues(backend, op, status).Inc()
	s.metrics.StoreOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
