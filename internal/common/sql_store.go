package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"infinite-experiment/logbook/internal/constants"
)

type storedDocumentRow struct {
	Key       string    `db:"doc_key"`
	Body      string    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLDocumentStore keeps documents in the metrics_documents table. It works on
// any sqlx driver that understands ON CONFLICT upserts (Postgres, SQLite).
type SQLDocumentStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ DocumentStore = (*SQLDocumentStore)(nil)

// NewSQLDocumentStore creates the table if needed.
func NewSQLDocumentStore(ctx context.Context, db *sqlx.DB) (*SQLDocumentStore, error) {
	if _, err := db.ExecContext(ctx, constants.CreateMetricsDocumentsTable); err != nil {
		return nil, fmt.Errorf("sql store: create table: %w", err)
	}
	return &SQLDocumentStore{db: db, now: time.Now}, nil
}

func (s *SQLDocumentStore) Backend() string {
	return "sql"
}

func (s *SQLDocumentStore) Put(ctx context.Context, key string, body []byte) error {
	query := s.db.Rebind(constants.UpsertMetricsDocument)
	if _, err := s.db.ExecContext(ctx, query, key, string(body), s.now().UTC()); err != nil {
		return fmt.Errorf("sql store: put %s: %w", key, err)
	}
	return nil
}

func (s *SQLDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row storedDocumentRow
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(constants.GetMetricsDocument), key).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sql store: get %s: %w", key, err)
	}
	return []byte(row.Body), nil
}

func (s *SQLDocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLDocumentStore) Close() error {
	return s.db.Close()
}
