package constants

// Document store queries. Placeholders are written as ? and rebound per driver.
const (
	CreateMetricsDocumentsTable = `
CREATE TABLE IF NOT EXISTS metrics_documents (
	doc_key    TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

	UpsertMetricsDocument = `
INSERT INTO metrics_documents (doc_key, body, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

	GetMetricsDocument = `SELECT doc_key, body, updated_at FROM metrics_documents WHERE doc_key = ?`
)
