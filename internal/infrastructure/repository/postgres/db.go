// Package postgres persists every pipeline artifact: documents, jobs,
// extracted text, PII entities, classifications, structured records,
// findings and chunks.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	filename TEXT NOT NULL,
	file_type TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	status TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	uploaded_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);

CREATE TABLE IF NOT EXISTS processing_jobs (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	batch_id TEXT,
	stage TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	eta_seconds INTEGER,
	error_code TEXT,
	error_msg TEXT,
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3,
	worker_id TEXT,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_doc_status ON processing_jobs(doc_id, status);

CREATE TABLE IF NOT EXISTS document_text (
	doc_id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	redacted_text TEXT NOT NULL DEFAULT '',
	pages JSONB NOT NULL DEFAULT '[]'::jsonb,
	page_count INTEGER NOT NULL DEFAULT 0,
	char_count INTEGER NOT NULL DEFAULT 0,
	extraction_method TEXT NOT NULL,
	extraction_quality DOUBLE PRECISION NOT NULL DEFAULT 0,
	needs_vlm BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pii_entities (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL,
	label TEXT NOT NULL,
	entity_text TEXT NOT NULL,
	page INTEGER,
	span_start INTEGER NOT NULL DEFAULT 0,
	span_end INTEGER NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	detection_method TEXT NOT NULL,
	replacement TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pii_doc ON pii_entities(doc_id);

CREATE TABLE IF NOT EXISTS doc_classification (
	doc_id TEXT PRIMARY KEY,
	doc_type TEXT NOT NULL,
	sensitivity TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	needs_vlm BOOLEAN NOT NULL DEFAULT FALSE,
	raw_output JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS doc_structured (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL,
	schema_type TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_page INTEGER,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_structured_doc ON doc_structured(doc_id);
CREATE INDEX IF NOT EXISTS idx_structured_schema ON doc_structured(schema_type);

CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	category TEXT NOT NULL,
	finding_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	status TEXT NOT NULL,
	description TEXT NOT NULL,
	evidence_page INTEGER,
	evidence_quote TEXT NOT NULL DEFAULT '',
	span_start INTEGER,
	span_end INTEGER,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_project ON findings(project_id);

CREATE TABLE IF NOT EXISTS document_chunks (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	chunk_text TEXT NOT NULL,
	page INTEGER NOT NULL DEFAULT 0,
	section TEXT NOT NULL DEFAULT '',
	char_count INTEGER NOT NULL DEFAULT 0,
	embedding JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (doc_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON document_chunks(doc_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
