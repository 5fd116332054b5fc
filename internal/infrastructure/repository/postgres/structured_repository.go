package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type StructuredRepository struct {
	db *sql.DB
}

func NewStructuredRepository(db *sql.DB) *StructuredRepository {
	return &StructuredRepository{db: db}
}

func (r *StructuredRepository) Append(ctx context.Context, rec *domain.StructuredRecord) error {
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal structured data: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO doc_structured (id, doc_id, schema_type, data, confidence, source_page, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		rec.ID, rec.DocID, rec.SchemaType, dataJSON, rec.Confidence, rec.SourcePage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert structured record: %w", err)
	}
	return nil
}

// FirstForDocument returns the newest structured record for a document so
// analysis sees the latest extraction attempt.
func (r *StructuredRepository) FirstForDocument(ctx context.Context, docID string) (*domain.StructuredRecord, error) {
	row := r.db.QueryRowContext(ctx, structuredSelect+`
 WHERE doc_id = $1
 ORDER BY created_at DESC
 LIMIT 1`, docID)
	rec, err := scanStructured(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("structured record for doc %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan structured record: %w", err)
	}
	return rec, nil
}

// ListProjectSiblings returns structured records of the same schema type for
// every other document in the project. Used by the duplicate-invoice check.
func (r *StructuredRepository) ListProjectSiblings(ctx context.Context, projectID, excludeDocID, schemaType string) ([]domain.StructuredRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT s.id, s.doc_id, s.schema_type, s.data, s.confidence, s.source_page, s.created_at
FROM doc_structured s
JOIN documents d ON d.id = s.doc_id
WHERE d.project_id = $1 AND s.doc_id <> $2 AND s.schema_type = $3
ORDER BY s.created_at
`, projectID, excludeDocID, schemaType)
	if err != nil {
		return nil, fmt.Errorf("query structured siblings: %w", err)
	}
	defer rows.Close()

	var records []domain.StructuredRecord
	for rows.Next() {
		rec, err := scanStructured(rows)
		if err != nil {
			return nil, fmt.Errorf("scan structured sibling: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

const structuredSelect = `
SELECT id, doc_id, schema_type, data, confidence, source_page, created_at
FROM doc_structured`

func scanStructured(row rowScanner) (*domain.StructuredRecord, error) {
	var rec domain.StructuredRecord
	var dataRaw []byte
	var sourcePage sql.NullInt64
	err := row.Scan(&rec.ID, &rec.DocID, &rec.SchemaType, &dataRaw, &rec.Confidence, &sourcePage, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dataRaw, &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal structured data: %w", err)
	}
	if sourcePage.Valid {
		v := int(sourcePage.Int64)
		rec.SourcePage = &v
	}
	return &rec, nil
}
