package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type PIIRepository struct {
	db *sql.DB
}

func NewPIIRepository(db *sql.DB) *PIIRepository {
	return &PIIRepository{db: db}
}

// ReplaceForDocument swaps the document's entity set in one transaction so
// a failed run never leaves a mix of old and new detections.
func (r *PIIRepository) ReplaceForDocument(ctx context.Context, docID string, entities []domain.PIIEntity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pii tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pii_entities WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("delete pii entities: %w", err)
	}

	now := time.Now().UTC()
	for _, e := range entities {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO pii_entities (
	id, doc_id, label, entity_text, page, span_start, span_end,
	confidence, detection_method, replacement, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
			id, docID, e.Label, e.Text, e.Page, e.Start, e.End,
			e.Confidence, e.Method, e.Replacement, now,
		)
		if err != nil {
			return fmt.Errorf("insert pii entity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pii tx: %w", err)
	}
	return nil
}

func (r *PIIRepository) ListByDocument(ctx context.Context, docID string) ([]domain.PIIEntity, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, doc_id, label, entity_text, page, span_start, span_end,
	confidence, detection_method, replacement, created_at
FROM pii_entities
WHERE doc_id = $1
ORDER BY span_start
`, docID)
	if err != nil {
		return nil, fmt.Errorf("query pii entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.PIIEntity
	for rows.Next() {
		var e domain.PIIEntity
		var page sql.NullInt64
		if err := rows.Scan(
			&e.ID, &e.DocID, &e.Label, &e.Text, &page, &e.Start, &e.End,
			&e.Confidence, &e.Method, &e.Replacement, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pii entity: %w", err)
		}
		if page.Valid {
			v := int(page.Int64)
			e.Page = &v
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
