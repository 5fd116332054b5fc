package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type ClassificationRepository struct {
	db *sql.DB
}

func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

func (r *ClassificationRepository) Upsert(ctx context.Context, cls *domain.Classification) error {
	tagsJSON, err := json.Marshal(cls.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	var raw any
	if len(cls.Raw) > 0 {
		raw = cls.Raw
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
INSERT INTO doc_classification (
	doc_id, doc_type, sensitivity, confidence, tags, needs_vlm, raw_output, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
ON CONFLICT (doc_id) DO UPDATE SET
	doc_type = EXCLUDED.doc_type,
	sensitivity = EXCLUDED.sensitivity,
	confidence = EXCLUDED.confidence,
	tags = EXCLUDED.tags,
	needs_vlm = EXCLUDED.needs_vlm,
	raw_output = EXCLUDED.raw_output,
	updated_at = EXCLUDED.updated_at
`,
		cls.DocID, cls.DocType, cls.Sensitivity, cls.Confidence, tagsJSON,
		cls.NeedsVLM, raw, now,
	)
	if err != nil {
		return fmt.Errorf("upsert classification: %w", err)
	}
	return nil
}

func (r *ClassificationRepository) GetByDocument(ctx context.Context, docID string) (*domain.Classification, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT doc_id, doc_type, sensitivity, confidence, tags, needs_vlm, raw_output, created_at, updated_at
FROM doc_classification
WHERE doc_id = $1
`, docID)

	var cls domain.Classification
	var tagsRaw []byte
	var raw sql.Null[[]byte]
	err := row.Scan(
		&cls.DocID, &cls.DocType, &cls.Sensitivity, &cls.Confidence,
		&tagsRaw, &cls.NeedsVLM, &raw, &cls.CreatedAt, &cls.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("classification for doc %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan classification: %w", err)
	}
	if err := json.Unmarshal(tagsRaw, &cls.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if raw.Valid {
		cls.Raw = raw.V
	}
	return &cls, nil
}
