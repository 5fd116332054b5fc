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

type TextRepository struct {
	db *sql.DB
}

func NewTextRepository(db *sql.DB) *TextRepository {
	return &TextRepository{db: db}
}

// Upsert replaces the single text record for a document. A re-run resets
// the redacted text so a stale redaction never outlives new raw text.
func (r *TextRepository) Upsert(ctx context.Context, text *domain.DocumentText) error {
	pagesJSON, err := json.Marshal(text.Pages)
	if err != nil {
		return fmt.Errorf("marshal pages: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
INSERT INTO document_text (
	doc_id, text, redacted_text, pages, page_count, char_count,
	extraction_method, extraction_quality, needs_vlm, created_at, updated_at
) VALUES ($1,$2,'',$3,$4,$5,$6,$7,$8,$9,$9)
ON CONFLICT (doc_id) DO UPDATE SET
	text = EXCLUDED.text,
	redacted_text = '',
	pages = EXCLUDED.pages,
	page_count = EXCLUDED.page_count,
	char_count = EXCLUDED.char_count,
	extraction_method = EXCLUDED.extraction_method,
	extraction_quality = EXCLUDED.extraction_quality,
	needs_vlm = EXCLUDED.needs_vlm,
	updated_at = EXCLUDED.updated_at
`,
		text.DocID, text.Text, pagesJSON, text.PageCount, text.CharCount,
		text.Method, text.Quality, text.NeedsVLM, now,
	)
	if err != nil {
		return fmt.Errorf("upsert document text: %w", err)
	}
	return nil
}

func (r *TextRepository) GetByDocument(ctx context.Context, docID string) (*domain.DocumentText, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT doc_id, text, redacted_text, pages, page_count, char_count,
	extraction_method, extraction_quality, needs_vlm, created_at, updated_at
FROM document_text
WHERE doc_id = $1
`, docID)

	var text domain.DocumentText
	var pagesRaw []byte
	err := row.Scan(
		&text.DocID, &text.Text, &text.RedactedText, &pagesRaw, &text.PageCount,
		&text.CharCount, &text.Method, &text.Quality, &text.NeedsVLM,
		&text.CreatedAt, &text.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("text for doc %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan document text: %w", err)
	}
	if err := json.Unmarshal(pagesRaw, &text.Pages); err != nil {
		return nil, fmt.Errorf("unmarshal pages: %w", err)
	}
	return &text, nil
}

func (r *TextRepository) SaveRedacted(ctx context.Context, docID, redacted string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE document_text
SET redacted_text = $2, updated_at = $3
WHERE doc_id = $1
`, docID, redacted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save redacted text: %w", err)
	}
	return nil
}
