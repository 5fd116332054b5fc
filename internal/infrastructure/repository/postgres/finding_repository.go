package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type FindingRepository struct {
	db *sql.DB
}

func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

func (r *FindingRepository) InsertBatch(ctx context.Context, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin findings tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, f := range findings {
		id := f.ID
		if id == "" {
			id = uuid.NewString()
		}
		tagsJSON, err := json.Marshal(f.Tags)
		if err != nil {
			return fmt.Errorf("marshal finding tags: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO findings (
	id, project_id, doc_id, category, finding_type, severity, status,
	description, evidence_page, evidence_quote, span_start, span_end,
	confidence, tags, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
`,
			id, f.ProjectID, f.DocID, f.Category, f.Type, string(f.Severity),
			string(f.Status), f.Description, f.EvidencePage, f.EvidenceQuote,
			f.SpanStart, f.SpanEnd, f.Confidence, tagsJSON, now,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit findings tx: %w", err)
	}
	return nil
}

func (r *FindingRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Finding, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, project_id, doc_id, category, finding_type, severity, status,
	description, evidence_page, evidence_quote, span_start, span_end,
	confidence, tags, created_at, updated_at
FROM findings
WHERE project_id = $1
ORDER BY created_at DESC
LIMIT $2
`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var (
			f                              domain.Finding
			severity, status               string
			evidencePage, spanStt, spanEnd sql.NullInt64
			tagsRaw                        []byte
		)
		err := rows.Scan(
			&f.ID, &f.ProjectID, &f.DocID, &f.Category, &f.Type, &severity, &status,
			&f.Description, &evidencePage, &f.EvidenceQuote, &spanStt, &spanEnd,
			&f.Confidence, &tagsRaw, &f.CreatedAt, &f.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Severity = domain.Severity(severity)
		f.Status = domain.FindingStatus(status)
		if err := json.Unmarshal(tagsRaw, &f.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal finding tags: %w", err)
		}
		if evidencePage.Valid {
			v := int(evidencePage.Int64)
			f.EvidencePage = &v
		}
		if spanStt.Valid {
			v := int(spanStt.Int64)
			f.SpanStart = &v
		}
		if spanEnd.Valid {
			v := int(spanEnd.Int64)
			f.SpanEnd = &v
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
