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

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceForDocument swaps the document's chunk set in one transaction so
// readers never see chunks from two different indexing runs.
func (r *ChunkRepository) ReplaceForDocument(ctx context.Context, docID string, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunks tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		var embedding any
		if len(c.Embedding) > 0 {
			raw, err := json.Marshal(c.Embedding)
			if err != nil {
				return fmt.Errorf("marshal embedding: %w", err)
			}
			embedding = raw
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO document_chunks (
	id, doc_id, chunk_index, chunk_text, page, section, char_count, embedding, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
			id, docID, c.Index, c.Text, c.Page, c.Section, c.CharCount, embedding, now,
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.doc_id, c.chunk_index, c.chunk_text, c.page, c.section, c.char_count, c.embedding, c.created_at
FROM document_chunks c
JOIN documents d ON d.id = c.doc_id
WHERE d.project_id = $1
ORDER BY c.doc_id, c.chunk_index
LIMIT $2
`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embeddingRaw sql.Null[[]byte]
		err := rows.Scan(
			&c.ID, &c.DocID, &c.Index, &c.Text, &c.Page, &c.Section,
			&c.CharCount, &embeddingRaw, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if embeddingRaw.Valid && len(embeddingRaw.V) > 0 {
			if err := json.Unmarshal(embeddingRaw.V, &c.Embedding); err != nil {
				return nil, fmt.Errorf("unmarshal embedding: %w", err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
