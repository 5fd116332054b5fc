package domain

import "time"

// Chunk is a retrieval-sized passage cut from one page. ChunkIndex is
// zero-based, document-wide and stable in page order; chunks are fully
// replaced on every indexing run.
type Chunk struct {
	ID        string    `json:"id,omitempty"`
	DocID     string    `json:"doc_id"`
	Index     int       `json:"chunk_index"`
	Text      string    `json:"chunk_text"`
	Page      int       `json:"page"`
	Section   string    `json:"section,omitempty"`
	CharCount int       `json:"char_count"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is the assistant's reply with the context blocks it was built from.
type Answer struct {
	Text    string         `json:"text"`
	Sources []AnswerSource `json:"sources"`
}

type AnswerSource struct {
	DocID string `json:"doc_id"`
	Kind  string `json:"kind"`
	Page  int    `json:"page,omitempty"`
}
