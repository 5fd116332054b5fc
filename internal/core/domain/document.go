package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "UPLOADED"
	StatusReady      DocumentStatus = "READY"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusFailed     DocumentStatus = "FAILED"
)

type Document struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	Version    int            `json:"version"`
	Filename   string         `json:"filename"`
	FileType   string         `json:"file_type"`
	StorageKey string         `json:"storage_key"`
	Status     DocumentStatus `json:"status"`
	PageCount  int            `json:"page_count"`
	UploadedBy string         `json:"uploaded_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ExtractionResult is the contract of the quality-scored text extractor.
// An unsupported format or a total parse failure yields an empty result with
// NeedsVLM set, not an error; errors are reserved for I/O-level failures.
type ExtractionResult struct {
	Text      string
	Pages     []string
	PageCount int
	CharCount int
	Method    string
	Quality   float64
	NeedsVLM  bool
}

// DocumentText is the single current text record per document. Text is
// written once by extraction; RedactedText is written by the PII stage and
// is the form handed to the inference service afterwards.
type DocumentText struct {
	DocID        string    `json:"doc_id"`
	Text         string    `json:"text"`
	RedactedText string    `json:"redacted_text,omitempty"`
	Pages        []string  `json:"pages"`
	PageCount    int       `json:"page_count"`
	CharCount    int       `json:"char_count"`
	Method       string    `json:"extraction_method"`
	Quality      float64   `json:"extraction_quality"`
	NeedsVLM     bool      `json:"needs_vlm"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InferenceText returns the text safe to hand to the inference service.
func (t *DocumentText) InferenceText() string {
	if t.RedactedText != "" {
		return t.RedactedText
	}
	return t.Text
}

func (t *DocumentText) Empty() bool {
	return t == nil || t.Text == ""
}

type Classification struct {
	DocID       string    `json:"doc_id"`
	DocType     string    `json:"doc_type"`
	Sensitivity string    `json:"sensitivity"`
	Confidence  float64   `json:"confidence"`
	Tags        []string  `json:"tags"`
	NeedsVLM    bool      `json:"needs_vlm"`
	Raw         []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultClassification is the safe fallback used when inference fails.
func DefaultClassification(docID string) Classification {
	return Classification{
		DocID:       docID,
		DocType:     "unknown",
		Sensitivity: "LOW",
		Tags:        []string{},
	}
}
