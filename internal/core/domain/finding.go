package domain

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CoerceSeverity folds arbitrary model output into the severity enum.
func CoerceSeverity(raw string) Severity {
	switch s := Severity(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return s
	default:
		return SeverityMedium
	}
}

type FindingStatus string

const (
	FindingNew       FindingStatus = "NEW"
	FindingConfirmed FindingStatus = "CONFIRMED"
	FindingDismissed FindingStatus = "DISMISSED"
	FindingResolved  FindingStatus = "RESOLVED"
)

// Finding is one risk/compliance observation. The pipeline only ever inserts
// findings with status NEW; later transitions belong to human review.
type Finding struct {
	ID            string        `json:"id,omitempty"`
	ProjectID     string        `json:"project_id"`
	DocID         string        `json:"doc_id"`
	Category      string        `json:"category"`
	Type          string        `json:"type"`
	Severity      Severity      `json:"severity"`
	Status        FindingStatus `json:"status"`
	Description   string        `json:"description"`
	EvidencePage  *int          `json:"evidence_page,omitempty"`
	EvidenceQuote string        `json:"evidence_quote,omitempty"`
	SpanStart     *int          `json:"evidence_span_start,omitempty"`
	SpanEnd       *int          `json:"evidence_span_end,omitempty"`
	Confidence    float64       `json:"confidence"`
	Tags          []string      `json:"tags,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FindingsResult is the sanitized output of the finding generator.
type FindingsResult struct {
	Findings       []Finding
	RiskScoreDelta int
	Raw            []byte
}
