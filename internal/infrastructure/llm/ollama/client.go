// Package ollama adapts the Ollama chat API to the pipeline's inference
// ports: classification, semantic PII detection, finding generation and
// assistant answers. Each task can run on its own model.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
	"github.com/mkorobkov/dealroom-pipeline/internal/infrastructure/resilience"
)

// Models names the model used for each inference task.
type Models struct {
	Classification string
	PII            string
	Analysis       string
}

type Client struct {
	baseURL    string
	models     Models
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

// New builds a client for the Ollama server at baseURL. A non-positive
// requestsPerSecond disables client-side rate limiting.
func New(baseURL string, models Models, timeout time.Duration, requestsPerSecond float64, exec *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		models:     models,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		exec:       exec,
	}
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify labels a text sample. Any failure returns the safe default
// classification alongside the error so callers can persist it and move on.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	respText, err := c.client.chat(ctx, "classify", c.client.models.Classification,
		classificationSystemPrompt, buildClassificationPrompt(text), true)
	if err != nil {
		return domain.DefaultClassification(""), err
	}

	var wire struct {
		DocType     string   `json:"doc_type"`
		Confidence  any      `json:"confidence"`
		Tags        []string `json:"tags"`
		NeedsVLM    bool     `json:"needs_vlm"`
		Sensitivity string   `json:"sensitivity"`
	}
	raw := extractJSONObject(respText)
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return domain.DefaultClassification(""), fmt.Errorf("parse classification json: %w", err)
	}

	result := domain.Classification{
		DocType:     wire.DocType,
		Confidence:  floatOr(wire.Confidence, 0),
		Tags:        wire.Tags,
		NeedsVLM:    wire.NeedsVLM,
		Sensitivity: wire.Sensitivity,
		Raw:         []byte(raw),
	}
	if result.DocType == "" {
		result.DocType = "unknown"
	}
	if result.Sensitivity == "" {
		result.Sensitivity = "LOW"
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	return result, nil
}

type SemanticDetector struct {
	client *Client
}

func NewSemanticDetector(client *Client) *SemanticDetector {
	return &SemanticDetector{client: client}
}

// DetectPII asks the model for PII entities in a text sample. The model
// names entities without offsets, so returned spans are zero.
func (d *SemanticDetector) DetectPII(ctx context.Context, text string) ([]domain.PIIEntity, error) {
	respText, err := d.client.chat(ctx, "detect_pii", d.client.models.PII,
		piiSystemPrompt, buildPIIPrompt(text), true)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Entities []struct {
			Label      string `json:"label"`
			Text       string `json:"text"`
			Confidence any    `json:"confidence"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &wire); err != nil {
		return nil, fmt.Errorf("parse pii json: %w", err)
	}

	entities := make([]domain.PIIEntity, 0, len(wire.Entities))
	for _, e := range wire.Entities {
		if e.Text == "" {
			continue
		}
		label := e.Label
		if label == "" {
			label = "UNKNOWN"
		}
		entities = append(entities, domain.PIIEntity{
			Label:      label,
			Text:       e.Text,
			Confidence: floatOr(e.Confidence, 0),
			Method:     domain.DetectionSemantic,
		})
	}
	return entities, nil
}

type FindingsGenerator struct {
	client *Client
}

func NewFindingsGenerator(client *Client) *FindingsGenerator {
	return &FindingsGenerator{client: client}
}

// Generate asks the analysis model for findings over the document text and
// any structured extraction. Model output is sanitized field by field
// before it reaches persistence.
func (g *FindingsGenerator) Generate(ctx context.Context, text, docType string, structured map[string]any) (domain.FindingsResult, error) {
	respText, err := g.client.chat(ctx, "generate_findings", g.client.models.Analysis,
		buildFindingsSystemPrompt(docType), buildFindingsPrompt(text, docType, structured), true)
	if err != nil {
		return domain.FindingsResult{}, err
	}

	var wire struct {
		Findings []struct {
			Category      string `json:"category"`
			Type          string `json:"type"`
			Severity      string `json:"severity"`
			Description   string `json:"description"`
			EvidencePage  any    `json:"evidence_page"`
			EvidenceQuote string `json:"evidence_quote"`
			Confidence    any    `json:"confidence"`
		} `json:"findings"`
		RiskScoreDelta any `json:"risk_score_delta"`
	}
	raw := extractJSONObject(respText)
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return domain.FindingsResult{}, fmt.Errorf("parse findings json: %w", err)
	}

	result := domain.FindingsResult{
		RiskScoreDelta: int(floatOr(wire.RiskScoreDelta, 0)),
		Raw:            []byte(raw),
	}
	for _, f := range wire.Findings {
		finding := domain.Finding{
			Category:      clamp(strings.ToUpper(strings.TrimSpace(f.Category)), 50),
			Type:          clamp(strings.TrimSpace(f.Type), 100),
			Severity:      domain.CoerceSeverity(f.Severity),
			Description:   strings.TrimSpace(f.Description),
			EvidenceQuote: clamp(f.EvidenceQuote, 1000),
			Confidence:    floatOr(f.Confidence, 0.5),
		}
		if page, ok := intValue(f.EvidencePage); ok {
			finding.EvidencePage = &page
		}
		result.Findings = append(result.Findings, finding)
	}
	return result, nil
}

type AnswerGenerator struct {
	client *Client
}

func NewAnswerGenerator(client *Client) *AnswerGenerator {
	return &AnswerGenerator{client: client}
}

func (g *AnswerGenerator) GenerateAnswer(ctx context.Context, question, contextText string) (string, error) {
	return g.client.chat(ctx, "answer", g.client.models.Analysis,
		answerSystemPrompt, buildAnswerPrompt(question, contextText), false)
}

// floatOr tolerates models emitting numbers as strings or omitting them.
func floatOr(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &parsed); err == nil {
			return parsed
		}
	}
	return def
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		var parsed int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
