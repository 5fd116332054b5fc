// Package donut talks to the vision sidecar used for structure extraction
// from table-heavy and scanned documents. The sidecar being down is a
// normal condition the pipeline degrades through, not an error.
package donut

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

const (
	healthPath  = "/healthz"
	extractPath = "/extract"

	healthTimeout = 2 * time.Second

	// Confidence assigned when the sidecar's payload fails schema
	// validation and only the raw output is kept.
	rawOutputConfidence = 0.5
)

type Client struct {
	baseURL      string
	httpClient   *http.Client
	healthClient *http.Client
	validators   map[string]*jsonschema.Schema
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	validators, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		healthClient: &http.Client{Timeout: healthTimeout},
		validators:   validators,
	}, nil
}

// Available probes the sidecar health endpoint. Any transport failure or
// non-200 answer reports the service as absent.
func (c *Client) Available(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
	return resp.StatusCode == http.StatusOK
}

type extractRequest struct {
	SchemaType string `json:"schema_type"`
	ContentB64 string `json:"content_b64"`
}

type extractResponse struct {
	SchemaType string         `json:"schema_type"`
	Data       map[string]any `json:"data"`
	Confidence float64        `json:"confidence"`
	RawOutput  string         `json:"raw_output"`
	Error      string         `json:"error"`
}

// Extract sends the file to the sidecar and returns a structured record.
// Payloads that fail schema validation degrade to a raw-output record
// instead of being dropped.
func (c *Client) Extract(ctx context.Context, content []byte, schemaType string) (*domain.StructuredRecord, error) {
	if _, ok := c.validators[schemaType]; !ok {
		schemaType = domain.SchemaInvoice
	}

	payload := extractRequest{
		SchemaType: schemaType,
		ContentB64: base64.StdEncoding.EncodeToString(content),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("donut: marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("donut: create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "donut extract", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("donut extract status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("donut: decode extract response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("donut extract: %s", out.Error)
	}

	record := &domain.StructuredRecord{
		SchemaType: schemaType,
		Data:       out.Data,
		Confidence: out.Confidence,
	}
	if !c.validate(schemaType, out.Data) {
		record.Data = map[string]any{"raw_output": c.rawPayload(out)}
		record.Confidence = rawOutputConfidence
	}
	return record, nil
}

func (c *Client) validate(schemaType string, data map[string]any) bool {
	schema, ok := c.validators[schemaType]
	if !ok || data == nil {
		return false
	}
	// The validator wants plain decoded JSON, which data already is.
	return schema.Validate(map[string]any(data)) == nil
}

func (c *Client) rawPayload(out extractResponse) string {
	if out.RawOutput != "" {
		return out.RawOutput
	}
	raw, err := json.Marshal(out.Data)
	if err != nil {
		return ""
	}
	return string(raw)
}
