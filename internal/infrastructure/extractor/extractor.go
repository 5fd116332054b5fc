package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

const pageBreak = "\n\n--- Page Break ---\n\n"

type extractFunc func(ctx context.Context, content []byte) (domain.ExtractionResult, error)

// Extractor dispatches by MIME type to format-specific extraction paths.
// Unsupported formats and total parse failures produce an empty result with
// NeedsVLM set rather than an error, so the pipeline can still route the
// document to visual inference.
type Extractor struct {
	byType map[string]extractFunc
}

func New() *Extractor {
	e := &Extractor{}
	e.byType = map[string]extractFunc{
		"application/pdf":  e.extractPDF,
		"text/plain":       e.extractPlaintext,
		"text/csv":         e.extractPlaintext,
		"text/markdown":    e.extractPlaintext,
		"application/json": e.extractPlaintext,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": e.extractSpreadsheet,
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, content []byte, filename, declaredType string) (domain.ExtractionResult, error) {
	fileType := declaredType
	if fileType == "" || fileType == "application/octet-stream" {
		fileType = sniffType(filename)
	}

	fn, ok := e.byType[fileType]
	if !ok {
		return unsupportedResult(), nil
	}
	return fn(ctx, content)
}

func sniffType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// unsupportedResult routes a document the text paths cannot read to the
// vision service instead of failing the run.
func unsupportedResult() domain.ExtractionResult {
	return domain.ExtractionResult{
		Method:   "unsupported",
		NeedsVLM: true,
	}
}

func failedResult() domain.ExtractionResult {
	return domain.ExtractionResult{
		Method:   "failed",
		Pages:    []string{},
		NeedsVLM: true,
	}
}

// buildResult assembles the scored result from page-segmented text.
func buildResult(pages []string, method string) domain.ExtractionResult {
	text := strings.Join(pages, pageBreak)
	quality := scoreQuality(pages)
	return domain.ExtractionResult{
		Text:      text,
		Pages:     pages,
		PageCount: len(pages),
		CharCount: len(text),
		Method:    method,
		Quality:   quality,
		NeedsVLM:  quality < qualityThreshold,
	}
}
