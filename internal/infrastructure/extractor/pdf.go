package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

// extractPDF tries the fast per-page plain-text path first and falls back to
// the slower row-ordered walk when quality scoring flags the output. Both
// paths failing degrades to an empty NeedsVLM result: scanned PDFs carry no
// text layer at all.
func (e *Extractor) extractPDF(ctx context.Context, content []byte) (domain.ExtractionResult, error) {
	pages, err := pdfPlainText(content)
	if err == nil {
		result := buildResult(pages, "pdf-text")
		if result.Quality > qualityThreshold {
			return result, nil
		}
	}

	if ctx.Err() != nil {
		return domain.ExtractionResult{}, ctx.Err()
	}

	rowPages, rowErr := pdfTextByRow(content)
	if rowErr == nil && len(rowPages) > 0 {
		return buildResult(rowPages, "pdf-rows"), nil
	}

	// Keep whatever the fast path produced over nothing at all.
	if err == nil && len(pages) > 0 {
		return buildResult(pages, "pdf-text"), nil
	}
	return failedResult(), nil
}

// pdfPlainText reads every page's text layer. The parser panics on some
// malformed files; that is recovered into a plain error.
func pdfPlainText(content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// pdfTextByRow reassembles text in row order, which survives layouts the
// plain-text walk garbles.
func pdfTextByRow(content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf row parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		var builder strings.Builder
		for _, row := range rows {
			for _, word := range row.Content {
				builder.WriteString(word.S)
				builder.WriteByte(' ')
			}
			builder.WriteByte('\n')
		}
		pages = append(pages, strings.TrimRight(builder.String(), " \n"))
	}
	return pages, nil
}
