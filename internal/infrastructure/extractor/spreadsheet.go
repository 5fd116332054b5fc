package extractor

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

// extractSpreadsheet renders each sheet as one page of tab-separated rows.
func (e *Extractor) extractSpreadsheet(_ context.Context, content []byte) (domain.ExtractionResult, error) {
	book, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return failedResult(), nil
	}
	defer book.Close()

	sheets := book.GetSheetList()
	pages := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := book.GetRows(sheet)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		var builder strings.Builder
		builder.WriteString(sheet)
		builder.WriteString("\n\n")
		for _, row := range rows {
			builder.WriteString(strings.Join(row, "\t"))
			builder.WriteByte('\n')
		}
		pages = append(pages, strings.TrimRight(builder.String(), "\n"))
	}
	if len(pages) == 0 {
		return failedResult(), nil
	}
	return buildResult(pages, "xlsx"), nil
}
