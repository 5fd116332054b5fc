package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

// extractPlaintext treats the whole file as a single page. Non-UTF-8 input
// is re-read byte-by-byte as Latin-1 rather than rejected.
func (e *Extractor) extractPlaintext(_ context.Context, content []byte) (domain.ExtractionResult, error) {
	var text string
	if utf8.Valid(content) {
		text = string(content)
	} else {
		var builder strings.Builder
		builder.Grow(len(content))
		for _, b := range content {
			builder.WriteRune(rune(b))
		}
		text = builder.String()
	}
	return buildResult([]string{text}, "text"), nil
}
