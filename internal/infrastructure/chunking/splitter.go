// Package chunking cuts page-segmented text into retrieval passages.
package chunking

import (
	"strings"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

type Splitter struct {
	MinChars int
}

func NewSplitter(minChars int) *Splitter {
	if minChars <= 0 {
		minChars = 50
	}
	return &Splitter{MinChars: minChars}
}

// SplitPages cuts each page into paragraphs on blank lines. Paragraphs
// shorter than MinChars after trimming are dropped. The chunk index is
// zero-based and document-wide, counted in page order, so dropped
// paragraphs never leave holes in the sequence.
func (s *Splitter) SplitPages(pages []string) []domain.Chunk {
	var chunks []domain.Chunk
	index := 0
	for pageNum, pageText := range pages {
		for _, para := range strings.Split(pageText, "\n\n") {
			para = strings.TrimSpace(para)
			if len(para) < s.MinChars {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				Index:     index,
				Text:      para,
				Page:      pageNum + 1,
				CharCount: len(para),
			})
			index++
		}
	}
	return chunks
}
