package extractor

import "strings"

// qualityThreshold is the cutoff below which extracted text is considered
// unreliable and the document is routed to visual inference.
const qualityThreshold = 0.3

const (
	emptyPageChars   = 50
	minDensityChars  = 100
	maxDensityChars  = 50000
	fullPageAvgChars = 500
)

// scoreQuality estimates extraction reliability from page characteristics:
// the share of near-empty pages, the share of pages inside a sane density
// band, and the average page length, weighted 0.4/0.4/0.2 and clamped to
// [0,1].
func scoreQuality(pages []string) float64 {
	if len(pages) == 0 {
		return 0
	}

	totalChars := 0
	emptyPages := 0
	densePages := 0
	for _, page := range pages {
		totalChars += len(page)
		trimmed := len(strings.TrimSpace(page))
		if trimmed < emptyPageChars {
			emptyPages++
		}
		if trimmed > minDensityChars && trimmed < maxDensityChars {
			densePages++
		}
	}

	pageCount := float64(len(pages))
	emptyRatio := float64(emptyPages) / pageCount
	densityRatio := float64(densePages) / pageCount
	avgChars := float64(totalChars) / pageCount

	avgScore := avgChars / fullPageAvgChars
	if avgScore > 1 {
		avgScore = 1
	}

	quality := 0.4*(1-emptyRatio) + 0.4*densityRatio + 0.2*avgScore
	if quality < 0 {
		return 0
	}
	if quality > 1 {
		return 1
	}
	return quality
}
