package domain

import "time"

const (
	DetectionRuleBased = "rule-based"
	DetectionSemantic  = "semantic"
)

// PIIEntity is one detected personally identifying span. Entities are fully
// replaced on every PII stage run; there is no historical trail.
type PIIEntity struct {
	ID          string    `json:"id,omitempty"`
	DocID       string    `json:"doc_id,omitempty"`
	Label       string    `json:"label"`
	Text        string    `json:"text"`
	Page        *int      `json:"page,omitempty"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Confidence  float64   `json:"confidence"`
	Method      string    `json:"detection_method"`
	Replacement string    `json:"replacement,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PIIReplacement records one span rewritten during pseudonymization.
type PIIReplacement struct {
	Label       string  `json:"label"`
	Original    string  `json:"original_text"`
	Replacement string  `json:"replacement"`
	Confidence  float64 `json:"confidence"`
}

// FusePIIEntities applies the fusion policy: rule-based entities are kept
// unconditionally; semantic entities only above the confidence floor. The
// two sets are unioned, not deduplicated against each other.
func FusePIIEntities(rules, semantic []PIIEntity, minSemanticConfidence float64) []PIIEntity {
	fused := make([]PIIEntity, 0, len(rules)+len(semantic))
	fused = append(fused, rules...)
	for _, e := range semantic {
		if e.Confidence <= minSemanticConfidence {
			continue
		}
		e.Method = DetectionSemantic
		fused = append(fused, e)
	}
	return fused
}
