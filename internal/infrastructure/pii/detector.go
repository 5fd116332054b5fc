// Package pii implements rule-based PII detection over a labeled regex
// table and span-based pseudonymization with stable per-label counters.
package pii

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mkorobkov/dealroom-pipeline/internal/core/domain"
)

//go:embed patterns.yaml
var patternsYAML []byte

type patternSpec struct {
	Label      string  `yaml:"label"`
	Regex      string  `yaml:"regex"`
	Confidence float64 `yaml:"confidence"`
}

type patternFile struct {
	Patterns []patternSpec     `yaml:"patterns"`
	Tokens   map[string]string `yaml:"tokens"`
}

type compiledPattern struct {
	label      string
	re         *regexp.Regexp
	confidence float64
}

// Detector scans text against the embedded pattern table and replaces
// detected spans with counted placeholder tokens. It is not safe for
// concurrent use; the pipeline holds one per worker run.
type Detector struct {
	patterns []compiledPattern
	tokens   map[string]string
	counters map[string]int
}

// NewDetector compiles the embedded pattern table.
func NewDetector() (*Detector, error) {
	var file patternFile
	if err := yaml.Unmarshal(patternsYAML, &file); err != nil {
		return nil, fmt.Errorf("pii: parse patterns: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("pii: empty pattern table")
	}
	d := &Detector{
		tokens:   file.Tokens,
		counters: make(map[string]int),
	}
	for _, spec := range file.Patterns {
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, fmt.Errorf("pii: compile %s: %w", spec.Label, err)
		}
		d.patterns = append(d.patterns, compiledPattern{
			label:      spec.Label,
			re:         re,
			confidence: spec.Confidence,
		})
	}
	return d, nil
}

// Reset clears the per-label replacement counters. Call it before each
// document so token numbering starts from 1 again.
func (d *Detector) Reset() {
	d.counters = make(map[string]int)
}

// Detect returns all rule-based matches in text ordered by start offset.
// Matches at an identical span are deduplicated keeping the first pattern
// that produced them, so table order decides label precedence.
func (d *Detector) Detect(text string) []domain.PIIEntity {
	if text == "" {
		return nil
	}
	seen := make(map[[2]int]struct{})
	var entities []domain.PIIEntity
	for _, p := range d.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			span := [2]int{loc[0], loc[1]}
			if _, dup := seen[span]; dup {
				continue
			}
			seen[span] = struct{}{}
			entities = append(entities, domain.PIIEntity{
				Label:      p.label,
				Text:       text[loc[0]:loc[1]],
				Start:      loc[0],
				End:        loc[1],
				Confidence: p.confidence,
				Method:     domain.DetectionRuleBased,
			})
		}
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})
	return entities
}

// Pseudonymize replaces each entity span with a numbered token, records the
// token on the entity itself, and returns the redacted text plus the
// replacement log. Spans are applied in descending start order so earlier
// offsets stay valid while later ones are rewritten. Entities without a
// span receive a token and appear in the log but are not substituted.
func (d *Detector) Pseudonymize(text string, entities []domain.PIIEntity) (string, []domain.PIIReplacement) {
	if len(entities) == 0 {
		return text, nil
	}
	order := make([]int, len(entities))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return entities[order[i]].Start > entities[order[j]].Start
	})

	replacements := make([]domain.PIIReplacement, 0, len(entities))
	for _, idx := range order {
		e := &entities[idx]
		token := d.nextToken(e.Label)
		e.Replacement = token
		replacements = append(replacements, domain.PIIReplacement{
			Label:       e.Label,
			Original:    e.Text,
			Replacement: token,
			Confidence:  e.Confidence,
		})
		if e.End <= e.Start || e.End > len(text) {
			continue
		}
		text = text[:e.Start] + token + text[e.End:]
	}
	return text, replacements
}

func (d *Detector) nextToken(label string) string {
	prefix, ok := d.tokens[label]
	if !ok {
		prefix = "ENTITY"
	}
	d.counters[label]++
	return fmt.Sprintf("%s_%d", prefix, d.counters[label])
}

// TokenPrefix reports the placeholder prefix used for a label.
func (d *Detector) TokenPrefix(label string) string {
	if prefix, ok := d.tokens[label]; ok {
		return prefix
	}
	return "ENTITY"
}
