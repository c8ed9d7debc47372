// Package question is the scaffolding around proactive questions: stem
// derivation for dedup, template instantiation, throttling, and the
// asked-questions log. What to actually ask is the wake runtime's
// business; this package only decides whether a question may go out and
// remembers the ones that did.
package question

import (
	"strings"
)

// stemContentWords caps how many content words form a stem.
const stemContentWords = 6

// stopWords are dropped when deriving a stem.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "from": true, "as": true,
	"and": true, "or": true, "but": true, "nor": true,
	"is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true,
	"should": true, "would": true, "could": true,
	"how": true, "what": true, "which": true, "who": true,
	"we": true, "i": true, "you": true, "they": true,
}

// Entry is one line of asked_questions.jsonl.
type Entry struct {
	Timestamp         string `json:"timestamp"`
	Question          string `json:"question"`
	QuestionStem      string `json:"question_stem"`
	Category          string `json:"category"`
	Trigger           string `json:"trigger"`
	Context           string `json:"context"`
	ResponseReceived  bool   `json:"response_received"`
	ResponseSummary   string `json:"response_summary"`
	ResponseTimestamp string `json:"response_timestamp,omitempty"`
}

// Candidate is a question proposed for emission. Confidence feeds the
// trigger evaluator's question source.
type Candidate struct {
	Question   string
	Category   string
	Trigger    string
	Context    string
	Confidence float64
}

// Templates maps a category to its question templates. Callers supply
// the content; Fill instantiates the {placeholder} slots.
type Templates map[string][]string

// Expand instantiates every template in a category with vars.
func (t Templates) Expand(category string, vars map[string]string) []string {
	var out []string
	for _, tmpl := range t[category] {
		out = append(out, Fill(tmpl, vars))
	}
	return out
}

// Fill substitutes {name} placeholders in a template.
func Fill(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// Stem reduces a question to a stable dedup key: lowercase, strip
// punctuation, drop stop words, keep the first six content words. Two
// phrasings of the same question should collide here.
func Stem(q string) string {
	var norm []rune
	for _, r := range strings.ToLower(q) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			norm = append(norm, r)
		} else {
			norm = append(norm, ' ')
		}
	}
	words := strings.Fields(string(norm))

	var content []string
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		content = append(content, w)
		if len(content) == stemContentWords {
			break
		}
	}
	// All stop words still needs a stable key.
	if len(content) == 0 && len(words) > 0 {
		content = words[:1]
	}
	return strings.Join(content, " ")
}
