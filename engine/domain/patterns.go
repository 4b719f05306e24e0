package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// HeaderPattern recognizes article header lines for one language or drafting
// style. Detection is two-phase: detect decides whether a line looks like a
// header at all; label additionally requires a clean numeral and terminator.
// A line that detects but does not label is a segmentation ambiguity — the
// section is still created, with no article label and the raw line kept as
// the title.
type HeaderPattern struct {
	Name   string
	detect *regexp.Regexp
	label  *regexp.Regexp
}

// NewHeaderPattern builds a pattern from an article word ("მუხლი",
// "Article", "Статья"). The word is matched case-insensitively at line
// start; the label capture accepts plain and dotted numerals ("12", "49.1").
func NewHeaderPattern(name, word string) (HeaderPattern, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return HeaderPattern{}, fmt.Errorf("header pattern %q: empty word", name)
	}
	q := regexp.QuoteMeta(word)
	detect, err := regexp.Compile(`(?i)^\s*` + q + `\s+`)
	if err != nil {
		return HeaderPattern{}, fmt.Errorf("header pattern %q: %w", name, err)
	}
	label, err := regexp.Compile(`(?i)^\s*` + q + `\s+(\d+(?:\.\d+)*)(?:[.:)\s]|$)`)
	if err != nil {
		return HeaderPattern{}, fmt.Errorf("header pattern %q: %w", name, err)
	}
	return HeaderPattern{Name: name, detect: detect, label: label}, nil
}

// Detect reports whether the line looks like an article header.
func (p HeaderPattern) Detect(line string) bool {
	return p.detect.MatchString(line)
}

// Label extracts the article numeral from a header line. ok is false when
// the line detects as a header but the numeral is malformed.
func (p HeaderPattern) Label(line string) (article string, ok bool) {
	m := p.label.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// defaultHeaderWords is the built-in vocabulary. Configuration may extend
// or replace it; the segmenter always takes an explicit pattern slice.
var defaultHeaderWords = []struct{ name, word string }{
	{"ka", "მუხლი"},
	{"en", "Article"},
	{"ru", "Статья"},
}

// DefaultHeaderPatterns returns the built-in recognized-pattern table in
// stable order.
func DefaultHeaderPatterns() []HeaderPattern {
	out := make([]HeaderPattern, 0, len(defaultHeaderWords))
	for _, w := range defaultHeaderWords {
		p, err := NewHeaderPattern(w.name, w.word)
		if err != nil {
			panic(err) // static table, cannot fail
		}
		out = append(out, p)
	}
	return out
}
