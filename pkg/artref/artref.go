// Package artref extracts article references from legal text. It recognizes
// Georgian citation forms in any case ending ("მუხლი 73", "152-ე მუხლის",
// "მე-5 მუხლით"), English and Russian equivalents, and dotted article
// numerals introduced by amendment ("49.1"). No external dependencies.
package artref

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ref is one article reference found in text.
type Ref struct {
	Article    string  // normalized numeral, e.g. "73" or "49.1"
	Law        string  // law id when the surrounding text names one, else ""
	Confidence float64 // 0.0-1.0
	Span       string  // the matched fragment
}

// lawStems map fragments of law names to corpus document ids. Stems rather
// than full names, so Georgian case endings still match.
var lawStems = []struct{ stem, id string }{
	{"სამოქალაქო კოდექს", "civil-code"},
	{"სისხლის სამართლის კოდექს", "criminal-code"},
	{"შრომის კოდექს", "labor-code"},
	{"საგადასახადო კოდექს", "tax-code"},
	{"კონსტიტუცი", "constitution"},
	{"civil code", "civil-code"},
	{"criminal code", "criminal-code"},
	{"labor code", "labor-code"},
	{"tax code", "tax-code"},
	{"constitution", "constitution"},
	{"гражданск", "civil-code"},
	{"уголовн", "criminal-code"},
	{"трудов", "labor-code"},
}

var (
	// artWordRe finds the article word. The Georgian stem swallows any
	// case ending; \w is ASCII-only in RE2, so the suffix class is spelled
	// out per script.
	artWordRe = regexp.MustCompile(`(?i)(მუხლ[ა-ჰ]*|მუხ\.|articles?|art\.|стать[а-яё]*|ст\.)`)
	// numRe matches an article numeral, optionally dotted.
	numRe = regexp.MustCompile(`\d+(?:\.\d+)*`)
	// ordinalRe matches Georgian ordinal numerals: "152-ე" and "მე-5".
	ordinalRe = regexp.MustCompile(`მე-(\d+(?:\.\d+)*)|(\d+(?:\.\d+)*)-ე`)
)

var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

// Extract finds all article references in text, sorted by confidence.
func Extract(text string) []Ref {
	if text == "" {
		return nil
	}
	text = foldSuperscripts(text)

	var refs []Ref
	seen := make(map[string]bool)
	add := func(r Ref) {
		key := r.Law + "|" + r.Article
		if seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, r)
	}

	for _, loc := range artWordRe.FindAllStringIndex(text, -1) {
		if !standalone(text, loc[0], loc[1]) {
			continue
		}
		law := lawBefore(text, loc[0])

		// Citation form: the word followed by the numeral, "მუხლი 73".
		if num, end, ok := numberAfter(text, loc[1]); ok {
			conf := 0.90
			if law != "" {
				conf = 0.95
			}
			add(Ref{
				Article:    num,
				Law:        law,
				Confidence: conf,
				Span:       strings.TrimSpace(text[loc[0]:end]),
			})
			continue
		}

		// Inflected form: ordinals before the word, "152-ე და 153-ე მუხლები".
		// Nearest first; list members carried over და/comma rank lower.
		for i, num := range ordinalsBefore(text, loc[0]) {
			conf := 0.85
			if law != "" {
				conf = 0.92
			}
			if i > 0 {
				conf = 0.70
			}
			add(Ref{
				Article:    num,
				Law:        law,
				Confidence: conf,
				Span:       spanAround(text, loc[0], loc[1]),
			})
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Confidence > refs[j].Confidence
	})
	return refs
}

// ExtractBest returns the single highest-confidence reference, or nil.
func ExtractBest(text string) *Ref {
	refs := Extract(text)
	if len(refs) == 0 {
		return nil
	}
	return &refs[0]
}

// Articles returns the distinct article numerals of refs in order.
func Articles(refs []Ref) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range refs {
		if !seen[r.Article] {
			seen[r.Article] = true
			out = append(out, r.Article)
		}
	}
	return out
}

// standalone reports whether the match at [start, end) is not embedded in a
// longer word, e.g. "მუხლ" inside "სამუხლო".
func standalone(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// numberAfter looks for a numeral directly after the article word.
func numberAfter(text string, wordEnd int) (num string, end int, ok bool) {
	to := wordEnd + 12
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	win := text[wordEnd:to]
	m := numRe.FindStringIndex(win)
	if m == nil || strings.TrimSpace(win[:m[0]]) != "" {
		return "", 0, false
	}
	return win[m[0]:m[1]], wordEnd + m[1], true
}

// ordinalsBefore collects ordinal numerals ending right before the article
// word, walking left through list separators. Returns nearest first.
func ordinalsBefore(text string, wordStart int) []string {
	from := wordStart - 48
	if from < 0 {
		from = 0
	}
	for from < wordStart && !utf8.RuneStart(text[from]) {
		from++
	}
	win := text[from:wordStart]

	ms := ordinalRe.FindAllStringSubmatchIndex(win, -1)
	if len(ms) == 0 {
		return nil
	}
	last := ms[len(ms)-1]
	if strings.TrimSpace(win[last[1]:]) != "" {
		return nil
	}

	out := []string{ordinalNumber(win, last)}
	for i := len(ms) - 2; i >= 0; i-- {
		sep := strings.TrimSpace(win[ms[i][1]:ms[i+1][0]])
		if sep != "," && sep != "და" && sep != "and" && sep != "и" {
			break
		}
		out = append(out, ordinalNumber(win, ms[i]))
	}
	return out
}

func ordinalNumber(win string, m []int) string {
	if m[2] >= 0 { // მე-N form
		return win[m[2]:m[3]]
	}
	return win[m[4]:m[5]] // N-ე form
}

// lawBefore looks back for a law name stem, nearest wins.
func lawBefore(text string, wordStart int) string {
	from := wordStart - 120
	if from < 0 {
		from = 0
	}
	for from < wordStart && !utf8.RuneStart(text[from]) {
		from++
	}
	win := strings.ToLower(text[from:wordStart])

	best, bestIdx := "", -1
	for _, ls := range lawStems {
		if idx := strings.LastIndex(win, ls.stem); idx > bestIdx {
			best, bestIdx = ls.id, idx
		}
	}
	return best
}

// spanAround returns a trimmed fragment around the article word for Ref.Span.
func spanAround(text string, start, end int) string {
	from := start - 24
	if from < 0 {
		from = 0
	}
	for from < start && !utf8.RuneStart(text[from]) {
		from++
	}
	return strings.TrimSpace(text[from:end])
}

// foldSuperscripts rewrites superscript numeral suffixes to dotted form, so
// "49¹" reads "49.1". Raw queries carry these; corpus text is already folded
// at extraction time.
func foldSuperscripts(text string) string {
	if !strings.ContainsFunc(text, func(r rune) bool {
		_, ok := superscripts[r]
		return ok
	}) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 4)
	prevDigit, inSuper := false, false
	for _, r := range text {
		if d, ok := superscripts[r]; ok {
			if prevDigit && !inSuper {
				b.WriteByte('.')
			}
			b.WriteRune(d)
			inSuper = true
			prevDigit = false
			continue
		}
		inSuper = false
		prevDigit = r >= '0' && r <= '9'
		b.WriteRune(r)
	}
	return b.String()
}
