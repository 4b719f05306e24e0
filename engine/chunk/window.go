package chunk

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

// Default window parameters, in approximate tokens.
const (
	DefaultTargetTokens  = 400
	DefaultOverlapTokens = 50
)

// Params configures the chunk windower. Both values are approximate tokens
// as counted by EstimateTokens. Callers supply them explicitly — the core
// reads no ambient configuration.
type Params struct {
	TargetTokens  int
	OverlapTokens int
}

// DefaultParams returns the stock window configuration.
func DefaultParams() Params {
	return Params{TargetTokens: DefaultTargetTokens, OverlapTokens: DefaultOverlapTokens}
}

// Span is one window over a section body. Offsets are byte offsets relative
// to the section text, inclusive-exclusive.
type Span struct {
	Start int
	End   int
}

// EstimateTokens approximates the token count of a text. The estimate is
// intentionally simple — whitespace-separated words times 1.33, with a
// rune-count floor for scripts that do not use spaces. The embedding
// provider's own tokenizer will disagree slightly; the windower only needs
// a stable, provider-agnostic measure.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	est := int(math.Ceil(float64(words) * 1.33))
	runes := utf8.RuneCountInString(text)
	// Scripts written without spaces defeat the word count; fall back to a
	// rune-based floor when fields are implausibly long.
	if words == 0 || runes/words > 12 {
		if alt := runes / 4; alt > est {
			est = alt
		}
	}
	if est == 0 && text != "" {
		est = 1
	}
	return est
}

// sentenceSeps are boundary candidates for window back-off, in priority
// order: paragraph break, line break, then sentence-ending punctuation.
var sentenceSeps = []string{"\n\n", "\n", ". ", "? ", "! "}

// Window subdivides a section into overlapping token-bounded spans. Window
// ends prefer a sentence or clause boundary found within a look-back budget
// of 20% of the window; when none is found the cut lands on the raw token
// limit. The next window starts OverlapTokens before the emitted end. A
// section shorter than TargetTokens yields exactly one span covering the
// whole section; an empty or whitespace-only section yields none.
func Window(sec domain.Section, p Params) ([]Span, error) {
	if err := domain.ValidateWindow(p.TargetTokens, p.OverlapTokens); err != nil {
		return nil, err
	}
	if sec.Empty() || strings.TrimSpace(sec.Text) == "" {
		return nil, nil
	}
	return windowText(sec.Text, p.TargetTokens, p.OverlapTokens), nil
}

func windowText(text string, target, overlap int) []Span {
	total := EstimateTokens(text)
	if total <= target {
		return []Span{{Start: 0, End: len(text)}}
	}

	// Project token counts onto byte lengths via the section-local average.
	avg := float64(len(text)) / float64(total)
	win := int(float64(target) * avg)
	if win < 1 {
		win = 1
	}
	over := int(float64(overlap) * avg)
	if over >= win {
		over = win - 1
	}
	lookback := win / 5
	if lookback < 1 {
		lookback = 1
	}

	var spans []Span
	start := 0
	for start < len(text) {
		end := start + win
		if end >= len(text) {
			spans = append(spans, Span{Start: start, End: len(text)})
			break
		}
		if cut := boundaryBack(text, start, end, lookback); cut > start {
			end = cut
		}
		end = alignRune(text, end, start)
		spans = append(spans, Span{Start: start, End: end})

		next := end - over
		if next <= start {
			next = start + 1
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return spans
}

// boundaryBack searches [end-lookback, end) for the latest occurrence of
// the highest-priority separator and returns the offset just past it, or 0
// when no separator is found in budget.
func boundaryBack(text string, start, end, lookback int) int {
	from := end - lookback
	if from <= start {
		from = start + 1
	}
	window := text[from:end]
	for _, sep := range sentenceSeps {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return from + idx + len(sep)
		}
	}
	return 0
}

// alignRune moves end back onto a rune boundary, never at or before start.
func alignRune(text string, end, start int) int {
	for end > start+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}
