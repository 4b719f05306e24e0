package chunk

import (
	"strings"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

// Segmenter splits normalized text into ordered sections at article-header
// boundaries. Headers are matched only at line start against a
// recognized-pattern table; numerals inside body text (citations of other
// articles) never open a section.
type Segmenter struct {
	patterns []domain.HeaderPattern
}

// NewSegmenter builds a segmenter. With no patterns it uses the built-in
// table (Georgian, English, Russian article words).
func NewSegmenter(patterns ...domain.HeaderPattern) *Segmenter {
	if len(patterns) == 0 {
		patterns = domain.DefaultHeaderPatterns()
	}
	return &Segmenter{patterns: patterns}
}

// SegmentResult carries the ordered sections plus the count of
// header-looking lines whose article numeral could not be parsed. Those
// sections are kept with an empty Article and the raw line as title.
type SegmentResult struct {
	Sections  []domain.Section
	Ambiguous int
}

type headerMark struct {
	offset  int
	article string
	title   string
}

// Segment produces sections that partition [0, len(text)): offsets are
// contiguous, and concatenating section texts in order reconstructs the
// input. Text before the first header becomes a leading section with no
// article label; with no headers at all the whole text is one such section.
// A section's text includes its own header line.
func (s *Segmenter) Segment(text string) SegmentResult {
	var res SegmentResult
	if text == "" {
		return res
	}

	var marks []headerMark
	off := 0
	for off < len(text) {
		lineEnd := strings.IndexByte(text[off:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = text[off:]
			next = len(text)
		} else {
			line = text[off : off+lineEnd]
			next = off + lineEnd + 1
		}

		for _, p := range s.patterns {
			if !p.Detect(line) {
				continue
			}
			m := headerMark{offset: off, title: strings.TrimSpace(line)}
			if label, ok := p.Label(line); ok {
				m.article = label
			} else {
				res.Ambiguous++
			}
			marks = append(marks, m)
			break
		}
		off = next
	}

	if len(marks) == 0 {
		res.Sections = []domain.Section{{Start: 0, End: len(text), Text: text}}
		return res
	}

	if marks[0].offset > 0 {
		res.Sections = append(res.Sections, domain.Section{
			Start: 0,
			End:   marks[0].offset,
			Text:  text[:marks[0].offset],
		})
	}
	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1].offset
		}
		res.Sections = append(res.Sections, domain.Section{
			Article:      m.article,
			SectionTitle: m.title,
			Start:        m.offset,
			End:          end,
			Text:         text[m.offset:end],
		})
	}
	return res
}
