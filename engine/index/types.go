package index

import (
	"strings"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

// Job is one indexing request carried over NATS. The path is resolved on
// the consumer host; indexer replicas share the corpus volume.
type Job struct {
	Path    string `json:"path"`
	Rebuild bool   `json:"rebuild,omitempty"`
}

// ChunkedDoc is a document after segmentation and windowing.
type ChunkedDoc struct {
	Doc       domain.Document
	Sections  []domain.Section
	Chunks    []domain.Chunk
	Ambiguous int
}

// EmbeddedDoc pairs each chunk with its vector, aligned by index.
type EmbeddedDoc struct {
	ChunkedDoc
	Embeddings [][]float32
}

// Receipt summarizes one document run. Ambiguous counts header-looking
// lines whose numeral could not be parsed.
type Receipt struct {
	DocID     string
	Source    string
	Chunks    int
	Articles  int
	Citations int
	Ambiguous int
	Skipped   bool
}

// Summary totals one corpus run.
type Summary struct {
	Indexed int
	Skipped int
	Failed  int
	Chunks  int
}

// DeriveTitle returns the document's display title: the first non-blank
// line of the text, truncated to 120 runes. Statute files open with the
// act's official name; a document whose first content line is already an
// article header has no title line, so the result is empty.
func DeriveTitle(text string) string {
	patterns := domain.DefaultHeaderPatterns()
	for len(text) > 0 {
		line := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			text = ""
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range patterns {
			if p.Detect(line) {
				return ""
			}
		}
		if r := []rune(line); len(r) > 120 {
			return string(r[:120])
		}
		return line
	}
	return ""
}
