// Package domain defines the core data model for the Norma pipeline:
// documents, article sections, chunks, and the validation gates applied at
// pipeline entry points.
package domain

import "fmt"

// Document is one source text to be indexed. Text is the normalized full
// text; all offsets downstream are relative to it. Immutable for the
// duration of an indexing run.
type Document struct {
	DocID  string `json:"doc_id"`
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

// Section is a contiguous span of a Document bounded by two consecutive
// article headers, or by document start/end for the first/last section.
// Article is empty for preamble text and for headers whose numeral could
// not be parsed. Start/End are character offsets into Document.Text,
// inclusive-exclusive. Sections partition the document: every character
// belongs to exactly one section and concatenating section texts in order
// reconstructs the document.
type Section struct {
	Article      string `json:"article,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Text         string `json:"text"`
}

// Empty reports whether the section has a zero-length body. Empty sections
// are retained by segmentation so that article numbering gaps stay visible,
// but they contribute no chunks.
func (s Section) Empty() bool { return s.End <= s.Start }

// Chunk is an overlapping window over one Section, carrying the section's
// identity fields. Start/End are document-absolute offsets. Chunks never
// cross a section boundary.
type Chunk struct {
	DocID        string `json:"doc_id"`
	Source       string `json:"source,omitempty"`
	Article      string `json:"article,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Text         string `json:"text"`
}

// Key returns the stable identity of a chunk within the corpus. The vector
// store derives its point ID from this value, so re-indexing an unchanged
// document overwrites rather than duplicates.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s-%d-%d", c.DocID, c.Start, c.End)
}
