package chunk

import (
	"fmt"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

// Result is the output of chunking one document: the normalized document,
// its ordered sections, the flat ordered chunk sequence, and the number of
// ambiguous headers encountered.
type Result struct {
	Doc       domain.Document
	Sections  []domain.Section
	Chunks    []domain.Chunk
	Ambiguous int
}

// Pipeline runs normalize → segment → window → build for one document at a
// time. It holds only immutable configuration, so a single Pipeline may be
// shared across goroutines, one document per call.
type Pipeline struct {
	seg    *Segmenter
	params Params
}

// NewPipeline validates the window parameters up front and builds the
// pipeline. An invalid configuration fails here, before any document is
// processed.
func NewPipeline(p Params, patterns ...domain.HeaderPattern) (*Pipeline, error) {
	if err := domain.ValidateWindow(p.TargetTokens, p.OverlapTokens); err != nil {
		return nil, fmt.Errorf("chunk pipeline: %w", err)
	}
	return &Pipeline{seg: NewSegmenter(patterns...), params: p}, nil
}

// Run chunks a single raw document. The document text is normalized first;
// all offsets in the result refer to the normalized text.
func (pl *Pipeline) Run(doc domain.Document) (Result, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return Result{}, fmt.Errorf("chunk %s: %w", doc.DocID, err)
	}

	doc.Text = Normalize(doc.Text)
	segRes := pl.seg.Segment(doc.Text)

	parts := make([]Sectioned, 0, len(segRes.Sections))
	for _, sec := range segRes.Sections {
		spans, err := Window(sec, pl.params)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %s: %w", doc.DocID, err)
		}
		parts = append(parts, Sectioned{Section: sec, Spans: spans})
	}

	return Result{
		Doc:       doc,
		Sections:  segRes.Sections,
		Chunks:    BuildRecords(doc, parts),
		Ambiguous: segRes.Ambiguous,
	}, nil
}

// ChunkDocument is the one-shot entry point with the built-in header
// patterns. The configuration is explicit; there are no ambient defaults.
func ChunkDocument(doc domain.Document, p Params) (Result, error) {
	pl, err := NewPipeline(p)
	if err != nil {
		return Result{}, err
	}
	return pl.Run(doc)
}
