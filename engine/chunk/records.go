package chunk

import "github.com/NormaAI/norma-mvp/engine/domain"

// Sectioned pairs a section with its window spans.
type Sectioned struct {
	Section domain.Section
	Spans   []Span
}

// BuildRecords translates section-relative spans into document-absolute
// chunk records, copying identity fields from the parent section. Pure
// transformation; it assigns no storage keys — the vector store derives
// point IDs from Chunk.Key.
func BuildRecords(doc domain.Document, parts []Sectioned) []domain.Chunk {
	var out []domain.Chunk
	for _, part := range parts {
		for _, sp := range part.Spans {
			start := part.Section.Start + sp.Start
			end := part.Section.Start + sp.End
			out = append(out, domain.Chunk{
				DocID:        doc.DocID,
				Source:       doc.Source,
				Article:      part.Section.Article,
				SectionTitle: part.Section.SectionTitle,
				Start:        start,
				End:          end,
				Text:         doc.Text[start:end],
			})
		}
	}
	return out
}
