package semantic

import "github.com/NormaAI/norma-mvp/engine/domain"

// SearchResult is one similarity hit with the provenance fields stored in
// its payload. Article is empty for preamble chunks.
type SearchResult struct {
	ID           string  `json:"id"`
	Score        float32 `json:"score"`
	Text         string  `json:"text"`
	DocID        string  `json:"doc_id"`
	Source       string  `json:"source,omitempty"`
	Article      string  `json:"article,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
}

// VectorRecord is one embedded chunk ready for upsert. ID is the
// deterministic point UUID derived from the chunk key, so re-indexing an
// unchanged document overwrites its points in place.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Chunk     domain.Chunk
}

// SearchOpts tunes a similarity query. TopK of zero falls back to 10,
// MinScore of zero disables the score threshold, and DocID/Article narrow
// the search to one document or one article.
type SearchOpts struct {
	TopK     int
	MinScore float32
	DocID    string
	Article  string
}
