// Package graph maintains the legal knowledge graph in Neo4j: Law nodes,
// their Article nodes, CITES edges derived from in-text references, and the
// source registry tracking which corpus files have been indexed.
package graph

// Law is one statute in the corpus, keyed by its document ID.
type Law struct {
	DocID  string `json:"doc_id"`
	Source string `json:"source,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Article is one article of a law. ID is "<doc_id>:<num>"; Num keeps the
// numeral as printed, dotted for amendments ("73", "49.1").
type Article struct {
	ID    string `json:"id"`
	DocID string `json:"doc_id"`
	Num   string `json:"num"`
	Title string `json:"title,omitempty"`
}

// ArticleID builds the graph-wide article node ID.
func ArticleID(docID, num string) string {
	return docID + ":" + num
}

// Citation is a directed reference from one article to another, with the
// extractor's confidence. A reference that names no law stays within the
// citing document.
type Citation struct {
	FromDocID  string  `json:"from_doc_id"`
	FromNum    string  `json:"from_num"`
	ToDocID    string  `json:"to_doc_id"`
	ToNum      string  `json:"to_num"`
	Confidence float64 `json:"confidence,omitempty"`
}

// RelatedArticle is a citation neighbor of an article, labeled with the
// edge direction as seen from that article.
type RelatedArticle struct {
	Article
	Relation string `json:"relation"`
}

// Relation values for RelatedArticle.
const (
	RelationCites   = "cites"
	RelationCitedBy = "cited_by"
)
