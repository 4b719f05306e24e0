package graph

import "context"

// Enricher expands an article into its citation neighborhood. The answer
// pipeline uses it to pull related provisions into retrieval context.
type Enricher struct {
	graph *GraphStore
}

// NewEnricher creates an Enricher.
func NewEnricher(gs *GraphStore) *Enricher {
	return &Enricher{graph: gs}
}

// Related returns up to limit articles connected to the given one by a
// single CITES edge, outgoing neighbors first. The article itself is
// excluded, as is anything seen twice.
func (e *Enricher) Related(ctx context.Context, docID, num string, limit int) ([]RelatedArticle, error) {
	if limit <= 0 {
		limit = 5
	}

	cited, err := e.graph.CitedArticles(ctx, docID, num)
	if err != nil {
		return nil, err
	}
	citing, err := e.graph.CitingArticles(ctx, docID, num)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{ArticleID(docID, num): true}
	var related []RelatedArticle
	for _, a := range cited {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		related = append(related, RelatedArticle{Article: a, Relation: RelationCites})
		if len(related) >= limit {
			return related, nil
		}
	}
	for _, a := range citing {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		related = append(related, RelatedArticle{Article: a, Relation: RelationCitedBy})
		if len(related) >= limit {
			break
		}
	}
	return related, nil
}
