package graph

import (
	"context"
)

// LawStats summarizes one law in the graph.
type LawStats struct {
	DocID    string `json:"doc_id"`
	Title    string `json:"title,omitempty"`
	Articles int64  `json:"articles"`
	Cites    int64  `json:"cites"`
}

// ArticleStats summarizes how often an article is cited.
type ArticleStats struct {
	ID      string `json:"id"`
	DocID   string `json:"doc_id"`
	Num     string `json:"num"`
	Title   string `json:"title,omitempty"`
	CitedBy int64  `json:"cited_by"`
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, result.Err()
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, result.Err()
}

// LawOverview returns per-law article and outgoing citation counts,
// largest laws first.
func (g *GraphStore) LawOverview(ctx context.Context) ([]LawStats, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (l:Law)
		OPTIONAL MATCH (l)-[:HAS_ARTICLE]->(a:Article)
		OPTIONAL MATCH (a)-[c:CITES]->(:Article)
		RETURN l.doc_id AS doc_id, l.title AS title,
		       count(DISTINCT a) AS articles, count(DISTINCT c) AS cites
		ORDER BY articles DESC`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	var stats []LawStats
	for result.Next(ctx) {
		rec := result.Record()
		docID, _ := rec.Get("doc_id")
		title, _ := rec.Get("title")
		articles, _ := rec.Get("articles")
		cites, _ := rec.Get("cites")
		s := LawStats{}
		if d, ok := docID.(string); ok {
			s.DocID = d
		}
		if t, ok := title.(string); ok {
			s.Title = t
		}
		if a, ok := articles.(int64); ok {
			s.Articles = a
		}
		if c, ok := cites.(int64); ok {
			s.Cites = c
		}
		stats = append(stats, s)
	}
	return stats, result.Err()
}

// TopCited returns the most-cited articles across the corpus.
func (g *GraphStore) TopCited(ctx context.Context, limit int) ([]ArticleStats, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Article)
		OPTIONAL MATCH (:Article)-[c:CITES]->(n)
		WITH n, count(c) AS cited_by
		WHERE cited_by > 0
		RETURN n.id AS id, n.doc_id AS doc_id, n.num AS num, n.title AS title, cited_by
		ORDER BY cited_by DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var stats []ArticleStats
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		docID, _ := rec.Get("doc_id")
		num, _ := rec.Get("num")
		title, _ := rec.Get("title")
		citedBy, _ := rec.Get("cited_by")
		s := ArticleStats{}
		if v, ok := id.(string); ok {
			s.ID = v
		}
		if v, ok := docID.(string); ok {
			s.DocID = v
		}
		if v, ok := num.(string); ok {
			s.Num = v
		}
		if v, ok := title.(string); ok {
			s.Title = v
		}
		if v, ok := citedBy.(int64); ok {
			s.CitedBy = v
		}
		stats = append(stats, s)
	}
	return stats, result.Err()
}

// RecentlyIndexed returns the sources most recently marked indexed.
func (g *GraphStore) RecentlyIndexed(ctx context.Context, limit int) ([]SourceEntry, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Source)
		WHERE n.indexed_at IS NOT NULL
		RETURN n ORDER BY n.indexed_at DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return collectSourceEntries(ctx, result)
}
