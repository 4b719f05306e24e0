package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/NormaAI/norma-mvp/pkg/repo"
)

// CypherResult iterates records returned by a Cypher query.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// CypherRunner executes a single Cypher query. Sessions and managed
// transactions both satisfy it.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is one unit of graph work.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener hands out sessions. The Neo4j driver satisfies it through
// driverOpener; tests substitute their own.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o driverOpener) OpenSession(ctx context.Context) CypherSession {
	return driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(txRunner{tx: tx})
	})
}

func (s driverSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r txRunner) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Connect opens a Neo4j driver and verifies the server is reachable.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}
	return driver, nil
}

// GraphStore reads and writes the citation graph.
type GraphStore struct {
	opener SessionOpener
}

// New creates a GraphStore on a Neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return NewWithOpener(driverOpener{driver: driver})
}

// NewWithOpener creates a GraphStore on a custom session opener.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

// SaveLaw creates or updates a Law node keyed by document ID.
func (g *GraphStore) SaveLaw(ctx context.Context, law Law) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		return nil, saveLawTx(ctx, tx, law)
	})
	return err
}

func saveLawTx(ctx context.Context, tx CypherRunner, law Law) error {
	if law.DocID == "" {
		return fmt.Errorf("graph: law has no doc_id")
	}
	cypher := `MERGE (l:Law {doc_id: $doc_id})
	           SET l.source = $source, l.title = $title`
	_, err := tx.Run(ctx, cypher, map[string]any{
		"doc_id": law.DocID,
		"source": law.Source,
		"title":  law.Title,
	})
	if err != nil {
		return fmt.Errorf("graph: save law %s: %w", law.DocID, err)
	}
	return nil
}

// SaveBatch writes a law, its articles, and citation edges in a single
// transaction. Articles merge on their graph ID, so re-indexing a document
// updates titles in place. Citation endpoints not in the batch get stub
// Article nodes carrying only id, num, and doc_id; indexing that law later
// fills them in.
func (g *GraphStore) SaveBatch(ctx context.Context, law Law, articles []Article, citations []Citation) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		if err := saveLawTx(ctx, tx, law); err != nil {
			return nil, err
		}
		for _, a := range articles {
			if a.ID == "" {
				a.ID = ArticleID(a.DocID, a.Num)
			}
			cypher := `MERGE (a:Article {id: $id})
			           SET a.num = $num, a.doc_id = $doc_id, a.title = $title
			           WITH a
			           MATCH (l:Law {doc_id: $doc_id})
			           MERGE (l)-[:HAS_ARTICLE]->(a)`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"id":     a.ID,
				"num":    a.Num,
				"doc_id": a.DocID,
				"title":  a.Title,
			}); err != nil {
				return nil, fmt.Errorf("graph: save article %s: %w", a.ID, err)
			}
		}
		for _, c := range citations {
			fromID := ArticleID(c.FromDocID, c.FromNum)
			toID := ArticleID(c.ToDocID, c.ToNum)
			if fromID == toID {
				continue
			}
			cypher := `MERGE (a:Article {id: $from_id})
			           ON CREATE SET a.num = $from_num, a.doc_id = $from_doc
			           MERGE (b:Article {id: $to_id})
			           ON CREATE SET b.num = $to_num, b.doc_id = $to_doc
			           MERGE (a)-[r:CITES]->(b)
			           SET r.confidence = $confidence`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"from_id":    fromID,
				"from_num":   c.FromNum,
				"from_doc":   c.FromDocID,
				"to_id":      toID,
				"to_num":     c.ToNum,
				"to_doc":     c.ToDocID,
				"confidence": c.Confidence,
			}); err != nil {
				return nil, fmt.Errorf("graph: save citation %s->%s: %w", fromID, toID, err)
			}
		}
		return nil, nil
	})
	return err
}

// GetArticle returns one article by law and numeral, or repo.ErrNotFound.
func (g *GraphStore) GetArticle(ctx context.Context, docID, num string) (Article, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Article {id: $id}) RETURN n`,
		map[string]any{"id": ArticleID(docID, num)})
	if err != nil {
		return Article{}, err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return Article{}, err
		}
		return Article{}, fmt.Errorf("article %s of %s: %w", num, docID, repo.ErrNotFound)
	}
	return articleFromRecord(result.Record())
}

// ArticlesOfLaw lists the articles attached to a law. Ordering by numeral
// length then value approximates numeric order for dotted numerals.
func (g *GraphStore) ArticlesOfLaw(ctx context.Context, docID string) ([]Article, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:Law {doc_id: $doc_id})-[:HAS_ARTICLE]->(n:Article)
	           RETURN n ORDER BY size(n.num), n.num`
	result, err := sess.Run(ctx, cypher, map[string]any{"doc_id": docID})
	if err != nil {
		return nil, err
	}
	return collectArticles(ctx, result)
}

// CitedArticles returns the articles the given article cites.
func (g *GraphStore) CitedArticles(ctx context.Context, docID, num string) ([]Article, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:Article {id: $id})-[:CITES]->(n:Article)
	           RETURN n ORDER BY size(n.num), n.num`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": ArticleID(docID, num)})
	if err != nil {
		return nil, err
	}
	return collectArticles(ctx, result)
}

// CitingArticles returns the articles that cite the given article.
func (g *GraphStore) CitingArticles(ctx context.Context, docID, num string) ([]Article, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Article)-[:CITES]->(:Article {id: $id})
	           RETURN n ORDER BY size(n.num), n.num`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": ArticleID(docID, num)})
	if err != nil {
		return nil, err
	}
	return collectArticles(ctx, result)
}

// CitationPath finds the shortest citation chain between two articles,
// following CITES edges in either direction.
func (g *GraphStore) CitationPath(ctx context.Context, fromDocID, fromNum, toDocID, toNum string) ([]Article, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	fromID := ArticleID(fromDocID, fromNum)
	toID := ArticleID(toDocID, toNum)
	cypher := `MATCH p = shortestPath((a:Article {id: $from_id})-[:CITES*..6]-(b:Article {id: $to_id}))
	           RETURN nodes(p) AS nodes`
	result, err := sess.Run(ctx, cypher, map[string]any{"from_id": fromID, "to_id": toID})
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("citation path %s -> %s: %w", fromID, toID, repo.ErrNotFound)
	}

	nodesVal, ok := result.Record().Get("nodes")
	if !ok {
		return nil, fmt.Errorf("no nodes in path result")
	}
	nodeList, ok := nodesVal.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected nodes type %T", nodesVal)
	}

	var articles []Article
	for _, raw := range nodeList {
		node, ok := raw.(dbtype.Node)
		if !ok {
			continue
		}
		articles = append(articles, articleFromProps(node.Props))
	}
	return articles, nil
}

// DeleteLaw removes a law, its articles, and every edge touching them.
func (g *GraphStore) DeleteLaw(ctx context.Context, docID string) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		cypher := `MATCH (l:Law {doc_id: $doc_id})
		           OPTIONAL MATCH (l)-[:HAS_ARTICLE]->(a:Article)
		           DETACH DELETE l, a`
		return tx.Run(ctx, cypher, map[string]any{"doc_id": docID})
	})
	return err
}

// collectArticles reads all Article nodes from a result set.
func collectArticles(ctx context.Context, result CypherResult) ([]Article, error) {
	var articles []Article
	for result.Next(ctx) {
		a, err := articleFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

func articleFromRecord(rec *neo4j.Record) (Article, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Article{}, err
	}
	return articleFromProps(node.Props), nil
}

// articleFromProps constructs an Article from Neo4j node properties.
func articleFromProps(props map[string]any) Article {
	return Article{
		ID:    strProp(props, "id"),
		DocID: strProp(props, "doc_id"),
		Num:   strProp(props, "num"),
		Title: strProp(props, "title"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
