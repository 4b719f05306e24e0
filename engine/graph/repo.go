package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/NormaAI/norma-mvp/pkg/repo"
)

// NewLawRepo creates a generic Neo4j-backed repository over Law nodes, for
// tooling that wants plain listing and paging without the citation queries.
func NewLawRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Law, string] {
	return repo.NewNeo4jRepo[Law, string](
		driver,
		"Law",
		lawToMap,
		lawFromRecord,
		repo.WithIDKey[Law, string]("doc_id"),
	)
}

func lawToMap(l Law) map[string]any {
	return map[string]any{
		"doc_id": l.DocID,
		"source": l.Source,
		"title":  l.Title,
	}
}

func lawFromRecord(rec *neo4j.Record) (Law, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Law{}, err
	}
	return Law{
		DocID:  strProp(node.Props, "doc_id"),
		Source: strProp(node.Props, "source"),
		Title:  strProp(node.Props, "title"),
	}, nil
}
