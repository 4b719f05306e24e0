package graph

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Source lifecycle states.
const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

// SourceEntry tracks one corpus file through the indexing pipeline.
type SourceEntry struct {
	DocID      string     `json:"doc_id"`
	Path       string     `json:"path"`
	Checksum   string     `json:"checksum"`
	ChunkCount int        `json:"chunk_count"`
	IndexedAt  *time.Time `json:"indexed_at,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// SourceFilter specifies criteria for finding source entries.
type SourceFilter struct {
	DocID  string
	Status string
}

// SourceStats holds aggregate counts over the source registry.
type SourceStats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	TotalChunks int            `json:"total_chunks"`
}

// SourceChecksum produces a deterministic fingerprint of file content,
// used to detect changed sources between indexing runs.
func SourceChecksum(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

// SaveSourceEntry creates or updates a Source node in the graph.
func (g *GraphStore) SaveSourceEntry(ctx context.Context, e SourceEntry) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	props := map[string]any{
		"doc_id":      e.DocID,
		"path":        e.Path,
		"checksum":    e.Checksum,
		"chunk_count": e.ChunkCount,
		"status":      e.Status,
		"error":       e.Error,
	}
	if e.IndexedAt != nil {
		props["indexed_at"] = e.IndexedAt.Unix()
	}

	cypher := `MERGE (n:Source {doc_id: $doc_id}) SET n += $props`
	_, err := sess.Run(ctx, cypher, map[string]any{"doc_id": e.DocID, "props": props})
	return err
}

// FindSources returns source entries matching the given filter.
func (g *GraphStore) FindSources(ctx context.Context, f SourceFilter) ([]SourceEntry, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	where := "WHERE 1=1"
	params := map[string]any{}
	if f.DocID != "" {
		where += " AND n.doc_id = $doc_id"
		params["doc_id"] = f.DocID
	}
	if f.Status != "" {
		where += " AND n.status = $status"
		params["status"] = f.Status
	}

	cypher := fmt.Sprintf("MATCH (n:Source) %s RETURN n ORDER BY n.doc_id", where)
	result, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return collectSourceEntries(ctx, result)
}

// UpdateSourceStatus updates the status and error fields of a source entry.
// Reaching the indexed state also stamps indexed_at.
func (g *GraphStore) UpdateSourceStatus(ctx context.Context, docID, status, errMsg string) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Source {doc_id: $doc_id}) SET n.status = $status, n.error = $error`
	params := map[string]any{"doc_id": docID, "status": status, "error": errMsg}
	if status == StatusIndexed {
		cypher += `, n.indexed_at = $indexed_at`
		params["indexed_at"] = time.Now().Unix()
	}
	_, err := sess.Run(ctx, cypher, params)
	return err
}

// PendingSources returns sources not yet indexed, up to the limit.
func (g *GraphStore) PendingSources(ctx context.Context, limit int) ([]SourceEntry, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Source {status: "pending"}) RETURN n ORDER BY n.doc_id LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return collectSourceEntries(ctx, result)
}

// SourceStats returns aggregate counts over the source registry.
func (g *GraphStore) SourceStats(ctx context.Context) (SourceStats, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	stats := SourceStats{
		ByStatus: make(map[string]int),
	}

	cypher := `MATCH (n:Source) RETURN n.status AS status, count(n) AS cnt`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return stats, err
	}
	for result.Next(ctx) {
		rec := result.Record()
		s, _ := rec.Get("status")
		c, _ := rec.Get("cnt")
		if status, ok := s.(string); ok {
			if cnt, ok := c.(int64); ok {
				stats.ByStatus[status] = int(cnt)
				stats.Total += int(cnt)
			}
		}
	}
	if err := result.Err(); err != nil {
		return stats, err
	}

	cypher = `MATCH (n:Source) RETURN sum(n.chunk_count) AS chunks`
	result, err = sess.Run(ctx, cypher, nil)
	if err != nil {
		return stats, err
	}
	if result.Next(ctx) {
		if v, ok := result.Record().Get("chunks"); ok {
			if chunks, ok := v.(int64); ok {
				stats.TotalChunks = int(chunks)
			}
		}
	}

	return stats, nil
}

func collectSourceEntries(ctx context.Context, result CypherResult) ([]SourceEntry, error) {
	var entries []SourceEntry
	for result.Next(ctx) {
		nVal, ok := result.Record().Get("n")
		if !ok {
			continue
		}
		node, ok := nVal.(dbtype.Node)
		if !ok {
			continue
		}
		entries = append(entries, sourceFromProps(node.Props))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func sourceFromProps(p map[string]any) SourceEntry {
	e := SourceEntry{
		DocID:    strProp(p, "doc_id"),
		Path:     strProp(p, "path"),
		Checksum: strProp(p, "checksum"),
		Status:   strProp(p, "status"),
		Error:    strProp(p, "error"),
	}
	if v, ok := p["chunk_count"]; ok {
		switch n := v.(type) {
		case int64:
			e.ChunkCount = int(n)
		case float64:
			e.ChunkCount = int(n)
		}
	}
	if v, ok := p["indexed_at"]; ok {
		if ts, ok := v.(int64); ok {
			t := time.Unix(ts, 0)
			e.IndexedAt = &t
		}
	}
	return e
}
