package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// rows is the slice of neo4j result the repo consumes.
type rows interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// conn is the slice of a neo4j session the repo consumes.
type conn interface {
	Run(ctx context.Context, cypher string, params map[string]any) (rows, error)
	Close(ctx context.Context) error
}

// Neo4jRepo stores entities of type T as nodes with a single label. The
// caller supplies the property mapping both ways.
type Neo4jRepo[T any, ID comparable] struct {
	driver     neo4j.DriverWithContext
	label      string
	idKey      string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
	newConn    func(ctx context.Context) conn // test seam
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any, ID comparable] func(*Neo4jRepo[T, ID])

// WithIDKey overrides the identifying property name (default "id").
func WithIDKey[T any, ID comparable](key string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.idKey = key }
}

// NewNeo4jRepo builds a repository over nodes labeled label.
func NewNeo4jRepo[T any, ID comparable](
	driver neo4j.DriverWithContext,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T, ID],
) *Neo4jRepo[T, ID] {
	r := &Neo4jRepo[T, ID]{
		driver:     driver,
		label:      label,
		idKey:      "id",
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

// sessionConn adapts neo4j.SessionWithContext to conn.
type sessionConn struct {
	sess neo4j.SessionWithContext
}

func (c *sessionConn) Run(ctx context.Context, cypher string, params map[string]any) (rows, error) {
	return c.sess.Run(ctx, cypher, params)
}

func (c *sessionConn) Close(ctx context.Context) error {
	return c.sess.Close(ctx)
}

func (r *Neo4jRepo[T, ID]) conn(ctx context.Context) conn {
	if r.newConn != nil {
		return r.newConn(ctx)
	}
	return &sessionConn{sess: r.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

func (r *Neo4jRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var zero T
	c := r.conn(ctx)
	defer c.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) RETURN n", r.label, r.idKey)
	res, err := c.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return zero, err
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("%s %v: %w", r.label, id, ErrNotFound)
	}
	return r.fromRecord(res.Record())
}

func (r *Neo4jRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	c := r.conn(ctx)
	defer c.Close(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	params := map[string]any{"offset": opts.Offset, "limit": limit}

	var where string
	if len(opts.Filter) > 0 {
		keys := make([]string, 0, len(opts.Filter))
		for k := range opts.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		conds := make([]string, len(keys))
		for i, k := range keys {
			conds[i] = fmt.Sprintf("n.%s = $f_%s", k, k)
			params["f_"+k] = opts.Filter[k]
		}
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	cypher := fmt.Sprintf("MATCH (n:%s)%s RETURN n ORDER BY n.%s SKIP $offset LIMIT $limit",
		r.label, where, r.idKey)
	res, err := c.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var items []T
	for res.Next(ctx) {
		item, err := r.fromRecord(res.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Neo4jRepo[T, ID]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	c := r.conn(ctx)
	defer c.Close(ctx)

	cypher := fmt.Sprintf("CREATE (n:%s $props) RETURN n", r.label)
	res, err := c.Run(ctx, cypher, map[string]any{"props": r.toMap(entity)})
	if err != nil {
		return zero, err
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("create %s: no row returned", r.label)
	}
	return r.fromRecord(res.Record())
}

// Upsert merges on the ID property, so re-indexing the same corpus is
// idempotent.
func (r *Neo4jRepo[T, ID]) Upsert(ctx context.Context, entity T) (T, error) {
	var zero T
	c := r.conn(ctx)
	defer c.Close(ctx)

	props := r.toMap(entity)
	cypher := fmt.Sprintf("MERGE (n:%s {%s: $id}) SET n += $props RETURN n", r.label, r.idKey)
	res, err := c.Run(ctx, cypher, map[string]any{"id": props[r.idKey], "props": props})
	if err != nil {
		return zero, err
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("upsert %s: no row returned", r.label)
	}
	return r.fromRecord(res.Record())
}

func (r *Neo4jRepo[T, ID]) Update(ctx context.Context, entity T) (T, error) {
	var zero T
	c := r.conn(ctx)
	defer c.Close(ctx)

	props := r.toMap(entity)
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) SET n += $props RETURN n", r.label, r.idKey)
	res, err := c.Run(ctx, cypher, map[string]any{"id": props[r.idKey], "props": props})
	if err != nil {
		return zero, err
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("%s %v: %w", r.label, props[r.idKey], ErrNotFound)
	}
	return r.fromRecord(res.Record())
}

func (r *Neo4jRepo[T, ID]) Delete(ctx context.Context, id ID) error {
	c := r.conn(ctx)
	defer c.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) DETACH DELETE n", r.label, r.idKey)
	_, err := c.Run(ctx, cypher, map[string]any{"id": id})
	return err
}

func (r *Neo4jRepo[T, ID]) Count(ctx context.Context) (int64, error) {
	c := r.conn(ctx)
	defer c.Close(ctx)

	res, err := c.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n)", r.label), nil)
	if err != nil {
		return 0, err
	}
	if !res.Next(ctx) {
		return 0, fmt.Errorf("count %s: no row returned", r.label)
	}
	n, ok := res.Record().Values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("count %s: unexpected value %T", r.label, res.Record().Values[0])
	}
	return n, nil
}
