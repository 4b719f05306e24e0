// Package repo defines a generic repository contract and its Neo4j
// implementation. The graph layer builds its typed stores on top of it.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Repository is generic CRUD over entities of type T keyed by ID.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	// Upsert creates the entity or overwrites its properties if it exists.
	Upsert(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
	Count(ctx context.Context) (int64, error)
}

// ListOpts controls pagination and property filtering.
type ListOpts struct {
	Offset int
	Limit  int
	// Filter matches node properties by equality.
	Filter map[string]any
}
