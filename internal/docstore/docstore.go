// Package docstore defines the document-store contract the repositories are
// built on: collections of schemaless documents addressed by generated ids,
// with equality-filter queries and best-effort ordering.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no document exists under the given id.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrConflict is returned when a write violates a unique guard.
	ErrConflict = errors.New("docstore: unique guard violated")
	// ErrOrderUnsupported is the capability error for backends that cannot
	// satisfy an ordered query. Callers fall back to an unordered fetch and
	// sort locally.
	ErrOrderUnsupported = errors.New("docstore: ordering not supported")
	// ErrUnavailable signals a transient backend failure; safe to retry.
	ErrUnavailable = errors.New("docstore: backend unavailable")
)

type Filter struct {
	Field string
	Value string
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

type Document struct {
	ID   string
	Data map[string]any
}

type Collection interface {
	Get(ctx context.Context, id string) (*Document, error)
	// Create stores the document under a freshly generated id and returns it.
	Create(ctx context.Context, data map[string]any) (string, error)
	// Update merges the given fields into the existing document.
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Tx exposes collections bound to a transaction. Every write made through a
// Tx becomes visible atomically when the transaction commits.
type Tx interface {
	Collection(name string) Collection
}

type Store interface {
	Collection(name string) Collection
	// RunTransaction runs fn atomically with serializable semantics: two
	// concurrent transactions behave as if run one after the other, so
	// read-check-write sequences inside fn cannot act on stale reads. fn may
	// be invoked more than once and must be safe to rerun from scratch.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
