// Package memory is the in-process docstore backend. It backs tests and the
// dependency-free development mode of the API.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"studwerk/internal/docstore"
)

type Store struct {
	mu          sync.Mutex
	ordered     bool
	collections map[string]map[string]map[string]any
	uniques     map[string][][]string
}

type Option func(*Store)

// WithoutOrdering makes ordered queries fail with ErrOrderUnsupported, the
// way a backend with a missing index would.
func WithoutOrdering() Option {
	return func(s *Store) { s.ordered = false }
}

// WithUniqueGuard rejects documents in the collection whose combination of
// the given field values already exists.
func WithUniqueGuard(collection string, fields ...string) Option {
	return func(s *Store) { s.uniques[collection] = append(s.uniques[collection], fields) }
}

func New(opts ...Option) *Store {
	s := &Store{
		ordered:     true,
		collections: make(map[string]map[string]map[string]any),
		uniques:     make(map[string][][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// RunTransaction holds the store lock for the whole callback, so the
// transaction observes and produces a consistent state. On error every write
// made inside the callback is rolled back.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshotLocked()
	if err := fn(ctx, txView{store: s}); err != nil {
		s.collections = snapshot
		return err
	}
	return nil
}

func (s *Store) snapshotLocked() map[string]map[string]map[string]any {
	snapshot := make(map[string]map[string]map[string]any, len(s.collections))
	for name, docs := range s.collections {
		copied := make(map[string]map[string]any, len(docs))
		for id, data := range docs {
			copied[id] = copyData(data)
		}
		snapshot[name] = copied
	}
	return snapshot
}

type txView struct {
	store *Store
}

func (t txView) Collection(name string) docstore.Collection {
	return &collection{store: t.store, name: name, inTx: true}
}

type collection struct {
	store *Store
	name  string
	inTx  bool
}

func (c *collection) lock() func() {
	if c.inTx {
		return func() {}
	}
	c.store.mu.Lock()
	return c.store.mu.Unlock
}

func (c *collection) Get(ctx context.Context, id string) (*docstore.Document, error) {
	defer c.lock()()
	data, ok := c.store.collections[c.name][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{ID: id, Data: copyData(data)}, nil
}

func (c *collection) Create(ctx context.Context, data map[string]any) (string, error) {
	defer c.lock()()
	for _, guard := range c.store.uniques[c.name] {
		if c.guardViolatedLocked(guard, data) {
			return "", docstore.ErrConflict
		}
	}
	docs, ok := c.store.collections[c.name]
	if !ok {
		docs = make(map[string]map[string]any)
		c.store.collections[c.name] = docs
	}
	id := uuid.NewString()
	docs[id] = copyData(data)
	return id, nil
}

func (c *collection) guardViolatedLocked(guard []string, data map[string]any) bool {
	for _, existing := range c.store.collections[c.name] {
		match := true
		for _, field := range guard {
			if stringField(existing, field) != stringField(data, field) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (c *collection) Update(ctx context.Context, id string, fields map[string]any) error {
	defer c.lock()()
	data, ok := c.store.collections[c.name][id]
	if !ok {
		return docstore.ErrNotFound
	}
	for key, value := range fields {
		data[key] = value
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	defer c.lock()()
	if _, ok := c.store.collections[c.name][id]; !ok {
		return docstore.ErrNotFound
	}
	delete(c.store.collections[c.name], id)
	return nil
}

func (c *collection) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	defer c.lock()()
	if q.OrderBy != "" && !c.store.ordered {
		return nil, docstore.ErrOrderUnsupported
	}
	var results []docstore.Document
	for id, data := range c.store.collections[c.name] {
		if matches(data, q.Filters) {
			results = append(results, docstore.Document{ID: id, Data: copyData(data)})
		}
	}
	if q.OrderBy != "" {
		sort.Slice(results, func(i, j int) bool {
			left := stringField(results[i].Data, q.OrderBy)
			right := stringField(results[j].Data, q.OrderBy)
			if q.Desc {
				return left > right
			}
			return left < right
		})
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func matches(data map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		if stringField(data, f.Field) != f.Value {
			return false
		}
	}
	return true
}

func stringField(data map[string]any, field string) string {
	value, _ := data[field].(string)
	return value
}

func copyData(data map[string]any) map[string]any {
	copied := make(map[string]any, len(data))
	for key, value := range data {
		copied[key] = value
	}
	return copied
}
