// Package registry provides the in-memory keyed stores behind the client,
// invoice and product endpoints.
package registry

import (
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/talkincode/toughcrm/internal/domain"
)

// Entity is anything stored in a Registry
type Entity interface {
	Key() int64
}

const btreeDegree = 16

type entry[T Entity] struct {
	id  int64
	rec T
}

func lessEntry[T Entity](a, b entry[T]) bool {
	return a.id < b.id
}

// Registry is a concurrency-safe store of T keyed by T.Key().
// Create is an atomic insert-if-absent; reads return copies.
type Registry[T Entity] struct {
	name string
	mu   sync.RWMutex
	tree *btree.BTreeG[entry[T]]
}

func New[T Entity](name string) *Registry[T] {
	return &Registry[T]{
		name: name,
		tree: btree.NewG[entry[T]](btreeDegree, lessEntry[T]),
	}
}

// Name returns the registry name, e.g. "clientes"
func (r *Registry[T]) Name() string {
	return r.name
}

// Create inserts rec unless its id is already present.
func (r *Registry[T]) Create(rec T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tree.Has(entry[T]{id: rec.Key()}) {
		var zero T
		return zero, errors.Wrapf(domain.ErrConflict, "%s id %d", r.name, rec.Key())
	}
	r.tree.ReplaceOrInsert(entry[T]{id: rec.Key(), rec: rec})
	return rec, nil
}

// Upsert inserts rec or overwrites the record with the same id.
// It reports whether an existing record was replaced.
func (r *Registry[T]) Upsert(rec T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.tree.ReplaceOrInsert(entry[T]{id: rec.Key(), rec: rec})
	return replaced
}

// Merge is Upsert where an existing record is combined with rec by merge
// under the same lock. It reports whether a record was replaced.
func (r *Registry[T]) Merge(rec T, merge func(existing, incoming T) T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := entry[T]{id: rec.Key(), rec: rec}
	if old, ok := r.tree.Get(e); ok {
		e.rec = merge(old.rec, rec)
	}
	_, replaced := r.tree.ReplaceOrInsert(e)
	return replaced
}

func (r *Registry[T]) Get(id int64) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tree.Get(entry[T]{id: id})
	if !ok {
		return e.rec, errors.Wrapf(domain.ErrNotFound, "%s id %d", r.name, id)
	}
	return e.rec, nil
}

// List returns every record ordered by ascending id
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]T, 0, r.tree.Len())
	r.tree.Ascend(func(e entry[T]) bool {
		items = append(items, e.rec)
		return true
	})
	return items
}

// Ascend calls fn for each record in id order until fn returns false.
// fn runs under the read lock and must not call back into the registry.
func (r *Registry[T]) Ascend(fn func(T) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.tree.Ascend(func(e entry[T]) bool {
		return fn(e.rec)
	})
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}
