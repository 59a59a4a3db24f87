// Package btree provides the ordered, concurrency-safe (key -> arena
// pointer) index each pkg/delta shard uses to keep its versioned keys
// sorted. It wraps github.com/google/btree's generic B-Tree rather than
// hand-rolling node splits and latch crabbing: pkg/delta already spreads
// writes across a fixed number of shards by hashing, so a second layer of
// per-node latching inside each shard's tree buys no extra concurrency,
// only bookkeeping. One coarse-grained RWMutex per shard is enough.
package btree

import (
	"sync"

	"github.com/google/btree"

	"github.com/htapcore/engine/pkg/types"
)

const defaultDegree = 32

type entry struct {
	key types.Comparable
	ptr int64
}

func less(a, b entry) bool {
	return a.key.Compare(b.key) < 0
}

// Tree is an ordered map from types.Comparable keys to int64 arena
// pointers. The zero value is not usable; construct with NewTree.
type Tree struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// NewTree creates an empty tree. degree <= 0 falls back to a sensible
// default node fanout.
func NewTree(degree int) *Tree {
	if degree <= 0 {
		degree = defaultDegree
	}
	return &Tree{tree: btree.NewG(degree, less)}
}

// Upsert runs fn with the key's current pointer (and whether it already
// existed), then stores whatever fn returns. fn runs while the tree's
// write lock is held, so the read-modify-write is atomic with respect to
// every other Tree method.
func (t *Tree) Upsert(key types.Comparable, fn func(oldPtr int64, exists bool) (newPtr int64, err error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old, exists := t.tree.Get(entry{key: key})
	newPtr, err := fn(old.ptr, exists)
	if err != nil {
		return err
	}
	t.tree.ReplaceOrInsert(entry{key: key, ptr: newPtr})
	return nil
}

// Get returns the pointer stored at key, if any.
func (t *Tree) Get(key types.Comparable) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.tree.Get(entry{key: key})
	if !ok {
		return 0, false
	}
	return e.ptr, true
}

// Delete removes key, reporting whether it was present.
func (t *Tree) Delete(key types.Comparable) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.tree.Delete(entry{key: key})
	return ok
}

// Len reports the number of entries currently in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Len()
}

// Ascend calls fn with every entry in ascending key order, starting from
// the lowest key if from is nil or from the first key >= from otherwise.
// Stops early if fn returns false. Holds the tree's read lock for the
// whole walk, so fn must not call back into the same Tree.
func (t *Tree) Ascend(from types.Comparable, fn func(key types.Comparable, ptr int64) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	visit := func(e entry) bool { return fn(e.key, e.ptr) }
	if from == nil {
		t.tree.Ascend(visit)
		return
	}
	t.tree.AscendGreaterOrEqual(entry{key: from}, visit)
}
