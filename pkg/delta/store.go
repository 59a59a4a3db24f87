// Package delta is Tier 1: an in-memory, lock-sharded ordered map holding
// the most recently written versions of each row before they are flushed to
// the persistent backend.
package delta

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/htapcore/engine/pkg/btree"
	"github.com/htapcore/engine/pkg/types"
)

const defaultShardCount = 16
const defaultBTreeDegree = 32

// Store is a table's Tier 1 delta: its rows are spread across a fixed
// number of independently-locked ordered-tree shards, so writers to
// different key ranges rarely contend. Routing is by xxhash of the table
// name combined with the key, matching the teacher's table-to-shard
// hashing idea but applied one level lower, per-key.
type Store struct {
	shards      []*shard
	shardCount  uint64
	approxBytes int64
}

type shard struct {
	tree  *btree.Tree
	arena sync.Map // int64 -> []byte
	next  int64
}

// New creates an empty delta store with shardCount shards (defaultShardCount
// if <= 0).
func New(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	s := &Store{
		shards:     make([]*shard, shardCount),
		shardCount: uint64(shardCount),
	}
	for i := range s.shards {
		s.shards[i] = &shard{tree: btree.NewTree(defaultBTreeDegree)}
	}
	return s
}

func (s *Store) shardFor(key []byte) *shard {
	h := xxhash.Sum64(key)
	return s.shards[h%s.shardCount]
}

// Put inserts or overwrites the versioned key with value (already MVCC
// value-framed by the caller), freeing the arena slot of any prior value at
// that exact key.
func (s *Store) Put(key, value []byte) error {
	sh := s.shardFor(key)
	id := atomic.AddInt64(&sh.next, 1)

	v := make([]byte, len(value))
	copy(v, value)
	sh.arena.Store(id, v)

	err := sh.tree.Upsert(ByteKey(append([]byte{}, key...)), func(oldPtr int64, exists bool) (int64, error) {
		if exists {
			sh.arena.Delete(oldPtr)
		}
		return id, nil
	})
	if err != nil {
		sh.arena.Delete(id)
		return err
	}

	atomic.AddInt64(&s.approxBytes, int64(len(key)+len(value)))
	return nil
}

// Get returns the value stored at key, if any.
func (s *Store) Get(key []byte) ([]byte, bool) {
	sh := s.shardFor(key)
	ptr, ok := sh.tree.Get(ByteKey(key))
	if !ok {
		return nil, false
	}
	v, ok := sh.arena.Load(ptr)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Delete drops key entirely from the delta store (used by GC once a
// tombstone's commit timestamp is below every active snapshot), as opposed
// to writing a tombstone frame, which callers do via Put.
func (s *Store) Delete(key []byte) bool {
	sh := s.shardFor(key)
	ptr, ok := sh.tree.Get(ByteKey(key))
	removed := sh.tree.Delete(ByteKey(key))
	if removed && ok {
		sh.arena.Delete(ptr)
	}
	return removed
}

// ApproxBytes estimates the store's resident size, used to decide when a
// flush to the columnar cache and persistent backend is due.
func (s *Store) ApproxBytes() int64 {
	return atomic.LoadInt64(&s.approxBytes)
}

// ShouldFlush reports whether the store has grown past thresholdBytes.
func (s *Store) ShouldFlush(thresholdBytes int64) bool {
	return s.ApproxBytes() >= thresholdBytes
}

// ResetApproxBytes zeroes the size counter after a successful flush; the
// flushed rows themselves are removed by the caller via Delete once they
// are durable in the persistent backend.
func (s *Store) ResetApproxBytes() {
	atomic.StoreInt64(&s.approxBytes, 0)
}

// Each walks every shard's tree in ascending key order within the shard
// (shards themselves are not globally ordered relative to each other; a
// caller needing a table-wide view must combine entries across shards
// itself, as pkg/engine's mergeTable does), calling fn for each live entry. Stops and
// returns fn's error if it returns one.
func (s *Store) Each(fn func(key, value []byte) error) error {
	for _, sh := range s.shards {
		var outerErr error
		sh.tree.Ascend(nil, func(key types.Comparable, ptr int64) bool {
			v, ok := sh.arena.Load(ptr)
			if !ok {
				return true
			}
			if err := fn([]byte(key.(ByteKey)), v.([]byte)); err != nil {
				outerErr = err
				return false
			}
			return true
		})
		if outerErr != nil {
			return outerErr
		}
	}
	return nil
}
