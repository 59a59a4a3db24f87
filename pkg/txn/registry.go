// Package txn implements the engine's transaction type-state machine:
// buffered writes committed at a single timestamp, read-your-writes
// semantics, and the active-transaction registry garbage collection
// watermarks off of.
package txn

import "sync"

// Registry tracks every open transaction's snapshot timestamp so the
// garbage collector never reclaims a version still visible to an active
// reader, adapted from the teacher's LSN-keyed TransactionRegistry onto
// commit timestamps.
type Registry struct {
	mu     sync.Mutex
	active map[uint64]uint64 // txID -> snapshot timestamp
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[uint64]uint64)}
}

// Register records a new active transaction's snapshot timestamp.
func (r *Registry) Register(txID, snapshotTS uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[txID] = snapshotTS
}

// Unregister drops a finished transaction from the active set.
func (r *Registry) Unregister(txID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, txID)
}

// MinActiveSnapshot returns the oldest snapshot timestamp among active
// transactions, or atHighWaterMark if none are active: nothing is safe to
// collect more aggressively than "as of now" when there is no reader to
// protect against.
func (r *Registry) MinActiveSnapshot(atHighWaterMark uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return atHighWaterMark
	}

	min := atHighWaterMark
	first := true
	for _, ts := range r.active {
		if first || ts < min {
			min = ts
			first = false
		}
	}
	return min
}
