// Package mvcc provides the versioned-key encoding, timestamp oracle, and
// visibility rules that give the engine snapshot-isolated reads over the
// delta store and the persistent backend.
package mvcc

import "sync/atomic"

// TimestampOracle hands out monotonically increasing commit timestamps. It
// is adapted from a log-sequence-number counter, but it is separate from the
// engine's WAL sequence numbers: the two counters advance independently.
type TimestampOracle struct {
	current uint64
}

func NewTimestampOracle(start uint64) *TimestampOracle {
	return &TimestampOracle{current: start}
}

// Next allocates and returns the next commit timestamp.
func (o *TimestampOracle) Next() uint64 {
	return atomic.AddUint64(&o.current, 1)
}

// Current returns the last allocated timestamp without allocating a new
// one, used for read-snapshot timestamps.
func (o *TimestampOracle) Current() uint64 {
	return atomic.LoadUint64(&o.current)
}

// Set fast-forwards the oracle, used during WAL recovery so timestamps
// never regress across a restart.
func (o *TimestampOracle) Set(val uint64) {
	for {
		cur := atomic.LoadUint64(&o.current)
		if val <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&o.current, cur, val) {
			return
		}
	}
}
