package wal

import "sync"

// Object pools cut GC pressure on the hot write/replay path. Marker frames
// (tx begin/commit/rollback, checkpoint) carry only a few bytes of bson and
// are pooled separately from row frames (insert/delete/batch): sharing one
// pool would force every marker allocation to carry around the same
// multi-KB backing array a batch flush needs, wasting the resident memory
// a long-lived transaction's worth of markers would otherwise pin.
const (
	markerPayloadCap = 256
	rowPayloadCap    = 4096
)

var (
	markerEntryPool = sync.Pool{
		New: func() interface{} {
			return &WALEntry{Payload: make([]byte, 0, markerPayloadCap)}
		},
	}
	rowEntryPool = sync.Pool{
		New: func() interface{} {
			return &WALEntry{Payload: make([]byte, 0, rowPayloadCap)}
		},
	}
)

func isMarkerEntryType(entryType uint8) bool {
	switch entryType {
	case EntryTxBegin, EntryTxCommit, EntryTxRollback, EntryCheckpoint:
		return true
	default:
		return false
	}
}

// AcquireEntry gets an entry from the pool sized for entryType's typical
// payload.
func AcquireEntry(entryType uint8) *WALEntry {
	if isMarkerEntryType(entryType) {
		return markerEntryPool.Get().(*WALEntry)
	}
	return rowEntryPool.Get().(*WALEntry)
}

// ReleaseEntry returns an entry to the pool it was acquired from, inferred
// from its own (still-populated) header before it's reset.
func ReleaseEntry(e *WALEntry) {
	marker := isMarkerEntryType(e.Header.EntryType)
	e.Header = WALHeader{}
	e.Payload = e.Payload[:0]
	if marker {
		markerEntryPool.Put(e)
	} else {
		rowEntryPool.Put(e)
	}
}
