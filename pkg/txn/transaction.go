package txn

import (
	"sync"
	"sync/atomic"

	htaperrors "github.com/htapcore/engine/pkg/errors"
)

type state uint32

const (
	active state = iota
	committed
	rolledBack
)

// WriteOp is one buffered write; Tombstone distinguishes a delete from an
// insert/overwrite. Value is the caller's raw row encoding (pkg/engine's
// JSON row array), still unversioned — the committer attaches CommitTS.
type WriteOp struct {
	Table     string
	Key       []byte
	Value     []byte
	Tombstone bool
}

// ReadFunc looks up the current visible value for (table, key) as of a
// snapshot timestamp, consulting the write buffer first via the
// transaction's own Get.
type ReadFunc func(table string, key []byte, snapshotTS uint64) ([]byte, bool, error)

// CommitFunc durably applies a write set at a single commit timestamp
// (WAL + delta store insert), supplied by the engine so pkg/txn stays
// independent of the storage layers it coordinates.
type CommitFunc func(commitTS uint64, writes []WriteOp) error

var txIDCounter uint64

// Transaction is a single-goroutine-owned unit of work with snapshot
// isolation: reads see the database as of SnapshotTS plus the
// transaction's own uncommitted writes, and Commit applies its entire
// write set at one fresh commit timestamp.
type Transaction struct {
	ID         uint64
	SnapshotTS uint64

	st   atomic.Uint32
	mu   sync.Mutex
	done bool

	writes    []WriteOp
	writeKeys map[string]int // "table\x00key" -> index into writes, last write wins

	registry *Registry
	read     ReadFunc
	commit   CommitFunc
	onClose  func()
}

// Begin starts a new transaction pinned at snapshotTS, registering it with
// registry so GC won't collect versions it might still read.
func Begin(snapshotTS uint64, registry *Registry, read ReadFunc, commit CommitFunc) *Transaction {
	id := atomic.AddUint64(&txIDCounter, 1)
	registry.Register(id, snapshotTS)

	tx := &Transaction{
		ID:         id,
		SnapshotTS: snapshotTS,
		writeKeys:  make(map[string]int),
		registry:   registry,
		read:       read,
		commit:     commit,
	}
	tx.onClose = func() { registry.Unregister(id) }
	return tx
}

func writeKey(table string, key []byte) string {
	return table + "\x00" + string(key)
}

// Get implements read-your-writes: a key the transaction has itself
// written or deleted is resolved from the local buffer before falling
// back to the snapshot.
func (tx *Transaction) Get(table string, key []byte) ([]byte, bool, error) {
	if state(tx.st.Load()) != active {
		return nil, false, &htaperrors.InvalidOperationError{Message: "transaction already finished"}
	}

	tx.mu.Lock()
	if idx, ok := tx.writeKeys[writeKey(table, key)]; ok {
		op := tx.writes[idx]
		tx.mu.Unlock()
		if op.Tombstone {
			return nil, false, nil
		}
		return op.Value, true, nil
	}
	tx.mu.Unlock()

	return tx.read(table, key, tx.SnapshotTS)
}

// Put buffers an insert/overwrite; it is not visible to other transactions
// until Commit.
func (tx *Transaction) Put(table string, key, value []byte) error {
	return tx.buffer(WriteOp{Table: table, Key: key, Value: value})
}

// Delete buffers a tombstone.
func (tx *Transaction) Delete(table string, key []byte) error {
	return tx.buffer(WriteOp{Table: table, Key: key, Tombstone: true})
}

func (tx *Transaction) buffer(op WriteOp) error {
	if state(tx.st.Load()) != active {
		return &htaperrors.InvalidOperationError{Message: "transaction already finished"}
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	k := writeKey(op.Table, op.Key)
	if idx, ok := tx.writeKeys[k]; ok {
		tx.writes[idx] = op
		return nil
	}
	tx.writeKeys[k] = len(tx.writes)
	tx.writes = append(tx.writes, op)
	return nil
}

// Commit applies the buffered write set atomically at a single fresh
// commit timestamp chosen by the caller. A transaction with an empty write
// set commits trivially: the CommitFunc is not called, so nothing reaches
// the WAL, and commitTS goes unused.
func (tx *Transaction) Commit(commitTS uint64) error {
	if !tx.st.CompareAndSwap(uint32(active), uint32(committed)) {
		return &htaperrors.InvalidOperationError{Message: "transaction already finished"}
	}
	defer tx.onClose()

	tx.mu.Lock()
	writes := tx.writes
	tx.mu.Unlock()

	if len(writes) == 0 {
		return nil
	}

	return tx.commit(commitTS, writes)
}

// Rollback discards the buffered write set. Safe to call more than once or
// after Commit; only the first call has an effect.
func (tx *Transaction) Rollback() {
	if !tx.st.CompareAndSwap(uint32(active), uint32(rolledBack)) {
		return
	}
	tx.mu.Lock()
	tx.writes = nil
	tx.writeKeys = nil
	tx.mu.Unlock()
	tx.onClose()
}

// IsActive reports whether the transaction has neither committed nor
// rolled back.
func (tx *Transaction) IsActive() bool {
	return state(tx.st.Load()) == active
}
