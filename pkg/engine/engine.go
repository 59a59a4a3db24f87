// Package engine is the façade wiring the persistent backend, write-ahead
// log, delta store, columnar cache, MVCC/transaction layer, and SQL
// pipeline into one embeddable database handle.
package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/delta"
	htaperrors "github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/metrics"
	"github.com/htapcore/engine/pkg/mvcc"
	"github.com/htapcore/engine/pkg/persist"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/txn"
	"github.com/htapcore/engine/pkg/wal"
)

// Options configures a new Engine. Zero-value fields fall back to
// DefaultOptions' choices.
type Options struct {
	// DataDir holds the pebble store, WAL segment, and checkpoints under
	// subdirectories of its own.
	DataDir string

	CacheCapacity       int
	ShardCount          int
	FlushThresholdBytes int64

	WAL wal.Options

	// MetricsRegisterer receives the engine's prometheus collectors; nil
	// leaves them unregistered (they still count, but nothing exports them).
	MetricsRegisterer prometheus.Registerer
}

// DefaultOptions returns a conservative configuration rooted at dataDir.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:             dataDir,
		CacheCapacity:       64,
		ShardCount:          16,
		FlushThresholdBytes: 16 * 1024 * 1024,
		WAL:                 wal.DefaultOptions(),
	}
}

// Engine is a single-node, embeddable HTAP database handle: SQL text in,
// Arrow-backed results out, ACID commits underneath.
type Engine struct {
	dataDir string

	persist     *persist.Store
	walw        *wal.WALWriter
	walLogPath  string
	checkpoints *wal.CheckpointManager

	cat     *catalog.Catalog
	planner *phys.Planner

	delta *delta.Store
	cache *columnar.Cache

	oracle   *mvcc.TimestampOracle
	registry *txn.Registry

	metrics *metrics.Registry

	flushThreshold int64
	flushMu        sync.Mutex

	lsn uint64 // atomic; next write-ahead log sequence number to assign
}

// nextLSN hands out a monotonically increasing WAL sequence number.
func (e *Engine) nextLSN() uint64 {
	return atomic.AddUint64(&e.lsn, 1)
}

// Open creates or reopens an Engine rooted at opts.DataDir, replaying any
// write-ahead log left from an unclean shutdown.
func Open(opts Options) (*Engine, error) {
	if opts.DataDir == "" {
		return nil, &htaperrors.InvalidOperationError{Message: "DataDir must be set"}
	}
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = 64
	}
	if opts.FlushThresholdBytes <= 0 {
		opts.FlushThresholdBytes = 16 * 1024 * 1024
	}
	walOpts := opts.WAL
	if walOpts.DirPath == "" {
		walOpts.DirPath = filepath.Join(opts.DataDir, "wal")
	}
	if walOpts.BufferSize == 0 {
		walOpts = wal.DefaultOptions()
		walOpts.DirPath = filepath.Join(opts.DataDir, "wal")
	}
	if err := os.MkdirAll(walOpts.DirPath, 0o755); err != nil {
		return nil, htaperrors.WrapIO(err)
	}
	checkpointDir := filepath.Join(opts.DataDir, "checkpoints")
	if err := os.MkdirAll(checkpointDir, 0o755); err != nil {
		return nil, htaperrors.WrapIO(err)
	}

	store, err := persist.Open(filepath.Join(opts.DataDir, "data"))
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(store)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dataDir:        opts.DataDir,
		persist:        store,
		walLogPath:     filepath.Join(walOpts.DirPath, "current.log"),
		checkpoints:    wal.NewCheckpointManager(checkpointDir),
		cat:            cat,
		planner:        phys.NewPlanner(cat),
		delta:          delta.New(opts.ShardCount),
		cache:          columnar.NewCache(opts.CacheCapacity),
		oracle:         mvcc.NewTimestampOracle(0),
		registry:       txn.NewRegistry(),
		metrics:        metrics.NewRegistry(opts.MetricsRegisterer),
		flushThreshold: opts.FlushThresholdBytes,
	}

	if err := e.recover(); err != nil {
		store.Close()
		return nil, err
	}

	walw, err := wal.NewWALWriter(e.walLogPath, walOpts)
	if err != nil {
		store.Close()
		return nil, htaperrors.WrapWal(err)
	}
	e.walw = walw

	return e, nil
}

// Close flushes and closes every owned resource.
func (e *Engine) Close() error {
	if err := e.walw.Close(); err != nil {
		return htaperrors.WrapWal(err)
	}
	return e.persist.Close()
}

// recover replays WAL entries past the latest checkpoint's LSN into the
// delta store, then fast-forwards the timestamp oracle so new commits
// never reuse a replayed timestamp. Absent any prior log file (first run),
// this is a no-op.
func (e *Engine) recover() error {
	if _, err := os.Stat(e.walLogPath); os.IsNotExist(err) {
		return nil
	}

	var cutoff uint64
	if _, lsn, err := e.checkpoints.LoadLatest("engine"); err == nil {
		cutoff = lsn
		fmt.Printf("Recovered checkpoint for engine at lsn %d\n", lsn)
	}

	reader, err := wal.NewWALReader(e.walLogPath)
	if err != nil {
		return htaperrors.WrapWal(err)
	}
	defer reader.Close()

	var maxTS, maxLSN uint64
	replayed := 0
	for {
		entry, err := reader.ReadEntry()
		if err == io.EOF || err == wal.ErrTruncatedTail {
			break
		}
		if err != nil {
			return htaperrors.WrapWal(err)
		}
		if entry.Header.LSN > maxLSN {
			maxLSN = entry.Header.LSN
		}
		if entry.Header.LSN > cutoff {
			if ts, ok := e.replayEntry(entry); ok {
				if ts > maxTS {
					maxTS = ts
				}
				replayed++
			}
		}
		wal.ReleaseEntry(entry)
	}

	if maxTS > 0 {
		e.oracle.Set(maxTS)
	}
	atomic.StoreUint64(&e.lsn, maxLSN)
	if replayed > 0 {
		fmt.Printf("Recovered %d write-ahead log entries\n", replayed)
	}
	return nil
}

// replayEntry applies one recovered WAL frame directly to the delta store,
// returning the commit timestamp it carried so the caller can track the
// high-water mark. Entry types other than Insert/Delete/Batch (transaction
// markers, checkpoints) carry no row data and are skipped.
func (e *Engine) replayEntry(entry *wal.WALEntry) (uint64, bool) {
	switch entry.Header.EntryType {
	case wal.EntryInsert:
		var rec wal.InsertRecord
		if wal.DecodeRecord(entry.Payload, &rec) != nil {
			return 0, false
		}
		versioned := mvcc.EncodeKey(tableKey(rec.Table, rec.Key), rec.CommitTS)
		e.delta.Put(versioned, mvcc.EncodeValue(true, rec.Value))
		return rec.CommitTS, true
	case wal.EntryDelete:
		var rec wal.DeleteRecord
		if wal.DecodeRecord(entry.Payload, &rec) != nil {
			return 0, false
		}
		versioned := mvcc.EncodeKey(tableKey(rec.Table, rec.Key), rec.CommitTS)
		e.delta.Put(versioned, mvcc.EncodeValue(false, nil))
		return rec.CommitTS, true
	case wal.EntryBatch:
		var rec wal.BatchRecord
		if wal.DecodeRecord(entry.Payload, &rec) != nil {
			return 0, false
		}
		for i := range rec.Keys {
			versioned := mvcc.EncodeKey(tableKey(rec.Table, rec.Keys[i]), rec.CommitTS)
			e.delta.Put(versioned, mvcc.EncodeValue(true, rec.Values[i]))
		}
		return rec.CommitTS, true
	default:
		return 0, false
	}
}

// Checkpoint flushes the delta store into the persistent backend, then
// records the current write-ahead log sequence number as a recovery
// boundary and trims the log up to it. The flush is what makes trimming
// safe: it guarantees every write logged at or below that sequence number is durable
// in pkg/persist, not merely sitting in the in-memory delta store, so a
// crash after trimming loses nothing trimming would otherwise have
// discarded the only copy of. The checkpoint itself carries no snapshot
// payload, only the boundary marker; replay of the (now short) WAL tail
// covers everything committed after it. Callers should serialize
// Checkpoint calls against concurrent writers, matching the teacher's
// offline-checkpoint assumption.
func (e *Engine) Checkpoint() error {
	if err := e.flush(); err != nil {
		return err
	}
	lsn := atomic.LoadUint64(&e.lsn)
	if err := e.checkpoints.Create("engine", lsn, nil); err != nil {
		return err
	}
	if err := wal.Trim(e.walLogPath, lsn); err != nil {
		return htaperrors.WrapWal(err)
	}
	fmt.Printf("Checkpoint created at log sequence number %d; WAL trimmed\n", lsn)
	return nil
}

// Vacuum reclaims delta-store versions no longer visible to any active
// snapshot: for every user key, every version at or below the oldest
// active transaction's snapshot timestamp except the newest such version
// is superseded and safe to drop (per registry.MinActiveSnapshot).
func (e *Engine) Vacuum() error {
	horizon := e.registry.MinActiveSnapshot(e.oracle.Current())
	fmt.Printf("Starting vacuum below snapshot %d\n", horizon)

	type keep struct {
		key []byte
		ts  uint64
	}
	newestAtOrBelow := map[string]keep{}
	var candidates [][]byte

	err := e.delta.Each(func(verKey, _ []byte) error {
		full, ts := mvcc.DecodeKey(verKey)
		if ts > horizon {
			return nil
		}
		id := string(full)
		cur, ok := newestAtOrBelow[id]
		if !ok || ts > cur.ts {
			if ok {
				candidates = append(candidates, cur.key)
			}
			newestAtOrBelow[id] = keep{key: append([]byte{}, verKey...), ts: ts}
		} else {
			candidates = append(candidates, append([]byte{}, verKey...))
		}
		return nil
	})
	if err != nil {
		return err
	}

	reclaimed := 0
	for _, k := range candidates {
		if e.delta.Delete(k) {
			reclaimed++
		}
	}
	e.metrics.GcReclaimedVersions.Add(float64(reclaimed))
	fmt.Printf("Vacuum reclaimed %d superseded versions\n", reclaimed)
	return nil
}

// maybeFlush migrates delta-store entries into the persistent backend once
// the store has grown past flushThreshold, keeping the in-memory tier
// bounded. A flush is a single full-store compaction pass rather than an
// incremental per-table migration: simpler, and the delta store is small
// enough between flushes that a full scan is cheap.
func (e *Engine) maybeFlush() error {
	if !e.delta.ShouldFlush(e.flushThreshold) {
		e.metrics.DeltaApproxLen.Set(float64(e.delta.ApproxBytes()))
		return nil
	}
	return e.flush()
}

func (e *Engine) flush() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	start := time.Now()

	type latestVersion struct {
		key     []byte
		table   string
		bare    []byte
		ts      uint64
		live    bool
		payload []byte
	}
	latest := map[string]latestVersion{}
	var stale [][]byte

	err := e.delta.Each(func(verKey, framed []byte) error {
		full, ts := mvcc.DecodeKey(verKey)
		table, bare := splitTableKey(full)
		live, payload := mvcc.DecodeValue(framed)
		id := table + "\x00" + string(bare)

		cur, ok := latest[id]
		if !ok || ts > cur.ts {
			if ok {
				stale = append(stale, cur.key)
			}
			latest[id] = latestVersion{
				key: append([]byte{}, verKey...), table: table, bare: append([]byte{}, bare...),
				ts: ts, live: live, payload: append([]byte{}, payload...),
			}
		} else {
			stale = append(stale, append([]byte{}, verKey...))
		}
		return nil
	})
	if err != nil {
		return err
	}

	var flushedBytes int64
	for _, v := range latest {
		if v.live {
			if err := e.persist.Put(v.table, v.bare, v.payload); err != nil {
				return err
			}
		} else {
			if err := e.persist.Delete(v.table, v.bare); err != nil {
				return err
			}
		}
		flushedBytes += int64(len(v.bare) + len(v.payload))
		stale = append(stale, v.key)
	}
	for _, k := range stale {
		e.delta.Delete(k)
	}
	e.delta.ResetApproxBytes()

	e.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	e.metrics.FlushedBytes.Add(float64(flushedBytes))
	e.metrics.DeltaApproxLen.Set(0)
	fmt.Printf("Flushed %d bytes from the delta store to the persistent backend\n", flushedBytes)
	return nil
}

// Catalog exposes the schema/index registry for callers that need direct
// introspection (e.g. a REPL's \d command).
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Flush forces an immediate Tier 1 -> Tier 3 compaction pass rather than
// waiting for FlushThresholdBytes to trip it, for callers (an admin command,
// a test, a graceful-shutdown path) that want delta-store contents durably
// settled in the persistent backend on demand.
func (e *Engine) Flush() error { return e.flush() }
