package wal

import (
	"bufio"
	"os"
	"sync"
	"sync/atomic"
	"time"

	htaperrors "github.com/htapcore/engine/pkg/errors"
)

// ErrWriterClosed is returned by WriteEntry/Sync once Close has run.
var ErrWriterClosed = &htaperrors.InvalidOperationError{Message: "wal writer already closed"}

// WALWriter owns the single append-only log file and its durability policy.
type WALWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	options Options

	batchBytes int64  // bytes written since the last sync
	lastLSN    uint64 // highest LSN handed to WriteEntry so far, atomic

	done   chan struct{}
	ticker *time.Ticker
	closed bool
}

// NewWALWriter opens (creating if needed) the log file at path and starts
// the background sync goroutine when the policy calls for one.
func NewWALWriter(path string, opts Options) (*WALWriter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, htaperrors.WrapIO(err)
	}

	w := &WALWriter{
		file:    f,
		writer:  bufio.NewWriterSize(f, opts.BufferSize),
		options: opts,
		done:    make(chan struct{}),
	}

	if opts.SyncPolicy == SyncInterval {
		w.ticker = time.NewTicker(opts.SyncIntervalDuration)
		go w.backgroundSync()
	}

	return w, nil
}

// WriteEntry appends entry to the in-memory buffer and applies the
// configured sync policy.
func (w *WALWriter) WriteEntry(entry *WALEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := entry.WriteTo(w.writer)
	if err != nil {
		return err
	}

	w.batchBytes += n
	atomic.StoreUint64(&w.lastLSN, entry.Header.LSN)

	switch w.options.SyncPolicy {
	case SyncEveryWrite:
		return w.syncLocked()

	case SyncBatch:
		if w.batchBytes >= w.options.SyncBatchBytes {
			return w.syncLocked()
		}
	}

	return nil
}

// LastLSN reports the highest log sequence number handed to WriteEntry so
// far. Concurrent commits can call WriteEntry out of LSN order (see
// pkg/engine's commitFunc), so this is the highest LSN written, not
// necessarily a contiguous high-water mark.
func (w *WALWriter) LastLSN() uint64 {
	return atomic.LoadUint64(&w.lastLSN)
}

// Sync forces the buffered bytes to durable storage.
func (w *WALWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	return w.syncLocked()
}

func (w *WALWriter) syncLocked() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}

	if err := w.file.Sync(); err != nil {
		return err
	}

	w.batchBytes = 0
	return nil
}

// Close flushes, fsyncs, and closes the underlying file.
func (w *WALWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.ticker != nil {
		w.ticker.Stop()
		close(w.done)
	}

	if err := w.syncLocked(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}

func (w *WALWriter) backgroundSync() {
	for {
		select {
		case <-w.ticker.C:
			w.Sync()
		case <-w.done:
			return
		}
	}
}
