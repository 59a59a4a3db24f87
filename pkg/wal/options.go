package wal

import (
	"fmt"
	"time"

	htaperrors "github.com/htapcore/engine/pkg/errors"
)

// SyncPolicy selects a durability strategy.
type SyncPolicy int

const (
	// SyncEveryWrite calls fsync() after every write. Safest, slowest.
	SyncEveryWrite SyncPolicy = iota

	// SyncInterval calls fsync() periodically from a background goroutine.
	SyncInterval

	// SyncBatch calls fsync() once the unflushed byte count crosses
	// SyncBatchBytes.
	SyncBatch
)

// Options configures a WALWriter.
type Options struct {
	// DirPath is the directory holding log segments and checkpoints.
	DirPath string

	// BufferSize is the bufio buffer size before bytes reach the OS.
	BufferSize int

	SyncPolicy SyncPolicy

	// SyncIntervalDuration is used only by SyncInterval.
	SyncIntervalDuration time.Duration

	// SyncBatchBytes is used only by SyncBatch.
	SyncBatchBytes int64
}

// DefaultOptions returns a conservative, generally safe configuration.
func DefaultOptions() Options {
	return Options{
		DirPath:              "./wal_data",
		BufferSize:           64 * 1024,
		SyncPolicy:           SyncInterval,
		SyncIntervalDuration: 200 * time.Millisecond,
		SyncBatchBytes:       1 * 1024 * 1024,
	}
}

// Validate reports a configuration error for option combinations that
// would misbehave rather than fail to open. A non-positive BufferSize is
// silently replaced by bufio's default buffer size; a SyncInterval policy
// with a non-positive interval makes time.NewTicker panic inside
// NewWALWriter; a SyncBatch policy with a
// non-positive SyncBatchBytes makes the batchBytes >= SyncBatchBytes
// check in WriteEntry true on the very first byte, degrading silently
// into SyncEveryWrite instead of rejecting the nonsensical threshold.
func (o Options) Validate() error {
	if o.BufferSize <= 0 {
		return &htaperrors.InvalidOperationError{
			Message: "wal: BufferSize must be positive",
			Context: fmt.Sprintf("buffer_size=%d", o.BufferSize),
		}
	}
	if o.SyncPolicy == SyncInterval && o.SyncIntervalDuration <= 0 {
		return &htaperrors.InvalidOperationError{
			Message: "wal: SyncIntervalDuration must be positive for SyncInterval",
			Context: fmt.Sprintf("sync_interval=%s", o.SyncIntervalDuration),
		}
	}
	if o.SyncPolicy == SyncBatch && o.SyncBatchBytes <= 0 {
		return &htaperrors.InvalidOperationError{
			Message: "wal: SyncBatchBytes must be positive for SyncBatch",
			Context: fmt.Sprintf("sync_batch_bytes=%d", o.SyncBatchBytes),
		}
	}
	return nil
}
