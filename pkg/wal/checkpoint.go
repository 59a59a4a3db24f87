package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	htaperrors "github.com/htapcore/engine/pkg/errors"
)

// CheckpointManager persists opaque zstd-compressed blobs, already
// serialized by the caller, under lsn-tagged file names. pkg/engine passes
// an empty blob and uses only the LSN as its recovery boundary. Trimming
// the log is done by the package-level Trim, not by the manager.
type CheckpointManager struct {
	basePath string
	mu       sync.Mutex
}

func NewCheckpointManager(basePath string) *CheckpointManager {
	return &CheckpointManager{basePath: basePath}
}

// Create snapshots data (already serialized by the caller) under an
// lsn-tagged filename, compressing it with zstd, and drops older checkpoints
// for the same name.
func (cm *CheckpointManager) Create(name string, lsn uint64, data []byte) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return htaperrors.WrapIO(err)
	}
	compressed := enc.EncodeAll(data, nil)
	enc.Close()

	filename := fmt.Sprintf("checkpoint_%s_%d.chk", name, lsn)
	path := filepath.Join(cm.basePath, filename)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, compressed, 0644); err != nil {
		return htaperrors.WrapIO(fmt.Errorf("write temp checkpoint: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return htaperrors.WrapIO(fmt.Errorf("rename checkpoint: %w", err))
	}

	return cm.cleanOlderThan(name, lsn)
}

func (cm *CheckpointManager) cleanOlderThan(name string, keepLSN uint64) error {
	files, err := os.ReadDir(cm.basePath)
	if err != nil {
		return htaperrors.WrapIO(err)
	}

	prefix := fmt.Sprintf("checkpoint_%s_", name)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), ".chk") {
			lsnStr := strings.TrimSuffix(strings.TrimPrefix(f.Name(), prefix), ".chk")
			lsn, err := strconv.ParseUint(lsnStr, 10, 64)
			if err == nil && lsn < keepLSN {
				os.Remove(filepath.Join(cm.basePath, f.Name()))
			}
		}
	}
	return nil
}

// LoadLatest returns the decompressed payload of the newest checkpoint for
// name and the LSN it was taken at, or os.ErrNotExist if none exists.
func (cm *CheckpointManager) LoadLatest(name string) ([]byte, uint64, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	files, err := os.ReadDir(cm.basePath)
	if err != nil {
		return nil, 0, htaperrors.WrapIO(err)
	}

	prefix := fmt.Sprintf("checkpoint_%s_", name)
	var maxLSN uint64
	var latestFile string
	found := false

	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), ".chk") {
			lsnStr := strings.TrimSuffix(strings.TrimPrefix(f.Name(), prefix), ".chk")
			lsn, err := strconv.ParseUint(lsnStr, 10, 64)
			if err == nil && (!found || lsn >= maxLSN) {
				maxLSN = lsn
				latestFile = f.Name()
				found = true
			}
		}
	}

	if !found {
		return nil, 0, os.ErrNotExist
	}

	raw, err := os.ReadFile(filepath.Join(cm.basePath, latestFile))
	if err != nil {
		return nil, 0, htaperrors.WrapIO(err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, 0, htaperrors.WrapIO(err)
	}
	defer dec.Close()

	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, 0, &htaperrors.SerializationError{Message: "decompress checkpoint: " + err.Error()}
	}

	return data, maxLSN, nil
}

// Trim rewrites the log file at logPath, keeping only frames with
// LSN >= cutoff, and atomically replaces the original. Used after a
// checkpoint has durably captured everything before cutoff.
func Trim(logPath string, cutoff uint64) error {
	reader, err := NewWALReader(logPath)
	if err != nil {
		return htaperrors.WrapWal(err)
	}
	defer reader.Close()

	tmpPath := logPath + ".trim.tmp"
	writer, err := NewWALWriter(tmpPath, Options{SyncPolicy: SyncEveryWrite, BufferSize: 64 * 1024})
	if err != nil {
		return htaperrors.WrapWal(err)
	}

	for {
		entry, err := reader.ReadEntry()
		if err != nil {
			break
		}
		if entry.Header.LSN >= cutoff {
			if werr := writer.WriteEntry(entry); werr != nil {
				ReleaseEntry(entry)
				writer.Close()
				return htaperrors.WrapWal(werr)
			}
		}
		ReleaseEntry(entry)
	}

	if err := writer.Close(); err != nil {
		return htaperrors.WrapWal(err)
	}

	if err := os.Rename(tmpPath, logPath); err != nil {
		return htaperrors.WrapWal(fmt.Errorf("replace trimmed log: %w", err))
	}

	return nil
}
