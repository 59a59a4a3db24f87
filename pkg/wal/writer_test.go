package wal

import (
	"os"
	"testing"
	"time"
)

func TestWALWriter_IntervalSync(t *testing.T) {
	tmpFile := "test_wal_interval.log"
	defer os.Remove(tmpFile)

	payload := []byte("some data")

	opts := Options{
		SyncPolicy:           SyncInterval,
		SyncIntervalDuration: 50 * time.Millisecond,
		BufferSize:           1024,
	}

	w, err := NewWALWriter(tmpFile, opts)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	entry, err := BuildEntry(EntryInsert, 1, InsertRecord{Table: "t", Key: []byte("k"), CommitTS: 1, Value: payload})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}

	if err := w.WriteEntry(entry); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(entry)

	if w.LastLSN() != 1 {
		t.Errorf("LastLSN() = %d, want 1", w.LastLSN())
	}

	// No sync forced yet; wait for the background ticker.
	time.Sleep(100 * time.Millisecond)

	info, err := os.Stat(tmpFile)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Error("File size is 0 after background sync, expected content")
	}

	w.Close()
}

func TestWALWriter_BatchSync(t *testing.T) {
	tmpFile := "test_wal_batch.log"
	defer os.Remove(tmpFile)

	opts := Options{
		SyncPolicy:     SyncBatch,
		SyncBatchBytes: 100,
		BufferSize:     1024,
	}

	w, err := NewWALWriter(tmpFile, opts)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	rec := InsertRecord{Table: "t", Key: []byte("k"), CommitTS: 1, Value: []byte("12345")}

	for lsn := uint64(1); lsn <= 4; lsn++ {
		entry, err := BuildEntry(EntryInsert, lsn, rec)
		if err != nil {
			t.Fatalf("BuildEntry failed: %v", err)
		}
		if err := w.WriteEntry(entry); err != nil {
			t.Fatalf("WriteEntry failed: %v", err)
		}
		ReleaseEntry(entry)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(tmpFile)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected written frames to reach disk after Close")
	}
}

func TestWALWriter_RejectsWritesAfterClose(t *testing.T) {
	tmpFile := "test_wal_closed.log"
	defer os.Remove(tmpFile)

	w, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncEveryWrite, BufferSize: 1024})
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entry, err := BuildEntry(EntryInsert, 1, InsertRecord{Table: "t", Key: []byte("k")})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	defer ReleaseEntry(entry)

	if err := w.WriteEntry(entry); err != ErrWriterClosed {
		t.Errorf("WriteEntry after Close: got %v, want ErrWriterClosed", err)
	}
	if err := w.Sync(); err != ErrWriterClosed {
		t.Errorf("Sync after Close: got %v, want ErrWriterClosed", err)
	}

	// Close is idempotent.
	if err := w.Close(); err != nil {
		t.Errorf("second Close: got %v, want nil", err)
	}
}

func TestWALWriter_SyncError(t *testing.T) {
	tmpFile := "test_wal_sync_error.log"
	defer os.Remove(tmpFile)

	w, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncEveryWrite, BufferSize: 1024})
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}
	w.file.Close() // force the next fsync to fail

	entry, err := BuildEntry(EntryInsert, 1, InsertRecord{Table: "t", Key: []byte("k")})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	defer ReleaseEntry(entry)

	if err := w.WriteEntry(entry); err == nil {
		t.Error("Expected error writing to closed file")
	}
}

func TestWALWriter_BackgroundSyncSurvivesClose(t *testing.T) {
	tmpFile := "test_wal_bg_sync.log"
	defer os.Remove(tmpFile)

	w, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncInterval, SyncIntervalDuration: 10 * time.Millisecond, BufferSize: 1024})
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := w.Close(); err != nil {
		t.Errorf("Close: got %v, want nil", err)
	}
}

func TestNewWALWriter_RejectsInvalidOptions(t *testing.T) {
	tmpFile := "test_wal_invalid_opts.log"
	defer os.Remove(tmpFile)

	_, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncBatch, BufferSize: 1024})
	if err == nil {
		t.Error("Expected error for SyncBatch with zero SyncBatchBytes")
	}
}

func TestNewWALWriter_Error(t *testing.T) {
	// Opening a directory as a file for writing should fail.
	tmpDir := t.TempDir()
	_, err := NewWALWriter(tmpDir, DefaultOptions())
	if err == nil {
		t.Error("Expected error opening directory as WAL file")
	}
}
