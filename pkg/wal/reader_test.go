package wal

import (
	"encoding/binary"
	"io"
	"os"
	"testing"
)

func TestWALReader_ReadsInsertAndBatchFrames(t *testing.T) {
	tmpFile := "test_wal_read_frames.log"
	defer os.Remove(tmpFile)

	opts := Options{SyncPolicy: SyncEveryWrite, BufferSize: 1024}
	w, err := NewWALWriter(tmpFile, opts)
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}

	e1, err := BuildEntry(EntryInsert, 100, InsertRecord{Table: "orders", Key: []byte("k1"), CommitTS: 1, Value: []byte("first entry")})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	if err := w.WriteEntry(e1); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(e1)

	e2, err := BuildEntry(EntryBatch, 101, BatchRecord{Table: "orders", Keys: [][]byte{[]byte("k2")}, Values: [][]byte{[]byte("v2")}, CommitTS: 2})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	if err := w.WriteEntry(e2); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(e2)

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewWALReader(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	read1, err := r.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry 1 failed: %v", err)
	}
	var decoded1 InsertRecord
	if err := DecodeRecord(read1.Payload, &decoded1); err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}
	if string(decoded1.Value) != "first entry" {
		t.Errorf("Payload mismatch. Got %q, want %q", decoded1.Value, "first entry")
	}
	ReleaseEntry(read1)

	read2, err := r.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry 2 failed: %v", err)
	}
	if read2.Header.LSN != 101 || read2.Header.EntryType != EntryBatch {
		t.Errorf("unexpected header for batch frame: %+v", read2.Header)
	}
	ReleaseEntry(read2)

	if _, err := r.ReadEntry(); err != io.EOF {
		t.Errorf("Expected io.EOF at end of log, got %v", err)
	}
}

func TestWALReader_TxMarkersRoundTrip(t *testing.T) {
	tmpFile := "test_wal_tx_markers.log"
	defer os.Remove(tmpFile)

	w, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncEveryWrite, BufferSize: 1024})
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}

	begin, err := BuildEntry(EntryTxBegin, 1, TxMarkerRecord{TxID: "tx-1"})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	if err := w.WriteEntry(begin); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(begin)

	commit, err := BuildEntry(EntryTxCommit, 2, TxMarkerRecord{TxID: "tx-1"})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	if err := w.WriteEntry(commit); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(commit)
	w.Close()

	r, err := NewWALReader(tmpFile)
	if err != nil {
		t.Fatalf("NewWALReader failed: %v", err)
	}
	defer r.Close()

	readBegin, err := r.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry (begin) failed: %v", err)
	}
	var beginRec TxMarkerRecord
	if err := DecodeRecord(readBegin.Payload, &beginRec); err != nil {
		t.Fatalf("DecodeRecord failed: %v", err)
	}
	if readBegin.Header.EntryType != EntryTxBegin || beginRec.TxID != "tx-1" {
		t.Errorf("unexpected begin marker: header=%+v rec=%+v", readBegin.Header, beginRec)
	}
	ReleaseEntry(readBegin)

	readCommit, err := r.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry (commit) failed: %v", err)
	}
	if readCommit.Header.EntryType != EntryTxCommit {
		t.Errorf("expected EntryTxCommit, got %d", readCommit.Header.EntryType)
	}
	ReleaseEntry(readCommit)
}

func TestWALReader_ChecksumMismatchCatchesHeaderCorruption(t *testing.T) {
	tmpFile := "test_wal_corruption.log"
	defer os.Remove(tmpFile)

	w, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncEveryWrite, BufferSize: 1024})
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}
	entry, err := BuildEntry(EntryInsert, 5, InsertRecord{Table: "t", Key: []byte("k"), Value: []byte("critical data")})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	if err := w.WriteEntry(entry); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(entry)
	w.Close()

	// Flip the LSN in the header without touching the payload: FrameChecksum
	// folds LSN in, so this must be caught even though the payload bytes
	// that bson decodes are untouched.
	f, err := os.OpenFile(tmpFile, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	var lsnBuf [8]byte
	binary.LittleEndian.PutUint64(lsnBuf[:], 999)
	if _, err := f.WriteAt(lsnBuf[:], 8); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	f.Close()

	r, err := NewWALReader(tmpFile)
	if err != nil {
		t.Fatalf("NewWALReader failed: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadEntry(); err != ErrChecksumMismatch {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}
}

func TestWALReader_TruncatedTailIsNotFatal(t *testing.T) {
	tmpFile := "test_wal_truncated.log"
	defer os.Remove(tmpFile)

	w, err := NewWALWriter(tmpFile, Options{SyncPolicy: SyncEveryWrite, BufferSize: 1024})
	if err != nil {
		t.Fatalf("NewWALWriter failed: %v", err)
	}
	entry, err := BuildEntry(EntryInsert, 1, InsertRecord{Table: "t", Key: []byte("k"), Value: []byte("loooooong data")})
	if err != nil {
		t.Fatalf("BuildEntry failed: %v", err)
	}
	if err := w.WriteEntry(entry); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	ReleaseEntry(entry)
	w.Close()

	// Simulate a process torn down mid-frame: keep the header, drop most of
	// the payload.
	if err := os.Truncate(tmpFile, int64(HeaderSize+5)); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	r, err := NewWALReader(tmpFile)
	if err != nil {
		t.Fatalf("NewWALReader failed: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadEntry(); err != ErrTruncatedTail {
		t.Errorf("Expected ErrTruncatedTail, got %v", err)
	}
}

func TestWALReader_TruncatedHeaderIsNotFatal(t *testing.T) {
	tmpFile := "test_wal_truncated_header.log"
	defer os.Remove(tmpFile)

	if err := os.WriteFile(tmpFile, make([]byte, HeaderSize-3), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, err := NewWALReader(tmpFile)
	if err != nil {
		t.Fatalf("NewWALReader failed: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadEntry(); err != ErrTruncatedTail {
		t.Errorf("Expected ErrTruncatedTail for a short header, got %v", err)
	}
}

func TestWALReader_InvalidMagic(t *testing.T) {
	tmpFile := "test_wal_magic.log"
	defer os.Remove(tmpFile)

	f, err := os.Create(tmpFile)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	invalidHeader := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(invalidHeader[0:4], 0xCAFEBABE)
	f.Write(invalidHeader)
	f.Close()

	r, err := NewWALReader(tmpFile)
	if err != nil {
		t.Fatalf("NewWALReader failed: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadEntry(); err != ErrInvalidMagic {
		t.Errorf("Expected ErrInvalidMagic, got %v", err)
	}
}
