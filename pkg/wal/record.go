package wal

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	htaperrors "github.com/htapcore/engine/pkg/errors"
)

// InsertRecord is the payload of an EntryInsert frame: one versioned key/value
// write against a single table.
type InsertRecord struct {
	Table    string `bson:"table"`
	Key      []byte `bson:"key"`
	CommitTS uint64 `bson:"commit_ts"`
	Value    []byte `bson:"value"`
}

// DeleteRecord is the payload of an EntryDelete frame.
type DeleteRecord struct {
	Table    string `bson:"table"`
	Key      []byte `bson:"key"`
	CommitTS uint64 `bson:"commit_ts"`
}

// BatchRecord carries several row writes to one table that share a single
// commit timestamp; recovery replays every row of the frame at that
// timestamp. The engine's commit path writes Insert/Delete frames only.
type BatchRecord struct {
	Table    string   `bson:"table"`
	Keys     [][]byte `bson:"keys"`
	Values   [][]byte `bson:"values"`
	CommitTS uint64   `bson:"commit_ts"`
}

// TxMarkerRecord is the payload of TxBegin/TxCommit/TxRollback frames,
// identifying the transaction by TxID. Recovery in pkg/engine skips marker
// frames; it does not group entries by transaction.
type TxMarkerRecord struct {
	TxID string `bson:"tx_id"`
}

// CheckpointRecord marks that a delta-store/columnar snapshot was taken up
// to SnapshotLSN. Trim does not read it: its cutoff is passed in as an
// argument.
type CheckpointRecord struct {
	SnapshotLSN uint64 `bson:"snapshot_lsn"`
	Path        string `bson:"path"`
}

// EncodeRecord bson-marshals a typed record struct into a frame payload.
func EncodeRecord(v interface{}) ([]byte, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, &htaperrors.SerializationError{Message: "encode wal record: " + err.Error()}
	}
	return b, nil
}

// DecodeRecord bson-unmarshals a frame payload into dst (a pointer to one of
// the record structs above), selected by the frame's EntryType.
func DecodeRecord(payload []byte, dst interface{}) error {
	if err := bson.Unmarshal(payload, dst); err != nil {
		return &htaperrors.SerializationError{Message: "decode wal record: " + err.Error()}
	}
	return nil
}

// BuildEntry bson-encodes rec and wraps it in a WALEntry ready for
// WALWriter.WriteEntry, computing PayloadLen and CRC32.
func BuildEntry(entryType uint8, lsn uint64, rec interface{}) (*WALEntry, error) {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return nil, err
	}
	entry := AcquireEntry(entryType)
	entry.Header = WALHeader{
		Magic:      WALMagic,
		Version:    WALVersion,
		EntryType:  entryType,
		LSN:        lsn,
		PayloadLen: uint32(len(payload)),
		CRC32:      FrameChecksum(entryType, lsn, payload),
	}
	if cap(entry.Payload) < len(payload) {
		entry.Payload = make([]byte, len(payload))
	} else {
		entry.Payload = entry.Payload[:len(payload)]
	}
	copy(entry.Payload, payload)
	return entry, nil
}
