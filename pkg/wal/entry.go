package wal

import (
	"encoding/binary"
	"io"
)

// Frame layout constants.
const (
	HeaderSize = 24 // fixed header size in bytes
	WALVersion = 1  // current on-disk frame version

	// WALMagic guards against reading a non-WAL file as a log segment.
	WALMagic = 0xDEADBEEF
)

// EntryType tags the bson payload carried by a frame; see record.go for the
// decoded record structs (InsertRecord, DeleteRecord, BatchRecord, ...).
const (
	EntryInsert     uint8 = iota + 1 // single row insert/overwrite
	EntryDelete                      // tombstone
	EntryBatch                       // multi-row batch (columnar flush source)
	EntryTxBegin                     // transaction start marker
	EntryTxCommit                    // transaction commit marker
	EntryTxRollback                  // transaction rollback marker
	EntryCheckpoint                  // checkpoint marker written by the checkpoint manager
)

// WALHeader is the fixed 24-byte frame header preceding every payload.
type WALHeader struct {
	Magic      uint32 // 4 bytes
	Version    uint8  // 1 byte
	EntryType  uint8  // 1 byte
	Reserved   uint16 // 2 bytes (alignment padding)
	LSN        uint64 // 8 bytes (log sequence number)
	PayloadLen uint32 // 4 bytes
	CRC32      uint32 // 4 bytes
}

// WALEntry is one frame: header plus its raw (bson-encoded) payload.
type WALEntry struct {
	Header  WALHeader
	Payload []byte
}

// Encode serializes the header into buf, which must be at least HeaderSize.
func (h *WALHeader) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.EntryType
	binary.LittleEndian.PutUint16(buf[6:8], h.Reserved)
	binary.LittleEndian.PutUint64(buf[8:16], h.LSN)
	binary.LittleEndian.PutUint32(buf[16:20], h.PayloadLen)
	binary.LittleEndian.PutUint32(buf[20:24], h.CRC32)
}

// Decode parses a header out of buf, which must be at least HeaderSize.
func (h *WALHeader) Decode(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = buf[4]
	h.EntryType = buf[5]
	h.Reserved = binary.LittleEndian.Uint16(buf[6:8])
	h.LSN = binary.LittleEndian.Uint64(buf[8:16])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[16:20])
	h.CRC32 = binary.LittleEndian.Uint32(buf[20:24])
}

// WriteTo writes header then payload to w.
func (e *WALEntry) WriteTo(w io.Writer) (int64, error) {
	var headerBuf [HeaderSize]byte
	e.Header.Encode(headerBuf[:])

	n, err := w.Write(headerBuf[:])
	if err != nil {
		return int64(n), err
	}

	m, err := w.Write(e.Payload)
	return int64(n + m), err
}
