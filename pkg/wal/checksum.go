package wal

import (
	"encoding/binary"
	"hash/crc32"
)

// castagnoliTable uses the Castagnoli polynomial, which has hardware
// acceleration on modern CPUs.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CalculateCRC32 checksums data on its own, with no header fields folded in.
func CalculateCRC32(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// ValidateCRC32 reports whether data matches the expected checksum.
func ValidateCRC32(data []byte, expected uint32) bool {
	return CalculateCRC32(data) == expected
}

// FrameChecksum folds a frame's entry type and LSN into the payload
// checksum. LSN ordering is load-bearing for checkpoint and trim
// correctness (see pkg/engine's recovery path), so a header bit-flip that
// corrupts LSN or EntryType needs to be caught the same way a corrupted
// payload is, rather than only protecting the bytes bson decodes.
func FrameChecksum(entryType uint8, lsn uint64, payload []byte) uint32 {
	var prefix [9]byte
	prefix[0] = entryType
	binary.LittleEndian.PutUint64(prefix[1:], lsn)

	h := crc32.New(castagnoliTable)
	h.Write(prefix[:])
	h.Write(payload)
	return h.Sum32()
}

// ValidateFrameChecksum reports whether a decoded frame's entry type, LSN,
// and payload together match expected.
func ValidateFrameChecksum(entryType uint8, lsn uint64, payload []byte, expected uint32) bool {
	return FrameChecksum(entryType, lsn, payload) == expected
}
