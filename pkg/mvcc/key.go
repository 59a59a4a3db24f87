package mvcc

import "encoding/binary"

// EncodeKey builds a versioned storage key: user-key followed by the
// bitwise-complemented, big-endian commit timestamp. Complementing the
// timestamp means an ascending byte-order scan over a fixed user-key prefix
// visits versions newest-first, so a snapshot read can stop at the first
// version whose timestamp is <= the snapshot's.
func EncodeKey(userKey []byte, commitTS uint64) []byte {
	out := make([]byte, len(userKey)+8)
	copy(out, userKey)
	binary.BigEndian.PutUint64(out[len(userKey):], ^commitTS)
	return out
}

// DecodeKey splits a versioned key back into its user-key and commit
// timestamp.
func DecodeKey(versioned []byte) (userKey []byte, commitTS uint64) {
	n := len(versioned)
	if n < 8 {
		return versioned, 0
	}
	userKey = versioned[:n-8]
	commitTS = ^binary.BigEndian.Uint64(versioned[n-8:])
	return userKey, commitTS
}

// UserKeyPrefix returns the byte range [lo, hi) that contains every version
// of userKey, for use as an iterator's lower/upper bound. hi is nil when
// userKey has no successor (all 0xFF bytes), meaning the range is unbounded
// above.
func UserKeyPrefix(userKey []byte) (lo, hi []byte) {
	lo = append([]byte{}, userKey...)
	lo = append(lo, make([]byte, 8)...) // all-zero suffix sorts as the newest version (see EncodeKey)
	return lo, prefixSuccessor(userKey)
}

// prefixSuccessor returns the smallest byte string greater than every
// string with prefix p, or nil if p has no successor (empty or all 0xFF).
func prefixSuccessor(p []byte) []byte {
	out := append([]byte{}, p...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

const (
	// ValueLive tags a value frame carrying live row bytes.
	ValueLive uint16 = 0x0001
	// ValueTombstone tags a value frame recording a delete.
	ValueTombstone uint16 = 0x0002
)

// EncodeValue frames a row's bytes with a 2-byte live/tombstone marker.
func EncodeValue(live bool, payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	if live {
		binary.BigEndian.PutUint16(out[:2], ValueLive)
	} else {
		binary.BigEndian.PutUint16(out[:2], ValueTombstone)
	}
	copy(out[2:], payload)
	return out
}

// DecodeValue strips the marker, reporting whether the frame is live and
// returning its payload (empty for a tombstone).
func DecodeValue(framed []byte) (live bool, payload []byte) {
	if len(framed) < 2 {
		return false, nil
	}
	marker := binary.BigEndian.Uint16(framed[:2])
	return marker == ValueLive, framed[2:]
}
