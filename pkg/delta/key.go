package delta

import "github.com/htapcore/engine/pkg/types"

// ByteKey adapts a raw byte string to pkg/btree's generic types.Comparable
// constraint via bytes.Compare, the key domain every delta shard's Tree is
// instantiated over.
type ByteKey []byte

func (k ByteKey) Compare(other types.Comparable) int {
	o := other.(ByteKey)
	switch {
	case string(k) < string(o):
		return -1
	case string(k) > string(o):
		return 1
	default:
		return 0
	}
}
