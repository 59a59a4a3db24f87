// Package persist is the Tier 3 durable ordered-key-value backend: a
// cockroachdb/pebble LSM store holding, per bare row key, the latest live
// payload flushed out of the in-memory delta store (see pkg/delta).
package persist

import (
	"bytes"

	"github.com/cockroachdb/pebble"

	htaperrors "github.com/htapcore/engine/pkg/errors"
)

// Store wraps a pebble database, namespacing every key by its owning table
// so multiple tables can share one LSM without colliding.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if needed) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, htaperrors.WrapStorage(err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}

// tableKey namespaces key under table so range scans stay table-local:
// "<table>\x00<key>".
func tableKey(table string, key []byte) []byte {
	out := make([]byte, 0, len(table)+1+len(key))
	out = append(out, table...)
	out = append(out, 0)
	out = append(out, key...)
	return out
}

// tablePrefixBounds returns the [start, end) byte range covering every key
// under table.
func tablePrefixBounds(table string) (start, end []byte) {
	start = append([]byte(table), 0)
	end = make([]byte, len(start))
	copy(end, start)
	end[len(end)-1] = 1 // table\x00 -> table\x01 is an exclusive upper bound
	return start, end
}

// Put durably writes key/value under table. The engine's flush passes the
// bare row key and the unframed row payload.
func (s *Store) Put(table string, key, value []byte) error {
	if err := s.db.Set(tableKey(table, key), value, pebble.Sync); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}

// PutBatch writes many keys atomically.
func (s *Store) PutBatch(table string, keys, values [][]byte) error {
	b := s.db.NewBatch()
	defer b.Close()
	for i := range keys {
		if err := b.Set(tableKey(table, keys[i]), values[i], nil); err != nil {
			return htaperrors.WrapStorage(err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}

// Get returns the raw value for key under table, or ok=false if absent.
func (s *Store) Get(table string, key []byte) (value []byte, ok bool, err error) {
	v, closer, getErr := s.db.Get(tableKey(table, key))
	if getErr == pebble.ErrNotFound {
		return nil, false, nil
	}
	if getErr != nil {
		return nil, false, htaperrors.WrapStorage(getErr)
	}
	out := make([]byte, len(v))
	copy(out, v)
	closer.Close()
	return out, true, nil
}

// Delete removes key under table. The engine's flush calls it for every key
// whose newest delta version is a tombstone; no tombstone is stored here.
func (s *Store) Delete(table string, key []byte) error {
	if err := s.db.Delete(tableKey(table, key), pebble.Sync); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}

// KV is one key/value pair returned by a scan, with the table prefix
// already stripped from Key.
type KV struct {
	Key   []byte
	Value []byte
}

// Scan iterates keys in [startKey, endKey) under table in ascending order.
// A nil endKey scans to the end of the table. fn is called once per key in
// order; returning an error stops the scan and propagates the error.
func (s *Store) Scan(table string, startKey, endKey []byte, fn func(KV) error) error {
	lo, hi := tablePrefixBounds(table)
	if startKey != nil {
		lo = tableKey(table, startKey)
	}
	if endKey != nil {
		hi = tableKey(table, endKey)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return htaperrors.WrapStorage(err)
	}
	defer iter.Close()

	prefix := append([]byte(table), 0)
	for iter.First(); iter.Valid(); iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		stripped := make([]byte, len(k)-len(prefix))
		copy(stripped, k[len(prefix):])
		v := iter.Value()
		value := make([]byte, len(v))
		copy(value, v)
		if err := fn(KV{Key: stripped, Value: value}); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}

// Count returns the number of keys stored under table.
func (s *Store) Count(table string) (int, error) {
	n := 0
	err := s.Scan(table, nil, nil, func(KV) error {
		n++
		return nil
	})
	return n, err
}

// DropTable deletes every key stored under table. DROP TABLE does not call
// it; persisted rows of a dropped table stay in place.
func (s *Store) DropTable(table string) error {
	lo, hi := tablePrefixBounds(table)
	if err := s.db.DeleteRange(lo, hi, pebble.Sync); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}

// Flush forces a memtable flush to an SSTable. Every write above already
// uses pebble.Sync, so Flush is not needed for durability.
func (s *Store) Flush() error {
	if err := s.db.Flush(); err != nil {
		return htaperrors.WrapStorage(err)
	}
	return nil
}
