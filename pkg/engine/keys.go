package engine

import "bytes"

// tableKey namespaces a bare user key under table before it enters the
// delta store, mirroring pkg/persist's private tableKey scheme
// ("<table>\x00<key>") so the same byte-ordering property (grouping every
// version of every row under one table contiguously once a table name has
// no embedded NUL byte) holds on both tiers. Duplicated rather than
// exported from pkg/persist because pkg/persist's Store already applies
// its own namespacing internally; the delta store has no such notion and
// needs the caller to supply it.
func tableKey(table string, key []byte) []byte {
	out := make([]byte, 0, len(table)+1+len(key))
	out = append(out, table...)
	out = append(out, 0)
	out = append(out, key...)
	return out
}

// splitTableKey reverses tableKey, recovering the table name and bare key
// from a delta-store user key.
func splitTableKey(full []byte) (table string, bare []byte) {
	i := bytes.IndexByte(full, 0)
	if i < 0 {
		return string(full), nil
	}
	return string(full[:i]), full[i+1:]
}
