package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/htapcore/engine/pkg/types"
)

// RowDecoder turns one stored row value (the engine's row encoding, e.g.
// the JSON-array row format pkg/sql/exec writes) into a Scalar slice ordered to match a table's
// FieldDef list. Supplied by the caller so pkg/columnar stays independent of
// the row wire format, the same dependency-inversion shape pkg/txn uses for
// its ReadFunc/CommitFunc.
type RowDecoder func(value []byte) ([]types.Scalar, error)

// SyncSource yields every live row currently resident for a table, in
// whatever order the backing store iterates; the delta store's Each and a
// persistent-backend Scan both satisfy this shape once bound with a table
// name by the caller.
type SyncSource func(visit func(value []byte) error) error

// SyncFromDelta rebuilds a table's columnar batches from a row source
// (typically the delta store's Each, or a snapshot scan merging the delta
// and persistent tiers), decoding each stored row with decode and
// chunking the result into Arrow batches of at most rowsPerBatch rows each.
func SyncFromDelta(fields []FieldDef, rowsPerBatch int, source SyncSource, decode RowDecoder) ([]arrow.Record, error) {
	if rowsPerBatch <= 0 {
		rowsPerBatch = 4096
	}

	var batches []arrow.Record
	builder := NewRowBuilder(fields)
	count := 0

	flush := func() {
		if count == 0 {
			return
		}
		batches = append(batches, builder.NewRecord())
		builder = NewRowBuilder(fields)
		count = 0
	}

	err := source(func(value []byte) error {
		row, err := decode(value)
		if err != nil {
			return err
		}
		if err := builder.Append(row); err != nil {
			return err
		}
		count++
		if count >= rowsPerBatch {
			flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	flush()

	return batches, nil
}
