package exec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/types"
)

// LimitOp skips Offset rows then yields up to Count rows from Input,
// tracking how many rows it has already skipped/emitted across Next calls.
type LimitOp struct {
	Input  Operator
	Count  int64
	Offset int64

	skipped int64
	emitted int64
}

func (l *LimitOp) Schema() []catalog.FieldMeta { return l.Input.Schema() }

func (l *LimitOp) Reset() error {
	l.skipped = 0
	l.emitted = 0
	return l.Input.Reset()
}

func (l *LimitOp) Next() (arrow.Record, bool, error) {
	if l.Count >= 0 && l.emitted >= l.Count {
		return nil, false, nil
	}
	for {
		rec, ok, err := l.Input.Next()
		if err != nil || !ok {
			return nil, ok, err
		}
		n := int(rec.NumRows())
		start := 0
		if l.skipped < l.Offset {
			toSkip := l.Offset - l.skipped
			if toSkip >= int64(n) {
				l.skipped += int64(n)
				continue
			}
			start = int(toSkip)
			l.skipped += toSkip
		}
		remaining := n - start
		if remaining <= 0 {
			continue
		}
		room := l.Count - l.emitted
		if int64(remaining) > room {
			remaining = int(room)
		}
		idxs := make([]int, remaining)
		for i := range idxs {
			idxs[i] = start + i
		}
		l.emitted += int64(remaining)
		return takeRowsGeneric(rec, idxs), true, nil
	}
}

// takeRowsGeneric gathers rows idxs of rec into a new record (rec itself
// when idxs is the identity); FilterOp and LimitOp both use it.
func takeRowsGeneric(rec arrow.Record, idxs []int) arrow.Record {
	if len(idxs) == int(rec.NumRows()) {
		allIdentity := true
		for i, idx := range idxs {
			if i != idx {
				allIdentity = false
				break
			}
		}
		if allIdentity {
			return rec
		}
	}
	cols := make([]arrow.Array, rec.NumCols())
	schema := rec.Schema()
	for c := 0; c < int(rec.NumCols()); c++ {
		col := rec.Column(c)
		lt, err := columnar.LogicalTypeOf(schema.Field(c).Type)
		if err != nil {
			lt = types.TypeUtf8
		}
		vals := make([]types.Scalar, len(idxs))
		for i, rowIdx := range idxs {
			vals[i] = scalarAt(col, rowIdx)
		}
		cols[c] = buildArray(lt, vals)
	}
	return array.NewRecord(schema, cols, int64(len(idxs)))
}
