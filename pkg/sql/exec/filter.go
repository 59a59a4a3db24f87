package exec

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/sql/phys"
)

// FilterOp retains only the rows of Input for which Predicate evaluates
// true, pulling and re-evaluating batches until one has a surviving row or
// the input is exhausted.
type FilterOp struct {
	Input     Operator
	Predicate phys.PExpr
}

func (f *FilterOp) Schema() []catalog.FieldMeta { return f.Input.Schema() }
func (f *FilterOp) Reset() error                { return f.Input.Reset() }

func (f *FilterOp) Next() (arrow.Record, bool, error) {
	for {
		rec, ok, err := f.Input.Next()
		if err != nil || !ok {
			return nil, ok, err
		}
		mask, err := Eval(f.Predicate, rec)
		if err != nil {
			return nil, false, err
		}
		out, n := applyMask(rec, mask)
		if n == 0 {
			continue
		}
		return out, true, nil
	}
}

// applyMask returns a new record containing only the rows where mask is
// true (non-null), along with the surviving row count.
func applyMask(rec arrow.Record, mask arrow.Array) (arrow.Record, int) {
	n := int(rec.NumRows())
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if s := scalarAt(mask, i); !s.IsNull() && s.Bool {
			keep = append(keep, i)
		}
	}
	if len(keep) == n {
		return rec, len(keep)
	}
	return takeRowsGeneric(rec, keep), len(keep)
}
