package exec

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/types"
)

// SortMergeOp drains Input entirely, then emits it back as a single
// stably-sorted batch ordered by Keys. Spilling to multiple output batches
// is unnecessary at this engine's single-node scale; one full materialized
// batch is the simplification made here.
type SortMergeOp struct {
	Input Operator
	Keys  []phys.PSortKey

	sorted  arrow.Record
	emitted bool
}

func (s *SortMergeOp) Schema() []catalog.FieldMeta { return s.Input.Schema() }

func (s *SortMergeOp) Reset() error {
	s.sorted = nil
	s.emitted = false
	return s.Input.Reset()
}

func (s *SortMergeOp) Next() (arrow.Record, bool, error) {
	if s.emitted {
		return nil, false, nil
	}
	if s.sorted == nil {
		rec, err := s.drainAndSort()
		if err != nil {
			return nil, false, err
		}
		s.sorted = rec
	}
	s.emitted = true
	if int(s.sorted.NumRows()) == 0 {
		return nil, false, nil
	}
	return s.sorted, true, nil
}

func (s *SortMergeOp) drainAndSort() (arrow.Record, error) {
	var batches []arrow.Record
	for {
		rec, ok, err := s.Input.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batches = append(batches, rec)
	}
	merged := concatRecords(batches)
	n := int(merged.NumRows())
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		return less(merged, idxs[i], idxs[j], s.Keys)
	})
	return takeRowsGeneric(merged, idxs), nil
}

func less(rec arrow.Record, a, b int, keys []phys.PSortKey) bool {
	for _, k := range keys {
		col := rec.Column(k.Index)
		av, bv := scalarAt(col, a), scalarAt(col, b)
		if av.IsNull() && bv.IsNull() {
			continue
		}
		if av.IsNull() || bv.IsNull() {
			if k.NullsFirst {
				return av.IsNull()
			}
			return bv.IsNull()
		}
		cmp := compareScalars(av, bv)
		if cmp == 0 {
			continue
		}
		if k.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return false
}

func compareScalars(a, b types.Scalar) int {
	if af, aok := a.AsFloat64(); aok {
		if bf, bok := b.AsFloat64(); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if a.Type == types.TypeUtf8 && b.Type == types.TypeUtf8 {
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	}
	if a.Type == types.TypeBoolean && b.Type == types.TypeBoolean {
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool {
			return -1
		}
		return 1
	}
	return 0
}

// concatRecords stacks batches into a single record sharing the first
// batch's schema; an empty input returns a zero-row record with no columns.
func concatRecords(batches []arrow.Record) arrow.Record {
	if len(batches) == 0 {
		return array.NewRecord(arrow.NewSchema(nil, nil), nil, 0)
	}
	if len(batches) == 1 {
		return batches[0]
	}
	schema := batches[0].Schema()
	numCols := int(batches[0].NumCols())
	cols := make([]arrow.Array, numCols)
	var total int64
	for _, b := range batches {
		total += b.NumRows()
	}
	for c := 0; c < numCols; c++ {
		lt, err := columnar.LogicalTypeOf(schema.Field(c).Type)
		if err != nil {
			lt = types.TypeUtf8
		}
		vals := make([]types.Scalar, 0, total)
		for _, b := range batches {
			col := b.Column(c)
			for r := 0; r < int(b.NumRows()); r++ {
				vals = append(vals, scalarAt(col, r))
			}
		}
		cols[c] = buildArray(lt, vals)
	}
	return array.NewRecord(schema, cols, total)
}
