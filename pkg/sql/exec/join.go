package exec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// HashJoinOp drains the left input, concatenates it, builds an index keyed
// by the join conditions' left column values, then drains and concatenates
// the right input and probes with it row by row. The whole result is
// materialized as a single output
// record (see SortMergeOp for the same simplification at this engine's
// single-node scale).
//
// noRow marks an unmatched side in an outer join's take vector, the Go
// equivalent of a u32::MAX sentinel.
type HashJoinOp struct {
	Left, Right Operator
	Type        plan.JoinType
	Conditions  []phys.PJoinCondition

	result  arrow.Record
	emitted bool
}

func (j *HashJoinOp) Schema() []catalog.FieldMeta {
	left := j.Left.Schema()
	right := j.Right.Schema()
	out := make([]catalog.FieldMeta, 0, len(left)+len(right))
	for _, f := range left {
		if j.Type == plan.JoinRight {
			f.Nullable = true
		}
		out = append(out, f)
	}
	for _, f := range right {
		if j.Type == plan.JoinLeft {
			f.Nullable = true
		}
		out = append(out, f)
	}
	return out
}

func (j *HashJoinOp) Reset() error {
	j.result = nil
	j.emitted = false
	if err := j.Left.Reset(); err != nil {
		return err
	}
	return j.Right.Reset()
}

func (j *HashJoinOp) Next() (arrow.Record, bool, error) {
	if j.emitted {
		return nil, false, nil
	}
	if j.result == nil {
		rec, err := j.build()
		if err != nil {
			return nil, false, err
		}
		j.result = rec
	}
	j.emitted = true
	if int(j.result.NumRows()) == 0 {
		return nil, false, nil
	}
	return j.result, true, nil
}

func (j *HashJoinOp) build() (arrow.Record, error) {
	leftBatches, err := drainAll(j.Left)
	if err != nil {
		return nil, err
	}
	leftSchema := j.Left.Schema()
	left := concatRecords(leftBatches)
	leftN := int(left.NumRows())

	rightBatches, err := drainAll(j.Right)
	if err != nil {
		return nil, err
	}
	right := concatRecords(rightBatches)
	rightN := int(right.NumRows())

	// index left rows by their join-key byte encoding, supporting
	// duplicate keys (one-to-many joins).
	index := map[string][]int{}
	if leftN > 0 {
		for row := 0; row < leftN; row++ {
			key := joinKey(left, row, leftIndices(j.Conditions))
			index[key] = append(index[key], row)
		}
	}

	var leftTake, rightTake []int

	if j.Type == plan.JoinCross {
		for l := 0; l < leftN; l++ {
			for r := 0; r < rightN; r++ {
				leftTake = append(leftTake, l)
				rightTake = append(rightTake, r)
			}
		}
	} else {
		for r := 0; r < rightN; r++ {
			key := joinKey(right, r, rightIndices(j.Conditions))
			matches := index[key]
			if len(matches) == 0 {
				if j.Type == plan.JoinRight {
					leftTake = append(leftTake, noRow)
					rightTake = append(rightTake, r)
				}
				continue
			}
			for _, l := range matches {
				leftTake = append(leftTake, l)
				rightTake = append(rightTake, r)
			}
		}
		if j.Type == plan.JoinLeft {
			matchedLeft := make([]bool, leftN)
			for _, l := range leftTake {
				if l != noRow {
					matchedLeft[l] = true
				}
			}
			for l := 0; l < leftN; l++ {
				if !matchedLeft[l] {
					leftTake = append(leftTake, l)
					rightTake = append(rightTake, noRow)
				}
			}
		}
	}

	return combine(leftSchema, left, j.Right.Schema(), right, leftTake, rightTake), nil
}

func leftIndices(conds []phys.PJoinCondition) []int {
	out := make([]int, len(conds))
	for i, c := range conds {
		out[i] = c.LeftIndex
	}
	return out
}

func rightIndices(conds []phys.PJoinCondition) []int {
	out := make([]int, len(conds))
	for i, c := range conds {
		out[i] = c.RightIndex
	}
	return out
}

func joinKey(rec arrow.Record, row int, indices []int) string {
	var key []byte
	for _, idx := range indices {
		key = append(key, scalarAt(rec.Column(idx), row).EncodeSortable()...)
	}
	return string(key)
}

func drainAll(op Operator) ([]arrow.Record, error) {
	var batches []arrow.Record
	for {
		rec, ok, err := op.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batches = append(batches, rec)
	}
	return batches, nil
}

// combine builds the final joined record by taking row leftTake[i] from
// left (or emitting nulls when it is noRow) concatenated with row
// rightTake[i] from right (same rule), for every output row i.
func combine(leftSchema []catalog.FieldMeta, left arrow.Record, rightSchema []catalog.FieldMeta, right arrow.Record, leftTake, rightTake []int) arrow.Record {
	n := len(leftTake)
	fields := make([]arrow.Field, 0, len(leftSchema)+len(rightSchema))
	for _, m := range leftSchema {
		fields = append(fields, arrowFieldFor(catalog.FieldMeta{Name: m.Name, DataType: m.DataType, Nullable: true}))
	}
	for _, m := range rightSchema {
		fields = append(fields, arrowFieldFor(catalog.FieldMeta{Name: m.Name, DataType: m.DataType, Nullable: true}))
	}
	schema := arrow.NewSchema(fields, nil)

	cols := make([]arrow.Array, len(fields))
	col := 0
	for c := 0; c < int(left.NumCols()); c++ {
		lt := fieldType(leftSchema[c].DataType)
		vals := make([]types.Scalar, n)
		leftCol := left.Column(c)
		for i, row := range leftTake {
			if row == noRow {
				vals[i] = types.Null()
			} else {
				vals[i] = scalarAt(leftCol, row)
			}
		}
		cols[col] = buildArray(lt, vals)
		col++
	}
	for c := 0; c < int(right.NumCols()); c++ {
		lt := fieldType(rightSchema[c].DataType)
		vals := make([]types.Scalar, n)
		rightCol := right.Column(c)
		for i, row := range rightTake {
			if row == noRow {
				vals[i] = types.Null()
			} else {
				vals[i] = scalarAt(rightCol, row)
			}
		}
		cols[col] = buildArray(lt, vals)
		col++
	}
	return array.NewRecord(schema, cols, int64(n))
}

func fieldType(dataType string) types.LogicalType {
	lt, ok := types.ParseLogicalType(dataType)
	if !ok {
		return types.TypeUtf8
	}
	return lt
}
