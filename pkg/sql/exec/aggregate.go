package exec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// HashAggregateOp drains Input entirely, groups rows by the encoded byte
// key of GroupBy (types.Scalar.EncodeSortable, per the Design Note that any
// stable byte encoding preserving per-type equality is acceptable), and
// emits one output row per distinct group.
type HashAggregateOp struct {
	Input      Operator
	GroupBy    []phys.PExpr
	GroupMeta  []catalog.FieldMeta
	Aggregates []phys.PAggregateItem

	result  arrow.Record
	emitted bool
}

func (a *HashAggregateOp) Schema() []catalog.FieldMeta {
	out := append([]catalog.FieldMeta{}, a.GroupMeta...)
	for _, it := range a.Aggregates {
		out = append(out, it.Meta)
	}
	return out
}

func (a *HashAggregateOp) Reset() error {
	a.result = nil
	a.emitted = false
	return a.Input.Reset()
}

type aggState struct {
	groupVals []types.Scalar
	count     int64
	sums      []float64
	sumInts   []bool // true while every value seen for that aggregate stayed integral
	mins      []types.Scalar
	maxs      []types.Scalar
	counts    []int64 // per-aggregate non-null count, for AVG
}

func (a *HashAggregateOp) Next() (arrow.Record, bool, error) {
	if a.emitted {
		return nil, false, nil
	}
	if a.result == nil {
		rec, err := a.drainAndAggregate()
		if err != nil {
			return nil, false, err
		}
		a.result = rec
	}
	a.emitted = true
	if int(a.result.NumRows()) == 0 {
		return nil, false, nil
	}
	return a.result, true, nil
}

func (a *HashAggregateOp) drainAndAggregate() (arrow.Record, error) {
	groups := map[string]*aggState{}
	var order []string

	for {
		rec, ok, err := a.Input.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		groupCols := make([]arrow.Array, len(a.GroupBy))
		for i, e := range a.GroupBy {
			col, err := Eval(e, rec)
			if err != nil {
				return nil, err
			}
			groupCols[i] = col
		}
		argCols := make([]arrow.Array, len(a.Aggregates))
		for i, it := range a.Aggregates {
			if it.Fn.Arg == nil {
				continue
			}
			col, err := Eval(it.Fn.Arg, rec)
			if err != nil {
				return nil, err
			}
			argCols[i] = col
		}

		n := int(rec.NumRows())
		for row := 0; row < n; row++ {
			groupVals := make([]types.Scalar, len(groupCols))
			var key []byte
			for i, col := range groupCols {
				groupVals[i] = scalarAt(col, row)
				key = append(key, groupVals[i].EncodeSortable()...)
			}
			st, ok := groups[string(key)]
			if !ok {
				st = newAggState(groupVals, len(a.Aggregates))
				groups[string(key)] = st
				order = append(order, string(key))
			}
			st.count++
			for i, it := range a.Aggregates {
				var v types.Scalar
				if argCols[i] != nil {
					v = scalarAt(argCols[i], row)
				}
				accumulate(st, i, it.Fn.Fn, v)
			}
		}
	}

	return a.buildResult(order, groups)
}

func newAggState(groupVals []types.Scalar, numAggs int) *aggState {
	return &aggState{
		groupVals: groupVals,
		sums:      make([]float64, numAggs),
		sumInts:   boolSliceTrue(numAggs),
		mins:      make([]types.Scalar, numAggs),
		maxs:      make([]types.Scalar, numAggs),
		counts:    make([]int64, numAggs),
	}
}

func boolSliceTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func accumulate(st *aggState, i int, fn plan.AggFunc, v types.Scalar) {
	if v.IsNull() {
		return
	}
	st.counts[i]++
	switch fn {
	case plan.AggCount:
		// st.counts[i] above already tracks non-null occurrences of Arg;
		// COUNT(*) (Arg == nil) uses st.count instead, set unconditionally
		// per input row regardless of this function.
	case plan.AggSum, plan.AggAvg:
		f, ok := v.AsFloat64()
		if !ok {
			return
		}
		st.sums[i] += f
		if v.Type == types.TypeFloat64 {
			st.sumInts[i] = false
		}
	case plan.AggMin:
		if st.mins[i].IsNull() || compareScalars(v, st.mins[i]) < 0 {
			st.mins[i] = v
		}
	case plan.AggMax:
		if st.maxs[i].IsNull() || compareScalars(v, st.maxs[i]) > 0 {
			st.maxs[i] = v
		}
	}
}

func (a *HashAggregateOp) buildResult(order []string, groups map[string]*aggState) (arrow.Record, error) {
	fields := make([]arrow.Field, 0, len(a.GroupMeta)+len(a.Aggregates))
	for _, m := range a.GroupMeta {
		fields = append(fields, arrowFieldFor(m))
	}
	for _, it := range a.Aggregates {
		fields = append(fields, arrowFieldFor(it.Meta))
	}
	schema := arrow.NewSchema(fields, nil)

	numCols := len(fields)
	colVals := make([][]types.Scalar, numCols)
	for c := range colVals {
		colVals[c] = make([]types.Scalar, 0, len(order))
	}

	for _, key := range order {
		st := groups[key]
		col := 0
		for _, gv := range st.groupVals {
			colVals[col] = append(colVals[col], gv)
			col++
		}
		for i, it := range a.Aggregates {
			var out types.Scalar
			switch it.Fn.Fn {
			case plan.AggCount:
				cnt := st.count
				if it.Fn.Arg != nil {
					cnt = st.counts[i]
				}
				out = types.Int64(cnt)
			case plan.AggSum:
				if st.counts[i] == 0 {
					out = types.Null()
				} else if st.sumInts[i] {
					out = types.Int64(int64(st.sums[i]))
				} else {
					out = types.Float64(st.sums[i])
				}
			case plan.AggAvg:
				if st.counts[i] == 0 {
					out = types.Null()
				} else {
					out = types.Float64(st.sums[i] / float64(st.counts[i]))
				}
			case plan.AggMin:
				out = st.mins[i]
			case plan.AggMax:
				out = st.maxs[i]
			default:
				return nil, &errors.SqlExecutionError{Message: "unsupported aggregate function", Context: aggFuncName(it.Fn.Fn)}
			}
			colVals[col] = append(colVals[col], out)
			col++
		}
	}

	cols := make([]arrow.Array, numCols)
	for c := 0; c < numCols; c++ {
		lt, _ := types.ParseLogicalType(fieldDataType(a, c))
		cols[c] = buildArray(lt, colVals[c])
	}
	return array.NewRecord(schema, cols, int64(len(order))), nil
}

func fieldDataType(a *HashAggregateOp, col int) string {
	if col < len(a.GroupMeta) {
		return a.GroupMeta[col].DataType
	}
	return a.Aggregates[col-len(a.GroupMeta)].Meta.DataType
}

func arrowFieldFor(m catalog.FieldMeta) arrow.Field {
	lt, ok := types.ParseLogicalType(m.DataType)
	if !ok {
		lt = types.TypeUtf8
	}
	dt := columnar.ArrowSchema([]columnar.FieldDef{{Name: m.Name, Type: lt}}).Field(0).Type
	return arrow.Field{Name: m.Name, Type: dt, Nullable: m.Nullable}
}
