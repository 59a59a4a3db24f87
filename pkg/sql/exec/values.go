package exec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/types"
)

// scalarAt reads one cell of col as a types.Scalar, returning types.Null()
// for a null cell.
func scalarAt(col arrow.Array, row int) types.Scalar {
	if col.IsNull(row) {
		return types.Null()
	}
	switch c := col.(type) {
	case *array.Int32:
		return types.Int32(c.Value(row))
	case *array.Int64:
		return types.Int64(c.Value(row))
	case *array.Float64:
		return types.Float64(c.Value(row))
	case *array.String:
		return types.Utf8(c.Value(row))
	case *array.Boolean:
		return types.Boolean(c.Value(row))
	default:
		return types.Null()
	}
}

// buildArray materializes vals (one scalar per output row) as an
// arrow.Array of logical type t, reusing pkg/columnar's LogicalType ->
// arrow.DataType mapping so the two packages never drift.
func buildArray(t types.LogicalType, vals []types.Scalar) arrow.Array {
	dt := columnar.ArrowSchema([]columnar.FieldDef{{Name: "v", Type: t}}).Field(0).Type
	mem := memory.NewGoAllocator()
	bld := array.NewBuilder(mem, dt)
	for _, v := range vals {
		if v.IsNull() {
			bld.AppendNull()
			continue
		}
		switch b := bld.(type) {
		case *array.Int32Builder:
			b.Append(v.I32)
		case *array.Int64Builder:
			b.Append(v.I64)
		case *array.Float64Builder:
			b.Append(v.F64)
		case *array.StringBuilder:
			b.Append(v.Str)
		case *array.BooleanBuilder:
			b.Append(v.Bool)
		default:
			bld.AppendNull()
		}
	}
	return bld.NewArray()
}

// broadcastLiteral returns a constant array of length n carrying v.
func broadcastLiteral(v types.Scalar, n int) arrow.Array {
	vals := make([]types.Scalar, n)
	for i := range vals {
		vals[i] = v
	}
	return buildArray(v.Type, vals)
}

// firstNonNullType returns the logical type of the first non-null scalar in
// vals, or fallback if every value is null.
func firstNonNullType(vals []types.Scalar, fallback types.LogicalType) types.LogicalType {
	for _, v := range vals {
		if !v.IsNull() {
			return v.Type
		}
	}
	return fallback
}

// noRow is this engine's equivalent of spec.md's take-with-sentinel
// (u32::MAX): the row index an outer join's take vector uses to mean "no
// matching row on this side, emit nulls instead." Go slice indices are
// signed, so -1 serves the same purpose without reserving a magic value
// out of a valid unsigned range.
const noRow = -1
