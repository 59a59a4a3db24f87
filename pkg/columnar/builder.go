package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/types"
)

// RowBuilder accumulates rows (one types.Scalar per field, in schema order)
// into a single arrow.Record, used when flushing a batch of delta-store rows
// into the columnar cache.
type RowBuilder struct {
	schema   *arrow.Schema
	fields   []FieldDef
	builders []array.Builder
	mem      memory.Allocator
}

func NewRowBuilder(fields []FieldDef) *RowBuilder {
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(fields)
	builders := make([]array.Builder, len(fields))
	for i, f := range schema.Fields() {
		builders[i] = array.NewBuilder(mem, f.Type)
	}
	return &RowBuilder{schema: schema, fields: fields, builders: builders, mem: mem}
}

// Append adds one row. row must have exactly len(fields) scalars, in
// schema-field order; a Null() scalar appends a null cell.
func (b *RowBuilder) Append(row []types.Scalar) error {
	if len(row) != len(b.builders) {
		return &errors.SchemaError{Message: "row width does not match schema field count"}
	}
	for i, cell := range row {
		if err := appendScalar(b.builders[i], b.fields[i].Type, cell); err != nil {
			return err
		}
	}
	return nil
}

func appendScalar(bld array.Builder, want types.LogicalType, cell types.Scalar) error {
	if cell.IsNull() {
		bld.AppendNull()
		return nil
	}
	if cell.Type != want {
		return &errors.TypeMismatchError{Expected: want.String(), Actual: cell.Type.String()}
	}
	switch want {
	case types.TypeInt32:
		bld.(*array.Int32Builder).Append(cell.I32)
	case types.TypeInt64:
		bld.(*array.Int64Builder).Append(cell.I64)
	case types.TypeFloat64:
		bld.(*array.Float64Builder).Append(cell.F64)
	case types.TypeUtf8:
		bld.(*array.StringBuilder).Append(cell.Str)
	case types.TypeBoolean:
		bld.(*array.BooleanBuilder).Append(cell.Bool)
	default:
		return &errors.SchemaError{Message: "cannot append unsupported scalar type"}
	}
	return nil
}

// NewRecord finalizes the accumulated rows into an arrow.Record. The
// builders are reset and may accept a new batch of rows afterward.
func (b *RowBuilder) NewRecord() arrow.Record {
	cols := make([]arrow.Array, len(b.builders))
	for i, bld := range b.builders {
		cols[i] = bld.NewArray()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	var n int64
	if len(cols) > 0 {
		n = int64(cols[0].Len())
	}
	return array.NewRecord(b.schema, cols, n)
}
