// Package columnar is Tier 2: a per-table cache of Arrow record batches used
// by the SQL executor for vectorized scans, filled by periodic flushes from
// the delta store and evicted under memory pressure by least-recently-used
// access counter.
package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/types"
)

// ArrowSchema converts a field list (name, LogicalType) into the Arrow
// schema used for every batch cached for that table. Every field is
// nullable: the storage layer never statically knows whether a row's column
// was actually present before it is materialized.
func ArrowSchema(fields []FieldDef) *arrow.Schema {
	afields := make([]arrow.Field, len(fields))
	for i, f := range fields {
		afields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true}
	}
	return arrow.NewSchema(afields, nil)
}

// FieldDef names one column of a table's Arrow schema.
type FieldDef struct {
	Name string
	Type types.LogicalType
}

func arrowType(t types.LogicalType) arrow.DataType {
	switch t {
	case types.TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case types.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case types.TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case types.TypeUtf8:
		return arrow.BinaryTypes.String
	case types.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.Null
	}
}

// LogicalTypeOf reverses arrowType for schema introspection (e.g. EXPLAIN
// output, column binding in pkg/sql/phys).
func LogicalTypeOf(dt arrow.DataType) (types.LogicalType, error) {
	switch dt.ID() {
	case arrow.INT32:
		return types.TypeInt32, nil
	case arrow.INT64:
		return types.TypeInt64, nil
	case arrow.FLOAT64:
		return types.TypeFloat64, nil
	case arrow.STRING:
		return types.TypeUtf8, nil
	case arrow.BOOL:
		return types.TypeBoolean, nil
	default:
		return 0, &errors.SchemaError{Message: "unsupported arrow type: " + dt.Name()}
	}
}
