// Package catalog owns the table and index registry: schema and index
// descriptors persisted under the reserved __meta__/schemas and
// __meta__/indexes namespaces of the persistent backend, mirrored in an
// in-memory map for lookups on the hot path.
package catalog

import (
	"strings"

	"github.com/htapcore/engine/pkg/types"
)

// SchemasTable and IndexesTable are the reserved persist.Store table names
// the catalog owns; no SQL statement may create a user table under either.
const (
	SchemasTable = "__meta__/schemas"
	IndexesTable = "__meta__/indexes"
)

// FieldMeta describes one column of a table's schema.
type FieldMeta struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// SchemaMeta is a table's persisted schema descriptor.
type SchemaMeta struct {
	TableName string      `json:"table_name"`
	Fields    []FieldMeta `json:"fields"`
}

// IndexMeta is a single-column index's persisted descriptor.
type IndexMeta struct {
	IndexName  string `json:"index_name"`
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name"`
}

// AlterKind enumerates ALTER TABLE's supported sub-operations. Mirrors
// pkg/sql/plan.AlterKind's three values; duplicated rather than imported
// since pkg/sql/plan already imports this package for FieldMeta, and
// catalog must not import back.
type AlterKind int

const (
	AlterAddColumn AlterKind = iota
	AlterDropColumn
	AlterRenameColumn
)

// normalizeDataType maps the spec's broader printed-type surface (Int8,
// Int16, UInt{8,16,32,64}, Float32, Date32, Date64, Timestamp(...), ...) onto
// the reduced five-value LogicalType set the execution engine and the
// Arrow-backed columnar cache actually carry, per a DESIGN.md decision:
// narrower declared types widen to their nearest carrier (Int8/Int16/UInt* ->
// Int32 or Int64 by width, Float32 -> Float64, Date*/Timestamp -> Int64
// epoch), preserving DataType's original string in the descriptor for
// round-tripping even though the carried LogicalType is coarser.
func normalizeDataType(name string) (types.LogicalType, bool) {
	switch name {
	case "Int8", "Int16", "UInt8", "UInt16":
		return types.TypeInt32, true
	case "UInt32", "UInt64", "Date32", "Date64":
		return types.TypeInt64, true
	case "Float32":
		return types.TypeFloat64, true
	case "Binary":
		return types.TypeUtf8, true
	default:
		if t, ok := types.ParseLogicalType(name); ok {
			return t, true
		}
		if strings.HasPrefix(name, "Timestamp") {
			return types.TypeInt64, true
		}
		return 0, false
	}
}

// LogicalType resolves a field's declared DataType string to the engine's
// runtime Scalar type.
func (f FieldMeta) LogicalType() (types.LogicalType, bool) {
	return normalizeDataType(f.DataType)
}

// FieldByName finds a field case-insensitively, matching the spec's
// case-insensitive column lookup rule.
func (s *SchemaMeta) FieldByName(name string) (FieldMeta, bool) {
	for _, f := range s.Fields {
		if equalFold(f.Name, name) {
			return f, true
		}
	}
	return FieldMeta{}, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
