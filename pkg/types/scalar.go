// Package types defines the scalar value model shared by the storage layer
// and the SQL layer, so a logical type is converted between the two in
// exactly one place.
package types

import (
	"fmt"
	"math"
)

// LogicalType is the canonical printed form used in schema metadata
// (SchemaMeta.Fields[i].DataType) and reported by every Scalar.
type LogicalType int

const (
	TypeNull LogicalType = iota
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeUtf8
	TypeBoolean
)

func (t LogicalType) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeFloat64:
		return "Float64"
	case TypeUtf8:
		return "Utf8"
	case TypeBoolean:
		return "Boolean"
	default:
		return "Unknown"
	}
}

// ParseLogicalType accepts the canonical printed forms plus the common
// SQL-ish aliases used by DDL (INT, VARCHAR, ...). Unknown names are a
// schema error at the call site.
func ParseLogicalType(s string) (LogicalType, bool) {
	switch s {
	case "Null":
		return TypeNull, true
	case "Int32", "INT", "INTEGER":
		return TypeInt32, true
	case "Int64", "BIGINT":
		return TypeInt64, true
	case "Float64", "FLOAT", "DOUBLE":
		return TypeFloat64, true
	case "Utf8", "TEXT", "STRING", "VARCHAR":
		return TypeUtf8, true
	case "Boolean", "BOOL", "BOOLEAN":
		return TypeBoolean, true
	default:
		return 0, false
	}
}

// Scalar is a tagged sum of the values the engine can move around: null,
// int32, int64, float64, utf8 string, bool. Exactly one of the typed fields
// is meaningful, selected by Type.
type Scalar struct {
	Type LogicalType
	I32  int32
	I64  int64
	F64  float64
	Str  string
	Bool bool
}

func Null() Scalar                 { return Scalar{Type: TypeNull} }
func Int32(v int32) Scalar         { return Scalar{Type: TypeInt32, I32: v} }
func Int64(v int64) Scalar         { return Scalar{Type: TypeInt64, I64: v} }
func Float64(v float64) Scalar     { return Scalar{Type: TypeFloat64, F64: v} }
func Utf8(v string) Scalar         { return Scalar{Type: TypeUtf8, Str: v} }
func Boolean(v bool) Scalar        { return Scalar{Type: TypeBoolean, Bool: v} }

func (s Scalar) IsNull() bool { return s.Type == TypeNull }

// AsFloat64 promotes any numeric scalar to float64, used by arithmetic and
// comparison coercion (i32<->i64 -> i64, int<->f64 -> f64).
func (s Scalar) AsFloat64() (float64, bool) {
	switch s.Type {
	case TypeInt32:
		return float64(s.I32), true
	case TypeInt64:
		return float64(s.I64), true
	case TypeFloat64:
		return s.F64, true
	default:
		return 0, false
	}
}

func (s Scalar) AsInt64() (int64, bool) {
	switch s.Type {
	case TypeInt32:
		return int64(s.I32), true
	case TypeInt64:
		return s.I64, true
	default:
		return 0, false
	}
}

func (s Scalar) String() string {
	switch s.Type {
	case TypeNull:
		return "NULL"
	case TypeInt32:
		return fmt.Sprintf("%d", s.I32)
	case TypeInt64:
		return fmt.Sprintf("%d", s.I64)
	case TypeFloat64:
		return fmt.Sprintf("%g", s.F64)
	case TypeUtf8:
		return s.Str
	case TypeBoolean:
		return fmt.Sprintf("%t", s.Bool)
	default:
		return "?"
	}
}

// EncodeSortable returns a byte encoding of the scalar suitable for use as a
// GROUP BY key component: a null-marker byte followed by type-tagged bytes,
// such that cell equality implies byte equality. Ordering is not guaranteed
// across types, only equality, matching the Design Note on GROUP BY key
// encoding: "any stable byte encoding ... is acceptable as long as cell
// equality implies byte equality per type."
func (s Scalar) EncodeSortable() []byte {
	if s.IsNull() {
		return []byte{0}
	}
	buf := []byte{1, byte(s.Type)}
	switch s.Type {
	case TypeInt32:
		buf = appendUint64(buf, uint64(uint32(s.I32)))
	case TypeInt64:
		buf = appendUint64(buf, uint64(s.I64))
	case TypeFloat64:
		buf = appendUint64(buf, math.Float64bits(s.F64))
	case TypeUtf8:
		buf = append(buf, s.Str...)
	case TypeBoolean:
		if s.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(v >> (56 - 8*i))
	}
	return append(buf, tmp[:]...)
}
