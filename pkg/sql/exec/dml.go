package exec

import (
	"encoding/binary"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	json "github.com/goccy/go-json"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/types"
)

// RowWriter is the dependency-inverted commit path DML drives; pkg/engine
// passes its *txn.Transaction, whose Put/Delete buffer writes that are
// applied under versioned keys at commit.
type RowWriter interface {
	Put(table string, key, value []byte) error
	Delete(table string, key []byte) error
}

// KeyedRowSource streams a table's raw (key, value) pairs for UPDATE/DELETE's
// scan-reconstruct-filter-mutate cycle. Distinct from RowSource, which
// yields already-decoded rows for TableScan: DML needs the raw key back so
// it can reinsert or delete under it.
type KeyedRowSource interface {
	ScanRows(table string, visit func(key, value []byte) error) error
}

// Insert extracts the first literal of each row as the encoded key and
// serializes the remaining columns as a JSON array, committing each row
// through writer. Returns the number of rows inserted.
func Insert(n phys.Insert, writer RowWriter) (int64, error) {
	for _, row := range n.Rows {
		vals, err := evalLiteralRow(row)
		if err != nil {
			return 0, err
		}
		if len(vals) == 0 {
			return 0, &errors.SqlExecutionError{Message: "insert row has no columns"}
		}
		key, err := EncodeKey(vals[0])
		if err != nil {
			return 0, err
		}
		value, err := SerializeRow(vals[1:])
		if err != nil {
			return 0, err
		}
		if err := writer.Put(n.Table, key, value); err != nil {
			return 0, err
		}
	}
	return int64(len(n.Rows)), nil
}

// Update scans n.Table, reconstructs each record (key as column 0, decoded
// JSON value as the rest), evaluates n.Predicate, and for matching rows
// overwrites the assigned columns by position before reserializing and
// reinserting under the same key. Returns the affected row count.
func Update(n phys.Update, source KeyedRowSource, writer RowWriter) (int64, error) {
	if len(n.Schema) == 0 {
		return 0, &errors.SchemaError{Message: "update target has no schema"}
	}
	keyType, ok := types.ParseLogicalType(n.Schema[0].DataType)
	if !ok {
		return 0, &errors.SchemaError{Message: "unknown key column type: " + n.Schema[0].DataType}
	}

	var count int64
	err := source.ScanRows(n.Table, func(key, value []byte) error {
		keyScalar, err := DecodeKey(key, keyType)
		if err != nil {
			return err
		}
		rest, err := DeserializeRow(value, n.Schema[1:])
		if err != nil {
			return err
		}
		full := append([]types.Scalar{keyScalar}, rest...)

		rec, err := buildOneRowRecord(n.Schema, full)
		if err != nil {
			return err
		}
		if n.Predicate != nil {
			matched, err := evalRowPredicate(n.Predicate, rec)
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}

		for _, a := range n.Assignments {
			col, err := Eval(a.Value, rec)
			if err != nil {
				return err
			}
			if a.Index < 0 || a.Index >= len(full) {
				return &errors.SqlExecutionError{Message: "assignment column index out of range"}
			}
			full[a.Index] = scalarAt(col, 0)
		}

		newValue, err := SerializeRow(full[1:])
		if err != nil {
			return err
		}
		if err := writer.Put(n.Table, key, newValue); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// Delete scans and filters analogously to Update, deleting each matching
// key. Returns the affected row count.
func Delete(n phys.Delete, source KeyedRowSource, writer RowWriter) (int64, error) {
	if len(n.Schema) == 0 {
		return 0, &errors.SchemaError{Message: "delete target has no schema"}
	}
	keyType, ok := types.ParseLogicalType(n.Schema[0].DataType)
	if !ok {
		return 0, &errors.SchemaError{Message: "unknown key column type: " + n.Schema[0].DataType}
	}

	var count int64
	err := source.ScanRows(n.Table, func(key, value []byte) error {
		keyScalar, err := DecodeKey(key, keyType)
		if err != nil {
			return err
		}
		rest, err := DeserializeRow(value, n.Schema[1:])
		if err != nil {
			return err
		}
		full := append([]types.Scalar{keyScalar}, rest...)

		if n.Predicate != nil {
			rec, err := buildOneRowRecord(n.Schema, full)
			if err != nil {
				return err
			}
			matched, err := evalRowPredicate(n.Predicate, rec)
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}

		if err := writer.Delete(n.Table, key); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func evalRowPredicate(pred phys.PExpr, rec arrow.Record) (bool, error) {
	mask, err := Eval(pred, rec)
	if err != nil {
		return false, err
	}
	s := scalarAt(mask, 0)
	return !s.IsNull() && s.Bool, nil
}

// evalLiteralRow evaluates a row of literal-only expressions (as produced
// by pkg/sql/phys.Planner.Bind for INSERT's value lists) against a
// zero-column single-row record, so the existing Eval machinery can be
// reused without a separate literal-only evaluator.
func evalLiteralRow(row []phys.PExpr) ([]types.Scalar, error) {
	dummy := array.NewRecord(arrow.NewSchema(nil, nil), nil, 1)
	vals := make([]types.Scalar, len(row))
	for i, e := range row {
		col, err := Eval(e, dummy)
		if err != nil {
			return nil, err
		}
		vals[i] = scalarAt(col, 0)
	}
	return vals, nil
}

func buildOneRowRecord(schema []catalog.FieldMeta, vals []types.Scalar) (arrow.Record, error) {
	fields := make([]columnar.FieldDef, len(schema))
	for i, f := range schema {
		lt, ok := types.ParseLogicalType(f.DataType)
		if !ok {
			lt = types.TypeUtf8
		}
		fields[i] = columnar.FieldDef{Name: f.Name, Type: lt}
	}
	b := columnar.NewRowBuilder(fields)
	if err := b.Append(vals); err != nil {
		return nil, err
	}
	return b.NewRecord(), nil
}

// EncodeKey mirrors INSERT's key extraction rule: integers little-endian by
// width, booleans as a single byte, strings as their raw UTF-8 bytes.
func EncodeKey(v types.Scalar) ([]byte, error) {
	switch v.Type {
	case types.TypeInt32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.I32))
		return buf, nil
	case types.TypeInt64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.I64))
		return buf, nil
	case types.TypeBoolean:
		if v.Bool {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case types.TypeUtf8:
		return []byte(v.Str), nil
	default:
		return nil, &errors.SqlExecutionError{Message: "unsupported key column type", Context: v.Type.String()}
	}
}

// DecodeKey reverses EncodeKey given the key column's declared logical type.
func DecodeKey(b []byte, lt types.LogicalType) (types.Scalar, error) {
	switch lt {
	case types.TypeInt32:
		if len(b) != 4 {
			return types.Scalar{}, &errors.SchemaError{Message: "malformed Int32 key"}
		}
		return types.Int32(int32(binary.LittleEndian.Uint32(b))), nil
	case types.TypeInt64:
		if len(b) != 8 {
			return types.Scalar{}, &errors.SchemaError{Message: "malformed Int64 key"}
		}
		return types.Int64(int64(binary.LittleEndian.Uint64(b))), nil
	case types.TypeBoolean:
		if len(b) != 1 {
			return types.Scalar{}, &errors.SchemaError{Message: "malformed Boolean key"}
		}
		return types.Boolean(b[0] != 0), nil
	case types.TypeUtf8:
		return types.Utf8(string(b)), nil
	default:
		return types.Scalar{}, &errors.SchemaError{Message: "unsupported key column type: " + lt.String()}
	}
}

// SerializeRow JSON-encodes vals as a small positional array, the format
// Update/Delete's reconstruction step expects the stored value to be in.
func SerializeRow(vals []types.Scalar) ([]byte, error) {
	raw := make([]interface{}, len(vals))
	for i, v := range vals {
		switch v.Type {
		case types.TypeNull:
			raw[i] = nil
		case types.TypeInt32:
			raw[i] = v.I32
		case types.TypeInt64:
			raw[i] = v.I64
		case types.TypeFloat64:
			raw[i] = v.F64
		case types.TypeUtf8:
			raw[i] = v.Str
		case types.TypeBoolean:
			raw[i] = v.Bool
		}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, &errors.SerializationError{Message: err.Error()}
	}
	return data, nil
}

// DeserializeRow decodes a row serialized by SerializeRow back into typed
// scalars, coercing each JSON value according to fields' declared types.
func DeserializeRow(data []byte, fields []catalog.FieldMeta) ([]types.Scalar, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &errors.SerializationError{Message: err.Error()}
	}
	if len(raw) != len(fields) {
		return nil, &errors.SchemaError{Message: "stored row width does not match schema field count"}
	}
	out := make([]types.Scalar, len(fields))
	for i, f := range fields {
		if string(raw[i]) == "null" {
			out[i] = types.Null()
			continue
		}
		lt, ok := types.ParseLogicalType(f.DataType)
		if !ok {
			return nil, &errors.SchemaError{Message: "unknown data type: " + f.DataType}
		}
		var err error
		switch lt {
		case types.TypeInt32:
			var v int32
			err = json.Unmarshal(raw[i], &v)
			out[i] = types.Int32(v)
		case types.TypeInt64:
			var v int64
			err = json.Unmarshal(raw[i], &v)
			out[i] = types.Int64(v)
		case types.TypeFloat64:
			var v float64
			err = json.Unmarshal(raw[i], &v)
			out[i] = types.Float64(v)
		case types.TypeUtf8:
			var v string
			err = json.Unmarshal(raw[i], &v)
			out[i] = types.Utf8(v)
		case types.TypeBoolean:
			var v bool
			err = json.Unmarshal(raw[i], &v)
			out[i] = types.Boolean(v)
		default:
			return nil, &errors.SchemaError{Message: "unsupported data type: " + f.DataType}
		}
		if err != nil {
			return nil, &errors.SerializationError{Message: err.Error()}
		}
	}
	return out, nil
}
