package exec

import (
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// Eval evaluates e against every row of batch, producing one output
// column. Columns flow through unchanged (no copy); every other
// expression shape materializes a fresh array.
func Eval(e phys.PExpr, batch arrow.Record) (arrow.Array, error) {
	n := int(batch.NumRows())
	switch x := e.(type) {
	case phys.PColumn:
		if x.Index < 0 || x.Index >= int(batch.NumCols()) {
			return nil, &errors.SchemaError{Message: "column index out of range: " + x.Name}
		}
		return batch.Column(x.Index), nil
	case phys.PLiteral:
		return broadcastLiteral(x.Value, n), nil
	case phys.PBinaryOp:
		return evalBinary(x, batch)
	case phys.PIsNull:
		inner, err := Eval(x.Expr, batch)
		if err != nil {
			return nil, err
		}
		vals := make([]types.Scalar, n)
		for i := 0; i < n; i++ {
			vals[i] = types.Boolean(inner.IsNull(i))
		}
		return buildArray(types.TypeBoolean, vals), nil
	case phys.PIsNotNull:
		inner, err := Eval(x.Expr, batch)
		if err != nil {
			return nil, err
		}
		vals := make([]types.Scalar, n)
		for i := 0; i < n; i++ {
			vals[i] = types.Boolean(!inner.IsNull(i))
		}
		return buildArray(types.TypeBoolean, vals), nil
	case phys.PInList:
		return evalInList(x, batch)
	case phys.PScalarFunc:
		return evalScalarFunc(x, batch)
	case phys.PFunction:
		return nil, &errors.SqlExecutionError{Message: "aggregate function outside HashAggregate", Context: aggFuncName(x.Fn)}
	default:
		return nil, &errors.SqlExecutionError{Message: "unsupported expression shape"}
	}
}

func evalBinary(x phys.PBinaryOp, batch arrow.Record) (arrow.Array, error) {
	left, err := Eval(x.Left, batch)
	if err != nil {
		return nil, err
	}
	right, err := Eval(x.Right, batch)
	if err != nil {
		return nil, err
	}
	n := int(batch.NumRows())
	vals := make([]types.Scalar, n)
	for i := 0; i < n; i++ {
		v, err := evalBinaryScalar(x.Op, scalarAt(left, i), scalarAt(right, i))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	target := resultType(x.Op, vals)
	return buildArray(target, vals), nil
}

func resultType(op plan.BinaryOperator, vals []types.Scalar) types.LogicalType {
	switch op {
	case plan.OpEq, plan.OpNeq, plan.OpLt, plan.OpLte, plan.OpGt, plan.OpGte, plan.OpAnd, plan.OpOr:
		return types.TypeBoolean
	default:
		return firstNonNullType(vals, types.TypeFloat64)
	}
}

func evalInList(x phys.PInList, batch arrow.Record) (arrow.Array, error) {
	n := int(batch.NumRows())
	target, err := Eval(x.Expr, batch)
	if err != nil {
		return nil, err
	}
	valueCols := make([]arrow.Array, len(x.Values))
	for i, v := range x.Values {
		col, err := Eval(v, batch)
		if err != nil {
			return nil, err
		}
		valueCols[i] = col
	}
	vals := make([]types.Scalar, n)
	for row := 0; row < n; row++ {
		t := scalarAt(target, row)
		found := false
		for _, col := range valueCols {
			eq, ok := scalarEqual(t, scalarAt(col, row))
			if ok && eq {
				found = true
				break
			}
		}
		if x.Negated {
			found = !found
		}
		vals[row] = types.Boolean(found)
	}
	return buildArray(types.TypeBoolean, vals), nil
}

func evalScalarFunc(x phys.PScalarFunc, batch arrow.Record) (arrow.Array, error) {
	n := int(batch.NumRows())
	switch x.Variant {
	case plan.FnNow, plan.FnCurrentDate, plan.FnCurrentTime:
		epoch := time.Now().Unix()
		vals := make([]types.Scalar, n)
		for i := range vals {
			vals[i] = types.Int64(epoch)
		}
		return buildArray(types.TypeInt64, vals), nil
	}

	argCols := make([]arrow.Array, len(x.Args))
	for i, a := range x.Args {
		col, err := Eval(a, batch)
		if err != nil {
			return nil, err
		}
		argCols[i] = col
	}

	switch x.Variant {
	case plan.FnUpper, plan.FnLower, plan.FnTrim, plan.FnLength:
		if len(argCols) != 1 {
			return nil, &errors.SqlExecutionError{Message: "expected exactly one argument", Context: "string function"}
		}
		vals := make([]types.Scalar, n)
		for i := 0; i < n; i++ {
			s := scalarAt(argCols[0], i)
			if s.IsNull() {
				vals[i] = types.Null()
				continue
			}
			if s.Type != types.TypeUtf8 {
				return nil, &errors.TypeMismatchError{Expected: "Utf8", Actual: s.Type.String()}
			}
			switch x.Variant {
			case plan.FnUpper:
				vals[i] = types.Utf8(strings.ToUpper(s.Str))
			case plan.FnLower:
				vals[i] = types.Utf8(strings.ToLower(s.Str))
			case plan.FnTrim:
				vals[i] = types.Utf8(strings.TrimSpace(s.Str))
			case plan.FnLength:
				vals[i] = types.Int64(int64(len(s.Str)))
			}
		}
		target := types.TypeUtf8
		if x.Variant == plan.FnLength {
			target = types.TypeInt64
		}
		return buildArray(target, vals), nil

	case plan.FnConcat:
		vals := make([]types.Scalar, n)
		for i := 0; i < n; i++ {
			var b strings.Builder
			anyNull := false
			for _, col := range argCols {
				s := scalarAt(col, i)
				if s.IsNull() {
					anyNull = true
					break
				}
				if s.Type != types.TypeUtf8 {
					return nil, &errors.TypeMismatchError{Expected: "Utf8", Actual: s.Type.String()}
				}
				b.WriteString(s.Str)
			}
			if anyNull {
				vals[i] = types.Null()
			} else {
				vals[i] = types.Utf8(b.String())
			}
		}
		return buildArray(types.TypeUtf8, vals), nil

	case plan.FnAbs, plan.FnRound, plan.FnSqrt:
		if len(argCols) != 1 {
			return nil, &errors.SqlExecutionError{Message: "expected exactly one argument", Context: "math function"}
		}
		vals := make([]types.Scalar, n)
		for i := 0; i < n; i++ {
			s := scalarAt(argCols[0], i)
			if s.IsNull() {
				vals[i] = types.Null()
				continue
			}
			f, ok := s.AsFloat64()
			if !ok {
				return nil, &errors.TypeMismatchError{Expected: "numeric", Actual: s.Type.String()}
			}
			vals[i] = types.Float64(mathFn(x.Variant, f))
		}
		return buildArray(types.TypeFloat64, vals), nil
	}

	return nil, &errors.SqlNotSupportedError{Feature: "scalar function"}
}

func aggFuncName(fn plan.AggFunc) string {
	switch fn {
	case plan.AggCount:
		return "COUNT"
	case plan.AggSum:
		return "SUM"
	case plan.AggAvg:
		return "AVG"
	case plan.AggMin:
		return "MIN"
	case plan.AggMax:
		return "MAX"
	default:
		return "?"
	}
}

func mathFn(variant plan.ScalarVariant, f float64) float64 {
	switch variant {
	case plan.FnAbs:
		if f < 0 {
			return -f
		}
		return f
	case plan.FnRound:
		if f >= 0 {
			return float64(int64(f + 0.5))
		}
		return float64(int64(f - 0.5))
	case plan.FnSqrt:
		return sqrt(f)
	default:
		return f
	}
}

// sqrt avoids importing math just for one call's worth of use beyond what
// mathFn already needs; kept local since every other math function here is
// a couple of arithmetic ops, not a stdlib call.
func sqrt(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f == 0 {
		return 0
	}
	x := f
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}
