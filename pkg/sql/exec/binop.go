package exec

import (
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// evalBinaryScalar evaluates op over two row-level scalars, following the
// same numeric-promotion rules pkg/sql/optim's constant folder applies at
// plan time (i32<->i64->i64, int<->f64->f64). The two are kept separate
// since one runs once per query at plan time and the other runs once per
// row at execution time; unifying them would mean a cross-package
// dependency for no real sharing of control flow.
func evalBinaryScalar(op plan.BinaryOperator, l, r types.Scalar) (types.Scalar, error) {
	if op == plan.OpAnd || op == plan.OpOr {
		if l.IsNull() || r.IsNull() {
			return types.Null(), nil
		}
		if l.Type != types.TypeBoolean || r.Type != types.TypeBoolean {
			return types.Scalar{}, &errors.TypeMismatchError{Expected: "Boolean", Actual: l.Type.String()}
		}
		if op == plan.OpAnd {
			return types.Boolean(l.Bool && r.Bool), nil
		}
		return types.Boolean(l.Bool || r.Bool), nil
	}

	if l.IsNull() || r.IsNull() {
		return types.Null(), nil
	}

	if op == plan.OpEq || op == plan.OpNeq {
		eq, ok := scalarEqual(l, r)
		if !ok {
			return types.Scalar{}, &errors.TypeMismatchError{Expected: l.Type.String(), Actual: r.Type.String()}
		}
		if op == plan.OpNeq {
			eq = !eq
		}
		return types.Boolean(eq), nil
	}

	lf, lok := l.AsFloat64()
	rf, rok := r.AsFloat64()
	if lok && rok {
		switch op {
		case plan.OpLt:
			return types.Boolean(lf < rf), nil
		case plan.OpLte:
			return types.Boolean(lf <= rf), nil
		case plan.OpGt:
			return types.Boolean(lf > rf), nil
		case plan.OpGte:
			return types.Boolean(lf >= rf), nil
		}
		li, liok := l.AsInt64()
		ri, riok := r.AsInt64()
		bothInt := liok && riok && l.Type != types.TypeFloat64 && r.Type != types.TypeFloat64
		switch op {
		case plan.OpAdd:
			if bothInt {
				return types.Int64(li + ri), nil
			}
			return types.Float64(lf + rf), nil
		case plan.OpSub:
			if bothInt {
				return types.Int64(li - ri), nil
			}
			return types.Float64(lf - rf), nil
		case plan.OpMul:
			if bothInt {
				return types.Int64(li * ri), nil
			}
			return types.Float64(lf * rf), nil
		case plan.OpDiv:
			if rf == 0 {
				return types.Scalar{}, &errors.SqlExecutionError{Message: "division by zero"}
			}
			if bothInt {
				return types.Int64(li / ri), nil
			}
			return types.Float64(lf / rf), nil
		case plan.OpMod:
			if !bothInt {
				return types.Scalar{}, &errors.TypeMismatchError{Expected: "integer", Actual: "float"}
			}
			if ri == 0 {
				return types.Scalar{}, &errors.SqlExecutionError{Message: "modulo by zero"}
			}
			return types.Int64(li % ri), nil
		}
	}

	if l.Type == types.TypeUtf8 && r.Type == types.TypeUtf8 {
		switch op {
		case plan.OpLt:
			return types.Boolean(l.Str < r.Str), nil
		case plan.OpLte:
			return types.Boolean(l.Str <= r.Str), nil
		case plan.OpGt:
			return types.Boolean(l.Str > r.Str), nil
		case plan.OpGte:
			return types.Boolean(l.Str >= r.Str), nil
		}
	}

	return types.Scalar{}, &errors.TypeMismatchError{Expected: "comparable operand types", Actual: l.Type.String() + "/" + r.Type.String()}
}

// scalarEqual reports whether l and r are equal under the same
// cross-type numeric/string/boolean rules used for comparison operators.
func scalarEqual(l, r types.Scalar) (bool, bool) {
	if lf, lok := l.AsFloat64(); lok {
		if rf, rok := r.AsFloat64(); rok {
			return lf == rf, true
		}
	}
	if l.Type == types.TypeUtf8 && r.Type == types.TypeUtf8 {
		return l.Str == r.Str, true
	}
	if l.Type == types.TypeBoolean && r.Type == types.TypeBoolean {
		return l.Bool == r.Bool, true
	}
	return false, false
}
