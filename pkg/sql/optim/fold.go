package optim

import (
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// foldConstants recursively evaluates Literal op Literal to a Literal
// wherever it appears in a node's embedded expressions, and eliminates a
// Filter whose predicate folds to the literal boolean true.
func foldConstants(n plan.Node) plan.Node {
	n = mapChildren(n, foldConstants)
	n = foldNodeExprs(n)

	if f, ok := n.(plan.Filter); ok {
		if lit, ok := f.Predicate.(plan.Literal); ok && lit.Value.Type == types.TypeBoolean && lit.Value.Bool {
			return f.Input
		}
	}
	return n
}

func foldNodeExprs(n plan.Node) plan.Node {
	switch x := n.(type) {
	case plan.Scan:
		if x.Filter != nil {
			x.Filter = foldExpr(x.Filter)
		}
		return x
	case plan.Filter:
		x.Predicate = foldExpr(x.Predicate)
		return x
	case plan.Project:
		items := make([]plan.ProjectItem, len(x.Items))
		for i, it := range x.Items {
			it.Expr = foldExpr(it.Expr)
			items[i] = it
		}
		x.Items = items
		return x
	case plan.Aggregate:
		gb := make([]plan.Expr, len(x.GroupBy))
		for i, e := range x.GroupBy {
			gb[i] = foldExpr(e)
		}
		x.GroupBy = gb
		return x
	case plan.Insert:
		rows := make([][]plan.Expr, len(x.Rows))
		for i, row := range x.Rows {
			r := make([]plan.Expr, len(row))
			for j, e := range row {
				r[j] = foldExpr(e)
			}
			rows[i] = r
		}
		x.Rows = rows
		return x
	case plan.Update:
		assigns := make([]plan.UpdateAssignment, len(x.Assignments))
		for i, a := range x.Assignments {
			a.Value = foldExpr(a.Value)
			assigns[i] = a
		}
		x.Assignments = assigns
		if x.Predicate != nil {
			x.Predicate = foldExpr(x.Predicate)
		}
		return x
	case plan.Delete:
		if x.Predicate != nil {
			x.Predicate = foldExpr(x.Predicate)
		}
		return x
	default:
		return n
	}
}

func foldExpr(e plan.Expr) plan.Expr {
	switch x := e.(type) {
	case plan.BinaryOp:
		x.Left = foldExpr(x.Left)
		x.Right = foldExpr(x.Right)
		ll, lok := x.Left.(plan.Literal)
		rl, rok := x.Right.(plan.Literal)
		if lok && rok {
			if folded, ok := foldBinary(x.Op, ll.Value, rl.Value); ok {
				return plan.Literal{Value: folded}
			}
		}
		return x
	case plan.IsNull:
		x.Expr = foldExpr(x.Expr)
		if lit, ok := x.Expr.(plan.Literal); ok {
			return plan.Literal{Value: types.Boolean(lit.Value.IsNull())}
		}
		return x
	case plan.IsNotNull:
		x.Expr = foldExpr(x.Expr)
		if lit, ok := x.Expr.(plan.Literal); ok {
			return plan.Literal{Value: types.Boolean(!lit.Value.IsNull())}
		}
		return x
	case plan.InList:
		x.Expr = foldExpr(x.Expr)
		vals := make([]plan.Expr, len(x.Values))
		for i, v := range x.Values {
			vals[i] = foldExpr(v)
		}
		x.Values = vals
		return x
	case plan.ScalarFunc:
		args := make([]plan.Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = foldExpr(a)
		}
		x.Args = args
		return x
	case plan.Function:
		if x.Arg != nil {
			x.Arg = foldExpr(x.Arg)
		}
		return x
	default:
		return e
	}
}

// foldBinary evaluates op over two literal scalars, following the same
// numeric-promotion rules the executor applies at runtime (i32<->i64->i64,
// int<->f64->f64). Either operand being null folds the result to null for
// every op except AND/OR, which require both sides already boolean and so
// never see a null operand in a well-typed predicate.
func foldBinary(op plan.BinaryOperator, l, r types.Scalar) (types.Scalar, bool) {
	if op == plan.OpAnd || op == plan.OpOr {
		if l.Type != types.TypeBoolean || r.Type != types.TypeBoolean {
			return types.Scalar{}, false
		}
		if op == plan.OpAnd {
			return types.Boolean(l.Bool && r.Bool), true
		}
		return types.Boolean(l.Bool || r.Bool), true
	}

	if l.IsNull() || r.IsNull() {
		return types.Null(), true
	}

	if op == plan.OpEq || op == plan.OpNeq {
		eq, ok := scalarEqual(l, r)
		if !ok {
			return types.Scalar{}, false
		}
		if op == plan.OpNeq {
			eq = !eq
		}
		return types.Boolean(eq), true
	}

	lf, lok := l.AsFloat64()
	rf, rok := r.AsFloat64()
	if lok && rok {
		switch op {
		case plan.OpLt:
			return types.Boolean(lf < rf), true
		case plan.OpLte:
			return types.Boolean(lf <= rf), true
		case plan.OpGt:
			return types.Boolean(lf > rf), true
		case plan.OpGte:
			return types.Boolean(lf >= rf), true
		}
		li, liok := l.AsInt64()
		ri, riok := r.AsInt64()
		bothInt := liok && riok && l.Type != types.TypeFloat64 && r.Type != types.TypeFloat64
		switch op {
		case plan.OpAdd:
			if bothInt {
				return types.Int64(li + ri), true
			}
			return types.Float64(lf + rf), true
		case plan.OpSub:
			if bothInt {
				return types.Int64(li - ri), true
			}
			return types.Float64(lf - rf), true
		case plan.OpMul:
			if bothInt {
				return types.Int64(li * ri), true
			}
			return types.Float64(lf * rf), true
		case plan.OpDiv:
			if rf == 0 {
				return types.Scalar{}, false
			}
			if bothInt {
				return types.Int64(li / ri), true
			}
			return types.Float64(lf / rf), true
		case plan.OpMod:
			if !bothInt || ri == 0 {
				return types.Scalar{}, false
			}
			return types.Int64(li % ri), true
		}
	}

	if l.Type == types.TypeUtf8 && r.Type == types.TypeUtf8 {
		switch op {
		case plan.OpLt:
			return types.Boolean(l.Str < r.Str), true
		case plan.OpLte:
			return types.Boolean(l.Str <= r.Str), true
		case plan.OpGt:
			return types.Boolean(l.Str > r.Str), true
		case plan.OpGte:
			return types.Boolean(l.Str >= r.Str), true
		}
	}

	return types.Scalar{}, false
}

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
