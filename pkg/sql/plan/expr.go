// Package plan defines the logical plan: a tree of relational nodes (Scan,
// Filter, Project, Aggregate, Join, Sort, Limit, plus DML/DDL variants) and
// the expression tree evaluated within them.
package plan

import "github.com/htapcore/engine/pkg/types"

// Expr is a node of the logical expression tree.
type Expr interface {
	exprNode()
}

// Column references a field by name, resolved case-insensitively against
// the input schema at physical-planning time.
type Column struct {
	Name string
}

// Literal is a constant scalar value.
type Literal struct {
	Value types.Scalar
}

// BinaryOperator enumerates the operators BinaryOp supports.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

// BinaryOp applies Op to Left and Right.
type BinaryOp struct {
	Op    BinaryOperator
	Left  Expr
	Right Expr
}

// IsNull tests whether Expr evaluates to null.
type IsNull struct{ Expr Expr }

// IsNotNull tests whether Expr evaluates to a non-null value.
type IsNotNull struct{ Expr Expr }

// AggFunc enumerates the aggregate functions HashAggregate supports.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

// Function is an aggregate function application, recognized and lifted
// into an Aggregate node by the planner.
type Function struct {
	Name Name
	Fn   AggFunc
	Arg  Expr // nil for COUNT(*)
}

// Name carries a function's printed name for error messages and EXPLAIN.
type Name string

// ScalarVariant enumerates the non-aggregate scalar functions ScalarFunc
// supports.
type ScalarVariant int

const (
	FnUpper ScalarVariant = iota
	FnLower
	FnTrim
	FnLength
	FnConcat
	FnAbs
	FnRound
	FnSqrt
	FnNow
	FnCurrentDate
	FnCurrentTime
)

// ScalarFunc is a row-wise scalar function application.
type ScalarFunc struct {
	Variant ScalarVariant
	Args    []Expr
}

// InList tests Expr against a literal list of candidate values.
type InList struct {
	Expr    Expr
	Values  []Expr
	Negated bool
}

func (Column) exprNode()     {}
func (Literal) exprNode()    {}
func (BinaryOp) exprNode()   {}
func (IsNull) exprNode()     {}
func (IsNotNull) exprNode()  {}
func (Function) exprNode()   {}
func (ScalarFunc) exprNode() {}
func (InList) exprNode()     {}
