// Package phys binds a logical pkg/sql/plan tree to a registered schema:
// columns are resolved to indices (case-insensitive, failing if
// unresolved), and logical nodes are rewritten into physical node variants
// carrying bound expressions plus an is-analytical tag used to decide
// whether the columnar cache should be populated for that plan.
package phys

import (
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// PExpr is a node of the column-bound physical expression tree.
type PExpr interface {
	physExprNode()
}

// PColumn references a field by its resolved index into the input schema.
type PColumn struct {
	Index int
	Name  string // retained for error messages and EXPLAIN
}

// PLiteral is a constant scalar value.
type PLiteral struct {
	Value types.Scalar
}

// PBinaryOp applies Op to Left and Right.
type PBinaryOp struct {
	Op    plan.BinaryOperator
	Left  PExpr
	Right PExpr
}

// PIsNull tests whether Expr evaluates to null.
type PIsNull struct{ Expr PExpr }

// PIsNotNull tests whether Expr evaluates to a non-null value.
type PIsNotNull struct{ Expr PExpr }

// PFunction is a bound aggregate function application; Arg is nil for
// COUNT(*).
type PFunction struct {
	Fn  plan.AggFunc
	Arg PExpr
}

// PScalarFunc is a bound row-wise scalar function application.
type PScalarFunc struct {
	Variant plan.ScalarVariant
	Args    []PExpr
}

// PInList tests Expr against a literal candidate list.
type PInList struct {
	Expr    PExpr
	Values  []PExpr
	Negated bool
}

func (PColumn) physExprNode()     {}
func (PLiteral) physExprNode()    {}
func (PBinaryOp) physExprNode()   {}
func (PIsNull) physExprNode()     {}
func (PIsNotNull) physExprNode()  {}
func (PFunction) physExprNode()   {}
func (PScalarFunc) physExprNode() {}
func (PInList) physExprNode()     {}
