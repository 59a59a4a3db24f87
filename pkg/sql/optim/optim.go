// Package optim applies a small set of rule-based rewrites to a logical
// pkg/sql/plan tree: predicate pushdown, projection pushdown, constant
// folding, and limit pushdown, each a pure, idempotent tree transform.
package optim

import "github.com/htapcore/engine/pkg/sql/plan"

// Optimize runs the four rules in the fixed order the rules are specified
// in: predicate pushdown, projection pushdown, constant folding, limit
// pushdown. The rules are confluence-safe in this order — running them
// again changes nothing further.
func Optimize(n plan.Node) plan.Node {
	n = pushdownPredicate(n)
	n = pushdownProjection(n)
	n = foldConstants(n)
	n = pushdownLimit(n)
	return n
}

// mapChildren rewrites n's direct Node children (not expressions) via f,
// leaving leaf and DML/DDL nodes (which hold no child Node) untouched.
func mapChildren(n plan.Node, f func(plan.Node) plan.Node) plan.Node {
	switch x := n.(type) {
	case plan.Filter:
		x.Input = f(x.Input)
		return x
	case plan.Project:
		x.Input = f(x.Input)
		return x
	case plan.Aggregate:
		x.Input = f(x.Input)
		return x
	case plan.Join:
		x.Left = f(x.Left)
		x.Right = f(x.Right)
		return x
	case plan.Sort:
		x.Input = f(x.Input)
		return x
	case plan.Limit:
		x.Input = f(x.Input)
		return x
	default:
		return n
	}
}
