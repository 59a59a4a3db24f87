package optim

import "github.com/htapcore/engine/pkg/sql/plan"

// pushdownPredicate fuses Filter -> Scan into Scan(filter = pred), ANDing
// with any filter the scan already carries, and swaps Filter -> Project -> X
// into Project -> Filter -> X when the predicate only references columns
// that pass straight through the projection.
func pushdownPredicate(n plan.Node) plan.Node {
	n = mapChildren(n, pushdownPredicate)

	f, ok := n.(plan.Filter)
	if !ok {
		return n
	}

	switch child := f.Input.(type) {
	case plan.Scan:
		if child.Filter != nil {
			child.Filter = plan.BinaryOp{Op: plan.OpAnd, Left: child.Filter, Right: f.Predicate}
		} else {
			child.Filter = f.Predicate
		}
		return child
	case plan.Project:
		if predicateSurvivesProjection(f.Predicate, child.Items) {
			pushed := pushdownPredicate(plan.Filter{Input: child.Input, Predicate: f.Predicate})
			child.Input = pushed
			return child
		}
	}
	return n
}

// pushdownProjection narrows a Scan directly beneath a Project to the set
// of columns the projection's expressions reference, intersecting with any
// column set the scan already carries.
func pushdownProjection(n plan.Node) plan.Node {
	n = mapChildren(n, pushdownProjection)

	proj, ok := n.(plan.Project)
	if !ok {
		return n
	}
	scan, ok := proj.Input.(plan.Scan)
	if !ok {
		return n
	}

	refs := collectColumns(itemExprs(proj.Items))
	if scan.Columns != nil {
		refs = intersect(scan.Columns, refs)
	}
	scan.Columns = refs
	proj.Input = scan
	return proj
}
