package optim

import "github.com/htapcore/engine/pkg/sql/plan"

// pushdownLimit swaps Limit -> Project -> X into Project -> Limit -> X when
// offset is zero (the projection is row-preserving, so limiting before or
// after it yields the same rows), and merges adjacent Limit nodes into one.
func pushdownLimit(n plan.Node) plan.Node {
	n = mapChildren(n, pushdownLimit)

	lim, ok := n.(plan.Limit)
	if !ok {
		return n
	}

	switch child := lim.Input.(type) {
	case plan.Project:
		if lim.Offset == 0 {
			pushed := pushdownLimit(plan.Limit{Input: child.Input, Count: lim.Count, Offset: 0})
			child.Input = pushed
			return child
		}
	case plan.Limit:
		count := lim.Count
		if child.Count < count {
			count = child.Count
		}
		merged := plan.Limit{Input: child.Input, Count: count, Offset: lim.Offset + child.Offset}
		return pushdownLimit(merged)
	}
	return n
}
