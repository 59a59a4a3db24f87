package optim

import "github.com/htapcore/engine/pkg/sql/plan"

// collectColumns returns the de-duplicated set of column names referenced
// anywhere in exprs, in first-seen order.
func collectColumns(exprs []plan.Expr) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(e plan.Expr)
	walk = func(e plan.Expr) {
		switch x := e.(type) {
		case plan.Column:
			if !seen[x.Name] {
				seen[x.Name] = true
				out = append(out, x.Name)
			}
		case plan.BinaryOp:
			walk(x.Left)
			walk(x.Right)
		case plan.IsNull:
			walk(x.Expr)
		case plan.IsNotNull:
			walk(x.Expr)
		case plan.Function:
			if x.Arg != nil {
				walk(x.Arg)
			}
		case plan.ScalarFunc:
			for _, a := range x.Args {
				walk(a)
			}
		case plan.InList:
			walk(x.Expr)
			for _, v := range x.Values {
				walk(v)
			}
		}
	}
	for _, e := range exprs {
		walk(e)
	}
	return out
}

func itemExprs(items []plan.ProjectItem) []plan.Expr {
	out := make([]plan.Expr, len(items))
	for i, it := range items {
		out[i] = it.Expr
	}
	return out
}

// intersect returns the elements of have that also appear in want,
// preserving have's order.
func intersect(have, want []string) []string {
	wantSet := map[string]bool{}
	for _, w := range want {
		wantSet[w] = true
	}
	var out []string
	for _, h := range have {
		if wantSet[h] {
			out = append(out, h)
		}
	}
	return out
}

// outputColumnNames returns the names of projection items that are a pure
// column passthrough (no computation) and keep their source column name,
// so the same name resolves below the projection. Computed items and
// passthroughs renamed by an alias contribute no name — a predicate pushed
// below the projection could not reference them unchanged.
func outputColumnNames(items []plan.ProjectItem) map[string]bool {
	out := map[string]bool{}
	for _, it := range items {
		col, ok := it.Expr.(plan.Column)
		if !ok {
			continue
		}
		if it.Alias != "" && it.Alias != col.Name {
			continue
		}
		out[col.Name] = true
	}
	return out
}

// predicateSurvivesProjection reports whether every column pred references
// names a pure-passthrough output of items, meaning the predicate could be
// evaluated identically below the projection.
func predicateSurvivesProjection(pred plan.Expr, items []plan.ProjectItem) bool {
	names := outputColumnNames(items)
	for _, c := range collectColumns([]plan.Expr{pred}) {
		if !names[c] {
			return false
		}
	}
	return true
}
