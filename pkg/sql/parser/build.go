package parser

import (
	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/plan"
)

// Build converts a parsed Statement into a pkg/sql/plan.Node tree: it folds
// SELECT's clauses into the canonical Scan -> Filter -> Aggregate -> Project
// -> Sort -> Limit node order and lifts aggregate Function calls found in
// the projection/HAVING-less GROUP BY subset this engine supports into an
// Aggregate node, leaving a plain Project otherwise.
func Build(stmt Statement) (plan.Node, error) {
	switch s := stmt.(type) {
	case SelectStmt:
		return buildSelect(s)
	case InsertStmt:
		return plan.Insert{Table: s.Table, Rows: s.Rows}, nil
	case UpdateStmt:
		return plan.Update{Table: s.Table, Assignments: s.Assignments, Predicate: s.Where}, nil
	case DeleteStmt:
		return plan.Delete{Table: s.Table, Predicate: s.Where}, nil
	case CreateTableStmt:
		fields := make([]catalog.FieldMeta, len(s.Columns))
		for i, c := range s.Columns {
			fields[i] = catalog.FieldMeta{Name: c.Name, DataType: c.DataType, Nullable: c.Nullable}
		}
		return plan.CreateTable{Table: s.Table, Fields: fields, IfNotExists: s.IfNotExists}, nil
	case DropTableStmt:
		return plan.DropTable{Table: s.Table, IfExists: s.IfExists}, nil
	case CreateIndexStmt:
		return plan.CreateIndex{IndexName: s.IndexName, Table: s.Table, Column: s.Column}, nil
	case DropIndexStmt:
		return plan.DropIndex{IndexName: s.IndexName, IfExists: s.IfExists}, nil
	case AlterTableStmt:
		return plan.AlterTable{
			Table:      s.Table,
			Kind:       s.Kind,
			Column:     catalog.FieldMeta{Name: s.Column.Name, DataType: s.Column.DataType, Nullable: s.Column.Nullable},
			ColumnName: s.ColumnName,
			NewName:    s.NewName,
		}, nil
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "unknown statement shape"}
	}
}

func buildSelect(s SelectStmt) (plan.Node, error) {
	var node plan.Node = plan.Scan{Table: s.From}

	for _, j := range s.Joins {
		var conds []plan.JoinCondition
		if j.On != nil {
			c, err := equiJoinConditions(j.On)
			if err != nil {
				return nil, err
			}
			conds = c
		}
		node = plan.Join{
			Left:       node,
			Right:      plan.Scan{Table: j.Table},
			Type:       j.Type,
			Conditions: conds,
		}
	}

	if s.Where != nil {
		node = plan.Filter{Input: node, Predicate: s.Where}
	}

	aggItems, hasAgg := liftAggregates(s.Projection)
	if hasAgg || len(s.GroupBy) > 0 {
		node = plan.Aggregate{Input: node, GroupBy: s.GroupBy, Aggregates: aggItems}
	} else if !isSelectStar(s.Projection) {
		items := make([]plan.ProjectItem, len(s.Projection))
		for i, it := range s.Projection {
			items[i] = plan.ProjectItem{Expr: it.Expr, Alias: it.Alias}
		}
		node = plan.Project{Input: node, Items: items}
	}

	if len(s.OrderBy) > 0 {
		keys := make([]plan.SortKey, len(s.OrderBy))
		for i, o := range s.OrderBy {
			col, ok := o.Expr.(plan.Column)
			if !ok {
				return nil, &errors.SqlNotSupportedError{Feature: "ORDER BY on a non-column expression"}
			}
			keys[i] = plan.SortKey{Column: col.Name, Ascending: o.Ascending, NullsFirst: o.NullsFirst}
		}
		node = plan.Sort{Input: node, Keys: keys}
	}

	if s.HasLimit {
		node = plan.Limit{Input: node, Count: s.Limit, Offset: s.Offset}
	}

	return node, nil
}

func isSelectStar(items []SelectItem) bool {
	return len(items) == 1 && items[0].Star
}

// liftAggregates scans a projection list for Function calls (possibly
// aliased), returning them as AggregateItems. Non-function items are
// skipped, not rejected, whether or not they appear in GROUP BY: the
// Aggregate node's output is its GROUP BY keys followed by these
// aggregates, so a plain projected column reaches the result only as a
// GROUP BY key.
func liftAggregates(items []SelectItem) ([]plan.AggregateItem, bool) {
	var out []plan.AggregateItem
	found := false
	for _, it := range items {
		if it.Star {
			continue
		}
		if fn, ok := it.Expr.(plan.Function); ok {
			found = true
			out = append(out, plan.AggregateItem{Fn: fn, Alias: it.Alias})
		}
	}
	return out, found
}

// equiJoinConditions decomposes an ON clause of the form
// `a.x = b.y [AND a.m = b.n ...]` into JoinConditions. Only conjunctions of
// equalities are supported; anything else is rejected.
func equiJoinConditions(e plan.Expr) ([]plan.JoinCondition, error) {
	switch n := e.(type) {
	case plan.BinaryOp:
		if n.Op == plan.OpAnd {
			left, err := equiJoinConditions(n.Left)
			if err != nil {
				return nil, err
			}
			right, err := equiJoinConditions(n.Right)
			if err != nil {
				return nil, err
			}
			return append(left, right...), nil
		}
		if n.Op == plan.OpEq {
			lc, lok := n.Left.(plan.Column)
			rc, rok := n.Right.(plan.Column)
			if lok && rok {
				return []plan.JoinCondition{{LeftColumn: lc.Name, RightColumn: rc.Name}}, nil
			}
		}
	}
	return nil, &errors.SqlNotSupportedError{Feature: "non-equi or non-conjunctive JOIN condition"}
}
