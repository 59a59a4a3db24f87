package optim

import (
	"testing"

	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

func TestPushdownPredicateFusesIntoScan(t *testing.T) {
	n := plan.Filter{
		Input:     plan.Scan{Table: "t"},
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "id"}, Right: plan.Literal{Value: types.Int64(1)}},
	}
	got := Optimize(n)
	scan, ok := got.(plan.Scan)
	if !ok {
		t.Fatalf("expected Scan, got %T", got)
	}
	if scan.Filter == nil {
		t.Fatal("expected scan to carry the fused filter")
	}
}

func TestPushdownPredicateCombinesWithExistingScanFilter(t *testing.T) {
	existing := plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "a"}, Right: plan.Literal{Value: types.Int64(1)}}
	n := plan.Filter{
		Input:     plan.Scan{Table: "t", Filter: existing},
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "b"}, Right: plan.Literal{Value: types.Int64(2)}},
	}
	got := pushdownPredicate(n)
	scan := got.(plan.Scan)
	combined, ok := scan.Filter.(plan.BinaryOp)
	if !ok || combined.Op != plan.OpAnd {
		t.Fatalf("expected ANDed filter, got %+v", scan.Filter)
	}
}

func TestPushdownPredicateThroughPassthroughProjection(t *testing.T) {
	n := plan.Filter{
		Input: plan.Project{
			Input: plan.Scan{Table: "t"},
			Items: []plan.ProjectItem{{Expr: plan.Column{Name: "id"}}, {Expr: plan.Column{Name: "name"}, Alias: "n"}},
		},
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "id"}, Right: plan.Literal{Value: types.Int64(1)}},
	}
	got := pushdownPredicate(n)
	proj, ok := got.(plan.Project)
	if !ok {
		t.Fatalf("expected Project at the root, got %T", got)
	}
	if _, ok := proj.Input.(plan.Scan); !ok {
		t.Fatalf("expected the filter to fuse straight into the scan, got %T", proj.Input)
	}
}

func TestPushdownPredicateBlockedByComputedProjection(t *testing.T) {
	n := plan.Filter{
		Input: plan.Project{
			Input: plan.Scan{Table: "t"},
			Items: []plan.ProjectItem{{Expr: plan.ScalarFunc{Variant: plan.FnUpper, Args: []plan.Expr{plan.Column{Name: "name"}}}, Alias: "name"}},
		},
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "name"}, Right: plan.Literal{Value: types.Utf8("X")}},
	}
	got := pushdownPredicate(n)
	if _, ok := got.(plan.Filter); !ok {
		t.Fatalf("expected Filter to remain above the projection, got %T", got)
	}
}

func TestPushdownProjectionNarrowsScan(t *testing.T) {
	n := plan.Project{
		Input: plan.Scan{Table: "t"},
		Items: []plan.ProjectItem{{Expr: plan.Column{Name: "id"}}, {Expr: plan.Column{Name: "name"}}},
	}
	got := pushdownProjection(n)
	proj := got.(plan.Project)
	scan := proj.Input.(plan.Scan)
	if len(scan.Columns) != 2 {
		t.Fatalf("expected scan narrowed to 2 columns, got %v", scan.Columns)
	}
}

func TestPushdownProjectionIntersectsExistingScanColumns(t *testing.T) {
	n := plan.Project{
		Input: plan.Scan{Table: "t", Columns: []string{"id", "name", "extra"}},
		Items: []plan.ProjectItem{{Expr: plan.Column{Name: "id"}}},
	}
	got := pushdownProjection(n).(plan.Project)
	scan := got.Input.(plan.Scan)
	if len(scan.Columns) != 1 || scan.Columns[0] != "id" {
		t.Fatalf("expected intersection to keep only id, got %v", scan.Columns)
	}
}

func TestFoldConstantsEvaluatesArithmetic(t *testing.T) {
	expr := plan.BinaryOp{Op: plan.OpAdd, Left: plan.Literal{Value: types.Int64(2)}, Right: plan.Literal{Value: types.Int64(3)}}
	folded := foldExpr(expr)
	lit, ok := folded.(plan.Literal)
	if !ok || lit.Value.I64 != 5 {
		t.Fatalf("expected folded literal 5, got %+v", folded)
	}
}

func TestFoldConstantsEliminatesTrueFilter(t *testing.T) {
	n := plan.Filter{
		Input:     plan.Scan{Table: "t"},
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Literal{Value: types.Int64(1)}, Right: plan.Literal{Value: types.Int64(1)}},
	}
	got := foldConstants(n)
	if _, ok := got.(plan.Scan); !ok {
		t.Fatalf("expected Filter eliminated down to bare Scan, got %T", got)
	}
}

func TestFoldConstantsLeavesNonConstantPredicateAlone(t *testing.T) {
	n := plan.Filter{
		Input:     plan.Scan{Table: "t"},
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "id"}, Right: plan.Literal{Value: types.Int64(1)}},
	}
	got := foldConstants(n)
	if _, ok := got.(plan.Filter); !ok {
		t.Fatalf("expected Filter to remain, got %T", got)
	}
}

func TestPushdownLimitThroughProjectionWithZeroOffset(t *testing.T) {
	n := plan.Limit{
		Input: plan.Project{
			Input: plan.Scan{Table: "t"},
			Items: []plan.ProjectItem{{Expr: plan.Column{Name: "id"}}},
		},
		Count: 10,
	}
	got := pushdownLimit(n)
	proj, ok := got.(plan.Project)
	if !ok {
		t.Fatalf("expected Project at the root, got %T", got)
	}
	if _, ok := proj.Input.(plan.Limit); !ok {
		t.Fatalf("expected Limit pushed below Project, got %T", proj.Input)
	}
}

func TestPushdownLimitNotPushedWhenOffsetNonzero(t *testing.T) {
	n := plan.Limit{
		Input: plan.Project{
			Input: plan.Scan{Table: "t"},
			Items: []plan.ProjectItem{{Expr: plan.Column{Name: "id"}}},
		},
		Count:  10,
		Offset: 5,
	}
	got := pushdownLimit(n)
	if _, ok := got.(plan.Limit); !ok {
		t.Fatalf("expected Limit to remain at the root, got %T", got)
	}
}

func TestPushdownLimitMergesAdjacentLimits(t *testing.T) {
	n := plan.Limit{
		Input:  plan.Limit{Input: plan.Scan{Table: "t"}, Count: 5, Offset: 2},
		Count:  3,
		Offset: 1,
	}
	got := pushdownLimit(n)
	merged, ok := got.(plan.Limit)
	if !ok {
		t.Fatalf("expected a single merged Limit, got %T", got)
	}
	if merged.Count != 3 || merged.Offset != 3 {
		t.Fatalf("expected Count=3 Offset=3, got Count=%d Offset=%d", merged.Count, merged.Offset)
	}
	if _, ok := merged.Input.(plan.Scan); !ok {
		t.Fatalf("expected merged limit directly above Scan, got %T", merged.Input)
	}
}

func TestOptimizeFullPipeline(t *testing.T) {
	n := plan.Limit{
		Count: 5,
		Input: plan.Project{
			Items: []plan.ProjectItem{{Expr: plan.Column{Name: "id"}}},
			Input: plan.Filter{
				Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "id"}, Right: plan.Literal{Value: types.Int64(1)}},
				Input:     plan.Scan{Table: "t"},
			},
		},
	}
	got := Optimize(n)
	proj, ok := got.(plan.Project)
	if !ok {
		t.Fatalf("expected Project at the root after limit pushdown, got %T", got)
	}
	lim, ok := proj.Input.(plan.Limit)
	if !ok {
		t.Fatalf("expected Limit beneath Project, got %T", proj.Input)
	}
	scan, ok := lim.Input.(plan.Scan)
	if !ok {
		t.Fatalf("expected Scan beneath Limit (filter fused, projection narrowed), got %T", lim.Input)
	}
	if scan.Filter == nil {
		t.Fatal("expected the filter to have fused into the scan")
	}
	if len(scan.Columns) != 1 || scan.Columns[0] != "id" {
		t.Fatalf("expected projection pushdown to narrow scan columns, got %v", scan.Columns)
	}
}
