package phys

import (
	"testing"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/persist"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

type memBackend struct {
	tables map[string]map[string][]byte
}

func newMemBackend() *memBackend { return &memBackend{tables: map[string]map[string][]byte{}} }

func (m *memBackend) Put(table string, key, value []byte) error {
	if m.tables[table] == nil {
		m.tables[table] = map[string][]byte{}
	}
	m.tables[table][string(key)] = value
	return nil
}

func (m *memBackend) Delete(table string, key []byte) error {
	delete(m.tables[table], string(key))
	return nil
}

func (m *memBackend) Scan(table string, startKey, endKey []byte, fn func(persist.KV) error) error {
	for k, v := range m.tables[table] {
		if err := fn(persist.KV{Key: []byte(k), Value: v}); err != nil {
			return err
		}
	}
	return nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(newMemBackend())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = cat.CreateTable(catalog.SchemaMeta{
		TableName: "orders",
		Fields: []catalog.FieldMeta{
			{Name: "id", DataType: "Int64"},
			{Name: "customer_id", DataType: "Int64"},
			{Name: "total", DataType: "Float64"},
			{Name: "status", DataType: "Utf8"},
		},
	})
	if err != nil {
		t.Fatalf("CreateTable orders: %v", err)
	}
	err = cat.CreateTable(catalog.SchemaMeta{
		TableName: "customers",
		Fields: []catalog.FieldMeta{
			{Name: "id", DataType: "Int64"},
			{Name: "name", DataType: "Utf8"},
		},
	})
	if err != nil {
		t.Fatalf("CreateTable customers: %v", err)
	}
	return cat
}

func TestBindScanResolvesColumnsCaseInsensitively(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.Scan{
		Table:  "orders",
		Filter: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "STATUS"}, Right: plan.Literal{Value: types.Utf8("open")}},
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	scan := n.(TableScan)
	bop := scan.Filter.(PBinaryOp)
	col := bop.Left.(PColumn)
	if col.Index != 3 {
		t.Fatalf("expected status at index 3, got %d", col.Index)
	}
	if !scan.IsAnalytical {
		t.Fatal("expected a filtered scan to be tagged analytical")
	}
}

func TestBindScanUnknownColumnFails(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	_, err := p.Bind(plan.Scan{
		Table:  "orders",
		Filter: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "nope"}, Right: plan.Literal{Value: types.Int64(1)}},
	})
	if err == nil {
		t.Fatal("expected error for unresolved column")
	}
}

func TestBindUnknownTableFails(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	_, err := p.Bind(plan.Scan{Table: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestBindProjectInfersNamesAndTypes(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.Project{
		Input: plan.Scan{Table: "orders"},
		Items: []plan.ProjectItem{
			{Expr: plan.Column{Name: "id"}},
			{Expr: plan.Column{Name: "total"}, Alias: "t"},
		},
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	proj := n.(Projection)
	if proj.Items[0].Meta.Name != "id" || proj.Items[0].Meta.DataType != "Int64" {
		t.Fatalf("unexpected item 0: %+v", proj.Items[0].Meta)
	}
	if proj.Items[1].Meta.Name != "t" || proj.Items[1].Meta.DataType != "Float64" {
		t.Fatalf("unexpected item 1: %+v", proj.Items[1].Meta)
	}
}

func TestBindAggregateCountIsInt64OthersFloat64(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.Aggregate{
		Input:   plan.Scan{Table: "orders"},
		GroupBy: []plan.Expr{plan.Column{Name: "status"}},
		Aggregates: []plan.AggregateItem{
			{Fn: plan.Function{Name: "COUNT", Fn: plan.AggCount}, Alias: "n"},
			{Fn: plan.Function{Name: "SUM", Fn: plan.AggSum, Arg: plan.Column{Name: "total"}}, Alias: "s"},
		},
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	agg := n.(HashAggregate)
	if agg.Aggregates[0].Meta.DataType != "Int64" {
		t.Fatalf("expected COUNT to be Int64, got %s", agg.Aggregates[0].Meta.DataType)
	}
	if agg.Aggregates[1].Meta.DataType != "Float64" {
		t.Fatalf("expected SUM to be Float64, got %s", agg.Aggregates[1].Meta.DataType)
	}
	schema := agg.physNode()
	if len(schema) != 3 {
		t.Fatalf("expected 3 output columns (group + 2 aggs), got %d", len(schema))
	}
	if !IsAnalytical(agg) {
		t.Fatal("expected aggregate to be tagged analytical")
	}
}

func TestBindJoinResolvesEquiConditions(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.Join{
		Left:       plan.Scan{Table: "orders"},
		Right:      plan.Scan{Table: "customers"},
		Type:       plan.JoinInner,
		Conditions: []plan.JoinCondition{{LeftColumn: "customer_id", RightColumn: "id"}},
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	join := n.(HashJoin)
	if len(join.Conditions) != 1 || join.Conditions[0].LeftIndex != 1 || join.Conditions[0].RightIndex != 0 {
		t.Fatalf("unexpected join conditions: %+v", join.Conditions)
	}
	schema := join.physNode()
	if len(schema) != 6 {
		t.Fatalf("expected concatenated schema of 4+2=6 fields, got %d", len(schema))
	}
	if !IsAnalytical(join) {
		t.Fatal("expected join to be tagged analytical")
	}
}

func TestBindLeftJoinMarksRightNullable(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.Join{
		Left:       plan.Scan{Table: "orders"},
		Right:      plan.Scan{Table: "customers"},
		Type:       plan.JoinLeft,
		Conditions: []plan.JoinCondition{{LeftColumn: "customer_id", RightColumn: "id"}},
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	schema := n.(HashJoin).physNode()
	if !schema[4].Nullable {
		t.Fatal("expected right-side field to be marked nullable in a LEFT JOIN")
	}
	if schema[0].Nullable {
		t.Fatal("expected left-side field to remain as declared for a LEFT JOIN")
	}
}

func TestBindSortResolvesColumnIndex(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.Sort{
		Input: plan.Scan{Table: "orders"},
		Keys:  []plan.SortKey{{Column: "total", Ascending: false}},
	})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	sort := n.(SortMerge)
	if sort.Keys[0].Index != 2 || sort.Keys[0].Ascending {
		t.Fatalf("unexpected sort key: %+v", sort.Keys[0])
	}
	if !IsAnalytical(sort) {
		t.Fatal("expected sort-merge to be tagged analytical")
	}
}

func TestBindInsertUpdateDelete(t *testing.T) {
	p := NewPlanner(testCatalog(t))

	ins, err := p.Bind(plan.Insert{
		Table: "orders",
		Rows:  [][]plan.Expr{{plan.Literal{Value: types.Int64(1)}, plan.Literal{Value: types.Int64(2)}, plan.Literal{Value: types.Float64(9.5)}, plan.Literal{Value: types.Utf8("open")}}},
	})
	if err != nil {
		t.Fatalf("Bind insert: %v", err)
	}
	if len(ins.(Insert).Rows[0]) != 4 {
		t.Fatalf("unexpected insert row width: %+v", ins)
	}

	upd, err := p.Bind(plan.Update{
		Table:       "orders",
		Assignments: []plan.UpdateAssignment{{Column: "status", Value: plan.Literal{Value: types.Utf8("closed")}}},
		Predicate:   plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "id"}, Right: plan.Literal{Value: types.Int64(1)}},
	})
	if err != nil {
		t.Fatalf("Bind update: %v", err)
	}
	if upd.(Update).Assignments[0].Index != 3 {
		t.Fatalf("expected status at index 3, got %+v", upd)
	}

	del, err := p.Bind(plan.Delete{
		Table:     "orders",
		Predicate: plan.BinaryOp{Op: plan.OpEq, Left: plan.Column{Name: "id"}, Right: plan.Literal{Value: types.Int64(1)}},
	})
	if err != nil {
		t.Fatalf("Bind delete: %v", err)
	}
	if del.(Delete).Predicate == nil {
		t.Fatal("expected bound predicate")
	}
}

func TestBindDDLPassesThrough(t *testing.T) {
	p := NewPlanner(testCatalog(t))
	n, err := p.Bind(plan.CreateTable{Table: "new_table", Fields: []catalog.FieldMeta{{Name: "id", DataType: "Int64"}}})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if n.(CreateTable).Table != "new_table" {
		t.Fatalf("unexpected create table: %+v", n)
	}
}
