package plan

import (
	"testing"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/types"
)

func TestNodeTreeConstruction(t *testing.T) {
	var n Node = Limit{
		Count: 10,
		Input: Sort{
			Keys: []SortKey{{Column: "name", Ascending: true}},
			Input: Project{
				Items: []ProjectItem{{Expr: Column{Name: "name"}}},
				Input: Filter{
					Predicate: BinaryOp{Op: OpEq, Left: Column{Name: "id"}, Right: Literal{Value: types.Int64(1)}},
					Input:     Scan{Table: "users"},
				},
			},
		},
	}
	if _, ok := n.(Limit); !ok {
		t.Fatalf("expected Limit at the root, got %T", n)
	}
}

func TestJoinAndAggregateConstruction(t *testing.T) {
	j := Join{
		Left:       Scan{Table: "orders"},
		Right:      Scan{Table: "customers"},
		Type:       JoinInner,
		Conditions: []JoinCondition{{LeftColumn: "customer_id", RightColumn: "id"}},
	}
	agg := Aggregate{
		Input:      j,
		GroupBy:    []Expr{Column{Name: "status"}},
		Aggregates: []AggregateItem{{Fn: Function{Name: "COUNT", Fn: AggCount}, Alias: "n"}},
	}
	if len(agg.Aggregates) != 1 || agg.Aggregates[0].Fn.Fn != AggCount {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
}

func TestDDLNodesCarryCatalogFieldMeta(t *testing.T) {
	ct := CreateTable{
		Table: "t",
		Fields: []catalog.FieldMeta{
			{Name: "id", DataType: "Int64", Nullable: false},
		},
	}
	if len(ct.Fields) != 1 || ct.Fields[0].Name != "id" {
		t.Fatalf("unexpected create table node: %+v", ct)
	}
}

func TestInListAndIsNullExprs(t *testing.T) {
	var e Expr = InList{
		Expr:    Column{Name: "status"},
		Values:  []Expr{Literal{Value: types.Utf8("open")}, Literal{Value: types.Utf8("closed")}},
		Negated: false,
	}
	il, ok := e.(InList)
	if !ok || len(il.Values) != 2 {
		t.Fatalf("unexpected in-list: %+v", e)
	}
	var n Expr = IsNotNull{Expr: Column{Name: "status"}}
	if _, ok := n.(IsNotNull); !ok {
		t.Fatalf("unexpected is-not-null: %+v", n)
	}
}
