package phys

import (
	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/sql/plan"
)

// PhysNode is a node of the physical plan, mirroring plan.Node's shape but
// with every expression column-bound and an IsAnalytical tag attached
// where the logical tree does not already imply one.
type PhysNode interface {
	physNode() []catalog.FieldMeta // returns the node's output schema
}

// TableScan reads Table, optionally restricted to Projection column
// indices and/or carrying a bound Filter. Schema is the table's full
// registered schema (Filter is always bound against it, independent of
// Projection).
type TableScan struct {
	Table        string
	Schema       []catalog.FieldMeta
	Projection   []int // nil means all columns, in schema order
	Filter       PExpr // nil if nothing pushed down
	IsAnalytical bool
}

func (s TableScan) physNode() []catalog.FieldMeta {
	if s.Projection == nil {
		return s.Schema
	}
	out := make([]catalog.FieldMeta, len(s.Projection))
	for i, idx := range s.Projection {
		out[i] = s.Schema[idx]
	}
	return out
}

// Filter retains input rows where Predicate evaluates true.
type Filter struct {
	Input     PhysNode
	Predicate PExpr
}

func (f Filter) physNode() []catalog.FieldMeta { return f.Input.physNode() }

// PProjectItem is one output column of a Projection node.
type PProjectItem struct {
	Expr PExpr
	Meta catalog.FieldMeta
}

// Projection evaluates Items against Input.
type Projection struct {
	Input PhysNode
	Items []PProjectItem
}

func (p Projection) physNode() []catalog.FieldMeta {
	out := make([]catalog.FieldMeta, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Meta
	}
	return out
}

// PAggregateItem is one bound aggregate output column.
type PAggregateItem struct {
	Fn   PFunction
	Meta catalog.FieldMeta
}

// HashAggregate groups Input by GroupBy and computes Aggregates per group.
type HashAggregate struct {
	Input      PhysNode
	GroupBy    []PExpr
	GroupMeta  []catalog.FieldMeta
	Aggregates []PAggregateItem
}

func (a HashAggregate) physNode() []catalog.FieldMeta {
	out := append([]catalog.FieldMeta{}, a.GroupMeta...)
	for _, it := range a.Aggregates {
		out = append(out, it.Meta)
	}
	return out
}

// PJoinCondition is one equi-join leg bound to column indices into Left's
// and Right's respective output schemas.
type PJoinCondition struct {
	LeftIndex  int
	RightIndex int
}

// HashJoin combines Left and Right by ANDed equi-join Conditions.
type HashJoin struct {
	Left, Right PhysNode
	Type        plan.JoinType
	Conditions  []PJoinCondition
}

func (j HashJoin) physNode() []catalog.FieldMeta {
	left := j.Left.physNode()
	right := j.Right.physNode()
	out := make([]catalog.FieldMeta, 0, len(left)+len(right))
	for _, f := range left {
		if j.Type == plan.JoinRight {
			f.Nullable = true
		}
		out = append(out, f)
	}
	for _, f := range right {
		if j.Type == plan.JoinLeft {
			f.Nullable = true
		}
		out = append(out, f)
	}
	return out
}

// PSortKey is one bound ORDER BY term.
type PSortKey struct {
	Index      int
	Ascending  bool
	NullsFirst bool
}

// SortMerge stably orders Input by Keys.
type SortMerge struct {
	Input PhysNode
	Keys  []PSortKey
}

func (s SortMerge) physNode() []catalog.FieldMeta { return s.Input.physNode() }

// Limit skips Offset rows then yields up to Count.
type Limit struct {
	Input  PhysNode
	Count  int64
	Offset int64
}

func (l Limit) physNode() []catalog.FieldMeta { return l.Input.physNode() }

// Insert appends Rows (each a positional literal list) to Table.
type Insert struct {
	Table  string
	Schema []catalog.FieldMeta
	Rows   [][]PExpr
}

func (i Insert) physNode() []catalog.FieldMeta { return i.Schema }

// PUpdateAssignment sets the field at Index to Value.
type PUpdateAssignment struct {
	Index int
	Value PExpr
}

// Update is UPDATE ... SET ... WHERE ....
type Update struct {
	Table       string
	Schema      []catalog.FieldMeta
	Assignments []PUpdateAssignment
	Predicate   PExpr
}

func (u Update) physNode() []catalog.FieldMeta { return u.Schema }

// Delete is DELETE FROM ... WHERE ....
type Delete struct {
	Table     string
	Schema    []catalog.FieldMeta
	Predicate PExpr
}

func (d Delete) physNode() []catalog.FieldMeta { return d.Schema }

// CreateTable, DropTable, CreateIndex, DropIndex, and AlterTable carry no
// bindable expressions; they pass the logical DDL node's fields through
// unchanged, since DDL validates its target at execution time rather than
// at bind time (a CREATE TABLE's target table does not exist yet to bind
// against).

type CreateTable struct {
	Table       string
	Fields      []catalog.FieldMeta
	IfNotExists bool
}

func (CreateTable) physNode() []catalog.FieldMeta { return nil }

type DropTable struct {
	Table    string
	IfExists bool
}

func (DropTable) physNode() []catalog.FieldMeta { return nil }

type CreateIndex struct {
	IndexName string
	Table     string
	Column    string
}

func (CreateIndex) physNode() []catalog.FieldMeta { return nil }

type DropIndex struct {
	IndexName string
	IfExists  bool
}

func (DropIndex) physNode() []catalog.FieldMeta { return nil }

type AlterTable struct {
	Table      string
	Kind       plan.AlterKind
	Column     catalog.FieldMeta
	ColumnName string
	NewName    string
}

func (AlterTable) physNode() []catalog.FieldMeta { return nil }
