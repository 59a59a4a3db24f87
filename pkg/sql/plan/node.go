package plan

import "github.com/htapcore/engine/pkg/catalog"

// Node is a logical relational plan node.
type Node interface {
	planNode()
}

// Scan reads a table, optionally already carrying a pushed-down filter
// and/or column projection (set by the optimizer, not by the parser).
type Scan struct {
	Table   string
	Filter  Expr     // nil if nothing pushed down yet
	Columns []string // nil means all columns
}

// Filter retains only input rows where Predicate evaluates true.
type Filter struct {
	Input     Node
	Predicate Expr
}

// ProjectItem is one output column of a Project node.
type ProjectItem struct {
	Expr  Expr
	Alias string
}

// Project evaluates Items against its input, producing a renamed/derived
// output schema.
type Project struct {
	Input Node
	Items []ProjectItem
}

// AggregateItem is one aggregate output column.
type AggregateItem struct {
	Fn    Function
	Alias string
}

// Aggregate groups Input by GroupBy and computes Aggregates per group; a
// nil/empty GroupBy produces a single global-aggregate row.
type Aggregate struct {
	Input      Node
	GroupBy    []Expr
	Aggregates []AggregateItem
}

// JoinType enumerates HashJoin's supported join kinds.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinCross
)

// JoinCondition is one equi-join leg: Left.Column = Right.Column.
type JoinCondition struct {
	LeftColumn  string
	RightColumn string
}

// Join combines Left and Right by ANDed equi-join Conditions (empty for a
// JoinCross, whose match condition is always true).
type Join struct {
	Left, Right Node
	Type        JoinType
	Conditions  []JoinCondition
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Column     string
	Ascending  bool
	NullsFirst bool
}

// Sort stably orders Input by Keys.
type Sort struct {
	Input Node
	Keys  []SortKey
}

// Limit skips Offset rows then yields up to Count.
type Limit struct {
	Input  Node
	Count  int64
	Offset int64
}

// Insert appends Rows (each a positional literal list matching the
// target's schema order) to Table.
type Insert struct {
	Table string
	Rows  [][]Expr
}

// UpdateAssignment sets Column to Value for every row Update's Predicate
// matches.
type UpdateAssignment struct {
	Column string
	Value  Expr
}

// Update is UPDATE ... SET ... WHERE ..., Predicate nil meaning unfiltered.
type Update struct {
	Table       string
	Assignments []UpdateAssignment
	Predicate   Expr
}

// Delete is DELETE FROM ... WHERE ..., Predicate nil meaning unfiltered.
type Delete struct {
	Table     string
	Predicate Expr
}

// CreateTable is CREATE TABLE ... (col type, ...).
type CreateTable struct {
	Table    string
	Fields   []catalog.FieldMeta
	IfNotExists bool
}

// DropTable is DROP TABLE [IF EXISTS] ....
type DropTable struct {
	Table    string
	IfExists bool
}

// CreateIndex is CREATE INDEX ... ON table(column).
type CreateIndex struct {
	IndexName string
	Table     string
	Column    string
}

// DropIndex is DROP INDEX [IF EXISTS] ....
type DropIndex struct {
	IndexName string
	IfExists  bool
}

// AlterKind enumerates ALTER TABLE's supported sub-operations.
type AlterKind int

const (
	AlterAddColumn AlterKind = iota
	AlterDropColumn
	AlterRenameColumn
)

// AlterTable rewrites Table's schema in place.
type AlterTable struct {
	Table      string
	Kind       AlterKind
	Column     catalog.FieldMeta // used by AlterAddColumn
	ColumnName string            // used by AlterDropColumn / AlterRenameColumn (old name)
	NewName    string            // used by AlterRenameColumn
}

func (Scan) planNode()        {}
func (Filter) planNode()      {}
func (Project) planNode()     {}
func (Aggregate) planNode()   {}
func (Join) planNode()        {}
func (Sort) planNode()        {}
func (Limit) planNode()       {}
func (Insert) planNode()      {}
func (Update) planNode()      {}
func (Delete) planNode()      {}
func (CreateTable) planNode() {}
func (DropTable) planNode()   {}
func (CreateIndex) planNode() {}
func (DropIndex) planNode()   {}
func (AlterTable) planNode()  {}
