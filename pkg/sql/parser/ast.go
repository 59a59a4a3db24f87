package parser

import "github.com/htapcore/engine/pkg/sql/plan"

// Statement is one parsed top-level SQL statement.
type Statement interface {
	stmtNode()
}

// SelectItem is one projection-list entry: Expr AS Alias, or Star for `*`.
type SelectItem struct {
	Expr  plan.Expr
	Alias string
	Star  bool
}

// JoinClause is one `JOIN table ON ...` following the FROM table.
type JoinClause struct {
	Table string
	Type  plan.JoinType
	On    plan.Expr // nil for CROSS JOIN
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       plan.Expr
	Ascending  bool
	NullsFirst bool
}

// SelectStmt is a parsed SELECT, before alias folding / aggregate lifting
// (performed by pkg/sql/plan.Build).
type SelectStmt struct {
	Projection []SelectItem
	From       string
	Joins      []JoinClause
	Where      plan.Expr
	GroupBy    []plan.Expr
	OrderBy    []OrderItem
	Limit      int64
	HasLimit   bool
	Offset     int64
}

// InsertStmt is INSERT INTO table (cols?) VALUES (...), (...).
type InsertStmt struct {
	Table   string
	Columns []string // empty means "all columns, in schema order"
	Rows    [][]plan.Expr
}

// UpdateStmt is UPDATE table SET col = expr, ... WHERE ....
type UpdateStmt struct {
	Table       string
	Assignments []plan.UpdateAssignment
	Where       plan.Expr
}

// DeleteStmt is DELETE FROM table WHERE ....
type DeleteStmt struct {
	Table string
	Where plan.Expr
}

// ColumnDef is one CREATE TABLE column definition.
type ColumnDef struct {
	Name     string
	DataType string
	Nullable bool
}

// CreateTableStmt is CREATE TABLE [IF NOT EXISTS] table (col type, ...).
type CreateTableStmt struct {
	Table       string
	Columns     []ColumnDef
	IfNotExists bool
}

// DropTableStmt is DROP TABLE [IF EXISTS] table.
type DropTableStmt struct {
	Table    string
	IfExists bool
}

// CreateIndexStmt is CREATE INDEX name ON table (column).
type CreateIndexStmt struct {
	IndexName string
	Table     string
	Column    string
}

// DropIndexStmt is DROP INDEX [IF EXISTS] name.
type DropIndexStmt struct {
	IndexName string
	IfExists  bool
}

// AlterTableStmt is ALTER TABLE table ADD|DROP|RENAME COLUMN ....
type AlterTableStmt struct {
	Table      string
	Kind       plan.AlterKind
	Column     ColumnDef // ADD
	ColumnName string    // DROP / RENAME (old name)
	NewName    string    // RENAME
}

func (SelectStmt) stmtNode()      {}
func (InsertStmt) stmtNode()      {}
func (UpdateStmt) stmtNode()      {}
func (DeleteStmt) stmtNode()      {}
func (CreateTableStmt) stmtNode() {}
func (DropTableStmt) stmtNode()   {}
func (CreateIndexStmt) stmtNode() {}
func (DropIndexStmt) stmtNode()   {}
func (AlterTableStmt) stmtNode()  {}
