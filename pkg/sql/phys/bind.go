package phys

import (
	"strings"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/plan"
	"github.com/htapcore/engine/pkg/types"
)

// Planner binds a logical plan.Node tree against a Catalog, producing a
// PhysNode tree with every column reference resolved to an index.
type Planner struct {
	cat *catalog.Catalog
}

func NewPlanner(cat *catalog.Catalog) *Planner {
	return &Planner{cat: cat}
}

// Bind resolves n into a physical plan.
func (p *Planner) Bind(n plan.Node) (PhysNode, error) {
	switch x := n.(type) {
	case plan.Scan:
		return p.bindScan(x)
	case plan.Filter:
		return p.bindFilter(x)
	case plan.Project:
		return p.bindProject(x)
	case plan.Aggregate:
		return p.bindAggregate(x)
	case plan.Join:
		return p.bindJoin(x)
	case plan.Sort:
		return p.bindSort(x)
	case plan.Limit:
		return p.bindLimit(x)
	case plan.Insert:
		return p.bindInsert(x)
	case plan.Update:
		return p.bindUpdate(x)
	case plan.Delete:
		return p.bindDelete(x)
	case plan.CreateTable:
		return CreateTable{Table: x.Table, Fields: x.Fields, IfNotExists: x.IfNotExists}, nil
	case plan.DropTable:
		return DropTable{Table: x.Table, IfExists: x.IfExists}, nil
	case plan.CreateIndex:
		return CreateIndex{IndexName: x.IndexName, Table: x.Table, Column: x.Column}, nil
	case plan.DropIndex:
		return DropIndex{IndexName: x.IndexName, IfExists: x.IfExists}, nil
	case plan.AlterTable:
		return AlterTable{Table: x.Table, Kind: x.Kind, Column: x.Column, ColumnName: x.ColumnName, NewName: x.NewName}, nil
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "unknown logical node shape"}
	}
}

func (p *Planner) tableSchema(table string) ([]catalog.FieldMeta, error) {
	meta, ok := p.cat.GetTable(table)
	if !ok {
		return nil, &errors.TableNotFoundError{Name: table}
	}
	return meta.Fields, nil
}

func (p *Planner) bindScan(x plan.Scan) (PhysNode, error) {
	schema, err := p.tableSchema(x.Table)
	if err != nil {
		return nil, err
	}
	scan := TableScan{Table: x.Table, Schema: schema}
	if x.Columns != nil {
		idx := make([]int, len(x.Columns))
		for i, name := range x.Columns {
			fi, ok := fieldIndex(schema, name)
			if !ok {
				return nil, &errors.SchemaError{Message: "unresolved column: " + name}
			}
			idx[i] = fi
		}
		scan.Projection = idx
	}
	if x.Filter != nil {
		bound, err := bindExpr(x.Filter, schema)
		if err != nil {
			return nil, err
		}
		scan.Filter = bound
		scan.IsAnalytical = true
	}
	return scan, nil
}

func (p *Planner) bindFilter(x plan.Filter) (PhysNode, error) {
	input, err := p.Bind(x.Input)
	if err != nil {
		return nil, err
	}
	pred, err := bindExpr(x.Predicate, input.physNode())
	if err != nil {
		return nil, err
	}
	return Filter{Input: input, Predicate: pred}, nil
}

func (p *Planner) bindProject(x plan.Project) (PhysNode, error) {
	input, err := p.Bind(x.Input)
	if err != nil {
		return nil, err
	}
	schema := input.physNode()
	items := make([]PProjectItem, len(x.Items))
	for i, it := range x.Items {
		bound, err := bindExpr(it.Expr, schema)
		if err != nil {
			return nil, err
		}
		name := it.Alias
		if name == "" {
			name = exprDisplayName(it.Expr, i)
		}
		items[i] = PProjectItem{Expr: bound, Meta: catalog.FieldMeta{
			Name:     name,
			DataType: inferType(bound, schema).String(),
			Nullable: true,
		}}
	}
	return Projection{Input: input, Items: items}, nil
}

func (p *Planner) bindAggregate(x plan.Aggregate) (PhysNode, error) {
	input, err := p.Bind(x.Input)
	if err != nil {
		return nil, err
	}
	schema := input.physNode()

	groupBy := make([]PExpr, len(x.GroupBy))
	groupMeta := make([]catalog.FieldMeta, len(x.GroupBy))
	for i, e := range x.GroupBy {
		bound, err := bindExpr(e, schema)
		if err != nil {
			return nil, err
		}
		groupBy[i] = bound
		groupMeta[i] = catalog.FieldMeta{Name: exprDisplayName(e, i), DataType: inferType(bound, schema).String(), Nullable: true}
	}

	aggs := make([]PAggregateItem, len(x.Aggregates))
	for i, it := range x.Aggregates {
		var arg PExpr
		if it.Fn.Arg != nil {
			bound, err := bindExpr(it.Fn.Arg, schema)
			if err != nil {
				return nil, err
			}
			arg = bound
		}
		name := it.Alias
		if name == "" {
			name = string(it.Fn.Name)
		}
		dt := types.TypeFloat64
		if it.Fn.Fn == plan.AggCount {
			dt = types.TypeInt64
		}
		aggs[i] = PAggregateItem{
			Fn:   PFunction{Fn: it.Fn.Fn, Arg: arg},
			Meta: catalog.FieldMeta{Name: name, DataType: dt.String(), Nullable: false},
		}
	}

	return HashAggregate{Input: input, GroupBy: groupBy, GroupMeta: groupMeta, Aggregates: aggs}, nil
}

func (p *Planner) bindJoin(x plan.Join) (PhysNode, error) {
	left, err := p.Bind(x.Left)
	if err != nil {
		return nil, err
	}
	right, err := p.Bind(x.Right)
	if err != nil {
		return nil, err
	}
	leftSchema := left.physNode()
	rightSchema := right.physNode()

	conds := make([]PJoinCondition, len(x.Conditions))
	for i, c := range x.Conditions {
		li, ok := fieldIndex(leftSchema, c.LeftColumn)
		if !ok {
			return nil, &errors.SchemaError{Message: "unresolved join column: " + c.LeftColumn}
		}
		ri, ok := fieldIndex(rightSchema, c.RightColumn)
		if !ok {
			return nil, &errors.SchemaError{Message: "unresolved join column: " + c.RightColumn}
		}
		conds[i] = PJoinCondition{LeftIndex: li, RightIndex: ri}
	}

	return HashJoin{Left: left, Right: right, Type: x.Type, Conditions: conds}, nil
}

func (p *Planner) bindSort(x plan.Sort) (PhysNode, error) {
	input, err := p.Bind(x.Input)
	if err != nil {
		return nil, err
	}
	schema := input.physNode()
	keys := make([]PSortKey, len(x.Keys))
	for i, k := range x.Keys {
		idx, ok := fieldIndex(schema, k.Column)
		if !ok {
			return nil, &errors.SchemaError{Message: "unresolved sort column: " + k.Column}
		}
		keys[i] = PSortKey{Index: idx, Ascending: k.Ascending, NullsFirst: k.NullsFirst}
	}
	return SortMerge{Input: input, Keys: keys}, nil
}

func (p *Planner) bindLimit(x plan.Limit) (PhysNode, error) {
	input, err := p.Bind(x.Input)
	if err != nil {
		return nil, err
	}
	return Limit{Input: input, Count: x.Count, Offset: x.Offset}, nil
}

func (p *Planner) bindInsert(x plan.Insert) (PhysNode, error) {
	schema, err := p.tableSchema(x.Table)
	if err != nil {
		return nil, err
	}
	rows := make([][]PExpr, len(x.Rows))
	for i, row := range x.Rows {
		bound := make([]PExpr, len(row))
		for j, e := range row {
			b, err := bindExpr(e, nil)
			if err != nil {
				return nil, err
			}
			bound[j] = b
		}
		rows[i] = bound
	}
	return Insert{Table: x.Table, Schema: schema, Rows: rows}, nil
}

func (p *Planner) bindUpdate(x plan.Update) (PhysNode, error) {
	schema, err := p.tableSchema(x.Table)
	if err != nil {
		return nil, err
	}
	assigns := make([]PUpdateAssignment, len(x.Assignments))
	for i, a := range x.Assignments {
		idx, ok := fieldIndex(schema, a.Column)
		if !ok {
			return nil, &errors.SchemaError{Message: "unresolved column: " + a.Column}
		}
		val, err := bindExpr(a.Value, schema)
		if err != nil {
			return nil, err
		}
		assigns[i] = PUpdateAssignment{Index: idx, Value: val}
	}
	var pred PExpr
	if x.Predicate != nil {
		pred, err = bindExpr(x.Predicate, schema)
		if err != nil {
			return nil, err
		}
	}
	return Update{Table: x.Table, Schema: schema, Assignments: assigns, Predicate: pred}, nil
}

func (p *Planner) bindDelete(x plan.Delete) (PhysNode, error) {
	schema, err := p.tableSchema(x.Table)
	if err != nil {
		return nil, err
	}
	var pred PExpr
	if x.Predicate != nil {
		pred, err = bindExpr(x.Predicate, schema)
		if err != nil {
			return nil, err
		}
	}
	return Delete{Table: x.Table, Schema: schema, Predicate: pred}, nil
}

func bindExpr(e plan.Expr, schema []catalog.FieldMeta) (PExpr, error) {
	switch x := e.(type) {
	case plan.Column:
		idx, ok := fieldIndex(schema, x.Name)
		if !ok {
			return nil, &errors.SchemaError{Message: "unresolved column: " + x.Name}
		}
		return PColumn{Index: idx, Name: x.Name}, nil
	case plan.Literal:
		return PLiteral{Value: x.Value}, nil
	case plan.BinaryOp:
		left, err := bindExpr(x.Left, schema)
		if err != nil {
			return nil, err
		}
		right, err := bindExpr(x.Right, schema)
		if err != nil {
			return nil, err
		}
		return PBinaryOp{Op: x.Op, Left: left, Right: right}, nil
	case plan.IsNull:
		inner, err := bindExpr(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		return PIsNull{Expr: inner}, nil
	case plan.IsNotNull:
		inner, err := bindExpr(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		return PIsNotNull{Expr: inner}, nil
	case plan.Function:
		var arg PExpr
		if x.Arg != nil {
			bound, err := bindExpr(x.Arg, schema)
			if err != nil {
				return nil, err
			}
			arg = bound
		}
		return PFunction{Fn: x.Fn, Arg: arg}, nil
	case plan.ScalarFunc:
		args := make([]PExpr, len(x.Args))
		for i, a := range x.Args {
			bound, err := bindExpr(a, schema)
			if err != nil {
				return nil, err
			}
			args[i] = bound
		}
		return PScalarFunc{Variant: x.Variant, Args: args}, nil
	case plan.InList:
		inner, err := bindExpr(x.Expr, schema)
		if err != nil {
			return nil, err
		}
		values := make([]PExpr, len(x.Values))
		for i, v := range x.Values {
			bound, err := bindExpr(v, schema)
			if err != nil {
				return nil, err
			}
			values[i] = bound
		}
		return PInList{Expr: inner, Values: values, Negated: x.Negated}, nil
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "unknown expression shape"}
	}
}

// fieldIndex looks up name case-insensitively against schema.
func fieldIndex(schema []catalog.FieldMeta, name string) (int, bool) {
	for i, f := range schema {
		if strings.EqualFold(f.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// IsAnalytical reports whether n's subtree contains a join, aggregate,
// sort-merge, or filtered table scan — the signal used to decide whether
// the columnar cache should be populated for this plan.
func IsAnalytical(n PhysNode) bool {
	switch x := n.(type) {
	case TableScan:
		return x.IsAnalytical
	case Filter:
		return true
	case Projection:
		return IsAnalytical(x.Input)
	case HashAggregate:
		return true
	case HashJoin:
		return true
	case SortMerge:
		return true
	case Limit:
		return IsAnalytical(x.Input)
	default:
		return false
	}
}

func exprDisplayName(e plan.Expr, fallbackIndex int) string {
	switch x := e.(type) {
	case plan.Column:
		return x.Name
	case plan.Function:
		return string(x.Name)
	default:
		_ = x
		return columnFallbackName(fallbackIndex)
	}
}

func columnFallbackName(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return "col" + string(digits[i])
	}
	buf := []byte{}
	n := i
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return "col" + string(buf)
}

func inferType(e PExpr, schema []catalog.FieldMeta) types.LogicalType {
	switch x := e.(type) {
	case PColumn:
		if x.Index >= 0 && x.Index < len(schema) {
			if t, ok := schema[x.Index].LogicalType(); ok {
				return t
			}
		}
		return types.TypeNull
	case PLiteral:
		return x.Value.Type
	case PBinaryOp:
		switch x.Op {
		case plan.OpEq, plan.OpNeq, plan.OpLt, plan.OpLte, plan.OpGt, plan.OpGte, plan.OpAnd, plan.OpOr:
			return types.TypeBoolean
		default:
			lt := inferType(x.Left, schema)
			rt := inferType(x.Right, schema)
			if lt == types.TypeFloat64 || rt == types.TypeFloat64 {
				return types.TypeFloat64
			}
			if lt == types.TypeInt64 || rt == types.TypeInt64 {
				return types.TypeInt64
			}
			return lt
		}
	case PIsNull, PIsNotNull, PInList:
		return types.TypeBoolean
	case PScalarFunc:
		switch x.Variant {
		case plan.FnUpper, plan.FnLower, plan.FnTrim, plan.FnConcat:
			return types.TypeUtf8
		case plan.FnLength, plan.FnNow, plan.FnCurrentDate, plan.FnCurrentTime:
			return types.TypeInt64
		default:
			return types.TypeFloat64
		}
	case PFunction:
		if x.Fn == plan.AggCount {
			return types.TypeInt64
		}
		return types.TypeFloat64
	default:
		return types.TypeNull
	}
}
