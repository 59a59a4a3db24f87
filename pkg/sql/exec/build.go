package exec

import (
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/sql/phys"
)

// Builder turns a bound physical plan into a runnable Operator tree. Source
// is the raw-row fallback used on a columnar cache miss; Cache may be nil,
// meaning every TableScan reads through Source unconditionally.
type Builder struct {
	Cache  *columnar.Cache
	Source RowSource
}

// Build constructs the operator tree for n. Only query-shaped nodes
// (TableScan down through Limit) produce an Operator; DML/DDL nodes are
// executed directly by pkg/engine via dml.go/ddl.go, not through this
// pull-based pipeline.
func (b *Builder) Build(n phys.PhysNode) (Operator, error) {
	switch x := n.(type) {
	case phys.TableScan:
		return NewTableScanOp(x, b.Cache, b.Source), nil
	case phys.Filter:
		input, err := b.Build(x.Input)
		if err != nil {
			return nil, err
		}
		return &FilterOp{Input: input, Predicate: x.Predicate}, nil
	case phys.Projection:
		input, err := b.Build(x.Input)
		if err != nil {
			return nil, err
		}
		return &ProjectionOp{Input: input, Items: x.Items}, nil
	case phys.HashAggregate:
		input, err := b.Build(x.Input)
		if err != nil {
			return nil, err
		}
		return &HashAggregateOp{Input: input, GroupBy: x.GroupBy, GroupMeta: x.GroupMeta, Aggregates: x.Aggregates}, nil
	case phys.HashJoin:
		left, err := b.Build(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.Build(x.Right)
		if err != nil {
			return nil, err
		}
		return &HashJoinOp{Left: left, Right: right, Type: x.Type, Conditions: x.Conditions}, nil
	case phys.SortMerge:
		input, err := b.Build(x.Input)
		if err != nil {
			return nil, err
		}
		return &SortMergeOp{Input: input, Keys: x.Keys}, nil
	case phys.Limit:
		input, err := b.Build(x.Input)
		if err != nil {
			return nil, err
		}
		return &LimitOp{Input: input, Count: x.Count, Offset: x.Offset}, nil
	default:
		return nil, &errors.SqlNotSupportedError{Feature: "this node does not produce a pull-based operator (DML/DDL execute directly)"}
	}
}
