package exec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/types"
)

// ProjectionOp evaluates Items against each batch pulled from Input,
// producing one output column per item.
type ProjectionOp struct {
	Input Operator
	Items []phys.PProjectItem
}

func (p *ProjectionOp) Schema() []catalog.FieldMeta {
	out := make([]catalog.FieldMeta, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Meta
	}
	return out
}

func (p *ProjectionOp) Reset() error { return p.Input.Reset() }

func (p *ProjectionOp) Next() (arrow.Record, bool, error) {
	rec, ok, err := p.Input.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	fields := make([]arrow.Field, len(p.Items))
	cols := make([]arrow.Array, len(p.Items))
	for i, it := range p.Items {
		col, err := Eval(it.Expr, rec)
		if err != nil {
			return nil, false, err
		}
		cols[i] = col
		lt, ok := types.ParseLogicalType(it.Meta.DataType)
		if !ok {
			lt = types.TypeUtf8
		}
		arrowType := columnar.ArrowSchema([]columnar.FieldDef{{Name: it.Meta.Name, Type: lt}}).Field(0).Type
		fields[i] = arrow.Field{Name: it.Meta.Name, Type: arrowType, Nullable: it.Meta.Nullable}
	}
	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, rec.NumRows()), true, nil
}
