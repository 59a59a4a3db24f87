package exec

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/types"
)

func TestSortMergeOrdersAscending(t *testing.T) {
	scan := ordersScanOp(t)
	s := &SortMergeOp{
		Input: scan,
		Keys:  []phys.PSortKey{{Index: 1, Ascending: true}},
	}
	rec, ok, err := s.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	totals := rec.Column(1).(*array.Float64)
	if totals.Value(0) != 3.0 || totals.Value(1) != 9.5 || totals.Value(2) != 11.0 {
		t.Fatalf("unexpected sort order: %v %v %v", totals.Value(0), totals.Value(1), totals.Value(2))
	}
	_, ok, err = s.Next()
	if err != nil || ok {
		t.Fatalf("expected single sorted batch then EOF, got ok=%v err=%v", ok, err)
	}
}

func TestSortMergeOrdersDescending(t *testing.T) {
	scan := ordersScanOp(t)
	s := &SortMergeOp{
		Input: scan,
		Keys:  []phys.PSortKey{{Index: 1, Ascending: false}},
	}
	rec, ok, err := s.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	totals := rec.Column(1).(*array.Float64)
	if totals.Value(0) != 11.0 || totals.Value(1) != 9.5 || totals.Value(2) != 3.0 {
		t.Fatalf("unexpected descending sort order: %v %v %v", totals.Value(0), totals.Value(1), totals.Value(2))
	}
}

func TestSortMergeNullsFirst(t *testing.T) {
	src := &staticRowSource{rows: [][]types.Scalar{
		{types.Int64(1), types.Float64(5.0)},
		{types.Int64(2), types.Null()},
		{types.Int64(3), types.Float64(1.0)},
	}}
	def := phys.TableScan{Table: "t", Schema: []catalog.FieldMeta{
		{Name: "id", DataType: "Int64"},
		{Name: "val", DataType: "Float64"},
	}}
	scan := NewTableScanOp(def, nil, src)
	s := &SortMergeOp{
		Input: scan,
		Keys:  []phys.PSortKey{{Index: 1, Ascending: true, NullsFirst: true}},
	}
	rec, ok, err := s.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	vals := rec.Column(1).(*array.Float64)
	if !vals.IsNull(0) {
		t.Fatalf("expected null value first, got %v", vals.Value(0))
	}
	if vals.Value(1) != 1.0 || vals.Value(2) != 5.0 {
		t.Fatalf("unexpected remaining order: %v %v", vals.Value(1), vals.Value(2))
	}
}

func TestLimitSkipsOffsetThenCapsCount(t *testing.T) {
	scan := ordersScanOp(t)
	l := &LimitOp{Input: scan, Count: 1, Offset: 1}
	rec, ok, err := l.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if rec.NumRows() != 1 {
		t.Fatalf("expected exactly 1 row, got %d", rec.NumRows())
	}
	ids := rec.Column(0).(*array.Int64)
	if ids.Value(0) != 2 {
		t.Fatalf("expected row id=2 after skipping offset 1, got %v", ids.Value(0))
	}
	_, ok, err = l.Next()
	if err != nil || ok {
		t.Fatalf("expected EOF after Count reached, got ok=%v err=%v", ok, err)
	}
}

func TestLimitCountExceedingInputReturnsAllRemaining(t *testing.T) {
	scan := ordersScanOp(t)
	l := &LimitOp{Input: scan, Count: 100}
	rec, ok, err := l.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if rec.NumRows() != 3 {
		t.Fatalf("expected all 3 rows, got %d", rec.NumRows())
	}
}
