package exec

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/columnar"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/types"
)

// RowSource is the dependency-inverted row feed a TableScanOp falls back to
// on a columnar cache miss. pkg/engine supplies an implementation backed by
// the delta store merged over the persistent backend.
type RowSource interface {
	Rows(table string, visit func(row []types.Scalar) error) error
}

// rowsPerScanBatch bounds how many rows TableScanOp buffers per batch when
// rebuilding from a RowSource, matching pkg/columnar.SyncFromDelta's own
// batching granularity.
const rowsPerScanBatch = 4096

// TableScanOp streams a table's rows as arrow.Record batches, preferring a
// cached columnar copy and falling back to RowSource on a miss. Projection
// narrows the output to def.Projection; predicate filtering is layered on
// top by a wrapping FilterOp, not here, so this operator has exactly one
// job: deliver columns.
type TableScanOp struct {
	def    phys.TableScan
	cache  *columnar.Cache
	source RowSource

	fullFields []columnar.FieldDef // one per def.Schema entry, full table width
	batches    []arrow.Record
	pos        int
}

// NewTableScanOp constructs a scan operator. cache may be nil, meaning
// always read through source.
func NewTableScanOp(def phys.TableScan, cache *columnar.Cache, source RowSource) *TableScanOp {
	fields := make([]columnar.FieldDef, len(def.Schema))
	for i, f := range def.Schema {
		lt, _ := types.ParseLogicalType(f.DataType)
		fields[i] = columnar.FieldDef{Name: f.Name, Type: lt}
	}
	return &TableScanOp{def: def, cache: cache, source: source, fullFields: fields}
}

func (s *TableScanOp) Schema() []catalog.FieldMeta {
	if s.def.Projection == nil {
		return s.def.Schema
	}
	out := make([]catalog.FieldMeta, len(s.def.Projection))
	for i, idx := range s.def.Projection {
		out[i] = s.def.Schema[idx]
	}
	return out
}

func (s *TableScanOp) Reset() error {
	s.batches = nil
	s.pos = 0
	return nil
}

func (s *TableScanOp) Next() (arrow.Record, bool, error) {
	if s.batches == nil {
		batches, err := s.load()
		if err != nil {
			return nil, false, err
		}
		s.batches = batches
		s.pos = 0
	}
	if s.pos >= len(s.batches) {
		return nil, false, nil
	}
	rec := s.batches[s.pos]
	s.pos++
	return s.project(rec), true, nil
}

func (s *TableScanOp) load() ([]arrow.Record, error) {
	if s.cache != nil {
		if batches, ok := s.cache.Get(s.def.Table); ok {
			return batches, nil
		}
	}

	builder := columnar.NewRowBuilder(s.fullFields)
	var batches []arrow.Record
	count := 0
	flush := func() {
		if count > 0 {
			batches = append(batches, builder.NewRecord())
			builder = columnar.NewRowBuilder(s.fullFields)
			count = 0
		}
	}
	err := s.source.Rows(s.def.Table, func(row []types.Scalar) error {
		if err := builder.Append(row); err != nil {
			return err
		}
		count++
		if count >= rowsPerScanBatch {
			flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	flush()

	if s.def.IsAnalytical && s.cache != nil {
		s.cache.Put(s.def.Table, batches)
	}
	return batches, nil
}

// project narrows rec to def.Projection, returning rec unchanged when no
// projection was requested (the common full-scan case).
func (s *TableScanOp) project(rec arrow.Record) arrow.Record {
	if s.def.Projection == nil {
		return rec
	}
	cols := make([]arrow.Array, len(s.def.Projection))
	fields := make([]arrow.Field, len(s.def.Projection))
	srcSchema := rec.Schema()
	for i, idx := range s.def.Projection {
		cols[i] = rec.Column(idx)
		fields[i] = srcSchema.Field(idx)
	}
	outSchema := arrow.NewSchema(fields, nil)
	return array.NewRecord(outSchema, cols, rec.NumRows())
}
