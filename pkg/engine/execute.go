package engine

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/htapcore/engine/pkg/catalog"
	"github.com/htapcore/engine/pkg/errors"
	"github.com/htapcore/engine/pkg/paramsub"
	"github.com/htapcore/engine/pkg/sql/exec"
	"github.com/htapcore/engine/pkg/sql/optim"
	"github.com/htapcore/engine/pkg/sql/parser"
	"github.com/htapcore/engine/pkg/sql/phys"
	"github.com/htapcore/engine/pkg/txn"
	"github.com/htapcore/engine/pkg/types"
)

// Result is the outcome of one SQL statement: a row batch sequence for
// SELECT (RowsAffected then counts the rows returned), or an affected-row
// count for INSERT/UPDATE/DELETE (zero for DDL).
type Result struct {
	Schema       []catalog.FieldMeta
	Batches      []arrow.Record
	RowsAffected int64
}

// Execute runs sql against an implicit, auto-committing transaction: DDL
// applies directly against the catalog, DML runs inside a single-statement
// transaction that commits before Execute returns, and SELECT builds and
// drains an operator tree over a snapshot at the current commit timestamp.
func (e *Engine) Execute(sql string, params map[string]types.Scalar) (*Result, error) {
	phy, err := e.bind(sql, params)
	if err != nil {
		return nil, err
	}

	switch phy.(type) {
	case phys.CreateTable, phys.DropTable, phys.CreateIndex, phys.DropIndex, phys.AlterTable:
		if err := exec.ExecuteDDL(phy, e.cat); err != nil {
			return nil, err
		}
		if t, ok := tableOf(phy); ok {
			e.cache.Evict(t)
		}
		return &Result{}, nil

	case phys.Insert, phys.Update, phys.Delete:
		tx := e.Begin()
		n, err := e.execDML(phy, tx.inner)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &Result{RowsAffected: n}, nil

	default:
		return e.executeQuery(phy, e.oracle.Current())
	}
}

// executeQuery builds and fully drains the operator tree for a bound
// SELECT-shaped node as of snapshotTS.
func (e *Engine) executeQuery(phy phys.PhysNode, snapshotTS uint64) (*Result, error) {
	b := &exec.Builder{Cache: e.cache, Source: &engineRowSource{engine: e, snapshotTS: snapshotTS}}
	op, err := b.Build(phy)
	if err != nil {
		return nil, err
	}
	res := &Result{Schema: op.Schema()}
	for {
		rec, ok, err := op.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		res.Batches = append(res.Batches, rec)
		res.RowsAffected += rec.NumRows()
	}
	return res, nil
}

// execDML dispatches a bound Insert/Update/Delete node against tx, which
// satisfies exec.RowWriter directly (its Put/Delete methods match the
// interface). UPDATE/DELETE read their candidate rows through
// engineKeyedSource, which merges committed delta and persistent state at
// tx's snapshot timestamp; writes still buffered in tx are not seen there.
func (e *Engine) execDML(phy phys.PhysNode, tx *txn.Transaction) (int64, error) {
	source := &engineKeyedSource{engine: e, snapshotTS: tx.SnapshotTS}
	switch x := phy.(type) {
	case phys.Insert:
		return exec.Insert(x, tx)
	case phys.Update:
		return exec.Update(x, source, tx)
	case phys.Delete:
		return exec.Delete(x, source, tx)
	default:
		return 0, &errors.SqlNotSupportedError{Feature: "not a DML node"}
	}
}

// bind runs sql through parameter substitution, parsing, logical planning,
// optimization, and physical binding, returning a ready-to-dispatch node.
func (e *Engine) bind(sql string, params map[string]types.Scalar) (phys.PhysNode, error) {
	substituted, err := paramsub.Substitute(sql, params)
	if err != nil {
		return nil, err
	}
	stmt, err := parser.Parse(substituted)
	if err != nil {
		return nil, err
	}
	logical, err := parser.Build(stmt)
	if err != nil {
		return nil, err
	}
	optimized := optim.Optimize(logical)
	return e.planner.Bind(optimized)
}

func tableOf(phy phys.PhysNode) (string, bool) {
	switch x := phy.(type) {
	case phys.CreateTable:
		return x.Table, true
	case phys.DropTable:
		return x.Table, true
	case phys.AlterTable:
		return x.Table, true
	default:
		return "", false
	}
}

// Tx is a handle onto a multi-statement transaction opened via
// Engine.Begin: every Execute call through it shares one snapshot and one
// write buffer until Commit or Rollback.
type Tx struct {
	engine *Engine
	inner  *txn.Transaction
}

// Begin opens a new transaction pinned at the engine's current commit
// timestamp.
func (e *Engine) Begin() *Tx {
	snapshot := e.oracle.Current()
	inner := txn.Begin(snapshot, e.registry, e.readFunc, e.commitFunc)
	return &Tx{engine: e, inner: inner}
}

// Execute runs sql inside the transaction's own snapshot and write buffer.
// DDL still applies immediately against the shared catalog (pkg/catalog
// has no transactional isolation of its own), matching SQL engines that
// treat schema changes as auto-committing regardless of the surrounding
// transaction.
func (t *Tx) Execute(sql string, params map[string]types.Scalar) (*Result, error) {
	phy, err := t.engine.bind(sql, params)
	if err != nil {
		return nil, err
	}
	switch phy.(type) {
	case phys.CreateTable, phys.DropTable, phys.CreateIndex, phys.DropIndex, phys.AlterTable:
		if err := exec.ExecuteDDL(phy, t.engine.cat); err != nil {
			return nil, err
		}
		if tbl, ok := tableOf(phy); ok {
			t.engine.cache.Evict(tbl)
		}
		return &Result{}, nil
	case phys.Insert, phys.Update, phys.Delete:
		n, err := t.engine.execDML(phy, t.inner)
		if err != nil {
			return nil, err
		}
		return &Result{RowsAffected: n}, nil
	default:
		return t.engine.executeQuery(phy, t.inner.SnapshotTS)
	}
}

// Commit allocates a fresh commit timestamp and durably applies every
// buffered write.
func (t *Tx) Commit() error {
	ts := t.engine.oracle.Next()
	if err := t.inner.Commit(ts); err != nil {
		return err
	}
	return nil
}

// Rollback discards the transaction's write buffer without applying it.
func (t *Tx) Rollback() {
	t.inner.Rollback()
	t.engine.metrics.TransactionsRolledBack.Inc()
}
