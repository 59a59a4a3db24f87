package engine

import (
	"testing"

	"github.com/htapcore/engine/pkg/types"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func createOrders(t *testing.T, e *Engine) {
	t.Helper()
	if _, err := e.Execute(`CREATE TABLE orders (id BIGINT, total DOUBLE, status TEXT)`, nil); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
}

func TestExecuteInsertThenSelectRoundTrips(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)

	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if _, err := e.Execute(`INSERT INTO orders VALUES (2, 3.0, 'closed')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	res, err := e.Execute(`SELECT id, total, status FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Fatalf("expected 2 rows, got %d", res.RowsAffected)
	}
}

func TestExecuteUpdateThenDeleteNarrowsResults(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)

	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if _, err := e.Execute(`INSERT INTO orders VALUES (2, 3.0, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	upd, err := e.Execute(`UPDATE orders SET status = 'shipped' WHERE id = 1`, nil)
	if err != nil {
		t.Fatalf("UPDATE: %v", err)
	}
	if upd.RowsAffected != 1 {
		t.Fatalf("expected 1 row updated, got %d", upd.RowsAffected)
	}

	del, err := e.Execute(`DELETE FROM orders WHERE id = 2`, nil)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if del.RowsAffected != 1 {
		t.Fatalf("expected 1 row deleted, got %d", del.RowsAffected)
	}

	res, err := e.Execute(`SELECT id FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 surviving row, got %d", res.RowsAffected)
	}
}

func TestTransactionIsolatesUntilCommit(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)

	tx := e.Begin()
	if _, err := tx.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("tx insert: %v", err)
	}

	res, err := e.Execute(`SELECT id FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT before commit: %v", err)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("uncommitted insert should not be visible outside the transaction, got %d rows", res.RowsAffected)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	res, err = e.Execute(`SELECT id FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT after commit: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 row after commit, got %d", res.RowsAffected)
	}
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)

	tx := e.Begin()
	if _, err := tx.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("tx insert: %v", err)
	}
	tx.Rollback()

	res, err := e.Execute(`SELECT id FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("rolled-back insert should not be visible, got %d rows", res.RowsAffected)
	}
}

func TestParameterSubstitutionBindsNamedPlaceholder(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)

	params := map[string]types.Scalar{"status": types.Utf8("open")}
	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, :status)`, params); err != nil {
		t.Fatalf("INSERT with param: %v", err)
	}
	res, err := e.Execute(`SELECT id FROM orders WHERE status = :status`, params)
	if err != nil {
		t.Fatalf("SELECT with param: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 matching row, got %d", res.RowsAffected)
	}
}

func TestFlushMovesRowsIntoPersistentBackend(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)
	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	if err := e.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	count, err := e.persist.Count("orders")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row in the persistent backend after flush, got %d", count)
	}

	res, err := e.Execute(`SELECT id FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT after flush: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected flushed row still visible through the merge, got %d", res.RowsAffected)
	}
}

func TestRecoveryReplaysUncheckpointedWrites(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(DefaultOptions(dir))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	createOrders(t, e)
	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if err := e.walw.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}
	if err := e.persist.Close(); err != nil {
		t.Fatalf("close persist: %v", err)
	}

	reopened, err := Open(DefaultOptions(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	res, err := reopened.Execute(`SELECT id FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT after reopen: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected replayed row to be visible, got %d", res.RowsAffected)
	}
}

func TestVacuumReclaimsSupersededVersions(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)

	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if _, err := e.Execute(`UPDATE orders SET status = 'shipped' WHERE id = 1`, nil); err != nil {
		t.Fatalf("UPDATE: %v", err)
	}
	if _, err := e.Execute(`UPDATE orders SET status = 'closed' WHERE id = 1`, nil); err != nil {
		t.Fatalf("UPDATE: %v", err)
	}

	if err := e.Vacuum(); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}

	res, err := e.Execute(`SELECT status FROM orders`, nil)
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 surviving row after vacuum, got %d", res.RowsAffected)
	}
}

func TestCheckpointTrimsWriteAheadLog(t *testing.T) {
	e := openTestEngine(t)
	createOrders(t, e)
	if _, err := e.Execute(`INSERT INTO orders VALUES (1, 9.5, 'open')`, nil); err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if err := e.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
}
