package executor

import (
	"log/slog"
	"strconv"
	"testing"

	"github.com/ghiloufibg/nova-sql/lock"
	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/parser"
	"github.com/ghiloufibg/nova-sql/txn"
)

func newTestExecutor(t *testing.T) (*Executor, *schema.Database) {
	t.Helper()
	db := schema.NewDatabase()
	locks := lock.New(slog.Default())
	txns := txn.NewManager(locks, slog.Default())
	return New(db, locks, txns, "testdb", slog.Default()), db
}

func mustExec(t *testing.T, e *Executor, sql string) *Result {
	t.Helper()
	stmt, err := parser.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", sql, err)
	}
	result, err := e.Execute(stmt)
	if err != nil {
		t.Fatalf("Execute(%q) failed: %v", sql, err)
	}
	return result
}

func TestExecuteCreateTableThenInsertAndSelect(t *testing.T) {
	e, _ := newTestExecutor(t)

	mustExec(t, e, "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR)")
	mustExec(t, e, "INSERT INTO users (id, name) VALUES (1, 'alice')")
	mustExec(t, e, "INSERT INTO users (id, name) VALUES (2, 'bob')")

	result := mustExec(t, e, "SELECT * FROM users WHERE id = 2")
	if result.Kind != ResultSelect || len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %+v", result)
	}
	if result.Records[0].Values["name"] != "bob" {
		t.Errorf("expected bob, got %+v", result.Records[0].Values)
	}
}

func TestExecuteSelectUsesIndexForEqualityOnIndexedColumn(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR)")
	mustExec(t, e, "INSERT INTO users (id, name) VALUES (1, 'alice')")

	result := mustExec(t, e, "SELECT * FROM users WHERE id = 1")
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record via indexed lookup, got %d", len(result.Records))
	}
}

func TestExecuteUpdateAndDelete(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR)")
	mustExec(t, e, "INSERT INTO users (id, name) VALUES (1, 'alice')")
	mustExec(t, e, "INSERT INTO users (id, name) VALUES (2, 'bob')")

	upd := mustExec(t, e, "UPDATE users SET name = 'carol' WHERE id = 1")
	if upd.Kind != ResultUpdate || upd.AffectedRows != 1 {
		t.Fatalf("expected 1 row updated, got %+v", upd)
	}

	sel := mustExec(t, e, "SELECT * FROM users WHERE id = 1")
	if sel.Records[0].Values["name"] != "carol" {
		t.Errorf("expected name to be carol after update, got %+v", sel.Records[0].Values)
	}

	del := mustExec(t, e, "DELETE FROM users WHERE id = 2")
	if del.Kind != ResultDelete || del.AffectedRows != 1 {
		t.Fatalf("expected 1 row deleted, got %+v", del)
	}

	remaining := mustExec(t, e, "SELECT * FROM users")
	if len(remaining.Records) != 1 {
		t.Errorf("expected 1 remaining record, got %d", len(remaining.Records))
	}
}

func TestExecuteInsertWithBareNullThenSelectIsNull(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE employees (id INTEGER PRIMARY KEY, mgr VARCHAR)")
	mustExec(t, e, "INSERT INTO employees (id, mgr) VALUES (1, NULL)")
	mustExec(t, e, "INSERT INTO employees (id, mgr) VALUES (2, 5)")

	result := mustExec(t, e, "SELECT * FROM employees WHERE mgr IS NULL")
	if len(result.Records) != 1 || result.Records[0].Values["id"] != "1" {
		t.Fatalf("expected exactly the row with a null mgr, got %+v", result.Records)
	}
}

func TestExecuteUpdateSetToNullRemovesTheColumn(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE employees (id INTEGER PRIMARY KEY, mgr VARCHAR)")
	mustExec(t, e, "INSERT INTO employees (id, mgr) VALUES (1, 5)")

	mustExec(t, e, "UPDATE employees SET mgr = NULL WHERE id = 1")

	result := mustExec(t, e, "SELECT * FROM employees WHERE mgr IS NULL")
	if len(result.Records) != 1 {
		t.Fatalf("expected the updated row to read back as null, got %+v", result.Records)
	}
}

func TestExecuteAggregateCombinedWithOrderByFails(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE t (id INTEGER PRIMARY KEY, price VARCHAR)")

	stmt, err := parser.Parse("SELECT SUM(price) FROM t ORDER BY price")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := e.Execute(stmt); err == nil {
		t.Fatal("expected an aggregate combined with ORDER BY to be rejected")
	}
}

func TestExecuteSelectOnUnknownTableFails(t *testing.T) {
	e, _ := newTestExecutor(t)
	stmt, err := parser.Parse("SELECT * FROM ghosts")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := e.Execute(stmt); err == nil {
		t.Fatal("expected an error selecting from an unknown table")
	}
}

func TestExecuteFailureAbortsWithoutLeakingLocks(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE users (id INTEGER PRIMARY KEY)")

	stmt, _ := parser.Parse("INSERT INTO users (id) VALUES (1)")
	mustExec(t, e, stmt.Text)

	// A duplicate primary key fails the insert; the aborted transaction's
	// exclusive table lock must still be released afterward.
	dup, _ := parser.Parse("INSERT INTO users (id) VALUES (1)")
	if _, err := e.Execute(dup); err == nil {
		t.Fatal("expected a duplicate primary key to fail")
	}

	mustExec(t, e, "INSERT INTO users (id) VALUES (2)")
}

func TestExecuteSelectWithLimitAndOffset(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	for i := 1; i <= 5; i++ {
		mustExec(t, e, "INSERT INTO t (id) VALUES ("+strconv.Itoa(i)+")")
	}

	result := mustExec(t, e, "SELECT * FROM t ORDER BY id LIMIT 2 OFFSET 1")
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].Values["id"] != "2" || result.Records[1].Values["id"] != "3" {
		t.Errorf("unexpected page: %+v", result.Records)
	}
}
