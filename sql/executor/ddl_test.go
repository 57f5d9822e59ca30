package executor

import (
	"strings"
	"testing"
)

func TestExecuteCreateTableAndCreateIndex(t *testing.T) {
	e, _ := newTestExecutor(t)

	created := mustExec(t, e, "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR)")
	if created.Kind != ResultCreateTable || !strings.Contains(created.Message, "users") {
		t.Fatalf("unexpected CREATE TABLE result: %+v", created)
	}

	idx := mustExec(t, e, "CREATE INDEX idx_users_name ON users (name)")
	if idx.Kind != ResultCreateIndex || !strings.Contains(idx.Message, "idx_users_name") {
		t.Fatalf("unexpected CREATE INDEX result: %+v", idx)
	}
}

func TestExecuteVacuumSingleTableAndAll(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (id INTEGER PRIMARY KEY)")
	mustExec(t, e, "CREATE TABLE b (id INTEGER PRIMARY KEY)")

	single := mustExec(t, e, "VACUUM a")
	if !strings.Contains(single.Message, "a") || strings.Contains(single.Message, "VACUUM completed for table: b") {
		t.Errorf("unexpected single-table VACUUM message: %q", single.Message)
	}

	all := mustExec(t, e, "VACUUM")
	if !strings.Contains(all.Message, "a") || !strings.Contains(all.Message, "b") {
		t.Errorf("expected VACUUM with no table to cover every table, got %q", all.Message)
	}
}

func TestExecuteAnalyzeReportsRecordCount(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (id INTEGER PRIMARY KEY)")
	mustExec(t, e, "INSERT INTO a (id) VALUES (1)")

	result := mustExec(t, e, "ANALYZE a")
	if !strings.Contains(result.Message, "1 records") {
		t.Errorf("expected ANALYZE to report 1 record, got %q", result.Message)
	}
}

func TestExecuteShowTables(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (id INTEGER PRIMARY KEY)")
	mustExec(t, e, "CREATE TABLE b (id INTEGER PRIMARY KEY)")

	result := mustExec(t, e, "SHOW TABLES")
	if result.Kind != ResultShow || len(result.Records) != 2 {
		t.Fatalf("expected 2 tables, got %+v", result)
	}
}

func TestExecuteShowDatabases(t *testing.T) {
	e, _ := newTestExecutor(t)
	result := mustExec(t, e, "SHOW DATABASES")
	if len(result.Records) != 1 || result.Records[0].Values["database"] != "testdb" {
		t.Fatalf("unexpected SHOW DATABASES result: %+v", result)
	}
}

func TestExecuteShowIndexes(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (id INTEGER PRIMARY KEY, name VARCHAR)")
	mustExec(t, e, "CREATE INDEX idx_a_name ON a (name)")

	result := mustExec(t, e, "SHOW INDEXES FROM a")
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 indexed columns (id, name), got %d: %+v", len(result.Records), result.Records)
	}
}

func TestExecuteShowStats(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (id INTEGER PRIMARY KEY)")
	mustExec(t, e, "INSERT INTO a (id) VALUES (1)")

	result := mustExec(t, e, "SHOW STATS")
	if len(result.Records) != 1 || result.Records[0].Values["record_count"] != "1" {
		t.Fatalf("unexpected SHOW STATS result: %+v", result)
	}
}

func TestExecuteExplainReportsIndexUsage(t *testing.T) {
	e, _ := newTestExecutor(t)
	mustExec(t, e, "CREATE TABLE a (id INTEGER PRIMARY KEY)")

	result := mustExec(t, e, "EXPLAIN SELECT * FROM a WHERE id = 1")
	if result.Kind != ResultExplain || len(result.Records) != 1 {
		t.Fatalf("unexpected EXPLAIN result: %+v", result)
	}
	if result.Records[0].Values["uses_index"] != "true" {
		t.Errorf("expected EXPLAIN to report index usage on the primary key, got %+v", result.Records[0].Values)
	}
	if result.Records[0].Values["operation"] != "SELECT" {
		t.Errorf("expected operation SELECT, got %q", result.Records[0].Values["operation"])
	}
}
