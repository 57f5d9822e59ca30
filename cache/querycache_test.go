package cache

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/executor"
)

func selectResult() *executor.Result {
	return &executor.Result{
		Kind:    executor.ResultSelect,
		Columns: []string{"id"},
		Records: []*schema.Record{{ID: 1, Values: map[string]string{"id": "1"}}},
	}
}

func TestPutOnlyStoresSelectResults(t *testing.T) {
	c, err := New(10, time.Minute, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c.Put("INSERT INTO users (id) VALUES (1)", &executor.Result{Kind: executor.ResultInsert})
	if _, ok := c.Get("INSERT INTO users (id) VALUES (1)"); ok {
		t.Error("expected a non-Select result to not be cached")
	}

	sql := "SELECT * FROM users"
	c.Put(sql, selectResult())
	if _, ok := c.Get(sql); !ok {
		t.Error("expected a Select result to be cached")
	}
}

func TestGetMissForUncachedSQL(t *testing.T) {
	c, _ := New(10, time.Minute, slog.Default())
	if _, ok := c.Get("SELECT * FROM users"); ok {
		t.Error("expected a miss for SQL that was never cached")
	}
}

func TestInvalidateTableDropsMatchingEntries(t *testing.T) {
	c, _ := New(10, time.Minute, slog.Default())

	c.Put("SELECT * FROM users", selectResult())
	c.Put("SELECT * FROM orders", selectResult())

	c.InvalidateTable("users")

	if _, ok := c.Get("SELECT * FROM users"); ok {
		t.Error("expected the users cache entry to be invalidated")
	}
	if _, ok := c.Get("SELECT * FROM orders"); !ok {
		t.Error("expected the orders cache entry to survive invalidating users")
	}
}

func TestInvalidateTableCoversJoinReferences(t *testing.T) {
	c, _ := New(10, time.Minute, slog.Default())
	sql := "SELECT * FROM orders JOIN users ON orders.user_id = users.id"
	c.Put(sql, selectResult())

	c.InvalidateTable("users")

	if _, ok := c.Get(sql); ok {
		t.Error("expected a JOIN entry to be invalidated when either referenced table changes")
	}
}

func TestInvalidateTableIsCaseInsensitive(t *testing.T) {
	c, _ := New(10, time.Minute, slog.Default())
	sql := "SELECT * FROM Users"
	c.Put(sql, selectResult())

	c.InvalidateTable("USERS")

	if _, ok := c.Get(sql); ok {
		t.Error("expected invalidation to match regardless of case")
	}
}

func TestClearEmptiesTheCache(t *testing.T) {
	c, _ := New(10, time.Minute, slog.Default())
	c.Put("SELECT * FROM users", selectResult())
	c.Clear()

	if _, ok := c.Get("SELECT * FROM users"); ok {
		t.Error("expected Clear to drop every cached entry")
	}
}

func TestReferencedTablesExtractsFromAndJoin(t *testing.T) {
	got := referencedTables("SELECT * FROM orders JOIN users ON orders.user_id = users.id")
	want := map[string]bool{"ORDERS": true, "USERS": true}
	if len(got) != 2 {
		t.Fatalf("expected 2 referenced tables, got %v", got)
	}
	for _, tbl := range got {
		if !want[tbl] {
			t.Errorf("unexpected referenced table: %q", tbl)
		}
	}
}
