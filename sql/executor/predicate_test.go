package executor

import (
	"testing"

	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/parser"
)

func TestMatchWhereIsNullAndIsNotNull(t *testing.T) {
	present := rec(1, map[string]string{"email": "a@example.com"})
	absent := rec(2, map[string]string{})

	ok, err := matchWhere(absent, &parser.Where{Column: "email", Op: parser.OpIsNull})
	if err != nil || !ok {
		t.Errorf("expected IS NULL to match an absent column, got %v, %v", ok, err)
	}
	ok, _ = matchWhere(present, &parser.Where{Column: "email", Op: parser.OpIsNull})
	if ok {
		t.Error("expected IS NULL to not match a present column")
	}
	ok, _ = matchWhere(present, &parser.Where{Column: "email", Op: parser.OpIsNotNull})
	if !ok {
		t.Error("expected IS NOT NULL to match a present column")
	}
}

func TestMatchWhereAbsentColumnFailsNonNullOperators(t *testing.T) {
	r := rec(1, map[string]string{})
	ok, err := matchWhere(r, &parser.Where{Column: "age", Op: parser.OpEQ, Value: "18"})
	if err != nil || ok {
		t.Errorf("expected an absent column to never match a non-null operator, got %v, %v", ok, err)
	}
}

func TestMatchWhereComparisons(t *testing.T) {
	r := rec(1, map[string]string{"age": "20"})
	cases := []struct {
		op   parser.CompareOp
		val  string
		want bool
	}{
		{parser.OpEQ, "20", true},
		{parser.OpEQ, "21", false},
		{parser.OpNE, "21", true},
		{parser.OpGT, "19", true},
		{parser.OpLT, "21", true},
		{parser.OpGE, "20", true},
		{parser.OpLE, "20", true},
	}
	for _, c := range cases {
		ok, err := matchWhere(r, &parser.Where{Column: "age", Op: c.op, Value: c.val})
		if err != nil {
			t.Fatalf("matchWhere failed: %v", err)
		}
		if ok != c.want {
			t.Errorf("op %v value %q: expected %v, got %v", c.op, c.val, c.want, ok)
		}
	}
}

func TestMatchWhereBetweenAndIn(t *testing.T) {
	r := rec(1, map[string]string{"age": "20"})

	ok, _ := matchWhere(r, &parser.Where{Column: "age", Op: parser.OpBetween, Low: "10", High: "30"})
	if !ok {
		t.Error("expected 20 to be BETWEEN 10 AND 30")
	}
	ok, _ = matchWhere(r, &parser.Where{Column: "age", Op: parser.OpNotBetween, Low: "10", High: "30"})
	if ok {
		t.Error("expected NOT BETWEEN to fail when the value is within range")
	}
	ok, _ = matchWhere(r, &parser.Where{Column: "age", Op: parser.OpIn, Values: []string{"19", "20", "21"}})
	if !ok {
		t.Error("expected 20 IN (19, 20, 21) to match")
	}
	ok, _ = matchWhere(r, &parser.Where{Column: "age", Op: parser.OpNotIn, Values: []string{"1", "2"}})
	if !ok {
		t.Error("expected 20 NOT IN (1, 2) to match")
	}
}

func TestMatchLike(t *testing.T) {
	cases := []struct {
		value, pattern string
		want           bool
	}{
		{"alice", "al%", true},
		{"alice", "%ice", true},
		{"alice", "a_ice", true},
		{"alice", "bob%", false},
		{"a.b", "a.b", true},
		{"axb", "a.b", false}, // '.' must be a literal dot, not a regex wildcard
	}
	for _, c := range cases {
		if got := matchLike(c.value, c.pattern); got != c.want {
			t.Errorf("matchLike(%q, %q) = %v, want %v", c.value, c.pattern, got, c.want)
		}
	}
}

func TestSortRecordsNullsFirst(t *testing.T) {
	records := []*schema.Record{
		rec(1, map[string]string{"name": "bob"}),
		rec(2, map[string]string{}),
		rec(3, map[string]string{"name": "alice"}),
	}
	sortRecords(records, []parser.OrderTerm{{Column: "name", Ascending: true}})

	if records[0].ID != 2 {
		t.Fatalf("expected the null-valued record first, got id %d", records[0].ID)
	}
	if records[1].Values["name"] != "alice" || records[2].Values["name"] != "bob" {
		t.Errorf("unexpected order: %+v", records)
	}
}

func TestSortRecordsDescending(t *testing.T) {
	records := []*schema.Record{
		rec(1, map[string]string{"n": "1"}),
		rec(2, map[string]string{"n": "3"}),
		rec(3, map[string]string{"n": "2"}),
	}
	sortRecords(records, []parser.OrderTerm{{Column: "n", Ascending: false}})

	if records[0].Values["n"] != "3" || records[1].Values["n"] != "2" || records[2].Values["n"] != "1" {
		t.Errorf("unexpected descending order: %+v", records)
	}
}

func TestSortRecordsMultiTermTieBreak(t *testing.T) {
	records := []*schema.Record{
		rec(1, map[string]string{"a": "1", "b": "2"}),
		rec(2, map[string]string{"a": "1", "b": "1"}),
	}
	sortRecords(records, []parser.OrderTerm{
		{Column: "a", Ascending: true},
		{Column: "b", Ascending: true},
	})

	if records[0].ID != 2 || records[1].ID != 1 {
		t.Errorf("expected the second term to break the tie on 'a', got %+v", records)
	}
}

func TestApplyAggregatesCountSumAvgMinMax(t *testing.T) {
	records := []*schema.Record{
		rec(1, map[string]string{"price": "10"}),
		rec(2, map[string]string{"price": "20"}),
		rec(3, map[string]string{}),
	}

	row := applyAggregates(records, []parser.Aggregate{
		{Function: "COUNT", Column: "*"},
		{Function: "SUM", Column: "price"},
		{Function: "AVG", Column: "price"},
		{Function: "MIN", Column: "price"},
		{Function: "MAX", Column: "price", Alias: "top_price"},
	})

	if row.Values["count(*)"] != "3" {
		t.Errorf("COUNT(*): expected 3, got %q", row.Values["count(*)"])
	}
	if row.Values["sum(price)"] != "30" {
		t.Errorf("SUM(price): expected 30, got %q", row.Values["sum(price)"])
	}
	if row.Values["avg(price)"] != "15" {
		t.Errorf("AVG(price): expected 15, got %q", row.Values["avg(price)"])
	}
	if row.Values["min(price)"] != "10" {
		t.Errorf("MIN(price): expected 10, got %q", row.Values["min(price)"])
	}
	if row.Values["top_price"] != "20" {
		t.Errorf("MAX(price) AS top_price: expected 20, got %q", row.Values["top_price"])
	}
}
