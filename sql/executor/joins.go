package executor

import (
	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/parser"
)

// executeJoin evaluates a two-table join, per spec.md §4.5's Join
// variant. Combined rows carry every source column qualified as
// "<table>.<column>" to avoid collisions between same-named columns on
// either side.
func (e *Executor) executeJoin(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.tableShared(txnID, stmt.LeftTable)
	if stmt.RightTable != stmt.LeftTable {
		e.tableShared(txnID, stmt.RightTable)
	}

	left, err := e.db.Table(stmt.LeftTable)
	if err != nil {
		return nil, err
	}
	right, err := e.db.Table(stmt.RightTable)
	if err != nil {
		return nil, err
	}

	leftRecords := left.AllRecords()
	rightRecords := right.AllRecords()

	combined := joinRecords(stmt.LeftTable, leftRecords, stmt.LeftColumn, stmt.RightTable, rightRecords, stmt.RightColumn, stmt.JoinType)

	if stmt.Where != nil {
		filtered := make([]*schema.Record, 0, len(combined))
		for _, rec := range combined {
			ok, err := matchWhere(rec, stmt.Where)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, rec)
			}
		}
		combined = filtered
	}

	columns := stmt.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	projected := projectRecords(combined, columns)

	return &Result{Kind: ResultSelect, Records: projected, Columns: columns}, nil
}

func qualify(table, column string) string { return table + "." + column }

func mergeQualified(table string, r *schema.Record) map[string]string {
	out := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		out[qualify(table, k)] = v
	}
	return out
}

func joinRecords(leftTable string, leftRecords []*schema.Record, leftColumn string, rightTable string, rightRecords []*schema.Record, rightColumn string, joinType parser.JoinType) []*schema.Record {
	var out []*schema.Record
	matchedRight := make(map[int]bool, len(rightRecords))
	id := 0

	for _, lr := range leftRecords {
		lv, lok := lr.Get(leftColumn)
		matchedLeft := false

		for ri, rr := range rightRecords {
			rv, rok := rr.Get(rightColumn)
			if !lok || !rok || lv != rv {
				continue
			}
			matchedLeft = true
			matchedRight[ri] = true

			id++
			out = append(out, combineRecord(id, leftTable, lr, rightTable, rr))
		}

		if !matchedLeft && (joinType == parser.JoinLeft || joinType == parser.JoinFull) {
			id++
			out = append(out, combineRecord(id, leftTable, lr, rightTable, nil))
		}
	}

	if joinType == parser.JoinRight || joinType == parser.JoinFull {
		for ri, rr := range rightRecords {
			if matchedRight[ri] {
				continue
			}
			id++
			out = append(out, combineRecord(id, leftTable, nil, rightTable, rr))
		}
	}

	return out
}

func combineRecord(id int, leftTable string, left *schema.Record, rightTable string, right *schema.Record) *schema.Record {
	values := make(map[string]string)
	if left != nil {
		for k, v := range mergeQualified(leftTable, left) {
			values[k] = v
		}
	}
	if right != nil {
		for k, v := range mergeQualified(rightTable, right) {
			values[k] = v
		}
	}
	return &schema.Record{ID: id, Values: values}
}
