package executor

import (
	"log/slog"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/lock"
	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/parser"
	"github.com/ghiloufibg/nova-sql/txn"
)

// Executor dispatches parsed statements against a Database, arranging a
// transaction and the lock the lock-acquisition matrix (spec.md §4.6)
// calls for around every statement.
type Executor struct {
	db     *schema.Database
	locks  *lock.Manager
	txns   *txn.Manager
	dbName string
	log    *slog.Logger
}

// New returns an Executor operating against db, named dbName for
// schema-level locking.
func New(db *schema.Database, locks *lock.Manager, txns *txn.Manager, dbName string, log *slog.Logger) *Executor {
	return &Executor{db: db, locks: locks, txns: txns, dbName: dbName, log: log}
}

// Execute runs stmt inside its own transaction: begin, dispatch, then
// commit on success or abort on error, per spec.md §4.6. Either path
// releases every lock the statement acquired (txn.Manager.Commit/Abort
// call lock.Manager.ReleaseAll).
func (e *Executor) Execute(stmt *parser.Statement) (*Result, error) {
	t := e.txns.Begin()

	result, err := e.dispatch(t.ID, stmt)
	if err != nil {
		e.txns.Abort(t.ID)
		return nil, err
	}

	if err := e.txns.Commit(t.ID); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) dispatch(txnID int64, stmt *parser.Statement) (*Result, error) {
	switch stmt.Kind {
	case parser.KindSelect:
		return e.executeSelect(txnID, stmt)
	case parser.KindJoin:
		return e.executeJoin(txnID, stmt)
	case parser.KindInsert:
		return e.executeInsert(txnID, stmt)
	case parser.KindUpdate:
		return e.executeUpdate(txnID, stmt)
	case parser.KindDelete:
		return e.executeDelete(txnID, stmt)
	case parser.KindCreateTable:
		return e.executeCreateTable(txnID, stmt)
	case parser.KindCreateIndex:
		return e.executeCreateIndex(txnID, stmt)
	case parser.KindShow:
		return e.executeShow(txnID, stmt)
	case parser.KindExplain:
		return e.executeExplain(txnID, stmt)
	case parser.KindVacuum:
		return e.executeVacuum(txnID, stmt)
	case parser.KindAnalyze:
		return e.executeAnalyze(txnID, stmt)
	default:
		return nil, dberr.NewParse("unrecognized statement")
	}
}

func (e *Executor) tableShared(txnID int64, table string) {
	e.locks.AcquireShared(txnID, lock.TableResource(table))
}

func (e *Executor) tableExclusive(txnID int64, table string) {
	e.locks.AcquireExclusive(txnID, lock.TableResource(table))
}

func (e *Executor) executeSelect(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.tableShared(txnID, stmt.Table)

	table, err := e.db.Table(stmt.Table)
	if err != nil {
		return nil, err
	}

	records, err := e.filteredRecords(table, stmt.Where)
	if err != nil {
		return nil, err
	}

	if len(stmt.Aggregates) > 0 {
		if len(stmt.OrderBy) > 0 || stmt.Limit != nil || stmt.Offset != nil {
			return nil, dberr.NewParse("aggregate functions cannot be combined with ORDER BY/LIMIT/OFFSET")
		}
		row := applyAggregates(records, stmt.Aggregates)
		return &Result{Kind: ResultSelect, Records: []*schema.Record{row}, Table: stmt.Table}, nil
	}

	columns := stmt.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	projected := projectRecords(records, columns)

	sortRecords(projected, stmt.OrderBy)
	projected = applyOffsetLimit(projected, stmt.Offset, stmt.Limit)

	return &Result{Kind: ResultSelect, Records: projected, Columns: columns, Table: stmt.Table}, nil
}

// filteredRecords returns every record in table matching where. A single
// equality predicate on an indexed column uses the B-tree point lookup
// (Table.SelectRecords); every other predicate form, and a nil where,
// runs as a full-scan post-filter, per spec.md §4.6.
func (e *Executor) filteredRecords(table *schema.Table, where *parser.Where) ([]*schema.Record, error) {
	if where == nil {
		return table.SelectRecords([]string{"*"}, nil, nil), nil
	}
	if where.Op == parser.OpEQ && table.HasIndex(where.Column) {
		return table.SelectRecords([]string{"*"}, &where.Column, &where.Value), nil
	}

	var matches []*schema.Record
	for _, r := range table.AllRecords() {
		ok, err := matchWhere(r, where)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// targetRecordIDs computes the ids of the records matching where, using
// the same indexed-lookup-or-scan strategy as a SELECT, per spec.md
// §4.4's UPDATE/DELETE target-set rule.
func (e *Executor) targetRecordIDs(table *schema.Table, where *parser.Where) ([]int, error) {
	records, err := e.filteredRecords(table, where)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

func applyOffsetLimit(records []*schema.Record, offset, limit *int) []*schema.Record {
	if offset != nil && *offset > 0 {
		if *offset >= len(records) {
			return nil
		}
		records = records[*offset:]
	}
	if limit != nil && *limit < len(records) {
		records = records[:*limit]
	}
	return records
}

func projectRecords(records []*schema.Record, columns []string) []*schema.Record {
	if len(columns) == 1 && columns[0] == "*" {
		out := make([]*schema.Record, len(records))
		for i, r := range records {
			out[i] = r.Clone()
		}
		return out
	}
	out := make([]*schema.Record, len(records))
	for i, r := range records {
		out[i] = r.Project(columns)
	}
	return out
}
