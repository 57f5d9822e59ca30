package executor

import "github.com/ghiloufibg/nova-sql/sql/parser"

func (e *Executor) executeInsert(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.tableExclusive(txnID, stmt.Table)

	table, err := e.db.Table(stmt.Table)
	if err != nil {
		return nil, err
	}

	if _, err := table.InsertRecord(stmt.InsertValues); err != nil {
		return nil, err
	}

	return &Result{Kind: ResultInsert, AffectedRows: 1, Table: stmt.Table}, nil
}

func (e *Executor) executeUpdate(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.tableExclusive(txnID, stmt.Table)

	table, err := e.db.Table(stmt.Table)
	if err != nil {
		return nil, err
	}

	ids, err := e.targetRecordIDs(table, stmt.Where)
	if err != nil {
		return nil, err
	}

	changed, err := table.UpdateByIDs(ids, stmt.Updates)
	if err != nil {
		return nil, err
	}

	return &Result{Kind: ResultUpdate, AffectedRows: changed, Table: stmt.Table}, nil
}

func (e *Executor) executeDelete(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.tableExclusive(txnID, stmt.Table)

	table, err := e.db.Table(stmt.Table)
	if err != nil {
		return nil, err
	}

	ids, err := e.targetRecordIDs(table, stmt.Where)
	if err != nil {
		return nil, err
	}

	deleted := table.DeleteByIDs(ids)
	return &Result{Kind: ResultDelete, AffectedRows: deleted, Table: stmt.Table}, nil
}
