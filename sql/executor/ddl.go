package executor

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/lock"
	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/parser"
)

func (e *Executor) executeCreateTable(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.locks.AcquireExclusive(txnID, lock.SchemaResource(e.dbName))

	if _, err := e.db.CreateTable(stmt.Table, stmt.ColumnDefs); err != nil {
		return nil, err
	}

	return &Result{
		Kind:    ResultCreateTable,
		Message: fmt.Sprintf("Table created: %s", stmt.Table),
		Table:   stmt.Table,
	}, nil
}

func (e *Executor) executeCreateIndex(txnID int64, stmt *parser.Statement) (*Result, error) {
	e.tableExclusive(txnID, stmt.Table)

	table, err := e.db.Table(stmt.Table)
	if err != nil {
		return nil, err
	}

	column := stmt.Columns[0]
	if err := table.CreateIndex(column); err != nil {
		return nil, err
	}

	return &Result{
		Kind:    ResultCreateIndex,
		Message: fmt.Sprintf("Index created: %s on %s(%s)", stmt.IndexName, stmt.Table, column),
		Table:   stmt.Table,
	}, nil
}

func (e *Executor) executeVacuum(txnID int64, stmt *parser.Statement) (*Result, error) {
	tables, err := e.tablesForMaintenance(txnID, stmt.Table)
	if err != nil {
		return nil, err
	}

	var messages []string
	for _, t := range tables {
		messages = append(messages, t.Vacuum())
	}
	return &Result{Kind: ResultVacuum, Message: joinLines(messages), Table: stmt.Table}, nil
}

func (e *Executor) executeAnalyze(txnID int64, stmt *parser.Statement) (*Result, error) {
	tables, err := e.tablesForMaintenance(txnID, stmt.Table)
	if err != nil {
		return nil, err
	}

	var messages []string
	for _, t := range tables {
		messages = append(messages, t.Analyze())
	}
	return &Result{Kind: ResultAnalyze, Message: joinLines(messages), Table: stmt.Table}, nil
}

// tablesForMaintenance resolves VACUUM/ANALYZE's optional table argument:
// a named table, or every table in the database when omitted, per
// SPEC_FULL.md's VACUUM/ANALYZE semantics.
func (e *Executor) tablesForMaintenance(txnID int64, table string) ([]*schema.Table, error) {
	if table != "" {
		e.tableExclusive(txnID, table)
		t, err := e.db.Table(table)
		if err != nil {
			return nil, err
		}
		return []*schema.Table{t}, nil
	}

	names := e.db.TableNames()
	for _, name := range names {
		e.tableExclusive(txnID, name)
	}
	return e.db.Tables(), nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func (e *Executor) executeShow(txnID int64, stmt *parser.Statement) (*Result, error) {
	switch stmt.ShowKind {
	case parser.ShowTables:
		return e.showTables(), nil
	case parser.ShowDatabases:
		return &Result{Kind: ResultShow, Columns: []string{"database"}, Records: []*schema.Record{
			{ID: 1, Values: map[string]string{"database": e.dbName}},
		}}, nil
	case parser.ShowIndexes:
		return e.showIndexes(txnID, stmt.Table)
	case parser.ShowStats:
		return e.showStats(txnID)
	default:
		return nil, dberr.NewParse("unsupported SHOW kind")
	}
}

func (e *Executor) showTables() *Result {
	names := e.db.TableNames()
	records := make([]*schema.Record, len(names))
	for i, name := range names {
		records[i] = &schema.Record{ID: i + 1, Values: map[string]string{"table_name": name}}
	}
	return &Result{Kind: ResultShow, Columns: []string{"table_name"}, Records: records}
}

func (e *Executor) showIndexes(txnID int64, table string) (*Result, error) {
	var names []string
	if table != "" {
		names = []string{table}
	} else {
		names = e.db.TableNames()
	}

	var records []*schema.Record
	for _, name := range names {
		e.tableShared(txnID, name)
		t, err := e.db.Table(name)
		if err != nil {
			return nil, err
		}
		cols := t.IndexedColumns()
		sort.Strings(cols)
		for _, col := range cols {
			records = append(records, &schema.Record{
				ID: len(records) + 1,
				Values: map[string]string{
					"table_name":  name,
					"column_name": col,
				},
			})
		}
	}

	return &Result{Kind: ResultShow, Columns: []string{"table_name", "column_name"}, Records: records}, nil
}

// showStats reports a row per table, with record counts rendered via
// go-humanize as the original engine's SHOW STATS output did.
func (e *Executor) showStats(txnID int64) (*Result, error) {
	names := e.db.TableNames()
	records := make([]*schema.Record, 0, len(names))
	for i, name := range names {
		e.tableShared(txnID, name)
		t, err := e.db.Table(name)
		if err != nil {
			return nil, err
		}
		records = append(records, &schema.Record{
			ID: i + 1,
			Values: map[string]string{
				"table_name":   name,
				"record_count": humanize.Comma(int64(t.RecordCount())),
			},
		})
	}
	return &Result{Kind: ResultShow, Columns: []string{"table_name", "record_count"}, Records: records}, nil
}

func (e *Executor) executeExplain(txnID int64, stmt *parser.Statement) (*Result, error) {
	inner := stmt.Inner
	if inner.Table != "" {
		e.tableShared(txnID, inner.Table)
	}

	usesIndex := false
	if inner.Where != nil && inner.Where.Op == parser.OpEQ {
		if t, err := e.db.Table(inner.Table); err == nil {
			usesIndex = t.HasIndex(inner.Where.Column)
		}
	}

	filter := "none"
	if inner.Where != nil {
		filter = fmt.Sprintf("%s %s", inner.Where.Column, inner.Where.Op)
	}

	ordering := "none"
	if len(inner.OrderBy) > 0 {
		ordering = fmt.Sprintf("%d column(s)", len(inner.OrderBy))
	}

	rec := &schema.Record{ID: 1, Values: map[string]string{
		"operation":      statementKindName(inner.Kind),
		"table":          inner.Table,
		"filter":         filter,
		"uses_index":     fmt.Sprintf("%v", usesIndex),
		"ordering":       ordering,
		"estimated_cost": "1.0",
	}}

	return &Result{
		Kind:    ResultExplain,
		Columns: []string{"operation", "table", "filter", "uses_index", "ordering", "estimated_cost"},
		Records: []*schema.Record{rec},
	}, nil
}

func statementKindName(k parser.Kind) string {
	switch k {
	case parser.KindSelect:
		return "SELECT"
	case parser.KindJoin:
		return "JOIN"
	case parser.KindInsert:
		return "INSERT"
	case parser.KindUpdate:
		return "UPDATE"
	case parser.KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}
