// Package executor implements the QueryExecutor of spec.md §4.6: it
// dispatches on a parsed Statement, arranges locks through lock.Manager
// and txn.Manager, and invokes schema.Table/schema.Database operations.
package executor

import "github.com/ghiloufibg/nova-sql/schema"

// ResultKind tags a QueryResult's shape, per spec.md §6.
type ResultKind int

const (
	ResultSelect ResultKind = iota
	ResultInsert
	ResultUpdate
	ResultDelete
	ResultCreateTable
	ResultDropTable
	ResultCreateIndex
	ResultShow
	ResultExplain
	ResultVacuum
	ResultAnalyze
)

// Result is the tagged QueryResult variant returned by Execute.
type Result struct {
	Kind         ResultKind
	Records      []*schema.Record
	Columns      []string
	AffectedRows int
	Message      string
	Table        string // table this result concerns, for cache invalidation
}
