// Package parser implements the regex-driven SQL front-end of spec.md
// §4.5: it turns statement text into a tagged Statement variant. It is
// grounded on the original engine's SQLParser — same grammar, same
// pattern-matching order for WHERE clauses — reimplemented as an
// explicit sum type per Design Note 9 rather than a hierarchy of
// statement classes.
package parser

import "github.com/ghiloufibg/nova-sql/schema"

// Kind tags which variant of Statement is populated.
type Kind int

const (
	KindSelect Kind = iota
	KindJoin
	KindInsert
	KindUpdate
	KindDelete
	KindCreateTable
	KindCreateIndex
	KindShow
	KindExplain
	KindVacuum
	KindAnalyze
)

// JoinType enumerates the join kinds recognized by the grammar.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// ShowKind enumerates the SHOW variants recognized by the grammar.
type ShowKind int

const (
	ShowTables ShowKind = iota
	ShowIndexes
	ShowStats
	ShowDatabases
)

// CompareOp is a WHERE-clause comparison or pattern operator.
type CompareOp string

const (
	OpIsNull    CompareOp = "IS NULL"
	OpIsNotNull CompareOp = "IS NOT NULL"
	OpLike      CompareOp = "LIKE"
	OpNotLike   CompareOp = "NOT LIKE"
	OpBetween   CompareOp = "BETWEEN"
	OpNotBetween CompareOp = "NOT BETWEEN"
	OpIn        CompareOp = "IN"
	OpNotIn     CompareOp = "NOT IN"
	OpGE        CompareOp = ">="
	OpLE        CompareOp = "<="
	OpNE        CompareOp = "!="
	OpNE2       CompareOp = "<>"
	OpGT        CompareOp = ">"
	OpLT        CompareOp = "<"
	OpEQ        CompareOp = "="
)

// Where is a single WHERE-clause predicate, in one of the forms listed
// in spec.md §4.5.
type Where struct {
	Column string
	Op     CompareOp
	Value  string   // single-value operators (=, LIKE, ...)
	Low    string   // BETWEEN / NOT BETWEEN
	High   string   // BETWEEN / NOT BETWEEN
	Values []string // IN / NOT IN
}

// OrderTerm is one column of an ORDER BY clause.
type OrderTerm struct {
	Column    string
	Ascending bool
}

// Aggregate describes a single aggregate-function column in a SELECT's
// column list, e.g. COUNT(*) or AVG(price). Supplements spec.md's base
// grammar per the original engine's AggregateFunction.
type Aggregate struct {
	Function string // COUNT, SUM, AVG, MIN, MAX
	Column   string
	Alias    string
}

// Statement is a tagged variant over every recognized SQL form, per
// spec.md §4.5 and Design Note 9 (explicit tag, no base class).
type Statement struct {
	Kind Kind

	// Select / Join
	Table      string
	Columns    []string
	Aggregates []Aggregate
	Where      *Where
	OrderBy    []OrderTerm
	Limit      *int
	Offset     *int

	// Join-only
	LeftTable   string
	RightTable  string
	LeftColumn  string
	RightColumn string
	JoinType    JoinType

	// Insert
	InsertValues map[string]string

	// Update
	Updates map[string]string

	// CreateTable
	ColumnDefs []schema.ColumnDef

	// CreateIndex
	IndexName string

	// Show
	ShowKind ShowKind

	// Explain
	Inner *Statement

	// Text is the statement text as given to Parse, with surrounding
	// whitespace trimmed.
	Text string
}
