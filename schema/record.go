package schema

// Record is one row: a table-local, dense, monotonically assigned id plus
// a mapping from column name to string value. Values is a Go map, so a
// Record does not keep any column order of its own. A column absent
// from Values is null, per spec.md §3 — the literal text "NULL" never
// appears as a stored value; it is normalized away at the parser/formatter
// boundary (Design Note 9).
type Record struct {
	ID     int
	Values map[string]string
}

// NullLiteral is what the parser substitutes for a bare, unquoted NULL
// token in an INSERT value or an UPDATE SET assignment. InsertRecord's
// caller strips it to an omitted key; applyUpdate deletes the column
// instead of storing it, so "NULL" (unlike 'NULL') never lands in Values.
const NullLiteral = "\x00NULL\x00"

// Get returns the record's value for column, and whether it is present
// (non-null).
func (r *Record) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return &Record{ID: r.ID, Values: values}
}

// Project returns a new Record holding only the requested columns; the
// requested column order is not kept in the Record (executor.Result.Columns
// carries it). Columns absent from the record are
// silently omitted, per spec.md §4.4.
func (r *Record) Project(columns []string) *Record {
	values := make(map[string]string, len(columns))
	for _, col := range columns {
		if v, ok := r.Values[col]; ok {
			values[col] = v
		}
	}
	return &Record{ID: r.ID, Values: values}
}
