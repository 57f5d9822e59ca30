// Package schema implements the in-memory table model of spec.md §3–§4.4:
// schema, record vector, primary-key constraints, and secondary indexes.
package schema

import (
	"fmt"
	"sync"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/index/btree"
)

// Table holds a name, an ordered list of columns, an in-memory vector of
// Records, a next-record-id counter, and a map of indexed column name ->
// B-tree. A primary-key column is automatically indexed on construction.
type Table struct {
	mu sync.RWMutex

	name       string
	columns    []ColumnDef
	columnIdx  map[string]int
	records    []*Record
	nextID     int
	indexes    map[string]*btree.BTree
}

// New constructs a Table from its name and column definitions, indexing
// the primary-key column (if any) immediately.
func New(name string, columns []ColumnDef) (*Table, error) {
	for i := range columns {
		if err := columns[i].Validate(); err != nil {
			return nil, err
		}
	}

	t := &Table{
		name:      name,
		columns:   columns,
		columnIdx: make(map[string]int, len(columns)),
		indexes:   make(map[string]*btree.BTree),
		nextID:    1,
	}
	for i, c := range columns {
		t.columnIdx[c.Name] = i
	}
	for _, c := range columns {
		if c.PrimaryKey {
			t.indexes[c.Name] = btree.New(btree.DefaultOrder)
		}
	}
	return t, nil
}

func (t *Table) Name() string            { return t.name }
func (t *Table) Columns() []ColumnDef     { return append([]ColumnDef(nil), t.columns...) }
func (t *Table) RecordCount() int         { t.mu.RLock(); defer t.mu.RUnlock(); return len(t.records) }
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columnIdx[name]
	return ok
}

// HasIndex reports whether column is currently indexed.
func (t *Table) HasIndex(column string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.indexes[column]
	return ok
}

// IndexedColumns returns the set of currently indexed column names.
func (t *Table) IndexedColumns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cols := make([]string, 0, len(t.indexes))
	for c := range t.indexes {
		cols = append(cols, c)
	}
	return cols
}

func (t *Table) column(name string) (*ColumnDef, bool) {
	i, ok := t.columnIdx[name]
	if !ok {
		return nil, false
	}
	return &t.columns[i], true
}

// InsertRecord validates and appends a new Record, per spec.md §4.4:
// every primary-key column must be present, and no unique-constrained
// column may collide with an existing value.
func (t *Table) InsertRecord(values map[string]string) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.validateInsert(values); err != nil {
		return nil, err
	}

	rec := &Record{ID: t.nextID, Values: cloneValues(values)}
	t.nextID++
	t.records = append(t.records, rec)

	for col, idx := range t.indexes {
		if v, ok := rec.Values[col]; ok {
			idx.Insert(v, rec.ID)
		}
	}

	return rec, nil
}

func cloneValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func (t *Table) validateInsert(values map[string]string) error {
	for _, c := range t.columns {
		if c.PrimaryKey {
			if _, ok := values[c.Name]; !ok {
				return dberr.NewConstraint("primary key column '%s' is required", c.Name)
			}
		}
		if c.NotNull {
			if _, ok := values[c.Name]; !ok {
				return dberr.NewConstraint("column '%s' cannot be null", c.Name)
			}
		}
	}

	for _, c := range t.columns {
		if !c.Unique {
			continue
		}
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		if idx, ok := t.indexes[c.Name]; ok {
			if _, found := idx.Search(v); found {
				return dberr.NewConstraint("Duplicate %s value: %s", uniqueLabel(c), v)
			}
			continue
		}
		if t.scanHasValue(c.Name, v, -1) {
			return dberr.NewConstraint("Duplicate %s value: %s", uniqueLabel(c), v)
		}
	}
	return nil
}

func uniqueLabel(c ColumnDef) string {
	if c.PrimaryKey {
		return "primary key"
	}
	return "unique"
}

func (t *Table) scanHasValue(column, value string, excludeID int) bool {
	for _, r := range t.records {
		if r.ID == excludeID {
			continue
		}
		if v, ok := r.Values[column]; ok && v == value {
			return true
		}
	}
	return false
}

// findByID returns the record with the given id, or nil. Callers must
// hold t.mu.
func (t *Table) findByID(id int) *Record {
	for _, r := range t.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// SelectRecords returns the projected records matching an optional
// equality filter on whereColumn/whereValue, per spec.md §4.4. When
// whereColumn is indexed, the lookup uses the B-tree; otherwise it falls
// back to a full scan. A nil whereColumn returns every record.
func (t *Table) SelectRecords(columns []string, whereColumn *string, whereValue *string) []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	matches := t.matchEquality(whereColumn, whereValue)
	return projectAll(matches, columns)
}

// matchEquality returns the records matching an optional equality filter.
// Callers must hold t.mu (read or write).
func (t *Table) matchEquality(whereColumn *string, whereValue *string) []*Record {
	if whereColumn == nil {
		return append([]*Record(nil), t.records...)
	}

	if idx, ok := t.indexes[*whereColumn]; ok {
		id, found := idx.Search(*whereValue)
		if !found {
			return nil
		}
		if r := t.findByID(id); r != nil {
			return []*Record{r}
		}
		return nil
	}

	var matches []*Record
	for _, r := range t.records {
		if v, ok := r.Values[*whereColumn]; ok && v == *whereValue {
			matches = append(matches, r)
		}
	}
	return matches
}

// AllRecords returns every record in the table, unfiltered and
// unprojected — used by the executor's post-filter path for WHERE forms
// other than a single indexed equality (spec.md §4.6).
func (t *Table) AllRecords() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Record(nil), t.records...)
}

func projectAll(records []*Record, columns []string) []*Record {
	if len(columns) == 1 && columns[0] == "*" {
		out := make([]*Record, len(records))
		for i, r := range records {
			out[i] = r.Clone()
		}
		return out
	}
	out := make([]*Record, len(records))
	for i, r := range records {
		out[i] = r.Project(columns)
	}
	return out
}

func (t *Table) applyUpdate(rec *Record, updates map[string]string) error {
	newValues := cloneValues(rec.Values)
	for k, v := range updates {
		if v == NullLiteral {
			delete(newValues, k)
			continue
		}
		newValues[k] = v
	}

	if err := t.validateUniqueExcluding(newValues, rec.ID); err != nil {
		return err
	}

	for col, idx := range t.indexes {
		if old, ok := rec.Values[col]; ok {
			idx.Delete(old)
		}
	}

	rec.Values = newValues

	for col, idx := range t.indexes {
		if v, ok := rec.Values[col]; ok {
			idx.Insert(v, rec.ID)
		}
	}
	return nil
}

// UpdateByIDs applies updates to the records identified by ids,
// revalidating constraints and maintaining every affected index. The
// executor uses it for every UPDATE: the target set is computed by the
// executor's own scan/point-lookup logic (spec.md §4.6).
func (t *Table) UpdateByIDs(ids []int, updates map[string]string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := 0
	for _, id := range ids {
		rec := t.findByID(id)
		if rec == nil {
			continue
		}
		if err := t.applyUpdate(rec, updates); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// DeleteByIDs removes the records identified by ids, including from
// every affected index. The executor uses it for every DELETE, with the
// target set computed as for UpdateByIDs.
func (t *Table) DeleteByIDs(ids []int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	toDelete := make(map[int]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}

	deleted := 0
	remaining := t.records[:0:0]
	for _, r := range t.records {
		if !toDelete[r.ID] {
			remaining = append(remaining, r)
			continue
		}
		for col, idx := range t.indexes {
			if v, ok := r.Values[col]; ok {
				idx.Delete(v)
			}
		}
		deleted++
	}
	t.records = remaining
	return deleted
}

func (t *Table) validateUniqueExcluding(values map[string]string, excludeID int) error {
	for _, c := range t.columns {
		if !c.Unique {
			continue
		}
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		if idx, ok := t.indexes[c.Name]; ok {
			if id, found := idx.Search(v); found && id != excludeID {
				return dberr.NewConstraint("Duplicate %s value: %s", uniqueLabel(c), v)
			}
			continue
		}
		if t.scanHasValue(c.Name, v, excludeID) {
			return dberr.NewConstraint("Duplicate %s value: %s", uniqueLabel(c), v)
		}
	}
	return nil
}

// CreateIndex allocates a fresh B-tree over column, populated by scanning
// the current records. Fails if the column doesn't exist or is already
// indexed.
func (t *Table) CreateIndex(column string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.columnIdx[column]; !ok {
		return dberr.NewSchema("column '%s' does not exist", column)
	}
	if _, ok := t.indexes[column]; ok {
		return dberr.NewSchema("index already exists for column: %s", column)
	}

	idx := btree.New(btree.DefaultOrder)
	for _, r := range t.records {
		if v, ok := r.Values[column]; ok {
			idx.Insert(v, r.ID)
		}
	}
	t.indexes[column] = idx
	return nil
}

// ReplaceRecords discards the current record vector and indexes and
// reloads rec, replaying CreateIndex for every column named in
// indexedColumns. Used only by Database.Load to restore a table from its
// persisted pages, since B-tree indexes are never themselves persisted
// (spec.md §4.3).
func (t *Table) ReplaceRecords(recs []*Record, nextID int, indexedColumns []string) {
	t.mu.Lock()
	t.records = recs
	t.nextID = nextID
	t.indexes = make(map[string]*btree.BTree)
	t.mu.Unlock()

	for _, c := range t.columns {
		if c.PrimaryKey {
			_ = t.CreateIndex(c.Name)
		}
	}
	for _, col := range indexedColumns {
		if !t.HasIndex(col) {
			_ = t.CreateIndex(col)
		}
	}
}

// Vacuum is an informational no-op per spec.md §4.4.
func (t *Table) Vacuum() string {
	return fmt.Sprintf("VACUUM completed for table: %s", t.name)
}

// Analyze is an informational no-op per spec.md §4.4.
func (t *Table) Analyze() string {
	t.mu.RLock()
	n := len(t.records)
	t.mu.RUnlock()
	return fmt.Sprintf("ANALYZE completed for table: %s (%d records)", t.name, n)
}
