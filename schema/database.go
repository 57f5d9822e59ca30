package schema

import (
	"sort"
	"sync"

	"github.com/ghiloufibg/nova-sql/dberr"
)

// Database is a named mapping from table name to Table, per spec.md §3.
type Database struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewDatabase returns an empty Database.
func NewDatabase() *Database {
	return &Database{tables: make(map[string]*Table)}
}

// CreateTable registers a new Table, failing if name is already taken.
func (db *Database) CreateTable(name string, columns []ColumnDef) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; exists {
		return nil, dberr.NewSchema("table already exists: %s", name)
	}

	t, err := New(name, columns)
	if err != nil {
		return nil, err
	}
	db.tables[name] = t
	return t, nil
}

// DropTable removes a table, failing if it doesn't exist.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[name]; !exists {
		return dberr.NewSchema("table does not exist: %s", name)
	}
	delete(db.tables, name)
	return nil
}

// Table looks up a table by name, failing with a SchemaError if absent.
func (db *Database) Table(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, exists := db.tables[name]
	if !exists {
		return nil, dberr.NewSchema("table does not exist: %s", name)
	}
	return t, nil
}

// HasTable reports whether name is a registered table.
func (db *Database) HasTable(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, exists := db.tables[name]
	return exists
}

// TableNames returns every registered table name, sorted.
func (db *Database) TableNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns every registered Table, in name order.
func (db *Database) Tables() []*Table {
	names := db.TableNames()
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]*Table, 0, len(names))
	for _, name := range names {
		out = append(out, db.tables[name])
	}
	return out
}

// registerLoaded inserts a Table reconstructed by Load, bypassing the
// duplicate-name check since it runs once at startup before any client
// request.
func (db *Database) registerLoaded(t *Table) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables[t.Name()] = t
}
