// Package backup implements the SQL-text backup/restore surface of
// spec.md §6, grounded on BackupHandler.java: export renders every table
// as a CREATE TABLE, its rows as INSERTs, and its non-primary-key indexes
// as CREATE INDEX statements; restore replays a previously exported (or
// hand-written) script statement by statement.
package backup

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/executor"
)

// SQLRunner is the subset of the engine facade backup needs.
type SQLRunner interface {
	ExecuteSQL(sql string) (*executor.Result, error)
}

// Export writes a full SQL dump of db to w, one CREATE TABLE / INSERT
// block per table in db.TableNames() order.
func Export(w io.Writer, db *schema.Database, dbName string, now time.Time, log *slog.Logger) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "-- Nova SQL Database Export")
	fmt.Fprintf(bw, "-- Database: %s\n", dbName)
	fmt.Fprintf(bw, "-- Export Date: %s\n", now.Format(time.RFC3339))
	fmt.Fprintln(bw)

	for _, name := range db.TableNames() {
		table, err := db.Table(name)
		if err != nil {
			return err
		}
		if err := exportTable(bw, table); err != nil {
			return err
		}
		fmt.Fprintln(bw)
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	log.Info("database export completed", "database", dbName, "tables", len(db.TableNames()))
	return nil
}

func exportTable(w *bufio.Writer, table *schema.Table) error {
	fmt.Fprintf(w, "-- Table: %s\n", table.Name())
	fmt.Fprintf(w, "CREATE TABLE %s (\n", table.Name())

	columns := table.Columns()
	for i, c := range columns {
		sep := ","
		if i == len(columns)-1 {
			sep = ""
		}
		fmt.Fprintf(w, "    %s%s\n", c.String(), sep)
	}
	fmt.Fprintln(w, ");")
	fmt.Fprintln(w)

	records := table.AllRecords()
	if len(records) > 0 {
		fmt.Fprintf(w, "-- Data for table: %s\n", table.Name())
		for _, r := range records {
			if err := exportInsert(w, table.Name(), r); err != nil {
				return err
			}
		}
	}

	indexed := table.IndexedColumns()
	var secondary []string
	for _, col := range indexed {
		if !isPrimaryKey(columns, col) {
			secondary = append(secondary, col)
		}
	}
	if len(secondary) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "-- Indexes for table: %s\n", table.Name())
		for _, col := range secondary {
			fmt.Fprintf(w, "CREATE INDEX idx_%s_%s ON %s(%s);\n", table.Name(), col, table.Name(), col)
		}
	}
	return nil
}

func isPrimaryKey(columns []schema.ColumnDef, name string) bool {
	for _, c := range columns {
		if c.Name == name {
			return c.PrimaryKey
		}
	}
	return false
}

func exportInsert(w *bufio.Writer, table string, r *schema.Record) error {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}

	fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (", table, strings.Join(names, ", "))
	for i, name := range names {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		v, ok := r.Values[name]
		if !ok {
			fmt.Fprint(w, "NULL")
			continue
		}
		fmt.Fprintf(w, "'%s'", strings.ReplaceAll(v, "'", "''"))
	}
	_, err := fmt.Fprintln(w, ");")
	return err
}

// Restore reads a SQL script from r, split on ';', and executes each
// non-blank, non-comment statement through runner in order. A statement
// that fails is logged and skipped, matching BackupHandler.importDatabase.
func Restore(r io.Reader, runner SQLRunner, log *slog.Logger) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	statements := strings.Split(string(data), ";")
	executed := 0
	for _, stmt := range statements {
		trimmed := stripComments(stmt)
		if trimmed == "" {
			continue
		}

		if _, err := runner.ExecuteSQL(trimmed); err != nil {
			log.Warn("failed to execute restore statement", "statement", trimmed, "error", err)
			continue
		}
		executed++
	}

	log.Info("database restore completed", "statements", executed)
	return executed, nil
}

// stripComments drops every "--"-prefixed or blank line from a statement
// chunk and joins what remains. A comment line sitting directly above a
// statement (as Export emits them, with no semicolon between the two)
// would otherwise make the whole chunk look comment-prefixed and get
// dropped along with the statement it introduces.
func stripComments(chunk string) string {
	var lines []string
	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.Join(lines, " ")
}
