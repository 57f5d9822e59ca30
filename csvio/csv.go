// Package csvio implements the CSV import/export surface of spec.md §6,
// grounded on CSVHandler.java. Import re-expresses each row as an INSERT
// run through the engine's normal SQL path (so constraints and locking
// apply uniformly); export writes the records its caller passes in, in the
// table's declared column order.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/executor"
)

// SQLRunner is the subset of the engine facade csvio needs: executing a
// single statement. Kept as a narrow interface so this package doesn't
// depend on the engine package itself.
type SQLRunner interface {
	ExecuteSQL(sql string) (*executor.Result, error)
}

// Import reads a header row plus data rows from r and inserts one row per
// data line into table, via runner.ExecuteSQL. Malformed lines (wrong
// field count) and rows the engine rejects are skipped and logged,
// matching CSVHandler.importCSV; import stops and returns an error on
// empty input, on an I/O failure, or on a CSV syntax error.
func Import(r io.Reader, table string, runner SQLRunner, log *slog.Logger) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return 0, fmt.Errorf("CSV file is empty")
		}
		return 0, err
	}

	imported := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, err
		}
		if len(fields) != len(headers) {
			log.Warn("skipping malformed CSV line", "table", table, "fields", len(fields), "expected", len(headers))
			continue
		}

		sql := buildInsertSQL(table, headers, fields)
		if _, err := runner.ExecuteSQL(sql); err != nil {
			log.Warn("failed to import CSV row", "table", table, "error", err)
			continue
		}
		imported++
	}

	log.Info("CSV import complete", "table", table, "rows", imported)
	return imported, nil
}

func buildInsertSQL(table string, headers, fields []string) string {
	var cols, vals strings.Builder
	for i := range headers {
		if i > 0 {
			cols.WriteString(", ")
			vals.WriteString(", ")
		}
		cols.WriteString(headers[i])
		if fields[i] == "" {
			vals.WriteString("NULL")
		} else {
			vals.WriteString("'")
			vals.WriteString(strings.ReplaceAll(fields[i], "'", "''"))
			vals.WriteString("'")
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols.String(), vals.String())
}

// Export writes table's current contents to w as CSV, header row first in
// the table's declared column order, per CSVHandler.exportCSV.
func Export(w io.Writer, table *schema.Table, records []*schema.Record, log *slog.Logger) error {
	cw := csv.NewWriter(w)

	headers := make([]string, len(table.Columns()))
	for i, c := range table.Columns() {
		headers[i] = c.Name
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, r := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = r.Values[h]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	log.Info("CSV export complete", "table", table.Name(), "rows", len(records))
	return nil
}
