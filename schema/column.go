package schema

import (
	"strings"

	"github.com/ghiloufibg/nova-sql/dberr"
)

// ColumnType enumerates the declared types recognized at table-create
// time, per spec.md §3. VARCHAR's length, when present, is accepted and
// dropped (comparisons throughout the engine are string-lexicographic).
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeVarchar ColumnType = "VARCHAR"
	TypeBoolean ColumnType = "BOOLEAN"
	TypeDate    ColumnType = "DATE"
	TypeDecimal ColumnType = "DECIMAL"
)

// typeAliases maps every token the grammar (spec.md §6) accepts in a
// column definition's type position onto one of the five canonical types.
var typeAliases = map[string]ColumnType{
	"INTEGER":   TypeInteger,
	"INT":       TypeInteger,
	"BIGINT":    TypeInteger,
	"SMALLINT":  TypeInteger,
	"TINYINT":   TypeInteger,
	"VARCHAR":   TypeVarchar,
	"CHAR":      TypeVarchar,
	"TEXT":      TypeVarchar,
	"DATE":      TypeDate,
	"DATETIME":  TypeDate,
	"TIMESTAMP": TypeDate,
	"BOOLEAN":   TypeBoolean,
	"DECIMAL":   TypeDecimal,
	"FLOAT":     TypeDecimal,
	"DOUBLE":    TypeDecimal,
}

// ResolveType normalizes a raw grammar type token (possibly with a
// trailing "(n)" length, e.g. "VARCHAR(50)") into a canonical ColumnType.
// Tokens outside the enumerated set are rejected, per spec.md §3.
func ResolveType(raw string) (ColumnType, error) {
	name := raw
	if idx := strings.IndexByte(raw, '('); idx >= 0 {
		name = raw[:idx]
	}
	name = strings.ToUpper(strings.TrimSpace(name))

	t, ok := typeAliases[name]
	if !ok {
		return "", dberr.NewSchema("unknown column type: %s", raw)
	}
	return t, nil
}

// ColumnDef describes one column of a table.
type ColumnDef struct {
	Name          string
	Type          ColumnType
	PrimaryKey    bool
	NotNull       bool
	Unique        bool
	AutoIncrement bool
	Default       *string
}

// Validate enforces spec.md §3's column-definition invariant: primary key
// implies not-null and unique.
func (c *ColumnDef) Validate() error {
	if c.PrimaryKey {
		c.NotNull = true
		c.Unique = true
	}
	return nil
}

// String renders c as a column-definition clause suitable for a CREATE
// TABLE statement, used by the backup exporter.
func (c ColumnDef) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(string(c.Type))
	if c.AutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.Unique && !c.PrimaryKey {
		b.WriteString(" UNIQUE")
	}
	if c.NotNull && !c.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.Default)
	}
	return b.String()
}
