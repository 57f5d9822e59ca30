package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/schema"
)

var (
	selectPattern = regexp.MustCompile(`(?is)^SELECT\s+(.*?)\s+FROM\s+(\w+)(?:\s+WHERE\s+(.*?))?(?:\s+ORDER\s+BY\s+(.*?))?(?:\s+LIMIT\s+(\d+)(?:\s+OFFSET\s+(\d+))?)?$`)
	joinPattern   = regexp.MustCompile(`(?is)^SELECT\s+(.*?)\s+FROM\s+(\w+)\s+(?:\w+\s+)??(?:(INNER|LEFT|RIGHT|FULL)\s+)?JOIN\s+(\w+)\s+(?:\w+\s+)?ON\s+(\w+)\.(\w+)\s*=\s*(\w+)\.(\w+)(?:\s+WHERE\s+(.*?))?$`)
	insertPattern = regexp.MustCompile(`(?is)^INSERT\s+INTO\s+(\w+)\s*\(([^)]+)\)\s*VALUES\s*\(([^)]+)\)$`)
	updatePattern = regexp.MustCompile(`(?is)^UPDATE\s+(\w+)\s+SET\s+(.+?)(?:\s+WHERE\s+(.+))?$`)
	deletePattern = regexp.MustCompile(`(?is)^DELETE\s+FROM\s+(\w+)(?:\s+WHERE\s+(.+))?$`)

	createTablePattern = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(\w+)\s*\((.+)\)$`)
	createIndexPattern = regexp.MustCompile(`(?is)^CREATE\s+INDEX\s+(\w+)\s+ON\s+(\w+)\s*\(\s*(\w+)\s*\)$`)

	aggregatePattern = regexp.MustCompile(`(?i)^(COUNT|SUM|AVG|MIN|MAX)\s*\(\s*(\*|\w+)\s*\)(?:\s+AS\s+(\w+))?$`)
)

// Parse turns SQL text into a Statement, dispatching on the leading
// keyword exactly as the original parser does, per spec.md §4.5.
func Parse(sql string) (*Statement, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, dberr.NewParse("SQL statement cannot be empty")
	}
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "SELECT"):
		if strings.Contains(upper, " JOIN ") {
			return parseJoin(trimmed)
		}
		return parseSelect(trimmed)
	case strings.HasPrefix(upper, "INSERT"):
		return parseInsert(trimmed)
	case strings.HasPrefix(upper, "UPDATE"):
		return parseUpdate(trimmed)
	case strings.HasPrefix(upper, "DELETE"):
		return parseDelete(trimmed)
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return parseCreateTable(trimmed)
	case strings.HasPrefix(upper, "CREATE INDEX"):
		return parseCreateIndex(trimmed)
	case strings.HasPrefix(upper, "SHOW"):
		return parseShow(trimmed)
	case strings.HasPrefix(upper, "EXPLAIN"):
		return parseExplain(trimmed)
	case strings.HasPrefix(upper, "VACUUM"):
		return parseVacuum(trimmed)
	case strings.HasPrefix(upper, "ANALYZE"):
		return parseAnalyze(trimmed)
	default:
		return nil, dberr.NewParse("unsupported statement: %s", trimmed)
	}
}

func parseSelect(sql string) (*Statement, error) {
	m := selectPattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid SELECT statement: %s", sql)
	}

	columns, aggregates := parseColumnList(strings.TrimSpace(m[1]))
	table := strings.TrimSpace(m[2])

	where, err := parseOptionalWhere(m[3])
	if err != nil {
		return nil, err
	}

	orderBy := parseOrderBy(m[4])

	limit, err := parseOptionalInt(m[5])
	if err != nil {
		return nil, dberr.NewParse("invalid LIMIT in: %s", sql)
	}
	offset, err := parseOptionalInt(m[6])
	if err != nil {
		return nil, dberr.NewParse("invalid OFFSET in: %s", sql)
	}

	return &Statement{
		Kind:       KindSelect,
		Table:      table,
		Columns:    columns,
		Aggregates: aggregates,
		Where:      where,
		OrderBy:    orderBy,
		Limit:      limit,
		Offset:     offset,
		Text:       sql,
	}, nil
}

func parseJoin(sql string) (*Statement, error) {
	m := joinPattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid JOIN statement: %s", sql)
	}

	columns, _ := parseColumnList(strings.TrimSpace(m[1]))
	leftTable := strings.TrimSpace(m[2])
	joinType := parseJoinType(m[3])
	rightTable := strings.TrimSpace(m[4])
	leftJoinColumn := m[6]
	rightJoinColumn := m[8]

	where, err := parseOptionalWhere(m[9])
	if err != nil {
		return nil, err
	}

	return &Statement{
		Kind:        KindJoin,
		Columns:     columns,
		LeftTable:   leftTable,
		RightTable:  rightTable,
		LeftColumn:  leftJoinColumn,
		RightColumn: rightJoinColumn,
		JoinType:    joinType,
		Where:       where,
		Text:        sql,
	}, nil
}

func parseJoinType(raw string) JoinType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LEFT":
		return JoinLeft
	case "RIGHT":
		return JoinRight
	case "FULL":
		return JoinFull
	default:
		return JoinInner
	}
}

func parseInsert(sql string) (*Statement, error) {
	m := insertPattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid INSERT statement: %s", sql)
	}

	table := strings.TrimSpace(m[1])
	columns := splitTrimmed(m[2])
	values := parseValueList(m[3])

	if len(columns) != len(values) {
		return nil, dberr.NewParse("column count doesn't match value count: %s", sql)
	}

	insertValues := make(map[string]string, len(columns))
	for i, c := range columns {
		if values[i] == schema.NullLiteral {
			continue
		}
		insertValues[c] = values[i]
	}

	return &Statement{Kind: KindInsert, Table: table, InsertValues: insertValues, Text: sql}, nil
}

func parseUpdate(sql string) (*Statement, error) {
	m := updatePattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid UPDATE statement: %s", sql)
	}

	table := strings.TrimSpace(m[1])
	updates, err := parseSetClause(m[2])
	if err != nil {
		return nil, err
	}

	where, err := parseOptionalWhere(m[3])
	if err != nil {
		return nil, err
	}

	return &Statement{Kind: KindUpdate, Table: table, Updates: updates, Where: where, Text: sql}, nil
}

func parseDelete(sql string) (*Statement, error) {
	m := deletePattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid DELETE statement: %s", sql)
	}

	table := strings.TrimSpace(m[1])
	where, err := parseOptionalWhere(m[2])
	if err != nil {
		return nil, err
	}

	return &Statement{Kind: KindDelete, Table: table, Where: where, Text: sql}, nil
}

func parseCreateTable(sql string) (*Statement, error) {
	m := createTablePattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid CREATE TABLE statement: %s", sql)
	}

	table := strings.TrimSpace(m[1])
	columns, err := parseColumnDefs(m[2])
	if err != nil {
		return nil, err
	}

	return &Statement{Kind: KindCreateTable, Table: table, ColumnDefs: columns, Text: sql}, nil
}

func parseCreateIndex(sql string) (*Statement, error) {
	m := createIndexPattern.FindStringSubmatch(sql)
	if m == nil {
		return nil, dberr.NewParse("invalid CREATE INDEX statement: %s", sql)
	}

	return &Statement{
		Kind:      KindCreateIndex,
		IndexName: strings.TrimSpace(m[1]),
		Table:     strings.TrimSpace(m[2]),
		Columns:   []string{strings.TrimSpace(m[3])},
		Text:      sql,
	}, nil
}

func parseShow(sql string) (*Statement, error) {
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)

	switch {
	case upper == "SHOW TABLES":
		return &Statement{Kind: KindShow, ShowKind: ShowTables, Text: sql}, nil
	case upper == "SHOW STATS":
		return &Statement{Kind: KindShow, ShowKind: ShowStats, Text: sql}, nil
	case upper == "SHOW DATABASES":
		return &Statement{Kind: KindShow, ShowKind: ShowDatabases, Text: sql}, nil
	case strings.HasPrefix(upper, "SHOW INDEXES"):
		if idx := strings.Index(upper, " FROM "); idx >= 0 && len(upper) == len(trimmed) {
			// Keep the table name's original case, as every other statement does.
			return &Statement{Kind: KindShow, ShowKind: ShowIndexes, Table: strings.TrimSpace(trimmed[idx+len(" FROM "):]), Text: sql}, nil
		}
		return &Statement{Kind: KindShow, ShowKind: ShowIndexes, Text: sql}, nil
	default:
		return nil, dberr.NewParse("unsupported SHOW statement: %s", sql)
	}
}

func parseExplain(sql string) (*Statement, error) {
	inner := strings.TrimSpace(sql[len("EXPLAIN"):])
	innerStmt, err := Parse(inner)
	if err != nil {
		return nil, err
	}
	return &Statement{Kind: KindExplain, Inner: innerStmt, Text: sql}, nil
}

func parseVacuum(sql string) (*Statement, error) {
	parts := strings.Fields(sql)
	switch len(parts) {
	case 1:
		return &Statement{Kind: KindVacuum, Text: sql}, nil
	case 2:
		return &Statement{Kind: KindVacuum, Table: parts[1], Text: sql}, nil
	default:
		return nil, dberr.NewParse("invalid VACUUM statement: %s", sql)
	}
}

func parseAnalyze(sql string) (*Statement, error) {
	parts := strings.Fields(sql)
	switch len(parts) {
	case 1:
		return &Statement{Kind: KindAnalyze, Text: sql}, nil
	case 2:
		return &Statement{Kind: KindAnalyze, Table: parts[1], Text: sql}, nil
	default:
		return nil, dberr.NewParse("invalid ANALYZE statement: %s", sql)
	}
}

// parseColumnList splits a SELECT column list into plain column names
// and aggregate-function terms (a supplemented grammar form; see
// AggregateFunction in the original engine).
func parseColumnList(raw string) ([]string, []Aggregate) {
	if raw == "*" {
		return []string{"*"}, nil
	}

	var columns []string
	var aggregates []Aggregate
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if m := aggregatePattern.FindStringSubmatch(trimmed); m != nil {
			aggregates = append(aggregates, Aggregate{
				Function: strings.ToUpper(m[1]),
				Column:   m[2],
				Alias:    m[3],
			})
			continue
		}
		columns = append(columns, trimmed)
	}
	return columns, aggregates
}

func splitTrimmed(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseValueList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, unquote(strings.TrimSpace(p)))
	}
	return out
}

// unquote strips a single-quoted literal, un-doubling any escaped inner
// quotes ('' -> '), and maps a bare, unquoted NULL token (case-insensitive)
// to schema.NullLiteral so the literal text "NULL" never reaches storage
// as an ordinary string (spec.md §3; Design Note 9). A quoted 'NULL' is
// left as the ordinary string "NULL".
func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
		inner := value[1 : len(value)-1]
		return strings.ReplaceAll(inner, "''", "'")
	}
	if strings.EqualFold(value, "NULL") {
		return schema.NullLiteral
	}
	return value
}

func parseSetClause(raw string) (map[string]string, error) {
	updates := make(map[string]string)
	for _, assignment := range strings.Split(raw, ",") {
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			return nil, dberr.NewParse("invalid SET clause: %s", assignment)
		}
		updates[strings.TrimSpace(parts[0])] = unquote(strings.TrimSpace(parts[1]))
	}
	return updates, nil
}

func parseOptionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseOrderBy(raw string) []OrderTerm {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var terms []OrderTerm
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		term := OrderTerm{Column: fields[0], Ascending: true}
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			term.Ascending = false
		}
		terms = append(terms, term)
	}
	return terms
}

func parseColumnDefs(raw string) ([]schema.ColumnDef, error) {
	var defs []schema.ColumnDef
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			return nil, dberr.NewParse("invalid column definition: %s", trimmed)
		}

		name := fields[0]
		colType, err := schema.ResolveType(fields[1])
		if err != nil {
			return nil, err
		}

		upper := strings.ToUpper(trimmed)
		primaryKey := strings.Contains(upper, "PRIMARY KEY")
		autoIncrement := strings.Contains(upper, "AUTO_INCREMENT")
		unique := strings.Contains(upper, "UNIQUE") && !primaryKey
		notNull := strings.Contains(upper, "NOT NULL") && !primaryKey

		var defaultValue *string
		if strings.Contains(upper, "DEFAULT") {
			defaultParts := regexp.MustCompile(`(?i)\s+DEFAULT\s+`).Split(trimmed, 2)
			if len(defaultParts) == 2 {
				token := strings.Fields(defaultParts[1])[0]
				v := unquote(token)
				defaultValue = &v
			}
		}

		defs = append(defs, schema.ColumnDef{
			Name:          name,
			Type:          colType,
			PrimaryKey:    primaryKey,
			NotNull:       notNull,
			Unique:        unique,
			AutoIncrement: autoIncrement,
			Default:       defaultValue,
		})
	}
	return defs, nil
}

// parseOptionalWhere returns nil when raw is empty, matching the
// original engine treating an absent WHERE group as no filter.
func parseOptionalWhere(raw string) (*Where, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parseWhere(raw)
}

var (
	isNullPattern    = regexp.MustCompile(`(?i)\s+IS\s+NULL\s*$`)
	isNotNullPattern = regexp.MustCompile(`(?i)\s+IS\s+NOT\s+NULL\s*$`)
	likePattern      = regexp.MustCompile(`(?i)\s+LIKE\s+`)
	notLikePattern   = regexp.MustCompile(`(?i)\s+NOT\s+LIKE\s+`)
	betweenPattern   = regexp.MustCompile(`(?i)\s+BETWEEN\s+`)
	notBetweenPattern = regexp.MustCompile(`(?i)\s+NOT\s+BETWEEN\s+`)
	andPattern       = regexp.MustCompile(`(?i)\s+AND\s+`)
	inPattern        = regexp.MustCompile(`(?i)\s+IN\s+`)
	notInPattern     = regexp.MustCompile(`(?i)\s+NOT\s+IN\s+`)
)

// parseWhere matches predicate forms left-to-right, first match wins,
// exactly per spec.md §4.5's precedence list.
func parseWhere(clause string) (*Where, error) {
	clause = strings.TrimSpace(clause)
	upper := strings.ToUpper(clause)

	if isNotNullPattern.MatchString(upper) {
		column := strings.TrimSpace(isNotNullPattern.ReplaceAllString(clause, ""))
		return &Where{Column: column, Op: OpIsNotNull}, nil
	}
	if isNullPattern.MatchString(upper) {
		column := strings.TrimSpace(isNullPattern.ReplaceAllString(clause, ""))
		return &Where{Column: column, Op: OpIsNull}, nil
	}

	if notLikePattern.MatchString(clause) {
		parts := notLikePattern.Split(clause, 2)
		if len(parts) == 2 {
			return &Where{Column: strings.TrimSpace(parts[0]), Op: OpNotLike, Value: unquote(strings.TrimSpace(parts[1]))}, nil
		}
	}
	if likePattern.MatchString(clause) {
		parts := likePattern.Split(clause, 2)
		if len(parts) == 2 {
			return &Where{Column: strings.TrimSpace(parts[0]), Op: OpLike, Value: unquote(strings.TrimSpace(parts[1]))}, nil
		}
	}

	if notBetweenPattern.MatchString(clause) {
		if w, ok := splitBetween(clause, notBetweenPattern, OpNotBetween); ok {
			return w, nil
		}
	}
	if betweenPattern.MatchString(clause) {
		if w, ok := splitBetween(clause, betweenPattern, OpBetween); ok {
			return w, nil
		}
	}

	if notInPattern.MatchString(clause) && strings.Contains(clause, "(") {
		if w, ok := splitIn(clause, notInPattern, OpNotIn); ok {
			return w, nil
		}
	}
	if inPattern.MatchString(clause) && strings.Contains(clause, "(") {
		if w, ok := splitIn(clause, inPattern, OpIn); ok {
			return w, nil
		}
	}

	for _, op := range []CompareOp{OpGE, OpLE, OpNE, OpNE2, OpGT, OpLT, OpEQ} {
		if idx := strings.Index(clause, string(op)); idx >= 0 {
			column := strings.TrimSpace(clause[:idx])
			value := strings.TrimSpace(clause[idx+len(op):])
			return &Where{Column: column, Op: op, Value: unquote(value)}, nil
		}
	}

	return nil, dberr.NewParse("unsupported WHERE clause: %s", clause)
}

func splitBetween(clause string, sep *regexp.Regexp, op CompareOp) (*Where, bool) {
	parts := sep.Split(clause, 2)
	if len(parts) != 2 {
		return nil, false
	}
	rangeParts := andPattern.Split(parts[1], 2)
	if len(rangeParts) != 2 {
		return nil, false
	}
	return &Where{
		Column: strings.TrimSpace(parts[0]),
		Op:     op,
		Low:    unquote(strings.TrimSpace(rangeParts[0])),
		High:   unquote(strings.TrimSpace(rangeParts[1])),
	}, true
}

func splitIn(clause string, sep *regexp.Regexp, op CompareOp) (*Where, bool) {
	parts := sep.Split(clause, 2)
	if len(parts) != 2 {
		return nil, false
	}
	valueList := strings.TrimSpace(parts[1])
	if !strings.HasPrefix(valueList, "(") || !strings.HasSuffix(valueList, ")") {
		return nil, false
	}
	inner := valueList[1 : len(valueList)-1]
	return &Where{Column: strings.TrimSpace(parts[0]), Op: op, Values: parseValueList(inner)}, true
}
