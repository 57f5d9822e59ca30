package executor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ghiloufibg/nova-sql/dberr"
	"github.com/ghiloufibg/nova-sql/schema"
	"github.com/ghiloufibg/nova-sql/sql/parser"
)

// matchWhere evaluates a single predicate against a record. Comparisons
// are string-lexicographic throughout, by design (spec.md §4.4 edge
// cases) — numeric-looking columns sort numerically only when the
// stored strings are zero-padded.
func matchWhere(r *schema.Record, w *parser.Where) (bool, error) {
	value, present := r.Get(w.Column)

	switch w.Op {
	case parser.OpIsNull:
		return !present, nil
	case parser.OpIsNotNull:
		return present, nil
	}

	if !present {
		return false, nil
	}

	switch w.Op {
	case parser.OpLike:
		return matchLike(value, w.Value), nil
	case parser.OpNotLike:
		return !matchLike(value, w.Value), nil
	case parser.OpBetween:
		return value >= w.Low && value <= w.High, nil
	case parser.OpNotBetween:
		return !(value >= w.Low && value <= w.High), nil
	case parser.OpIn:
		return contains(w.Values, value), nil
	case parser.OpNotIn:
		return !contains(w.Values, value), nil
	case parser.OpEQ:
		return value == w.Value, nil
	case parser.OpNE, parser.OpNE2:
		return value != w.Value, nil
	case parser.OpGT:
		return value > w.Value, nil
	case parser.OpLT:
		return value < w.Value, nil
	case parser.OpGE:
		return value >= w.Value, nil
	case parser.OpLE:
		return value <= w.Value, nil
	default:
		return false, dberr.NewParse("unsupported WHERE operator: %s", w.Op)
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// matchLike translates a SQL LIKE pattern (% -> any run, _ -> one
// character, other regex metacharacters literal) into an anchored
// regexp match, per spec.md §4.5.
func matchLike(value, pattern string) bool {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile("(?s)" + b.String())
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// sortRecords stably sorts records by terms in order, nulls sorting
// before non-nulls regardless of direction, per spec.md §4.6.
func sortRecords(records []*schema.Record, terms []parser.OrderTerm) {
	if len(terms) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, term := range terms {
			vi, oki := records[i].Get(term.Column)
			vj, okj := records[j].Get(term.Column)

			if !oki && !okj {
				continue
			}
			if !oki {
				return true
			}
			if !okj {
				return false
			}
			if vi == vj {
				continue
			}
			if term.Ascending {
				return vi < vj
			}
			return vi > vj
		}
		return false
	})
}

// applyAggregates computes every requested aggregate over records and
// returns a single synthetic Record, grounded on the original engine's
// AggregateFunction (COUNT/SUM/AVG/MIN/MAX): a supplemented SELECT form
// (spec.md's Non-goals do not exclude aggregates).
func applyAggregates(records []*schema.Record, aggregates []parser.Aggregate) *schema.Record {
	values := make(map[string]string, len(aggregates))
	for _, agg := range aggregates {
		key := agg.Alias
		if key == "" {
			key = strings.ToLower(agg.Function) + "(" + agg.Column + ")"
		}
		values[key] = formatAggregate(agg, records)
	}
	return &schema.Record{ID: 0, Values: values}
}

func formatAggregate(agg parser.Aggregate, records []*schema.Record) string {
	switch strings.ToUpper(agg.Function) {
	case "COUNT":
		if agg.Column == "*" {
			return strconv.Itoa(len(records))
		}
		count := 0
		for _, r := range records {
			if _, ok := r.Get(agg.Column); ok {
				count++
			}
		}
		return strconv.Itoa(count)
	case "SUM":
		sum, _ := aggregateSum(records, agg.Column)
		return strconv.FormatFloat(sum, 'f', -1, 64)
	case "AVG":
		sum, count := aggregateSum(records, agg.Column)
		if count == 0 {
			return "0"
		}
		return strconv.FormatFloat(sum/float64(count), 'f', -1, 64)
	case "MIN":
		return aggregateExtreme(records, agg.Column, true)
	case "MAX":
		return aggregateExtreme(records, agg.Column, false)
	default:
		return ""
	}
}

func aggregateSum(records []*schema.Record, column string) (float64, int) {
	var sum float64
	count := 0
	for _, r := range records {
		v, ok := r.Get(column)
		if !ok || v == "" {
			continue
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			sum += n
			count++
		}
	}
	return sum, count
}

func aggregateExtreme(records []*schema.Record, column string, min bool) string {
	var best string
	found := false
	for _, r := range records {
		v, ok := r.Get(column)
		if !ok || v == "" {
			continue
		}
		if !found || (min && v < best) || (!min && v > best) {
			best = v
			found = true
		}
	}
	if !found {
		return ""
	}
	return best
}
