package query

import (
	"fmt"
	"strconv"
	"strings"

	"deview/domain/results"
)

// operators is ordered so two-character operators are tried first.
var operators = []results.Op{results.OpLE, results.OpGE, results.OpEQ, results.OpNE, results.OpLT, results.OpGT}

// ParsePredicate parses a conjunction such as
//
//	adjusted_p_value <= 0.05, abs(log_fold_change) >= 1
//
// Clauses are separated by commas, semicolons or the word "and". A single
// "=" is accepted as "==". An empty string yields the empty predicate.
func ParsePredicate(s string) (results.Predicate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var predicate results.Predicate
	for _, part := range splitClauses(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cmp, err := parseComparison(part)
		if err != nil {
			return nil, err
		}
		predicate = append(predicate, cmp)
	}
	return predicate, nil
}

func splitClauses(s string) []string {
	s = strings.ReplaceAll(s, ";", ",")
	var out []string
	for _, chunk := range strings.Split(s, ",") {
		fields := strings.Fields(chunk)
		start := 0
		for i, f := range fields {
			if strings.EqualFold(f, "and") || f == "&&" {
				out = append(out, strings.Join(fields[start:i], " "))
				start = i + 1
			}
		}
		out = append(out, strings.Join(fields[start:], " "))
	}
	return out
}

func parseComparison(s string) (results.Comparison, error) {
	for _, op := range operators {
		if i := strings.Index(s, string(op)); i > 0 {
			return buildComparison(s[:i], op, s[i+len(op):], s)
		}
	}
	if i := strings.Index(s, "="); i > 0 {
		return buildComparison(s[:i], results.OpEQ, s[i+1:], s)
	}
	return results.Comparison{}, fmt.Errorf("filter clause %q has no comparison operator", s)
}

func buildComparison(lhs string, op results.Op, rhs string, clause string) (results.Comparison, error) {
	lhs = strings.TrimSpace(lhs)
	rhs = strings.Trim(strings.TrimSpace(rhs), `"'`)
	if lhs == "" || rhs == "" {
		return results.Comparison{}, fmt.Errorf("filter clause %q is incomplete", clause)
	}

	cmp := results.Comparison{Op: op, Value: rhs}
	lower := strings.ToLower(lhs)
	if strings.HasPrefix(lower, "abs(") && strings.HasSuffix(lhs, ")") {
		cmp.Abs = true
		lhs = lhs[4 : len(lhs)-1]
	} else if strings.HasPrefix(lhs, "|") && strings.HasSuffix(lhs, "|") && len(lhs) > 2 {
		cmp.Abs = true
		lhs = lhs[1 : len(lhs)-1]
	}
	cmp.Column = results.ParseColumn(lhs)
	if cmp.Column == "" {
		return results.Comparison{}, fmt.Errorf("filter clause %q names no column", clause)
	}
	if cmp.Column.IsNumeric() {
		if _, err := strconv.ParseFloat(rhs, 64); err != nil {
			return results.Comparison{}, fmt.Errorf("filter clause %q compares %s with non-numeric %q", clause, cmp.Column, rhs)
		}
	}
	if cmp.Abs && cmp.Column == results.ColumnGeneID {
		return results.Comparison{}, fmt.Errorf("filter clause %q takes abs() of a text column", clause)
	}
	return cmp, nil
}

// ParseSortKey parses "column", "column asc", "column desc" or "-column".
// The empty string keeps file order.
func ParseSortKey(s string) results.SortKey {
	s = strings.TrimSpace(s)
	if s == "" {
		return results.SortKey{}
	}
	key := results.SortKey{}
	if strings.HasPrefix(s, "-") {
		key.Descending = true
		s = s[1:]
	}
	fields := strings.Fields(s)
	if len(fields) > 1 {
		switch strings.ToLower(fields[len(fields)-1]) {
		case "desc", "descending":
			key.Descending = true
			fields = fields[:len(fields)-1]
		case "asc", "ascending":
			fields = fields[:len(fields)-1]
		}
	}
	key.Column = results.ParseColumn(strings.Join(fields, " "))
	return key
}

// Resolve rewrites columns named by their source header (adj.P.Val, FDR,
// log2FoldChange) to the core columns they were loaded into, then validates
// the result against table.
func Resolve(table *results.Table, predicate results.Predicate, key results.SortKey) (results.Predicate, results.SortKey, error) {
	var resolved results.Predicate
	for _, c := range predicate {
		c.Column = table.ResolveColumn(c.Column)
		if c.Column.IsNumeric() {
			if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
				return nil, key, fmt.Errorf("filter clause %q compares %s with non-numeric %q", c.String(), c.Column, c.Value)
			}
		}
		if c.Abs && c.Column == results.ColumnGeneID {
			return nil, key, fmt.Errorf("filter clause %q takes abs() of a text column", c.String())
		}
		resolved = append(resolved, c)
	}
	if !key.IsFileOrder() {
		key.Column = table.ResolveColumn(key.Column)
	}
	if err := Validate(table, resolved, key); err != nil {
		return nil, key, err
	}
	return resolved, key, nil
}

// Validate checks that every column the predicate and key mention exists on table.
func Validate(table *results.Table, predicate results.Predicate, key results.SortKey) error {
	for _, c := range predicate {
		if !table.HasColumn(c.Column) {
			return fmt.Errorf("unknown filter column %q", c.Column)
		}
	}
	if !key.IsFileOrder() && !table.HasColumn(key.Column) {
		return fmt.Errorf("unknown sort column %q", key.Column)
	}
	return nil
}
