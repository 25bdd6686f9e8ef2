// Package query filters and orders a results table into a read-only view.
package query

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"deview/domain/results"
)

// Apply evaluates predicate against every row of table and orders the
// survivors by key. It is a pure function of its inputs: the table is not
// modified and the sort is stable, so ties keep file order.
func Apply(table *results.Table, predicate results.Predicate, key results.SortKey) results.View {
	view := results.View{
		Indices: []int{},
		Filter:  predicate,
		Sort:    key,
	}
	if table == nil {
		return view
	}

	compiled := compile(predicate)
	for i, row := range table.Rows {
		if compiled.matches(row) {
			view.Indices = append(view.Indices, i)
		}
	}

	if !key.IsFileOrder() {
		sortIndices(table, view.Indices, key)
	}
	return view
}

// Matches reports whether row satisfies every clause of predicate.
func Matches(row results.Row, predicate results.Predicate) bool {
	return compile(predicate).matches(row)
}

type clause struct {
	results.Comparison
	number    float64
	isNumeric bool
}

type compiled []clause

func compile(predicate results.Predicate) compiled {
	out := make(compiled, len(predicate))
	for i, c := range predicate {
		out[i] = clause{Comparison: c}
		if v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64); err == nil {
			out[i].number = v
			out[i].isNumeric = true
		}
	}
	return out
}

func (c compiled) matches(row results.Row) bool {
	for _, cl := range c {
		if !cl.matches(row) {
			return false
		}
	}
	return true
}

func (cl clause) matches(row results.Row) bool {
	if cl.isNumeric {
		if v, ok := row.Number(cl.Column); ok {
			if cl.Abs {
				v = math.Abs(v)
			}
			return compareFloat(v, cl.Op, cl.number)
		}
		if cl.Column.IsNumeric() {
			return false
		}
	}
	return compareString(row.Text(cl.Column), cl.Op, cl.Value)
}

// compareFloat follows IEEE semantics: NaN satisfies no ordered comparison
// and is unequal to everything.
func compareFloat(a float64, op results.Op, b float64) bool {
	switch op {
	case results.OpLT:
		return a < b
	case results.OpLE:
		return a <= b
	case results.OpGT:
		return a > b
	case results.OpGE:
		return a >= b
	case results.OpEQ:
		return a == b
	case results.OpNE:
		return a != b
	}
	return false
}

func compareString(a string, op results.Op, b string) bool {
	switch op {
	case results.OpLT:
		return a < b
	case results.OpLE:
		return a <= b
	case results.OpGT:
		return a > b
	case results.OpGE:
		return a >= b
	case results.OpEQ:
		return a == b
	case results.OpNE:
		return a != b
	}
	return false
}

// sortIndices orders indices stably by key. Numeric columns compare as
// floats with NaN (and unparsable auxiliary cells) placed last regardless of
// direction; other columns compare as strings.
func sortIndices(table *results.Table, indices []int, key results.SortKey) {
	numeric := key.Column.IsNumeric() || (!key.Column.IsCore() && auxiliaryIsNumeric(table, indices, key.Column))

	if numeric {
		values := make(map[int]float64, len(indices))
		for _, i := range indices {
			v, ok := table.Rows[i].Number(key.Column)
			if !ok {
				v = math.NaN()
			}
			values[i] = v
		}
		sort.SliceStable(indices, func(a, b int) bool {
			va, vb := values[indices[a]], values[indices[b]]
			if math.IsNaN(va) || math.IsNaN(vb) {
				return !math.IsNaN(va) && math.IsNaN(vb)
			}
			if key.Descending {
				return va > vb
			}
			return va < vb
		})
		return
	}

	sort.SliceStable(indices, func(a, b int) bool {
		sa, sb := table.Rows[indices[a]].Text(key.Column), table.Rows[indices[b]].Text(key.Column)
		if key.Descending {
			return sa > sb
		}
		return sa < sb
	})
}

// auxiliaryIsNumeric treats an auxiliary column as numeric when every
// non-empty cell in the view parses as a number.
func auxiliaryIsNumeric(table *results.Table, indices []int, col results.Column) bool {
	seen := false
	for _, i := range indices {
		raw := strings.TrimSpace(table.Rows[i].Extra[string(col)])
		if raw == "" {
			continue
		}
		if _, err := results.ParseNumber(raw); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
