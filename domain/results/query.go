package results

import (
	"fmt"
	"strings"
)

// Op is a comparison operator of a filter clause.
type Op string

const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
	OpEQ Op = "=="
	OpNE Op = "!="
)

// Comparison is one clause: column (or its absolute value) compared to a literal.
type Comparison struct {
	Column Column `json:"column"`
	Abs    bool   `json:"abs,omitempty"`
	Op     Op     `json:"op"`
	Value  string `json:"value"`
}

func (c Comparison) String() string {
	operand := string(c.Column)
	if c.Abs {
		operand = "abs(" + operand + ")"
	}
	return fmt.Sprintf("%s %s %s", operand, c.Op, c.Value)
}

// Predicate is a conjunction of comparisons. The empty predicate matches every row.
type Predicate []Comparison

func (p Predicate) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// IsEmpty reports whether the predicate matches everything.
func (p Predicate) IsEmpty() bool { return len(p) == 0 }

// SortKey orders a view. The zero value keeps file order.
type SortKey struct {
	Column     Column `json:"column,omitempty"`
	Descending bool   `json:"descending,omitempty"`
}

// IsFileOrder reports whether no column sort is requested.
func (k SortKey) IsFileOrder() bool { return k.Column == "" }

func (k SortKey) String() string {
	if k.IsFileOrder() {
		return "file order"
	}
	if k.Descending {
		return string(k.Column) + " desc"
	}
	return string(k.Column) + " asc"
}

// View is a filtered, ordered projection of a Table: indices into Table.Rows.
// It is derived on demand and never persisted.
type View struct {
	Indices []int     `json:"indices"`
	Filter  Predicate `json:"filter,omitempty"`
	Sort    SortKey   `json:"sort"`
}

// Len returns the number of rows in the view.
func (v View) Len() int { return len(v.Indices) }

// IsEmpty reports whether no row matched.
func (v View) IsEmpty() bool { return len(v.Indices) == 0 }

// Rows materialises the view against its table.
func (v View) Rows(t *Table) []Row {
	out := make([]Row, 0, len(v.Indices))
	for _, i := range v.Indices {
		out = append(out, t.Rows[i])
	}
	return out
}
