// Package results defines the differential-expression results table and the
// read-only views derived from it.
package results

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Column names a field of a results row. Core columns are typed; any other
// value addresses an auxiliary column by its header name.
type Column string

const (
	ColumnGeneID    Column = "gene_id"
	ColumnLogFC     Column = "log_fold_change"
	ColumnPValue    Column = "p_value"
	ColumnAdjPValue Column = "adjusted_p_value"
)

// CoreColumns lists the required columns in display order.
var CoreColumns = []Column{ColumnGeneID, ColumnLogFC, ColumnPValue, ColumnAdjPValue}

// IsCore reports whether c is one of the four typed columns.
func (c Column) IsCore() bool {
	switch c {
	case ColumnGeneID, ColumnLogFC, ColumnPValue, ColumnAdjPValue:
		return true
	}
	return false
}

// IsNumeric reports whether the core column holds a float.
func (c Column) IsNumeric() bool {
	return c.IsCore() && c != ColumnGeneID
}

// Label returns a human readable axis/table label.
func (c Column) Label() string {
	switch c {
	case ColumnGeneID:
		return "Gene"
	case ColumnLogFC:
		return "log2 fold change"
	case ColumnPValue:
		return "p-value"
	case ColumnAdjPValue:
		return "adjusted p-value"
	}
	return string(c)
}

// ParseColumn normalises user input into a Column. Core column names are
// matched case-insensitively; anything else is kept verbatim as an auxiliary
// header name.
func ParseColumn(s string) Column {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "gene_id", "gene":
		return ColumnGeneID
	case "log_fold_change", "logfc":
		return ColumnLogFC
	case "p_value", "pvalue":
		return ColumnPValue
	case "adjusted_p_value", "adj_p_value", "padj", "fdr":
		return ColumnAdjPValue
	}
	return Column(trimmed)
}

// Row is one gene's statistics: a typed core plus every other column of the
// source file as raw strings.
type Row struct {
	GeneID    string            `json:"gene_id"`
	LogFC     float64           `json:"log_fold_change"`
	PValue    float64           `json:"p_value"`
	AdjPValue float64           `json:"adjusted_p_value"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Number returns the numeric value of column c. Auxiliary columns are parsed
// on demand; ok is false when the column is missing or not numeric.
func (r Row) Number(c Column) (float64, bool) {
	switch c {
	case ColumnLogFC:
		return r.LogFC, true
	case ColumnPValue:
		return r.PValue, true
	case ColumnAdjPValue:
		return r.AdjPValue, true
	case ColumnGeneID:
		return 0, false
	}
	raw, ok := r.Extra[string(c)]
	if !ok {
		return 0, false
	}
	v, err := ParseNumber(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Text returns the display value of column c.
func (r Row) Text(c Column) string {
	switch c {
	case ColumnGeneID:
		return r.GeneID
	case ColumnLogFC:
		return FormatNumber(r.LogFC)
	case ColumnPValue:
		return FormatNumber(r.PValue)
	case ColumnAdjPValue:
		return FormatNumber(r.AdjPValue)
	}
	return r.Extra[string(c)]
}

// Table is a results file held in memory. Rows keep file order.
type Table struct {
	Source  string            `json:"source"`
	Headers []string          `json:"headers"`
	Mapping map[Column]string `json:"mapping"`
	Rows    []Row             `json:"rows"`
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HeaderFor returns the source header a core column was read from.
func (t *Table) HeaderFor(c Column) string {
	if t == nil {
		return string(c)
	}
	if h, ok := t.Mapping[c]; ok {
		return h
	}
	return string(c)
}

// ExtraHeaders returns the auxiliary headers in file order.
func (t *Table) ExtraHeaders() []string {
	if t == nil {
		return nil
	}
	used := make(map[string]bool, len(t.Mapping))
	for _, h := range t.Mapping {
		used[h] = true
	}
	var out []string
	for _, h := range t.Headers {
		if !used[h] {
			out = append(out, h)
		}
	}
	return out
}

// Columns returns the core columns followed by the auxiliary ones.
func (t *Table) Columns() []Column {
	cols := append([]Column(nil), CoreColumns...)
	for _, h := range t.ExtraHeaders() {
		cols = append(cols, Column(h))
	}
	return cols
}

// HasColumn reports whether c can be addressed on this table.
func (t *Table) HasColumn(c Column) bool {
	if c.IsCore() {
		return true
	}
	if t == nil {
		return false
	}
	for _, h := range t.ExtraHeaders() {
		if h == string(c) {
			return true
		}
	}
	return false
}

// ResolveColumn maps a source header such as limma's adj.P.Val back to the
// core column it was read into. Other columns are returned unchanged.
func (t *Table) ResolveColumn(c Column) Column {
	if c.IsCore() || t == nil {
		return c
	}
	for _, h := range t.ExtraHeaders() {
		if h == string(c) {
			return c
		}
	}
	for _, core := range CoreColumns {
		if h, ok := t.Mapping[core]; ok && h != "" && strings.EqualFold(h, string(c)) {
			return core
		}
	}
	return c
}

// ParseNumber parses a numeric cell. R writes missing values as NA, which
// becomes NaN rather than an error.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "NA", "NAN", "":
		return math.NaN(), nil
	case "INF", "+INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Finite returns a pointer to v, or nil when v is NaN or infinite, so JSON
// encodes missing statistics as null instead of failing.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON writes NA statistics as null.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		GeneID    string            `json:"gene_id"`
		LogFC     *float64          `json:"log_fold_change"`
		PValue    *float64          `json:"p_value"`
		AdjPValue *float64          `json:"adjusted_p_value"`
		Extra     map[string]string `json:"extra,omitempty"`
	}{r.GeneID, Finite(r.LogFC), Finite(r.PValue), Finite(r.AdjPValue), r.Extra})
}

// FormatNumber renders v compactly, switching to exponent form for tiny p-values.
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
