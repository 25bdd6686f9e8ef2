package results

import (
	"strings"
)

// ColumnMapping lists, per core column, the header names accepted for it in
// priority order. Header names are configuration, not fixed strings.
type ColumnMapping map[Column][]string

// DefaultColumnMapping accepts the canonical names plus the headers written
// by limma topTable, edgeR topTags and DESeq2 results.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		ColumnGeneID:    {"gene_id", "GeneID", "Geneid", "gene", "ID", "id", "symbol"},
		ColumnLogFC:     {"log_fold_change", "logFC", "log2FoldChange", "log2FC"},
		ColumnPValue:    {"p_value", "P.Value", "PValue", "pvalue", "pval"},
		ColumnAdjPValue: {"adjusted_p_value", "adj.P.Val", "FDR", "padj", "qvalue"},
	}
}

// WithAliases returns a copy of m with extra names tried before the existing ones.
func (m ColumnMapping) WithAliases(c Column, names ...string) ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	var clean []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	out[c] = append(clean, out[c]...)
	return out
}

// Resolve finds the header index of every core column. Exact matches win over
// case-insensitive ones. An empty first header (R's row.names column) is taken
// as the gene id when no alias matches. Missing columns are returned in order.
func (m ColumnMapping) Resolve(headers []string) (map[Column]int, []Column) {
	found := make(map[Column]int, len(CoreColumns))
	var missing []Column
	for _, col := range CoreColumns {
		idx := lookupHeader(headers, m[col])
		if idx < 0 && col == ColumnGeneID && len(headers) > 0 && strings.TrimSpace(headers[0]) == "" {
			idx = 0
		}
		if idx < 0 {
			missing = append(missing, col)
			continue
		}
		found[col] = idx
	}
	return found, missing
}

func lookupHeader(headers []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range headers {
			if h == alias {
				return i
			}
		}
	}
	for _, alias := range aliases {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), alias) {
				return i
			}
		}
	}
	return -1
}
