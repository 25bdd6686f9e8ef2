package results

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnMapping_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		expected map[Column]int
		missing  []Column
	}{
		{
			name:     "canonical names",
			headers:  []string{"gene_id", "log_fold_change", "p_value", "adjusted_p_value"},
			expected: map[Column]int{ColumnGeneID: 0, ColumnLogFC: 1, ColumnPValue: 2, ColumnAdjPValue: 3},
		},
		{
			name:     "limma topTable with row names",
			headers:  []string{"", "logFC", "AveExpr", "t", "P.Value", "adj.P.Val", "B"},
			expected: map[Column]int{ColumnGeneID: 0, ColumnLogFC: 1, ColumnPValue: 4, ColumnAdjPValue: 5},
		},
		{
			name:     "DESeq2 case-insensitive",
			headers:  []string{"GENE_ID", "baseMean", "log2FoldChange", "lfcSE", "stat", "pvalue", "PADJ"},
			expected: map[Column]int{ColumnGeneID: 0, ColumnLogFC: 2, ColumnPValue: 5, ColumnAdjPValue: 6},
		},
		{
			name:     "missing p-value",
			headers:  []string{"gene_id", "logFC", "FDR"},
			expected: map[Column]int{ColumnGeneID: 0, ColumnLogFC: 1, ColumnAdjPValue: 2},
			missing:  []Column{ColumnPValue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, missing := DefaultColumnMapping().Resolve(tt.headers)
			assert.Equal(t, tt.expected, found)
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestColumnMapping_WithAliases(t *testing.T) {
	base := DefaultColumnMapping()
	custom := base.WithAliases(ColumnGeneID, "Locus", " ")

	found, missing := custom.Resolve([]string{"Locus", "logFC", "P.Value", "adj.P.Val"})
	assert.Empty(t, missing)
	assert.Equal(t, 0, found[ColumnGeneID])
	assert.NotContains(t, base[ColumnGeneID], "Locus", "base mapping must not change")
}

func TestParseNumber(t *testing.T) {
	v, err := ParseNumber("NA")
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = ParseNumber(" 1.5e-8 ")
	assert.NoError(t, err)
	assert.Equal(t, 1.5e-8, v)

	_, err = ParseNumber("abc")
	assert.Error(t, err)
}

func TestRowNumberAndText(t *testing.T) {
	row := Row{GeneID: "G", LogFC: -2, PValue: 0.01, AdjPValue: 0.02, Extra: map[string]string{"AveExpr": "3.5", "note": "x"}}

	v, ok := row.Number("AveExpr")
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	_, ok = row.Number("note")
	assert.False(t, ok)
	_, ok = row.Number(ColumnGeneID)
	assert.False(t, ok)

	assert.Equal(t, "-2", row.Text(ColumnLogFC))
	assert.Equal(t, "x", row.Text("note"))
}

func TestTable_ExtraHeadersAndColumns(t *testing.T) {
	table := &Table{
		Headers: []string{"", "logFC", "AveExpr", "P.Value", "adj.P.Val"},
		Mapping: map[Column]string{ColumnGeneID: "", ColumnLogFC: "logFC", ColumnPValue: "P.Value", ColumnAdjPValue: "adj.P.Val"},
	}
	assert.Equal(t, []string{"AveExpr"}, table.ExtraHeaders())
	assert.True(t, table.HasColumn("AveExpr"))
	assert.False(t, table.HasColumn("B"))
	assert.Equal(t, append(append([]Column(nil), CoreColumns...), "AveExpr"), table.Columns())
}

func TestThreshold_Validate(t *testing.T) {
	assert.NoError(t, DefaultThreshold().Validate())
	assert.NoError(t, Threshold{PCutoff: 1, FoldChangeCutoff: 0, Basis: ColumnPValue}.Validate())
	assert.Error(t, Threshold{PCutoff: 1.5, FoldChangeCutoff: 1}.Validate())
	assert.Error(t, Threshold{PCutoff: 0.05, FoldChangeCutoff: -1}.Validate())
	assert.Error(t, Threshold{PCutoff: math.NaN(), FoldChangeCutoff: 1}.Validate())
	assert.Error(t, Threshold{PCutoff: 0.05, FoldChangeCutoff: 1, Basis: ColumnLogFC}.Validate())
}

func TestThreshold_Significance(t *testing.T) {
	row := Row{PValue: 0.01, AdjPValue: 0.2}
	assert.Equal(t, 0.2, DefaultThreshold().Significance(row))
	assert.Equal(t, 0.2, Threshold{}.Significance(row))
	assert.Equal(t, 0.01, Threshold{Basis: ColumnPValue}.Significance(row))
}
