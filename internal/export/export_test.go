package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"

	"deview/domain/results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixture() *results.Table {
	return &results.Table{
		Source:  "contrast.csv",
		Headers: []string{"", "logFC", "AveExpr", "P.Value", "adj.P.Val"},
		Mapping: map[results.Column]string{
			results.ColumnGeneID:    "",
			results.ColumnLogFC:     "logFC",
			results.ColumnPValue:    "P.Value",
			results.ColumnAdjPValue: "adj.P.Val",
		},
		Rows: []results.Row{
			{GeneID: "GENE1", LogFC: 2.5, PValue: 0.001, AdjPValue: 0.01, Extra: map[string]string{"AveExpr": "7.1"}},
			{GeneID: "GENE2", LogFC: -3.0, PValue: 0.02, AdjPValue: 0.1, Extra: map[string]string{"AveExpr": "5.4"}},
			{GeneID: "GENE3", LogFC: math.NaN(), PValue: 0.5, AdjPValue: 0.9, Extra: map[string]string{"AveExpr": "3.0"}},
		},
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t,
		[]string{"gene_id", "log_fold_change", "p_value", "adjusted_p_value", "AveExpr"},
		Header(fixture()))
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name string
		view *results.View
		want [][]string
	}{
		{
			name: "whole table",
			want: [][]string{
				{"gene_id", "log_fold_change", "p_value", "adjusted_p_value", "AveExpr"},
				{"GENE1", "2.5", "0.001", "0.01", "7.1"},
				{"GENE2", "-3", "0.02", "0.1", "5.4"},
				{"GENE3", "NA", "0.5", "0.9", "3.0"},
			},
		},
		{
			name: "view order",
			view: &results.View{Indices: []int{1, 0}},
			want: [][]string{
				{"gene_id", "log_fold_change", "p_value", "adjusted_p_value", "AveExpr"},
				{"GENE2", "-3", "0.02", "0.1", "5.4"},
				{"GENE1", "2.5", "0.001", "0.01", "7.1"},
			},
		},
		{
			name: "empty view",
			view: &results.View{Indices: []int{}},
			want: [][]string{
				{"gene_id", "log_fold_change", "p_value", "adjusted_p_value", "AveExpr"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, fixture(), tt.view))

			got, err := csv.NewReader(&buf).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, fixture(), &results.View{Indices: []int{0, 2}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "gene_id", rows[0][0])
	assert.Equal(t, "AveExpr", rows[0][4])
	assert.Equal(t, "GENE1", rows[1][0])
	assert.Equal(t, "2.5", rows[1][1])
	assert.Equal(t, "GENE3", rows[2][0])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "3.0", rows[2][4])
}
