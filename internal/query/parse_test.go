package query

import (
	"testing"

	"deview/domain/results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected results.Predicate
		hasError bool
	}{
		{name: "empty", input: "  ", expected: nil},
		{
			name:     "single clause",
			input:    "adjusted_p_value <= 0.05",
			expected: results.Predicate{{Column: results.ColumnAdjPValue, Op: results.OpLE, Value: "0.05"}},
		},
		{
			name:  "abs and conjunction",
			input: "abs(log_fold_change) >= 1 and padj < 0.1",
			expected: results.Predicate{
				{Column: results.ColumnLogFC, Abs: true, Op: results.OpGE, Value: "1"},
				{Column: results.ColumnAdjPValue, Op: results.OpLT, Value: "0.1"},
			},
		},
		{
			name:  "pipes, negative literal and separators",
			input: "|logFC| > 2; log_fold_change <= -1",
			expected: results.Predicate{
				{Column: results.ColumnLogFC, Abs: true, Op: results.OpGT, Value: "2"},
				{Column: results.ColumnLogFC, Op: results.OpLE, Value: "-1"},
			},
		},
		{
			name:     "single equals on text",
			input:    "gene_id = 'GENE1'",
			expected: results.Predicate{{Column: results.ColumnGeneID, Op: results.OpEQ, Value: "GENE1"}},
		},
		{name: "no operator", input: "p_value 0.05", hasError: true},
		{name: "missing value", input: "p_value <=", hasError: true},
		{name: "non-numeric literal", input: "p_value <= low", hasError: true},
		{name: "abs of text", input: "abs(gene_id) > 1", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePredicate(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPredicateStringRoundTrip(t *testing.T) {
	pred, err := ParsePredicate("abs(log_fold_change) >= 1, adjusted_p_value <= 0.05")
	require.NoError(t, err)

	again, err := ParsePredicate(pred.String())
	require.NoError(t, err)
	assert.Equal(t, pred, again)
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		input    string
		expected results.SortKey
	}{
		{"", results.SortKey{}},
		{"p_value", results.SortKey{Column: results.ColumnPValue}},
		{"logFC desc", results.SortKey{Column: results.ColumnLogFC, Descending: true}},
		{"-adjusted_p_value", results.SortKey{Column: results.ColumnAdjPValue, Descending: true}},
		{"AveExpr asc", results.SortKey{Column: "AveExpr"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseSortKey(tt.input), tt.input)
	}
}
