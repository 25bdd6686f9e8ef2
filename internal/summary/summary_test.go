package summary

import (
	"math"
	"testing"

	"deview/domain/results"
	"deview/internal/volcano"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table() *results.Table {
	return &results.Table{Rows: []results.Row{
		{GeneID: "GENE1", LogFC: 2.5, PValue: 0.001, AdjPValue: 0.01},
		{GeneID: "GENE2", LogFC: -3.0, PValue: 0.02, AdjPValue: 0.1},
		{GeneID: "GENE3", LogFC: 0.1, PValue: 0.5, AdjPValue: 0.9},
		{GeneID: "GENE3", LogFC: math.NaN(), PValue: 1, AdjPValue: 1},
	}}
}

func TestCompute(t *testing.T) {
	tb := table()
	plot := volcano.Render(tb, nil, results.DefaultThreshold())
	s := Compute(tb, nil, plot)

	assert.Equal(t, 4, s.Genes)
	assert.Equal(t, 4, s.TotalGenes)
	assert.Equal(t, 1, s.Excluded)
	assert.Equal(t, 1, s.Classes[results.ClassUp])
	assert.Equal(t, 1, s.DuplicateIDs)

	assert.Equal(t, 3, s.LogFC.N)
	assert.InDelta(t, -0.4/3, s.LogFC.Mean, 1e-9)
	assert.Equal(t, 0.1, s.LogFC.Median)
	assert.Equal(t, -3.0, s.LogFC.Min)
	assert.Equal(t, 2.5, s.LogFC.Max)

	require.Len(t, s.PValues, HistogramBins)
	total := 0
	for _, b := range s.PValues {
		total += b.Count
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, s.PValues[0].Count, "0.001 and 0.02 fall in [0, 0.05)")
	assert.Equal(t, 1, s.PValues[HistogramBins-1].Count, "p = 1 lands in the top bin")
}

func TestCompute_View(t *testing.T) {
	tb := table()
	view := results.View{Indices: []int{0}}
	plot := volcano.Render(tb, &view, results.DefaultThreshold())
	s := Compute(tb, &view, plot)

	assert.Equal(t, 1, s.Genes)
	assert.Equal(t, 4, s.TotalGenes)
	assert.Equal(t, 0, s.DuplicateIDs)
}

func TestCompute_Empty(t *testing.T) {
	tb := &results.Table{}
	s := Compute(tb, nil, volcano.Render(tb, nil, results.DefaultThreshold()))
	assert.Equal(t, 0, s.Genes)
	assert.Equal(t, 0, s.LogFC.N)
	assert.Len(t, s.PValues, HistogramBins)
}
