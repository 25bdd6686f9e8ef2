package volcano

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"deview/domain/results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable() *results.Table {
	return &results.Table{Rows: []results.Row{
		{GeneID: "GENE1", LogFC: 2.5, PValue: 0.001, AdjPValue: 0.01},
		{GeneID: "GENE2", LogFC: -3.0, PValue: 0.02, AdjPValue: 0.1},
		{GeneID: "GENE3", LogFC: 0.1, PValue: 0.5, AdjPValue: 0.9},
	}}
}

func TestClassify_RawPValueBasis(t *testing.T) {
	th := results.Threshold{PCutoff: 0.05, FoldChangeCutoff: 1.0, Basis: results.ColumnPValue}
	table := scenarioTable()

	assert.Equal(t, results.ClassUp, Classify(table.Rows[0], th))
	assert.Equal(t, results.ClassDown, Classify(table.Rows[1], th))
	assert.Equal(t, results.ClassNotSignificant, Classify(table.Rows[2], th))
}

func TestClassify_AdjustedPValueBasis(t *testing.T) {
	th := results.Threshold{PCutoff: 0.05, FoldChangeCutoff: 1.0}
	table := scenarioTable()

	// GENE2's adjusted p-value (0.1) is above the cutoff.
	assert.Equal(t, results.ClassUp, Classify(table.Rows[0], th))
	assert.Equal(t, results.ClassNotSignificant, Classify(table.Rows[1], th))
	assert.Equal(t, results.ClassNotSignificant, Classify(table.Rows[2], th))

	loose := results.Threshold{PCutoff: 0.1, FoldChangeCutoff: 1.0}
	assert.Equal(t, results.ClassDown, Classify(table.Rows[1], loose))
}

func TestClassify_Boundaries(t *testing.T) {
	th := results.Threshold{PCutoff: 0.05, FoldChangeCutoff: 1.0}
	tests := []struct {
		name     string
		row      results.Row
		expected results.Class
	}{
		{"exactly at fold change cutoff", results.Row{LogFC: 1.0, AdjPValue: 0.01}, results.ClassUp},
		{"exactly at negative cutoff", results.Row{LogFC: -1.0, AdjPValue: 0.01}, results.ClassDown},
		{"exactly at p cutoff", results.Row{LogFC: 2, AdjPValue: 0.05}, results.ClassUp},
		{"inside fold change band", results.Row{LogFC: 0.99, AdjPValue: 0.0001}, results.ClassNotSignificant},
		{"NaN adjusted p", results.Row{LogFC: 5, AdjPValue: math.NaN()}, results.ClassNotSignificant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.row, th))
		})
	}
}

func TestRender_PointsAndTooltipAssociation(t *testing.T) {
	table := scenarioTable()
	plot := Render(table, nil, results.DefaultThreshold())

	require.Len(t, plot.Points, 3)
	assert.Equal(t, 0, plot.Excluded)
	for i, p := range plot.Points {
		row := table.Rows[p.Index]
		assert.Equal(t, i, p.Index)
		assert.Equal(t, row.GeneID, p.GeneID)
		assert.Equal(t, row.LogFC, p.X)
		assert.InDelta(t, -math.Log10(row.PValue), p.Y, 1e-12)
	}
	assert.InDelta(t, 3.0, plot.Points[0].Y, 1e-12)
	assert.Equal(t, 1, plot.Counts[results.ClassUp])
	assert.Equal(t, 2, plot.Counts[results.ClassNotSignificant])
}

func TestRender_ZeroPValueExcluded(t *testing.T) {
	table := scenarioTable()
	before := Render(table, nil, results.DefaultThreshold())

	table.Rows = append(table.Rows, results.Row{GeneID: "ZERO", LogFC: 4, PValue: 0, AdjPValue: 0})
	after := Render(table, nil, results.DefaultThreshold())

	assert.Equal(t, before.Excluded+1, after.Excluded)
	assert.Equal(t, len(before.Points), len(after.Points))
	for _, p := range after.Points {
		assert.NotEqual(t, "ZERO", p.GeneID)
	}
}

func TestRender_NaNExcluded(t *testing.T) {
	table := &results.Table{Rows: []results.Row{
		{GeneID: "A", LogFC: 1, PValue: math.NaN()},
		{GeneID: "B", LogFC: math.NaN(), PValue: 0.1},
		{GeneID: "C", LogFC: 1, PValue: 1},
	}}
	plot := Render(table, nil, results.DefaultThreshold())
	assert.Equal(t, 2, plot.Excluded)
	require.Len(t, plot.Points, 1)
	assert.False(t, math.Signbit(plot.Points[0].Y))
}

func TestRender_ViewSubsetAndOrder(t *testing.T) {
	table := scenarioTable()
	view := results.View{Indices: []int{2, 0}}
	plot := Render(table, &view, results.DefaultThreshold())

	require.Len(t, plot.Points, 2)
	assert.Equal(t, "GENE3", plot.Points[0].GeneID)
	assert.Equal(t, "GENE1", plot.Points[1].GeneID)
}

func TestRender_Deterministic(t *testing.T) {
	table := scenarioTable()
	th := results.DefaultThreshold()
	assert.Equal(t, Render(table, nil, th), Render(table, nil, th))
}

func TestRender_EmptyTable(t *testing.T) {
	plot := Render(&results.Table{}, nil, results.DefaultThreshold())
	assert.True(t, plot.IsEmpty())
	assert.Equal(t, 0, plot.Excluded)
	assert.Equal(t, 0, plot.Total())

	plot = Render(nil, nil, results.DefaultThreshold())
	assert.True(t, plot.IsEmpty())
}

func TestLayout_MarkersInsidePlotArea(t *testing.T) {
	plot := Render(scenarioTable(), nil, results.DefaultThreshold())
	c := Layout(plot, 640, 420)

	require.Len(t, c.Markers, 3)
	for _, m := range c.Markers {
		assert.GreaterOrEqual(t, m.CX, c.Left)
		assert.LessOrEqual(t, m.CX, c.Right)
		assert.GreaterOrEqual(t, m.CY, c.Top)
		assert.LessOrEqual(t, m.CY, c.Bottom)
		assert.Equal(t, Palette[m.Class], m.Color)
	}
	assert.Len(t, c.Guides, 2)
	assert.NotEmpty(t, c.XTicks)
	assert.NotEmpty(t, c.YTicks)
}

func TestNiceAxisBounds(t *testing.T) {
	lo, hi := NiceAxisBounds(0, 3)
	assert.LessOrEqual(t, lo, 0.0)
	assert.GreaterOrEqual(t, hi, 3.0)

	lo, hi = NiceAxisBounds(5, 5)
	assert.Less(t, lo, hi)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	plot := Render(scenarioTable(), nil, results.DefaultThreshold())
	require.NoError(t, RenderPNG(&buf, plot, ChartOptions{Title: "test", Width: 400, Height: 300}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
}

func TestRenderPNG_EmptyPlotIsBlank(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, Plot{}, ChartOptions{Width: 50, Height: 40}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}
