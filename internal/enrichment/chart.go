package enrichment

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderPNG draws the ranked terms as a bar chart of fold enrichment.
func RenderPNG(w io.Writer, report Report, title string, width, height int) error {
	if len(report.Terms) == 0 {
		return fmt.Errorf("no annotated genes to plot")
	}
	bars := make([]chart.Value, len(report.Terms))
	for i, t := range report.Terms {
		bars[i] = chart.Value{
			Label: t.Term,
			Value: t.Enrichment,
			Style: chart.Style{FillColor: drawing.ColorFromHex("4c78a8"), StrokeColor: drawing.ColorFromHex("4c78a8")},
		}
	}

	barWidth := (width - 120) / len(bars)
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 4 {
		barWidth = 4
	}

	graph := chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		XAxis:      chart.Style{TextRotationDegrees: 45, FontSize: 8},
		YAxis: chart.YAxis{
			Name: "Fold enrichment",
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
