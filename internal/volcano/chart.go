package volcano

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"deview/domain/results"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartOptions controls the static PNG rendering.
type ChartOptions struct {
	Title  string
	Width  int
	Height int
}

// DefaultChartOptions returns a landscape chart sized for reports.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Title: "Volcano plot", Width: 960, Height: 640}
}

var classLabels = map[results.Class]string{
	results.ClassUp:             "Up",
	results.ClassDown:           "Down",
	results.ClassNotSignificant: "Not significant",
}

// pointStyle returns a style that renders points only (no connecting line)
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

func guideStyle() chart.Style {
	return chart.Style{
		StrokeWidth:     1,
		StrokeColor:     drawing.ColorFromHex("555555"),
		StrokeDashArray: []float64{4, 4},
	}
}

// RenderPNG writes plot as a PNG scatter chart, one series per class. An
// empty plot produces a blank placeholder image instead of an error.
func RenderPNG(w io.Writer, plot Plot, opts ChartOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultChartOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	if plot.IsEmpty() {
		return png.Encode(w, blank(opts.Width, opts.Height))
	}

	xMin, xMax, yMax := Bounds(plot)

	var series []chart.Series
	// Not-significant first so colored points draw on top.
	for _, class := range []results.Class{results.ClassNotSignificant, results.ClassDown, results.ClassUp} {
		var xs, ys []float64
		for _, p := range plot.Points {
			if p.Class != class {
				continue
			}
			xs = append(xs, clamp(p.X, xMin, xMax))
			ys = append(ys, clamp(p.Y, 0, yMax))
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (%d)", classLabels[class], len(xs)),
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(drawing.ColorFromHex(Palette[class][1:])),
		})
	}

	fc := plot.Threshold.FoldChangeCutoff
	if fc > 0 && fc < xMax {
		for _, g := range []float64{-fc, fc} {
			series = append(series, chart.ContinuousSeries{
				Name:    fmt.Sprintf("logFC %+g", g),
				XValues: []float64{g, g},
				YValues: []float64{0, yMax},
				Style:   guideStyle(),
			})
		}
	}

	xTicks := chartTicks(NiceTicks(xMin, xMax, 7), xMin, xMax)
	yTicks := chartTicks(NiceTicks(0, yMax, 6), 0, yMax)

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "log2 fold change",
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Name:  "-log10(p-value)",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
			Ticks: yTicks,
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render volcano chart: %w", err)
	}
	return nil
}

func chartTicks(values []float64, lo, hi float64) []chart.Tick {
	var ticks []chart.Tick
	for _, v := range values {
		if v >= lo && v <= hi {
			ticks = append(ticks, chart.Tick{Value: v, Label: FormatTick(v)})
		}
	}
	return ticks
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, bg)
		}
	}
	return img
}
