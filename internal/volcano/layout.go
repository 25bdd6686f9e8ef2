package volcano

import (
	"fmt"
	"math"

	"deview/domain/results"
)

// Palette maps classes to fill colors shared by the SVG and PNG renderings.
var Palette = map[results.Class]string{
	results.ClassUp:             "#d62728",
	results.ClassDown:           "#1f77b4",
	results.ClassNotSignificant: "#9e9e9e",
}

// Margins of the plotting area inside the SVG canvas.
const (
	marginLeft   = 56
	marginRight  = 16
	marginTop    = 16
	marginBottom = 44
)

// Tick is an axis label at a pixel offset.
type Tick struct {
	Pos   float64
	Label string
}

// Marker is a positioned point ready for an SVG <circle>.
type Marker struct {
	Point
	CX    float64
	CY    float64
	Color string
}

// Canvas is a plot laid out in pixel space.
type Canvas struct {
	Width, Height int
	Left, Top     float64
	Right, Bottom float64
	Markers       []Marker
	XTicks        []Tick
	YTicks        []Tick
	// Guides are the x pixel positions of the +/- fold-change cutoffs that
	// fall inside the visible range.
	Guides []float64
	XLabel string
	YLabel string
}

// Layout maps plot into a width x height canvas. Axis bounds are padded and
// rounded; the y axis always starts at zero.
func Layout(plot Plot, width, height int) Canvas {
	c := Canvas{
		Width:  width,
		Height: height,
		Left:   marginLeft,
		Top:    marginTop,
		Right:  float64(width - marginRight),
		Bottom: float64(height - marginBottom),
		XLabel: "log2 fold change",
		YLabel: "-log10(p-value)",
	}

	xMin, xMax, yMax := Bounds(plot)
	sx := func(x float64) float64 { return c.Left + (x-xMin)/(xMax-xMin)*(c.Right-c.Left) }
	sy := func(y float64) float64 { return c.Bottom - y/yMax*(c.Bottom-c.Top) }

	c.Markers = make([]Marker, 0, len(plot.Points))
	for _, p := range plot.Points {
		c.Markers = append(c.Markers, Marker{
			Point: p,
			CX:    round2(sx(clamp(p.X, xMin, xMax))),
			CY:    round2(sy(clamp(p.Y, 0, yMax))),
			Color: Palette[p.Class],
		})
	}
	for _, v := range NiceTicks(xMin, xMax, 7) {
		if v >= xMin && v <= xMax {
			c.XTicks = append(c.XTicks, Tick{Pos: round2(sx(v)), Label: FormatTick(v)})
		}
	}
	for _, v := range NiceTicks(0, yMax, 6) {
		if v >= 0 && v <= yMax {
			c.YTicks = append(c.YTicks, Tick{Pos: round2(sy(v)), Label: FormatTick(v)})
		}
	}
	fc := plot.Threshold.FoldChangeCutoff
	for _, g := range []float64{-fc, fc} {
		if g > xMin && g < xMax {
			c.Guides = append(c.Guides, round2(sx(g)))
		}
		if fc == 0 {
			break
		}
	}
	return c
}

// Bounds returns symmetric x bounds around zero and the y maximum, padded
// to nice values. Infinite coordinates are ignored.
func Bounds(plot Plot) (xMin, xMax, yMax float64) {
	xAbs := plot.Threshold.FoldChangeCutoff
	yMax = 1
	for _, p := range plot.Points {
		if !math.IsInf(p.X, 0) && math.Abs(p.X) > xAbs {
			xAbs = math.Abs(p.X)
		}
		if !math.IsInf(p.Y, 0) && p.Y > yMax {
			yMax = p.Y
		}
	}
	if xAbs <= 0 {
		xAbs = 1
	}
	_, xMax = NiceAxisBounds(-xAbs, xAbs)
	_, yMax = NiceAxisBounds(0, yMax)
	return -xMax, xMax, yMax
}

// NiceAxisBounds pads [min, max] by 5% and rounds outward to the span's
// order of magnitude.
func NiceAxisBounds(min, max float64) (float64, float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return min, max
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	pad := span * 0.05
	a := min - pad
	b := max + pad
	mag := math.Pow(10, math.Floor(math.Log10(span)))
	if !math.IsInf(mag, 0) && mag > 0 {
		a = math.Floor(a/mag) * mag
		b = math.Ceil(b/mag) * mag
	}
	return a, b
}

// NiceTicks returns roughly n tick values covering [min, max] on 1/2/2.5/5
// multiples of a power of ten.
func NiceTicks(min, max float64, n int) []float64 {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	mag := math.Pow(10, math.Floor(math.Log10((max-min)/float64(n-1))))
	bestStep, bestScore := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Ceil((max - min) / step)
		if count < 2 {
			count = 2
		}
		if score := math.Abs(count - float64(n)); score < bestScore {
			bestScore, bestStep = score, step
		}
	}
	start := math.Floor(min/bestStep) * bestStep
	end := math.Ceil(max/bestStep) * bestStep
	var ticks []float64
	for v := start; v <= end+bestStep/2; v += bestStep {
		ticks = append(ticks, round2(v))
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

// FormatTick renders an axis value without trailing noise.
func FormatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	av := math.Abs(v)
	switch {
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 10 || v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	case av >= 1:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
