// Package volcano turns results rows into volcano-plot data: one point per
// row at (log fold change, -log10 p-value) colored by significance class.
package volcano

import (
	"encoding/json"
	"math"

	"deview/domain/results"
)

// Point is one plotted gene. Index points back into the source table so
// tooltips and table rows stay associated.
type Point struct {
	Index     int           `json:"index"`
	GeneID    string        `json:"gene_id"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Class     results.Class `json:"class"`
	LogFC     float64       `json:"log_fold_change"`
	PValue    float64       `json:"p_value"`
	AdjPValue float64       `json:"adjusted_p_value"`
}

// Plot is the renderer output. Excluded counts rows that have no defined
// position: a p-value that is not positive, or a missing or infinite fold change.
type Plot struct {
	Points    []Point               `json:"points"`
	Excluded  int                   `json:"excluded"`
	Counts    map[results.Class]int `json:"counts"`
	Threshold results.Threshold     `json:"threshold"`
}

// MarshalJSON writes a missing adjusted p-value as null.
func (p Point) MarshalJSON() ([]byte, error) {
	type point Point
	return json.Marshal(struct {
		point
		AdjPValue *float64 `json:"adjusted_p_value"`
	}{point(p), results.Finite(p.AdjPValue)})
}

// Total returns the number of rows considered, plotted or not.
func (p Plot) Total() int {
	return len(p.Points) + p.Excluded
}

// IsEmpty reports whether nothing can be drawn.
func (p Plot) IsEmpty() bool {
	return len(p.Points) == 0
}

// Classify assigns the significance class of row under threshold. By default
// the cutoff applies to the adjusted p-value.
func Classify(row results.Row, threshold results.Threshold) results.Class {
	if threshold.Significance(row) <= threshold.PCutoff {
		if row.LogFC >= threshold.FoldChangeCutoff {
			return results.ClassUp
		}
		if row.LogFC <= -threshold.FoldChangeCutoff {
			return results.ClassDown
		}
	}
	return results.ClassNotSignificant
}

// Render builds plot data for the rows of view, or for every row of table
// when view is nil. Rendering is stateless and keeps input order.
func Render(table *results.Table, view *results.View, threshold results.Threshold) Plot {
	plot := Plot{
		Points:    []Point{},
		Counts:    make(map[results.Class]int, len(results.Classes)),
		Threshold: threshold,
	}
	for _, c := range results.Classes {
		plot.Counts[c] = 0
	}
	if table == nil {
		return plot
	}

	add := func(i int) {
		row := table.Rows[i]
		if !(row.PValue > 0) || math.IsNaN(row.LogFC) || math.IsInf(row.LogFC, 0) {
			plot.Excluded++
			return
		}
		y := -math.Log10(row.PValue)
		if y == 0 {
			y = 0 // drop the sign of -0 for p = 1
		}
		class := Classify(row, threshold)
		plot.Counts[class]++
		plot.Points = append(plot.Points, Point{
			Index:     i,
			GeneID:    row.GeneID,
			X:         row.LogFC,
			Y:         y,
			Class:     class,
			LogFC:     row.LogFC,
			PValue:    row.PValue,
			AdjPValue: row.AdjPValue,
		})
	}

	if view == nil {
		for i := range table.Rows {
			add(i)
		}
	} else {
		for _, i := range view.Indices {
			add(i)
		}
	}
	return plot
}
