// Package summary computes the descriptive panel shown next to the volcano
// plot: class counts, fold-change distribution and a p-value histogram.
package summary

import (
	"math"
	"sort"

	"deview/domain/results"
	"deview/internal/volcano"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistogramBins is the number of equal-width p-value bins.
const HistogramBins = 20

// Bin is one histogram bucket over [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Distribution describes the finite values of one column.
type Distribution struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary is the descriptive panel for one view of a table.
type Summary struct {
	Genes        int                   `json:"genes"`
	TotalGenes   int                   `json:"total_genes"`
	Classes      map[results.Class]int `json:"classes"`
	Excluded     int                   `json:"excluded"`
	LogFC        Distribution          `json:"log_fold_change"`
	PValues      []Bin                 `json:"p_value_histogram"`
	DuplicateIDs int                   `json:"duplicate_ids"`
}

// Compute summarises the rows of view (all rows when view is nil), reusing
// the class counts of an already rendered plot.
func Compute(table *results.Table, view *results.View, plot volcano.Plot) Summary {
	s := Summary{
		TotalGenes: table.Len(),
		Classes:    plot.Counts,
		Excluded:   plot.Excluded,
		PValues:    []Bin{},
	}
	if table == nil {
		return s
	}

	var rows []results.Row
	if view == nil {
		rows = table.Rows
	} else {
		rows = view.Rows(table)
	}
	s.Genes = len(rows)
	s.LogFC = describe(rows)
	s.PValues = pValueHistogram(rows)
	s.DuplicateIDs = countDuplicates(rows)
	return s
}

func describe(rows []results.Row) Distribution {
	data := make(stats.Float64Data, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(r.LogFC) && !math.IsInf(r.LogFC, 0) {
			data = append(data, r.LogFC)
		}
	}
	d := Distribution{N: data.Len()}
	if d.N == 0 {
		return d
	}
	d.Mean, _ = stats.Mean(data)
	d.Median, _ = stats.Median(data)
	d.StdDev, _ = stats.StandardDeviation(data)
	d.Min, _ = stats.Min(data)
	d.Max, _ = stats.Max(data)
	return d
}

// pValueHistogram bins raw p-values over [0, 1]. A flat histogram with a
// spike near zero is the healthy shape for a DE experiment.
func pValueHistogram(rows []results.Row) []Bin {
	x := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.PValue >= 0 && r.PValue <= 1 {
			x = append(x, r.PValue)
		}
	}

	dividers := make([]float64, HistogramBins+1)
	floats.Span(dividers, 0, 1)
	bins := make([]Bin, HistogramBins)
	for i := range bins {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1]}
	}
	if len(x) == 0 {
		return bins
	}

	// The last divider must exceed every value; p = 1 falls in the top bin.
	dividers[HistogramBins] = math.Nextafter(1, 2)
	sort.Float64s(x)
	counts := stat.Histogram(nil, dividers, x, nil)
	for i, c := range counts {
		bins[i].Count = int(c)
	}
	return bins
}

func countDuplicates(rows []results.Row) int {
	seen := make(map[string]int, len(rows))
	dups := 0
	for _, r := range rows {
		seen[r.GeneID]++
		if seen[r.GeneID] == 2 {
			dups++
		}
	}
	return dups
}
