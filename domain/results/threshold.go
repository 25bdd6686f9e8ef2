package results

import (
	"fmt"
	"math"
)

// Class is the significance category a row is colored by.
type Class string

const (
	ClassUp             Class = "up"
	ClassDown           Class = "down"
	ClassNotSignificant Class = "not_significant"
)

// Classes lists the categories in legend order.
var Classes = []Class{ClassUp, ClassDown, ClassNotSignificant}

// Threshold is the significance cut used for coloring only. Basis selects
// which p-value column PCutoff applies to; empty means adjusted_p_value.
type Threshold struct {
	PCutoff          float64 `json:"p_cutoff"`
	FoldChangeCutoff float64 `json:"fold_change_cutoff"`
	Basis            Column  `json:"basis,omitempty"`
}

// DefaultThreshold mirrors the usual adj.P.Val < 0.05, |logFC| > 1 cut.
func DefaultThreshold() Threshold {
	return Threshold{PCutoff: 0.05, FoldChangeCutoff: 1.0, Basis: ColumnAdjPValue}
}

// BasisColumn returns the p-value column the cutoff is compared against.
func (t Threshold) BasisColumn() Column {
	if t.Basis == ColumnPValue {
		return ColumnPValue
	}
	return ColumnAdjPValue
}

// Significance returns the p-value of row that the cutoff applies to.
func (t Threshold) Significance(row Row) float64 {
	if t.BasisColumn() == ColumnPValue {
		return row.PValue
	}
	return row.AdjPValue
}

// Validate rejects cutoffs that cannot classify anything sensibly.
func (t Threshold) Validate() error {
	if math.IsNaN(t.PCutoff) || t.PCutoff < 0 || t.PCutoff > 1 {
		return fmt.Errorf("p-value cutoff must be within [0, 1], got %v", t.PCutoff)
	}
	if math.IsNaN(t.FoldChangeCutoff) || math.IsInf(t.FoldChangeCutoff, 0) || t.FoldChangeCutoff < 0 {
		return fmt.Errorf("fold-change cutoff must be a finite value >= 0, got %v", t.FoldChangeCutoff)
	}
	if t.Basis != "" && t.Basis != ColumnAdjPValue && t.Basis != ColumnPValue {
		return fmt.Errorf("significance basis must be %s or %s, got %q", ColumnAdjPValue, ColumnPValue, t.Basis)
	}
	return nil
}
