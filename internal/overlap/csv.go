package overlap

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// WriteIntersectionsCSV writes one line per combination: Sets, Size, Elements.
func WriteIntersectionsCSV(w io.Writer, res Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Sets", "Size", "Elements"}); err != nil {
		return err
	}
	for _, in := range res.Intersections {
		if err := cw.Write([]string{in.Label(), strconv.Itoa(in.Size), strings.Join(in.Genes, ", ")}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExclusivesCSV writes one line per set with the genes no other set has.
func WriteExclusivesCSV(w io.Writer, res Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Set", "Size", "Exclusive Elements"}); err != nil {
		return err
	}
	for _, ex := range res.Exclusives {
		if err := cw.Write([]string{ex.Set, strconv.Itoa(len(ex.Genes)), strings.Join(ex.Genes, ", ")}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
