// Package enrichment ranks annotation terms (GO terms, KEGG pathways) by
// fold enrichment of a gene list against an annotation background:
//
//	(count / list size) / (term total / annotation pairs)
//
// It is a descriptive ratio; no significance test is applied.
package enrichment

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// DefaultTop is how many terms a report keeps.
const DefaultTop = 30

// Annotations is a gene to term table read from a two-column TSV.
type Annotations struct {
	pairs  int
	totals map[string]int
	terms  map[string][]string
}

// Pairs returns the number of gene-term lines, the background size.
func (a *Annotations) Pairs() int { return a.pairs }

// ParseAnnotations reads "GeneID<TAB>Term" lines. There is no header;
// blank lines and lines starting with # are skipped, repeated pairs count once.
func ParseAnnotations(r io.Reader) (*Annotations, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	a := &Annotations{totals: map[string]int{}, terms: map[string][]string{}}
	seen := map[[2]string]bool{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read annotations: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("annotations line %d: expected gene and term separated by a tab", line)
		}
		gene, term := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if gene == "" || term == "" {
			return nil, fmt.Errorf("annotations line %d: empty gene or term", line)
		}
		key := [2]string{gene, term}
		if seen[key] {
			continue
		}
		seen[key] = true
		a.pairs++
		a.totals[term]++
		a.terms[gene] = append(a.terms[gene], term)
	}
	if a.pairs == 0 {
		return nil, fmt.Errorf("annotations are empty")
	}
	return a, nil
}

// Term is one ranked annotation term.
type Term struct {
	Term       string  `json:"term"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	Enrichment float64 `json:"enrichment"`
}

// Report is the ranking of one gene list.
type Report struct {
	Genes     int    `json:"genes"`
	Annotated int    `json:"annotated"`
	Terms     []Term `json:"terms"`
}

// Enrich ranks the terms hit by genes, highest enrichment first, keeping at
// most top terms (all when top <= 0). Duplicate genes count once.
func Enrich(genes []string, a *Annotations, top int) Report {
	unique := map[string]bool{}
	for _, g := range genes {
		if g = strings.TrimSpace(g); g != "" {
			unique[g] = true
		}
	}

	report := Report{Genes: len(unique), Terms: []Term{}}
	counts := map[string]int{}
	for g := range unique {
		terms, ok := a.terms[g]
		if !ok {
			continue
		}
		report.Annotated++
		for _, t := range terms {
			counts[t]++
		}
	}
	if report.Genes == 0 {
		return report
	}

	for term, n := range counts {
		total := a.totals[term]
		report.Terms = append(report.Terms, Term{
			Term:       term,
			Count:      n,
			Total:      total,
			Enrichment: (float64(n) / float64(report.Genes)) / (float64(total) / float64(a.pairs)),
		})
	}
	sort.Slice(report.Terms, func(i, j int) bool {
		x, y := report.Terms[i], report.Terms[j]
		if x.Enrichment != y.Enrichment {
			return x.Enrichment > y.Enrichment
		}
		if x.Count != y.Count {
			return x.Count > y.Count
		}
		return x.Term < y.Term
	})
	if top > 0 && len(report.Terms) > top {
		report.Terms = report.Terms[:top]
	}
	return report
}

// WriteCSV writes the ranked terms with their counts.
func WriteCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"term", "count", "total", "enrichment"}); err != nil {
		return err
	}
	for _, t := range report.Terms {
		row := []string{t.Term, strconv.Itoa(t.Count), strconv.Itoa(t.Total), strconv.FormatFloat(t.Enrichment, 'g', 6, 64)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
