// Package overlap intersects the significant gene sets of several results
// tables: every combination of sets with its shared genes, and the genes
// found in only one set.
package overlap

import (
	"fmt"
	"sort"
	"strings"

	"deview/domain/results"
	"deview/internal/volcano"

	"github.com/willf/bitset"
)

// MaxSets bounds a comparison; 6 sets already give 63 combinations.
const MaxSets = 6

// Direction selects which significant genes form a set.
type Direction string

const (
	DirectionBoth Direction = "both"
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts both, up or down; empty means both.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DirectionBoth, nil
	case DirectionBoth, DirectionUp, DirectionDown:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q: use both, up or down", s)
}

func (d Direction) includes(c results.Class) bool {
	switch d {
	case DirectionUp:
		return c == results.ClassUp
	case DirectionDown:
		return c == results.ClassDown
	}
	return c == results.ClassUp || c == results.ClassDown
}

// Set is a named gene set. Genes keep first-seen order without duplicates.
type Set struct {
	Name  string   `json:"name"`
	Genes []string `json:"genes"`
}

// SignificantGenes collects the genes of table that threshold classifies
// in direction d.
func SignificantGenes(name string, table *results.Table, threshold results.Threshold, d Direction) Set {
	set := Set{Name: name, Genes: []string{}}
	if table == nil {
		return set
	}
	seen := make(map[string]bool)
	for _, row := range table.Rows {
		if row.GeneID == "" || seen[row.GeneID] {
			continue
		}
		if d.includes(volcano.Classify(row, threshold)) {
			seen[row.GeneID] = true
			set.Genes = append(set.Genes, row.GeneID)
		}
	}
	return set
}

// Intersection is the genes shared by every set in Sets.
type Intersection struct {
	Sets  []string `json:"sets"`
	Size  int      `json:"size"`
	Genes []string `json:"genes"`
}

// Label joins the set names the way Venn regions are usually written.
func (i Intersection) Label() string {
	return strings.Join(i.Sets, " ∩ ")
}

// Exclusive is the genes of one set that appear in no other.
type Exclusive struct {
	Set   string   `json:"set"`
	Genes []string `json:"genes"`
}

// Result is a complete comparison.
type Result struct {
	Sets          []Set          `json:"sets"`
	Intersections []Intersection `json:"intersections"`
	Exclusives    []Exclusive    `json:"exclusives"`
}

// Options tune gene matching.
type Options struct {
	// CaseSensitive keeps BRCA1 and brca1 apart. Otherwise the first
	// spelling seen is reported.
	CaseSensitive bool
}

// universe assigns every distinct gene an index shared by all sets.
type universe struct {
	index   map[string]uint
	display []string
	fold    bool
}

func (u *universe) add(gene string) uint {
	key := gene
	if u.fold {
		key = strings.ToLower(gene)
	}
	if i, ok := u.index[key]; ok {
		return i
	}
	i := uint(len(u.display))
	u.index[key] = i
	u.display = append(u.display, gene)
	return i
}

func (u *universe) genes(b *bitset.BitSet) []string {
	out := make([]string, 0, b.Count())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		out = append(out, u.display[i])
	}
	sort.Strings(out)
	return out
}

// Compare computes every intersection and the exclusive genes of each set.
// Intersections are ordered by size, largest first, then by label.
func Compare(sets []Set, opts Options) (Result, error) {
	if len(sets) < 2 {
		return Result{}, fmt.Errorf("overlap needs at least 2 sets, got %d", len(sets))
	}
	if len(sets) > MaxSets {
		return Result{}, fmt.Errorf("overlap supports at most %d sets, got %d", MaxSets, len(sets))
	}
	names := make(map[string]bool, len(sets))
	for _, s := range sets {
		if names[s.Name] {
			return Result{}, fmt.Errorf("set name %q is used twice", s.Name)
		}
		names[s.Name] = true
	}

	u := &universe{index: make(map[string]uint), fold: !opts.CaseSensitive}
	members := make([]*bitset.BitSet, len(sets))
	for i, s := range sets {
		members[i] = bitset.New(0)
		for _, g := range s.Genes {
			if g = strings.TrimSpace(g); g != "" {
				members[i].Set(u.add(g))
			}
		}
	}

	res := Result{Sets: sets}
	for mask := 1; mask < 1<<len(sets); mask++ {
		var shared *bitset.BitSet
		var in []string
		for i := range sets {
			if mask&(1<<i) == 0 {
				continue
			}
			in = append(in, sets[i].Name)
			if shared == nil {
				shared = members[i].Clone()
			} else {
				shared.InPlaceIntersection(members[i])
			}
		}
		res.Intersections = append(res.Intersections, Intersection{
			Sets:  in,
			Size:  int(shared.Count()),
			Genes: u.genes(shared),
		})
	}
	sort.SliceStable(res.Intersections, func(i, j int) bool {
		a, b := res.Intersections[i], res.Intersections[j]
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Label() < b.Label()
	})

	for i, s := range sets {
		others := bitset.New(0)
		for j := range sets {
			if j != i {
				others.InPlaceUnion(members[j])
			}
		}
		res.Exclusives = append(res.Exclusives, Exclusive{
			Set:   s.Name,
			Genes: u.genes(members[i].Difference(others)),
		})
	}
	return res, nil
}
