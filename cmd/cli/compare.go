package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"deview/internal/enrichment"
	"deview/internal/overlap"
	"deview/internal/session"

	"github.com/spf13/cobra"
)

// significantSet loads path and collects the genes the threshold flags
// classify in direction.
func significantSet(cmd *cobra.Command, path string, th thresholdFlags, direction string) (overlap.Set, error) {
	d, err := overlap.ParseDirection(direction)
	if err != nil {
		return overlap.Set{}, err
	}
	frame, err := explore(cmd.Context(), path, session.Controls{
		PCutoff: th.pCutoff, FoldChangeCutoff: th.fcCutoff, Basis: th.basis,
	})
	if err != nil {
		return overlap.Set{}, err
	}
	return overlap.SignificantGenes(filepath.Base(path), frame.Table(), frame.Threshold, d), nil
}

// output returns stdout, or the created file when path is set.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newOverlapCmd() *cobra.Command {
	var th thresholdFlags
	var direction, out string
	var caseSensitive, exclusive bool

	cmd := &cobra.Command{
		Use:   "overlap [results-file]...",
		Short: "Intersect the significant genes of 2 to 6 results tables",
		Long: `Classify every table with the same threshold and write, as CSV, the genes
shared by each combination of tables, or with --exclusive the genes found
in only one table.

Example: deview-cli overlap DE_8h_vs_0h.csv DE_36h_vs_0h.csv --direction up --exclusive`,
		Args: cobra.RangeArgs(2, overlap.MaxSets),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets := make([]overlap.Set, 0, len(args))
			for _, path := range args {
				set, err := significantSet(cmd, path, th, direction)
				if err != nil {
					return err
				}
				sets = append(sets, set)
			}
			res, err := overlap.Compare(sets, overlap.Options{CaseSensitive: caseSensitive})
			if err != nil {
				return err
			}

			w, done, err := output(cmd, out)
			if err != nil {
				return err
			}
			write := overlap.WriteIntersectionsCSV
			if exclusive {
				write = overlap.WriteExclusivesCSV
			}
			if err := write(w, res); err != nil {
				done()
				return err
			}
			return done()
		},
	}

	th.register(cmd)
	cmd.Flags().StringVar(&direction, "direction", "both", "significant genes to compare: both, up or down")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "treat gene ids differing only in case as different genes")
	cmd.Flags().BoolVar(&exclusive, "exclusive", false, "write the genes unique to each table instead of the intersections")
	cmd.Flags().StringVarP(&out, "output", "o", "", "CSV file to write (default stdout)")
	return cmd
}

func newEnrichCmd() *cobra.Command {
	var th thresholdFlags
	var annotations, direction, out, plot string
	var top int

	cmd := &cobra.Command{
		Use:   "enrich [results-file]",
		Short: "Rank GO terms or KEGG pathways by fold enrichment of the significant genes",
		Long: `Compute (count / significant genes) / (term total / annotation pairs) for
every term hit by the significant genes of a results table. The annotation
file has one "GeneID<TAB>term" pair per line and no header.

Example: deview-cli enrich DE_results_36h_vs_0h.csv --annotations arabidopsis_go.tsv --plot go.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := significantSet(cmd, args[0], th, direction)
			if err != nil {
				return err
			}

			f, err := os.Open(annotations)
			if err != nil {
				return err
			}
			ann, err := enrichment.ParseAnnotations(f)
			f.Close()
			if err != nil {
				return err
			}

			report := enrichment.Enrich(set.Genes, ann, top)
			fmt.Fprintf(cmd.ErrOrStderr(), "🧬 %d significant genes, %d annotated, %d terms\n", report.Genes, report.Annotated, len(report.Terms))

			if plot != "" {
				pf, err := os.Create(plot)
				if err != nil {
					return err
				}
				if err := enrichment.RenderPNG(pf, report, "Top terms: "+set.Name, 960, 640); err != nil {
					pf.Close()
					return err
				}
				if err := pf.Close(); err != nil {
					return err
				}
			}

			if out != "" {
				w, done, err := output(cmd, out)
				if err != nil {
					return err
				}
				if err := enrichment.WriteCSV(w, report); err != nil {
					done()
					return err
				}
				return done()
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TERM\tCOUNT\tTOTAL\tENRICHMENT")
			for _, t := range report.Terms {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\n", t.Term, t.Count, t.Total, t.Enrichment)
			}
			return tw.Flush()
		},
	}

	th.register(cmd)
	cmd.Flags().StringVar(&annotations, "annotations", "", "gene to term TSV (GO or KEGG)")
	cmd.Flags().StringVar(&direction, "direction", "both", "significant genes to use: both, up or down")
	cmd.Flags().IntVar(&top, "top", enrichment.DefaultTop, "terms to keep; 0 keeps all")
	cmd.Flags().StringVarP(&out, "output", "o", "", "CSV file to write (default a table on stdout)")
	cmd.Flags().StringVar(&plot, "plot", "", "also write a bar chart PNG")
	_ = cmd.MarkFlagRequired("annotations")
	return cmd
}
