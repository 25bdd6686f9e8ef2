package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"deview/adapters/tabular"
	"deview/domain/results"
	"deview/internal/config"
	"deview/internal/export"
	"deview/internal/pipeline"
	"deview/internal/session"
	"deview/internal/volcano"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// thresholdFlags are shared by every command that classifies rows. Empty
// values fall back to the configured defaults.
type thresholdFlags struct {
	pCutoff  string
	fcCutoff string
	basis    string
}

func (f *thresholdFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pCutoff, "p-cutoff", "", "p-value cutoff (default from P_CUTOFF or 0.05)")
	cmd.Flags().StringVar(&f.fcCutoff, "fc-cutoff", "", "absolute log2 fold-change cutoff (default from FC_CUTOFF or 1)")
	cmd.Flags().StringVar(&f.basis, "basis", "", "p-value column the cutoff applies to: adjusted_p_value or p_value")
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to read .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "deview-cli",
		Short:         "Inspect differential-expression results tables and plan the upstream workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newSummaryCmd(),
		newFilterCmd(),
		newVolcanoCmd(),
		newOverlapCmd(),
		newEnrichCmd(),
		newPlanCmd(),
	)
	return rootCmd
}

// explore loads path and applies the filter, sort and threshold flags the
// same way the web explorer does.
func explore(ctx context.Context, path string, controls session.Controls) (session.Frame, error) {
	appConfig, err := config.Load()
	if err != nil {
		return session.Frame{}, err
	}
	readerConfig := tabular.DefaultConfig()
	readerConfig.Mapping = appConfig.Analysis.Mapping

	table, err := tabular.NewReader(readerConfig).Load(ctx, path)
	if err != nil {
		return session.Frame{}, err
	}

	st := session.Initial(appConfig.Analysis.Threshold).Load(table, "").Apply(controls)
	if st.Message.Level == session.LevelError {
		return session.Frame{}, fmt.Errorf("%s", st.Message.Text)
	}
	return session.Derive(st), nil
}

func newSummaryCmd() *cobra.Command {
	var th thresholdFlags
	var where string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary [results-file]",
		Short: "Print class counts and distributions of a results table",
		Long: `Load a results table, classify every gene and print the summary panel.

Example: deview-cli summary DE_results_36h_vs_0h.csv --p-cutoff 0.01 --fc-cutoff 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := explore(cmd.Context(), args[0], session.Controls{
				Filter: where, PCutoff: th.pCutoff, FoldChangeCutoff: th.fcCutoff, Basis: th.basis,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(frame.Summary)
			}
			printSummary(cmd.OutOrStdout(), frame)
			return nil
		},
	}

	th.register(cmd)
	cmd.Flags().StringVar(&where, "where", "", "filter expression, e.g. \"adjusted_p_value <= 0.05\"")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(w io.Writer, frame session.Frame) {
	s := frame.Summary
	fmt.Fprintf(w, "📊 %s\n", frame.Source)
	fmt.Fprintf(w, "Genes: %d of %d\n", s.Genes, s.TotalGenes)
	fmt.Fprintf(w, "Threshold: %s <= %g, |log2 FC| >= %g\n",
		frame.Threshold.BasisColumn(), frame.Threshold.PCutoff, frame.Threshold.FoldChangeCutoff)
	fmt.Fprintf(w, "Up: %d  Down: %d  Not significant: %d\n",
		s.Classes[results.ClassUp], s.Classes[results.ClassDown], s.Classes[results.ClassNotSignificant])
	if s.Excluded > 0 {
		fmt.Fprintf(w, "Not plotted: %d (p-value not positive or fold change missing)\n", s.Excluded)
	}
	if s.DuplicateIDs > 0 {
		fmt.Fprintf(w, "Duplicate gene ids: %d\n", s.DuplicateIDs)
	}
	if d := s.LogFC; d.N > 0 {
		fmt.Fprintf(w, "log2 FC: mean %.4g, median %.4g, sd %.4g, range %.4g to %.4g\n",
			d.Mean, d.Median, d.StdDev, d.Min, d.Max)
	}
	if frame.Notice != "" {
		fmt.Fprintln(w, frame.Notice)
	}
}

func newFilterCmd() *cobra.Command {
	var th thresholdFlags
	var where, sortBy, output, format string

	cmd := &cobra.Command{
		Use:   "filter [results-file]",
		Short: "Write the filtered and sorted rows as CSV or XLSX",
		Long: `Filter and sort a results table and write the matching rows.

Example: deview-cli filter DE_results_36h_vs_0h.csv --where "adjusted_p_value <= 0.05, abs(log_fold_change) >= 1" --sort -log_fold_change -o up_and_down.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := explore(cmd.Context(), args[0], session.Controls{
				Filter: where, Sort: sortBy, PCutoff: th.pCutoff, FoldChangeCutoff: th.fcCutoff, Basis: th.basis,
			})
			if err != nil {
				return err
			}

			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
			}
			write := export.WriteCSV
			switch format {
			case "", "csv":
			case "xlsx":
				if output == "" {
					return fmt.Errorf("xlsx output needs --output")
				}
				write = export.WriteXLSX
			default:
				return fmt.Errorf("unknown format %q: use csv or xlsx", format)
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := write(out, frame.Table(), &frame.View); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %d rows to %s\n", len(frame.View.Indices), output)
			}
			return nil
		},
	}

	th.register(cmd)
	cmd.Flags().StringVar(&where, "where", "", "filter expression")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort column; prefix with - for descending")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout as CSV)")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (default from the output extension)")
	return cmd
}

func newVolcanoCmd() *cobra.Command {
	var th thresholdFlags
	var where, output, title string
	var width, height int

	cmd := &cobra.Command{
		Use:   "volcano [results-file]",
		Short: "Render a volcano plot as PNG",
		Long: `Render the volcano plot of a results table.

Example: deview-cli volcano DE_results_36h_vs_0h.csv -o volcano.png --fc-cutoff 1.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := explore(cmd.Context(), args[0], session.Controls{
				Filter: where, PCutoff: th.pCutoff, FoldChangeCutoff: th.fcCutoff, Basis: th.basis,
			})
			if err != nil {
				return err
			}

			opts := volcano.DefaultChartOptions()
			opts.Width, opts.Height = width, height
			opts.Title = title
			if opts.Title == "" {
				opts.Title = filepath.Base(args[0])
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := volcano.RenderPNG(f, frame.Plot, opts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Plotted %d genes to %s (%d not plotted)\n", len(frame.Plot.Points), output, frame.Plot.Excluded)
			return nil
		},
	}

	def := volcano.DefaultChartOptions()
	th.register(cmd)
	cmd.Flags().StringVar(&where, "where", "", "filter expression")
	cmd.Flags().StringVarP(&output, "output", "o", "volcano.png", "PNG file to write")
	cmd.Flags().StringVar(&title, "title", "", "chart title (default the file name)")
	cmd.Flags().IntVar(&width, "width", def.Width, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", def.Height, "image height in pixels")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var root, contrastName, groups, genome, annotation string
	var threads int
	var execute, markdown bool

	cmd := &cobra.Command{
		Use:   "plan [run-accession]",
		Short: "Print or run the upstream RNA-seq workflow for a run",
		Long: `Build the download, QC, trimming, alignment, counting and edgeR/limma
plan that produces a results table. The plan is printed unless --execute is
given, in which case every tool must be installed and on PATH.

Example: deview-cli plan SRR1234567 --root /data/rnaseq --contrast 36h-0h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contrast, err := pipeline.ParseContrast(contrastName, strings.Split(groups, ","))
			if err != nil {
				return err
			}
			layout := pipeline.DefaultLayout(root)
			layout.Threads = threads
			if genome != "" {
				layout.GenomeFASTA = genome
			}
			if annotation != "" {
				layout.Annotation = annotation
			}

			plan, err := pipeline.NewPlan(args[0], layout, contrast)
			if err != nil {
				return err
			}
			if markdown {
				md, err := plan.Markdown()
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), md)
				return err
			}
			return pipeline.NewRunner(cmd.OutOrStdout(), !execute).Run(cmd.Context(), plan)
		},
	}

	def := pipeline.DefaultContrast()
	cmd.Flags().StringVar(&root, "root", "./rnaseq", "working directory for all stages")
	cmd.Flags().StringVar(&contrastName, "contrast", def.Name(), "numerator-denominator groups to compare")
	cmd.Flags().StringVar(&groups, "groups", strings.Join(def.Groups, ","), "sample groups in count-matrix column order")
	cmd.Flags().StringVar(&genome, "genome", "", "genome FASTA (default <root>/genome/genome.fa)")
	cmd.Flags().StringVar(&annotation, "annotation", "", "GTF annotation (default <root>/genome/annotation.gtf)")
	cmd.Flags().IntVar(&threads, "threads", 8, "threads for STAR and featureCounts")
	cmd.Flags().BoolVar(&execute, "execute", false, "run the tools instead of printing them")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the walkthrough as markdown")
	return cmd
}
