// Package pipeline builds the upstream command plan that produces a
// differential-expression results table: SRA download, read QC, trimming,
// STAR alignment, featureCounts and the edgeR/limma script. The tools run
// outside this program; the plan is printed, or executed when asked.
package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Stage names in execution order.
const (
	StageRetrieve = "retrieve"
	StageQC       = "qc"
	StageTrim     = "trim"
	StageIndex    = "index"
	StageAlign    = "align"
	StageQuantify = "quantify"
	StageDiffExpr = "differential-expression"

	defaultThreads = 8
)

var runIDPattern = regexp.MustCompile(`^[SED]RR[0-9]+$`)

// Layout fixes where each stage reads and writes.
type Layout struct {
	Root        string `json:"root"`
	GenomeFASTA string `json:"genome_fasta"`
	Annotation  string `json:"annotation_gtf"`
	Threads     int    `json:"threads"`
}

// DefaultLayout places everything under root with the reference files in
// root/genome.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:        root,
		GenomeFASTA: filepath.Join(root, "genome", "genome.fa"),
		Annotation:  filepath.Join(root, "genome", "annotation.gtf"),
		Threads:     defaultThreads,
	}
}

func (l Layout) dir(name string) string { return filepath.Join(l.Root, name) }

// RawDir and the other accessors name the per-stage directories.
func (l Layout) RawDir() string { return l.dir("raw_data") }
func (l Layout) QCDir() string { return l.dir("qc") }
func (l Layout) TrimmedDir() string { return l.dir("trimmed") }
func (l Layout) IndexDir() string { return l.dir("genome_index") }
func (l Layout) AlignDir() string { return l.dir("alignment") }
func (l Layout) CountsDir() string { return l.dir("counts") }
func (l Layout) ResultsDir() string { return l.dir("results") }

// Dirs lists every directory the plan writes into.
func (l Layout) Dirs() []string {
	return []string{l.RawDir(), l.QCDir(), l.TrimmedDir(), l.IndexDir(), l.AlignDir(), l.CountsDir(), l.ResultsDir()}
}

// Step is one external command.
type Step struct {
	Stage   string   `json:"stage"`
	Name    string   `json:"name"`
	Command []string `json:"command"`
	Dir     string   `json:"dir,omitempty"`
}

// String renders the step as a shell line.
func (s Step) String() string {
	parts := make([]string, len(s.Command))
	for i, arg := range s.Command {
		parts[i] = shellQuote(arg)
	}
	return strings.Join(parts, " ")
}

// Plan is the ordered command list for one sequencing run.
type Plan struct {
	RunID    string   `json:"run_id"`
	Layout   Layout   `json:"layout"`
	Contrast Contrast `json:"contrast"`
	Steps    []Step   `json:"steps"`
}

// CountsFile is the featureCounts output the R script reads.
func (p Plan) CountsFile() string {
	return filepath.Join(p.Layout.CountsDir(), "gene_counts.txt")
}

// ResultsFile is the table the R script writes and this program explores.
func (p Plan) ResultsFile() string {
	return filepath.Join(p.Layout.ResultsDir(), p.Contrast.FileName())
}

// NewPlan builds the command plan for an SRA run accession (SRR, ERR or DRR).
func NewPlan(runID string, layout Layout, contrast Contrast) (Plan, error) {
	runID = strings.TrimSpace(runID)
	if !runIDPattern.MatchString(runID) {
		return Plan{}, fmt.Errorf("invalid run accession %q: expected SRR, ERR or DRR followed by digits", runID)
	}
	if layout.Root == "" {
		return Plan{}, fmt.Errorf("layout root is required")
	}
	if layout.Threads <= 0 {
		layout.Threads = defaultThreads
	}
	if err := contrast.Validate(); err != nil {
		return Plan{}, err
	}

	threads := strconv.Itoa(layout.Threads)
	raw1 := filepath.Join(layout.RawDir(), runID+"_1.fastq.gz")
	raw2 := filepath.Join(layout.RawDir(), runID+"_2.fastq.gz")
	trim1 := filepath.Join(layout.TrimmedDir(), runID+"_1_val_1.fq.gz")
	trim2 := filepath.Join(layout.TrimmedDir(), runID+"_2_val_2.fq.gz")
	alignPrefix := filepath.Join(layout.AlignDir(), runID+"_")
	bam := alignPrefix + "Aligned.sortedByCoord.out.bam"

	plan := Plan{RunID: runID, Layout: layout, Contrast: contrast}
	plan.Steps = []Step{
		{Stage: StageRetrieve, Name: "prefetch", Dir: layout.RawDir(),
			Command: []string{"prefetch", runID}},
		{Stage: StageRetrieve, Name: "fastq-dump", Dir: layout.RawDir(),
			Command: []string{"fastq-dump", "--split-files", runID + ".sra", "--gzip"}},
		{Stage: StageQC, Name: "fastqc",
			Command: []string{"fastqc", "-o", layout.QCDir(), raw1, raw2}},
		{Stage: StageQC, Name: "multiqc",
			Command: []string{"multiqc", layout.QCDir(), "-o", layout.QCDir()}},
		{Stage: StageTrim, Name: "trim_galore",
			Command: []string{"trim_galore", "--paired", raw1, raw2, "-o", layout.TrimmedDir()}},
		{Stage: StageIndex, Name: "STAR genomeGenerate",
			Command: []string{"STAR", "--runThreadN", threads, "--runMode", "genomeGenerate",
				"--genomeDir", layout.IndexDir(), "--genomeFastaFiles", layout.GenomeFASTA,
				"--sjdbGTFfile", layout.Annotation}},
		{Stage: StageAlign, Name: "STAR align",
			Command: []string{"STAR", "--runThreadN", threads, "--genomeDir", layout.IndexDir(),
				"--readFilesIn", trim1, trim2, "--readFilesCommand", "zcat",
				"--outFileNamePrefix", alignPrefix, "--outSAMtype", "BAM", "SortedByCoordinate"}},
		{Stage: StageQuantify, Name: "featureCounts",
			Command: []string{"featureCounts", "-T", threads, "-p", "-t", "exon", "-g", "gene_id",
				"-a", layout.Annotation, "-o", plan.CountsFile(), bam}},
	}
	return plan, nil
}

// Script renders the plan as a shell script.
func (p Plan) Script() string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\nset -euo pipefail\n\n")
	b.WriteString("mkdir -p")
	for _, d := range p.Layout.Dirs() {
		b.WriteString(" " + shellQuote(d))
	}
	b.WriteString("\n")
	stage := ""
	for _, s := range p.Steps {
		if s.Stage != stage {
			stage = s.Stage
			fmt.Fprintf(&b, "\n# %s\n", stage)
		}
		if s.Dir != "" {
			fmt.Fprintf(&b, "(cd %s && %s)\n", shellQuote(s.Dir), s)
		} else {
			b.WriteString(s.String() + "\n")
		}
	}
	fmt.Fprintf(&b, "\n# %s\nRscript %s\n", StageDiffExpr, shellQuote(filepath.Join(p.Layout.ResultsDir(), "de_analysis.R")))
	return b.String()
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:+,", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
