package pipeline

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var stageTitles = []struct {
	stage, title, text string
}{
	{StageRetrieve, "Data retrieval", "Download the raw reads from the Sequence Read Archive and split the mates into gzipped FASTQ files."},
	{StageQC, "Quality control", "Run FastQC on the raw reads and collect the reports with MultiQC."},
	{StageTrim, "Trimming", "Remove adapters and low-quality bases with Trim Galore in paired mode."},
	{StageIndex, "Genome index", "Build the STAR index from the reference genome and its annotation."},
	{StageAlign, "Alignment", "Align the trimmed pairs with STAR into a coordinate-sorted BAM."},
	{StageQuantify, "Quantification", "Count read pairs per gene over exon features with featureCounts."},
}

// Markdown renders the plan as a step-by-step walkthrough ending with the
// R script and a pointer back to the explorer.
func (p Plan) Markdown() (string, error) {
	script, err := p.RScript()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# RNA-seq workflow for %s\n\n", p.RunID)
	fmt.Fprintf(&b, "Contrast **%s**, %d threads, working directory `%s`.\n\n", p.Contrast.Name(), p.Layout.Threads, p.Layout.Root)

	n := 0
	for _, st := range stageTitles {
		var cmds []string
		for _, s := range p.Steps {
			if s.Stage == st.stage {
				cmds = append(cmds, s.String())
			}
		}
		if len(cmds) == 0 {
			continue
		}
		n++
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n```sh\n%s\n```\n\n", n, st.title, st.text, strings.Join(cmds, "\n"))
	}

	n++
	fmt.Fprintf(&b, "## %d. Differential expression\n\nNormalise with edgeR, fit with limma-voom and write the `%s` table.\n\n```r\n%s```\n\n", n, p.Contrast.Name(), script)
	n++
	fmt.Fprintf(&b, "## %d. Explore\n\nUpload `%s` on the explorer page to filter, sort and plot it.\n", n, p.ResultsFile())
	return b.String(), nil
}

// HTML renders the walkthrough markdown to an HTML fragment.
func (p Plan) HTML() ([]byte, error) {
	md, err := p.Markdown()
	if err != nil {
		return nil, err
	}
	return RenderMarkdown(md), nil
}

// RenderMarkdown converts markdown to HTML with fenced code and heading ids.
func RenderMarkdown(md string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, renderer)
}
