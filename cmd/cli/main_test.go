package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioCSV = "gene_id,log_fold_change,p_value,adjusted_p_value\n" +
	"GENE1,2.5,0.001,0.01\n" +
	"GENE2,-3.0,0.02,0.1\n" +
	"GENE3,0.1,0.5,0.9\n" +
	"GENE4,1.2,0,0\n"

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DE_results_36h_vs_0h.csv")
	require.NoError(t, os.WriteFile(path, []byte(scenarioCSV), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSummaryCommand(t *testing.T) {
	path := writeScenario(t)

	out, _, err := run(t, "summary", path, "--basis", "p_value")
	require.NoError(t, err)
	assert.Contains(t, out, "Genes: 4 of 4")
	assert.Contains(t, out, "Up: 1  Down: 1  Not significant: 1")
	assert.Contains(t, out, "Not plotted: 1")

	out, _, err = run(t, "summary", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_genes": 4`)

	_, _, err = run(t, "summary", path, "--where", "nope >")
	assert.Error(t, err)

	_, _, err = run(t, "summary", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestFilterCommand(t *testing.T) {
	path := writeScenario(t)

	out, _, err := run(t, "filter", path, "--where", "log_fold_change > 1", "--sort", "-log_fold_change")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "GENE1,"))
	assert.True(t, strings.HasPrefix(lines[2], "GENE4,"))

	xlsx := filepath.Join(t.TempDir(), "view.xlsx")
	_, stderr, err := run(t, "filter", path, "-o", xlsx)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Wrote 4 rows")
	assert.FileExists(t, xlsx)

	_, _, err = run(t, "filter", path, "--format", "parquet")
	assert.Error(t, err)
}

func TestVolcanoCommand(t *testing.T) {
	path := writeScenario(t)
	png := filepath.Join(t.TempDir(), "plot.png")

	_, stderr, err := run(t, "volcano", path, "-o", png, "--width", "400", "--height", "300")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Plotted 3 genes")

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestPlanCommand(t *testing.T) {
	out, _, err := run(t, "plan", "SRR1234567", "--root", "/data/rnaseq")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "$ prefetch SRR1234567")
	assert.Contains(t, out, "makeContrasts")

	out, _, err = run(t, "plan", "SRR1234567", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# RNA-seq workflow for SRR1234567")

	_, _, err = run(t, "plan", "not-a-run")
	assert.Error(t, err)

	_, _, err = run(t, "plan", "SRR1", "--contrast", "48h-0h")
	assert.Error(t, err)
}

func TestOverlapCommand(t *testing.T) {
	first := writeScenario(t)
	second := filepath.Join(t.TempDir(), "DE_results_8h_vs_0h.csv")
	require.NoError(t, os.WriteFile(second, []byte("gene_id,log_fold_change,p_value,adjusted_p_value\nGENE1,1.5,0.01,0.01\nGENE7,-2,0.01,0.01\n"), 0644))

	out, _, err := run(t, "overlap", first, second)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Sets,Size,Elements", lines[0])
	assert.Contains(t, lines, "DE_results_36h_vs_0h.csv ∩ DE_results_8h_vs_0h.csv,1,GENE1")

	out, _, err = run(t, "overlap", first, second, "--exclusive", "--direction", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "DE_results_8h_vs_0h.csv,1,GENE7")

	_, _, err = run(t, "overlap", first)
	assert.Error(t, err)
	_, _, err = run(t, "overlap", first, second, "--direction", "sideways")
	assert.Error(t, err)
}

func TestEnrichCommand(t *testing.T) {
	path := writeScenario(t)
	ann := filepath.Join(t.TempDir(), "go.tsv")
	require.NoError(t, os.WriteFile(ann, []byte("GENE1\tGO:1\nGENE4\tGO:1\nGENE2\tGO:2\nGENE3\tGO:2\n"), 0644))

	out, stderr, err := run(t, "enrich", path, "--annotations", ann)
	require.NoError(t, err)
	assert.Contains(t, stderr, "2 significant genes, 2 annotated, 1 terms")
	assert.Contains(t, out, "GO:1")
	assert.Contains(t, out, "2.000")
	assert.NotContains(t, out, "GO:2")

	csvPath := filepath.Join(t.TempDir(), "go.csv")
	plot := filepath.Join(t.TempDir(), "go.png")
	_, _, err = run(t, "enrich", path, "--annotations", ann, "-o", csvPath, "--plot", plot)
	require.NoError(t, err)
	assert.FileExists(t, csvPath)
	assert.FileExists(t, plot)

	_, _, err = run(t, "enrich", path)
	assert.Error(t, err, "annotations are required")
}
