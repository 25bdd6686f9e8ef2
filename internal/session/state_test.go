package session

import (
	"math"
	"testing"

	"deview/domain/core"
	"deview/domain/results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable() *results.Table {
	return &results.Table{
		Source:  "scenario.csv",
		Headers: []string{"gene_id", "log_fold_change", "p_value", "adjusted_p_value", "symbol"},
		Mapping: map[results.Column]string{
			results.ColumnGeneID:    "gene_id",
			results.ColumnLogFC:     "log_fold_change",
			results.ColumnPValue:    "p_value",
			results.ColumnAdjPValue: "adjusted_p_value",
		},
		Rows: []results.Row{
			{GeneID: "GENE1", LogFC: 2.5, PValue: 0.001, AdjPValue: 0.01, Extra: map[string]string{"symbol": "abc"}},
			{GeneID: "GENE2", LogFC: -3.0, PValue: 0.02, AdjPValue: 0.1, Extra: map[string]string{"symbol": "def"}},
			{GeneID: "GENE3", LogFC: 0.1, PValue: 0.5, AdjPValue: 0.9, Extra: map[string]string{"symbol": "ghi"}},
		},
	}
}

func TestDerive_Placeholder(t *testing.T) {
	f := Derive(Initial(results.DefaultThreshold()))

	assert.False(t, f.Loaded)
	assert.Equal(t, PlaceholderText, f.Placeholder)
	assert.Empty(t, f.Rows)
	assert.True(t, f.Plot.IsEmpty())
	assert.Equal(t, 0, f.Summary.Genes)
	assert.Nil(t, f.Table())
}

func TestLoadAndDerive(t *testing.T) {
	st := Initial(results.Threshold{PCutoff: 0.05, FoldChangeCutoff: 1, Basis: results.ColumnPValue})
	st = st.Load(scenarioTable(), "")

	assert.Equal(t, uint64(1), st.Version)
	assert.Equal(t, "Loaded 3 genes from scenario.csv", st.Message.Text)

	f := Derive(st)
	assert.True(t, f.Loaded)
	assert.Len(t, f.Rows, 3)
	assert.Equal(t, 1, f.Plot.Counts[results.ClassUp])
	assert.Equal(t, 1, f.Plot.Counts[results.ClassDown])
	assert.Equal(t, 1, f.Plot.Counts[results.ClassNotSignificant])
	assert.Equal(t, 3, f.Summary.Genes)
}

func TestSetFilter(t *testing.T) {
	st := Initial(results.DefaultThreshold()).Load(scenarioTable(), "")

	filtered := st.SetFilter("adjusted_p_value <= 0.05")
	require.Equal(t, LevelInfo, filtered.Message.Level)
	f := Derive(filtered)
	require.Len(t, f.Rows, 1)
	assert.Equal(t, "GENE1", f.Rows[0].GeneID)
	assert.Equal(t, 1, f.Summary.Genes)
	assert.Equal(t, 3, f.Summary.TotalGenes)

	empty := Derive(st.SetFilter("p_value < 0"))
	assert.Empty(t, empty.Rows)
	assert.Equal(t, core.ErrEmptyResult.Error(), empty.Notice)
	assert.True(t, empty.Plot.IsEmpty())

	bad := filtered.SetFilter("nonexistent > 1")
	assert.Equal(t, LevelError, bad.Message.Level)
	assert.Equal(t, filtered.Filter, bad.Filter, "rejected filter keeps the previous one")

	cleared := filtered.SetFilter("")
	assert.Empty(t, cleared.Filter)
	assert.Len(t, Derive(cleared).Rows, 3)
}

func TestSetSort(t *testing.T) {
	st := Initial(results.DefaultThreshold()).Load(scenarioTable(), "").SetSort("-log_fold_change")
	f := Derive(st)
	assert.Equal(t, "-log_fold_change", f.Sort)
	assert.Equal(t, []string{"GENE1", "GENE3", "GENE2"}, geneIDs(f.Rows))

	st = st.SetSort("symbol desc")
	assert.Equal(t, []string{"GENE3", "GENE2", "GENE1"}, geneIDs(Derive(st).Rows))

	bad := st.SetSort("missing")
	assert.Equal(t, LevelError, bad.Message.Level)
	assert.Equal(t, st.Sort, bad.Sort)
}

func TestSetThreshold(t *testing.T) {
	st := Initial(results.DefaultThreshold()).Load(scenarioTable(), "")

	loose := st.SetThreshold(results.Threshold{PCutoff: 0.2, FoldChangeCutoff: 1})
	assert.Equal(t, results.ColumnAdjPValue, loose.Threshold.Basis)
	assert.Equal(t, 1, Derive(loose).Plot.Counts[results.ClassDown])

	bad := st.SetThreshold(results.Threshold{PCutoff: 2, FoldChangeCutoff: 1})
	assert.Equal(t, LevelError, bad.Message.Level)
	assert.Equal(t, st.Threshold, bad.Threshold)
}

func TestLoadFailedKeepsTable(t *testing.T) {
	st := Initial(results.DefaultThreshold()).Load(scenarioTable(), "").SetFilter("p_value < 0.1")
	failed := st.LoadFailed(core.NewMalformedTableError("broken.csv", 1, "p_value", "required column missing"))

	assert.Same(t, st.Table, failed.Table)
	assert.Equal(t, st.Filter, failed.Filter)
	assert.Equal(t, LevelError, failed.Message.Level)
	assert.Contains(t, failed.Message.Text, "broken.csv")
	assert.Greater(t, failed.Version, st.Version)
}

func TestLoadClearsControls(t *testing.T) {
	st := Initial(results.DefaultThreshold()).Load(scenarioTable(), "").
		SetFilter("p_value < 0.1").SetSort("p_value")
	reloaded := st.Load(&results.Table{Source: "other.csv"}, "")

	assert.Empty(t, reloaded.Filter)
	assert.True(t, reloaded.Sort.IsFileOrder())
	f := Derive(reloaded)
	assert.True(t, f.Loaded)
	assert.Empty(t, f.Rows)
	assert.Empty(t, f.Notice, "header-only table is not an empty filter result")
}

func TestReset(t *testing.T) {
	defaults := results.DefaultThreshold()
	st := Initial(defaults).Load(scenarioTable(), "").
		SetThreshold(results.Threshold{PCutoff: 0.01, FoldChangeCutoff: 2})
	reset := st.Reset()

	assert.False(t, reset.Loaded())
	assert.Equal(t, defaults, reset.Threshold)
	assert.Equal(t, st.Version+1, reset.Version)
	assert.Equal(t, PlaceholderText, Derive(reset).Placeholder)
}

func TestStateImmutable(t *testing.T) {
	st := Initial(results.DefaultThreshold()).Load(scenarioTable(), "")
	_ = st.SetFilter("p_value < 0.01")
	_ = st.SetSort("-p_value")
	assert.Empty(t, st.Filter)
	assert.True(t, st.Sort.IsFileOrder())
	assert.Equal(t, uint64(1), st.Version)
}

func TestDisplayLimit(t *testing.T) {
	table := &results.Table{Source: "big.csv"}
	for i := 0; i < DisplayLimit+10; i++ {
		table.Rows = append(table.Rows, results.Row{GeneID: "G", LogFC: 1, PValue: 0.5, AdjPValue: math.NaN()})
	}
	f := Derive(Initial(results.DefaultThreshold()).Load(table, ""))
	assert.Len(t, f.Rows, DisplayLimit)
	assert.True(t, f.Truncated)
	assert.Equal(t, DisplayLimit+10, f.View.Len())
	assert.Len(t, f.Plot.Points, DisplayLimit+10)
}

func TestParseThreshold(t *testing.T) {
	th, err := ParseThreshold("0.05", "1.5", "p_value")
	require.NoError(t, err)
	assert.Equal(t, results.Threshold{PCutoff: 0.05, FoldChangeCutoff: 1.5, Basis: results.ColumnPValue}, th)

	_, err = ParseThreshold("abc", "1", "")
	assert.Error(t, err)
	_, err = ParseThreshold("", "1", "")
	assert.Error(t, err)
	_, err = ParseThreshold("0.05", "-1", "")
	assert.Error(t, err)
}

func geneIDs(rows []results.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.GeneID
	}
	return out
}

func TestApplyControls(t *testing.T) {
	base := Initial(results.DefaultThreshold()).Load(scenarioTable(), "")

	t.Run("all valid", func(t *testing.T) {
		n := base.Apply(Controls{
			Filter:           "abs(log_fold_change) >= 1",
			Sort:             "-log_fold_change",
			PCutoff:          "0.05",
			FoldChangeCutoff: "2",
			Basis:            "p_value",
		})
		assert.Equal(t, base.Version+1, n.Version)
		assert.True(t, n.Message.IsZero())
		assert.Equal(t, "abs(log_fold_change) >= 1", n.Filter.String())
		assert.True(t, n.Sort.Descending)
		assert.Equal(t, 2.0, n.Threshold.FoldChangeCutoff)
		assert.Equal(t, results.ColumnPValue, n.Threshold.Basis)
	})

	t.Run("rejected controls keep previous values", func(t *testing.T) {
		n := base.Apply(Controls{
			Filter:           "no_such_column > 1",
			Sort:             "log_fold_change",
			PCutoff:          "1.5",
			FoldChangeCutoff: "1",
		})
		assert.Equal(t, LevelError, n.Message.Level)
		assert.Contains(t, n.Message.Text, "filter not applied")
		assert.Contains(t, n.Message.Text, "threshold not applied")
		assert.True(t, n.Filter.IsEmpty())
		assert.Equal(t, results.ColumnLogFC, n.Sort.Column)
		assert.Equal(t, base.Threshold, n.Threshold)
	})

	t.Run("blank cutoffs keep threshold", func(t *testing.T) {
		n := base.Apply(Controls{})
		assert.Equal(t, base.Threshold, n.Threshold)
		assert.True(t, n.Message.IsZero())
	})
}

func TestSetFilter_SourceHeaderNames(t *testing.T) {
	table := scenarioTable()
	table.Mapping[results.ColumnAdjPValue] = "adj.P.Val"
	table.Headers[3] = "adj.P.Val"

	st := Initial(results.DefaultThreshold()).Load(table, "").SetFilter("adj.P.Val <= 0.05").SetSort("-adj.P.Val")
	require.NotEqual(t, LevelError, st.Message.Level, st.Message.Text)
	assert.Equal(t, results.ColumnAdjPValue, st.Filter[0].Column)
	assert.Equal(t, results.SortKey{Column: results.ColumnAdjPValue, Descending: true}, st.Sort)
	assert.Len(t, Derive(st).Rows, 1)
}
