package enrichment

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goTSV = `# gene	GO term
AT1G01010	GO:0003700
AT1G01010	GO:0005634
AT1G01530	GO:0003700
AT1G01720	GO:0005634
AT1G02000	GO:0005634
AT1G02000	GO:0005634
AT1G03000	GO:0016020

AT1G04000	GO:0016020
`

func TestParseAnnotations(t *testing.T) {
	a, err := ParseAnnotations(strings.NewReader(goTSV))
	require.NoError(t, err)
	assert.Equal(t, 7, a.Pairs(), "repeated pair counts once")

	tests := []struct {
		name  string
		input string
	}{
		{"empty", "# nothing\n"},
		{"one column", "AT1G01010\n"},
		{"blank term", "AT1G01010\t \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnnotations(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestEnrich(t *testing.T) {
	a, err := ParseAnnotations(strings.NewReader(goTSV))
	require.NoError(t, err)

	report := Enrich([]string{"AT1G01010", "AT1G01530", "AT1G01530", "UNKNOWN"}, a, 0)

	assert.Equal(t, 3, report.Genes)
	assert.Equal(t, 2, report.Annotated)
	require.Len(t, report.Terms, 2)

	// GO:0003700: 2 of 3 listed genes, 2 of 7 pairs => (2/3)/(2/7) = 7/3
	assert.Equal(t, "GO:0003700", report.Terms[0].Term)
	assert.Equal(t, 2, report.Terms[0].Count)
	assert.Equal(t, 2, report.Terms[0].Total)
	assert.InDelta(t, 7.0/3.0, report.Terms[0].Enrichment, 1e-9)

	// GO:0005634: 1 of 3, 3 of 7 => (1/3)/(3/7) = 7/9
	assert.Equal(t, "GO:0005634", report.Terms[1].Term)
	assert.InDelta(t, 7.0/9.0, report.Terms[1].Enrichment, 1e-9)

	top := Enrich([]string{"AT1G01010", "AT1G01530"}, a, 1)
	assert.Len(t, top.Terms, 1)

	none := Enrich(nil, a, DefaultTop)
	assert.Equal(t, 0, none.Genes)
	assert.Empty(t, none.Terms)
}

func TestWriteCSVAndChart(t *testing.T) {
	a, err := ParseAnnotations(strings.NewReader(goTSV))
	require.NoError(t, err)
	report := Enrich([]string{"AT1G01010", "AT1G03000"}, a, DefaultTop)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "term,count,total,enrichment", lines[0])
	assert.Len(t, lines, 1+len(report.Terms))

	buf.Reset()
	require.NoError(t, RenderPNG(&buf, report, "Top GO terms", 640, 400))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, RenderPNG(&buf, Report{}, "empty", 640, 400))
}
