package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

var groupPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Contrast names the comparison written to the results table: Numerator
// against Denominator, with Groups giving the group of each count column
// in order.
type Contrast struct {
	Numerator   string   `json:"numerator"`
	Denominator string   `json:"denominator"`
	Groups      []string `json:"groups"`
}

// DefaultContrast is the 36h versus 0h comparison over three time points
// in duplicate.
func DefaultContrast() Contrast {
	return Contrast{
		Numerator:   "36h",
		Denominator: "0h",
		Groups:      []string{"0h", "0h", "8h", "8h", "36h", "36h"},
	}
}

// ParseContrast reads "36h-0h" style names.
func ParseContrast(s string, groups []string) (Contrast, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Contrast{}, fmt.Errorf("contrast %q must look like numerator-denominator", s)
	}
	c := Contrast{Numerator: strings.TrimSpace(num), Denominator: strings.TrimSpace(den), Groups: groups}
	return c, c.Validate()
}

// Name is the contrast label used by makeContrasts, e.g. "36h-0h".
func (c Contrast) Name() string { return c.Numerator + "-" + c.Denominator }

// FileName is the results table name for the contrast.
func (c Contrast) FileName() string {
	return fmt.Sprintf("DE_results_%s_vs_%s.csv", c.Numerator, c.Denominator)
}

// Levels lists the distinct groups in first-seen order.
func (c Contrast) Levels() []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range c.Groups {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// Validate checks the contrast refers to groups that exist.
func (c Contrast) Validate() error {
	if c.Numerator == "" || c.Denominator == "" {
		return fmt.Errorf("contrast needs both a numerator and a denominator")
	}
	if c.Numerator == c.Denominator {
		return fmt.Errorf("contrast compares %s with itself", c.Numerator)
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("contrast needs sample groups")
	}
	levels := map[string]bool{}
	for _, g := range c.Groups {
		if !groupPattern.MatchString(g) {
			return fmt.Errorf("invalid group name %q", g)
		}
		levels[g] = true
	}
	for _, g := range []string{c.Numerator, c.Denominator} {
		if !levels[g] {
			return fmt.Errorf("contrast group %s has no samples", g)
		}
	}
	return nil
}

var rEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// rQuote renders s as a single-quoted R string literal.
func rQuote(s string) string {
	return "'" + rEscaper.Replace(s) + "'"
}

var rScriptTemplate = template.Must(template.New("de").Funcs(template.FuncMap{
	"rquote": rQuote,
	"rlist": func(xs []string) string {
		q := make([]string, len(xs))
		for i, x := range xs {
			q[i] = rQuote(x)
		}
		return strings.Join(q, ",")
	},
}).Parse(`library(edgeR)
library(limma)

counts <- read.delim({{rquote .Counts}}, comment.char = '#')
rownames(counts) <- counts$Geneid
counts <- counts[, -(1:6)]

group <- factor(c({{rlist .Contrast.Groups}}))
y <- DGEList(counts=counts, group=group)

keep <- filterByExpr(y)
y <- y[keep,,keep.lib.sizes=FALSE]
y <- calcNormFactors(y)

design <- model.matrix(~0 + group)
colnames(design) <- levels(group)

v <- voom(y, design, plot=FALSE)
fit <- lmFit(v, design)
contrast.matrix <- makeContrasts({{rquote .Contrast.Name}} = ` + "`{{.Contrast.Numerator}}` - `{{.Contrast.Denominator}}`" + `, levels=design)
fit2 <- contrasts.fit(fit, contrast.matrix)
fit2 <- eBayes(fit2)

res <- topTable(fit2, coef = {{rquote .Contrast.Name}}, number = Inf)

dir.create({{rquote .ResultsDir}}, showWarnings = FALSE)
write.csv(res, file={{rquote .Results}}, row.names=TRUE)
`))

// RScript renders the edgeR/limma script that turns the featureCounts
// matrix into the limma topTable CSV this program loads.
func (p Plan) RScript() (string, error) {
	var buf bytes.Buffer
	data := struct {
		Counts, ResultsDir, Results string
		Contrast                    Contrast
	}{p.CountsFile(), p.Layout.ResultsDir(), p.ResultsFile(), p.Contrast}
	if err := rScriptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render R script: %w", err)
	}
	return buf.String(), nil
}
