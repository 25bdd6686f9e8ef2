package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"deview/domain/core"
	"deview/domain/results"
	"deview/internal"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader parses delimited or workbook results tables into results.Table.
type Reader struct {
	config Config
	logger *internal.Logger
}

// NewReader creates a results reader
func NewReader(config Config) *Reader {
	if config.Mapping == nil {
		config.Mapping = results.DefaultColumnMapping()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}
	return &Reader{config: config, logger: internal.DefaultLogger}
}

// Load reads the results table at path. It is all-or-nothing: any error
// leaves the caller without a table.
func (r *Reader) Load(ctx context.Context, path string) (*results.Table, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &core.MissingFileError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat results file: %w", err)
	}
	if info.IsDir() {
		return nil, &core.MissingFileError{Path: path}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	return r.Parse(ctx, path, file)
}

// Parse reads a results table from src. name is used for format detection
// and error messages.
func (r *Reader) Parse(ctx context.Context, name string, src io.Reader) (*results.Table, error) {
	start := time.Now()
	format := FormatFromName(name)

	var (
		records [][]string
		lines   []int
		err     error
	)
	if format == FormatXLSX {
		records, lines, err = r.readWorkbook(name, src)
	} else {
		records, lines, err = r.readDelimited(ctx, name, format, src)
	}
	if err != nil {
		return nil, err
	}

	table, err := r.build(ctx, name, records, lines)
	if err != nil {
		return nil, err
	}

	r.logger.Info("[Loader] %s parsed in %.2fms (%d columns, %d rows)",
		name, float64(time.Since(start).Nanoseconds())/1e6, len(table.Headers), len(table.Rows))
	return table, nil
}

// readDelimited reads CSV or TSV input. Line numbers are kept per record so
// parse errors can point at the offending line.
func (r *Reader) readDelimited(ctx context.Context, name string, format Format, src io.Reader) ([][]string, []int, error) {
	buffered := bufio.NewReader(src)
	if bom, _ := buffered.Peek(len(utf8BOM)); bytes.Equal(bom, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}

	comma := ','
	switch format {
	case FormatTSV:
		comma = '\t'
	case FormatSniff:
		comma = sniffDelimiter(buffered)
	}

	reader := csv.NewReader(buffered)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			if pe, ok := err.(*csv.ParseError); ok {
				line = pe.Line
			}
			return nil, nil, core.NewMalformedTableError(name, line, "", "%v", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)

		if len(records)%r.config.CheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
	}
	return records, lines, nil
}

// sniffDelimiter looks at the header line only: tab wins if present.
func sniffDelimiter(b *bufio.Reader) rune {
	peek, _ := b.Peek(64 * 1024)
	header := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		header = peek[:i]
	}
	if bytes.IndexByte(header, '\t') >= 0 {
		return '\t'
	}
	if bytes.IndexByte(header, ',') < 0 && bytes.IndexByte(header, ';') >= 0 {
		return ';'
	}
	return ','
}

// readWorkbook reads the configured (or first) sheet of an .xlsx workbook.
func (r *Reader) readWorkbook(name string, src io.Reader) ([][]string, []int, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, nil, core.NewMalformedTableError(name, 0, "", "failed to open workbook: %v", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, core.NewMalformedTableError(name, 0, "", "failed to read sheet %q: %v", sheet, err)
	}

	// GetRows drops trailing empty cells; pad to the header width so only
	// genuinely over-long rows count as ragged.
	lines := make([]int, len(rows))
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	for i := range rows {
		lines[i] = i + 1
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	return rows, lines, nil
}

// build converts raw records into a typed table.
func (r *Reader) build(ctx context.Context, name string, records [][]string, lines []int) (*results.Table, error) {
	if len(records) == 0 {
		return nil, core.NewMalformedTableError(name, 0, "", "file is empty, expected a header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	// A header one field short of the data is either R's write.table with
	// row.names=TRUE (no header cell for the row names) or a spreadsheet
	// export ending every line with a delimiter.
	if len(records) > 1 && len(records[1]) == len(headers)+1 {
		_, missing := r.config.Mapping.Resolve(headers)
		if !missesGeneID(missing) && trailingDelimiter(records[1:], len(headers)) {
			for i := 1; i < len(records); i++ {
				if len(records[i]) == len(headers)+1 {
					records[i] = records[i][:len(headers)]
				}
			}
		} else {
			headers = append([]string{""}, headers...)
		}
	}

	index, missing := r.config.Mapping.Resolve(headers)
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		return nil, core.NewMalformedTableError(name, lines[0], strings.Join(names, ","),
			"required column(s) not found in header %q", strings.Join(headers, ","))
	}

	mapping := make(map[results.Column]string, len(index))
	coreIdx := make(map[int]bool, len(index))
	for col, i := range index {
		mapping[col] = headers[i]
		coreIdx[i] = true
	}

	table := &results.Table{
		Source:  name,
		Headers: headers,
		Mapping: mapping,
		Rows:    make([]results.Row, 0, len(records)-1),
	}

	for n, record := range records[1:] {
		line := lines[n+1]
		if len(record) != len(headers) {
			return nil, core.NewMalformedTableError(name, line, "",
				"expected %d fields, found %d", len(headers), len(record))
		}

		row := results.Row{GeneID: strings.TrimSpace(record[index[results.ColumnGeneID]])}
		var err error
		if row.LogFC, err = parseField(name, line, headers[index[results.ColumnLogFC]], record[index[results.ColumnLogFC]], false); err != nil {
			return nil, err
		}
		if row.PValue, err = parseField(name, line, headers[index[results.ColumnPValue]], record[index[results.ColumnPValue]], true); err != nil {
			return nil, err
		}
		if row.AdjPValue, err = parseField(name, line, headers[index[results.ColumnAdjPValue]], record[index[results.ColumnAdjPValue]], true); err != nil {
			return nil, err
		}

		for i, cell := range record {
			if coreIdx[i] {
				continue
			}
			if row.Extra == nil {
				row.Extra = make(map[string]string, len(headers)-len(coreIdx))
			}
			row.Extra[headers[i]] = strings.TrimSpace(cell)
		}
		table.Rows = append(table.Rows, row)

		if (n+1)%r.config.CheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

func parseField(name string, line int, header, raw string, probability bool) (float64, error) {
	v, err := results.ParseNumber(raw)
	if err != nil {
		return 0, core.NewMalformedTableError(name, line, header, "cannot parse %q as a number", raw)
	}
	if probability && !math.IsNaN(v) && (v < 0 || v > 1) {
		return 0, core.NewMalformedTableError(name, line, header, "probability %v outside [0, 1]", v)
	}
	return v, nil
}

func missesGeneID(missing []results.Column) bool {
	for _, c := range missing {
		if c == results.ColumnGeneID {
			return true
		}
	}
	return false
}

// trailingDelimiter reports whether every row that is one field longer than
// width ends in an empty field.
func trailingDelimiter(rows [][]string, width int) bool {
	for _, row := range rows {
		if len(row) == width+1 && strings.TrimSpace(row[width]) != "" {
			return false
		}
	}
	return true
}
