package tabular

import (
	"path/filepath"
	"strings"
)

// Format identifies the container a results table arrives in.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	// FormatSniff means the delimiter is decided from the header line.
	FormatSniff Format = "sniff"
)

// FormatFromName maps a file name to its format by extension.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx":
		return FormatXLSX
	}
	return FormatSniff
}

// ContentType returns the MIME type stored alongside uploads.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain"
}
