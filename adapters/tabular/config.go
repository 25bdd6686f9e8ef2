package tabular

import (
	"deview/domain/results"
)

// Config holds configuration for reading results tables
type Config struct {
	Mapping results.ColumnMapping `json:"mapping"`
	// Sheet selects the workbook sheet for .xlsx input; empty means the first sheet.
	Sheet string `json:"sheet"`
	// CheckInterval is how many rows are parsed between context checks.
	CheckInterval int `json:"check_interval"`
}

// DefaultConfig returns sensible defaults for results parsing
func DefaultConfig() Config {
	return Config{
		Mapping:       results.DefaultColumnMapping(),
		CheckInterval: 4096,
	}
}
