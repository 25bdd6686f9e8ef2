package session

import (
	"deview/domain/core"
	"deview/domain/results"
	"deview/internal/query"
	"deview/internal/summary"
	"deview/internal/volcano"
)

// DisplayLimit caps the rows materialised for the table panel. The plot,
// summary and exports always cover the whole view.
const DisplayLimit = 500

// PlaceholderText is shown when no table is loaded.
const PlaceholderText = "Upload a differential-expression results file (CSV, TSV or XLSX) to begin."

// Frame is everything the interactive surface renders for one State.
type Frame struct {
	Version     uint64            `json:"version"`
	Loaded      bool              `json:"loaded"`
	Placeholder string            `json:"placeholder,omitempty"`
	Source      string            `json:"source,omitempty"`
	UploadID    core.UploadID     `json:"upload_id,omitempty"`
	Columns     []results.Column  `json:"columns"`
	Filter      string            `json:"filter"`
	Sort        string            `json:"sort"`
	Threshold   results.Threshold `json:"threshold"`
	View        results.View      `json:"-"`
	Rows        []results.Row     `json:"rows"`
	Truncated   bool              `json:"truncated"`
	Notice      string            `json:"notice,omitempty"`
	Plot        volcano.Plot      `json:"plot"`
	Summary     summary.Summary   `json:"summary"`
	Message     Message           `json:"message"`

	table *results.Table
}

// Table returns the table the frame was derived from, nil for a placeholder.
func (f Frame) Table() *results.Table { return f.table }

// Derive recomputes the filtered view, plot and summary for s. It never
// fails: without a table it returns a placeholder frame with an empty plot.
func Derive(s State) Frame {
	f := Frame{
		Version:   s.Version,
		Loaded:    s.Loaded(),
		UploadID:  s.UploadID,
		Columns:   s.Table.Columns(),
		Filter:    s.Filter.String(),
		Sort:      sortText(s.Sort),
		Threshold: s.Threshold,
		Message:   s.Message,
		Rows:      []results.Row{},
		View:      results.View{Indices: []int{}, Filter: s.Filter, Sort: s.Sort},
		table:     s.Table,
	}

	if !s.Loaded() {
		f.Placeholder = PlaceholderText
		f.Plot = volcano.Render(nil, nil, s.Threshold)
		f.Summary = summary.Compute(nil, nil, f.Plot)
		return f
	}

	f.Source = s.Table.Source
	f.View = query.Apply(s.Table, s.Filter, s.Sort)
	f.Plot = volcano.Render(s.Table, &f.View, s.Threshold)
	f.Summary = summary.Compute(s.Table, &f.View, f.Plot)

	rows := f.View.Rows(s.Table)
	if len(rows) > DisplayLimit {
		rows = rows[:DisplayLimit]
		f.Truncated = true
	}
	f.Rows = rows

	if f.View.IsEmpty() && s.Table.Len() > 0 {
		f.Notice = core.ErrEmptyResult.Error()
	}
	return f
}

func sortText(k results.SortKey) string {
	if k.IsFileOrder() {
		return ""
	}
	if k.Descending {
		return "-" + string(k.Column)
	}
	return string(k.Column)
}
