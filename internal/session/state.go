// Package session holds the per-browser explorer state. State is an
// immutable snapshot; every user action returns a new one and the view,
// plot and summary are re-derived from it in one synchronous pass.
package session

import (
	"fmt"
	"math"
	"strings"

	"deview/domain/core"
	"deview/domain/results"
	"deview/internal/query"
)

// Level grades a user-visible message.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is the flash line shown above the explorer.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// IsZero reports whether there is nothing to show.
func (m Message) IsZero() bool { return m.Text == "" }

func info(format string, args ...interface{}) Message {
	return Message{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

func failure(err error) Message {
	return Message{Level: LevelError, Text: err.Error()}
}

// State is one snapshot of a session. Fields are never mutated after a
// State is returned; the table itself is shared read-only between snapshots.
type State struct {
	Table     *results.Table    `json:"-"`
	UploadID  core.UploadID     `json:"upload_id,omitempty"`
	Filter    results.Predicate `json:"filter,omitempty"`
	Sort      results.SortKey   `json:"sort"`
	Threshold results.Threshold `json:"threshold"`
	Message   Message           `json:"message"`
	Version   uint64            `json:"version"`

	defaults results.Threshold
}

// Initial returns the empty state a new session starts from.
func Initial(threshold results.Threshold) State {
	return State{Threshold: threshold, defaults: threshold}
}

// Loaded reports whether a table is present.
func (s State) Loaded() bool { return s.Table != nil }

func (s State) next() State {
	s.Version++
	s.Message = Message{}
	return s
}

// Load replaces the table. The filter and sort of the previous file are
// dropped since its columns may not exist in the new one; the threshold is
// kept.
func (s State) Load(table *results.Table, id core.UploadID) State {
	n := s.next()
	n.Table = table
	n.UploadID = id
	n.Filter = nil
	n.Sort = results.SortKey{}
	n.Message = info("Loaded %d genes from %s", table.Len(), table.Source)
	return n
}

// LoadFailed records a failed load. The previous table and controls stay.
func (s State) LoadFailed(err error) State {
	n := s.next()
	n.Message = failure(err)
	return n
}

// SetFilter parses and applies a filter expression. An empty expression
// clears the filter. A rejected expression leaves the filter unchanged.
func (s State) SetFilter(expr string) State {
	n := s.next()
	pred, err := query.ParsePredicate(expr)
	if err == nil {
		pred, _, err = query.Resolve(s.Table, pred, results.SortKey{})
	}
	if err != nil {
		n.Message = failure(fmt.Errorf("filter not applied: %w", err))
		return n
	}
	n.Filter = pred
	return n
}

// SetSort parses and applies a sort key; an empty key restores file order.
func (s State) SetSort(expr string) State {
	n := s.next()
	_, key, err := query.Resolve(s.Table, nil, query.ParseSortKey(expr))
	if err != nil {
		n.Message = failure(fmt.Errorf("sort not applied: %w", err))
		return n
	}
	n.Sort = key
	return n
}

// SetThreshold replaces the significance threshold when it is valid.
func (s State) SetThreshold(th results.Threshold) State {
	n := s.next()
	if err := th.Validate(); err != nil {
		n.Message = failure(fmt.Errorf("threshold not applied: %w", err))
		return n
	}
	if th.Basis == "" {
		th.Basis = s.Threshold.Basis
	}
	n.Threshold = th
	return n
}

// Controls are the raw inputs of the explorer form.
type Controls struct {
	Filter           string
	Sort             string
	PCutoff          string
	FoldChangeCutoff string
	Basis            string
}

// Apply sets filter, sort and threshold from one form submission as a
// single new snapshot. Each control is checked on its own: a rejected one
// keeps its previous value and its reason is added to the message. Blank
// cutoffs leave the threshold alone.
func (s State) Apply(c Controls) State {
	var problems []string
	n := s
	steps := []func(State) State{
		func(st State) State { return st.SetFilter(c.Filter) },
		func(st State) State { return st.SetSort(c.Sort) },
	}
	if strings.TrimSpace(c.PCutoff) != "" || strings.TrimSpace(c.FoldChangeCutoff) != "" {
		steps = append(steps, func(st State) State {
			th, err := ParseThreshold(orDefault(c.PCutoff, st.Threshold.PCutoff), orDefault(c.FoldChangeCutoff, st.Threshold.FoldChangeCutoff), c.Basis)
			if err != nil {
				n := st.next()
				n.Message = failure(fmt.Errorf("threshold not applied: %w", err))
				return n
			}
			return st.SetThreshold(th)
		})
	}
	for _, step := range steps {
		n = step(n)
		if n.Message.Level == LevelError {
			problems = append(problems, n.Message.Text)
		}
	}

	n.Version = s.Version + 1
	n.Message = Message{}
	if len(problems) > 0 {
		n.Message = Message{Level: LevelError, Text: strings.Join(problems, "; ")}
	}
	return n
}

func orDefault(raw string, current float64) string {
	if strings.TrimSpace(raw) == "" {
		return fmt.Sprint(current)
	}
	return raw
}

// Reset discards the table and every control, returning to the initial
// state. The version keeps counting so clients can detect the change.
func (s State) Reset() State {
	n := Initial(s.defaults)
	n.Version = s.Version + 1
	n.Message = info("Session reset")
	return n
}

// ParseThreshold reads the two numeric threshold inputs and the optional
// basis selector of the form.
func ParseThreshold(p, fc, basis string) (results.Threshold, error) {
	th := results.Threshold{Basis: results.ParseColumn(basis)}
	var err error
	if th.PCutoff, err = parseCutoff("p-value cutoff", p); err != nil {
		return th, err
	}
	if th.FoldChangeCutoff, err = parseCutoff("fold-change cutoff", fc); err != nil {
		return th, err
	}
	return th, th.Validate()
}

func parseCutoff(name, raw string) (float64, error) {
	v, err := results.ParseNumber(raw)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return v, nil
}
