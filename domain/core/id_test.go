package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestParseSessionID tests session ID parsing
func TestParseSessionID(t *testing.T) {
	valid := NewID().String()
	tests := []struct {
		input    string
		expected SessionID
		hasError bool
	}{
		{valid, SessionID(valid), false},
		{"", "", true},
		{"   ", "", true},
		{"../../etc/passwd", "", true},
	}

	for _, test := range tests {
		result, err := ParseSessionID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestLoadErrorsUnwrap tests that typed loader errors match their sentinels
func TestLoadErrorsUnwrap(t *testing.T) {
	var missing error = &MissingFileError{Path: "/nope.csv"}
	if !errors.Is(missing, ErrMissingFile) {
		t.Error("Expected MissingFileError to match ErrMissingFile")
	}
	if !IsLoadError(missing) {
		t.Error("Expected MissingFileError to be a load error")
	}

	malformed := NewMalformedTableError("de.csv", 3, "p_value", "cannot parse %q", "abc")
	if !errors.Is(malformed, ErrMalformedTable) {
		t.Error("Expected MalformedTableError to match ErrMalformedTable")
	}
	want := `malformed results table de.csv (line 3, column p_value): cannot parse "abc"`
	if malformed.Error() != want {
		t.Errorf("Expected %q, got %q", want, malformed.Error())
	}
	if IsLoadError(ErrEmptyResult) {
		t.Error("Empty result must not count as a load error")
	}
}
