package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SessionID ID
	UploadID  ID
)

func (id SessionID) String() string { return ID(id).String() }
func (id UploadID) String() string  { return ID(id).String() }

// ParseSessionID parses a string into SessionID. Only UUIDs are accepted so
// a forged cookie cannot pick an arbitrary map key.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return SessionID(s), nil
}

// ParseUploadID parses a string into UploadID
func ParseUploadID(s string) (UploadID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("upload ID cannot be empty")
	}
	return UploadID(s), nil
}
