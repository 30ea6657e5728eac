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
		// Fallback to v4 if v7 fails
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
	TaskID    ID
)

func (id SessionID) String() string { return ID(id).String() }
func (id TaskID) String() string    { return ID(id).String() }

// NewSessionID creates a browser session identifier
func NewSessionID() SessionID { return SessionID(NewID()) }

// NewTaskID creates a background task identifier
func NewTaskID() TaskID { return TaskID(NewID()) }

// ParseSessionID parses a cookie or query value into a SessionID.
// Session IDs must be UUIDs so they can key the Postgres store.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return SessionID(parsed.String()), nil
}
