package ports

import (
	"context"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
)

// SessionRepository defines the interface for session state storage
type SessionRepository interface {
	// Create stores a fresh landing-page session
	Create(ctx context.Context) (*session.Session, error)

	// Get returns a copy of the session or core.ErrSessionNotFound
	Get(ctx context.Context, id core.SessionID) (*session.Session, error)

	// Update runs fn against the stored session under the session's lock and
	// persists the result when fn returns nil
	Update(ctx context.Context, id core.SessionID, fn func(*session.Session) error) (*session.Session, error)

	// Delete removes the session; deleting a missing session is not an error
	Delete(ctx context.Context, id core.SessionID) error

	// DeleteExpired removes sessions not updated within maxAge
	DeleteExpired(ctx context.Context, maxAge time.Duration) (int, error)
}
