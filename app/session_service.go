package app

import (
	"context"
	"errors"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/internal"
	"trialdesk/ports"
)

// SessionService resolves browser sessions and moves them between pages
type SessionService struct {
	sessions ports.SessionRepository
	logger   *internal.Logger
}

// NewSessionService creates a session service
func NewSessionService(sessions ports.SessionRepository, logger *internal.Logger) *SessionService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SessionService{
		sessions: sessions,
		logger:   logger.With("SessionService"),
	}
}

// Resolve loads the session named by rawID, creating a new landing session
// when the ID is missing, malformed or expired. created reports whether a
// new session was issued.
func (s *SessionService) Resolve(ctx context.Context, rawID string) (sess *session.Session, created bool, err error) {
	if rawID != "" {
		id, parseErr := core.ParseSessionID(rawID)
		if parseErr == nil {
			sess, err = s.sessions.Get(ctx, id)
			if err == nil {
				return sess, false, nil
			}
			if !errors.Is(err, core.ErrSessionNotFound) {
				return nil, false, err
			}
		}
	}

	sess, err = s.sessions.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	s.logger.Debug("Issued session %s", sess.ID)
	return sess, true, nil
}

// Get returns the session with the given ID
func (s *SessionService) Get(ctx context.Context, id core.SessionID) (*session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Navigate applies a landing-page choice. Choices made off the landing page
// leave the session where it is.
func (s *SessionService) Navigate(ctx context.Context, id core.SessionID, page session.Page) (*session.Session, error) {
	var msg session.Message
	switch page {
	case session.PageRisk:
		msg = session.GoToRisk{}
	case session.PageFinder:
		msg = session.GoToFinder{}
	default:
		return nil, core.ErrUnknownIntent
	}

	sess, err := s.sessions.Update(ctx, id, func(sess *session.Session) error {
		return sess.Apply(msg)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Session %s now on page %s", id, sess.Page)
	return sess, nil
}

// Reset discards the session and issues a fresh landing session
func (s *SessionService) Reset(ctx context.Context, id core.SessionID) (*session.Session, error) {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return nil, err
	}
	return s.sessions.Create(ctx)
}
