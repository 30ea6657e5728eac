package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	apperrors "trialdesk/internal/errors"
	"trialdesk/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys
const uniqueViolation = "23505"

// sessionRow is the trial_sessions table layout
type sessionRow struct {
	ID        string    `db:"id"`
	Page      string    `db:"page"`
	State     []byte    `db:"state"`
	Version   int       `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SessionRepositoryImpl implements SessionRepository for PostgreSQL.
// The whole session is stored as JSONB; page and version are duplicated into
// columns for inspection.
type SessionRepositoryImpl struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// Create inserts a fresh landing-page session
func (r *SessionRepositoryImpl) Create(ctx context.Context) (*session.Session, error) {
	sess := session.New(core.NewSessionID())

	state, err := json.Marshal(sess)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO trial_sessions (id, page, state, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID.String(), string(sess.Page), state, sess.Version, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperrors.WithCode(apperrors.CodeConflict, apperrors.Wrapf(err, "session ID collision for %s", sess.ID))
		}
		return nil, dbError(err, "failed to create session")
	}

	return sess, nil
}

// Get retrieves a session by ID
func (r *SessionRepositoryImpl) Get(ctx context.Context, id core.SessionID) (*session.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, page, state, version, created_at, updated_at
		FROM trial_sessions
		WHERE id = $1
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, dbError(err, "failed to get session")
	}

	return decodeSession(row)
}

// Update locks the row, applies fn and writes the result back in one transaction
func (r *SessionRepositoryImpl) Update(ctx context.Context, id core.SessionID, fn func(*session.Session) error) (*session.Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, dbError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var row sessionRow
	err = tx.GetContext(ctx, &row, `
		SELECT id, page, state, version, created_at, updated_at
		FROM trial_sessions
		WHERE id = $1
		FOR UPDATE
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, dbError(err, "failed to lock session")
	}

	sess, err := decodeSession(row)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	state, err := json.Marshal(sess)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal session")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trial_sessions
		SET page = $2, state = $3, version = $4, updated_at = $5
		WHERE id = $1
	`, id.String(), string(sess.Page), state, sess.Version, sess.UpdatedAt)
	if err != nil {
		return nil, dbError(err, "failed to update session")
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError(err, "failed to commit session update")
	}

	return sess, nil
}

// Delete removes a session
func (r *SessionRepositoryImpl) Delete(ctx context.Context, id core.SessionID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trial_sessions WHERE id = $1`, id.String())
	if err != nil {
		return dbError(err, "failed to delete session")
	}
	return nil
}

// DeleteExpired removes sessions not updated within maxAge
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	result, err := r.db.ExecContext(ctx, `DELETE FROM trial_sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, dbError(err, "failed to delete expired sessions")
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

func decodeSession(row sessionRow) (*session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal(row.State, &sess); err != nil {
		return nil, apperrors.Wrapf(err, "failed to unmarshal session %s", row.ID)
	}

	// Columns are authoritative for identity and bookkeeping
	sess.ID = core.SessionID(row.ID)
	sess.Version = row.Version
	sess.CreatedAt = row.CreatedAt
	sess.UpdatedAt = row.UpdatedAt
	return &sess, nil
}

// dbError tags a driver error as a database failure
func dbError(err error, message string) error {
	return apperrors.WithCode(apperrors.CodeDatabaseError, apperrors.Wrap(err, message))
}
