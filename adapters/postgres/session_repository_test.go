package postgres

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	apperrors "trialdesk/internal/errors"
	"trialdesk/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL or skips the test
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres repository tests")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	return db
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Delete(ctx, created.ID) })

	taskID := core.NewTaskID()
	updated, err := repo.Update(ctx, created.ID, func(s *session.Session) error {
		if err := s.Apply(session.GoToRisk{}); err != nil {
			return err
		}
		return s.Apply(session.SubmitRisk{TaskID: taskID})
	})
	require.NoError(t, err)
	assert.Equal(t, session.PageRisk, updated.Page)

	loaded, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, session.PageRisk, loaded.Page)
	assert.True(t, loaded.Risk.Submitted)
	assert.Equal(t, taskID, loaded.Risk.Task.ID)
	assert.Equal(t, updated.Version, loaded.Version)
}

func TestSessionRepositoryMissing(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))

	_, err := repo.Get(context.Background(), core.NewSessionID())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	_, err = repo.Update(context.Background(), core.NewSessionID(), func(*session.Session) error { return nil })
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx)
	require.NoError(t, err)

	_, err = repo.DeleteExpired(ctx, -time.Minute)
	require.NoError(t, err)

	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestDecodeSessionRejectsCorruptState(t *testing.T) {
	_, err := decodeSession(sessionRow{ID: "0192d6c4-5a8e-7c3f-9b1d-2e4f6a8c0b1d", State: []byte("{")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal session 0192d6c4")
	assert.Equal(t, apperrors.CodeInternalError, apperrors.GetCode(err))
}

func TestDBErrorIsTagged(t *testing.T) {
	cause := stderrors.New("connection reset by peer")
	err := dbError(cause, "failed to get session")

	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "failed to get session: connection reset by peer", err.Error())
}
