package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionRepository = (*SessionStore)(nil)

func newStore() *SessionStore {
	return NewSessionStore(time.Hour, time.Minute)
}

func TestCreateAndGet(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	created, err := store.Create(ctx)
	require.NoError(t, err)
	assert.True(t, created.IsLanding())

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, 1, store.Count())
}

func TestGetMissing(t *testing.T) {
	_, err := newStore().Get(context.Background(), core.NewSessionID())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestUpdatePersistsOnSuccess(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	created, err := store.Create(ctx)
	require.NoError(t, err)

	updated, err := store.Update(ctx, created.ID, func(s *session.Session) error {
		return s.Apply(session.GoToFinder{})
	})
	require.NoError(t, err)
	assert.Equal(t, session.PageFinder, updated.Page)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, session.PageFinder, loaded.Page)
}

func TestUpdateDiscardsOnError(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	created, err := store.Create(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Update(ctx, created.ID, func(s *session.Session) error {
		s.Page = session.PageRisk
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsLanding())
}

func TestReturnedSessionsAreCopies(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	created, err := store.Create(ctx)
	require.NoError(t, err)

	created.Page = session.PageRisk

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsLanding())
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	created, err := store.Create(ctx)
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, created.ID, func(s *session.Session) error {
				return s.Apply(session.GoToRisk{})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1+writers, loaded.Version)
}

func TestUpdatesLockPerSession(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	first, err := store.Create(ctx)
	require.NoError(t, err)
	second, err := store.Create(ctx)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, err := store.Update(ctx, first.ID, func(s *session.Session) error {
			close(entered)
			<-release
			return s.Apply(session.GoToRisk{})
		})
		assert.NoError(t, err)
	}()
	<-entered

	otherDone := make(chan error, 1)
	go func() {
		_, err := store.Update(ctx, second.ID, func(s *session.Session) error {
			return s.Apply(session.GoToFinder{})
		})
		otherDone <- err
	}()
	select {
	case err := <-otherDone:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("update of another session waited on a held lock")
	}

	sameDone := make(chan error, 1)
	go func() {
		_, err := store.Update(ctx, first.ID, func(s *session.Session) error {
			return s.Apply(session.GoToRisk{})
		})
		sameDone <- err
	}()
	select {
	case <-sameDone:
		t.Fatal("update of the same session ran while its lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-sameDone)

	loaded, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Version)
}

func TestDeleteWaitsForUpdate(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	created, err := store.Create(ctx)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	updated := make(chan error, 1)
	go func() {
		_, err := store.Update(ctx, created.ID, func(s *session.Session) error {
			close(entered)
			<-release
			return s.Apply(session.GoToRisk{})
		})
		updated <- err
	}()
	<-entered

	deleted := make(chan error, 1)
	go func() { deleted <- store.Delete(ctx, created.ID) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-updated)
	require.NoError(t, <-deleted)
	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.locks)
}

func TestDeleteAndDeleteExpired(t *testing.T) {
	store := newStore()
	ctx := context.Background()

	first, err := store.Create(ctx)
	require.NoError(t, err)
	second, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, first.ID))
	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	removed, err := store.DeleteExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	time.Sleep(5 * time.Millisecond)
	removed, err = store.DeleteExpired(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, second.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}
