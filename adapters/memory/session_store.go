// Package memory keeps sessions in process memory with a sliding TTL
package memory

import (
	"context"
	"sync"
	"time"

	"trialdesk/domain/core"
	"trialdesk/domain/session"

	gocache "github.com/patrickmn/go-cache"
)

// SessionStore implements ports.SessionRepository on top of go-cache.
// Stored sessions are never handed out; callers always receive clones.
// Writes to one session are serialized by that session's own lock.
type SessionStore struct {
	cache *gocache.Cache
	ttl   time.Duration

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewSessionStore creates a store whose sessions expire ttl after their last update
func NewSessionStore(ttl time.Duration, cleanupInterval time.Duration) *SessionStore {
	s := &SessionStore{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
		locks: make(map[string]*sync.Mutex),
	}
	s.cache.OnEvicted(func(key string, _ interface{}) { s.release(key) })
	return s
}

// Create stores a fresh landing-page session
func (s *SessionStore) Create(ctx context.Context) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess := session.New(core.NewSessionID())
	s.cache.Set(sess.ID.String(), sess, s.ttl)
	return sess.Clone(), nil
}

// Get returns a copy of the session. Stored values are replaced on update,
// never mutated, so reads need no lock.
func (s *SessionStore) Get(ctx context.Context, id core.SessionID) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, ok := s.lookup(id.String())
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update applies fn to a working copy and stores it only when fn succeeds
func (s *SessionStore) Update(ctx context.Context, id core.SessionID, fn func(*session.Session) error) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := id.String()
	if _, ok := s.lookup(key); !ok {
		return nil, core.ErrSessionNotFound
	}

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	stored, ok := s.lookup(key)
	if !ok {
		s.forget(key)
		return nil, core.ErrSessionNotFound
	}

	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	s.cache.Set(key, working, s.ttl)
	return working.Clone(), nil
}

// Delete removes the session, waiting for an in-flight update to land first
func (s *SessionStore) Delete(ctx context.Context, id core.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := id.String()
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	s.cache.Delete(key)
	s.forget(key)
	return nil
}

// DeleteExpired removes sessions whose last update is older than maxAge
func (s *SessionStore) DeleteExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	s.cache.DeleteExpired()

	removed := 0
	for key := range s.cache.Items() {
		if s.expire(key, cutoff) {
			removed++
		}
	}
	return removed, nil
}

// expire drops key if it is still idle past cutoff once its lock is held
func (s *SessionStore) expire(key string, cutoff time.Time) bool {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	value, found := s.cache.Get(key)
	if !found {
		s.forget(key)
		return false
	}
	if sess, ok := value.(*session.Session); ok && !sess.UpdatedAt.Before(cutoff) {
		return false
	}
	s.cache.Delete(key)
	s.forget(key)
	return true
}

func (s *SessionStore) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// release drops the lock of an evicted session unless an update still holds it
func (s *SessionStore) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.locks[key]; ok && lock.TryLock() {
		delete(s.locks, key)
		lock.Unlock()
	}
}

func (s *SessionStore) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}

func (s *SessionStore) lookup(key string) (*session.Session, bool) {
	value, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok
}
