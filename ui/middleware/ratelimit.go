package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"trialdesk/internal/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SubmitLimiter rate limits form submissions per session
type SubmitLimiter struct {
	limiters     map[string]*limiterEntry
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
	idleTTL      time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSubmitLimiter creates a limiter allowing requestsPerSecond with the given burst
func NewSubmitLimiter(requestsPerSecond float64, burst int) *SubmitLimiter {
	if burst <= 0 {
		burst = 5
	}

	return &SubmitLimiter{
		limiters:     make(map[string]*limiterEntry),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
		idleTTL:      10 * time.Minute,
	}
}

// Allow reports whether the session may submit now
func (l *SubmitLimiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *SubmitLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, exists := l.limiters[key]; exists {
		entry.lastSeen = now
		return entry.limiter
	}

	l.pruneLocked(now)

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// pruneLocked drops limiters of sessions that have been idle for idleTTL
func (l *SubmitLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

// Size returns the number of tracked sessions
func (l *SubmitLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func limitKey(r *http.Request) string {
	if sess, ok := SessionFrom(r.Context()); ok {
		return sess.ID.String()
	}
	return r.RemoteAddr
}

// errTooManySubmissions is the response to a rejected submission
var errTooManySubmissions = errors.RateLimited("too many submissions, slow down")

// Limit is gin middleware rejecting submissions over the session's rate
func (l *SubmitLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := limitKey(c.Request)
		if !l.Allow(key) {
			log.Printf("[RateLimit] Rejected %s %s for %s", c.Request.Method, c.Request.URL.Path, key)
			c.AbortWithStatusJSON(errors.HTTPStatus(errTooManySubmissions), gin.H{"error": errTooManySubmissions.Error(), "code": errTooManySubmissions.Code})
			return
		}
		c.Next()
	}
}

// Handler is the net/http variant of Limit for chi routers
func (l *SubmitLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := limitKey(r)
		if !l.Allow(key) {
			log.Printf("[RateLimit] Rejected %s %s for %s", r.Method, r.URL.Path, key)
			http.Error(w, errTooManySubmissions.Error(), errors.HTTPStatus(errTooManySubmissions))
			return
		}
		next.ServeHTTP(w, r)
	})
}
