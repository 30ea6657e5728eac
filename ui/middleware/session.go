package middleware

import (
	"context"
	"log"
	"net/http"

	"trialdesk/domain/core"
	"trialdesk/domain/session"

	"github.com/gin-gonic/gin"
)

// CookieName is the browser cookie holding the session ID
const CookieName = "trialdesk_session"

// SessionResolver loads or issues the session for a raw cookie value
type SessionResolver interface {
	Resolve(ctx context.Context, rawID string) (*session.Session, bool, error)
}

type sessionKey struct{}

// WithSession stores the resolved session in ctx
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session stored by the session middleware
func SessionFrom(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*session.Session)
	return sess, ok && sess != nil
}

// SetSessionCookie points the browser at the given session
func SetSessionCookie(w http.ResponseWriter, id core.SessionID) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func resolve(r *http.Request, w http.ResponseWriter, resolver SessionResolver) (*session.Session, error) {
	var raw string
	if cookie, err := r.Cookie(CookieName); err == nil {
		raw = cookie.Value
	}

	sess, created, err := resolver.Resolve(r.Context(), raw)
	if err != nil {
		return nil, err
	}
	if created {
		SetSessionCookie(w, sess.ID)
	}
	return sess, nil
}

// Session is gin middleware that attaches the browser's session to the request,
// issuing a new one when the cookie is missing or stale
func Session(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := resolve(c.Request, c.Writer, resolver)
		if err != nil {
			log.Printf("[Session] Failed to resolve session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// SessionHandler is the net/http variant of Session for chi routers
func SessionHandler(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := resolve(r, w, resolver)
			if err != nil {
				log.Printf("[Session] Failed to resolve session: %v", err)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
