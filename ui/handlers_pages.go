package ui

import (
	"log"
	"net/http"

	"trialdesk/domain/session"
	"trialdesk/internal/errors"
	"trialdesk/ui/middleware"
	"trialdesk/ui/services"

	"github.com/gin-gonic/gin"
)

// currentSession returns the session attached by the session middleware
func currentSession(c *gin.Context) *session.Session {
	sess, ok := middleware.SessionFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "no session"})
		return nil
	}
	return sess
}

func (s *Server) handleIndex(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	s.renderTemplate(c, "index.html", services.NewPageView(sess))
}

func (s *Server) handleNavigate(page session.Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil {
			return
		}

		if _, err := s.controller.Navigate(c.Request.Context(), sess.ID, page); err != nil {
			s.pageError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

func (s *Server) handleReset(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	fresh, err := s.controller.Reset(c.Request.Context(), sess.ID)
	if err != nil {
		s.pageError(c, err)
		return
	}
	middleware.SetSessionCookie(c.Writer, fresh.ID)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) pageError(c *gin.Context, err error) {
	appErr := toAppError(err)
	log.Printf("[Server] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(errors.HTTPStatus(appErr), gin.H{"error": appErr.Error()})
}
