package ui

import (
	"net/http"

	"trialdesk/domain/session"
	"trialdesk/domain/trial"
	"trialdesk/ui/services"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRiskSubmit(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	attrs := trial.TrialAttributes{
		Title:       c.PostForm("title"),
		Eligibility: c.PostForm("eligibility"),
		Description: c.PostForm("description"),
	}

	updated, err := s.controller.SubmitRisk(c.Request.Context(), sess.ID, attrs)
	if err != nil {
		s.pageError(c, err)
		return
	}
	s.respondRisk(c, updated)
}

func (s *Server) handleRiskApply(undo bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil {
			return
		}

		updated, err := s.controller.ApplySuggestions(c.Request.Context(), sess.ID, undo)
		if err != nil {
			s.pageError(c, err)
			return
		}
		s.respondRisk(c, updated)
	}
}

func (s *Server) handleRiskPanel(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	s.renderTemplate(c, "risk_panel", services.NewRiskView(sess.Risk))
}

func (s *Server) respondRisk(c *gin.Context, sess *session.Session) {
	if !isHTMX(c.Request) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.renderTemplate(c, "risk_panel", services.NewRiskView(sess.Risk))
}
