package ui

import (
	"fmt"
	"log"
	"net/http"

	"trialdesk/domain/trial"
	"trialdesk/ui/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleFinderSubmit(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	query := trial.PatientQuery{
		Condition:   c.PostForm("condition"),
		Preferences: c.PostForm("preferences"),
	}

	updated, err := s.controller.SubmitFinder(c.Request.Context(), sess.ID, query)
	if err != nil {
		s.pageError(c, err)
		return
	}

	if !isHTMX(c.Request) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.renderTemplate(c, "finder_panel", services.NewFinderView(updated.Finder))
}

func (s *Server) handleFinderPanel(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	s.renderTemplate(c, "finder_panel", services.NewFinderView(sess.Finder))
}

func (s *Server) handleFinderExport(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="trial-matches-%s.xlsx"`, sess.ID.String()[:8]))
	if err := s.controller.ExportResults(c.Request.Context(), sess.ID, c.Writer); err != nil {
		log.Printf("[Export] Failed to export results for session %s: %v", sess.ID, err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
