package ui

import (
	"context"
	stderrors "errors"
	"io"
	"log"
	"net/http"

	"trialdesk/domain/core"
	"trialdesk/domain/session"
	"trialdesk/domain/trial"
	"trialdesk/internal/errors"
	"trialdesk/ui/middleware"

	"github.com/gin-gonic/gin"
)

// sessionResponse is the JSON body of every API call
type sessionResponse struct {
	Session       *session.Session    `json:"session"`
	FinderSummary *trial.ScoreSummary `json:"finder_summary,omitempty"`
}

func newSessionResponse(sess *session.Session) sessionResponse {
	resp := sessionResponse{Session: sess}
	if sess.Finder.Submitted {
		summary := trial.SummarizeScores(sess.Finder.Results)
		resp.FinderSummary = &summary
	}
	return resp
}

// AddAPIRoutes registers the blocking JSON API and the event stream
func (s *Server) AddAPIRoutes() {
	resolver := s.controller.Sessions()

	api := s.router.Group("/api")
	{
		api.GET("/events", s.sseHub.HandleSSE)

		withSession := api.Group("/", middleware.Session(resolver))
		withSession.GET("/session", s.handleAPISession)

		blocking := withSession.Group("/", s.limiter.Limit())
		blocking.POST("/risk", s.handleAPIRisk)
		blocking.POST("/risk/apply", s.handleAPIRiskApply(false))
		blocking.POST("/risk/undo", s.handleAPIRiskApply(true))
		blocking.POST("/finder", s.handleAPIFinder)
	}
}

func (s *Server) handleAPISession(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleAPIRisk(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var attrs trial.TrialAttributes
	if !bindOptionalJSON(c, &attrs) {
		return
	}
	attrs.AppliedSuggestions = nil

	log.Printf("[API] Risk estimate requested for session %s", sess.ID)
	updated, err := s.container.RiskService.Submit(c.Request.Context(), sess.ID, attrs)
	s.respondAPI(c, updated, err)
}

func (s *Server) handleAPIRiskApply(undo bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil {
			return
		}

		var (
			updated *session.Session
			err     error
		)
		if undo {
			updated, err = s.container.RiskService.Undo(c.Request.Context(), sess.ID)
		} else {
			updated, err = s.container.RiskService.Apply(c.Request.Context(), sess.ID)
		}
		s.respondAPI(c, updated, err)
	}
}

func (s *Server) handleAPIFinder(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		return
	}

	var query trial.PatientQuery
	if !bindOptionalJSON(c, &query) {
		return
	}

	log.Printf("[API] Trial search requested for session %s", sess.ID)
	updated, err := s.container.FinderService.Search(c.Request.Context(), sess.ID, query)
	s.respondAPI(c, updated, err)
}

func (s *Server) respondAPI(c *gin.Context, sess *session.Session, err error) {
	if err != nil {
		appErr := toAppError(err)
		log.Printf("[API] ❌ %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(errors.HTTPStatus(appErr), gin.H{"error": appErr.Error(), "code": appErr.Code})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

// bindOptionalJSON binds the request body, treating an empty body as {}
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !stderrors.Is(err, io.EOF) {
		appErr := errors.InvalidInput("invalid request body")
		c.JSON(errors.HTTPStatus(appErr), gin.H{"error": appErr.Error(), "code": appErr.Code})
		return false
	}
	return true
}

// toAppError maps domain errors onto application error codes
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case core.IsNotFoundError(err):
		return errors.NotFound("session")
	case stderrors.Is(err, core.ErrTaskPending):
		return errors.Conflict("a request is already running")
	case stderrors.Is(err, core.ErrNotSubmitted):
		return errors.Conflict("submit the trial details first")
	case stderrors.Is(err, core.ErrUnknownIntent):
		return errors.InvalidInput("unknown request")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.InternalError("request cancelled")
	default:
		return errors.InternalError("request failed")
	}
}
