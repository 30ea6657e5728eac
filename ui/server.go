package ui

import (
	"html/template"
	"log"
	"net/http"
	"time"

	"trialdesk/domain/session"
	"trialdesk/internal/api"
	"trialdesk/internal/container"
	"trialdesk/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Server represents the web server for the trialdesk UI and JSON API
type Server struct {
	router     *gin.Engine
	templates  *template.Template
	controller *Controller
	container  *container.Container
	sseHub     *api.SSEHub
	limiter    *middleware.SubmitLimiter
}

// NewServer creates the gin server on top of an initialized container
func NewServer(c *container.Container) (*Server, error) {
	controller, err := NewController(c)
	if err != nil {
		return nil, err
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:     gin.New(),
		templates:  templates,
		controller: controller,
		container:  c,
		sseHub:     c.SSEHub,
		limiter:    middleware.NewSubmitLimiter(c.Config.Server.SubmitRatePerSec, c.Config.Server.SubmitBurst),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns an http.Server for the handler. Its Shutdown also closes
// the event hub, which ends open event streams.
func (s *Server) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.sseHub.Close)
	return srv
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())

	static, err := staticFS()
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
		return
	}
	log.Printf("[Static] Serving static files from embedded FS at /static")
	s.router.StaticFS("/static", http.FS(static))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	pages := s.router.Group("/")
	pages.Use(middleware.Session(s.controller.Sessions()))
	{
		pages.GET("/", s.handleIndex)
		pages.POST("/navigate/risk", s.handleNavigate(session.PageRisk))
		pages.POST("/navigate/finder", s.handleNavigate(session.PageFinder))
		pages.POST("/session/reset", s.handleReset)

		pages.GET("/risk/panel", s.handleRiskPanel)
		pages.GET("/finder/panel", s.handleFinderPanel)
		pages.GET("/finder/export.xlsx", s.handleFinderExport)

		submit := pages.Group("/", s.limiter.Limit())
		submit.POST("/risk/submit", s.handleRiskSubmit)
		submit.POST("/risk/apply", s.handleRiskApply(false))
		submit.POST("/risk/undo", s.handleRiskApply(true))
		submit.POST("/finder/submit", s.handleFinderSubmit)
	}

	s.AddAPIRoutes()
}

// renderTemplate executes a template with the given data
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	writeTemplate(c.Writer, s.templates, http.StatusOK, templateName, data)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
