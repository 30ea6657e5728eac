package ui

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trialdesk/domain/session"
	"trialdesk/internal/container"
	sessionmw "trialdesk/ui/middleware"
)

// App is the standalone demo UI on a chi router. It serves the same pages
// as Server and relies on polling instead of the event stream.
type App struct {
	router     *chi.Mux
	templates  *template.Template
	controller *Controller
	limiter    *sessionmw.SubmitLimiter
	port       string
}

// Config holds UI application configuration
type Config struct {
	Port      string
	Container *container.Container
}

// NewApp creates a new UI application
func NewApp(config Config) (*App, error) {
	if config.Container == nil {
		return nil, fmt.Errorf("container is required")
	}

	controller, err := NewController(config.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	serverConfig := config.Container.Config.Server
	port := config.Port
	if port == "" {
		port = serverConfig.Port
	}

	app := &App{
		router:     chi.NewRouter(),
		templates:  templates,
		controller: controller,
		limiter:    sessionmw.NewSubmitLimiter(serverConfig.SubmitRatePerSec, serverConfig.SubmitBurst),
		port:       port,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	static, err := staticFS()
	if err != nil {
		log.Printf("[App] Error creating static filesystem: %v", err)
		return
	}
	a.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	a.router.Group(func(r chi.Router) {
		r.Use(sessionmw.SessionHandler(a.controller.Sessions()))

		r.Get("/", a.handleIndex)
		r.Post("/navigate/risk", a.handleNavigate(session.PageRisk))
		r.Post("/navigate/finder", a.handleNavigate(session.PageFinder))
		r.Post("/session/reset", a.handleReset)

		r.Get("/risk/panel", a.handleRiskPanel)
		r.Get("/finder/panel", a.handleFinderPanel)
		r.Get("/finder/export.xlsx", a.handleFinderExport)

		r.Group(func(r chi.Router) {
			r.Use(a.limiter.Handler)
			r.Post("/risk/submit", a.handleRiskSubmit)
			r.Post("/risk/apply", a.handleRiskApply(false))
			r.Post("/risk/undo", a.handleRiskApply(true))
			r.Post("/finder/submit", a.handleFinderSubmit)
		})
	})
}

// ServeHTTP lets the app be used directly as a handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// HTTPServer returns an http.Server bound to the configured port
func (a *App) HTTPServer() *http.Server {
	return &http.Server{Addr: ":" + a.port, Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
}

// Template helpers
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	writeTemplate(w, a.templates, http.StatusOK, templateName, data)
}
