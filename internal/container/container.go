package container

import (
	"context"
	"fmt"
	"log"

	"trialdesk/adapters/memory"
	"trialdesk/adapters/placeholder"
	"trialdesk/adapters/postgres"
	"trialdesk/app"
	"trialdesk/internal"
	"trialdesk/internal/api"
	"trialdesk/internal/config"
	"trialdesk/internal/tasks"
	"trialdesk/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB     *sqlx.DB
	SSEHub *api.SSEHub
	Tasks  *tasks.Runner

	// Session storage
	SessionRepo ports.SessionRepository

	// Placeholder model and catalog
	Predictor   ports.RiskPredictor
	Suggestions ports.SuggestionSource
	TrialFinder ports.TrialFinder

	// Application services
	Stages         *app.StageRunner
	SessionService *app.SessionService
	RiskService    *app.RiskService
	FinderService  *app.FinderService
}

// New creates a new dependency injection container. Call InitWithMemory or
// InitWithDatabase before using the services.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))
	model := placeholder.NewRiskModel()

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		SSEHub:      api.NewSSEHub(),
		Tasks:       tasks.NewRunner(cfg.Server.MaxConcurrentTasks, logger),
		Predictor:   model,
		Suggestions: model,
		TrialFinder: placeholder.NewCatalog(),
	}

	return c, nil
}

// InitWithMemory keeps sessions in process memory
func (c *Container) InitWithMemory() error {
	c.SessionRepo = memory.NewSessionStore(c.Config.Session.TTL, c.Config.Session.CleanupInterval)
	c.initServices()

	log.Printf("Container initialized with in-memory sessions (ttl %v)", c.Config.Session.TTL)
	return nil
}

// InitWithDatabase keeps sessions in PostgreSQL
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.SessionRepo = postgres.NewSessionRepository(db)
	c.initServices()

	log.Printf("Container initialized successfully with database connection")
	return nil
}

func (c *Container) initServices() {
	timing := app.Timing{
		StageDelay:      c.Config.Demo.StageDelay,
		SuggestionDelay: c.Config.Demo.SuggestionDelay,
	}

	c.Stages = app.NewStageRunner(c.SessionRepo, c.SSEHub, c.Logger)
	c.SessionService = app.NewSessionService(c.SessionRepo, c.Logger)
	c.RiskService = app.NewRiskService(c.SessionRepo, c.Predictor, c.Suggestions, c.Stages, timing, c.Logger)
	c.FinderService = app.NewFinderService(c.SessionRepo, c.TrialFinder, c.Stages, timing, c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Tasks != nil {
		if err := c.Tasks.Stop(ctx); err != nil {
			log.Printf("Background tasks did not stop cleanly: %v", err)
		}
	}

	if c.SSEHub != nil {
		c.SSEHub.Close()
	}

	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
