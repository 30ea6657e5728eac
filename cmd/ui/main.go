package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trialdesk/internal/config"
	"trialdesk/internal/container"
	"trialdesk/ui"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// Serves the pages only (chi router, in-memory sessions, no event stream)
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := c.InitWithMemory(); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	app, err := ui.NewApp(ui.Config{
		Port:      cfg.Server.Port,
		Container: c,
	})
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}
	srv := app.HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting Clinical Trials UI on http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown: %v", err)
		}
		return c.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("UI stopped with error: %v", err)
	}
	log.Println("UI stopped")
}
