package main

import (
	"context"
	"log"
	"os"
	"time"

	"trialdesk/adapters/postgres"
	"trialdesk/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [purge-sessions-older-than, e.g. 24h]")
	}

	databaseURL := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema migrated to version %s", runner.Version())

	if len(os.Args) < 3 {
		return
	}

	maxAge, err := time.ParseDuration(os.Args[2])
	if err != nil {
		log.Fatalf("Invalid purge age %q: %v", os.Args[2], err)
	}

	removed, err := postgres.NewSessionRepository(db).DeleteExpired(ctx, maxAge)
	if err != nil {
		log.Fatalf("Failed to purge sessions: %v", err)
	}
	log.Printf("Purged %d sessions idle for more than %s", removed, maxAge)
}
