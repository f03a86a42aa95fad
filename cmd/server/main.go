// Package main implements the entry point for the Atelier API server,
// which manages users' guided project artifacts and generates their
// illustration images through external image models.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"imagegen_provider", cfg.ImageGen.Provider)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateCmd != "" {
		if err := runMigrations(db, *migrateCmd, appLogger); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	// Pending migrations are applied at startup so a fresh deployment
	// comes up without a separate migration step.
	if err := runMigrations(db, "up", appLogger); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}
