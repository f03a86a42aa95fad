package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/atelier-api/internal/batch"
	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/imagegen"
	"github.com/phrazzld/atelier-api/internal/platform/gemini"
	"github.com/phrazzld/atelier-api/internal/platform/imagestore"
	"github.com/phrazzld/atelier-api/internal/platform/openai"
	"github.com/phrazzld/atelier-api/internal/platform/postgres"
	"github.com/phrazzld/atelier-api/internal/quota"
	"github.com/phrazzld/atelier-api/internal/service/artifact"
	"github.com/phrazzld/atelier-api/internal/service/auth"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/phrazzld/atelier-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore     store.UserStore
	artifactStore store.ArtifactStore
	quotaStore    store.QuotaStore
	imageStore    store.ImageStore
	taskStore     task.TaskStore
	provisioner   *postgres.AccountProvisioner

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	generator        imagegen.Generator
	ledger           *quota.Ledger
	orchestrator     *batch.Orchestrator
	artifactService  *artifact.Service

	// Quota tier table
	tierLimits map[domain.QuotaTier]domain.TierLimits

	// Event system and task handling
	eventEmitter events.EventEmitter
	taskRunner   *task.Runner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies that must be established before
// application initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.tierLimits, err = quota.LimitsFromConfig(cfg.Quota)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota tier table: %w", err)
	}

	// Stores
	userStore := postgres.NewUserStore(db)
	quotaStore := postgres.NewQuotaStore(db)
	app.userStore = userStore
	app.quotaStore = quotaStore
	app.artifactStore = postgres.NewArtifactStore(db)
	app.provisioner = postgres.NewAccountProvisioner(db, userStore, quotaStore)

	app.imageStore, err = imagestore.NewFSStore(cfg.ImageGen.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}

	// Image generator, selected by provider config
	app.generator, err = setupGenerator(ctx, cfg.ImageGen, logger, app.imageStore)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image generator: %w", err)
	}
	logger.Info("image generator initialized", "provider", cfg.ImageGen.Provider)

	// Quota ledger and batch orchestrator
	app.ledger = quota.NewLedger(app.quotaStore, app.tierLimits, logger)

	app.orchestrator, err = batch.NewOrchestrator(app.generator, app.ledger, batch.Options{
		ConcurrencyLimit: cfg.ImageGen.ConcurrencyLimit,
		Deadline:         time.Duration(cfg.ImageGen.BatchDeadlineSeconds) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch orchestrator: %w", err)
	}

	app.artifactService, err = artifact.NewService(
		app.artifactStore,
		app.orchestrator,
		cfg.ImageGen,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact service: %w", err)
	}

	// Task factory and persistent task store. The store needs the factory
	// to rebuild executable tasks during recovery.
	taskFactory := task.NewImageGenerationTaskFactory(app.artifactService, logger)
	app.taskStore = postgres.NewTaskStore(db, taskFactory)

	app.taskRunner = task.NewRunner(app.taskStore, task.RunnerConfig{
		WorkerCount:            cfg.Task.WorkerCount,
		QueueSize:              cfg.Task.QueueSize,
		StuckTaskAge:           time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}, logger)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	// Event emitter wiring: API handlers emit, the factory handler turns
	// events into submitted tasks.
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(taskFactory, app.taskRunner, logger))
	app.eventEmitter = emitter

	logger.Info("application initialized")
	return app, nil
}

// setupGenerator builds the provider-specific image generator.
func setupGenerator(
	ctx context.Context,
	cfg config.ImageGenConfig,
	logger *slog.Logger,
	images store.ImageStore,
) (imagegen.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewGenerator(ctx, logger, cfg, images)
	case "openai":
		return openai.NewGenerator(logger, cfg, images)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", imagegen.ErrInvalidConfig, cfg.Provider)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
