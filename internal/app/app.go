package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-planner/internal/config"
	httpcontroller "github.com/vadim/neo-planner/internal/controller/http"
	"github.com/vadim/neo-planner/internal/database"
	"github.com/vadim/neo-planner/internal/dispatch"
	"github.com/vadim/neo-planner/internal/domain/planning/constraint"
	"github.com/vadim/neo-planner/internal/domain/planning/dao"
	"github.com/vadim/neo-planner/internal/domain/planning/policy"
	"github.com/vadim/neo-planner/internal/domain/planning/queue"
	"github.com/vadim/neo-planner/internal/domain/planning/resolver"
	"github.com/vadim/neo-planner/internal/domain/planning/scheduler"
	"github.com/vadim/neo-planner/internal/domain/planning/service"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure
	pool       *pgxpool.Pool
	dispatcher *dispatch.Dispatcher

	// Domain policies (interfaces for HTTP handlers)
	planningPolicy *policy.Policy

	// Scheduler for releasing stale queue reservations
	scheduler *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}

	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	if err := app.initDomains(ctx); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	// Register routes
	if err := app.registerRoutes(); err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Initialize scheduler
	if cfg.Planner.PruneEnabled {
		app.scheduler = scheduler.New(app.planningPolicy, cfg.Planner.PruneInterval, logger,
			scheduler.WithRetention(cfg.Planner.PruneRetention),
		)
	}

	return app, nil
}

// initInfrastructure initializes infrastructure components (Postgres, Redis)
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN, database.PoolOptions{
		MaxConns:     a.cfg.Database.MaxConns,
		MinConns:     a.cfg.Database.MinConns,
		ConnLifetime: a.cfg.Database.ConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pool = pool

	if a.cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return err
		}
		a.logger.Info("database schema applied")
	}

	a.dispatcher = dispatch.New(dispatch.RedisOptions{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}, a.cfg.Redis.PublishQueue, a.logger)

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	weekStart, err := a.cfg.Planner.WeekStartDay()
	if err != nil {
		return err
	}

	validator, err := constraint.NewValidator(constraint.DefaultTable())
	if err != nil {
		return fmt.Errorf("building constraint validator: %w", err)
	}

	profilesRepo := dao.NewProfilePostgres(a.pool)
	postsRepo := dao.NewPostPostgres(a.pool)
	planningService := service.New(profilesRepo, postsRepo)

	planner := queue.NewPlanner(queue.WithHorizonWeeks(a.cfg.Planner.HorizonWeeks))
	res := resolver.New(planner)

	a.planningPolicy = policy.New(
		planningService,
		validator,
		planner,
		res,
		a.dispatcher,
		a.logger,
		policy.WithReserveAttempts(a.cfg.Planner.ReserveAttempts),
		policy.WithWeekStart(weekStart),
	)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	swaggerHandler, err := httpcontroller.NewSwaggerHandler("Neo-Planner Scheduling API", OpenAPISpec)
	if err != nil {
		return err
	}
	swaggerHandler.RegisterRoutes(a.router)

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		planningHandler := httpcontroller.NewPlanningHandler(a.planningPolicy)
		planningHandler.RegisterRoutes(r)
	})

	return nil
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler reports ready once the database answers
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.pool.Ping(ctx); err != nil {
		a.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	// Start scheduler if enabled
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.Shutdown(context.Background())
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	// Stop scheduler
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	a.closeInfrastructure()
	if err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(); err != nil {
			a.logger.Error("closing task queue client", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
