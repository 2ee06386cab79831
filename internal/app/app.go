// Package app assembles the HTTP service: configuration, logging,
// OpenTelemetry, the snapshot holder, services, router and server
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"plstats/internal/cohort"
	"plstats/internal/config"
	"plstats/internal/errors"
	"plstats/internal/infrastructure"
	customMiddleware "plstats/internal/middleware"
	"plstats/internal/services"
	"plstats/internal/stats"
	"plstats/internal/store"
	handlers "plstats/internal/transport/http"
)

// Version is set at compile time via -ldflags.
var Version = "dev"

// Application is the assembled HTTP service.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Holder        *cohort.Holder
	QueryService  *services.QueryService
	HealthService *services.HealthService
	Router        *chi.Mux
	Server        *http.Server

	buildID string
	metrics *infrastructure.BusinessMetrics
}

// NewApplication loads configuration and wires the service together.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		buildID:       uuid.New().String(),
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices() {
	a.Holder = cohort.NewHolder(a.Logger)

	engine := stats.NewEngine(a.Config.Query.MinSampleSize)
	a.QueryService = services.NewQueryService(a.Holder, engine, a.Config.Query, a.Logger)
	a.HealthService = services.NewHealthService(Version, a.buildID, a.Holder, a.Logger)
}

// LoadSnapshot loads the persisted record set and publishes it. A missing
// database is not fatal: the service starts degraded and serves 503s until
// a refresh produces one.
func (a *Application) LoadSnapshot(ctx context.Context) error {
	reader, err := store.OpenReader(a.Config.Paths.Database, a.Logger)
	if err != nil {
		a.Logger.WarnContext(ctx, "no database to load, starting without a snapshot",
			slog.String("path", a.Config.Paths.Database),
			slog.String("error", err.Error()))
		return nil
	}
	defer reader.Close()

	records, err := reader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	a.Holder.Publish(cohort.NewSnapshot(records))
	if a.metrics != nil {
		a.metrics.SnapshotRecords.Add(ctx, int64(len(records)))
	}
	return nil
}

// setupRouter configures the middleware chain and routes. Ordering:
// RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders →
// CORS → RateLimiter, then per-group timeouts.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			a.metrics = otelMiddleware.Metrics()
			r.Use(otelMiddleware.Handler)
			r.Use(customMiddleware.BusinessMetricsMiddleware(a.metrics))
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: []string{"*"},
			Logger:         a.Logger,
		}))

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			errorHandler := errors.NewErrorHandler(a.Logger)
			queryHandler := handlers.NewQueryHandler(a.QueryService, a.Logger, errorHandler)
			r.Mount("/", queryHandler.Routes())
		})

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/healthz", healthHandler.Routes())
	})

	// Outside the middleware group; scrape traffic should not count
	// against rate limits or logs.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving. Returns once the listener is running; cancel is
// invoked if the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("version", Version),
		slog.String("build_id", a.buildID),
		slog.Int("port", a.Config.Server.Port))

	if err := a.LoadSnapshot(ctx); err != nil {
		return err
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "server started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop shuts the server down gracefully.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("log file close error: %w", err)
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
