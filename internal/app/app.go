package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"gradecli/internal/config"
	apierrors "gradecli/internal/errors"
	"gradecli/internal/exporter"
	"gradecli/internal/infrastructure"
	customMiddleware "gradecli/internal/middleware"
	"gradecli/internal/services"
	"gradecli/internal/session"
	handlers "gradecli/internal/transport/http"
	"gradecli/pkg/contracts"
)

// AppName is the human readable service name
const AppName = "Canvas Gradebook Analyzer"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Sessions      *session.Store
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Gradebook *services.GradebookService
	Health    *services.HealthService
}

// NewApplication loads configuration from configPath (empty searches the
// default locations), initializes the global logger and builds the application.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	version := contracts.GetVersionInfo()
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", version.Version),
		slog.String("git_commit", version.GitCommit))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	a.Sessions = session.NewStore(session.Config{
		TTL:         a.Config.Sessions.TTL,
		MaxSessions: a.Config.Sessions.MaxSessions,
		OnRemove: func(id string, reason session.RemoveReason) {
			infrastructure.RecordSessionRemoved(context.Background(), a.Metrics, string(reason))
		},
	}, a.Logger)

	gradebookService := services.NewGradebookService(
		a.Sessions,
		services.GradebookConfig{
			Parse:          a.Config.Analysis.ParseOptions(),
			PseudonymPool:  a.Config.Analysis.PseudonymPool,
			MaxUploadBytes: a.Config.Sessions.MaxUploadBytes,
		},
		exporter.NewExporter(a.Logger),
		a.Metrics,
		a.Logger,
	)

	a.Services = &ServiceContainer{
		Gradebook: gradebookService,
		Health:    services.NewHealthService(a.Sessions, a.Logger),
	}

	a.Logger.Info("Services initialized",
		slog.Duration("session_ttl", a.Config.Sessions.TTL),
		slog.Int("max_sessions", a.Config.Sessions.MaxSessions),
		slog.String("row_policy", a.Config.Analysis.RowPolicy))
}

// setupRouter configures the middleware chain and routes.
// Order: RequestID, RealIP, OTel, Logger, Recoverer, security, CORS, rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.DefaultSecureHeaders().Handler)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.isDevelopmentMode())
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Use(errorHandler.Middleware)
		if a.isDevelopmentMode() {
			r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r, errorHandler)
	})

	r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.Services.Health).Routes())

	a.Router = r
}

// setupAPIRoutes registers the /api routes
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Mount("/health", healthHandler.Routes())
	r.Get("/version", healthHandler.Version)

	gradebookHandler := handlers.NewGradebookHandler(
		a.Services.Gradebook,
		a.Config.Sessions.MaxUploadBytes,
		a.Logger,
		errorHandler,
	)
	r.Mount("/sessions", gradebookHandler.Routes())
}

// getCORSConfig builds the CORS configuration from the security section
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"Location",
			"X-Request-ID",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// isDevelopmentMode reports whether verbose error details may be exposed
func (a *Application) isDevelopmentMode() bool {
	return a.Config.Telemetry.Environment == "development"
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Serve runs the HTTP server on ln and the session janitor until ctx is
// cancelled or either fails, then shuts down gracefully.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Sessions.RunJanitor(gctx, a.Config.Sessions.CleanupInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Start listens on the configured address and serves until ctx is done
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Int("discarded_sessions", a.Sessions.Len()))
	return errors.Join(errs...)
}

// Run runs the application until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Start(ctx)
}
