// Package app wires the search service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Daption-ciray/proapp/internal/config"
	handler "github.com/Daption-ciray/proapp/internal/handler/http"
	"github.com/Daption-ciray/proapp/pkg/middleware"
	"github.com/Daption-ciray/proapp/pkg/tracing"
)

// ServiceName identifies the service in logs, traces and metrics.
const ServiceName = "search-service"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	components      *Components
	httpServer      *http.Server
	shutdownTracing tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTELEndpoint,
		SampleRate:  1,
		Enabled:     cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	components, err := Build(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.Dependencies{
		Search:      components.Search,
		Preferences: components.Preferences,
		Extractor:   components.Extractor,
		Health:      components.Health,
		CORS:        cors,
		ServiceName: ServiceName,
		Logger:      logger,
	})

	return &App{
		cfg:        cfg,
		logger:     logger,
		components: components,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      handler.RequestTimeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and the history consumer, blocking until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if c := a.components.consumer; c != nil {
		go func() {
			if err := c.Start(consumerCtx); err != nil {
				errCh <- fmt.Errorf("history consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.String("error", runErr.Error()))
	}

	stopConsumer()
	return errors.Join(runErr, a.Shutdown())
}

// Shutdown stops accepting requests, drains pending history writes and
// closes every backend.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.components.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
