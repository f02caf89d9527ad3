package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/metrics"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/tracking"
	"github.com/spf13/afero"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	handlers *registry.Handlers
	fs       afero.Fs

	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics
	promTracker  *tracking.Prometheus
	// extraTrackers receive every record next to the configured sinks.
	extraTrackers []tracking.Tracker

	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithModules replaces the compiled-in core modules.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) {
		a.handlers = registry.NewHandlers()
		for _, mod := range modules {
			mod.Register(a.handlers)
		}
	}
}

// WithFs sets the filesystem artifacts and the tracking file are written to.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithTracker adds a tracking sink.
func WithTracker(t tracking.Tracker) Option {
	return func(a *App) { a.extraTrackers = append(a.extraTrackers, t) }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, handler table
// and metrics registry.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:         outW,
		logger:       logger,
		config:       cfg,
		fs:           afero.NewOsFs(),
		promRegistry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.handlers == nil {
		a.handlers = registry.NewHandlers()
		for _, mod := range coreModules {
			mod.Register(a.handlers)
		}
	}
	logger.Debug("All Go modules registered.", "tasks", a.handlers.TaskPlugins())

	var err error
	if a.metrics, err = metrics.New(a.promRegistry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if a.promTracker, err = tracking.NewPrometheus(a.promRegistry); err != nil {
		return nil, fmt.Errorf("failed to register tracking metrics: %w", err)
	}
	return a, nil
}

// Handlers returns the application's handler table. This is primarily for testing.
func (a *App) Handlers() *registry.Handlers {
	return a.handlers
}

// Gatherer exposes the application's metrics.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.promRegistry
}

// context returns ctx carrying the application's logger.
func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
