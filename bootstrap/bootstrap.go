// Package bootstrap wires all dependencies and starts the engine.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/terahq/tera/adapters/clock"
	"github.com/terahq/tera/adapters/httpclient"
	"github.com/terahq/tera/adapters/idgen"
	"github.com/terahq/tera/adapters/memory"
	"github.com/terahq/tera/adapters/metrics"
	"github.com/terahq/tera/adapters/sqlite"
	"github.com/terahq/tera/api"
	"github.com/terahq/tera/app"
	"github.com/terahq/tera/config"
	"github.com/terahq/tera/core/action"
	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/registry"
	"github.com/terahq/tera/core/render"
	"github.com/terahq/tera/core/workflow"
	"github.com/terahq/tera/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	Registry   *registry.Registry
	Engine     *app.EngineService
	Modules    *app.ModuleService
	Metrics    *metrics.Collector
	HTTPServer *http.Server
}

// New creates and initializes the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger := SetupLogger(cfg.Logging)

	logger.Info().
		Str("modules_dir", cfg.Modules.Dir).
		Str("database", cfg.Database.Driver).
		Msg("initializing tera engine")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	var statuses ports.ModuleStatusStore
	var settings ports.ModuleSettingStore
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.DB = db
		statuses = sqlite.NewStatusStore(db)
		settings = sqlite.NewSettingStore(db)
	default:
		statuses = memory.NewStatusStore()
		settings = memory.NewSettingStore()
	}

	eval := condition.New()
	reg, err := registry.New(cfg.Modules.Dir, eval, logger)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	a.Registry = reg

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(prometheus.DefaultRegisterer)
		snap := reg.Snapshot()
		collector.ObserveSnapshot(len(snap.Modules), len(snap.Failures))
		logger.Info().Msg("prometheus metrics enabled")
	}
	a.Metrics = collector

	backend := httpclient.New(httpclient.Config{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
		Headers: cfg.Backend.Headers,
	})

	wf := workflow.New(eval, logger)
	a.Modules = app.NewModuleService(reg, statuses, settings, clock.Real{}, logger)
	a.Engine = app.NewEngineService(reg, a.Modules, render.New(eval, wf, logger),
		action.NewDispatcher(backend, idgen.UUID{}, logger), wf, collector, logger)

	handler := api.NewHandler(a.Engine, a.Modules, logger)
	router := handler.Router(api.Config{
		Metrics:       collector,
		EnableOpenAPI: cfg.OpenAPI.Enabled,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if a.Config.Modules.Watch {
		if err := a.Registry.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to start module watcher")
		}
	}
	a.Registry.WatchSignals()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Registry.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// SetupLogger builds the root logger from logging configuration.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
