package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"plugin-server/internal/config"
	"plugin-server/internal/logger"
	"plugin-server/internal/observability"
	"plugin-server/internal/ratelimit"
	"plugin-server/internal/sentryx"
	"plugin-server/internal/static"
	"plugin-server/internal/watch"
)

const serviceName = "plugin-server"

// logOutput receives the default logger's output.
var logOutput io.Writer = os.Stdout

// ServerApp holds all runtime dependencies for the plugin server.
type ServerApp struct {
	Config        *config.AppConfig
	Resolver      *static.Resolver
	StaticHandler *static.Handler
	Metrics       *observability.Metrics
	Limiter       *ratelimit.Limiter
	Watcher       *watch.Watcher
	Logger        *logger.Logger
}

// New builds a fully wired server application from a loaded configuration.
func New(cfg *config.AppConfig) (*ServerApp, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	// Replaces whatever logger was active while the configuration loaded.
	logger.Init(logger.Config{
		Output:   logOutput,
		MinLevel: level,
		UseColor: !cfg.IsProduction(),
		JSON:     cfg.LogJSON || cfg.IsProduction(),
	})

	log := logger.WithComponent("MAIN")

	if err := sentryx.Init(serviceName, cfg.SentryDSN, cfg.Env); err != nil {
		log.Warn("Sentry disabled: %v", err)
	}

	resolver, err := static.NewResolver(cfg.Root)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()

	log.Info("Environment: %s", cfg.Env)
	log.Info("Serving root: %s", resolver.Root())
	if _, statErr := os.Stat(filepath.Join(resolver.Root(), cfg.Index)); statErr != nil {
		log.Info("No %s at root, / answers with the status document", cfg.Index)
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	if limiter != nil {
		log.Info("Rate limit: %.2f req/s per client, burst %d", cfg.RateLimit, cfg.RateBurst)
	}

	var watcher *watch.Watcher
	if cfg.Watch {
		watcher, err = watch.New(resolver.Root(), nil)
		if err != nil {
			limiter.Stop()
			return nil, err
		}
		log.Info("Watching %s for plugin changes", resolver.Root())
	}

	return &ServerApp{
		Config:   cfg,
		Resolver: resolver,
		StaticHandler: static.NewHandler(resolver, static.Options{
			IndexName: cfg.Index,
			Metrics:   metrics,
		}),
		Metrics: metrics,
		Limiter: limiter,
		Watcher: watcher,
		Logger:  log,
	}, nil
}

// Run builds the app from cfg and serves until ctx is done or a termination
// signal arrives.
func Run(ctx context.Context, cfg *config.AppConfig) error {
	app, err := New(cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
