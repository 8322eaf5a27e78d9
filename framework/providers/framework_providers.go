package providers

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/km-arc/go-controllers/framework/config"
	"github.com/km-arc/go-controllers/framework/container"
	"github.com/km-arc/go-controllers/framework/logging"
	"github.com/km-arc/go-controllers/framework/metrics"
	"github.com/km-arc/go-controllers/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration and registers
// it into the container.
//
// Registered tokens:
//   - "config" → *config.Config (alias "configuration")
//   - one token per flattened setting: "APP_NAME", "APP_PORT", "DB_URL", ...
type ConfigServiceProvider struct {
	container.BaseProvider
	// Config, when set, is used as is instead of loading.
	Config   *config.Config
	File     string
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		loaded, err := config.LoadFile(p.File, p.EnvFiles...)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	app.Register("config", cfg)
	app.Registry().Alias("config", "configuration")
	for token, value := range cfg.Tokens() {
		app.Register(token, value)
	}
	return nil
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider registers the root logger.
//
// Registered tokens:
//   - "logger" → *zap.Logger
//
// Without an explicit Logger one is built from "config".
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	if p.Logger != nil {
		app.Register("logger", p.Logger)
		return nil
	}
	return app.RegisterFactory(context.Background(), "logger", func(context.Context) (any, error) {
		cfg, ok := container.Get[*config.Config](app, "config")
		if !ok {
			return nil, errors.New("config is not registered")
		}
		return logging.New(cfg.Log, cfg.App.Env)
	}, false)
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Registered tokens:
//   - "router" → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	return app.RegisterFactory(context.Background(), "router", func(context.Context) (any, error) {
		log, _ := container.Get[*zap.Logger](app, "logger")
		return routing.New(log), nil
	}, false)
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider attaches a Prometheus collector to the container so
// every resolution from here on is counted.
//
// Registered tokens:
//   - "metrics" → *metrics.Collector
//
// The application mounts the handler at cfg.Metrics.Path once all providers
// have booted.
type MetricsServiceProvider struct {
	container.BaseProvider
	Namespace string
}

func (p *MetricsServiceProvider) Register(app *container.Container) error {
	ns := p.Namespace
	if ns == "" {
		ns = "app"
	}
	collector := metrics.NewCollector(ns)
	collector.Attach(app)
	app.Register("metrics", collector)
	return nil
}
