package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-controllers/framework/config"
	"github.com/km-arc/go-controllers/framework/container"
	gohttp "github.com/km-arc/go-controllers/framework/http"
	"github.com/km-arc/go-controllers/framework/logging"
	"github.com/km-arc/go-controllers/framework/metrics"
	"github.com/km-arc/go-controllers/framework/providers"
	"github.com/km-arc/go-controllers/framework/routing"
)

const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the DI Container and ProviderRegistry so user code can call
// app.Register(), container.Declare(app.Container, ...) directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config *config.Config
	log    *zap.Logger
}

// New loads the configuration, builds the logger and the container, and
// registers the framework providers (config, logging, routing, metrics).
func New(envFiles ...string) (*Application, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig is New with an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	log, err := logging.New(cfg.Log, cfg.App.Env)
	if err != nil {
		return nil, err
	}
	return newApplication(cfg, log)
}

func newApplication(cfg *config.Config, log *zap.Logger) (*Application, error) {
	log = log.With(zap.String("app", cfg.App.Name))
	c := container.New(container.WithLogger(log))
	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		log:       log,
	}

	// Providers registered later may replace the logger or configuration.
	c.Rebinding("logger", func(v any) {
		if l, ok := v.(*zap.Logger); ok {
			app.log = l
		}
	})
	c.Rebinding("config", func(v any) {
		if cfg, ok := v.(*config.Config); ok {
			app.config = cfg
		}
	})

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: log},
		&providers.MetricsServiceProvider{Namespace: "app"},
		&providers.RoutingServiceProvider{},
	}
	for _, p := range core {
		if err := app.Providers.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot validates the container, runs every provider's Boot, and then mounts
// the metrics endpoint when enabled. Boot runs once.
func (a *Application) Boot() error {
	if a.Providers.Booted() {
		return nil
	}
	if err := a.Providers.Boot(); err != nil {
		return err
	}
	if a.config.Metrics.Enabled {
		m, ok := container.Get[*metrics.Collector](a.Container, "metrics")
		if !ok {
			return errors.New("metrics collector is not registered")
		}
		a.Router().Mount(a.config.Metrics.Path, m.Handler())
	}
	a.log.Info("application booted", zap.Int("providers", len(a.Providers.Providers())))
	return nil
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the root logger.
func (a *Application) Logger() *zap.Logger { return a.log }

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	r, _ := container.Get[*routing.Router](a.Container, "router")
	return r
}

// Run boots the application (if needed) and serves HTTP on APP_PORT until ctx
// is cancelled, then shuts the server down gracefully and disposes the
// container.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.config.App.Port)
	if err != nil {
		return fmt.Errorf("listening on port %s: %w", a.config.App.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Boot(); err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(a.log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("env", a.config.App.Env))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	disposeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err = multierr.Append(err, a.Dispose(disposeCtx))
	_ = a.log.Sync()
	return err
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
func (a *Application) Version() string     { return "0.2.0" }

// Controller is an embeddable base for HTTP controllers.
type Controller struct{}

func (c *Controller) Request(r *http.Request) *gohttp.Request {
	return gohttp.NewRequest(r)
}
func (c *Controller) Response(w http.ResponseWriter) *gohttp.Response {
	return gohttp.NewResponse(w)
}
