package container

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the configuration of one part of the application.
//
// Register runs during configuration: declare injectables, register tokens
// and factories. Do NOT build anything here.
// Boot runs after every provider has registered and the container has been
// validated; building controllers and mounting routes belongs here.
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *container.Container) error {
//	    c.Register("DB_URL", "postgres://localhost/app")
//	    return container.Declare(c, NewUserRepository, container.Token(0, "DB_URL"))
//	}
type ServiceProvider interface {
	Register(c *Container) error
	Boot(c *Container) error
}

// DeferredProvider is a ServiceProvider loaded on first use. Registering it
// only records the tokens it Provides; its Register runs the first time one
// of them is looked up and missing, followed by Boot when the application
// has already booted. Because loading can happen in the middle of a Build,
// neither method may build through the container or call Extend.
//
//	func (p *GeoServiceProvider) Provides() []string { return []string{"geoip"} }
type DeferredProvider interface {
	ServiceProvider
	Provides() []string
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op Boot. Embed it and implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry runs the Register and Boot phases of the application's
// service providers, in registration order. Deferred providers join the
// order when they are loaded.
type ProviderRegistry struct {
	app *Container

	mu         sync.Mutex
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	deferred   map[string]*lazyProvider // token -> provider not loaded yet
	booted     bool
}

// lazyProvider loads a DeferredProvider at most once.
type lazyProvider struct {
	provider DeferredProvider
	once     sync.Once
	err      error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	r := &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
		deferred:   make(map[string]*lazyProvider),
	}
	app.registry.OnMiss(r.load)
	return r
}

// Register calls provider.Register, or records the tokens of a
// DeferredProvider for later. Registering the same provider value twice is a
// no-op; a provider whose Register failed may be registered again. A provider
// added after Boot is booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	if dp, ok := provider.(DeferredProvider); ok && len(dp.Provides()) > 0 {
		lp := &lazyProvider{provider: dp}
		for _, token := range dp.Provides() {
			r.deferred[token] = lp
		}
		r.registered[provider] = true
		r.mu.Unlock()
		r.app.log.Debug("deferred service provider registered",
			zap.String("provider", fmt.Sprintf("%T", provider)),
			zap.Strings("provides", dp.Provides()))
		return nil
	}
	r.mu.Unlock()
	return r.activate(provider)
}

// activate runs provider.Register and, once booted, provider.Boot.
func (r *ProviderRegistry) activate(provider ServiceProvider) error {
	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("registering %T: %w", provider, err)
	}

	r.mu.Lock()
	r.registered[provider] = true
	r.providers = append(r.providers, provider)
	booted := r.booted
	r.mu.Unlock()
	r.app.log.Debug("service provider registered", zap.String("provider", fmt.Sprintf("%T", provider)))

	if booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("booting %T: %w", provider, err)
		}
	}
	return nil
}

// load activates the deferred provider of token. It is the registry's miss
// handler and reports whether a provider was loaded successfully.
func (r *ProviderRegistry) load(token string) bool {
	r.mu.Lock()
	lp, ok := r.deferred[token]
	r.mu.Unlock()
	if !ok {
		return false
	}

	lp.once.Do(func() {
		r.mu.Lock()
		for _, t := range lp.provider.Provides() {
			delete(r.deferred, t)
		}
		r.mu.Unlock()

		r.app.log.Debug("loading deferred service provider",
			zap.String("provider", fmt.Sprintf("%T", lp.provider)),
			zap.String("token", token))
		if lp.err = r.activate(lp.provider); lp.err != nil {
			r.app.log.Error("deferred service provider failed", zap.Error(lp.err))
		}
	})
	return lp.err == nil
}

// Boot validates the container and then boots every provider. Validation
// failures abort startup before anything is built. Boot runs once.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.app.Validate(); err != nil {
		return fmt.Errorf("invalid container configuration: %w", err)
	}

	r.mu.Lock()
	r.booted = true
	providers := append([]ServiceProvider(nil), r.providers...)
	r.mu.Unlock()

	// Deferred providers loaded from here on boot themselves.
	for _, provider := range providers {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("booting %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot() has completed validation.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the loaded providers in order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.providers...)
}

// Deferred returns the tokens whose deferred providers have not loaded yet,
// sorted.
func (r *ProviderRegistry) Deferred() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.deferred))
	for token := range r.deferred {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
