package container

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the process-scoped DI runtime owned by the application root.
//
// It holds:
//   - the token Registry (values, factories, deferred factories)
//   - the type declarations produced at configuration time
//   - the InstanceCache of shared instances
//
// Declarations and registrations happen first; Build and
// ResolveMethodDependencies are then serialized so a shared type is only
// ever constructed once.
type Container struct {
	id  string
	log *zap.Logger

	registry *Registry
	cache    *InstanceCache

	mu          sync.RWMutex
	descriptors map[Key]*descriptor
	order       []Key // declaration order, for deterministic validation
	extenders   map[Key][]extender
	tags        map[string][]Key

	// buildMu serializes resolution. Constructors and hooks must not call
	// back into the container.
	buildMu        sync.Mutex
	disposed       bool
	afterResolving []func(ResolveEvent)
}

// ResolveEvent describes one resolved node of a build.
type ResolveEvent struct {
	Key      Key
	Scope    Scope
	Cached   bool
	Instance any
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used by the container and its registry.
func WithLogger(log *zap.Logger) Option {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		id:          uuid.NewString(),
		log:         zap.NewNop(),
		cache:       NewInstanceCache(),
		descriptors: make(map[Key]*descriptor),
		extenders:   make(map[Key][]extender),
		tags:        make(map[string][]Key),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("container", c.id))
	c.registry = NewRegistry(c.log)
	return c
}

// ID returns the unique id tagging this container's log lines.
func (c *Container) ID() string { return c.id }

// Registry returns the token registry.
func (c *Container) Registry() *Registry { return c.registry }

// Cache returns the shared instance cache.
func (c *Container) Cache() *InstanceCache { return c.cache }

// ── Tokens ────────────────────────────────────────────────────────────────────

// Register stores a value under token; last registration wins.
//
//	c.Register("DB_URL", cfg.DB.URL)
func (c *Container) Register(token string, value any) {
	c.registry.Register(token, value)
}

// RegisterFactory registers a factory-produced token. See Registry.RegisterFactory.
func (c *Container) RegisterFactory(ctx context.Context, token string, factory Factory, deferred bool) error {
	return c.registry.RegisterFactory(ctx, token, factory, deferred)
}

// Get returns the current value of token, or nil when it is unknown, pending
// or failed.
func (c *Container) Get(token string) any {
	return c.registry.Get(token)
}

// Get is the typed form of (*Container).Get. ok is false when the token has
// no value yet or holds another type.
//
//	router, ok := container.Get[*routing.Router](c, "router")
func Get[V any](c *Container, token string) (V, bool) {
	v, ok := c.registry.Get(token).(V)
	return v, ok
}

// ── Declarations ──────────────────────────────────────────────────────────────

func (c *Container) declare(d *descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.descriptors[d.key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyDeclared, d.key)
	}
	c.descriptors[d.key] = d
	c.order = append(c.order, d.key)
	c.log.Debug("declared injectable",
		zap.Stringer("type", d.key),
		zap.Int("dependencies", len(d.deps)))
	return nil
}

func (c *Container) declareMethod(key Key, method string, deps []Dependency) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.descriptors[key]
	if !ok {
		return &UnresolvedDependencyError{Key: key}
	}
	if _, exists := d.methods[method]; exists {
		return fmt.Errorf("%w: %s.%s", ErrAlreadyDeclared, key, method)
	}
	d.methods[method] = deps
	c.log.Debug("declared method dependencies",
		zap.Stringer("type", key),
		zap.String("method", method),
		zap.Int("dependencies", len(deps)))
	return nil
}

func (c *Container) descriptor(key Key) (*descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descriptors[key]
	return d, ok
}

// Declared reports whether key was declared injectable.
func (c *Container) Declared(key Key) bool {
	_, ok := c.descriptor(key)
	return ok
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired for every node a build resolves,
// including cache hits.
func (c *Container) AfterResolving(cb func(ResolveEvent)) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

// AfterSettled registers a callback fired when a deferred provider settles.
func (c *Container) AfterSettled(cb func(token string, state ProviderState)) {
	c.registry.OnSettle(cb)
}

// AfterRegistered registers a callback fired for every token registration.
// Deferred tokens are reported while still pending.
func (c *Container) AfterRegistered(cb func(token string, kind ProviderKind)) {
	c.registry.OnRegister(cb)
}

// Rebinding registers a callback fired when token is registered again.
//
//	c.Rebinding("logger", func(v any) { app.log = v.(*zap.Logger) })
func (c *Container) Rebinding(token string, cb func(value any)) {
	c.registry.Rebinding(token, cb)
}

func (c *Container) fireAfterResolving(ev ResolveEvent) {
	for _, cb := range c.afterResolving {
		cb(ev)
	}
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Reset drops every shared instance without closing it. Declarations and
// registered tokens are kept, so the next Build constructs fresh instances.
func (c *Container) Reset() {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	dropped := c.cache.Reset()
	c.log.Debug("instance cache reset", zap.Int("instances", len(dropped)))
}

// Dispose tears the container down: it waits for deferred factories, closes
// every shared instance and factory value that implements io.Closer (newest
// first), and clears the cache. Build fails with ErrContainerDisposed
// afterwards. Dispose is idempotent.
func (c *Container) Dispose(ctx context.Context) error {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if c.disposed {
		return nil
	}
	c.disposed = true

	var errs error
	if err := c.registry.Wait(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("waiting for deferred providers: %w", err))
	}

	closed := 0
	for _, v := range append(c.cache.Reset(), c.registry.values()...) {
		closer, ok := v.(io.Closer)
		if !ok {
			continue
		}
		closed++
		if err := closer.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("closing %T: %w", v, err))
		}
	}

	c.log.Info("container disposed", zap.Int("closed", closed), zap.Error(errs))
	return errs
}
