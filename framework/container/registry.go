package container

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ── Provider kinds and states ─────────────────────────────────────────────────

// ProviderKind classifies a registry entry.
type ProviderKind uint8

const (
	// KindValue is a pre-built value.
	KindValue ProviderKind = iota + 1
	// KindFactory is a value produced by a synchronous factory at registration.
	KindFactory
	// KindDeferred is a value produced in the background.
	KindDeferred
)

// String implements fmt.Stringer.
func (k ProviderKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindFactory:
		return "factory"
	case KindDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// ProviderState is the lifecycle state of a provider. Value and Factory
// providers are always StateReady.
type ProviderState uint8

const (
	// StateUnknown is reported for tokens that were never registered.
	StateUnknown ProviderState = iota
	// StatePending means a deferred factory has not finished.
	StatePending
	// StateReady means the value is available.
	StateReady
	// StateFailed means a deferred factory returned an error or panicked.
	StateFailed
)

// String implements fmt.Stringer.
func (s ProviderState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Factory produces a token value.
type Factory func(ctx context.Context) (any, error)

// ── Entries ───────────────────────────────────────────────────────────────────

// provider is one token entry. value is only read for non-deferred kinds.
type provider struct {
	token string
	kind  ProviderKind
	value any
	cell  *deferredCell
}

// deferredCell is written exactly once by the background factory.
type deferredCell struct {
	mu    sync.RWMutex
	state ProviderState
	value any
	err   error
}

func (d *deferredCell) load() (any, ProviderState) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value, d.state
}

// settle performs the single Pending -> Ready/Failed transition. Later calls
// are ignored and report false.
func (d *deferredCell) settle(value any, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StatePending {
		return false
	}
	if err != nil {
		d.state = StateFailed
		d.err = err
		return true
	}
	d.state = StateReady
	d.value = value
	return true
}

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry holds token providers. Registration is expected to finish before
// resolution starts; the mutex keeps deferred transitions and late reads safe.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*provider
	aliases   map[string]string

	log        *zap.Logger
	pending    sync.WaitGroup
	onSettle   []func(token string, state ProviderState)
	onRegister []func(token string, kind ProviderKind)
	rebound    map[string][]func(value any)
	onMiss     []func(token string) bool
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		providers: make(map[string]*provider),
		aliases:   make(map[string]string),
		rebound:   make(map[string][]func(any)),
		log:       log,
	}
}

// Register stores a value under token. A later registration of the same
// token replaces it, so configuration can be layered, and fires the
// token's Rebinding callbacks.
//
//	reg.Register("DB_URL", "postgres://localhost/app")
func (r *Registry) Register(token string, value any) {
	r.store(&provider{token: token, kind: KindValue, value: value})
}

// store installs p and then runs the registration and rebinding hooks
// outside the lock.
func (r *Registry) store(p *provider) {
	r.mu.Lock()
	key := r.canonical(p.token)
	_, replaced := r.providers[key]
	r.providers[key] = p
	registered := r.onRegister
	var rebound []func(any)
	if replaced && p.kind != KindDeferred {
		rebound = r.rebound[key]
	}
	r.mu.Unlock()

	for _, hook := range registered {
		hook(p.token, p.kind)
	}
	for _, cb := range rebound {
		cb(p.value)
	}
	if replaced {
		r.log.Debug("token rebound", zap.String("token", p.token), zap.Stringer("kind", p.kind))
	}
}

// RegisterFactory registers a value produced by factory.
//
// With deferred=false the factory runs now and its error is returned; nothing
// is stored on failure. With deferred=true the factory runs in the background,
// Get returns nil until it succeeds, and a failure leaves the token nil for
// good. Deferred factories are never retried or cancelled.
//
//	err := reg.RegisterFactory(ctx, "geoip", loadGeoIP, true)
func (r *Registry) RegisterFactory(ctx context.Context, token string, factory Factory, deferred bool) error {
	if factory == nil {
		return fmt.Errorf("%w for token %q", ErrNilFactory, token)
	}

	if !deferred {
		value, err := callFactory(ctx, factory)
		if err != nil {
			return &ProviderError{Token: token, Err: err}
		}
		r.store(&provider{token: token, kind: KindFactory, value: value})
		return nil
	}

	// Hooks see the token as pending before the factory can settle it.
	cell := &deferredCell{state: StatePending}
	r.store(&provider{token: token, kind: KindDeferred, cell: cell})

	r.pending.Add(1)
	go r.runDeferred(context.WithoutCancel(ctx), token, factory, cell)
	return nil
}

func (r *Registry) runDeferred(ctx context.Context, token string, factory Factory, cell *deferredCell) {
	defer r.pending.Done()

	value, err := callFactory(ctx, factory)
	if !cell.settle(value, err) {
		return
	}

	state := StateReady
	if err != nil {
		state = StateFailed
		r.log.Warn("deferred provider failed", zap.String("token", token), zap.Error(err))
	} else {
		r.log.Debug("deferred provider ready", zap.String("token", token))
	}

	r.mu.RLock()
	hooks := r.onSettle
	r.mu.RUnlock()
	for _, hook := range hooks {
		hook(token, state)
	}
}

// callFactory runs factory and converts a panic into an error.
func callFactory(ctx context.Context, factory Factory) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = fmt.Errorf("factory panic: %v", rec)
		}
	}()
	return factory(ctx)
}

// Get returns the current value of token. It returns nil for unknown tokens
// and for deferred providers that are pending or failed; it never blocks.
func (r *Registry) Get(token string) any {
	v, _ := r.Lookup(token)
	return v
}

// Lookup is like Get but also reports whether token is registered at all.
// A miss gives every OnMiss handler a chance to register token first.
func (r *Registry) Lookup(token string) (any, bool) {
	p := r.entry(token)
	if p == nil && r.provideMissing(token) {
		p = r.entry(token)
	}
	if p == nil {
		return nil, false
	}
	if p.kind != KindDeferred {
		return p.value, true
	}
	v, state := p.cell.load()
	if state != StateReady {
		return nil, true
	}
	return v, true
}

// Kind returns how token is provided.
func (r *Registry) Kind(token string) (ProviderKind, bool) {
	p := r.entry(token)
	if p == nil {
		return 0, false
	}
	return p.kind, true
}

// State returns the lifecycle state of token.
func (r *Registry) State(token string) ProviderState {
	p := r.entry(token)
	if p == nil {
		return StateUnknown
	}
	if p.kind != KindDeferred {
		return StateReady
	}
	_, state := p.cell.load()
	return state
}

// Err returns the error a failed deferred factory produced, if any.
func (r *Registry) Err(token string) error {
	p := r.entry(token)
	if p == nil || p.kind != KindDeferred {
		return nil
	}
	p.cell.mu.RLock()
	defer p.cell.mu.RUnlock()
	return p.cell.err
}

// Alias registers alias as another name for token.
//
//	reg.Alias("config", "configuration")
func (r *Registry) Alias(token, alias string) {
	if token == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", token))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = r.canonical(token)
}

// Tokens returns the registered tokens in sorted order.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Wait blocks until every deferred factory started so far has settled, or
// ctx is done. Consumers reading tokens never need to call it.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnSettle registers a callback fired after each deferred transition.
func (r *Registry) OnSettle(cb func(token string, state ProviderState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSettle = append(r.onSettle, cb)
}

// OnRegister registers a callback fired after every registration, before a
// deferred factory starts.
func (r *Registry) OnRegister(cb func(token string, kind ProviderKind)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRegister = append(r.onRegister, cb)
}

// Rebinding registers a callback fired with the new value whenever token is
// registered again by Register or a synchronous factory.
//
//	reg.Rebinding("logger", func(v any) { log = v.(*zap.Logger) })
func (r *Registry) Rebinding(token string, cb func(value any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.canonical(token)
	r.rebound[key] = append(r.rebound[key], cb)
}

// OnMiss registers a handler asked to provide a token that Lookup could not
// find. It reports whether it registered something.
func (r *Registry) OnMiss(handler func(token string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMiss = append(r.onMiss, handler)
}

func (r *Registry) provideMissing(token string) bool {
	r.mu.RLock()
	handlers := r.onMiss
	r.mu.RUnlock()
	for _, handler := range handlers {
		if handler(token) {
			return true
		}
	}
	return false
}

// values returns every value the registry produced itself via a factory,
// for disposal.
func (r *Registry) values() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]any, 0, len(r.providers))
	for _, p := range r.providers {
		switch p.kind {
		case KindFactory:
			out = append(out, p.value)
		case KindDeferred:
			if v, state := p.cell.load(); state == StateReady {
				out = append(out, v)
			}
		}
	}
	return out
}

func (r *Registry) entry(token string) *provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[r.canonical(token)]
}

// canonical resolves an alias to its token (must hold mu).
func (r *Registry) canonical(token string) string {
	if target, ok := r.aliases[token]; ok {
		return target
	}
	return token
}
