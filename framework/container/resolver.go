package container

import (
	"fmt"

	"go.uber.org/zap"
)

// ── Build options ─────────────────────────────────────────────────────────────

type buildOptions struct {
	scope Scope
	rc    *ResolutionContext
}

// BuildOption tunes a Build call.
type BuildOption func(*buildOptions)

// InScope builds the requested type as if the incoming edge declared scope.
//
//	fresh, err := c.Build(key, container.InScope(container.ScopeDeepLocal))
func InScope(scope Scope) BuildOption {
	return func(o *buildOptions) { o.scope = scope }
}

// WithResolutionContext continues an existing resolution instead of starting
// a top-level one, so cycle detection and locality carry over.
func WithResolutionContext(rc *ResolutionContext) BuildOption {
	return func(o *buildOptions) { o.rc = rc }
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Build constructs the type identified by key together with its declared
// constructor dependencies.
//
// It fails with *UnresolvedDependencyError when key (or any class it depends
// on) was never declared, and with *CircularDependencyError when the
// dependency chain loops back on itself.
func (c *Container) Build(key Key, opts ...BuildOption) (any, error) {
	o := buildOptions{scope: ScopeDefault}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rc == nil {
		o.rc = NewResolutionContext()
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if c.disposed {
		return nil, ErrContainerDisposed
	}
	return c.build(o.rc, key, o.scope, Key{})
}

// Build is the typed form of (*Container).Build.
//
//	ctrl, err := container.Build[*UserController](c)
func Build[T any](c *Container, opts ...BuildOption) (T, error) {
	var zero T
	key := KeyOf[T]()
	v, err := c.Build(key, opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: Build[%s]: constructor returned %T", key, v)
	}
	return typed, nil
}

// MustBuild is like Build but panics on error. Useful in tests and at
// startup where a resolution failure is fatal anyway.
func MustBuild[T any](c *Container, opts ...BuildOption) T {
	v, err := Build[T](c, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// build resolves one node. edge is the scope declared by the parent on the
// incoming edge; requester is the parent, for diagnostics.
func (c *Container) build(rc *ResolutionContext, key Key, edge Scope, requester Key) (any, error) {
	if cycle := rc.cycle(key); cycle != nil {
		return nil, &CircularDependencyError{Cycle: cycle}
	}
	d, ok := c.descriptor(key)
	if !ok {
		return nil, &UnresolvedDependencyError{Key: key, Requester: requester}
	}

	rc.push(key)
	defer rc.pop()

	scope := effectiveScope(rc.locality, edge)
	if scope == ScopeShared {
		if inst, ok := c.cache.Get(key); ok {
			c.fireAfterResolving(ResolveEvent{Key: key, Scope: scope, Cached: true, Instance: inst})
			return inst, nil
		}
	}

	restore := rc.enter(childLocality(scope))
	args, err := c.resolveArgs(rc, key, d.deps, d.arity)
	restore()
	if err != nil {
		return nil, err
	}

	inst, err := d.construct(args)
	if err == nil {
		inst, err = c.applyExtenders(key, inst)
	}
	if err != nil {
		return nil, &ConstructionError{Key: key, Err: err}
	}
	if scope == ScopeShared {
		inst = c.cache.Put(key, inst)
	}

	c.log.Debug("built instance",
		zap.Stringer("type", key),
		zap.Stringer("scope", scope),
		zap.Int("depth", rc.Depth()))
	c.fireAfterResolving(ResolveEvent{Key: key, Scope: scope, Instance: inst})
	return inst, nil
}

// resolveArgs resolves declarations in index order into an Args vector.
func (c *Container) resolveArgs(rc *ResolutionContext, owner Key, deps []Dependency, size int) (Args, error) {
	args := make(Args, size)
	for _, dep := range deps {
		v, err := c.resolveDependency(rc, owner, dep)
		if err != nil {
			return nil, err
		}
		args[dep.Index] = v
	}
	return args, nil
}

func (c *Container) resolveDependency(rc *ResolutionContext, owner Key, dep Dependency) (any, error) {
	if !dep.IsToken() {
		return c.build(rc, dep.Class, dep.Scope, owner)
	}
	v, registered := c.registry.Lookup(dep.Token)
	if !registered && !dep.Nullable {
		return nil, &UnresolvedDependencyError{Token: dep.Token, Requester: owner}
	}
	return v, nil
}

// ResolveMethodDependencies resolves the declarations of one method of key.
// It is meant to run once per route or middleware at registration time, with
// the result cached by the caller and replayed per request.
//
// Every class dependency is resolved in its own top-level context: method
// dependencies never join the constructor's path, so they cannot close a
// cycle through it. Shared instances come from the same cache as Build.
//
// A method that was never passed to DeclareMethod fails with
// *UnresolvedDependencyError; a method declared without dependencies yields
// an empty map.
func (c *Container) ResolveMethodDependencies(key Key, method string) (map[int]any, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if c.disposed {
		return nil, ErrContainerDisposed
	}

	d, ok := c.descriptor(key)
	if !ok {
		return nil, &UnresolvedDependencyError{Key: key}
	}
	c.mu.RLock()
	deps, declared := d.methods[method]
	c.mu.RUnlock()
	if !declared {
		return nil, &UnresolvedDependencyError{Key: key, Method: method}
	}

	out := make(map[int]any, len(deps))
	for _, dep := range deps {
		v, err := c.resolveDependency(NewResolutionContext(), key, dep)
		if err != nil {
			return nil, fmt.Errorf("resolving %s.%s parameter %d: %w", key, method, dep.Index, err)
		}
		out[dep.Index] = v
	}
	c.log.Debug("resolved method dependencies",
		zap.Stringer("type", key),
		zap.String("method", method),
		zap.Int("dependencies", len(out)))
	return out, nil
}
