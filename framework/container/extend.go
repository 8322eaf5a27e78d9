package container

import (
	"fmt"
	"sort"
)

// ── Extend ────────────────────────────────────────────────────────────────────

// extender decorates one constructed instance.
type extender func(instance any) (any, error)

// Extend registers a decorator for T. Every instance of T constructed
// afterwards passes through fn, in registration order, before it is cached
// or handed to its consumer. A shared instance that is already cached is
// decorated in place. A decorator error fails the build with
// *ConstructionError.
//
//	err := container.Extend(c, func(repo *UserRepository) (*UserRepository, error) {
//	    return repo, repo.Seed(fixtures)
//	})
func Extend[T any](c *Container, fn func(T) (T, error)) error {
	key := KeyOf[T]()
	if fn == nil {
		return fmt.Errorf("%w for %s", ErrNilExtender, key)
	}
	ext := func(instance any) (any, error) {
		typed, ok := instance.(T)
		if !ok {
			return nil, fmt.Errorf("extender for %s received %T", key, instance)
		}
		return fn(typed)
	}

	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	c.mu.Lock()
	c.extenders[key] = append(c.extenders[key], ext)
	c.mu.Unlock()

	if inst, ok := c.cache.Get(key); ok {
		extended, err := ext(inst)
		if err != nil {
			return &ConstructionError{Key: key, Err: err}
		}
		c.cache.Replace(key, extended)
	}
	return nil
}

func (c *Container) applyExtenders(key Key, instance any) (any, error) {
	c.mu.RLock()
	exts := c.extenders[key]
	c.mu.RUnlock()

	var err error
	for _, ext := range exts {
		if instance, err = ext(instance); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag adds keys to the named group. Validate reports tagged keys that were
// never declared.
//
//	c.Tag("health", container.KeyOf[*UserRepository](), container.KeyOf[*GeoStatus]())
func (c *Container) Tag(tag string, keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], keys...)
}

// TaggedKeys returns the keys of tag in tagging order.
func (c *Container) TaggedKeys(tag string) []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Key, len(c.tags[tag]))
	copy(out, c.tags[tag])
	return out
}

// Tagged builds every key of tag in tagging order. An unknown tag yields an
// empty slice.
func (c *Container) Tagged(tag string, opts ...BuildOption) ([]any, error) {
	keys := c.TaggedKeys(tag)
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		v, err := c.Build(key, opts...)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", tag, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Tagged is the typed form of (*Container).Tagged. Every tagged type must
// implement T.
//
//	checks, err := container.Tagged[HealthChecker](c, "health")
func Tagged[T any](c *Container, tag string, opts ...BuildOption) ([]T, error) {
	values, err := c.Tagged(tag, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(values))
	for i, v := range values {
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("container: tag %q: %T does not implement %s", tag, v, KeyOf[T]())
		}
		out[i] = typed
	}
	return out, nil
}

// tagNames returns the tag names in sorted order.
func (c *Container) tagNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tags))
	for name := range c.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
