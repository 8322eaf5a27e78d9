package container

import "sync"

// InstanceCache maps a type to its shared instance. Entries are never evicted
// on their own; Reset and Dispose clear them explicitly.
type InstanceCache struct {
	mu    sync.RWMutex
	items map[Key]any
	order []Key // creation order, used to dispose in reverse
}

// NewInstanceCache creates an empty cache.
func NewInstanceCache() *InstanceCache {
	return &InstanceCache{items: make(map[Key]any)}
}

// Get returns the shared instance for key.
func (c *InstanceCache) Get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// Put stores the shared instance for key. The first write wins; a second Put
// for the same key is ignored and the existing instance is returned.
func (c *InstanceCache) Put(key Key, instance any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[key]; ok {
		return existing
	}
	c.items[key] = instance
	c.order = append(c.order, key)
	return instance
}

// Replace swaps the instance cached for key, keeping its creation order.
// It reports false when key is not cached.
func (c *InstanceCache) Replace(key Key, instance any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return false
	}
	c.items[key] = instance
	return true
}

// Len returns the number of cached instances.
func (c *InstanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the cached keys in creation order.
func (c *InstanceCache) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Key, len(c.order))
	copy(out, c.order)
	return out
}

// Reset drops every cached instance and returns them newest first.
func (c *InstanceCache) Reset() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		out = append(out, c.items[c.order[i]])
	}
	c.items = make(map[Key]any)
	c.order = nil
	return out
}
