package container

// ResolutionContext tracks one top-level Build: the chain of types currently
// being constructed (for cycle detection) and the locality inherited from
// ancestors. Sibling subtrees see the same path prefix but never each other.
type ResolutionContext struct {
	path     []Key
	locality Scope
}

// NewResolutionContext creates an empty context with shared locality.
func NewResolutionContext() *ResolutionContext {
	return &ResolutionContext{locality: ScopeShared}
}

// Path returns a copy of the current ancestor chain, outermost first.
func (rc *ResolutionContext) Path() []Key {
	out := make([]Key, len(rc.path))
	copy(out, rc.path)
	return out
}

// Locality returns the locality the next dependency will inherit.
func (rc *ResolutionContext) Locality() Scope { return rc.locality }

// Depth returns the number of types currently being resolved.
func (rc *ResolutionContext) Depth() int { return len(rc.path) }

// cycle returns the cycle closed by key, or nil when key is not on the path.
func (rc *ResolutionContext) cycle(key Key) []Key {
	for i, k := range rc.path {
		if k == key {
			out := make([]Key, 0, len(rc.path)-i+1)
			out = append(out, rc.path[i:]...)
			return append(out, key)
		}
	}
	return nil
}

func (rc *ResolutionContext) push(key Key) { rc.path = append(rc.path, key) }

func (rc *ResolutionContext) pop() { rc.path = rc.path[:len(rc.path)-1] }

// enter switches the locality for a subtree and returns the restore func.
func (rc *ResolutionContext) enter(locality Scope) func() {
	prev := rc.locality
	rc.locality = locality
	return func() { rc.locality = prev }
}
