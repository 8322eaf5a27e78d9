package container

// ── Scope ─────────────────────────────────────────────────────────────────────

// Scope is the sharing policy applied to one dependency edge.
type Scope uint8

const (
	// ScopeDefault marks an edge without an explicit override. It resolves as
	// ScopeShared unless a DeepLocal ancestor forces otherwise.
	ScopeDefault Scope = iota

	// ScopeShared reuses one instance per type for the container's lifetime.
	ScopeShared

	// ScopeLocal builds a fresh instance for this edge only. Its own
	// dependencies fall back to ScopeShared.
	ScopeLocal

	// ScopeDeepLocal builds a fresh instance and forces every transitive
	// dependency below it to be fresh as well, explicit overrides included.
	ScopeDeepLocal
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	switch s {
	case ScopeDefault:
		return "default"
	case ScopeShared:
		return "shared"
	case ScopeLocal:
		return "local"
	case ScopeDeepLocal:
		return "deep-local"
	default:
		return "unknown"
	}
}

// effectiveScope decides the scope of a node from the locality inherited from
// its ancestors and the override declared on the incoming edge.
//
// A DeepLocal locality wins over any edge override, including ScopeShared.
func effectiveScope(locality, edge Scope) Scope {
	if locality == ScopeDeepLocal {
		return ScopeDeepLocal
	}
	if edge == ScopeDefault {
		return ScopeShared
	}
	return edge
}

// childLocality is the locality a node hands down to its own dependencies.
func childLocality(effective Scope) Scope {
	if effective == ScopeDeepLocal {
		return ScopeDeepLocal
	}
	return ScopeShared
}
