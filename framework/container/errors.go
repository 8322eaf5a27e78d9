package container

import (
	"errors"
	"strconv"
	"strings"
)

// ── Sentinels ─────────────────────────────────────────────────────────────────

var (
	// ErrCircularDependency matches any *CircularDependencyError via errors.Is.
	ErrCircularDependency = errors.New("di: circular dependency")

	// ErrUnresolvedDependency matches any *UnresolvedDependencyError via errors.Is.
	ErrUnresolvedDependency = errors.New("di: unresolved dependency")

	// ErrMisconfiguredDeferred matches any *MisconfiguredDeferredTypeError via errors.Is.
	ErrMisconfiguredDeferred = errors.New("di: deferred token declared as non-nullable")

	// ErrAlreadyDeclared is returned when a type or method is declared twice.
	ErrAlreadyDeclared = errors.New("di: already declared")

	// ErrInvalidDeclaration is returned for a malformed Dependency (negative or
	// repeated index, or neither a class nor a token target).
	ErrInvalidDeclaration = errors.New("di: invalid declaration")

	// ErrNilConstructor is returned by Declare when no constructor is given.
	ErrNilConstructor = errors.New("di: nil constructor")

	// ErrNilExtender is returned by Extend when no decorator is given.
	ErrNilExtender = errors.New("di: nil extender")

	// ErrNilFactory is returned by RegisterFactory when no factory is given.
	ErrNilFactory = errors.New("di: nil factory")

	// ErrContainerDisposed is returned by Build after Dispose.
	ErrContainerDisposed = errors.New("di: container disposed")
)

// ── Typed errors ──────────────────────────────────────────────────────────────

// CircularDependencyError reports a dependency chain that returns to a type
// already being resolved. Cycle runs from the first occurrence to the repeat,
// so a two-type cycle reads [A B A].
type CircularDependencyError struct {
	Cycle []Key
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		names[i] = k.String()
	}
	// Example: di: circular dependency detected: *app.A -> *app.B -> *app.A
	return "di: circular dependency detected: " + strings.Join(names, " -> ")
}

// Is lets errors.Is match ErrCircularDependency.
func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// UnresolvedDependencyError reports a class that was never declared, a
// method of a declared class that has no declarations, or a required token
// that was never registered. Exactly one of Key and Token is set; Method is
// only set together with Key.
type UnresolvedDependencyError struct {
	Key       Key
	Method    string
	Token     string
	Requester Key
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("di: unresolved dependency ")
	switch {
	case e.Token != "":
		b.WriteString("token " + strconv.Quote(e.Token))
	case e.Method != "":
		b.WriteString(e.Key.String() + "." + e.Method + " (method not declared)")
	default:
		b.WriteString(e.Key.String() + " (not declared injectable)")
	}
	if !e.Requester.IsZero() {
		b.WriteString(" required by " + e.Requester.String())
	}
	return b.String()
}

// Is lets errors.Is match ErrUnresolvedDependency.
func (e *UnresolvedDependencyError) Is(target error) bool { return target == ErrUnresolvedDependency }

// MisconfiguredDeferredTypeError is raised by Validate when a deferred token is
// consumed through a declaration that is not marked Nullable.
type MisconfiguredDeferredTypeError struct {
	Requester Key
	Method    string // empty for constructor declarations
	Index     int
	Token     string
}

// Error implements the error interface.
func (e *MisconfiguredDeferredTypeError) Error() string {
	site := e.Requester.String()
	if e.Method != "" {
		site += "." + e.Method
	}
	// Example: di: *app.Svc parameter 1: deferred token "geoip" must be declared Nullable
	return "di: " + site + " parameter " + strconv.Itoa(e.Index) +
		": deferred token " + strconv.Quote(e.Token) + " must be declared Nullable"
}

// Is lets errors.Is match ErrMisconfiguredDeferred.
func (e *MisconfiguredDeferredTypeError) Is(target error) bool {
	return target == ErrMisconfiguredDeferred
}

// ConstructionError wraps an error returned by a declared constructor.
type ConstructionError struct {
	Key Key
	Err error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return "di: constructing " + e.Key.String() + ": " + e.Err.Error()
}

// Unwrap returns the constructor's error.
func (e *ConstructionError) Unwrap() error { return e.Err }

// ProviderError wraps an error returned by a synchronous factory.
type ProviderError struct {
	Token string
	Err   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return "di: provider " + strconv.Quote(e.Token) + ": " + e.Err.Error()
}

// Unwrap returns the factory's error.
func (e *ProviderError) Unwrap() error { return e.Err }
