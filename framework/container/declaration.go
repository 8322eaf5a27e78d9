package container

import (
	"fmt"
	"reflect"
	"sort"
)

// ── Type identity ─────────────────────────────────────────────────────────────

// Key is the stable identity of an injectable type.
type Key struct {
	t reflect.Type
}

// KeyOf returns the Key for T. Pointer and value types are distinct keys:
// KeyOf[*UserService]() and KeyOf[UserService]() do not match.
//
//	key := container.KeyOf[*UserService]()
func KeyOf[T any]() Key {
	return Key{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// String returns the package-qualified type name, e.g. "*app.UserService".
func (k Key) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.String()
}

// IsZero reports whether k was never assigned.
func (k Key) IsZero() bool { return k.t == nil }

// ── Dependency declarations ───────────────────────────────────────────────────

// Dependency declares what one constructor or method parameter needs.
// Exactly one of Class and Token is set.
type Dependency struct {
	Index    int
	Class    Key
	Token    string
	Scope    Scope
	Nullable bool
}

// IsToken reports whether the dependency targets a registry token.
func (d Dependency) IsToken() bool { return d.Token != "" }

// DependencyOption tunes a Dependency.
type DependencyOption func(*Dependency)

// WithScope sets an explicit scope on the edge.
func WithScope(s Scope) DependencyOption {
	return func(d *Dependency) { d.Scope = s }
}

// Nullable marks the parameter as accepting nil. Required for deferred tokens.
func Nullable() DependencyOption {
	return func(d *Dependency) { d.Nullable = true }
}

// Class declares parameter index as an instance of T, built by the container.
//
//	container.Class[*UserRepository](0)
//	container.Class[*AuditTrail](1, container.WithScope(container.ScopeLocal))
func Class[T any](index int, opts ...DependencyOption) Dependency {
	d := Dependency{Index: index, Class: KeyOf[T]()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Token declares parameter index as the value registered under token.
//
//	container.Token(0, "DB_URL")
//	container.Token(1, "geoip", container.Nullable())
func Token(index int, token string, opts ...DependencyOption) Dependency {
	d := Dependency{Index: index, Token: token}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// ── Args ──────────────────────────────────────────────────────────────────────

// Args carries resolved values by parameter index. Indices without a
// declaration hold nil.
type Args []any

// At returns the value at index i, or nil when out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// ArgAs returns the value at index i typed as T. ok is false when the value
// is absent or of another type.
func ArgAs[T any](a Args, i int) (T, bool) {
	v, ok := a.At(i).(T)
	return v, ok
}

// Arg returns the value at index i typed as T, or T's zero value when the
// slot is nil. It panics when the slot holds another type, which means the
// declaration and the constructor disagree.
//
//	repo := container.Arg[*UserRepository](args, 0)
func Arg[T any](a Args, i int) T {
	raw := a.At(i)
	if raw == nil {
		var zero T
		return zero
	}
	v, ok := raw.(T)
	if !ok {
		panic(fmt.Sprintf("container: Arg[%T]: parameter %d holds %T", *new(T), i, raw))
	}
	return v
}

// ArgsOf converts the result of ResolveMethodDependencies into Args.
func ArgsOf(m map[int]any) Args {
	size := 0
	for i := range m {
		if i+1 > size {
			size = i + 1
		}
	}
	args := make(Args, size)
	for i, v := range m {
		args[i] = v
	}
	return args
}

// ── Descriptors ───────────────────────────────────────────────────────────────

// Constructor builds an instance from its resolved arguments.
type Constructor func(args Args) (any, error)

// descriptor is the immutable metadata of one declared type.
type descriptor struct {
	key       Key
	construct Constructor
	deps      []Dependency
	arity     int
	methods   map[string][]Dependency
}

// Declare registers T as injectable with its constructor declarations.
// Each type may be declared once.
//
//	err := container.Declare(c, func(a container.Args) (*UserService, error) {
//	    return &UserService{Repo: container.Arg[*UserRepository](a, 0)}, nil
//	}, container.Class[*UserRepository](0))
func Declare[T any](c *Container, ctor func(Args) (T, error), deps ...Dependency) error {
	key := KeyOf[T]()
	if ctor == nil {
		return fmt.Errorf("%w for %s", ErrNilConstructor, key)
	}
	sorted, err := normalize(key, "", deps)
	if err != nil {
		return err
	}
	d := &descriptor{
		key:       key,
		construct: func(a Args) (any, error) { return ctor(a) },
		deps:      sorted,
		arity:     arity(sorted),
		methods:   make(map[string][]Dependency),
	}
	return c.declare(d)
}

// DeclareMethod registers the declarations of one method of T. T must already
// be declared, and each method may be declared once.
//
//	err := container.DeclareMethod[*UserController](c, "Show",
//	    container.Token(2, "clock"))
func DeclareMethod[T any](c *Container, method string, deps ...Dependency) error {
	key := KeyOf[T]()
	sorted, err := normalize(key, method, deps)
	if err != nil {
		return err
	}
	return c.declareMethod(key, method, sorted)
}

// normalize validates and orders declarations by index.
func normalize(key Key, method string, deps []Dependency) ([]Dependency, error) {
	site := key.String()
	if method != "" {
		site += "." + method
	}
	out := make([]Dependency, len(deps))
	copy(out, deps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	for i, d := range out {
		switch {
		case d.Index < 0:
			return nil, fmt.Errorf("%w: %s parameter %d is negative", ErrInvalidDeclaration, site, d.Index)
		case d.IsToken() == !d.Class.IsZero():
			return nil, fmt.Errorf("%w: %s parameter %d needs exactly one class or token", ErrInvalidDeclaration, site, d.Index)
		case i > 0 && out[i-1].Index == d.Index:
			return nil, fmt.Errorf("%w: %s parameter %d declared twice", ErrInvalidDeclaration, site, d.Index)
		}
	}
	return out, nil
}

func arity(deps []Dependency) int {
	if len(deps) == 0 {
		return 0
	}
	return deps[len(deps)-1].Index + 1
}
