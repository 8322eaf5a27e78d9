// Package container is the dependency-injection runtime of the framework.
//
// # Overview
//
// The container turns explicit dependency declarations into a resolved,
// correctly scoped object graph. Go has no constructor-parameter reflection,
// so every injectable type declares its constructor and the ordered list of
// what each parameter needs: another declared type (a class) or a string
// token held by the Registry.
//
// # Container Lifecycle
//
//  1. Create:    c := container.New(container.WithLogger(log))
//  2. Configure: register tokens and factories, Declare types and methods
//  3. Validate:  c.Validate()    reports deferred/nullable mismatches and missing types or cycles
//  4. Build:     controllers and middleware, once, at startup
//  5. Dispose:   c.Dispose(ctx)  closes shared instances newest first
//
// # Tokens
//
//	// Pre-built value; last registration wins
//	c.Register("DB_URL", "postgres://localhost/app")
//
//	// Synchronous factory, run now
//	err := c.RegisterFactory(ctx, "clock", func(context.Context) (any, error) {
//	    return time.Now, nil
//	}, false)
//
//	// Deferred factory, run in the background; Get returns nil until ready
//	err = c.RegisterFactory(ctx, "geoip", loadGeoIP, true)
//
// # Declarations
//
//	err := container.Declare(c, func(a container.Args) (*UserService, error) {
//	    return &UserService{
//	        Repo:  container.Arg[*UserRepository](a, 0),
//	        GeoIP: container.Arg[*GeoIP](a, 1), // nil while pending
//	    }, nil
//	},
//	    container.Class[*UserRepository](0),
//	    container.Token(1, "geoip", container.Nullable()),
//	)
//
// # Scopes
//
// Every edge is ScopeShared unless it says otherwise:
//
//	container.Class[*Audit](0, container.WithScope(container.ScopeLocal))
//	container.Class[*Report](1, container.WithScope(container.ScopeDeepLocal))
//
// ScopeLocal gives that edge a fresh instance whose own dependencies are still
// shared. ScopeDeepLocal gives a fresh instance and forces every transitive
// dependency below it to be fresh too, explicit ScopeShared edges included;
// none of those instances enter the cache.
//
// # Resolving
//
//	svc, err := container.Build[*UserService](c)
//	args, err := c.ResolveMethodDependencies(container.KeyOf[*UserController](), "Show")
//	url, ok := container.Get[string](c, "DB_URL")
//
// # Decorators and Tags
//
//	// Every new *UserRepository passes through SeedUsers before it is cached
//	err := container.Extend(c, SeedUsers)
//
//	c.Tag("health", container.KeyOf[*UserRepository](), container.KeyOf[*GeoStatus]())
//	checks, err := container.Tagged[HealthChecker](c, "health")
//
//	// Fired when "logger" is registered again
//	c.Rebinding("logger", func(v any) { log = v.(*zap.Logger) })
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(c)
//	_ = registry.Register(&AppServiceProvider{})
//	_ = registry.Register(&GeoServiceProvider{}) // DeferredProvider: loads when "geoip" is first missed
//	_ = registry.Boot()                          // validates, then boots providers
package container
