package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/km-arc/go-controllers/framework/container"
	"github.com/km-arc/go-controllers/framework/routing"
)

// ── ServiceProvider ───────────────────────────────────────────────────────────

// ServiceProvider declares the users API and mounts it on boot.
type ServiceProvider struct{}

func (p *ServiceProvider) Register(c *container.Container) error {
	c.Tag("health", container.KeyOf[*UserRepository](), container.KeyOf[*GeoStatus]())

	return multierr.Combine(
		container.Declare(c, func(a container.Args) (*UserRepository, error) {
			return NewUserRepository(container.Arg[string](a, 0)), nil
		}, container.Token(0, "DB_URL")),
		container.Extend(c, SeedUsers),

		container.Declare(c, func(container.Args) (*AuditTrail, error) {
			return &AuditTrail{}, nil
		}),

		container.Declare(c, func(a container.Args) (*UserService, error) {
			return &UserService{
				repo:  container.Arg[*UserRepository](a, 0),
				audit: container.Arg[*AuditTrail](a, 1),
			}, nil
		},
			container.Class[*UserRepository](0),
			container.Class[*AuditTrail](1, container.WithScope(container.ScopeLocal)),
		),

		container.Declare(c, func(a container.Args) (*GeoStatus, error) {
			return &GeoStatus{lookup: container.Arg[GeoLookup](a, 0)}, nil
		}, container.Token(0, "geoip.lookup")),

		container.Declare(c, func(a container.Args) (*UserController, error) {
			return &UserController{users: container.Arg[*UserService](a, 0)}, nil
		}, container.Class[*UserService](0)),
		container.DeclareMethod[*UserController](c, "Locate", container.Token(0, "geoip.lookup")),

		container.Declare(c, func(container.Args) (*StatusController, error) {
			return &StatusController{}, nil
		}),
		container.DeclareMethod[*StatusController](c, "Show",
			container.Token(0, "APP_NAME"),
			container.Token(1, "APP_ENV"),
		),

		container.Declare(c, func(container.Args) (*AuthMiddleware, error) {
			return &AuthMiddleware{}, nil
		}),
		container.DeclareMethod[*AuthMiddleware](c, "Handle", container.Token(0, "APP_KEY")),
	)
}

func (p *ServiceProvider) Boot(c *container.Container) error {
	r, _ := container.Get[*routing.Router](c, "router")

	var err error
	r.Prefix("/api/v1", func(api *routing.Router) {
		if err = routing.Use(api, c, "Handle", (*AuthMiddleware).Handle); err != nil {
			return
		}
		if err = routing.Controller(api, c, "/users",
			routing.Action[*UserController]{Method: http.MethodGet, Pattern: "/", Handle: (*UserController).Index},
			routing.Action[*UserController]{Method: http.MethodPost, Pattern: "/", Handle: (*UserController).Store},
			routing.Action[*UserController]{Method: http.MethodGet, Pattern: "/{id}", Handle: (*UserController).Show},
		); err != nil {
			return
		}
		err = routing.Controller(api, c, "/geo",
			routing.Action[*UserController]{Method: http.MethodGet, Pattern: "/", Name: "Locate", Handle: (*UserController).Locate},
		)
	})
	if err != nil {
		return err
	}

	checks, err := container.Tagged[HealthChecker](c, "health")
	if err != nil {
		return err
	}
	r.Get("/health", NewHealthController(checks).Show)

	return routing.Controller(r, c, "/",
		routing.Action[*StatusController]{Method: http.MethodGet, Pattern: "/", Name: "Show", Handle: (*StatusController).Show},
	)
}

// ── GeoServiceProvider ────────────────────────────────────────────────────────

// GeoServiceProvider starts the GeoIP download. It is deferred: nothing is
// registered until "geoip" or "geoip.lookup" is first needed.
type GeoServiceProvider struct {
	container.BaseProvider

	// Delay is how long the simulated GeoIP download takes.
	Delay time.Duration
}

func (p *GeoServiceProvider) Provides() []string {
	return []string{"geoip", "geoip.lookup"}
}

func (p *GeoServiceProvider) Register(c *container.Container) error {
	if err := c.RegisterFactory(context.Background(), "geoip", LoadGeoDB(p.Delay), true); err != nil {
		return err
	}
	c.Register("geoip.lookup", GeoLookup(func() (*GeoDB, bool) {
		return container.Get[*GeoDB](c, "geoip")
	}))
	return nil
}
