package app

import (
	"errors"
	"net/http"

	framework "github.com/km-arc/go-controllers/framework/app"
	"github.com/km-arc/go-controllers/framework/container"
	"github.com/km-arc/go-controllers/framework/routing"
)

// ── UserController ────────────────────────────────────────────────────────────

type UserController struct {
	framework.Controller
	users *UserService
}

func (c *UserController) Index(w http.ResponseWriter, r *http.Request, _ container.Args) {
	c.Response(w).Success(c.users.List())
}

func (c *UserController) Show(w http.ResponseWriter, r *http.Request, _ container.Args) {
	res := c.Response(w)
	u, err := c.users.Get(routing.Param(r, "id"))
	if errors.Is(err, ErrUserNotFound) {
		res.NotFound()
		return
	}
	res.Success(u)
}

func (c *UserController) Store(w http.ResponseWriter, r *http.Request, _ container.Args) {
	res := c.Response(w)
	var body User
	if err := c.Request(r).Bind(&body); err != nil {
		res.ValidationError(err)
		return
	}
	created, err := c.users.Create(body)
	if err != nil {
		res.ServerError(err.Error())
		return
	}
	res.Created(created)
}

// Locate reports the caller's country. args[0] is the "geoip.lookup" token.
func (c *UserController) Locate(w http.ResponseWriter, r *http.Request, args container.Args) {
	res := c.Response(w)
	lookup := container.Arg[GeoLookup](args, 0)
	geo, ok := lookup()
	if !ok {
		res.ServiceUnavailable("GeoIP database is still loading.")
		return
	}
	res.Success(map[string]string{"ip": r.RemoteAddr, "country": geo.Country(r.RemoteAddr)})
}

// ── StatusController ──────────────────────────────────────────────────────────

type StatusController struct {
	framework.Controller
}

// Show reports the app name and environment. Both are method arguments,
// resolved when the route is registered.
func (c *StatusController) Show(w http.ResponseWriter, r *http.Request, args container.Args) {
	c.Response(w).Success(map[string]any{
		"app": container.Arg[string](args, 0),
		"env": container.Arg[string](args, 1),
	})
}

// ── HealthController ──────────────────────────────────────────────────────────

// HealthController runs every check tagged "health".
type HealthController struct {
	framework.Controller
	checks []HealthChecker
}

func NewHealthController(checks []HealthChecker) *HealthController {
	return &HealthController{checks: checks}
}

// Show answers 200 when every check passes and 503 otherwise, listing each
// check's status.
func (c *HealthController) Show(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	report := make(map[string]string, len(c.checks))
	for _, check := range c.checks {
		if err := check.Check(); err != nil {
			status = http.StatusServiceUnavailable
			report[check.Name()] = err.Error()
			continue
		}
		report[check.Name()] = "ok"
	}
	c.Response(w).JSON(status, map[string]any{"data": report})
}

// ── AuthMiddleware ────────────────────────────────────────────────────────────

// AuthMiddleware requires "Authorization: Bearer <APP_KEY>" on write requests.
// An empty APP_KEY disables the check.
type AuthMiddleware struct {
	framework.Controller
}

func (m *AuthMiddleware) Handle(next http.Handler, args container.Args) http.Handler {
	key := container.Arg[string](args, 0)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		if m.Request(r).BearerToken() != key {
			m.Response(w).Unauthorized()
			return
		}
		next.ServeHTTP(w, r)
	})
}
