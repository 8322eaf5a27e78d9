package routing_test

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-controllers/framework/container"
	"github.com/km-arc/go-controllers/framework/routing"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type greeter struct{ greeting string }

type helloController struct {
	greeter *greeter
}

func (h *helloController) Show(w http.ResponseWriter, r *http.Request, args container.Args) {
	suffix := container.Arg[string](args, 0)
	_, _ = fmt.Fprintf(w, "%s %s%s", h.greeter.greeting, routing.Param(r, "name"), suffix)
}

type tokenGuard struct{}

func (g *tokenGuard) Handle(next http.Handler, args container.Args) http.Handler {
	want := container.Arg[string](args, 0)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newApp(t *testing.T, greeterBuilds *atomic.Int32) *container.Container {
	t.Helper()
	c := container.New()
	c.Register("greeting", "hello")
	c.Register("suffix", "!")
	c.Register("token", "s3cret")

	require.NoError(t, container.Declare(c, func(a container.Args) (*greeter, error) {
		greeterBuilds.Add(1)
		return &greeter{greeting: container.Arg[string](a, 0)}, nil
	}, container.Token(0, "greeting")))
	require.NoError(t, container.Declare(c, func(a container.Args) (*helloController, error) {
		return &helloController{greeter: container.Arg[*greeter](a, 0)}, nil
	}, container.Class[*greeter](0)))
	require.NoError(t, container.DeclareMethod[*helloController](c, "Show", container.Token(0, "suffix")))

	require.NoError(t, container.Declare(c, func(container.Args) (*tokenGuard, error) {
		return &tokenGuard{}, nil
	}))
	require.NoError(t, container.DeclareMethod[*tokenGuard](c, "Handle", container.Token(0, "token")))
	return c
}

// ── Controller ────────────────────────────────────────────────────────────────

func TestController_ServesActions(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)
	r := routing.New(nil)

	err := routing.Controller(r, c, "/hello",
		routing.Action[*helloController]{
			Method: http.MethodGet, Pattern: "/{name}", Name: "Show",
			Handle: (*helloController).Show,
		},
	)
	require.NoError(t, err)

	rr := do(t, r, http.MethodGet, "/hello/ada")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello ada!", rr.Body.String())
}

func TestController_ResolvesOnceAtRegistration(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)
	r := routing.New(nil)
	require.NoError(t, routing.Controller(r, c, "",
		routing.Action[*helloController]{
			Method: http.MethodGet, Pattern: "/{name}", Name: "Show",
			Handle: (*helloController).Show,
		},
	))

	c.Register("suffix", "?")
	for i := 0; i < 3; i++ {
		assert.Equal(t, "hello ada!", do(t, r, http.MethodGet, "/ada").Body.String(),
			"method arguments are replayed, not re-resolved")
	}
	assert.Equal(t, int32(1), builds.Load())
}

func TestController_BuildFailure(t *testing.T) {
	c := container.New()
	r := routing.New(nil)

	err := routing.Controller(r, c, "/hello",
		routing.Action[*helloController]{Method: http.MethodGet, Pattern: "/", Handle: (*helloController).Show},
	)
	assert.ErrorIs(t, err, container.ErrUnresolvedDependency)
	assert.ErrorContains(t, err, "building controller")
}

func TestController_MethodDependencyFailure(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)
	require.NoError(t, container.DeclareMethod[*helloController](c, "Missing", container.Token(0, "nope")))
	r := routing.New(nil)

	err := routing.Controller(r, c, "/hello",
		routing.Action[*helloController]{Method: http.MethodGet, Pattern: "/", Name: "Missing", Handle: (*helloController).Show},
	)
	assert.ErrorIs(t, err, container.ErrUnresolvedDependency)
	assert.ErrorContains(t, err, "helloController.Missing parameter 0")
}

func TestController_MissingHandler(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)

	err := routing.Controller(routing.New(nil), c, "/hello",
		routing.Action[*helloController]{Method: http.MethodGet, Pattern: "/"},
	)
	assert.ErrorContains(t, err, "has no handler")
}

// ── Use ───────────────────────────────────────────────────────────────────────

func TestUse_MiddlewareFromContainer(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)
	r := routing.New(nil)

	require.NoError(t, routing.Use(r, c, "Handle", (*tokenGuard).Handle))
	r.Get("/secret", okHandler)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/secret").Code)

	req := newRequest(http.MethodGet, "/secret")
	req.Header.Set("X-Token", "s3cret")
	rr := serve(r, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUse_UndeclaredMiddleware(t *testing.T) {
	err := routing.Use(routing.New(nil), container.New(), "Handle", (*tokenGuard).Handle)
	assert.ErrorIs(t, err, container.ErrUnresolvedDependency)
}

func TestUse_UndeclaredMethodFails(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)
	r := routing.New(nil)

	err := routing.Use(r, c, "handle", (*tokenGuard).Handle)
	require.ErrorIs(t, err, container.ErrUnresolvedDependency)
	assert.ErrorContains(t, err, "tokenGuard.handle")

	r.Post("/secret", okHandler)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/secret").Code, "no guard was mounted")
}

func TestController_UndeclaredActionNameFails(t *testing.T) {
	var builds atomic.Int32
	c := newApp(t, &builds)

	err := routing.Controller(routing.New(nil), c, "/hello",
		routing.Action[*helloController]{Method: http.MethodGet, Pattern: "/{name}", Name: "show", Handle: (*helloController).Show},
	)
	assert.ErrorIs(t, err, container.ErrUnresolvedDependency)
	assert.ErrorContains(t, err, "helloController.show (method not declared)")
}
