package routing

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/km-arc/go-controllers/framework/container"
)

// Action binds one route to a method of controller T.
//
// Name is the method whose dependencies were declared with
// container.DeclareMethod; its arguments are resolved once, when the
// controller is registered, and handed to Handle on every request.
type Action[T any] struct {
	Method  string
	Pattern string
	Name    string
	Handle  func(ctrl T, w http.ResponseWriter, r *http.Request, args container.Args)
}

// Controller builds T through the container and mounts its actions under
// prefix. Nothing is resolved per request.
//
//	err := routing.Controller(r, c, "/users",
//	    routing.Action[*UserController]{Method: http.MethodGet, Pattern: "/{id}", Name: "Show",
//	        Handle: (*UserController).Show},
//	)
func Controller[T any](r *Router, c *container.Container, prefix string, actions ...Action[T]) error {
	key := container.KeyOf[T]()
	ctrl, err := container.Build[T](c)
	if err != nil {
		return fmt.Errorf("building controller %s: %w", key, err)
	}

	handlers := make([]http.Handler, len(actions))
	for i, a := range actions {
		if a.Handle == nil {
			return fmt.Errorf("controller %s: action %s %s has no handler", key, a.Method, a.Pattern)
		}
		args, err := methodArgs(c, key, a.Name)
		if err != nil {
			return err
		}
		handle := a.Handle
		handlers[i] = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			handle(ctrl, w, req, args)
		})
	}

	mount := func(sub *Router) {
		for i, a := range actions {
			sub.Method(a.Method, a.Pattern, handlers[i])
		}
	}
	if prefix == "" || prefix == "/" {
		mount(r)
	} else {
		r.Prefix(prefix, mount)
	}

	r.log.Info("controller registered",
		zap.Stringer("controller", key),
		zap.String("prefix", prefix),
		zap.Int("actions", len(actions)))
	return nil
}

// Use builds middleware class T through the container and adds it to r.
// name is the method whose dependencies are resolved once and passed to
// handle, which wraps the next handler.
//
//	err := routing.Use(r, c, "Handle", (*AuthMiddleware).Handle)
func Use[T any](r *Router, c *container.Container, name string, handle func(mw T, next http.Handler, args container.Args) http.Handler) error {
	key := container.KeyOf[T]()
	mw, err := container.Build[T](c)
	if err != nil {
		return fmt.Errorf("building middleware %s: %w", key, err)
	}
	args, err := methodArgs(c, key, name)
	if err != nil {
		return err
	}
	r.Middleware(func(next http.Handler) http.Handler {
		return handle(mw, next, args)
	})
	r.log.Debug("middleware registered", zap.Stringer("middleware", key))
	return nil
}

func methodArgs(c *container.Container, key container.Key, name string) (container.Args, error) {
	if name == "" {
		return nil, nil
	}
	deps, err := c.ResolveMethodDependencies(key, name)
	if err != nil {
		return nil, err
	}
	return container.ArgsOf(deps), nil
}
