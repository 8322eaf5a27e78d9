package container

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Validate checks the declarations against the registry at configuration
// time, before any Build. It reports, aggregated:
//   - *MisconfiguredDeferredTypeError for deferred tokens consumed without Nullable
//   - *UnresolvedDependencyError for class dependencies and tagged types that
//     were never declared
//   - *CircularDependencyError for cycles in the constructor graph
//
// Use multierr.Errors to split the result.
func (c *Container) Validate() error {
	c.mu.RLock()
	descs := make([]*descriptor, 0, len(c.order))
	for _, k := range c.order {
		descs = append(descs, c.descriptors[k])
	}
	c.mu.RUnlock()

	var errs error
	graph := NewDependencyGraph()
	for _, d := range descs {
		var classes []Key
		for _, dep := range d.deps {
			if !dep.IsToken() {
				classes = append(classes, dep.Class)
			}
			errs = multierr.Append(errs, c.checkDependency(d.key, "", dep))
		}
		graph.AddNode(d.key, classes)

		methods := make([]string, 0, len(d.methods))
		for method := range d.methods {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			for _, dep := range d.methods[method] {
				errs = multierr.Append(errs, c.checkDependency(d.key, method, dep))
			}
		}
	}

	for _, tag := range c.tagNames() {
		for _, key := range c.TaggedKeys(tag) {
			if !c.Declared(key) {
				errs = multierr.Append(errs, fmt.Errorf("tag %q: %w", tag, &UnresolvedDependencyError{Key: key}))
			}
		}
	}

	if _, err := graph.TopologicalSort(); err != nil {
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		c.log.Error("container validation failed",
			zap.Int("problems", len(multierr.Errors(errs))),
			zap.Error(errs))
	}
	return errs
}

func (c *Container) checkDependency(owner Key, method string, dep Dependency) error {
	if !dep.IsToken() {
		if !c.Declared(dep.Class) {
			return &UnresolvedDependencyError{Key: dep.Class, Requester: owner}
		}
		return nil
	}
	if kind, ok := c.registry.Kind(dep.Token); ok && kind == KindDeferred && !dep.Nullable {
		return &MisconfiguredDeferredTypeError{
			Requester: owner,
			Method:    method,
			Index:     dep.Index,
			Token:     dep.Token,
		}
	}
	return nil
}
