// Package metrics exposes Prometheus metrics about the DI container: how
// many instances each resolution constructed or took from the cache, and the
// state of deferred providers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-controllers/framework/container"
)

// Collector holds the container metrics on a private registry, so several
// containers (and tests) never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	Resolutions *prometheus.CounterVec
	Deferred    *prometheus.GaugeVec
}

// NewCollector creates a collector under namespace, with the Go runtime and
// process collectors registered alongside.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolutions_total",
			Help:      "Resolved container nodes by type, scope and outcome (constructed or cached).",
		},
		[]string{"type", "scope", "outcome"},
	)

	deferred := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "deferred_providers",
			Help:      "Deferred providers by token and state (1 for the current state).",
		},
		[]string{"token", "state"},
	)

	registry.MustRegister(
		resolutions,
		deferred,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:    registry,
		Resolutions: resolutions,
		Deferred:    deferred,
	}
}

// Attach subscribes the collector to c's resolution, registration and settle
// hooks. Deferred tokens registered before Attach are reported immediately,
// later ones as soon as they are registered.
func (m *Collector) Attach(c *container.Container) {
	c.AfterResolving(m.observeResolve)
	c.AfterRegistered(m.observeRegister)
	c.AfterSettled(m.observeSettle)

	reg := c.Registry()
	for _, token := range reg.Tokens() {
		if kind, _ := reg.Kind(token); kind == container.KindDeferred {
			m.observeSettle(token, reg.State(token))
		}
	}
}

func (m *Collector) observeResolve(ev container.ResolveEvent) {
	outcome := "constructed"
	if ev.Cached {
		outcome = "cached"
	}
	m.Resolutions.WithLabelValues(ev.Key.String(), ev.Scope.String(), outcome).Inc()
}

func (m *Collector) observeRegister(token string, kind container.ProviderKind) {
	if kind == container.KindDeferred {
		m.observeSettle(token, container.StatePending)
	}
}

func (m *Collector) observeSettle(token string, state container.ProviderState) {
	for _, s := range []container.ProviderState{container.StatePending, container.StateReady, container.StateFailed} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.Deferred.WithLabelValues(token, s.String()).Set(v)
	}
}

// Registry returns the private Prometheus registry.
func (m *Collector) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collector's registry in the Prometheus exposition format.
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
