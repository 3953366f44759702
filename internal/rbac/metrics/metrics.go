package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the permission core.
type Metrics struct {
	PermissionDecisions *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	RoleCascades        *prometheus.CounterVec
	CascadeRewrites     *prometheus.CounterVec
	RoleCacheHits       prometheus.Counter
	RoleCacheMisses     prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all collectors on registry. A nil
// registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		PermissionDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_permission_decisions_total",
				Help: "Permission checks by resource type, operation and result",
			},
			[]string{"resource_type", "operation", "result"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_validation_failures_total",
				Help: "Field validation messages by entity type and field",
			},
			[]string{"entity_type", "field"},
		),
		RoleCascades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_role_cascades_total",
				Help: "Role deletion cascades by result",
			},
			[]string{"result"},
		),
		CascadeRewrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rolegate_cascade_rewrites_total",
				Help: "Records rewritten by role deletion cascades, by target",
			},
			[]string{"target"},
		),
		RoleCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rolegate_role_cache_hits_total",
			Help: "Role lookups served from cache",
		}),
		RoleCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rolegate_role_cache_misses_total",
			Help: "Role lookups that went to the store",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.PermissionDecisions,
		m.ValidationFailures,
		m.RoleCascades,
		m.CascadeRewrites,
		m.RoleCacheHits,
		m.RoleCacheMisses,
	)
	return m
}

// RecordDecision counts one permission check.
func (m *Metrics) RecordDecision(resourceType, operation string, allowed bool) {
	if m == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.PermissionDecisions.WithLabelValues(resourceType, operation, result).Inc()
}

func (m *Metrics) RecordValidationFailures(entityType string, fields []string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.ValidationFailures.WithLabelValues(entityType, f).Inc()
	}
}

func (m *Metrics) RecordCascade(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.RoleCascades.WithLabelValues("success").Inc()
		return
	}
	m.RoleCascades.WithLabelValues("failure").Inc()
}

func (m *Metrics) RecordRewrites(target string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CascadeRewrites.WithLabelValues(target).Add(float64(n))
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.RoleCacheHits.Inc()
		return
	}
	m.RoleCacheMisses.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
