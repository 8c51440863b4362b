package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vtree").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle and diff duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vtree",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the reconciliation collectors registered on one registry.
// Collectors already present on the registry are reused, so any number of
// hosts can share one Metrics or build their own against the same registry.
type Metrics struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	diffDuration  prometheus.Histogram
	patchesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	activeHosts   prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		cyclesTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of reconciliation cycles",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "status"})),

		cycleDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_duration_seconds",
			Help:        "Reconciliation cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"})),

		diffDuration: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_duration_seconds",
			Help:        "Time spent computing patches in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		})),

		patchesTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_total",
			Help:        "Total number of patches applied, by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"})),

		errorsTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconcile_errors_total",
			Help:        "Total number of failed cycles, by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"})),

		activeHosts: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_hosts",
			Help:        "Number of initialized component hosts",
			ConstLabels: config.ConstLabels,
		})),
	}
}

// register adds c to reg, or returns the equivalent collector reg already has.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Middleware returns the reconcile middleware that feeds m.
func (m *Metrics) Middleware() reconcile.Middleware {
	return reconcile.MiddlewareFunc(func(ctx context.Context, c *reconcile.Cycle, next func(context.Context) error) error {
		mode := c.Mode.String()
		start := time.Now()

		err := next(ctx)

		m.cycleDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		if c.Mode == reconcile.ModePatch && c.Patches != nil {
			m.diffDuration.Observe(c.DiffDuration.Seconds())
		}
		for _, p := range c.Patches[:c.Applied] {
			m.patchesTotal.WithLabelValues(p.Op.String()).Inc()
		}

		status := "success"
		if err != nil {
			status = "error"
			m.errorsTotal.WithLabelValues(reconcile.KindName(err)).Inc()
		}
		m.cyclesTotal.WithLabelValues(mode, status).Inc()

		return err
	})
}

// HostOpened increments the active hosts gauge.
func (m *Metrics) HostOpened() { m.activeHosts.Inc() }

// HostClosed decrements the active hosts gauge.
func (m *Metrics) HostClosed() { m.activeHosts.Dec() }

// RecordPatches counts patches that were applied outside a Reconciler,
// such as by a standalone reconcile.Apply call.
func (m *Metrics) RecordPatches(patches []vdom.Patch) {
	for _, p := range patches {
		m.patchesTotal.WithLabelValues(p.Op.String()).Inc()
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// reconciliation cycles.
//
// Metrics collected (with the default namespace):
//   - vtree_cycles_total: Counter of cycles by mode and status
//   - vtree_cycle_duration_seconds: Histogram of cycle duration by mode
//   - vtree_diff_duration_seconds: Histogram of time spent in Diff
//   - vtree_patches_total: Counter of applied patches by op
//   - vtree_reconcile_errors_total: Counter of failed cycles by kind
//
// Example:
//
//	rec := reconcile.New(renderer, root,
//	    reconcile.WithMiddleware(middleware.Prometheus(
//	        middleware.WithNamespace("myapp"),
//	    )),
//	)
//
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) reconcile.Middleware {
	return NewMetrics(opts...).Middleware()
}
