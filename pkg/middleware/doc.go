// Package middleware provides reconcile.Middleware for production use.
//
// This package includes:
//   - Prometheus metrics for cycles, diff time, patches and errors
//   - OpenTelemetry tracing, one span per cycle
//   - slog logging, perf timing and panic recovery
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	rec := reconcile.New(renderer, root, reconcile.WithMiddleware(m.Middleware()))
//
// Collectors are registered on the given registry, or on
// prometheus.DefaultRegisterer. Building Metrics twice against one registry
// shares the collectors.
//
// # OpenTelemetry Middleware
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-service"),
//	    middleware.WithCycleFilter(func(c *reconcile.Cycle) bool {
//	        return c.Mode == reconcile.ModePatch
//	    }),
//	)
//
// # Ordering
//
// Middleware runs in the order given to reconcile.WithMiddleware. Put
// Recover first so it covers the rest, and OpenTelemetry before Logging so
// logged records carry the span context.
package middleware
