// Package middleware provides task middleware for loom queues.
//
// This package includes:
//   - Prometheus metrics middleware
//   - OpenTelemetry tracing middleware
//
// Middleware is attached when a queue is created and wraps every task that
// runs through the queue's inbox. Calls that take the inline fast path are
// not tasks and are not observed.
//
// # Prometheus Metrics
//
//	reg := prometheus.NewRegistry()
//	ui := queue.NewWorker(
//	    queue.WithName("ui"),
//	    queue.WithMiddleware(middleware.Prometheus(
//	        middleware.WithRegistry(reg),
//	        middleware.WithNamespace("myapp"),
//	    )),
//	)
//
// Queues that share a registry share one set of collectors, labelled by
// queue name.
//
// # OpenTelemetry
//
// The tracing middleware opens one span per task using the global tracer
// provider unless WithTracerProvider is given. Configure the global provider
// in main() before creating queues:
//
//	otel.SetTracerProvider(tp)
//	pool := queue.NewPool(queue.WithMiddleware(middleware.OpenTelemetry()))
package middleware
