// Package middleware provides HTTP middleware for the NOAI server.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus request metrics middleware
//
// Both are plain func(http.Handler) http.Handler values and mount on a chi
// router with Use:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Tracing())
//	r.Use(middleware.Metrics())
//
// # OpenTelemetry Middleware
//
// Tracing starts a server span per request, named after the matched chi
// route pattern, and stores it in the request context so handlers and the
// optimistic effects they start inherit the trace:
//
//	middleware.Tracing(
//	    middleware.WithTracerName("noai-api"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it in
// main() before starting the server.
//
// # Prometheus Metrics
//
// Metrics records noai_http_requests_total and
// noai_http_request_duration_seconds through pkg/metrics. Route labels use
// the chi pattern ("/api/posts/{postID}/like"), never the raw path.
package middleware
