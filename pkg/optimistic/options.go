package optimistic

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Policy decides what happens when Run is called while an effect for the
// same key is still in flight.
type Policy int

const (
	// DropWhilePending rejects the new Run. No state change, no effect.
	DropWhilePending Policy = iota

	// Concurrent lets effects overlap.
	Concurrent
)

// String returns the config spelling of the policy.
func (p Policy) String() string {
	switch p {
	case DropWhilePending:
		return "drop"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "drop" or "concurrent".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return DropWhilePending, nil
	case "concurrent":
		return Concurrent, nil
	default:
		return DropWhilePending, fmt.Errorf("optimistic: unknown policy %q", s)
	}
}

// Reporter receives effect failures. It is the only place a rejected effect
// surfaces besides the rollback itself.
type Reporter interface {
	Report(action, key string, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(action, key string, err error)

// Report calls f.
func (f ReporterFunc) Report(action, key string, err error) { f(action, key, err) }

// LogReporter returns a Reporter that logs failures at error level.
func LogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return ReporterFunc(func(action, key string, err error) {
		logger.Error("optimistic effect failed",
			"action", action,
			"key", key,
			"error", err)
	})
}

// MultiReporter fans a failure out to every non-nil reporter.
func MultiReporter(reporters ...Reporter) Reporter {
	return ReporterFunc(func(action, key string, err error) {
		for _, r := range reporters {
			if r != nil {
				r.Report(action, key, err)
			}
		}
	})
}

type options struct {
	action   string
	policy   Policy
	reporter Reporter
	tracer   trace.Tracer
}

// Option configures a Controller.
type Option func(*options)

// WithAction sets the default action label used for metrics, spans and
// reports when a Transition leaves Action empty.
func WithAction(action string) Option {
	return func(o *options) {
		o.action = action
	}
}

// WithPolicy sets the concurrency policy (default DropWhilePending).
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithReporter sets where effect failures are reported
// (default LogReporter(slog.Default())).
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithTracer sets the tracer for effect spans (default: global provider).
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

const tracerName = "github.com/noai-dev/noai/pkg/optimistic"

func defaultOptions() options {
	return options{
		action: "optimistic",
		policy: DropWhilePending,
		tracer: otel.Tracer(tracerName),
	}
}
