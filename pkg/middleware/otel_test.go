package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

func TestTracing_PassesThrough(t *testing.T) {
	var sawSpan bool
	extracted := 0

	r := chi.NewRouter()
	r.Use(Tracing(
		WithTracerName("test"),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted++
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))
	r.Get("/api/profiles/{userID}", func(w http.ResponseWriter, r *http.Request) {
		sawSpan = SpanFromRequest(r) != nil
		if got := chi.URLParam(r, "userID"); got != "user-2" {
			t.Errorf("URLParam(userID) = %q, want user-2", got)
		}
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/user-2", nil)
	req.Header.Set(DefaultSessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if !sawSpan {
		t.Error("handler did not see a span")
	}
	if extracted != 1 {
		t.Errorf("extractor called %d times, want 1", extracted)
	}
}

func TestTracing_FilterSkips(t *testing.T) {
	extracted := 0

	r := chi.NewRouter()
	r.Use(Tracing(
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted++
			return nil
		}),
	))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if extracted != 0 {
		t.Errorf("extractor called %d times for filtered request, want 0", extracted)
	}
}

func TestSpanName(t *testing.T) {
	if got := spanName("POST", "/api/posts/{postID}/like"); got != "POST /api/posts/{postID}/like" {
		t.Errorf("spanName() = %q", got)
	}
}
