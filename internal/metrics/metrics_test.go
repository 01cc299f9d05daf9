package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Submission("passed")
	m.Submission("passed")
	m.Submission("rejected")
	m.CertificateIssued()

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("passed")); got != 2 {
		t.Errorf("passed submissions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected submissions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.certificates); got != 1 {
		t.Errorf("certificates = %v, want 1", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/exams/{examID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/exams/1", "/exams/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("GET %s: status %d", path, rec.Code)
		}
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/exams/{examID}", "418")); got != 2 {
		t.Errorf("requests for route = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "examhall_http_requests_total") {
		t.Error("expected exposition to include the request counter")
	}
}
