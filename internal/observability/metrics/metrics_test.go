package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler, got %d", res.Code)
	}
	return res.Body.String()
}

func TestHTTPMiddlewareNormalizesGrantIDs(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/grants/abc-123", nil))

	body := scrape(t, m.Handler())
	if !strings.Contains(body, `path="/api/grants/{id}"`) {
		t.Fatalf("expected normalized path label, got:\n%s", body)
	}
	if !strings.Contains(body, `status="404"`) {
		t.Fatalf("expected status label, got:\n%s", body)
	}
}

func TestRouteLabelKeepsFixedRoutes(t *testing.T) {
	for _, path := range []string{"/api/grants/batch", "/api/grants/import", "/api/grants/export.xlsx", "/api/tags"} {
		if got := routeLabel(path); got != path {
			t.Fatalf("routeLabel(%q) = %q", path, got)
		}
	}
}

func TestClassificationMetricsShareRegistry(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	cls := NewClassificationMetrics("api", m.Registerer())
	cls.RecordClassification("tagged", 3, 120*time.Millisecond)
	cls.RecordClassification("", 0, time.Millisecond)

	body := scrape(t, m.Handler())
	if !strings.Contains(body, `grants_classifier_calls_total{outcome="tagged",service="api"} 1`) {
		t.Fatalf("expected tagged counter, got:\n%s", body)
	}
	if !strings.Contains(body, `outcome="unknown"`) {
		t.Fatalf("expected unknown outcome label, got:\n%s", body)
	}
}

func TestWorkerMetricsCountsImportedGrants(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartImport()
	m.FinishImport("worker", 4, time.Second, nil)
	m.StartImport()
	m.FinishImport("worker", 2, time.Second, errors.New("boom"))

	body := scrape(t, m.Handler())
	if !strings.Contains(body, `grants_worker_imported_grants_total{service="worker"} 4`) {
		t.Fatalf("expected 4 imported grants, got:\n%s", body)
	}
	if !strings.Contains(body, `grants_worker_import_batches_total{service="worker",status="error"} 1`) {
		t.Fatalf("expected one failed batch, got:\n%s", body)
	}
}
