package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsMiddlewareLabelsByRoutePattern(t *testing.T) {
	var inFlight string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		inFlight = scrapeMetrics(t)
		w.WriteHeader(http.StatusNoContent)
	})
	h := MetricsMiddleware(mux)

	for _, path := range []string{"/items/1", "/items/2", "/does/not/exist/8f3a"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := scrapeMetrics(t)
	if !strings.Contains(out, `duckgate_http_requests_total{route="GET /items/{id}",status="204"} 2`) {
		t.Fatalf("missing route series in:\n%s", out)
	}
	if !strings.Contains(out, `route="unmatched",status="404"`) {
		t.Fatalf("missing unmatched series in:\n%s", out)
	}
	if strings.Contains(out, "/items/1") || strings.Contains(out, "8f3a") {
		t.Fatalf("raw path leaked into labels:\n%s", out)
	}
	if !strings.Contains(inFlight, "duckgate_http_requests_in_flight 1") {
		t.Fatalf("in-flight gauge during request:\n%s", inFlight)
	}
	if !strings.Contains(out, "duckgate_http_requests_in_flight 0") {
		t.Fatalf("in-flight gauge after requests:\n%s", out)
	}
}

func scrapeMetrics(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	return rr.Body.String()
}
