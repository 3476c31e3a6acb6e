package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/duckgate/duckgate/internal/config"
	"github.com/duckgate/duckgate/internal/query"
	"github.com/duckgate/duckgate/internal/query/duckdb"
)

func TestRootEndpointReportsServiceMetadata(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{
		"S3_ENDPOINT":      "http://localhost:9000",
		"ICEBERG_REST_URI": "http://localhost:8181",
	})

	h := NewHandler(cfg, Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["service"] != "DuckDB Lakehouse Service" || body["status"] != "running" {
		t.Fatalf("body = %#v", body)
	}
	if body["s3_endpoint"] != "http://localhost:9000" || body["iceberg_rest_uri"] != "http://localhost:8181" {
		t.Fatalf("body = %#v", body)
	}
}

func TestRootEndpointSucceedsWhenEngineDegraded(t *testing.T) {
	cfg := loadTestConfig(t, nil)
	h := NewHandler(cfg, Dependencies{
		Executor: &fakeExecutor{checkErr: errors.New("connection closed")},
		Engine:   fakeEngine{state: duckdb.StateDegraded},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthEndpointHealthy(t *testing.T) {
	executor := &fakeExecutor{}
	h := NewHandler(loadTestConfig(t, nil), Dependencies{Executor: executor})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["status"] != "healthy" || body["duckdb"] != "connected" || body["test_query"] != true {
		t.Fatalf("body = %#v", body)
	}
	if executor.checks != 1 {
		t.Fatalf("checks = %d", executor.checks)
	}
}

func TestHealthEndpointReturns500WhenCheckFails(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{
		Executor: &fakeExecutor{checkErr: &query.HealthCheckFailedError{Message: "database has been closed"}},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["detail"] != "Health check failed: database has been closed" {
		t.Fatalf("detail = %v", body["detail"])
	}
}

func TestTablesEndpointReturnsPlaceholder(t *testing.T) {
	h := NewHandler(loadTestConfig(t, map[string]string{"DUCKGATE_WAREHOUSE": "s3://lake/"}), Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tables", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["warehouse"] != "s3://lake/" {
		t.Fatalf("warehouse = %v", body["warehouse"])
	}
	if message, _ := body["message"].(string); !strings.Contains(message, "Iceberg catalog") {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestCapabilitiesEndpointReportsLoadResults(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{
		Engine: fakeEngine{
			state: duckdb.StateReady,
			capabilities: duckdb.Capabilities{Results: []duckdb.CapabilityResult{
				{Name: duckdb.CapabilityHTTPFS, Err: errors.New("offline")},
				{Name: duckdb.CapabilityIceberg, Loaded: true},
				{Name: duckdb.CapabilityS3Config, Skipped: true},
			}},
		},
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/capabilities", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		State         string           `json:"state"`
		RemoteStorage bool             `json:"remote_storage"`
		TableFormat   bool             `json:"table_format"`
		Capabilities  []capabilityItem `json:"capabilities"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body.State != "ready" || body.RemoteStorage || !body.TableFormat {
		t.Fatalf("body = %#v", body)
	}
	if len(body.Capabilities) != 3 || body.Capabilities[0].Error != "offline" || !body.Capabilities[2].Skipped {
		t.Fatalf("capabilities = %#v", body.Capabilities)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{
		Readiness: func(context.Context) error {
			return errors.New("warehouse bucket missing")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["detail"] != "Not ready: warehouse bucket missing" {
		t.Fatalf("detail = %v", body["detail"])
	}
}

func TestReadyEndpointWithoutChecks(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMetricsEndpointExposesQueryMetrics(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tables", nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "duckgate_http_requests_total") {
		t.Fatal("expected duckgate_http_requests_total in metrics output")
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		nil,
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestPanickingExecutorBecomes500(t *testing.T) {
	h := NewHandler(loadTestConfig(t, nil), Dependencies{Executor: &fakeExecutor{panicOnRun: true}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"sql":"SELECT 1"}`)))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["detail"] != "Internal Server Error" {
		t.Fatalf("detail = %v", body["detail"])
	}
}

func loadTestConfig(t *testing.T, values map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("", mapLookup(values))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v, body = %s", err, rr.Body.String())
	}
	return body
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

type fakeEngine struct {
	state        duckdb.State
	capabilities duckdb.Capabilities
}

func (f fakeEngine) State() duckdb.State {
	return f.state
}

func (f fakeEngine) Capabilities() duckdb.Capabilities {
	return f.capabilities
}
