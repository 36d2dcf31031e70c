package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/config"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/db"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/httpapi"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/ingest"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/query"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handle, err := db.Open(filepath.Join(t.TempDir(), "datalog.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	repo := repository.NewRepository(handle)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	logger := zap.NewNop()
	cfg := &config.Config{StaticDir: t.TempDir()}
	return httpapi.NewRouter(cfg, logger, ingest.NewService(repo, logger), query.NewService(repo, logger))
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	obj := decodeObject(t, rec)
	if obj["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", obj["status"])
	}
	ts, _ := obj["time"].(string)
	if !strings.HasSuffix(ts, "Z") {
		t.Errorf("Expected canonical time, got %q", ts)
	}
}

func TestIngest_CreatedThenDuplicate(t *testing.T) {
	router := newTestRouter(t)
	body := `{"ts":"2025-08-11T16:20:00Z","temperature_c":24.7}`

	rec := doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 on first ingest, got %d: %s", rec.Code, rec.Body.String())
	}
	obj := decodeObject(t, rec)
	if obj["created"] != true || obj["device_id"] != "dev-1" || obj["ts"] != "2025-08-11T16:20:00Z" {
		t.Errorf("Unexpected first response: %v", obj)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on duplicate ingest, got %d", rec.Code)
	}
	obj = decodeObject(t, rec)
	if obj["created"] != false {
		t.Errorf("Expected created=false on duplicate, got %v", obj["created"])
	}
}

func TestIngest_MissingTemperature(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"humidity_percent":50}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	obj := decodeObject(t, rec)
	if obj["error"] != "temperature_c is required" {
		t.Errorf("Unexpected error message: %v", obj["error"])
	}

	// Rejected payloads must leave the store untouched.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/readings/latest", "")
	if rec.Body.String() != "{}" {
		t.Errorf("Expected empty store, got %s", rec.Body.String())
	}
}

func TestIngest_MalformedTimestamp(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"ts":"not-a-date","temperature_c":21.0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	obj := decodeObject(t, rec)
	errMsg, _ := obj["error"].(string)
	if !strings.HasPrefix(errMsg, "ts must be ISO-8601") {
		t.Errorf("Unexpected error message: %q", errMsg)
	}
}

func TestIngest_InvalidField(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"temperature_c":21.0,"rssi":"strong"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	obj := decodeObject(t, rec)
	if obj["error"] != "rssi must be an integer" {
		t.Errorf("Unexpected error message: %v", obj["error"])
	}
}

func TestListReadings(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"ts":"2025-08-11T10:00:00Z","temperature_c":21.0,"humidity_percent":61}`)
	doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"ts":"2025-08-11T11:00:00Z","temperature_c":22.0}`)
	doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-2/readings", `{"ts":"2025-08-11T10:30:00Z","temperature_c":30.0}`)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/devices/dev-1/readings?since=2025-08-11T10:30:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to decode array: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 filtered row, got %d", len(rows))
	}
	if rows[0]["ts"] != "2025-08-11T11:00:00Z" {
		t.Errorf("Unexpected row: %v", rows[0])
	}
	if _, present := rows[0]["device_id"]; present {
		t.Error("Expected device_id to be dropped from projections")
	}
	if rows[0]["humidity_percent"] != nil {
		t.Errorf("Expected null humidity for second reading, got %v", rows[0]["humidity_percent"])
	}
}

func TestAggregateEndpoint(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"ts":"2025-08-11T16:20:00Z","temperature_c":20.0}`)
	doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-2/readings", `{"ts":"2025-08-11T16:20:00Z","temperature_c":24.0}`)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/readings/aggregate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var points []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("Failed to decode array: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("Expected 1 point, got %d", len(points))
	}
	if points[0]["temperature_c"] != 22.0 {
		t.Errorf("Expected mean 22.0, got %v", points[0]["temperature_c"])
	}
	if points[0]["n"] != 2.0 {
		t.Errorf("Expected n=2, got %v", points[0]["n"])
	}
	if points[0]["epoch_ms"] == nil {
		t.Error("Expected epoch_ms to be present")
	}
}

func TestLatest_EmptyObject(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/readings/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "{}" {
		t.Errorf("Expected empty object, got %s", rec.Body.String())
	}
}

func TestExportCSV(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, http.MethodPost, "/api/v1/devices/dev-1/readings", `{"ts":"2025-08-11T10:00:00Z","temperature_c":24.7,"rssi":-58}`)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv, got %q", ct)
	}

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[0] != query.CSVHeader {
		t.Errorf("Expected CSV header first, got %q", lines[0])
	}
	if lines[1] != "dev-1,2025-08-11T10:00:00Z,24.7,,,-58" {
		t.Errorf("Unexpected CSV row: %q", lines[1])
	}
}

func TestFavicon(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/favicon.ico", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
}
