package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// initTestApp wires a full App against a temporary config and data dir.
func initTestApp(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	t.Setenv(envDataDir, filepath.Join(dir, "data"))
	a, err := newApp(filepath.Join(dir, "gallery.config.json"))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	go a.wsHub.Run()
	app = a
	t.Cleanup(func() { a.shutdown(context.Background()) })
}

func TestPublicEndpoints(t *testing.T) {
	initTestApp(t)
	r := setupRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/healthz expected 200, got %d", w.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("/healthz invalid JSON: %v", err)
	}
	if health["status"] != "ok" {
		t.Fatalf("/healthz expected status=ok, got %#v", health)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "session_id=") {
		t.Fatalf("expected a session_id cookie on first contact")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/api/version expected 200, got %d", w.Code)
	}
	var ver map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &ver); err != nil {
		t.Fatalf("/api/version invalid JSON: %v", err)
	}
	if ver["version"] == "" || ver["version"] == nil {
		t.Fatalf("/api/version missing version: %#v", ver)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gallery_http_requests_total") {
		t.Fatalf("/metrics expected request counter, got %d", w.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	initTestApp(t)
	r := setupRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Resource not found") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestConfigBootstrappedAndServed(t *testing.T) {
	initTestApp(t)
	r := setupRouter()

	if _, err := os.Stat(app.config.Path()); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["isPasswordProtectionActive"] != false {
		t.Fatalf("expected password protection off, got %#v", body["isPasswordProtectionActive"])
	}
	if _, ok := body["python_config"]; !ok {
		t.Fatalf("expected python_config section")
	}
}

func TestAddCategoryRequiresAdmin(t *testing.T) {
	initTestApp(t)
	r := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"x","path":"/tmp"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Administrator privileges required to add categories.") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestPostOutsideAPIRejected(t *testing.T) {
	initTestApp(t)
	r := setupRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/media/x/y.jpg", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
