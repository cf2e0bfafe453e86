package handlers

import (
	"net/http"
	"testing"
)

func TestProgressEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/progress/cat-1", map[string]int{"index": 4})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while saving is disabled, got %d", w.Code)
	}

	if _, err := env.config.Save([]byte(`{"python_config":{"SAVE_CURRENT_INDEX":true}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/progress/cat-1", map[string]int{"index": -1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative index, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/progress/cat-1", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing index, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/progress/cat-1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before saving, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/progress/cat-1", map[string]int{"index": 4})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, env.do(t, http.MethodGet, "/api/progress/cat-1", nil))["index"] != float64(4) {
		t.Fatalf("expected saved index 4")
	}

	w = env.do(t, http.MethodPost, "/api/progress/delete_all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if _, ok := decode(t, w)["message"]; !ok {
		t.Fatalf("expected message key")
	}
	if w = env.do(t, http.MethodGet, "/api/progress/cat-1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected progress to be gone, got %d", w.Code)
	}
}
