package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestBrowseFoldersDocker(t *testing.T) {
	env := newTestEnv(t)
	env.browse.InDocker = func() bool { return true }

	w := env.do(t, http.MethodGet, "/api/browse-folders", nil)
	body := decode(t, w)
	if w.Code != http.StatusNotImplemented || body["docker"] != true {
		t.Fatalf("expected 501 docker response, got %d %#v", w.Code, body)
	}
}

func TestBrowseFoldersPicker(t *testing.T) {
	env := newTestEnv(t)

	env.browse.Pick = func(ctx context.Context) (string, error) { return "/srv/photos", nil }
	body := decode(t, env.do(t, http.MethodGet, "/api/browse-folders", nil))
	if body["path"] != "/srv/photos" {
		t.Fatalf("unexpected body %#v", body)
	}

	env.browse.Pick = func(ctx context.Context) (string, error) { return "", nil }
	body = decode(t, env.do(t, http.MethodGet, "/api/browse-folders", nil))
	if v, ok := body["path"]; !ok || v != nil {
		t.Fatalf("expected null path on cancel, got %#v", body)
	}

	env.browse.Pick = func(ctx context.Context) (string, error) { return "", ErrNoFolderDialog }
	w := env.do(t, http.MethodGet, "/api/browse-folders", nil)
	if w.Code != http.StatusNotImplemented || decode(t, w)["error"] != ErrNoFolderDialog.Error() {
		t.Fatalf("expected 501, got %d %s", w.Code, w.Body.String())
	}

	env.browse.Pick = func(ctx context.Context) (string, error) { return "", errors.New("crashed") }
	w = env.do(t, http.MethodGet, "/api/browse-folders", nil)
	if w.Code != http.StatusInternalServerError || decode(t, w)["error"] != "Failed to open folder browser: crashed" {
		t.Fatalf("expected 500, got %d %s", w.Code, w.Body.String())
	}
}

func TestListFoldersConfinedToRoot(t *testing.T) {
	env := newTestEnv(t)
	for _, d := range []string{"Beta", "alpha/inner", ".hidden"} {
		if err := os.MkdirAll(filepath.Join(env.dir, d), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(env.dir, "alpha", "x.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/browse-folders/list", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	entries := decode(t, w)["entries"].([]interface{})
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.(map[string]interface{})["name"].(string))
	}
	want := []string{"alpha", "Beta", "data"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	body := decode(t, env.do(t, http.MethodGet, "/api/browse-folders/list?path=alpha", nil))
	if body["currentRelPath"] != "alpha" || body["mediaFiles"] != float64(1) {
		t.Fatalf("unexpected listing %#v", body)
	}
	if crumbs := body["breadcrumbs"].([]interface{}); len(crumbs) != 2 {
		t.Fatalf("expected two breadcrumbs, got %v", crumbs)
	}

	w = env.do(t, http.MethodGet, "/api/browse-folders/list?path=../", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 outside root, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/browse-folders/list?path=missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
