package handlers

import (
	"image/color"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestAddCategoryAdminOnly(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "a", "path": env.dir}, sessionCookie("s1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if decode(t, w)["error"] != "Administrator privileges required to add categories." {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestAddCategoryValidation(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.claimAdmin(t, "s1")

	w := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "only-name"}, cookies...)
	if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Name and path are required" {
		t.Fatalf("expected 400 for missing path, got %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "x", "path": filepath.Join(env.dir, "nope")}, cookies...)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing directory, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Pics", "path": env.dir}, cookies...)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	if created["name"] != "Pics" || created["id"] == "" {
		t.Fatalf("unexpected category %#v", created)
	}

	w = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "pics", "path": t.TempDir()}, cookies...)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate name, got %d", w.Code)
	}
}

func TestDeleteCategoryClearsState(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.claimAdmin(t, "s1")
	cat := env.addCategory(t, "trip", "a.jpg")
	if err := env.progress.Save(cat.ID, 3); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	w := env.do(t, http.MethodDelete, "/api/categories/"+cat.ID, nil, cookies...)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := env.categories.Get(cat.ID); ok {
		t.Fatalf("category still present")
	}
	if _, err := env.progress.Get(cat.ID); err == nil {
		t.Fatalf("expected saved progress to be removed")
	}

	w = env.do(t, http.MethodDelete, "/api/categories/"+cat.ID, nil, cookies...)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for second delete, got %d", w.Code)
	}
}

func TestListCategoriesWithThumbnail(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "photos")
	img := imaging.New(100, 50, color.NRGBA{G: 255, A: 255})
	if err := imaging.Save(img, filepath.Join(cat.Path, "green.png")); err != nil {
		t.Fatalf("save image: %v", err)
	}
	empty := env.addCategory(t, "videos", "clip.mp4")

	for _, id := range []string{cat.ID, empty.ID} {
		if w := env.do(t, http.MethodGet, "/api/categories/"+id+"/media", nil); w.Code != http.StatusOK {
			t.Fatalf("index %s: %d %s", id, w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/thumbnail", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected thumbnail, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", ct)
	}

	w = env.do(t, http.MethodGet, "/api/categories/"+empty.ID+"/thumbnail", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without images, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/categories/missing/thumbnail", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", w.Code)
	}
}

func TestAddCategoryStartsIndexing(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.claimAdmin(t, "s1")
	root := t.TempDir()
	for _, n := range []string{"a.jpg", "b.jpg"} {
		if err := imaging.Save(imaging.New(4, 4, color.Black), filepath.Join(root, n)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	w := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "bg", "path": root}, cookies...)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	id, _ := decode(t, w)["id"].(string)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p := env.media.Progress(id); p.Status == "complete" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("background indexing did not complete: %#v", env.media.Progress(id))
}
