package handlers

import (
	"net/http"
	"testing"
	"time"

	"gallery/internal/models"
)

func TestListMediaArguments(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "album", "a.jpg", "b.jpg", "c.mp4")
	base := "/api/categories/" + cat.ID + "/media"

	cases := []struct {
		query  string
		status int
		err    string
	}{
		{"?page=0", http.StatusBadRequest, "Page number must be 1 or greater"},
		{"?limit=0", http.StatusBadRequest, "Limit must be greater than 0"},
		{"?limit=-3", http.StatusBadRequest, "Limit must be greater than 0"},
		{"?page=abc", http.StatusOK, ""},
		{"?limit=abc", http.StatusOK, ""},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodGet, base+tc.query, nil)
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.query, tc.status, w.Code, w.Body.String())
		}
		if tc.err != "" && decode(t, w)["error"] != tc.err {
			t.Fatalf("%s: unexpected body %s", tc.query, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/categories/unknown/media", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", w.Code)
	}
}

func TestListMediaPagination(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "album", "a.jpg", "b.jpg", "c.mp4")

	w := env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/media?page=1&limit=2&shuffle=false", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	files := body["files"].([]interface{})
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	first := files[0].(map[string]interface{})
	if first["path"] != "a.jpg" || first["url"] != "/media/"+cat.ID+"/a.jpg" {
		t.Fatalf("unexpected first file %#v", first)
	}
	pagination := body["pagination"].(map[string]interface{})
	if pagination["total_files"] != float64(3) || pagination["has_more"] != true {
		t.Fatalf("unexpected pagination %#v", pagination)
	}
	if _, ok := body["async_indexing"]; ok {
		t.Fatalf("did not expect async flag for a finished index")
	}
	if _, ok := body["last_known_index"]; ok {
		t.Fatalf("did not expect last_known_index while saving is disabled")
	}

	body = decode(t, env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/media?page=5&limit=2", nil))
	if len(body["files"].([]interface{})) != 0 {
		t.Fatalf("expected empty page past the end")
	}
}

func TestListMediaAsyncLiftsProgress(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.config.Save([]byte(`{"python_config":{"INDEX_SYNC_WINDOW_MS":0}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	names := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		names = append(names, "dir/"+string(rune('a'+i%26))+string(rune('a'+i/26))+".jpg")
	}
	cat := env.addCategory(t, "big", names...)

	paused, release := env.pauseIndexing(t)

	body := decode(t, env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/media", nil))
	if body["async_indexing"] != true {
		t.Fatalf("expected an async listing while indexing runs: %#v", body)
	}
	if _, ok := body["indexing_progress"]; !ok {
		t.Fatalf("expected indexing_progress at top level: %#v", body)
	}
	pagination := body["pagination"].(map[string]interface{})
	if _, ok := pagination["indexing_progress"]; ok {
		t.Fatalf("expected indexing_progress lifted out of pagination")
	}
	if pagination["has_more"] != true {
		t.Fatalf("expected has_more while indexing, got %#v", pagination)
	}

	select {
	case <-paused:
	case <-time.After(5 * time.Second):
		t.Fatal("index run never reported progress")
	}
	release()
	deadline := time.Now().Add(5 * time.Second)
	for env.media.Progress(cat.ID).Status != models.IndexStatusComplete {
		if time.Now().After(deadline) {
			t.Fatalf("index run did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
	body = decode(t, env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/media", nil))
	if _, ok := body["async_indexing"]; ok {
		t.Fatalf("expected a complete listing after indexing: %#v", body)
	}
}

func TestListMediaLastKnownIndex(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.config.Save([]byte(`{"python_config":{"SAVE_CURRENT_INDEX":true}}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	cat := env.addCategory(t, "album", "a.jpg")
	if err := env.progress.Save(cat.ID, 7); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	body := decode(t, env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/media", nil))
	if body["last_known_index"] != float64(7) {
		t.Fatalf("expected last_known_index 7, got %#v", body["last_known_index"])
	}
}

func TestListMediaSyncModeDisablesShuffle(t *testing.T) {
	env := newTestEnv(t)
	names := []string{"01.jpg", "02.jpg", "03.jpg", "04.jpg", "05.jpg", "06.jpg", "07.jpg", "08.jpg"}
	cat := env.addCategory(t, "ordered", names...)
	env.sync.Set(true)

	body := decode(t, env.do(t, http.MethodGet, "/api/categories/"+cat.ID+"/media?limit=8", nil))
	files := body["files"].([]interface{})
	for i, f := range files {
		if got := f.(map[string]interface{})["path"]; got != names[i] {
			t.Fatalf("expected sorted order in sync mode, got %v at %d", got, i)
		}
	}
}

func TestServeMedia(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "album", "sub/a.jpg", "notes.txt", ".private/x.jpg")

	w := env.do(t, http.MethodGet, "/media/"+cat.ID+"/sub/a.jpg", nil)
	if w.Code != http.StatusOK || w.Body.String() != "data" {
		t.Fatalf("expected file contents, got %d %q", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/media/"+cat.ID+"/notes.txt", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-media file, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/media/"+cat.ID+"/.private/x.jpg", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for hidden file, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/media/unknown/a.jpg", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", w.Code)
	}
}
