package handlers

import (
	"net/http"
	"testing"
)

func TestSyncToggle(t *testing.T) {
	env := newTestEnv(t)

	if decode(t, env.do(t, http.MethodGet, "/api/sync/status", nil))["enabled"] != false {
		t.Fatalf("expected sync mode off by default")
	}
	body := decode(t, env.do(t, http.MethodPost, "/api/sync/enable", nil))
	if body["enabled"] != true || body["changed"] != true {
		t.Fatalf("unexpected enable body %#v", body)
	}
	body = decode(t, env.do(t, http.MethodPost, "/api/sync/enable", nil))
	if body["changed"] != false {
		t.Fatalf("expected second enable to be a no-op")
	}
	if !env.sync.Enabled() {
		t.Fatalf("expected state enabled")
	}
	env.do(t, http.MethodPost, "/api/sync/disable", nil)
	if env.sync.Enabled() {
		t.Fatalf("expected state disabled")
	}
}
