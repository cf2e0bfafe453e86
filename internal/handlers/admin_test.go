package handlers

import (
	"net/http"
	"testing"
)

func TestClaimAdminFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/admin/claim", nil)
	body := decode(t, w)
	if w.Code != http.StatusBadRequest || body["message"] != "Session not found. Please refresh." {
		t.Fatalf("expected 400 without session, got %d %#v", w.Code, body)
	}

	owner := env.claimAdmin(t, "owner")

	w = env.do(t, http.MethodPost, "/api/admin/claim", nil, sessionCookie("other"))
	body = decode(t, w)
	if w.Code != http.StatusForbidden || body["isAdmin"] != false || body["message"] != "Admin role already claimed by another user." {
		t.Fatalf("expected 403 for second claimant, got %d %#v", w.Code, body)
	}

	body = decode(t, env.do(t, http.MethodGet, "/api/admin/status", nil, owner...))
	if body["isAdmin"] != true || body["roleClaimedByAnyone"] != true {
		t.Fatalf("unexpected owner status %#v", body)
	}
	body = decode(t, env.do(t, http.MethodGet, "/api/admin/status", nil, sessionCookie("other")))
	if body["isAdmin"] != false || body["roleClaimedByAnyone"] != true {
		t.Fatalf("unexpected other status %#v", body)
	}

	// Reclaiming as the holder is allowed.
	env.claimAdmin(t, "owner")
}

func TestAdminStatusDowngradesStaleFlag(t *testing.T) {
	env := newTestEnv(t)
	owner := env.claimAdmin(t, "owner")

	// Simulates a restart: the signed cookie still says admin but the
	// lock is empty.
	if err := env.lock.Release("owner"); err != nil {
		t.Fatalf("release: %v", err)
	}
	w := env.do(t, http.MethodGet, "/api/admin/status", nil, owner...)
	body := decode(t, w)
	if body["isAdmin"] != false || body["roleClaimedByAnyone"] != false {
		t.Fatalf("expected downgrade, got %#v", body)
	}
	refreshed := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "gallery_session" {
			refreshed = true
		}
	}
	if !refreshed {
		t.Fatalf("expected the session cookie to be rewritten")
	}
}

func TestReleaseAdmin(t *testing.T) {
	env := newTestEnv(t)
	owner := env.claimAdmin(t, "owner")

	w := env.do(t, http.MethodPost, "/api/admin/release", nil, sessionCookie("other"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-holder, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/admin/release", nil, owner...)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if env.lock.Holder() != "" {
		t.Fatalf("expected lock to be free")
	}
	env.claimAdmin(t, "other")
}
