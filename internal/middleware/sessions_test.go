package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubLock struct{ holder string }

func (s stubLock) IsAdmin(sessionID string, flagged bool) bool {
	return flagged && sessionID != "" && sessionID == s.holder
}

func TestEnsureSessionIDIssuesCookieOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnsureSessionID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := w.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, SessionIDCookie+"=") {
		t.Fatalf("expected session_id cookie, got %q", cookie)
	}
	if w.Body.String() != "" {
		t.Fatalf("expected no session id on the first request, got %q", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionIDCookie, Value: "abc"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Set-Cookie") != "" {
		t.Fatalf("expected no new cookie for known session")
	}
	if w.Body.String() != "abc" {
		t.Fatalf("expected session id abc, got %q", w.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Sessions([]byte("0123456789abcdef0123456789abcdef")))
	r.POST("/api/login-as-admin", func(c *gin.Context) {
		if err := SetAdminFlag(c, true); err != nil {
			t.Fatalf("save session: %v", err)
		}
		c.Status(http.StatusOK)
	})
	r.POST("/api/protected", RequireAdmin(stubLock{holder: "s1"}, "Administrator privileges required."), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login-as-admin", nil))
	sessionCookie := w.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/api/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionIDCookie, Value: "s1"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin flag, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionIDCookie, Value: "s1"})
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for flagged holder, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionIDCookie, Value: "s2"})
	req.AddCookie(sessionCookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for flagged non-holder, got %d", w.Code)
	}
}
