package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionName     = "gallery_session"
	SessionIDCookie = "session_id"
	sessionMaxAge   = 30 * 24 * 60 * 60
	adminFlagKey    = "is_admin"
)

// Sessions installs the signed cookie session that carries the admin flag.
func Sessions(secret []byte) gin.HandlerFunc {
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

// EnsureSessionID issues a session_id cookie to browsers that lack one.
// Handlers read the id from the request cookie only, so a brand new
// browser is identified from its second request on.
func EnsureSessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(SessionIDCookie); err != nil || id == "" {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     SessionIDCookie,
				Value:    uuid.NewString(),
				Path:     "/",
				MaxAge:   sessionMaxAge,
				HttpOnly: true,
				Secure:   cookieShouldBeSecure(c),
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Next()
	}
}

// SessionID returns the session id sent by the browser, or "".
func SessionID(c *gin.Context) string {
	id, err := c.Cookie(SessionIDCookie)
	if err != nil {
		return ""
	}
	return id
}

// AdminFlag reports the is_admin value stored in the signed session.
func AdminFlag(c *gin.Context) bool {
	v, ok := sessions.Default(c).Get(adminFlagKey).(bool)
	return ok && v
}

// SetAdminFlag stores the is_admin value in the signed session.
func SetAdminFlag(c *gin.Context, on bool) error {
	s := sessions.Default(c)
	if on {
		s.Set(adminFlagKey, true)
	} else {
		s.Delete(adminFlagKey)
	}
	return s.Save()
}

// AdminChecker decides whether a session holds the admin role.
type AdminChecker interface {
	IsAdmin(sessionID string, flagged bool) bool
}

// IsAdmin reports whether the request comes from the admin session.
func IsAdmin(c *gin.Context, lock AdminChecker) bool {
	return lock.IsAdmin(SessionID(c), AdminFlag(c))
}

// RequireAdmin rejects requests from non-admin sessions with 403 and the
// given message.
func RequireAdmin(lock AdminChecker, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c, lock) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
			return
		}
		c.Next()
	}
}
