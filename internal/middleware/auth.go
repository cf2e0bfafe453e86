package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	ViewerPassExpiry = 7 * 24 * time.Hour
	ViewerCookieName = "viewer_pass"
)

// ErrIncorrectPassword is returned for a wrong session password.
var ErrIncorrectPassword = errors.New("Incorrect password.")

// ViewerClaims is the viewer pass issued after the session password was
// entered. The subject is the browser's session id.
type ViewerClaims struct {
	jwt.RegisteredClaims
}

// AuthService validates the session password and issues viewer passes.
type AuthService struct {
	secret []byte

	mu          sync.Mutex
	hash        string
	hashedFrom  string
	apiFailures map[string]*apiFailure
}

type apiFailure struct {
	count        int
	lastAttempt  time.Time
	lockoutUntil time.Time
}

// NewAuthService creates a service signing passes with secret.
func NewAuthService(secret []byte) *AuthService {
	return &AuthService{
		secret:      secret,
		apiFailures: make(map[string]*apiFailure),
	}
}

func (a *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (a *AuthService) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckSessionPassword compares candidate with the live session password.
// The live password is kept only as a bcrypt hash, recomputed when the
// configured value changes.
func (a *AuthService) CheckSessionPassword(live, candidate string) bool {
	a.mu.Lock()
	if a.hash == "" || a.hashedFrom != live {
		h, err := a.HashPassword(live)
		if err != nil {
			a.mu.Unlock()
			return false
		}
		a.hash = h
		a.hashedFrom = live
	}
	hash := a.hash
	a.mu.Unlock()
	return a.CheckPassword(candidate, hash)
}

// GenerateViewerPass signs a viewer pass for sessionID.
func (a *AuthService) GenerateViewerPass(sessionID string) (string, error) {
	now := time.Now()
	claims := ViewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ViewerPassExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateViewerPass parses and verifies a viewer pass.
func (a *AuthService) ValidateViewerPass(tokenString string) (*ViewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*ViewerClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Helper to detect if current request is effectively HTTPS (behind proxy or direct)
func requestIsSecure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); strings.EqualFold(proto, "https") {
		return true
	}
	return false
}

func forceSecureCookies() bool {
	return strings.EqualFold(os.Getenv("GALLERY_COOKIE_FORCE_SECURE"), "true")
}

func cookieShouldBeSecure(c *gin.Context) bool {
	if forceSecureCookies() {
		return true
	}
	return requestIsSecure(c)
}

// Resolve SameSite setting based on env; defaults to Lax
func resolveSameSite() http.SameSite {
	switch strings.ToLower(os.Getenv("GALLERY_COOKIE_SAMESITE")) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

// SetViewerCookie stores the viewer pass.
func SetViewerCookie(c *gin.Context, token string) {
	sameSite := resolveSameSite()
	secure := cookieShouldBeSecure(c)
	// SameSite=None requires Secure=true
	if sameSite == http.SameSiteNoneMode && !secure {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     ViewerCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   int(ViewerPassExpiry.Seconds()),
	})
}

// ClearViewerCookie removes the viewer pass.
func ClearViewerCookie(c *gin.Context) {
	sameSite := resolveSameSite()
	secure := cookieShouldBeSecure(c)
	if sameSite == http.SameSiteNoneMode && !secure {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     ViewerCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// RequireViewerPass guards media file downloads while a session password is
// configured. The pass must belong to the requesting session.
func (a *AuthService) RequireViewerPass(password func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password() == "" {
			c.Next()
			return
		}
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString, _ = c.Cookie(ViewerCookieName)
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session password required"})
			return
		}
		claims, err := a.ValidateViewerPass(tokenString)
		if err != nil || claims.Subject != SessionID(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid viewer pass"})
			return
		}
		c.Next()
	}
}

// PasswordAttempt checks the lockout state of the client before a password
// comparison. It returns the remaining lockout when the client is locked.
func (a *AuthService) PasswordAttempt(c *gin.Context) (time.Duration, bool) {
	return a.checkAPILockout(a.apiFailureKey(c))
}

// PasswordFailed records a wrong password and reports a resulting lockout.
func (a *AuthService) PasswordFailed(c *gin.Context) (time.Duration, bool) {
	return a.recordAPIFailure(a.apiFailureKey(c))
}

// PasswordSucceeded resets the client's failure count.
func (a *AuthService) PasswordSucceeded(c *gin.Context) {
	a.clearAPIFailures(a.apiFailureKey(c))
}

func (a *AuthService) apiFailureKey(c *gin.Context) string {
	return c.ClientIP()
}

func (a *AuthService) checkAPILockout(key string) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.apiFailures[key]
	if !ok {
		return 0, false
	}
	now := time.Now()
	if rec.lockoutUntil.After(now) {
		return rec.lockoutUntil.Sub(now), true
	}
	return 0, false
}

func (a *AuthService) recordAPIFailure(key string) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	rec, ok := a.apiFailures[key]
	if !ok {
		rec = &apiFailure{}
		a.apiFailures[key] = rec
	}

	if rec.lockoutUntil.After(now) {
		return rec.lockoutUntil.Sub(now), true
	}

	if now.Sub(rec.lastAttempt) > 5*time.Minute {
		rec.count = 0
	}

	rec.lastAttempt = now
	rec.count++

	if rec.count >= 5 {
		lockout := time.Duration(rec.count) * 15 * time.Second
		if lockout > 2*time.Minute {
			lockout = 2 * time.Minute
		}
		rec.lockoutUntil = now.Add(lockout)
		rec.count = 0
		return lockout, true
	}

	return 0, false
}

func (a *AuthService) clearAPIFailures(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.apiFailures, key)
}
