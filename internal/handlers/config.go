package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"gallery/internal/config"
	"gallery/internal/middleware"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// ConfigHandlers serves the configuration file and the session password check.
type ConfigHandlers struct {
	config *config.Store
	auth   *middleware.AuthService
	log    *utils.Logger
}

func NewConfigHandlers(store *config.Store, auth *middleware.AuthService, logger *utils.Logger) *ConfigHandlers {
	return &ConfigHandlers{config: store, auth: auth, log: logger}
}

func (h *ConfigHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

func (h *ConfigHandlers) passwordActive() bool {
	return h.config.Settings().SessionPassword != ""
}

// GetConfig returns the configuration document plus isPasswordProtectionActive.
// Load problems are logged and the last good configuration is served.
func (h *ConfigHandlers) GetConfig(c *gin.Context) {
	cfg, err := h.config.Load()
	if err != nil {
		h.logf("Error loading configuration for API response: %v. Serving available config.", err)
	}
	out, err := cfg.ToMap()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode configuration"})
		return
	}
	out["isPasswordProtectionActive"] = cfg.Settings.SessionPassword != ""
	c.JSON(http.StatusOK, out)
}

// SaveConfig merges and persists a configuration document.
func (h *ConfigHandlers) SaveConfig(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}
	if _, err := h.config.Save(raw); err != nil {
		h.logf("Configuration save rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logf("Configuration saved to %s", h.config.Path())
	c.JSON(http.StatusOK, gin.H{
		"message":                    "Configuration saved successfully.",
		"isPasswordProtectionActive": h.passwordActive(),
	})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// ValidateSessionPassword checks the viewer password and, on success,
// issues a viewer pass cookie bound to the browser session.
func (h *ConfigHandlers) ValidateSessionPassword(c *gin.Context) {
	live := h.config.Settings().SessionPassword
	if live == "" {
		c.JSON(http.StatusOK, gin.H{"valid": true, "message": "No password protection active."})
		return
	}

	if retryAfter, locked := h.auth.PasswordAttempt(c); locked {
		tooManyAttempts(c, int(retryAfter.Seconds()))
		return
	}

	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	if !h.auth.CheckSessionPassword(live, req.Password) {
		if retryAfter, locked := h.auth.PasswordFailed(c); locked {
			h.logf("Session password lockout for %s", c.ClientIP())
			tooManyAttempts(c, int(retryAfter.Seconds()))
			return
		}
		middleware.ClearViewerCookie(c)
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": middleware.ErrIncorrectPassword.Error()})
		return
	}

	h.auth.PasswordSucceeded(c)
	if token, err := h.auth.GenerateViewerPass(middleware.SessionID(c)); err == nil {
		middleware.SetViewerCookie(c, token)
	} else {
		h.logf("Unable to issue viewer pass: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func tooManyAttempts(c *gin.Context, retryAfter int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many incorrect password attempts",
		"retry_after": retryAfter,
	})
}
