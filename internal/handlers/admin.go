package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"gallery/internal/admin"
	"gallery/internal/middleware"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandlers implements claiming and releasing the admin role.
type AdminHandlers struct {
	lock *admin.Lock
	log  *utils.Logger
}

func NewAdminHandlers(lock *admin.Lock, logger *utils.Logger) *AdminHandlers {
	return &AdminHandlers{lock: lock, log: logger}
}

func (h *AdminHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

// ClaimAdmin gives the admin role to the calling session when it is free.
func (h *AdminHandlers) ClaimAdmin(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	err := h.lock.Claim(sessionID)
	switch {
	case errors.Is(err, admin.ErrNoSession):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "isAdmin": false, "message": err.Error()})
		return
	case errors.Is(err, admin.ErrAlreadyClaimed):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "isAdmin": false, "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "isAdmin": false, "message": err.Error()})
		return
	}
	if err := middleware.SetAdminFlag(c, true); err != nil {
		h.logf("Unable to save admin session flag: %v", err)
	}
	h.logf("Admin role claimed by session %s", sessionID)
	c.JSON(http.StatusOK, gin.H{"success": true, "isAdmin": true, "message": "Admin role claimed successfully."})
}

// AdminStatus reports the caller's role and clears a stale admin flag.
func (h *AdminHandlers) AdminStatus(c *gin.Context) {
	isAdmin, claimed, downgrade := h.lock.Status(middleware.SessionID(c), middleware.AdminFlag(c))
	if downgrade {
		if err := middleware.SetAdminFlag(c, false); err != nil {
			h.logf("Unable to clear admin session flag: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"isAdmin": isAdmin, "roleClaimedByAnyone": claimed})
}

// ReleaseAdmin gives up the role held by the calling session.
func (h *AdminHandlers) ReleaseAdmin(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	err := h.lock.Release(sessionID)
	switch {
	case errors.Is(err, admin.ErrNoSession):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	case errors.Is(err, admin.ErrNotHolder):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err := middleware.SetAdminFlag(c, false); err != nil {
		h.logf("Unable to clear admin session flag: %v", err)
	}
	h.logf("Admin role released by session %s", sessionID)
	c.JSON(http.StatusOK, gin.H{"success": true, "isAdmin": false, "message": "Admin role released."})
}
