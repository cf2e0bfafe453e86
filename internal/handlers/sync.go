package handlers

import (
	"net/http"

	"gallery/internal/syncmode"

	"github.com/gin-gonic/gin"
)

// SyncHandlers toggles host-led sync mode.
type SyncHandlers struct {
	state *syncmode.State
}

func NewSyncHandlers(state *syncmode.State) *SyncHandlers {
	return &SyncHandlers{state: state}
}

func (h *SyncHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.state.Enabled()})
}

func (h *SyncHandlers) Enable(c *gin.Context) {
	changed := h.state.Set(true)
	c.JSON(http.StatusOK, gin.H{"enabled": true, "changed": changed})
}

func (h *SyncHandlers) Disable(c *gin.Context) {
	changed := h.state.Set(false)
	c.JSON(http.StatusOK, gin.H{"enabled": false, "changed": changed})
}
