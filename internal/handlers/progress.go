package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"gallery/internal/config"
	"gallery/internal/media"
	"gallery/internal/middleware"
	"gallery/internal/progress"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// ProgressHandlers manages the saved viewing position per category.
type ProgressHandlers struct {
	store  *progress.Store
	config *config.Store
	media  *media.Service
	log    *utils.Logger
}

func NewProgressHandlers(store *progress.Store, cfg *config.Store, svc *media.Service, logger *utils.Logger) *ProgressHandlers {
	return &ProgressHandlers{store: store, config: cfg, media: svc, log: logger}
}

func (h *ProgressHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

// DeleteAll forgets every saved position and shuffle order.
func (h *ProgressHandlers) DeleteAll(c *gin.Context) {
	n, err := h.store.DeleteAll()
	if err != nil {
		h.logf("Deleting saved progress failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete progress: " + err.Error()})
		return
	}
	if h.media != nil {
		h.media.ClearSessionTracker("")
	}
	h.logf("Deleted saved progress for %d categories", n)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Deleted saved progress for %d categories.", n)})
}

type saveProgressRequest struct {
	Index *int `json:"index" validate:"required"`
}

// SaveProgress stores the viewing index for a category.
func (h *ProgressHandlers) SaveProgress(c *gin.Context) {
	if !h.config.Settings().SaveCurrentIndex {
		c.JSON(http.StatusConflict, gin.H{"error": "Saving the current index is disabled"})
		return
	}
	var req saveProgressRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	err := h.store.Save(c.Param("id"), *req.Index)
	if errors.Is(err, progress.ErrInvalidIndex) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logf("Saving progress for category %s failed: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": *req.Index})
}

// GetProgress returns the saved viewing index for a category.
func (h *ProgressHandlers) GetProgress(c *gin.Context) {
	idx, err := h.store.Get(c.Param("id"))
	if errors.Is(err, progress.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No saved progress"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": idx})
}
