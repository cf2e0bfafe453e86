package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gallery/internal/categories"
	"gallery/internal/media"
	"gallery/internal/middleware"
	"gallery/internal/progress"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// CategoryHandlers manages categories and their thumbnails.
type CategoryHandlers struct {
	categories *categories.Store
	media      *media.Service
	progress   *progress.Store
	log        *utils.Logger
}

func NewCategoryHandlers(store *categories.Store, svc *media.Service, prog *progress.Store, logger *utils.Logger) *CategoryHandlers {
	return &CategoryHandlers{categories: store, media: svc, progress: prog, log: logger}
}

func (h *CategoryHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

// ListCategories returns every category with media count, thumbnail and
// indexing state.
func (h *CategoryHandlers) ListCategories(c *gin.Context) {
	details, err := h.media.CategoryDetails()
	if err != nil {
		h.logf("Error listing categories: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve categories"})
		return
	}
	c.JSON(http.StatusOK, details)
}

type addCategoryRequest struct {
	Name *string `json:"name"`
	Path *string `json:"path"`
}

// AddCategory creates a category and starts indexing it.
func (h *CategoryHandlers) AddCategory(c *gin.Context) {
	var req addCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == nil || req.Path == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and path are required"})
		return
	}
	name := middleware.SanitizeString(*req.Name)
	path := middleware.SanitizePath(*req.Path)
	if name == "" || path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and path are required"})
		return
	}

	cat, err := h.categories.Add(name, path)
	if err != nil {
		msg := err.Error()
		status := http.StatusInternalServerError
		if strings.Contains(msg, "exists") || strings.Contains(msg, "not a directory") || errors.Is(err, categories.ErrInvalid) {
			status = http.StatusBadRequest
		}
		h.logf("Adding category %q (%s) failed: %v", name, path, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	h.logf("Category added: %s (%s)", cat.Name, cat.Path)
	h.media.StartIndexing(cat)
	c.JSON(http.StatusCreated, cat)
}

// DeleteCategory removes a category and everything derived from it.
func (h *CategoryHandlers) DeleteCategory(c *gin.Context) {
	id := c.Param("id")
	if err := h.categories.Delete(id); err != nil {
		if errors.Is(err, categories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logf("Deleting category %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.media.Clear(id); err != nil {
		h.logf("Clearing media state for category %s: %v", id, err)
	}
	if h.progress != nil {
		if err := h.progress.Delete(id); err != nil {
			h.logf("Clearing saved progress for category %s: %v", id, err)
		}
	}
	h.logf("Category deleted: %s", id)
	c.Status(http.StatusNoContent)
}

// CategoryThumbnail serves the cached JPEG thumbnail of a category.
func (h *CategoryHandlers) CategoryThumbnail(c *gin.Context) {
	path, err := h.media.Thumbnail(c.Param("id"))
	if err != nil {
		if errors.Is(err, media.ErrCategoryNotFound) || errors.Is(err, media.ErrNoThumbnail) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logf("Thumbnail for category %s failed: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate thumbnail"})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.File(path)
}
