package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"gallery/internal/config"
	"gallery/internal/media"
	"gallery/internal/progress"
	"gallery/internal/syncmode"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// MediaHandlers lists and serves category media.
type MediaHandlers struct {
	media    *media.Service
	config   *config.Store
	sync     *syncmode.State
	progress *progress.Store
	log      *utils.Logger
}

func NewMediaHandlers(svc *media.Service, cfg *config.Store, sync *syncmode.State, prog *progress.Store, logger *utils.Logger) *MediaHandlers {
	return &MediaHandlers{media: svc, config: cfg, sync: sync, progress: prog, log: logger}
}

func (h *MediaHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

// queryInt parses an integer query parameter; missing or malformed values
// report ok=false so callers fall back to their default.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw, present := c.GetQuery(key)
	if !present {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

// ListMedia returns one page of a category listing.
func (h *MediaHandlers) ListMedia(c *gin.Context) {
	categoryID := c.Param("id")
	settings := h.config.Settings()

	page := 1
	if v, ok := queryInt(c, "page"); ok {
		page = v
	}
	limit, limitSet := queryInt(c, "limit")
	forceRefresh := strings.EqualFold(c.DefaultQuery("force_refresh", "false"), "true")

	var explicit *bool
	if raw, ok := c.GetQuery("shuffle"); ok {
		v := strings.EqualFold(raw, "true")
		explicit = &v
	}
	shuffle := h.sync.Shuffle(settings.ShuffleMedia, explicit)

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": media.ErrInvalidPage.Error()})
		return
	}
	if limitSet && limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": media.ErrInvalidLimit.Error()})
		return
	}

	result, err := h.media.ListMediaAsync(c.Request.Context(), categoryID, media.ListOptions{
		Page:         page,
		Limit:        limit,
		ForceRefresh: forceRefresh,
		Shuffle:      shuffle,
	})
	if err != nil {
		status, msg := listErrorStatus(err)
		h.logf("Listing media for category %s failed: %v", categoryID, err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	pagination := result.Pagination
	resp := gin.H{"files": result.Files}
	if result.Async {
		resp["async_indexing"] = true
		if pagination.IndexingProgress != nil {
			resp["indexing_progress"] = pagination.IndexingProgress
			pagination.IndexingProgress = nil
		}
	}
	resp["pagination"] = pagination

	if settings.SaveCurrentIndex && h.progress != nil {
		if idx, err := h.progress.Get(categoryID); err == nil {
			resp["last_known_index"] = idx
		} else if !errors.Is(err, progress.ErrNotFound) {
			h.logf("Reading saved progress for category %s: %v", categoryID, err)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func listErrorStatus(err error) (int, string) {
	msg := err.Error()
	switch {
	case errors.Is(err, media.ErrCategoryNotFound), errors.Is(err, media.ErrPathNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, media.ErrPermission):
		return http.StatusForbidden, msg
	case errors.Is(err, media.ErrInvalidPage), errors.Is(err, media.ErrInvalidLimit):
		return http.StatusBadRequest, msg
	default:
		return http.StatusInternalServerError, "Server error listing media: " + msg
	}
}

// ServeMedia streams a file from inside a category folder.
func (h *MediaHandlers) ServeMedia(c *gin.Context) {
	full, err := h.media.FilePath(c.Param("id"), c.Param("filepath"))
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrPathEscapesRoot):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid media path"})
		case errors.Is(err, media.ErrCategoryNotFound), errors.Is(err, os.ErrNotExist):
			c.JSON(http.StatusNotFound, gin.H{"error": "Media file not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to serve media file"})
		}
		return
	}
	c.File(full)
}
