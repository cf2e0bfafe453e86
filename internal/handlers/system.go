package handlers

import (
	"fmt"
	"net/http"

	"gallery/internal/utils"
	"gallery/internal/version"

	"github.com/gin-gonic/gin"
)

// NotFound is the fallback for unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
}

// Recovery turns handler panics into a JSON 500.
func Recovery(logger *utils.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if logger != nil {
			logger.Write(fmt.Sprintf("Panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// Healthz is the liveness probe.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Version reports build metadata.
func Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}
