// Package utils contains utility types for logging, filesystem path
// management and router port mapping used throughout the gallery server.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves and manages filesystem locations under the data directory.
type Paths struct {
	DataDir string `json:"data_dir"`
}

// NewPaths constructs Paths rooted at the specified data directory.
func NewPaths(dataDir string) *Paths {
	return &Paths{DataDir: dataDir}
}

// LogsDir returns the logs directory.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.DataDir, "logs")
}

// LogFile returns the main gallery log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "gallery.log")
}

// CategoriesFile returns the path to the category database file.
func (p *Paths) CategoriesFile() string {
	return filepath.Join(p.DataDir, "categories.json")
}

// IndexDir returns the directory holding per-category media indexes.
func (p *Paths) IndexDir() string {
	return filepath.Join(p.DataDir, "index")
}

// IndexFile returns the index file for a category.
func (p *Paths) IndexFile(categoryID string) string {
	return filepath.Join(p.IndexDir(), categoryID+".json")
}

// ThumbnailsDir returns the thumbnail cache directory.
func (p *Paths) ThumbnailsDir() string {
	return filepath.Join(p.DataDir, "thumbnails")
}

// ThumbnailFile returns the cached thumbnail path for a category.
func (p *Paths) ThumbnailFile(categoryID string) string {
	return filepath.Join(p.ThumbnailsDir(), categoryID+".jpg")
}

// ProgressDir returns the directory of the saved-progress database.
func (p *Paths) ProgressDir() string {
	return filepath.Join(p.DataDir, "progress")
}

// TunnelLogFile returns the capture file for tunnel process output.
func (p *Paths) TunnelLogFile() string {
	return filepath.Join(p.LogsDir(), "tunnel.log")
}

// Deploy creates the data directory structure (idempotent).
func (p *Paths) Deploy(logger *Logger) error {
	dirs := []struct{ path, label string }{
		{p.DataDir, "data"},
		{p.LogsDir(), "logs"},
		{p.IndexDir(), "index"},
		{p.ThumbnailsDir(), "thumbnails"},
		{p.ProgressDir(), "progress"},
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d.path, 0o755); err != nil {
			return fmt.Errorf("create %s path %s: %w", d.label, d.path, err)
		}
		if logger != nil {
			logger.Write(fmt.Sprintf("Ensured %s path: %s", d.label, d.path))
		}
	}
	return nil
}
