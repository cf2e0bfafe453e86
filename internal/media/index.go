package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gallery/internal/models"
)

// Index is the persisted result of a completed scan of one category.
type Index struct {
	CategoryID string             `json:"category_id"`
	Root       string             `json:"root"`
	IndexedAt  time.Time          `json:"indexed_at"`
	Files      []models.MediaFile `json:"files"`
}

// FirstImage returns the first image that thumbnails can be generated from.
func (idx *Index) FirstImage() (models.MediaFile, bool) {
	if idx == nil {
		return models.MediaFile{}, false
	}
	for _, f := range idx.Files {
		if f.Type == models.MediaTypeImage && thumbnailExt[strings.ToLower(filepath.Ext(f.Name))] {
			return f, true
		}
	}
	return models.MediaFile{}, false
}

func sortFiles(files []models.MediaFile) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := strings.ToLower(files[i].Path), strings.ToLower(files[j].Path)
		if a == b {
			return files[i].Path < files[j].Path
		}
		return a < b
	})
}

// readIndex loads an index file; a missing file returns (nil, nil).
func readIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	return &idx, nil
}

// writeIndex persists idx atomically.
func writeIndex(path string, idx *Index) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
