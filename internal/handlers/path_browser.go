package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gallery/internal/media"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

const maxPathEntries = 750

type folderEntry struct {
	Name       string `json:"name"`
	RelPath    string `json:"relPath"`
	FullPath   string `json:"fullPath"`
	IsSymlink  bool   `json:"isSymlink,omitempty"`
	MediaFiles int    `json:"mediaFiles"`
}

type folderCrumb struct {
	Label   string `json:"label"`
	RelPath string `json:"relPath"`
}

type folderListing struct {
	RootPath       string        `json:"rootPath"`
	RootName       string        `json:"rootName"`
	CurrentPath    string        `json:"currentPath"`
	CurrentRelPath string        `json:"currentRelPath"`
	ParentRelPath  string        `json:"parentRelPath,omitempty"`
	Breadcrumbs    []folderCrumb `json:"breadcrumbs"`
	Entries        []folderEntry `json:"entries"`
	MediaFiles     int           `json:"mediaFiles"`
	LimitHit       bool          `json:"limitHit"`
}

// ListFolders lists the sub-directories of a folder under BROWSE_ROOT so
// headless installs can pick a category path without a native dialog.
// Query param path is relative to the root (absolute paths inside the root
// are accepted too).
func (h *BrowseHandlers) ListFolders(c *gin.Context) {
	rootPath := strings.TrimSpace(h.config.Settings().BrowseRoot)
	if rootPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Browse root not configured"})
		return
	}
	rootAbs, err := filepath.Abs(rootPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to resolve browse root"})
		return
	}
	rootAbs = filepath.Clean(rootAbs)

	target := rootAbs
	if requested := strings.TrimSpace(c.Query("path")); requested != "" {
		candidate := requested
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(rootAbs, candidate)
		}
		candidate = filepath.Clean(candidate)
		if !utils.IsWithinRoot(rootAbs, candidate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Path must be inside the browse root"})
			return
		}
		target = candidate
	}

	info, err := os.Stat(target)
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "Directory does not exist"})
		return
	case errors.Is(err, os.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to inspect path"})
		return
	case !info.IsDir():
		c.JSON(http.StatusBadRequest, gin.H{"error": "Target is not a directory"})
		return
	}

	listing, err := os.ReadDir(target)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to list directory"})
		return
	}

	resp := folderListing{
		RootPath:    filepath.ToSlash(rootAbs),
		RootName:    rootLabel(rootAbs),
		CurrentPath: filepath.ToSlash(target),
		Breadcrumbs: folderCrumbs(rootAbs, target),
		Entries:     make([]folderEntry, 0, len(listing)),
	}
	resp.CurrentRelPath = relSlash(rootAbs, target)
	resp.ParentRelPath = parentRel(resp.CurrentRelPath)

	for _, entry := range listing {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(target, name)
		isSymlink := entry.Type()&os.ModeSymlink != 0
		isDir := entry.IsDir()
		if isSymlink {
			st, err := os.Stat(full)
			if err != nil {
				continue
			}
			isDir = st.IsDir()
		}
		if !isDir {
			if media.MediaType(name) != "" {
				resp.MediaFiles++
			}
			continue
		}
		resp.Entries = append(resp.Entries, folderEntry{
			Name:      name,
			RelPath:   relSlash(rootAbs, full),
			FullPath:  filepath.ToSlash(full),
			IsSymlink: isSymlink,
		})
	}

	sort.SliceStable(resp.Entries, func(i, j int) bool {
		return strings.ToLower(resp.Entries[i].Name) < strings.ToLower(resp.Entries[j].Name)
	})
	if len(resp.Entries) > maxPathEntries {
		resp.Entries = resp.Entries[:maxPathEntries]
		resp.LimitHit = true
	}
	c.JSON(http.StatusOK, resp)
}

func rootLabel(root string) string {
	name := filepath.Base(root)
	if name == "." || name == "" || name == string(filepath.Separator) {
		return "Root"
	}
	return name
}

func relSlash(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func parentRel(rel string) string {
	rel = strings.Trim(rel, "/")
	if i := strings.LastIndex(rel, "/"); i > 0 {
		return rel[:i]
	}
	return ""
}

func folderCrumbs(root, target string) []folderCrumb {
	crumbs := []folderCrumb{{Label: rootLabel(root)}}
	rel := relSlash(root, target)
	if rel == "" {
		return crumbs
	}
	var accum string
	for _, part := range strings.Split(rel, "/") {
		if part == "" {
			continue
		}
		if accum == "" {
			accum = part
		} else {
			accum += "/" + part
		}
		crumbs = append(crumbs, folderCrumb{Label: part, RelPath: accum})
	}
	return crumbs
}
