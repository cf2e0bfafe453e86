// Package media enumerates category folders, keeps a per-category index of
// media files and serves paginated, optionally shuffled listings. Large
// folders are indexed in the background while callers poll for progress.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gallery/internal/config"
	"gallery/internal/models"
	"gallery/internal/utils"
)

const defaultPageSize = 10

// CategorySource resolves categories by id.
type CategorySource interface {
	Get(id string) (models.Category, bool)
	All() []models.Category
}

// SettingsSource exposes the live server settings.
type SettingsSource interface {
	Settings() config.Settings
}

// ListOptions are the caller-controlled listing parameters. A zero Limit
// selects the configured page size.
type ListOptions struct {
	Page         int
	Limit        int
	ForceRefresh bool
	Shuffle      bool
}

// ListResult is one page of a category listing. Async is true when the
// page was cut from a still-running index.
type ListResult struct {
	Files      []models.MediaFile
	Pagination models.Pagination
	Async      bool
}

// Service is the media listing facade used by the HTTP handlers.
type Service struct {
	categories CategorySource
	settings   SettingsSource
	indexer    *Indexer
	tracker    *shuffleTracker
	thumbs     *thumbnailer
	log        *utils.Logger
}

// NewService wires a media service.
func NewService(categories CategorySource, settings SettingsSource, indexer *Indexer, paths *utils.Paths, logger *utils.Logger) *Service {
	return &Service{
		categories: categories,
		settings:   settings,
		indexer:    indexer,
		tracker:    newShuffleTracker(),
		thumbs:     newThumbnailer(paths),
		log:        logger,
	}
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Write(fmt.Sprintf(format, args...))
	}
}

func (s *Service) pageSize() int {
	if s.settings == nil {
		return defaultPageSize
	}
	if n := s.settings.Settings().MediaPageSize; n > 0 {
		return n
	}
	return defaultPageSize
}

func (s *Service) syncWindow() time.Duration {
	if s.settings == nil {
		return 0
	}
	return time.Duration(s.settings.Settings().IndexSyncWindowMS) * time.Millisecond
}

// ListMediaAsync returns one page of a category listing. A complete index
// is paginated directly. Otherwise an index run is started (or joined) and
// awaited for the configured sync window; when it does not finish in time
// the files discovered so far are returned with Async set and the run's
// progress attached to the pagination.
func (s *Service) ListMediaAsync(ctx context.Context, categoryID string, opts ListOptions) (ListResult, error) {
	if opts.Page < 1 {
		return ListResult{}, ErrInvalidPage
	}
	if opts.Limit < 0 {
		return ListResult{}, ErrInvalidLimit
	}
	if opts.Limit == 0 {
		opts.Limit = s.pageSize()
	}
	cat, ok := s.categories.Get(categoryID)
	if !ok {
		return ListResult{}, ErrCategoryNotFound
	}
	if err := checkRoot(cat.Path); err != nil {
		return ListResult{}, err
	}

	if opts.ForceRefresh {
		s.logf("Force refresh requested for category %s", cat.Name)
		s.tracker.clear(cat.ID)
		if err := s.indexer.Forget(cat.ID); err != nil {
			s.logf("Unable to drop index for category %s: %v", cat.Name, err)
		}
	}

	idx, err := s.indexer.Index(cat.ID)
	if err != nil {
		s.logf("Ignoring unreadable index for category %s: %v", cat.Name, err)
		idx = nil
	}
	if idx != nil {
		return s.completePage(cat, idx, opts), nil
	}

	done := s.indexer.Start(cat)
	if window := s.syncWindow(); window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
		case <-ctx.Done():
			return ListResult{}, ctx.Err()
		}
	}

	select {
	case <-done:
		idx, err = s.indexer.Index(cat.ID)
		if err != nil {
			return ListResult{}, err
		}
		if idx == nil {
			p := s.indexer.Progress(cat.ID)
			if p.Status == models.IndexStatusError {
				return ListResult{}, fmt.Errorf("indexing failed: %s", p.Error)
			}
			if !s.indexer.Running(cat.ID) {
				return ListResult{}, errors.New("indexing did not produce an index")
			}
			return s.partialPage(cat, opts), nil
		}
		return s.completePage(cat, idx, opts), nil
	default:
		return s.partialPage(cat, opts), nil
	}
}

func (s *Service) completePage(cat models.Category, idx *Index, opts ListOptions) ListResult {
	total := len(idx.Files)
	start, end, pagination := paginate(total, opts.Page, opts.Limit)
	files := make([]models.MediaFile, 0, end-start)
	if opts.Shuffle {
		perm := s.tracker.order(cat.ID, total, idx.IndexedAt)
		for _, i := range perm[start:end] {
			files = append(files, idx.Files[i])
		}
	} else {
		files = append(files, idx.Files[start:end]...)
	}
	withURLs(cat.ID, files)
	return ListResult{Files: files, Pagination: pagination}
}

func (s *Service) partialPage(cat models.Category, opts ListOptions) ListResult {
	discovered := s.indexer.Partial(cat.ID)
	start, end, pagination := paginate(len(discovered), opts.Page, opts.Limit)
	files := make([]models.MediaFile, 0, end-start)
	files = append(files, discovered[start:end]...)
	withURLs(cat.ID, files)
	progress := s.indexer.Progress(cat.ID)
	pagination.IndexingProgress = &progress
	pagination.HasMore = true
	return ListResult{Files: files, Pagination: pagination, Async: true}
}

// paginate computes the [start,end) window for page and the matching
// pagination record. Pages past the end produce an empty window.
func paginate(total, page, limit int) (int, int, models.Pagination) {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end, models.Pagination{
		Page:       page,
		Limit:      limit,
		TotalFiles: total,
		TotalPages: totalPages,
		HasMore:    end < total,
	}
}

// MediaURL builds the URL a file in a category is served from.
func MediaURL(categoryID, relPath string) string {
	parts := strings.Split(relPath, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/media/" + url.PathEscape(categoryID) + "/" + strings.Join(parts, "/")
}

func withURLs(categoryID string, files []models.MediaFile) {
	for i := range files {
		files[i].URL = MediaURL(categoryID, files[i].Path)
	}
}

// StartIndexing begins a background index run for a category.
func (s *Service) StartIndexing(cat models.Category) {
	s.indexer.Start(cat)
}

// Progress returns the index progress for a category.
func (s *Service) Progress(categoryID string) models.IndexingProgress {
	return s.indexer.Progress(categoryID)
}

// ClearSessionTracker drops the remembered shuffle order for a category, or
// for every category when categoryID is empty.
func (s *Service) ClearSessionTracker(categoryID string) {
	s.tracker.clear(categoryID)
}

// Clear removes all derived state of a deleted category.
func (s *Service) Clear(categoryID string) error {
	s.tracker.clear(categoryID)
	err := s.indexer.Forget(categoryID)
	if terr := s.thumbs.remove(categoryID); terr != nil && err == nil {
		err = terr
	}
	return err
}

// CategoryDetails returns every category with its media count, thumbnail
// URL and indexing state.
func (s *Service) CategoryDetails() ([]models.CategoryDetails, error) {
	cats := s.categories.All()
	out := make([]models.CategoryDetails, 0, len(cats))
	for _, c := range cats {
		d := models.CategoryDetails{Category: c}
		if s.indexer.Running(c.ID) {
			d.Indexing = true
			d.MediaCount = s.indexer.Progress(c.ID).Processed
		}
		idx, err := s.indexer.Index(c.ID)
		if err != nil {
			s.logf("Ignoring unreadable index for category %s: %v", c.Name, err)
			idx = nil
		}
		if idx != nil {
			if !d.Indexing {
				d.MediaCount = len(idx.Files)
			}
			if _, ok := idx.FirstImage(); ok {
				u := "/api/categories/" + url.PathEscape(c.ID) + "/thumbnail"
				d.ThumbnailURL = &u
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// Thumbnail returns the path of a cached JPEG thumbnail for the category,
// generating it from the first decodable image when needed.
func (s *Service) Thumbnail(categoryID string) (string, error) {
	cat, ok := s.categories.Get(categoryID)
	if !ok {
		return "", ErrCategoryNotFound
	}
	idx, err := s.indexer.Index(cat.ID)
	if err != nil {
		return "", err
	}
	first, ok := idx.FirstImage()
	if !ok {
		return "", ErrNoThumbnail
	}
	src, err := utils.SecureJoin(cat.Path, first.Path)
	if err != nil {
		return "", err
	}
	return s.thumbs.ensure(cat.ID, src)
}

// FilePath resolves a media file inside a category for serving. Hidden
// entries are not served and symlinks must resolve inside the category.
func (s *Service) FilePath(categoryID, relPath string) (string, error) {
	cat, ok := s.categories.Get(categoryID)
	if !ok {
		return "", ErrCategoryNotFound
	}
	full, err := utils.SecureJoin(cat.Path, strings.TrimPrefix(relPath, "/"))
	if err != nil {
		return "", err
	}
	if rel, err := filepath.Rel(filepath.Clean(cat.Path), full); err == nil {
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if part != "." && isHidden(part) {
				return "", os.ErrNotExist
			}
		}
	}
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", os.ErrNotExist
	}
	root, err := filepath.EvalSymlinks(cat.Path)
	if err != nil {
		return "", os.ErrNotExist
	}
	if !utils.IsWithinRoot(root, resolved) {
		return "", utils.ErrPathEscapesRoot
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() || MediaType(full) == "" {
		return "", os.ErrNotExist
	}
	return full, nil
}
