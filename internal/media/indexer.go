package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gallery/internal/models"
	"gallery/internal/utils"
)

// progressBatch is how many discovered files pass between progress updates.
const progressBatch = 200

type indexRun struct {
	cancel   context.CancelFunc
	done     chan struct{}
	files    []models.MediaFile
	progress models.IndexingProgress
}

// Indexer runs background category scans, at most one per category, and
// caches completed indexes in memory.
type Indexer struct {
	paths *utils.Paths
	log   *utils.Logger
	base  context.Context

	mu       sync.RWMutex
	runs     map[string]*indexRun
	cache    map[string]*Index
	finished map[string]models.IndexingProgress
	notify   func(models.IndexingProgress)
}

// NewIndexer creates an indexer whose runs are cancelled when ctx ends.
func NewIndexer(ctx context.Context, paths *utils.Paths, logger *utils.Logger) *Indexer {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Indexer{
		paths:    paths,
		log:      logger,
		base:     ctx,
		runs:     make(map[string]*indexRun),
		cache:    make(map[string]*Index),
		finished: make(map[string]models.IndexingProgress),
	}
}

// OnProgress registers a callback receiving every progress change.
func (ix *Indexer) OnProgress(fn func(models.IndexingProgress)) {
	ix.mu.Lock()
	ix.notify = fn
	ix.mu.Unlock()
}

func (ix *Indexer) logf(format string, args ...interface{}) {
	if ix.log != nil {
		ix.log.Write(fmt.Sprintf(format, args...))
	}
}

func (ix *Indexer) publish(p models.IndexingProgress) {
	ix.mu.RLock()
	fn := ix.notify
	ix.mu.RUnlock()
	if fn != nil {
		fn(p)
	}
}

// Start begins indexing cat unless a run is already active, in which case
// the active run is joined. The returned channel closes when the run ends.
func (ix *Indexer) Start(cat models.Category) <-chan struct{} {
	ix.mu.Lock()
	if r, ok := ix.runs[cat.ID]; ok {
		ix.mu.Unlock()
		return r.done
	}
	estimate := 0
	if idx, ok := ix.cache[cat.ID]; ok && idx != nil {
		estimate = len(idx.Files)
	}
	ctx, cancel := context.WithCancel(ix.base)
	now := time.Now().UTC()
	r := &indexRun{
		cancel: cancel,
		done:   make(chan struct{}),
		progress: models.IndexingProgress{
			CategoryID: cat.ID,
			Status:     models.IndexStatusIndexing,
			Total:      estimate,
			StartedAt:  now,
			UpdatedAt:  now,
		},
	}
	ix.runs[cat.ID] = r
	delete(ix.finished, cat.ID)
	begin := r.progress
	ix.mu.Unlock()

	ix.logf("Indexing started for category %s (%s)", cat.Name, cat.Path)
	ix.publish(begin)
	go ix.run(ctx, cat, r)
	return r.done
}

func (ix *Indexer) run(ctx context.Context, cat models.Category, r *indexRun) {
	defer close(r.done)
	defer r.cancel()
	started := time.Now()

	err := checkRoot(cat.Path)
	if err == nil {
		err = scan(ctx, cat.Path, func(f models.MediaFile) {
			ix.mu.Lock()
			r.files = append(r.files, f)
			n := len(r.files)
			var snap models.IndexingProgress
			if n%progressBatch == 0 {
				ix.progressUpdateLocked(r, n)
				snap = r.progress
			}
			ix.mu.Unlock()
			if snap.CategoryID != "" {
				ix.publish(snap)
			}
		}, func(path string, err error) {
			ix.logf("Indexing skipped %s: %v", path, err)
		})
	}
	indexDuration.Observe(time.Since(started).Seconds())

	ix.mu.Lock()
	if ix.runs[cat.ID] != r {
		// Forgotten while running; discard results.
		ix.mu.Unlock()
		indexRunsTotal.WithLabelValues("cancelled").Inc()
		return
	}
	delete(ix.runs, cat.ID)
	if err != nil {
		ix.progressCompleteLocked(r, err)
		ix.finished[cat.ID] = r.progress
		snap := r.progress
		ix.mu.Unlock()
		indexRunsTotal.WithLabelValues("error").Inc()
		ix.logf("Indexing failed for category %s: %v", cat.Name, err)
		ix.publish(snap)
		return
	}

	files := make([]models.MediaFile, len(r.files))
	copy(files, r.files)
	sortFiles(files)
	idx := &Index{CategoryID: cat.ID, Root: cat.Path, IndexedAt: time.Now().UTC(), Files: files}
	if werr := writeIndex(ix.paths.IndexFile(cat.ID), idx); werr != nil {
		ix.logf("Unable to persist index for category %s: %v", cat.Name, werr)
	}
	ix.cache[cat.ID] = idx
	ix.progressCompleteLocked(r, nil)
	ix.finished[cat.ID] = r.progress
	snap := r.progress
	ix.mu.Unlock()

	indexRunsTotal.WithLabelValues("complete").Inc()
	indexedFilesTotal.Add(float64(len(files)))
	ix.logf("Indexing completed for category %s: %d files in %s", cat.Name, len(files), time.Since(started).Round(time.Millisecond))
	ix.publish(snap)
}

func (ix *Indexer) progressUpdateLocked(r *indexRun, processed int) {
	r.progress.Processed = processed
	if r.progress.Total > 0 && processed > r.progress.Total {
		r.progress.Total = processed
	}
	r.progress.Percent = calculatePercent(processed, r.progress.Total)
	r.progress.UpdatedAt = time.Now().UTC()
}

func (ix *Indexer) progressCompleteLocked(r *indexRun, err error) {
	r.progress.Processed = len(r.files)
	r.progress.UpdatedAt = time.Now().UTC()
	if err != nil {
		r.progress.Status = models.IndexStatusError
		r.progress.Error = err.Error()
		return
	}
	r.progress.Status = models.IndexStatusComplete
	r.progress.Total = len(r.files)
	r.progress.Percent = 100
	r.progress.Error = ""
}

// calculatePercent returns 0 while the total is unknown.
func calculatePercent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	percent := processed * 100 / total
	if percent < 0 {
		return 0
	}
	if percent > 99 {
		// 100 is reserved for a completed run.
		return 99
	}
	return percent
}

// Running reports whether a scan is active for the category.
func (ix *Indexer) Running(categoryID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.runs[categoryID]
	return ok
}

// Progress returns the current progress snapshot for a category.
func (ix *Indexer) Progress(categoryID string) models.IndexingProgress {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if r, ok := ix.runs[categoryID]; ok {
		return r.progress
	}
	if p, ok := ix.finished[categoryID]; ok {
		return p
	}
	if idx, ok := ix.cache[categoryID]; ok && idx != nil {
		return models.IndexingProgress{
			CategoryID: categoryID,
			Status:     models.IndexStatusComplete,
			Processed:  len(idx.Files),
			Total:      len(idx.Files),
			Percent:    100,
			UpdatedAt:  idx.IndexedAt,
		}
	}
	return models.IndexingProgress{CategoryID: categoryID, Status: models.IndexStatusIdle}
}

// Partial returns a sorted copy of the files discovered so far by an active run.
func (ix *Indexer) Partial(categoryID string) []models.MediaFile {
	ix.mu.RLock()
	r, ok := ix.runs[categoryID]
	var files []models.MediaFile
	if ok {
		files = make([]models.MediaFile, len(r.files))
		copy(files, r.files)
	}
	ix.mu.RUnlock()
	sortFiles(files)
	return files
}

// Index returns the completed index for a category from memory or disk;
// (nil, nil) means the category has never been indexed.
func (ix *Indexer) Index(categoryID string) (*Index, error) {
	ix.mu.RLock()
	idx, ok := ix.cache[categoryID]
	ix.mu.RUnlock()
	if ok {
		return idx, nil
	}
	loaded, err := readIndex(ix.paths.IndexFile(categoryID))
	if err != nil || loaded == nil {
		return nil, err
	}
	ix.mu.Lock()
	if _, running := ix.runs[categoryID]; !running {
		ix.cache[categoryID] = loaded
	}
	ix.mu.Unlock()
	return loaded, nil
}

// Forget cancels any active run and drops the cached and persisted index.
func (ix *Indexer) Forget(categoryID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if r, ok := ix.runs[categoryID]; ok {
		r.cancel()
		delete(ix.runs, categoryID)
	}
	delete(ix.cache, categoryID)
	delete(ix.finished, categoryID)
	return removeIfExists(ix.paths.IndexFile(categoryID))
}
