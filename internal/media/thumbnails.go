package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"gallery/internal/utils"
)

const (
	thumbnailSize    = 320
	thumbnailQuality = 80
)

type thumbnailer struct {
	paths *utils.Paths
	mu    sync.Mutex
}

func newThumbnailer(paths *utils.Paths) *thumbnailer {
	return &thumbnailer{paths: paths}
}

// ensure returns the cached thumbnail for a category, regenerating it when
// missing or older than src.
func (t *thumbnailer) ensure(categoryID, src string) (string, error) {
	dst := t.paths.ThumbnailFile(categoryID)

	t.mu.Lock()
	defer t.mu.Unlock()

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if dstInfo, err := os.Stat(dst); err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
		return dst, nil
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	thumb := imaging.Fit(img, thumbnailSize, thumbnailSize, imaging.Lanczos)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	// imaging.Save picks the encoder from the extension.
	tmp := filepath.Join(filepath.Dir(dst), "tmp-"+filepath.Base(dst))
	if err := imaging.Save(thumb, tmp, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (t *thumbnailer) remove(categoryID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return removeIfExists(t.paths.ThumbnailFile(categoryID))
}
