package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gallery/internal/models"
)

var imageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

var videoExt = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true, ".avi": true, ".m4v": true,
}

// thumbnailExt lists image formats the thumbnail encoder can decode.
var thumbnailExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
}

// MediaType classifies a file name, returning "" for unsupported files.
func MediaType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExt[ext]:
		return models.MediaTypeImage
	case videoExt[ext]:
		return models.MediaTypeVideo
	default:
		return ""
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// checkRoot reports ErrPathNotFound or ErrPermission for an unusable root.
func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrPathNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return permissionError(root)
		}
		return err
	}
	if !info.IsDir() {
		return ErrPathNotFound
	}
	f, err := os.Open(root)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return permissionError(root)
		}
		return err
	}
	return f.Close()
}

// scan walks root and calls visit for every supported media file. Hidden
// files and directories are skipped, as are unreadable subdirectories
// (reported through skipped).
func scan(ctx context.Context, root string, visit func(models.MediaFile), skipped func(path string, err error)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			if skipped != nil {
				skipped(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		kind := MediaType(d.Name())
		if kind == "" {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			if skipped != nil {
				skipped(path, infoErr)
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		visit(models.MediaFile{
			Name:     d.Name(),
			Path:     filepath.ToSlash(rel),
			Type:     kind,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
		return nil
	})
}
