package media

import (
	"errors"
	"fmt"
)

var (
	ErrCategoryNotFound = errors.New("Category not found")
	ErrPathNotFound     = errors.New("Category path not found")
	ErrPermission       = errors.New("Permission denied")
	ErrInvalidPage      = errors.New("Page number must be 1 or greater")
	ErrInvalidLimit     = errors.New("Limit must be greater than 0")
	ErrNoThumbnail      = errors.New("No image available for thumbnail")
)

func permissionError(path string) error {
	return fmt.Errorf("%w: cannot read %s", ErrPermission, path)
}
