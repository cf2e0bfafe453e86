package utils

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrPathEscapesRoot is returned when a user supplied path resolves outside its root.
var ErrPathEscapesRoot = errors.New("path escapes root")

// SecureJoin joins root and userPath ensuring the result remains within root.
// userPath may be relative or slash-rooted; a leading separator never takes
// over the root.
func SecureJoin(root, userPath string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("root required")
	}
	cleanRoot := filepath.Clean(root)
	if strings.TrimSpace(userPath) == "" {
		return cleanRoot, nil
	}
	up := filepath.Clean(filepath.FromSlash(userPath))
	if filepath.IsAbs(up) {
		up = strings.TrimPrefix(up, filepath.VolumeName(up))
		up = strings.TrimLeft(up, string(filepath.Separator))
	}
	candidate := filepath.Join(cleanRoot, up)
	if !IsWithinRoot(cleanRoot, candidate) {
		return "", ErrPathEscapesRoot
	}
	return candidate, nil
}

// IsWithinRoot reports whether candidate is root or lies beneath it.
func IsWithinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	rel = filepath.Clean(rel)
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
