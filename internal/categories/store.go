// Package categories manages the persistent list of media categories.
package categories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gallery/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no category has the requested id.
	ErrNotFound = errors.New("Category not found")
	// ErrNameExists is returned when another category already uses the name.
	ErrNameExists = errors.New("A category with this name already exists")
	// ErrPathExists is returned when another category already points at the path.
	ErrPathExists = errors.New("A category for this path already exists")
	// ErrNotDirectory is returned when the path is missing or not a directory.
	ErrNotDirectory = errors.New("Path does not exist or is not a directory")
	// ErrInvalid is returned for empty names or paths.
	ErrInvalid = errors.New("Name and path are required")
)

// Store manages categories with a JSON file backend.
type Store struct {
	path       string
	mu         sync.RWMutex
	categories map[string]*models.Category
}

// NewStore initializes a category store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, categories: make(map[string]*models.Category)}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads categories from disk; a missing file is an empty store.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = make(map[string]*models.Category)
	if s.path == "" {
		return errors.New("category store path not set")
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var list []*models.Category
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	for _, c := range list {
		if c != nil && c.ID != "" {
			s.categories[c.ID] = c
		}
	}
	return nil
}

// saveLocked writes categories atomically. Caller MUST hold s.mu.
func (s *Store) saveLocked() error {
	list := s.sortedLocked()
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) sortedLocked() []models.Category {
	list := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		list = append(list, *c)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list
}

// All returns a snapshot of categories sorted by name.
func (s *Store) All() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Get returns a copy of the category by id.
func (s *Store) Get(id string) (models.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return models.Category{}, false
	}
	return *c, true
}

// Add validates and persists a new category.
func (s *Store) Add(name, path string) (models.Category, error) {
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if name == "" || path == "" {
		return models.Category{}, ErrInvalid
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.Category{}, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return models.Category{}, ErrNotDirectory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return models.Category{}, ErrNameExists
		}
		if filepath.Clean(c.Path) == abs {
			return models.Category{}, ErrPathExists
		}
	}
	c := &models.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      abs,
		CreatedAt: time.Now().UTC(),
	}
	s.categories[c.ID] = c
	if err := s.saveLocked(); err != nil {
		delete(s.categories, c.ID)
		return models.Category{}, fmt.Errorf("failed to save categories: %w", err)
	}
	return *c, nil
}

// Delete removes a category by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.categories, id)
	if err := s.saveLocked(); err != nil {
		s.categories[id] = c
		return fmt.Errorf("failed to save categories: %w", err)
	}
	return nil
}
