// Package models holds the JSON records shared between the gallery stores,
// services and HTTP handlers.
package models

import "time"

// Category is a named, path-backed grouping of media files.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryDetails is a Category decorated for the category list view.
type CategoryDetails struct {
	Category
	MediaCount   int     `json:"mediaCount"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	Indexing     bool    `json:"indexing"`
}
