package models

import "time"

// Media types reported to the viewer.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// MediaFile is a single playable/viewable file inside a category.
type MediaFile struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	URL      string    `json:"url"`
	Type     string    `json:"type"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Pagination describes the slice of a listing returned for one page.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalFiles int  `json:"total_files"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
	// IndexingProgress is set while a background index run is still going.
	IndexingProgress *IndexingProgress `json:"indexing_progress,omitempty"`
}

// Indexing run states.
const (
	IndexStatusIdle     = "idle"
	IndexStatusIndexing = "indexing"
	IndexStatusComplete = "complete"
	IndexStatusError    = "error"
)

// IndexingProgress is a point-in-time snapshot of a category index run.
type IndexingProgress struct {
	CategoryID string    `json:"category_id"`
	Status     string    `json:"status"`
	Processed  int       `json:"processed"`
	// Total is an estimate taken from the previous index, 0 when unknown.
	Total      int       `json:"total,omitempty"`
	Percent    int       `json:"percent"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
