package models

import "time"

// Pdf describes one uploaded drawing attached to a project. The binary
// itself lives in object storage; FileURL is its locator there. A Pdf row
// never outlives its project (FK cascade).
type Pdf struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	FileURL     string `json:"fileUrl"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
	// Level is a free-text floor/level label, e.g. "Level 2".
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
}
