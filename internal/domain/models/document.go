package models

import (
	"time"
)

// Document is the canonical shape for an uploaded PDF. Backend rows are
// normalized into this at the repository boundary: one display name and
// exactly one byte source (StoragePath for bucket objects, FileURL for
// externally hosted files) - downstream code never branches on field
// presence beyond the source pair.
type Document struct {
	ID          string    `json:"id" db:"id"`
	ProjectID   string    `json:"project_id" db:"project_id"`
	SectionID   *string   `json:"section_id" db:"section_id"` // NULL = unorganized
	Name        string    `json:"name" db:"name"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	StoragePath *string   `json:"storage_path,omitempty" db:"storage_path"`
	FileURL     *string   `json:"file_url,omitempty" db:"file_url"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	ContentType string    `json:"content_type" db:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// HasSource reports whether any byte source is recorded for the document.
func (d *Document) HasSource() bool {
	return (d.StoragePath != nil && *d.StoragePath != "") ||
		(d.FileURL != nil && *d.FileURL != "")
}

// Section types. Subsections nest exactly one level deep: a subsection's
// parent must be a plain section.
const (
	SectionTypeSection    = "section"
	SectionTypeSubsection = "subsection"
)

// Section is a two-level grouping for organizing documents in a project.
type Section struct {
	ID              string    `json:"id" db:"id"`
	ProjectID       string    `json:"project_id" db:"project_id"`
	Name            string    `json:"name" db:"name"`
	SectionType     string    `json:"section_type" db:"section_type"`
	ParentSectionID *string   `json:"parent_section_id" db:"parent_section_id"`
	SortOrder       int       `json:"sort_order" db:"sort_order"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
