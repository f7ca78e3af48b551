package services

import (
	"context"

	"closingbinder/internal/domain/models"
)

// SectionService handles section tree business logic
type SectionService interface {
	// CreateSection creates a section or subsection. Subsections must
	// name a parent of type section; deeper nesting is rejected.
	CreateSection(ctx context.Context, req *CreateSectionRequest) (*models.Section, error)

	// ListSections returns a project's sections ordered by sort_order
	ListSections(ctx context.Context, projectID, userID string) ([]models.Section, error)

	// UpdateSection renames and/or reorders a section
	UpdateSection(ctx context.Context, id string, req *UpdateSectionRequest) (*models.Section, error)

	// DeleteSection removes a section; its documents become unorganized
	DeleteSection(ctx context.Context, id, projectID, userID string) error
}

// CreateSectionRequest represents a section creation request
type CreateSectionRequest struct {
	ProjectID       string  `json:"project_id"`
	UserID          string  `json:"-"`
	Name            string  `json:"name"`
	SectionType     string  `json:"section_type"`
	ParentSectionID *string `json:"parent_section_id,omitempty"`
	SortOrder       *int    `json:"sort_order,omitempty"`
}

// UpdateSectionRequest represents a section update request
type UpdateSectionRequest struct {
	ProjectID string  `json:"project_id"`
	UserID    string  `json:"-"`
	Name      *string `json:"name,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
}
