package repositories

import (
	"context"

	"closingbinder/internal/domain/models"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create inserts a document row and fills in the generated ID
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves a document by ID; empty projectID skips scoping
	GetByID(ctx context.Context, id, projectID string) (*models.Document, error)

	// ListByProject returns all documents in a project ordered by
	// section_id, sort_order ascending
	ListByProject(ctx context.Context, projectID string) ([]models.Document, error)

	// ListByIDs returns the documents matching the given IDs, preserving
	// the order of the input slice. Missing IDs are silently omitted.
	ListByIDs(ctx context.Context, ids []string) ([]models.Document, error)

	// NextSortOrder returns the next sort_order within a (project, section)
	// scope. sectionID nil addresses the unorganized pool.
	NextSortOrder(ctx context.Context, projectID string, sectionID *string) (int, error)

	// Update persists name, section_id and sort_order changes
	Update(ctx context.Context, doc *models.Document) error

	Delete(ctx context.Context, id, projectID string) error
}

// SectionRepository defines data access operations for sections
type SectionRepository interface {
	Create(ctx context.Context, section *models.Section) error

	GetByID(ctx context.Context, id, projectID string) (*models.Section, error)

	// ListByProject returns all sections in a project ordered by
	// sort_order ascending
	ListByProject(ctx context.Context, projectID string) ([]models.Section, error)

	Update(ctx context.Context, section *models.Section) error

	// Delete removes a section; documents under it become unorganized
	// (section_id NULL) by FK policy
	Delete(ctx context.Context, id, projectID string) error
}
