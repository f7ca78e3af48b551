package services

import (
	"context"

	"closingbinder/internal/domain/models"
	"closingbinder/internal/httputil"
)

// DocumentService handles document metadata business logic. Byte
// uploads go through the upload queue, not this service.
type DocumentService interface {
	// GetDocument retrieves a document scoped to a project
	GetDocument(ctx context.Context, id, projectID, userID string) (*models.Document, error)

	// ListDocuments returns a project's documents ordered by section
	// and sort_order
	ListDocuments(ctx context.Context, projectID, userID string) ([]models.Document, error)

	// UpdateDocument renames a document and/or moves it between
	// sections. Moving appends to the destination scope.
	UpdateDocument(ctx context.Context, id string, req *UpdateDocumentRequest) (*models.Document, error)

	// ReorderDocuments rewrites sort_order within one section scope to
	// match the given ID order
	ReorderDocuments(ctx context.Context, req *ReorderDocumentsRequest) error

	// DeleteDocument removes the metadata row and best-effort removes
	// the stored object
	DeleteDocument(ctx context.Context, id, projectID, userID string) error

	// ResolveURL returns a short-lived download URL for a document
	ResolveURL(ctx context.Context, doc *models.Document) (string, error)
}

// UpdateDocumentRequest represents a document update request
type UpdateDocumentRequest struct {
	ProjectID string            `json:"project_id"`
	UserID    string            `json:"-"`
	Name      *string                 `json:"name,omitempty"`
	SectionID httputil.OptionalString `json:"section_id,omitempty"`
}

// ReorderDocumentsRequest rewrites ordering within a single section
// scope. SectionID nil addresses the unorganized pool.
type ReorderDocumentsRequest struct {
	ProjectID   string   `json:"project_id"`
	UserID      string   `json:"-"`
	SectionID   *string  `json:"section_id,omitempty"`
	DocumentIDs []string `json:"document_ids"`
}
