package repositories

import (
	"context"

	"closingbinder/internal/domain/models"
)

// BinderRepository defines data access operations for published client binders
type BinderRepository interface {
	// Create inserts a binder snapshot and fills in the generated ID
	Create(ctx context.Context, binder *models.ClientBinder) error

	// GetByProjectAndClient returns the existing snapshot for a
	// (project, client) pair, or domain.ErrNotFound
	GetByProjectAndClient(ctx context.Context, projectID, clientEmail string) (*models.ClientBinder, error)

	// GetByAccessCode returns the snapshot for an access code regardless
	// of published/active state; gating is the service's concern
	GetByAccessCode(ctx context.Context, accessCode string) (*models.ClientBinder, error)

	// ListByProject returns all snapshots for a project, newest first
	ListByProject(ctx context.Context, projectID string) ([]models.ClientBinder, error)

	// Update persists snapshot fields in place (republish, unpublish)
	Update(ctx context.Context, binder *models.ClientBinder) error

	// Delete hard-deletes a snapshot
	Delete(ctx context.Context, id string) error
}

// AccessLogRepository records binder/document access events
type AccessLogRepository interface {
	Record(ctx context.Context, entry *models.AccessLogEntry) error
}
