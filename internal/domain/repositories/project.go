package repositories

import (
	"context"

	"closingbinder/internal/domain/models"
)

// ProjectRepository defines data access operations for projects
type ProjectRepository interface {
	// Create creates a new project and fills in generated ID and timestamps
	Create(ctx context.Context, project *models.Project) error

	// GetByID retrieves a project by ID, scoped to its owning user.
	// An empty userID skips the ownership filter (client-binder resolution).
	GetByID(ctx context.Context, id, userID string) (*models.Project, error)

	// List retrieves all projects for a user, ordered by updated_at DESC
	List(ctx context.Context, userID string) ([]models.Project, error)

	// Update persists mutable project fields and bumps updated_at
	Update(ctx context.Context, project *models.Project) error

	// Delete soft-deletes a project by setting deleted_at
	Delete(ctx context.Context, id, userID string) error
}

// LogoRepository defines data access operations for cover-page logos
type LogoRepository interface {
	Create(ctx context.Context, logo *models.Logo) error

	// ListByProject returns logos ordered by position ascending
	ListByProject(ctx context.Context, projectID string) ([]models.Logo, error)

	Delete(ctx context.Context, id, projectID string) error
}
