package services

import (
	"context"
	"time"

	"closingbinder/internal/domain/models"
)

// PublishService manages published client binder snapshots and the
// access-code entry point clients use to reach them.
type PublishService interface {
	// Publish creates or refreshes the snapshot for (project, client).
	// Republishing keeps the existing access code.
	Publish(ctx context.Context, req *PublishRequest) (*models.ClientBinder, error)

	// Unpublish deactivates a snapshot without deleting it
	Unpublish(ctx context.Context, binderID, projectID, userID string) error

	// ListPublished returns a project's snapshots, newest first
	ListPublished(ctx context.Context, projectID, userID string) ([]models.ClientBinder, error)

	// ResolveByAccessCode gates client access: the snapshot must be
	// published, active and unexpired, and a protected binder requires
	// the matching password. Failed password attempts are throttled.
	ResolveByAccessCode(ctx context.Context, accessCode, password string) (*models.ClientBinder, error)

	// RecordAccess logs a best-effort view/download event; it never
	// returns an error to the caller path it instruments
	RecordAccess(ctx context.Context, binder *models.ClientBinder, entry AccessEvent)

	// ViewCount returns the tracked view counter for a binder (0 when
	// tracking is unavailable)
	ViewCount(ctx context.Context, binderID string) int64
}

// PublishRequest represents a publish or republish request
type PublishRequest struct {
	ProjectID   string     `json:"project_id"`
	UserID      string     `json:"-"`
	ClientEmail string     `json:"client_email"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Password    *string    `json:"password,omitempty"`
}

// AccessEvent describes one client access for the audit log
type AccessEvent struct {
	DocumentID *string
	Action     string
	RemoteAddr string
	UserAgent  string
}
