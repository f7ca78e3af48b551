package services

import (
	"context"
	"time"

	"closingbinder/internal/domain/models"
)

// ProjectService handles closing project business logic
type ProjectService interface {
	// CreateProject creates a new project for the user
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Project, error)

	// GetProject retrieves a project scoped to its owner
	GetProject(ctx context.Context, id, userID string) (*models.Project, error)

	// ListProjects retrieves all projects for a user
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)

	// UpdateProject applies the non-nil fields of the request
	UpdateProject(ctx context.Context, id, userID string, req *UpdateProjectRequest) (*models.Project, error)

	// DeleteProject soft-deletes a project
	DeleteProject(ctx context.Context, id, userID string) error

	// AddLogo attaches a cover-page logo at the given position (1-3)
	AddLogo(ctx context.Context, projectID, userID string, req *AddLogoRequest) (*models.Logo, error)

	// ListLogos returns a project's logos ordered by position
	ListLogos(ctx context.Context, projectID, userID string) ([]models.Logo, error)

	// RemoveLogo detaches a logo
	RemoveLogo(ctx context.Context, logoID, projectID, userID string) error
}

// CreateProjectRequest represents a project creation request
type CreateProjectRequest struct {
	UserID          string  `json:"-"`
	Title           string  `json:"title"`
	PropertyAddress *string `json:"property_address,omitempty"`
}

// UpdateProjectRequest represents a partial project update. Nil fields
// are left untouched.
type UpdateProjectRequest struct {
	Title               *string         `json:"title,omitempty"`
	PropertyAddress     *string         `json:"property_address,omitempty"`
	PropertyDescription *string         `json:"property_description,omitempty"`
	PurchasePrice       *float64        `json:"purchase_price,omitempty"`
	LoanAmount          *float64        `json:"loan_amount,omitempty"`
	ClosingDate         *time.Time      `json:"closing_date,omitempty"`
	BuyerName           *string         `json:"buyer_name,omitempty"`
	SellerName          *string         `json:"seller_name,omitempty"`
	AttorneyName        *string         `json:"attorney_name,omitempty"`
	LenderName          *string         `json:"lender_name,omitempty"`
	TitleCompanyName    *string         `json:"title_company_name,omitempty"`
	EscrowAgentName     *string         `json:"escrow_agent_name,omitempty"`
	CoverPhotoURL       *string         `json:"cover_photo_url,omitempty"`
	CoverPageData       *map[string]any `json:"cover_page_data,omitempty"`
}

// AddLogoRequest represents a logo attachment request
type AddLogoRequest struct {
	LogoURL      string `json:"logo_url"`
	LogoPosition int    `json:"logo_position"`
}
