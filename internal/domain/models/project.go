package models

import (
	"time"
)

// Project is the firm-side working unit: property/transaction metadata
// plus the document pool a binder is assembled from.
type Project struct {
	ID                  string         `json:"id" db:"id"`
	UserID              string         `json:"user_id" db:"user_id"`
	Title               string         `json:"title" db:"title"`
	PropertyAddress     *string        `json:"property_address,omitempty" db:"property_address"`
	PropertyDescription *string        `json:"property_description,omitempty" db:"property_description"`
	PurchasePrice       *float64       `json:"purchase_price,omitempty" db:"purchase_price"`
	LoanAmount          *float64       `json:"loan_amount,omitempty" db:"loan_amount"`
	ClosingDate         *time.Time     `json:"closing_date,omitempty" db:"closing_date"`
	BuyerName           *string        `json:"buyer_name,omitempty" db:"buyer_name"`
	SellerName          *string        `json:"seller_name,omitempty" db:"seller_name"`
	AttorneyName        *string        `json:"attorney_name,omitempty" db:"attorney_name"`
	LenderName          *string        `json:"lender_name,omitempty" db:"lender_name"`
	TitleCompanyName    *string        `json:"title_company_name,omitempty" db:"title_company_name"`
	EscrowAgentName     *string        `json:"escrow_agent_name,omitempty" db:"escrow_agent_name"`
	CoverPhotoURL       *string        `json:"cover_photo_url,omitempty" db:"cover_photo_url"`
	CoverPageData       map[string]any `json:"cover_page_data,omitempty" db:"cover_page_data"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt           *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Logo is a firm branding image shown on the cover page.
// At most three logos render, ordered by position (1-3).
type Logo struct {
	ID           string    `json:"id" db:"id"`
	ProjectID    string    `json:"project_id" db:"project_id"`
	LogoURL      string    `json:"logo_url" db:"logo_url"`
	LogoPosition int       `json:"logo_position" db:"logo_position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
