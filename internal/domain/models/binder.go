package models

import (
	"time"
)

// TOC entry kinds.
const (
	TOCKindSection    = "section"
	TOCKindSubsection = "subsection"
	TOCKindDocument   = "document"
)

// TOCEntry is one numbered row of a binder's table of contents.
// A frozen slice of these is persisted on publish so the client view can
// replay the structure without the original editing session.
type TOCEntry struct {
	Number     string  `json:"number"`
	Title      string  `json:"title"`
	Kind       string  `json:"kind"`
	DocumentID *string `json:"document_id,omitempty"`
	Indent     int     `json:"indent"`
	PageStart  int     `json:"page_start,omitempty"`
	PageCount  int     `json:"page_count,omitempty"`
}

// ClientBinder is the published, read-only snapshot handed to a client
// via access code. At most one active row exists per (project, client)
// pair; republishing updates in place.
type ClientBinder struct {
	ID                  string         `json:"id" db:"id"`
	ProjectID           string         `json:"project_id" db:"project_id"`
	AccessCode          string         `json:"access_code" db:"access_code"`
	ClientEmail         string         `json:"client_email" db:"client_email"`
	Title               string         `json:"title" db:"title"`
	PropertyAddress     *string        `json:"property_address,omitempty" db:"property_address"`
	CoverPageData       map[string]any `json:"cover_page_data,omitempty" db:"cover_page_data"`
	TableOfContentsData []TOCEntry     `json:"table_of_contents_data,omitempty" db:"table_of_contents_data"`
	IsPublished         bool           `json:"is_published" db:"is_published"`
	IsActive            bool           `json:"is_active" db:"is_active"`
	ExpiresAt           *time.Time     `json:"expires_at,omitempty" db:"expires_at"`
	PasswordProtected   bool           `json:"password_protected" db:"password_protected"`
	AccessPassword      *string        `json:"-" db:"access_password"` // bcrypt hash, never serialized
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the binder's expiry, if any, has passed.
func (b *ClientBinder) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// Access-log actions.
const (
	AccessActionView             = "view"
	AccessActionDownload         = "download"
	AccessActionDocumentView     = "document_view"
	AccessActionDocumentDownload = "document_download"
)

// AccessLogEntry records a best-effort view/download event for a binder
// or one of its documents. Writes must never block or fail the user
// action they accompany.
type AccessLogEntry struct {
	ID         string    `json:"id" db:"id"`
	BinderID   string    `json:"binder_id" db:"binder_id"`
	DocumentID *string   `json:"document_id,omitempty" db:"document_id"`
	Action     string    `json:"action" db:"action"`
	RemoteAddr string    `json:"remote_addr" db:"remote_addr"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
