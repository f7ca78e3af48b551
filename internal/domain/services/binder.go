package services

import (
	"context"

	"closingbinder/internal/binder"
	"closingbinder/internal/domain/models"
)

// BinderService assembles complete binder PDFs and TOC previews from
// project state.
type BinderService interface {
	// TOCPreview computes the numbered table of contents from current
	// project structure without rendering any PDF
	TOCPreview(ctx context.Context, projectID, userID string) ([]models.TOCEntry, error)

	// Assemble builds the full binder PDF for the project owner.
	// progress may be nil.
	Assemble(ctx context.Context, projectID, userID string, opts AssembleOptions, progress binder.ProgressFunc) (*binder.Result, error)

	// AssembleSnapshot rebuilds a published binder from its frozen
	// table of contents, for client downloads
	AssembleSnapshot(ctx context.Context, snapshot *models.ClientBinder) (*binder.Result, error)
}

// AssembleOptions tunes one binder build.
type AssembleOptions struct {
	IncludeCover bool `json:"include_cover"`
	IncludeTOC   bool `json:"include_toc"`
}

// DefaultAssembleOptions includes everything.
func DefaultAssembleOptions() AssembleOptions {
	return AssembleOptions{IncludeCover: true, IncludeTOC: true}
}
