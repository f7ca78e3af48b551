package service

import (
	"context"
	"log/slog"

	"closingbinder/internal/binder"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
	"closingbinder/internal/domain/services"
)

// binderService implements the BinderService interface
type binderService struct {
	engine      *binder.Engine
	projectRepo repositories.ProjectRepository
	logoRepo    repositories.LogoRepository
	sectionRepo repositories.SectionRepository
	docRepo     repositories.DocumentRepository
	logger      *slog.Logger
}

// NewBinderService creates a new binder assembly service
func NewBinderService(
	engine *binder.Engine,
	projectRepo repositories.ProjectRepository,
	logoRepo repositories.LogoRepository,
	sectionRepo repositories.SectionRepository,
	docRepo repositories.DocumentRepository,
	logger *slog.Logger,
) services.BinderService {
	return &binderService{
		engine:      engine,
		projectRepo: projectRepo,
		logoRepo:    logoRepo,
		sectionRepo: sectionRepo,
		docRepo:     docRepo,
		logger:      logger,
	}
}

// TOCPreview computes the numbered table of contents without rendering
func (s *binderService) TOCPreview(ctx context.Context, projectID, userID string) ([]models.TOCEntry, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}

	sections, err := s.sectionRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	documents, err := s.docRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return binder.BuildTOC(sections, documents), nil
}

// Assemble builds the full binder PDF for the project owner
func (s *binderService) Assemble(ctx context.Context, projectID, userID string, opts services.AssembleOptions, progress binder.ProgressFunc) (*binder.Result, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	logos, err := s.logoRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sections, err := s.sectionRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	documents, err := s.docRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Build(ctx, binder.Request{
		Project:      project,
		Logos:        logos,
		Sections:     sections,
		Documents:    documents,
		IncludeCover: opts.IncludeCover,
		IncludeTOC:   opts.IncludeTOC,
		Progress:     progress,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("binder assembled",
		"project_id", projectID,
		"pages", result.TotalPages,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// AssembleSnapshot rebuilds a published binder from its frozen table
// of contents
func (s *binderService) AssembleSnapshot(ctx context.Context, snapshot *models.ClientBinder) (*binder.Result, error) {
	// Unscoped lookup: the client reached this project via access code
	project, err := s.projectRepo.GetByID(ctx, snapshot.ProjectID, "")
	if err != nil {
		return nil, err
	}

	logos, err := s.logoRepo.ListByProject(ctx, snapshot.ProjectID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range snapshot.TableOfContentsData {
		if entry.Kind == models.TOCKindDocument && entry.DocumentID != nil {
			ids = append(ids, *entry.DocumentID)
		}
	}
	documents, err := s.docRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Page numbers are recomputed from live content; documents deleted
	// since publish become skips, matching the frozen structure as
	// closely as the surviving files allow
	entries := make([]models.TOCEntry, len(snapshot.TableOfContentsData))
	copy(entries, snapshot.TableOfContentsData)
	for i := range entries {
		entries[i].PageStart = 0
		entries[i].PageCount = 0
	}

	result, err := s.engine.Build(ctx, binder.Request{
		Project:      project,
		Logos:        logos,
		Documents:    documents,
		Entries:      entries,
		IncludeCover: true,
		IncludeTOC:   true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot binder assembled",
		"binder_id", snapshot.ID,
		"project_id", snapshot.ProjectID,
		"pages", result.TotalPages,
	)
	return result, nil
}
