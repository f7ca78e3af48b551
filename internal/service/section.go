package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"closingbinder/internal/config"
	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
	"closingbinder/internal/domain/services"
)

// sectionService implements the SectionService interface
type sectionService struct {
	sectionRepo repositories.SectionRepository
	projectRepo repositories.ProjectRepository
	logger      *slog.Logger
}

// NewSectionService creates a new section service
func NewSectionService(
	sectionRepo repositories.SectionRepository,
	projectRepo repositories.ProjectRepository,
	logger *slog.Logger,
) services.SectionService {
	return &sectionService{
		sectionRepo: sectionRepo,
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// CreateSection creates a section or subsection
func (s *sectionService) CreateSection(ctx context.Context, req *services.CreateSectionRequest) (*models.Section, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID, req.UserID); err != nil {
		return nil, err
	}

	if req.SectionType == models.SectionTypeSubsection {
		if req.ParentSectionID == nil {
			return nil, fmt.Errorf("%w: subsection requires a parent section", domain.ErrValidation)
		}
		parent, err := s.sectionRepo.GetByID(ctx, *req.ParentSectionID, req.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent section: %w", err)
		}
		// Two levels only: a subsection cannot parent another subsection
		if parent.SectionType != models.SectionTypeSection {
			return nil, fmt.Errorf("%w: subsections cannot be nested", domain.ErrValidation)
		}
	} else if req.ParentSectionID != nil {
		return nil, fmt.Errorf("%w: top-level sections cannot have a parent", domain.ErrValidation)
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		siblings, err := s.sectionRepo.ListByProject(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		for _, sib := range siblings {
			if sameParent(sib.ParentSectionID, req.ParentSectionID) && sib.SortOrder >= sortOrder {
				sortOrder = sib.SortOrder + 1
			}
		}
	}

	now := time.Now()
	section := &models.Section{
		ProjectID:       req.ProjectID,
		Name:            strings.TrimSpace(req.Name),
		SectionType:     req.SectionType,
		ParentSectionID: req.ParentSectionID,
		SortOrder:       sortOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.sectionRepo.Create(ctx, section); err != nil {
		return nil, err
	}

	s.logger.Info("section created",
		"id", section.ID,
		"project_id", req.ProjectID,
		"type", section.SectionType,
	)

	return section, nil
}

// ListSections returns a project's sections ordered by sort_order
func (s *sectionService) ListSections(ctx context.Context, projectID, userID string) ([]models.Section, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.sectionRepo.ListByProject(ctx, projectID)
}

// UpdateSection renames and/or reorders a section
func (s *sectionService) UpdateSection(ctx context.Context, id string, req *services.UpdateSectionRequest) (*models.Section, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID, req.UserID); err != nil {
		return nil, err
	}

	section, err := s.sectionRepo.GetByID(ctx, id, req.ProjectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		section.Name = strings.TrimSpace(*req.Name)
	}
	if req.SortOrder != nil {
		section.SortOrder = *req.SortOrder
	}
	section.UpdatedAt = time.Now()

	if err := s.sectionRepo.Update(ctx, section); err != nil {
		return nil, err
	}

	s.logger.Info("section updated", "id", id, "project_id", req.ProjectID)
	return section, nil
}

// DeleteSection removes a section; documents under it become unorganized
func (s *sectionService) DeleteSection(ctx context.Context, id, projectID, userID string) error {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return err
	}

	if _, err := s.sectionRepo.GetByID(ctx, id, projectID); err != nil {
		return err
	}

	if err := s.sectionRepo.Delete(ctx, id, projectID); err != nil {
		return err
	}

	s.logger.Info("section deleted", "id", id, "project_id", projectID)
	return nil
}

func (s *sectionService) validateCreateRequest(req *services.CreateSectionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxSectionNameLength),
			validation.By(validateNonBlank("name")),
		),
		validation.Field(&req.SectionType,
			validation.Required,
			validation.In(models.SectionTypeSection, models.SectionTypeSubsection),
		),
	)
}

func (s *sectionService) validateUpdateRequest(req *services.UpdateSectionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Name,
			validation.Length(1, config.MaxSectionNameLength),
			validation.By(validateNonBlank("name")),
		),
	)
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
