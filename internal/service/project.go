// Package service implements the domain service interfaces.
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

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo repositories.ProjectRepository
	logoRepo    repositories.LogoRepository
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	logoRepo repositories.LogoRepository,
	logger *slog.Logger,
) services.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		logoRepo:    logoRepo,
		logger:      logger,
	}
}

// CreateProject creates a new project
func (s *projectService) CreateProject(ctx context.Context, req *services.CreateProjectRequest) (*models.Project, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	project := &models.Project{
		UserID:          req.UserID,
		Title:           strings.TrimSpace(req.Title),
		PropertyAddress: trimOptional(req.PropertyAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"title", project.Title,
		"user_id", req.UserID,
	)

	return project, nil
}

// GetProject retrieves a project by ID
func (s *projectService) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id, userID)
}

// ListProjects retrieves all projects for a user
func (s *projectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projectRepo.List(ctx, userID)
}

// UpdateProject applies the non-nil fields of the request
func (s *projectService) UpdateProject(ctx context.Context, id, userID string, req *services.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	project, err := s.projectRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	applyProjectUpdate(project, req)
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project updated",
		"id", project.ID,
		"user_id", userID,
	)

	return project, nil
}

// DeleteProject soft-deletes a project
func (s *projectService) DeleteProject(ctx context.Context, id, userID string) error {
	// Verify project exists first (provides better error message)
	if _, err := s.projectRepo.GetByID(ctx, id, userID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("project deleted",
		"id", id,
		"user_id", userID,
	)

	return nil
}

// AddLogo attaches a cover-page logo
func (s *projectService) AddLogo(ctx context.Context, projectID, userID string, req *services.AddLogoRequest) (*models.Logo, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.LogoURL, validation.Required),
		validation.Field(&req.LogoPosition, validation.Required,
			validation.Min(1), validation.Max(config.MaxLogosPerProject)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}

	existing, err := s.logoRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, logo := range existing {
		if logo.LogoPosition == req.LogoPosition {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("logo position %d is taken", req.LogoPosition),
				ResourceType: "logo",
				ResourceID:   logo.ID,
			}
		}
	}
	if len(existing) >= config.MaxLogosPerProject {
		return nil, fmt.Errorf("%w: at most %d logos per project", domain.ErrValidation, config.MaxLogosPerProject)
	}

	logo := &models.Logo{
		ProjectID:    projectID,
		LogoURL:      req.LogoURL,
		LogoPosition: req.LogoPosition,
		CreatedAt:    time.Now(),
	}
	if err := s.logoRepo.Create(ctx, logo); err != nil {
		return nil, err
	}

	s.logger.Info("logo added", "project_id", projectID, "position", req.LogoPosition)
	return logo, nil
}

// ListLogos returns a project's logos ordered by position
func (s *projectService) ListLogos(ctx context.Context, projectID, userID string) ([]models.Logo, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.logoRepo.ListByProject(ctx, projectID)
}

// RemoveLogo detaches a logo
func (s *projectService) RemoveLogo(ctx context.Context, logoID, projectID, userID string) error {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return err
	}
	return s.logoRepo.Delete(ctx, logoID, projectID)
}

func applyProjectUpdate(project *models.Project, req *services.UpdateProjectRequest) {
	if req.Title != nil {
		project.Title = strings.TrimSpace(*req.Title)
	}
	if req.PropertyAddress != nil {
		project.PropertyAddress = trimOptional(req.PropertyAddress)
	}
	if req.PropertyDescription != nil {
		project.PropertyDescription = trimOptional(req.PropertyDescription)
	}
	if req.PurchasePrice != nil {
		project.PurchasePrice = req.PurchasePrice
	}
	if req.LoanAmount != nil {
		project.LoanAmount = req.LoanAmount
	}
	if req.ClosingDate != nil {
		project.ClosingDate = req.ClosingDate
	}
	if req.BuyerName != nil {
		project.BuyerName = trimOptional(req.BuyerName)
	}
	if req.SellerName != nil {
		project.SellerName = trimOptional(req.SellerName)
	}
	if req.AttorneyName != nil {
		project.AttorneyName = trimOptional(req.AttorneyName)
	}
	if req.LenderName != nil {
		project.LenderName = trimOptional(req.LenderName)
	}
	if req.TitleCompanyName != nil {
		project.TitleCompanyName = trimOptional(req.TitleCompanyName)
	}
	if req.EscrowAgentName != nil {
		project.EscrowAgentName = trimOptional(req.EscrowAgentName)
	}
	if req.CoverPhotoURL != nil {
		project.CoverPhotoURL = trimOptional(req.CoverPhotoURL)
	}
	if req.CoverPageData != nil {
		project.CoverPageData = *req.CoverPageData
	}
}

// validateCreateRequest validates a create project request
func (s *projectService) validateCreateRequest(req *services.CreateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxProjectTitleLength),
			validation.By(validateNonBlank("title")),
		),
	)
}

// validateUpdateRequest validates an update project request
func (s *projectService) validateUpdateRequest(req *services.UpdateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Length(1, config.MaxProjectTitleLength),
			validation.By(validateNonBlank("title")),
		),
	)
}

// validateNonBlank rejects values that are empty after trimming
func validateNonBlank(field string) validation.RuleFunc {
	return func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string", field)
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

// trimOptional trims a pointer string, collapsing blank to nil
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
