package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"closingbinder/internal/binder"
	"closingbinder/internal/config"
	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
	"closingbinder/internal/domain/services"
	"closingbinder/internal/repository/redisstore"
)

// publishService implements the PublishService interface
type publishService struct {
	binderRepo  repositories.BinderRepository
	projectRepo repositories.ProjectRepository
	sectionRepo repositories.SectionRepository
	docRepo     repositories.DocumentRepository
	accessLog   repositories.AccessLogRepository
	tracker     *redisstore.Store
	logger      *slog.Logger
	now         func() time.Time
}

// NewPublishService creates a new publish service
func NewPublishService(
	binderRepo repositories.BinderRepository,
	projectRepo repositories.ProjectRepository,
	sectionRepo repositories.SectionRepository,
	docRepo repositories.DocumentRepository,
	accessLog repositories.AccessLogRepository,
	tracker *redisstore.Store,
	logger *slog.Logger,
) services.PublishService {
	return &publishService{
		binderRepo:  binderRepo,
		projectRepo: projectRepo,
		sectionRepo: sectionRepo,
		docRepo:     docRepo,
		accessLog:   accessLog,
		tracker:     tracker,
		logger:      logger,
		now:         time.Now,
	}
}

// Publish creates or refreshes the snapshot for (project, client)
func (s *publishService) Publish(ctx context.Context, req *services.PublishRequest) (*models.ClientBinder, error) {
	// Normalize before validating; the email rule only accepts the
	// canonical lowercase form
	req.ClientEmail = strings.ToLower(strings.TrimSpace(req.ClientEmail))
	if err := s.validatePublishRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	project, err := s.projectRepo.GetByID(ctx, req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}

	sections, err := s.sectionRepo.ListByProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	documents, err := s.docRepo.ListByProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	// The table of contents is frozen at publish time; later edits to
	// the project do not change what the client sees until republish
	entries := binder.BuildTOC(sections, documents)

	clientEmail := req.ClientEmail

	var passwordHash *string
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash binder password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	existing, err := s.binderRepo.GetByProjectAndClient(ctx, req.ProjectID, clientEmail)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	now := s.now()
	if existing != nil {
		// Republish keeps the access code so shared links stay valid
		existing.Title = project.Title
		existing.PropertyAddress = project.PropertyAddress
		existing.CoverPageData = project.CoverPageData
		existing.TableOfContentsData = entries
		existing.IsPublished = true
		existing.IsActive = true
		existing.ExpiresAt = req.ExpiresAt
		existing.PasswordProtected = passwordHash != nil
		existing.AccessPassword = passwordHash
		existing.UpdatedAt = now

		if err := s.binderRepo.Update(ctx, existing); err != nil {
			return nil, err
		}

		s.logger.Info("binder republished",
			"binder_id", existing.ID,
			"project_id", req.ProjectID,
			"client_email", clientEmail,
		)
		return existing, nil
	}

	snapshot := &models.ClientBinder{
		ProjectID:           req.ProjectID,
		AccessCode:          newAccessCode(),
		ClientEmail:         clientEmail,
		Title:               project.Title,
		PropertyAddress:     project.PropertyAddress,
		CoverPageData:       project.CoverPageData,
		TableOfContentsData: entries,
		IsPublished:         true,
		IsActive:            true,
		ExpiresAt:           req.ExpiresAt,
		PasswordProtected:   passwordHash != nil,
		AccessPassword:      passwordHash,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.binderRepo.Create(ctx, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("binder published",
		"binder_id", snapshot.ID,
		"project_id", req.ProjectID,
		"client_email", clientEmail,
	)
	return snapshot, nil
}

// Unpublish deactivates a snapshot without deleting it
func (s *publishService) Unpublish(ctx context.Context, binderID, projectID, userID string) error {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return err
	}

	snapshots, err := s.binderRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}

	for i := range snapshots {
		if snapshots[i].ID != binderID {
			continue
		}
		snapshots[i].IsActive = false
		snapshots[i].UpdatedAt = s.now()
		if err := s.binderRepo.Update(ctx, &snapshots[i]); err != nil {
			return err
		}
		s.logger.Info("binder unpublished", "binder_id", binderID, "project_id", projectID)
		return nil
	}
	return &domain.NotFoundError{Message: "binder not found"}
}

// ListPublished returns a project's snapshots, newest first
func (s *publishService) ListPublished(ctx context.Context, projectID, userID string) ([]models.ClientBinder, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.binderRepo.ListByProject(ctx, projectID)
}

// ResolveByAccessCode gates client access to a snapshot
func (s *publishService) ResolveByAccessCode(ctx context.Context, accessCode, password string) (*models.ClientBinder, error) {
	accessCode = strings.ToUpper(strings.TrimSpace(accessCode))
	if accessCode == "" {
		return nil, &domain.NotFoundError{Message: "binder not found"}
	}

	snapshot, err := s.binderRepo.GetByAccessCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}

	if !snapshot.IsPublished || !snapshot.IsActive {
		return nil, &domain.NotFoundError{Message: "binder not found"}
	}
	if snapshot.Expired(s.now()) {
		return nil, &domain.GoneError{Message: "this binder link has expired"}
	}

	if snapshot.PasswordProtected {
		if !s.tracker.AllowAttempt(ctx, accessCode) {
			return nil, &domain.TooManyAttemptsError{Message: "too many password attempts, try again later"}
		}
		if snapshot.AccessPassword == nil ||
			bcrypt.CompareHashAndPassword([]byte(*snapshot.AccessPassword), []byte(password)) != nil {
			s.tracker.RecordFailedAttempt(ctx, accessCode)
			return nil, &domain.UnauthorizedError{Message: "incorrect password"}
		}
	}

	return snapshot, nil
}

// RecordAccess logs a best-effort view/download event
func (s *publishService) RecordAccess(ctx context.Context, snapshot *models.ClientBinder, event services.AccessEvent) {
	entry := &models.AccessLogEntry{
		BinderID:   snapshot.ID,
		DocumentID: event.DocumentID,
		Action:     event.Action,
		RemoteAddr: event.RemoteAddr,
		UserAgent:  event.UserAgent,
		OccurredAt: s.now(),
	}
	if err := s.accessLog.Record(ctx, entry); err != nil {
		s.logger.Warn("access log write failed",
			"binder_id", snapshot.ID,
			"action", event.Action,
			"error", err,
		)
	}

	if event.Action == models.AccessActionView {
		if err := s.tracker.IncrViewCount(ctx, snapshot.ID); err != nil {
			s.logger.Warn("view counter failed", "binder_id", snapshot.ID, "error", err)
		}
	}
}

// ViewCount returns the tracked view counter for a binder
func (s *publishService) ViewCount(ctx context.Context, binderID string) int64 {
	n, err := s.tracker.ViewCount(ctx, binderID)
	if err != nil {
		s.logger.Warn("view counter read failed", "binder_id", binderID, "error", err)
		return 0
	}
	return n
}

func (s *publishService) validatePublishRequest(req *services.PublishRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ClientEmail, validation.Required, is.Email),
	)
}

// newAccessCode mints an 8 character uppercase code from a UUID
func newAccessCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:config.AccessCodeLength])
}
