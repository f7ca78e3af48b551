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

// presignExpiry is how long document download links stay valid.
const presignExpiry = 15 * time.Minute

// documentService implements the DocumentService interface
type documentService struct {
	docRepo     repositories.DocumentRepository
	sectionRepo repositories.SectionRepository
	projectRepo repositories.ProjectRepository
	store       domain.ObjectStore
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo repositories.DocumentRepository,
	sectionRepo repositories.SectionRepository,
	projectRepo repositories.ProjectRepository,
	store domain.ObjectStore,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docRepo:     docRepo,
		sectionRepo: sectionRepo,
		projectRepo: projectRepo,
		store:       store,
		txManager:   txManager,
		logger:      logger,
	}
}

// GetDocument retrieves a document scoped to a project
func (s *documentService) GetDocument(ctx context.Context, id, projectID, userID string) (*models.Document, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.docRepo.GetByID(ctx, id, projectID)
}

// ListDocuments returns a project's documents
func (s *documentService) ListDocuments(ctx context.Context, projectID, userID string) ([]models.Document, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.docRepo.ListByProject(ctx, projectID)
}

// UpdateDocument renames a document and/or moves it between sections
func (s *documentService) UpdateDocument(ctx context.Context, id string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID, req.UserID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id, req.ProjectID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doc.Name = strings.TrimSpace(*req.Name)
	}

	if req.SectionID.Present {
		target := req.SectionID.Value
		if target != nil {
			if _, err := s.sectionRepo.GetByID(ctx, *target, req.ProjectID); err != nil {
				return nil, fmt.Errorf("invalid section: %w", err)
			}
		}
		if !sameParent(doc.SectionID, target) {
			// Moving appends to the destination scope
			next, err := s.docRepo.NextSortOrder(ctx, req.ProjectID, target)
			if err != nil {
				return nil, err
			}
			doc.SectionID = target
			doc.SortOrder = next
		}
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document updated", "id", id, "project_id", req.ProjectID)
	return doc, nil
}

// ReorderDocuments rewrites sort_order within one section scope
func (s *documentService) ReorderDocuments(ctx context.Context, req *services.ReorderDocumentsRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.DocumentIDs, validation.Required),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID, req.UserID); err != nil {
		return err
	}

	docs, err := s.docRepo.ListByIDs(ctx, req.DocumentIDs)
	if err != nil {
		return err
	}
	if len(docs) != len(req.DocumentIDs) {
		return fmt.Errorf("%w: unknown document in reorder list", domain.ErrValidation)
	}
	for i := range docs {
		if docs[i].ProjectID != req.ProjectID || !sameParent(docs[i].SectionID, req.SectionID) {
			return fmt.Errorf("%w: document %s is not in the target section", domain.ErrValidation, docs[i].ID)
		}
	}

	// All rows move in one transaction so a half-applied reorder can't
	// leave duplicate sort positions behind
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		for i := range docs {
			docs[i].SortOrder = i
			if err := s.docRepo.Update(ctx, &docs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("documents reordered",
		"project_id", req.ProjectID,
		"count", len(docs),
	)
	return nil
}

// DeleteDocument removes the metadata row and best-effort removes the
// stored object
func (s *documentService) DeleteDocument(ctx context.Context, id, projectID, userID string) error {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return err
	}

	doc, err := s.docRepo.GetByID(ctx, id, projectID)
	if err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, id, projectID); err != nil {
		return err
	}

	// The row is gone; a leaked object is preferable to a phantom row
	if doc.StoragePath != nil && *doc.StoragePath != "" {
		if err := s.store.Remove(ctx, *doc.StoragePath); err != nil {
			s.logger.Warn("orphaned object after document delete",
				"document_id", id,
				"storage_path", *doc.StoragePath,
				"error", err,
			)
		}
	}

	s.logger.Info("document deleted", "id", id, "project_id", projectID)
	return nil
}

// ResolveURL returns a short-lived download URL for a document
func (s *documentService) ResolveURL(ctx context.Context, doc *models.Document) (string, error) {
	switch {
	case doc.StoragePath != nil && *doc.StoragePath != "":
		return s.store.PresignedURL(ctx, *doc.StoragePath, presignExpiry)
	case doc.FileURL != nil && *doc.FileURL != "":
		return *doc.FileURL, nil
	default:
		return "", &domain.NotFoundError{Message: "document has no content"}
	}
}

func (s *documentService) validateUpdateRequest(req *services.UpdateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required),
		validation.Field(&req.Name,
			validation.Length(1, config.MaxDocumentNameLength),
			validation.By(validateNonBlank("name")),
		),
	)
}
