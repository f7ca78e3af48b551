package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface.
//
// Rows written by older clients carry the display name in either name,
// display_name or original_name, and the byte source in either
// storage_path or file_url. The SELECTs below coalesce the name variants
// into the canonical Name so nothing downstream branches on field
// presence.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const documentSelect = `id, project_id, section_id,
		COALESCE(NULLIF(display_name, ''), NULLIF(original_name, ''), name) AS name,
		sort_order, storage_path, file_url, file_size, content_type, uploaded_at`

// Create inserts a document row
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, section_id, name, sort_order, storage_path, file_url, file_size, content_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, uploaded_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.ProjectID,
		doc.SectionID,
		doc.Name,
		doc.SortOrder,
		doc.StoragePath,
		doc.FileURL,
		doc.FileSize,
		doc.ContentType,
		time.Now(),
	).Scan(&doc.ID, &doc.UploadedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("section does not exist: %w", domain.ErrValidation)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID; empty projectID skips scoping
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id, projectID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, documentSelect, r.tables.Documents)
	args := []interface{}{id}

	if projectID != "" {
		query += " AND project_id = $2"
		args = append(args, projectID)
	}

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, args...).Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.SectionID,
		&doc.Name,
		&doc.SortOrder,
		&doc.StoragePath,
		&doc.FileURL,
		&doc.FileSize,
		&doc.ContentType,
		&doc.UploadedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// ListByProject returns all documents in ascending section/sort order
func (r *PostgresDocumentRepository) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1
		ORDER BY section_id NULLS LAST, sort_order ASC, uploaded_at ASC
	`, documentSelect, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListByIDs returns documents for the given IDs, preserving input order
func (r *PostgresDocumentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = ANY($1)
	`, documentSelect, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list documents by ids: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	ordered := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ordered = append(ordered, doc)
		}
	}

	return ordered, nil
}

// NextSortOrder returns max(sort_order)+1 within a (project, section) scope
func (r *PostgresDocumentRepository) NextSortOrder(ctx context.Context, projectID string, sectionID *string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(sort_order), 0) + 1
		FROM %s
		WHERE project_id = $1 AND section_id IS NOT DISTINCT FROM $2
	`, r.tables.Documents)

	var next int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, projectID, sectionID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}

	return next, nil
}

// Update persists name, section and sort_order changes
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, display_name = $1, section_id = $2, sort_order = $3
		WHERE id = $4 AND project_id = $5
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		doc.Name,
		doc.SectionID,
		doc.SortOrder,
		doc.ID,
		doc.ProjectID,
	)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("section does not exist: %w", domain.ErrValidation)
		}
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a document row
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, projectID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND project_id = $2
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, projectID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func scanDocuments(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]models.Document, error) {
	docs := make([]models.Document, 0)
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.ProjectID,
			&doc.SectionID,
			&doc.Name,
			&doc.SortOrder,
			&doc.StoragePath,
			&doc.FileURL,
			&doc.FileSize,
			&doc.ContentType,
			&doc.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}
