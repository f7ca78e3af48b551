package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
)

// PostgresBinderRepository implements the BinderRepository interface
type PostgresBinderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewBinderRepository creates a new binder repository
func NewBinderRepository(config *RepositoryConfig) repositories.BinderRepository {
	return &PostgresBinderRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const binderColumns = `id, project_id, access_code, client_email, title,
		property_address, cover_page_data, table_of_contents_data,
		is_published, is_active, expires_at, password_protected, access_password,
		created_at, updated_at`

// Create inserts a binder snapshot
func (r *PostgresBinderRepository) Create(ctx context.Context, binder *models.ClientBinder) error {
	tocData, err := json.Marshal(binder.TableOfContentsData)
	if err != nil {
		return fmt.Errorf("marshal toc data: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, access_code, client_email, title,
			property_address, cover_page_data, table_of_contents_data,
			is_published, is_active, expires_at, password_protected, access_password,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`, r.tables.Binders)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		binder.ProjectID,
		binder.AccessCode,
		binder.ClientEmail,
		binder.Title,
		binder.PropertyAddress,
		binder.CoverPageData,
		tocData,
		binder.IsPublished,
		binder.IsActive,
		binder.ExpiresAt,
		binder.PasswordProtected,
		binder.AccessPassword,
		time.Now(),
		time.Now(),
	).Scan(&binder.ID, &binder.CreatedAt, &binder.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "a binder already exists for this project and client",
				ResourceType: "binder",
			}
		}
		return fmt.Errorf("create binder: %w", err)
	}

	return nil
}

// GetByProjectAndClient returns the snapshot for a (project, client) pair
func (r *PostgresBinderRepository) GetByProjectAndClient(ctx context.Context, projectID, clientEmail string) (*models.ClientBinder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1 AND client_email = $2
	`, binderColumns, r.tables.Binders)

	executor := GetExecutor(ctx, r.pool)
	binder, err := scanBinder(executor.QueryRow(ctx, query, projectID, clientEmail))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("binder for project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get binder: %w", err)
	}

	return binder, nil
}

// GetByAccessCode returns the snapshot for an access code
func (r *PostgresBinderRepository) GetByAccessCode(ctx context.Context, accessCode string) (*models.ClientBinder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE access_code = $1
	`, binderColumns, r.tables.Binders)

	executor := GetExecutor(ctx, r.pool)
	binder, err := scanBinder(executor.QueryRow(ctx, query, accessCode))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("access code: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get binder by access code: %w", err)
	}

	return binder, nil
}

// ListByProject returns all snapshots for a project, newest first
func (r *PostgresBinderRepository) ListByProject(ctx context.Context, projectID string) ([]models.ClientBinder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1
		ORDER BY updated_at DESC
	`, binderColumns, r.tables.Binders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list binders: %w", err)
	}
	defer rows.Close()

	binders := make([]models.ClientBinder, 0)
	for rows.Next() {
		binder, err := scanBinder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binder: %w", err)
		}
		binders = append(binders, *binder)
	}

	return binders, rows.Err()
}

// Update persists snapshot fields in place
func (r *PostgresBinderRepository) Update(ctx context.Context, binder *models.ClientBinder) error {
	tocData, err := json.Marshal(binder.TableOfContentsData)
	if err != nil {
		return fmt.Errorf("marshal toc data: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, property_address = $2, cover_page_data = $3,
			table_of_contents_data = $4, is_published = $5, is_active = $6,
			expires_at = $7, password_protected = $8, access_password = $9,
			updated_at = $10
		WHERE id = $11
	`, r.tables.Binders)

	binder.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		binder.Title,
		binder.PropertyAddress,
		binder.CoverPageData,
		tocData,
		binder.IsPublished,
		binder.IsActive,
		binder.ExpiresAt,
		binder.PasswordProtected,
		binder.AccessPassword,
		binder.UpdatedAt,
		binder.ID,
	)
	if err != nil {
		return fmt.Errorf("update binder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("binder %s: %w", binder.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete hard-deletes a snapshot
func (r *PostgresBinderRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Binders)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete binder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("binder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func scanBinder(row rowScanner) (*models.ClientBinder, error) {
	var b models.ClientBinder
	var tocData []byte
	err := row.Scan(
		&b.ID,
		&b.ProjectID,
		&b.AccessCode,
		&b.ClientEmail,
		&b.Title,
		&b.PropertyAddress,
		&b.CoverPageData,
		&tocData,
		&b.IsPublished,
		&b.IsActive,
		&b.ExpiresAt,
		&b.PasswordProtected,
		&b.AccessPassword,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tocData) > 0 {
		if err := json.Unmarshal(tocData, &b.TableOfContentsData); err != nil {
			return nil, fmt.Errorf("unmarshal toc data: %w", err)
		}
	}

	return &b, nil
}
