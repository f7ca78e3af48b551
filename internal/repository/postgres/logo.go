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

// PostgresLogoRepository implements the LogoRepository interface
type PostgresLogoRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewLogoRepository creates a new logo repository
func NewLogoRepository(config *RepositoryConfig) repositories.LogoRepository {
	return &PostgresLogoRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a logo row
func (r *PostgresLogoRepository) Create(ctx context.Context, logo *models.Logo) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, logo_url, logo_position, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.tables.Logos)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		logo.ProjectID,
		logo.LogoURL,
		logo.LogoPosition,
		time.Now(),
	).Scan(&logo.ID, &logo.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("logo position %d is already taken", logo.LogoPosition),
				ResourceType: "logo",
			}
		}
		return fmt.Errorf("create logo: %w", err)
	}

	return nil
}

// ListByProject returns logos ordered by position
func (r *PostgresLogoRepository) ListByProject(ctx context.Context, projectID string) ([]models.Logo, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, logo_url, logo_position, created_at
		FROM %s
		WHERE project_id = $1
		ORDER BY logo_position ASC
	`, r.tables.Logos)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list logos: %w", err)
	}
	defer rows.Close()

	logos := make([]models.Logo, 0)
	for rows.Next() {
		var logo models.Logo
		if err := rows.Scan(&logo.ID, &logo.ProjectID, &logo.LogoURL, &logo.LogoPosition, &logo.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan logo: %w", err)
		}
		logos = append(logos, logo)
	}

	return logos, rows.Err()
}

// Delete removes a logo
func (r *PostgresLogoRepository) Delete(ctx context.Context, id, projectID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND project_id = $2
	`, r.tables.Logos)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, projectID)
	if err != nil {
		return fmt.Errorf("delete logo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("logo %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
