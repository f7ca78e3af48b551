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

// PostgresSectionRepository implements the SectionRepository interface
type PostgresSectionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(config *RepositoryConfig) repositories.SectionRepository {
	return &PostgresSectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a section row
func (r *PostgresSectionRepository) Create(ctx context.Context, section *models.Section) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, name, section_type, parent_section_id, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Sections)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		section.ProjectID,
		section.Name,
		section.SectionType,
		section.ParentSectionID,
		section.SortOrder,
		time.Now(),
		time.Now(),
	).Scan(&section.ID, &section.CreatedAt, &section.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("parent section does not exist: %w", domain.ErrValidation)
		}
		return fmt.Errorf("create section: %w", err)
	}

	return nil
}

// GetByID retrieves a section by ID
func (r *PostgresSectionRepository) GetByID(ctx context.Context, id, projectID string) (*models.Section, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, name, section_type, parent_section_id, sort_order, created_at, updated_at
		FROM %s
		WHERE id = $1 AND project_id = $2
	`, r.tables.Sections)

	var s models.Section
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, projectID).Scan(
		&s.ID,
		&s.ProjectID,
		&s.Name,
		&s.SectionType,
		&s.ParentSectionID,
		&s.SortOrder,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get section: %w", err)
	}

	return &s, nil
}

// ListByProject returns all sections ordered by sort_order
func (r *PostgresSectionRepository) ListByProject(ctx context.Context, projectID string) ([]models.Section, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, name, section_type, parent_section_id, sort_order, created_at, updated_at
		FROM %s
		WHERE project_id = $1
		ORDER BY sort_order ASC, created_at ASC
	`, r.tables.Sections)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	sections := make([]models.Section, 0)
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.SectionType, &s.ParentSectionID, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}

	return sections, rows.Err()
}

// Update persists name, parent and sort_order changes
func (r *PostgresSectionRepository) Update(ctx context.Context, section *models.Section) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_section_id = $2, sort_order = $3, updated_at = $4
		WHERE id = $5 AND project_id = $6
	`, r.tables.Sections)

	section.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		section.Name,
		section.ParentSectionID,
		section.SortOrder,
		section.UpdatedAt,
		section.ID,
		section.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("section %s: %w", section.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a section. Documents referencing it fall back to the
// unorganized pool via ON DELETE SET NULL; child subsections are removed
// by ON DELETE CASCADE.
func (r *PostgresSectionRepository) Delete(ctx context.Context, id, projectID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND project_id = $2
	`, r.tables.Sections)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, projectID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
