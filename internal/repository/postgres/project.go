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

// PostgresProjectRepository implements the ProjectRepository interface
type PostgresProjectRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(config *RepositoryConfig) repositories.ProjectRepository {
	return &PostgresProjectRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const projectColumns = `id, user_id, title, property_address, property_description,
		purchase_price, loan_amount, closing_date,
		buyer_name, seller_name, attorney_name, lender_name,
		title_company_name, escrow_agent_name,
		cover_photo_url, cover_page_data, created_at, updated_at, deleted_at`

// Create creates a new project
func (r *PostgresProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, property_address, property_description,
			purchase_price, loan_amount, closing_date,
			buyer_name, seller_name, attorney_name, lender_name,
			title_company_name, escrow_agent_name,
			cover_photo_url, cover_page_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		project.UserID,
		project.Title,
		project.PropertyAddress,
		project.PropertyDescription,
		project.PurchasePrice,
		project.LoanAmount,
		project.ClosingDate,
		project.BuyerName,
		project.SellerName,
		project.AttorneyName,
		project.LenderName,
		project.TitleCompanyName,
		project.EscrowAgentName,
		project.CoverPhotoURL,
		project.CoverPageData,
		time.Now(),
		time.Now(),
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by ID. An empty userID skips the ownership
// filter; the client-binder resolve path uses that form.
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id, userID string) (*models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, projectColumns, r.tables.Projects)
	args := []interface{}{id}

	if userID != "" {
		query += " AND user_id = $2"
		args = append(args, userID)
	}

	executor := GetExecutor(ctx, r.pool)
	project, err := scanProject(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return project, nil
}

// List retrieves all projects for a user, newest activity first
func (r *PostgresProjectRepository) List(ctx context.Context, userID string) ([]models.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, projectColumns, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *project)
	}

	return projects, rows.Err()
}

// Update persists mutable project fields
func (r *PostgresProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, property_address = $2, property_description = $3,
			purchase_price = $4, loan_amount = $5, closing_date = $6,
			buyer_name = $7, seller_name = $8, attorney_name = $9, lender_name = $10,
			title_company_name = $11, escrow_agent_name = $12,
			cover_photo_url = $13, cover_page_data = $14, updated_at = $15
		WHERE id = $16 AND user_id = $17 AND deleted_at IS NULL
	`, r.tables.Projects)

	project.UpdatedAt = time.Now()

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		project.Title,
		project.PropertyAddress,
		project.PropertyDescription,
		project.PurchasePrice,
		project.LoanAmount,
		project.ClosingDate,
		project.BuyerName,
		project.SellerName,
		project.AttorneyName,
		project.LenderName,
		project.TitleCompanyName,
		project.EscrowAgentName,
		project.CoverPhotoURL,
		project.CoverPageData,
		project.UpdatedAt,
		project.ID,
		project.UserID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete soft-deletes a project
func (r *PostgresProjectRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`, r.tables.Projects)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.PropertyAddress,
		&p.PropertyDescription,
		&p.PurchasePrice,
		&p.LoanAmount,
		&p.ClosingDate,
		&p.BuyerName,
		&p.SellerName,
		&p.AttorneyName,
		&p.LenderName,
		&p.TitleCompanyName,
		&p.EscrowAgentName,
		&p.CoverPhotoURL,
		&p.CoverPageData,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
