package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
)

// PostgresAccessLogRepository implements the AccessLogRepository interface.
// Callers treat writes as best-effort; errors are returned so the service
// layer can log them, but nothing user-facing depends on success.
type PostgresAccessLogRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAccessLogRepository creates a new access log repository
func NewAccessLogRepository(config *RepositoryConfig) repositories.AccessLogRepository {
	return &PostgresAccessLogRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Record inserts an access event
func (r *PostgresAccessLogRepository) Record(ctx context.Context, entry *models.AccessLogEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (binder_id, document_id, action, remote_addr, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.tables.AccessLog)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		entry.BinderID,
		entry.DocumentID,
		entry.Action,
		entry.RemoteAddr,
		entry.UserAgent,
		time.Now(),
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("record access: %w", err)
	}

	return nil
}
