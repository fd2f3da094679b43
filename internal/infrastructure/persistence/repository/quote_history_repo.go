package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
)

// QuoteHistoryRepository implements port.QuoteHistoryRepository
type QuoteHistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQuoteHistoryRepository creates a new quote history repository
func NewQuoteHistoryRepository(db *sql.DB, logger *zap.Logger) port.QuoteHistoryRepository {
	return &QuoteHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a status change
func (r *QuoteHistoryRepository) Create(ctx context.Context, change *entity.QuoteStatusChange) error {
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO quote_status_history (
			tenant_id, quote_id, from_status, to_status, trigger_name, actor_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		change.TenantID,
		change.QuoteID,
		change.FromStatus,
		change.ToStatus,
		change.Trigger,
		change.ActorID,
		change.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record quote status change",
			zap.Int64("quote_id", change.QuoteID),
			zap.String("to", change.ToStatus.String()),
			zap.Error(err))
		return fmt.Errorf("failed to record quote status change: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	change.ID = id
	return nil
}

// ListByQuote returns the audit trail oldest first
func (r *QuoteHistoryRepository) ListByQuote(ctx context.Context, tenantID, quoteID int64) ([]*entity.QuoteStatusChange, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `
		SELECT id, tenant_id, quote_id, from_status, to_status, trigger_name, actor_id, created_at
		FROM quote_status_history
		WHERE tenant_id = ? AND quote_id = ?
		ORDER BY id`, tenantID, quoteID)
	if err != nil {
		r.logger.Error("Failed to list quote history", zap.Int64("quote_id", quoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to list quote history: %w", err)
	}
	defer rows.Close()

	changes := make([]*entity.QuoteStatusChange, 0)
	for rows.Next() {
		var c entity.QuoteStatusChange
		if err := rows.Scan(
			&c.ID,
			&c.TenantID,
			&c.QuoteID,
			&c.FromStatus,
			&c.ToStatus,
			&c.Trigger,
			&c.ActorID,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote history: %w", err)
		}
		changes = append(changes, &c)
	}
	return changes, rows.Err()
}
