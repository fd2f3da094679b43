package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
)

// SequenceRepository implements port.SequenceRepository on document_sequences
type SequenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sql.DB, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{
		db:     db,
		logger: logger,
	}
}

// Next increments the counter in a single statement so concurrent writers
// never observe the same value. Inside a transaction the increment rolls
// back with it, which keeps numbering gap-free.
func (r *SequenceRepository) Next(ctx context.Context, tenantID int64, scope, period string) (int64, error) {
	var value int64
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO document_sequences (tenant_id, scope, period, value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (tenant_id, scope, period) DO UPDATE SET value = value + 1
		RETURNING value`,
		tenantID, scope, period,
	).Scan(&value)
	if err != nil {
		r.logger.Error("Failed to advance document sequence",
			zap.Int64("tenant_id", tenantID),
			zap.String("scope", scope),
			zap.String("period", period),
			zap.Error(err))
		return 0, fmt.Errorf("failed to advance %s sequence: %w", scope, err)
	}
	return value, nil
}
