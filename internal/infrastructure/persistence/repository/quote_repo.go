package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/infrastructure/persistence/sqlite"
)

const quoteColumns = `
	id, tenant_id, number, project_id, customer_id, issue_date, expiry_date,
	status, subtotal, tax, discount, total, notes, terms, created_by,
	created_at, updated_at`

// QuoteRepository implements port.QuoteRepository
type QuoteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *sql.DB, logger *zap.Logger) port.QuoteRepository {
	return &QuoteRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the quote and its items
func (r *QuoteRepository) Create(ctx context.Context, quote *entity.Quote) error {
	now := time.Now().UTC()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO quotes (
			tenant_id, number, project_id, customer_id, issue_date, expiry_date,
			status, subtotal, tax, discount, total, notes, terms, created_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.TenantID,
		quote.Number,
		nullableInt64(quote.ProjectID),
		nullableInt64(quote.CustomerID),
		quote.IssueDate,
		nullableString(quote.ExpiryDate),
		quote.Status,
		quote.Subtotal,
		quote.Tax,
		quote.Discount,
		quote.Total,
		quote.Notes,
		quote.Terms,
		quote.CreatedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create quote", zap.Int64("tenant_id", quote.TenantID), zap.Error(err))
		return fmt.Errorf("failed to create quote: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	quote.ID = id
	quote.CreatedAt = now
	quote.UpdatedAt = now

	return r.insertItems(ctx, quote)
}

// GetByID loads a quote with its items
func (r *QuoteRepository) GetByID(ctx context.Context, tenantID, id int64) (*entity.Quote, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	row := exec.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE tenant_id = ? AND id = ?`, tenantID, id)
	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get quote", zap.Int64("tenant_id", tenantID), zap.Int64("quote_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	items, err := r.listItems(ctx, exec, quote.ID)
	if err != nil {
		return nil, err
	}
	quote.Items = items
	return quote, nil
}

// UpdateStatusIf changes the status only while it still equals from
func (r *QuoteRepository) UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.QuoteStatus) (bool, error) {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE quotes SET status = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?`,
		to, time.Now().UTC(), tenantID, id, from,
	)
	if err != nil {
		r.logger.Error("Failed to update quote status",
			zap.Int64("quote_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update quote status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// ReplaceItems swaps the item rows and stores the recomputed money fields
func (r *QuoteRepository) ReplaceItems(ctx context.Context, quote *entity.Quote) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	result, err := exec.ExecContext(ctx, `
		UPDATE quotes SET subtotal = ?, tax = ?, discount = ?, total = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		quote.Subtotal, quote.Tax, quote.Discount, quote.Total, time.Now().UTC(),
		quote.TenantID, quote.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote totals: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return fmt.Errorf("quote %d not found for tenant %d", quote.ID, quote.TenantID)
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, quote.ID); err != nil {
		return fmt.Errorf("failed to delete quote items: %w", err)
	}
	return r.insertItems(ctx, quote)
}

func (r *QuoteRepository) insertItems(ctx context.Context, quote *entity.Quote) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)
	for i, item := range quote.Items {
		if item.Position == 0 {
			item.Position = i + 1
		}
		result, err := exec.ExecContext(ctx, `
			INSERT INTO quote_items (
				quote_id, position, description, quantity, unit_price, total, catalog_item_id
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			quote.ID,
			item.Position,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Total,
			nullableInt64(item.CatalogItemID),
		)
		if err != nil {
			r.logger.Error("Failed to create quote item", zap.Int64("quote_id", quote.ID), zap.Error(err))
			return fmt.Errorf("failed to create quote item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = id
		item.QuoteID = quote.ID
	}
	return nil
}

func (r *QuoteRepository) listItems(ctx context.Context, exec sqlite.Executor, quoteID int64) ([]*entity.QuoteItem, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT id, quote_id, position, description, quantity, unit_price, total, catalog_item_id
		FROM quote_items
		WHERE quote_id = ?
		ORDER BY position, id`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quote items: %w", err)
	}
	defer rows.Close()

	items := make([]*entity.QuoteItem, 0)
	for rows.Next() {
		var item entity.QuoteItem
		var catalog sql.NullInt64
		if err := rows.Scan(
			&item.ID,
			&item.QuoteID,
			&item.Position,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.Total,
			&catalog,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		item.CatalogItemID = int64Ptr(catalog)
		items = append(items, &item)
	}
	return items, rows.Err()
}

func scanQuote(row rowScanner) (*entity.Quote, error) {
	var (
		quote      entity.Quote
		projectID  sql.NullInt64
		customerID sql.NullInt64
		expiry     sql.NullString
	)
	err := row.Scan(
		&quote.ID,
		&quote.TenantID,
		&quote.Number,
		&projectID,
		&customerID,
		&quote.IssueDate,
		&expiry,
		&quote.Status,
		&quote.Subtotal,
		&quote.Tax,
		&quote.Discount,
		&quote.Total,
		&quote.Notes,
		&quote.Terms,
		&quote.CreatedBy,
		&quote.CreatedAt,
		&quote.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	quote.ProjectID = int64Ptr(projectID)
	quote.CustomerID = int64Ptr(customerID)
	quote.ExpiryDate = stringPtr(expiry)
	return &quote, nil
}
