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

const invoiceColumns = `
	id, tenant_id, number, quote_id, project_id, customer_id, issue_date, due_date,
	status, type, subtotal, tax, discount, total, notes, terms, created_by,
	created_at, updated_at`

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the invoice and its items as new rows
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)
	now := time.Now().UTC()

	result, err := exec.ExecContext(ctx, `
		INSERT INTO invoices (
			tenant_id, number, quote_id, project_id, customer_id, issue_date, due_date,
			status, type, subtotal, tax, discount, total, notes, terms, created_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.TenantID,
		invoice.Number,
		nullableInt64(invoice.QuoteID),
		nullableInt64(invoice.ProjectID),
		nullableInt64(invoice.CustomerID),
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Status,
		invoice.Type,
		invoice.Subtotal,
		invoice.Tax,
		invoice.Discount,
		invoice.Total,
		invoice.Notes,
		invoice.Terms,
		invoice.CreatedBy,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice",
			zap.Int64("tenant_id", invoice.TenantID),
			zap.String("number", invoice.Number),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	invoice.ID = id
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	for i, item := range invoice.Items {
		if item.Position == 0 {
			item.Position = i + 1
		}
		res, err := exec.ExecContext(ctx, `
			INSERT INTO invoice_items (
				invoice_id, position, description, quantity, unit_price, total, catalog_item_id
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			invoice.ID,
			item.Position,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Total,
			nullableInt64(item.CatalogItemID),
		)
		if err != nil {
			r.logger.Error("Failed to create invoice item", zap.Int64("invoice_id", invoice.ID), zap.Error(err))
			return fmt.Errorf("failed to create invoice item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = itemID
		item.InvoiceID = invoice.ID
	}

	r.logger.Debug("Invoice created",
		zap.Int64("invoice_id", invoice.ID),
		zap.String("number", invoice.Number),
		zap.Int("items", len(invoice.Items)))
	return nil
}

// GetByID loads an invoice with its items
func (r *InvoiceRepository) GetByID(ctx context.Context, tenantID, id int64) (*entity.Invoice, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	row := exec.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = ? AND id = ?`, tenantID, id)
	invoice, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, invoice_id, position, description, quantity, unit_price, total, catalog_item_id
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY position, id`, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice items: %w", err)
	}
	defer rows.Close()

	invoice.Items = make([]*entity.InvoiceItem, 0)
	for rows.Next() {
		var item entity.InvoiceItem
		var catalog sql.NullInt64
		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.Position,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.Total,
			&catalog,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		item.CatalogItemID = int64Ptr(catalog)
		invoice.Items = append(invoice.Items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice items: %w", err)
	}
	return invoice, nil
}

// UpdateStatusIf changes the status only while it still equals from
func (r *InvoiceRepository) UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.InvoiceStatus) (bool, error) {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE invoices SET status = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND status = ?`,
		to, time.Now().UTC(), tenantID, id, from,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice status",
			zap.Int64("invoice_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update invoice status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListPastDue returns issued or sent invoices due before today
func (r *InvoiceRepository) ListPastDue(ctx context.Context, today string, limit int) ([]*entity.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		WHERE status IN (?, ?) AND due_date < ?
		ORDER BY due_date, id
		LIMIT ?`,
		entity.InvoiceStatusIssued, entity.InvoiceStatusSent, today, limit)
	if err != nil {
		r.logger.Error("Failed to list past due invoices", zap.String("today", today), zap.Error(err))
		return nil, fmt.Errorf("failed to list past due invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*entity.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		inv        entity.Invoice
		quoteID    sql.NullInt64
		projectID  sql.NullInt64
		customerID sql.NullInt64
	)
	if err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.Number,
		&quoteID,
		&projectID,
		&customerID,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Status,
		&inv.Type,
		&inv.Subtotal,
		&inv.Tax,
		&inv.Discount,
		&inv.Total,
		&inv.Notes,
		&inv.Terms,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.QuoteID = int64Ptr(quoteID)
	inv.ProjectID = int64Ptr(projectID)
	inv.CustomerID = int64Ptr(customerID)
	return &inv, nil
}
