package port

import (
	"context"

	"github.com/garyjia/fieldops/internal/domain/entity"
)

// Every lookup below is scoped by tenant. GetByID returns (nil, nil) when
// the row is absent or belongs to another tenant.

// QuoteRepository defines persistence operations for Quote and its items
type QuoteRepository interface {
	// Create inserts the quote and its items
	Create(ctx context.Context, quote *entity.Quote) error

	// GetByID loads a quote with its items
	GetByID(ctx context.Context, tenantID, id int64) (*entity.Quote, error)

	// UpdateStatusIf moves the quote from one status to another only if it
	// is still in the expected status. It reports whether a row changed.
	UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.QuoteStatus) (bool, error)

	// ReplaceItems swaps the item rows and stores the recomputed money fields
	ReplaceItems(ctx context.Context, quote *entity.Quote) error
}

// QuoteHistoryRepository records quote status changes
type QuoteHistoryRepository interface {
	Create(ctx context.Context, change *entity.QuoteStatusChange) error
	ListByQuote(ctx context.Context, tenantID, quoteID int64) ([]*entity.QuoteStatusChange, error)
}

// SurveyRepository defines persistence operations for Survey
type SurveyRepository interface {
	Create(ctx context.Context, survey *entity.Survey) error
	GetByID(ctx context.Context, tenantID, id int64) (*entity.Survey, error)
	ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Survey, error)
	UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error)
}

// InstallationRepository defines persistence operations for Installation
type InstallationRepository interface {
	Create(ctx context.Context, installation *entity.Installation) error
	GetByID(ctx context.Context, tenantID, id int64) (*entity.Installation, error)
	ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Installation, error)
	UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error)
}

// InvoiceRepository defines persistence operations for Invoice and its items
type InvoiceRepository interface {
	// Create inserts the invoice and its items as new rows
	Create(ctx context.Context, invoice *entity.Invoice) error

	// GetByID loads an invoice with its items
	GetByID(ctx context.Context, tenantID, id int64) (*entity.Invoice, error)

	// UpdateStatusIf is the invoice counterpart of QuoteRepository.UpdateStatusIf
	UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.InvoiceStatus) (bool, error)

	// ListPastDue returns issued or sent invoices of every tenant whose due
	// date is before today, without items
	ListPastDue(ctx context.Context, today string, limit int) ([]*entity.Invoice, error)
}

// SequenceRepository hands out gap-free per-tenant document numbers
type SequenceRepository interface {
	// Next increments and returns the counter for (tenant, scope, period)
	Next(ctx context.Context, tenantID int64, scope, period string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
