package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
)

var maxTaxRate = decimal.NewFromInt(100)

// LineInput is one requested quote line
type LineInput struct {
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	CatalogItemID *int64
}

// QuoteInput carries the fields of a new quote
type QuoteInput struct {
	ProjectID  *int64
	CustomerID *int64
	IssueDate  string
	ExpiryDate *string
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	Notes      string
	Terms      string
	Items      []LineInput
}

// ItemsInput replaces the lines of a quote. Nil rates keep the stored value.
type ItemsInput struct {
	Tax      *decimal.Decimal
	Discount *decimal.Decimal
	Items    []LineInput
}

// QuoteService manages quotes outside the gated workflow transitions
type QuoteService interface {
	CreateQuote(ctx context.Context, scope entity.Scope, input QuoteInput) (*entity.Quote, error)
	GetQuote(ctx context.Context, scope entity.Scope, id int64) (*entity.Quote, error)
	ReplaceItems(ctx context.Context, scope entity.Scope, id int64, input ItemsInput) (*entity.Quote, error)
	ListHistory(ctx context.Context, scope entity.Scope, id int64) ([]*entity.QuoteStatusChange, error)
}

type quoteServiceImpl struct {
	quoteRepo    port.QuoteRepository
	historyRepo  port.QuoteHistoryRepository
	sequenceRepo port.SequenceRepository
	txManager    port.TransactionManager
	logger       Logger
	now          func() time.Time
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	quoteRepo port.QuoteRepository,
	historyRepo port.QuoteHistoryRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	logger Logger,
) QuoteService {
	return &quoteServiceImpl{
		quoteRepo:    quoteRepo,
		historyRepo:  historyRepo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateQuote stores a draft quote with computed totals and a sequence number
func (s *quoteServiceImpl) CreateQuote(ctx context.Context, scope entity.Scope, input QuoteInput) (*entity.Quote, error) {
	now := s.now().UTC()

	issueDate := entity.FormatDate(now)
	if strings.TrimSpace(input.IssueDate) != "" {
		d, err := entity.NormalizeDate(input.IssueDate)
		if err != nil {
			return nil, apperror.Validation("Invalid request", map[string]string{"issueDate": "date"})
		}
		issueDate = d
	}

	var expiry *string
	if input.ExpiryDate != nil && strings.TrimSpace(*input.ExpiryDate) != "" {
		d, err := entity.NormalizeDate(*input.ExpiryDate)
		if err != nil {
			return nil, apperror.Validation("Invalid request", map[string]string{"expiryDate": "date"})
		}
		if d < issueDate {
			return nil, apperror.Validation("Invalid request", map[string]string{"expiryDate": "gtefield"})
		}
		expiry = &d
	}

	if err := validateRates(input.Tax, input.Discount); err != nil {
		return nil, err
	}
	items, err := buildQuoteItems(input.Items)
	if err != nil {
		return nil, err
	}

	quote := &entity.Quote{
		TenantID:   scope.TenantID,
		ProjectID:  input.ProjectID,
		CustomerID: input.CustomerID,
		IssueDate:  issueDate,
		ExpiryDate: expiry,
		Status:     entity.QuoteStatusDraft,
		Tax:        input.Tax,
		Discount:   input.Discount,
		Notes:      input.Notes,
		Terms:      input.Terms,
		CreatedBy:  scope.ActorID,
		Items:      items,
	}
	quote.RecomputeTotals()
	if err := validateDiscount(quote); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, scope.TenantID, entity.SequenceQuote, entity.SequencePeriod(now))
		if err != nil {
			return fmt.Errorf("next quote number: %w", err)
		}
		quote.Number = entity.DocumentNumber(entity.QuoteNumberPrefix, now, seq)

		if err := s.quoteRepo.Create(txCtx, quote); err != nil {
			return fmt.Errorf("create quote: %w", err)
		}

		change := &entity.QuoteStatusChange{
			TenantID:  scope.TenantID,
			QuoteID:   quote.ID,
			ToStatus:  entity.QuoteStatusDraft,
			Trigger:   "create",
			ActorID:   scope.ActorID,
			CreatedAt: now,
		}
		if err := s.historyRepo.Create(txCtx, change); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create quote", "error", err, "tenant_id", scope.TenantID)
		return nil, apperror.AsPersistence("create quote", err)
	}

	s.logger.Info("Quote created", "tenant_id", scope.TenantID, "quote_id", quote.ID, "number", quote.Number)
	return quote, nil
}

// GetQuote returns a quote with its items
func (s *quoteServiceImpl) GetQuote(ctx context.Context, scope entity.Scope, id int64) (*entity.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		s.logger.Error("Failed to get quote", "error", err, "tenant_id", scope.TenantID, "quote_id", id)
		return nil, apperror.AsPersistence("get quote", err)
	}
	if quote == nil {
		return nil, apperror.NotFound("Quote", id)
	}
	return quote, nil
}

// ReplaceItems swaps the lines of an editable quote and recomputes its totals
func (s *quoteServiceImpl) ReplaceItems(ctx context.Context, scope entity.Scope, id int64, input ItemsInput) (*entity.Quote, error) {
	items, err := buildQuoteItems(input.Items)
	if err != nil {
		return nil, err
	}

	var updated *entity.Quote
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		quote, err := s.quoteRepo.GetByID(txCtx, scope.TenantID, id)
		if err != nil {
			return fmt.Errorf("get quote: %w", err)
		}
		if quote == nil {
			return apperror.NotFound("Quote", id)
		}
		if quote.Status != entity.QuoteStatusDraft && quote.Status != entity.QuoteStatusPending {
			return apperror.InvalidState("Quote", id, quote.Status.String(), entity.QuoteStatusDraft.String(),
				fmt.Sprintf("Only draft or pending quotes can be edited (current status: '%s')", quote.Status))
		}

		if input.Tax != nil {
			quote.Tax = *input.Tax
		}
		if input.Discount != nil {
			quote.Discount = *input.Discount
		}
		if err := validateRates(quote.Tax, quote.Discount); err != nil {
			return err
		}

		for _, it := range items {
			it.QuoteID = quote.ID
		}
		quote.Items = items
		quote.RecomputeTotals()
		if err := validateDiscount(quote); err != nil {
			return err
		}

		if err := s.quoteRepo.ReplaceItems(txCtx, quote); err != nil {
			return fmt.Errorf("replace items: %w", err)
		}

		updated, err = s.quoteRepo.GetByID(txCtx, scope.TenantID, id)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to replace quote items", "error", err, "tenant_id", scope.TenantID, "quote_id", id)
		return nil, apperror.AsPersistence("replace quote items", err)
	}

	s.logger.Info("Quote items replaced", "tenant_id", scope.TenantID, "quote_id", id, "items", len(items))
	return updated, nil
}

// ListHistory returns the status changes of a quote, oldest first
func (s *quoteServiceImpl) ListHistory(ctx context.Context, scope entity.Scope, id int64) ([]*entity.QuoteStatusChange, error) {
	if _, err := s.GetQuote(ctx, scope, id); err != nil {
		return nil, err
	}
	changes, err := s.historyRepo.ListByQuote(ctx, scope.TenantID, id)
	if err != nil {
		return nil, apperror.AsPersistence("list quote history", err)
	}
	return changes, nil
}

func buildQuoteItems(lines []LineInput) ([]*entity.QuoteItem, error) {
	if len(lines) == 0 {
		return nil, apperror.Validation("Invalid request", map[string]string{"items": "min"})
	}

	fields := make(map[string]string)
	items := make([]*entity.QuoteItem, 0, len(lines))
	for i, line := range lines {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(line.Description) == "" {
			fields[prefix+"description"] = "required"
		}
		if !line.Quantity.IsPositive() {
			fields[prefix+"quantity"] = "gt"
		}
		if line.UnitPrice.IsNegative() {
			fields[prefix+"unitPrice"] = "gte"
		}
		items = append(items, &entity.QuoteItem{
			Position:      i + 1,
			Description:   strings.TrimSpace(line.Description),
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			CatalogItemID: line.CatalogItemID,
		})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("Invalid request", fields)
	}
	return items, nil
}

func validateRates(tax, discount decimal.Decimal) error {
	fields := make(map[string]string)
	if tax.IsNegative() || tax.GreaterThan(maxTaxRate) {
		fields["tax"] = "range"
	}
	if discount.IsNegative() {
		fields["discount"] = "gte"
	}
	if len(fields) > 0 {
		return apperror.Validation("Invalid request", fields)
	}
	return nil
}

// validateDiscount keeps the discount within the recomputed subtotal
func validateDiscount(quote *entity.Quote) error {
	if quote.Discount.GreaterThan(quote.Subtotal) {
		return apperror.Validation("Invalid request", map[string]string{"discount": "ltefield"})
	}
	return nil
}
