package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/domain/event"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

// manualInvoiceTriggers excludes mark_overdue, which only the sweeper fires
var manualInvoiceTriggers = map[domainwf.Trigger]bool{
	domainwf.TriggerIssue:  true,
	domainwf.TriggerSend:   true,
	domainwf.TriggerPay:    true,
	domainwf.TriggerCancel: true,
}

// InvoiceTransition is the result of an invoice status change
type InvoiceTransition struct {
	Invoice  *entity.Invoice `json:"invoice"`
	Warnings []string        `json:"warnings,omitempty"`
}

// InvoiceService reads invoices and manages their lifecycle after creation
type InvoiceService interface {
	GetInvoice(ctx context.Context, scope entity.Scope, id int64) (*entity.Invoice, error)
	TransitionInvoice(ctx context.Context, scope entity.Scope, id int64, trigger domainwf.Trigger) (*InvoiceTransition, error)
	RenderDocument(ctx context.Context, scope entity.Scope, id int64) (*port.Document, error)

	// MarkOverdue moves past-due invoices of every tenant to overdue and
	// returns how many changed
	MarkOverdue(ctx context.Context, today time.Time, limit int) (int, error)
}

type invoiceServiceImpl struct {
	invoiceRepo port.InvoiceRepository
	txManager   port.TransactionManager
	renderer    port.DocumentRenderer
	publisher   *workflow.Publisher
	logger      Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo port.InvoiceRepository,
	txManager port.TransactionManager,
	renderer port.DocumentRenderer,
	publisher *workflow.Publisher,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		renderer:    renderer,
		publisher:   publisher,
		logger:      logger,
	}
}

// GetInvoice returns an invoice with its items
func (s *invoiceServiceImpl) GetInvoice(ctx context.Context, scope entity.Scope, id int64) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, scope.TenantID, id)
	if err != nil {
		s.logger.Error("Failed to get invoice", "error", err, "tenant_id", scope.TenantID, "invoice_id", id)
		return nil, apperror.AsPersistence("get invoice", err)
	}
	if invoice == nil {
		return nil, apperror.NotFound("Invoice", id)
	}
	return invoice, nil
}

// TransitionInvoice fires issue, send, pay or cancel on an invoice
func (s *invoiceServiceImpl) TransitionInvoice(ctx context.Context, scope entity.Scope, id int64, trigger domainwf.Trigger) (*InvoiceTransition, error) {
	if !manualInvoiceTriggers[trigger] {
		return nil, apperror.Validation("Unsupported invoice trigger", map[string]string{"trigger": "oneof"})
	}

	var (
		invoice *entity.Invoice
		from    entity.InvoiceStatus
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.GetInvoice(txCtx, scope, id)
		if err != nil {
			return err
		}
		from = current.Status

		if err := s.move(txCtx, scope.TenantID, current, trigger); err != nil {
			return err
		}

		invoice, err = s.GetInvoice(txCtx, scope, id)
		return err
	})
	if err != nil {
		s.logger.Error("Invoice transition failed", "error", err, "tenant_id", scope.TenantID, "invoice_id", id, "trigger", trigger)
		return nil, apperror.AsPersistence("transition invoice", err)
	}

	warnings := s.publisher.Publish(ctx, statusChanged(ctx, scope, invoice, from, trigger))

	s.logger.Info("Invoice transitioned", "tenant_id", scope.TenantID, "invoice_id", id, "status", invoice.Status)
	return &InvoiceTransition{Invoice: invoice, Warnings: warnings}, nil
}

// RenderDocument renders the invoice workbook on demand
func (s *invoiceServiceImpl) RenderDocument(ctx context.Context, scope entity.Scope, id int64) (*port.Document, error) {
	invoice, err := s.GetInvoice(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.renderer.RenderInvoice(ctx, invoice)
	if err != nil {
		s.logger.Error("Failed to render invoice", "error", err, "tenant_id", scope.TenantID, "invoice_id", id)
		return nil, fmt.Errorf("render invoice %s: %w", invoice.Number, err)
	}
	return doc, nil
}

// MarkOverdue moves issued or sent invoices past their due date to overdue.
// Each invoice changes in its own transaction.
func (s *invoiceServiceImpl) MarkOverdue(ctx context.Context, today time.Time, limit int) (int, error) {
	candidates, err := s.invoiceRepo.ListPastDue(ctx, entity.FormatDate(today.UTC()), limit)
	if err != nil {
		return 0, apperror.AsPersistence("list past due invoices", err)
	}

	marked := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return marked, err
		}

		system := entity.Scope{TenantID: candidate.TenantID}
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return s.move(txCtx, candidate.TenantID, candidate, domainwf.TriggerMarkOverdue)
		})
		if err != nil {
			// a concurrent payment or cancellation wins over the sweep
			s.logger.Warn("Skipping overdue invoice", "error", err, "tenant_id", candidate.TenantID, "invoice_id", candidate.ID)
			continue
		}

		from := candidate.Status
		candidate.Status = entity.InvoiceStatusOverdue
		s.publisher.Publish(ctx, statusChanged(ctx, system, candidate, from, domainwf.TriggerMarkOverdue))
		marked++
	}

	if marked > 0 {
		s.logger.Info("Invoices marked overdue", "count", marked, "today", entity.FormatDate(today.UTC()))
	}
	return marked, nil
}

func (s *invoiceServiceImpl) move(ctx context.Context, tenantID int64, invoice *entity.Invoice, trigger domainwf.Trigger) error {
	machine, err := workflow.BuildInvoiceStateMachine(invoice.Status)
	if err != nil {
		return err
	}
	if err := machine.Fire(ctx, trigger); err != nil {
		return apperror.InvalidState("Invoice", invoice.ID, invoice.Status.String(), "",
			fmt.Sprintf("Cannot %s an invoice in '%s' status", trigger, invoice.Status))
	}

	changed, err := s.invoiceRepo.UpdateStatusIf(ctx, tenantID, invoice.ID, invoice.Status, entity.InvoiceStatus(machine.State()))
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if !changed {
		return apperror.InvalidState("Invoice", invoice.ID, invoice.Status.String(), "",
			"Invoice status changed concurrently, reload and retry")
	}
	return nil
}

func statusChanged(ctx context.Context, scope entity.Scope, invoice *entity.Invoice, from entity.InvoiceStatus, trigger domainwf.Trigger) *event.Event {
	return workflow.NewEvent(ctx, scope, event.TypeInvoiceStatusChanged, invoice.ID, map[string]interface{}{
		"invoice_id":      invoice.ID,
		"number":          invoice.Number,
		"previous_status": from.String(),
		"new_status":      invoice.Status.String(),
		"trigger":         trigger.String(),
	})
}
