package service

import (
	"context"
	"fmt"
	"path"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/event"
)

// DocumentArchiver stores a rendered copy of every issued invoice
type DocumentArchiver interface {
	ArchiveInvoice(ctx context.Context, evt *event.Event) error
}

type documentArchiverImpl struct {
	invoiceRepo port.InvoiceRepository
	renderer    port.DocumentRenderer
	storage     port.FileStorage
	logger      Logger
}

// NewDocumentArchiver creates a new DocumentArchiver
func NewDocumentArchiver(
	invoiceRepo port.InvoiceRepository,
	renderer port.DocumentRenderer,
	storage port.FileStorage,
	logger Logger,
) DocumentArchiver {
	return &documentArchiverImpl{
		invoiceRepo: invoiceRepo,
		renderer:    renderer,
		storage:     storage,
		logger:      logger,
	}
}

// ArchivePath is where the document of an invoice is stored
func ArchivePath(tenantID int64, fileName string) string {
	return path.Join("invoices", fmt.Sprintf("%d", tenantID), fileName)
}

// ArchiveInvoice renders the invoice named by an invoice.created event and saves it
func (a *documentArchiverImpl) ArchiveInvoice(ctx context.Context, evt *event.Event) error {
	invoice, err := a.invoiceRepo.GetByID(ctx, evt.TenantID, evt.EntityID)
	if err != nil {
		return fmt.Errorf("get invoice: %w", err)
	}
	if invoice == nil {
		return fmt.Errorf("invoice %d not found for tenant %d", evt.EntityID, evt.TenantID)
	}

	doc, err := a.renderer.RenderInvoice(ctx, invoice)
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", invoice.Number, err)
	}

	target := ArchivePath(invoice.TenantID, doc.FileName)
	if err := a.storage.Save(ctx, target, doc.Content); err != nil {
		return fmt.Errorf("save invoice document: %w", err)
	}

	a.logger.Info("Invoice document archived",
		"tenant_id", invoice.TenantID,
		"invoice_id", invoice.ID,
		"path", target,
		"size", len(doc.Content),
	)
	return nil
}
