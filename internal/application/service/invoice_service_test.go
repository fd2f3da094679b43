package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/application/workflow"
	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

func newTestInvoiceService(invoices *mockInvoiceRepo, renderer port.DocumentRenderer, broadcaster *mockBroadcaster) InvoiceService {
	return NewInvoiceService(invoices, &mockTxManager{}, renderer,
		workflow.NewPublisher(broadcaster, nil, nil), &mockLogger{})
}

func TestInvoiceService_TransitionInvoice(t *testing.T) {
	invoices := &mockInvoiceRepo{invoices: map[int64]*entity.Invoice{
		1: {ID: 1, TenantID: 1, Number: "INV-202506-00001", Status: entity.InvoiceStatusIssued},
	}}
	broadcaster := &mockBroadcaster{}
	svc := newTestInvoiceService(invoices, &mockRenderer{}, broadcaster)

	sent, err := svc.TransitionInvoice(context.Background(), testScope, 1, domainwf.TriggerSend)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusSent, sent.Invoice.Status)

	paid, err := svc.TransitionInvoice(context.Background(), testScope, 1, domainwf.TriggerPay)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Invoice.Status)
	assert.Len(t, broadcaster.names, 2)

	_, err = svc.TransitionInvoice(context.Background(), testScope, 1, domainwf.TriggerCancel)
	var stateErr *apperror.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "paid", stateErr.Current)
}

func TestInvoiceService_TransitionInvoice_SweeperTriggerRefused(t *testing.T) {
	invoices := &mockInvoiceRepo{invoices: map[int64]*entity.Invoice{
		1: {ID: 1, TenantID: 1, Status: entity.InvoiceStatusIssued},
	}}
	svc := newTestInvoiceService(invoices, &mockRenderer{}, &mockBroadcaster{})

	_, err := svc.TransitionInvoice(context.Background(), testScope, 1, domainwf.TriggerMarkOverdue)
	var validation *apperror.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, entity.InvoiceStatusIssued, invoices.invoices[1].Status)
}

func TestInvoiceService_RenderDocument(t *testing.T) {
	invoices := &mockInvoiceRepo{invoices: map[int64]*entity.Invoice{
		1: {ID: 1, TenantID: 1, Number: "INV-202506-00001", Status: entity.InvoiceStatusIssued},
	}}

	t.Run("renders", func(t *testing.T) {
		svc := newTestInvoiceService(invoices, &mockRenderer{}, &mockBroadcaster{})
		doc, err := svc.RenderDocument(context.Background(), testScope, 1)
		require.NoError(t, err)
		assert.Equal(t, "INV-202506-00001.xlsx", doc.FileName)
	})

	t.Run("renderer failure", func(t *testing.T) {
		renderer := &mockRenderer{renderFunc: func(ctx context.Context, invoice *entity.Invoice) (*port.Document, error) {
			return nil, errors.New("excelize: sheet name too long")
		}}
		svc := newTestInvoiceService(invoices, renderer, &mockBroadcaster{})
		_, err := svc.RenderDocument(context.Background(), testScope, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INV-202506-00001")
	})

	t.Run("other tenant", func(t *testing.T) {
		svc := newTestInvoiceService(invoices, &mockRenderer{}, &mockBroadcaster{})
		_, err := svc.RenderDocument(context.Background(), entity.Scope{TenantID: 2}, 1)
		var notFound *apperror.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestInvoiceService_MarkOverdue(t *testing.T) {
	invoices := &mockInvoiceRepo{invoices: map[int64]*entity.Invoice{
		1: {ID: 1, TenantID: 1, Status: entity.InvoiceStatusIssued, DueDate: "2025-05-01"},
		2: {ID: 2, TenantID: 2, Status: entity.InvoiceStatusSent, DueDate: "2025-05-20"},
		3: {ID: 3, TenantID: 1, Status: entity.InvoiceStatusPaid, DueDate: "2025-05-01"},
	}}
	// invoice 3 was paid after the listing was taken
	invoices.pastDue = []*entity.Invoice{
		{ID: 1, TenantID: 1, Status: entity.InvoiceStatusIssued, DueDate: "2025-05-01"},
		{ID: 2, TenantID: 2, Status: entity.InvoiceStatusSent, DueDate: "2025-05-20"},
		{ID: 3, TenantID: 1, Status: entity.InvoiceStatusSent, DueDate: "2025-05-01"},
	}
	broadcaster := &mockBroadcaster{}
	svc := newTestInvoiceService(invoices, &mockRenderer{}, broadcaster)

	marked, err := svc.MarkOverdue(context.Background(), time.Date(2025, time.June, 1, 3, 0, 0, 0, time.UTC), 100)
	require.NoError(t, err)

	assert.Equal(t, 2, marked)
	assert.Equal(t, "2025-06-01", invoices.pastDueToday)
	assert.Equal(t, entity.InvoiceStatusOverdue, invoices.invoices[1].Status)
	assert.Equal(t, entity.InvoiceStatusOverdue, invoices.invoices[2].Status)
	assert.Equal(t, entity.InvoiceStatusPaid, invoices.invoices[3].Status)
	assert.Equal(t, []string{"invoice.status_changed", "invoice.status_changed"}, broadcaster.names)
}
