package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/fieldops/internal/application/dispatcher"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/domain/event"
)

// Mock implementations

type mockQuoteRepo struct {
	quotes       map[int64]*entity.Quote
	updates      int
	getErr       error
	beforeUpdate func(q *entity.Quote)
}

func newMockQuoteRepo(quotes ...*entity.Quote) *mockQuoteRepo {
	m := &mockQuoteRepo{quotes: make(map[int64]*entity.Quote)}
	for _, q := range quotes {
		m.quotes[q.ID] = q
	}
	return m
}

func (m *mockQuoteRepo) Create(ctx context.Context, quote *entity.Quote) error {
	quote.ID = int64(len(m.quotes) + 1)
	m.quotes[quote.ID] = quote
	return nil
}

func (m *mockQuoteRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Quote, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	q, ok := m.quotes[id]
	if !ok || q.TenantID != tenantID {
		return nil, nil
	}
	return cloneQuote(q), nil
}

func (m *mockQuoteRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.QuoteStatus) (bool, error) {
	q, ok := m.quotes[id]
	if !ok || q.TenantID != tenantID {
		return false, nil
	}
	if m.beforeUpdate != nil {
		m.beforeUpdate(q)
	}
	if q.Status != from {
		return false, nil
	}
	q.Status = to
	m.updates++
	return true, nil
}

func (m *mockQuoteRepo) ReplaceItems(ctx context.Context, quote *entity.Quote) error {
	m.quotes[quote.ID] = cloneQuote(quote)
	return nil
}

func cloneQuote(q *entity.Quote) *entity.Quote {
	cp := *q
	cp.Items = make([]*entity.QuoteItem, len(q.Items))
	for i, it := range q.Items {
		item := *it
		cp.Items[i] = &item
	}
	return &cp
}

type mockHistoryRepo struct {
	changes []*entity.QuoteStatusChange
}

func (m *mockHistoryRepo) Create(ctx context.Context, change *entity.QuoteStatusChange) error {
	change.ID = int64(len(m.changes) + 1)
	m.changes = append(m.changes, change)
	return nil
}

func (m *mockHistoryRepo) ListByQuote(ctx context.Context, tenantID, quoteID int64) ([]*entity.QuoteStatusChange, error) {
	var result []*entity.QuoteStatusChange
	for _, c := range m.changes {
		if c.TenantID == tenantID && c.QuoteID == quoteID {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockSurveyRepo struct {
	surveys []*entity.Survey
}

func (m *mockSurveyRepo) Create(ctx context.Context, survey *entity.Survey) error {
	survey.ID = int64(len(m.surveys) + 1)
	m.surveys = append(m.surveys, survey)
	return nil
}

func (m *mockSurveyRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Survey, error) {
	return nil, nil
}

func (m *mockSurveyRepo) ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Survey, error) {
	return nil, nil
}

func (m *mockSurveyRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	return false, nil
}

type mockInstallationRepo struct {
	installations []*entity.Installation
}

func (m *mockInstallationRepo) Create(ctx context.Context, installation *entity.Installation) error {
	installation.ID = int64(len(m.installations) + 1)
	m.installations = append(m.installations, installation)
	return nil
}

func (m *mockInstallationRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Installation, error) {
	return nil, nil
}

func (m *mockInstallationRepo) ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Installation, error) {
	return nil, nil
}

func (m *mockInstallationRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	return false, nil
}

type mockInvoiceRepo struct {
	invoices  []*entity.Invoice
	createErr error
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if m.createErr != nil {
		return m.createErr
	}
	invoice.ID = int64(len(m.invoices) + 1)
	for i, it := range invoice.Items {
		it.ID = int64(i + 1)
		it.InvoiceID = invoice.ID
	}
	m.invoices = append(m.invoices, invoice)
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.InvoiceStatus) (bool, error) {
	return false, nil
}

func (m *mockInvoiceRepo) ListPastDue(ctx context.Context, today string, limit int) ([]*entity.Invoice, error) {
	return nil, nil
}

type mockSequenceRepo struct {
	counters map[string]int64
}

func (m *mockSequenceRepo) Next(ctx context.Context, tenantID int64, scope, period string) (int64, error) {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	key := fmt.Sprintf("%d/%s/%s", tenantID, scope, period)
	m.counters[key]++
	return m.counters[key], nil
}

type mockTxManager struct {
	beginErr error
	calls    int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx)
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []event.Type
	for _, e := range m.events {
		result = append(result, e.Type)
	}
	return result
}

type mockBroadcaster struct {
	names []string
	err   error
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, eventName string, payload interface{}, tenantID int64) error {
	m.names = append(m.names, eventName)
	return m.err
}

var errBroadcastDown = errors.New("nats: no servers available for connection")
