package service

import (
	"context"
	"sync"

	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/entity"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockQuoteRepo struct {
	quotes       map[int64]*entity.Quote
	createFunc   func(ctx context.Context, quote *entity.Quote) error
	replaceCalls int
}

func (m *mockQuoteRepo) Create(ctx context.Context, quote *entity.Quote) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, quote)
	}
	if m.quotes == nil {
		m.quotes = make(map[int64]*entity.Quote)
	}
	quote.ID = int64(len(m.quotes) + 1)
	m.quotes[quote.ID] = quote
	return nil
}

func (m *mockQuoteRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Quote, error) {
	q, ok := m.quotes[id]
	if !ok || q.TenantID != tenantID {
		return nil, nil
	}
	return q, nil
}

func (m *mockQuoteRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.QuoteStatus) (bool, error) {
	return false, nil
}

func (m *mockQuoteRepo) ReplaceItems(ctx context.Context, quote *entity.Quote) error {
	m.replaceCalls++
	m.quotes[quote.ID] = quote
	return nil
}

type mockHistoryRepo struct {
	changes []*entity.QuoteStatusChange
}

func (m *mockHistoryRepo) Create(ctx context.Context, change *entity.QuoteStatusChange) error {
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

type mockSequenceRepo struct {
	next int64
}

func (m *mockSequenceRepo) Next(ctx context.Context, tenantID int64, scope, period string) (int64, error) {
	m.next++
	return m.next, nil
}

type mockSurveyRepo struct {
	surveys     map[int64]*entity.Survey
	updateCalls int
}

func (m *mockSurveyRepo) Create(ctx context.Context, survey *entity.Survey) error { return nil }

func (m *mockSurveyRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Survey, error) {
	s, ok := m.surveys[id]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockSurveyRepo) ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Survey, error) {
	var result []*entity.Survey
	for _, s := range m.surveys {
		if s.TenantID == tenantID && s.ProjectID == projectID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSurveyRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	s, ok := m.surveys[id]
	if !ok || s.TenantID != tenantID || s.Status != from {
		return false, nil
	}
	m.updateCalls++
	s.Status = to.Status
	s.CompletedBy = to.CompletedBy
	s.CompletedAt = to.CompletedAt
	return true, nil
}

type mockInstallationRepo struct {
	installations map[int64]*entity.Installation
}

func (m *mockInstallationRepo) Create(ctx context.Context, installation *entity.Installation) error {
	return nil
}

func (m *mockInstallationRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Installation, error) {
	i, ok := m.installations[id]
	if !ok || i.TenantID != tenantID {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (m *mockInstallationRepo) ListByProject(ctx context.Context, tenantID, projectID int64) ([]*entity.Installation, error) {
	return nil, nil
}

func (m *mockInstallationRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from entity.VisitStatus, to entity.VisitCompletion) (bool, error) {
	i, ok := m.installations[id]
	if !ok || i.TenantID != tenantID || i.Status != from {
		return false, nil
	}
	i.Status = to.Status
	i.CompletedBy = to.CompletedBy
	i.CompletedAt = to.CompletedAt
	return true, nil
}

type mockInvoiceRepo struct {
	invoices       map[int64]*entity.Invoice
	pastDue        []*entity.Invoice
	pastDueToday   string
	updateStatusFn func(id int64, from, to entity.InvoiceStatus) (bool, error)
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error { return nil }

func (m *mockInvoiceRepo) GetByID(ctx context.Context, tenantID, id int64) (*entity.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) UpdateStatusIf(ctx context.Context, tenantID, id int64, from, to entity.InvoiceStatus) (bool, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(id, from, to)
	}
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	return true, nil
}

func (m *mockInvoiceRepo) ListPastDue(ctx context.Context, today string, limit int) ([]*entity.Invoice, error) {
	m.pastDueToday = today
	return m.pastDue, nil
}

type mockRenderer struct {
	renderFunc func(ctx context.Context, invoice *entity.Invoice) (*port.Document, error)
}

func (m *mockRenderer) RenderInvoice(ctx context.Context, invoice *entity.Invoice) (*port.Document, error) {
	if m.renderFunc != nil {
		return m.renderFunc(ctx, invoice)
	}
	return &port.Document{
		FileName:    invoice.Number + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PK"),
	}, nil
}

type mockStorage struct {
	files map[string][]byte
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.files[path], nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/tmp/" + relativePath
}

type sentMessage struct {
	to      string
	subject string
	body    string
}

type mockMessageSender struct {
	texts   []sentMessage
	emails  []sentMessage
	sendErr error
}

func (m *mockMessageSender) SendText(ctx context.Context, receiveID, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.texts = append(m.texts, sentMessage{to: receiveID, body: text})
	return nil
}

func (m *mockMessageSender) SendEmail(ctx context.Context, recipient, subject, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.emails = append(m.emails, sentMessage{to: recipient, subject: subject, body: body})
	return nil
}

type mockBroadcaster struct {
	names []string
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, eventName string, payload interface{}, tenantID int64) error {
	m.names = append(m.names, eventName)
	return nil
}
