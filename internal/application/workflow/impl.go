package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/fieldops/internal/application/dispatcher"
	"github.com/garyjia/fieldops/internal/application/port"
	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/domain/event"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Repositories groups the stores the engine writes through
type Repositories struct {
	Quotes        port.QuoteRepository
	History       port.QuoteHistoryRepository
	Surveys       port.SurveyRepository
	Installations port.InstallationRepository
	Invoices      port.InvoiceRepository
	Sequences     port.SequenceRepository
}

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	quotes        port.QuoteRepository
	history       port.QuoteHistoryRepository
	surveys       port.SurveyRepository
	installations port.InstallationRepository
	invoices      port.InvoiceRepository
	sequences     port.SequenceRepository
	txManager     port.TransactionManager

	dispatcher  dispatcher.Dispatcher
	broadcaster port.Broadcaster
	publisher   *Publisher
	logger      Logger
	clock       func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the in-process dispatcher committed events are sent to
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithBroadcaster sets the realtime broadcaster
func WithBroadcaster(b port.Broadcaster) EngineOption {
	return func(e *engineImpl) {
		e.broadcaster = b
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source used for issue dates and history
func WithClock(clock func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// NewEngine creates a new workflow engine
func NewEngine(repos Repositories, txManager port.TransactionManager, opts ...EngineOption) Engine {
	e := &engineImpl{
		quotes:        repos.Quotes,
		history:       repos.History,
		surveys:       repos.Surveys,
		installations: repos.Installations,
		invoices:      repos.Invoices,
		sequences:     repos.Sequences,
		txManager:     txManager,
		logger:        nopLogger{},
		clock:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}
	e.publisher = NewPublisher(e.broadcaster, e.dispatcher, e.logger)

	return e
}

func (e *engineImpl) now() time.Time {
	return e.clock().UTC()
}

func notAccepted(current entity.QuoteStatus) string {
	return "Quote is not in 'accepted' status (current status: '" + current.String() + "')"
}

// ScheduleSurvey creates a survey, booking the linked quote if there is one
func (e *engineImpl) ScheduleSurvey(ctx context.Context, scope entity.Scope, req SurveyRequest) (*SurveyResult, error) {
	date, err := normalizeScheduledDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	status, err := initialVisitStatus(req.Status)
	if err != nil {
		return nil, err
	}

	survey := &entity.Survey{
		TenantID:      scope.TenantID,
		QuoteID:       req.QuoteID,
		ScheduledDate: date,
		TimeWindow:    trimmed(req.TimeWindow),
		Status:        status,
		AssignedTo:    req.AssignedTo,
		Notes:         req.Notes,
		CreatedBy:     scope.ActorID,
	}

	e.logger.Info("Scheduling survey", "tenant_id", scope.TenantID, "quote_id", req.QuoteID)

	var outcome *gateOutcome[*entity.Survey]
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if req.QuoteID == nil {
			projectID, err := resolveProject(nil, req.ProjectID)
			if err != nil {
				return err
			}
			survey.ProjectID = projectID
			return apperror.AsPersistence("create survey", e.surveys.Create(txCtx, survey))
		}

		var err error
		outcome, err = runGated(txCtx, e, scope, *req.QuoteID, gate[*entity.Survey]{
			operation: "create survey",
			trigger:   domainwf.TriggerBookSurvey,
			required:  entity.QuoteStatusAccepted,
			rejection: notAccepted,
			build: func(ctx context.Context, quote *entity.Quote) (*entity.Survey, error) {
				projectID, err := resolveProject(quote.ProjectID, req.ProjectID)
				if err != nil {
					return nil, err
				}
				survey.ProjectID = projectID
				return survey, e.surveys.Create(ctx, survey)
			},
		})
		return err
	})
	if err != nil {
		e.logger.Error("Survey scheduling failed", "tenant_id", scope.TenantID, "quote_id", req.QuoteID, "error", err)
		return nil, apperror.AsPersistence("schedule survey", err)
	}

	// booking has no side effects beyond the two writes
	result := &SurveyResult{Survey: survey}
	if outcome != nil {
		result.Quote = outcome.quote
	}

	e.logger.Info("Survey scheduled", "tenant_id", scope.TenantID, "survey_id", survey.ID, "quote_id", req.QuoteID)
	return result, nil
}

// ScheduleInstallation creates an installation, booking the linked quote if there is one
func (e *engineImpl) ScheduleInstallation(ctx context.Context, scope entity.Scope, req InstallationRequest) (*InstallationResult, error) {
	date, err := normalizeScheduledDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	status, err := initialVisitStatus(req.Status)
	if err != nil {
		return nil, err
	}
	start, end, err := timeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	crew := append([]int64{}, req.AssignedTo...)
	installation := &entity.Installation{
		TenantID:      scope.TenantID,
		QuoteID:       req.QuoteID,
		ScheduledDate: date,
		StartTime:     start,
		EndTime:       end,
		Status:        status,
		AssignedTo:    crew,
		Notes:         req.Notes,
		CreatedBy:     scope.ActorID,
	}

	e.logger.Info("Scheduling installation", "tenant_id", scope.TenantID, "quote_id", req.QuoteID)

	var outcome *gateOutcome[*entity.Installation]
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if req.QuoteID == nil {
			projectID, err := resolveProject(nil, req.ProjectID)
			if err != nil {
				return err
			}
			installation.ProjectID = projectID
			return apperror.AsPersistence("create installation", e.installations.Create(txCtx, installation))
		}

		var err error
		outcome, err = runGated(txCtx, e, scope, *req.QuoteID, gate[*entity.Installation]{
			operation: "create installation",
			trigger:   domainwf.TriggerBookInstallation,
			required:  entity.QuoteStatusAccepted,
			rejection: notAccepted,
			build: func(ctx context.Context, quote *entity.Quote) (*entity.Installation, error) {
				projectID, err := resolveProject(quote.ProjectID, req.ProjectID)
				if err != nil {
					return nil, err
				}
				installation.ProjectID = projectID
				return installation, e.installations.Create(ctx, installation)
			},
		})
		return err
	})
	if err != nil {
		e.logger.Error("Installation scheduling failed", "tenant_id", scope.TenantID, "quote_id", req.QuoteID, "error", err)
		return nil, apperror.AsPersistence("schedule installation", err)
	}

	result := &InstallationResult{Installation: installation}
	if outcome != nil {
		result.Quote = outcome.quote
	}

	e.logger.Info("Installation scheduled", "tenant_id", scope.TenantID, "installation_id", installation.ID, "quote_id", req.QuoteID)
	return result, nil
}

// ConvertQuoteToInvoice issues a final invoice from an accepted quote
func (e *engineImpl) ConvertQuoteToInvoice(ctx context.Context, scope entity.Scope, quoteID int64) (*ConversionResult, error) {
	e.logger.Info("Converting quote to invoice", "tenant_id", scope.TenantID, "quote_id", quoteID)

	var outcome *gateOutcome[*entity.Invoice]
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		outcome, err = runGated(txCtx, e, scope, quoteID, gate[*entity.Invoice]{
			operation: "create invoice",
			trigger:   domainwf.TriggerConvert,
			required:  entity.QuoteStatusAccepted,
			rejection: func(entity.QuoteStatus) string {
				return "Only accepted quotes can be converted to invoices"
			},
			verify: func(quote *entity.Quote) error {
				if err := quote.CheckTotals(); err != nil {
					return apperror.InvalidState("Quote", quote.ID, quote.Status.String(),
						entity.QuoteStatusAccepted.String(), "Quote totals do not match its line items")
				}
				return nil
			},
			build: func(ctx context.Context, quote *entity.Quote) (*entity.Invoice, error) {
				return e.createInvoice(ctx, scope, quote)
			},
		})
		return err
	})
	if err != nil {
		e.logger.Error("Quote conversion failed", "tenant_id", scope.TenantID, "quote_id", quoteID, "error", err)
		return nil, apperror.AsPersistence("convert quote", err)
	}

	invoice := outcome.target
	events := []*event.Event{
		NewEvent(ctx, scope, event.TypeInvoiceCreated, invoice.ID, map[string]interface{}{
			"invoice_id": invoice.ID,
			"number":     invoice.Number,
			"quote_id":   quoteID,
			"total":      invoice.Total.StringFixed(entity.MoneyPlaces),
			"due_date":   invoice.DueDate,
		}),
		e.quoteChanged(ctx, scope, outcome.quote, outcome.from, domainwf.TriggerConvert),
	}
	warnings := e.publisher.Publish(ctx, events...)

	e.logger.Info("Quote converted", "tenant_id", scope.TenantID, "quote_id", quoteID,
		"invoice_id", invoice.ID, "invoice_number", invoice.Number)
	return &ConversionResult{Invoice: invoice, Quote: outcome.quote, Warnings: warnings}, nil
}

func (e *engineImpl) createInvoice(ctx context.Context, scope entity.Scope, quote *entity.Quote) (*entity.Invoice, error) {
	issued := e.now()
	seq, err := e.sequences.Next(ctx, scope.TenantID, entity.SequenceInvoice, entity.SequencePeriod(issued))
	if err != nil {
		return nil, err
	}

	invoice := entity.NewInvoiceFromQuote(quote, entity.DocumentNumber(entity.InvoiceNumberPrefix, issued, seq), issued, scope.ActorID)
	if err := invoice.CheckTotals(); err != nil {
		return nil, err
	}
	if err := e.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// TransitionQuote fires one of ManualQuoteTriggers
func (e *engineImpl) TransitionQuote(ctx context.Context, scope entity.Scope, quoteID int64, trigger domainwf.Trigger) (*QuoteTransitionResult, error) {
	if !ManualQuoteTriggers[trigger] {
		return nil, apperror.Validation("Unsupported quote trigger", map[string]string{"trigger": "oneof"})
	}

	var outcome *gateOutcome[struct{}]
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		outcome, err = runGated(txCtx, e, scope, quoteID, gate[struct{}]{
			operation: "transition quote",
			trigger:   trigger,
		})
		return err
	})
	if err != nil {
		e.logger.Warn("Quote transition refused", "tenant_id", scope.TenantID, "quote_id", quoteID,
			"trigger", trigger, "error", err)
		return nil, apperror.AsPersistence("transition quote", err)
	}

	warnings := e.publisher.Publish(ctx, e.quoteChanged(ctx, scope, outcome.quote, outcome.from, trigger))
	return &QuoteTransitionResult{Quote: outcome.quote, Warnings: warnings}, nil
}

func (e *engineImpl) quoteChanged(ctx context.Context, scope entity.Scope, quote *entity.Quote, from entity.QuoteStatus, trigger domainwf.Trigger) *event.Event {
	return NewEvent(ctx, scope, event.TypeQuoteStatusChanged, quote.ID, map[string]interface{}{
		"quote_id":        quote.ID,
		"number":          quote.Number,
		"previous_status": from.String(),
		"new_status":      quote.Status.String(),
		"trigger":         trigger.String(),
	})
}

func normalizeScheduledDate(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", apperror.Validation("Invalid request", map[string]string{"scheduledDate": "required"})
	}
	date, err := entity.NormalizeDate(value)
	if err != nil {
		return "", apperror.Validation("Invalid request", map[string]string{"scheduledDate": "date"})
	}
	return date, nil
}

func initialVisitStatus(status entity.VisitStatus) (entity.VisitStatus, error) {
	switch status {
	case "":
		return entity.VisitStatusScheduled, nil
	case entity.VisitStatusScheduled, entity.VisitStatusInProgress:
		return status, nil
	default:
		return "", apperror.Validation("Invalid request", map[string]string{"status": "oneof"})
	}
}

func timeWindow(start, end *string) (*string, *string, error) {
	start, end = trimmed(start), trimmed(end)
	if start != nil && !entity.IsClock(*start) {
		return nil, nil, apperror.Validation("Invalid request", map[string]string{"startTime": "clock"})
	}
	if end != nil && !entity.IsClock(*end) {
		return nil, nil, apperror.Validation("Invalid request", map[string]string{"endTime": "clock"})
	}
	if start != nil && end != nil && *end <= *start {
		return nil, nil, apperror.Validation("Invalid request", map[string]string{"endTime": "gtfield"})
	}
	return start, end, nil
}

// resolveProject prefers the quote's project over the requested one
func resolveProject(quoteProject, requested *int64) (int64, error) {
	if quoteProject != nil && *quoteProject > 0 {
		return *quoteProject, nil
	}
	if requested != nil && *requested > 0 {
		return *requested, nil
	}
	return 0, apperror.Validation("A project is required when the quote has none",
		map[string]string{"projectId": "required"})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
