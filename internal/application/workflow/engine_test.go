package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fieldops/internal/domain/apperror"
	"github.com/garyjia/fieldops/internal/domain/entity"
	"github.com/garyjia/fieldops/internal/domain/event"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

var fixedNow = time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)

type engineFixture struct {
	quotes        *mockQuoteRepo
	history       *mockHistoryRepo
	surveys       *mockSurveyRepo
	installations *mockInstallationRepo
	invoices      *mockInvoiceRepo
	sequences     *mockSequenceRepo
	tx            *mockTxManager
	dispatcher    *mockDispatcher
	broadcaster   *mockBroadcaster
	engine        Engine
}

func newEngineFixture(quotes ...*entity.Quote) *engineFixture {
	f := &engineFixture{
		quotes:        newMockQuoteRepo(quotes...),
		history:       &mockHistoryRepo{},
		surveys:       &mockSurveyRepo{},
		installations: &mockInstallationRepo{},
		invoices:      &mockInvoiceRepo{},
		sequences:     &mockSequenceRepo{},
		tx:            &mockTxManager{},
		dispatcher:    &mockDispatcher{},
		broadcaster:   &mockBroadcaster{},
	}
	f.engine = NewEngine(Repositories{
		Quotes:        f.quotes,
		History:       f.history,
		Surveys:       f.surveys,
		Installations: f.installations,
		Invoices:      f.invoices,
		Sequences:     f.sequences,
	}, f.tx,
		WithDispatcher(f.dispatcher),
		WithBroadcaster(f.broadcaster),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *engineFixture) writes() int {
	return f.quotes.updates + len(f.history.changes) + len(f.surveys.surveys) +
		len(f.installations.installations) + len(f.invoices.invoices)
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func newQuote(id, tenantID int64, status entity.QuoteStatus) *entity.Quote {
	q := &entity.Quote{
		ID:        id,
		TenantID:  tenantID,
		Number:    "Q-202506-00001",
		ProjectID: int64Ptr(10),
		IssueDate: "2025-06-01",
		Status:    status,
		Tax:       decimal.NewFromInt(10),
		Discount:  decimal.NewFromInt(5),
		Notes:     "roof survey",
		Terms:     "net 30",
		Items: []*entity.QuoteItem{
			{ID: 1, QuoteID: id, Position: 1, Description: "Panel", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("100.00"), CatalogItemID: int64Ptr(7)},
			{ID: 2, QuoteID: id, Position: 2, Description: "Labour", Quantity: decimal.RequireFromString("1.5"), UnitPrice: decimal.RequireFromString("59.99")},
		},
	}
	q.RecomputeTotals()
	return q
}

var scope = entity.Scope{TenantID: 1, ActorID: 99}

func requireInvalidState(t *testing.T, err error) *apperror.InvalidStateError {
	t.Helper()
	var stateErr *apperror.InvalidStateError
	require.True(t, errors.As(err, &stateErr), "expected InvalidStateError, got %v", err)
	return stateErr
}

func TestScheduleSurvey_AcceptedQuote(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))

	result, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{
		QuoteID:       int64Ptr(1),
		ScheduledDate: "2025-06-15",
		Notes:         "x",
	})
	require.NoError(t, err)

	require.NotNil(t, result.Survey)
	assert.Equal(t, int64(1), *result.Survey.QuoteID)
	assert.Equal(t, "2025-06-15", result.Survey.ScheduledDate)
	assert.Equal(t, entity.VisitStatusScheduled, result.Survey.Status)
	assert.Equal(t, int64(10), result.Survey.ProjectID)
	assert.Equal(t, int64(99), result.Survey.CreatedBy)

	require.NotNil(t, result.Quote)
	assert.Equal(t, entity.QuoteStatusSurveyBooked, result.Quote.Status)

	require.Len(t, f.history.changes, 1)
	change := f.history.changes[0]
	assert.Equal(t, entity.QuoteStatusAccepted, change.FromStatus)
	assert.Equal(t, entity.QuoteStatusSurveyBooked, change.ToStatus)
	assert.Equal(t, "book_survey", change.Trigger)
	assert.Equal(t, int64(99), change.ActorID)

	assert.Empty(t, f.dispatcher.types())
	assert.Empty(t, f.broadcaster.names)
	assert.Equal(t, 1, f.tx.calls)
}

func TestGatedOperations_RejectQuotesNotAccepted(t *testing.T) {
	statuses := []entity.QuoteStatus{
		entity.QuoteStatusDraft,
		entity.QuoteStatusPending,
		entity.QuoteStatusSent,
		entity.QuoteStatusSurveyBooked,
		entity.QuoteStatusInstallationBooked,
		entity.QuoteStatusRejected,
		entity.QuoteStatusConverted,
	}

	operations := map[string]func(f *engineFixture) error{
		"survey": func(f *engineFixture) error {
			_, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{QuoteID: int64Ptr(2), ScheduledDate: "2025-06-15"})
			return err
		},
		"installation": func(f *engineFixture) error {
			_, err := f.engine.ScheduleInstallation(context.Background(), scope, InstallationRequest{QuoteID: int64Ptr(2), ScheduledDate: "2025-06-15"})
			return err
		},
		"conversion": func(f *engineFixture) error {
			_, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 2)
			return err
		},
	}

	for _, status := range statuses {
		for name, op := range operations {
			t.Run(name+"/"+status.String(), func(t *testing.T) {
				f := newEngineFixture(newQuote(2, 1, status))

				err := op(f)
				stateErr := requireInvalidState(t, err)
				assert.Equal(t, status.String(), stateErr.Current)
				assert.Equal(t, "accepted", stateErr.Required)
				assert.Zero(t, f.writes())
				assert.Empty(t, f.dispatcher.types())
				assert.Equal(t, status, f.quotes.quotes[2].Status)
			})
		}
	}
}

func TestScheduleSurvey_DraftQuoteMessage(t *testing.T) {
	f := newEngineFixture(newQuote(2, 1, entity.QuoteStatusDraft))

	_, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{QuoteID: int64Ptr(2), ScheduledDate: "2025-06-15", Notes: "x"})
	stateErr := requireInvalidState(t, err)
	assert.Contains(t, stateErr.Message, "not in 'accepted' status")
}

func TestScheduleSurvey_RetryAfterSuccessFails(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))
	req := SurveyRequest{QuoteID: int64Ptr(1), ScheduledDate: "2025-06-15"}

	_, err := f.engine.ScheduleSurvey(context.Background(), scope, req)
	require.NoError(t, err)

	_, err = f.engine.ScheduleSurvey(context.Background(), scope, req)
	stateErr := requireInvalidState(t, err)
	assert.Equal(t, "survey_booked", stateErr.Current)
	assert.Len(t, f.surveys.surveys, 1)
}

func TestScheduleSurvey_QuoteNotFound(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{QuoteID: int64Ptr(999), ScheduledDate: "2025-06-15"})

	var notFound *apperror.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Quote not found", notFound.Message)
	assert.Zero(t, f.writes())
}

func TestGatedOperations_CrossTenant(t *testing.T) {
	f := newEngineFixture(newQuote(5, 2, entity.QuoteStatusAccepted))

	_, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 5)
	var notFound *apperror.NotFoundError
	require.True(t, errors.As(err, &notFound))

	_, err = f.engine.ScheduleInstallation(context.Background(), scope, InstallationRequest{QuoteID: int64Ptr(5), ScheduledDate: "2025-06-15"})
	require.True(t, errors.As(err, &notFound))

	assert.Equal(t, entity.QuoteStatusAccepted, f.quotes.quotes[5].Status)
	assert.Zero(t, f.writes())
}

func TestScheduleSurvey_WithoutQuote(t *testing.T) {
	f := newEngineFixture()

	result, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{
		ProjectID:     int64Ptr(3),
		ScheduledDate: "2025-06-15T14:00:00Z",
		AssignedTo:    int64Ptr(12),
		TimeWindow:    strPtr(" 09:00-12:00 "),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Quote)
	assert.Equal(t, int64(3), result.Survey.ProjectID)
	assert.Equal(t, "2025-06-15", result.Survey.ScheduledDate)
	assert.Equal(t, "09:00-12:00", *result.Survey.TimeWindow)
	assert.Empty(t, f.dispatcher.types())
}

func TestScheduleSurvey_ProjectResolution(t *testing.T) {
	t.Run("quote project wins over caller project", func(t *testing.T) {
		f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))
		result, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{
			QuoteID: int64Ptr(1), ProjectID: int64Ptr(77), ScheduledDate: "2025-06-15",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), result.Survey.ProjectID)
	})

	t.Run("caller project used when quote has none", func(t *testing.T) {
		q := newQuote(1, 1, entity.QuoteStatusAccepted)
		q.ProjectID = nil
		f := newEngineFixture(q)
		result, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{
			QuoteID: int64Ptr(1), ProjectID: int64Ptr(77), ScheduledDate: "2025-06-15",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(77), result.Survey.ProjectID)
	})

	t.Run("no project anywhere", func(t *testing.T) {
		q := newQuote(1, 1, entity.QuoteStatusAccepted)
		q.ProjectID = nil
		f := newEngineFixture(q)
		_, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{QuoteID: int64Ptr(1), ScheduledDate: "2025-06-15"})

		var validation *apperror.ValidationError
		require.True(t, errors.As(err, &validation))
		assert.Equal(t, "required", validation.Fields["projectId"])
		assert.Equal(t, entity.QuoteStatusAccepted, f.quotes.quotes[1].Status)
		assert.Zero(t, f.writes())
	})

	t.Run("no quote and no project", func(t *testing.T) {
		f := newEngineFixture()
		_, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{ScheduledDate: "2025-06-15"})

		var validation *apperror.ValidationError
		require.True(t, errors.As(err, &validation))
	})
}

func TestScheduleSurvey_InputValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   SurveyRequest
		field string
	}{
		{"missing date", SurveyRequest{ProjectID: int64Ptr(1)}, "scheduledDate"},
		{"bad date", SurveyRequest{ProjectID: int64Ptr(1), ScheduledDate: "15/06/2025"}, "scheduledDate"},
		{"terminal initial status", SurveyRequest{ProjectID: int64Ptr(1), ScheduledDate: "2025-06-15", Status: entity.VisitStatusCompleted}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture()
			_, err := f.engine.ScheduleSurvey(context.Background(), scope, tt.req)

			var validation *apperror.ValidationError
			require.True(t, errors.As(err, &validation))
			assert.Contains(t, validation.Fields, tt.field)
			assert.Zero(t, f.tx.calls)
		})
	}
}

func TestScheduleInstallation_AcceptedQuote(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))

	result, err := f.engine.ScheduleInstallation(context.Background(), scope, InstallationRequest{
		QuoteID:       int64Ptr(1),
		ScheduledDate: "2025-07-01",
		StartTime:     strPtr("08:00"),
		EndTime:       strPtr("16:30"),
		AssignedTo:    []int64{4, 5},
		Status:        entity.VisitStatusScheduled,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.QuoteStatusInstallationBooked, result.Quote.Status)
	assert.Equal(t, []int64{4, 5}, result.Installation.AssignedTo)
	assert.Equal(t, "08:00", *result.Installation.StartTime)
	assert.Equal(t, "16:30", *result.Installation.EndTime)
	assert.Equal(t, "book_installation", f.history.changes[0].Trigger)
	assert.Empty(t, f.dispatcher.types())
	assert.Empty(t, f.broadcaster.names)
}

func TestScheduleInstallation_EmptyCrew(t *testing.T) {
	f := newEngineFixture()

	result, err := f.engine.ScheduleInstallation(context.Background(), scope, InstallationRequest{
		ProjectID:     int64Ptr(3),
		ScheduledDate: "2025-07-01",
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Installation.AssignedTo)
	assert.Empty(t, result.Installation.AssignedTo)
}

func TestScheduleInstallation_TimeWindow(t *testing.T) {
	tests := []struct {
		name       string
		start, end *string
		field      string
	}{
		{"bad start", strPtr("8am"), nil, "startTime"},
		{"bad end", nil, strPtr("25:00"), "endTime"},
		{"end before start", strPtr("14:00"), strPtr("09:00"), "endTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture()
			_, err := f.engine.ScheduleInstallation(context.Background(), scope, InstallationRequest{
				ProjectID: int64Ptr(3), ScheduledDate: "2025-07-01", StartTime: tt.start, EndTime: tt.end,
			})

			var validation *apperror.ValidationError
			require.True(t, errors.As(err, &validation))
			assert.Contains(t, validation.Fields, tt.field)
		})
	}
}

func TestConvertQuoteToInvoice(t *testing.T) {
	source := newQuote(1, 1, entity.QuoteStatusAccepted)
	f := newEngineFixture(source)

	result, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)
	require.NoError(t, err)

	inv := result.Invoice
	assert.Equal(t, "INV-202506-00001", inv.Number)
	assert.Equal(t, entity.InvoiceStatusIssued, inv.Status)
	assert.Equal(t, entity.InvoiceTypeFinal, inv.Type)
	assert.Equal(t, "2025-06-10", inv.IssueDate)
	assert.Equal(t, "2025-07-10", inv.DueDate)
	assert.Equal(t, int64(1), *inv.QuoteID)
	assert.Equal(t, int64(10), *inv.ProjectID)
	assert.Equal(t, "net 30", inv.Terms)
	assert.True(t, source.Total.Equal(inv.Total))
	require.NoError(t, inv.CheckTotals())

	require.Len(t, inv.Items, len(source.Items))
	for i, item := range inv.Items {
		src := source.Items[i]
		assert.Equal(t, src.Description, item.Description)
		assert.True(t, src.Quantity.Equal(item.Quantity))
		assert.True(t, src.UnitPrice.Equal(item.UnitPrice))
		assert.True(t, src.Total.Equal(item.Total))
		assert.Equal(t, src.CatalogItemID, item.CatalogItemID)
		if src.CatalogItemID != nil {
			assert.NotSame(t, src.CatalogItemID, item.CatalogItemID)
		}
	}

	assert.Equal(t, entity.QuoteStatusConverted, result.Quote.Status)
	assert.Equal(t, []event.Type{event.TypeInvoiceCreated, event.TypeQuoteStatusChanged}, f.dispatcher.types())

	_, err = f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)
	stateErr := requireInvalidState(t, err)
	assert.Equal(t, "Only accepted quotes can be converted to invoices", stateErr.Message)
	assert.Equal(t, "converted", stateErr.Current)
	assert.Len(t, f.invoices.invoices, 1)
}

func TestConvertQuoteToInvoice_NumbersAreSequential(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted), newQuote(2, 1, entity.QuoteStatusAccepted))

	first, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)
	require.NoError(t, err)
	second, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 2)
	require.NoError(t, err)

	assert.Equal(t, "INV-202506-00001", first.Invoice.Number)
	assert.Equal(t, "INV-202506-00002", second.Invoice.Number)
}

func TestConvertQuoteToInvoice_TotalsMismatch(t *testing.T) {
	q := newQuote(1, 1, entity.QuoteStatusAccepted)
	q.Total = q.Total.Add(decimal.NewFromInt(1))
	f := newEngineFixture(q)

	_, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)
	stateErr := requireInvalidState(t, err)
	assert.Equal(t, "Quote totals do not match its line items", stateErr.Message)
	assert.Zero(t, f.writes())
}

func TestConvertQuoteToInvoice_InvoiceWriteFails(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))
	f.invoices.createErr = errors.New("disk I/O error")

	_, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)

	var persistence *apperror.PersistenceError
	require.True(t, errors.As(err, &persistence))
	assert.Equal(t, entity.QuoteStatusAccepted, f.quotes.quotes[1].Status)
	assert.Empty(t, f.history.changes)
	assert.Empty(t, f.dispatcher.types())
}

func TestGate_LostRaceReportsCurrentStatus(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))
	f.quotes.beforeUpdate = func(q *entity.Quote) {
		// another request converted the quote first
		q.Status = entity.QuoteStatusConverted
	}

	_, err := f.engine.ScheduleSurvey(context.Background(), scope, SurveyRequest{QuoteID: int64Ptr(1), ScheduledDate: "2025-06-15"})
	stateErr := requireInvalidState(t, err)
	assert.Equal(t, "converted", stateErr.Current)
	assert.Empty(t, f.history.changes)
	assert.Empty(t, f.dispatcher.types())
}

func TestGate_LookupFailureIsPersistenceError(t *testing.T) {
	f := newEngineFixture()
	f.quotes.getErr = errors.New("database is locked")

	_, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)

	var persistence *apperror.PersistenceError
	require.True(t, errors.As(err, &persistence))
}

func TestBroadcastFailureIsAWarning(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))
	f.broadcaster.err = errBroadcastDown

	result, err := f.engine.ConvertQuoteToInvoice(context.Background(), scope, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{WarningBroadcastFailed}, result.Warnings)
	assert.Equal(t, entity.QuoteStatusConverted, result.Quote.Status)
	assert.Len(t, f.dispatcher.types(), 2)
}

func TestTransitionQuote(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusDraft))

	for _, step := range []struct {
		trigger domainwf.Trigger
		want    entity.QuoteStatus
	}{
		{domainwf.TriggerSubmit, entity.QuoteStatusPending},
		{domainwf.TriggerSend, entity.QuoteStatusSent},
		{domainwf.TriggerAccept, entity.QuoteStatusAccepted},
	} {
		result, err := f.engine.TransitionQuote(context.Background(), scope, 1, step.trigger)
		require.NoError(t, err)
		assert.Equal(t, step.want, result.Quote.Status)
	}
	assert.Len(t, f.history.changes, 3)

	_, err := f.engine.TransitionQuote(context.Background(), scope, 1, domainwf.TriggerSubmit)
	stateErr := requireInvalidState(t, err)
	assert.Equal(t, "accepted", stateErr.Current)
	assert.Contains(t, stateErr.Message, "Cannot submit")
}

func TestTransitionQuote_WorkflowTriggersRefused(t *testing.T) {
	f := newEngineFixture(newQuote(1, 1, entity.QuoteStatusAccepted))

	for _, trigger := range []domainwf.Trigger{domainwf.TriggerBookSurvey, domainwf.TriggerBookInstallation, domainwf.TriggerConvert, "archive"} {
		_, err := f.engine.TransitionQuote(context.Background(), scope, 1, trigger)
		var validation *apperror.ValidationError
		require.True(t, errors.As(err, &validation), "trigger %s", trigger)
	}
	assert.Zero(t, f.writes())
}
