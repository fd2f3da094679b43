package workflow

import (
	"context"

	"github.com/garyjia/fieldops/internal/domain/entity"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

// WarningBroadcastFailed is reported when a committed change could not be
// pushed to realtime subscribers
const WarningBroadcastFailed = "broadcast_failed"

// Engine runs the status-gated transitions that move a quote through
// survey, installation and invoicing
type Engine interface {
	// ScheduleSurvey creates a survey and, when linked to a quote, books it
	ScheduleSurvey(ctx context.Context, scope entity.Scope, req SurveyRequest) (*SurveyResult, error)

	// ScheduleInstallation creates an installation and, when linked to a quote, books it
	ScheduleInstallation(ctx context.Context, scope entity.Scope, req InstallationRequest) (*InstallationResult, error)

	// ConvertQuoteToInvoice turns an accepted quote into an issued final invoice
	ConvertQuoteToInvoice(ctx context.Context, scope entity.Scope, quoteID int64) (*ConversionResult, error)

	// TransitionQuote fires a manual lifecycle trigger on a quote
	TransitionQuote(ctx context.Context, scope entity.Scope, quoteID int64, trigger domainwf.Trigger) (*QuoteTransitionResult, error)
}

// SurveyRequest carries the inputs of ScheduleSurvey
type SurveyRequest struct {
	QuoteID       *int64
	ProjectID     *int64
	ScheduledDate string
	TimeWindow    *string
	AssignedTo    *int64
	Status        entity.VisitStatus
	Notes         string
}

// InstallationRequest carries the inputs of ScheduleInstallation
type InstallationRequest struct {
	QuoteID       *int64
	ProjectID     *int64
	ScheduledDate string
	StartTime     *string
	EndTime       *string
	AssignedTo    []int64
	Status        entity.VisitStatus
	Notes         string
}

// SurveyResult is returned by ScheduleSurvey. Quote is nil when the survey
// is not linked to a quote.
type SurveyResult struct {
	Survey *entity.Survey `json:"survey"`
	Quote  *entity.Quote  `json:"quote"`
}

// InstallationResult is returned by ScheduleInstallation
type InstallationResult struct {
	Installation *entity.Installation `json:"installation"`
	Quote        *entity.Quote        `json:"quote"`
}

// ConversionResult is returned by ConvertQuoteToInvoice
type ConversionResult struct {
	Invoice  *entity.Invoice
	Quote    *entity.Quote
	Warnings []string
}

// QuoteTransitionResult is returned by TransitionQuote
type QuoteTransitionResult struct {
	Quote    *entity.Quote `json:"quote"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ManualQuoteTriggers are the quote triggers a caller may fire directly.
// The booking and conversion triggers belong to the gated operations.
var ManualQuoteTriggers = map[domainwf.Trigger]bool{
	domainwf.TriggerSubmit: true,
	domainwf.TriggerSend:   true,
	domainwf.TriggerAccept: true,
	domainwf.TriggerReject: true,
}
