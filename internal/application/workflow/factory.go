package workflow

import (
	"fmt"

	"github.com/garyjia/fieldops/internal/domain/entity"
	domainwf "github.com/garyjia/fieldops/internal/domain/workflow"
)

// Definitions are built once; Build copies them into independent machines.
var (
	quoteDefinition   = newQuoteDefinition()
	visitDefinition   = newVisitDefinition()
	invoiceDefinition = newInvoiceDefinition()
)

func newQuoteDefinition() domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder(domainwf.NewStateSet(
		st(entity.QuoteStatusDraft),
		st(entity.QuoteStatusPending),
		st(entity.QuoteStatusSent),
		st(entity.QuoteStatusAccepted),
		st(entity.QuoteStatusSurveyBooked),
		st(entity.QuoteStatusInstallationBooked),
		st(entity.QuoteStatusRejected),
		st(entity.QuoteStatusConverted),
	))

	builder.Configure(st(entity.QuoteStatusDraft)).
		Permit(domainwf.TriggerSubmit, st(entity.QuoteStatusPending))

	builder.Configure(st(entity.QuoteStatusPending)).
		Permit(domainwf.TriggerSend, st(entity.QuoteStatusSent))

	builder.Configure(st(entity.QuoteStatusSent)).
		Permit(domainwf.TriggerAccept, st(entity.QuoteStatusAccepted))

	builder.Configure(st(entity.QuoteStatusAccepted)).
		Permit(domainwf.TriggerBookSurvey, st(entity.QuoteStatusSurveyBooked)).
		Permit(domainwf.TriggerBookInstallation, st(entity.QuoteStatusInstallationBooked)).
		Permit(domainwf.TriggerConvert, st(entity.QuoteStatusConverted)).
		Permit(domainwf.TriggerReject, st(entity.QuoteStatusRejected))

	builder.Configure(st(entity.QuoteStatusSurveyBooked)).
		Permit(domainwf.TriggerBookInstallation, st(entity.QuoteStatusInstallationBooked)).
		Permit(domainwf.TriggerConvert, st(entity.QuoteStatusConverted))

	builder.Configure(st(entity.QuoteStatusInstallationBooked)).
		Permit(domainwf.TriggerConvert, st(entity.QuoteStatusConverted))

	// rejected and converted are terminal

	return builder
}

func newVisitDefinition() domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder(domainwf.NewStateSet(
		st(entity.VisitStatusScheduled),
		st(entity.VisitStatusInProgress),
		st(entity.VisitStatusCompleted),
		st(entity.VisitStatusCancelled),
	))

	builder.Configure(st(entity.VisitStatusScheduled)).
		Permit(domainwf.TriggerStart, st(entity.VisitStatusInProgress)).
		Permit(domainwf.TriggerCancel, st(entity.VisitStatusCancelled))

	builder.Configure(st(entity.VisitStatusInProgress)).
		Permit(domainwf.TriggerComplete, st(entity.VisitStatusCompleted)).
		Permit(domainwf.TriggerCancel, st(entity.VisitStatusCancelled))

	return builder
}

func newInvoiceDefinition() domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder(domainwf.NewStateSet(
		st(entity.InvoiceStatusDraft),
		st(entity.InvoiceStatusIssued),
		st(entity.InvoiceStatusSent),
		st(entity.InvoiceStatusPaid),
		st(entity.InvoiceStatusOverdue),
		st(entity.InvoiceStatusCancelled),
	))

	builder.Configure(st(entity.InvoiceStatusDraft)).
		Permit(domainwf.TriggerIssue, st(entity.InvoiceStatusIssued)).
		Permit(domainwf.TriggerCancel, st(entity.InvoiceStatusCancelled))

	builder.Configure(st(entity.InvoiceStatusIssued)).
		Permit(domainwf.TriggerSend, st(entity.InvoiceStatusSent)).
		Permit(domainwf.TriggerPay, st(entity.InvoiceStatusPaid)).
		Permit(domainwf.TriggerMarkOverdue, st(entity.InvoiceStatusOverdue)).
		Permit(domainwf.TriggerCancel, st(entity.InvoiceStatusCancelled))

	builder.Configure(st(entity.InvoiceStatusSent)).
		Permit(domainwf.TriggerPay, st(entity.InvoiceStatusPaid)).
		Permit(domainwf.TriggerMarkOverdue, st(entity.InvoiceStatusOverdue)).
		Permit(domainwf.TriggerCancel, st(entity.InvoiceStatusCancelled))

	builder.Configure(st(entity.InvoiceStatusOverdue)).
		Permit(domainwf.TriggerPay, st(entity.InvoiceStatusPaid)).
		Permit(domainwf.TriggerCancel, st(entity.InvoiceStatusCancelled))

	return builder
}

// BuildQuoteStateMachine creates a quote machine positioned at status
func BuildQuoteStateMachine(status entity.QuoteStatus) (domainwf.StateMachine, error) {
	return build(quoteDefinition, st(status), "quote")
}

// BuildVisitStateMachine creates a survey/installation machine positioned at status
func BuildVisitStateMachine(status entity.VisitStatus) (domainwf.StateMachine, error) {
	return build(visitDefinition, st(status), "visit")
}

// BuildInvoiceStateMachine creates an invoice machine positioned at status
func BuildInvoiceStateMachine(status entity.InvoiceStatus) (domainwf.StateMachine, error) {
	return build(invoiceDefinition, st(status), "invoice")
}

func build(def domainwf.StateMachineBuilder, state domainwf.State, kind string) (domainwf.StateMachine, error) {
	if !def.Valid(state) {
		return nil, fmt.Errorf("%w: unknown %s status %q", domainwf.ErrInvalidState, kind, state)
	}
	return def.Build(state), nil
}

func st[S ~string](status S) domainwf.State {
	return domainwf.State(status)
}
