package entity

// QuoteStatus is the lifecycle status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft              QuoteStatus = "draft"
	QuoteStatusPending            QuoteStatus = "pending"
	QuoteStatusSent               QuoteStatus = "sent"
	QuoteStatusAccepted           QuoteStatus = "accepted"
	QuoteStatusSurveyBooked       QuoteStatus = "survey_booked"
	QuoteStatusInstallationBooked QuoteStatus = "installation_booked"
	QuoteStatusRejected           QuoteStatus = "rejected"
	QuoteStatusConverted          QuoteStatus = "converted"
)

// VisitStatus is shared by surveys and installations
type VisitStatus string

const (
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInProgress VisitStatus = "in-progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
)

// InvoiceStatus is the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceType distinguishes deposit invoices from final ones
type InvoiceType string

const (
	InvoiceTypeDeposit InvoiceType = "deposit"
	InvoiceTypeFinal   InvoiceType = "final"
)

// DefaultPaymentTermDays is the due-date offset applied on conversion
const DefaultPaymentTermDays = 30

// Sequence scopes for human-readable document numbers
const (
	SequenceQuote   = "quote"
	SequenceInvoice = "invoice"
)

// String returns the string representation of the status
func (s QuoteStatus) String() string { return string(s) }

// String returns the string representation of the status
func (s VisitStatus) String() string { return string(s) }

// String returns the string representation of the status
func (s InvoiceStatus) String() string { return string(s) }

// IsValid reports whether the visit status is a known value
func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitStatusScheduled, VisitStatusInProgress, VisitStatusCompleted, VisitStatusCancelled:
		return true
	default:
		return false
	}
}
