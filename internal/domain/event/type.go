package event

// Type identifies the type of domain event
type Type string

const (
	TypeQuoteStatusChanged        Type = "quote.status_changed"
	TypeSurveyStatusChanged       Type = "survey.status_changed"
	TypeInstallationStatusChanged Type = "installation.status_changed"
	TypeInvoiceCreated            Type = "invoice.created"
	TypeInvoiceStatusChanged      Type = "invoice.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeQuoteStatusChanged,
		TypeSurveyStatusChanged,
		TypeInstallationStatusChanged,
		TypeInvoiceCreated,
		TypeInvoiceStatusChanged:
		return true
	default:
		return false
	}
}
