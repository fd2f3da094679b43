package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a billable document, optionally derived from a quote
type Invoice struct {
	ID         int64           `json:"id"`
	TenantID   int64           `json:"tenantId"`
	Number     string          `json:"number"`
	QuoteID    *int64          `json:"quoteId"`
	ProjectID  *int64          `json:"projectId"`
	CustomerID *int64          `json:"customerId"`
	IssueDate  string          `json:"issueDate"`
	DueDate    string          `json:"dueDate"`
	Status     InvoiceStatus   `json:"status"`
	Type       InvoiceType     `json:"type"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Notes      string          `json:"notes"`
	Terms      string          `json:"terms"`
	CreatedBy  int64           `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Items      []*InvoiceItem  `json:"items,omitempty"`
}

// InvoiceItem is one line of an invoice. Items copied from a quote keep
// their values but are stored as independent rows.
type InvoiceItem struct {
	ID            int64           `json:"id"`
	InvoiceID     int64           `json:"invoiceId"`
	Position      int             `json:"position"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Total         decimal.Decimal `json:"total"`
	CatalogItemID *int64          `json:"catalogItemId"`
}

// LineItems returns the item amounts used for totals
func (inv *Invoice) LineItems() []LineAmount {
	lines := make([]LineAmount, len(inv.Items))
	for i, it := range inv.Items {
		lines[i] = LineAmount{Quantity: it.Quantity, UnitPrice: it.UnitPrice, Total: it.Total}
	}
	return lines
}

// CheckTotals verifies the stored money fields against the items
func (inv *Invoice) CheckTotals() error {
	return CheckTotals(inv.LineItems(), inv.Subtotal, inv.Tax, inv.Discount, inv.Total)
}

// IsPastDue reports whether the invoice is unpaid past its due date
func (inv *Invoice) IsPastDue(today string) bool {
	if inv.Status != InvoiceStatusIssued && inv.Status != InvoiceStatusSent {
		return false
	}
	return inv.DueDate < today
}

// NewInvoiceFromQuote builds a final invoice from an accepted quote. Items
// are deep-copied; IDs are left for the repository to assign.
func NewInvoiceFromQuote(q *Quote, number string, issued time.Time, actorID int64) *Invoice {
	inv := &Invoice{
		TenantID:   q.TenantID,
		Number:     number,
		QuoteID:    copyID(&q.ID),
		ProjectID:  copyID(q.ProjectID),
		CustomerID: copyID(q.CustomerID),
		IssueDate:  FormatDate(issued),
		DueDate:    FormatDate(issued.AddDate(0, 0, DefaultPaymentTermDays)),
		Status:     InvoiceStatusIssued,
		Type:       InvoiceTypeFinal,
		Subtotal:   q.Subtotal,
		Tax:        q.Tax,
		Discount:   q.Discount,
		Total:      q.Total,
		Notes:      q.Notes,
		Terms:      q.Terms,
		CreatedBy:  actorID,
		Items:      make([]*InvoiceItem, 0, len(q.Items)),
	}
	for _, it := range q.Items {
		inv.Items = append(inv.Items, &InvoiceItem{
			Position:      it.Position,
			Description:   it.Description,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			Total:         it.Total,
			CatalogItemID: copyID(it.CatalogItemID),
		})
	}
	return inv
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
