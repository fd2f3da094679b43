package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a priced proposal for a project or customer
type Quote struct {
	ID         int64           `json:"id"`
	TenantID   int64           `json:"tenantId"`
	Number     string          `json:"number"`
	ProjectID  *int64          `json:"projectId"`
	CustomerID *int64          `json:"customerId"`
	IssueDate  string          `json:"issueDate"`
	ExpiryDate *string         `json:"expiryDate"`
	Status     QuoteStatus     `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Notes      string          `json:"notes"`
	Terms      string          `json:"terms"`
	CreatedBy  int64           `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Items      []*QuoteItem    `json:"items,omitempty"`
}

// QuoteItem is one priced line of a quote
type QuoteItem struct {
	ID            int64           `json:"id"`
	QuoteID       int64           `json:"quoteId"`
	Position      int             `json:"position"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Total         decimal.Decimal `json:"total"`
	CatalogItemID *int64          `json:"catalogItemId"`
}

// LineItems returns the item amounts used for totals
func (q *Quote) LineItems() []LineAmount {
	lines := make([]LineAmount, len(q.Items))
	for i, it := range q.Items {
		lines[i] = LineAmount{Quantity: it.Quantity, UnitPrice: it.UnitPrice, Total: it.Total}
	}
	return lines
}

// RecomputeTotals refreshes line totals, subtotal and total from the items
func (q *Quote) RecomputeTotals() {
	for _, it := range q.Items {
		it.Total = LineTotal(it.Quantity, it.UnitPrice)
	}
	q.Subtotal = Subtotal(q.LineItems())
	q.Total = GrandTotal(q.Subtotal, q.Tax, q.Discount)
}

// CheckTotals verifies the stored money fields against the items
func (q *Quote) CheckTotals() error {
	return CheckTotals(q.LineItems(), q.Subtotal, q.Tax, q.Discount, q.Total)
}
