package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places money is stored with
const MoneyPlaces = 2

// ErrTotalsMismatch is returned when stored money fields disagree with the items
var ErrTotalsMismatch = errors.New("money totals do not match line items")

var hundred = decimal.NewFromInt(100)

// LineAmount is the money view of a quote or invoice line
type LineAmount struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// LineTotal returns quantity * unitPrice rounded to cents
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(MoneyPlaces)
}

// Subtotal sums the line totals
func Subtotal(lines []LineAmount) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total)
	}
	return sum.Round(MoneyPlaces)
}

// GrandTotal applies a percentage tax rate and an absolute discount:
// subtotal + subtotal*tax/100 - discount
func GrandTotal(subtotal, taxRate, discount decimal.Decimal) decimal.Decimal {
	tax := subtotal.Mul(taxRate).Div(hundred)
	return subtotal.Add(tax).Sub(discount).Round(MoneyPlaces)
}

// CheckTotals verifies line totals, subtotal and total
func CheckTotals(lines []LineAmount, subtotal, taxRate, discount, total decimal.Decimal) error {
	for i, l := range lines {
		if want := LineTotal(l.Quantity, l.UnitPrice); !l.Total.Equal(want) {
			return fmt.Errorf("%w: line %d total %s, expected %s", ErrTotalsMismatch, i+1, l.Total, want)
		}
	}
	if want := Subtotal(lines); !subtotal.Equal(want) {
		return fmt.Errorf("%w: subtotal %s, expected %s", ErrTotalsMismatch, subtotal, want)
	}
	if want := GrandTotal(subtotal, taxRate, discount); !total.Equal(want) {
		return fmt.Errorf("%w: total %s, expected %s", ErrTotalsMismatch, total, want)
	}
	return nil
}
