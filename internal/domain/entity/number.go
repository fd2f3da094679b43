package entity

import (
	"fmt"
	"time"
)

// Number prefixes for generated documents
const (
	QuoteNumberPrefix   = "Q"
	InvoiceNumberPrefix = "INV"
)

// SequencePeriod returns the counter period a document issued at t belongs to
func SequencePeriod(t time.Time) string {
	return t.UTC().Format("200601")
}

// DocumentNumber formats a human-readable number such as INV-202506-00042
func DocumentNumber(prefix string, issued time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, SequencePeriod(issued), seq)
}
