package entity

import (
	"testing"
	"time"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-06-15", "2025-06-15", false},
		{" 2025-06-15 ", "2025-06-15", false},
		{"2025-06-15T00:00:00.000Z", "2025-06-15", false},
		{"2025-06-15T23:30:00+02:00", "2025-06-15", false},
		{"2025-06-15 08:00:00", "2025-06-15", false},
		{"15/06/2025", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsClock(t *testing.T) {
	for _, v := range []string{"00:00", "08:30", "23:59"} {
		if !IsClock(v) {
			t.Errorf("IsClock(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"24:00", "8:30", "08:60", "noon"} {
		if IsClock(v) {
			t.Errorf("IsClock(%q) = true, want false", v)
		}
	}
}

func TestDocumentNumber(t *testing.T) {
	issued := time.Date(2025, time.June, 15, 23, 0, 0, 0, time.UTC)
	if got := DocumentNumber(InvoiceNumberPrefix, issued, 42); got != "INV-202506-00042" {
		t.Errorf("DocumentNumber() = %q", got)
	}
	if got := DocumentNumber(QuoteNumberPrefix, issued, 123456); got != "Q-202506-123456" {
		t.Errorf("DocumentNumber() = %q", got)
	}
}
