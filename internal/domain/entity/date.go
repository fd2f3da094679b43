package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format
const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeDate converts a date or timestamp string to YYYY-MM-DD.
// Timestamps keep the calendar date of their own offset.
func NormalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", value)
}

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsClock reports whether value is a HH:MM time of day
func IsClock(value string) bool {
	return clockPattern.MatchString(value)
}
