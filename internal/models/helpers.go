package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical ISO date layout used in output and flags.
const DateLayout = "2006-01-02"

// importDateFormats pairs the shape check for each accepted import date
// format with the layout handed to time.Parse.
var importDateFormats = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), "02/01/2006"},
	{regexp.MustCompile(`^\d{8}$`), "20060102"},
}

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseImportDate accepts YYYY-MM-DD, DD/MM/YYYY and YYYYMMDD. The string
// must match one of the shapes before it is parsed, so partial or padded
// values are rejected rather than guessed at. The result is midnight UTC.
func ParseImportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	for _, f := range importDateFormats {
		if !f.pattern.MatchString(s) {
			continue
		}
		t, err := time.ParseInLocation(f.layout, s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, err)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unsupported date format '%s'", s)
}

// NormalizeReference lowercases and trims a reference number for comparison.
func NormalizeReference(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// TruncateToDay returns midnight UTC of t's calendar date.
func TruncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CompareDatesWithTolerance reports whether the calendar dates of a and b are
// at most toleranceDays apart.
func CompareDatesWithTolerance(a, b time.Time, toleranceDays int) bool {
	diff := TruncateToDay(a).Sub(TruncateToDay(b))
	if diff < 0 {
		diff = -diff
	}

	maxDiff := time.Duration(toleranceDays) * 24 * time.Hour
	return diff <= maxDiff
}

// EndOfDay returns the last representable instant of t's calendar date in UTC.
func EndOfDay(t time.Time) time.Time {
	return TruncateToDay(t).Add(24*time.Hour - time.Nanosecond)
}
