// Package matcher provides the bank transaction matching engine and its configuration.
//
// The engine compares one bank transaction against a pool of payments and
// returns scored candidates. It performs no I/O and holds no mutable state,
// so it can be called concurrently for independent bank transactions.
//
// Strategies:
//   - reference: case-insensitive equality of the bank reference with a
//     payment reference or agreement number
//   - amount: payment amount within a percentage of the bank amount
//   - date: payment date within a number of calendar days
//   - combined: all three in that order; a date hit is only emitted for a
//     payment no earlier strategy already produced
//
// Example usage:
//
//	engine := matcher.NewMatchingEngine(matcher.DefaultMatchingConfig())
//	candidates, err := engine.FindMatches(txn, payments, matcher.StrategyCombined)
package matcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bank-reconciliation-service/internal/models"
)

// Strategy selects which matching rules the engine applies.
type Strategy string

const (
	StrategyReference Strategy = "reference"
	StrategyAmount    Strategy = "amount"
	StrategyDate      Strategy = "date"
	StrategyCombined  Strategy = "combined"
)

// ParseStrategy converts a user-supplied name into a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyReference, StrategyAmount, StrategyDate, StrategyCombined:
		return st, nil
	case "":
		return StrategyCombined, nil
	default:
		return "", fmt.Errorf("unknown match strategy '%s' (valid: reference, amount, date, combined)", s)
	}
}

// TimezoneMode defines how instants are reduced to calendar dates before the
// date window is applied.
type TimezoneMode int

const (
	// TimezoneIgnore uses the calendar date as recorded on each side.
	TimezoneIgnore TimezoneMode = iota

	// TimezoneUTC converts both instants to UTC first.
	TimezoneUTC

	// TimezoneBusiness converts both instants to BusinessTimezone first.
	TimezoneBusiness
)

// String returns the string representation of TimezoneMode
func (tm TimezoneMode) String() string {
	switch tm {
	case TimezoneIgnore:
		return "Ignore"
	case TimezoneUTC:
		return "UTC"
	case TimezoneBusiness:
		return "Business"
	default:
		return "Unknown"
	}
}

// MatchingConfig holds the tolerances and confidence scores used by the engine.
type MatchingConfig struct {
	// AmountTolerancePercent is the amount window as a percentage of the absolute bank amount
	AmountTolerancePercent float64 `json:"amount_tolerance_percent"`

	// DateToleranceDays is the date window in calendar days, inclusive
	DateToleranceDays int `json:"date_tolerance_days"`

	TimezoneHandling TimezoneMode `json:"timezone_handling"`
	BusinessTimezone string       `json:"business_timezone"`

	Confidence ConfidenceScores `json:"confidence"`
}

// ConfidenceScores are the fixed scores each rule assigns, 0 to 100.
type ConfidenceScores struct {
	Reference       int `json:"reference"`
	ExactAmount     int `json:"exact_amount"`
	ToleranceAmount int `json:"tolerance_amount"`
	Date            int `json:"date"`
}

// Validate checks that every score is within 0..100
func (cs ConfidenceScores) Validate() error {
	scores := map[string]int{
		"reference":        cs.Reference,
		"exact_amount":     cs.ExactAmount,
		"tolerance_amount": cs.ToleranceAmount,
		"date":             cs.Date,
	}
	for name, score := range scores {
		if score < 0 || score > 100 {
			return fmt.Errorf("%s confidence must be between 0 and 100: %d", name, score)
		}
	}
	return nil
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		AmountTolerancePercent: 5.0,
		DateToleranceDays:      3,
		TimezoneHandling:       TimezoneIgnore,
		BusinessTimezone:       "UTC",
		Confidence: ConfidenceScores{
			Reference:       100,
			ExactAmount:     100,
			ToleranceAmount: 90,
			Date:            60,
		},
	}
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", mc.DateToleranceDays)
	}

	if mc.AmountTolerancePercent < 0.0 || mc.AmountTolerancePercent > 100.0 {
		return fmt.Errorf("amount tolerance percent must be between 0.0 and 100.0: %f", mc.AmountTolerancePercent)
	}

	if err := mc.Confidence.Validate(); err != nil {
		return fmt.Errorf("invalid confidence scores: %w", err)
	}

	if mc.TimezoneHandling == TimezoneBusiness {
		if _, err := time.LoadLocation(mc.BusinessTimezone); err != nil {
			return fmt.Errorf("invalid business timezone '%s': %w", mc.BusinessTimezone, err)
		}
	}

	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}
	clone := *mc
	return &clone
}

// GetAmountTolerance returns the absolute tolerance for a bank amount. The
// result is not rounded, so the window is exactly the configured share.
func (mc *MatchingConfig) GetAmountTolerance(amount decimal.Decimal) decimal.Decimal {
	if mc.AmountTolerancePercent == 0.0 {
		return decimal.Zero
	}

	percentage := decimal.NewFromFloat(mc.AmountTolerancePercent).Div(decimal.NewFromInt(100))
	return amount.Abs().Mul(percentage)
}

// IsWithinDateTolerance checks if two instants fall within the configured
// number of calendar days of each other, bounds included.
func (mc *MatchingConfig) IsWithinDateTolerance(a, b time.Time) bool {
	return models.CompareDatesWithTolerance(mc.NormalizeTime(a), mc.NormalizeTime(b), mc.DateToleranceDays)
}

// NormalizeTime normalizes time according to the timezone handling configuration
func (mc *MatchingConfig) NormalizeTime(t time.Time) time.Time {
	switch mc.TimezoneHandling {
	case TimezoneUTC:
		return t.UTC()
	case TimezoneBusiness:
		if loc, err := time.LoadLocation(mc.BusinessTimezone); err == nil {
			return t.In(loc)
		}
		return t.UTC()
	default:
		return t
	}
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{AmountTolerance: %.2f%%, DateTolerance: %d days, Timezone: %s}",
		mc.AmountTolerancePercent, mc.DateToleranceDays, mc.TimezoneHandling.String())
}
