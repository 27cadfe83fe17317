package reconciler

import (
	"fmt"
	"runtime"

	"bank-reconciliation-service/internal/matcher"
	"bank-reconciliation-service/internal/parsers"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	// Proposals below this confidence are dropped by AutoMatch.
	MinConfidence int

	// Parallel matching options. Per-transaction matching is fanned out over
	// MaxWorkers goroutines once the pending set reaches ParallelThreshold.
	MaxWorkers        int
	ParallelThreshold int

	DeduplicateCandidates    bool
	MaxMatchesPerTransaction int

	SummaryWindowDays int

	Import   *parsers.ImportConfig
	Matching *matcher.MatchingConfig
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		MinConfidence:     70,
		MaxWorkers:        runtime.NumCPU(),
		ParallelThreshold: 64,
		SummaryWindowDays: 30,
		Import:            parsers.DefaultImportConfig(),
		Matching:          matcher.DefaultMatchingConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("min confidence must be between 0 and 100, got %d", c.MinConfidence)
	}

	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", c.MaxWorkers)
	}

	if c.ParallelThreshold < 0 {
		return fmt.Errorf("parallel threshold cannot be negative, got %d", c.ParallelThreshold)
	}

	if c.MaxMatchesPerTransaction < 0 {
		return fmt.Errorf("max matches per transaction cannot be negative, got %d", c.MaxMatchesPerTransaction)
	}

	if c.SummaryWindowDays <= 0 {
		return fmt.Errorf("summary window must be positive, got %d days", c.SummaryWindowDays)
	}

	if c.Import == nil {
		return fmt.Errorf("import configuration is required")
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("invalid import configuration: %w", err)
	}

	if c.Matching == nil {
		return fmt.Errorf("matching configuration is required")
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("invalid matching configuration: %w", err)
	}

	return nil
}
