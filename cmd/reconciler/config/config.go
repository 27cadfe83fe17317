// Package config builds the CLI application configuration from viper and
// opens the configured record store.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/internal/reporter"
	"bank-reconciliation-service/internal/store"
	"bank-reconciliation-service/internal/store/firestore"
	"bank-reconciliation-service/internal/store/memory"
	"bank-reconciliation-service/internal/store/sqlite"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g.
// RECONCILER_STORE_DRIVER.
const EnvPrefix = "RECONCILER"

// Store drivers
const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// AppConfig is the complete CLI configuration
type AppConfig struct {
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
	Matching MatchingConfig `mapstructure:"matching"`
	Import   ImportConfig   `mapstructure:"import"`
	Summary  SummaryConfig  `mapstructure:"summary"`
}

// StoreConfig selects and configures the record store
type StoreConfig struct {
	Driver    string          `mapstructure:"driver"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type FirestoreConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

type OutputConfig struct {
	Format   string `mapstructure:"format"`
	MaxItems int    `mapstructure:"max_items"`

	// File redirects rendered results to a file instead of stdout.
	File string `mapstructure:"file"`
}

// MatchingConfig carries the matcher tolerances and AutoMatch defaults
type MatchingConfig struct {
	AmountTolerancePercent   float64 `mapstructure:"amount_tolerance_percent"`
	DateToleranceDays        int     `mapstructure:"date_tolerance_days"`
	MinConfidence            int     `mapstructure:"min_confidence"`
	MaxWorkers               int     `mapstructure:"max_workers"`
	ParallelThreshold        int     `mapstructure:"parallel_threshold"`
	DeduplicateCandidates    bool    `mapstructure:"deduplicate_candidates"`
	MaxMatchesPerTransaction int     `mapstructure:"max_matches_per_transaction"`
}

type ImportConfig struct {
	DefaultCurrency string `mapstructure:"default_currency"`
	HasHeader       bool   `mapstructure:"has_header"`
}

type SummaryConfig struct {
	DefaultWindowDays int `mapstructure:"default_window_days"`
}

// SetDefaults registers every key with its default and enables environment
// overrides. Keys must be known to viper for Unmarshal to see env values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite.path", "reconciler.db")
	v.SetDefault("store.firestore.project_id", "")

	v.SetDefault("log.level", string(logger.InfoLevel))
	v.SetDefault("log.format", string(logger.TextFormat))
	v.SetDefault("log.output", string(logger.StderrOutput))
	v.SetDefault("log.file", "")

	v.SetDefault("output.format", string(reporter.FormatConsole))
	v.SetDefault("output.max_items", reporter.DefaultReportConfig().MaxItems)
	v.SetDefault("output.file", "")

	matching := reconciler.DefaultConfig()
	v.SetDefault("matching.amount_tolerance_percent", matching.Matching.AmountTolerancePercent)
	v.SetDefault("matching.date_tolerance_days", matching.Matching.DateToleranceDays)
	v.SetDefault("matching.min_confidence", matching.MinConfidence)
	v.SetDefault("matching.max_workers", runtime.NumCPU())
	v.SetDefault("matching.parallel_threshold", matching.ParallelThreshold)
	v.SetDefault("matching.deduplicate_candidates", false)
	v.SetDefault("matching.max_matches_per_transaction", 0)

	v.SetDefault("import.default_currency", matching.Import.DefaultCurrency)
	v.SetDefault("import.has_header", true)

	v.SetDefault("summary.default_window_days", matching.SummaryWindowDays)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", nil, err).
			WithSuggestion("Check the configuration file syntax and value types")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLite.Path) == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, "store.sqlite.path", c.Store.SQLite.Path, nil)
		}
	case DriverFirestore:
		if strings.TrimSpace(c.Store.Firestore.ProjectID) == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, "store.firestore.project_id", "", nil).
				WithSuggestion("Set store.firestore.project_id or RECONCILER_STORE_FIRESTORE_PROJECT_ID")
		}
	default:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "store.driver", c.Store.Driver,
			fmt.Errorf("unknown store driver: %s", c.Store.Driver)).
			WithSuggestion("Use one of: memory, sqlite, firestore")
	}

	if err := c.LoggerConfig().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", c.Log, err)
	}
	if err := c.ReportConfig().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output", c.Output, err)
	}
	if err := c.ReconcilerConfig().Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "matching", c.Matching, err)
	}
	return nil
}

// ReconcilerConfig builds the service configuration
func (c *AppConfig) ReconcilerConfig() *reconciler.Config {
	cfg := reconciler.DefaultConfig()
	cfg.MinConfidence = c.Matching.MinConfidence
	cfg.MaxWorkers = c.Matching.MaxWorkers
	cfg.ParallelThreshold = c.Matching.ParallelThreshold
	cfg.DeduplicateCandidates = c.Matching.DeduplicateCandidates
	cfg.MaxMatchesPerTransaction = c.Matching.MaxMatchesPerTransaction
	cfg.SummaryWindowDays = c.Summary.DefaultWindowDays

	cfg.Matching.AmountTolerancePercent = c.Matching.AmountTolerancePercent
	cfg.Matching.DateToleranceDays = c.Matching.DateToleranceDays

	cfg.Import.DefaultCurrency = strings.ToUpper(strings.TrimSpace(c.Import.DefaultCurrency))
	cfg.Import.HasHeader = c.Import.HasHeader
	return cfg
}

// LoggerConfig builds the logger configuration
func (c *AppConfig) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.Level(strings.ToLower(c.Log.Level)),
		Format: logger.Format(strings.ToLower(c.Log.Format)),
		Output: logger.Output(strings.ToLower(c.Log.Output)),
		File:   c.Log.File,
	}
}

// ReportConfig builds the reporter configuration
func (c *AppConfig) ReportConfig() *reporter.ReportConfig {
	cfg := reporter.DefaultReportConfig()
	cfg.Format = reporter.OutputFormat(strings.ToLower(c.Output.Format))
	cfg.MaxItems = c.Output.MaxItems
	return cfg
}

// Backend is a store that can also be seeded with payments
type Backend interface {
	store.Store
	store.PaymentWriter
}

// OpenStore opens the configured store
func OpenStore(ctx context.Context, c StoreConfig) (Backend, error) {
	switch c.Driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		st, err := sqlite.New(c.SQLite.Path)
		if err != nil {
			return nil, errors.StoreError(errors.CodeStoreRead, "open sqlite store", err).
				WithContext("path", c.SQLite.Path)
		}
		return st, nil
	case DriverFirestore:
		st, err := firestore.Open(ctx, c.Firestore.ProjectID)
		if err != nil {
			return nil, errors.StoreError(errors.CodeStoreRead, "open firestore store", err).
				WithContext("project_id", c.Firestore.ProjectID)
		}
		return st, nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "store.driver", c.Driver,
			fmt.Errorf("unknown store driver: %s", c.Driver))
	}
}
