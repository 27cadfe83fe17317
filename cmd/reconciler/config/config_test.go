package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"bank-reconciliation-service/internal/reporter"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}

	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("expected driver %s, got %s", DriverSQLite, cfg.Store.Driver)
	}
	if cfg.Matching.AmountTolerancePercent != 5 {
		t.Errorf("expected amount tolerance 5, got %v", cfg.Matching.AmountTolerancePercent)
	}
	if cfg.Matching.DateToleranceDays != 3 {
		t.Errorf("expected date tolerance 3, got %d", cfg.Matching.DateToleranceDays)
	}
	if cfg.Matching.MinConfidence != 70 {
		t.Errorf("expected min confidence 70, got %d", cfg.Matching.MinConfidence)
	}
	if cfg.Import.DefaultCurrency != "QAR" {
		t.Errorf("expected currency QAR, got %s", cfg.Import.DefaultCurrency)
	}
	if !cfg.Import.HasHeader {
		t.Error("expected has_header to default to true")
	}
	if cfg.Summary.DefaultWindowDays != 30 {
		t.Errorf("expected window 30, got %d", cfg.Summary.DefaultWindowDays)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.yaml")
	content := `store:
  driver: memory
matching:
  amount_tolerance_percent: 2.5
  max_matches_per_transaction: 3
import:
  default_currency: usd
output:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v := newViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Store.Driver)
	}

	rc := cfg.ReconcilerConfig()
	if rc.Matching.AmountTolerancePercent != 2.5 {
		t.Errorf("expected tolerance 2.5, got %v", rc.Matching.AmountTolerancePercent)
	}
	if rc.MaxMatchesPerTransaction != 3 {
		t.Errorf("expected cap 3, got %d", rc.MaxMatchesPerTransaction)
	}
	if rc.Import.DefaultCurrency != "USD" {
		t.Errorf("expected USD, got %s", rc.Import.DefaultCurrency)
	}
	if cfg.ReportConfig().Format != reporter.FormatJSON {
		t.Errorf("expected json output, got %s", cfg.ReportConfig().Format)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("RECONCILER_STORE_DRIVER", "memory")
	t.Setenv("RECONCILER_MATCHING_MIN_CONFIDENCE", "90")

	cfg, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("expected env driver override, got %s", cfg.Store.Driver)
	}
	if cfg.ReconcilerConfig().MinConfidence != 90 {
		t.Errorf("expected env min confidence 90, got %d", cfg.ReconcilerConfig().MinConfidence)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    interface{}
		category errors.ErrorCategory
	}{
		{"unknown driver", "store.driver", "postgres", errors.CategoryConfiguration},
		{"sqlite without path", "store.sqlite.path", " ", errors.CategoryConfiguration},
		{"firestore without project", "store.driver", "firestore", errors.CategoryConfiguration},
		{"bad log level", "log.level", "loud", errors.CategoryConfiguration},
		{"bad output format", "output.format", "xml", errors.CategoryConfiguration},
		{"tolerance out of range", "matching.amount_tolerance_percent", 120.0, errors.CategoryConfiguration},
		{"zero workers", "matching.max_workers", 0, errors.CategoryConfiguration},
		{"bad currency", "import.default_currency", "RIYAL", errors.CategoryConfiguration},
		{"zero window", "summary.default_window_days", 0, errors.CategoryConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			if err == nil {
				t.Fatalf("expected error for %s=%v", tt.key, tt.value)
			}
			if !errors.HasCategory(err, tt.category) {
				t.Errorf("expected %s error, got %v", tt.category, err)
			}
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	v := newViper(t)
	v.Set("log.level", "DEBUG")
	v.Set("log.format", "json")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	lc := cfg.LoggerConfig()
	if lc.Level != logger.DebugLevel || lc.Format != logger.JSONFormat {
		t.Errorf("unexpected logger config: %+v", lc)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := OpenStore(ctx, StoreConfig{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	st.Close()

	st, err = OpenStore(ctx, StoreConfig{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "r.db")}})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	st.Close()

	if _, err := OpenStore(ctx, StoreConfig{Driver: "bolt"}); !errors.HasCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
