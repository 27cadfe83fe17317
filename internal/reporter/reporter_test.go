package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/parsers"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

func sampleAutoMatch() *reconciler.AutoMatchResult {
	return &reconciler.AutoMatchResult{
		Success: true,
		Matches: []*models.ReconciliationMatch{
			{BankTransactionID: "b1", PaymentID: "p1", MatchType: models.MatchExact, Confidence: 100,
				AmountDifference: decimal.Zero, Notes: "proposed by reference strategy"},
			{BankTransactionID: "b2", PaymentID: "p2", MatchType: models.MatchPartial, Confidence: 85,
				AmountDifference: decimal.RequireFromString("-5"), Notes: "proposed by amount strategy"},
		},
		TransactionsScanned: 3,
		PaymentsConsidered:  4,
	}
}

func samplePending() *reconciler.PendingResult {
	return &reconciler.PendingResult{
		Success: true,
		Transactions: []*models.BankTransaction{
			{ID: "b1", TransactionDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
				Amount: decimal.RequireFromString("-1000"), Currency: "QAR",
				TransactionType: models.TransactionTypeDebit, ReferenceNumber: "INV-1", Description: "rent, january"},
		},
		Total: 3,
		Limit: 1,
	}
}

func newGenerator(t *testing.T, format OutputFormat) *ReportGenerator {
	t.Helper()
	cfg := DefaultReportConfig()
	cfg.Format = format
	gen, err := NewReportGenerator(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return gen
}

func TestNewReportGenerator(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{name: "default config", config: nil},
		{name: "valid config", config: DefaultReportConfig()},
		{name: "invalid format", config: &ReportConfig{Format: "xml", CSVDelimiter: ','}, expectError: true},
		{name: "negative max items", config: &ReportConfig{Format: FormatConsole, MaxItems: -1, CSVDelimiter: ','}, expectError: true},
		{name: "quote delimiter", config: &ReportConfig{Format: FormatCSV, CSVDelimiter: '"'}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewReportGenerator(tt.config)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if generator == nil {
				t.Errorf("expected generator but got nil")
			}
		})
	}
}

func TestOutputFormatValidation(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{FormatCSV, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.format.IsValid(); got != tt.valid {
			t.Errorf("format %q: expected %v, got %v", tt.format, tt.valid, got)
		}
	}
}

func TestConsoleAutoMatch(t *testing.T) {
	gen := newGenerator(t, FormatConsole)
	var buf bytes.Buffer
	if err := gen.Render(sampleAutoMatch(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"=== AUTO MATCH ===", "=== PROPOSED MATCHES ===", "b2", "-5.00", "85"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "NOTES") {
		t.Errorf("notes column should be hidden by default")
	}
}

func TestConsoleMaxItems(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.MaxItems = 1
	gen, err := NewReportGenerator(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := gen.Render(sampleAutoMatch(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "p2") {
		t.Errorf("second match should be truncated:\n%s", out)
	}
	if !strings.Contains(out, "... 1 more") {
		t.Errorf("missing truncation marker:\n%s", out)
	}
}

func TestUpdateConfiguration(t *testing.T) {
	gen := newGenerator(t, FormatConsole)

	bad := *gen.GetConfiguration()
	bad.MaxItems = -1
	err := gen.UpdateConfiguration(&bad)
	if !errors.HasCategory(err, errors.CategoryConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if gen.GetConfiguration().MaxItems != DefaultReportConfig().MaxItems {
		t.Errorf("rejected configuration must not be applied")
	}

	good := *gen.GetConfiguration()
	good.MaxItems = 0
	if err := gen.UpdateConfiguration(&good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := gen.Render(sampleAutoMatch(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "p2") || strings.Contains(buf.String(), "... 1 more") {
		t.Errorf("zero max items should print every match:\n%s", buf.String())
	}
}

func TestConsoleSummary(t *testing.T) {
	gen := newGenerator(t, FormatConsole)
	summary := &models.ReconciliationSummary{
		CompanyID:           "company-1",
		StartDate:           time.Date(2024, 12, 11, 0, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		TotalTransactions:   4,
		MatchedTransactions: 1,
		TotalMatchedAmount:  decimal.RequireFromString("1000"),
		ConfirmedMatches:    1,
		AverageConfidence:   100,
	}

	var buf bytes.Buffer
	if err := gen.Render(summary, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"company-1", "Matched:     1 (25.0%)", "1000.00", "100.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleImportErrors(t *testing.T) {
	gen := newGenerator(t, FormatConsole)
	res := &reconciler.ImportResult{
		Stats: &parsers.ParseStats{DataLines: 2, RecordsValid: 1},
		Errors: []*parsers.LineError{
			{Line: 2, Code: errors.CodeInvalidAmount, Column: "amount", Value: "abc", Message: "invalid amount"},
		},
		Error: "import rejected",
	}

	var buf bytes.Buffer
	if err := gen.Render(res, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "invalid_amount") {
		t.Errorf("unexpected import output:\n%s", out)
	}
}

func TestConsoleError(t *testing.T) {
	gen := newGenerator(t, FormatConsole)
	err := errors.NotFoundError(errors.CodePaymentNotFound, "payment", "p9", nil).WithSuggestion("check the id")

	var buf bytes.Buffer
	if rerr := gen.Render(err, &buf); rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	out := buf.String()
	if !strings.Contains(out, "not_found/payment_not_found") || !strings.Contains(out, "Suggestion: check the id") {
		t.Errorf("unexpected error output:\n%s", out)
	}
}

func TestJSONRender(t *testing.T) {
	gen := newGenerator(t, FormatJSON)

	var buf bytes.Buffer
	if err := gen.Render(&reconciler.ConfirmResult{Success: true, Match: &models.ReconciliationMatch{ID: "m1"}}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("expected success true, got %v", decoded["success"])
	}

	buf.Reset()
	if err := gen.Render(errors.ValidationError(errors.CodeMissingField, "company_id", "", nil), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded = nil
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	details, ok := decoded["details"].(map[string]interface{})
	if !ok || details["code"] != string(errors.CodeMissingField) {
		t.Errorf("unexpected error payload: %v", decoded)
	}
}

func TestCSVPending(t *testing.T) {
	gen := newGenerator(t, FormatCSV)

	var buf bytes.Buffer
	if err := gen.Render(samplePending(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d records", len(records))
	}
	if records[0][0] != "id" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[1][2] != "-1000.00" || records[1][6] != "rent, january" {
		t.Errorf("unexpected row %v", records[1])
	}
}

func TestCSVUnsupportedResult(t *testing.T) {
	gen := newGenerator(t, FormatCSV)
	err := gen.Render(&reconciler.ResolveResult{Success: true}, &bytes.Buffer{})
	if !errors.HasCategory(err, errors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSafeRenderFallsBackToJSON(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.Format = FormatCSV
	srg, err := NewSafeReportGenerator(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := srg.RenderSafely(&reconciler.ResolveResult{Success: true}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("expected JSON fallback, got %q", buf.String())
	}
}

func TestSafeRenderValidatesInputs(t *testing.T) {
	srg, err := NewSafeReportGenerator(nil, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var nilResult *reconciler.ConfirmResult
	for name, result := range map[string]interface{}{"nil": nil, "typed nil": nilResult} {
		if err := srg.RenderSafely(result, &bytes.Buffer{}); !errors.HasCategory(err, errors.CategoryValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	if err := srg.RenderSafely(&reconciler.ResolveResult{}, nil); !errors.HasCategory(err, errors.CategoryValidation) {
		t.Errorf("nil writer: expected validation error, got %v", err)
	}
}

func TestNewSafeReportGeneratorInvalidConfig(t *testing.T) {
	_, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, logger.NewNopLogger())
	if !errors.HasCategory(err, errors.CategoryConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWriteToFile(t *testing.T) {
	srg, err := NewSafeReportGenerator(nil, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "report.txt")
	written, err := srg.WriteToFile(sampleAutoMatch(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != path {
		t.Errorf("expected %s, got %s", path, written)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "AUTO MATCH") {
		t.Errorf("unexpected file content: %s", data)
	}
}

func TestGenerateBackupPath(t *testing.T) {
	got := generateBackupPath("/reports/daily/out.csv")
	want := filepath.Join(os.TempDir(), "daily_out_backup.csv")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 4, 25},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := calculatePercentage(tt.part, tt.total); got != tt.want {
			t.Errorf("calculatePercentage(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}
