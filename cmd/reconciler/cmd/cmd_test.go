package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/pkg/errors"
)

const (
	statementCSV = "date,amount,reference,description\n" +
		"2025-01-05,1000.00,INV-1,rent\n" +
		"2025-01-06,250.00,,bank fee\n"
	paymentsCSV = "id,amount,payment_date,reference_number\n" +
		"pay-1,1000.00,2025-01-05,INV-1\n"
)

// cli runs commands of one tree each against a shared sqlite database.
type cli struct {
	t    *testing.T
	dir  string
	base []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{
		t:   t,
		dir: dir,
		base: []string{
			"--store-driver", "sqlite",
			"--sqlite-path", filepath.Join(dir, "reconciler.db"),
			"--log-level", "error",
		},
	}
}

func (c *cli) file(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(&out, &errOut)
	root.SetArgs(append(append([]string{}, c.base...), args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) runJSON(v interface{}, args ...string) error {
	c.t.Helper()
	out, err := c.run(append(args, "--output-format", "json")...)
	require.NoError(c.t, json.Unmarshal([]byte(out), v), "output: %s", out)
	return err
}

func TestEndToEndReconciliation(t *testing.T) {
	c := newCLI(t)
	statement := c.file("statement.csv", statementCSV)
	payments := c.file("payments.csv", paymentsCSV)

	var imported reconciler.ImportResult
	require.NoError(t, c.runJSON(&imported, "import", "--company", "acme", "--file", statement))
	assert.True(t, imported.Success)
	require.Len(t, imported.Imported, 2)

	_, err := c.run("payments", "load", "--company", "acme", "--file", payments)
	require.NoError(t, err)

	var proposals reconciler.AutoMatchResult
	require.NoError(t, c.runJSON(&proposals, "automatch", "--company", "acme", "--match-by", "reference"))
	require.Len(t, proposals.Matches, 1)
	proposal := proposals.Matches[0]
	assert.Equal(t, "pay-1", proposal.PaymentID)
	assert.Equal(t, 100, proposal.Confidence)
	assert.False(t, proposal.Confirmed)

	var confirmed reconciler.ConfirmResult
	require.NoError(t, c.runJSON(&confirmed, "confirm",
		"--transaction", proposal.BankTransactionID, "--payment", "pay-1", "--user", "alice"))
	assert.True(t, confirmed.Success)
	require.NotNil(t, confirmed.Match)
	assert.Equal(t, models.MatchManual, confirmed.Match.MatchType)

	var pending reconciler.PendingResult
	require.NoError(t, c.runJSON(&pending, "pending", "--company", "acme"))
	assert.Equal(t, 1, pending.Total)

	// Confirmations are stamped with the wall clock, so the window runs to today.
	today := time.Now().UTC().Format(models.DateLayout)
	var summary models.ReconciliationSummary
	require.NoError(t, c.runJSON(&summary, "summary", "--company", "acme",
		"--start-date", "2025-01-01", "--end-date", today))
	assert.Equal(t, 2, summary.TotalTransactions)
	assert.Equal(t, 1, summary.MatchedTransactions)
	assert.Equal(t, 1, summary.UnmatchedTransactions)
	assert.Equal(t, 1, summary.ConfirmedMatches)
	assert.Equal(t, "1000", summary.TotalMatchedAmount.String())

	// A second confirmation of the same pair is a conflict.
	_, err = c.run("confirm", "--transaction", proposal.BankTransactionID, "--payment", "pay-1")
	assert.True(t, errors.HasCategory(err, errors.CategoryConflict), "got %v", err)
}

func TestDiscrepancyCommands(t *testing.T) {
	c := newCLI(t)
	statement := c.file("statement.csv", "date,amount,reference\n2025-01-05,1000.00,INV-9\n")
	payments := c.file("payments.csv", "id,amount,payment_date,reference_number\npay-9,990.00,2025-01-05,INV-9\n")

	var imported reconciler.ImportResult
	require.NoError(t, c.runJSON(&imported, "import", "--company", "acme", "--file", statement))
	require.Len(t, imported.Imported, 1)
	_, err := c.run("payments", "load", "--company", "acme", "--file", payments)
	require.NoError(t, err)

	var created reconciler.DiscrepancyResult
	require.NoError(t, c.runJSON(&created, "discrepancy", "create",
		"--transaction", imported.Imported[0].ID, "--payment", "pay-9", "--notes", "short payment"))
	require.True(t, created.Success)
	require.NotEmpty(t, created.DiscrepancyID)
	assert.Equal(t, "-10", created.Discrepancy.AmountDifference.String())

	var resolved reconciler.ResolveResult
	require.NoError(t, c.runJSON(&resolved, "discrepancy", "resolve", "--id", created.DiscrepancyID,
		"--resolved-as", "payment_correct", "--corrected-bank-amount", "990.00"))
	assert.True(t, resolved.Success)

	_, err = c.run("discrepancy", "resolve", "--id", created.DiscrepancyID)
	assert.True(t, errors.HasCategory(err, errors.CategoryConflict), "got %v", err)

	_, err = c.run("discrepancy", "resolve", "--id", created.DiscrepancyID, "--corrected-bank-amount", "ten")
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation), "got %v", err)
}

func TestImportRejectedFile(t *testing.T) {
	c := newCLI(t)
	statement := c.file("bad.csv", "date,amount\n2025-01-05,abc\n2025-13-40,10\n")

	var res reconciler.ImportResult
	err := c.runJSON(&res, "import", "--company", "acme", "--file", statement)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryParse))
	assert.False(t, res.Success)
	assert.Len(t, res.Errors, 2)

	var pending reconciler.PendingResult
	require.NoError(t, c.runJSON(&pending, "pending", "--company", "acme"))
	assert.Zero(t, pending.Total)
}

func TestImportMissingFile(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("import", "--company", "acme", "--file", filepath.Join(c.dir, "missing.csv"))
	re, ok := errors.AsReconcilerError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, errors.CodeFileNotFound, re.Code)
}

func TestConsoleOutput(t *testing.T) {
	c := newCLI(t)
	statement := c.file("statement.csv", statementCSV)

	out, err := c.run("import", "--company", "acme", "--file", statement)
	require.NoError(t, err)
	assert.Contains(t, out, "=== IMPORT ===")
	assert.Contains(t, out, "Imported: 2")

	out, err = c.run("pending", "--company", "acme", "--output-format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,transaction_date"))
}

func TestOutputFile(t *testing.T) {
	c := newCLI(t)
	statement := c.file("statement.csv", statementCSV)
	_, err := c.run("import", "--company", "acme", "--file", statement)
	require.NoError(t, err)

	report := filepath.Join(c.dir, "pending.json")
	out, err := c.run("pending", "--company", "acme", "--output-format", "json", "--output-file", report)
	require.NoError(t, err)
	assert.Equal(t, "Report written to "+report+"\n", out)

	raw, err := os.ReadFile(report)
	require.NoError(t, err)
	var pending reconciler.PendingResult
	require.NoError(t, json.Unmarshal(raw, &pending))
	assert.True(t, pending.Success)
	assert.Equal(t, 2, pending.Total)
}

func TestPendingPrintsWholePage(t *testing.T) {
	t.Setenv("RECONCILER_OUTPUT_MAX_ITEMS", "1")
	c := newCLI(t)
	statement := c.file("statement.csv", statementCSV)
	_, err := c.run("import", "--company", "acme", "--file", statement)
	require.NoError(t, err)

	out, err := c.run("pending", "--company", "acme", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "INV-1")
	assert.Contains(t, out, "bank fee")
	assert.NotContains(t, out, "... 1 more")
}

func TestConfigurationErrors(t *testing.T) {
	var out, errOut bytes.Buffer

	root := NewRootCmd(&out, &errOut)
	root.SetArgs([]string{"--store-driver", "bolt", "pending", "--company", "acme"})
	err := root.Execute()
	assert.True(t, errors.HasCategory(err, errors.CategoryConfiguration), "got %v", err)

	root = NewRootCmd(&out, &errOut)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "pending", "--company", "acme"})
	err = root.Execute()
	assert.True(t, errors.HasCategory(err, errors.CategoryConfiguration), "got %v", err)
}

func TestRequiredFlags(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("automatch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd(&out, &out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "reconciler dev")
}

func TestCLIErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		exitCode int
		contains []string
	}{
		{
			name:     "nil",
			err:      nil,
			exitCode: 0,
		},
		{
			name:     "not found",
			err:      errors.NotFoundError(errors.CodePaymentNotFound, "payment", "p1", nil),
			exitCode: 7,
			contains: []string{"payment not found: p1", "Context:", "id: p1", "Not found help"},
		},
		{
			name:     "parse",
			err:      errors.ParseError(errors.CodeInvalidAmount, 2, "amount", "abc", nil),
			exitCode: 3,
			contains: []string{"line 2: invalid amount 'abc'", "Suggestion:"},
		},
		{
			name:     "store",
			err:      errors.StoreError(errors.CodeStoreWrite, "insert match", os.ErrClosed),
			exitCode: 6,
			contains: []string{"store insert match failed", "Store error help"},
		},
		{
			name:     "missing file",
			err:      os.ErrNotExist,
			exitCode: 2,
			contains: []string{"File not found"},
		},
		{
			name:     "generic",
			err:      assert.AnError,
			exitCode: 1,
			contains: []string{"reconciler --help"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := NewCLIErrorHandler(&buf, false).HandleError(tt.err)
			assert.Equal(t, tt.exitCode, code)
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestCLIErrorHandlerVerbose(t *testing.T) {
	var buf bytes.Buffer
	err := errors.StoreError(errors.CodeStoreRead, "query", os.ErrDeadlineExceeded)
	NewCLIErrorHandler(&buf, true).HandleError(err)
	assert.Contains(t, buf.String(), "Underlying error:")
}
