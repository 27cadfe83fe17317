// Package reporter renders reconciliation results for people and programs.
//
// Supported output formats:
//   - Console: aligned, sectioned text for terminal display
//   - JSON: the result structs as indented JSON
//   - CSV: row exports of proposals, pending transactions and import errors
//
// Example usage:
//
//	gen, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	if err != nil {
//		return err
//	}
//	err = gen.Render(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/parsers"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/pkg/errors"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// MaxItems caps the rows printed per console section. Zero prints all.
	MaxItems int `json:"max_items"`

	// ShowNotes adds the proposal notes column to console match tables.
	ShowNotes bool `json:"show_notes"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatConsole,
		MaxItems:     50,
		ShowNotes:    false,
		CSVDelimiter: ',',
		CSVHeaders:   true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative, got %d", c.MaxItems)
	}
	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\r' || c.CSVDelimiter == '\n' {
		return fmt.Errorf("invalid csv delimiter %q", c.CSVDelimiter)
	}
	return nil
}

// LoadResult is the outcome of seeding a payment snapshot.
type LoadResult struct {
	Success bool                 `json:"success"`
	Loaded  int                  `json:"loaded"`
	Errors  []*parsers.LineError `json:"errors,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ReportGenerator renders results in the configured format
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator. A nil config selects the
// defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// Render writes result to writer. Result must be one of the reconciler
// result types, a *models.ReconciliationSummary or an error.
func (rg *ReportGenerator) Render(result interface{}, writer io.Writer) error {
	switch rg.config.Format {
	case FormatJSON:
		return rg.renderJSON(result, writer)
	case FormatCSV:
		return rg.renderCSV(result, writer)
	default:
		return rg.renderConsole(result, writer)
	}
}

func (rg *ReportGenerator) renderJSON(result interface{}, writer io.Writer) error {
	if err, ok := result.(error); ok {
		result = errorPayload(err)
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (rg *ReportGenerator) renderConsole(result interface{}, writer io.Writer) error {
	switch r := result.(type) {
	case *reconciler.ImportResult:
		rg.printImport(r, writer)
	case *LoadResult:
		printOutcome(writer, "PAYMENT SNAPSHOT", r.Success, r.Error)
		fmt.Fprintf(writer, "Loaded: %d\n", r.Loaded)
		rg.printLineErrors(r.Errors, writer)
	case *reconciler.AutoMatchResult:
		rg.printAutoMatch(r, writer)
	case *reconciler.ConfirmResult:
		rg.printConfirm(r, writer)
	case *reconciler.DiscrepancyResult:
		rg.printDiscrepancy(r, writer)
	case *reconciler.ResolveResult:
		printOutcome(writer, "DISCREPANCY RESOLUTION", r.Success, r.Error)
	case *reconciler.PendingResult:
		rg.printPending(r, writer)
	case *models.ReconciliationSummary:
		rg.printSummary(r, writer)
	case error:
		printError(r, writer)
	default:
		return unsupported(result, FormatConsole)
	}
	return nil
}

func (rg *ReportGenerator) printImport(r *reconciler.ImportResult, w io.Writer) {
	fmt.Fprintf(w, "=== IMPORT ===\n")
	fmt.Fprintf(w, "Status:   %s\n", statusWord(r.Success))
	if r.Stats != nil {
		fmt.Fprintf(w, "Lines:    %d data, %d blank\n", r.Stats.DataLines, r.Stats.BlankLines)
		fmt.Fprintf(w, "Valid:    %d\n", r.Stats.RecordsValid)
	}
	fmt.Fprintf(w, "Imported: %d\n", len(r.Imported))

	if len(r.Errors) > 0 {
		rg.printLineErrors(r.Errors, w)
	} else if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}
}

func (rg *ReportGenerator) printLineErrors(lineErrors []*parsers.LineError, w io.Writer) {
	if len(lineErrors) == 0 {
		return
	}
	fmt.Fprintf(w, "\n=== LINE ERRORS (%d) ===\n", len(lineErrors))
	tw := newTable(w)
	fmt.Fprintln(tw, "LINE\tCODE\tCOLUMN\tVALUE\tMESSAGE")
	for i, le := range lineErrors {
		if rg.truncated(tw, i, len(lineErrors)) {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", le.Line, le.Code, le.Column, le.Value, le.Message)
	}
	tw.Flush()
}

func (rg *ReportGenerator) printAutoMatch(r *reconciler.AutoMatchResult, w io.Writer) {
	fmt.Fprintf(w, "=== AUTO MATCH ===\n")
	fmt.Fprintf(w, "Status:              %s\n", statusWord(r.Success))
	fmt.Fprintf(w, "Transactions scanned: %d\n", r.TransactionsScanned)
	fmt.Fprintf(w, "Payments considered:  %d\n", r.PaymentsConsidered)
	fmt.Fprintf(w, "Proposals:            %d\n", len(r.Matches))
	if r.Error != "" {
		fmt.Fprintf(w, "Error:                %s\n", r.Error)
	}

	if len(r.Matches) > 0 {
		fmt.Fprintf(w, "\n=== PROPOSED MATCHES ===\n")
		rg.printMatchTable(r.Matches, w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\n=== ERRORS (%d) ===\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}

func (rg *ReportGenerator) printMatchTable(matches []*models.ReconciliationMatch, w io.Writer) {
	tw := newTable(w)
	header := "BANK TXN\tPAYMENT\tTYPE\tCONFIDENCE\tDIFFERENCE"
	if rg.config.ShowNotes {
		header += "\tNOTES"
	}
	fmt.Fprintln(tw, header)
	for i, m := range matches {
		if rg.truncated(tw, i, len(matches)) {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s", m.BankTransactionID, m.PaymentID, m.MatchType,
			m.Confidence, m.AmountDifference.StringFixed(2))
		if rg.config.ShowNotes {
			fmt.Fprintf(tw, "\t%s", m.Notes)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func (rg *ReportGenerator) printConfirm(r *reconciler.ConfirmResult, w io.Writer) {
	printOutcome(w, "MATCH CONFIRMATION", r.Success, r.Error)
	if r.Match == nil {
		return
	}
	fmt.Fprintf(w, "Match:            %s\n", r.Match.ID)
	fmt.Fprintf(w, "Bank transaction: %s\n", r.Match.BankTransactionID)
	fmt.Fprintf(w, "Payment:          %s\n", r.Match.PaymentID)
	fmt.Fprintf(w, "Difference:       %s\n", r.Match.AmountDifference.StringFixed(2))
	if r.Match.MatchedBy != "" {
		fmt.Fprintf(w, "Confirmed by:     %s\n", r.Match.MatchedBy)
	}
}

func (rg *ReportGenerator) printDiscrepancy(r *reconciler.DiscrepancyResult, w io.Writer) {
	printOutcome(w, "DISCREPANCY", r.Success, r.Error)
	d := r.Discrepancy
	if d == nil {
		return
	}
	fmt.Fprintf(w, "Discrepancy:      %s\n", d.ID)
	fmt.Fprintf(w, "Bank transaction: %s (%s)\n", d.BankTransactionID, d.BankAmount.StringFixed(2))
	fmt.Fprintf(w, "Payment:          %s (%s)\n", d.PaymentID, d.PaymentAmount.StringFixed(2))
	fmt.Fprintf(w, "Difference:       %s\n", d.AmountDifference.StringFixed(2))
	fmt.Fprintf(w, "Notes:            %s\n", d.Notes)
}

func (rg *ReportGenerator) printPending(r *reconciler.PendingResult, w io.Writer) {
	fmt.Fprintf(w, "=== PENDING BANK TRANSACTIONS ===\n")
	if !r.Success {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
		return
	}
	shown := len(r.Transactions)
	if shown == 0 {
		fmt.Fprintf(w, "Showing 0 of %d\n", r.Total)
		return
	}
	fmt.Fprintf(w, "Showing %d-%d of %d\n\n", r.Offset+1, r.Offset+shown, r.Total)

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCURRENCY\tTYPE\tREFERENCE\tDESCRIPTION")
	for i, txn := range r.Transactions {
		if rg.truncated(tw, i, shown) {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", txn.ID, txn.TransactionDate.Format(models.DateLayout),
			txn.Amount.StringFixed(2), txn.Currency, txn.TransactionType, txn.ReferenceNumber, txn.Description)
	}
	tw.Flush()
}

func (rg *ReportGenerator) printSummary(s *models.ReconciliationSummary, w io.Writer) {
	fmt.Fprintf(w, "RECONCILIATION SUMMARY\n")
	fmt.Fprintf(w, "Company: %s\n", s.CompanyID)
	fmt.Fprintf(w, "Window:  %s to %s\n\n", s.StartDate.Format(time.RFC3339), s.EndDate.Format(time.RFC3339))

	fmt.Fprintf(w, "=== BANK TRANSACTIONS ===\n")
	fmt.Fprintf(w, "  Total:       %d\n", s.TotalTransactions)
	fmt.Fprintf(w, "  Matched:     %d (%.1f%%)\n", s.MatchedTransactions,
		calculatePercentage(s.MatchedTransactions, s.TotalTransactions))
	fmt.Fprintf(w, "  Unmatched:   %d (%.1f%%)\n", s.UnmatchedTransactions,
		calculatePercentage(s.UnmatchedTransactions, s.TotalTransactions))
	fmt.Fprintf(w, "  Discrepancy: %d (%.1f%%)\n\n", s.DiscrepancyTransactions,
		calculatePercentage(s.DiscrepancyTransactions, s.TotalTransactions))

	fmt.Fprintf(w, "=== PAYMENTS ===\n")
	fmt.Fprintf(w, "  Total:       %d\n", s.TotalPayments)
	fmt.Fprintf(w, "  Matched:     %d (%.1f%%)\n", s.MatchedPayments,
		calculatePercentage(s.MatchedPayments, s.TotalPayments))
	fmt.Fprintf(w, "  Unmatched:   %d (%.1f%%)\n", s.UnmatchedPayments,
		calculatePercentage(s.UnmatchedPayments, s.TotalPayments))
	fmt.Fprintf(w, "  Discrepancy: %d (%.1f%%)\n\n", s.DiscrepancyPayments,
		calculatePercentage(s.DiscrepancyPayments, s.TotalPayments))

	fmt.Fprintf(w, "=== MATCHING ===\n")
	fmt.Fprintf(w, "  Confirmed matches:    %d\n", s.ConfirmedMatches)
	fmt.Fprintf(w, "  Open discrepancies:   %d\n", s.OpenDiscrepancies)
	fmt.Fprintf(w, "  Matched amount:       %s\n", s.TotalMatchedAmount.StringFixed(2))
	fmt.Fprintf(w, "  Average confidence:   %.1f\n", s.AverageConfidence)
}

func printOutcome(w io.Writer, title string, success bool, msg string) {
	fmt.Fprintf(w, "=== %s ===\n", title)
	fmt.Fprintf(w, "Status: %s\n", statusWord(success))
	if msg != "" {
		fmt.Fprintf(w, "Error:  %s\n", msg)
	}
}

func printError(err error, w io.Writer) {
	re, ok := errors.AsReconcilerError(err)
	if !ok {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error [%s/%s]: %s\n", re.Category, re.Code, re.Message)
	if re.Cause != nil {
		fmt.Fprintf(w, "Cause: %v\n", re.Cause)
	}
	if re.Suggestion != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", re.Suggestion)
	}
}

func (rg *ReportGenerator) renderCSV(result interface{}, writer io.Writer) error {
	var (
		headers []string
		rows    [][]string
	)

	switch r := result.(type) {
	case *reconciler.AutoMatchResult:
		headers = []string{"bank_transaction_id", "payment_id", "match_type", "confidence", "amount_difference", "notes"}
		for _, m := range r.Matches {
			rows = append(rows, []string{m.BankTransactionID, m.PaymentID, string(m.MatchType),
				strconv.Itoa(m.Confidence), m.AmountDifference.StringFixed(2), m.Notes})
		}
	case *reconciler.PendingResult:
		headers = []string{"id", "transaction_date", "amount", "currency", "transaction_type", "reference_number", "description"}
		for _, txn := range r.Transactions {
			rows = append(rows, []string{txn.ID, txn.TransactionDate.Format(models.DateLayout),
				txn.Amount.StringFixed(2), txn.Currency, string(txn.TransactionType), txn.ReferenceNumber, txn.Description})
		}
	case *reconciler.ImportResult:
		headers, rows = lineErrorRows(r.Errors)
	case *LoadResult:
		headers, rows = lineErrorRows(r.Errors)
	default:
		return unsupported(result, FormatCSV)
	}

	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	if rg.config.CSVHeaders {
		if err := csvWriter.Write(headers); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return err
	}
	return csvWriter.Error()
}

func lineErrorRows(lineErrors []*parsers.LineError) ([]string, [][]string) {
	headers := []string{"line", "code", "column", "value", "message"}
	rows := make([][]string, 0, len(lineErrors))
	for _, le := range lineErrors {
		rows = append(rows, []string{strconv.Itoa(le.Line), string(le.Code), le.Column, le.Value, le.Message})
	}
	return headers, rows
}

// truncated writes a marker row and reports true once MaxItems rows were
// written.
func (rg *ReportGenerator) truncated(w io.Writer, index, total int) bool {
	if rg.config.MaxItems == 0 || index < rg.config.MaxItems {
		return false
	}
	fmt.Fprintf(w, "... %d more\n", total-index)
	return true
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func statusWord(success bool) string {
	if success {
		return "OK"
	}
	return "FAILED"
}

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func errorPayload(err error) interface{} {
	if re, ok := errors.AsReconcilerError(err); ok {
		payload := map[string]interface{}{
			"success": false,
			"error":   re.Error(),
			"details": re,
		}
		return payload
	}
	return map[string]interface{}{"success": false, "error": err.Error()}
}

func unsupported(result interface{}, format OutputFormat) error {
	return errors.ValidationError(errors.CodeInvalidValue, "result_type", fmt.Sprintf("%T", result), nil).
		WithContext("format", string(format)).
		WithSuggestion(fmt.Sprintf("%s output is not available for this result", format))
}

// UpdateConfiguration replaces the generator configuration after validating it
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "report_config", config, err)
	}
	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
