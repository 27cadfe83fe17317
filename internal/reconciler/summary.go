package reconciler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// SummaryOptions bound the summary window. Omitted bounds default to the
// configured window ending now.
type SummaryOptions struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// GetSummary aggregates bank transactions, completed payments, confirmed
// matches and open discrepancies of the company within the window. Empty
// windows produce a zeroed summary.
func (s *Service) GetSummary(ctx context.Context, companyID string, opts SummaryOptions) (*models.ReconciliationSummary, error) {
	if err := requireCompany(companyID); err != nil {
		return nil, err
	}

	window := s.summaryWindow(opts)
	if err := window.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidValue, "date_range", window, err)
	}

	log := s.logger.WithFields(logger.Fields{
		"company_id": companyID,
		"start":      window.Start.Format(models.DateLayout),
		"end":        window.End.Format(models.DateLayout),
	})
	log.Debug("Building reconciliation summary")

	var (
		txns          []*models.BankTransaction
		payments      []*models.Payment
		matches       []*models.ReconciliationMatch
		discrepancies []*models.ReconciliationDiscrepancy
	)

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) (err error) {
		txns, err = s.store.QueryBankTransactionsInRange(ctx, companyID, window)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		payments, err = s.store.QueryCompletedPaymentsInRange(ctx, companyID, window)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		matches, err = s.store.QueryMatchesInRange(ctx, companyID, window)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		discrepancies, err = s.store.QueryDiscrepanciesInRange(ctx, companyID, window)
		return err
	})
	if err := p.Wait(); err != nil {
		log.WithError(err).Error("Failed to load summary data")
		return nil, errors.StoreError(errors.CodeStoreRead, "load summary data", err)
	}

	summary := aggregate(companyID, window, txns, payments, matches, discrepancies)
	log.WithFields(logger.Fields{
		"transactions": summary.TotalTransactions,
		"payments":     summary.TotalPayments,
		"matches":      summary.ConfirmedMatches,
	}).Info("Reconciliation summary built")
	return summary, nil
}

func (s *Service) summaryWindow(opts SummaryOptions) models.DateRange {
	var window models.DateRange
	if opts.EndDate != nil {
		window.End = models.EndOfDay(opts.EndDate.UTC())
	} else {
		window.End = s.clock()
	}
	if opts.StartDate != nil {
		window.Start = models.TruncateToDay(opts.StartDate.UTC())
	} else {
		window.Start = window.End.AddDate(0, 0, -s.config.SummaryWindowDays)
	}
	return window
}

func aggregate(
	companyID string,
	window models.DateRange,
	txns []*models.BankTransaction,
	payments []*models.Payment,
	matches []*models.ReconciliationMatch,
	discrepancies []*models.ReconciliationDiscrepancy,
) *models.ReconciliationSummary {
	summary := &models.ReconciliationSummary{
		CompanyID:          companyID,
		StartDate:          window.Start,
		EndDate:            window.End,
		TotalMatchedAmount: decimal.Zero,
	}

	summary.TotalTransactions = len(txns)
	for _, txn := range txns {
		switch txn.Status {
		case models.BankTransactionMatched:
			summary.MatchedTransactions++
			summary.TotalMatchedAmount = summary.TotalMatchedAmount.Add(txn.Amount.Abs())
		case models.BankTransactionPending:
			summary.UnmatchedTransactions++
		case models.BankTransactionDiscrepancy:
			summary.DiscrepancyTransactions++
		}
	}

	summary.TotalPayments = len(payments)
	for _, p := range payments {
		switch p.ReconciliationStatus {
		case models.ReconciliationMatched:
			summary.MatchedPayments++
		case models.ReconciliationStatusDiscrepancy:
			summary.DiscrepancyPayments++
		default:
			summary.UnmatchedPayments++
		}
	}

	confidenceTotal := 0
	for _, m := range matches {
		if !m.Confirmed {
			continue
		}
		summary.ConfirmedMatches++
		confidenceTotal += m.Confidence
	}
	if summary.ConfirmedMatches > 0 {
		summary.AverageConfidence = float64(confidenceTotal) / float64(summary.ConfirmedMatches)
	}

	for _, d := range discrepancies {
		if d.Status == models.DiscrepancyOpen {
			summary.OpenDiscrepancies++
		}
	}

	return summary
}

// PendingResult is one page of pending bank transactions.
type PendingResult struct {
	Success      bool                      `json:"success"`
	Transactions []*models.BankTransaction `json:"transactions"`
	Total        int                       `json:"total"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
	Error        string                    `json:"error,omitempty"`
}

func (r *PendingResult) setError(msg string) { r.Success = false; r.Error = msg }

// ListPending returns pending bank transactions newest first. A limit of
// zero returns everything after offset.
func (s *Service) ListPending(ctx context.Context, companyID string, limit, offset int) (*PendingResult, error) {
	result := &PendingResult{Transactions: []*models.BankTransaction{}, Limit: limit, Offset: offset}
	if err := requireCompany(companyID); err != nil {
		return fail(result, err)
	}
	if limit < 0 {
		return fail(result, errors.ValidationError(errors.CodeOutOfRange, "limit", limit, nil))
	}
	if offset < 0 {
		return fail(result, errors.ValidationError(errors.CodeOutOfRange, "offset", offset, nil))
	}

	pending, err := s.store.QueryPendingBankTransactions(ctx, companyID)
	if err != nil {
		s.logger.WithError(err).WithField("company_id", companyID).Error("Failed to list pending transactions")
		return fail(result, errors.StoreError(errors.CodeStoreRead, "query pending bank transactions", err))
	}

	result.Success = true
	result.Total = len(pending)
	if offset >= len(pending) {
		return result, nil
	}
	end := len(pending)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	result.Transactions = pending[offset:end]
	return result, nil
}
