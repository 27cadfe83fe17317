package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/iter"

	"bank-reconciliation-service/internal/matcher"
	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// NothingToMatch is reported by AutoMatch when no pending transaction is eligible.
const NothingToMatch = "no pending bank transactions to match"

// AutoMatchOptions tunes one discovery pass. The zero value is usable: a nil
// MinConfidence falls back to the service configuration and an empty MatchBy
// means combined.
type AutoMatchOptions struct {
	MinConfidence *int             `json:"min_confidence,omitempty"`
	MaxAgeDays    *int             `json:"max_age_days,omitempty"`
	MatchBy       matcher.Strategy `json:"match_by"`

	// Deduplicate keeps only the best candidate per payment for a transaction.
	Deduplicate bool `json:"deduplicate"`

	// MaxMatchesPerTransaction keeps the N highest-confidence proposals per
	// transaction. Zero keeps all of them.
	MaxMatchesPerTransaction int `json:"max_matches_per_transaction"`
}

// DefaultAutoMatchOptions returns options built from the service configuration
func (s *Service) DefaultAutoMatchOptions() AutoMatchOptions {
	minConfidence := s.config.MinConfidence
	return AutoMatchOptions{
		MinConfidence:            &minConfidence,
		MatchBy:                  matcher.StrategyCombined,
		Deduplicate:              s.config.DeduplicateCandidates,
		MaxMatchesPerTransaction: s.config.MaxMatchesPerTransaction,
	}
}

func (o AutoMatchOptions) validate() error {
	if o.MinConfidence != nil && (*o.MinConfidence < 0 || *o.MinConfidence > 100) {
		return errors.ValidationError(errors.CodeOutOfRange, "min_confidence", *o.MinConfidence, nil)
	}
	if o.MaxAgeDays != nil && *o.MaxAgeDays < 0 {
		return errors.ValidationError(errors.CodeOutOfRange, "max_age_days", *o.MaxAgeDays, nil)
	}
	if o.MaxMatchesPerTransaction < 0 {
		return errors.ValidationError(errors.CodeOutOfRange, "max_matches_per_transaction", o.MaxMatchesPerTransaction, nil)
	}
	return nil
}

// AutoMatchResult holds the proposals of one discovery pass. Errors carries
// informational notes and per-transaction failures; it does not make the
// pass unsuccessful.
type AutoMatchResult struct {
	Success             bool                          `json:"success"`
	Matches             []*models.ReconciliationMatch `json:"matches"`
	TransactionsScanned int                           `json:"transactions_scanned"`
	PaymentsConsidered  int                           `json:"payments_considered"`
	Errors              []string                      `json:"errors,omitempty"`
	Error               string                        `json:"error,omitempty"`
}

func (r *AutoMatchResult) setError(msg string) { r.Success = false; r.Error = msg }

type txnOutcome struct {
	matches []*models.ReconciliationMatch
	err     error
}

// AutoMatch proposes matches for every pending bank transaction of the
// company. Nothing is persisted: proposals must be confirmed with
// ConfirmMatch.
func (s *Service) AutoMatch(ctx context.Context, companyID string, opts AutoMatchOptions) (*AutoMatchResult, error) {
	result := &AutoMatchResult{Matches: []*models.ReconciliationMatch{}}
	if err := requireCompany(companyID); err != nil {
		return fail(result, err)
	}
	if opts.MatchBy == "" {
		opts.MatchBy = matcher.StrategyCombined
	}
	if _, err := matcher.ParseStrategy(string(opts.MatchBy)); err != nil {
		return fail(result, errors.ValidationError(errors.CodeInvalidValue, "match_by", opts.MatchBy, err))
	}
	if err := opts.validate(); err != nil {
		return fail(result, err)
	}
	if opts.MinConfidence == nil {
		minConfidence := s.config.MinConfidence
		opts.MinConfidence = &minConfidence
	}

	log := s.logger.WithFields(logger.Fields{"company_id": companyID, "match_by": opts.MatchBy})
	log.Info("Starting auto-match pass")
	now := s.clock()

	pending, err := s.store.QueryPendingBankTransactions(ctx, companyID)
	if err != nil {
		log.WithError(err).Error("Failed to load pending bank transactions")
		return fail(result, errors.StoreError(errors.CodeStoreRead, "query pending bank transactions", err))
	}
	if opts.MaxAgeDays != nil {
		pending = filterByAge(pending, now, *opts.MaxAgeDays)
	}
	if len(pending) == 0 {
		log.Info("Nothing to match")
		result.Success = true
		result.Errors = []string{NothingToMatch}
		return result, nil
	}

	payments, err := s.store.QueryCompletedPayments(ctx, companyID)
	if err != nil {
		log.WithError(err).Error("Failed to load completed payments")
		return fail(result, errors.StoreError(errors.CodeStoreRead, "query completed payments", err))
	}

	result.TransactionsScanned = len(pending)
	result.PaymentsConsidered = len(payments)

	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "auto-match",
		Total:     int64(len(pending)),
		Logger:    log,
	})
	match := func(txn *models.BankTransaction) txnOutcome {
		defer progress.Increment()
		return s.proposeFor(txn, payments, opts, now)
	}

	var outcomes []txnOutcome
	if s.config.MaxWorkers > 1 && len(pending) >= s.config.ParallelThreshold {
		mapper := iter.Mapper[*models.BankTransaction, txnOutcome]{MaxGoroutines: s.config.MaxWorkers}
		outcomes = mapper.Map(pending, func(txn **models.BankTransaction) txnOutcome {
			return match(*txn)
		})
	} else {
		outcomes = make([]txnOutcome, len(pending))
		for i, txn := range pending {
			outcomes[i] = match(txn)
		}
	}

	for i, outcome := range outcomes {
		if outcome.err != nil {
			log.WithError(outcome.err).WithField("bank_transaction_id", pending[i].ID).Warn("Matching failed for transaction")
			result.Errors = append(result.Errors, fmt.Sprintf("bank transaction %s: %v", pending[i].ID, outcome.err))
			continue
		}
		result.Matches = append(result.Matches, outcome.matches...)
	}

	progress.Complete(nil)

	result.Success = true
	log.WithFields(logger.Fields{
		"transactions": result.TransactionsScanned,
		"payments":     result.PaymentsConsidered,
		"proposals":    len(result.Matches),
	}).Info("Auto-match pass completed")
	return result, nil
}

func (s *Service) proposeFor(txn *models.BankTransaction, payments []*models.Payment, opts AutoMatchOptions, now time.Time) txnOutcome {
	candidates, err := s.engine.FindMatches(txn, payments, opts.MatchBy)
	if err != nil {
		return txnOutcome{err: errors.ReconciliationError(errors.CodeMatchingFailed, "auto-match", err)}
	}

	candidates = matcher.FilterByConfidence(candidates, *opts.MinConfidence)
	if opts.Deduplicate {
		candidates = matcher.Deduplicate(candidates)
	}
	candidates = matcher.TopN(candidates, opts.MaxMatchesPerTransaction)

	matches := make([]*models.ReconciliationMatch, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, &models.ReconciliationMatch{
			CompanyID:         txn.CompanyID,
			BankTransactionID: txn.ID,
			PaymentID:         c.PaymentID,
			MatchType:         c.MatchType,
			Confidence:        c.Confidence,
			AmountDifference:  c.AmountDifference,
			Notes:             fmt.Sprintf("proposed by %s strategy", c.Strategy),
			MatchedAt:         now,
		})
	}
	return txnOutcome{matches: matches}
}

// filterByAge drops transactions dated before the calendar day maxAgeDays ago.
func filterByAge(txns []*models.BankTransaction, now time.Time, maxAgeDays int) []*models.BankTransaction {
	cutoff := models.TruncateToDay(now.AddDate(0, 0, -maxAgeDays))
	kept := make([]*models.BankTransaction, 0, len(txns))
	for _, txn := range txns {
		if !models.TruncateToDay(txn.TransactionDate).Before(cutoff) {
			kept = append(kept, txn)
		}
	}
	return kept
}
