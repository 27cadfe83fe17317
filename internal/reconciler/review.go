package reconciler

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// DefaultDiscrepancyNote is stored when a discrepancy is created without notes.
const DefaultDiscrepancyNote = "amount mismatch"

// ConfirmResult is the outcome of ConfirmMatch.
type ConfirmResult struct {
	Success bool                        `json:"success"`
	Match   *models.ReconciliationMatch `json:"match,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

func (r *ConfirmResult) setError(msg string) { r.Success = false; r.Error = msg }

// ConfirmMatch records a human-approved pairing. In one unit of work the
// bank transaction becomes matched, the payment is annotated as matched with
// confidence 100 and a confirmed manual match row is inserted. The
// confidence of any earlier proposal is ignored.
func (s *Service) ConfirmMatch(ctx context.Context, bankTransactionID, paymentID, userID string) (*ConfirmResult, error) {
	result := &ConfirmResult{}
	if err := requireID("bank_transaction_id", bankTransactionID); err != nil {
		return fail(result, err)
	}
	if err := requireID("payment_id", paymentID); err != nil {
		return fail(result, err)
	}

	log := s.logger.WithFields(logger.Fields{
		"bank_transaction_id": bankTransactionID,
		"payment_id":          paymentID,
		"user_id":             userID,
	})
	log.Info("Confirming match")

	var confirmed *models.ReconciliationMatch
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		txn, p, err := loadPair(ctx, tx, bankTransactionID, paymentID)
		if err != nil {
			return err
		}
		if !txn.Status.CanConfirm() {
			return errors.ConflictError(errors.CodeInvalidState, "bank transaction", txn.ID,
				fmt.Sprintf("cannot confirm a match for a transaction in status '%s'", txn.Status), nil)
		}
		if p.ReconciliationStatus == models.ReconciliationMatched {
			return errors.ConflictError(errors.CodeAlreadyMatched, "payment", p.ID,
				"payment is already matched", nil)
		}

		if err := tx.UpdateBankTransactionStatus(ctx, txn.ID, models.BankTransactionMatched); err != nil {
			return storeWriteError(err, "update bank transaction status")
		}
		if err := tx.UpdatePaymentReconciliation(ctx, p.ID, models.ReconciliationMatched, 100); err != nil {
			return storeWriteError(err, "update payment reconciliation")
		}

		m := &models.ReconciliationMatch{
			CompanyID:         txn.CompanyID,
			BankTransactionID: txn.ID,
			PaymentID:         p.ID,
			MatchType:         models.MatchManual,
			Confidence:        100,
			AmountDifference:  p.Amount.Sub(txn.Amount),
			MatchedAt:         s.clock(),
			MatchedBy:         userID,
			Confirmed:         true,
		}
		if err := tx.InsertMatch(ctx, m); err != nil {
			if stderrors.Is(err, store.ErrAlreadyConfirmed) {
				return errors.ConflictError(errors.CodeAlreadyMatched, "bank transaction", txn.ID,
					"a confirmed match already exists for this transaction or payment", err)
			}
			return storeWriteError(err, "insert match")
		}
		confirmed = m
		return nil
	})
	if err != nil {
		err = mapStoreError(err, "confirm match")
		log.WithError(err).Error("Match confirmation failed")
		return fail(result, err)
	}

	result.Success = true
	result.Match = confirmed
	log.WithField("match_id", confirmed.ID).Info("Match confirmed")
	return result, nil
}

// DiscrepancyOptions are the optional inputs of CreateDiscrepancy.
type DiscrepancyOptions struct {
	Notes      string
	ResolvedAs models.DiscrepancyResolution
	UserID     string
}

// DiscrepancyResult is the outcome of CreateDiscrepancy.
type DiscrepancyResult struct {
	Success       bool                              `json:"success"`
	DiscrepancyID string                            `json:"discrepancy_id,omitempty"`
	Discrepancy   *models.ReconciliationDiscrepancy `json:"discrepancy,omitempty"`
	Error         string                            `json:"error,omitempty"`
}

func (r *DiscrepancyResult) setError(msg string) { r.Success = false; r.Error = msg }

// CreateDiscrepancy flags a pairing as inconsistent. Both records move to
// discrepancy and an open discrepancy row is inserted, all in one unit of
// work. Nothing changes if either record is missing.
func (s *Service) CreateDiscrepancy(ctx context.Context, bankTransactionID, paymentID string, opts DiscrepancyOptions) (*DiscrepancyResult, error) {
	result := &DiscrepancyResult{}
	if err := requireID("bank_transaction_id", bankTransactionID); err != nil {
		return fail(result, err)
	}
	if err := requireID("payment_id", paymentID); err != nil {
		return fail(result, err)
	}
	if !opts.ResolvedAs.IsValid() {
		return fail(result, errors.ValidationError(errors.CodeInvalidValue, "resolved_as", opts.ResolvedAs, nil))
	}

	log := s.logger.WithFields(logger.Fields{
		"bank_transaction_id": bankTransactionID,
		"payment_id":          paymentID,
		"user_id":             opts.UserID,
	})
	log.Info("Creating discrepancy")

	notes := strings.TrimSpace(opts.Notes)
	if notes == "" {
		notes = DefaultDiscrepancyNote
	}

	var created *models.ReconciliationDiscrepancy
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		txn, p, err := loadPair(ctx, tx, bankTransactionID, paymentID)
		if err != nil {
			return err
		}
		if txn.Status == models.BankTransactionMatched || txn.Status == models.BankTransactionCancelled {
			return errors.ConflictError(errors.CodeInvalidState, "bank transaction", txn.ID,
				fmt.Sprintf("cannot flag a transaction in status '%s'", txn.Status), nil)
		}
		if p.ReconciliationStatus == models.ReconciliationMatched {
			return errors.ConflictError(errors.CodeAlreadyMatched, "payment", p.ID,
				"payment is already matched", nil)
		}

		if err := tx.UpdateBankTransactionStatus(ctx, txn.ID, models.BankTransactionDiscrepancy); err != nil {
			return storeWriteError(err, "update bank transaction status")
		}
		if err := tx.UpdatePaymentReconciliation(ctx, p.ID, models.ReconciliationStatusDiscrepancy, p.LinkedConfidence); err != nil {
			return storeWriteError(err, "update payment reconciliation")
		}

		d := &models.ReconciliationDiscrepancy{
			CompanyID:         txn.CompanyID,
			BankTransactionID: txn.ID,
			PaymentID:         p.ID,
			BankAmount:        txn.Amount,
			PaymentAmount:     p.Amount,
			AmountDifference:  p.Amount.Sub(txn.Amount),
			Notes:             notes,
			ResolvedAs:        opts.ResolvedAs,
			Status:            models.DiscrepancyOpen,
			CreatedAt:         s.clock(),
			CreatedBy:         opts.UserID,
		}
		id, err := tx.InsertDiscrepancy(ctx, d)
		if err != nil {
			return storeWriteError(err, "insert discrepancy")
		}
		d.ID = id
		created = d
		return nil
	})
	if err != nil {
		err = mapStoreError(err, "create discrepancy")
		log.WithError(err).Error("Discrepancy creation failed")
		return fail(result, err)
	}

	result.Success = true
	result.DiscrepancyID = created.ID
	result.Discrepancy = created
	log.WithField("discrepancy_id", created.ID).Info("Discrepancy created")
	return result, nil
}

// ResolveOptions are the optional inputs of ResolveDiscrepancy.
type ResolveOptions struct {
	ResolvedAs             models.DiscrepancyResolution
	Resolution             string
	CorrectedBankAmount    *decimal.Decimal
	CorrectedPaymentAmount *decimal.Decimal
	UserID                 string
}

// ResolveResult is the outcome of ResolveDiscrepancy.
type ResolveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (r *ResolveResult) setError(msg string) { r.Success = false; r.Error = msg }

// ResolveDiscrepancy closes a discrepancy. Only the discrepancy row changes;
// the bank transaction and payment stay in discrepancy until a match is
// confirmed for them.
func (s *Service) ResolveDiscrepancy(ctx context.Context, discrepancyID string, opts ResolveOptions) (*ResolveResult, error) {
	result := &ResolveResult{}
	if err := requireID("discrepancy_id", discrepancyID); err != nil {
		return fail(result, err)
	}
	if !opts.ResolvedAs.IsValid() {
		return fail(result, errors.ValidationError(errors.CodeInvalidValue, "resolved_as", opts.ResolvedAs, nil))
	}

	log := s.logger.WithFields(logger.Fields{"discrepancy_id": discrepancyID, "user_id": opts.UserID})
	log.Info("Resolving discrepancy")

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		d, err := tx.GetDiscrepancy(ctx, discrepancyID)
		if err != nil {
			return lookupError(err, errors.CodeDiscrepancyNotFound, "discrepancy", discrepancyID)
		}
		if d.Status == models.DiscrepancyResolved {
			return errors.ConflictError(errors.CodeInvalidState, "discrepancy", d.ID, "discrepancy is already resolved", nil)
		}

		update := models.DiscrepancyUpdate{
			ResolvedAs:             opts.ResolvedAs,
			Resolution:             strings.TrimSpace(opts.Resolution),
			CorrectedBankAmount:    opts.CorrectedBankAmount,
			CorrectedPaymentAmount: opts.CorrectedPaymentAmount,
			ResolvedBy:             opts.UserID,
			ResolvedAt:             s.clock(),
		}
		if err := tx.UpdateDiscrepancy(ctx, d.ID, update); err != nil {
			return storeWriteError(err, "update discrepancy")
		}
		return nil
	})
	if err != nil {
		err = mapStoreError(err, "resolve discrepancy")
		log.WithError(err).Error("Discrepancy resolution failed")
		return fail(result, err)
	}

	result.Success = true
	log.Info("Discrepancy resolved")
	return result, nil
}

// loadPair reads both records of a pairing. All reads happen before any
// write, as some stores require.
func loadPair(ctx context.Context, tx store.Tx, bankTransactionID, paymentID string) (*models.BankTransaction, *models.Payment, error) {
	txn, err := tx.GetBankTransaction(ctx, bankTransactionID)
	if err != nil {
		return nil, nil, lookupError(err, errors.CodeBankTransactionNotFound, "bank transaction", bankTransactionID)
	}
	p, err := tx.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, lookupError(err, errors.CodePaymentNotFound, "payment", paymentID)
	}
	if txn.CompanyID != p.CompanyID {
		return nil, nil, errors.ConflictError(errors.CodeCompanyMismatch, "payment", p.ID,
			"payment belongs to a different company than the bank transaction", nil).
			WithContext("bank_transaction_id", txn.ID)
	}
	return txn, p, nil
}

func lookupError(err error, code errors.ErrorCode, entity, id string) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundError(code, entity, id, nil)
	}
	return errors.StoreError(errors.CodeStoreRead, "read "+entity, err)
}

func storeWriteError(err error, operation string) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundError(errors.CodeRecordNotFound, "record", "", err)
	}
	return errors.StoreError(errors.CodeStoreWrite, operation, err)
}
