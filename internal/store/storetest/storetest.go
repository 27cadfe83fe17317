// Package storetest holds the behaviour every store.Store implementation
// must share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
)

// Backend is a store that can also be seeded with payments.
type Backend interface {
	store.Store
	store.PaymentWriter
}

// Factory returns a backend for one subtest. Every subtest uses its own
// company, so a shared backend such as an emulator is acceptable.
type Factory func(t *testing.T) Backend

var (
	base = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

	// runID keeps records from earlier runs against a persistent backend apart.
	runID = uuid.NewString()[:8]
)

// Run executes the conformance suite against backends built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("InsertAndQueryPending", func(t *testing.T) { testInsertAndQueryPending(t, newBackend(t)) })
	t.Run("InsertRejectsInvalidBatch", func(t *testing.T) { testInsertRejectsInvalidBatch(t, newBackend(t)) })
	t.Run("CompletedPaymentsOnly", func(t *testing.T) { testCompletedPaymentsOnly(t, newBackend(t)) })
	t.Run("RangeQueries", func(t *testing.T) { testRangeQueries(t, newBackend(t)) })
	t.Run("TxCommit", func(t *testing.T) { testTxCommit(t, newBackend(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newBackend(t)) })
	t.Run("ConfirmedMatchExclusivity", func(t *testing.T) { testConfirmedMatchExclusivity(t, newBackend(t)) })
	t.Run("ConcurrentConfirmations", func(t *testing.T) { testConcurrentConfirmations(t, newBackend(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newBackend(t)) })
	t.Run("DiscrepancyLifecycle", func(t *testing.T) { testDiscrepancyLifecycle(t, newBackend(t)) })
}

func companyFor(t *testing.T) string {
	return "co-" + runID + "-" + strings.ReplaceAll(t.Name(), "/", "_")
}

func bankTxn(companyID, ref, amount string, date time.Time) *models.BankTransaction {
	a := decimal.RequireFromString(amount)
	return &models.BankTransaction{
		CompanyID:       companyID,
		TransactionDate: date,
		Amount:          a,
		Currency:        "QAR",
		ReferenceNumber: ref,
		TransactionType: models.TransactionTypeFromAmount(a),
		Status:          models.BankTransactionPending,
		CreatedAt:       base,
	}
}

func payment(companyID, id, amount string, date time.Time, status models.PaymentStatus) *models.Payment {
	return &models.Payment{
		ID:          id,
		CompanyID:   companyID,
		Amount:      decimal.RequireFromString(amount),
		PaymentDate: date,
		Status:      status,
	}
}

func seedPair(t *testing.T, b Backend, companyID string) (*models.BankTransaction, *models.Payment) {
	t.Helper()
	ctx := context.Background()

	rows, err := b.InsertBankTransactions(ctx, []*models.BankTransaction{bankTxn(companyID, "R1", "100.00", base)})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	p := payment(companyID, companyID+"-p1", "100.00", base, models.PaymentCompleted)
	require.NoError(t, b.PutPayments(ctx, []*models.Payment{p}))
	return rows[0], p
}

func testInsertAndQueryPending(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)

	rows, err := b.InsertBankTransactions(ctx, []*models.BankTransaction{
		bankTxn(companyID, "OLD", "50.00", base.AddDate(0, 0, -2)),
		bankTxn(companyID, "NEW", "-20.50", base),
		bankTxn("other-"+companyID, "FOREIGN", "10.00", base),
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.NotEmpty(t, r.ID)
	}

	pending, err := b.QueryPendingBankTransactions(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "NEW", pending[0].ReferenceNumber)
	assert.Equal(t, "OLD", pending[1].ReferenceNumber)
	assert.True(t, pending[0].Amount.Equal(decimal.RequireFromString("-20.50")))
	assert.Equal(t, models.TransactionTypeDebit, pending[0].TransactionType)
	assert.True(t, pending[0].TransactionDate.Equal(base))
}

func testInsertRejectsInvalidBatch(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)

	bad := bankTxn(companyID, "BAD", "1.00", base)
	bad.Amount = decimal.Zero
	_, err := b.InsertBankTransactions(ctx, []*models.BankTransaction{
		bankTxn(companyID, "GOOD", "1.00", base),
		bad,
	})
	require.Error(t, err)

	pending, err := b.QueryPendingBankTransactions(ctx, companyID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func testCompletedPaymentsOnly(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)

	require.NoError(t, b.PutPayments(ctx, []*models.Payment{
		payment(companyID, companyID+"-a", "10.00", base.AddDate(0, 0, -1), models.PaymentCompleted),
		payment(companyID, companyID+"-b", "20.00", base, models.PaymentCompleted),
		payment(companyID, companyID+"-c", "30.00", base, models.PaymentPending),
	}))

	got, err := b.QueryCompletedPayments(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, companyID+"-b", got[0].ID)
	assert.Equal(t, companyID+"-a", got[1].ID)
}

func testRangeQueries(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)

	_, err := b.InsertBankTransactions(ctx, []*models.BankTransaction{
		bankTxn(companyID, "IN", "10.00", base),
		bankTxn(companyID, "OUT", "10.00", base.AddDate(0, 0, -40)),
	})
	require.NoError(t, err)
	require.NoError(t, b.PutPayments(ctx, []*models.Payment{
		payment(companyID, companyID+"-in", "10.00", base, models.PaymentCompleted),
		payment(companyID, companyID+"-out", "10.00", base.AddDate(0, 0, -40), models.PaymentCompleted),
	}))

	r := models.DateRange{Start: base.AddDate(0, 0, -30), End: base}

	txns, err := b.QueryBankTransactionsInRange(ctx, companyID, r)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "IN", txns[0].ReferenceNumber)

	pays, err := b.QueryCompletedPaymentsInRange(ctx, companyID, r)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, companyID+"-in", pays[0].ID)
}

func testTxCommit(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)
	txn, p := seedPair(t, b, companyID)

	var matchID string
	err := b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetBankTransaction(ctx, txn.ID); err != nil {
			return err
		}
		if _, err := tx.GetPayment(ctx, p.ID); err != nil {
			return err
		}
		if err := tx.UpdateBankTransactionStatus(ctx, txn.ID, models.BankTransactionMatched); err != nil {
			return err
		}
		if err := tx.UpdatePaymentReconciliation(ctx, p.ID, models.ReconciliationMatched, 100); err != nil {
			return err
		}
		m := &models.ReconciliationMatch{
			CompanyID:         companyID,
			BankTransactionID: txn.ID,
			PaymentID:         p.ID,
			MatchType:         models.MatchManual,
			Confidence:        100,
			AmountDifference:  decimal.Zero,
			MatchedAt:         base,
			Confirmed:         true,
		}
		if err := tx.InsertMatch(ctx, m); err != nil {
			return err
		}
		matchID = m.ID
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, matchID)

	pending, err := b.QueryPendingBankTransactions(ctx, companyID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	pays, err := b.QueryCompletedPayments(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, models.ReconciliationMatched, pays[0].ReconciliationStatus)
	assert.Equal(t, 100, pays[0].LinkedConfidence)

	matches, err := b.QueryMatchesInRange(ctx, companyID, models.DateRange{Start: base.AddDate(0, 0, -1), End: base.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, matchID, matches[0].ID)
	assert.True(t, matches[0].Confirmed)
}

func testTxRollback(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)
	txn, p := seedPair(t, b, companyID)

	boom := errors.New("boom")
	err := b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.UpdateBankTransactionStatus(ctx, txn.ID, models.BankTransactionMatched); err != nil {
			return err
		}
		if err := tx.UpdatePaymentReconciliation(ctx, p.ID, models.ReconciliationMatched, 100); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	pending, err := b.QueryPendingBankTransactions(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	pays, err := b.QueryCompletedPayments(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, models.ReconciliationUnreconciled, pays[0].ReconciliationStatus)
}

func testConfirmedMatchExclusivity(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)
	txn, p := seedPair(t, b, companyID)

	insert := func(confirmed bool) error {
		return b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertMatch(ctx, &models.ReconciliationMatch{
				CompanyID:         companyID,
				BankTransactionID: txn.ID,
				PaymentID:         p.ID,
				MatchType:         models.MatchManual,
				Confidence:        100,
				AmountDifference:  decimal.Zero,
				MatchedAt:         base,
				Confirmed:         confirmed,
			})
		})
	}

	require.NoError(t, insert(true))
	err := insert(true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrAlreadyConfirmed), "got %v", err)

	matches, err := b.QueryMatchesInRange(ctx, companyID, models.DateRange{Start: base, End: base})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

var errPaymentTaken = errors.New("payment already matched")

// testConcurrentConfirmations races several units of work that each try to
// link a different bank transaction to the same payment.
func testConcurrentConfirmations(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)

	const n = 8
	batch := make([]*models.BankTransaction, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, bankTxn(companyID, "R"+string(rune('A'+i)), "100.00", base))
	}
	txns, err := b.InsertBankTransactions(ctx, batch)
	require.NoError(t, err)
	require.Len(t, txns, n)

	p := payment(companyID, companyID+"-p1", "100.00", base, models.PaymentCompleted)
	require.NoError(t, b.PutPayments(ctx, []*models.Payment{p}))

	confirm := func(txnID string) error {
		return b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			got, err := tx.GetPayment(ctx, p.ID)
			if err != nil {
				return err
			}
			if got.ReconciliationStatus == models.ReconciliationMatched {
				return errPaymentTaken
			}
			if err := tx.UpdateBankTransactionStatus(ctx, txnID, models.BankTransactionMatched); err != nil {
				return err
			}
			if err := tx.UpdatePaymentReconciliation(ctx, p.ID, models.ReconciliationMatched, 100); err != nil {
				return err
			}
			return tx.InsertMatch(ctx, &models.ReconciliationMatch{
				CompanyID:         companyID,
				BankTransactionID: txnID,
				PaymentID:         p.ID,
				MatchType:         models.MatchManual,
				Confidence:        100,
				AmountDifference:  decimal.Zero,
				MatchedAt:         base,
				Confirmed:         true,
			})
		})
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, txn := range txns {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := confirm(id)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(txn.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, errPaymentTaken) || errors.Is(err, store.ErrAlreadyConfirmed), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	matches, err := b.QueryMatchesInRange(ctx, companyID, models.DateRange{Start: base, End: base})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].Confirmed)
	assert.Equal(t, p.ID, matches[0].PaymentID)

	pending, err := b.QueryPendingBankTransactions(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, pending, n-1)

	pays, err := b.QueryCompletedPayments(ctx, companyID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, models.ReconciliationMatched, pays[0].ReconciliationStatus)
}

func testNotFound(t *testing.T, b Backend) {
	ctx := context.Background()

	err := b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.GetBankTransaction(ctx, "missing")
		return err
	})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	err = b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.GetPayment(ctx, "missing")
		return err
	})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	err = b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateBankTransactionStatus(ctx, "missing", models.BankTransactionMatched)
	})
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func testDiscrepancyLifecycle(t *testing.T, b Backend) {
	ctx := context.Background()
	companyID := companyFor(t)
	txn, p := seedPair(t, b, companyID)

	var id string
	err := b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		id, err = tx.InsertDiscrepancy(ctx, &models.ReconciliationDiscrepancy{
			CompanyID:         companyID,
			BankTransactionID: txn.ID,
			PaymentID:         p.ID,
			BankAmount:        decimal.RequireFromString("100.00"),
			PaymentAmount:     decimal.RequireFromString("98.00"),
			AmountDifference:  decimal.RequireFromString("-2.00"),
			Notes:             "amount mismatch",
			Status:            models.DiscrepancyOpen,
			CreatedAt:         base,
		})
		return err
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	corrected := decimal.RequireFromString("98.00")
	resolvedAt := base.Add(time.Hour)
	err = b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateDiscrepancy(ctx, id, models.DiscrepancyUpdate{
			ResolvedAs:          models.ResolutionPaymentCorrect,
			Resolution:          "bank fee",
			CorrectedBankAmount: &corrected,
			ResolvedBy:          "auditor",
			ResolvedAt:          resolvedAt,
		})
	})
	require.NoError(t, err)

	var got *models.ReconciliationDiscrepancy
	err = b.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		got, err = tx.GetDiscrepancy(ctx, id)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, models.DiscrepancyResolved, got.Status)
	assert.Equal(t, models.ResolutionPaymentCorrect, got.ResolvedAs)
	assert.Equal(t, "bank fee", got.Resolution)
	require.NotNil(t, got.CorrectedBankAmount)
	assert.True(t, got.CorrectedBankAmount.Equal(corrected))
	assert.Nil(t, got.CorrectedPaymentAmount)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(resolvedAt))
	assert.True(t, got.AmountDifference.Equal(decimal.RequireFromString("-2")))

	list, err := b.QueryDiscrepanciesInRange(ctx, companyID, models.DateRange{Start: base, End: base})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}
