package reconciler

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-reconciliation-service/internal/matcher"
	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
	"bank-reconciliation-service/internal/store/memory"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

const company = "company-1"

var fixedNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, st store.Store, mutate ...func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	svc, err := NewService(st, cfg,
		WithLogger(logger.NewNopLogger()),
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return svc
}

func date(s string) time.Time {
	d, err := models.ParseImportDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedTxn(t *testing.T, st *memory.Store, companyID, ref, amount, day string) *models.BankTransaction {
	t.Helper()
	a := dec(amount)
	rows, err := st.InsertBankTransactions(context.Background(), []*models.BankTransaction{{
		CompanyID:       companyID,
		TransactionDate: date(day),
		Amount:          a,
		Currency:        "QAR",
		ReferenceNumber: ref,
		TransactionType: models.TransactionTypeFromAmount(a),
		Status:          models.BankTransactionPending,
		CreatedAt:       fixedNow,
	}})
	require.NoError(t, err)
	return rows[0]
}

func seedPayment(t *testing.T, st *memory.Store, companyID, id, ref, amount, day string) *models.Payment {
	t.Helper()
	p := &models.Payment{
		ID:              id,
		CompanyID:       companyID,
		Amount:          dec(amount),
		PaymentDate:     date(day),
		ReferenceNumber: ref,
		Status:          models.PaymentCompleted,
	}
	require.NoError(t, st.PutPayments(context.Background(), []*models.Payment{p}))
	return p
}

func getTxn(t *testing.T, st store.Store, id string) *models.BankTransaction {
	t.Helper()
	var out *models.BankTransaction
	require.NoError(t, st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.GetBankTransaction(ctx, id)
		return err
	}))
	return out
}

func getPayment(t *testing.T, st store.Store, id string) *models.Payment {
	t.Helper()
	var out *models.Payment
	require.NoError(t, st.RunInTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.GetPayment(ctx, id)
		return err
	}))
	return out
}

func requireCategory(t *testing.T, err error, category errors.ErrorCategory, code errors.ErrorCode) {
	t.Helper()
	re, ok := errors.AsReconcilerError(err)
	require.True(t, ok, "expected ReconcilerError, got %v", err)
	assert.Equal(t, category, re.Category)
	assert.Equal(t, code, re.Code)
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.MinConfidence = 101
	_, err = NewService(memory.New(), cfg)
	requireCategory(t, err, errors.CategoryConfiguration, errors.CodeInvalidConfig)

	svc, err := NewService(memory.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 70, *svc.DefaultAutoMatchOptions().MinConfidence)
	assert.Equal(t, matcher.StrategyCombined, svc.DefaultAutoMatchOptions().MatchBy)
}

func TestImportBankTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects whole batch on a bad line", func(t *testing.T) {
		st := memory.New()
		svc := newTestService(t, st)

		res, err := svc.ImportBankTransactions(ctx, company, "date,amount,reference\n2025-01-05,1000.00,INV-100\nbad,xx,", nil)
		requireCategory(t, err, errors.CategoryParse, errors.CodeImportRejected)
		assert.False(t, res.Success)
		assert.Empty(t, res.Imported)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 2, res.Errors[0].Line)
		assert.Equal(t, errors.CodeInvalidAmount, res.Errors[0].Code)
		assert.Contains(t, res.Error, "line 2")

		pending, err := st.QueryPendingBankTransactions(ctx, company)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("stores clean batch as pending", func(t *testing.T) {
		st := memory.New()
		svc := newTestService(t, st)

		res, err := svc.ImportBankTransactions(ctx, company,
			"date,amount,reference\n2025-01-05,1000.00,INV-100\n\n06/01/2025,-25.50,FEE", nil)
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.Len(t, res.Imported, 2)
		for _, bt := range res.Imported {
			assert.NotEmpty(t, bt.ID)
			assert.Equal(t, models.BankTransactionPending, bt.Status)
			assert.Equal(t, "QAR", bt.Currency)
			assert.True(t, bt.CreatedAt.Equal(fixedNow))
		}
		assert.Equal(t, models.TransactionTypeDebit, res.Imported[1].TransactionType)

		pending, err := st.QueryPendingBankTransactions(ctx, company)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})

	t.Run("empty extract succeeds with nothing stored", func(t *testing.T) {
		svc := newTestService(t, memory.New())
		res, err := svc.ImportBankTransactions(ctx, company, "date,amount\n", nil)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.Imported)
	})

	t.Run("requires company", func(t *testing.T) {
		svc := newTestService(t, memory.New())
		res, err := svc.ImportBankTransactions(ctx, " ", "date,amount\n2025-01-05,1", nil)
		requireCategory(t, err, errors.CategoryValidation, errors.CodeMissingField)
		assert.False(t, res.Success)
	})
}

func TestAutoMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to match", func(t *testing.T) {
		svc := newTestService(t, memory.New())
		res, err := svc.AutoMatch(ctx, company, svc.DefaultAutoMatchOptions())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.Matches)
		assert.Equal(t, []string{NothingToMatch}, res.Errors)
	})

	t.Run("drops date-only candidate below min confidence", func(t *testing.T) {
		st := memory.New()
		seedTxn(t, st, company, "BANK-REF", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "OTHER", "500.00", "2025-01-06")
		svc := newTestService(t, st)

		opts := svc.DefaultAutoMatchOptions()
		strict := 80
		opts.MinConfidence = &strict
		res, err := svc.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		assert.Empty(t, res.Matches)
		assert.Equal(t, 1, res.TransactionsScanned)

		loose := 60
		opts.MinConfidence = &loose
		res, err = svc.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, 60, res.Matches[0].Confidence)
	})

	t.Run("zero options use configured min confidence", func(t *testing.T) {
		st := memory.New()
		seedTxn(t, st, company, "BANK-REF", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "OTHER", "500.00", "2025-01-06")
		svc := newTestService(t, st)

		res, err := svc.AutoMatch(ctx, company, AutoMatchOptions{})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.Matches)
		assert.Equal(t, 1, res.TransactionsScanned)

		lenient := newTestService(t, st, func(c *Config) { c.MinConfidence = 50 })
		res, err = lenient.AutoMatch(ctx, company, AutoMatchOptions{})
		require.NoError(t, err)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, 60, res.Matches[0].Confidence)
	})

	t.Run("proposals are not persisted", func(t *testing.T) {
		st := memory.New()
		txn := seedTxn(t, st, company, "INV-100", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "inv-100", "1000.00", "2025-01-05")
		svc := newTestService(t, st)

		res, err := svc.AutoMatch(ctx, company, svc.DefaultAutoMatchOptions())
		require.NoError(t, err)
		// reference and amount both fire for the same payment
		require.Len(t, res.Matches, 2)
		for _, m := range res.Matches {
			assert.False(t, m.Confirmed)
			assert.Empty(t, m.ID)
			assert.Equal(t, txn.ID, m.BankTransactionID)
			assert.True(t, m.MatchedAt.Equal(fixedNow))
		}

		assert.Equal(t, models.BankTransactionPending, getTxn(t, st, txn.ID).Status)
		assert.Equal(t, models.ReconciliationUnreconciled, getPayment(t, st, "p1").ReconciliationStatus)
	})

	t.Run("deduplicate and cap per transaction", func(t *testing.T) {
		st := memory.New()
		seedTxn(t, st, company, "INV-100", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "INV-100", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p2", "", "1020.00", "2025-01-05")
		svc := newTestService(t, st)

		opts := svc.DefaultAutoMatchOptions()
		opts.Deduplicate = true
		res, err := svc.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		require.Len(t, res.Matches, 2)
		assert.Equal(t, "p1", res.Matches[0].PaymentID)
		assert.Equal(t, "p2", res.Matches[1].PaymentID)

		opts.MaxMatchesPerTransaction = 1
		res, err = svc.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, "p1", res.Matches[0].PaymentID)
		assert.Equal(t, 100, res.Matches[0].Confidence)
	})

	t.Run("max age filters old transactions", func(t *testing.T) {
		st := memory.New()
		seedTxn(t, st, company, "OLD", "10.00", "2024-12-01")
		recent := seedTxn(t, st, company, "NEW", "20.00", "2025-01-08")
		seedPayment(t, st, company, "p1", "OLD", "10.00", "2024-12-01")
		seedPayment(t, st, company, "p2", "NEW", "20.00", "2025-01-08")
		svc := newTestService(t, st)

		days := 7
		opts := svc.DefaultAutoMatchOptions()
		opts.MaxAgeDays = &days
		opts.MatchBy = matcher.StrategyReference
		res, err := svc.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, res.TransactionsScanned)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, recent.ID, res.Matches[0].BankTransactionID)
	})

	t.Run("parallel pass matches sequential pass", func(t *testing.T) {
		st := memory.New()
		for i := 0; i < 20; i++ {
			ref := fmt.Sprintf("INV-%03d", i)
			amount := fmt.Sprintf("%d.00", 100+i*10)
			seedTxn(t, st, company, ref, amount, "2025-01-05")
			seedPayment(t, st, company, fmt.Sprintf("p%02d", i), ref, amount, "2025-01-05")
		}

		sequential := newTestService(t, st, func(c *Config) { c.MaxWorkers = 1 })
		parallel := newTestService(t, st, func(c *Config) {
			c.MaxWorkers = 4
			c.ParallelThreshold = 1
		})

		opts := sequential.DefaultAutoMatchOptions()
		want, err := sequential.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		got, err := parallel.AutoMatch(ctx, company, opts)
		require.NoError(t, err)
		assert.Equal(t, want.Matches, got.Matches)
		assert.NotEmpty(t, got.Matches)
	})

	t.Run("invalid options", func(t *testing.T) {
		svc := newTestService(t, memory.New())
		opts := svc.DefaultAutoMatchOptions()
		opts.MatchBy = "fuzzy"
		_, err := svc.AutoMatch(ctx, company, opts)
		requireCategory(t, err, errors.CategoryValidation, errors.CodeInvalidValue)

		opts = svc.DefaultAutoMatchOptions()
		neg := -1
		opts.MaxAgeDays = &neg
		_, err = svc.AutoMatch(ctx, company, opts)
		requireCategory(t, err, errors.CategoryValidation, errors.CodeOutOfRange)

		opts = svc.DefaultAutoMatchOptions()
		over := 101
		opts.MinConfidence = &over
		_, err = svc.AutoMatch(ctx, company, opts)
		requireCategory(t, err, errors.CategoryValidation, errors.CodeOutOfRange)
	})
}

func TestConfirmMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("forces confidence 100 and updates both records", func(t *testing.T) {
		st := memory.New()
		txn := seedTxn(t, st, company, "X", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "Y", "990.00", "2025-01-07")
		svc := newTestService(t, st)

		res, err := svc.ConfirmMatch(ctx, txn.ID, "p1", "auditor")
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.NotNil(t, res.Match)
		assert.NotEmpty(t, res.Match.ID)
		assert.Equal(t, 100, res.Match.Confidence)
		assert.Equal(t, models.MatchManual, res.Match.MatchType)
		assert.True(t, res.Match.Confirmed)
		assert.Equal(t, "auditor", res.Match.MatchedBy)
		assert.True(t, res.Match.AmountDifference.Equal(dec("-10")))

		assert.Equal(t, models.BankTransactionMatched, getTxn(t, st, txn.ID).Status)
		p := getPayment(t, st, "p1")
		assert.Equal(t, models.ReconciliationMatched, p.ReconciliationStatus)
		assert.Equal(t, 100, p.LinkedConfidence)
	})

	t.Run("second confirmation of the same transaction fails", func(t *testing.T) {
		st := memory.New()
		txn := seedTxn(t, st, company, "X", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p2", "", "1000.00", "2025-01-05")
		svc := newTestService(t, st)

		_, err := svc.ConfirmMatch(ctx, txn.ID, "p1", "")
		require.NoError(t, err)

		res, err := svc.ConfirmMatch(ctx, txn.ID, "p2", "")
		requireCategory(t, err, errors.CategoryConflict, errors.CodeInvalidState)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
		assert.Equal(t, models.ReconciliationUnreconciled, getPayment(t, st, "p2").ReconciliationStatus)
	})

	t.Run("payment cannot be confirmed twice", func(t *testing.T) {
		st := memory.New()
		a := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
		b := seedTxn(t, st, company, "B", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "", "1000.00", "2025-01-05")
		svc := newTestService(t, st)

		_, err := svc.ConfirmMatch(ctx, a.ID, "p1", "")
		require.NoError(t, err)

		_, err = svc.ConfirmMatch(ctx, b.ID, "p1", "")
		requireCategory(t, err, errors.CategoryConflict, errors.CodeAlreadyMatched)
		assert.Equal(t, models.BankTransactionPending, getTxn(t, st, b.ID).Status)
	})

	t.Run("store exclusivity backs the state checks", func(t *testing.T) {
		st := memory.New()
		a := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
		b := seedTxn(t, st, company, "B", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "", "1000.00", "2025-01-05")
		svc := newTestService(t, st)

		_, err := svc.ConfirmMatch(ctx, a.ID, "p1", "")
		require.NoError(t, err)

		// Simulate a stale payment annotation so only the store check remains.
		require.NoError(t, st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.UpdatePaymentReconciliation(ctx, "p1", models.ReconciliationUnreconciled, 0)
		}))

		_, err = svc.ConfirmMatch(ctx, b.ID, "p1", "")
		requireCategory(t, err, errors.CategoryConflict, errors.CodeAlreadyMatched)
		assert.Equal(t, models.BankTransactionPending, getTxn(t, st, b.ID).Status)
	})

	t.Run("discrepancy transaction can be confirmed", func(t *testing.T) {
		st := memory.New()
		txn := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
		seedPayment(t, st, company, "p1", "", "980.00", "2025-01-05")
		svc := newTestService(t, st)

		_, err := svc.CreateDiscrepancy(ctx, txn.ID, "p1", DiscrepancyOptions{})
		require.NoError(t, err)
		_, err = svc.ConfirmMatch(ctx, txn.ID, "p1", "")
		require.NoError(t, err)
		assert.Equal(t, models.BankTransactionMatched, getTxn(t, st, txn.ID).Status)
	})

	t.Run("missing records", func(t *testing.T) {
		st := memory.New()
		txn := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
		svc := newTestService(t, st)

		_, err := svc.ConfirmMatch(ctx, "missing", "p1", "")
		requireCategory(t, err, errors.CategoryNotFound, errors.CodeBankTransactionNotFound)

		res, err := svc.ConfirmMatch(ctx, txn.ID, "missing", "")
		requireCategory(t, err, errors.CategoryNotFound, errors.CodePaymentNotFound)
		assert.Contains(t, res.Error, "not found")
		assert.Equal(t, models.BankTransactionPending, getTxn(t, st, txn.ID).Status)
	})

	t.Run("cross-company pairing is rejected", func(t *testing.T) {
		st := memory.New()
		txn := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
		seedPayment(t, st, "company-2", "p1", "", "1000.00", "2025-01-05")
		svc := newTestService(t, st)

		_, err := svc.ConfirmMatch(ctx, txn.ID, "p1", "")
		requireCategory(t, err, errors.CategoryConflict, errors.CodeCompanyMismatch)
	})
}

// failingStore wraps a store so InsertMatch fails inside the unit of work.
type failingStore struct {
	store.Store
}

type failingTx struct {
	store.Tx
}

func (s failingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.Store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingTx{tx})
	})
}

func (failingTx) InsertMatch(context.Context, *models.ReconciliationMatch) error {
	return stderrors.New("disk full")
}

func (failingTx) InsertDiscrepancy(context.Context, *models.ReconciliationDiscrepancy) (string, error) {
	return "", stderrors.New("disk full")
}

func TestFailedWriteLeavesRecordsUnchanged(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	txn := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
	seedPayment(t, st, company, "p1", "", "1000.00", "2025-01-05")
	svc := newTestService(t, failingStore{st})

	res, err := svc.ConfirmMatch(ctx, txn.ID, "p1", "")
	requireCategory(t, err, errors.CategoryStore, errors.CodeStoreWrite)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "disk full")

	_, err = svc.CreateDiscrepancy(ctx, txn.ID, "p1", DiscrepancyOptions{})
	requireCategory(t, err, errors.CategoryStore, errors.CodeStoreWrite)

	assert.Equal(t, models.BankTransactionPending, getTxn(t, st, txn.ID).Status)
	p := getPayment(t, st, "p1")
	assert.Equal(t, models.ReconciliationUnreconciled, p.ReconciliationStatus)
	assert.Equal(t, 0, p.LinkedConfidence)
}

func TestDiscrepancyLifecycle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	txn := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
	seedPayment(t, st, company, "p1", "", "975.00", "2025-01-05")
	svc := newTestService(t, st)

	created, err := svc.CreateDiscrepancy(ctx, txn.ID, "p1", DiscrepancyOptions{UserID: "clerk"})
	require.NoError(t, err)
	require.True(t, created.Success)
	require.NotEmpty(t, created.DiscrepancyID)
	d := created.Discrepancy
	assert.Equal(t, DefaultDiscrepancyNote, d.Notes)
	assert.Equal(t, models.DiscrepancyOpen, d.Status)
	assert.True(t, d.AmountDifference.Equal(dec("-25")))
	assert.Equal(t, "clerk", d.CreatedBy)

	assert.Equal(t, models.BankTransactionDiscrepancy, getTxn(t, st, txn.ID).Status)
	assert.Equal(t, models.ReconciliationStatusDiscrepancy, getPayment(t, st, "p1").ReconciliationStatus)

	corrected := dec("975.00")
	resolved, err := svc.ResolveDiscrepancy(ctx, created.DiscrepancyID, ResolveOptions{
		ResolvedAs:          models.ResolutionPaymentCorrect,
		Resolution:          "bank charged a fee",
		CorrectedBankAmount: &corrected,
		UserID:              "auditor",
	})
	require.NoError(t, err)
	assert.True(t, resolved.Success)

	var stored *models.ReconciliationDiscrepancy
	require.NoError(t, st.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		stored, err = tx.GetDiscrepancy(ctx, created.DiscrepancyID)
		return err
	}))
	assert.Equal(t, models.DiscrepancyResolved, stored.Status)
	assert.Equal(t, "auditor", stored.ResolvedBy)
	require.NotNil(t, stored.ResolvedAt)
	assert.True(t, stored.ResolvedAt.Equal(fixedNow))

	// resolving is paperwork only
	assert.Equal(t, models.BankTransactionDiscrepancy, getTxn(t, st, txn.ID).Status)
	assert.Equal(t, models.ReconciliationStatusDiscrepancy, getPayment(t, st, "p1").ReconciliationStatus)

	_, err = svc.ResolveDiscrepancy(ctx, created.DiscrepancyID, ResolveOptions{})
	requireCategory(t, err, errors.CategoryConflict, errors.CodeInvalidState)

	_, err = svc.ResolveDiscrepancy(ctx, "missing", ResolveOptions{})
	requireCategory(t, err, errors.CategoryNotFound, errors.CodeDiscrepancyNotFound)
}

func TestCreateDiscrepancyValidation(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	txn := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
	seedPayment(t, st, company, "p1", "", "1000.00", "2025-01-05")
	svc := newTestService(t, st)

	_, err := svc.CreateDiscrepancy(ctx, txn.ID, "missing", DiscrepancyOptions{})
	requireCategory(t, err, errors.CategoryNotFound, errors.CodePaymentNotFound)
	assert.Equal(t, models.BankTransactionPending, getTxn(t, st, txn.ID).Status)

	_, err = svc.CreateDiscrepancy(ctx, txn.ID, "p1", DiscrepancyOptions{ResolvedAs: "whatever"})
	requireCategory(t, err, errors.CategoryValidation, errors.CodeInvalidValue)

	res, err := svc.CreateDiscrepancy(ctx, txn.ID, "p1", DiscrepancyOptions{Notes: "timing", ResolvedAs: models.ResolutionAdjustment})
	require.NoError(t, err)
	assert.Equal(t, "timing", res.Discrepancy.Notes)

	_, err = svc.ConfirmMatch(ctx, txn.ID, "p1", "")
	require.NoError(t, err)
	_, err = svc.CreateDiscrepancy(ctx, txn.ID, "p1", DiscrepancyOptions{})
	requireCategory(t, err, errors.CategoryConflict, errors.CodeInvalidState)
}

func TestCreateDiscrepancyRejectsMatchedPayment(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	txnA := seedTxn(t, st, company, "A", "1000.00", "2025-01-05")
	txnB := seedTxn(t, st, company, "B", "990.00", "2025-01-06")
	seedPayment(t, st, company, "p1", "", "1000.00", "2025-01-05")
	svc := newTestService(t, st)

	_, err := svc.ConfirmMatch(ctx, txnA.ID, "p1", "clerk")
	require.NoError(t, err)

	res, err := svc.CreateDiscrepancy(ctx, txnB.ID, "p1", DiscrepancyOptions{})
	requireCategory(t, err, errors.CategoryConflict, errors.CodeAlreadyMatched)
	assert.False(t, res.Success)

	p := getPayment(t, st, "p1")
	assert.Equal(t, models.ReconciliationMatched, p.ReconciliationStatus)
	assert.Equal(t, 100, p.LinkedConfidence)
	assert.Equal(t, models.BankTransactionPending, getTxn(t, st, txnB.ID).Status)

	start := date("2025-01-01")
	end := date("2025-01-31")
	summary, err := svc.GetSummary(ctx, company, SummaryOptions{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchedPayments)
	assert.Zero(t, summary.DiscrepancyPayments)
	assert.Zero(t, summary.OpenDiscrepancies)
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	for i := 1; i <= 5; i++ {
		seedTxn(t, st, company, fmt.Sprintf("R%d", i), "10.00", fmt.Sprintf("2025-01-0%d", i))
	}
	svc := newTestService(t, st)

	tests := []struct {
		name   string
		limit  int
		offset int
		refs   []string
	}{
		{"all", 0, 0, []string{"R5", "R4", "R3", "R2", "R1"}},
		{"first page", 2, 0, []string{"R5", "R4"}},
		{"second page", 2, 2, []string{"R3", "R2"}},
		{"tail", 2, 4, []string{"R1"}},
		{"past the end", 2, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ListPending(ctx, company, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, 5, res.Total)
			var refs []string
			for _, bt := range res.Transactions {
				refs = append(refs, bt.ReferenceNumber)
			}
			assert.Equal(t, tt.refs, refs)
		})
	}

	_, err := svc.ListPending(ctx, company, -1, 0)
	requireCategory(t, err, errors.CategoryValidation, errors.CodeOutOfRange)
}
