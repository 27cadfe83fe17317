package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
	"bank-reconciliation-service/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return New()
	})
}

func TestWithIDGenerator(t *testing.T) {
	n := 0
	s := New(WithIDGenerator(func() string {
		n++
		return "id-" + string(rune('0'+n))
	}))

	rows, err := s.InsertBankTransactions(context.Background(), []*models.BankTransaction{
		{
			CompanyID:       "co",
			TransactionDate: mustDate(t, "2024-01-15"),
			Amount:          mustDecimal(t, "10"),
			TransactionType: models.TransactionTypeCredit,
			Status:          models.BankTransactionPending,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", rows[0].ID)
}

func TestQueriesReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.PutPayments(ctx, []*models.Payment{{
		ID:          "p1",
		CompanyID:   "co",
		Amount:      mustDecimal(t, "5"),
		PaymentDate: mustDate(t, "2024-01-15"),
		Status:      models.PaymentCompleted,
	}}))

	got, err := s.QueryCompletedPayments(ctx, "co")
	require.NoError(t, err)
	got[0].ReconciliationStatus = models.ReconciliationMatched

	again, err := s.QueryCompletedPayments(ctx, "co")
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationUnreconciled, again[0].ReconciliationStatus)
}

func TestUnconfirmedMatchesAreNotExclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := func() *models.ReconciliationMatch {
		return &models.ReconciliationMatch{CompanyID: "co", BankTransactionID: "b1", PaymentID: "p1"}
	}
	for i := 0; i < 2; i++ {
		err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertMatch(ctx, m())
		})
		require.NoError(t, err)
	}
}

func TestUnitOfWorkStagesTouchedRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.PutPayments(ctx, []*models.Payment{
		{ID: "p1", CompanyID: "co", Amount: mustDecimal(t, "5"), PaymentDate: mustDate(t, "2024-01-15"), Status: models.PaymentCompleted},
		{ID: "p2", CompanyID: "co", Amount: mustDecimal(t, "7"), PaymentDate: mustDate(t, "2024-01-16"), Status: models.PaymentCompleted},
	}))
	live := s.state.payments["p2"]

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.UpdatePaymentReconciliation(ctx, "p1", models.ReconciliationMatched, 100); err != nil {
			return err
		}
		got, err := tx.GetPayment(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, models.ReconciliationMatched, got.ReconciliationStatus)
		assert.Len(t, s.state.payments, 2)
		assert.Equal(t, models.ReconciliationUnreconciled, s.state.payments["p1"].ReconciliationStatus)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.ReconciliationUnreconciled, s.state.payments["p1"].ReconciliationStatus)

	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdatePaymentReconciliation(ctx, "p1", models.ReconciliationMatched, 90)
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationMatched, s.state.payments["p1"].ReconciliationStatus)
	assert.Equal(t, 90, s.state.payments["p1"].LinkedConfidence)
	// untouched records are never copied
	assert.Same(t, live, s.state.payments["p2"])
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseImportDate(s)
	require.NoError(t, err)
	return d
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
