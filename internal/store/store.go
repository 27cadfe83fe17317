// Package store defines the keyed-record store contract the reconciliation
// service depends on. Implementations live in the memory, sqlite and
// firestore subpackages.
//
// Every query is scoped to one company. Mutations that must succeed or fail
// together run inside RunInTx: if the callback returns an error, none of its
// writes are kept.
package store

import (
	"context"
	"errors"
	"time"

	"bank-reconciliation-service/internal/models"
)

//go:generate mockgen -destination=mocks/mock_store.go -source=store.go

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyConfirmed is returned by InsertMatch when a confirmed match
	// already exists for the bank transaction or the payment.
	ErrAlreadyConfirmed = errors.New("confirmed match already exists")
)

// Tx is the set of operations available inside a unit of work.
type Tx interface {
	GetBankTransaction(ctx context.Context, id string) (*models.BankTransaction, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetDiscrepancy(ctx context.Context, id string) (*models.ReconciliationDiscrepancy, error)

	UpdateBankTransactionStatus(ctx context.Context, id string, status models.BankTransactionStatus) error
	UpdatePaymentReconciliation(ctx context.Context, id string, status models.ReconciliationStatus, confidence int) error

	InsertMatch(ctx context.Context, match *models.ReconciliationMatch) error
	InsertDiscrepancy(ctx context.Context, d *models.ReconciliationDiscrepancy) (string, error)
	UpdateDiscrepancy(ctx context.Context, id string, update models.DiscrepancyUpdate) error
}

// Store is the persistent collaborator of the reconciliation service.
type Store interface {
	// InsertBankTransactions stores all rows or none. Rows without an ID are
	// assigned one; the stored rows are returned.
	InsertBankTransactions(ctx context.Context, rows []*models.BankTransaction) ([]*models.BankTransaction, error)

	// QueryPendingBankTransactions returns pending rows, newest transaction date first.
	QueryPendingBankTransactions(ctx context.Context, companyID string) ([]*models.BankTransaction, error)

	// QueryCompletedPayments returns completed payments, newest payment date first.
	QueryCompletedPayments(ctx context.Context, companyID string) ([]*models.Payment, error)

	QueryBankTransactionsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.BankTransaction, error)
	QueryCompletedPaymentsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.Payment, error)
	QueryMatchesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationMatch, error)
	QueryDiscrepanciesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationDiscrepancy, error)

	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// PaymentWriter seeds payment snapshots. Payments are owned by another
// subsystem, so only local tooling writes them.
type PaymentWriter interface {
	PutPayments(ctx context.Context, payments []*models.Payment) error
}

// Clock returns the current time. Stores and the service take one so tests
// can pin timestamps.
type Clock func() time.Time
