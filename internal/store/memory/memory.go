// Package memory implements store.Store in process memory.
//
// A unit of work runs under the store lock. Reads fall through to the live
// state, writes land in a staging area holding only the touched records, and
// the staged records are published only when the callback succeeds. Units of
// work are therefore serialized. The backend suits tests and single-process
// embedded use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
)

// Store is an in-memory store.Store and store.PaymentWriter.
type Store struct {
	mu    sync.Mutex
	state *state
	newID func() string
}

var (
	_ store.Store         = (*Store)(nil)
	_ store.PaymentWriter = (*Store)(nil)
)

type state struct {
	transactions  map[string]*models.BankTransaction
	payments      map[string]*models.Payment
	matches       map[string]*models.ReconciliationMatch
	discrepancies map[string]*models.ReconciliationDiscrepancy

	// confirmed match id keyed by bank transaction id and by payment id
	confirmedByTxn     map[string]string
	confirmedByPayment map[string]string
}

func newState() *state {
	return &state{
		transactions:       make(map[string]*models.BankTransaction),
		payments:           make(map[string]*models.Payment),
		matches:            make(map[string]*models.ReconciliationMatch),
		discrepancies:      make(map[string]*models.ReconciliationDiscrepancy),
		confirmedByTxn:     make(map[string]string),
		confirmedByPayment: make(map[string]string),
	}
}

// merge publishes the records staged by a unit of work.
func (s *state) merge(staged *state) {
	for k, v := range staged.transactions {
		s.transactions[k] = v
	}
	for k, v := range staged.payments {
		s.payments[k] = v
	}
	for k, v := range staged.matches {
		s.matches[k] = v
	}
	for k, v := range staged.discrepancies {
		s.discrepancies[k] = v
	}
	for k, v := range staged.confirmedByTxn {
		s.confirmedByTxn[k] = v
	}
	for k, v := range staged.confirmedByPayment {
		s.confirmedByPayment[k] = v
	}
}

// Option configures a Store
type Option func(*Store)

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// PutPayments inserts or replaces payment snapshots.
func (s *Store) PutPayments(ctx context.Context, payments []*models.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range payments {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid payment %s: %w", p.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range payments {
		cp := *p
		s.state.payments[p.ID] = &cp
	}
	return nil
}

func (s *Store) InsertBankTransactions(ctx context.Context, rows []*models.BankTransaction) ([]*models.BankTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bank transaction at index %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make([]*models.BankTransaction, 0, len(rows))
	staged := make(map[string]*models.BankTransaction, len(rows))
	for _, row := range rows {
		bt := *row
		if bt.ID == "" {
			bt.ID = s.newID()
		}
		if _, exists := s.state.transactions[bt.ID]; exists {
			return nil, fmt.Errorf("bank transaction %s already exists", bt.ID)
		}
		if _, exists := staged[bt.ID]; exists {
			return nil, fmt.Errorf("duplicate bank transaction id %s in batch", bt.ID)
		}
		staged[bt.ID] = &bt
		out := bt
		inserted = append(inserted, &out)
	}
	for id, bt := range staged {
		s.state.transactions[id] = bt
	}
	return inserted, nil
}

func (s *Store) QueryPendingBankTransactions(ctx context.Context, companyID string) ([]*models.BankTransaction, error) {
	return s.queryTransactions(ctx, func(bt *models.BankTransaction) bool {
		return bt.CompanyID == companyID && bt.Status == models.BankTransactionPending
	})
}

func (s *Store) QueryBankTransactionsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.BankTransaction, error) {
	return s.queryTransactions(ctx, func(bt *models.BankTransaction) bool {
		return bt.CompanyID == companyID && r.Contains(bt.TransactionDate)
	})
}

func (s *Store) queryTransactions(ctx context.Context, keep func(*models.BankTransaction) bool) ([]*models.BankTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.BankTransaction{}
	for _, bt := range s.state.transactions {
		if keep(bt) {
			cp := *bt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.After(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) QueryCompletedPayments(ctx context.Context, companyID string) ([]*models.Payment, error) {
	return s.queryPayments(ctx, func(p *models.Payment) bool {
		return p.CompanyID == companyID && p.IsCompleted()
	})
}

func (s *Store) QueryCompletedPaymentsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.Payment, error) {
	return s.queryPayments(ctx, func(p *models.Payment) bool {
		return p.CompanyID == companyID && p.IsCompleted() && r.Contains(p.PaymentDate)
	})
}

func (s *Store) queryPayments(ctx context.Context, keep func(*models.Payment) bool) ([]*models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Payment{}
	for _, p := range s.state.payments {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) QueryMatchesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.ReconciliationMatch{}
	for _, m := range s.state.matches {
		if m.CompanyID == companyID && r.Contains(m.MatchedAt) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchedAt.After(out[j].MatchedAt) })
	return out, nil
}

func (s *Store) QueryDiscrepanciesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationDiscrepancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.ReconciliationDiscrepancy{}
	for _, d := range s.state.discrepancies {
		if d.CompanyID == companyID && r.Contains(d.CreatedAt) {
			out = append(out, copyDiscrepancy(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// RunInTx runs fn under the store lock and publishes the records it wrote
// only if fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{live: s.state, staged: newState(), newID: s.newID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state.merge(tx.staged)
	return nil
}

// memoryTx never mutates live; every write goes to a staged copy.
type memoryTx struct {
	live   *state
	staged *state
	newID  func() string
}

func (tx *memoryTx) transaction(id string, write bool) (*models.BankTransaction, bool) {
	if bt, ok := tx.staged.transactions[id]; ok {
		return bt, true
	}
	bt, ok := tx.live.transactions[id]
	if !ok || !write {
		return bt, ok
	}
	cp := *bt
	tx.staged.transactions[id] = &cp
	return &cp, true
}

func (tx *memoryTx) payment(id string, write bool) (*models.Payment, bool) {
	if p, ok := tx.staged.payments[id]; ok {
		return p, true
	}
	p, ok := tx.live.payments[id]
	if !ok || !write {
		return p, ok
	}
	cp := *p
	tx.staged.payments[id] = &cp
	return &cp, true
}

func (tx *memoryTx) discrepancy(id string, write bool) (*models.ReconciliationDiscrepancy, bool) {
	if d, ok := tx.staged.discrepancies[id]; ok {
		return d, true
	}
	d, ok := tx.live.discrepancies[id]
	if !ok || !write {
		return d, ok
	}
	cp := copyDiscrepancy(d)
	tx.staged.discrepancies[id] = cp
	return cp, true
}

func (tx *memoryTx) GetBankTransaction(_ context.Context, id string) (*models.BankTransaction, error) {
	bt, ok := tx.transaction(id, false)
	if !ok {
		return nil, fmt.Errorf("bank transaction %s: %w", id, store.ErrNotFound)
	}
	cp := *bt
	return &cp, nil
}

func (tx *memoryTx) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	p, ok := tx.payment(id, false)
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (tx *memoryTx) GetDiscrepancy(_ context.Context, id string) (*models.ReconciliationDiscrepancy, error) {
	d, ok := tx.discrepancy(id, false)
	if !ok {
		return nil, fmt.Errorf("discrepancy %s: %w", id, store.ErrNotFound)
	}
	return copyDiscrepancy(d), nil
}

func (tx *memoryTx) UpdateBankTransactionStatus(_ context.Context, id string, status models.BankTransactionStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid bank transaction status: %s", status)
	}
	bt, ok := tx.transaction(id, true)
	if !ok {
		return fmt.Errorf("bank transaction %s: %w", id, store.ErrNotFound)
	}
	bt.Status = status
	return nil
}

func (tx *memoryTx) UpdatePaymentReconciliation(_ context.Context, id string, status models.ReconciliationStatus, confidence int) error {
	p, ok := tx.payment(id, true)
	if !ok {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	p.ReconciliationStatus = status
	p.LinkedConfidence = confidence
	return nil
}

func (tx *memoryTx) txnConfirmed(id string) bool {
	_, staged := tx.staged.confirmedByTxn[id]
	_, live := tx.live.confirmedByTxn[id]
	return staged || live
}

func (tx *memoryTx) paymentConfirmed(id string) bool {
	_, staged := tx.staged.confirmedByPayment[id]
	_, live := tx.live.confirmedByPayment[id]
	return staged || live
}

func (tx *memoryTx) InsertMatch(_ context.Context, m *models.ReconciliationMatch) error {
	if m.Confirmed {
		if tx.txnConfirmed(m.BankTransactionID) {
			return fmt.Errorf("bank transaction %s: %w", m.BankTransactionID, store.ErrAlreadyConfirmed)
		}
		if tx.paymentConfirmed(m.PaymentID) {
			return fmt.Errorf("payment %s: %w", m.PaymentID, store.ErrAlreadyConfirmed)
		}
	}

	cp := *m
	if cp.ID == "" {
		cp.ID = tx.newID()
	}
	tx.staged.matches[cp.ID] = &cp
	if cp.Confirmed {
		tx.staged.confirmedByTxn[cp.BankTransactionID] = cp.ID
		tx.staged.confirmedByPayment[cp.PaymentID] = cp.ID
	}
	m.ID = cp.ID
	return nil
}

func (tx *memoryTx) InsertDiscrepancy(_ context.Context, d *models.ReconciliationDiscrepancy) (string, error) {
	cp := copyDiscrepancy(d)
	if cp.ID == "" {
		cp.ID = tx.newID()
	}
	if _, exists := tx.discrepancy(cp.ID, false); exists {
		return "", fmt.Errorf("discrepancy %s already exists", cp.ID)
	}
	tx.staged.discrepancies[cp.ID] = cp
	return cp.ID, nil
}

func (tx *memoryTx) UpdateDiscrepancy(_ context.Context, id string, update models.DiscrepancyUpdate) error {
	d, ok := tx.discrepancy(id, true)
	if !ok {
		return fmt.Errorf("discrepancy %s: %w", id, store.ErrNotFound)
	}
	update.Apply(d)
	return nil
}

func copyDiscrepancy(d *models.ReconciliationDiscrepancy) *models.ReconciliationDiscrepancy {
	cp := *d
	if d.CorrectedBankAmount != nil {
		v := *d.CorrectedBankAmount
		cp.CorrectedBankAmount = &v
	}
	if d.CorrectedPaymentAmount != nil {
		v := *d.CorrectedPaymentAmount
		cp.CorrectedPaymentAmount = &v
	}
	if d.ResolvedAt != nil {
		v := *d.ResolvedAt
		cp.ResolvedAt = &v
	}
	return &cp
}
