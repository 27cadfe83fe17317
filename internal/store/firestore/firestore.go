// Package firestore implements store.Store on Cloud Firestore.
//
// Each record type lives in its own top-level collection keyed by record ID.
// Amounts are stored as decimal strings. Confirmation exclusivity is enforced
// with lock documents in match_locks that are created in the same transaction
// as the confirmed match; a second create fails with AlreadyExists.
//
// Firestore transactions require every read to happen before the first
// write, so callers of RunInTx read all the records they need first.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
)

const (
	bankTransactionsCollection = "bank_transactions"
	paymentsCollection         = "payments"
	matchesCollection          = "matches"
	discrepanciesCollection    = "discrepancies"
	locksCollection            = "match_locks"
)

// Store is a Firestore-backed store.Store and store.PaymentWriter.
type Store struct {
	client *firestore.Client
}

var (
	_ store.Store         = (*Store)(nil)
	_ store.PaymentWriter = (*Store)(nil)
)

// New wraps an existing client. Close closes the client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Open creates a client for projectID and wraps it.
func Open(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return New(client), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

type bankTransactionDoc struct {
	CompanyID       string    `firestore:"companyId"`
	TransactionDate time.Time `firestore:"transactionDate"`
	Amount          string    `firestore:"amount"`
	Currency        string    `firestore:"currency"`
	ReferenceNumber string    `firestore:"referenceNumber,omitempty"`
	Description     string    `firestore:"description,omitempty"`
	AccountNumber   string    `firestore:"accountNumber,omitempty"`
	AccountName     string    `firestore:"accountName,omitempty"`
	TransactionType string    `firestore:"transactionType"`
	Status          string    `firestore:"status"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

type paymentDoc struct {
	CompanyID            string    `firestore:"companyId"`
	PaymentNumber        string    `firestore:"paymentNumber,omitempty"`
	Amount               string    `firestore:"amount"`
	PaymentDate          time.Time `firestore:"paymentDate"`
	ReferenceNumber      string    `firestore:"referenceNumber,omitempty"`
	AgreementNumber      string    `firestore:"agreementNumber,omitempty"`
	Status               string    `firestore:"paymentStatus"`
	ReconciliationStatus string    `firestore:"reconciliationStatus"`
	LinkedConfidence     int       `firestore:"linkedConfidence"`
}

type matchDoc struct {
	CompanyID         string    `firestore:"companyId"`
	BankTransactionID string    `firestore:"bankTransactionId"`
	PaymentID         string    `firestore:"paymentId"`
	MatchType         string    `firestore:"matchType"`
	Confidence        int       `firestore:"confidence"`
	AmountDifference  string    `firestore:"amountDifference"`
	Notes             string    `firestore:"notes,omitempty"`
	MatchedAt         time.Time `firestore:"matchedAt"`
	MatchedBy         string    `firestore:"matchedBy,omitempty"`
	Confirmed         bool      `firestore:"confirmed"`
}

type discrepancyDoc struct {
	CompanyID              string     `firestore:"companyId"`
	BankTransactionID      string     `firestore:"bankTransactionId"`
	PaymentID              string     `firestore:"paymentId"`
	BankAmount             string     `firestore:"bankAmount"`
	PaymentAmount          string     `firestore:"paymentAmount"`
	AmountDifference       string     `firestore:"amountDifference"`
	Notes                  string     `firestore:"notes"`
	ResolvedAs             string     `firestore:"resolvedAs,omitempty"`
	Resolution             string     `firestore:"resolution,omitempty"`
	CorrectedBankAmount    *string    `firestore:"correctedBankAmount"`
	CorrectedPaymentAmount *string    `firestore:"correctedPaymentAmount"`
	Status                 string     `firestore:"status"`
	CreatedAt              time.Time  `firestore:"createdAt"`
	CreatedBy              string     `firestore:"createdBy,omitempty"`
	ResolvedAt             *time.Time `firestore:"resolvedAt"`
	ResolvedBy             string     `firestore:"resolvedBy,omitempty"`
}

type lockDoc struct {
	MatchID   string    `firestore:"matchId"`
	CompanyID string    `firestore:"companyId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (s *Store) collection(name string) *firestore.CollectionRef {
	return s.client.Collection(name)
}

// PutPayments upserts payment snapshots with a bulk writer. Unlike
// InsertBankTransactions the batch is not atomic.
func (s *Store) PutPayments(ctx context.Context, payments []*models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	for _, p := range payments {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid payment %s: %w", p.ID, err)
		}
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(payments))
	for _, p := range payments {
		job, err := bw.Set(s.collection(paymentsCollection).Doc(p.ID), toPaymentDoc(p))
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}

	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return err
		}
	}
	return nil
}

// InsertBankTransactions creates every row in one transaction.
func (s *Store) InsertBankTransactions(ctx context.Context, rows []*models.BankTransaction) ([]*models.BankTransaction, error) {
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bank transaction at index %d: %w", i, err)
		}
	}

	inserted := make([]*models.BankTransaction, 0, len(rows))
	for _, row := range rows {
		bt := *row
		if bt.ID == "" {
			bt.ID = uuid.NewString()
		}
		inserted = append(inserted, &bt)
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, bt := range inserted {
			if err := tx.Create(s.collection(bankTransactionsCollection).Doc(bt.ID), toBankTransactionDoc(bt)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, fmt.Errorf("bank transaction already exists: %w", err)
		}
		return nil, err
	}
	return inserted, nil
}

func (s *Store) QueryPendingBankTransactions(ctx context.Context, companyID string) ([]*models.BankTransaction, error) {
	q := s.collection(bankTransactionsCollection).
		Where("companyId", "==", companyID).
		Where("status", "==", string(models.BankTransactionPending)).
		OrderBy("transactionDate", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
	return collectBankTransactions(ctx, q)
}

func (s *Store) QueryBankTransactionsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.BankTransaction, error) {
	q := s.collection(bankTransactionsCollection).
		Where("companyId", "==", companyID).
		Where("transactionDate", ">=", r.Start).
		Where("transactionDate", "<=", r.End).
		OrderBy("transactionDate", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
	return collectBankTransactions(ctx, q)
}

func (s *Store) QueryCompletedPayments(ctx context.Context, companyID string) ([]*models.Payment, error) {
	q := s.collection(paymentsCollection).
		Where("companyId", "==", companyID).
		Where("paymentStatus", "==", string(models.PaymentCompleted)).
		OrderBy("paymentDate", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
	return collectPayments(ctx, q)
}

func (s *Store) QueryCompletedPaymentsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.Payment, error) {
	q := s.collection(paymentsCollection).
		Where("companyId", "==", companyID).
		Where("paymentStatus", "==", string(models.PaymentCompleted)).
		Where("paymentDate", ">=", r.Start).
		Where("paymentDate", "<=", r.End).
		OrderBy("paymentDate", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
	return collectPayments(ctx, q)
}

func (s *Store) QueryMatchesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationMatch, error) {
	q := s.collection(matchesCollection).
		Where("companyId", "==", companyID).
		Where("matchedAt", ">=", r.Start).
		Where("matchedAt", "<=", r.End).
		OrderBy("matchedAt", firestore.Desc)

	out := []*models.ReconciliationMatch{}
	err := iterate(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var doc matchDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		m, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	return out, nil
}

func (s *Store) QueryDiscrepanciesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationDiscrepancy, error) {
	q := s.collection(discrepanciesCollection).
		Where("companyId", "==", companyID).
		Where("createdAt", ">=", r.Start).
		Where("createdAt", "<=", r.End).
		OrderBy("createdAt", firestore.Desc)

	out := []*models.ReconciliationDiscrepancy{}
	err := iterate(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var doc discrepancyDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		d, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query discrepancies: %w", err)
	}
	return out, nil
}

func collectBankTransactions(ctx context.Context, q firestore.Query) ([]*models.BankTransaction, error) {
	out := []*models.BankTransaction{}
	err := iterate(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var doc bankTransactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		bt, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return err
		}
		out = append(out, bt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query bank transactions: %w", err)
	}
	return out, nil
}

func collectPayments(ctx context.Context, q firestore.Query) ([]*models.Payment, error) {
	out := []*models.Payment{}
	err := iterate(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var doc paymentDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		p, err := doc.toModel(snap.Ref.ID)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	return out, nil
}

func iterate(ctx context.Context, q firestore.Query, fn func(*firestore.DocumentSnapshot) error) error {
	iter := q.Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}

// RunInTx runs fn inside a Firestore transaction. Firestore may retry fn on
// contention, so fn must not have side effects outside tx.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: ftx})
	})
	if err == nil {
		return nil
	}

	// Update on a missing document and Create on an existing lock only fail
	// at commit time.
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAlreadyConfirmed) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%v: %w", err, store.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%v: %w", err, store.ErrAlreadyConfirmed)
	}
	return err
}

type firestoreTx struct {
	store *Store
	tx    *firestore.Transaction
}

func (t *firestoreTx) get(ref *firestore.DocumentRef, entity string) (*firestore.DocumentSnapshot, error) {
	snap, err := t.tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s %s: %w", entity, ref.ID, store.ErrNotFound)
		}
		return nil, err
	}
	return snap, nil
}

func (t *firestoreTx) GetBankTransaction(_ context.Context, id string) (*models.BankTransaction, error) {
	snap, err := t.get(t.store.collection(bankTransactionsCollection).Doc(id), "bank transaction")
	if err != nil {
		return nil, err
	}
	var doc bankTransactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(id)
}

func (t *firestoreTx) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	snap, err := t.get(t.store.collection(paymentsCollection).Doc(id), "payment")
	if err != nil {
		return nil, err
	}
	var doc paymentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(id)
}

func (t *firestoreTx) GetDiscrepancy(_ context.Context, id string) (*models.ReconciliationDiscrepancy, error) {
	snap, err := t.get(t.store.collection(discrepanciesCollection).Doc(id), "discrepancy")
	if err != nil {
		return nil, err
	}
	var doc discrepancyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(id)
}

func (t *firestoreTx) UpdateBankTransactionStatus(_ context.Context, id string, st models.BankTransactionStatus) error {
	if !st.IsValid() {
		return fmt.Errorf("invalid bank transaction status: %s", st)
	}
	return t.tx.Update(t.store.collection(bankTransactionsCollection).Doc(id), []firestore.Update{
		{Path: "status", Value: string(st)},
	})
}

func (t *firestoreTx) UpdatePaymentReconciliation(_ context.Context, id string, st models.ReconciliationStatus, confidence int) error {
	return t.tx.Update(t.store.collection(paymentsCollection).Doc(id), []firestore.Update{
		{Path: "reconciliationStatus", Value: string(st)},
		{Path: "linkedConfidence", Value: confidence},
	})
}

func (t *firestoreTx) InsertMatch(_ context.Context, m *models.ReconciliationMatch) error {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}

	if m.Confirmed {
		lock := lockDoc{MatchID: id, CompanyID: m.CompanyID, CreatedAt: m.MatchedAt}
		locks := t.store.collection(locksCollection)
		if err := t.tx.Create(locks.Doc("txn_"+m.BankTransactionID), lock); err != nil {
			return err
		}
		if err := t.tx.Create(locks.Doc("pay_"+m.PaymentID), lock); err != nil {
			return err
		}
	}

	if err := t.tx.Create(t.store.collection(matchesCollection).Doc(id), toMatchDoc(m)); err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (t *firestoreTx) InsertDiscrepancy(_ context.Context, d *models.ReconciliationDiscrepancy) (string, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	if err := t.tx.Create(t.store.collection(discrepanciesCollection).Doc(id), toDiscrepancyDoc(d)); err != nil {
		return "", err
	}
	return id, nil
}

func (t *firestoreTx) UpdateDiscrepancy(_ context.Context, id string, update models.DiscrepancyUpdate) error {
	resolvedAt := update.ResolvedAt
	updates := []firestore.Update{
		{Path: "status", Value: string(models.DiscrepancyResolved)},
		{Path: "resolution", Value: update.Resolution},
		{Path: "correctedBankAmount", Value: decimalPtrString(update.CorrectedBankAmount)},
		{Path: "correctedPaymentAmount", Value: decimalPtrString(update.CorrectedPaymentAmount)},
		{Path: "resolvedBy", Value: update.ResolvedBy},
		{Path: "resolvedAt", Value: &resolvedAt},
	}
	if update.ResolvedAs != "" {
		updates = append(updates, firestore.Update{Path: "resolvedAs", Value: string(update.ResolvedAs)})
	}
	return t.tx.Update(t.store.collection(discrepanciesCollection).Doc(id), updates)
}

func toBankTransactionDoc(bt *models.BankTransaction) bankTransactionDoc {
	return bankTransactionDoc{
		CompanyID:       bt.CompanyID,
		TransactionDate: bt.TransactionDate.UTC(),
		Amount:          bt.Amount.String(),
		Currency:        bt.Currency,
		ReferenceNumber: bt.ReferenceNumber,
		Description:     bt.Description,
		AccountNumber:   bt.AccountNumber,
		AccountName:     bt.AccountName,
		TransactionType: string(bt.TransactionType),
		Status:          string(bt.Status),
		CreatedAt:       bt.CreatedAt.UTC(),
	}
}

func (d bankTransactionDoc) toModel(id string) (*models.BankTransaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("bank transaction %s: invalid amount %q: %w", id, d.Amount, err)
	}
	return &models.BankTransaction{
		ID:              id,
		CompanyID:       d.CompanyID,
		TransactionDate: d.TransactionDate.UTC(),
		Amount:          amount,
		Currency:        d.Currency,
		ReferenceNumber: d.ReferenceNumber,
		Description:     d.Description,
		AccountNumber:   d.AccountNumber,
		AccountName:     d.AccountName,
		TransactionType: models.TransactionType(d.TransactionType),
		Status:          models.BankTransactionStatus(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
	}, nil
}

func toPaymentDoc(p *models.Payment) paymentDoc {
	return paymentDoc{
		CompanyID:            p.CompanyID,
		PaymentNumber:        p.PaymentNumber,
		Amount:               p.Amount.String(),
		PaymentDate:          p.PaymentDate.UTC(),
		ReferenceNumber:      p.ReferenceNumber,
		AgreementNumber:      p.AgreementNumber,
		Status:               string(p.Status),
		ReconciliationStatus: string(p.ReconciliationStatus),
		LinkedConfidence:     p.LinkedConfidence,
	}
}

func (d paymentDoc) toModel(id string) (*models.Payment, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("payment %s: invalid amount %q: %w", id, d.Amount, err)
	}
	return &models.Payment{
		ID:                   id,
		CompanyID:            d.CompanyID,
		PaymentNumber:        d.PaymentNumber,
		Amount:               amount,
		PaymentDate:          d.PaymentDate.UTC(),
		ReferenceNumber:      d.ReferenceNumber,
		AgreementNumber:      d.AgreementNumber,
		Status:               models.PaymentStatus(d.Status),
		ReconciliationStatus: models.ReconciliationStatus(d.ReconciliationStatus),
		LinkedConfidence:     d.LinkedConfidence,
	}, nil
}

func toMatchDoc(m *models.ReconciliationMatch) matchDoc {
	return matchDoc{
		CompanyID:         m.CompanyID,
		BankTransactionID: m.BankTransactionID,
		PaymentID:         m.PaymentID,
		MatchType:         string(m.MatchType),
		Confidence:        m.Confidence,
		AmountDifference:  m.AmountDifference.String(),
		Notes:             m.Notes,
		MatchedAt:         m.MatchedAt.UTC(),
		MatchedBy:         m.MatchedBy,
		Confirmed:         m.Confirmed,
	}
}

func (d matchDoc) toModel(id string) (*models.ReconciliationMatch, error) {
	diff, err := decimal.NewFromString(d.AmountDifference)
	if err != nil {
		return nil, fmt.Errorf("match %s: invalid amount difference %q: %w", id, d.AmountDifference, err)
	}
	return &models.ReconciliationMatch{
		ID:                id,
		CompanyID:         d.CompanyID,
		BankTransactionID: d.BankTransactionID,
		PaymentID:         d.PaymentID,
		MatchType:         models.MatchType(d.MatchType),
		Confidence:        d.Confidence,
		AmountDifference:  diff,
		Notes:             d.Notes,
		MatchedAt:         d.MatchedAt.UTC(),
		MatchedBy:         d.MatchedBy,
		Confirmed:         d.Confirmed,
	}, nil
}

func toDiscrepancyDoc(d *models.ReconciliationDiscrepancy) discrepancyDoc {
	doc := discrepancyDoc{
		CompanyID:              d.CompanyID,
		BankTransactionID:      d.BankTransactionID,
		PaymentID:              d.PaymentID,
		BankAmount:             d.BankAmount.String(),
		PaymentAmount:          d.PaymentAmount.String(),
		AmountDifference:       d.AmountDifference.String(),
		Notes:                  d.Notes,
		ResolvedAs:             string(d.ResolvedAs),
		Resolution:             d.Resolution,
		CorrectedBankAmount:    decimalPtrString(d.CorrectedBankAmount),
		CorrectedPaymentAmount: decimalPtrString(d.CorrectedPaymentAmount),
		Status:                 string(d.Status),
		CreatedAt:              d.CreatedAt.UTC(),
		CreatedBy:              d.CreatedBy,
		ResolvedBy:             d.ResolvedBy,
	}
	if d.ResolvedAt != nil {
		t := d.ResolvedAt.UTC()
		doc.ResolvedAt = &t
	}
	return doc
}

func (d discrepancyDoc) toModel(id string) (*models.ReconciliationDiscrepancy, error) {
	amounts := make([]decimal.Decimal, 3)
	for i, raw := range []string{d.BankAmount, d.PaymentAmount, d.AmountDifference} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("discrepancy %s: invalid amount %q: %w", id, raw, err)
		}
		amounts[i] = v
	}
	correctedBank, err := parseDecimalPtr(d.CorrectedBankAmount)
	if err != nil {
		return nil, fmt.Errorf("discrepancy %s: %w", id, err)
	}
	correctedPayment, err := parseDecimalPtr(d.CorrectedPaymentAmount)
	if err != nil {
		return nil, fmt.Errorf("discrepancy %s: %w", id, err)
	}

	out := &models.ReconciliationDiscrepancy{
		ID:                     id,
		CompanyID:              d.CompanyID,
		BankTransactionID:      d.BankTransactionID,
		PaymentID:              d.PaymentID,
		BankAmount:             amounts[0],
		PaymentAmount:          amounts[1],
		AmountDifference:       amounts[2],
		Notes:                  d.Notes,
		ResolvedAs:             models.DiscrepancyResolution(d.ResolvedAs),
		Resolution:             d.Resolution,
		CorrectedBankAmount:    correctedBank,
		CorrectedPaymentAmount: correctedPayment,
		Status:                 models.DiscrepancyStatus(d.Status),
		CreatedAt:              d.CreatedAt.UTC(),
		CreatedBy:              d.CreatedBy,
		ResolvedBy:             d.ResolvedBy,
	}
	if d.ResolvedAt != nil {
		t := d.ResolvedAt.UTC()
		out.ResolvedAt = &t
	}
	return out, nil
}

func decimalPtrString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	v, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", *s, err)
	}
	return &v, nil
}
