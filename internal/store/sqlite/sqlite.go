/*
Package sqlite provides a SQLite-backed implementation of store.Store.

KEY TABLES:

	bank_transactions: imported statement lines with lifecycle status
	payments:          payment snapshots with the reconciliation annotation
	matches:           confirmed matches
	discrepancies:     flagged pairings and their resolution

CONFIRMATION EXCLUSIVITY:

	Two partial unique indexes allow at most one confirmed match per bank
	transaction and per payment. A violation surfaces as
	store.ErrAlreadyConfirmed, so two concurrent confirmations cannot both
	commit.

ENCODING:

	Amounts are stored as decimal strings and instants as fixed-width UTC
	text, so ORDER BY and range comparisons on the text columns are correct.

USAGE:

	st, err := sqlite.New("./data/reconciler.db")
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

Use ":memory:" for a throwaway database.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/store"
)

// timeLayout is fixed width so text comparison orders instants correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements store.Store and store.PaymentWriter using SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ store.Store         = (*Store)(nil)
	_ store.PaymentWriter = (*Store)(nil)
)

// New opens (and migrates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bank_transactions (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		reference_number TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		account_number TEXT NOT NULL DEFAULT '',
		account_name TEXT NOT NULL DEFAULT '',
		transaction_type TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bank_transactions_company_status
		ON bank_transactions(company_id, status, transaction_date);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		payment_number TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		reference_number TEXT NOT NULL DEFAULT '',
		agreement_number TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL,
		reconciliation_status TEXT NOT NULL DEFAULT '',
		linked_confidence INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_payments_company_status
		ON payments(company_id, payment_status, payment_date);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		bank_transaction_id TEXT NOT NULL REFERENCES bank_transactions(id),
		payment_id TEXT NOT NULL REFERENCES payments(id),
		match_type TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		amount_difference TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		matched_at TEXT NOT NULL,
		matched_by TEXT NOT NULL DEFAULT '',
		confirmed INTEGER NOT NULL DEFAULT 0
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_confirmed_transaction
		ON matches(bank_transaction_id) WHERE confirmed = 1;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_confirmed_payment
		ON matches(payment_id) WHERE confirmed = 1;
	CREATE INDEX IF NOT EXISTS idx_matches_company_matched_at
		ON matches(company_id, matched_at);

	CREATE TABLE IF NOT EXISTS discrepancies (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		bank_transaction_id TEXT NOT NULL REFERENCES bank_transactions(id),
		payment_id TEXT NOT NULL REFERENCES payments(id),
		bank_amount TEXT NOT NULL,
		payment_amount TEXT NOT NULL,
		amount_difference TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		resolved_as TEXT NOT NULL DEFAULT '',
		resolution TEXT NOT NULL DEFAULT '',
		corrected_bank_amount TEXT,
		corrected_payment_amount TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		resolved_at TEXT,
		resolved_by TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_discrepancies_company_created_at
		ON discrepancies(company_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PutPayments inserts or replaces payment snapshots in one transaction.
func (s *Store) PutPayments(ctx context.Context, payments []*models.Payment) error {
	for _, p := range payments {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid payment %s: %w", p.ID, err)
		}
	}

	return s.withTx(ctx, func(q queryer) error {
		for _, p := range payments {
			_, err := q.ExecContext(ctx, `
				INSERT INTO payments
				(id, company_id, payment_number, amount, payment_date, reference_number,
				 agreement_number, payment_status, reconciliation_status, linked_confidence)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					company_id = excluded.company_id,
					payment_number = excluded.payment_number,
					amount = excluded.amount,
					payment_date = excluded.payment_date,
					reference_number = excluded.reference_number,
					agreement_number = excluded.agreement_number,
					payment_status = excluded.payment_status,
					reconciliation_status = excluded.reconciliation_status,
					linked_confidence = excluded.linked_confidence`,
				p.ID, p.CompanyID, p.PaymentNumber, p.Amount.String(), formatTime(p.PaymentDate),
				p.ReferenceNumber, p.AgreementNumber, string(p.Status),
				string(p.ReconciliationStatus), p.LinkedConfidence,
			)
			if err != nil {
				return fmt.Errorf("failed to put payment %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) InsertBankTransactions(ctx context.Context, rows []*models.BankTransaction) ([]*models.BankTransaction, error) {
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bank transaction at index %d: %w", i, err)
		}
	}

	inserted := make([]*models.BankTransaction, 0, len(rows))
	err := s.withTx(ctx, func(q queryer) error {
		for _, row := range rows {
			bt := *row
			if bt.ID == "" {
				bt.ID = uuid.NewString()
			}
			_, err := q.ExecContext(ctx, `
				INSERT INTO bank_transactions
				(id, company_id, transaction_date, amount, currency, reference_number, description,
				 account_number, account_name, transaction_type, status, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				bt.ID, bt.CompanyID, formatTime(bt.TransactionDate), bt.Amount.String(), bt.Currency,
				bt.ReferenceNumber, bt.Description, bt.AccountNumber, bt.AccountName,
				string(bt.TransactionType), string(bt.Status), formatTime(bt.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert bank transaction %s: %w", bt.ID, err)
			}
			inserted = append(inserted, &bt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

const bankTransactionColumns = `id, company_id, transaction_date, amount, currency, reference_number,
	description, account_number, account_name, transaction_type, status, created_at`

func (s *Store) QueryPendingBankTransactions(ctx context.Context, companyID string) ([]*models.BankTransaction, error) {
	return queryBankTransactions(ctx, s.db, `
		SELECT `+bankTransactionColumns+`
		FROM bank_transactions
		WHERE company_id = ? AND status = ?
		ORDER BY transaction_date DESC, id ASC`,
		companyID, string(models.BankTransactionPending))
}

func (s *Store) QueryBankTransactionsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.BankTransaction, error) {
	return queryBankTransactions(ctx, s.db, `
		SELECT `+bankTransactionColumns+`
		FROM bank_transactions
		WHERE company_id = ? AND transaction_date >= ? AND transaction_date <= ?
		ORDER BY transaction_date DESC, id ASC`,
		companyID, formatTime(r.Start), formatTime(r.End))
}

const paymentColumns = `id, company_id, payment_number, amount, payment_date, reference_number,
	agreement_number, payment_status, reconciliation_status, linked_confidence`

func (s *Store) QueryCompletedPayments(ctx context.Context, companyID string) ([]*models.Payment, error) {
	return queryPayments(ctx, s.db, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE company_id = ? AND payment_status = ?
		ORDER BY payment_date DESC, id ASC`,
		companyID, string(models.PaymentCompleted))
}

func (s *Store) QueryCompletedPaymentsInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.Payment, error) {
	return queryPayments(ctx, s.db, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE company_id = ? AND payment_status = ? AND payment_date >= ? AND payment_date <= ?
		ORDER BY payment_date DESC, id ASC`,
		companyID, string(models.PaymentCompleted), formatTime(r.Start), formatTime(r.End))
}

func (s *Store) QueryMatchesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, bank_transaction_id, payment_id, match_type, confidence,
		       amount_difference, notes, matched_at, matched_by, confirmed
		FROM matches
		WHERE company_id = ? AND matched_at >= ? AND matched_at <= ?
		ORDER BY matched_at DESC`,
		companyID, formatTime(r.Start), formatTime(r.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	out := []*models.ReconciliationMatch{}
	for rows.Next() {
		var (
			m                          models.ReconciliationMatch
			matchType, diff, matchedAt string
		)
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.BankTransactionID, &m.PaymentID, &matchType,
			&m.Confidence, &diff, &m.Notes, &matchedAt, &m.MatchedBy, &m.Confirmed); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.MatchType = models.MatchType(matchType)
		if m.AmountDifference, err = decimal.NewFromString(diff); err != nil {
			return nil, fmt.Errorf("match %s: invalid amount difference: %w", m.ID, err)
		}
		if m.MatchedAt, err = parseTime(matchedAt); err != nil {
			return nil, fmt.Errorf("match %s: %w", m.ID, err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

const discrepancyColumns = `id, company_id, bank_transaction_id, payment_id, bank_amount, payment_amount,
	amount_difference, notes, resolved_as, resolution, corrected_bank_amount, corrected_payment_amount,
	status, created_at, created_by, resolved_at, resolved_by`

func (s *Store) QueryDiscrepanciesInRange(ctx context.Context, companyID string, r models.DateRange) ([]*models.ReconciliationDiscrepancy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+discrepancyColumns+`
		FROM discrepancies
		WHERE company_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC`,
		companyID, formatTime(r.Start), formatTime(r.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query discrepancies: %w", err)
	}
	defer rows.Close()

	out := []*models.ReconciliationDiscrepancy{}
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RunInTx runs fn inside a database transaction and commits when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.withTx(ctx, func(q queryer) error {
		return fn(ctx, &sqliteTx{q: q})
	})
}

func (s *Store) withTx(ctx context.Context, fn func(q queryer) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	q queryer
}

func (tx *sqliteTx) GetBankTransaction(ctx context.Context, id string) (*models.BankTransaction, error) {
	rows, err := queryBankTransactions(ctx, tx.q, `
		SELECT `+bankTransactionColumns+` FROM bank_transactions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("bank transaction %s: %w", id, store.ErrNotFound)
	}
	return rows[0], nil
}

func (tx *sqliteTx) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	rows, err := queryPayments(ctx, tx.q, `
		SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	return rows[0], nil
}

func (tx *sqliteTx) GetDiscrepancy(ctx context.Context, id string) (*models.ReconciliationDiscrepancy, error) {
	rows, err := tx.q.QueryContext(ctx, `SELECT `+discrepancyColumns+` FROM discrepancies WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query discrepancy: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("discrepancy %s: %w", id, store.ErrNotFound)
	}
	return scanDiscrepancy(rows)
}

func (tx *sqliteTx) UpdateBankTransactionStatus(ctx context.Context, id string, status models.BankTransactionStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid bank transaction status: %s", status)
	}
	res, err := tx.q.ExecContext(ctx, `UPDATE bank_transactions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update bank transaction %s: %w", id, err)
	}
	return requireRow(res, "bank transaction", id)
}

func (tx *sqliteTx) UpdatePaymentReconciliation(ctx context.Context, id string, status models.ReconciliationStatus, confidence int) error {
	res, err := tx.q.ExecContext(ctx,
		`UPDATE payments SET reconciliation_status = ?, linked_confidence = ? WHERE id = ?`,
		string(status), confidence, id)
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", id, err)
	}
	return requireRow(res, "payment", id)
}

func (tx *sqliteTx) InsertMatch(ctx context.Context, m *models.ReconciliationMatch) error {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO matches
		(id, company_id, bank_transaction_id, payment_id, match_type, confidence,
		 amount_difference, notes, matched_at, matched_by, confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, m.CompanyID, m.BankTransactionID, m.PaymentID, string(m.MatchType), m.Confidence,
		m.AmountDifference.String(), m.Notes, formatTime(m.MatchedAt), m.MatchedBy, m.Confirmed,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("bank transaction %s / payment %s: %w", m.BankTransactionID, m.PaymentID, store.ErrAlreadyConfirmed)
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	m.ID = id
	return nil
}

func (tx *sqliteTx) InsertDiscrepancy(ctx context.Context, d *models.ReconciliationDiscrepancy) (string, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := tx.q.ExecContext(ctx, `
		INSERT INTO discrepancies (`+discrepancyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, d.CompanyID, d.BankTransactionID, d.PaymentID, d.BankAmount.String(), d.PaymentAmount.String(),
		d.AmountDifference.String(), d.Notes, string(d.ResolvedAs), d.Resolution,
		nullDecimal(d.CorrectedBankAmount), nullDecimal(d.CorrectedPaymentAmount),
		string(d.Status), formatTime(d.CreatedAt), d.CreatedBy, nullTime(d.ResolvedAt), d.ResolvedBy,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert discrepancy: %w", err)
	}
	return id, nil
}

func (tx *sqliteTx) UpdateDiscrepancy(ctx context.Context, id string, update models.DiscrepancyUpdate) error {
	current, err := tx.GetDiscrepancy(ctx, id)
	if err != nil {
		return err
	}
	update.Apply(current)

	res, err := tx.q.ExecContext(ctx, `
		UPDATE discrepancies
		SET status = ?, resolved_as = ?, resolution = ?, corrected_bank_amount = ?,
		    corrected_payment_amount = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ?`,
		string(current.Status), string(current.ResolvedAs), current.Resolution,
		nullDecimal(current.CorrectedBankAmount), nullDecimal(current.CorrectedPaymentAmount),
		nullTime(current.ResolvedAt), current.ResolvedBy, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update discrepancy %s: %w", id, err)
	}
	return requireRow(res, "discrepancy", id)
}

func queryBankTransactions(ctx context.Context, q queryer, query string, args ...any) ([]*models.BankTransaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank transactions: %w", err)
	}
	defer rows.Close()

	out := []*models.BankTransaction{}
	for rows.Next() {
		var (
			bt                                    models.BankTransaction
			date, amount, txType, status, created string
		)
		if err := rows.Scan(&bt.ID, &bt.CompanyID, &date, &amount, &bt.Currency, &bt.ReferenceNumber,
			&bt.Description, &bt.AccountNumber, &bt.AccountName, &txType, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
		}
		if bt.TransactionDate, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("bank transaction %s: %w", bt.ID, err)
		}
		if bt.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("bank transaction %s: %w", bt.ID, err)
		}
		if bt.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bank transaction %s: invalid amount: %w", bt.ID, err)
		}
		bt.TransactionType = models.TransactionType(txType)
		bt.Status = models.BankTransactionStatus(status)
		if err := bt.Validate(); err != nil {
			return nil, fmt.Errorf("bank transaction %s: %w", bt.ID, err)
		}
		out = append(out, &bt)
	}
	return out, rows.Err()
}

func queryPayments(ctx context.Context, q queryer, query string, args ...any) ([]*models.Payment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	out := []*models.Payment{}
	for rows.Next() {
		var (
			p                                    models.Payment
			amount, date, status, reconciliation string
		)
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.PaymentNumber, &amount, &date, &p.ReferenceNumber,
			&p.AgreementNumber, &status, &reconciliation, &p.LinkedConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %s: invalid amount: %w", p.ID, err)
		}
		if p.PaymentDate, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		p.Status = models.PaymentStatus(status)
		p.ReconciliationStatus = models.ReconciliationStatus(reconciliation)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func scanDiscrepancy(rows *sql.Rows) (*models.ReconciliationDiscrepancy, error) {
	var (
		d                                     models.ReconciliationDiscrepancy
		bankAmount, paymentAmount, diff       string
		resolvedAs, status, created           string
		correctedBank, correctedPay, resolved sql.NullString
	)
	if err := rows.Scan(&d.ID, &d.CompanyID, &d.BankTransactionID, &d.PaymentID, &bankAmount, &paymentAmount,
		&diff, &d.Notes, &resolvedAs, &d.Resolution, &correctedBank, &correctedPay,
		&status, &created, &d.CreatedBy, &resolved, &d.ResolvedBy); err != nil {
		return nil, fmt.Errorf("failed to scan discrepancy: %w", err)
	}

	var err error
	if d.BankAmount, err = decimal.NewFromString(bankAmount); err != nil {
		return nil, fmt.Errorf("discrepancy %s: invalid bank amount: %w", d.ID, err)
	}
	if d.PaymentAmount, err = decimal.NewFromString(paymentAmount); err != nil {
		return nil, fmt.Errorf("discrepancy %s: invalid payment amount: %w", d.ID, err)
	}
	if d.AmountDifference, err = decimal.NewFromString(diff); err != nil {
		return nil, fmt.Errorf("discrepancy %s: invalid amount difference: %w", d.ID, err)
	}
	if d.CorrectedBankAmount, err = parseNullDecimal(correctedBank); err != nil {
		return nil, fmt.Errorf("discrepancy %s: %w", d.ID, err)
	}
	if d.CorrectedPaymentAmount, err = parseNullDecimal(correctedPay); err != nil {
		return nil, fmt.Errorf("discrepancy %s: %w", d.ID, err)
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("discrepancy %s: %w", d.ID, err)
	}
	if resolved.Valid {
		t, err := parseTime(resolved.String)
		if err != nil {
			return nil, fmt.Errorf("discrepancy %s: %w", d.ID, err)
		}
		d.ResolvedAt = &t
	}
	d.ResolvedAs = models.DiscrepancyResolution(resolvedAs)
	d.Status = models.DiscrepancyStatus(status)
	return &d, nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, store.ErrNotFound)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp '%s': %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal '%s': %w", ns.String, err)
	}
	return &d, nil
}
