// Package models defines the typed records exchanged between the import
// parser, the matching engine, the reconciliation service and the stores.
//
// Rows coming back from a store are decoded into these structs and validated
// before the matching engine ever sees them.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a bank transaction, derived from the sign of its amount.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// TransactionTypeFromAmount returns credit for amounts >= 0 and debit otherwise.
func TransactionTypeFromAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// BankTransactionStatus is the lifecycle state of an imported bank transaction.
type BankTransactionStatus string

const (
	BankTransactionPending     BankTransactionStatus = "pending"
	BankTransactionMatched     BankTransactionStatus = "matched"
	BankTransactionDiscrepancy BankTransactionStatus = "discrepancy"
	BankTransactionCancelled   BankTransactionStatus = "cancelled"
)

// IsValid checks if the status is one of the known lifecycle states
func (s BankTransactionStatus) IsValid() bool {
	switch s {
	case BankTransactionPending, BankTransactionMatched, BankTransactionDiscrepancy, BankTransactionCancelled:
		return true
	default:
		return false
	}
}

// CanConfirm reports whether a confirmed match may still be recorded against a
// transaction in this state. Discrepancies are confirmable: that is how a
// flagged transaction is moved back out of discrepancy.
func (s BankTransactionStatus) CanConfirm() bool {
	return s == BankTransactionPending || s == BankTransactionDiscrepancy
}

// PaymentStatus is the completion status owned by the payments subsystem.
type PaymentStatus string

const (
	PaymentCompleted  PaymentStatus = "completed"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPending    PaymentStatus = "pending"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// ReconciliationStatus is the annotation this subsystem writes back onto a payment.
type ReconciliationStatus string

const (
	ReconciliationUnreconciled      ReconciliationStatus = ""
	ReconciliationMatched           ReconciliationStatus = "matched"
	ReconciliationStatusDiscrepancy ReconciliationStatus = "discrepancy"
)

// MatchType classifies how a pairing was produced.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchManual  MatchType = "manual"
)

// DiscrepancyStatus is the paperwork state of a discrepancy record.
type DiscrepancyStatus string

const (
	DiscrepancyOpen     DiscrepancyStatus = "open"
	DiscrepancyResolved DiscrepancyStatus = "resolved"
)

// DiscrepancyResolution says which side of a discrepancy was right.
type DiscrepancyResolution string

const (
	ResolutionBankCorrect    DiscrepancyResolution = "bank_correct"
	ResolutionPaymentCorrect DiscrepancyResolution = "payment_correct"
	ResolutionAdjustment     DiscrepancyResolution = "adjustment"
)

// IsValid checks if the resolution is empty or one of the known classifications
func (r DiscrepancyResolution) IsValid() bool {
	switch r {
	case "", ResolutionBankCorrect, ResolutionPaymentCorrect, ResolutionAdjustment:
		return true
	default:
		return false
	}
}

// BankTransaction is one line of an imported bank statement extract.
type BankTransaction struct {
	ID              string                `json:"id"`
	CompanyID       string                `json:"company_id"`
	TransactionDate time.Time             `json:"transaction_date"`
	Amount          decimal.Decimal       `json:"amount"`
	Currency        string                `json:"currency"`
	ReferenceNumber string                `json:"reference_number,omitempty"`
	Description     string                `json:"description,omitempty"`
	AccountNumber   string                `json:"account_number,omitempty"`
	AccountName     string                `json:"account_name,omitempty"`
	TransactionType TransactionType       `json:"transaction_type"`
	Status          BankTransactionStatus `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
}

// Validate performs the store-boundary checks on a BankTransaction
func (bt *BankTransaction) Validate() error {
	if strings.TrimSpace(bt.CompanyID) == "" {
		return fmt.Errorf("bank transaction company ID cannot be empty")
	}

	if bt.Amount.IsZero() {
		return fmt.Errorf("bank transaction amount cannot be zero")
	}

	if bt.TransactionDate.IsZero() {
		return fmt.Errorf("bank transaction date cannot be zero")
	}

	if !bt.TransactionType.IsValid() {
		return fmt.Errorf("invalid transaction type: %s", bt.TransactionType)
	}

	if !bt.Status.IsValid() {
		return fmt.Errorf("invalid bank transaction status: %s", bt.Status)
	}

	return nil
}

// String returns a string representation of the BankTransaction
func (bt *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{ID: %s, Amount: %s, Date: %s, Ref: %s, Status: %s}",
		bt.ID, bt.Amount.String(), bt.TransactionDate.Format(DateLayout), bt.ReferenceNumber, bt.Status)
}

// Payment is a snapshot of an internally recorded receipt of funds.
type Payment struct {
	ID                   string               `json:"id"`
	CompanyID            string               `json:"company_id"`
	PaymentNumber        string               `json:"payment_number,omitempty"`
	Amount               decimal.Decimal      `json:"amount"`
	PaymentDate          time.Time            `json:"payment_date"`
	ReferenceNumber      string               `json:"reference_number,omitempty"`
	AgreementNumber      string               `json:"agreement_number,omitempty"`
	Status               PaymentStatus        `json:"payment_status"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status,omitempty"`
	LinkedConfidence     int                  `json:"linked_confidence"`
}

// Validate performs the store-boundary checks on a Payment
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("payment ID cannot be empty")
	}

	if strings.TrimSpace(p.CompanyID) == "" {
		return fmt.Errorf("payment company ID cannot be empty")
	}

	if p.PaymentDate.IsZero() {
		return fmt.Errorf("payment date cannot be zero")
	}

	return nil
}

// IsCompleted reports whether the payment participates in matching
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentCompleted
}

// References returns the non-empty reference and agreement numbers of the payment.
func (p *Payment) References() []string {
	var refs []string
	for _, ref := range []string{p.ReferenceNumber, p.AgreementNumber} {
		if strings.TrimSpace(ref) != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ReconciliationMatch pairs a bank transaction with a payment. Rows written
// to a store are always confirmed; proposals live only in memory.
type ReconciliationMatch struct {
	ID                string          `json:"id,omitempty"`
	CompanyID         string          `json:"company_id"`
	BankTransactionID string          `json:"bank_transaction_id"`
	PaymentID         string          `json:"payment_id"`
	MatchType         MatchType       `json:"match_type"`
	Confidence        int             `json:"confidence"`
	AmountDifference  decimal.Decimal `json:"amount_difference"`
	Notes             string          `json:"notes,omitempty"`
	MatchedAt         time.Time       `json:"matched_at"`
	MatchedBy         string          `json:"matched_by,omitempty"`
	Confirmed         bool            `json:"confirmed"`
}

// ReconciliationDiscrepancy records a pairing a human flagged as inconsistent.
type ReconciliationDiscrepancy struct {
	ID                     string                `json:"id"`
	CompanyID              string                `json:"company_id"`
	BankTransactionID      string                `json:"bank_transaction_id"`
	PaymentID              string                `json:"payment_id"`
	BankAmount             decimal.Decimal       `json:"bank_amount"`
	PaymentAmount          decimal.Decimal       `json:"payment_amount"`
	AmountDifference       decimal.Decimal       `json:"amount_difference"`
	Notes                  string                `json:"notes"`
	ResolvedAs             DiscrepancyResolution `json:"resolved_as,omitempty"`
	Resolution             string                `json:"resolution,omitempty"`
	CorrectedBankAmount    *decimal.Decimal      `json:"corrected_bank_amount,omitempty"`
	CorrectedPaymentAmount *decimal.Decimal      `json:"corrected_payment_amount,omitempty"`
	Status                 DiscrepancyStatus     `json:"status"`
	CreatedAt              time.Time             `json:"created_at"`
	CreatedBy              string                `json:"created_by,omitempty"`
	ResolvedAt             *time.Time            `json:"resolved_at,omitempty"`
	ResolvedBy             string                `json:"resolved_by,omitempty"`
}

// DiscrepancyUpdate carries the fields written when a discrepancy is resolved.
type DiscrepancyUpdate struct {
	ResolvedAs             DiscrepancyResolution
	Resolution             string
	CorrectedBankAmount    *decimal.Decimal
	CorrectedPaymentAmount *decimal.Decimal
	ResolvedBy             string
	ResolvedAt             time.Time
}

// Apply writes the update onto d and marks it resolved.
func (u DiscrepancyUpdate) Apply(d *ReconciliationDiscrepancy) {
	d.Status = DiscrepancyResolved
	if u.ResolvedAs != "" {
		d.ResolvedAs = u.ResolvedAs
	}
	d.Resolution = u.Resolution
	d.CorrectedBankAmount = u.CorrectedBankAmount
	d.CorrectedPaymentAmount = u.CorrectedPaymentAmount
	d.ResolvedBy = u.ResolvedBy
	resolvedAt := u.ResolvedAt
	d.ResolvedAt = &resolvedAt
}

// ReconciliationSummary aggregates a date-bounded window. It is computed on
// demand and never persisted.
type ReconciliationSummary struct {
	CompanyID string    `json:"company_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TotalTransactions       int `json:"total_transactions"`
	MatchedTransactions     int `json:"matched_transactions"`
	UnmatchedTransactions   int `json:"unmatched_transactions"`
	DiscrepancyTransactions int `json:"discrepancy_transactions"`

	TotalPayments       int `json:"total_payments"`
	MatchedPayments     int `json:"matched_payments"`
	UnmatchedPayments   int `json:"unmatched_payments"`
	DiscrepancyPayments int `json:"discrepancy_payments"`

	ConfirmedMatches   int             `json:"confirmed_matches"`
	OpenDiscrepancies  int             `json:"open_discrepancies"`
	TotalMatchedAmount decimal.Decimal `json:"total_matched_amount"`
	AverageConfidence  float64         `json:"average_confidence"`
}

// DateRange is an inclusive window of instants.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Validate checks that the range is not inverted
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("start date %s is after end date %s",
			r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return nil
}
