package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionType_IsValid(t *testing.T) {
	tests := []struct {
		txType TransactionType
		valid  bool
	}{
		{TransactionTypeDebit, true},
		{TransactionTypeCredit, true},
		{"transfer", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			if got := tt.txType.IsValid(); got != tt.valid {
				t.Errorf("TransactionType.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestTransactionTypeFromAmount(t *testing.T) {
	tests := []struct {
		amount   string
		expected TransactionType
	}{
		{"1000.00", TransactionTypeCredit},
		{"0", TransactionTypeCredit},
		{"-0.01", TransactionTypeDebit},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := TransactionTypeFromAmount(decimal.RequireFromString(tt.amount))
			if got != tt.expected {
				t.Errorf("TransactionTypeFromAmount(%s) = %s, want %s", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestBankTransactionStatus_CanConfirm(t *testing.T) {
	tests := []struct {
		status   BankTransactionStatus
		expected bool
	}{
		{BankTransactionPending, true},
		{BankTransactionDiscrepancy, true},
		{BankTransactionMatched, false},
		{BankTransactionCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.CanConfirm(); got != tt.expected {
				t.Errorf("CanConfirm() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBankTransaction_Validate(t *testing.T) {
	valid := func() *BankTransaction {
		return &BankTransaction{
			CompanyID:       "company-1",
			TransactionDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Amount:          decimal.RequireFromString("1000.00"),
			Currency:        "QAR",
			TransactionType: TransactionTypeCredit,
			Status:          BankTransactionPending,
		}
	}

	tests := []struct {
		name    string
		mutate  func(bt *BankTransaction)
		wantErr bool
	}{
		{"valid", func(bt *BankTransaction) {}, false},
		{"missing company", func(bt *BankTransaction) { bt.CompanyID = " " }, true},
		{"zero amount", func(bt *BankTransaction) { bt.Amount = decimal.Zero }, true},
		{"zero date", func(bt *BankTransaction) { bt.TransactionDate = time.Time{} }, true},
		{"bad type", func(bt *BankTransaction) { bt.TransactionType = "transfer" }, true},
		{"bad status", func(bt *BankTransaction) { bt.Status = "reconciled" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt := valid()
			tt.mutate(bt)
			err := bt.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestPayment_References(t *testing.T) {
	p := &Payment{ReferenceNumber: "INV-100", AgreementNumber: "  "}
	refs := p.References()
	if len(refs) != 1 || refs[0] != "INV-100" {
		t.Errorf("expected [INV-100], got %v", refs)
	}

	p = &Payment{ReferenceNumber: "INV-100", AgreementNumber: "AGR-7"}
	if got := len(p.References()); got != 2 {
		t.Errorf("expected 2 references, got %d", got)
	}
}

func TestDiscrepancyUpdate_Apply(t *testing.T) {
	corrected := decimal.RequireFromString("990.00")
	at := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	d := &ReconciliationDiscrepancy{Status: DiscrepancyOpen, ResolvedAs: ResolutionAdjustment}

	DiscrepancyUpdate{
		Resolution:          "bank fee deducted",
		CorrectedBankAmount: &corrected,
		ResolvedBy:          "user-1",
		ResolvedAt:          at,
	}.Apply(d)

	if d.Status != DiscrepancyResolved {
		t.Errorf("expected resolved status, got %s", d.Status)
	}
	if d.ResolvedAs != ResolutionAdjustment {
		t.Errorf("empty classification must not clear the existing one, got %q", d.ResolvedAs)
	}
	if d.ResolvedAt == nil || !d.ResolvedAt.Equal(at) {
		t.Errorf("expected resolved at %s, got %v", at, d.ResolvedAt)
	}
	if d.CorrectedBankAmount == nil || !d.CorrectedBankAmount.Equal(corrected) {
		t.Errorf("expected corrected bank amount %s", corrected)
	}
}

func TestDateRange(t *testing.T) {
	r := DateRange{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	if !r.Contains(r.Start) || !r.Contains(r.End) {
		t.Error("range bounds must be inclusive")
	}
	if r.Contains(r.End.Add(time.Second)) {
		t.Error("instant after end must be excluded")
	}
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	inverted := DateRange{Start: r.End, End: r.Start}
	if err := inverted.Validate(); err == nil {
		t.Error("expected inverted range to fail validation")
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"1000.00", "1000", false},
		{" -12.5 ", "-12.5", false},
		{"0", "0", false},
		{"xx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalFromString(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ParseDecimalFromString(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseImportDate(t *testing.T) {
	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{"2025-01-05", jan5, false},
		{"05/01/2025", jan5, false},
		{"20250105", jan5, false},
		{"2025-1-5", time.Time{}, true},
		{"2025-13-01", time.Time{}, true},
		{"01/31/2025", time.Time{}, true},
		{"2025-01-05T10:00:00Z", time.Time{}, true},
		{"bad", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseImportDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseImportDate(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCompareAmountsWithTolerance(t *testing.T) {
	a := decimal.RequireFromString("1000.00")
	tolerance := decimal.RequireFromString("50.00")

	if !CompareAmountsWithTolerance(a, decimal.RequireFromString("1050.00"), tolerance) {
		t.Error("difference equal to tolerance should match")
	}
	if CompareAmountsWithTolerance(a, decimal.RequireFromString("1050.01"), tolerance) {
		t.Error("difference above tolerance should not match")
	}
}

func TestCompareDatesWithTolerance(t *testing.T) {
	base := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	if !CompareDatesWithTolerance(base, base.AddDate(0, 0, 3), 3) {
		t.Error("three days apart should be within a 3 day tolerance")
	}
	if !CompareDatesWithTolerance(base, base.AddDate(0, 0, -3).Add(-5*time.Hour).Add(5*time.Hour), 3) {
		t.Error("tolerance must be symmetric")
	}
	if !CompareDatesWithTolerance(base.Add(23*time.Hour), base.AddDate(0, 0, 3), 3) {
		t.Error("time of day must not affect calendar distance")
	}
	if CompareDatesWithTolerance(base, base.AddDate(0, 0, 4), 3) {
		t.Error("four days apart should be outside a 3 day tolerance")
	}
}

func TestEndOfDay(t *testing.T) {
	got := EndOfDay(time.Date(2025, 1, 5, 8, 30, 0, 0, time.UTC))
	want := time.Date(2025, 1, 5, 23, 59, 59, 999999999, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndOfDay = %s, want %s", got, want)
	}
}
