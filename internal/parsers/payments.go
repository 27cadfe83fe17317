package parsers

import (
	"fmt"
	"strings"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/pkg/errors"
)

// paymentColumnAliases lists the accepted header names for each payment
// field, in order of preference.
var paymentColumnAliases = map[string][]string{
	"id":             {"id", "payment_id"},
	"payment_number": {"payment_number", "number"},
	"amount":         {"amount"},
	"payment_date":   {"payment_date", "date"},
	"reference":      {"reference_number", "reference"},
	"agreement":      {"agreement_number", "agreement"},
	"status":         {"payment_status", "status"},
}

var paymentStatuses = map[string]models.PaymentStatus{
	string(models.PaymentCompleted):  models.PaymentCompleted,
	string(models.PaymentProcessing): models.PaymentProcessing,
	string(models.PaymentPending):    models.PaymentPending,
	string(models.PaymentFailed):     models.PaymentFailed,
	string(models.PaymentCancelled):  models.PaymentCancelled,
}

// ParsePayments parses a payment snapshot export with a header row. Payments
// without a status column are treated as completed. Like ParseImport, any
// line error means no payments are returned.
func ParsePayments(companyID, raw string) ([]*models.Payment, *ParseStats, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, nil, errors.ValidationError(errors.CodeMissingField, "company_id", companyID, nil)
	}

	stats := NewParseStats()
	header, lines := splitInput(raw, ',', true, stats)
	if header == nil {
		return []*models.Payment{}, stats, nil
	}

	columns := resolvePaymentColumns(headerIndex(header))
	for _, required := range []string{"id", "amount", "payment_date"} {
		if columns[required] < 0 {
			stats.AddError(newLineError(errors.CodeMissingColumn, 0, paymentColumnAliases[required][0], ""))
		}
	}
	if stats.HasErrors() {
		return []*models.Payment{}, stats, nil
	}

	var payments []*models.Payment
	for _, line := range lines {
		p, lineErr := parsePaymentLine(companyID, line, columns, len(header))
		if lineErr != nil {
			stats.AddError(lineErr)
			continue
		}
		payments = append(payments, p)
		stats.RecordsValid++
	}

	if stats.HasErrors() {
		return []*models.Payment{}, stats, nil
	}
	return payments, stats, nil
}

func resolvePaymentColumns(index map[string]int) map[string]int {
	columns := make(map[string]int, len(paymentColumnAliases))
	for logical, aliases := range paymentColumnAliases {
		columns[logical] = -1
		for _, alias := range aliases {
			if idx, exists := index[normalizeHeader(alias)]; exists {
				columns[logical] = idx
				break
			}
		}
	}
	return columns
}

func parsePaymentLine(companyID string, line rawLine, columns map[string]int, minFields int) (*models.Payment, *LineError) {
	if len(line.fields) < minFields {
		return nil, newLineError(errors.CodeInsufficientColumns, line.number, "",
			fmt.Sprintf("%d of %d", len(line.fields), minFields))
	}

	id := field(line.fields, columns["id"])
	if id == "" {
		return nil, newLineError(errors.CodeMissingColumn, line.number, "id", id)
	}

	amountStr := field(line.fields, columns["amount"])
	amount, err := models.ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, newLineError(errors.CodeInvalidAmount, line.number, "amount", amountStr)
	}

	dateStr := field(line.fields, columns["payment_date"])
	date, err := models.ParseImportDate(dateStr)
	if err != nil {
		return nil, newLineError(errors.CodeInvalidDate, line.number, "payment_date", dateStr)
	}

	status := models.PaymentCompleted
	if raw := strings.ToLower(field(line.fields, columns["status"])); raw != "" {
		s, ok := paymentStatuses[raw]
		if !ok {
			return nil, &LineError{
				Line:    line.number,
				Code:    errors.CodeInvalidValue,
				Column:  "status",
				Value:   raw,
				Message: fmt.Sprintf("line %d: unknown payment status '%s'", line.number, raw),
			}
		}
		status = s
	}

	return &models.Payment{
		ID:              id,
		CompanyID:       companyID,
		PaymentNumber:   field(line.fields, columns["payment_number"]),
		Amount:          amount,
		PaymentDate:     date,
		ReferenceNumber: field(line.fields, columns["reference"]),
		AgreementNumber: field(line.fields, columns["agreement"]),
		Status:          status,
	}, nil
}
