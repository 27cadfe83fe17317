package parsers

import (
	"fmt"
	"strings"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// ImportResult is the outcome of parsing one bank extract. Transactions is
// empty whenever Stats holds any error.
type ImportResult struct {
	Transactions []*models.BankTransaction `json:"transactions"`
	Stats        *ParseStats               `json:"stats"`
}

// Success reports whether the whole extract parsed cleanly
func (r *ImportResult) Success() bool {
	return !r.Stats.HasErrors()
}

// ParseImport parses a bank extract into pending bank transactions for
// companyID. A nil mapping or config selects the defaults.
//
// Every data line is checked; the first failing check on a line is reported
// (columns, then amount, then date) and the line is skipped. If any line
// fails, no transactions are returned.
func ParseImport(companyID, raw string, mapping *ColumnMapping, config *ImportConfig) (*ImportResult, error) {
	if config == nil {
		config = DefaultImportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "import", config, err)
	}
	mapping = mapping.WithDefaults()
	if err := mapping.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "column_mapping", mapping, err)
	}
	if strings.TrimSpace(companyID) == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "company_id", companyID, nil)
	}

	log := logger.GetGlobalLogger().WithComponent("import_parser")
	stats := NewParseStats()
	result := &ImportResult{Transactions: []*models.BankTransaction{}, Stats: stats}

	header, lines := splitInput(raw, config.Delimiter, config.HasHeader, stats)

	var columns map[string]int
	minFields := positionalColumns[ColumnAmount] + 1
	if config.HasHeader {
		if header == nil {
			return result, nil
		}
		var ok bool
		columns, ok = requireColumns(headerIndex(header), mapping.headers(),
			[]string{ColumnDate, ColumnAmount}, stats)
		if !ok {
			log.WithFields(logger.Fields{"company_id": companyID, "header": header}).
				Warn("Import header is missing required columns")
			return result, nil
		}
		minFields = len(header)
	} else {
		columns = positionalColumns
	}

	currency := strings.ToUpper(strings.TrimSpace(config.DefaultCurrency))
	var parsed []*models.BankTransaction

	for _, line := range lines {
		bt, lineErr := parseBankLine(companyID, currency, line, columns, minFields)
		if lineErr != nil {
			stats.AddError(lineErr)
			continue
		}
		parsed = append(parsed, bt)
		stats.RecordsValid++
	}

	log.WithFields(logger.Fields{
		"company_id":  companyID,
		"data_lines":  stats.DataLines,
		"valid_lines": stats.RecordsValid,
		"errors":      len(stats.Errors),
	}).Debug("Parsed bank extract")

	if stats.HasErrors() {
		return result, nil
	}

	result.Transactions = parsed
	return result, nil
}

func parseBankLine(companyID, currency string, line rawLine, columns map[string]int, minFields int) (*models.BankTransaction, *LineError) {
	if len(line.fields) < minFields {
		return nil, newLineError(errors.CodeInsufficientColumns, line.number, "",
			fmt.Sprintf("%d of %d", len(line.fields), minFields))
	}

	amountStr := field(line.fields, columns[ColumnAmount])
	amount, err := models.ParseDecimalFromString(amountStr)
	if err != nil || amount.IsZero() {
		return nil, newLineError(errors.CodeInvalidAmount, line.number, ColumnAmount, amountStr)
	}

	dateStr := field(line.fields, columns[ColumnDate])
	date, err := models.ParseImportDate(dateStr)
	if err != nil {
		return nil, newLineError(errors.CodeInvalidDate, line.number, ColumnDate, dateStr)
	}

	return &models.BankTransaction{
		CompanyID:       companyID,
		TransactionDate: date,
		Amount:          amount,
		Currency:        currency,
		ReferenceNumber: field(line.fields, columns[ColumnReference]),
		Description:     field(line.fields, columns[ColumnDescription]),
		AccountNumber:   field(line.fields, columns[ColumnAccount]),
		AccountName:     field(line.fields, columns[ColumnAccountName]),
		TransactionType: models.TransactionTypeFromAmount(amount),
		Status:          models.BankTransactionPending,
	}, nil
}
