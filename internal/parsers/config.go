package parsers

import (
	"fmt"
	"strings"
)

// Logical column names recognized on import.
const (
	ColumnDate        = "date"
	ColumnAmount      = "amount"
	ColumnReference   = "reference"
	ColumnAccount     = "account"
	ColumnDescription = "description"
	ColumnAccountName = "account_name"
)

// ColumnMapping maps logical import columns to the header names used by a
// particular bank extract. Header names are compared case-insensitively,
// ignoring whitespace and underscores.
type ColumnMapping struct {
	Date        string `json:"date" mapstructure:"date"`
	Amount      string `json:"amount" mapstructure:"amount"`
	Reference   string `json:"reference" mapstructure:"reference"`
	Account     string `json:"account" mapstructure:"account"`
	Description string `json:"description" mapstructure:"description"`
	AccountName string `json:"account_name" mapstructure:"account_name"`
}

// DefaultColumnMapping returns the mapping used when the caller supplies none
func DefaultColumnMapping() *ColumnMapping {
	return &ColumnMapping{
		Date:        ColumnDate,
		Amount:      ColumnAmount,
		Reference:   ColumnReference,
		Account:     ColumnAccount,
		Description: ColumnDescription,
		AccountName: ColumnAccountName,
	}
}

// WithDefaults returns a copy of the mapping with empty entries filled from
// DefaultColumnMapping. A nil mapping yields the defaults.
func (cm *ColumnMapping) WithDefaults() *ColumnMapping {
	defaults := DefaultColumnMapping()
	if cm == nil {
		return defaults
	}

	out := *cm
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&out.Date, defaults.Date)
	fill(&out.Amount, defaults.Amount)
	fill(&out.Reference, defaults.Reference)
	fill(&out.Account, defaults.Account)
	fill(&out.Description, defaults.Description)
	fill(&out.AccountName, defaults.AccountName)
	return &out
}

// Validate checks that the mapping does not point two logical columns at the same header
func (cm *ColumnMapping) Validate() error {
	seen := make(map[string]string)
	for logical, header := range cm.headers() {
		key := normalizeHeader(header)
		if key == "" {
			continue
		}
		if other, exists := seen[key]; exists {
			return fmt.Errorf("columns '%s' and '%s' both map to header '%s'", other, logical, header)
		}
		seen[key] = logical
	}
	return nil
}

func (cm *ColumnMapping) headers() map[string]string {
	return map[string]string{
		ColumnDate:        cm.Date,
		ColumnAmount:      cm.Amount,
		ColumnReference:   cm.Reference,
		ColumnAccount:     cm.Account,
		ColumnDescription: cm.Description,
		ColumnAccountName: cm.AccountName,
	}
}

// positionalColumns is the field order assumed for header-less extracts.
var positionalColumns = map[string]int{
	ColumnDate:        0,
	ColumnAmount:      1,
	ColumnReference:   2,
	ColumnAccount:     3,
	ColumnDescription: 4,
	ColumnAccountName: 5,
}

// ImportConfig holds configuration for parsing bank extracts
type ImportConfig struct {
	HasHeader       bool   `json:"has_header"`
	Delimiter       rune   `json:"delimiter"`
	DefaultCurrency string `json:"default_currency"`
}

// DefaultImportConfig returns a configuration with standard defaults
func DefaultImportConfig() *ImportConfig {
	return &ImportConfig{
		HasHeader:       true,
		Delimiter:       ',',
		DefaultCurrency: "QAR",
	}
}

// Validate checks if the import configuration is valid
func (ic *ImportConfig) Validate() error {
	if ic.Delimiter == 0 || ic.Delimiter == '"' || ic.Delimiter == '\n' || ic.Delimiter == '\r' {
		return fmt.Errorf("invalid delimiter %q", ic.Delimiter)
	}

	currency := strings.TrimSpace(ic.DefaultCurrency)
	if len(currency) != 3 {
		return fmt.Errorf("default currency must be a 3-letter code, got '%s'", ic.DefaultCurrency)
	}

	return nil
}
