// Package parsers turns untrusted delimited text into typed records.
//
// Bank extracts go through ParseImport, which checks every data line and
// reports line-numbered errors instead of stopping at the first bad line.
// The import is all-or-nothing: a single bad line means no transactions are
// returned. ParsePayments loads a payment snapshot in the same way.
//
// Input handling is deliberately plain: lines are split on newlines, fields
// on the delimiter, and one pair of surrounding double quotes is stripped.
// Embedded delimiters inside quotes are not supported.
package parsers

import (
	"strings"
	"unicode"

	"go.uber.org/multierr"

	"bank-reconciliation-service/pkg/errors"
)

// LineError is a validation failure for one data line. Line 0 refers to the
// header row; data lines are numbered from 1 in file order after the header.
type LineError struct {
	Line    int              `json:"line"`
	Code    errors.ErrorCode `json:"code"`
	Column  string           `json:"column,omitempty"`
	Value   string           `json:"value,omitempty"`
	Message string           `json:"message"`
}

func (e *LineError) Error() string {
	return e.Message
}

// ReconcilerError converts the line error into the shared error taxonomy
func (e *LineError) ReconcilerError() *errors.ReconcilerError {
	return errors.ParseError(e.Code, e.Line, e.Column, e.Value, nil)
}

func newLineError(code errors.ErrorCode, line int, column, value string) *LineError {
	re := errors.ParseError(code, line, column, value, nil)
	return &LineError{
		Line:    line,
		Code:    code,
		Column:  column,
		Value:   value,
		Message: re.Message,
	}
}

// ParseStats tracks outcomes while parsing. Every non-blank data line ends
// up either valid or in Errors; blank lines are counted separately.
type ParseStats struct {
	DataLines    int          `json:"data_lines"`
	BlankLines   int          `json:"blank_lines"`
	RecordsValid int          `json:"records_valid"`
	Errors       []*LineError `json:"errors,omitempty"`
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{}
}

// AddError adds an error to the statistics
func (ps *ParseStats) AddError(err *LineError) {
	ps.Errors = append(ps.Errors, err)
}

// HasErrors reports whether any line failed
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// Err combines every line error into one error value, or returns nil.
func (ps *ParseStats) Err() error {
	var combined error
	for _, le := range ps.Errors {
		combined = multierr.Append(combined, le.ReconcilerError())
	}
	return combined
}

// ErrorSummary builds the categorized summary of all line errors
func (ps *ParseStats) ErrorSummary() *errors.ErrorSummary {
	errs := make([]*errors.ReconcilerError, 0, len(ps.Errors))
	for _, le := range ps.Errors {
		errs = append(errs, le.ReconcilerError())
	}
	return errors.NewErrorSummary(errs)
}

// rawLine is one physical line of input with its data-line number.
type rawLine struct {
	number int
	fields []string
}

// splitInput separates the header from the data lines. The first non-blank
// line is the header when hasHeader is set. Blank data lines still advance the
// line number but are not returned.
func splitInput(raw string, delimiter rune, hasHeader bool, stats *ParseStats) ([]string, []rawLine) {
	lines := strings.Split(raw, "\n")

	var header []string
	var data []rawLine
	number := 0
	headerSeen := !hasHeader

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		blank := strings.TrimSpace(line) == ""

		if !headerSeen {
			if blank {
				continue
			}
			header = splitFields(line, delimiter)
			headerSeen = true
			continue
		}

		number++
		if blank {
			stats.BlankLines++
			continue
		}
		stats.DataLines++
		data = append(data, rawLine{number: number, fields: splitFields(line, delimiter)})
	}

	return header, data
}

// splitFields splits a line on the delimiter, trims whitespace and strips
// one pair of surrounding double quotes from each field.
func splitFields(line string, delimiter rune) []string {
	parts := strings.Split(line, string(delimiter))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) >= 2 && strings.HasPrefix(p, `"`) && strings.HasSuffix(p, `"`) {
			p = strings.TrimSpace(p[1 : len(p)-1])
		}
		parts[i] = p
	}
	return parts
}

// normalizeHeader lowercases a header name and removes whitespace and
// underscores, so "Account Name" and "account_name" compare equal.
func normalizeHeader(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

// headerIndex maps normalized header names to their field positions. The
// first occurrence of a duplicated name wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}
	return index
}

// field returns the value at position idx, or "" when the column is absent.
func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

func requireColumns(index map[string]int, names map[string]string, required []string, stats *ParseStats) (map[string]int, bool) {
	resolved := make(map[string]int, len(names))
	ok := true
	for logical, header := range names {
		if idx, exists := index[normalizeHeader(header)]; exists {
			resolved[logical] = idx
		} else {
			resolved[logical] = -1
		}
	}
	for _, logical := range required {
		if resolved[logical] < 0 {
			stats.AddError(newLineError(errors.CodeMissingColumn, 0, names[logical], ""))
			ok = false
		}
	}
	return resolved, ok
}
