// Package errors provides the categorized error type shared by every layer
// of the reconciliation service.
//
// A ReconcilerError carries a category (which decides the CLI exit code), a
// machine-readable code, a human message with an optional suggestion, and
// structured context. Stack traces are captured at construction.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryStore          ErrorCategory = "store"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	// Parse errors
	CodeInsufficientColumns ErrorCode = "insufficient_columns"
	CodeMissingColumn       ErrorCode = "missing_column"
	CodeInvalidAmount       ErrorCode = "invalid_amount"
	CodeInvalidDate         ErrorCode = "invalid_date"
	CodeImportRejected      ErrorCode = "import_rejected"

	// Validation errors
	CodeMissingField ErrorCode = "missing_field"
	CodeInvalidValue ErrorCode = "invalid_value"
	CodeOutOfRange   ErrorCode = "out_of_range"

	// Not found errors
	CodeBankTransactionNotFound ErrorCode = "bank_transaction_not_found"
	CodePaymentNotFound         ErrorCode = "payment_not_found"
	CodeDiscrepancyNotFound     ErrorCode = "discrepancy_not_found"
	CodeRecordNotFound          ErrorCode = "record_not_found"

	// Conflict errors
	CodeAlreadyMatched  ErrorCode = "already_matched"
	CodeInvalidState    ErrorCode = "invalid_state"
	CodeCompanyMismatch ErrorCode = "company_mismatch"

	// Store errors
	CodeStoreRead  ErrorCode = "store_read"
	CodeStoreWrite ErrorCode = "store_write"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors
	CodeMatchingFailed ErrorCode = "matching_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", msg, e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryStore:
		return 6
	case CategoryNotFound, CategoryConflict:
		return 7
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return build(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates an import line error. Line 0 refers to the header row.
func ParseError(code ErrorCode, line int, column string, value string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInsufficientColumns:
		message = fmt.Sprintf("line %d: insufficient columns", line)
		suggestion = "every data line needs at least as many fields as the header"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s'", column)
		suggestion = "add the column to the header or pass a column mapping"
	case CodeInvalidAmount:
		message = fmt.Sprintf("line %d: invalid amount '%s'", line, value)
		suggestion = "amounts must be non-zero decimal numbers (e.g. '1000.00' or '-25.50')"
	case CodeInvalidDate:
		message = fmt.Sprintf("line %d: invalid date '%s'", line, value)
		suggestion = "use YYYY-MM-DD, DD/MM/YYYY or YYYYMMDD"
	default:
		message = fmt.Sprintf("line %d: parse error", line)
		suggestion = "check the file format and data integrity"
	}

	return build(err, CategoryParse, code, message).
		WithSuggestion(suggestion).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("invalid value in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return build(err, CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// NotFoundError reports a missing record. The message always contains "not found".
func NotFoundError(code ErrorCode, entity, id string, err error) *ReconcilerError {
	return build(err, CategoryNotFound, code, fmt.Sprintf("%s not found: %s", entity, id)).
		WithSuggestion("check the identifier and the owning company").
		WithContext("entity", entity).
		WithContext("id", id)
}

// ConflictError reports an operation rejected because of the current record state.
func ConflictError(code ErrorCode, entity, id, reason string, err error) *ReconcilerError {
	return build(err, CategoryConflict, code, fmt.Sprintf("%s %s: %s", entity, id, reason)).
		WithContext("entity", entity).
		WithContext("id", id)
}

// StoreError wraps a persistence failure, keeping the underlying message.
func StoreError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(err, CategoryStore, code, fmt.Sprintf("store %s failed", operation)).
		WithSuggestion("check store connectivity and retry; no partial changes were kept").
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	}

	return build(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeMatchingFailed:
		message = fmt.Sprintf("matching failed during %s", operation)
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
	}

	return build(err, CategoryReconciliation, code, message).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(err, CategoryInternal, code, fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ReconcilerError    `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*ReconcilerError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var codes []string
	for code, count := range es.ByCode {
		codes = append(codes, fmt.Sprintf("%s: %d", code, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(codes, ", "))
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// HasCategory reports whether err carries a ReconcilerError of the given category
func HasCategory(err error, category ErrorCategory) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Category == category
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
