// Package reconciler coordinates imports, matching and the human review
// steps of bank reconciliation for one company at a time.
//
// Discovery is advisory: AutoMatch only proposes matches. Records change
// state through ConfirmMatch, CreateDiscrepancy and ResolveDiscrepancy, each
// of which runs as a single unit of work against the store.
//
// Every operation returns a result struct carrying a success flag and an
// error message for presentation layers, together with a typed
// *errors.ReconcilerError for library callers.
//
// Example usage:
//
//	svc, err := reconciler.NewService(st, reconciler.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	res, err := svc.AutoMatch(ctx, "company-1", svc.DefaultAutoMatchOptions())
package reconciler

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"bank-reconciliation-service/internal/matcher"
	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/parsers"
	"bank-reconciliation-service/internal/store"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// Service is the reconciliation orchestrator.
type Service struct {
	store  store.Store
	engine *matcher.MatchingEngine
	config *Config
	logger logger.Logger
	now    store.Clock
}

// Option configures a Service
type Option func(*Service)

// WithLogger replaces the component logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(clock store.Clock) Option {
	return func(s *Service) { s.now = clock }
}

// NewService creates a service over st. A nil config selects DefaultConfig.
func NewService(st store.Store, config *Config, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "store", nil, nil).
			WithSuggestion("provide a store implementation")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", config, err)
	}

	s := &Service{
		store:  st,
		engine: matcher.NewMatchingEngine(config.Matching),
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reconciler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetMatchingConfig returns a copy of the matching configuration in use
func (s *Service) GetMatchingConfig() *matcher.MatchingConfig {
	return s.engine.GetConfiguration()
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func requireCompany(companyID string) error {
	if strings.TrimSpace(companyID) == "" {
		return errors.ValidationError(errors.CodeMissingField, "company_id", companyID, nil)
	}
	return nil
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.ValidationError(errors.CodeMissingField, field, id, nil)
	}
	return nil
}

// ImportResult is the outcome of ImportBankTransactions.
type ImportResult struct {
	Success  bool                      `json:"success"`
	Imported []*models.BankTransaction `json:"imported"`
	Errors   []*parsers.LineError      `json:"errors,omitempty"`
	Stats    *parsers.ParseStats       `json:"stats,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// ImportBankTransactions parses raw and, if every line is valid, stores the
// transactions as pending. A single bad line rejects the whole import.
func (s *Service) ImportBankTransactions(ctx context.Context, companyID, raw string, mapping *parsers.ColumnMapping) (*ImportResult, error) {
	result := &ImportResult{Imported: []*models.BankTransaction{}}
	if err := requireCompany(companyID); err != nil {
		return fail(result, err)
	}

	log := s.logger.WithField("company_id", companyID)
	log.Info("Starting bank transaction import")

	parsed, err := parsers.ParseImport(companyID, raw, mapping, s.config.Import)
	if err != nil {
		log.WithError(err).Error("Import could not be parsed")
		return fail(result, err)
	}
	result.Stats = parsed.Stats

	if !parsed.Success() {
		result.Errors = parsed.Stats.Errors
		rejected := errors.Wrap(parsed.Stats.Err(), errors.CategoryParse, errors.CodeImportRejected,
			"import rejected").
			WithContext("line_errors", len(parsed.Stats.Errors)).
			WithSuggestion("fix every reported line and import the file again; nothing was stored")
		log.WithFields(logger.Fields{
			"data_lines":  parsed.Stats.DataLines,
			"line_errors": len(parsed.Stats.Errors),
		}).Warn("Import rejected")
		return fail(result, rejected)
	}

	if len(parsed.Transactions) == 0 {
		log.Info("Import contained no data lines")
		result.Success = true
		return result, nil
	}

	createdAt := s.clock()
	for _, bt := range parsed.Transactions {
		bt.CreatedAt = createdAt
	}

	inserted, err := s.store.InsertBankTransactions(ctx, parsed.Transactions)
	if err != nil {
		storeErr := errors.StoreError(errors.CodeStoreWrite, "insert bank transactions", err)
		log.WithError(err).Error("Failed to store imported transactions")
		return fail(result, storeErr)
	}

	result.Success = true
	result.Imported = inserted
	log.WithField("imported", len(inserted)).Info("Bank transaction import completed")
	return result, nil
}

// resulter is implemented by every operation result.
type resulter interface {
	setError(msg string)
}

func (r *ImportResult) setError(msg string) { r.Success = false; r.Error = msg }

func fail[R resulter](result R, err error) (R, error) {
	result.setError(err.Error())
	return result, err
}

// mapStoreError translates store sentinels into the error taxonomy. Errors
// that are already categorized pass through.
func mapStoreError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if re, ok := errors.AsReconcilerError(err); ok {
		return re
	}
	switch {
	case stderrors.Is(err, store.ErrAlreadyConfirmed):
		return errors.ConflictError(errors.CodeAlreadyMatched, "match", "", "a confirmed match already exists", err)
	case stderrors.Is(err, store.ErrNotFound):
		return errors.NotFoundError(errors.CodeRecordNotFound, "record", "", err)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.InternalError(errors.CodeUnexpectedError, operation, err)
	}
	return errors.StoreError(errors.CodeStoreWrite, operation, err)
}
