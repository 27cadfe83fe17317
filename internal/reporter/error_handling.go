package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report_config", config, err).
			WithSuggestion("Check the report format and csv settings")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// RenderSafely renders result and, when the configured format cannot
// represent it, falls back to JSON. Failures come back as
// *errors.ReconcilerError.
func (srg *SafeReportGenerator) RenderSafely(result interface{}, writer io.Writer) error {
	log := srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
		"result": fmt.Sprintf("%T", result),
	})
	log.Debug("Rendering report")

	if err := validateInputs(result, writer); err != nil {
		log.WithError(err).Error("Report rendering failed: input validation")
		return err
	}

	err := srg.Render(result, writer)
	if err == nil {
		return nil
	}

	if srg.shouldAttemptFormatFallback(err) {
		log.WithError(err).Warn("Requested format cannot render this result, falling back to JSON")
		fallback := *srg.config
		fallback.Format = FormatJSON
		if ferr := (&ReportGenerator{config: &fallback}).Render(result, writer); ferr != nil {
			return wrapRenderError(fmt.Errorf("primary=%v, fallback=%v", err, ferr))
		}
		return nil
	}

	if srg.isFileError(err) {
		log.WithError(err).Error("Report output is not writable")
		return errors.FileError(errors.CodeFilePermission, getWriterDescription(writer), err)
	}

	log.WithError(err).Error("Report rendering failed")
	return wrapRenderError(err)
}

// WriteToFile renders result into path. If path cannot be created the
// report goes to a backup file in the temp directory, whose path is
// returned.
func (srg *SafeReportGenerator) WriteToFile(result interface{}, path string) (string, error) {
	file, err := os.Create(path)
	if err != nil {
		backup := generateBackupPath(path)
		srg.logger.WithFields(logger.Fields{
			"original_file": path,
			"backup_file":   backup,
		}).WithError(err).Warn("Cannot create report file, using backup location")

		file, err = os.Create(backup)
		if err != nil {
			return "", errors.FileError(errors.CodeFilePermission, path, err)
		}
		path = backup
	}
	defer file.Close()

	if err := srg.RenderSafely(result, file); err != nil {
		return path, err
	}
	return path, nil
}

func validateInputs(result interface{}, writer io.Writer) error {
	if result == nil || (reflect.ValueOf(result).Kind() == reflect.Ptr && reflect.ValueOf(result).IsNil()) {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil).
			WithSuggestion("Provide a result to render")
	}
	if writer == nil {
		return errors.ValidationError(errors.CodeMissingField, "writer", nil, nil).
			WithSuggestion("Provide a valid output writer")
	}
	return nil
}

// shouldAttemptFormatFallback reports whether err means the format does not
// support the result type. Console and JSON never need it.
func (srg *SafeReportGenerator) shouldAttemptFormatFallback(err error) bool {
	if srg.config.Format != FormatCSV {
		return false
	}
	re, ok := errors.AsReconcilerError(err)
	return ok && re.Category == errors.CategoryValidation && re.Code == errors.CodeInvalidValue
}

func (srg *SafeReportGenerator) isFileError(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || isSpaceError(err)
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s_%s_backup%s", filepath.Base(dir), name, ext))
}

func wrapRenderError(err error) error {
	if re, ok := errors.AsReconcilerError(err); ok {
		return re
	}
	return errors.InternalError(errors.CodeUnexpectedError, "render report", err).
		WithSuggestion("Check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return "file:" + w.Name()
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") || strings.Contains(msg, "disk full")
}
