package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bank-reconciliation-service/internal/parsers"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/pkg/errors"
)

type importOptions struct {
	company  string
	file     string
	noHeader bool
	mapping  parsers.ColumnMapping
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a bank statement extract as pending transactions",
		Long: `Import parses a delimited bank extract and stores every line as a pending
bank transaction of the company. A single invalid line rejects the whole
file and nothing is stored; every line error is reported.

Examples:
  reconciler import --company acme --file statement.csv
  reconciler import --company acme --file export.csv \
    --date-column "Posting Date" --amount-column Value --reference-column Ref
  reconciler import --company acme --file raw.txt --no-header`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInputFile(opts.file)
			if err != nil {
				return err
			}

			rc := a.cfg.ReconcilerConfig()
			if opts.noHeader {
				rc.Import.HasHeader = false
			}

			return a.withService(cmd.Context(), rc, func(svc *reconciler.Service) error {
				res, err := svc.ImportBankTransactions(cmd.Context(), opts.company, raw, &opts.mapping)
				return a.finish(res, err)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.company, "company", "c", "", "company the extract belongs to (required)")
	flags.StringVar(&opts.file, "file", "", "path to the bank extract (required)")
	flags.BoolVar(&opts.noHeader, "no-header", false, "the extract has no header row; columns are positional")
	flags.StringVar(&opts.mapping.Date, "date-column", "", "header of the transaction date column")
	flags.StringVar(&opts.mapping.Amount, "amount-column", "", "header of the amount column")
	flags.StringVar(&opts.mapping.Reference, "reference-column", "", "header of the reference number column")
	flags.StringVar(&opts.mapping.Account, "account-column", "", "header of the account number column")
	flags.StringVar(&opts.mapping.Description, "description-column", "", "header of the description column")
	flags.StringVar(&opts.mapping.AccountName, "account-name-column", "", "header of the account name column")
	cmd.MarkFlagRequired("company")
	cmd.MarkFlagRequired("file")

	return cmd
}

// readInputFile reads a whole input file, mapping OS failures into file
// errors.
func readInputFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.ValidationError(errors.CodeMissingField, "file", path, nil)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return "", errors.FileError(errors.CodeFileNotFound, path, err)
	case os.IsPermission(err):
		return "", errors.FileError(errors.CodeFilePermission, path, err)
	case err != nil:
		return "", errors.FileError("", path, err)
	case info.IsDir():
		return "", errors.FileError("", path, nil).WithSuggestion("expected a file, got a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", errors.FileError(errors.CodeFilePermission, path, err)
		}
		return "", errors.FileError("", path, err)
	}
	return string(data), nil
}
