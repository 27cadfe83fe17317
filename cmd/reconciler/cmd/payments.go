package cmd

import (
	"github.com/spf13/cobra"

	"bank-reconciliation-service/cmd/reconciler/config"
	"bank-reconciliation-service/internal/parsers"
	"bank-reconciliation-service/internal/reporter"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

func newPaymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Manage the local payment snapshot",
		Long: `Payments are owned by the payments subsystem. These commands seed a
snapshot of them into the local store so they can be matched.`,
	}
	cmd.AddCommand(newPaymentsLoadCmd(a))
	return cmd
}

func newPaymentsLoadCmd(a *app) *cobra.Command {
	var company, file string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a payment snapshot export",
		Long: `Load reads a CSV export with a header row. Required columns are id,
amount and payment_date; reference_number, payment_number,
agreement_number and status are optional. Rows without a status are
treated as completed.

Example:
  reconciler payments load --company acme --file payments.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInputFile(file)
			if err != nil {
				return err
			}

			payments, stats, err := parsers.ParsePayments(company, raw)
			if err != nil {
				return err
			}
			if stats.HasErrors() {
				rejected := errors.Wrap(stats.Err(), errors.CategoryParse, errors.CodeImportRejected,
					"payment snapshot rejected").
					WithContext("line_errors", len(stats.Errors))
				return a.finish(&reporter.LoadResult{Errors: stats.Errors, Error: rejected.Error()}, rejected)
			}

			return a.withBackend(cmd.Context(), func(backend config.Backend) error {
				if err := backend.PutPayments(cmd.Context(), payments); err != nil {
					return errors.StoreError(errors.CodeStoreWrite, "put payments", err)
				}
				a.log.WithFields(logger.Fields{
					"company_id": company,
					"payments":   len(payments),
				}).Info("Payment snapshot loaded")
				return a.finish(&reporter.LoadResult{Success: true, Loaded: len(payments)}, nil)
			})
		},
	}

	cmd.Flags().StringVarP(&company, "company", "c", "", "company the payments belong to (required)")
	cmd.Flags().StringVar(&file, "file", "", "path to the payment export (required)")
	cmd.MarkFlagRequired("company")
	cmd.MarkFlagRequired("file")
	return cmd
}
