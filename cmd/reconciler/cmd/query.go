package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/internal/reporter"
	"bank-reconciliation-service/pkg/errors"
)

func newPendingCmd(a *app) *cobra.Command {
	var (
		company       string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending bank transactions, newest first",
		Example: `  reconciler pending --company acme
  reconciler pending --company acme --limit 20 --offset 40 -f csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), nil, func(svc *reconciler.Service) error {
				res, err := svc.ListPending(cmd.Context(), company, limit, offset)
				return a.finishWith(res, err, func(rc *reporter.ReportConfig) {
					// print the whole requested page
					if limit == 0 || (rc.MaxItems != 0 && limit > rc.MaxItems) {
						rc.MaxItems = limit
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&company, "company", "c", "", "company to list (required)")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size (0 lists everything)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of transactions to skip")
	cmd.MarkFlagRequired("company")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var company, startDate, endDate string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize reconciliation progress for a date window",
		Long: `Summary counts bank transactions, completed payments, confirmed matches
and open discrepancies of the company within the window. The window
defaults to the configured number of days ending now.

Examples:
  reconciler summary --company acme
  reconciler summary --company acme --start-date 2025-01-01 --end-date 2025-01-31 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts reconciler.SummaryOptions
			var err error
			if opts.StartDate, err = parseOptionalDate("start-date", startDate); err != nil {
				return err
			}
			if opts.EndDate, err = parseOptionalDate("end-date", endDate); err != nil {
				return err
			}

			return a.withService(cmd.Context(), nil, func(svc *reconciler.Service) error {
				summary, err := svc.GetSummary(cmd.Context(), company, opts)
				if err != nil {
					return err
				}
				return a.finish(summary, nil)
			})
		},
	}

	cmd.Flags().StringVarP(&company, "company", "c", "", "company to summarize (required)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "window end, inclusive (YYYY-MM-DD)")
	cmd.MarkFlagRequired("company")
	return cmd
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidValue, field, value, err).
			WithSuggestion("use YYYY-MM-DD")
	}
	return &t, nil
}
