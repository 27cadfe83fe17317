package cmd

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bank-reconciliation-service/internal/models"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/pkg/errors"
)

func newConfirmCmd(a *app) *cobra.Command {
	var transactionID, paymentID, userID string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a bank transaction and payment as matched",
		Long: `Confirm records a reviewed pairing. The bank transaction becomes matched,
the payment is annotated as matched with confidence 100, and a confirmed
manual match is stored, all in one unit of work.

Example:
  reconciler confirm --transaction 9b1d... --payment pay-001 --user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), nil, func(svc *reconciler.Service) error {
				res, err := svc.ConfirmMatch(cmd.Context(), transactionID, paymentID, userID)
				return a.finish(res, err)
			})
		},
	}

	cmd.Flags().StringVarP(&transactionID, "transaction", "t", "", "bank transaction id (required)")
	cmd.Flags().StringVarP(&paymentID, "payment", "p", "", "payment id (required)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "reviewer recorded on the match")
	cmd.MarkFlagRequired("transaction")
	cmd.MarkFlagRequired("payment")
	return cmd
}

func newDiscrepancyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discrepancy",
		Short: "Flag and resolve inconsistent pairings",
	}
	cmd.AddCommand(newDiscrepancyCreateCmd(a), newDiscrepancyResolveCmd(a))
	return cmd
}

func newDiscrepancyCreateCmd(a *app) *cobra.Command {
	var (
		transactionID, paymentID string
		resolvedAs               string
		opts                     reconciler.DiscrepancyOptions
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Flag a bank transaction and payment as a discrepancy",
		Long: `Create moves both records to discrepancy and stores an open discrepancy
with the two amounts and their difference.

Example:
  reconciler discrepancy create --transaction 9b1d... --payment pay-002 \
    --notes "bank charged a fee" --user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ResolvedAs = models.DiscrepancyResolution(strings.ToLower(strings.TrimSpace(resolvedAs)))
			return a.withService(cmd.Context(), nil, func(svc *reconciler.Service) error {
				res, err := svc.CreateDiscrepancy(cmd.Context(), transactionID, paymentID, opts)
				return a.finish(res, err)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&transactionID, "transaction", "t", "", "bank transaction id (required)")
	flags.StringVarP(&paymentID, "payment", "p", "", "payment id (required)")
	flags.StringVar(&opts.Notes, "notes", "", "free-text notes (default \""+reconciler.DefaultDiscrepancyNote+"\")")
	flags.StringVar(&resolvedAs, "resolved-as", "", "expected resolution: bank_correct, payment_correct, adjustment")
	flags.StringVarP(&opts.UserID, "user", "u", "", "reviewer recorded on the discrepancy")
	cmd.MarkFlagRequired("transaction")
	cmd.MarkFlagRequired("payment")
	return cmd
}

func newDiscrepancyResolveCmd(a *app) *cobra.Command {
	var (
		discrepancyID    string
		resolvedAs       string
		correctedBank    string
		correctedPayment string
		opts             reconciler.ResolveOptions
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an open discrepancy",
		Long: `Resolve closes a discrepancy and records how it was settled. The bank
transaction and payment keep their discrepancy status until a match is
confirmed for them.

Example:
  reconciler discrepancy resolve --id 4f2c... --resolved-as bank_correct \
    --resolution "payment amended" --corrected-payment-amount 1000.00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ResolvedAs = models.DiscrepancyResolution(strings.ToLower(strings.TrimSpace(resolvedAs)))

			var err error
			if opts.CorrectedBankAmount, err = parseOptionalAmount("corrected-bank-amount", correctedBank); err != nil {
				return err
			}
			if opts.CorrectedPaymentAmount, err = parseOptionalAmount("corrected-payment-amount", correctedPayment); err != nil {
				return err
			}

			return a.withService(cmd.Context(), nil, func(svc *reconciler.Service) error {
				res, err := svc.ResolveDiscrepancy(cmd.Context(), discrepancyID, opts)
				return a.finish(res, err)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&discrepancyID, "id", "", "discrepancy id (required)")
	flags.StringVar(&resolvedAs, "resolved-as", "", "bank_correct, payment_correct or adjustment")
	flags.StringVar(&opts.Resolution, "resolution", "", "free-text resolution notes")
	flags.StringVar(&correctedBank, "corrected-bank-amount", "", "corrected bank amount")
	flags.StringVar(&correctedPayment, "corrected-payment-amount", "", "corrected payment amount")
	flags.StringVarP(&opts.UserID, "user", "u", "", "reviewer recorded as resolver")
	cmd.MarkFlagRequired("id")
	return cmd
}

func parseOptionalAmount(field, value string) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidValue, field, value, err).
			WithSuggestion("amounts are plain decimal numbers such as 1000.00 or -25.50")
	}
	return &amount, nil
}
