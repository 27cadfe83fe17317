package cmd

import (
	"github.com/spf13/cobra"

	"bank-reconciliation-service/internal/matcher"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/pkg/errors"
)

func newAutoMatchCmd(a *app) *cobra.Command {
	var (
		company       string
		minConfidence int
		maxAgeDays    int
		matchBy       string
		deduplicate   bool
		maxMatches    int
	)

	cmd := &cobra.Command{
		Use:   "automatch",
		Short: "Propose matches for pending bank transactions",
		Long: `Automatch scores every pending bank transaction of the company against its
completed payments and lists the proposals at or above the confidence
threshold. Nothing is stored; confirm a proposal with 'reconciler confirm'.

Examples:
  reconciler automatch --company acme
  reconciler automatch --company acme --match-by reference --min-confidence 90
  reconciler automatch --company acme --max-age-days 30 --max-matches 1 -f csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := matcher.ParseStrategy(matchBy)
			if err != nil {
				return errors.ValidationError(errors.CodeInvalidValue, "match-by", matchBy, err).
					WithSuggestion("Use one of: combined, reference, amount, date")
			}

			return a.withService(cmd.Context(), nil, func(svc *reconciler.Service) error {
				opts := svc.DefaultAutoMatchOptions()
				opts.MatchBy = strategy

				flags := cmd.Flags()
				if flags.Changed("min-confidence") {
					opts.MinConfidence = &minConfidence
				}
				if flags.Changed("max-age-days") {
					opts.MaxAgeDays = &maxAgeDays
				}
				if flags.Changed("deduplicate") {
					opts.Deduplicate = deduplicate
				}
				if flags.Changed("max-matches") {
					opts.MaxMatchesPerTransaction = maxMatches
				}

				res, err := svc.AutoMatch(cmd.Context(), company, opts)
				return a.finish(res, err)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&company, "company", "c", "", "company to match (required)")
	flags.IntVar(&minConfidence, "min-confidence", 70, "drop proposals below this confidence (0-100)")
	flags.IntVar(&maxAgeDays, "max-age-days", 0, "only consider transactions dated within this many days")
	flags.StringVar(&matchBy, "match-by", string(matcher.StrategyCombined), "strategy: combined, reference, amount, date")
	flags.BoolVar(&deduplicate, "deduplicate", false, "keep one proposal per payment for each transaction")
	flags.IntVar(&maxMatches, "max-matches", 0, "keep at most N proposals per transaction (0 keeps all)")
	cmd.MarkFlagRequired("company")

	return cmd
}
