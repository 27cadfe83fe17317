package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bank-reconciliation-service/internal/models"
)

// MatchingEngine is the core engine responsible for transaction matching
type MatchingEngine struct {
	config *MatchingConfig
}

// Candidate is one scored pairing of a bank transaction with a payment. The
// same payment may appear several times under different strategies.
type Candidate struct {
	PaymentID        string           `json:"payment_id"`
	MatchType        models.MatchType `json:"match_type"`
	Confidence       int              `json:"confidence"`
	AmountDifference decimal.Decimal  `json:"amount_difference"`
	Strategy         Strategy         `json:"strategy"`
}

// NewMatchingEngine creates a new matching engine with the specified configuration
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &MatchingEngine{config: config.Clone()}
}

// GetConfiguration returns a copy of the current configuration
func (me *MatchingEngine) GetConfiguration() *MatchingConfig {
	return me.config.Clone()
}

// FindMatches scores txn against payments with the given strategy. Payments
// that are not completed or belong to another company are ignored.
// Candidates are returned in strategy order, then payment order.
func (me *MatchingEngine) FindMatches(txn *models.BankTransaction, payments []*models.Payment, strategy Strategy) ([]Candidate, error) {
	if txn == nil {
		return nil, fmt.Errorf("bank transaction cannot be nil")
	}

	pool := eligiblePayments(txn, payments)
	var candidates []Candidate

	switch strategy {
	case StrategyReference:
		candidates = me.matchByReference(txn, pool)
	case StrategyAmount:
		candidates = me.matchByAmount(txn, pool)
	case StrategyDate:
		candidates = me.matchByDate(txn, pool, nil)
	case StrategyCombined:
		candidates = append(candidates, me.matchByReference(txn, pool)...)
		candidates = append(candidates, me.matchByAmount(txn, pool)...)
		covered := make(map[string]bool, len(candidates))
		for _, c := range candidates {
			covered[c.PaymentID] = true
		}
		candidates = append(candidates, me.matchByDate(txn, pool, covered)...)
	default:
		return nil, fmt.Errorf("unknown match strategy '%s'", strategy)
	}

	if candidates == nil {
		candidates = []Candidate{}
	}
	return candidates, nil
}

func eligiblePayments(txn *models.BankTransaction, payments []*models.Payment) []*models.Payment {
	pool := make([]*models.Payment, 0, len(payments))
	for _, p := range payments {
		if p == nil || !p.IsCompleted() || p.CompanyID != txn.CompanyID {
			continue
		}
		pool = append(pool, p)
	}
	return pool
}

// matchByReference emits one exact candidate per payment whose reference or
// agreement number equals the bank reference, ignoring case and surrounding space.
func (me *MatchingEngine) matchByReference(txn *models.BankTransaction, payments []*models.Payment) []Candidate {
	ref := models.NormalizeReference(txn.ReferenceNumber)
	if ref == "" {
		return nil
	}

	var out []Candidate
	for _, p := range payments {
		for _, pref := range p.References() {
			if models.NormalizeReference(pref) == ref {
				out = append(out, Candidate{
					PaymentID:        p.ID,
					MatchType:        models.MatchExact,
					Confidence:       me.config.Confidence.Reference,
					AmountDifference: amountDifference(txn, p),
					Strategy:         StrategyReference,
				})
				break
			}
		}
	}
	return out
}

func (me *MatchingEngine) matchByAmount(txn *models.BankTransaction, payments []*models.Payment) []Candidate {
	tolerance := me.config.GetAmountTolerance(txn.Amount)

	var out []Candidate
	for _, p := range payments {
		diff := amountDifference(txn, p)
		if diff.Abs().GreaterThan(tolerance) {
			continue
		}

		c := Candidate{
			PaymentID:        p.ID,
			MatchType:        models.MatchManual,
			Confidence:       me.config.Confidence.ToleranceAmount,
			AmountDifference: diff,
			Strategy:         StrategyAmount,
		}
		if diff.IsZero() {
			c.MatchType = models.MatchExact
			c.Confidence = me.config.Confidence.ExactAmount
		}
		out = append(out, c)
	}
	return out
}

// matchByDate skips payments present in covered.
func (me *MatchingEngine) matchByDate(txn *models.BankTransaction, payments []*models.Payment, covered map[string]bool) []Candidate {
	var out []Candidate
	for _, p := range payments {
		if covered[p.ID] {
			continue
		}
		if !me.config.IsWithinDateTolerance(txn.TransactionDate, p.PaymentDate) {
			continue
		}
		out = append(out, Candidate{
			PaymentID:        p.ID,
			MatchType:        models.MatchManual,
			Confidence:       me.config.Confidence.Date,
			AmountDifference: amountDifference(txn, p),
			Strategy:         StrategyDate,
		})
	}
	return out
}

// amountDifference is payment amount minus bank amount.
func amountDifference(txn *models.BankTransaction, p *models.Payment) decimal.Decimal {
	return p.Amount.Sub(txn.Amount)
}

// FilterByConfidence keeps candidates scoring at least minConfidence, preserving order
func FilterByConfidence(candidates []Candidate, minConfidence int) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= minConfidence {
			out = append(out, c)
		}
	}
	return out
}

// Deduplicate keeps the highest-confidence candidate per payment. Ties keep
// the earlier candidate. Output order follows first appearance.
func Deduplicate(candidates []Candidate) []Candidate {
	best := make(map[string]int, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		i, seen := best[c.PaymentID]
		if !seen {
			best[c.PaymentID] = len(out)
			out = append(out, c)
			continue
		}
		if c.Confidence > out[i].Confidence {
			out[i] = c
		}
	}
	if out == nil {
		out = []Candidate{}
	}
	return out
}

// TopN returns at most n candidates ordered by descending confidence; ties
// keep their original order. n <= 0 returns the input unchanged.
func TopN(candidates []Candidate, n int) []Candidate {
	if n <= 0 {
		return candidates
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// String returns a short description of the candidate
func (c Candidate) String() string {
	return fmt.Sprintf("%s %s/%s %d%% diff=%s",
		c.PaymentID, strings.ToUpper(string(c.Strategy)), c.MatchType, c.Confidence, c.AmountDifference.StringFixed(2))
}
