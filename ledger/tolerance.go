package ledger

import (
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/shopspring/decimal"
)

// toleranceConfig carries the tolerance options a booking pass needs.
type toleranceConfig struct {
	inferFromCost bool
	defaults      *options.Options
	multiplier    decimal.Decimal
	balanceMult   decimal.Decimal
}

func newToleranceConfig(opts *options.Options) *toleranceConfig {
	return &toleranceConfig{
		inferFromCost: opts.InferToleranceFromCost,
		defaults:      opts,
		multiplier:    opts.InferredToleranceMultiplier,
		balanceMult:   opts.ToleranceMultiplier,
	}
}

// inferTolerances derives the per-currency tolerance for one transaction
// from the precision of its posting amounts. A posting written as 45.60 USD
// contributes a candidate of 0.01 * multiplier for USD; the coarsest
// candidate per currency wins. Currencies with no fractional amounts fall
// back to the configured default.
func (tc *toleranceConfig) inferTolerances(postings []*ast.Posting) map[string]decimal.Decimal {
	tolerances := make(map[string]decimal.Decimal)

	record := func(currency string, candidate decimal.Decimal) {
		if current, ok := tolerances[currency]; !ok || candidate.GreaterThan(current) {
			tolerances[currency] = candidate
		}
	}

	for _, posting := range postings {
		if posting.Units == nil {
			continue
		}
		exp := posting.Units.Number.Exponent()
		if exp >= 0 {
			continue
		}
		quantum := decimal.New(1, exp)
		record(posting.Units.Currency, quantum.Mul(tc.multiplier))

		// A costed posting makes the cost currency tolerant in proportion
		// to the unit tolerance scaled by the cost rate.
		if tc.inferFromCost && posting.Cost != nil {
			record(posting.Cost.Currency, quantum.Mul(tc.multiplier).Mul(posting.Cost.Number))
		}
		if tc.inferFromCost && posting.Cost == nil && posting.Price != nil {
			record(posting.Price.Currency, quantum.Mul(tc.multiplier).Mul(posting.Price.Number))
		}
	}

	return tolerances
}

// tolerance returns the tolerance for one currency of a transaction, using
// the inferred map with the configured default as fallback.
func (tc *toleranceConfig) tolerance(inferred map[string]decimal.Decimal, currency string) decimal.Decimal {
	if tol, ok := inferred[currency]; ok {
		return tol
	}
	return tc.defaults.ToleranceDefault(currency).Mul(tc.multiplier)
}

// balanceTolerance returns the tolerance for a balance assertion: the
// explicit ~ tolerance when present, otherwise half the last digit of the
// asserted amount scaled by the tolerance multiplier, otherwise the
// configured default.
func (tc *toleranceConfig) balanceTolerance(balance *ast.Balance) decimal.Decimal {
	if balance.Tolerance != nil {
		return *balance.Tolerance
	}
	exp := balance.Amount.Number.Exponent()
	if exp < 0 {
		return decimal.New(1, exp).Mul(tc.balanceMult)
	}
	return tc.defaults.ToleranceDefault(balance.Amount.Currency).Mul(tc.balanceMult)
}
