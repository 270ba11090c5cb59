package ledger

import (
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// weight is the contribution of a posting to the transaction balance. A
// costed posting weighs in its cost currency, a priced posting in its price
// currency, a plain posting in its own currency.
type weight struct {
	Number   decimal.Decimal
	Currency string
}

// unitWeight computes the weight of a posting that holds no cost basis.
// Costed postings get their weights from the lots selected during booking.
func unitWeight(p *ast.Posting) weight {
	if p.Price != nil {
		return weight{Number: p.Units.Number.Mul(p.Price.Number), Currency: p.Price.Currency}
	}
	return weight{Number: p.Units.Number, Currency: p.Units.Currency}
}

// sumWeights accumulates weights into a per-currency residual map.
func sumWeights(residual map[string]decimal.Decimal, weights []weight) {
	for _, w := range weights {
		residual[w.Currency] = residual[w.Currency].Add(w.Number)
	}
}
