package ledger

import (
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// defaultDisplayDigits is used for currencies never observed in a posting.
const defaultDisplayDigits = 2

// DisplayContext infers the number of fractional digits to render per
// currency from the amounts observed in the directive stream. The most
// frequent precision wins; ties go to the larger precision.
type DisplayContext struct {
	counts map[string]map[int32]int
}

// NewDisplayContext creates an empty display context.
func NewDisplayContext() *DisplayContext {
	return &DisplayContext{counts: make(map[string]map[int32]int)}
}

// BuildDisplayContext observes every posting amount, balance assertion and
// price in the stream.
func BuildDisplayContext(directives ast.Directives) *DisplayContext {
	dc := NewDisplayContext()
	for _, directive := range directives {
		switch d := directive.(type) {
		case *ast.Transaction:
			for _, p := range d.Postings {
				if p.Units != nil {
					dc.Observe(p.Units.Number, p.Units.Currency)
				}
				if p.Price != nil {
					dc.Observe(p.Price.Number, p.Price.Currency)
				}
			}
		case *ast.Balance:
			dc.Observe(d.Amount.Number, d.Amount.Currency)
		case *ast.Price:
			dc.Observe(d.Amount.Number, d.Amount.Currency)
		}
	}
	return dc
}

// Observe records the fractional precision of one amount.
func (dc *DisplayContext) Observe(number decimal.Decimal, currency string) {
	digits := int32(0)
	if exp := number.Exponent(); exp < 0 {
		digits = -exp
	}
	byDigits, ok := dc.counts[currency]
	if !ok {
		byDigits = make(map[int32]int)
		dc.counts[currency] = byDigits
	}
	byDigits[digits]++
}

// Digits returns the display precision for a currency: the most commonly
// observed fractional digit count, or the default when the currency was
// never seen.
func (dc *DisplayContext) Digits(currency string) int32 {
	byDigits, ok := dc.counts[currency]
	if !ok {
		return defaultDisplayDigits
	}
	best := int32(0)
	bestCount := 0
	for digits, count := range byDigits {
		if count > bestCount || (count == bestCount && digits > best) {
			best = digits
			bestCount = count
		}
	}
	return best
}

// Quantize rounds an amount to the display precision of its currency using
// banker's rounding.
func (dc *DisplayContext) Quantize(number decimal.Decimal, currency string) decimal.Decimal {
	return number.RoundBank(dc.Digits(currency))
}

// Precisions returns the precision map for every observed currency, ready
// to publish on the options record.
func (dc *DisplayContext) Precisions() map[string]int {
	out := make(map[string]int, len(dc.counts))
	for currency := range dc.counts {
		out[currency] = int(dc.Digits(currency))
	}
	return out
}
