package ledger

import (
	"sort"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/shopspring/decimal"
)

// inventoryChange is one signed mutation of an account inventory. Changes
// are computed during validation and applied only when the whole
// transaction books cleanly.
type inventoryChange struct {
	Account  string
	Currency string
	Units    decimal.Decimal
	Cost     *ast.Cost
}

// booker resolves cost specs against account inventories, interpolates the
// elided posting, and checks that a transaction balances within tolerance.
// It reads account state but never mutates it; the ledger applies the
// returned changes.
type booker struct {
	accounts       map[string]*Account
	defaultBooking string
	tc             *toleranceConfig
}

func newBooker(accounts map[string]*Account, defaultBooking string, tc *toleranceConfig) *booker {
	return &booker{accounts: accounts, defaultBooking: defaultBooking, tc: tc}
}

// checkAccount verifies the account is open on the directive's date.
func (b *booker) checkAccount(directive ast.Directive, name ast.Account) (*Account, error) {
	account, ok := b.accounts[string(name)]
	if !ok {
		return nil, NewUnopenedAccountError(directive, name)
	}
	date := directive.Date()
	if account.OpenDate == nil || account.OpenDate.After(date.Time) {
		return nil, NewUnopenedAccountError(directive, name)
	}
	if account.CloseDate != nil && date.After(account.CloseDate.Time) {
		return nil, NewClosedAccountError(directive, name, account.CloseDate)
	}
	return account, nil
}

// bookTransaction validates one transaction against the current account
// state. It fills in resolved costs and the interpolated posting on the
// transaction itself and returns the inventory changes to apply. On any
// error no changes are returned and the transaction must not be applied.
func (b *booker) bookTransaction(txn *ast.Transaction) ([]inventoryChange, []error) {
	var errs []error

	// At most one posting may leave its amount to interpolation.
	elided := -1
	for i, p := range txn.Postings {
		if p.Units != nil {
			continue
		}
		if elided >= 0 {
			return nil, []error{NewBookingError(txn, "too many postings without amounts")}
		}
		elided = i
	}

	inferred := b.tc.inferTolerances(txn.Postings)

	var changes []inventoryChange
	residual := make(map[string]decimal.Decimal)

	// An augmentation with an empty cost spec gets its cost inferred from
	// the residual once every other posting has been booked.
	deferredCost := -1

	for i, p := range txn.Postings {
		if p.Units == nil {
			continue
		}
		account, err := b.checkAccount(txn, p.Account)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !account.AllowsCurrency(p.Units.Currency) {
			errs = append(errs, NewMissingCurrencyError(txn, p.Account, p.Units.Currency))
			continue
		}

		if p.CostSpec == nil {
			changes = append(changes, inventoryChange{
				Account:  string(p.Account),
				Currency: p.Units.Currency,
				Units:    p.Units.Number,
			})
			sumWeights(residual, []weight{unitWeight(p)})
			continue
		}

		if p.CostSpec.IsEmpty() && p.Units.Number.IsPositive() {
			if deferredCost >= 0 {
				errs = append(errs, NewBookingError(txn, "more than one posting with unresolved cost"))
				continue
			}
			deferredCost = i
			continue
		}

		if p.Units.Number.IsNegative() {
			postingChanges, weights, err := b.bookReduction(txn, p, account)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			changes = append(changes, postingChanges...)
			sumWeights(residual, weights)
			continue
		}

		// Augmentation at an explicit cost creates a new lot.
		cost, err := b.resolveCost(txn, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Cost = cost
		changes = append(changes, inventoryChange{
			Account:  string(p.Account),
			Currency: p.Units.Currency,
			Units:    p.Units.Number,
			Cost:     cost,
		})
		sumWeights(residual, []weight{{Number: p.Units.Number.Mul(cost.Number), Currency: cost.Currency}})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if deferredCost >= 0 {
		p := txn.Postings[deferredCost]
		cost, err := b.inferCost(txn, p, residual)
		if err != nil {
			return nil, []error{err}
		}
		p.Cost = cost
		changes = append(changes, inventoryChange{
			Account:  string(p.Account),
			Currency: p.Units.Currency,
			Units:    p.Units.Number,
			Cost:     cost,
		})
		sumWeights(residual, []weight{{Number: p.Units.Number.Mul(cost.Number), Currency: cost.Currency}})
	}

	if elided >= 0 {
		interpolated, interpolatedChanges, err := b.interpolate(txn, txn.Postings[elided], inferred, residual)
		if err != nil {
			return nil, []error{err}
		}
		postings := make([]*ast.Posting, 0, len(txn.Postings)-1+len(interpolated))
		postings = append(postings, txn.Postings[:elided]...)
		postings = append(postings, interpolated...)
		postings = append(postings, txn.Postings[elided+1:]...)
		txn.Postings = postings
		changes = append(changes, interpolatedChanges...)
		for _, p := range interpolated {
			sumWeights(residual, []weight{unitWeight(p)})
		}
	}

	// The per-currency residual must vanish within tolerance.
	leftover := make(map[string]decimal.Decimal)
	for currency, number := range residual {
		if number.Abs().GreaterThan(b.tc.tolerance(inferred, currency)) {
			leftover[currency] = number
		}
	}
	if len(leftover) > 0 {
		return nil, []error{NewImbalanceError(txn, leftover)}
	}

	return changes, nil
}

// interpolate completes the elided posting: one interpolated posting per
// currency whose residual exceeds tolerance, each negating that residual.
// A zero residual drops the posting entirely.
func (b *booker) interpolate(txn *ast.Transaction, template *ast.Posting, inferred, residual map[string]decimal.Decimal) ([]*ast.Posting, []inventoryChange, error) {
	account, err := b.checkAccount(txn, template.Account)
	if err != nil {
		return nil, nil, err
	}

	currencies := make([]string, 0, len(residual))
	for currency, number := range residual {
		if number.Abs().GreaterThan(b.tc.tolerance(inferred, currency)) {
			currencies = append(currencies, currency)
		}
	}
	sort.Strings(currencies)

	var postings []*ast.Posting
	var changes []inventoryChange
	for _, currency := range currencies {
		if !account.AllowsCurrency(currency) {
			return nil, nil, NewMissingCurrencyError(txn, template.Account, currency)
		}
		clone := *template
		clone.Units = &ast.Amount{Number: residual[currency].Neg(), Currency: currency}
		clone.Interpolated = true
		postings = append(postings, &clone)
		changes = append(changes, inventoryChange{
			Account:  string(template.Account),
			Currency: currency,
			Units:    clone.Units.Number,
		})
	}
	return postings, changes, nil
}

// resolveCost turns a complete cost spec into a per-unit cost. The total
// form divides by the posting quantity; a missing date defaults to the
// transaction date.
func (b *booker) resolveCost(txn *ast.Transaction, p *ast.Posting) (*ast.Cost, error) {
	spec := p.CostSpec
	if spec.Currency == "" {
		return nil, NewBookingError(txn, "cost specification is missing a currency")
	}
	cost := &ast.Cost{Currency: spec.Currency, Date: spec.Date, Label: spec.Label}
	if cost.Date == nil {
		cost.Date = txn.EntryDate
	}
	switch {
	case spec.NumberPer != nil:
		cost.Number = *spec.NumberPer
	case spec.NumberTotal != nil:
		if p.Units.Number.IsZero() {
			return nil, NewBookingError(txn, "total cost on a posting with zero units")
		}
		cost.Number = spec.NumberTotal.Div(p.Units.Number.Abs())
	default:
		return nil, NewBookingError(txn, "cost specification is missing a number")
	}
	return cost, nil
}

// inferCost resolves an empty cost spec {} on an augmentation from the
// transaction residual: the lot absorbs the single unbalanced currency.
func (b *booker) inferCost(txn *ast.Transaction, p *ast.Posting, residual map[string]decimal.Decimal) (*ast.Cost, error) {
	var candidates []string
	for currency, number := range residual {
		if currency != p.Units.Currency && !number.IsZero() {
			candidates = append(candidates, currency)
		}
	}
	if len(candidates) != 1 {
		return nil, NewBookingError(txn, "unable to infer cost for posting with empty cost specification")
	}
	currency := candidates[0]
	return &ast.Cost{
		Number:   residual[currency].Neg().Div(p.Units.Number),
		Currency: currency,
		Date:     txn.EntryDate,
	}, nil
}

// bookReduction selects lots to consume for a negative posting carrying a
// cost spec, according to the account's booking method.
func (b *booker) bookReduction(txn *ast.Transaction, p *ast.Posting, account *Account) ([]inventoryChange, []weight, error) {
	method := account.Booking
	if method == "" {
		method = b.defaultBooking
	}

	need := p.Units.Number.Abs()
	currency := p.Units.Currency

	if method == options.BookingNone {
		// NONE books the reduction without matching existing lots, which
		// permits mixed-sign inventories.
		cost, err := b.reductionCost(txn, p)
		if err != nil {
			return nil, nil, err
		}
		change := inventoryChange{Account: string(p.Account), Currency: currency, Units: p.Units.Number, Cost: cost}
		if cost != nil {
			return []inventoryChange{change}, []weight{{Number: need.Neg().Mul(cost.Number), Currency: cost.Currency}}, nil
		}
		return []inventoryChange{change}, []weight{unitWeight(p)}, nil
	}

	candidates := matchLots(account.Inventory.Lots(currency), p.CostSpec)
	if len(candidates) == 0 {
		return nil, nil, NewBookingError(txn, "no lot matches the cost specification for "+string(p.Account))
	}

	switch method {
	case options.BookingStrict:
		if len(candidates) > 1 {
			return nil, nil, NewBookingError(txn, "ambiguous lot selection for "+string(p.Account))
		}
		lot := candidates[0]
		if lot.Units.LessThan(need) {
			return nil, nil, NewBookingError(txn, "insufficient units in lot for "+string(p.Account))
		}
		p.Cost = lot.Cost
		return []inventoryChange{{Account: string(p.Account), Currency: currency, Units: need.Neg(), Cost: lot.Cost}},
			[]weight{lotWeight(need.Neg(), lot)}, nil

	case options.BookingFIFO, options.BookingLIFO, options.BookingHIFO:
		sortLots(candidates, method)
		return consumeLots(txn, p, candidates, need)

	case options.BookingAverage:
		return averageLots(txn, p, candidates, need)
	}

	return nil, nil, NewInvalidBookingMethodError(txn, method)
}

// reductionCost resolves the cost spec of a NONE-booked reduction, when the
// spec is explicit enough to name a lot.
func (b *booker) reductionCost(txn *ast.Transaction, p *ast.Posting) (*ast.Cost, error) {
	if p.CostSpec.IsEmpty() {
		return nil, nil
	}
	return b.resolveCost(txn, p)
}

// matchLots filters costed lots by the constraints present in the spec. An
// empty spec matches every costed lot.
func matchLots(lots []*Lot, spec *ast.CostSpec) []*Lot {
	var matched []*Lot
	for _, lot := range lots {
		if lot.Cost == nil {
			continue
		}
		if spec.NumberPer != nil && !lot.Cost.Number.Equal(*spec.NumberPer) {
			continue
		}
		if spec.Currency != "" && lot.Cost.Currency != spec.Currency {
			continue
		}
		if spec.Date != nil && (lot.Cost.Date == nil || !lot.Cost.Date.Equal(spec.Date.Time)) {
			continue
		}
		if spec.Label != "" && lot.Cost.Label != spec.Label {
			continue
		}
		matched = append(matched, lot)
	}
	return matched
}

// sortLots orders candidate lots for consumption: FIFO oldest first, LIFO
// newest first, HIFO highest cost first. Lots without dates sort first for
// FIFO and last for LIFO.
func sortLots(lots []*Lot, method string) {
	switch method {
	case options.BookingFIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			di, dj := lots[i].Cost.Date, lots[j].Cost.Date
			if di == nil || dj == nil {
				return dj != nil
			}
			return di.Before(dj.Time)
		})
	case options.BookingLIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			di, dj := lots[i].Cost.Date, lots[j].Cost.Date
			if di == nil || dj == nil {
				return di != nil
			}
			return di.After(dj.Time)
		})
	case options.BookingHIFO:
		sort.SliceStable(lots, func(i, j int) bool {
			return lots[i].Cost.Number.GreaterThan(lots[j].Cost.Number)
		})
	}
}

// consumeLots walks ordered candidates, reducing each until the needed
// quantity is covered.
func consumeLots(txn *ast.Transaction, p *ast.Posting, lots []*Lot, need decimal.Decimal) ([]inventoryChange, []weight, error) {
	var changes []inventoryChange
	var weights []weight
	remaining := need
	for _, lot := range lots {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, lot.Units)
		changes = append(changes, inventoryChange{
			Account:  string(p.Account),
			Currency: p.Units.Currency,
			Units:    take.Neg(),
			Cost:     lot.Cost,
		})
		weights = append(weights, lotWeight(take.Neg(), lot))
		remaining = remaining.Sub(take)
	}
	if !remaining.IsZero() {
		return nil, nil, NewBookingError(txn, "insufficient units to reduce "+string(p.Account))
	}
	if len(changes) == 1 {
		p.Cost = changes[0].Cost
	}
	return changes, weights, nil
}

// averageLots merges every candidate lot into a single average-cost lot and
// consumes the needed quantity from it.
func averageLots(txn *ast.Transaction, p *ast.Posting, lots []*Lot, need decimal.Decimal) ([]inventoryChange, []weight, error) {
	totalUnits := decimal.Zero
	totalCost := decimal.Zero
	currency := lots[0].Cost.Currency
	for _, lot := range lots {
		totalUnits = totalUnits.Add(lot.Units)
		totalCost = totalCost.Add(lot.Units.Mul(lot.Cost.Number))
	}
	if totalUnits.LessThan(need) {
		return nil, nil, NewBookingError(txn, "insufficient units to reduce "+string(p.Account))
	}

	avg := &ast.Cost{Number: totalCost.Div(totalUnits), Currency: currency}

	var changes []inventoryChange
	for _, lot := range lots {
		changes = append(changes, inventoryChange{
			Account:  string(p.Account),
			Currency: p.Units.Currency,
			Units:    lot.Units.Neg(),
			Cost:     lot.Cost,
		})
	}
	remainder := totalUnits.Sub(need)
	if !remainder.IsZero() {
		changes = append(changes, inventoryChange{
			Account:  string(p.Account),
			Currency: p.Units.Currency,
			Units:    remainder,
			Cost:     avg,
		})
	}
	p.Cost = avg
	return changes, []weight{{Number: need.Neg().Mul(avg.Number), Currency: currency}}, nil
}

// lotWeight is the balance contribution of consuming units from a lot.
func lotWeight(units decimal.Decimal, lot *Lot) weight {
	if lot.Cost == nil {
		return weight{Number: units, Currency: lot.Currency}
	}
	return weight{Number: units.Mul(lot.Cost.Number), Currency: lot.Cost.Currency}
}
