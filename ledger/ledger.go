// Package ledger validates and books a sorted directive stream. It tracks
// account open/close windows, maintains per-account inventories with lot
// based cost tracking, interpolates elided posting amounts, verifies
// balance assertions and expands pad directives into synthetic padding
// transactions.
//
// Processing is two-phase per directive: a booker computes validation
// errors and inventory changes against a read-only view of the state, and
// only a clean result is applied. All errors are collected and returned
// together after the full stream has been processed.
package ledger

import (
	"context"
	"fmt"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/telemetry"
	"github.com/shopspring/decimal"
)

// Ledger is the running state built by processing directives in date
// order: account registry, inventories and pending pads.
type Ledger struct {
	opts     *options.Options
	tc       *toleranceConfig
	accounts map[string]*Account
	pads     map[string]*ast.Pad
	padsUsed map[*ast.Pad]bool
	errors   []error
}

// New creates an empty ledger configured by the given options record.
func New(opts *options.Options) *Ledger {
	return &Ledger{
		opts:     opts,
		tc:       newToleranceConfig(opts),
		accounts: make(map[string]*Account),
		pads:     make(map[string]*ast.Pad),
		padsUsed: make(map[*ast.Pad]bool),
	}
}

// Process validates and books a date-sorted directive stream. It returns
// the resulting stream, which includes any synthetic padding transactions,
// re-sorted stably. Directives that fail validation are kept in the stream
// but never applied to account state. The returned error, if non-nil, is
// always a *ValidationErrors.
func (l *Ledger) Process(ctx context.Context, directives ast.Directives) (ast.Directives, error) {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.processing (%d directives)", len(directives)))
	defer timer.End()

	out := make(ast.Directives, 0, len(directives))
	for _, directive := range directives {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		out = append(out, directive)
		if synthetic := l.processDirective(directive); synthetic != nil {
			out = append(out, synthetic...)
		}
	}

	for account, pad := range l.pads {
		if !l.padsUsed[pad] {
			l.errors = append(l.errors, &BookingError{
				Message: fmt.Sprintf("unused pad directive for account '%s'", account),
				Pos:     pad.Position(),
				Date:    pad.EntryDate,
			})
		}
	}

	ast.SortDirectives(out)

	if len(l.errors) > 0 {
		return out, &ValidationErrors{Errors: l.errors}
	}
	return out, nil
}

// Errors returns every error collected so far.
func (l *Ledger) Errors() []error {
	return l.errors
}

// GetAccount returns the state of one account.
func (l *Ledger) GetAccount(name string) (*Account, bool) {
	account, ok := l.accounts[string(name)]
	return account, ok
}

// Accounts returns the full account registry.
func (l *Ledger) Accounts() map[string]*Account {
	return l.accounts
}

// processDirective applies one directive and returns any synthetic
// directives it expanded into.
func (l *Ledger) processDirective(directive ast.Directive) ast.Directives {
	switch d := directive.(type) {
	case *ast.Open:
		l.processOpen(d)
	case *ast.Close:
		l.processClose(d)
	case *ast.Transaction:
		l.processTransaction(d)
	case *ast.Balance:
		return l.processBalance(d)
	case *ast.Pad:
		l.processPad(d)
	case *ast.Note:
		l.checkAccountRef(d, d.Account)
	case *ast.Document:
		l.checkAccountRef(d, d.Account)
	default:
		// Commodity, Price, Event, Query and Custom directives carry no
		// account state to validate.
	}
	return nil
}

func (l *Ledger) processOpen(open *ast.Open) {
	if open.Booking != "" && !options.ValidBookingMethod(open.Booking) {
		l.errors = append(l.errors, NewInvalidBookingMethodError(open, open.Booking))
		return
	}
	name := string(open.Account)
	if existing, ok := l.accounts[name]; ok {
		l.errors = append(l.errors, &BookingError{
			Message: fmt.Sprintf("account '%s' is already open since %s", name, existing.OpenDate),
			Pos:     open.Position(),
			Date:    open.EntryDate,
		})
		return
	}
	l.accounts[name] = &Account{
		Name:       open.Account,
		OpenDate:   open.EntryDate,
		Currencies: open.Currencies,
		Booking:    open.Booking,
		Metadata:   open.Meta(),
		Inventory:  NewInventory(),
	}
}

func (l *Ledger) processClose(close *ast.Close) {
	account, ok := l.accounts[string(close.Account)]
	if !ok {
		l.errors = append(l.errors, NewUnopenedAccountError(close, close.Account))
		return
	}
	if account.IsClosed() {
		l.errors = append(l.errors, NewClosedAccountError(close, close.Account, account.CloseDate))
		return
	}
	account.CloseDate = close.EntryDate
}

func (l *Ledger) processTransaction(txn *ast.Transaction) {
	b := newBooker(l.accounts, l.opts.BookingMethod, l.tc)
	changes, errs := b.bookTransaction(txn)
	if len(errs) > 0 {
		l.errors = append(l.errors, errs...)
		return
	}
	l.applyChanges(changes)
}

func (l *Ledger) applyChanges(changes []inventoryChange) {
	for _, change := range changes {
		if account, ok := l.accounts[change.Account]; ok {
			account.Inventory.AddLot(change.Currency, change.Units, change.Cost)
		}
	}
}

// processBalance checks an assertion against the running inventory. The
// stream sort places balances ahead of same-day transactions, so the
// observed value is the start-of-day balance. A pending pad absorbs any
// difference by expanding into a padding transaction dated at the pad.
func (l *Ledger) processBalance(balance *ast.Balance) ast.Directives {
	account, ok := l.accounts[string(balance.Account)]
	if !ok || account.OpenDate == nil || account.OpenDate.After(balance.EntryDate.Time) {
		l.errors = append(l.errors, NewUnopenedAccountError(balance, balance.Account))
		return nil
	}

	currency := balance.Amount.Currency
	expected := balance.Amount.Number
	observed := account.Inventory.Units(currency)

	var synthetic ast.Directives
	if pad, pending := l.pads[string(balance.Account)]; pending && !l.padsUsed[pad] {
		diff := expected.Sub(observed)
		if !diff.IsZero() {
			txn := l.expandPad(pad, balance, diff)
			l.applyChanges([]inventoryChange{
				{Account: string(pad.Account), Currency: currency, Units: diff},
				{Account: string(pad.AccountPad), Currency: currency, Units: diff.Neg()},
			})
			synthetic = ast.Directives{txn}
			observed = account.Inventory.Units(currency)
		}
		l.padsUsed[pad] = true
		delete(l.pads, string(balance.Account))
	}

	tolerance := l.tc.balanceTolerance(balance)
	if observed.Sub(expected).Abs().GreaterThan(tolerance) {
		balance.DiffAmount = &ast.Amount{Number: observed.Sub(expected), Currency: currency}
		l.errors = append(l.errors, NewBalanceAssertionError(balance, expected, observed, tolerance))
	}
	return synthetic
}

// expandPad builds the synthetic padding transaction equalizing the target
// account to the asserted balance. The transaction is dated at the pad and
// carries the reserved P flag; line 0 marks it as synthesized.
func (l *Ledger) expandPad(pad *ast.Pad, balance *ast.Balance, diff decimal.Decimal) *ast.Transaction {
	pos := ast.Position{Filename: pad.Pos.Filename, Line: 0}
	currency := balance.Amount.Currency
	return &ast.Transaction{
		Pos:       pos,
		EntryDate: pad.EntryDate,
		Flag:      "P",
		Narration: fmt.Sprintf("(Padding inserted for Balance of %s for difference %s %s)",
			balance.Amount.String(), diff.String(), currency),
		Postings: []*ast.Posting{
			{Pos: pos, Account: pad.Account, Units: &ast.Amount{Number: diff, Currency: currency}},
			{Pos: pos, Account: pad.AccountPad, Units: &ast.Amount{Number: diff.Neg(), Currency: currency}},
		},
	}
}

func (l *Ledger) processPad(pad *ast.Pad) {
	if !l.checkAccountRef(pad, pad.Account) || !l.checkAccountRef(pad, pad.AccountPad) {
		return
	}
	if previous, ok := l.pads[string(pad.Account)]; ok && !l.padsUsed[previous] {
		l.errors = append(l.errors, &BookingError{
			Message: fmt.Sprintf("unused pad directive for account '%s'", pad.Account),
			Pos:     previous.Position(),
			Date:    previous.EntryDate,
		})
	}
	l.pads[string(pad.Account)] = pad
}

// checkAccountRef validates a plain account reference on a dated directive.
func (l *Ledger) checkAccountRef(directive ast.Directive, name ast.Account) bool {
	account, ok := l.accounts[string(name)]
	if !ok || account.OpenDate == nil || account.OpenDate.After(directive.Date().Time) {
		l.errors = append(l.errors, NewUnopenedAccountError(directive, name))
		return false
	}
	if account.CloseDate != nil && directive.Date().After(account.CloseDate.Time) {
		l.errors = append(l.errors, NewClosedAccountError(directive, name, account.CloseDate))
		return false
	}
	return true
}
