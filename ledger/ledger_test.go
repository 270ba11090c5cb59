package ledger

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/parser"
)

func process(t *testing.T, source string) (ast.Directives, *Ledger, []error) {
	t.Helper()
	file, errs := parser.Parse("test.beancount", []byte(source))
	for _, err := range errs {
		t.Fatalf("parse error: %v", err)
	}
	opts, oerrs := options.Extract(file.Options)
	for _, err := range oerrs {
		t.Fatalf("options error: %v", err)
	}
	ast.SortDirectives(file.Directives)
	l := New(opts)
	out, err := l.Process(context.Background(), file.Directives)
	if verr, ok := err.(*ValidationErrors); ok {
		return out, l, verr.Errors
	}
	assert.NoError(t, err)
	return out, l, nil
}

// A balanced transaction books into the account inventories.
func TestProcessBalancedTransaction(t *testing.T) {
	_, l, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Food
2014-01-05 * "Groceries"
  Expenses:Food  45.60 USD
  Assets:Checking  -45.60 USD
`)
	assert.Equal(t, 0, len(errs))

	checking, ok := l.GetAccount("Assets:Checking")
	assert.True(t, ok)
	assert.Equal(t, "-45.60", checking.Inventory.Units("USD").String())
	food, _ := l.GetAccount("Expenses:Food")
	assert.Equal(t, "45.60", food.Inventory.Units("USD").String())
}

// The elided posting absorbs the residual; the interpolated amount is
// marked and the per-currency sums close to zero.
func TestProcessInterpolation(t *testing.T) {
	out, l, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Food
2014-01-05 * "Groceries"
  Expenses:Food  45.60 USD
  Assets:Checking
`)
	assert.Equal(t, 0, len(errs))

	var txn *ast.Transaction
	for _, d := range out {
		if tx, ok := d.(*ast.Transaction); ok {
			txn = tx
		}
	}
	assert.NotZero(t, txn)
	assert.Equal(t, 2, len(txn.Postings))
	filled := txn.Postings[1]
	assert.True(t, filled.Interpolated)
	assert.Equal(t, "-45.60", filled.Units.Number.String())
	assert.Equal(t, "USD", filled.Units.Currency)

	checking, _ := l.GetAccount("Assets:Checking")
	assert.Equal(t, "-45.60", checking.Inventory.Units("USD").String())
}

// An elided posting facing residuals in two currencies expands into one
// interpolated posting per currency.
func TestProcessInterpolationMultiCurrency(t *testing.T) {
	out, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Travel
2014-01-05 * "Trip expenses"
  Expenses:Travel  100.00 USD
  Expenses:Travel  80.00 EUR
  Assets:Checking
`)
	assert.Equal(t, 0, len(errs))

	var txn *ast.Transaction
	for _, d := range out {
		if tx, ok := d.(*ast.Transaction); ok {
			txn = tx
		}
	}
	assert.Equal(t, 4, len(txn.Postings))
	assert.Equal(t, "-80.00", txn.Postings[2].Units.Number.String())
	assert.Equal(t, "EUR", txn.Postings[2].Units.Currency)
	assert.Equal(t, "-100.00", txn.Postings[3].Units.Number.String())
	assert.Equal(t, "USD", txn.Postings[3].Units.Currency)
}

// More than one posting without an amount is exactly one booking error.
func TestProcessTooManyElided(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Food
2014-01-05 * "Broken"
  Expenses:Food  45.60 USD
  Assets:Checking
  Assets:Checking
`)
	assert.Equal(t, 1, len(errs))
	bookErr, ok := errs[0].(*BookingError)
	assert.True(t, ok)
	assert.Contains(t, bookErr.Error(), "too many postings")
}

// An unbalanced transaction reports the leftover residual per currency.
func TestProcessImbalance(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Food
2014-01-05 * "Does not add up"
  Expenses:Food  45.60 USD
  Assets:Checking  -45.00 USD
`)
	assert.Equal(t, 1, len(errs))
	bookErr, ok := errs[0].(*BookingError)
	assert.True(t, ok)
	assert.Contains(t, bookErr.Error(), "does not balance")
	assert.Equal(t, "0.60", bookErr.Residuals["USD"].String())
}

// A tiny residual within the inferred tolerance still balances. Amounts
// with two decimals tolerate up to 0.005 by default.
func TestProcessToleranceAbsorbsResidual(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Food
2014-01-05 * "Rounding dust"
  Expenses:Food  10.004 USD
  Assets:Checking  -10.00 USD
`)
	assert.Equal(t, 0, len(errs))
}

// Referencing an account before its open or after its close is an error.
func TestProcessAccountLifecycle(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-06-01 close Assets:Checking
2014-07-01 * "Too late"
  Assets:Checking  -10.00 USD
  Expenses:Food  10.00 USD
`)
	assert.Equal(t, 2, len(errs))
	_, closedOK := errs[0].(*ClosedAccountError)
	assert.True(t, closedOK)
	unopened, unopenedOK := errs[1].(*UnopenedAccountError)
	assert.True(t, unopenedOK)
	assert.Equal(t, ast.Account("Expenses:Food"), unopened.Account)
}

// The currency constraint on an Open directive rejects foreign postings.
func TestProcessCurrencyConstraint(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking USD
2014-01-01 open Expenses:Food
2014-01-05 * "Wrong currency"
  Expenses:Food  45.60 EUR
  Assets:Checking  -45.60 EUR
`)
	assert.Equal(t, 1, len(errs))
	missing, ok := errs[0].(*MissingCurrencyError)
	assert.True(t, ok)
	assert.Equal(t, "EUR", missing.Currency)
	assert.Equal(t, ast.Account("Assets:Checking"), missing.Account)
}

// An unknown booking method on an Open directive is rejected.
func TestProcessInvalidBookingMethod(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Brokerage "SIDEWAYS"
`)
	assert.Equal(t, 1, len(errs))
	invalid, ok := errs[0].(*InvalidBookingMethodError)
	assert.True(t, ok)
	assert.Equal(t, "SIDEWAYS", invalid.Method)
}

// A balance assertion within tolerance passes; start-of-day semantics mean
// same-day transactions are not yet included.
func TestProcessBalanceAssertion(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Income:Salary
2014-01-05 * "Paycheck"
  Assets:Checking  1000.00 USD
  Income:Salary  -1000.00 USD
2014-01-10 balance Assets:Checking 1000.00 USD
2014-01-10 * "Same day spending"
  Assets:Checking  -50.00 USD
  Income:Salary  50.00 USD
`)
	assert.Equal(t, 0, len(errs))
}

// A violated assertion emits the error and records the signed difference
// on the directive. A 0.01 difference exceeds the inferred 0.005.
func TestProcessBalanceAssertionFailed(t *testing.T) {
	out, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Income:Salary
2014-01-05 * "Paycheck"
  Assets:Checking  1000.00 USD
  Income:Salary  -1000.00 USD
2014-01-10 balance Assets:Checking 1000.01 USD
`)
	assert.Equal(t, 1, len(errs))
	failed, ok := errs[0].(*BalanceAssertionError)
	assert.True(t, ok)
	assert.Equal(t, "-0.01", failed.Diff.String())

	var balance *ast.Balance
	for _, d := range out {
		if bal, ok := d.(*ast.Balance); ok {
			balance = bal
		}
	}
	assert.NotZero(t, balance.DiffAmount)
	assert.Equal(t, "-0.01", balance.DiffAmount.Number.String())
}

// An explicit ~ tolerance overrides the inferred one.
func TestProcessBalanceExplicitTolerance(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Income:Salary
2014-01-05 * "Paycheck"
  Assets:Checking  1000.00 USD
  Income:Salary  -1000.00 USD
2014-01-10 balance Assets:Checking 1000.01 ~ 0.05 USD
`)
	assert.Equal(t, 0, len(errs))
}

// A pad expands into a synthetic P-flagged transaction dated at the pad
// that equalizes the account to the next assertion.
func TestProcessPadExpansion(t *testing.T) {
	out, l, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Equity:Opening-Balances
2014-01-02 pad Assets:Checking Equity:Opening-Balances
2014-01-10 balance Assets:Checking 750.00 USD
`)
	assert.Equal(t, 0, len(errs))

	var padTxn *ast.Transaction
	for _, d := range out {
		if txn, ok := d.(*ast.Transaction); ok {
			padTxn = txn
		}
	}
	assert.NotZero(t, padTxn)
	assert.Equal(t, "P", padTxn.Flag)
	assert.Equal(t, "2014-01-02", padTxn.EntryDate.String())
	assert.Equal(t, 0, padTxn.Position().Line)
	assert.Equal(t, "750.00", padTxn.Postings[0].Units.Number.String())

	checking, _ := l.GetAccount("Assets:Checking")
	assert.Equal(t, "750.00", checking.Inventory.Units("USD").String())
	equity, _ := l.GetAccount("Equity:Opening-Balances")
	assert.Equal(t, "-750.00", equity.Inventory.Units("USD").String())
}

// The synthetic padding transaction sorts at the pad's date, before later
// directives.
func TestProcessPadSortsAtPadDate(t *testing.T) {
	out, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Equity:Opening-Balances
2014-01-01 open Expenses:Food
2014-01-02 pad Assets:Checking Equity:Opening-Balances
2014-01-05 * "Groceries"
  Expenses:Food  10.00 USD
  Assets:Checking  -10.00 USD
2014-01-10 balance Assets:Checking 740.00 USD
`)
	assert.Equal(t, 0, len(errs))

	var dates []string
	for _, d := range out {
		if txn, ok := d.(*ast.Transaction); ok {
			dates = append(dates, txn.EntryDate.String())
		}
	}
	assert.Equal(t, []string{"2014-01-02", "2014-01-05"}, dates)
}

// A pad never followed by a balance assertion is reported.
func TestProcessUnusedPad(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-01-01 open Equity:Opening-Balances
2014-01-02 pad Assets:Checking Equity:Opening-Balances
`)
	assert.Equal(t, 1, len(errs))
	assert.Contains(t, errs[0].Error(), "unused pad")
}

// Notes and documents require their account to be open.
func TestProcessAccountRefs(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-02-01 note Assets:Checking "All good"
2014-02-01 note Assets:Savings "Never opened"
`)
	assert.Equal(t, 1, len(errs))
	unopened, ok := errs[0].(*UnopenedAccountError)
	assert.True(t, ok)
	assert.Equal(t, ast.Account("Assets:Savings"), unopened.Account)
}

// Opening the same account twice is an error.
func TestProcessDuplicateOpen(t *testing.T) {
	_, _, errs := process(t, `
2014-01-01 open Assets:Checking
2014-02-01 open Assets:Checking
`)
	assert.Equal(t, 1, len(errs))
	assert.Contains(t, errs[0].Error(), "already open")
}

// Cancelling the context stops processing.
func TestProcessContextCancelled(t *testing.T) {
	file, errs := parser.Parse("test.beancount", []byte("2014-01-01 open Assets:Checking\n"))
	assert.Equal(t, 0, len(errs))
	opts, _ := options.Extract(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(opts).Process(ctx, file.Directives)
	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}
