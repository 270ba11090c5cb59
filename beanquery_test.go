package beanquery

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/robinvdvleuten/beanquery/query"
	"github.com/robinvdvleuten/beanquery/wire"
	"github.com/shopspring/decimal"
)

const corpus = `2014-01-01 open Assets:Checking
2014-01-01 open Income:Salary
2014-01-01 open Expenses:Food

2014-01-05 * "Employer" "Salary"
  Assets:Checking                            2000.00 USD
  Income:Salary

2014-02-10 * "Lunch"
  Expenses:Food                                20.00 USD
  Assets:Checking

2014-03-01 balance Assets:Checking           1980.00 USD
`

var hexHash = regexp.MustCompile(`^[0-9a-f]{16}$`)

// A clean document loads without errors, booked, sorted and hashed.
func TestLoad(t *testing.T) {
	res := New().Load(context.Background(), "main.beancount", []byte(corpus))
	assert.Equal(t, 0, len(res.Errors))
	assert.True(t, res.Valid())
	assert.Equal(t, 6, len(res.Directives))

	for i, d := range res.Directives {
		assert.True(t, hexHash.MatchString(d.Hash()))
		if i > 0 {
			assert.True(t, ast.Compare(res.Directives[i-1], d) <= 0)
		}
	}

	// The elided legs were interpolated during booking.
	salary := res.Directives[3].(*ast.Transaction)
	assert.Equal(t, "-2000.00", salary.Postings[1].Units.Number.String())
	assert.True(t, salary.Postings[1].Interpolated)

	assert.Equal(t, []string{"USD"}, res.Options.Commodities)
	assert.Equal(t, 2, res.Options.DisplayPrecision["USD"])
	assert.NotEqual(t, "", res.Options.InputHash)
}

// Loading identical bytes twice yields identical hashes in identical order.
func TestLoadDeterministic(t *testing.T) {
	core := New()
	first := core.Load(context.Background(), "main.beancount", []byte(corpus))
	second := core.Load(context.Background(), "main.beancount", []byte(corpus))

	assert.Equal(t, len(first.Directives), len(second.Directives))
	for i := range first.Directives {
		assert.Equal(t, first.Directives[i].Hash(), second.Directives[i].Hash())
	}
	assert.Equal(t, first.Options.InputHash, second.Options.InputHash)
}

// A failing balance assertion makes the document invalid but the stream
// still comes back.
func TestValidate(t *testing.T) {
	valid, errs := New().Validate(context.Background(), "main.beancount", []byte(corpus))
	assert.True(t, valid)
	assert.Equal(t, 0, len(errs))

	bad := corpus + "\n2014-04-01 balance Assets:Checking 9999.00 USD\n"
	valid, errs = New().Validate(context.Background(), "main.beancount", []byte(bad))
	assert.False(t, valid)
	assert.Equal(t, 1, len(errs))
}

// Query evaluates BQL over the booked stream.
func TestQuery(t *testing.T) {
	result, errs := New().Query(context.Background(), "main.beancount", []byte(corpus),
		`SELECT account, sum(position) GROUP BY account ORDER BY account`)
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []query.Column{
		{Name: "account", Type: query.TypeStr},
		{Name: "sum(position)", Type: query.TypeInventory},
	}, result.Columns)
	assert.Equal(t, 3, len(result.Rows))
	assert.Equal(t, "Assets:Checking", result.Rows[0][0])
}

// A bad query fails with a typed error alongside any load errors.
func TestQueryError(t *testing.T) {
	result, errs := New().Query(context.Background(), "main.beancount", []byte(corpus),
		`SELECT nonexistent`)
	assert.Zero(t, result)
	assert.Equal(t, 1, len(errs))
	var cerr *query.CompilationError
	assert.True(t, errors.As(errs[0], &cerr))
}

// Format canonicalizes whitespace and is stable on its own output.
func TestFormat(t *testing.T) {
	core := New()
	once, errs := core.Format("main.beancount", []byte(corpus))
	assert.Equal(t, 0, len(errs))
	twice, errs := core.Format("main.beancount", []byte(once))
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, once, twice)
}

// FormatEntry renders a wire directive as source text.
func TestFormatEntry(t *testing.T) {
	out, err := FormatEntry(&wire.Directive{
		Kind:       "open",
		Date:       "2014-01-01",
		Account:    "Assets:Checking",
		Currencies: []string{"USD"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "2014-01-01 open Assets:Checking USD\n", out)
}

// CreateEntry completes a wire directive with its semantic hash.
func TestCreateEntry(t *testing.T) {
	entry, err := CreateEntry(&wire.Directive{
		Kind:    "open",
		Date:    "2014-01-01",
		Account: "Assets:Checking",
	})
	assert.NoError(t, err)
	assert.True(t, hexHash.MatchString(entry.Hash))

	_, err = CreateEntry(&wire.Directive{Kind: "teleport", Date: "2014-01-01"})
	assert.Error(t, err)
}

// AccountType resolves the configured root names.
func TestAccountType(t *testing.T) {
	typ, err := AccountType("Assets:Checking", nil)
	assert.NoError(t, err)
	assert.Equal(t, "Assets", typ)

	typ, err = AccountType("Bogus:Checking", nil)
	assert.NoError(t, err)
	assert.Equal(t, "", typ)
}

// AllTypes enumerates kinds and booking methods.
func TestAllTypes(t *testing.T) {
	types := AllTypes(nil)
	assert.Equal(t, 12, len(types.AllDirectives))
	assert.Equal(t, "open", types.AllDirectives[0])
	assert.Equal(t, 6, len(types.BookingMethods))
	assert.Equal(t, []string{"Assets", "Liabilities", "Equity", "Income", "Expenses"}, types.AccountRoots)
}

// inventoryAt books a stream up to (excluding) a date and returns one
// account's units in one currency.
func inventoryAt(t *testing.T, directives ast.Directives, account, currency string, before *ast.Date) decimal.Decimal {
	t.Helper()
	total := decimal.Zero
	for _, d := range directives {
		txn, ok := d.(*ast.Transaction)
		if !ok || !txn.EntryDate.Before(before.Time) {
			continue
		}
		for _, p := range txn.Postings {
			if string(p.Account) == account && p.Units != nil && p.Units.Currency == currency {
				total = total.Add(p.Units.Number)
			}
		}
	}
	return total
}

// Clamp replaces the history before begin with summary transactions that
// reproduce the running inventories, and truncates at end.
func TestClamp(t *testing.T) {
	core := New()
	begin, end := ast.MustDate("2014-02-01"), ast.MustDate("2014-03-01")

	entries, errs := core.Clamp(context.Background(), "main.beancount", []byte(corpus), begin, end)
	assert.Equal(t, 0, len(errs))

	for _, d := range entries {
		assert.False(t, d.Date().Before(begin.Time))
		assert.True(t, d.Date().Before(end.Time))
	}

	// The summary at begin carries the same running balance as the full
	// stream just before begin.
	full := core.Load(context.Background(), "main.beancount", []byte(corpus))
	want := inventoryAt(t, full.Directives, "Assets:Checking", "USD", begin)
	// Clamped stream holds only summaries before the next boundary, so the
	// running balance at begin is exactly the summary posting.
	got := inventoryAt(t, entries, "Assets:Checking", "USD", ast.MustDate("2014-02-02"))
	assert.True(t, want.Equal(got))

	summary := entries[0].(*ast.Transaction)
	assert.Equal(t, "S", summary.Flag)
	assert.Contains(t, summary.Narration, "Summarization")
}

// FilterEntries keeps Opens before end, Closes from begin, drops
// commodities, and windows everything else.
func TestFilterEntries(t *testing.T) {
	source := corpus + `2014-01-02 commodity USD
2014-04-01 close Expenses:Food
`
	res := New().Load(context.Background(), "main.beancount", []byte(source))

	begin, end := ast.MustDate("2014-02-01"), ast.MustDate("2014-03-01")
	filtered := FilterEntries(res.Directives, begin, end)

	var opens, closes, commodities, others int
	for _, d := range filtered {
		switch d.(type) {
		case *ast.Open:
			opens++
			assert.True(t, d.Date().Before(end.Time))
		case *ast.Close:
			closes++
			assert.False(t, d.Date().Before(begin.Time))
		case *ast.Commodity:
			commodities++
		default:
			others++
			assert.False(t, d.Date().Before(begin.Time))
			assert.True(t, d.Date().Before(end.Time))
		}
	}
	assert.Equal(t, 3, opens)
	assert.Equal(t, 1, closes)
	assert.Equal(t, 0, commodities)
	// Only the lunch transaction falls inside the window.
	assert.Equal(t, 1, others)
}

// The pipeline surfaces ledger validation errors with their kinds.
func TestLoadValidationErrorKinds(t *testing.T) {
	source := `2014-01-05 * "Salary"
  Assets:Checking 2000.00 USD
  Income:Salary
`
	res := New().Load(context.Background(), "main.beancount", []byte(source))
	assert.False(t, res.Valid())

	found := false
	for _, err := range res.Errors {
		var uerr *ledger.UnopenedAccountError
		if errors.As(err, &uerr) {
			found = true
			assert.Equal(t, "UnopenedAccount", uerr.Kind())
		}
	}
	assert.True(t, found)
}
