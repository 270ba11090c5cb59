package formatter

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/beanquery/parser"
)

func format(t *testing.T, source string, opts ...Option) string {
	t.Helper()
	file, errs := parser.Parse("test.beancount", []byte(source))
	assert.Equal(t, 0, len(errs))

	var buf strings.Builder
	assert.NoError(t, New(opts...).Format(file, []byte(source), &buf))
	return buf.String()
}

// Formatting already formatted content changes nothing.
func TestFormatIdempotent(t *testing.T) {
	source := `option "operating_currency" "USD"

2014-01-01 open Assets:Checking USD
2014-01-01 open Income:Salary

2014-01-05 * "Employer" "Salary"
  Assets:Checking                            2000.00 USD
  Income:Salary                             -2000.00 USD

2014-02-01 balance Assets:Checking          2000.00 USD
`
	once := format(t, source)
	twice := format(t, once)
	assert.Equal(t, once, twice)
}

// Currencies line up in one column across postings, balances and prices.
func TestFormatAlignsCurrencies(t *testing.T) {
	source := `2014-01-01 open Assets:Checking
2014-01-01 open Expenses:Food
2014-01-05 * "Lunch"
  Expenses:Food 7.5 USD
  Assets:Checking -7.5 USD
2014-02-01 balance Assets:Checking -7.5 USD
2014-02-01 price USD 1.30 CAD
`
	out := format(t, source)

	columns := map[int]bool{}
	aligned := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasSuffix(line, " USD") || strings.HasSuffix(line, " CAD") {
			columns[len(line)-3] = true
			aligned++
		}
	}
	assert.Equal(t, 4, aligned)
	assert.Equal(t, 1, len(columns))
}

// A fixed currency column overrides the derived one.
func TestFormatFixedCurrencyColumn(t *testing.T) {
	source := "2014-01-05 * \"Lunch\"\n  Expenses:Food 7.50 USD\n"
	out := format(t, source, WithCurrencyColumn(40))
	assert.Contains(t, out, strings.Repeat(" ", 40-len("  Expenses:Food")-len("7.50"))+"7.50 USD")
}

// Every directive kind renders in canonical source form.
func TestFormatDirectiveKinds(t *testing.T) {
	source := `2014-01-01 open Assets:Checking USD,EUR "FIFO"
2014-01-01 commodity USD
2014-01-05 pad Assets:Checking Equity:Opening-Balances
2014-02-01 balance Assets:Checking 100.00 ~ 0.05 USD
2014-03-01 note Assets:Checking "Called the bank"
2014-03-02 document Assets:Checking "statement.pdf" #paperwork
2014-03-03 event "location" "Amsterdam"
2014-03-04 query "food" "SELECT account"
2014-03-05 custom "budget" "weekly" 45.30 USD TRUE
2014-12-31 close Assets:Checking
`
	out := format(t, source)
	assert.Contains(t, out, `2014-01-01 open Assets:Checking USD, EUR "FIFO"`)
	assert.Contains(t, out, "2014-01-01 commodity USD")
	assert.Contains(t, out, "2014-01-05 pad Assets:Checking Equity:Opening-Balances")
	assert.Contains(t, out, "100.00 ~ 0.05 USD")
	assert.Contains(t, out, `2014-03-01 note Assets:Checking "Called the bank"`)
	assert.Contains(t, out, `"statement.pdf" #paperwork`)
	assert.Contains(t, out, `2014-03-03 event "location" "Amsterdam"`)
	assert.Contains(t, out, `2014-03-04 query "food" "SELECT account"`)
	assert.Contains(t, out, `2014-03-05 custom "budget" "weekly" 45.30 USD TRUE`)
	assert.Contains(t, out, "2014-12-31 close Assets:Checking")
}

// Costs, total costs and prices keep their source notation.
func TestFormatCosts(t *testing.T) {
	source := `2014-06-01 * "Buy"
  Assets:Invest 10 HOOL {518.73 USD, 2014-06-01, "lot-a"}
  Assets:Cash -5187.30 USD
2014-06-02 * "Buy total"
  Assets:Invest 10 HOOL {{5187.30 USD}}
  Assets:Cash -5187.30 USD
2014-06-03 * "Sell"
  Assets:Invest -5 HOOL {518.73 USD} @ 600.00 USD
  Assets:Cash 3000.00 USD
`
	out := format(t, source)
	assert.Contains(t, out, `{518.73 USD, 2014-06-01, "lot-a"}`)
	assert.Contains(t, out, "{{5187.30 USD}}")
	assert.Contains(t, out, "{518.73 USD} @ 600.00 USD")
}

// Metadata values keep their types: strings quoted, everything else bare.
func TestFormatMetadata(t *testing.T) {
	source := `2014-01-05 * "Lunch"
  invoice: "INV-7"
  shared: TRUE
  due: 2014-02-01
  rate: 7.50 USD
  Expenses:Food 7.50 USD
    category: "restaurant"
  Assets:Checking -7.50 USD
`
	out := format(t, source)
	assert.Contains(t, out, `  invoice: "INV-7"`)
	assert.Contains(t, out, "  shared: TRUE")
	assert.Contains(t, out, "  due: 2014-02-01")
	assert.Contains(t, out, "  rate: 7.50 USD")
	assert.Contains(t, out, `  category: "restaurant"`)
}

// Comments and blank lines survive in place.
func TestFormatPreservesComments(t *testing.T) {
	source := `; Ledger header.
2014-01-01 open Assets:Checking

; Opening day.
2014-01-05 * "Salary"
  Assets:Checking 2000.00 USD
  Income:Salary -2000.00 USD
`
	out := format(t, source)
	assert.Contains(t, out, "; Ledger header.")
	assert.Contains(t, out, "; Opening day.")

	lines := strings.Split(out, "\n")
	assert.Equal(t, "; Ledger header.", lines[0])
	assert.Equal(t, "", lines[2])
}

// Comment preservation can be switched off.
func TestFormatStripsComments(t *testing.T) {
	source := "; gone\n2014-01-01 open Assets:Checking\n"
	out := format(t, source, WithPreserveComments(false), WithPreserveBlanks(false))
	assert.Equal(t, "2014-01-01 open Assets:Checking\n", out)
}

// Options, includes and plugins come back in source order.
func TestFormatHeaderForms(t *testing.T) {
	source := `option "title" "Ledger"
include "prices.beancount"
plugin "auto_accounts"
plugin "check" "USD"
2014-01-01 open Assets:Checking
`
	out := format(t, source)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, []string{
		`option "title" "Ledger"`,
		`include "prices.beancount"`,
		`plugin "auto_accounts"`,
		`plugin "check" "USD"`,
		"2014-01-01 open Assets:Checking",
	}, lines)
}

// Strings with embedded quotes and newlines are escaped on output.
func TestFormatEscapesStrings(t *testing.T) {
	source := "2014-03-01 note Assets:Checking \"say \\\"hi\\\"\"\n"
	out := format(t, source)
	assert.Contains(t, out, `"say \"hi\""`)

	assert.Equal(t, `a\nb`, escapeString("a\nb"))
	assert.Equal(t, "plain", escapeString("plain"))
}

// FormatDirective renders one directive without needing a file.
func TestFormatSingleDirective(t *testing.T) {
	file, errs := parser.Parse("test.beancount", []byte("2014-01-01 open Assets:Checking USD\n"))
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 1, len(file.Directives))

	out := New().FormatDirective(file.Directives[0])
	assert.Equal(t, "2014-01-01 open Assets:Checking USD\n", out)
}

// Posting flags sit between the indent and the account.
func TestFormatPostingFlag(t *testing.T) {
	source := `2014-01-05 * "Lunch"
  ! Expenses:Food 7.50 USD
  Assets:Checking -7.50 USD
`
	out := format(t, source)
	assert.Contains(t, out, "  ! Expenses:Food")
}
