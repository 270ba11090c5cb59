package parser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/beanquery/ast"
)

func parseTxn(t *testing.T, source string) *ast.Transaction {
	t.Helper()
	file := parseValid(t, source)
	assert.Equal(t, 1, len(file.Directives))
	return file.Directives[0].(*ast.Transaction)
}

// One string is the narration, two strings are payee then narration.
func TestTransactionPayeeNarration(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Cafe Mogador" "Lamb tagine with wine"
  Liabilities:CreditCard  -37.45 USD
  Expenses:Food:Restaurant
`)
	assert.Equal(t, "Cafe Mogador", txn.Payee)
	assert.Equal(t, "Lamb tagine with wine", txn.Narration)
	assert.Equal(t, "*", txn.Flag)

	txn = parseTxn(t, `
2014-05-05 ! "Pending transfer"
  Assets:Checking  -100.00 USD
  Assets:Savings  100.00 USD
`)
	assert.Equal(t, "", txn.Payee)
	assert.Equal(t, "Pending transfer", txn.Narration)
	assert.Equal(t, "!", txn.Flag)
}

// The bare txn keyword defaults to a cleared flag; explicit flag characters
// from the allowed set parse too.
func TestTransactionFlags(t *testing.T) {
	txn := parseTxn(t, "2014-05-05 txn \"keyword form\"\n  Assets:Cash  -1.00 USD\n  Expenses:Misc\n")
	assert.Equal(t, "*", txn.Flag)

	txn = parseTxn(t, "2014-05-05 txn ! \"keyword with flag\"\n  Assets:Cash  -1.00 USD\n  Expenses:Misc\n")
	assert.Equal(t, "!", txn.Flag)

	txn = parseTxn(t, "2014-05-05 S \"structured flag\"\n  Assets:Cash  -1.00 USD\n  Expenses:Misc\n")
	assert.Equal(t, "S", txn.Flag)

	txn = parseTxn(t, "2014-05-05 % \"percent flag\"\n  Assets:Cash  -1.00 USD\n  Expenses:Misc\n")
	assert.Equal(t, "%", txn.Flag)
}

// The P flag is reserved for ledger-generated padding transactions and is
// rejected when it appears in source.
func TestTransactionRejectsPaddingFlag(t *testing.T) {
	_, errs := parse(t, "2014-05-05 P \"sneaky\"\n  Assets:Cash  -1.00 USD\n  Expenses:Misc\n")
	assert.Equal(t, 1, len(errs))
	assert.Contains(t, errs[0].Error(), "reserved")
}

// Tags and links can be intermixed after the narration.
func TestTransactionTagsAndLinks(t *testing.T) {
	txn := parseTxn(t, `
2014-06-08 * "Dinner" #dining ^invoice-12 #entertainment
  Expenses:Food  80.00 USD
  Assets:Cash
`)
	assert.Equal(t, []ast.Tag{"dining", "entertainment"}, txn.Tags)
	assert.Equal(t, []ast.Link{"invoice-12"}, txn.Links)
}

// A posting without units is the elided posting.
func TestPostingElided(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Groceries"
  Expenses:Food  45.60 USD
  Assets:Cash
`)
	assert.Equal(t, 2, len(txn.Postings))
	assert.Equal(t, "45.60", txn.Postings[0].Units.Number.String())
	assert.Zero(t, txn.Postings[1].Units)
}

// Cost specifications parse into per-unit or total forms; the merge form is
// rejected outright.
func TestPostingCostSpecs(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Buy stock"
  Assets:Brokerage  10 HOOL {518.73 USD, 2014-05-01, "first-lot"}
  Assets:Cash
`)
	spec := txn.Postings[0].CostSpec
	assert.Equal(t, "518.73", spec.NumberPer.String())
	assert.Equal(t, "USD", spec.Currency)
	assert.Equal(t, "2014-05-01", spec.Date.String())
	assert.Equal(t, "first-lot", spec.Label)

	txn = parseTxn(t, `
2014-05-05 * "Buy stock total"
  Assets:Brokerage  10 HOOL {{5187.30 USD}}
  Assets:Cash
`)
	spec = txn.Postings[0].CostSpec
	assert.Zero(t, spec.NumberPer)
	assert.Equal(t, "5187.30", spec.NumberTotal.String())

	txn = parseTxn(t, `
2014-05-05 * "Sell any lot"
  Assets:Brokerage  -5 HOOL {}
  Assets:Cash
`)
	assert.True(t, txn.Postings[0].CostSpec.IsEmpty())

	_, errs := parse(t, `
2014-05-05 * "Merge lots"
  Assets:Brokerage  -5 HOOL {*}
  Assets:Cash
`)
	assert.Equal(t, 1, len(errs))
	assert.Contains(t, errs[0].Error(), "merge")
}

// An @@ total price desugars to a per-unit price at parse time.
func TestPostingTotalPriceDesugars(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Currency exchange"
  Assets:EUR  200 EUR @@ 270.00 USD
  Assets:USD  -270.00 USD
`)
	price := txn.Postings[0].Price
	assert.Equal(t, "1.35", price.Number.String())
	assert.Equal(t, "USD", price.Currency)

	txn = parseTxn(t, `
2014-05-05 * "Per-unit price"
  Assets:EUR  200 EUR @ 1.35 USD
  Assets:USD  -270.00 USD
`)
	assert.Equal(t, "1.35", txn.Postings[0].Price.Number.String())
}

// Posting amounts accept arithmetic expressions evaluated at parse time.
func TestPostingExpressionAmount(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Split three ways"
  Expenses:Food  (40.00 / 4) USD
  Assets:Cash
`)
	assert.Equal(t, "10", txn.Postings[0].Units.Number.String())
}

// Posting-level metadata attaches to the posting, not the transaction.
func TestPostingMetadata(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Payment"
  invoice: "INV-1"
  Assets:Checking  -100.00 USD
    confirmation: "CONF-42"
  Expenses:Services
`)
	assert.Equal(t, 1, len(txn.Metadata))
	assert.Equal(t, "invoice", txn.Metadata[0].Key)
	assert.Equal(t, 1, len(txn.Postings[0].Metadata))
	assert.Equal(t, "confirmation", txn.Postings[0].Metadata[0].Key)
	assert.Equal(t, 0, len(txn.Postings[1].Metadata))
}

// A posting may carry its own flag.
func TestPostingFlag(t *testing.T) {
	txn := parseTxn(t, `
2014-05-05 * "Flagged leg"
  ! Assets:Checking  -100.00 USD
  Expenses:Unknown
`)
	assert.Equal(t, "!", txn.Postings[0].Flag)
}
