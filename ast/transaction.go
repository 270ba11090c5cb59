package ast

// Transaction records a financial event as a set of postings that balance to
// zero per currency. The flag marks status: '*' cleared, '!' pending, 'P'
// reserved for padding transactions generated by the ledger (never parsed
// from source). Tags and links categorize and connect related transactions.
//
// Example:
//
//	2014-05-05 * "Cafe Mogador" "Lamb tagine with wine"
//	  Liabilities:CreditCard:CapitalOne         -37.45 USD
//	  Expenses:Food:Restaurant
type Transaction struct {
	Pos       Position
	EntryDate *Date
	Flag      string
	Payee     string
	Narration string
	Tags      []Tag
	Links     []Link

	withMeta
	withHash

	Postings []*Posting
}

var _ Directive = &Transaction{}

func (t *Transaction) Position() Position { return t.Pos }
func (t *Transaction) Date() *Date        { return t.EntryDate }
func (t *Transaction) Kind() Kind         { return KindTransaction }

// HasTag reports whether the transaction carries the given tag.
func (t *Transaction) HasTag(tag Tag) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// Accounts returns the distinct accounts referenced by the postings, in
// first-appearance order.
func (t *Transaction) Accounts() []Account {
	seen := make(map[Account]bool, len(t.Postings))
	accounts := make([]Account, 0, len(t.Postings))
	for _, p := range t.Postings {
		if !seen[p.Account] {
			accounts = append(accounts, p.Account)
			seen[p.Account] = true
		}
	}
	return accounts
}

// Posting is a single leg of a transaction. Units is nil for the one elided
// posting whose amount the ledger interpolates; Interpolated marks that the
// ledger filled it in. CostSpec holds the parsed {...} annotation and Cost
// the lot resolved from it during booking. Price records an @ conversion
// rate; PriceTotal marks the @@ total form before desugaring.
//
// Example postings:
//
//	Assets:Investments:Brokerage    10 HOOL {518.73 USD}
//	Assets:Investments:Cash        200 EUR @ 1.35 USD
//	Expenses:Groceries              45.60 USD
//	Assets:Checking
type Posting struct {
	Pos          Position
	Flag         string
	Account      Account
	Units        *Amount
	CostSpec     *CostSpec
	Cost         *Cost
	Price        *Amount
	PriceTotal   bool
	Interpolated bool

	withMeta
}
