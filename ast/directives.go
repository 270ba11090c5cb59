package ast

import "github.com/shopspring/decimal"

// Open declares the opening of an account, optionally constraining which
// currencies it may hold and fixing the booking method used when lots are
// reduced. Accounts must be opened before anything else references them.
//
// Example:
//
//	2014-05-01 open Assets:US:BofA:Checking USD
//	2014-05-01 open Assets:Investments:Brokerage USD,EUR "FIFO"
type Open struct {
	Pos        Position
	EntryDate  *Date
	Account    Account
	Currencies []string
	Booking    string

	withMeta
	withHash
}

var _ Directive = &Open{}

func (o *Open) Position() Position { return o.Pos }
func (o *Open) Date() *Date        { return o.EntryDate }
func (o *Open) Kind() Kind         { return KindOpen }

// Close marks the end of an account's lifetime. Transactions dated on or
// after the close are rejected by the ledger.
type Close struct {
	Pos       Position
	EntryDate *Date
	Account   Account

	withMeta
	withHash
}

var _ Directive = &Close{}

func (c *Close) Position() Position { return c.Pos }
func (c *Close) Date() *Date        { return c.EntryDate }
func (c *Close) Kind() Kind         { return KindClose }

// Commodity declares a currency or commodity symbol. Optional; mostly used
// to hang metadata such as display precision off a symbol.
type Commodity struct {
	Pos       Position
	EntryDate *Date
	Currency  string

	withMeta
	withHash
}

var _ Directive = &Commodity{}

func (c *Commodity) Position() Position { return c.Pos }
func (c *Commodity) Date() *Date        { return c.EntryDate }
func (c *Commodity) Kind() Kind         { return KindCommodity }

// Balance asserts that an account holds a specific quantity of one currency
// at the beginning of the given date. Tolerance is the explicit per-assertion
// tolerance from the "~" syntax, nil when inferred. DiffAmount is filled by
// the ledger when the assertion fails.
//
// Example:
//
//	2014-08-09 balance Assets:US:BofA:Checking 562.00 USD
//	2014-08-09 balance Assets:Cash 200.00 ~ 0.05 USD
type Balance struct {
	Pos        Position
	EntryDate  *Date
	Account    Account
	Amount     *Amount
	Tolerance  *decimal.Decimal
	DiffAmount *Amount

	withMeta
	withHash
}

var _ Directive = &Balance{}

func (b *Balance) Position() Position { return b.Pos }
func (b *Balance) Date() *Date        { return b.EntryDate }
func (b *Balance) Kind() Kind         { return KindBalance }

// Pad asks the ledger to synthesize a transaction that brings Account to
// the quantity asserted by the next Balance on it, posting the difference
// against AccountPad.
//
// Example:
//
//	2014-01-01 pad Assets:US:BofA:Checking Equity:Opening-Balances
//	2014-08-09 balance Assets:US:BofA:Checking 562.00 USD
type Pad struct {
	Pos        Position
	EntryDate  *Date
	Account    Account
	AccountPad Account

	withMeta
	withHash
}

var _ Directive = &Pad{}

func (p *Pad) Position() Position { return p.Pos }
func (p *Pad) Date() *Date        { return p.EntryDate }
func (p *Pad) Kind() Kind         { return KindPad }

// Note attaches a dated free-form comment to an account.
type Note struct {
	Pos       Position
	EntryDate *Date
	Account   Account
	Comment   string

	withMeta
	withHash
}

var _ Directive = &Note{}

func (n *Note) Position() Position { return n.Pos }
func (n *Note) Date() *Date        { return n.EntryDate }
func (n *Note) Kind() Kind         { return KindNote }

// Document associates an external file such as a receipt or statement with
// an account at a date.
type Document struct {
	Pos       Position
	EntryDate *Date
	Account   Account
	Path      string
	Tags      []Tag
	Links     []Link

	withMeta
	withHash
}

var _ Directive = &Document{}

func (d *Document) Position() Position { return d.Pos }
func (d *Document) Date() *Date        { return d.EntryDate }
func (d *Document) Kind() Kind         { return KindDocument }

// Price declares the market price of a commodity in another currency.
//
// Example:
//
//	2014-07-09 price USD 1.08 CAD
//	2015-04-30 price HOOL 582.26 USD
type Price struct {
	Pos       Position
	EntryDate *Date
	Currency  string
	Amount    *Amount

	withMeta
	withHash
}

var _ Directive = &Price{}

func (p *Price) Position() Position { return p.Pos }
func (p *Price) Date() *Date        { return p.EntryDate }
func (p *Price) Kind() Kind         { return KindPrice }

// Event records a named piece of time-varying state, such as a location or
// employer.
type Event struct {
	Pos       Position
	EntryDate *Date
	Name      string
	Value     string

	withMeta
	withHash
}

var _ Directive = &Event{}

func (e *Event) Position() Position { return e.Pos }
func (e *Event) Date() *Date        { return e.EntryDate }
func (e *Event) Kind() Kind         { return KindEvent }

// Query stores a named BQL query inside the ledger for later execution.
type Query struct {
	Pos       Position
	EntryDate *Date
	Name      string
	Contents  string

	withMeta
	withHash
}

var _ Directive = &Query{}

func (q *Query) Position() Position { return q.Pos }
func (q *Query) Date() *Date        { return q.EntryDate }
func (q *Query) Kind() Kind         { return KindQuery }

// Custom is the open-ended directive used by plugins: a type string followed
// by arbitrary typed values.
//
// Example:
//
//	2014-07-09 custom "budget" "weekly" TRUE 45.30 USD
type Custom struct {
	Pos       Position
	EntryDate *Date
	Type      string
	Values    []*CustomValue

	withMeta
	withHash
}

var _ Directive = &Custom{}

func (c *Custom) Position() Position { return c.Pos }
func (c *Custom) Date() *Date        { return c.EntryDate }
func (c *Custom) Kind() Kind         { return KindCustom }

// CustomValue is one typed value in a custom directive; exactly one field
// is non-nil.
type CustomValue struct {
	String  *string
	Date    *Date
	Boolean *bool
	Number  *decimal.Decimal
	Amount  *Amount
	Account *Account
}

// Render returns the value as it appears in source.
func (cv *CustomValue) Render() string {
	switch {
	case cv.String != nil:
		return *cv.String
	case cv.Date != nil:
		return cv.Date.String()
	case cv.Boolean != nil:
		if *cv.Boolean {
			return "TRUE"
		}
		return "FALSE"
	case cv.Number != nil:
		return cv.Number.String()
	case cv.Amount != nil:
		return cv.Amount.String()
	case cv.Account != nil:
		return string(*cv.Account)
	default:
		return ""
	}
}
