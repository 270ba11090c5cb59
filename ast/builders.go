// Constructor functions for building directive values programmatically, used
// by the booking pass for synthesized transactions, by plugins, and by tests.
// Complex types use functional options.
package ast

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NewAmount creates an Amount from a decimal string such as "100.50".
// Panics on an unparseable value; use this for literals, not user input.
func NewAmount(value, currency string) *Amount {
	n, err := decimal.NewFromString(value)
	if err != nil {
		panic(fmt.Sprintf("invalid amount literal %q: %v", value, err))
	}
	return &Amount{Number: n, Currency: currency}
}

// NewAmountFromDecimal creates an Amount from an existing decimal.
func NewAmountFromDecimal(n decimal.Decimal, currency string) *Amount {
	return &Amount{Number: n, Currency: currency}
}

// NewDate parses a date string in YYYY-MM-DD format.
func NewDate(s string) (*Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	return &Date{Time: t}, nil
}

// MustDate parses a date literal, panicking on failure. For tests and
// compiled-in constants only.
func MustDate(s string) *Date {
	d, err := NewDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDateFromTime creates a Date from a time.Time, keeping only the date
// portion for comparisons.
func NewDateFromTime(t time.Time) *Date {
	return &Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// NewAccount validates and creates an Account.
func NewAccount(name string) (Account, error) {
	if err := ValidateAccount(name); err != nil {
		return "", err
	}
	return Account(name), nil
}

// NewTag creates a Tag, stripping a leading # if present.
func NewTag(name string) Tag {
	return Tag(strings.TrimPrefix(name, "#"))
}

// NewLink creates a Link, stripping a leading ^ if present.
func NewLink(name string) Link {
	return Link(strings.TrimPrefix(name, "^"))
}

// NewMetadata creates a metadata entry with a string value.
func NewMetadata(key, value string) *Metadata {
	return &Metadata{Key: key, Value: &MetadataValue{String: &value}}
}

// TransactionOption is a functional option for configuring a Transaction.
type TransactionOption func(*Transaction)

// NewTransaction creates a Transaction with the given date and narration.
//
// Example:
//
//	txn := ast.NewTransaction(date, "Buy groceries",
//	    ast.WithFlag("*"),
//	    ast.WithPayee("Whole Foods"),
//	    ast.WithPostings(
//	        ast.NewPosting(expenses, ast.WithUnits("45.60", "USD")),
//	        ast.NewPosting(checking),
//	    ),
//	)
func NewTransaction(date *Date, narration string, opts ...TransactionOption) *Transaction {
	txn := &Transaction{
		EntryDate: date,
		Narration: narration,
	}
	for _, opt := range opts {
		opt(txn)
	}
	return txn
}

// WithFlag sets the transaction flag: "*" cleared, "!" pending.
func WithFlag(flag string) TransactionOption {
	return func(t *Transaction) { t.Flag = flag }
}

// WithPayee sets the transaction payee.
func WithPayee(payee string) TransactionOption {
	return func(t *Transaction) { t.Payee = payee }
}

// WithTags adds tags, without their # prefix.
func WithTags(tags ...string) TransactionOption {
	return func(t *Transaction) {
		for _, tag := range tags {
			t.Tags = append(t.Tags, NewTag(tag))
		}
	}
}

// WithLinks adds links, without their ^ prefix.
func WithLinks(links ...string) TransactionOption {
	return func(t *Transaction) {
		for _, link := range links {
			t.Links = append(t.Links, NewLink(link))
		}
	}
}

// WithTransactionMetadata adds metadata entries to the transaction.
func WithTransactionMetadata(metadata ...*Metadata) TransactionOption {
	return func(t *Transaction) { t.AddMetadata(metadata...) }
}

// WithPostings sets the postings for the transaction.
func WithPostings(postings ...*Posting) TransactionOption {
	return func(t *Transaction) { t.Postings = postings }
}

// PostingOption is a functional option for configuring a Posting.
type PostingOption func(*Posting)

// NewPosting creates a Posting for the given account. A posting without
// WithUnits is elided and will be interpolated by the ledger.
func NewPosting(account Account, opts ...PostingOption) *Posting {
	posting := &Posting{Account: account}
	for _, opt := range opts {
		opt(posting)
	}
	return posting
}

// WithUnits sets the posting units from a decimal string and currency.
func WithUnits(value, currency string) PostingOption {
	return func(p *Posting) { p.Units = NewAmount(value, currency) }
}

// WithUnitsAmount sets the posting units from an Amount.
func WithUnitsAmount(amount *Amount) PostingOption {
	return func(p *Posting) { p.Units = amount }
}

// WithCostSpec sets the parsed cost annotation.
func WithCostSpec(spec *CostSpec) PostingOption {
	return func(p *Posting) { p.CostSpec = spec }
}

// WithPrice sets a per-unit price (@ syntax).
func WithPrice(price *Amount) PostingOption {
	return func(p *Posting) {
		p.Price = price
		p.PriceTotal = false
	}
}

// WithTotalPrice sets a total price (@@ syntax).
func WithTotalPrice(price *Amount) PostingOption {
	return func(p *Posting) {
		p.Price = price
		p.PriceTotal = true
	}
}

// WithPostingFlag sets the flag for a posting.
func WithPostingFlag(flag string) PostingOption {
	return func(p *Posting) { p.Flag = flag }
}

// WithPostingMetadata adds metadata entries to the posting.
func WithPostingMetadata(metadata ...*Metadata) PostingOption {
	return func(p *Posting) { p.AddMetadata(metadata...) }
}

// NewCostSpec creates a per-unit cost spec from a decimal string.
func NewCostSpec(value, currency string) *CostSpec {
	n, err := decimal.NewFromString(value)
	if err != nil {
		panic(fmt.Sprintf("invalid cost literal %q: %v", value, err))
	}
	return &CostSpec{NumberPer: &n, Currency: currency}
}

// NewTotalCostSpec creates a total cost spec ({{...}} form).
func NewTotalCostSpec(value, currency string) *CostSpec {
	n, err := decimal.NewFromString(value)
	if err != nil {
		panic(fmt.Sprintf("invalid cost literal %q: %v", value, err))
	}
	return &CostSpec{NumberTotal: &n, Currency: currency}
}

// NewEmptyCostSpec creates an empty cost spec {} for automatic lot
// selection.
func NewEmptyCostSpec() *CostSpec {
	return &CostSpec{}
}

// NewOpen creates an Open directive. Currencies may be nil and booking may
// be empty for the ledger default.
func NewOpen(date *Date, account Account, currencies []string, booking string) *Open {
	return &Open{EntryDate: date, Account: account, Currencies: currencies, Booking: booking}
}

// NewClose creates a Close directive.
func NewClose(date *Date, account Account) *Close {
	return &Close{EntryDate: date, Account: account}
}

// NewBalance creates a Balance assertion.
func NewBalance(date *Date, account Account, amount *Amount) *Balance {
	return &Balance{EntryDate: date, Account: account, Amount: amount}
}

// NewPad creates a Pad directive.
func NewPad(date *Date, account, accountPad Account) *Pad {
	return &Pad{EntryDate: date, Account: account, AccountPad: accountPad}
}

// NewNote creates a Note directive.
func NewNote(date *Date, account Account, comment string) *Note {
	return &Note{EntryDate: date, Account: account, Comment: comment}
}

// NewDocument creates a Document directive.
func NewDocument(date *Date, account Account, path string) *Document {
	return &Document{EntryDate: date, Account: account, Path: path}
}

// NewCommodity creates a Commodity directive.
func NewCommodity(date *Date, currency string) *Commodity {
	return &Commodity{EntryDate: date, Currency: currency}
}

// NewPrice creates a Price directive.
func NewPrice(date *Date, currency string, amount *Amount) *Price {
	return &Price{EntryDate: date, Currency: currency, Amount: amount}
}

// NewEvent creates an Event directive.
func NewEvent(date *Date, name, value string) *Event {
	return &Event{EntryDate: date, Name: name, Value: value}
}

// NewQuery creates a Query directive.
func NewQuery(date *Date, name, contents string) *Query {
	return &Query{EntryDate: date, Name: name, Contents: contents}
}

// NewCustom creates a Custom directive.
func NewCustom(date *Date, typeName string, values ...*CustomValue) *Custom {
	return &Custom{EntryDate: date, Type: typeName, Values: values}
}
