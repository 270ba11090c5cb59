package ast

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amount represents a decimal quantity with its currency or commodity symbol.
// The number keeps the exponent it was parsed with, so "5.00 USD" renders
// back with two fractional digits.
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

// String renders the amount as "<number> <currency>". A nil amount renders
// empty.
func (a *Amount) String() string {
	if a == nil {
		return ""
	}
	return a.Number.String() + " " + a.Currency
}

// Neg returns the amount with its number negated.
func (a *Amount) Neg() *Amount {
	return &Amount{Number: a.Number.Neg(), Currency: a.Currency}
}

// Cost is a resolved cost basis attached to a posting by the booking pass.
// Unlike CostSpec it is always complete: a per-unit number, a currency and
// an acquisition date.
type Cost struct {
	Number   decimal.Decimal
	Currency string
	Date     *Date
	Label    string
}

// String renders the cost the way it appears between braces.
func (c *Cost) String() string {
	s := c.Number.String() + " " + c.Currency
	if c.Date != nil {
		s += ", " + c.Date.Format("2006-01-02")
	}
	if c.Label != "" {
		s += fmt.Sprintf(", %q", c.Label)
	}
	return s
}

// Equal reports whether two costs match on number, currency, date and label.
// A nil cost only equals another nil cost.
func (c *Cost) Equal(o *Cost) bool {
	if c == nil || o == nil {
		return c == o
	}
	if !c.Number.Equal(o.Number) || c.Currency != o.Currency || c.Label != o.Label {
		return false
	}
	if (c.Date == nil) != (o.Date == nil) {
		return false
	}
	return c.Date == nil || c.Date.Equal(o.Date.Time)
}

// CostSpec is the parsed form of a {...} or {{...}} annotation. Fields left
// nil were omitted in the source and are resolved during booking. Total
// marks the {{...}} form; Merge marks the rejected {*} form.
type CostSpec struct {
	NumberPer   *decimal.Decimal
	NumberTotal *decimal.Decimal
	Currency    string
	Date        *Date
	Label       string
	Merge       bool
}

// IsEmpty reports whether this is an empty cost spec {}, which asks booking
// to select a lot automatically.
func (c *CostSpec) IsEmpty() bool {
	return c != nil && !c.Merge && c.NumberPer == nil && c.NumberTotal == nil &&
		c.Currency == "" && c.Date == nil && c.Label == ""
}

// Account represents a Beancount account name: at least two colon-separated
// segments, the first being one of the five root categories (Assets,
// Liabilities, Equity, Income, Expenses), the rest starting with an
// uppercase letter or digit.
//
// Example accounts:
//
//	Assets:US:BofA:Checking
//	Liabilities:CreditCard:CapitalOne
//	Expenses:Home:Rent
type Account string

// Type returns the root segment of the account name.
func (a Account) Type() string {
	name := string(a)
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// Parent returns the account with its last segment removed, or "" for a
// root-level account.
func (a Account) Parent() Account {
	name := string(a)
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return Account(name[:i])
	}
	return ""
}

// accountSegmentRegex validates segments after the root: uppercase letter or
// digit first, then alphanumerics and hyphens.
var accountSegmentRegex = regexp.MustCompile(`^[A-Z0-9][A-Za-z0-9-]*$`)

// ValidateAccount checks an account name against the naming rules.
func ValidateAccount(name string) error {
	parts := strings.Split(name, ":")
	if len(parts) < 2 {
		return fmt.Errorf("account must have at least two segments: %s", name)
	}
	switch parts[0] {
	case "Assets", "Liabilities", "Equity", "Income", "Expenses":
	default:
		return fmt.Errorf("unexpected account type %q", parts[0])
	}
	for i := 1; i < len(parts); i++ {
		if !accountSegmentRegex.MatchString(parts[i]) {
			return fmt.Errorf("invalid account segment at position %d: %s", i, parts[i])
		}
	}
	return nil
}

// Date represents a calendar date in ISO 8601 form (YYYY-MM-DD). Every
// directive carries one; dates drive the canonical sort and all range
// filtering.
type Date struct {
	time.Time
}

// IsZero is nil-safe so repr and tests can probe unset dates.
func (d *Date) IsZero() bool {
	return d == nil || d.Time.IsZero()
}

// String renders the date in ISO form.
func (d *Date) String() string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}

// Tag is a hashtag without its # prefix.
type Tag string

// Link is a reference link without its ^ prefix.
type Link string

// Metadata is a key-value pair attached to a directive or posting. Entries
// appear indented below the line they annotate. The reserved keys filename,
// lineno and hash are surfaced as Position and Hash, never stored here.
type Metadata struct {
	Key   string
	Value *MetadataValue
}

// MetadataValue is a discriminated union of the metadata value types;
// exactly one field is non-nil.
type MetadataValue struct {
	String   *string
	Date     *Date
	Account  *Account
	Currency *string
	Tag      *Tag
	Link     *Link
	Number   *decimal.Decimal
	Amount   *Amount
	Boolean  *bool
}

// Type returns the name of the populated variant.
func (m *MetadataValue) Type() string {
	if m == nil {
		return "nil"
	}
	switch {
	case m.String != nil:
		return "string"
	case m.Date != nil:
		return "date"
	case m.Account != nil:
		return "account"
	case m.Currency != nil:
		return "currency"
	case m.Tag != nil:
		return "tag"
	case m.Link != nil:
		return "link"
	case m.Number != nil:
		return "number"
	case m.Amount != nil:
		return "amount"
	case m.Boolean != nil:
		return "boolean"
	default:
		return "unknown"
	}
}

// Render returns the value as it appears in source, without string quotes.
func (m *MetadataValue) Render() string {
	if m == nil {
		return ""
	}
	switch {
	case m.String != nil:
		return *m.String
	case m.Date != nil:
		return m.Date.String()
	case m.Account != nil:
		return string(*m.Account)
	case m.Currency != nil:
		return *m.Currency
	case m.Tag != nil:
		return "#" + string(*m.Tag)
	case m.Link != nil:
		return "^" + string(*m.Link)
	case m.Number != nil:
		return m.Number.String()
	case m.Amount != nil:
		return m.Amount.String()
	case m.Boolean != nil:
		if *m.Boolean {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}
