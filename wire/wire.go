// Package wire defines the JSON representation of directives, options and
// errors used on the public surface and on the plugin subprocess channel.
// Decimal numbers travel as strings so no precision is lost in transit.
package wire

import (
	"github.com/shopspring/decimal"
)

// APIVersion is the wire protocol version. Callers reject responses whose
// major version differs from the one they were built against.
const APIVersion = "1.2"

// Amount is a number/currency pair.
type Amount struct {
	Number   string `json:"number"`
	Currency string `json:"currency"`
}

// Cost is a resolved cost basis.
type Cost struct {
	Number   string `json:"number"`
	Currency string `json:"currency"`
	Date     string `json:"date,omitempty"`
	Label    string `json:"label,omitempty"`
}

// CostSpec is an unresolved {...} annotation.
type CostSpec struct {
	NumberPer   *string `json:"number_per,omitempty"`
	NumberTotal *string `json:"number_total,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Date        string  `json:"date,omitempty"`
	Label       string  `json:"label,omitempty"`
}

// Posting is one leg of a transaction.
type Posting struct {
	Account      string         `json:"account"`
	Flag         string         `json:"flag,omitempty"`
	Units        *Amount        `json:"units,omitempty"`
	Cost         *Cost          `json:"cost,omitempty"`
	CostSpec     *CostSpec      `json:"cost_spec,omitempty"`
	Price        *Amount        `json:"price,omitempty"`
	Interpolated bool           `json:"interpolated,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// Directive is the union form carrying every directive kind. Kind selects
// which fields are meaningful.
type Directive struct {
	Kind string         `json:"kind"`
	Date string         `json:"date"`
	Hash string         `json:"hash,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`

	// Open, Close, Balance, Pad, Note, Document.
	Account string `json:"account,omitempty"`

	// Open.
	Currencies []string `json:"currencies,omitempty"`
	Booking    string   `json:"booking,omitempty"`

	// Commodity and Price.
	Currency string `json:"currency,omitempty"`

	// Balance and Price.
	Amount     *Amount `json:"amount,omitempty"`
	Tolerance  *string `json:"tolerance,omitempty"`
	DiffAmount *Amount `json:"diff_amount,omitempty"`

	// Pad.
	SourceAccount string `json:"source_account,omitempty"`

	// Note.
	Comment string `json:"comment,omitempty"`

	// Document.
	Filename string `json:"filename,omitempty"`

	// Event.
	EventName  string `json:"event_name,omitempty"`
	EventValue string `json:"event_value,omitempty"`

	// Query and Custom.
	Name     string `json:"name,omitempty"`
	Contents string `json:"contents,omitempty"`

	// Custom.
	CustomType   string   `json:"custom_type,omitempty"`
	CustomValues []string `json:"custom_values,omitempty"`

	// Transaction.
	Flag      string     `json:"flag,omitempty"`
	Payee     string     `json:"payee,omitempty"`
	Narration string     `json:"narration,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Links     []string   `json:"links,omitempty"`
	Postings  []*Posting `json:"postings,omitempty"`
}

// Error is the wire form of any load, parse, booking or query error.
type Error struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
	Lineno   int    `json:"lineno,omitempty"`
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}
