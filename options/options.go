// Package options defines the typed options record extracted from a
// ledger's option directives, and its defaults. Field names follow the
// wire-level names surfaced over the facade.
package options

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// Booking method names accepted by the booking_method option and by Open
// directives.
const (
	BookingStrict  = "STRICT"
	BookingFIFO    = "FIFO"
	BookingLIFO    = "LIFO"
	BookingHIFO    = "HIFO"
	BookingAverage = "AVERAGE"
	BookingNone    = "NONE"
)

// BookingMethods lists every valid booking method.
var BookingMethods = []string{
	BookingStrict, BookingFIFO, BookingLIFO, BookingHIFO, BookingAverage, BookingNone,
}

// ValidBookingMethod reports whether name is a known booking method.
func ValidBookingMethod(name string) bool {
	for _, m := range BookingMethods {
		if m == name {
			return true
		}
	}
	return false
}

// PluginSpec is one plugin declaration: a name and an optional config
// string.
type PluginSpec struct {
	Name   string `json:"name"`
	Config string `json:"config,omitempty"`
}

// Options is the canonical options record: one per root load. Fields not
// set by option directives keep their defaults; Commodities, Include,
// InputHash and DisplayPrecision are filled by the loader and ledger.
type Options struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`

	NameAssets      string `json:"name_assets"`
	NameLiabilities string `json:"name_liabilities"`
	NameEquity      string `json:"name_equity"`
	NameIncome      string `json:"name_income"`
	NameExpenses    string `json:"name_expenses"`

	AccountCurrentConversions  string `json:"account_current_conversions"`
	AccountCurrentEarnings     string `json:"account_current_earnings"`
	AccountPreviousBalances    string `json:"account_previous_balances"`
	AccountPreviousConversions string `json:"account_previous_conversions"`
	AccountPreviousEarnings    string `json:"account_previous_earnings"`
	AccountRounding            string `json:"account_rounding"`
	AccountUnrealizedGains     string `json:"account_unrealized_gains"`

	BookingMethod      string          `json:"booking_method"`
	Commodities        []string        `json:"commodities"`
	ConversionCurrency string          `json:"conversion_currency"`
	DisplayPrecision   map[string]int  `json:"display_precision"`
	Documents          []string        `json:"documents"`
	Include            []string        `json:"include"`
	OperatingCurrency  []string        `json:"operating_currency"`
	Plugin             []PluginSpec    `json:"plugin"`
	RenderCommas       bool            `json:"render_commas"`
	InputHash          string          `json:"input_hash"`

	InferToleranceFromCost      bool                       `json:"infer_tolerance_from_cost"`
	InferredToleranceDefault    map[string]decimal.Decimal `json:"inferred_tolerance_default"`
	InferredToleranceMultiplier decimal.Decimal            `json:"inferred_tolerance_multiplier"`
	ToleranceMultiplier         decimal.Decimal            `json:"tolerance_multiplier"`
}

// Default returns an options record populated with the standard defaults.
func Default() *Options {
	return &Options{
		NameAssets:      "Assets",
		NameLiabilities: "Liabilities",
		NameEquity:      "Equity",
		NameIncome:      "Income",
		NameExpenses:    "Expenses",

		AccountCurrentConversions:  "Conversions:Current",
		AccountCurrentEarnings:     "Earnings:Current",
		AccountPreviousBalances:    "Opening-Balances",
		AccountPreviousConversions: "Conversions:Previous",
		AccountPreviousEarnings:    "Earnings:Previous",
		AccountUnrealizedGains:     "Earnings:Unrealized",

		BookingMethod:      BookingStrict,
		ConversionCurrency: "NOTHING",
		DisplayPrecision:   make(map[string]int),

		InferredToleranceDefault: map[string]decimal.Decimal{
			// Wildcard default applied when no per-currency entry exists.
			"*": decimal.RequireFromString("0.005"),
		},
		InferredToleranceMultiplier: decimal.RequireFromString("0.5"),
		ToleranceMultiplier:         decimal.RequireFromString("0.5"),
	}
}

// UnknownOptionError reports an option name the extractor does not know.
// The option is skipped; extraction continues.
type UnknownOptionError struct {
	Pos  ast.Position
	Name string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("%s:%d: unknown option %q", e.Pos.Filename, e.Pos.Line, e.Name)
}

func (e *UnknownOptionError) Kind() string              { return "ParseError" }
func (e *UnknownOptionError) GetPosition() ast.Position { return e.Pos }

// InvalidOptionError reports an option whose value does not parse.
type InvalidOptionError struct {
	Pos     ast.Position
	Name    string
	Message string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("%s:%d: invalid option %q: %s", e.Pos.Filename, e.Pos.Line, e.Name, e.Message)
}

func (e *InvalidOptionError) Kind() string              { return "ParseError" }
func (e *InvalidOptionError) GetPosition() ast.Position { return e.Pos }

// Extract folds option directives into a typed record, starting from the
// defaults. Unknown names and unparseable values produce errors but never
// abort: a load always yields an options record.
func Extract(opts []*ast.Option) (*Options, []error) {
	record := Default()
	var errs []error
	for _, o := range opts {
		if err := record.apply(o); err != nil {
			errs = append(errs, err)
		}
	}
	return record, errs
}

func (r *Options) apply(o *ast.Option) error {
	switch o.Name {
	case "title":
		r.Title = o.Value
	case "name_assets":
		r.NameAssets = o.Value
	case "name_liabilities":
		r.NameLiabilities = o.Value
	case "name_equity":
		r.NameEquity = o.Value
	case "name_income":
		r.NameIncome = o.Value
	case "name_expenses":
		r.NameExpenses = o.Value
	case "account_current_conversions":
		r.AccountCurrentConversions = o.Value
	case "account_current_earnings":
		r.AccountCurrentEarnings = o.Value
	case "account_previous_balances":
		r.AccountPreviousBalances = o.Value
	case "account_previous_conversions":
		r.AccountPreviousConversions = o.Value
	case "account_previous_earnings":
		r.AccountPreviousEarnings = o.Value
	case "account_rounding":
		r.AccountRounding = o.Value
	case "account_unrealized_gains":
		r.AccountUnrealizedGains = o.Value
	case "booking_method":
		if !ValidBookingMethod(o.Value) {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: "unknown booking method " + o.Value}
		}
		r.BookingMethod = o.Value
	case "conversion_currency":
		r.ConversionCurrency = o.Value
	case "documents":
		r.Documents = append(r.Documents, o.Value)
	case "operating_currency":
		r.OperatingCurrency = append(r.OperatingCurrency, o.Value)
	case "render_commas":
		b, err := parseBool(o.Value)
		if err != nil {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: err.Error()}
		}
		r.RenderCommas = b
	case "infer_tolerance_from_cost":
		b, err := parseBool(o.Value)
		if err != nil {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: err.Error()}
		}
		r.InferToleranceFromCost = b
	case "inferred_tolerance_multiplier":
		d, err := decimal.NewFromString(o.Value)
		if err != nil {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: err.Error()}
		}
		r.InferredToleranceMultiplier = d
	case "tolerance_multiplier":
		d, err := decimal.NewFromString(o.Value)
		if err != nil {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: err.Error()}
		}
		r.ToleranceMultiplier = d
	case "inferred_tolerance_default":
		// Value is "CCY:0.005"; "*" is the wildcard currency.
		ccy, num, ok := strings.Cut(o.Value, ":")
		if !ok {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: "expected CURRENCY:NUMBER"}
		}
		d, err := decimal.NewFromString(num)
		if err != nil {
			return &InvalidOptionError{Pos: o.Pos, Name: o.Name, Message: err.Error()}
		}
		r.InferredToleranceDefault[ccy] = d
	default:
		return &UnknownOptionError{Pos: o.Pos, Name: o.Name}
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "TRUE", "true", "True":
		return true, nil
	case "FALSE", "false", "False":
		return false, nil
	}
	return false, fmt.Errorf("expected TRUE or FALSE, got %q", s)
}

// ToleranceDefault returns the inferred tolerance default for a currency,
// falling back to the "*" wildcard entry.
func (r *Options) ToleranceDefault(currency string) decimal.Decimal {
	if d, ok := r.InferredToleranceDefault[currency]; ok {
		return d
	}
	if d, ok := r.InferredToleranceDefault["*"]; ok {
		return d
	}
	return decimal.Zero
}

// AccountType maps an account to its root category name as configured by
// the name_* options. Unknown roots return the empty string.
func (r *Options) AccountType(account ast.Account) string {
	switch account.Type() {
	case r.NameAssets:
		return r.NameAssets
	case r.NameLiabilities:
		return r.NameLiabilities
	case r.NameEquity:
		return r.NameEquity
	case r.NameIncome:
		return r.NameIncome
	case r.NameExpenses:
		return r.NameExpenses
	}
	return ""
}
