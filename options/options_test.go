package options

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/beanquery/ast"
)

func opt(name, value string) *ast.Option {
	return &ast.Option{Pos: ast.Position{Filename: "test.beancount", Line: 1}, Name: name, Value: value}
}

// Extraction starts from the defaults and overlays the given directives.
func TestExtractOverlaysDefaults(t *testing.T) {
	record, errs := Extract([]*ast.Option{
		opt("title", "My Ledger"),
		opt("operating_currency", "USD"),
		opt("operating_currency", "EUR"),
		opt("booking_method", "FIFO"),
		opt("render_commas", "TRUE"),
	})
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, "My Ledger", record.Title)
	assert.Equal(t, []string{"USD", "EUR"}, record.OperatingCurrency)
	assert.Equal(t, BookingFIFO, record.BookingMethod)
	assert.True(t, record.RenderCommas)

	// Untouched fields keep their defaults.
	assert.Equal(t, "Assets", record.NameAssets)
	assert.Equal(t, "NOTHING", record.ConversionCurrency)
}

// Unknown option names are reported but do not abort extraction.
func TestExtractUnknownOption(t *testing.T) {
	record, errs := Extract([]*ast.Option{
		opt("no_such_option", "whatever"),
		opt("title", "Still Applied"),
	})
	assert.Equal(t, 1, len(errs))
	unknown, ok := errs[0].(*UnknownOptionError)
	assert.True(t, ok)
	assert.Equal(t, "no_such_option", unknown.Name)
	assert.Equal(t, "Still Applied", record.Title)
}

// Malformed values produce invalid-option errors and leave the default in
// place.
func TestExtractInvalidValues(t *testing.T) {
	record, errs := Extract([]*ast.Option{
		opt("booking_method", "SIDEWAYS"),
		opt("render_commas", "maybe"),
		opt("tolerance_multiplier", "not-a-number"),
	})
	assert.Equal(t, 3, len(errs))
	assert.Equal(t, BookingStrict, record.BookingMethod)
	assert.False(t, record.RenderCommas)
	assert.Equal(t, "0.5", record.ToleranceMultiplier.String())
}

// Per-currency tolerance defaults override the wildcard.
func TestToleranceDefault(t *testing.T) {
	record, errs := Extract([]*ast.Option{
		opt("inferred_tolerance_default", "JPY:0.5"),
	})
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, "0.5", record.ToleranceDefault("JPY").String())
	assert.Equal(t, "0.005", record.ToleranceDefault("USD").String())
}

// Root category names follow the name_* options.
func TestAccountType(t *testing.T) {
	record, errs := Extract([]*ast.Option{
		opt("name_assets", "Activa"),
	})
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, "Activa", record.AccountType(ast.Account("Activa:Bank:Checking")))
	assert.Equal(t, "Expenses", record.AccountType(ast.Account("Expenses:Food")))
	assert.Equal(t, "", record.AccountType(ast.Account("Assets:Old:Root")))
}
