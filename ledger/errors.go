package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// ValidationErrors wraps every error collected while processing a directive
// stream. Processing never stops at the first failure.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for errors.As matching.
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

func location(pos ast.Position, date *ast.Date) string {
	if pos.Filename == "" {
		return date.String()
	}
	return fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
}

// UnopenedAccountError reports a directive referencing an account with no
// prior Open.
type UnopenedAccountError struct {
	Account   ast.Account
	Date      *ast.Date
	Pos       ast.Position
	Directive ast.Directive
}

// NewUnopenedAccountError creates an error for a reference to an account
// that has not been opened by the directive's date.
func NewUnopenedAccountError(directive ast.Directive, account ast.Account) *UnopenedAccountError {
	return &UnopenedAccountError{
		Account:   account,
		Date:      directive.Date(),
		Pos:       directive.Position(),
		Directive: directive,
	}
}

func (e *UnopenedAccountError) Error() string {
	return fmt.Sprintf("%s: invalid reference to unopened account '%s'", location(e.Pos, e.Date), e.Account)
}

func (e *UnopenedAccountError) Kind() string               { return "UnopenedAccount" }
func (e *UnopenedAccountError) GetPosition() ast.Position  { return e.Pos }
func (e *UnopenedAccountError) GetDirective() ast.Directive { return e.Directive }
func (e *UnopenedAccountError) GetAccount() ast.Account    { return e.Account }

// ClosedAccountError reports a directive referencing an account after its
// close date.
type ClosedAccountError struct {
	Account    ast.Account
	Date       *ast.Date
	ClosedDate *ast.Date
	Pos        ast.Position
	Directive  ast.Directive
}

// NewClosedAccountError creates an error for a reference to an account on a
// date after it was closed.
func NewClosedAccountError(directive ast.Directive, account ast.Account, closedDate *ast.Date) *ClosedAccountError {
	return &ClosedAccountError{
		Account:    account,
		Date:       directive.Date(),
		ClosedDate: closedDate,
		Pos:        directive.Position(),
		Directive:  directive,
	}
}

func (e *ClosedAccountError) Error() string {
	return fmt.Sprintf("%s: invalid reference to account '%s' closed on %s",
		location(e.Pos, e.Date), e.Account, e.ClosedDate)
}

func (e *ClosedAccountError) Kind() string                { return "ClosedAccount" }
func (e *ClosedAccountError) GetPosition() ast.Position   { return e.Pos }
func (e *ClosedAccountError) GetDirective() ast.Directive { return e.Directive }
func (e *ClosedAccountError) GetAccount() ast.Account     { return e.Account }

// MissingCurrencyError reports a posting whose currency is absent from the
// account's Open constraint, or could not be determined at all.
type MissingCurrencyError struct {
	Account   ast.Account
	Currency  string
	Date      *ast.Date
	Pos       ast.Position
	Directive ast.Directive
}

// NewMissingCurrencyError creates an error for a currency the account's
// Open directive does not allow. Currency is empty when no currency could
// be determined for the posting.
func NewMissingCurrencyError(directive ast.Directive, account ast.Account, currency string) *MissingCurrencyError {
	return &MissingCurrencyError{
		Account:   account,
		Currency:  currency,
		Date:      directive.Date(),
		Pos:       directive.Position(),
		Directive: directive,
	}
}

func (e *MissingCurrencyError) Error() string {
	if e.Currency == "" {
		return fmt.Sprintf("%s: no currency could be determined for posting to '%s'",
			location(e.Pos, e.Date), e.Account)
	}
	return fmt.Sprintf("%s: currency %s is not allowed for account '%s'",
		location(e.Pos, e.Date), e.Currency, e.Account)
}

func (e *MissingCurrencyError) Kind() string                { return "MissingCurrency" }
func (e *MissingCurrencyError) GetPosition() ast.Position   { return e.Pos }
func (e *MissingCurrencyError) GetDirective() ast.Directive { return e.Directive }
func (e *MissingCurrencyError) GetAccount() ast.Account     { return e.Account }

// InvalidBookingMethodError reports an Open directive or option naming an
// unknown booking method.
type InvalidBookingMethodError struct {
	Method    string
	Pos       ast.Position
	Directive ast.Directive
}

// NewInvalidBookingMethodError creates an error for an unrecognized booking
// method name.
func NewInvalidBookingMethodError(directive ast.Directive, method string) *InvalidBookingMethodError {
	return &InvalidBookingMethodError{
		Method:    method,
		Pos:       directive.Position(),
		Directive: directive,
	}
}

func (e *InvalidBookingMethodError) Error() string {
	return fmt.Sprintf("%s:%d: invalid booking method %q", e.Pos.Filename, e.Pos.Line, e.Method)
}

func (e *InvalidBookingMethodError) Kind() string                { return "InvalidBookingMethod" }
func (e *InvalidBookingMethodError) GetPosition() ast.Position   { return e.Pos }
func (e *InvalidBookingMethodError) GetDirective() ast.Directive { return e.Directive }

// BookingError reports a transaction the booking pass could not resolve:
// an imbalance beyond tolerance, more than one elided posting, a lot
// selection that failed, or an unresolvable cost.
type BookingError struct {
	Message     string
	Residuals   map[string]decimal.Decimal
	Pos         ast.Position
	Date        *ast.Date
	Transaction *ast.Transaction
}

// NewBookingError creates a booking error for a transaction.
func NewBookingError(txn *ast.Transaction, message string) *BookingError {
	return &BookingError{
		Message:     message,
		Pos:         txn.Position(),
		Date:        txn.EntryDate,
		Transaction: txn,
	}
}

// NewImbalanceError creates a booking error carrying the per-currency
// residuals that remained after interpolation.
func NewImbalanceError(txn *ast.Transaction, residuals map[string]decimal.Decimal) *BookingError {
	return &BookingError{
		Message:     "transaction does not balance: " + formatResiduals(residuals),
		Residuals:   residuals,
		Pos:         txn.Position(),
		Date:        txn.EntryDate,
		Transaction: txn,
	}
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", location(e.Pos, e.Date), e.Message)
}

func (e *BookingError) Kind() string                { return "BookingError" }
func (e *BookingError) GetPosition() ast.Position   { return e.Pos }
func (e *BookingError) GetDirective() ast.Directive { return e.Transaction }

func formatResiduals(residuals map[string]decimal.Decimal) string {
	currencies := make([]string, 0, len(residuals))
	for currency := range residuals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	var buf strings.Builder
	buf.WriteByte('(')
	for i, currency := range currencies {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(residuals[currency].String())
		buf.WriteByte(' ')
		buf.WriteString(currency)
	}
	buf.WriteByte(')')
	return buf.String()
}

// BalanceAssertionError reports a balance directive whose asserted amount
// differs from the account's running inventory by more than the tolerance.
type BalanceAssertionError struct {
	Balance   *ast.Balance
	Expected  decimal.Decimal
	Observed  decimal.Decimal
	Diff      decimal.Decimal
	Tolerance decimal.Decimal
	Pos       ast.Position
}

// NewBalanceAssertionError creates an error for a failed balance assertion.
// The difference is also recorded on the directive as DiffAmount.
func NewBalanceAssertionError(balance *ast.Balance, expected, observed, tolerance decimal.Decimal) *BalanceAssertionError {
	return &BalanceAssertionError{
		Balance:   balance,
		Expected:  expected,
		Observed:  observed,
		Diff:      observed.Sub(expected),
		Tolerance: tolerance,
		Pos:       balance.Position(),
	}
}

func (e *BalanceAssertionError) Error() string {
	return fmt.Sprintf("%s: balance failed for '%s': expected %s %s != accumulated %s %s (%s too much)",
		location(e.Pos, e.Balance.EntryDate), e.Balance.Account,
		e.Expected.String(), e.Balance.Amount.Currency,
		e.Observed.String(), e.Balance.Amount.Currency,
		e.Diff.Abs().String())
}

func (e *BalanceAssertionError) Kind() string                { return "BalanceAssertionFailed" }
func (e *BalanceAssertionError) GetPosition() ast.Position   { return e.Pos }
func (e *BalanceAssertionError) GetDirective() ast.Directive { return e.Balance }
