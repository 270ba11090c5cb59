package ledger

import (
	"github.com/robinvdvleuten/beanquery/ast"
)

// Account is the running state of one account: the open/close window, the
// currency constraint and booking method from the Open directive, and the
// inventory accumulated by processing transactions in date order.
type Account struct {
	Name       ast.Account
	OpenDate   *ast.Date
	CloseDate  *ast.Date
	Currencies []string
	Booking    string
	Metadata   []*ast.Metadata
	Inventory  *Inventory
}

// IsOpen reports whether the account accepts postings on the given date.
// Postings are allowed on the close date itself but not after it.
func (a *Account) IsOpen(date *ast.Date) bool {
	if a.OpenDate == nil || a.OpenDate.After(date.Time) {
		return false
	}
	if a.CloseDate != nil && date.After(a.CloseDate.Time) {
		return false
	}
	return true
}

// IsClosed reports whether a close directive has been processed.
func (a *Account) IsClosed() bool {
	return a.CloseDate != nil
}

// AllowsCurrency checks the Open directive's currency constraint. An Open
// without currencies allows everything.
func (a *Account) AllowsCurrency(currency string) bool {
	if len(a.Currencies) == 0 {
		return true
	}
	for _, c := range a.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}
