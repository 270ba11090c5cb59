package beanquery

import (
	"context"
	"fmt"
	"sort"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/robinvdvleuten/beanquery/options"
)

// Clamp loads the document and truncates the booked stream to [begin, end):
// directives dated before begin are replaced by summary transactions at
// begin that equalize each account to its inventory just before begin, and
// directives dated at or after end are dropped. The returned stream is
// sorted and hashed.
func (c *Core) Clamp(ctx context.Context, filename string, source []byte, begin, end *ast.Date) (ast.Directives, []error) {
	res := c.Load(ctx, filename, source)

	var prefix, kept ast.Directives
	for _, d := range res.Directives {
		date := d.Date()
		switch {
		case date.Before(begin.Time):
			prefix = append(prefix, d)
		case date.Before(end.Time):
			kept = append(kept, d)
		}
	}

	summaries := summarize(ctx, prefix, begin, res.Options)
	kept = append(summaries, kept...)
	ast.SortDirectives(kept)
	ast.HashDirectives(kept)
	return kept, res.Errors
}

// summarize re-books the prefix stream and emits one opening-balance
// transaction per account holding a non-empty inventory just before the
// clamp date.
func summarize(ctx context.Context, prefix ast.Directives, date *ast.Date, opts *options.Options) ast.Directives {
	// The prefix is a slice of an already validated stream; booking errors
	// here were reported by the load.
	l := ledger.New(opts)
	_, _ = l.Process(ctx, prefix)

	equity := ast.Account(opts.NameEquity + ":" + opts.AccountPreviousBalances)

	accounts := l.Accounts()
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	var out ast.Directives
	for _, name := range names {
		account := accounts[name]
		if account.Inventory.IsEmpty() {
			continue
		}

		txn := &ast.Transaction{
			EntryDate: date,
			Flag:      "S",
			Narration: fmt.Sprintf("Opening balance for '%s' (Summarization)", name),
		}
		for _, lot := range account.Inventory.AllLots() {
			txn.Postings = append(txn.Postings, &ast.Posting{
				Account: account.Name,
				Units:   &ast.Amount{Number: lot.Units, Currency: lot.Currency},
				Cost:    lot.Cost,
			})
			if lot.Cost != nil {
				txn.Postings = append(txn.Postings, &ast.Posting{
					Account: equity,
					Units: &ast.Amount{
						Number:   lot.Units.Mul(lot.Cost.Number).Neg(),
						Currency: lot.Cost.Currency,
					},
				})
			} else {
				txn.Postings = append(txn.Postings, &ast.Posting{
					Account: equity,
					Units:   &ast.Amount{Number: lot.Units.Neg(), Currency: lot.Currency},
				})
			}
		}
		out = append(out, txn)
	}
	return out
}

// FilterEntries narrows a directive stream to a date window without
// injecting summaries: Open survives while it predates end, Close survives
// from begin on, Commodity never survives, and everything else is kept iff
// begin <= date < end.
func FilterEntries(entries ast.Directives, begin, end *ast.Date) ast.Directives {
	out := make(ast.Directives, 0, len(entries))
	for _, d := range entries {
		date := d.Date()
		switch d.(type) {
		case *ast.Open:
			if date.Before(end.Time) {
				out = append(out, d)
			}
		case *ast.Close:
			if !date.Before(begin.Time) {
				out = append(out, d)
			}
		case *ast.Commodity:
		default:
			if !date.Before(begin.Time) && date.Before(end.Time) {
				out = append(out, d)
			}
		}
	}
	return out
}
