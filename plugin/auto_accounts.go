package plugin

import (
	"context"
	"sort"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
)

func init() {
	Register(&Func{PluginName: "auto_accounts", RunFunc: autoAccounts})
}

// autoAccounts synthesizes an Open for every account referenced without
// one, dated to the earliest referring directive. The synthetic Open has
// no currency constraint and the default booking method, so it never
// tightens what the ledger would accept.
func autoAccounts(ctx context.Context, directives ast.Directives, opts *options.Options, config string) (ast.Directives, []error) {
	opened := make(map[ast.Account]bool)
	for _, d := range directives {
		if open, ok := d.(*ast.Open); ok {
			opened[open.Account] = true
		}
	}

	type firstRef struct {
		date     *ast.Date
		filename string
	}
	refs := make(map[ast.Account]firstRef)
	record := func(account ast.Account, d ast.Directive) {
		if account == "" || opened[account] {
			return
		}
		ref, ok := refs[account]
		if !ok || d.Date().Before(ref.date.Time) {
			refs[account] = firstRef{date: d.Date(), filename: d.Position().Filename}
		}
	}

	for _, d := range directives {
		switch d := d.(type) {
		case *ast.Transaction:
			for _, p := range d.Postings {
				record(p.Account, d)
			}
		case *ast.Balance:
			record(d.Account, d)
		case *ast.Pad:
			record(d.Account, d)
			record(d.AccountPad, d)
		case *ast.Note:
			record(d.Account, d)
		case *ast.Document:
			record(d.Account, d)
		case *ast.Close:
			record(d.Account, d)
		}
	}

	if len(refs) == 0 {
		return directives, nil
	}

	accounts := make([]ast.Account, 0, len(refs))
	for account := range refs {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	opens := make(ast.Directives, 0, len(accounts))
	for _, account := range accounts {
		ref := refs[account]
		opens = append(opens, &ast.Open{
			Pos:       ast.Position{Filename: ref.filename},
			EntryDate: ref.date,
			Account:   account,
		})
	}

	out := make(ast.Directives, 0, len(opens)+len(directives))
	out = append(out, opens...)
	out = append(out, directives...)
	return out, nil
}
