// Package beanquery is the ledger loading and evaluation core. It wires
// the pipeline together: the loader resolves includes and decrypts,
// plugins transform the stream, the ledger books and validates it, and the
// query engine evaluates BQL over the result.
//
// Every operation is a pure function of its inputs plus the file system
// for reads. Errors accumulate; a load always yields a usable stream.
//
// Example:
//
//	core := beanquery.New()
//	res := core.Load(ctx, "main.beancount", nil)
//	for _, err := range res.Errors {
//		fmt.Println(err)
//	}
package beanquery

import (
	"context"
	"sort"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/formatter"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/robinvdvleuten/beanquery/loader"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/parser"
	"github.com/robinvdvleuten/beanquery/plugin"
	"github.com/robinvdvleuten/beanquery/query"
	"github.com/robinvdvleuten/beanquery/wire"
	"github.com/rs/zerolog"
)

// APIVersion is the wire protocol version on every facade response.
// Callers reject incompatible majors.
const APIVersion = wire.APIVersion

// LoadResult is the outcome of one full pipeline run.
type LoadResult struct {
	// Directives is the booked, canonically sorted, hashed stream.
	Directives ast.Directives

	// Options is the extracted options record with display precision,
	// commodities, includes and input hash filled in.
	Options *options.Options

	// Files lists every loaded file in load order, the root first.
	Files []string

	// Plugins lists plugin declarations across all loaded files.
	Plugins []*ast.Plugin

	// Errors accumulates loader, plugin and validation errors.
	Errors []error
}

// Valid reports whether the load produced no errors.
func (r *LoadResult) Valid() bool { return len(r.Errors) == 0 }

// Core runs the pipeline. The zero value is not usable; construct with New.
type Core struct {
	loader *loader.Loader
	runner *plugin.Runner
}

// Option configures a Core.
type Option func(*Core)

// WithLoader replaces the default loader, e.g. to adjust the GPG timeout.
func WithLoader(l *loader.Loader) Option {
	return func(c *Core) { c.loader = l }
}

// WithLogger routes pipeline diagnostics to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Core) {
		c.loader = loader.New(loader.WithLogger(log))
		c.runner = plugin.NewRunner(plugin.WithLogger(log))
	}
}

// New creates a Core with default loader and plugin runner.
func New(opts ...Option) *Core {
	c := &Core{
		loader: loader.New(),
		runner: plugin.NewRunner(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load runs the full pipeline over one root document. A nil source reads
// the file from disk; otherwise source is the root content and filename
// anchors include resolution.
func (c *Core) Load(ctx context.Context, filename string, source []byte) *LoadResult {
	return c.load(ctx, filename, source, nil)
}

// LoadFull is Load plus extra plugin names appended after the declared
// ones, mirroring plugins passed on the command line.
func (c *Core) LoadFull(ctx context.Context, filename string, plugins []string) *LoadResult {
	return c.load(ctx, filename, nil, plugins)
}

func (c *Core) load(ctx context.Context, filename string, source []byte, extraPlugins []string) *LoadResult {
	var loaded *loader.Result
	var err error
	if source == nil {
		loaded, err = c.loader.Load(ctx, filename)
	} else {
		loaded, err = c.loader.LoadSource(ctx, filename, source)
	}
	if err != nil {
		return &LoadResult{Options: options.Default(), Errors: []error{err}}
	}

	opts := loaded.Options
	for _, name := range extraPlugins {
		opts.Plugin = append(opts.Plugin, options.PluginSpec{Name: name})
	}

	errs := loaded.Errors
	directives := loaded.Directives
	ast.SortDirectives(directives)

	directives, pluginErrs := c.runner.Run(ctx, directives, opts)
	errs = append(errs, pluginErrs...)
	ast.SortDirectives(directives)

	booked, err := ledger.New(opts).Process(ctx, directives)
	if err != nil {
		if verrs, ok := err.(*ledger.ValidationErrors); ok {
			errs = append(errs, verrs.Errors...)
		} else {
			errs = append(errs, err)
		}
	}

	dc := ledger.BuildDisplayContext(booked)
	opts.DisplayPrecision = dc.Precisions()
	opts.Commodities = collectCommodities(booked)

	ast.HashDirectives(booked)

	return &LoadResult{
		Directives: booked,
		Options:    opts,
		Files:      loaded.Files,
		Plugins:    loaded.Plugins,
		Errors:     errs,
	}
}

// Validate loads the document and reports whether it is error free.
func (c *Core) Validate(ctx context.Context, filename string, source []byte) (bool, []error) {
	res := c.Load(ctx, filename, source)
	return res.Valid(), res.Errors
}

// Query loads the document and evaluates one BQL query over the booked
// stream. Load errors do not block evaluation; they come back alongside
// the result.
func (c *Core) Query(ctx context.Context, filename string, source []byte, bql string) (*query.Result, []error) {
	res := c.Load(ctx, filename, source)
	result, err := query.New(bql).Run(ctx, res.Directives)
	if err != nil {
		return nil, append(res.Errors, err)
	}
	return result, res.Errors
}

// Format re-emits the document in whitespace-canonical form. Parse errors
// come back alongside the best-effort output.
func (c *Core) Format(filename string, source []byte, opts ...formatter.Option) (string, []error) {
	file, errs := parser.Parse(filename, source)

	var buf strings.Builder
	if err := formatter.New(opts...).Format(file, source, &buf); err != nil {
		return "", append(errs, err)
	}
	return buf.String(), errs
}

// FormatEntry renders one wire-encoded directive in canonical form.
func FormatEntry(entry *wire.Directive) (string, error) {
	directive, err := wire.DecodeDirective(entry)
	if err != nil {
		return "", err
	}
	return formatter.New().FormatDirective(directive), nil
}

// CreateEntry materializes a wire-encoded directive: the date and fields
// are validated, the semantic hash computed, and the completed entry
// returned in wire form.
func CreateEntry(entry *wire.Directive) (*wire.Directive, error) {
	directive, err := wire.DecodeDirective(entry)
	if err != nil {
		return nil, err
	}
	ast.HashDirectives(ast.Directives{directive})
	return wire.EncodeDirective(directive), nil
}

// IsEncrypted reports whether the file at path looks GPG-encrypted.
func IsEncrypted(path string) bool {
	return loader.IsEncrypted(path)
}

// AccountType maps an account name to its root category under the given
// options record; nil means the default root names.
func AccountType(account string, opts *options.Options) (string, error) {
	if opts == nil {
		opts = options.Default()
	}
	acct, err := ast.NewAccount(account)
	if err != nil {
		return "", err
	}
	return opts.AccountType(acct), nil
}

// Types enumerates the directive kinds and booking methods the core
// understands, for callers that build editors or validators on top.
type Types struct {
	AllDirectives  []string `json:"all_directives"`
	BookingMethods []string `json:"booking_methods"`
	AccountRoots   []string `json:"account_roots"`
}

// AllTypes returns the type enumeration under the given options record;
// nil means the default root names.
func AllTypes(opts *options.Options) *Types {
	if opts == nil {
		opts = options.Default()
	}
	kinds := ast.AllKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return &Types{
		AllDirectives:  names,
		BookingMethods: options.BookingMethods,
		AccountRoots: []string{
			opts.NameAssets, opts.NameLiabilities, opts.NameEquity,
			opts.NameIncome, opts.NameExpenses,
		},
	}
}

// collectCommodities gathers every currency referenced by the stream:
// commodity declarations, posting units and costs, prices and balances.
func collectCommodities(directives ast.Directives) []string {
	seen := make(map[string]bool)
	add := func(currency string) {
		if currency != "" {
			seen[currency] = true
		}
	}
	for _, d := range directives {
		switch d := d.(type) {
		case *ast.Commodity:
			add(d.Currency)
		case *ast.Balance:
			add(d.Amount.Currency)
		case *ast.Price:
			add(d.Currency)
			add(d.Amount.Currency)
		case *ast.Transaction:
			for _, p := range d.Postings {
				if p.Units != nil {
					add(p.Units.Currency)
				}
				if p.Cost != nil {
					add(p.Cost.Currency)
				}
				if p.Price != nil {
					add(p.Price.Currency)
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for currency := range seen {
		out = append(out, currency)
	}
	sort.Strings(out)
	return out
}
