// Package plugin rewrites the directive stream between loading and booking.
// Plugins are declared in the ledger with "plugin" lines and run in
// declaration order. A name resolves against the compile-time registry
// first, then against an executable spoken to over JSON. A plugin that
// fails contributes one error and leaves the stream unchanged; the
// pipeline always continues.
package plugin

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/telemetry"
	"github.com/rs/zerolog"
)

// Plugin transforms a directive stream. Run returns the rewritten stream
// and any diagnostics; it must not mutate shared state, as the runner
// offers plugins a strictly sequential view.
type Plugin interface {
	Name() string
	Run(ctx context.Context, directives ast.Directives, opts *options.Options, config string) (ast.Directives, []error)
}

// Func adapts a function to the Plugin interface.
type Func struct {
	PluginName string
	RunFunc    func(ctx context.Context, directives ast.Directives, opts *options.Options, config string) (ast.Directives, []error)
}

func (f *Func) Name() string { return f.PluginName }

func (f *Func) Run(ctx context.Context, directives ast.Directives, opts *options.Options, config string) (ast.Directives, []error) {
	return f.RunFunc(ctx, directives, opts, config)
}

var registry = map[string]Plugin{}

// Register adds a plugin to the compile-time registry. It panics on a
// duplicate name and is meant to be called from init functions.
func Register(p Plugin) {
	name := p.Name()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("plugin %q registered twice", name))
	}
	registry[name] = p
}

// Lookup resolves a plugin name against the registry. Dotted module paths
// such as "beancount.plugins.auto_accounts" also match a plugin registered
// under their last segment.
func Lookup(name string) (Plugin, bool) {
	if p, ok := registry[name]; ok {
		return p, true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		if p, ok := registry[name[i+1:]]; ok {
			return p, true
		}
	}
	return nil, false
}

// Runner executes the plugins a ledger declares.
type Runner struct {
	log zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger routes plugin progress to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run applies every declared plugin to the stream in declaration order.
// Each plugin sees the output of its predecessor; a plugin that cannot be
// resolved or that fails contributes one error and passes the stream
// through unchanged.
func (r *Runner) Run(ctx context.Context, directives ast.Directives, opts *options.Options) (ast.Directives, []error) {
	var errs []error
	for _, spec := range opts.Plugin {
		timer := telemetry.StartTimer(ctx, "plugin.run "+spec.Name)
		out, runErrs := r.runOne(ctx, spec, directives, opts)
		timer.End()

		r.log.Debug().
			Str("plugin", spec.Name).
			Int("directives", len(out)).
			Int("errors", len(runErrs)).
			Msg("plugin applied")

		directives = out
		errs = append(errs, runErrs...)
	}
	return directives, errs
}

func (r *Runner) runOne(ctx context.Context, spec options.PluginSpec, directives ast.Directives, opts *options.Options) (out ast.Directives, errs []error) {
	p, ok := Lookup(spec.Name)
	if !ok {
		path, err := exec.LookPath(spec.Name)
		if err != nil {
			return directives, []error{&LoadError{Name: spec.Name, Err: err}}
		}
		p = &Subprocess{PluginName: spec.Name, Path: path, Log: r.log}
	}

	// A panicking plugin must not take the load down with it.
	defer func() {
		if rec := recover(); rec != nil {
			out = directives
			errs = []error{&RuntimeError{Name: spec.Name, Err: fmt.Errorf("panic: %v", rec)}}
		}
	}()

	rewritten, runErrs := p.Run(ctx, directives, opts, spec.Config)
	for _, err := range runErrs {
		if _, fatal := err.(*RuntimeError); fatal {
			return directives, runErrs
		}
	}
	if rewritten == nil {
		rewritten = directives
	}
	return rewritten, runErrs
}
