package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beanquery"
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/options"
	"github.com/robinvdvleuten/beanquery/output"
	"github.com/robinvdvleuten/beanquery/telemetry"
	"github.com/robinvdvleuten/beanquery/wire"
)

// telemetryContext wires a timing collector into the context when the
// global flag asks for it. The returned report function writes the timing
// tree to stderr.
func telemetryContext(globals *Globals, stderr io.Writer) (context.Context, func()) {
	ctx := context.Background()
	if !globals.Telemetry {
		return ctx, func() {}
	}
	collector := telemetry.NewTimingCollector()
	ctx = telemetry.WithCollector(ctx, collector)
	return ctx, func() {
		_, _ = fmt.Fprintln(stderr)
		collector.Report(stderr, output.NewStyles(stderr))
	}
}

type loadResponse struct {
	APIVersion string            `json:"api_version"`
	Entries    []*wire.Directive `json:"entries"`
	Errors     []*wire.Error     `json:"errors"`
	Options    *options.Options  `json:"options"`
}

// LoadCmd runs the full pipeline and emits the booked stream.
type LoadCmd struct {
	File FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *LoadCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	runCtx, report := telemetryContext(globals, ctx.Stderr)
	defer report()

	res := beanquery.New().Load(runCtx, cmd.File.GetAbsoluteFilename(), cmd.File.Contents)
	return respond(ctx.Stdout, &loadResponse{
		APIVersion: beanquery.APIVersion,
		Entries:    wire.EncodeDirectives(res.Directives),
		Errors:     wire.EncodeErrors(res.Errors),
		Options:    res.Options,
	})
}

type loadFullResponse struct {
	loadResponse
	LoadedFiles     []string             `json:"loaded_files"`
	PluginsDeclared []options.PluginSpec `json:"plugins_declared"`
}

// LoadFullCmd loads from a path, optionally with extra plugins appended
// after the declared ones, and reports the loaded file list.
type LoadFullCmd struct {
	Path    string   `help:"Root ledger file." arg:"" type:"existingfile"`
	Plugins []string `help:"Extra plugin names to run after declared ones." name:"plugin"`
}

func (cmd *LoadFullCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := telemetryContext(globals, ctx.Stderr)
	defer report()

	res := beanquery.New().LoadFull(runCtx, cmd.Path, cmd.Plugins)

	declared := make([]options.PluginSpec, 0, len(res.Plugins))
	for _, p := range res.Plugins {
		declared = append(declared, options.PluginSpec{Name: p.Name, Config: p.Config})
	}

	return respond(ctx.Stdout, &loadFullResponse{
		loadResponse: loadResponse{
			APIVersion: beanquery.APIVersion,
			Entries:    wire.EncodeDirectives(res.Directives),
			Errors:     wire.EncodeErrors(res.Errors),
			Options:    res.Options,
		},
		LoadedFiles:     res.Files,
		PluginsDeclared: declared,
	})
}

type validateResponse struct {
	APIVersion string        `json:"api_version"`
	Valid      bool          `json:"valid"`
	Errors     []*wire.Error `json:"errors"`
}

// ValidateCmd reports whether the document loads without errors.
type ValidateCmd struct {
	File FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *ValidateCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	runCtx, report := telemetryContext(globals, ctx.Stderr)
	defer report()

	valid, errs := beanquery.New().Validate(runCtx, cmd.File.GetAbsoluteFilename(), cmd.File.Contents)
	return respond(ctx.Stdout, &validateResponse{
		APIVersion: beanquery.APIVersion,
		Valid:      valid,
		Errors:     wire.EncodeErrors(errs),
	})
}

type entriesResponse struct {
	APIVersion string            `json:"api_version"`
	Entries    []*wire.Directive `json:"entries"`
	Errors     []*wire.Error     `json:"errors"`
}

// ClampCmd truncates a document to [begin, end) with opening summaries.
type ClampCmd struct {
	Begin string      `help:"Window start date (inclusive), YYYY-MM-DD." arg:""`
	End   string      `help:"Window end date (exclusive), YYYY-MM-DD." arg:""`
	File  FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *ClampCmd) Run(ctx *kong.Context, globals *Globals) error {
	begin, err := ast.NewDate(cmd.Begin)
	if err != nil {
		return userError(err)
	}
	end, err := ast.NewDate(cmd.End)
	if err != nil {
		return userError(err)
	}
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	runCtx, report := telemetryContext(globals, ctx.Stderr)
	defer report()

	entries, errs := beanquery.New().Clamp(runCtx, cmd.File.GetAbsoluteFilename(), cmd.File.Contents, begin, end)
	return respond(ctx.Stdout, &entriesResponse{
		APIVersion: beanquery.APIVersion,
		Entries:    wire.EncodeDirectives(entries),
		Errors:     wire.EncodeErrors(errs),
	})
}

// FilterEntriesCmd filters a JSON entry stream, read from stdin as an
// array of wire directives, to a date window.
type FilterEntriesCmd struct {
	Begin string `help:"Window start date (inclusive), YYYY-MM-DD." arg:""`
	End   string `help:"Window end date (exclusive), YYYY-MM-DD." arg:""`
}

func (cmd *FilterEntriesCmd) Run(ctx *kong.Context, globals *Globals) error {
	begin, err := ast.NewDate(cmd.Begin)
	if err != nil {
		return userError(err)
	}
	end, err := ast.NewDate(cmd.End)
	if err != nil {
		return userError(err)
	}

	var encoded []*wire.Directive
	if err := decodeStdin(&encoded); err != nil {
		return userError(err)
	}
	entries, decodeErrs := wire.DecodeDirectives(encoded)

	filtered := beanquery.FilterEntries(entries, begin, end)
	return respond(ctx.Stdout, &entriesResponse{
		APIVersion: beanquery.APIVersion,
		Entries:    wire.EncodeDirectives(filtered),
		Errors:     wire.EncodeErrors(decodeErrs),
	})
}
