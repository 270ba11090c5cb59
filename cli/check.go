package cli

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beanquery"
	"github.com/robinvdvleuten/beanquery/telemetry"
)

// CheckCmd loads, books and validates a document, reporting errors in a
// human readable form.
type CheckCmd struct {
	File FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}

	runCtx, report := telemetryContext(globals, ctx.Stderr)
	var once sync.Once
	reportOnce := func() { once.Do(report) }
	defer reportOnce()

	if globals.Telemetry {
		collector := telemetry.FromContext(runCtx)
		timer := collector.Start(fmt.Sprintf("check %s", filepath.Base(cmd.File.Filename)))
		defer timer.End()
	}

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return userError(fmt.Errorf("failed to read file for error context: %w", err))
	}

	res := beanquery.New().Load(runCtx, cmd.File.GetAbsoluteFilename(), cmd.File.Contents)
	if !res.Valid() {
		renderer := NewErrorRenderer(sourceContent)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(res.Errors))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%d error(s) found", len(res.Errors)))

		reportOnce()
		return NewCommandError(ExitUserError)
	}

	printSuccess(ctx.Stdout, "Check passed")
	return nil
}
