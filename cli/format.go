package cli

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beanquery"
	"github.com/robinvdvleuten/beanquery/errors"
	"github.com/robinvdvleuten/beanquery/formatter"
	"github.com/robinvdvleuten/beanquery/wire"
)

type formatResponse struct {
	APIVersion string        `json:"api_version"`
	Formatted  string        `json:"formatted"`
	Errors     []*wire.Error `json:"errors"`
}

// FormatCmd re-emits a document in canonical form. By default the result
// is a JSON response; --write rewrites the file in place after a
// confirmation prompt, --raw prints the plain text.
type FormatCmd struct {
	File           FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
	CurrencyColumn int         `help:"Column for currency alignment (derived from content if 0)." default:"0"`
	Write          bool        `help:"Rewrite the file in place." short:"w"`
	Raw            bool        `help:"Print the formatted text instead of JSON."`
}

func (cmd *FormatCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	source, err := cmd.File.GetSourceContent()
	if err != nil {
		return userError(err)
	}

	var opts []formatter.Option
	if cmd.CurrencyColumn > 0 {
		opts = append(opts, formatter.WithCurrencyColumn(cmd.CurrencyColumn))
	}

	formatted, errs := beanquery.New().Format(cmd.File.GetAbsoluteFilename(), source, opts...)

	if cmd.Write {
		if cmd.File.Filename == "<stdin>" {
			return userError(fmt.Errorf("cannot write in place when reading from stdin"))
		}
		if len(errs) > 0 {
			tf := errors.NewTextFormatter(nil, errors.WithSource(source))
			_, _ = fmt.Fprintln(ctx.Stderr, tf.FormatAll(errs))
			printError(ctx.Stderr, "not writing a file that does not parse cleanly")
			return NewCommandError(ExitUserError)
		}
		confirmed, err := promptYesNo(fmt.Sprintf("Rewrite %s in place?", cmd.File.Filename))
		if err != nil {
			return internalError(err)
		}
		if !confirmed {
			printError(ctx.Stderr, "aborted")
			return NewCommandError(ExitUserError)
		}
		if err := os.WriteFile(cmd.File.Filename, []byte(formatted), 0o644); err != nil {
			return internalError(err)
		}
		printSuccess(ctx.Stderr, fmt.Sprintf("Formatted %s", cmd.File.Filename))
		return nil
	}

	if cmd.Raw {
		_, _ = fmt.Fprint(ctx.Stdout, formatted)
		return nil
	}

	return respond(ctx.Stdout, &formatResponse{
		APIVersion: beanquery.APIVersion,
		Formatted:  formatted,
		Errors:     wire.EncodeErrors(errs),
	})
}

type formatEntryResponse struct {
	APIVersion string `json:"api_version"`
	Formatted  string `json:"formatted"`
}

// FormatEntryCmd renders one wire-encoded entry, read from stdin as JSON,
// as canonical source text.
type FormatEntryCmd struct{}

func (cmd *FormatEntryCmd) Run(ctx *kong.Context, globals *Globals) error {
	var entry wire.Directive
	if err := decodeStdin(&entry); err != nil {
		return userError(err)
	}
	formatted, err := beanquery.FormatEntry(&entry)
	if err != nil {
		return userError(err)
	}
	return respond(ctx.Stdout, &formatEntryResponse{
		APIVersion: beanquery.APIVersion,
		Formatted:  formatted,
	})
}

type createEntryResponse struct {
	APIVersion string          `json:"api_version"`
	Entry      *wire.Directive `json:"entry"`
}

// CreateEntryCmd completes one wire-encoded entry, read from stdin as
// JSON, with its semantic hash.
type CreateEntryCmd struct{}

func (cmd *CreateEntryCmd) Run(ctx *kong.Context, globals *Globals) error {
	var entry wire.Directive
	if err := decodeStdin(&entry); err != nil {
		return userError(err)
	}
	completed, err := beanquery.CreateEntry(&entry)
	if err != nil {
		return userError(err)
	}
	return respond(ctx.Stdout, &createEntryResponse{
		APIVersion: beanquery.APIVersion,
		Entry:      completed,
	})
}
