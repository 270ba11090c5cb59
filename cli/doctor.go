package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/beanquery/parser"
)

// DoctorCmd groups development utilities for debugging documents.
type DoctorCmd struct {
	Lex  LexCmd  `cmd:"" help:"Show lexical tokens from a document."`
	Dump DumpCmd `cmd:"" help:"Dump the parsed syntax tree."`
}

// LexCmd shows lexical tokens from a document.
type LexCmd struct {
	File FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *LexCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	content, err := cmd.File.GetSourceContent()
	if err != nil {
		return userError(fmt.Errorf("failed to read file: %w", err))
	}

	lexer := parser.NewLexer(cmd.File.Filename, content)
	tokens, lexErrs := lexer.ScanAll()

	for _, token := range tokens {
		if token.Type == parser.EOF {
			continue
		}
		_, _ = fmt.Fprintf(ctx.Stdout, "%-10s %d:%d    %q\n",
			token.Type.String(),
			token.Line,
			token.Column,
			token.String(content))
	}

	if len(lexErrs) > 0 {
		for _, err := range lexErrs {
			_, _ = fmt.Fprintln(ctx.Stderr, err)
		}
		return NewCommandError(ExitUserError)
	}
	return nil
}

// DumpCmd parses a document and dumps the syntax tree.
type DumpCmd struct {
	File FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *DumpCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	content, err := cmd.File.GetSourceContent()
	if err != nil {
		return userError(fmt.Errorf("failed to read file: %w", err))
	}

	file, parseErrs := parser.Parse(cmd.File.Filename, content)
	repr.New(ctx.Stdout, repr.Indent("  ")).Println(file)

	for _, err := range parseErrs {
		_, _ = fmt.Fprintln(ctx.Stderr, err)
	}
	if len(parseErrs) > 0 {
		return NewCommandError(ExitUserError)
	}
	return nil
}
