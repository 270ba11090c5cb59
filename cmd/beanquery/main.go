package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beanquery/cli"
)

func main() {
	var commands cli.Commands
	ctx := kong.Parse(&commands,
		kong.Name("beanquery"),
		kong.Description("Ledger loading, booking and query engine."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&commands.Globals)
	if err == nil {
		return
	}

	var cmdErr *cli.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.HasMessage() {
			_, _ = fmt.Fprintln(os.Stderr, cmdErr.Error())
		}
		os.Exit(cmdErr.ExitCode())
	}

	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(cli.ExitInternalError)
}
