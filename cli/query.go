package cli

import (
	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/beanquery"
	"github.com/robinvdvleuten/beanquery/query"
	"github.com/robinvdvleuten/beanquery/wire"
)

type queryResponse struct {
	APIVersion string         `json:"api_version"`
	Columns    []query.Column `json:"columns"`
	Rows       [][]string     `json:"rows"`
	Errors     []*wire.Error  `json:"errors"`
}

// QueryCmd evaluates one BQL query over the booked stream of a document.
type QueryCmd struct {
	BQL  string      `help:"BQL query text." arg:""`
	File FileOrStdin `help:"Input filename (use '-' or omit for stdin)." arg:"" optional:""`
}

func (cmd *QueryCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return userError(err)
	}
	runCtx, report := telemetryContext(globals, ctx.Stderr)
	defer report()

	result, errs := beanquery.New().Query(runCtx, cmd.File.GetAbsoluteFilename(), cmd.File.Contents, cmd.BQL)

	response := &queryResponse{
		APIVersion: beanquery.APIVersion,
		Errors:     wire.EncodeErrors(errs),
	}
	if result != nil {
		response.Columns = result.Columns
		response.Rows = renderRows(result.Rows)
	}
	return respond(ctx.Stdout, response)
}

// renderRows turns typed row values into their display strings; the typed
// columns describe what each string means.
func renderRows(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		rendered := make([]string, len(row))
		for j, value := range row {
			rendered[j] = query.RenderValue(value)
		}
		out[i] = rendered
	}
	return out
}
