// Package query implements BQL, a small SQL-like language evaluated over
// the canonical directive stream. A query moves through parse, compile and
// execute phases; each phase can be inspected, and any failure leaves the
// query in a terminal failed state with a typed error.
//
// Example usage:
//
//	q := query.New(`SELECT account, sum(position) GROUP BY account`)
//	result, err := q.Run(ctx, directives)
package query

import (
	"context"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/telemetry"
)

// State tracks a query through its phases.
type State int

const (
	StateIdle State = iota
	StateParsed
	StateCompiled
	StateExecuted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateParsed:
		return "PARSED"
	case StateCompiled:
		return "COMPILED"
	case StateExecuted:
		return "EXECUTED"
	default:
		return "FAILED"
	}
}

// Query is one BQL query and its phase state.
type Query struct {
	text     string
	state    State
	stmt     *selectStmt
	compiled *compiled
	result   *Result
	err      error
}

// New creates a query in the idle state.
func New(text string) *Query {
	return &Query{text: text}
}

// Text returns the query source.
func (q *Query) Text() string { return q.text }

// State returns the current phase.
func (q *Query) State() State { return q.state }

// Err returns the error that moved the query to the failed state.
func (q *Query) Err() error { return q.err }

// Result returns the rows once the query has executed.
func (q *Query) Result() *Result { return q.result }

func (q *Query) fail(err error) error {
	q.state = StateFailed
	q.err = err
	return err
}

// Parse checks the query against the grammar.
func (q *Query) Parse() error {
	if q.state != StateIdle {
		return q.err
	}
	stmt, err := parse(q.text)
	if err != nil {
		return q.fail(err)
	}
	q.stmt = stmt
	q.state = StateParsed
	return nil
}

// Compile resolves columns and type-checks the parsed query.
func (q *Query) Compile() error {
	if q.state == StateIdle {
		if err := q.Parse(); err != nil {
			return err
		}
	}
	if q.state != StateParsed {
		return q.err
	}
	compiled, err := compile(q.text, q.stmt)
	if err != nil {
		return q.fail(err)
	}
	q.compiled = compiled
	q.state = StateCompiled
	return nil
}

// Columns returns the typed output columns once the query has compiled.
func (q *Query) Columns() []Column {
	if q.compiled == nil {
		return nil
	}
	columns := make([]Column, len(q.compiled.targets))
	for i, t := range q.compiled.targets {
		columns[i] = t.column
	}
	return columns
}

// Execute runs the compiled query over a directive stream.
func (q *Query) Execute(ctx context.Context, directives ast.Directives) (*Result, error) {
	if q.state != StateCompiled {
		if err := q.Compile(); err != nil {
			return nil, err
		}
	}
	timer := telemetry.StartTimer(ctx, "query.execute")
	defer timer.End()

	result, err := q.compiled.execute(ctx, directives)
	if err != nil {
		return nil, q.fail(err)
	}
	q.result = result
	q.state = StateExecuted
	return result, nil
}

// Run takes a query through all three phases.
func (q *Query) Run(ctx context.Context, directives ast.Directives) (*Result, error) {
	return q.Execute(ctx, directives)
}
