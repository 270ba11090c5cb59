package query

import (
	"context"
	"sort"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/shopspring/decimal"
)

// execute runs a compiled query over the canonical directive stream.
func (c *compiled) execute(ctx context.Context, directives ast.Directives) (*Result, error) {
	exec := &executor{
		compiled: c,
		balances: make(map[ast.Account]*ledger.Inventory),
		groups:   make(map[string]*group),
	}

	for _, d := range directives {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		txn, _ := d.(*ast.Transaction)
		if c.from != nil {
			row := &rowContext{entry: d, txn: txn}
			if !c.from.eval(row).(bool) {
				continue
			}
		}
		if txn == nil {
			continue
		}
		for _, p := range txn.Postings {
			exec.applyBalance(p)
			row := &rowContext{entry: d, txn: txn, posting: p, balances: exec.balances}
			if c.where != nil && !c.where.eval(row).(bool) {
				continue
			}
			exec.accumulate(row)
		}
	}

	rows := exec.rows()
	c.order(rows)
	if c.limit != nil && len(rows) > *c.limit {
		rows = rows[:*c.limit]
	}

	columns := make([]Column, len(c.targets))
	for i, t := range c.targets {
		columns[i] = t.column
	}
	return &Result{Columns: columns, Rows: rows}, nil
}

// executor carries per-run state: running balances and the group buffers.
type executor struct {
	compiled *compiled
	balances map[ast.Account]*ledger.Inventory

	grouped    bool
	groups     map[string]*group
	groupOrder []*group
	plainRows  [][]any
}

type group struct {
	cells []any
	aggs  []*aggState
}

type aggState struct {
	kind    aggKind
	typ     Type
	count   int
	sum     decimal.Decimal
	sumInv  *ledger.Inventory
	holding any
	seen    bool
}

// applyBalance folds a posting into the running per-account inventories.
func (e *executor) applyBalance(p *ast.Posting) {
	if p.Units == nil {
		return
	}
	inv, ok := e.balances[p.Account]
	if !ok {
		inv = ledger.NewInventory()
		e.balances[p.Account] = inv
	}
	inv.AddLot(p.Units.Currency, p.Units.Number, p.Cost)
}

// accumulate projects one posting row into the output buffers.
func (e *executor) accumulate(row *rowContext) {
	c := e.compiled
	aggregated := len(c.groupBy) > 0
	for _, t := range c.targets {
		if t.agg != aggNone {
			aggregated = true
		}
	}

	if !aggregated {
		cells := make([]any, len(c.targets))
		for i, t := range c.targets {
			cells[i] = t.arg.eval(row)
		}
		e.plainRows = append(e.plainRows, cells)
		return
	}

	e.grouped = true
	var keyParts []string
	cells := make([]any, len(c.targets))
	for _, idx := range c.groupBy {
		cells[idx] = c.targets[idx].arg.eval(row)
		keyParts = append(keyParts, RenderValue(cells[idx]))
	}
	key := strings.Join(keyParts, "\x00")

	g, ok := e.groups[key]
	if !ok {
		g = &group{cells: cells, aggs: make([]*aggState, len(c.targets))}
		for i, t := range c.targets {
			if t.agg != aggNone {
				g.aggs[i] = &aggState{kind: t.agg, typ: t.column.Type}
			}
		}
		e.groups[key] = g
		e.groupOrder = append(e.groupOrder, g)
	}

	for i, t := range c.targets {
		if t.agg == aggNone {
			continue
		}
		g.aggs[i].observe(t.arg.eval(row))
	}
}

// observe folds one value into an aggregate accumulator.
func (s *aggState) observe(v any) {
	s.count++
	switch s.kind {
	case aggCount:
	case aggFirst:
		if !s.seen {
			s.holding = v
			s.seen = true
		}
	case aggLast:
		s.holding = v
		s.seen = true
	case aggSum:
		switch v := v.(type) {
		case decimal.Decimal:
			s.sum = s.sum.Add(v)
		case int:
			s.sum = s.sum.Add(decimal.NewFromInt(int64(v)))
		case *ast.Amount:
			if s.sumInv == nil {
				s.sumInv = ledger.NewInventory()
			}
			s.sumInv.Add(v.Currency, v.Number)
		case *Position:
			if s.sumInv == nil {
				s.sumInv = ledger.NewInventory()
			}
			if v != nil && v.Units != nil {
				s.sumInv.AddLot(v.Units.Currency, v.Units.Number, v.Cost)
			}
		}
	}
}

// value returns the final cell for an aggregate accumulator.
func (s *aggState) value() any {
	switch s.kind {
	case aggCount:
		return s.count
	case aggFirst, aggLast:
		return s.holding
	case aggSum:
		switch s.typ {
		case TypeInventory:
			if s.sumInv == nil {
				return ledger.NewInventory()
			}
			return s.sumInv
		case TypeInt:
			return int(s.sum.IntPart())
		default:
			return s.sum
		}
	}
	return nil
}

// rows materializes the buffered output.
func (e *executor) rows() [][]any {
	if !e.grouped {
		if e.hasAggregates() {
			// No row matched, but aggregates without GROUP BY still
			// collapse to one row of empty accumulators.
			cells := make([]any, len(e.compiled.targets))
			for i, t := range e.compiled.targets {
				state := &aggState{kind: t.agg, typ: t.column.Type}
				cells[i] = state.value()
			}
			return [][]any{cells}
		}
		return e.plainRows
	}

	out := make([][]any, 0, len(e.groupOrder))
	for _, g := range e.groupOrder {
		cells := make([]any, len(g.cells))
		copy(cells, g.cells)
		for i, s := range g.aggs {
			if s != nil {
				cells[i] = s.value()
			}
		}
		out = append(out, cells)
	}
	return out
}

func (e *executor) hasAggregates() bool {
	for _, t := range e.compiled.targets {
		if t.agg != aggNone {
			return true
		}
	}
	return false
}

// order sorts the rows by the ORDER BY keys, stably so input order breaks
// ties.
func (c *compiled) order(rows [][]any) {
	if len(c.orderBy) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, key := range c.orderBy {
			cmp := compareValues(rows[i][key.index], rows[j][key.index])
			if cmp == 0 {
				continue
			}
			if key.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
