package wire

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// DecodeDirectives converts a wire stream back into directives. Decoding
// is total: malformed entries produce an error and are dropped from the
// stream.
func DecodeDirectives(directives []*Directive) (ast.Directives, []error) {
	var out ast.Directives
	var errs []error
	for i, w := range directives {
		d, err := DecodeDirective(w)
		if err != nil {
			errs = append(errs, fmt.Errorf("directive %d: %w", i, err))
			continue
		}
		out = append(out, d)
	}
	return out, errs
}

// DecodeDirective converts one wire directive back into its ast form.
func DecodeDirective(w *Directive) (ast.Directive, error) {
	date, err := ast.NewDate(w.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", w.Date, err)
	}
	pos, meta := decodeMeta(w.Meta)

	var out ast.Directive
	switch w.Kind {
	case string(ast.KindOpen):
		out = &ast.Open{Pos: pos, EntryDate: date, Account: ast.Account(w.Account), Currencies: w.Currencies, Booking: w.Booking}
	case string(ast.KindClose):
		out = &ast.Close{Pos: pos, EntryDate: date, Account: ast.Account(w.Account)}
	case string(ast.KindCommodity):
		out = &ast.Commodity{Pos: pos, EntryDate: date, Currency: w.Currency}
	case string(ast.KindBalance):
		amount, err := decodeAmount(w.Amount)
		if err != nil {
			return nil, err
		}
		diff, err := decodeAmount(w.DiffAmount)
		if err != nil {
			return nil, err
		}
		balance := &ast.Balance{Pos: pos, EntryDate: date, Account: ast.Account(w.Account), Amount: amount, DiffAmount: diff}
		if w.Tolerance != nil {
			tolerance, err := decimal.NewFromString(*w.Tolerance)
			if err != nil {
				return nil, fmt.Errorf("invalid tolerance %q: %w", *w.Tolerance, err)
			}
			balance.Tolerance = &tolerance
		}
		out = balance
	case string(ast.KindPad):
		out = &ast.Pad{Pos: pos, EntryDate: date, Account: ast.Account(w.Account), AccountPad: ast.Account(w.SourceAccount)}
	case string(ast.KindNote):
		out = &ast.Note{Pos: pos, EntryDate: date, Account: ast.Account(w.Account), Comment: w.Comment}
	case string(ast.KindDocument):
		out = &ast.Document{Pos: pos, EntryDate: date, Account: ast.Account(w.Account), Path: w.Filename, Tags: decodeTags(w.Tags), Links: decodeLinks(w.Links)}
	case string(ast.KindPrice):
		amount, err := decodeAmount(w.Amount)
		if err != nil {
			return nil, err
		}
		out = &ast.Price{Pos: pos, EntryDate: date, Currency: w.Currency, Amount: amount}
	case string(ast.KindEvent):
		out = &ast.Event{Pos: pos, EntryDate: date, Name: w.EventName, Value: w.EventValue}
	case string(ast.KindQuery):
		out = &ast.Query{Pos: pos, EntryDate: date, Name: w.Name, Contents: w.Contents}
	case string(ast.KindCustom):
		custom := &ast.Custom{Pos: pos, EntryDate: date, Type: w.CustomType}
		for _, v := range w.CustomValues {
			value := v
			custom.Values = append(custom.Values, &ast.CustomValue{String: &value})
		}
		out = custom
	case string(ast.KindTransaction):
		txn := &ast.Transaction{Pos: pos, EntryDate: date, Flag: w.Flag, Payee: w.Payee, Narration: w.Narration, Tags: decodeTags(w.Tags), Links: decodeLinks(w.Links)}
		for _, p := range w.Postings {
			posting, err := decodePosting(p, pos)
			if err != nil {
				return nil, err
			}
			txn.Postings = append(txn.Postings, posting)
		}
		out = txn
	default:
		return nil, fmt.Errorf("unknown directive kind %q", w.Kind)
	}

	out.AddMetadata(meta...)
	return out, nil
}

func decodePosting(w *Posting, pos ast.Position) (*ast.Posting, error) {
	units, err := decodeAmount(w.Units)
	if err != nil {
		return nil, err
	}
	price, err := decodeAmount(w.Price)
	if err != nil {
		return nil, err
	}
	cost, err := decodeCost(w.Cost)
	if err != nil {
		return nil, err
	}
	spec, err := decodeCostSpec(w.CostSpec)
	if err != nil {
		return nil, err
	}

	out := &ast.Posting{
		Pos:          pos,
		Flag:         w.Flag,
		Account:      ast.Account(w.Account),
		Units:        units,
		Cost:         cost,
		CostSpec:     spec,
		Price:        price,
		Interpolated: w.Interpolated,
	}
	for _, key := range sortedKeys(w.Meta) {
		value := renderMetaValue(w.Meta[key])
		out.AddMetadata(&ast.Metadata{Key: key, Value: &ast.MetadataValue{String: &value}})
	}
	return out, nil
}

func decodeAmount(w *Amount) (*ast.Amount, error) {
	if w == nil {
		return nil, nil
	}
	number, err := decimal.NewFromString(w.Number)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", w.Number, err)
	}
	return &ast.Amount{Number: number, Currency: w.Currency}, nil
}

func decodeCost(w *Cost) (*ast.Cost, error) {
	if w == nil {
		return nil, nil
	}
	number, err := decimal.NewFromString(w.Number)
	if err != nil {
		return nil, fmt.Errorf("invalid cost number %q: %w", w.Number, err)
	}
	out := &ast.Cost{Number: number, Currency: w.Currency, Label: w.Label}
	if w.Date != "" {
		date, err := ast.NewDate(w.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid cost date %q: %w", w.Date, err)
		}
		out.Date = date
	}
	return out, nil
}

func decodeCostSpec(w *CostSpec) (*ast.CostSpec, error) {
	if w == nil {
		return nil, nil
	}
	out := &ast.CostSpec{Currency: w.Currency, Label: w.Label}
	if w.NumberPer != nil {
		per, err := decimal.NewFromString(*w.NumberPer)
		if err != nil {
			return nil, fmt.Errorf("invalid cost number %q: %w", *w.NumberPer, err)
		}
		out.NumberPer = &per
	}
	if w.NumberTotal != nil {
		total, err := decimal.NewFromString(*w.NumberTotal)
		if err != nil {
			return nil, fmt.Errorf("invalid cost number %q: %w", *w.NumberTotal, err)
		}
		out.NumberTotal = &total
	}
	if w.Date != "" {
		date, err := ast.NewDate(w.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid cost date %q: %w", w.Date, err)
		}
		out.Date = date
	}
	return out, nil
}

func decodeTags(tags []string) []ast.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]ast.Tag, len(tags))
	for i, t := range tags {
		out[i] = ast.Tag(t)
	}
	return out
}

func decodeLinks(links []string) []ast.Link {
	if len(links) == 0 {
		return nil
	}
	out := make([]ast.Link, len(links))
	for i, l := range links {
		out[i] = ast.Link(l)
	}
	return out
}

// decodeMeta splits the reserved filename/lineno keys back out into a
// Position and returns the remaining user metadata in key order.
func decodeMeta(meta map[string]any) (ast.Position, []*ast.Metadata) {
	var pos ast.Position
	var out []*ast.Metadata
	for _, key := range sortedKeys(meta) {
		switch key {
		case "filename":
			pos.Filename, _ = meta[key].(string)
		case "lineno":
			pos.Line = metaInt(meta[key])
		default:
			value := renderMetaValue(meta[key])
			out = append(out, &ast.Metadata{Key: key, Value: &ast.MetadataValue{String: &value}})
		}
	}
	return pos, out
}

// metaInt accepts both the int we write and the float64 JSON hands back.
func metaInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

func renderMetaValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
