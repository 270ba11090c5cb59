package wire

import (
	"github.com/robinvdvleuten/beanquery/ast"
)

// EncodeDirectives converts a directive stream to its wire form.
func EncodeDirectives(directives ast.Directives) []*Directive {
	out := make([]*Directive, len(directives))
	for i, d := range directives {
		out[i] = EncodeDirective(d)
	}
	return out
}

// EncodeDirective converts one directive to its wire form. The position
// travels as the reserved meta keys filename and lineno.
func EncodeDirective(directive ast.Directive) *Directive {
	w := &Directive{
		Kind: string(directive.Kind()),
		Date: directive.Date().String(),
		Hash: directive.Hash(),
		Meta: encodeMeta(directive.Position(), directive.Meta()),
	}

	switch d := directive.(type) {
	case *ast.Open:
		w.Account = string(d.Account)
		w.Currencies = d.Currencies
		w.Booking = d.Booking
	case *ast.Close:
		w.Account = string(d.Account)
	case *ast.Commodity:
		w.Currency = d.Currency
	case *ast.Balance:
		w.Account = string(d.Account)
		w.Amount = encodeAmount(d.Amount)
		if d.Tolerance != nil {
			tolerance := formatDecimal(*d.Tolerance)
			w.Tolerance = &tolerance
		}
		w.DiffAmount = encodeAmount(d.DiffAmount)
	case *ast.Pad:
		w.Account = string(d.Account)
		w.SourceAccount = string(d.AccountPad)
	case *ast.Note:
		w.Account = string(d.Account)
		w.Comment = d.Comment
	case *ast.Document:
		w.Account = string(d.Account)
		w.Filename = d.Path
		w.Tags = encodeTags(d.Tags)
		w.Links = encodeLinks(d.Links)
	case *ast.Price:
		w.Currency = d.Currency
		w.Amount = encodeAmount(d.Amount)
	case *ast.Event:
		w.EventName = d.Name
		w.EventValue = d.Value
	case *ast.Query:
		w.Name = d.Name
		w.Contents = d.Contents
	case *ast.Custom:
		w.CustomType = d.Type
		for _, v := range d.Values {
			w.CustomValues = append(w.CustomValues, v.Render())
		}
	case *ast.Transaction:
		w.Flag = d.Flag
		w.Payee = d.Payee
		w.Narration = d.Narration
		w.Tags = encodeTags(d.Tags)
		w.Links = encodeLinks(d.Links)
		for _, p := range d.Postings {
			w.Postings = append(w.Postings, encodePosting(p))
		}
	}

	return w
}

func encodePosting(p *ast.Posting) *Posting {
	out := &Posting{
		Account:      string(p.Account),
		Flag:         p.Flag,
		Units:        encodeAmount(p.Units),
		Cost:         encodeCost(p.Cost),
		CostSpec:     encodeCostSpec(p.CostSpec),
		Price:        encodeAmount(p.Price),
		Interpolated: p.Interpolated,
	}
	if len(p.Metadata) > 0 {
		out.Meta = make(map[string]any, len(p.Metadata))
		for _, m := range p.Metadata {
			out.Meta[m.Key] = m.Value.Render()
		}
	}
	return out
}

func encodeAmount(a *ast.Amount) *Amount {
	if a == nil {
		return nil
	}
	return &Amount{Number: formatDecimal(a.Number), Currency: a.Currency}
}

func encodeCost(c *ast.Cost) *Cost {
	if c == nil {
		return nil
	}
	return &Cost{
		Number:   formatDecimal(c.Number),
		Currency: c.Currency,
		Date:     c.Date.String(),
		Label:    c.Label,
	}
}

func encodeCostSpec(s *ast.CostSpec) *CostSpec {
	if s == nil {
		return nil
	}
	out := &CostSpec{Currency: s.Currency, Date: s.Date.String(), Label: s.Label}
	if s.NumberPer != nil {
		per := formatDecimal(*s.NumberPer)
		out.NumberPer = &per
	}
	if s.NumberTotal != nil {
		total := formatDecimal(*s.NumberTotal)
		out.NumberTotal = &total
	}
	return out
}

func encodeTags(tags []ast.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func encodeLinks(links []ast.Link) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = string(l)
	}
	return out
}

func encodeMeta(pos ast.Position, meta []*ast.Metadata) map[string]any {
	out := make(map[string]any, len(meta)+2)
	out["filename"] = pos.Filename
	out["lineno"] = pos.Line
	for _, m := range meta {
		out[m.Key] = m.Value.Render()
	}
	return out
}

// EncodeError converts any error to its wire form. Typed errors carry a
// kind and a source position; anything else becomes a plain ParseError.
func EncodeError(err error) *Error {
	out := &Error{Kind: "ParseError", Message: err.Error()}
	if kinder, ok := err.(interface{ Kind() string }); ok {
		out.Kind = kinder.Kind()
	}
	if positioned, ok := err.(interface{ GetPosition() ast.Position }); ok {
		pos := positioned.GetPosition()
		out.Filename = pos.Filename
		out.Lineno = pos.Line
	}
	return out
}

// EncodeErrors converts a list of errors.
func EncodeErrors(errs []error) []*Error {
	out := make([]*Error, len(errs))
	for i, err := range errs {
		out[i] = EncodeError(err)
	}
	return out
}
