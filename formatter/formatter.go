// Package formatter re-emits a parsed ledger in canonical form: dates,
// keywords and accounts in fixed positions, numbers right-aligned so
// currencies line up in one column, two-space indentation for postings and
// metadata. Comments and blank lines from the source are preserved in
// place.
package formatter

import (
	"cmp"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/robinvdvleuten/beanquery/ast"
)

const (
	// DefaultCurrencyColumn matches bean-format when the content gives no
	// better answer.
	DefaultCurrencyColumn = 52

	// DefaultIndentation is the posting and metadata indent.
	DefaultIndentation = 2

	// MinimumSpacing separates an account or keyword from its number.
	MinimumSpacing = 2

	dateWidth           = 10
	balanceKeywordWidth = 8 // "balance" + space
	priceKeywordWidth   = 6 // "price" + space
)

// Formatter renders directives with aligned currencies.
type Formatter struct {
	// CurrencyColumn is the target column for currency alignment. Zero
	// means derive it from the widest amount in the content.
	CurrencyColumn int

	// PreserveComments keeps source comments in place.
	PreserveComments bool

	// PreserveBlanks keeps source blank lines in place.
	PreserveBlanks bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithCurrencyColumn fixes the currency alignment column.
func WithCurrencyColumn(col int) Option {
	return func(f *Formatter) { f.CurrencyColumn = col }
}

// WithPreserveComments enables or disables comment preservation.
func WithPreserveComments(preserve bool) Option {
	return func(f *Formatter) { f.PreserveComments = preserve }
}

// WithPreserveBlanks enables or disables blank line preservation.
func WithPreserveBlanks(preserve bool) Option {
	return func(f *Formatter) { f.PreserveBlanks = preserve }
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		PreserveComments: true,
		PreserveBlanks:   true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders a parsed file to the writer. Items are emitted in source
// order; sourceContent supplies the comments and blank lines to weave back
// in.
func (f *Formatter) Format(file *ast.File, sourceContent []byte, w io.Writer) error {
	column := f.CurrencyColumn
	if column == 0 {
		column = f.currencyColumn(file.Directives)
	}

	var lineContent map[int][]lineItem
	if f.PreserveComments || f.PreserveBlanks {
		lineContent = f.extractLineContent(sourceContent)
	}

	type sourceItem struct {
		line      int
		option    *ast.Option
		include   *ast.Include
		plugin    *ast.Plugin
		directive ast.Directive
	}
	var items []sourceItem
	for _, opt := range file.Options {
		items = append(items, sourceItem{line: opt.Pos.Line, option: opt})
	}
	for _, inc := range file.Includes {
		items = append(items, sourceItem{line: inc.Pos.Line, include: inc})
	}
	for _, plg := range file.Plugins {
		items = append(items, sourceItem{line: plg.Pos.Line, plugin: plg})
	}
	for _, d := range file.Directives {
		items = append(items, sourceItem{line: d.Position().Line, directive: d})
	}
	slices.SortFunc(items, func(a, b sourceItem) int {
		return cmp.Compare(a.line, b.line)
	})

	var buf strings.Builder
	buf.Grow(len(items) * 100)

	lastLine := 0
	for _, item := range items {
		if lineContent != nil {
			for line := lastLine + 1; line < item.line; line++ {
				for _, c := range lineContent[line] {
					buf.WriteString(c.text)
					buf.WriteByte('\n')
				}
			}
			lastLine = item.line
		}
		switch {
		case item.option != nil:
			buf.WriteString(`option "` + escapeString(item.option.Name) + `" "` + escapeString(item.option.Value) + `"` + "\n")
		case item.include != nil:
			buf.WriteString(`include "` + escapeString(item.include.Filename) + `"` + "\n")
		case item.plugin != nil:
			buf.WriteString(`plugin "` + escapeString(item.plugin.Name) + `"`)
			if item.plugin.Config != "" {
				buf.WriteString(` "` + escapeString(item.plugin.Config) + `"`)
			}
			buf.WriteByte('\n')
		case item.directive != nil:
			formatDirective(item.directive, column, &buf)
		}
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatDirective renders a single directive in canonical form.
func (f *Formatter) FormatDirective(d ast.Directive) string {
	column := f.CurrencyColumn
	if column == 0 {
		column = f.currencyColumn(ast.Directives{d})
	}
	var buf strings.Builder
	formatDirective(d, column, &buf)
	return buf.String()
}

// currencyColumn derives the alignment column from the widest
// prefix+number in the stream.
func (f *Formatter) currencyColumn(directives ast.Directives) int {
	widest := 0
	for _, d := range directives {
		switch d := d.(type) {
		case *ast.Transaction:
			for _, p := range d.Postings {
				if p.Units == nil {
					continue
				}
				prefix := DefaultIndentation
				if p.Flag != "" {
					prefix += 2
				}
				prefix += runewidth.StringWidth(string(p.Account)) + MinimumSpacing
				widest = max(widest, prefix+runewidth.StringWidth(p.Units.Number.String()))
			}
		case *ast.Balance:
			prefix := dateWidth + 1 + balanceKeywordWidth + runewidth.StringWidth(string(d.Account)) + MinimumSpacing
			widest = max(widest, prefix+runewidth.StringWidth(d.Amount.Number.String()))
		case *ast.Price:
			prefix := dateWidth + 1 + priceKeywordWidth + runewidth.StringWidth(d.Currency) + MinimumSpacing
			widest = max(widest, prefix+runewidth.StringWidth(d.Amount.Number.String()))
		}
	}
	if widest == 0 {
		return DefaultCurrencyColumn
	}
	return widest + MinimumSpacing
}

type lineItem struct {
	text string
}

// extractLineContent maps source line numbers to the comments and blank
// lines on them.
func (f *Formatter) extractLineContent(source []byte) map[int][]lineItem {
	content := make(map[int][]lineItem)
	lines := strings.Split(string(source), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			// The final newline produces an empty trailing element,
			// which is not a blank line.
			if f.PreserveBlanks && i < len(lines)-1 {
				content[i+1] = append(content[i+1], lineItem{text: ""})
			}
		case strings.HasPrefix(trimmed, ";"):
			if f.PreserveComments {
				content[i+1] = append(content[i+1], lineItem{text: trimmed})
			}
		}
	}
	return content
}

func formatDirective(d ast.Directive, column int, buf *strings.Builder) {
	switch d := d.(type) {
	case *ast.Open:
		buf.WriteString(d.EntryDate.String() + " open " + string(d.Account))
		if len(d.Currencies) > 0 {
			buf.WriteString(" " + strings.Join(d.Currencies, ", "))
		}
		if d.Booking != "" {
			buf.WriteString(` "` + d.Booking + `"`)
		}
		buf.WriteByte('\n')
	case *ast.Close:
		buf.WriteString(d.EntryDate.String() + " close " + string(d.Account) + "\n")
	case *ast.Commodity:
		buf.WriteString(d.EntryDate.String() + " commodity " + d.Currency + "\n")
	case *ast.Balance:
		buf.WriteString(d.EntryDate.String() + " balance " + string(d.Account))
		number := d.Amount.Number.String()
		if d.Tolerance != nil {
			number += " ~ " + d.Tolerance.String()
		}
		writeAligned(buf, number, d.Amount.Currency, column)
		buf.WriteByte('\n')
	case *ast.Pad:
		buf.WriteString(d.EntryDate.String() + " pad " + string(d.Account) + " " + string(d.AccountPad) + "\n")
	case *ast.Note:
		buf.WriteString(d.EntryDate.String() + " note " + string(d.Account) + ` "` + escapeString(d.Comment) + `"` + "\n")
	case *ast.Document:
		buf.WriteString(d.EntryDate.String() + " document " + string(d.Account) + ` "` + escapeString(d.Path) + `"`)
		writeTagsLinks(buf, d.Tags, d.Links)
		buf.WriteByte('\n')
	case *ast.Price:
		buf.WriteString(d.EntryDate.String() + " price " + d.Currency)
		writeAligned(buf, d.Amount.Number.String(), d.Amount.Currency, column)
		buf.WriteByte('\n')
	case *ast.Event:
		buf.WriteString(d.EntryDate.String() + ` event "` + escapeString(d.Name) + `" "` + escapeString(d.Value) + `"` + "\n")
	case *ast.Query:
		buf.WriteString(d.EntryDate.String() + ` query "` + escapeString(d.Name) + `" "` + escapeString(d.Contents) + `"` + "\n")
	case *ast.Custom:
		buf.WriteString(d.EntryDate.String() + ` custom "` + escapeString(d.Type) + `"`)
		for _, v := range d.Values {
			buf.WriteByte(' ')
			if v.String != nil {
				buf.WriteString(`"` + escapeString(*v.String) + `"`)
			} else {
				buf.WriteString(v.Render())
			}
		}
		buf.WriteByte('\n')
	case *ast.Transaction:
		formatTransaction(d, column, buf)
		return
	}
	writeMetadata(d.Meta(), buf)
}

func formatTransaction(t *ast.Transaction, column int, buf *strings.Builder) {
	buf.WriteString(t.EntryDate.String() + " " + t.Flag)
	if t.Payee != "" {
		buf.WriteString(` "` + escapeString(t.Payee) + `"`)
	}
	if t.Narration != "" || t.Payee != "" {
		buf.WriteString(` "` + escapeString(t.Narration) + `"`)
	}
	writeTagsLinks(buf, t.Tags, t.Links)
	buf.WriteByte('\n')
	writeMetadata(t.Metadata, buf)

	for _, p := range t.Postings {
		formatPosting(p, column, buf)
	}
}

func formatPosting(p *ast.Posting, column int, buf *strings.Builder) {
	line := strings.Repeat(" ", DefaultIndentation)
	if p.Flag != "" {
		line += p.Flag + " "
	}
	line += string(p.Account)
	buf.WriteString(line)

	if p.Units != nil {
		writeAligned(buf, p.Units.Number.String(), p.Units.Currency, column)
		switch {
		case p.CostSpec != nil:
			buf.WriteString(" " + formatCostSpec(p.CostSpec))
		case p.Cost != nil:
			buf.WriteString(" {" + p.Cost.String() + "}")
		}
		if p.Price != nil {
			at := " @ "
			if p.PriceTotal {
				at = " @@ "
			}
			buf.WriteString(at + p.Price.Number.String() + " " + p.Price.Currency)
		}
	}
	buf.WriteByte('\n')
	writeMetadata(p.Metadata, buf)
}

func formatCostSpec(spec *ast.CostSpec) string {
	opening, closing := "{", "}"
	var parts []string
	switch {
	case spec.NumberTotal != nil:
		opening, closing = "{{", "}}"
		number := spec.NumberTotal.String()
		if spec.Currency != "" {
			number += " " + spec.Currency
		}
		parts = append(parts, number)
	case spec.NumberPer != nil:
		number := spec.NumberPer.String()
		if spec.Currency != "" {
			number += " " + spec.Currency
		}
		parts = append(parts, number)
	case spec.Currency != "":
		parts = append(parts, spec.Currency)
	}
	if spec.Date != nil {
		parts = append(parts, spec.Date.String())
	}
	if spec.Label != "" {
		parts = append(parts, `"`+escapeString(spec.Label)+`"`)
	}
	return opening + strings.Join(parts, ", ") + closing
}

// writeAligned pads the number so its currency starts at the alignment
// column, with display width measured for wide characters.
func writeAligned(buf *strings.Builder, number, currency string, column int) {
	current := buf.Len() - strings.LastIndexByte(buf.String(), '\n') - 1
	padding := column - runewidth.StringWidth(number) - current
	if padding < MinimumSpacing {
		padding = MinimumSpacing
	}
	buf.WriteString(strings.Repeat(" ", padding))
	buf.WriteString(number + " " + currency)
}

func writeTagsLinks(buf *strings.Builder, tags []ast.Tag, links []ast.Link) {
	for _, tag := range tags {
		buf.WriteString(" #" + string(tag))
	}
	for _, link := range links {
		buf.WriteString(" ^" + string(link))
	}
}

func writeMetadata(meta []*ast.Metadata, buf *strings.Builder) {
	for _, m := range meta {
		buf.WriteString(strings.Repeat(" ", DefaultIndentation) + m.Key + ": ")
		if m.Value.String != nil {
			buf.WriteString(`"` + escapeString(*m.Value.String) + `"`)
		} else {
			buf.WriteString(m.Value.Render())
		}
		buf.WriteByte('\n')
	}
}
