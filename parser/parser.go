// Package parser implements the Beancount lexer and recursive descent
// parser. Parsing is line oriented: every top-level line starts with a date
// (a directive) or an undated keyword (option, plugin, include, push/pop).
// A malformed directive yields exactly one error and is discarded; the
// parser resynchronizes at the next top-level line and keeps going, so a
// broken line never hides the rest of the file.
package parser

import (
	"github.com/robinvdvleuten/beanquery/ast"
)

// Parser folds a token stream into an ast.File. Tag and metadata push/pop
// state lives here as explicit stacks; directives inherit the active state
// at the point they are built.
type Parser struct {
	source   []byte
	filename string
	tokens   []Token
	pos      int
	interner *Interner

	// pushtag/pushmeta state. tagStack preserves push order; metaStack is
	// a stack per key, the top value wins.
	tagStack  []ast.Tag
	metaStack map[string][]*ast.MetadataValue
	metaOrder []string

	errors []error
}

// Parse lexes and parses a single source buffer. It always returns a File;
// the error slice collects every lexical and syntactic problem found.
func Parse(filename string, source []byte) (*ast.File, []error) {
	lexer := NewLexer(filename, source)
	tokens, lexErrors := lexer.ScanAll()

	p := &Parser{
		source:    source,
		filename:  filename,
		tokens:    tokens,
		interner:  NewInterner(),
		metaStack: make(map[string][]*ast.MetadataValue),
		errors:    lexErrors,
	}
	file := p.parseFile()
	return file, p.errors
}

func (p *Parser) parseFile() *ast.File {
	file := &ast.File{Filename: p.filename}

	for !p.isAtEnd() {
		tok := p.peek()
		startPos := p.pos

		switch tok.Type {
		case DATE:
			if d := p.parseDirective(); d != nil {
				file.Directives = append(file.Directives, d)
			}
		case OPTION:
			if o := p.parseOption(); o != nil {
				file.Options = append(file.Options, o)
			}
		case INCLUDE:
			if inc := p.parseInclude(); inc != nil {
				file.Includes = append(file.Includes, inc)
			}
		case PLUGIN:
			if pl := p.parsePlugin(); pl != nil {
				file.Plugins = append(file.Plugins, pl)
			}
		case PUSHTAG:
			p.parsePushtag()
		case POPTAG:
			p.parsePoptag()
		case PUSHMETA:
			p.parsePushmeta()
		case POPMETA:
			p.parsePopmeta()
		case ILLEGAL:
			// Already reported by the lexer.
			p.advance()
		default:
			p.recordError(p.errorAtToken(tok, "unexpected %s %q at top level", tok.Type, tok.String(p.source)))
			p.resync()
		}

		// Guard against a parser that failed to consume anything.
		if p.pos == startPos {
			p.advance()
		}
	}

	p.checkStacksEmpty()
	return file
}

// parseDirective dispatches on the keyword following the date. On any error
// the directive is dropped and the parser resynchronizes.
func (p *Parser) parseDirective() ast.Directive {
	tok := p.peek()
	pos := tokenPosition(tok, p.filename)

	date, err := p.parseDate()
	if err != nil {
		p.recordError(err)
		p.resync()
		return nil
	}

	var d ast.Directive
	switch p.peek().Type {
	case OPEN:
		d, err = p.parseOpen(pos, date)
	case CLOSE:
		d, err = p.parseClose(pos, date)
	case COMMODITY:
		d, err = p.parseCommodity(pos, date)
	case BALANCE:
		d, err = p.parseBalance(pos, date)
	case PAD:
		d, err = p.parsePad(pos, date)
	case NOTE:
		d, err = p.parseNote(pos, date)
	case DOCUMENT:
		d, err = p.parseDocument(pos, date)
	case PRICE:
		d, err = p.parsePrice(pos, date)
	case EVENT:
		d, err = p.parseEvent(pos, date)
	case QUERY:
		d, err = p.parseQuery(pos, date)
	case CUSTOM:
		d, err = p.parseCustom(pos, date)
	case TXN, ASTERISK, EXCLAIM, FLAG, IDENT:
		d, err = p.parseTransaction(pos, date)
	default:
		err = p.error("expected directive keyword after date")
	}

	if err != nil {
		p.recordError(err)
		p.resync()
		return nil
	}

	p.applyStacks(d)
	return d
}

// applyStacks folds active pushmeta values into the directive's metadata and
// active pushtags into transaction tags. Per-line metadata wins over pushed
// values for the same key.
func (p *Parser) applyStacks(d ast.Directive) {
	if txn, ok := d.(*ast.Transaction); ok {
		for _, tag := range p.tagStack {
			if !txn.HasTag(tag) {
				txn.Tags = append(txn.Tags, tag)
			}
		}
	}

	if len(p.metaOrder) == 0 {
		return
	}
	existing := make(map[string]bool)
	for _, m := range d.Meta() {
		existing[m.Key] = true
	}
	for _, key := range p.metaOrder {
		stack := p.metaStack[key]
		if len(stack) == 0 || existing[key] {
			continue
		}
		d.AddMetadata(&ast.Metadata{Key: key, Value: stack[len(stack)-1]})
		existing[key] = true
	}
}

// checkStacksEmpty enforces the end-of-file invariant: every pushtag and
// pushmeta must have been popped.
func (p *Parser) checkStacksEmpty() {
	eof := p.tokens[len(p.tokens)-1]
	pos := tokenPosition(eof, p.filename)
	for _, tag := range p.tagStack {
		p.recordError(&PopEmptyError{Pos: pos, Message: "pushtag #" + string(tag) + " is not popped at end of file"})
	}
	for _, key := range p.metaOrder {
		if len(p.metaStack[key]) > 0 {
			p.recordError(&PopEmptyError{Pos: pos, Message: "pushmeta " + key + ": is not popped at end of file"})
		}
	}
}

// resync skips tokens until the next top-level line: the next token at
// column 1 on a later line, or EOF.
func (p *Parser) resync() {
	line := p.peek().Line
	for !p.isAtEnd() {
		tok := p.peek()
		if tok.Line > line && tok.Column == 1 {
			return
		}
		p.advance()
	}
}

func (p *Parser) recordError(err error) {
	if err != nil {
		p.errors = append(p.errors, err)
	}
}

// Undated top-level forms.

// parseOption parses: option "name" "value"
func (p *Parser) parseOption() *ast.Option {
	tok := p.advance() // option
	pos := tokenPosition(tok, p.filename)

	name, err := p.parseString()
	if err != nil {
		p.recordError(err)
		p.resync()
		return nil
	}
	value, err := p.parseString()
	if err != nil {
		p.recordError(err)
		p.resync()
		return nil
	}
	return &ast.Option{Pos: pos, Name: name, Value: value}
}

// parseInclude parses: include "path"
func (p *Parser) parseInclude() *ast.Include {
	tok := p.advance() // include
	pos := tokenPosition(tok, p.filename)

	filename, err := p.parseString()
	if err != nil {
		p.recordError(err)
		p.resync()
		return nil
	}
	return &ast.Include{Pos: pos, Filename: filename}
}

// parsePlugin parses: plugin "name" ["config"]
func (p *Parser) parsePlugin() *ast.Plugin {
	tok := p.advance() // plugin
	pos := tokenPosition(tok, p.filename)

	name, err := p.parseString()
	if err != nil {
		p.recordError(err)
		p.resync()
		return nil
	}
	plugin := &ast.Plugin{Pos: pos, Name: name}
	if p.check(STRING) {
		config, err := p.parseString()
		if err != nil {
			p.recordError(err)
			p.resync()
			return nil
		}
		plugin.Config = config
	}
	return plugin
}

// parsePushtag parses: pushtag #tag
func (p *Parser) parsePushtag() {
	p.advance() // pushtag
	tag, err := p.parseTag()
	if err != nil {
		p.recordError(err)
		p.resync()
		return
	}
	p.tagStack = append(p.tagStack, tag)
}

// parsePoptag parses: poptag #tag
func (p *Parser) parsePoptag() {
	tok := p.advance() // poptag
	tag, err := p.parseTag()
	if err != nil {
		p.recordError(err)
		p.resync()
		return
	}
	for i := len(p.tagStack) - 1; i >= 0; i-- {
		if p.tagStack[i] == tag {
			p.tagStack = append(p.tagStack[:i], p.tagStack[i+1:]...)
			return
		}
	}
	p.recordError(&PopEmptyError{
		Pos:     tokenPosition(tok, p.filename),
		Message: "poptag #" + string(tag) + " without matching pushtag",
	})
}

// parsePushmeta parses: pushmeta key: VALUE
func (p *Parser) parsePushmeta() {
	p.advance() // pushmeta
	key, err := p.parseMetaKey()
	if err != nil {
		p.recordError(err)
		p.resync()
		return
	}
	value, err := p.parseMetadataValue()
	if err != nil {
		p.recordError(err)
		p.resync()
		return
	}
	if _, ok := p.metaStack[key]; !ok {
		p.metaOrder = append(p.metaOrder, key)
	}
	p.metaStack[key] = append(p.metaStack[key], value)
}

// parsePopmeta parses: popmeta key:
func (p *Parser) parsePopmeta() {
	tok := p.advance() // popmeta
	key, err := p.parseMetaKey()
	if err != nil {
		p.recordError(err)
		p.resync()
		return
	}
	stack := p.metaStack[key]
	if len(stack) == 0 {
		p.recordError(&PopEmptyError{
			Pos:     tokenPosition(tok, p.filename),
			Message: "popmeta " + key + ": without matching pushmeta",
		})
		return
	}
	p.metaStack[key] = stack[:len(stack)-1]
}

// parseMetaKey parses an identifier followed by a colon.
func (p *Parser) parseMetaKey() (string, error) {
	tok := p.peek()
	if tok.Type != IDENT && !p.isKeyword(tok.Type) {
		return "", p.errorAtToken(tok, "expected metadata key")
	}
	p.advance()
	if colon := p.consume(COLON, "expected ':' after metadata key"); colon.Type == ILLEGAL {
		return "", p.errorAtToken(tok, "expected ':' after metadata key")
	}
	return tok.String(p.source), nil
}
