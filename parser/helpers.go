package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// Helper parsing methods used across directive parsers.

// parseDate parses a DATE token and converts it to *ast.Date.
func (p *Parser) parseDate() (*ast.Date, error) {
	tok := p.expect(DATE, "expected date")
	if tok.Type == ILLEGAL {
		return nil, p.errorAtToken(tok, "expected date")
	}

	t, err := time.Parse("2006-01-02", tok.String(p.source))
	if err != nil {
		return nil, p.errorAtToken(tok, "invalid date: %v", err)
	}
	return &ast.Date{Time: t}, nil
}

// parseAccount parses an ACCOUNT token. The account name is interned since
// the same accounts repeat throughout a ledger.
func (p *Parser) parseAccount() (ast.Account, error) {
	tok := p.expect(ACCOUNT, "expected account")
	if tok.Type == ILLEGAL {
		actual := p.peek()
		return "", p.errorAtToken(actual, "expected account but got %s %q", actual.Type, actual.String(p.source))
	}

	name := p.interner.InternBytes(tok.Bytes(p.source))
	if err := ast.ValidateAccount(name); err != nil {
		return "", p.errorAtToken(tok, "invalid account: %v", err)
	}
	return ast.Account(name), nil
}

// parseNumber parses a NUMBER or arithmetic expression into a decimal.
//
//	100.50       → simple number (fast path)
//	-50.00       → negative number
//	(40.00/3)    → expression evaluated at parse time
//	40.00/3 + 5  → expression with operators
func (p *Parser) parseNumber() (decimal.Decimal, error) {
	if p.isExpressionStart() {
		return p.parseExpression()
	}

	numTok := p.expect(NUMBER, "expected number")
	if numTok.Type == ILLEGAL {
		return decimal.Zero, p.errorAtToken(numTok, "expected number")
	}
	return p.decimalFromToken(numTok)
}

// decimalFromToken converts a NUMBER token, stripping grouping commas.
func (p *Parser) decimalFromToken(tok Token) (decimal.Decimal, error) {
	s := tok.String(p.source)
	if strings.IndexByte(s, ',') >= 0 {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, p.errorAtToken(tok, "invalid number: %v", err)
	}
	return d, nil
}

// parseCurrency parses an IDENT token as a currency code and interns it.
func (p *Parser) parseCurrency() (string, error) {
	tok := p.expect(IDENT, "expected currency")
	if tok.Type == ILLEGAL {
		return "", p.errorAtToken(tok, "expected currency")
	}
	return p.interner.InternBytes(tok.Bytes(p.source)), nil
}

// parseAmount parses: NUMBER-or-expression CURRENCY.
func (p *Parser) parseAmount() (*ast.Amount, error) {
	number, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	currency, err := p.parseCurrency()
	if err != nil {
		return nil, err
	}
	return &ast.Amount{Number: number, Currency: currency}, nil
}

// parseCostSpec parses a cost annotation:
//
//	{ [*] | [NUMBER [CURRENCY]] [, DATE] [, "LABEL"] }    per-unit form
//	{{ NUMBER CURRENCY [, DATE] [, "LABEL"] }}            total form
//
// The merge form {*} is rejected: it is never accepted silently.
func (p *Parser) parseCostSpec() (*ast.CostSpec, error) {
	total := p.check(LDBRACE)
	open := p.advance() // { or {{

	closeType := RBRACE
	if total {
		closeType = RDBRACE
	}

	spec := &ast.CostSpec{}

	if p.check(ASTERISK) {
		tok := p.advance()
		if t := p.consume(closeType, "expected '}'"); t.Type == ILLEGAL {
			return nil, p.errorAtToken(tok, "expected '}' after '*'")
		}
		return nil, p.errorAtToken(open, "cost merge {*} is not supported")
	}

	// Empty cost {} selects a lot automatically during booking.
	if p.check(closeType) {
		p.advance()
		return spec, nil
	}

	if p.check(NUMBER) || p.check(MINUS) || p.check(LPAREN) {
		number, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		if total {
			spec.NumberTotal = &number
		} else {
			spec.NumberPer = &number
		}
	}
	if p.check(IDENT) {
		currency, err := p.parseCurrency()
		if err != nil {
			return nil, err
		}
		spec.Currency = currency
	}

	for p.check(COMMA) || p.check(DATE) || p.check(STRING) {
		p.match(COMMA)
		switch {
		case p.check(DATE):
			date, err := p.parseDate()
			if err != nil {
				return nil, err
			}
			spec.Date = date
		case p.check(STRING):
			label, err := p.parseString()
			if err != nil {
				return nil, err
			}
			spec.Label = label
		default:
			return nil, p.error("expected date or label in cost")
		}
	}

	if t := p.consume(closeType, "expected '}'"); t.Type == ILLEGAL {
		return nil, p.errorAtToken(open, "unterminated cost specification")
	}
	return spec, nil
}

// parseString parses a STRING token and unquotes it.
func (p *Parser) parseString() (string, error) {
	tok := p.expect(STRING, "expected string")
	if tok.Type == ILLEGAL {
		return "", p.errorAtToken(tok, "expected string")
	}
	return unquoteString(tok.String(p.source)), nil
}

// parseTag parses a TAG token, returning the tag without its # prefix.
func (p *Parser) parseTag() (ast.Tag, error) {
	tok := p.expect(TAG, "expected tag")
	if tok.Type == ILLEGAL {
		return "", p.errorAtToken(tok, "expected tag")
	}
	return ast.Tag(tok.String(p.source)[1:]), nil
}

// parseLink parses a LINK token, returning the link without its ^ prefix.
func (p *Parser) parseLink() (ast.Link, error) {
	tok := p.expect(LINK, "expected link")
	if tok.Type == ILLEGAL {
		return "", p.errorAtToken(tok, "expected link")
	}
	return ast.Link(tok.String(p.source)[1:]), nil
}

// parseMetadata parses the indented key: value lines following a directive
// or posting. Keys can be identifiers or keywords ("price:" is a valid
// key). Duplicate keys are reported and the later value dropped.
func (p *Parser) parseMetadata() []*ast.Metadata {
	var metadata []*ast.Metadata
	var seen map[string]bool

	for {
		keyTok := p.peek()
		isKey := (keyTok.Type == IDENT || p.isKeyword(keyTok.Type)) &&
			keyTok.Column > 1 &&
			p.peekAhead(1).Type == COLON
		if !isKey {
			break
		}

		p.advance() // key
		p.advance() // colon

		value, err := p.parseMetadataValue()
		if err != nil {
			p.recordError(err)
			p.resync()
			break
		}

		key := keyTok.String(p.source)
		if seen == nil {
			seen = make(map[string]bool, 4)
		}
		if seen[key] {
			p.recordError(&DuplicateMetadataError{Pos: tokenPosition(keyTok, p.filename), Key: key})
			continue
		}
		seen[key] = true
		metadata = append(metadata, &ast.Metadata{Key: key, Value: value})
	}

	return metadata
}

// parseMetadataValue parses one typed metadata value. The token type picks
// the variant; a bare uppercase identifier is a currency unless it spells
// TRUE or FALSE.
func (p *Parser) parseMetadataValue() (*ast.MetadataValue, error) {
	tok := p.peek()
	switch tok.Type {
	case STRING:
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{String: &s}, nil

	case DATE:
		d, err := p.parseDate()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Date: d}, nil

	case ACCOUNT:
		a, err := p.parseAccount()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Account: &a}, nil

	case TAG:
		t, err := p.parseTag()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Tag: &t}, nil

	case LINK:
		l, err := p.parseLink()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Link: &l}, nil

	case IDENT:
		word := tok.String(p.source)
		if word == "TRUE" || word == "FALSE" {
			p.advance()
			b := word == "TRUE"
			return &ast.MetadataValue{Boolean: &b}, nil
		}
		currency, err := p.parseCurrency()
		if err != nil {
			return nil, err
		}
		return &ast.MetadataValue{Currency: &currency}, nil

	case NUMBER, MINUS, LPAREN:
		number, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		if p.check(IDENT) {
			currency, err := p.parseCurrency()
			if err != nil {
				return nil, err
			}
			return &ast.MetadataValue{Amount: &ast.Amount{Number: number, Currency: currency}}, nil
		}
		return &ast.MetadataValue{Number: &number}, nil

	default:
		return nil, p.errorAtToken(tok, "expected metadata value, got %s", tok.Type)
	}
}

// isKeyword returns true if the token type is a directive keyword.
func (p *Parser) isKeyword(typ TokenType) bool {
	switch typ {
	case TXN, BALANCE, OPEN, CLOSE, COMMODITY, PAD, NOTE, DOCUMENT,
		PRICE, EVENT, QUERY, CUSTOM, OPTION, INCLUDE, PLUGIN,
		PUSHTAG, POPTAG, PUSHMETA, POPMETA:
		return true
	default:
		return false
	}
}

// unquoteString removes surrounding quotes and resolves escapes.
func unquoteString(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err == nil {
			return unquoted
		}
		return s[1 : len(s)-1]
	}
	return s
}

// Helper methods for token navigation

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAhead(n int) Token {
	pos := p.pos + n
	if pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[pos]
}

func (p *Parser) previous() Token {
	if p.pos == 0 {
		return Token{Type: ILLEGAL}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == EOF
}

func (p *Parser) check(typ TokenType) bool {
	return p.peek().Type == typ
}

func (p *Parser) match(types ...TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) consume(typ TokenType, message string) Token {
	if p.check(typ) {
		return p.advance()
	}
	return Token{Type: ILLEGAL}
}

func (p *Parser) expect(typ TokenType, message string) Token {
	return p.consume(typ, message)
}

// Error helpers

func (p *Parser) errorAtToken(tok Token, format string, args ...interface{}) error {
	return newParseErrorf(tokenPosition(tok, p.filename), format, args...)
}

func (p *Parser) error(format string, args ...interface{}) error {
	return p.errorAtToken(p.peek(), format, args...)
}

// tokenPosition extracts position information from a token.
func tokenPosition(tok Token, filename string) ast.Position {
	return ast.Position{
		Filename: filename,
		Offset:   tok.Start,
		Line:     tok.Line,
		Column:   tok.Column,
	}
}
