package parser

import "github.com/robinvdvleuten/beanquery/ast"

// Directive parsers for all non-transaction directives. These are simple
// parsers with deterministic structure.

// parseOpen parses: DATE open ACCOUNT [CURRENCY[,CURRENCY]*] ["BOOKING"]
func (p *Parser) parseOpen(pos ast.Position, date *ast.Date) (*ast.Open, error) {
	p.advance() // open

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	open := &ast.Open{
		Pos:       pos,
		EntryDate: date,
		Account:   account,
	}

	if p.check(IDENT) {
		currency, err := p.parseCurrency()
		if err != nil {
			return nil, err
		}
		open.Currencies = append(open.Currencies, currency)
		for p.match(COMMA) {
			currency, err := p.parseCurrency()
			if err != nil {
				return nil, err
			}
			open.Currencies = append(open.Currencies, currency)
		}
	}

	if p.check(STRING) {
		method, err := p.parseString()
		if err != nil {
			return nil, err
		}
		open.Booking = method
	}

	open.AddMetadata(p.parseMetadata()...)
	return open, nil
}

// parseClose parses: DATE close ACCOUNT
func (p *Parser) parseClose(pos ast.Position, date *ast.Date) (*ast.Close, error) {
	p.advance() // close

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	close := &ast.Close{Pos: pos, EntryDate: date, Account: account}
	close.AddMetadata(p.parseMetadata()...)
	return close, nil
}

// parseCommodity parses: DATE commodity CURRENCY
func (p *Parser) parseCommodity(pos ast.Position, date *ast.Date) (*ast.Commodity, error) {
	p.advance() // commodity

	currency, err := p.parseCurrency()
	if err != nil {
		return nil, err
	}

	commodity := &ast.Commodity{Pos: pos, EntryDate: date, Currency: currency}
	commodity.AddMetadata(p.parseMetadata()...)
	return commodity, nil
}

// parseBalance parses: DATE balance ACCOUNT NUMBER [~ NUMBER] CURRENCY
//
// The optional ~ part is an explicit per-assertion tolerance.
func (p *Parser) parseBalance(pos ast.Position, date *ast.Date) (*ast.Balance, error) {
	p.advance() // balance

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	number, err := p.parseNumber()
	if err != nil {
		return nil, err
	}

	bal := &ast.Balance{Pos: pos, EntryDate: date, Account: account}

	if p.match(TILDE) {
		tolerance, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		bal.Tolerance = &tolerance
	}

	currency, err := p.parseCurrency()
	if err != nil {
		return nil, err
	}
	bal.Amount = &ast.Amount{Number: number, Currency: currency}

	bal.AddMetadata(p.parseMetadata()...)
	return bal, nil
}

// parsePad parses: DATE pad ACCOUNT ACCOUNT_PAD
func (p *Parser) parsePad(pos ast.Position, date *ast.Date) (*ast.Pad, error) {
	p.advance() // pad

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}
	accountPad, err := p.parseAccount()
	if err != nil {
		return nil, err
	}

	pad := &ast.Pad{Pos: pos, EntryDate: date, Account: account, AccountPad: accountPad}
	pad.AddMetadata(p.parseMetadata()...)
	return pad, nil
}

// parseNote parses: DATE note ACCOUNT STRING
func (p *Parser) parseNote(pos ast.Position, date *ast.Date) (*ast.Note, error) {
	p.advance() // note

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}
	comment, err := p.parseString()
	if err != nil {
		return nil, err
	}

	note := &ast.Note{Pos: pos, EntryDate: date, Account: account, Comment: comment}
	note.AddMetadata(p.parseMetadata()...)
	return note, nil
}

// parseDocument parses: DATE document ACCOUNT STRING [TAG|LINK]*
func (p *Parser) parseDocument(pos ast.Position, date *ast.Date) (*ast.Document, error) {
	p.advance() // document

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}
	path, err := p.parseString()
	if err != nil {
		return nil, err
	}

	doc := &ast.Document{Pos: pos, EntryDate: date, Account: account, Path: path}

	for p.check(TAG) || p.check(LINK) {
		if p.check(TAG) {
			tag, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			doc.Tags = append(doc.Tags, tag)
		} else {
			link, err := p.parseLink()
			if err != nil {
				return nil, err
			}
			doc.Links = append(doc.Links, link)
		}
	}

	doc.AddMetadata(p.parseMetadata()...)
	return doc, nil
}

// parsePrice parses: DATE price CURRENCY AMOUNT
func (p *Parser) parsePrice(pos ast.Position, date *ast.Date) (*ast.Price, error) {
	p.advance() // price

	currency, err := p.parseCurrency()
	if err != nil {
		return nil, err
	}
	amount, err := p.parseAmount()
	if err != nil {
		return nil, err
	}

	price := &ast.Price{Pos: pos, EntryDate: date, Currency: currency, Amount: amount}
	price.AddMetadata(p.parseMetadata()...)
	return price, nil
}

// parseEvent parses: DATE event STRING STRING
func (p *Parser) parseEvent(pos ast.Position, date *ast.Date) (*ast.Event, error) {
	p.advance() // event

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	value, err := p.parseString()
	if err != nil {
		return nil, err
	}

	event := &ast.Event{Pos: pos, EntryDate: date, Name: name, Value: value}
	event.AddMetadata(p.parseMetadata()...)
	return event, nil
}

// parseQuery parses: DATE query STRING STRING
func (p *Parser) parseQuery(pos ast.Position, date *ast.Date) (*ast.Query, error) {
	p.advance() // query

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	contents, err := p.parseString()
	if err != nil {
		return nil, err
	}

	query := &ast.Query{Pos: pos, EntryDate: date, Name: name, Contents: contents}
	query.AddMetadata(p.parseMetadata()...)
	return query, nil
}

// parseCustom parses: DATE custom STRING VALUE*
// where VALUE can be STRING | BOOL | DATE | ACCOUNT | AMOUNT | NUMBER
func (p *Parser) parseCustom(pos ast.Position, date *ast.Date) (*ast.Custom, error) {
	p.advance() // custom

	customType, err := p.parseString()
	if err != nil {
		return nil, err
	}

	custom := &ast.Custom{
		Pos:       pos,
		EntryDate: date,
		Type:      customType,
		Values:    make([]*ast.CustomValue, 0, 4),
	}

	// Values continue on the directive line until a metadata block starts.
	startLine := pos.Line
	for !p.isAtEnd() && p.peek().Line == startLine {
		tok := p.peek()
		if (tok.Type == IDENT || p.isKeyword(tok.Type)) && p.peekAhead(1).Type == COLON {
			break
		}

		switch tok.Type {
		case STRING:
			s, err := p.parseString()
			if err != nil {
				return nil, err
			}
			custom.Values = append(custom.Values, &ast.CustomValue{String: &s})

		case DATE:
			d, err := p.parseDate()
			if err != nil {
				return nil, err
			}
			custom.Values = append(custom.Values, &ast.CustomValue{Date: d})

		case ACCOUNT:
			a, err := p.parseAccount()
			if err != nil {
				return nil, err
			}
			custom.Values = append(custom.Values, &ast.CustomValue{Account: &a})

		case IDENT:
			word := tok.String(p.source)
			p.advance()
			switch word {
			case "TRUE", "FALSE":
				b := word == "TRUE"
				custom.Values = append(custom.Values, &ast.CustomValue{Boolean: &b})
			default:
				currency := p.interner.Intern(word)
				custom.Values = append(custom.Values, &ast.CustomValue{
					Amount: &ast.Amount{Currency: currency},
				})
			}

		case NUMBER, MINUS, LPAREN:
			number, err := p.parseNumber()
			if err != nil {
				return nil, err
			}
			if p.check(IDENT) && p.peekAhead(1).Type != COLON {
				currency, err := p.parseCurrency()
				if err != nil {
					return nil, err
				}
				custom.Values = append(custom.Values, &ast.CustomValue{
					Amount: &ast.Amount{Number: number, Currency: currency},
				})
			} else {
				custom.Values = append(custom.Values, &ast.CustomValue{Number: &number})
			}

		default:
			return nil, p.errorAtToken(tok, "unexpected %s in custom directive", tok.Type)
		}
	}

	custom.AddMetadata(p.parseMetadata()...)
	return custom, nil
}
