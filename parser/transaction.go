package parser

import (
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
)

// Transaction parsing - the most complex directive type. Transactions have
// postings, which are indented on subsequent lines.

// sourceFlags are the single-character flags accepted from source. 'P' is
// deliberately absent: it is reserved for padding transactions generated by
// the ledger.
const sourceFlags = "*!&?%URSCMT"

// parseTransaction parses a transaction:
//
//	DATE [txn] FLAG [PAYEE] NARRATION [TAG|LINK]*
//	  [KEY: VALUE]*
//	  POSTING*
func (p *Parser) parseTransaction(pos ast.Position, date *ast.Date) (*ast.Transaction, error) {
	txn := &ast.Transaction{
		Pos:       pos,
		EntryDate: date,
	}

	hadTxnKeyword := p.match(TXN)

	if flag, ok := p.parseFlag(); ok {
		txn.Flag = flag
	} else if hadTxnKeyword {
		// Bare "txn" keyword defaults to a cleared transaction.
		txn.Flag = "*"
	} else {
		if tok := p.peek(); tok.Type == IDENT && tok.String(p.source) == "P" {
			return nil, p.errorAtToken(tok, "flag 'P' is reserved for padding transactions")
		}
		return nil, p.error("expected transaction flag or 'txn'")
	}

	// One string is the narration; two strings are payee then narration.
	if !p.check(STRING) {
		return nil, p.error("expected transaction payee or narration string")
	}
	first, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if p.check(STRING) {
		second, err := p.parseString()
		if err != nil {
			return nil, err
		}
		txn.Payee = first
		txn.Narration = second
	} else {
		txn.Narration = first
	}

	// Tags and links can be intermixed.
	for p.check(TAG) || p.check(LINK) {
		if p.check(TAG) {
			tag, err := p.parseTag()
			if err != nil {
				return nil, err
			}
			txn.Tags = append(txn.Tags, tag)
		} else {
			link, err := p.parseLink()
			if err != nil {
				return nil, err
			}
			txn.Links = append(txn.Links, link)
		}
	}

	txn.AddMetadata(p.parseMetadata()...)

	postings, err := p.parsePostings(pos.Line)
	if err != nil {
		return nil, err
	}
	txn.Postings = postings

	return txn, nil
}

// parseFlag consumes a transaction or posting flag token if one is present.
func (p *Parser) parseFlag() (string, bool) {
	tok := p.peek()
	switch tok.Type {
	case ASTERISK:
		p.advance()
		return "*", true
	case EXCLAIM:
		p.advance()
		return "!", true
	case FLAG:
		p.advance()
		return tok.String(p.source), true
	case IDENT:
		s := tok.String(p.source)
		if len(s) == 1 && s != "P" && strings.Contains(sourceFlags, s) {
			p.advance()
			return s, true
		}
	}
	return "", false
}

// parsePostings parses the indented posting lines following a transaction
// header. A line at column 1 ends the block.
func (p *Parser) parsePostings(headerLine int) ([]*ast.Posting, error) {
	postings := make([]*ast.Posting, 0, 4)

	for !p.isAtEnd() {
		tok := p.peek()

		if tok.Line == headerLine {
			return nil, p.errorAtToken(tok, "postings must start on a new line")
		}
		if tok.Column <= 1 {
			break
		}

		// A posting starts with an optional flag or an account.
		if tok.Type != ASTERISK && tok.Type != EXCLAIM && tok.Type != FLAG && tok.Type != ACCOUNT {
			break
		}

		posting, err := p.parsePosting()
		if err != nil {
			return nil, err
		}
		postings = append(postings, posting)
	}

	return postings, nil
}

// parsePosting parses a single posting:
//
//	[FLAG] ACCOUNT [AMOUNT] [COST] [@ PRICE | @@ PRICE]
//	  [KEY: VALUE]*
//
// A posting without an amount is the elided posting whose units the ledger
// interpolates. An @@ total price is desugared to per-unit here.
func (p *Parser) parsePosting() (*ast.Posting, error) {
	startTok := p.peek()
	posting := &ast.Posting{Pos: tokenPosition(startTok, p.filename)}

	if flag, ok := p.parseFlag(); ok {
		posting.Flag = flag
	}

	account, err := p.parseAccount()
	if err != nil {
		return nil, err
	}
	posting.Account = account

	if p.check(NUMBER) || p.check(MINUS) || p.check(LPAREN) {
		amount, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		posting.Units = amount
	}

	if p.check(LBRACE) || p.check(LDBRACE) {
		spec, err := p.parseCostSpec()
		if err != nil {
			return nil, err
		}
		posting.CostSpec = spec
	}

	if p.match(ATAT) {
		priceTok := p.previous()
		total, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		if posting.Units == nil {
			return nil, p.errorAtToken(priceTok, "total price @@ requires explicit units")
		}
		if posting.Units.Number.IsZero() {
			posting.Price = total
		} else {
			posting.Price = &ast.Amount{
				Number:   total.Number.Div(posting.Units.Number.Abs()),
				Currency: total.Currency,
			}
		}
	} else if p.match(AT) {
		price, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		posting.Price = price
	}

	posting.AddMetadata(p.parseMetadata()...)
	return posting, nil
}
