package parser

import (
	"github.com/shopspring/decimal"
)

// Expression parsing for arithmetic in amounts.
//
// Grammar:
//
//	expression  → term (('+' | '-') term)*
//	term        → factor (('*' | '/') factor)*
//	factor      → NUMBER | '-' factor | '(' expression ')'
//
// Division cannot be represented exactly, so the quotient is materialized
// with at least ten digits beyond the operand precision and trimmed on
// presentation.

// parseExpression parses and evaluates an arithmetic expression.
func (p *Parser) parseExpression() (decimal.Decimal, error) {
	return p.parseAddSubtract()
}

// parseAddSubtract handles addition and subtraction (lowest precedence).
func (p *Parser) parseAddSubtract() (decimal.Decimal, error) {
	left, err := p.parseMultiplyDivide()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		op := p.peek().Type
		if op != PLUS && op != MINUS {
			break
		}
		p.advance()

		right, err := p.parseMultiplyDivide()
		if err != nil {
			return decimal.Zero, err
		}

		switch op {
		case PLUS:
			left = left.Add(right)
		case MINUS:
			left = left.Sub(right)
		}
	}

	return left, nil
}

// parseMultiplyDivide handles multiplication and division.
func (p *Parser) parseMultiplyDivide() (decimal.Decimal, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		op := p.peek().Type
		if op != ASTERISK && op != SLASH {
			break
		}
		opToken := p.advance()

		right, err := p.parsePrimary()
		if err != nil {
			return decimal.Zero, err
		}

		switch op {
		case ASTERISK:
			left = left.Mul(right)
		case SLASH:
			if right.IsZero() {
				return decimal.Zero, p.errorAtToken(opToken, "division by zero")
			}
			left = divide(left, right)
		}
	}

	return left, nil
}

// parsePrimary handles numbers, unary minus and parenthesized expressions.
func (p *Parser) parsePrimary() (decimal.Decimal, error) {
	tok := p.peek()

	switch tok.Type {
	case LPAREN:
		p.advance()
		result, err := p.parseExpression()
		if err != nil {
			return decimal.Zero, err
		}
		if !p.check(RPAREN) {
			return decimal.Zero, p.error("expected ')' after expression")
		}
		p.advance()
		return result, nil

	case NUMBER:
		numTok := p.advance()
		return p.decimalFromToken(numTok)

	case MINUS:
		p.advance()
		value, err := p.parsePrimary()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil

	case PLUS:
		p.advance()
		return p.parsePrimary()
	}

	return decimal.Zero, p.errorAtToken(tok, "expected number or '(' in expression, got %s", tok.Type)
}

// divide computes left/right rounded to the operand precision plus ten
// digits, then trims trailing zeros so exact quotients stay short.
func divide(left, right decimal.Decimal) decimal.Decimal {
	precision := int32(10)
	if e := -left.Exponent(); e > 0 {
		precision += e
	}
	if e := -right.Exponent(); e > 0 {
		precision += e
	}
	quotient := left.DivRound(right, precision)
	// An exact division such as 10.00/4 should not carry ten padded zeros.
	if quotient.Mul(right).Equal(left) {
		return trimZeros(quotient)
	}
	return quotient
}

func trimZeros(d decimal.Decimal) decimal.Decimal {
	for d.Exponent() < 0 {
		shorter := d.Truncate(-d.Exponent() - 1)
		if !shorter.Equal(d) {
			break
		}
		d = shorter
	}
	return d
}

// isExpressionStart checks whether the current position begins an
// arithmetic expression rather than a simple number.
func (p *Parser) isExpressionStart() bool {
	if p.check(NUMBER) {
		next := p.peekAhead(1).Type
		return next == PLUS || next == MINUS || next == ASTERISK || next == SLASH
	}
	return p.check(LPAREN) || p.check(MINUS) || p.check(PLUS)
}
