package query

import (
	"strconv"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/shopspring/decimal"
)

// selectStmt is the parsed form of a BQL query.
type selectStmt struct {
	Wildcard bool
	Targets  []target
	From     expr
	Where    expr
	GroupBy  []columnRef
	OrderBy  []orderKey
	Limit    *int
}

// target is one projected expression with an optional alias.
type target struct {
	Expr expr
	As   string
}

// columnRef names a target either by alias or column name, or by 1-based
// index.
type columnRef struct {
	Name  string
	Index int
}

type orderKey struct {
	Ref  columnRef
	Desc bool
}

// expr is the interface of BQL expression nodes.
type expr interface {
	text() string
}

type columnExpr struct{ Name string }

type literalExpr struct {
	Str    *string
	Number *decimal.Decimal
	Date   *ast.Date
	Bool   *bool
}

type binaryExpr struct {
	Op    string
	Left  expr
	Right expr
}

type unaryExpr struct {
	Op string
	X  expr
}

type callExpr struct {
	Func string
	Args []expr
}

type caseExpr struct {
	Whens []caseWhen
	Else  expr
}

type caseWhen struct {
	Cond expr
	Then expr
}

func (e *columnExpr) text() string { return e.Name }

func (e *literalExpr) text() string {
	switch {
	case e.Str != nil:
		return strconv.Quote(*e.Str)
	case e.Number != nil:
		return e.Number.String()
	case e.Date != nil:
		return e.Date.String()
	case e.Bool != nil:
		return strings.ToUpper(strconv.FormatBool(*e.Bool))
	default:
		return "NULL"
	}
}

func (e *binaryExpr) text() string {
	return e.Left.text() + " " + e.Op + " " + e.Right.text()
}

func (e *unaryExpr) text() string {
	if e.Op == "NOT" {
		return "NOT " + e.X.text()
	}
	return e.Op + e.X.text()
}

func (e *callExpr) text() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.text()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

func (e *caseExpr) text() string { return "CASE ... END" }

// parser consumes the token stream produced by lex.
type parser struct {
	query  string
	tokens []token
	pos    int
}

func parse(query string) (*selectStmt, error) {
	tokens, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{query: query, tokens: tokens}
	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokenEOF {
		return nil, p.errorf("unexpected %q after query", p.peek().text)
	}
	return stmt, nil
}

func (p *parser) peek() token  { return p.tokens[p.pos] }
func (p *parser) next() token  { t := p.tokens[p.pos]; p.pos++; return t }
func (p *parser) backup()      { p.pos-- }
func (p *parser) errorf(format string, args ...interface{}) error {
	return newParseErrorf(p.query, p.peek().pos, format, args...)
}

func (p *parser) acceptKeyword(word string) bool {
	if p.peek().keyword(word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseSelect() (*selectStmt, error) {
	if !p.acceptKeyword("SELECT") {
		return nil, p.errorf("expected SELECT")
	}
	stmt := &selectStmt{}

	if p.peek().typ == tokenStar {
		p.next()
		stmt.Wildcard = true
	} else {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			t := target{Expr: e}
			if p.acceptKeyword("AS") {
				name := p.next()
				if name.typ != tokenIdent {
					return nil, p.errorf("expected alias after AS")
				}
				t.As = name.text
			}
			stmt.Targets = append(stmt.Targets, t)
			if p.peek().typ != tokenComma {
				break
			}
			p.next()
		}
	}

	if p.acceptKeyword("FROM") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.From = e
	}
	if p.acceptKeyword("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = e
	}
	if p.acceptKeyword("GROUP") {
		if !p.acceptKeyword("BY") {
			return nil, p.errorf("expected BY after GROUP")
		}
		refs, err := p.parseColumnRefs()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = refs
	}
	if p.acceptKeyword("ORDER") {
		if !p.acceptKeyword("BY") {
			return nil, p.errorf("expected BY after ORDER")
		}
		for {
			ref, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			key := orderKey{Ref: ref}
			if p.acceptKeyword("DESC") {
				key.Desc = true
			} else {
				p.acceptKeyword("ASC")
			}
			stmt.OrderBy = append(stmt.OrderBy, key)
			if p.peek().typ != tokenComma {
				break
			}
			p.next()
		}
	}
	if p.acceptKeyword("LIMIT") {
		t := p.next()
		if t.typ != tokenNumber {
			return nil, p.errorf("expected a number after LIMIT")
		}
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 0 {
			return nil, p.errorf("invalid LIMIT %q", t.text)
		}
		stmt.Limit = &n
	}
	return stmt, nil
}

func (p *parser) parseColumnRefs() ([]columnRef, error) {
	var refs []columnRef
	for {
		ref, err := p.parseColumnRef()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		if p.peek().typ != tokenComma {
			return refs, nil
		}
		p.next()
	}
}

func (p *parser) parseColumnRef() (columnRef, error) {
	t := p.next()
	switch t.typ {
	case tokenIdent:
		return columnRef{Name: t.text}, nil
	case tokenNumber:
		n, err := strconv.Atoi(t.text)
		if err != nil || n < 1 {
			p.backup()
			return columnRef{}, p.errorf("invalid column index %q", t.text)
		}
		return columnRef{Index: n}, nil
	default:
		p.backup()
		return columnRef{}, p.errorf("expected a column name or index")
	}
}

// Precedence climbing: OR < AND < NOT < comparison < additive <
// multiplicative < unary minus < primary.
func (p *parser) parseExpr() (expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (expr, error) {
	if p.acceptKeyword("NOT") {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{Op: "NOT", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[tokenType]string{
	tokenEq:    "=",
	tokenNeq:   "!=",
	tokenLt:    "<",
	tokenLte:   "<=",
	tokenGt:    ">",
	tokenGte:   ">=",
	tokenTilde: "~",
}

func (p *parser) parseComparison() (expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.peek().typ]; ok {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peek().typ {
		case tokenPlus:
			op = "+"
		case tokenMinus:
			op = "-"
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.peek().typ {
		case tokenStar:
			op = "*"
		case tokenSlash:
			op = "/"
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (expr, error) {
	if p.peek().typ == tokenMinus {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.next()
	switch t.typ {
	case tokenString:
		s := t.text
		return &literalExpr{Str: &s}, nil
	case tokenNumber:
		n, err := decimal.NewFromString(t.text)
		if err != nil {
			p.backup()
			return nil, p.errorf("invalid number %q", t.text)
		}
		return &literalExpr{Number: &n}, nil
	case tokenDate:
		d, err := ast.NewDate(t.text)
		if err != nil {
			p.backup()
			return nil, p.errorf("invalid date %q", t.text)
		}
		return &literalExpr{Date: d}, nil
	case tokenLparen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.next().typ != tokenRparen {
			p.backup()
			return nil, p.errorf("expected closing parenthesis")
		}
		return e, nil
	case tokenIdent:
		switch {
		case strings.EqualFold(t.text, "TRUE"):
			v := true
			return &literalExpr{Bool: &v}, nil
		case strings.EqualFold(t.text, "FALSE"):
			v := false
			return &literalExpr{Bool: &v}, nil
		case strings.EqualFold(t.text, "CASE"):
			return p.parseCase()
		}
		if p.peek().typ == tokenLparen {
			p.next()
			call := &callExpr{Func: strings.ToLower(t.text)}
			if p.peek().typ != tokenRparen {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					call.Args = append(call.Args, arg)
					if p.peek().typ != tokenComma {
						break
					}
					p.next()
				}
			}
			if p.next().typ != tokenRparen {
				p.backup()
				return nil, p.errorf("expected closing parenthesis after arguments")
			}
			return call, nil
		}
		return &columnExpr{Name: strings.ToLower(t.text)}, nil
	default:
		p.backup()
		return nil, p.errorf("unexpected %q", t.text)
	}
}

func (p *parser) parseCase() (expr, error) {
	out := &caseExpr{}
	for p.acceptKeyword("WHEN") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("THEN") {
			return nil, p.errorf("expected THEN")
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, caseWhen{Cond: cond, Then: then})
	}
	if len(out.Whens) == 0 {
		return nil, p.errorf("expected WHEN after CASE")
	}
	if p.acceptKeyword("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out.Else = e
	}
	if !p.acceptKeyword("END") {
		return nil, p.errorf("expected END")
	}
	return out, nil
}
