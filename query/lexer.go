package query

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenDate
	tokenComma
	tokenLparen
	tokenRparen
	tokenStar
	tokenPlus
	tokenMinus
	tokenSlash
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenTilde
)

type token struct {
	typ  tokenType
	text string
	pos  int
}

// keyword reports whether an ident token matches a keyword,
// case-insensitively.
func (t token) keyword(word string) bool {
	return t.typ == tokenIdent && strings.EqualFold(t.text, word)
}

// lex splits a BQL query into tokens. Dates are recognized as the literal
// shape dddd-dd-dd so the parser never confuses them with subtraction.
func lex(query string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ",", i})
			i++
		case c == '(':
			tokens = append(tokens, token{tokenLparen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRparen, ")", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokenStar, "*", i})
			i++
		case c == '+':
			tokens = append(tokens, token{tokenPlus, "+", i})
			i++
		case c == '-':
			tokens = append(tokens, token{tokenMinus, "-", i})
			i++
		case c == '/':
			tokens = append(tokens, token{tokenSlash, "/", i})
			i++
		case c == '~':
			tokens = append(tokens, token{tokenTilde, "~", i})
			i++
		case c == '=':
			tokens = append(tokens, token{tokenEq, "=", i})
			i++
		case c == '!':
			if i+1 < len(query) && query[i+1] == '=' {
				tokens = append(tokens, token{tokenNeq, "!=", i})
				i += 2
			} else {
				return nil, newParseErrorf(query, i, "unexpected character %q", c)
			}
		case c == '<':
			if i+1 < len(query) && query[i+1] == '=' {
				tokens = append(tokens, token{tokenLte, "<=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenLt, "<", i})
				i++
			}
		case c == '>':
			if i+1 < len(query) && query[i+1] == '=' {
				tokens = append(tokens, token{tokenGte, ">=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenGt, ">", i})
				i++
			}
		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for j < len(query) && query[j] != quote {
				j++
			}
			if j >= len(query) {
				return nil, newParseErrorf(query, i, "unterminated string")
			}
			tokens = append(tokens, token{tokenString, query[i+1 : j], i})
			i = j + 1
		case c >= '0' && c <= '9':
			if i+10 <= len(query) && isDateLiteral(query[i:i+10]) {
				tokens = append(tokens, token{tokenDate, query[i : i+10], i})
				i += 10
				continue
			}
			j := i
			for j < len(query) && (isDigit(query[j]) || query[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokenNumber, query[i:j], i})
			i = j
		case isIdentStart(rune(c)):
			j := i
			for j < len(query) && isIdentPart(rune(query[j])) {
				j++
			}
			tokens = append(tokens, token{tokenIdent, query[i:j], i})
			i = j
		default:
			return nil, newParseErrorf(query, i, "unexpected character %q", c)
		}
	}
	tokens = append(tokens, token{tokenEOF, "", len(query)})
	return tokens, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// isDateLiteral matches the exact shape dddd-dd-dd.
func isDateLiteral(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range []byte(s) {
		if i == 4 || i == 7 {
			continue
		}
		if !isDigit(c) {
			return false
		}
	}
	return true
}
