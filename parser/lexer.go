package parser

import "bytes"

// Lexer scans Beancount source into a token stream in a single pass.
// Tokens reference byte offsets in the source buffer rather than carrying
// copies of their text. Lexing never aborts: invalid input produces an
// ILLEGAL token and scanning resumes at the next line.
type Lexer struct {
	source   []byte
	filename string
	pos      int
	line     int
	column   int
	tokens   []Token
	errors   []error
}

// NewLexer creates a lexer for the given source buffer.
func NewLexer(filename string, source []byte) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		column:   1,
		// Rough guess: one token per four bytes of source.
		tokens: make([]Token, 0, len(source)/4+16),
	}
}

// ScanAll scans the entire source and returns the token stream plus any
// lexical errors encountered along the way.
func (l *Lexer) ScanAll() ([]Token, []error) {
	for l.pos < len(l.source) {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.source) {
			break
		}
		l.scanToken()
	}
	l.tokens = append(l.tokens, Token{Type: EOF, Start: l.pos, End: l.pos, Line: l.line, Column: l.column})
	return l.tokens, l.errors
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance()
		case c == '\n':
			l.advance()
		case c == ';':
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanToken() {
	start, line, column := l.pos, l.line, l.column
	c := l.source[l.pos]

	switch {
	case c == '"':
		l.scanString(start, line, column)
	case isDigit(c):
		if l.isDatePattern() {
			l.advanceN(10)
			l.emit(DATE, start, line, column)
		} else {
			l.scanNumber(start, line, column)
		}
	case c == '#':
		l.scanPrefixed(TAG, start, line, column)
	case c == '^':
		l.scanPrefixed(LINK, start, line, column)
	case isLetter(c):
		l.scanWord(start, line, column)
	default:
		l.scanSymbol(c, start, line, column)
	}
}

func (l *Lexer) scanSymbol(c byte, start, line, column int) {
	l.advance()
	switch c {
	case '*':
		l.emit(ASTERISK, start, line, column)
	case '!':
		l.emit(EXCLAIM, start, line, column)
	case ':':
		l.emit(COLON, start, line, column)
	case ',':
		l.emit(COMMA, start, line, column)
	case '@':
		if l.peekByte() == '@' {
			l.advance()
			l.emit(ATAT, start, line, column)
		} else {
			l.emit(AT, start, line, column)
		}
	case '{':
		if l.peekByte() == '{' {
			l.advance()
			l.emit(LDBRACE, start, line, column)
		} else {
			l.emit(LBRACE, start, line, column)
		}
	case '}':
		if l.peekByte() == '}' {
			l.advance()
			l.emit(RDBRACE, start, line, column)
		} else {
			l.emit(RBRACE, start, line, column)
		}
	case '+':
		l.emit(PLUS, start, line, column)
	case '-':
		l.emit(MINUS, start, line, column)
	case '/':
		l.emit(SLASH, start, line, column)
	case '(':
		l.emit(LPAREN, start, line, column)
	case ')':
		l.emit(RPAREN, start, line, column)
	case '~':
		l.emit(TILDE, start, line, column)
	case '&', '?', '%':
		l.emit(FLAG, start, line, column)
	default:
		l.illegal(start, line, column, "unexpected character %q", string(c))
		l.resyncLine()
	}
}

// scanString scans a double-quoted string with \" and \\ escapes. An
// unterminated string is an error; scanning resumes on the next line.
func (l *Lexer) scanString(start, line, column int) {
	l.advance() // opening quote
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		if c == '\\' && l.pos+1 < len(l.source) {
			l.advanceN(2)
			continue
		}
		if c == '"' {
			l.advance()
			l.emit(STRING, start, line, column)
			return
		}
		if c == '\n' {
			break
		}
		l.advance()
	}
	l.illegal(start, line, column, "unterminated string")
	l.resyncLine()
}

// scanNumber scans digits with optional grouping commas and a decimal point.
// A trailing comma is left for the parser (cost spec separators).
func (l *Lexer) scanNumber(start, line, column int) {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		if isDigit(c) || c == '.' {
			l.advance()
			continue
		}
		if c == ',' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1]) {
			l.advance()
			continue
		}
		break
	}
	l.emit(NUMBER, start, line, column)
}

// scanPrefixed scans a #tag or ^link.
func (l *Lexer) scanPrefixed(typ TokenType, start, line, column int) {
	l.advance() // prefix
	n := 0
	for l.pos < len(l.source) && isNameChar(l.source[l.pos]) {
		l.advance()
		n++
	}
	if n == 0 {
		l.illegal(start, line, column, "empty %s name", typ)
		return
	}
	l.emit(typ, start, line, column)
}

// scanWord scans keywords, identifiers and account names. A ':' joins the
// word only when followed by an uppercase letter or digit, so account names
// stay whole while metadata keys leave their colon as a separate token.
func (l *Lexer) scanWord(start, line, column int) {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		if isNameChar(c) {
			l.advance()
			continue
		}
		if c == ':' && l.pos+1 < len(l.source) && isAccountStart(l.source[l.pos+1]) {
			l.advance()
			continue
		}
		break
	}

	word := l.source[start:l.pos]
	if typ, ok := lookupKeyword(word); ok {
		l.emit(typ, start, line, column)
		return
	}
	if bytes.IndexByte(word, ':') >= 0 {
		l.emit(ACCOUNT, start, line, column)
		return
	}
	l.emit(IDENT, start, line, column)
}

var keywords = []struct {
	name []byte
	typ  TokenType
}{
	{[]byte("txn"), TXN},
	{[]byte("balance"), BALANCE},
	{[]byte("open"), OPEN},
	{[]byte("close"), CLOSE},
	{[]byte("commodity"), COMMODITY},
	{[]byte("pad"), PAD},
	{[]byte("note"), NOTE},
	{[]byte("document"), DOCUMENT},
	{[]byte("price"), PRICE},
	{[]byte("event"), EVENT},
	{[]byte("query"), QUERY},
	{[]byte("custom"), CUSTOM},
	{[]byte("option"), OPTION},
	{[]byte("include"), INCLUDE},
	{[]byte("plugin"), PLUGIN},
	{[]byte("pushtag"), PUSHTAG},
	{[]byte("poptag"), POPTAG},
	{[]byte("pushmeta"), PUSHMETA},
	{[]byte("popmeta"), POPMETA},
}

func lookupKeyword(word []byte) (TokenType, bool) {
	for _, kw := range keywords {
		if bytes.Equal(word, kw.name) {
			return kw.typ, true
		}
	}
	return ILLEGAL, false
}

// isDatePattern checks for YYYY-MM-DD at the current position without
// consuming input. Dates must be checked before numbers since both start
// with a digit.
func (l *Lexer) isDatePattern() bool {
	if l.pos+10 > len(l.source) {
		return false
	}
	s := l.source[l.pos : l.pos+10]
	for i, c := range s {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		default:
			if !isDigit(c) {
				return false
			}
		}
	}
	// Must not continue into a longer number-like token.
	if l.pos+10 < len(l.source) && isDigit(l.source[l.pos+10]) {
		return false
	}
	return true
}

// resyncLine discards the rest of the current line after a lexical error.
func (l *Lexer) resyncLine() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.advance()
	}
}

func (l *Lexer) emit(typ TokenType, start, line, column int) {
	l.tokens = append(l.tokens, Token{Type: typ, Start: start, End: l.pos, Line: line, Column: column})
}

func (l *Lexer) illegal(start, line, column int, format string, args ...interface{}) {
	l.tokens = append(l.tokens, Token{Type: ILLEGAL, Start: start, End: l.pos, Line: line, Column: column})
	l.errors = append(l.errors, newLexErrorf(position(l.filename, start, line, column), format, args...))
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() {
	if l.source[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && l.pos < len(l.source); i++ {
		l.advance()
	}
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}
func isAccountStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || isDigit(c)
}
