package parser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func scan(t *testing.T, source string) ([]Token, []error) {
	t.Helper()
	return NewLexer("test.beancount", []byte(source)).ScanAll()
}

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

// A directive line scans into date, keyword, account and amount tokens.
func TestScanOpenDirective(t *testing.T) {
	tokens, errs := scan(t, "2014-05-01 open Assets:US:BofA:Checking USD\n")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{DATE, OPEN, ACCOUNT, IDENT, EOF}, tokenTypes(tokens))
	assert.Equal(t, "Assets:US:BofA:Checking", tokens[2].String([]byte("2014-05-01 open Assets:US:BofA:Checking USD\n")))
}

// Dates are distinguished from numbers even though both start with digits.
func TestScanDateBeforeNumber(t *testing.T) {
	tokens, errs := scan(t, "2014-05-01 balance Assets:Cash 562.00 USD")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{DATE, BALANCE, ACCOUNT, NUMBER, IDENT, EOF}, tokenTypes(tokens))
}

// Grouping commas stay inside a number token; the trailing comma of a cost
// spec does not.
func TestScanNumberWithCommas(t *testing.T) {
	source := "1,234.56 USD"
	tokens, errs := scan(t, source)
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{NUMBER, IDENT, EOF}, tokenTypes(tokens))
	assert.Equal(t, "1,234.56", tokens[0].String([]byte(source)))
}

// Tags, links, and flag characters each scan to their own token type.
func TestScanTagsLinksFlags(t *testing.T) {
	tokens, errs := scan(t, "#dining ^trip-2014 & ? %")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{TAG, LINK, FLAG, FLAG, FLAG, EOF}, tokenTypes(tokens))
}

// Braces double up for the total-cost form.
func TestScanCostBraces(t *testing.T) {
	tokens, errs := scan(t, "{518.73 USD} {{5187.30 USD}} @ @@")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{
		LBRACE, NUMBER, IDENT, RBRACE,
		LDBRACE, NUMBER, IDENT, RDBRACE,
		AT, ATAT, EOF,
	}, tokenTypes(tokens))
}

// Comments extend to end of line and never produce tokens.
func TestScanSkipsComments(t *testing.T) {
	tokens, errs := scan(t, "; a full-line comment\n2014-01-01 open Assets:Cash ; trailing\n")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{DATE, OPEN, ACCOUNT, EOF}, tokenTypes(tokens))
}

// Strings keep escaped quotes and report unterminated ones without
// aborting the rest of the document.
func TestScanStrings(t *testing.T) {
	source := "\"hello \\\"world\\\"\""
	tokens, errs := scan(t, source)
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{STRING, EOF}, tokenTypes(tokens))

	tokens, errs = scan(t, "\"unterminated\n2014-01-01 open Assets:Cash\n")
	assert.Equal(t, 1, len(errs))
	assert.Equal(t, []TokenType{ILLEGAL, DATE, OPEN, ACCOUNT, EOF}, tokenTypes(tokens))
}

// An invalid character produces one error and scanning resumes on the next
// line.
func TestScanRecoversFromIllegalCharacter(t *testing.T) {
	tokens, errs := scan(t, "` junk\n2014-01-01 open Assets:Cash\n")
	assert.Equal(t, 1, len(errs))
	assert.Equal(t, []TokenType{ILLEGAL, DATE, OPEN, ACCOUNT, EOF}, tokenTypes(tokens))

	var lexErr *LexError
	assert.True(t, errorAs(errs[0], &lexErr))
	assert.Equal(t, 1, lexErr.Pos.Line)
}

// A metadata key keeps its colon as a separate token while an account name
// absorbs interior colons.
func TestScanMetadataKeyColon(t *testing.T) {
	tokens, errs := scan(t, "invoice: \"INV-1\"")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []TokenType{IDENT, COLON, STRING, EOF}, tokenTypes(tokens))
}

func errorAs[T error](err error, target *T) bool {
	if e, ok := err.(T); ok {
		*target = e
		return true
	}
	return false
}
