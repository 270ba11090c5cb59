package errors

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/ledger"
	"github.com/robinvdvleuten/beanquery/parser"
	"github.com/shopspring/decimal"
)

func balanceError(t *testing.T) *ledger.BalanceAssertionError {
	t.Helper()
	file, errs := parser.Parse("main.beancount", []byte(
		"2014-02-01 balance Assets:Checking 100.00 USD\n"))
	assert.Equal(t, 0, len(errs))
	bal := file.Directives[0].(*ast.Balance)

	return ledger.NewBalanceAssertionError(bal,
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("90.00"),
		decimal.RequireFromString("0.005"))
}

// Errors carrying a directive show it below the message.
func TestTextFormatDirectiveContext(t *testing.T) {
	out := NewTextFormatter(nil).Format(balanceError(t))

	assert.Contains(t, out, "balance failed for 'Assets:Checking'")
	assert.Contains(t, out, "\n\n   2014-02-01 balance Assets:Checking")
	assert.Contains(t, out, "100.00 USD")
}

// Parse errors show the offending source line with a caret at the column.
func TestTextFormatSourceContext(t *testing.T) {
	source := []byte("2014-01-01 open Assets:Checking\n2014-01-02 nonsense here\n")
	_, errs := parser.Parse("main.beancount", source)
	assert.True(t, len(errs) > 0)

	out := NewTextFormatter(nil, WithSource(source)).Format(errs[0])
	assert.Contains(t, out, "2014-01-02 nonsense here")
	assert.Contains(t, out, "^")
}

// Without position or directive context the plain message comes through.
func TestTextFormatPlainError(t *testing.T) {
	err := assertableError("something broke")
	assert.Equal(t, "something broke", NewTextFormatter(nil).Format(err))
}

// Multiple errors are separated by blank lines.
func TestTextFormatAll(t *testing.T) {
	tf := NewTextFormatter(nil)
	out := tf.FormatAll([]error{assertableError("first"), assertableError("second")})
	assert.Equal(t, "first\n\nsecond", out)
	assert.Equal(t, "", tf.FormatAll(nil))
}

// JSON output carries the error kind and position.
func TestJSONFormat(t *testing.T) {
	out := NewJSONFormatter().Format(balanceError(t))

	var decoded struct {
		Kind     string `json:"kind"`
		Message  string `json:"message"`
		Filename string `json:"filename"`
		Lineno   int    `json:"lineno"`
	}
	assert.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "BalanceAssertionFailed", decoded.Kind)
	assert.Contains(t, decoded.Message, "balance failed")
	assert.Equal(t, "main.beancount", decoded.Filename)
	assert.Equal(t, 1, decoded.Lineno)
}

// FormatAll yields a JSON array, empty input included.
func TestJSONFormatAll(t *testing.T) {
	jf := NewJSONFormatter()
	assert.Equal(t, "[]", jf.FormatAll(nil))

	out := jf.FormatAll([]error{assertableError("boom")})
	assert.True(t, strings.HasPrefix(out, "["))

	var decoded []struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	assert.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, len(decoded))
	assert.Equal(t, "ParseError", decoded[0].Kind)
	assert.Equal(t, "boom", decoded[0].Message)
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
