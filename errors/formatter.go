// Package errors renders pipeline errors for output. Domain error types
// live with the code that raises them (parser, ledger, loader); this
// package is the presentation layer, turning them into bean-check style
// text or the JSON error objects the command surface emits.
package errors

import (
	"encoding/json"
	"strings"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/formatter"
	"github.com/robinvdvleuten/beanquery/wire"
)

// Formatter renders errors in one output format.
type Formatter interface {
	// Format renders a single error.
	Format(err error) string

	// FormatAll renders multiple errors.
	FormatAll(errs []error) string
}

// TextFormatter renders errors in bean-check style: the message, then the
// offending directive or the source lines around the error position.
type TextFormatter struct {
	formatter     *formatter.Formatter
	sourceContent []byte
}

// TextFormatterOption configures a TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource supplies source content for error context.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) { tf.sourceContent = source }
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(f *formatter.Formatter, opts ...TextFormatterOption) *TextFormatter {
	if f == nil {
		f = formatter.New()
	}
	tf := &TextFormatter{formatter: f}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format renders a single error. Errors that carry their directive show it
// below the message; errors that only carry a position show the surrounding
// source when it is available.
func (tf *TextFormatter) Format(err error) string {
	if e, ok := err.(interface {
		GetPosition() ast.Position
		GetDirective() ast.Directive
		Error() string
	}); ok && e.GetDirective() != nil {
		return tf.formatWithDirective(e.Error(), e.GetDirective())
	}

	if e, ok := err.(interface {
		GetPosition() ast.Position
		Error() string
	}); ok && tf.sourceContent != nil {
		return tf.formatWithSourceContext(e.GetPosition(), e.Error())
	}

	return err.Error()
}

// FormatAll renders multiple errors separated by blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	rendered := make([]string, len(errs))
	for i, err := range errs {
		rendered[i] = tf.Format(err)
	}
	return strings.Join(rendered, "\n\n")
}

// formatWithDirective shows the message and the directive it concerns,
// indented three spaces.
func (tf *TextFormatter) formatWithDirective(message string, directive ast.Directive) string {
	var buf strings.Builder
	buf.WriteString(message)
	buf.WriteString("\n\n")

	for _, line := range strings.Split(tf.formatter.FormatDirective(directive), "\n") {
		if line == "" {
			continue
		}
		buf.WriteString("   " + line + "\n")
	}
	return buf.String()
}

// formatWithSourceContext shows the message, the source lines around the
// error and a caret under the error column.
func (tf *TextFormatter) formatWithSourceContext(pos ast.Position, message string) string {
	var buf strings.Builder
	buf.WriteString(message)
	buf.WriteString("\n\n")

	lines := strings.Split(string(tf.sourceContent), "\n")
	start := max(pos.Line-3, 0)
	end := min(pos.Line+1, len(lines)-1)

	for i := start; i <= end; i++ {
		buf.WriteString("   " + lines[i] + "\n")
		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   " + strings.Repeat(" ", pos.Column-1) + "^\n")
		}
	}
	return buf.String()
}

// JSONFormatter renders errors as the JSON error objects used on the
// command surface, one per line for Format and as an array for FormatAll.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format renders a single error as a JSON object.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(wire.EncodeError(err))
	return string(data)
}

// FormatAll renders errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.Marshal(wire.EncodeErrors(errs))
	return string(data)
}
