package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robinvdvleuten/beanquery/ast"
	"github.com/robinvdvleuten/beanquery/formatter"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling: the message in red,
// then the offending directive or the source lines around the error with a
// caret at the column.
type ErrorRenderer struct {
	source    []byte
	formatter *formatter.Formatter
}

// NewErrorRenderer creates a renderer with source content for context.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source, formatter: formatter.New()}
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	if e, ok := err.(interface {
		GetPosition() ast.Position
		GetDirective() ast.Directive
		Error() string
	}); ok && e.GetDirective() != nil {
		return r.renderWithDirective(e.Error(), e.GetDirective())
	}

	if e, ok := err.(interface {
		GetPosition() ast.Position
		Error() string
	}); ok && r.source != nil {
		return r.renderWithSourceContext(e.GetPosition(), e.Error())
	}

	return err.Error()
}

// RenderAll formats multiple errors, separated by blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	rendered := make([]string, len(errs))
	for i, err := range errs {
		rendered[i] = r.Render(err)
	}
	return strings.Join(rendered, "\n\n")
}

func (r *ErrorRenderer) renderWithSourceContext(pos ast.Position, message string) string {
	var buf strings.Builder
	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	lines := strings.Split(string(r.source), "\n")
	start := max(pos.Line-3, 0)
	end := min(pos.Line+1, len(lines)-1)

	for i := start; i <= end; i++ {
		buf.WriteString("   " + errContextStyle.Render(lines[i]) + "\n")
		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   " + strings.Repeat(" ", pos.Column-1))
			buf.WriteString(errCaretStyle.Render("^") + "\n")
		}
	}
	return buf.String()
}

func (r *ErrorRenderer) renderWithDirective(message string, directive ast.Directive) string {
	var buf strings.Builder
	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	for _, line := range strings.Split(r.formatter.FormatDirective(directive), "\n") {
		if line == "" {
			continue
		}
		buf.WriteString("   " + errContextStyle.Render(line) + "\n")
	}
	return buf.String()
}
