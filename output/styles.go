// Package output provides terminal styling for human-facing stderr
// output such as timing reports.
package output

import (
	"io"

	"github.com/muesli/termenv"
)

// Styles renders text with terminal colors when the writer supports them.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates styles for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{output: termenv.NewOutput(w)}
}

// Keyword renders emphasized text (bold).
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).Bold().String()
}

// Dim renders secondary text (faint).
func (s *Styles) Dim(text string) string {
	return s.output.String(text).Faint().String()
}

// Warning renders attention-drawing text (yellow, bold).
func (s *Styles) Warning(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		Bold().
		String()
}
