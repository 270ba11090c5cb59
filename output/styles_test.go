package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

// A non-terminal writer gets plain text back.
func TestStylesPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)

	for name, render := range map[string]func(string) string{
		"keyword": styles.Keyword,
		"dim":     styles.Dim,
		"warning": styles.Warning,
	} {
		rendered := render("lorem ipsum")
		assert.True(t, strings.Contains(rendered, "lorem ipsum"), "%s lost the text: %q", name, rendered)
	}
}
