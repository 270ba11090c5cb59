package ast

import "fmt"

// Position represents a location in a source file. Line 0 marks a directive
// synthesized by a plugin or by the booking pass rather than parsed from
// source.
type Position struct {
	Filename string
	Offset   int // Byte offset
	Line     int // Line number (1-indexed; 0 for synthesized directives)
	Column   int // Column number (1-indexed)
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// GoString returns a Go-syntax representation of the position.
func (p Position) GoString() string {
	return fmt.Sprintf("Position{Filename: %q, Line: %d, Column: %d}", p.Filename, p.Line, p.Column)
}
