package parser

import (
	"fmt"

	"github.com/robinvdvleuten/beanquery/ast"
)

// LexError represents an invalid token in the source. The lexer records one
// per offending character sequence and keeps scanning.
type LexError struct {
	Pos     ast.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Pos.Filename, e.Pos.Line, e.Message)
}

func (e *LexError) Kind() string              { return "LexError" }
func (e *LexError) GetPosition() ast.Position { return e.Pos }

// ParseError represents a malformed directive. The parser discards the
// directive, records one of these, and resynchronizes at the next top-level
// line.
type ParseError struct {
	Pos     ast.Position
	Message string
}

func (e *ParseError) Error() string {
	if e.Pos.Filename == "" {
		return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.Pos.Filename, e.Pos.Line, e.Message)
}

func (e *ParseError) Kind() string              { return "ParseError" }
func (e *ParseError) GetPosition() ast.Position { return e.Pos }

// PopEmptyError reports a poptag/popmeta without a matching push, or a push
// still active at end of file.
type PopEmptyError struct {
	Pos     ast.Position
	Message string
}

func (e *PopEmptyError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Pos.Filename, e.Pos.Line, e.Message)
}

func (e *PopEmptyError) Kind() string              { return "PopEmpty" }
func (e *PopEmptyError) GetPosition() ast.Position { return e.Pos }

// DuplicateMetadataError reports the same metadata key appearing twice on
// one directive or posting.
type DuplicateMetadataError struct {
	Pos ast.Position
	Key string
}

func (e *DuplicateMetadataError) Error() string {
	return fmt.Sprintf("%s:%d: duplicate metadata key %q", e.Pos.Filename, e.Pos.Line, e.Key)
}

func (e *DuplicateMetadataError) Kind() string              { return "DuplicateMetadata" }
func (e *DuplicateMetadataError) GetPosition() ast.Position { return e.Pos }

func newLexErrorf(pos ast.Position, format string, args ...interface{}) *LexError {
	return &LexError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func newParseErrorf(pos ast.Position, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func position(filename string, offset, line, column int) ast.Position {
	return ast.Position{Filename: filename, Offset: offset, Line: line, Column: column}
}
