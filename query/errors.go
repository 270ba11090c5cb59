package query

import "fmt"

// ParseError reports BQL text that does not match the grammar.
type ParseError struct {
	Query   string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("query parse error at offset %d: %s", e.Pos, e.Message)
}

func (e *ParseError) Kind() string { return "QueryParseError" }

// CompilationError reports a grammatical query that does not compile: an
// unknown column or function, a type mismatch, or a non-aggregated target
// missing from GROUP BY.
type CompilationError struct {
	Query   string
	Message string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("query compilation error: %s", e.Message)
}

func (e *CompilationError) Kind() string { return "QueryCompilationError" }

func newParseErrorf(query string, pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Query: query, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func newCompileErrorf(query string, format string, args ...interface{}) *CompilationError {
	return &CompilationError{Query: query, Message: fmt.Sprintf(format, args...)}
}
