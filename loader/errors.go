package loader

import (
	"fmt"

	"github.com/robinvdvleuten/beanquery/ast"
)

// IncludeCycleError reports an include that leads back to a file currently
// being loaded. The include is skipped; every file still loads once.
type IncludeCycleError struct {
	Pos      ast.Position
	Filename string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("%s:%d: include cycle through %q", e.Pos.Filename, e.Pos.Line, e.Filename)
}

func (e *IncludeCycleError) Kind() string              { return "IncludeCycle" }
func (e *IncludeCycleError) GetPosition() ast.Position { return e.Pos }

// IncludePathEscapeError reports an include whose resolved path leaves the
// directory tree of the root file. The leaf contributes no directives.
type IncludePathEscapeError struct {
	Pos      ast.Position
	Filename string
	Root     string
}

func (e *IncludePathEscapeError) Error() string {
	return fmt.Sprintf("%s:%d: include %q escapes the ledger root %q", e.Pos.Filename, e.Pos.Line, e.Filename, e.Root)
}

func (e *IncludePathEscapeError) Kind() string              { return "IncludePathEscape" }
func (e *IncludePathEscapeError) GetPosition() ast.Position { return e.Pos }

// ReadError reports a file that could not be read.
type ReadError struct {
	Pos      ast.Position
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Filename, e.Err)
}

func (e *ReadError) Kind() string              { return "ParseError" }
func (e *ReadError) GetPosition() ast.Position { return e.Pos }
func (e *ReadError) Unwrap() error             { return e.Err }

// DecryptionError reports a gpg invocation that failed.
type DecryptionError struct {
	Filename string
	Output   string
	Err      error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("cannot decrypt %s: %v", e.Filename, e.Err)
}

func (e *DecryptionError) Kind() string { return "DecryptionError" }
func (e *DecryptionError) Unwrap() error { return e.Err }

// DecryptionTimeoutError reports a gpg invocation that exceeded the
// configured timeout, commonly a pinentry prompt nobody answered.
type DecryptionTimeoutError struct {
	Filename string
	Timeout  string
}

func (e *DecryptionTimeoutError) Error() string {
	return fmt.Sprintf("decryption of %s timed out after %s", e.Filename, e.Timeout)
}

func (e *DecryptionTimeoutError) Kind() string { return "DecryptionTimeout" }
