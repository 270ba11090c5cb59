package cli

// Exit codes on the command surface.
const (
	// ExitUserError covers bad arguments, unreadable inputs and malformed
	// request JSON. The message goes to stderr as plain text, never JSON.
	ExitUserError = 1

	// ExitInternalError covers failures of the tool itself.
	ExitInternalError = 2
)

// CommandError signals a command failure with a specific exit code.
// Commands return it after writing their own output; main centralizes
// exit handling instead of commands calling os.Exit directly.
type CommandError struct {
	exitCode int
	err      error
}

// NewCommandError creates a CommandError with the given exit code.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

// userError wraps a user-facing failure: exit code 1, message printed by
// main to stderr.
func userError(err error) *CommandError {
	return &CommandError{exitCode: ExitUserError, err: err}
}

// internalError wraps a tool failure: exit code 2.
func internalError(err error) *CommandError {
	return &CommandError{exitCode: ExitInternalError, err: err}
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "command failed"
}

// Unwrap exposes the wrapped cause.
func (e *CommandError) Unwrap() error { return e.err }

// ExitCode returns the exit code associated with this error.
func (e *CommandError) ExitCode() int { return e.exitCode }

// HasMessage reports whether main should print the error to stderr. Bare
// CommandErrors come from commands that already wrote their output.
func (e *CommandError) HasMessage() bool { return e.err != nil }
