package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestCommandErrorExitCodes(t *testing.T) {
	assert.Equal(t, ExitUserError, userError(errors.New("bad input")).ExitCode())
	assert.Equal(t, ExitInternalError, internalError(errors.New("boom")).ExitCode())
	assert.Equal(t, ExitUserError, NewCommandError(ExitUserError).ExitCode())
}

func TestCommandErrorMessage(t *testing.T) {
	err := userError(errors.New("bad input"))
	assert.True(t, err.HasMessage())
	assert.Equal(t, "bad input", err.Error())

	silent := NewCommandError(ExitUserError)
	assert.False(t, silent.HasMessage())
	assert.Equal(t, "command failed", silent.Error())
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	wrapped := userError(fmt.Errorf("context: %w", cause))
	assert.True(t, errors.Is(wrapped, cause))
}
