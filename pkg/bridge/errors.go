package bridge

import (
	"errors"
	"fmt"
)

// Stable machine-readable error codes carried by every command's error result.
// Callers key on the code - the message is human-readable only.
const (
	CodeSessionNotFound         = "session-not-found"
	CodeInvalidArguments        = "invalid-arguments"
	CodeInitError               = "init-error"
	CodeLoadError               = "load-error"
	CodeSessionNotReady         = "session-not-ready"
	CodeCommandFailed           = "command-exception"
	CodeSeekFailed              = "seek-exception"
	CodePresentationUnavailable = "presentation-unavailable"
)

// ErrServerClosed informs about a command issued after the bridge was closed.
var ErrServerClosed = errors.New("bridge server is closed")

// CommandError is the structured result of a failed command.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsCommandError unwraps err to a CommandError when it carries one.
func AsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	ok := errors.As(err, &cmdErr)

	return cmdErr, ok
}

func sessionNotFoundError(id int) *CommandError {
	return &CommandError{
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("session with id %d does not exist", id),
	}
}

func sessionNotReadyError(id int) *CommandError {
	return &CommandError{
		Code:    CodeSessionNotReady,
		Message: fmt.Sprintf("session with id %d has no media loaded", id),
	}
}

// commandFailedError wraps a delegated engine failure, passing its message through verbatim.
func commandFailedError(code string, err error) *CommandError {
	return &CommandError{
		Code:    code,
		Message: err.Error(),
	}
}

func presentationUnavailableError(message string) *CommandError {
	return &CommandError{
		Code:    CodePresentationUnavailable,
		Message: message,
	}
}
