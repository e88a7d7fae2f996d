package player

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotFound means the engine binary could not be resolved. It is fatal for the session.
	ErrEngineNotFound = errors.New("engine binary not found")
	// ErrInvalidState is returned when an operation is called in a state that does not allow it.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrMediaNotFound is reported through EventError when the engine cannot open the reference.
	ErrMediaNotFound = errors.New("media not found")
	// ErrEngineFatal is reported through EventError when the engine prints a fatal error.
	ErrEngineFatal = errors.New("engine error")
	// ErrUnsupported is returned by engines for commands they have no equivalent for.
	ErrUnsupported = errors.New("command not supported by engine")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session closed")
)

func invalid(op string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, s)
}
