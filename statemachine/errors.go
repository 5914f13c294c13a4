package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrRecoveryNotFound is returned by Run when the recovery state is not
	// registered with the machine.
	ErrRecoveryNotFound = errors.New("recovery state not found")
	// ErrUnknownState is reported when a state names a successor that does
	// not exist. The runner recovers from it; it never escapes Run.
	ErrUnknownState = errors.New("unknown state")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}
