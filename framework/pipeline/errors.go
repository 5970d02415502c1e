package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds. Only these two fail a run; unreadable artifacts and replies
// that ignore the section format degrade the report instead.
var (
	// ErrConfiguration indicates an unknown or unusable backend selector
	ErrConfiguration = errors.New("configuration error")

	// ErrModelInvocation indicates the model call failed
	ErrModelInvocation = errors.New("model invocation failed")
)

// Error is a failed run
type Error struct {
	// Kind is ErrConfiguration or ErrModelInvocation
	Kind  error
	State State
	RunID string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("report run %s: %v: %v", e.RunID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// IsConfiguration returns true if err is a configuration failure
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsModelInvocation returns true if err is a model invocation failure
func IsModelInvocation(err error) bool {
	return errors.Is(err, ErrModelInvocation)
}
