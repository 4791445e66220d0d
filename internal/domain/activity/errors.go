package activity

import (
	"errors"
	"fmt"
)

var (
	// ErrActivityAlreadyExists indicates the id is already tracked.
	ErrActivityAlreadyExists = errors.New("activity already exists")
	// ErrActivityNotFound indicates the id was never added or was reset away.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrInvalidTransition indicates the current state does not allow the operation.
	ErrInvalidTransition = errors.New("invalid activity state transition")
)

// Error carries the activity id and operation for a failed machine call.
// It unwraps to one of the sentinel errors above.
type Error struct {
	Op   string
	ID   string
	From State
	Err  error
}

func (e *Error) Error() string {
	if e.From != "" {
		return fmt.Sprintf("%s %s from %s: %v", e.Op, e.ID, e.From, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
