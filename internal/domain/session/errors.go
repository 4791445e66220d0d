package session

import "errors"

var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists indicates a session with the requested id already exists.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionClosed indicates the session no longer accepts changes.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoRunningActivity indicates there is no current activity to complete.
	ErrNoRunningActivity = errors.New("no running activity")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
