package activity

import "time"

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *StateMachine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithObserver registers a callback invoked after every applied transition,
// in the order the transitions happen.
func WithObserver(fn func(Transition)) Option {
	return func(m *StateMachine) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}
