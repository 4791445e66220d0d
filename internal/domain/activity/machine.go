package activity

import (
	"fmt"
	"time"
)

// StateMachine tracks activity lifecycles and enforces that at most one
// activity is RUNNING. It is not safe for concurrent use; owners serialize
// access.
type StateMachine struct {
	states    map[string]*Activity
	order     []string
	current   string
	now       func() time.Time
	observers []func(Transition)
}

// New creates an empty state machine.
func New(opts ...Option) *StateMachine {
	m := &StateMachine{
		states: make(map[string]*Activity),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromSnapshot rebuilds a machine from previously exported records, keeping
// their order and timestamps. The RUNNING record, if any, becomes current.
func FromSnapshot(records []Activity, opts ...Option) (*StateMachine, error) {
	m := New(opts...)
	for _, rec := range records {
		if rec.ID == "" || !rec.State.Valid() {
			return nil, fmt.Errorf("invalid snapshot record %q", rec.ID)
		}
		if _, ok := m.states[rec.ID]; ok {
			return nil, &Error{Op: "load", ID: rec.ID, Err: ErrActivityAlreadyExists}
		}
		if rec.State == StateRunning {
			if m.current != "" {
				return nil, fmt.Errorf("snapshot has more than one running activity: %s, %s", m.current, rec.ID)
			}
			m.current = rec.ID
		}
		stored := rec.clone()
		m.states[rec.ID] = &stored
		m.order = append(m.order, rec.ID)
	}
	return m, nil
}

// Add inserts a new PENDING activity. A duplicate id fails with
// ErrActivityAlreadyExists and leaves the existing record untouched.
func (m *StateMachine) Add(id string) error {
	if _, ok := m.states[id]; ok {
		return &Error{Op: "add", ID: id, Err: ErrActivityAlreadyExists}
	}
	m.insert(id)
	return nil
}

// AddIfAbsent is the permissive form of Add: a duplicate id is a no-op
// returning false.
func (m *StateMachine) AddIfAbsent(id string) bool {
	if _, ok := m.states[id]; ok {
		return false
	}
	m.insert(id)
	return true
}

func (m *StateMachine) insert(id string) {
	m.states[id] = &Activity{ID: id, State: StatePending}
	m.order = append(m.order, id)
}

// Start moves a PENDING activity to RUNNING. Any other running activity is
// completed first.
func (m *StateMachine) Start(id string) error {
	act, err := m.lookup("start", id)
	if err != nil {
		return err
	}
	if err := ValidateTransition(act.State, StateRunning); err != nil {
		return &Error{Op: "start", ID: id, From: act.State, Err: err}
	}

	now := m.now()
	if m.current != "" && m.current != id {
		if prev, ok := m.states[m.current]; ok && prev.State == StateRunning {
			prev.State = StateCompleted
			prev.CompletedAt = &now
			m.notify(Transition{ActivityID: prev.ID, From: StateRunning, To: StateCompleted, At: now, Auto: true})
		}
		m.current = ""
	}

	from := act.State
	act.State = StateRunning
	if act.StartedAt == nil {
		act.StartedAt = &now
	}
	m.current = id
	m.notify(Transition{ActivityID: id, From: from, To: StateRunning, At: now})
	return nil
}

// Complete moves a RUNNING activity to COMPLETED.
func (m *StateMachine) Complete(id string) error {
	act, err := m.lookup("complete", id)
	if err != nil {
		return err
	}
	if err := ValidateTransition(act.State, StateCompleted); err != nil {
		return &Error{Op: "complete", ID: id, From: act.State, Err: err}
	}

	now := m.now()
	act.State = StateCompleted
	act.CompletedAt = &now
	if m.current == id {
		m.current = ""
	}
	m.notify(Transition{ActivityID: id, From: StateRunning, To: StateCompleted, At: now})
	return nil
}

// Remove moves a PENDING or RUNNING activity to REMOVED. Start and
// completion timestamps already recorded are kept.
func (m *StateMachine) Remove(id string) error {
	act, err := m.lookup("remove", id)
	if err != nil {
		return err
	}
	if err := ValidateTransition(act.State, StateRemoved); err != nil {
		return &Error{Op: "remove", ID: id, From: act.State, Err: err}
	}

	now := m.now()
	from := act.State
	act.State = StateRemoved
	act.RemovedAt = &now
	if m.current == id {
		m.current = ""
	}
	m.notify(Transition{ActivityID: id, From: from, To: StateRemoved, At: now})
	return nil
}

// Restore returns a REMOVED activity to PENDING and clears its removal time.
func (m *StateMachine) Restore(id string) error {
	act, err := m.lookup("restore", id)
	if err != nil {
		return err
	}
	if act.State != StateRemoved {
		return &Error{Op: "restore", ID: id, From: act.State, Err: ErrInvalidTransition}
	}

	act.State = StatePending
	act.RemovedAt = nil
	m.notify(Transition{ActivityID: id, From: StateRemoved, To: StatePending, At: m.now()})
	return nil
}

// Get returns a copy of the record for id.
func (m *StateMachine) Get(id string) (Activity, bool) {
	act, ok := m.states[id]
	if !ok {
		return Activity{}, false
	}
	return act.clone(), true
}

// Current returns a copy of the RUNNING activity, or nil.
func (m *StateMachine) Current() *Activity {
	if m.current == "" {
		return nil
	}
	act, ok := m.states[m.current]
	if !ok {
		return nil
	}
	out := act.clone()
	return &out
}

// IsCompleted reports whether the session of activities is finished: the
// table is non-empty, nothing is PENDING or RUNNING, and at least one
// activity was COMPLETED.
func (m *StateMachine) IsCompleted() bool {
	if len(m.order) == 0 {
		return false
	}
	completed := 0
	for _, id := range m.order {
		switch m.states[id].State {
		case StatePending, StateRunning:
			return false
		case StateCompleted:
			completed++
		}
	}
	return completed > 0
}

// HasStartedAny reports whether any activity has ever been RUNNING.
func (m *StateMachine) HasStartedAny() bool {
	for _, id := range m.order {
		if m.states[id].StartedAt != nil {
			return true
		}
	}
	return false
}

// ByState returns the activities in state, in insertion order.
func (m *StateMachine) ByState(state State) []Activity {
	var out []Activity
	for _, id := range m.order {
		if act := m.states[id]; act.State == state {
			out = append(out, act.clone())
		}
	}
	return out
}

// All returns every activity in insertion order.
func (m *StateMachine) All() []Activity {
	out := make([]Activity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.states[id].clone())
	}
	return out
}

// Len returns the number of tracked activities.
func (m *StateMachine) Len() int {
	return len(m.order)
}

// Reset clears every activity and the current pointer.
func (m *StateMachine) Reset() {
	m.states = make(map[string]*Activity)
	m.order = nil
	m.current = ""
}

func (m *StateMachine) lookup(op, id string) (*Activity, error) {
	act, ok := m.states[id]
	if !ok {
		return nil, &Error{Op: op, ID: id, Err: ErrActivityNotFound}
	}
	return act, nil
}

func (m *StateMachine) notify(t Transition) {
	for _, fn := range m.observers {
		fn(t)
	}
}
