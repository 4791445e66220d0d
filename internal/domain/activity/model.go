package activity

import (
	"encoding/json"
	"time"
)

// State represents the lifecycle state of a tracked activity
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateRemoved   State = "REMOVED"
)

// States lists every state in lifecycle order.
var States = []State{StatePending, StateRunning, StateCompleted, StateRemoved}

// Terminal reports whether no further transition may leave the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRemoved
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateRunning, StateCompleted, StateRemoved:
		return true
	}
	return false
}

// Activity is the state record of one tracked activity
type Activity struct {
	ID          string     `json:"id"`
	State       State      `json:"state"`
	StartedAt   *time.Time `json:"-"`
	CompletedAt *time.Time `json:"-"`
	RemovedAt   *time.Time `json:"-"`
}

// Transition describes one applied state change.
type Transition struct {
	ActivityID string
	From       State
	To         State
	At         time.Time
	// Auto is set when the machine completed the activity on its own
	// because another activity was started.
	Auto bool
}

type activityJSON struct {
	ID          string `json:"id"`
	State       State  `json:"state"`
	StartedAt   *int64 `json:"startedAt,omitempty"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
	RemovedAt   *int64 `json:"removedAt,omitempty"`
}

// MarshalJSON encodes timestamps as milliseconds since the epoch.
func (a Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal(activityJSON{
		ID:          a.ID,
		State:       a.State,
		StartedAt:   toMillis(a.StartedAt),
		CompletedAt: toMillis(a.CompletedAt),
		RemovedAt:   toMillis(a.RemovedAt),
	})
}

// UnmarshalJSON decodes the millisecond representation written by MarshalJSON.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var raw activityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Activity{
		ID:          raw.ID,
		State:       raw.State,
		StartedAt:   fromMillis(raw.StartedAt),
		CompletedAt: fromMillis(raw.CompletedAt),
		RemovedAt:   fromMillis(raw.RemovedAt),
	}
	return nil
}

func (a Activity) clone() Activity {
	out := a
	out.StartedAt = copyTime(a.StartedAt)
	out.CompletedAt = copyTime(a.CompletedAt)
	out.RemovedAt = copyTime(a.RemovedAt)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}
