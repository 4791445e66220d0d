package journal

import "time"

// EntryType represents the kind of lifecycle event
type EntryType string

const (
	TypeSessionStarted        EntryType = "session_started"
	TypeActivityAdded         EntryType = "activity_added"
	TypeActivityStarted       EntryType = "activity_started"
	TypeActivityAutoCompleted EntryType = "activity_auto_completed"
	TypeActivityCompleted     EntryType = "activity_completed"
	TypeActivityRemoved       EntryType = "activity_removed"
	TypeActivityRestored      EntryType = "activity_restored"
	TypeSessionReset          EntryType = "session_reset"
	TypeSessionClosed         EntryType = "session_closed"
)

// Entry represents an event in the journal
type Entry struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	SessionID  string    `json:"session_id"`
	ActivityID *string   `json:"activity_id,omitempty"`
	Type       EntryType `json:"type"`
	Summary    string    `json:"summary"`
	Details    string    `json:"details,omitempty"` // JSON string
	CreatedAt  time.Time `json:"created_at"`
}

// ListOptions provides filtering options for listing journal entries.
type ListOptions struct {
	SessionID  string
	ActivityID *string
	Type       *EntryType
	Limit      int
	Offset     int
}
