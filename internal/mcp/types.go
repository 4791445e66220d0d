package mcp

import (
	"time"

	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
)

type CreateSessionParams struct {
	ID             string `json:"id,omitempty"`
	PlannedMinutes int    `json:"planned_minutes,omitempty"`
	PlannedSeconds int    `json:"planned_seconds,omitempty"`
}

// SessionParams identifies a session. The id may also come from transport
// metadata.
type SessionParams struct {
	SessionID string `json:"session_id,omitempty"`
}

type AddActivityParams struct {
	SessionID string `json:"session_id,omitempty"`
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Color     string `json:"color,omitempty"`
}

type ActivityParams struct {
	SessionID  string `json:"session_id,omitempty"`
	ActivityID string `json:"activity_id"`
}

type SessionSummaryParams struct {
	SessionID string `json:"session_id,omitempty"`
	TimeUp    bool   `json:"time_up,omitempty"`
}

type GetJournalParams struct {
	SessionID  string             `json:"session_id,omitempty"`
	ActivityID *string            `json:"activity_id,omitempty"`
	Type       *journal.EntryType `json:"type,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Offset     int                `json:"offset,omitempty"`
}

// SessionResponse is returned by every tool that changes a session.
type SessionResponse struct {
	SessionID string       `json:"session_id"`
	View      session.View `json:"view"`
	Warnings  []string     `json:"warnings,omitempty"`
}

type SessionListResponse struct {
	Sessions []session.SessionInfo `json:"sessions"`
}

type JournalEntryResponse struct {
	Timestamp  time.Time         `json:"timestamp"`
	Type       journal.EntryType `json:"type"`
	SessionID  string            `json:"session_id"`
	ActivityID *string           `json:"activity_id,omitempty"`
	Summary    string            `json:"summary"`
	Details    string            `json:"details,omitempty"`
}
