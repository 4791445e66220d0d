package session

import (
	"time"

	"github.com/rpggio/timely/internal/domain/activity"
)

// Status represents the lifecycle status of a tracking session
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// ActivityInfo carries the display data of an activity
type ActivityInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// TimelineEntry is one span of tracked time. ActivityID is nil for idle spans.
type TimelineEntry struct {
	ID           string     `json:"id"`
	ActivityID   *string    `json:"activity_id"`
	ActivityName *string    `json:"activity_name"`
	Color        string     `json:"color,omitempty"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
}

// Session is the persisted snapshot of a tracking session
type Session struct {
	ID              string              `json:"id"`
	TenantID        string              `json:"tenant_id"`
	Status          Status              `json:"status"`
	PlannedDuration time.Duration       `json:"planned_duration"`
	CreatedAt       time.Time           `json:"created_at"`
	LastActivity    time.Time           `json:"last_activity"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	Activities      []ActivityInfo      `json:"activities"`
	States          []activity.Activity `json:"states"`
	Timeline        []TimelineEntry     `json:"timeline"`
}

// SessionInfo provides a short description of a session
type SessionInfo struct {
	SessionID     string    `json:"session_id"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	ActivityCount int       `json:"activity_count"`
}

// View is a session plus the id sets a client renders from
type View struct {
	Session                Session            `json:"session"`
	Current                *activity.Activity `json:"current,omitempty"`
	AllActivityIDs         []string           `json:"all_activity_ids"`
	StartedActivityIDs     []string           `json:"started_activity_ids"`
	CompletedActivityIDs   []string           `json:"completed_activity_ids"`
	RemovedActivityIDs     []string           `json:"removed_activity_ids"`
	AllActivitiesCompleted bool               `json:"all_activities_completed"`
	HasStarted             bool               `json:"has_started"`
}

// Result is returned by every mutating operation.
type Result struct {
	View     View     `json:"view"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Session) activityName(id string) string {
	for _, info := range s.Activities {
		if info.ID == id {
			return info.Name
		}
	}
	return id
}

func (s *Session) activityColor(id string) string {
	for _, info := range s.Activities {
		if info.ID == id {
			return info.Color
		}
	}
	return ""
}

func (s *Session) openEntry() *TimelineEntry {
	if len(s.Timeline) == 0 {
		return nil
	}
	last := &s.Timeline[len(s.Timeline)-1]
	if last.EndTime != nil {
		return nil
	}
	return last
}
