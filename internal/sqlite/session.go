package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/timely/internal/domain/activity"
	"github.com/rpggio/timely/internal/domain/session"
	"github.com/rpggio/timely/internal/repository"
)

// SessionRepository stores session snapshots in SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type snapshotColumns struct {
	activities string
	states     string
	timeline   string
}

func encodeSnapshot(sess *session.Session) (snapshotColumns, error) {
	var cols snapshotColumns

	activities := sess.Activities
	if activities == nil {
		activities = []session.ActivityInfo{}
	}
	states := sess.States
	if states == nil {
		states = []activity.Activity{}
	}
	timeline := sess.Timeline
	if timeline == nil {
		timeline = []session.TimelineEntry{}
	}

	data, err := json.Marshal(activities)
	if err != nil {
		return cols, fmt.Errorf("failed to encode activities: %w", err)
	}
	cols.activities = string(data)

	if data, err = json.Marshal(states); err != nil {
		return cols, fmt.Errorf("failed to encode states: %w", err)
	}
	cols.states = string(data)

	if data, err = json.Marshal(timeline); err != nil {
		return cols, fmt.Errorf("failed to encode timeline: %w", err)
	}
	cols.timeline = string(data)

	return cols, nil
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, tenantID string, sess *session.Session) error {
	cols, err := encodeSnapshot(sess)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (
			id, tenant_id, status, planned_seconds,
			activities, states, timeline,
			created_at, last_activity, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		sess.ID,
		tenantID,
		sess.Status,
		int64(sess.PlannedDuration/time.Second),
		cols.activities,
		cols.states,
		cols.timeline,
		sess.CreatedAt,
		sess.LastActivity,
		sess.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, tenantID, id string) (*session.Session, error) {
	query := `
		SELECT
			id, tenant_id, status, planned_seconds,
			activities, states, timeline,
			created_at, last_activity, closed_at
		FROM sessions
		WHERE id = ? AND tenant_id = ?
	`

	var sess session.Session
	var planned int64
	var activities, states, timeline string
	var closedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&sess.ID,
		&sess.TenantID,
		&sess.Status,
		&planned,
		&activities,
		&states,
		&timeline,
		&sess.CreatedAt,
		&sess.LastActivity,
		&closedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess.PlannedDuration = time.Duration(planned) * time.Second
	if closedAt.Valid {
		sess.ClosedAt = &closedAt.Time
	}
	if err := json.Unmarshal([]byte(activities), &sess.Activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	if err := json.Unmarshal([]byte(states), &sess.States); err != nil {
		return nil, fmt.Errorf("failed to decode states: %w", err)
	}
	if err := json.Unmarshal([]byte(timeline), &sess.Timeline); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}

	return &sess, nil
}

// Update replaces the stored snapshot of a session
func (r *SessionRepository) Update(ctx context.Context, tenantID string, sess *session.Session) error {
	cols, err := encodeSnapshot(sess)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions
		SET status = ?, planned_seconds = ?,
		    activities = ?, states = ?, timeline = ?,
		    last_activity = ?, closed_at = ?
		WHERE id = ? AND tenant_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		sess.Status,
		int64(sess.PlannedDuration/time.Second),
		cols.activities,
		cols.states,
		cols.timeline,
		sess.LastActivity,
		sess.ClosedAt,
		sess.ID,
		tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActive returns the tenant's active sessions, most recently used first
func (r *SessionRepository) ListActive(ctx context.Context, tenantID string) ([]session.SessionInfo, error) {
	query := `
		SELECT id, status, created_at, last_activity, json_array_length(states)
		FROM sessions
		WHERE tenant_id = ? AND status = 'active'
		ORDER BY last_activity DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.SessionInfo{}
	for rows.Next() {
		var info session.SessionInfo
		if err := rows.Scan(&info.SessionID, &info.Status, &info.CreatedAt, &info.LastActivity, &info.ActivityCount); err != nil {
			return nil, fmt.Errorf("failed to scan session info: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
