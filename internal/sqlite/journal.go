package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/timely/internal/domain/journal"
)

// JournalRepository stores lifecycle journal entries in SQLite
type JournalRepository struct {
	db *DB
}

// NewJournalRepository creates a new JournalRepository
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Log inserts a new journal entry
func (r *JournalRepository) Log(ctx context.Context, tenantID string, entry *journal.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO journal (
			tenant_id, session_id, activity_id,
			entry_type, summary, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		tenantID,
		entry.SessionID,
		entry.ActivityID,
		entry.Type,
		entry.Summary,
		entry.Details,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log journal entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	entry.TenantID = tenantID
	entry.CreatedAt = createdAt

	return nil
}

// List returns journal entries matching the given filters, newest first
func (r *JournalRepository) List(ctx context.Context, tenantID string, opts journal.ListOptions) ([]journal.Entry, error) {
	query := `
		SELECT
			id, tenant_id, session_id, activity_id,
			entry_type, summary, details, created_at
		FROM journal
		WHERE tenant_id = ?
	`

	args := []any{tenantID}
	conditions := []string{}

	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.ActivityID != nil {
		conditions = append(conditions, "activity_id = ?")
		args = append(args, *opts.ActivityID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "entry_type = ?")
		args = append(args, *opts.Type)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	entries := []journal.Entry{}
	for rows.Next() {
		var entry journal.Entry
		var activityID sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.SessionID,
			&activityID,
			&entry.Type,
			&entry.Summary,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if activityID.Valid {
			entry.ActivityID = &activityID.String
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}

	return entries, nil
}
