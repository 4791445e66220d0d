package session

import (
	"context"

	"github.com/rpggio/timely/internal/domain/journal"
)

// SessionRepository provides persistence for session snapshots.
type SessionRepository interface {
	Create(ctx context.Context, tenantID string, sess *Session) error
	Get(ctx context.Context, tenantID, id string) (*Session, error)
	Update(ctx context.Context, tenantID string, sess *Session) error
	ListActive(ctx context.Context, tenantID string) ([]SessionInfo, error)
}

// JournalWriter records lifecycle events. *journal.Service satisfies it.
type JournalWriter interface {
	Log(ctx context.Context, tenantID string, entry *journal.Entry) error
}
