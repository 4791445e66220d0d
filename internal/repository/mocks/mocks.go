package mocks

import (
	"context"

	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for session.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, tenantID string, sess *session.Session) error {
	args := m.Called(ctx, tenantID, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, tenantID, id string) (*session.Session, error) {
	args := m.Called(ctx, tenantID, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Update(ctx context.Context, tenantID string, sess *session.Session) error {
	args := m.Called(ctx, tenantID, sess)
	return args.Error(0)
}

func (m *SessionRepository) ListActive(ctx context.Context, tenantID string) ([]session.SessionInfo, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]session.SessionInfo); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// JournalRepository is a mock for journal.Repository and session.JournalWriter.
type JournalRepository struct {
	mock.Mock
}

func (m *JournalRepository) Log(ctx context.Context, tenantID string, entry *journal.Entry) error {
	args := m.Called(ctx, tenantID, entry)
	return args.Error(0)
}

func (m *JournalRepository) List(ctx context.Context, tenantID string, opts journal.ListOptions) ([]journal.Entry, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]journal.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
