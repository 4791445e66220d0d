package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrInvalidInput indicates a nil or incomplete entry.
var ErrInvalidInput = errors.New("invalid journal input")

// Repository provides persistence operations for journal entries.
type Repository interface {
	Log(ctx context.Context, tenantID string, entry *Entry) error
	List(ctx context.Context, tenantID string, opts ListOptions) ([]Entry, error)
}

// Service handles journal operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new journal service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Log records an entry with the current timestamp if missing.
func (s *Service) Log(ctx context.Context, tenantID string, entry *Entry) error {
	if entry == nil || entry.SessionID == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, tenantID, entry); err != nil {
		return fmt.Errorf("logging journal entry: %w", err)
	}
	s.logger.Debug("journal entry logged", "session_id", entry.SessionID, "type", entry.Type)
	return nil
}

// Recent lists journal entries with filtering, newest first.
func (s *Service) Recent(ctx context.Context, tenantID string, opts ListOptions) ([]Entry, error) {
	return s.repo.List(ctx, tenantID, opts)
}
