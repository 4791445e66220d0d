package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/timely/internal/domain/activity"
	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/summary"
	"github.com/rpggio/timely/internal/repository"
)

// Options tunes how the service treats activity transition failures.
type Options struct {
	// Strict propagates state machine errors to the caller. When false,
	// failures are logged and reported as warnings, leaving state unchanged.
	Strict bool
	// Clock overrides time.Now.
	Clock func() time.Time
	// IdleTTL is how long an untouched session stays in memory. Zero means
	// DefaultIdleTTL; a negative value keeps sessions until they close.
	IdleTTL time.Duration
}

// DefaultIdleTTL bounds how long idle sessions are cached.
const DefaultIdleTTL = 30 * time.Minute

const sweepInterval = time.Minute

// Service drives one activity state machine per tracking session.
type Service struct {
	sessions SessionRepository
	journal  JournalWriter
	logger   *slog.Logger
	opts     Options

	mu        sync.Mutex
	live      map[string]*liveSession
	lastSweep time.Time
}

type liveSession struct {
	mu      sync.Mutex
	sess    *Session
	machine *activity.StateMachine
	events  []journal.Entry
	// stale is set under mu once the entry leaves the registry.
	stale bool

	// guarded by Service.mu
	lastUsed time.Time
}

// NewService creates a new session service.
func NewService(sessions SessionRepository, journalWriter JournalWriter, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.IdleTTL == 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	return &Service{
		sessions: sessions,
		journal:  journalWriter,
		logger:   logger,
		opts:     opts,
		live:     make(map[string]*liveSession),
	}
}

// CreateRequest describes a new tracking session.
type CreateRequest struct {
	ID              string
	PlannedDuration time.Duration
}

// SummaryOptions controls summary generation.
type SummaryOptions struct {
	TimeUp bool
}

// Create starts a new tracking session.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Result, error) {
	if req.PlannedDuration < 0 {
		return nil, ErrInvalidInput
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := s.opts.Clock()
	sess := &Session{
		ID:              id,
		TenantID:        tenantID,
		Status:          StatusActive,
		PlannedDuration: req.PlannedDuration,
		CreatedAt:       now,
		LastActivity:    now,
		Activities:      []ActivityInfo{},
		States:          []activity.Activity{},
		Timeline:        []TimelineEntry{},
	}
	if err := s.sessions.Create(ctx, tenantID, sess); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionExists
		}
		return nil, fmt.Errorf("creating session: %w", err)
	}

	ls, err := s.hydrate(sess)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	ls.lastUsed = now
	s.live[liveKey(tenantID, id)] = ls
	s.mu.Unlock()

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.event(journal.TypeSessionStarted, nil, fmt.Sprintf("started session %s", id), now, map[string]any{
		"planned_seconds": int64(req.PlannedDuration.Seconds()),
	})
	s.writeJournal(ctx, tenantID, ls)

	s.logger.Info("session created", "tenant_id", tenantID, "session_id", id)
	return &Result{View: buildView(ls)}, nil
}

// AddActivity registers an activity as PENDING. A duplicate id never
// overwrites the existing record.
func (s *Service) AddActivity(ctx context.Context, tenantID, sessionID string, info ActivityInfo) (*Result, error) {
	info.ID = strings.TrimSpace(info.ID)
	if info.ID == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(info.Name) == "" {
		info.Name = info.ID
	}

	return s.mutate(ctx, tenantID, sessionID, func(ls *liveSession, warnings *[]string) error {
		if s.opts.Strict {
			if err := ls.machine.Add(info.ID); err != nil {
				return fmt.Errorf("add activity: %w", err)
			}
		} else if !ls.machine.AddIfAbsent(info.ID) {
			s.logger.Warn("ignoring duplicate activity", "session_id", sessionID, "activity_id", info.ID)
			*warnings = append(*warnings, fmt.Sprintf("activity %s already exists", info.ID))
			return nil
		}

		ls.sess.Activities = append(ls.sess.Activities, info)
		ls.event(journal.TypeActivityAdded, &info.ID, fmt.Sprintf("added activity %s", info.ID), s.opts.Clock(), map[string]any{
			"name": info.Name,
		})
		return nil
	})
}

// Select starts an activity, completing whichever activity was running.
// Selecting the current activity again is an invalid transition; in
// lenient mode it changes nothing and yields a warning.
func (s *Service) Select(ctx context.Context, tenantID, sessionID, activityID string) (*Result, error) {
	if strings.TrimSpace(activityID) == "" {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, tenantID, sessionID, func(ls *liveSession, warnings *[]string) error {
		if cur := ls.machine.Current(); !s.opts.Strict && cur != nil && cur.ID == activityID {
			*warnings = append(*warnings, fmt.Sprintf("activity %s is already running", activityID))
			return nil
		}
		return s.handleFailure(ls, warnings, "start", activityID, ls.machine.Start(activityID))
	})
}

// Complete completes a running activity.
func (s *Service) Complete(ctx context.Context, tenantID, sessionID, activityID string) (*Result, error) {
	return s.transition(ctx, tenantID, sessionID, activityID, "complete", func(m *activity.StateMachine) error {
		return m.Complete(activityID)
	})
}

// Remove removes a pending or running activity.
func (s *Service) Remove(ctx context.Context, tenantID, sessionID, activityID string) (*Result, error) {
	return s.transition(ctx, tenantID, sessionID, activityID, "remove", func(m *activity.StateMachine) error {
		return m.Remove(activityID)
	})
}

// Restore undoes a removal, returning the activity to PENDING.
func (s *Service) Restore(ctx context.Context, tenantID, sessionID, activityID string) (*Result, error) {
	return s.transition(ctx, tenantID, sessionID, activityID, "restore", func(m *activity.StateMachine) error {
		return m.Restore(activityID)
	})
}

// CompleteCurrent completes the running activity, if there is one.
func (s *Service) CompleteCurrent(ctx context.Context, tenantID, sessionID string) (*Result, error) {
	return s.mutate(ctx, tenantID, sessionID, func(ls *liveSession, warnings *[]string) error {
		cur := ls.machine.Current()
		if cur == nil {
			return s.handleFailure(ls, warnings, "complete", "", ErrNoRunningActivity)
		}
		return s.handleFailure(ls, warnings, "complete", cur.ID, ls.machine.Complete(cur.ID))
	})
}

// Reset clears every activity, the timeline and the current activity.
func (s *Service) Reset(ctx context.Context, tenantID, sessionID string) (*Result, error) {
	return s.mutate(ctx, tenantID, sessionID, func(ls *liveSession, _ *[]string) error {
		ls.machine.Reset()
		ls.sess.Activities = []ActivityInfo{}
		ls.sess.Timeline = []TimelineEntry{}
		ls.event(journal.TypeSessionReset, nil, fmt.Sprintf("reset session %s", sessionID), s.opts.Clock(), nil)
		return nil
	})
}

// Close completes the running activity and stops accepting changes.
func (s *Service) Close(ctx context.Context, tenantID, sessionID string) (*Result, error) {
	result, err := s.mutate(ctx, tenantID, sessionID, func(ls *liveSession, warnings *[]string) error {
		if cur := ls.machine.Current(); cur != nil {
			if err := s.handleFailure(ls, warnings, "complete", cur.ID, ls.machine.Complete(cur.ID)); err != nil {
				return err
			}
		}
		now := s.opts.Clock()
		ls.sess.Status = StatusClosed
		ls.sess.ClosedAt = &now
		ls.event(journal.TypeSessionClosed, nil, fmt.Sprintf("closed session %s", sessionID), now, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.live, liveKey(tenantID, sessionID))
	s.mu.Unlock()
	return result, nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, tenantID, sessionID string) (*View, error) {
	ls, err := s.acquire(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()
	view := buildView(ls)
	return &view, nil
}

// Summary derives the session report from its timeline.
func (s *Service) Summary(ctx context.Context, tenantID, sessionID string, opts SummaryOptions) (*summary.Summary, error) {
	ls, err := s.acquire(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	sess := ls.sess
	now := s.opts.Clock()
	if sess.ClosedAt != nil {
		now = *sess.ClosedAt
	}

	entries := make([]summary.Entry, 0, len(sess.Timeline))
	for _, e := range sess.Timeline {
		entries = append(entries, summary.Entry{
			ID:           e.ID,
			ActivityID:   e.ActivityID,
			ActivityName: e.ActivityName,
			StartTime:    e.StartTime,
			EndTime:      e.EndTime,
		})
	}

	var elapsed time.Duration
	if len(entries) > 0 {
		elapsed = now.Sub(entries[0].StartTime)
	}

	removed := ls.machine.ByState(activity.StateRemoved)
	skipped := make([]summary.Skipped, 0, len(removed))
	for _, act := range removed {
		skipped = append(skipped, summary.Skipped{ID: act.ID, Name: sess.activityName(act.ID)})
	}

	result := summary.Build(summary.Input{
		Timeline:        entries,
		PlannedDuration: sess.PlannedDuration,
		Elapsed:         elapsed,
		Skipped:         skipped,
		TimeUp:          opts.TimeUp,
		Now:             now,
	})
	return &result, nil
}

// ListActive lists the tenant's open sessions.
func (s *Service) ListActive(ctx context.Context, tenantID string) ([]SessionInfo, error) {
	return s.sessions.ListActive(ctx, tenantID)
}

func (s *Service) transition(ctx context.Context, tenantID, sessionID, activityID, op string, call func(*activity.StateMachine) error) (*Result, error) {
	if strings.TrimSpace(activityID) == "" {
		return nil, ErrInvalidInput
	}
	return s.mutate(ctx, tenantID, sessionID, func(ls *liveSession, warnings *[]string) error {
		return s.handleFailure(ls, warnings, op, activityID, call(ls.machine))
	})
}

// handleFailure applies the error policy to a failed state machine call.
func (s *Service) handleFailure(ls *liveSession, warnings *[]string, op, activityID string, err error) error {
	if err == nil {
		return nil
	}
	if s.opts.Strict {
		return fmt.Errorf("%s activity: %w", op, err)
	}
	s.logger.Warn("ignoring activity transition failure",
		"session_id", ls.sess.ID,
		"activity_id", activityID,
		"op", op,
		"error", err,
	)
	*warnings = append(*warnings, err.Error())
	return nil
}

func (s *Service) mutate(ctx context.Context, tenantID, sessionID string, fn func(*liveSession, *[]string) error) (*Result, error) {
	ls, err := s.acquire(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	if ls.sess.Status == StatusClosed {
		return nil, ErrSessionClosed
	}

	var warnings []string
	if err := fn(ls, &warnings); err != nil {
		ls.events = nil
		return nil, err
	}

	ls.sess.States = ls.machine.All()
	ls.sess.LastActivity = s.opts.Clock()
	if err := s.sessions.Update(ctx, tenantID, ls.sess); err != nil {
		s.discard(liveKey(tenantID, sessionID), ls)
		return nil, fmt.Errorf("saving session: %w", err)
	}
	s.writeJournal(ctx, tenantID, ls)

	return &Result{View: buildView(ls), Warnings: warnings}, nil
}

func (s *Service) load(ctx context.Context, tenantID, sessionID string) (*liveSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	key := liveKey(tenantID, sessionID)

	s.mu.Lock()
	now := s.opts.Clock()
	s.sweepLocked(now)
	ls, ok := s.live[key]
	if ok {
		ls.lastUsed = now
	}
	s.mu.Unlock()
	if ok {
		return ls, nil
	}

	sess, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	ls, err = s.hydrate(sess)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusClosed {
		// closed sessions are read-only and not kept in memory
		return ls, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[key]; ok {
		return existing, nil
	}
	ls.lastUsed = now
	s.live[key] = ls
	return ls, nil
}

// acquire loads a session and returns it locked. An entry that left the
// registry while the caller waited for it is loaded again from storage.
func (s *Service) acquire(ctx context.Context, tenantID, sessionID string) (*liveSession, error) {
	for {
		ls, err := s.load(ctx, tenantID, sessionID)
		if err != nil {
			return nil, err
		}
		ls.mu.Lock()
		if !ls.stale {
			return ls, nil
		}
		ls.mu.Unlock()
	}
}

// discard drops an entry whose memory no longer matches storage, so the
// next access reloads the last saved snapshot. The caller holds ls.mu.
func (s *Service) discard(key string, ls *liveSession) {
	ls.events = nil
	ls.stale = true
	s.mu.Lock()
	if s.live[key] == ls {
		delete(s.live, key)
	}
	s.mu.Unlock()
	s.logger.Warn("discarded unsaved session changes", "session_id", ls.sess.ID)
}

// sweepLocked evicts sessions idle for longer than IdleTTL. Entries in use
// are skipped. The caller holds s.mu.
func (s *Service) sweepLocked(now time.Time) {
	if s.opts.IdleTTL < 0 || now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, ls := range s.live {
		if now.Sub(ls.lastUsed) <= s.opts.IdleTTL || !ls.mu.TryLock() {
			continue
		}
		ls.stale = true
		delete(s.live, key)
		ls.mu.Unlock()
		s.logger.Debug("evicted idle session", "session_id", ls.sess.ID)
	}
}

func (s *Service) hydrate(sess *Session) (*liveSession, error) {
	ls := &liveSession{sess: sess}
	machine, err := activity.FromSnapshot(sess.States,
		activity.WithClock(s.opts.Clock),
		activity.WithObserver(ls.observe),
	)
	if err != nil {
		return nil, fmt.Errorf("restoring session %s: %w", sess.ID, err)
	}
	ls.machine = machine
	return ls, nil
}

func (s *Service) writeJournal(ctx context.Context, tenantID string, ls *liveSession) {
	events := ls.events
	ls.events = nil
	if s.journal == nil {
		return
	}
	for i := range events {
		if err := s.journal.Log(ctx, tenantID, &events[i]); err != nil {
			s.logger.Warn("failed to write journal entry", "session_id", ls.sess.ID, "type", events[i].Type, "error", err)
		}
	}
}

// observe keeps the timeline in step with the machine and queues journal
// entries. It runs inside machine calls, under ls.mu.
func (ls *liveSession) observe(t activity.Transition) {
	sess := ls.sess
	id := t.ActivityID
	at := t.At

	switch t.To {
	case activity.StateRunning:
		if open := sess.openEntry(); open != nil {
			open.EndTime = &at
		}
		name := sess.activityName(id)
		sess.Timeline = append(sess.Timeline, TimelineEntry{
			ID:           uuid.NewString(),
			ActivityID:   &id,
			ActivityName: &name,
			Color:        sess.activityColor(id),
			StartTime:    at,
		})
		ls.event(journal.TypeActivityStarted, &id, fmt.Sprintf("started activity %s", id), at, nil)
	case activity.StateCompleted, activity.StateRemoved:
		if open := sess.openEntry(); open != nil && open.ActivityID != nil && *open.ActivityID == id {
			open.EndTime = &at
		}
		entryType := journal.TypeActivityRemoved
		verb := "removed"
		if t.To == activity.StateCompleted {
			entryType = journal.TypeActivityCompleted
			verb = "completed"
			if t.Auto {
				entryType = journal.TypeActivityAutoCompleted
				verb = "auto-completed"
			}
		}
		ls.event(entryType, &id, fmt.Sprintf("%s activity %s", verb, id), at, map[string]any{"from": t.From})
	case activity.StatePending:
		ls.event(journal.TypeActivityRestored, &id, fmt.Sprintf("restored activity %s", id), at, nil)
	}
}

func (ls *liveSession) event(entryType journal.EntryType, activityID *string, text string, at time.Time, details map[string]any) {
	entry := journal.Entry{
		TenantID:   ls.sess.TenantID,
		SessionID:  ls.sess.ID,
		ActivityID: activityID,
		Type:       entryType,
		Summary:    text,
		CreatedAt:  at,
	}
	if len(details) > 0 {
		if data, err := json.Marshal(details); err == nil {
			entry.Details = string(data)
		}
	}
	ls.events = append(ls.events, entry)
}

func buildView(ls *liveSession) View {
	m := ls.machine
	sess := ls.sess.clone()
	sess.States = m.All()

	return View{
		Session:                sess,
		Current:                m.Current(),
		AllActivityIDs:         activityIDs(sess.States),
		StartedActivityIDs:     activityIDs(m.ByState(activity.StateRunning)),
		CompletedActivityIDs:   activityIDs(m.ByState(activity.StateCompleted)),
		RemovedActivityIDs:     activityIDs(m.ByState(activity.StateRemoved)),
		AllActivitiesCompleted: m.IsCompleted(),
		HasStarted:             m.HasStartedAny(),
	}
}

func (s *Session) clone() Session {
	out := *s
	out.Activities = append([]ActivityInfo{}, s.Activities...)
	out.Timeline = make([]TimelineEntry, len(s.Timeline))
	for i, e := range s.Timeline {
		if e.EndTime != nil {
			end := *e.EndTime
			e.EndTime = &end
		}
		out.Timeline[i] = e
	}
	if s.ClosedAt != nil {
		closed := *s.ClosedAt
		out.ClosedAt = &closed
	}
	return out
}

func activityIDs(acts []activity.Activity) []string {
	out := make([]string, 0, len(acts))
	for _, a := range acts {
		out = append(out, a.ID)
	}
	return out
}

func liveKey(tenantID, sessionID string) string {
	return tenantID + "/" + sessionID
}
