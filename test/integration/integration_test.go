package integration_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/timely/internal/domain/activity"
	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
	"github.com/rpggio/timely/internal/domain/summary"
	"github.com/rpggio/timely/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	db          *sqlite.DB
	sessionRepo *sqlite.SessionRepository
	journalRepo *sqlite.JournalRepository

	clock      *clock
	sessionSvc *session.Service
	journalSvc *journal.Service
}

func newTestEnv(t *testing.T, strict bool) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		db:          db,
		sessionRepo: sqlite.NewSessionRepository(db),
		journalRepo: sqlite.NewJournalRepository(db),
		clock:       &clock{now: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)},
	}
	env.journalSvc = journal.NewService(env.journalRepo, nil)
	env.sessionSvc = env.newSessionService(strict)
	return env
}

// newSessionService builds a fresh service over the same database, as a
// restarted process would.
func (env *testEnv) newSessionService(strict bool) *session.Service {
	return session.NewService(env.sessionRepo, env.journalSvc, nil, session.Options{
		Strict: strict,
		Clock:  env.clock.Now,
	})
}

func (env *testEnv) createSession(t *testing.T, id string, planned time.Duration, activityIDs ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := env.sessionSvc.Create(ctx, "tenant1", session.CreateRequest{ID: id, PlannedDuration: planned})
	require.NoError(t, err)
	for _, activityID := range activityIDs {
		_, err := env.sessionSvc.AddActivity(ctx, "tenant1", id, session.ActivityInfo{ID: activityID, Name: strings.ToUpper(activityID)})
		require.NoError(t, err)
	}
}

func TestIntegration_SwitchingWorkflow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.createSession(t, "focus", 2*time.Minute, "write", "review", "email")

	_, err := env.sessionSvc.Select(ctx, "tenant1", "focus", "write")
	require.NoError(t, err)
	env.clock.Advance(50 * time.Second)

	res, err := env.sessionSvc.Select(ctx, "tenant1", "focus", "review")
	require.NoError(t, err)
	require.Equal(t, "review", res.View.Current.ID)
	require.Equal(t, []string{"write"}, res.View.CompletedActivityIDs)
	require.Equal(t, []string{"review"}, res.View.StartedActivityIDs)
	env.clock.Advance(40 * time.Second)

	_, err = env.sessionSvc.Remove(ctx, "tenant1", "focus", "email")
	require.NoError(t, err)
	res, err = env.sessionSvc.CompleteCurrent(ctx, "tenant1", "focus")
	require.NoError(t, err)
	require.Nil(t, res.View.Current)
	require.True(t, res.View.AllActivitiesCompleted)
	require.Equal(t, []string{"email"}, res.View.RemovedActivityIDs)

	sum, err := env.sessionSvc.Summary(ctx, "tenant1", "focus", session.SummaryOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(120), sum.PlannedTime)
	require.Equal(t, int64(90), sum.TimeSpent)
	require.Equal(t, int64(0), sum.Overtime)
	require.Equal(t, []summary.ActivityTime{
		{ID: "write", Name: "WRITE", Duration: 50},
		{ID: "review", Name: "REVIEW", Duration: 40},
	}, sum.Activities)
	require.Equal(t, []summary.Skipped{{ID: "email", Name: "EMAIL"}}, sum.SkippedActivities)
	require.Equal(t, summary.KindCompleted, sum.Kind)
}

func TestIntegration_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.createSession(t, "focus", time.Minute, "a", "b")

	_, err := env.sessionSvc.Select(ctx, "tenant1", "focus", "a")
	require.NoError(t, err)
	env.clock.Advance(20 * time.Second)

	restarted := env.newSessionService(true)
	view, err := restarted.Get(ctx, "tenant1", "focus")
	require.NoError(t, err)
	require.NotNil(t, view.Current)
	require.Equal(t, "a", view.Current.ID)
	require.Equal(t, activity.StateRunning, view.Current.State)
	require.Len(t, view.Session.Timeline, 1)

	res, err := restarted.Select(ctx, "tenant1", "focus", "b")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, res.View.CompletedActivityIDs)

	stored, err := env.sessionRepo.Get(ctx, "tenant1", "focus")
	require.NoError(t, err)
	require.Len(t, stored.States, 2)
	require.Equal(t, activity.StateCompleted, stored.States[0].State)
	require.Equal(t, activity.StateRunning, stored.States[1].State)
	require.Len(t, stored.Timeline, 2)
	require.NotNil(t, stored.Timeline[0].EndTime)
	require.Nil(t, stored.Timeline[1].EndTime)
}

func TestIntegration_StateTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.createSession(t, "s", 0, "a")

	_, err := env.sessionSvc.Restore(ctx, "tenant1", "s", "a")
	require.ErrorIs(t, err, activity.ErrInvalidTransition)

	_, err = env.sessionSvc.Remove(ctx, "tenant1", "s", "a")
	require.NoError(t, err)
	_, err = env.sessionSvc.Select(ctx, "tenant1", "s", "a")
	require.ErrorIs(t, err, activity.ErrInvalidTransition)

	res, err := env.sessionSvc.Restore(ctx, "tenant1", "s", "a")
	require.NoError(t, err)
	require.Empty(t, res.View.RemovedActivityIDs)

	_, err = env.sessionSvc.Select(ctx, "tenant1", "s", "a")
	require.NoError(t, err)
	_, err = env.sessionSvc.Complete(ctx, "tenant1", "s", "a")
	require.NoError(t, err)

	_, err = env.sessionSvc.Select(ctx, "tenant1", "s", "a")
	require.ErrorIs(t, err, activity.ErrInvalidTransition)
	_, err = env.sessionSvc.Complete(ctx, "tenant1", "s", "missing")
	require.ErrorIs(t, err, activity.ErrActivityNotFound)
	_, err = env.sessionSvc.CompleteCurrent(ctx, "tenant1", "s")
	require.ErrorIs(t, err, session.ErrNoRunningActivity)
}

func TestIntegration_LenientWarnings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	env.createSession(t, "s", 0, "a")

	res, err := env.sessionSvc.AddActivity(ctx, "tenant1", "s", session.ActivityInfo{ID: "a"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Len(t, res.View.AllActivityIDs, 1)

	res, err = env.sessionSvc.Complete(ctx, "tenant1", "s", "ghost")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	res, err = env.sessionSvc.CompleteCurrent(ctx, "tenant1", "s")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
}

func TestIntegration_JournalTrail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.createSession(t, "s", 0, "a", "b")

	_, err := env.sessionSvc.Select(ctx, "tenant1", "s", "a")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.sessionSvc.Select(ctx, "tenant1", "s", "b")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.sessionSvc.Close(ctx, "tenant1", "s")
	require.NoError(t, err)

	entries, err := env.journalSvc.Recent(ctx, "tenant1", journal.ListOptions{SessionID: "s"})
	require.NoError(t, err)

	types := make([]journal.EntryType, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		types = append(types, entries[i].Type)
	}
	require.Equal(t, []journal.EntryType{
		journal.TypeSessionStarted,
		journal.TypeActivityAdded,
		journal.TypeActivityAdded,
		journal.TypeActivityStarted,
		journal.TypeActivityAutoCompleted,
		journal.TypeActivityStarted,
		journal.TypeActivityCompleted,
		journal.TypeSessionClosed,
	}, types)

	autoType := journal.TypeActivityAutoCompleted
	autos, err := env.journalSvc.Recent(ctx, "tenant1", journal.ListOptions{SessionID: "s", Type: &autoType})
	require.NoError(t, err)
	require.Len(t, autos, 1)
	require.Equal(t, "a", *autos[0].ActivityID)
}

func TestIntegration_CloseAndList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	env.createSession(t, "one", 0, "a")
	env.clock.Advance(time.Second)
	env.createSession(t, "two", 0)

	list, err := env.sessionSvc.ListActive(ctx, "tenant1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "two", list[0].SessionID)
	require.Equal(t, 1, list[1].ActivityCount)

	_, err = env.sessionSvc.Close(ctx, "tenant1", "one")
	require.NoError(t, err)

	list, err = env.sessionSvc.ListActive(ctx, "tenant1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = env.sessionSvc.AddActivity(ctx, "tenant1", "one", session.ActivityInfo{ID: "b"})
	require.ErrorIs(t, err, session.ErrSessionClosed)

	view, err := env.sessionSvc.Get(ctx, "tenant1", "one")
	require.NoError(t, err)
	require.Equal(t, session.StatusClosed, view.Session.Status)

	other, err := env.sessionSvc.ListActive(ctx, "tenant2")
	require.NoError(t, err)
	require.Empty(t, other)
}
