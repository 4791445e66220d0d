package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/stretchr/testify/require"
)

func TestJournalRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	repo := NewJournalRepository(db)
	entry1 := &journal.Entry{
		SessionID: "s1",
		Type:      journal.TypeSessionStarted,
		Summary:   "started session s1",
		CreatedAt: base,
	}
	entry2 := &journal.Entry{
		SessionID: "s1",
		Type:      journal.TypeActivityAdded,
		Summary:   "added activity a1",
		Details:   `{"name":"Write"}`,
		CreatedAt: base.Add(time.Second),
	}

	require.NoError(t, repo.Log(ctx, "tenant1", entry1))
	require.NoError(t, repo.Log(ctx, "tenant1", entry2))
	require.NotZero(t, entry1.ID)
	require.Equal(t, "tenant1", entry1.TenantID)

	entries, err := repo.List(ctx, "tenant1", journal.ListOptions{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.Type, entries[0].Type)
	require.Equal(t, entry2.Details, entries[0].Details)
	require.Equal(t, entry1.Type, entries[1].Type)
	require.Nil(t, entries[1].ActivityID)
}

func TestJournalRepository_FiltersAndTenantIsolation(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	repo := NewJournalRepository(db)
	activityID := "a1"
	started := journal.TypeActivityStarted
	require.NoError(t, repo.Log(ctx, "tenant1", &journal.Entry{
		SessionID:  "s1",
		ActivityID: &activityID,
		Type:       journal.TypeActivityStarted,
		Summary:    "started activity a1",
		CreatedAt:  base,
	}))
	require.NoError(t, repo.Log(ctx, "tenant1", &journal.Entry{
		SessionID:  "s1",
		ActivityID: &activityID,
		Type:       journal.TypeActivityCompleted,
		Summary:    "completed activity a1",
		CreatedAt:  base.Add(time.Minute),
	}))
	require.NoError(t, repo.Log(ctx, "tenant2", &journal.Entry{
		SessionID: "s1",
		Type:      journal.TypeSessionStarted,
		Summary:   "started session s1",
		CreatedAt: base,
	}))

	entries, err := repo.List(ctx, "tenant1", journal.ListOptions{ActivityID: &activityID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a1", *entries[0].ActivityID)

	entries, err = repo.List(ctx, "tenant1", journal.ListOptions{Type: &started})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, "tenant1", journal.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, journal.TypeActivityStarted, entries[0].Type)

	entries, err = repo.List(ctx, "tenant2", journal.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, journal.TypeSessionStarted, entries[0].Type)
}
