package summary_test

import (
	"testing"
	"time"

	"github.com/rpggio/timely/internal/domain/summary"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func end(sec int) *time.Time {
	t := at(sec)
	return &t
}

func str(s string) *string {
	return &s
}

func TestBuild_Empty(t *testing.T) {
	s := summary.Build(summary.Input{PlannedDuration: time.Hour, Now: at(0)})

	require.Equal(t, int64(3600), s.PlannedTime)
	require.Zero(t, s.Overtime)
	require.Zero(t, s.IdleTime)
	require.Empty(t, s.Activities)
	require.Empty(t, s.Timeline)
	require.NotNil(t, s.SkippedActivities)
	require.Equal(t, summary.KindCompleted, s.Kind)
}

func TestBuild_ActivityTimesAndIdle(t *testing.T) {
	timeline := []summary.Entry{
		{ID: "e1", ActivityID: str("a"), ActivityName: str("Write"), StartTime: at(0), EndTime: end(60)},
		// 30s gap before the next entry counts as idle
		{ID: "e2", ActivityID: str("b"), ActivityName: str("Review"), StartTime: at(90), EndTime: end(120)},
		{ID: "e3", ActivityID: nil, StartTime: at(120), EndTime: end(130)},
		{ID: "e4", ActivityID: str("a"), ActivityName: str("Write"), StartTime: at(130), EndTime: end(150)},
	}

	s := summary.Build(summary.Input{
		Timeline:        timeline,
		PlannedDuration: 2 * time.Minute,
		Elapsed:         150 * time.Second,
		Now:             at(200),
	})

	require.Equal(t, int64(40), s.IdleTime)
	require.Equal(t, int64(110), s.ActiveTime)
	require.Equal(t, int64(30), s.Overtime)
	require.Equal(t, int64(150), s.TimeSpent)
	require.Equal(t, []summary.ActivityTime{
		{ID: "a", Name: "Write", Duration: 80},
		{ID: "b", Name: "Review", Duration: 30},
	}, s.Activities)
	require.Len(t, s.Timeline, 4)
	require.Equal(t, at(0).UnixMilli(), s.Timeline[0].StartTime)
}

func TestBuild_OpenEntryEndsAtNow(t *testing.T) {
	timeline := []summary.Entry{
		{ID: "e1", ActivityID: str("a"), ActivityName: str("Write"), StartTime: at(0)},
	}

	s := summary.Build(summary.Input{
		Timeline:        timeline,
		PlannedDuration: 10 * time.Second,
		Now:             at(25),
		TimeUp:          true,
	})

	require.Equal(t, int64(25), s.Activities[0].Duration)
	require.Equal(t, int64(15), s.Overtime)
	require.Nil(t, s.Timeline[0].EndTime)
	require.Equal(t, summary.KindTimeUp, s.Kind)
	require.Equal(t, at(25), s.CompletedAt)
}

func TestBuild_OrdersByFirstAppearance(t *testing.T) {
	timeline := []summary.Entry{
		{ID: "e2", ActivityID: str("b"), ActivityName: str("B"), StartTime: at(10), EndTime: end(20)},
		{ID: "e1", ActivityID: str("a"), ActivityName: str("A"), StartTime: at(0), EndTime: end(10)},
	}

	s := summary.Build(summary.Input{Timeline: timeline, Now: at(30)})
	require.Equal(t, "a", s.Activities[0].ID)
	require.Equal(t, "b", s.Activities[1].ID)
}
