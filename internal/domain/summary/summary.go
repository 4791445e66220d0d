// Package summary derives session metrics from a tracking timeline.
package summary

import (
	"math"
	"sort"
	"time"
)

// Kind tells whether a session ended by finishing its activities or by
// running out of planned time.
type Kind string

const (
	KindCompleted Kind = "completed"
	KindTimeUp    Kind = "timeUp"
)

// Entry is one span of the timeline. ActivityID is nil for idle spans and
// EndTime is nil while the span is still open.
type Entry struct {
	ID           string
	ActivityID   *string
	ActivityName *string
	StartTime    time.Time
	EndTime      *time.Time
}

// Skipped names an activity that was removed without being finished.
type Skipped struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Input collects everything Build needs.
type Input struct {
	Timeline        []Entry
	PlannedDuration time.Duration
	Elapsed         time.Duration
	Skipped         []Skipped
	TimeUp          bool
	Now             time.Time
}

// ActivityTime is the total time spent on one activity, in seconds.
type ActivityTime struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int64  `json:"duration"`
}

// TimelineItem is the shareable form of an Entry, times in ms since epoch.
type TimelineItem struct {
	ID           string  `json:"id"`
	ActivityID   *string `json:"activityId"`
	ActivityName *string `json:"activityName"`
	StartTime    int64   `json:"startTime"`
	EndTime      *int64  `json:"endTime"`
}

// Summary is the derived session report. Durations are in seconds.
type Summary struct {
	PlannedTime       int64          `json:"plannedTime"`
	TimeSpent         int64          `json:"timeSpent"`
	Overtime          int64          `json:"overtime"`
	IdleTime          int64          `json:"idleTime"`
	ActiveTime        int64          `json:"activeTime"`
	Activities        []ActivityTime `json:"activities"`
	SkippedActivities []Skipped      `json:"skippedActivities"`
	Timeline          []TimelineItem `json:"timelineEntries"`
	CompletedAt       time.Time      `json:"completedAt"`
	Kind              Kind           `json:"sessionType"`
}

// Build computes the summary. Open entries are treated as ending at in.Now.
func Build(in Input) Summary {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	idle, active := activityStats(in.Timeline, now)
	kind := KindCompleted
	if in.TimeUp {
		kind = KindTimeUp
	}

	skipped := in.Skipped
	if skipped == nil {
		skipped = []Skipped{}
	}

	return Summary{
		PlannedTime:       seconds(in.PlannedDuration),
		TimeSpent:         seconds(in.Elapsed),
		Overtime:          overtime(in.Timeline, in.PlannedDuration, now),
		IdleTime:          idle,
		ActiveTime:        active,
		Activities:        activityTimes(in.Timeline, now),
		SkippedActivities: skipped,
		Timeline:          timelineItems(in.Timeline),
		CompletedAt:       now,
		Kind:              kind,
	}
}

func activityStats(entries []Entry, now time.Time) (idle, active int64) {
	var lastEnd *time.Time
	for _, entry := range entries {
		end := endOf(entry, now)
		if lastEnd != nil && entry.StartTime.After(*lastEnd) {
			idle += seconds(entry.StartTime.Sub(*lastEnd))
		}

		d := seconds(end.Sub(entry.StartTime))
		if entry.ActivityID != nil {
			active += d
		} else {
			idle += d
		}
		lastEnd = &end
	}
	return idle, active
}

func overtime(entries []Entry, planned time.Duration, now time.Time) int64 {
	if len(entries) == 0 {
		return 0
	}
	first := entries[0].StartTime
	last := endOf(entries[len(entries)-1], now)
	used := seconds(last.Sub(first))
	over := used - seconds(planned)
	if over < 0 {
		return 0
	}
	return over
}

func activityTimes(entries []Entry, now time.Time) []ActivityTime {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	index := make(map[string]int)
	out := []ActivityTime{}
	for _, entry := range sorted {
		if entry.ActivityID == nil || entry.ActivityName == nil {
			continue
		}
		d := seconds(endOf(entry, now).Sub(entry.StartTime))
		if i, ok := index[*entry.ActivityID]; ok {
			out[i].Duration += d
			continue
		}
		index[*entry.ActivityID] = len(out)
		out = append(out, ActivityTime{ID: *entry.ActivityID, Name: *entry.ActivityName, Duration: d})
	}
	return out
}

func timelineItems(entries []Entry) []TimelineItem {
	out := make([]TimelineItem, 0, len(entries))
	for _, entry := range entries {
		item := TimelineItem{
			ID:           entry.ID,
			ActivityID:   entry.ActivityID,
			ActivityName: entry.ActivityName,
			StartTime:    entry.StartTime.UnixMilli(),
		}
		if entry.EndTime != nil {
			ms := entry.EndTime.UnixMilli()
			item.EndTime = &ms
		}
		out = append(out, item)
	}
	return out
}

func endOf(entry Entry, now time.Time) time.Time {
	if entry.EndTime != nil {
		return *entry.EndTime
	}
	return now
}

func seconds(d time.Duration) int64 {
	return int64(math.Round(d.Seconds()))
}
