// Package dashboard aggregates totals, weekly stats, recent activity and
// achievements across every record kind.
package dashboard

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/apperr"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

const (
	maxRecent         = 10
	recentSessions    = 5
	recentTasks       = 5
	recentNotes       = 3
	focusWarriorHours = 25
)

// ActivityKind classifies a recent activity entry.
type ActivityKind string

const (
	ActivityTaskCompleted ActivityKind = "task_completed"
	ActivityFocusSession  ActivityKind = "focus_session"
	ActivityNoteCreated   ActivityKind = "note_created"
)

// Activity is one entry of the recent activity feed.
type Activity struct {
	ID       string       `json:"id" yaml:"id"`
	Kind     ActivityKind `json:"kind" yaml:"kind"`
	Title    string       `json:"title" yaml:"title"`
	Subtitle string       `json:"subtitle" yaml:"subtitle"`
	At       time.Time    `json:"at" yaml:"at"`
	Icon     string       `json:"icon" yaml:"icon"`
}

// Achievement is a milestone with progress in [0, 1].
type Achievement struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Icon        string  `json:"icon" yaml:"icon"`
	Target      int     `json:"target" yaml:"target"`
	Progress    float64 `json:"progress" yaml:"progress"`
	Unlocked    bool    `json:"unlocked" yaml:"unlocked"`
}

// Totals are all-time counters.
type Totals struct {
	Tasks          int `json:"tasks" yaml:"tasks"`
	CompletedTasks int `json:"completed_tasks" yaml:"completed_tasks"`
	Notes          int `json:"notes" yaml:"notes"`
	FocusMinutes   int `json:"focus_minutes" yaml:"focus_minutes"`
	FocusHours     int `json:"focus_hours" yaml:"focus_hours"`
	CurrentStreak  int `json:"current_streak" yaml:"current_streak"`
	LongestStreak  int `json:"longest_streak" yaml:"longest_streak"`
}

// Summary is everything the dashboard shows.
type Summary struct {
	Weekly       []model.DailyStats `json:"weekly" yaml:"weekly"`
	Totals       Totals             `json:"totals" yaml:"totals"`
	Recent       []Activity         `json:"recent" yaml:"recent"`
	Achievements []Achievement      `json:"achievements" yaml:"achievements"`
}

// Dashboard loads Summary values from the store.
type Dashboard struct {
	store  store.Store
	focus  *repository.Focus
	loc    *time.Location
	logger *zap.Logger
}

// New returns a dashboard reading s. Calendar days are taken in loc.
func New(s store.Store, loc *time.Location, logger *zap.Logger) *Dashboard {
	if loc == nil {
		loc = time.Local
	}
	return &Dashboard{
		store:  s,
		focus:  repository.NewFocus(s, loc, logger),
		loc:    loc,
		logger: logging.OrNop(logger),
	}
}

// Load builds the summary as of now. The current streak is also written to
// the streak preference.
func (d *Dashboard) Load(ctx context.Context, now time.Time) (Summary, error) {
	const op = "load dashboard"
	var sum Summary

	weekly, err := d.focus.WeeklyStats(ctx, now)
	if err != nil {
		return sum, err
	}
	sum.Weekly = weekly

	tasks, err := d.store.ListTasks(ctx, store.TaskQuery{})
	if err != nil {
		return sum, apperr.Storage(op, err)
	}
	nodes, err := d.store.ListNodes(ctx, store.NodeQuery{})
	if err != nil {
		return sum, apperr.Storage(op, err)
	}
	sessions, err := d.store.ListSessions(ctx, store.SessionQuery{Limit: recentSessions})
	if err != nil {
		return sum, apperr.Storage(op, err)
	}
	minutes, err := d.store.TotalFocusMinutes(ctx)
	if err != nil {
		return sum, apperr.Storage(op, err)
	}
	current, err := d.focus.Streak(ctx, now)
	if err != nil {
		return sum, err
	}
	days, err := d.store.AllDailyStats(ctx)
	if err != nil {
		return sum, apperr.Storage(op, err)
	}

	sum.Totals = Totals{
		Tasks:         len(tasks),
		Notes:         len(nodes),
		FocusMinutes:  minutes,
		FocusHours:    minutes / 60,
		CurrentStreak: current,
		LongestStreak: LongestStreak(days, d.loc),
	}
	for _, t := range tasks {
		if t.IsCompleted {
			sum.Totals.CompletedTasks++
		}
	}
	if sum.Totals.LongestStreak < current {
		sum.Totals.LongestStreak = current
	}

	sum.Recent = recent(sessions, tasks, nodes)
	sum.Achievements = Achievements(sum.Totals)

	if err := d.store.SetPref(ctx, store.PrefStreak, strconv.Itoa(current)); err != nil {
		d.logger.Warn("save streak preference", zap.Error(err))
	}
	return sum, nil
}

// LongestStreak is the longest run of consecutive calendar dates that each
// have at least one completed session.
func LongestStreak(days []model.DailyStats, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	var dates []time.Time
	for _, st := range days {
		if st.FocusSessionsCompleted <= 0 {
			continue
		}
		t, err := time.ParseInLocation(model.DateLayout, st.Date, loc)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	best, run := 0, 0
	for i, t := range dates {
		if i > 0 && sameDay(dates[i-1].AddDate(0, 0, 1), t) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func recent(sessions []model.FocusSession, tasks []model.Task, nodes []model.Node) []Activity {
	var out []Activity

	for _, fs := range sessions {
		if !fs.IsCompleted {
			continue
		}
		at := fs.StartTime
		if fs.EndTime != nil {
			at = *fs.EndTime
		}
		out = append(out, Activity{
			ID:       fs.ID,
			Kind:     ActivityFocusSession,
			Title:    "Focus Session Completed",
			Subtitle: strconv.Itoa(fs.DurationMinutes) + "min " + fs.SessionType.DisplayName(),
			At:       at,
			Icon:     "🎯",
		})
	}

	var done []model.Task
	for _, t := range tasks {
		if t.IsCompleted {
			done = append(done, t)
		}
	}
	sort.SliceStable(done, func(i, j int) bool { return completedAt(done[i]).After(completedAt(done[j])) })
	for _, t := range head(done, recentTasks) {
		out = append(out, Activity{
			ID:       t.ID,
			Kind:     ActivityTaskCompleted,
			Title:    "Task Completed",
			Subtitle: t.Title,
			At:       completedAt(t),
			Icon:     "✅",
		})
	}

	notes := append([]model.Node(nil), nodes...)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	for _, n := range head(notes, recentNotes) {
		out = append(out, Activity{
			ID:       n.ID,
			Kind:     ActivityNoteCreated,
			Title:    "Note Created",
			Subtitle: n.Title,
			At:       n.CreatedAt,
			Icon:     "📝",
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return head(out, maxRecent)
}

func completedAt(t model.Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Achievements evaluates every milestone against totals.
func Achievements(t Totals) []Achievement {
	return []Achievement{
		achievement("first_task", "First Steps", "Complete your first task", "🎯", t.CompletedTasks, 1),
		achievement("task_master", "Task Master", "Complete 10 tasks", "🏆", t.CompletedTasks, 10),
		achievement("focus_warrior", "Focus Warrior", "Complete 25 hours of focus time", "⚡", t.FocusHours, focusWarriorHours),
		achievement("streak_keeper", "Streak Keeper", "Maintain a 7-day streak", "🔥", t.CurrentStreak, 7),
		achievement("note_taker", "Note Taker", "Create 20 notes", "📚", t.Notes, 20),
	}
}

func achievement(id, title, desc, icon string, value, target int) Achievement {
	return Achievement{
		ID:          id,
		Title:       title,
		Description: desc,
		Icon:        icon,
		Target:      target,
		Progress:    math.Max(0, math.Min(1, float64(value)/float64(target))),
		Unlocked:    value >= target,
	}
}
