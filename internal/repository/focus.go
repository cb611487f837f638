package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/apperr"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/store"
)

// Focus is the focus-session repository. It keeps DailyStats in step with
// completed sessions.
type Focus struct {
	store  store.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewFocus returns a focus repository. Calendar days are taken in loc.
func NewFocus(s store.Store, loc *time.Location, logger *zap.Logger) *Focus {
	if loc == nil {
		loc = time.Local
	}
	return &Focus{store: s, loc: loc, logger: logging.OrNop(logger), now: time.Now}
}

// Start records a new running session. minutes <= 0 uses the kind's default.
func (r *Focus) Start(ctx context.Context, kind model.SessionType, minutes int, taskID string) (model.FocusSession, error) {
	const op = "start session"
	if kind == "" {
		kind = model.SessionFocus
	}
	if _, err := model.ParseSessionType(string(kind)); err != nil {
		return model.FocusSession{}, apperr.Validation(op, err)
	}
	if minutes <= 0 {
		minutes = kind.DefaultMinutes()
	}

	fs := model.FocusSession{
		ID:              r.store.NewID(),
		DurationMinutes: minutes,
		StartTime:       r.now(),
		SessionType:     kind,
		TaskID:          taskID,
	}
	if err := r.store.PutSession(ctx, fs); err != nil {
		return model.FocusSession{}, apperr.Storage(op, err)
	}
	return fs, nil
}

// Complete ends a session and recomputes the stats row of the day it ended.
// Completing an already completed session returns it unchanged.
func (r *Focus) Complete(ctx context.Context, id, notes string) (model.FocusSession, error) {
	const op = "complete session"
	fs, err := r.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fs, apperr.NotFound(op, "session "+id+" not found")
	}
	if err != nil {
		return fs, apperr.Storage(op, err)
	}
	if fs.IsCompleted {
		return fs, nil
	}

	end := r.now()
	fs.EndTime = &end
	fs.IsCompleted = true
	if notes != "" {
		fs.Notes = notes
	}
	if err := r.store.UpdateSession(ctx, fs); err != nil {
		return model.FocusSession{}, apperr.Storage(op, err)
	}
	if _, err := r.RecomputeDay(ctx, end); err != nil {
		return fs, err
	}
	r.logger.Debug("session completed", zap.String("id", id), zap.Int("minutes", fs.DurationMinutes))
	return fs, nil
}

// Discard deletes an unfinished session. A missing session is a no-op.
func (r *Focus) Discard(ctx context.Context, id string) error {
	err := r.store.DeleteSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return apperr.Storage("discard session", err)
}

// Recent returns the n newest sessions.
func (r *Focus) Recent(ctx context.Context, n int) ([]model.FocusSession, error) {
	out, err := r.store.ListSessions(ctx, store.SessionQuery{Limit: n})
	return out, apperr.Storage("recent sessions", err)
}

// Today returns sessions started on the current calendar day.
func (r *Focus) Today(ctx context.Context) ([]model.FocusSession, error) {
	from, to := dayBounds(r.now(), r.loc)
	out, err := r.store.ListSessions(ctx, store.SessionQuery{From: from, To: to})
	return out, apperr.Storage("today's sessions", err)
}

func (r *Focus) TotalFocusMinutes(ctx context.Context) (int, error) {
	n, err := r.store.TotalFocusMinutes(ctx)
	return n, apperr.Storage("total focus minutes", err)
}

// RecomputeDay rebuilds the stats row for the calendar day containing t
// from the sessions completed on that day. The tasks-completed count is kept.
func (r *Focus) RecomputeDay(ctx context.Context, t time.Time) (model.DailyStats, error) {
	const op = "recompute daily stats"
	from, to := dayBounds(t, r.loc)
	sessions, err := r.store.ListSessions(ctx, store.SessionQuery{EndedFrom: from, EndedTo: to, CompletedOnly: true})
	if err != nil {
		return model.DailyStats{}, apperr.Storage(op, err)
	}

	key := model.DayKey(t, r.loc)
	st, err := r.store.GetDailyStats(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		st = model.DailyStats{Date: key}
	} else if err != nil {
		return st, apperr.Storage(op, err)
	}

	st.FocusSessionsCompleted = len(sessions)
	st.TotalFocusMinutes = 0
	for _, fs := range sessions {
		if fs.SessionType == model.SessionFocus {
			st.TotalFocusMinutes += fs.DurationMinutes
		}
	}

	counts, err := r.sessionCounts(ctx)
	if err != nil {
		return st, apperr.Storage(op, err)
	}
	counts[key] = st.FocusSessionsCompleted
	st.Streak = streak(counts, t, r.loc)

	if err := r.store.UpsertDailyStats(ctx, st); err != nil {
		return st, apperr.Storage(op, err)
	}
	return st, nil
}

// Streak counts consecutive days ending on the day of today that each have
// at least one completed session.
func (r *Focus) Streak(ctx context.Context, today time.Time) (int, error) {
	counts, err := r.sessionCounts(ctx)
	if err != nil {
		return 0, apperr.Storage("streak", err)
	}
	return streak(counts, today, r.loc), nil
}

// WeeklyStats returns seven rows, oldest first, ending on the day of today.
// Days without a row are zero-filled.
func (r *Focus) WeeklyStats(ctx context.Context, today time.Time) ([]model.DailyStats, error) {
	days := make([]string, 7)
	d := today
	for i := 6; i >= 0; i-- {
		days[i] = model.DayKey(d, r.loc)
		d = prevDay(d, r.loc)
	}

	rows, err := r.store.ListDailyStats(ctx, days[0], days[6])
	if err != nil {
		return nil, apperr.Storage("weekly stats", err)
	}
	byDate := make(map[string]model.DailyStats, len(rows))
	for _, st := range rows {
		byDate[st.Date] = st
	}

	out := make([]model.DailyStats, 7)
	for i, key := range days {
		st, ok := byDate[key]
		if !ok {
			st = model.DailyStats{Date: key}
		}
		out[i] = st
	}
	return out, nil
}

func (r *Focus) sessionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.store.AllDailyStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load daily stats: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, st := range rows {
		counts[st.Date] = st.FocusSessionsCompleted
	}
	return counts, nil
}

func streak(counts map[string]int, today time.Time, loc *time.Location) int {
	n := 0
	for d := today; counts[model.DayKey(d, loc)] > 0; d = prevDay(d, loc) {
		n++
	}
	return n
}
