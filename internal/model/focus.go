package model

import (
	"fmt"
	"time"
)

// SessionType is the kind of a focus interval.
type SessionType string

const (
	SessionFocus      SessionType = "focus"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

// DisplayName is the human label.
func (s SessionType) DisplayName() string {
	switch s {
	case SessionShortBreak:
		return "Short Break"
	case SessionLongBreak:
		return "Long Break"
	default:
		return "Focus"
	}
}

// DefaultMinutes is the canonical duration of the session kind.
func (s SessionType) DefaultMinutes() int {
	switch s {
	case SessionShortBreak:
		return 5
	case SessionLongBreak:
		return 15
	default:
		return 25
	}
}

// ParseSessionType accepts focus, short_break or long_break.
func ParseSessionType(s string) (SessionType, error) {
	switch t := SessionType(s); t {
	case SessionFocus, SessionShortBreak, SessionLongBreak:
		return t, nil
	}
	return SessionFocus, fmt.Errorf("invalid session type %q (valid: focus, short_break, long_break)", s)
}

// FocusSession is one timed Pomodoro-style interval.
type FocusSession struct {
	ID              string      `json:"id" yaml:"id"`
	DurationMinutes int         `json:"duration_minutes" yaml:"duration_minutes"`
	StartTime       time.Time   `json:"start_time" yaml:"start_time"`
	EndTime         *time.Time  `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	IsCompleted     bool        `json:"is_completed" yaml:"is_completed"`
	SessionType     SessionType `json:"session_type" yaml:"session_type"`
	TaskID          string      `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Notes           string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// DateLayout is the key format of DailyStats rows.
const DateLayout = "2006-01-02"

// DailyStats is the aggregation row for one calendar date.
type DailyStats struct {
	Date                   string `json:"date" yaml:"date"`
	TasksCompleted         int    `json:"tasks_completed" yaml:"tasks_completed"`
	FocusSessionsCompleted int    `json:"focus_sessions_completed" yaml:"focus_sessions_completed"`
	TotalFocusMinutes      int    `json:"total_focus_minutes" yaml:"total_focus_minutes"`
	Streak                 int    `json:"streak" yaml:"streak"`
}

// DayKey formats t as a DailyStats key in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
