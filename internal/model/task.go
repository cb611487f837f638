package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders tasks; High is highest.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

var priorityNames = [...]string{"low", "medium", "high"}

var priorityDisplay = [...]struct{ label, color string }{
	{"Low", "#4CAF50"},
	{"Medium", "#FF9800"},
	{"High", "#F44336"},
}

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityHigh {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// DisplayName is the human label.
func (p Priority) DisplayName() string { return priorityDisplay[p.clamp()].label }

// Color is the hex color used for the priority badge.
func (p Priority) Color() string { return priorityDisplay[p.clamp()].color }

func (p Priority) clamp() Priority {
	if p < PriorityLow {
		return PriorityLow
	}
	if p > PriorityHigh {
		return PriorityHigh
	}
	return p
}

// ParsePriority accepts low, medium or high (case-insensitive).
func ParsePriority(s string) (Priority, error) {
	for i, n := range priorityNames {
		if strings.EqualFold(s, n) {
			return Priority(i), nil
		}
	}
	return PriorityMedium, fmt.Errorf("invalid priority %q (valid: low, medium, high)", s)
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// RepeatType is the repeat policy of a task.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
)

// DisplayName is the human label.
func (r RepeatType) DisplayName() string {
	switch r {
	case RepeatDaily:
		return "Daily"
	case RepeatWeekly:
		return "Weekly"
	case RepeatMonthly:
		return "Monthly"
	default:
		return "Never"
	}
}

// ValidRepeatTypes are the allowed repeat policies.
var ValidRepeatTypes = map[RepeatType]bool{
	RepeatNone:    true,
	RepeatDaily:   true,
	RepeatWeekly:  true,
	RepeatMonthly: true,
}

// Task is an actionable item.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	IsCompleted bool       `json:"is_completed" yaml:"is_completed"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	Category    string     `json:"category" yaml:"category"`
	ReminderAt  *time.Time `json:"reminder_at,omitempty" yaml:"reminder_at,omitempty"`
	Repeat      RepeatType `json:"repeat" yaml:"repeat"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Tags        []string   `json:"tags" yaml:"tags"`
}
