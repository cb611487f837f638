// Package tasks builds the sorted and filtered task lists shown by the
// today and pending views.
package tasks

import (
	"context"
	"sort"
	"strings"

	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

// Sort orders open tasks before completed ones, then by priority (highest
// first), then oldest first. It sorts in place and is stable.
func Sort(ts []model.Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Status selects tasks by completion.
type Status string

const (
	StatusAll     Status = "all"
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Filter narrows a task list. Zero-valued fields match everything.
type Filter struct {
	Status   Status
	Priority *model.Priority
	Category string
	Tag      string
	Query    string // case-insensitive substring of title or description
}

// Match reports whether t passes every set field of f.
func (f Filter) Match(t model.Task) bool {
	switch f.Status {
	case StatusPending:
		if t.IsCompleted {
			return false
		}
	case StatusDone:
		if !t.IsCompleted {
			return false
		}
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	if f.Tag != "" && !hasTag(t.Tags, f.Tag) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Apply returns the tasks matching f, sorted.
func Apply(ts []model.Task, f Filter) []model.Task {
	out := make([]model.Task, 0, len(ts))
	for _, t := range ts {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	Sort(out)
	return out
}

// Summary is a sorted list with its completion count.
type Summary struct {
	Tasks     []model.Task `json:"tasks" yaml:"tasks"`
	Completed int          `json:"completed" yaml:"completed"`
	Total     int          `json:"total" yaml:"total"`
}

// Progress is the completed fraction, zero for an empty list.
func (s Summary) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Summarize filters, sorts and counts ts.
func Summarize(ts []model.Task, f Filter) Summary {
	out := Apply(ts, f)
	s := Summary{Tasks: out, Total: len(out)}
	for _, t := range out {
		if t.IsCompleted {
			s.Completed++
		}
	}
	return s
}

// View reads task lists through the task repository.
type View struct {
	tasks *repository.Tasks
}

func NewView(r *repository.Tasks) *View {
	return &View{tasks: r}
}

// Today summarizes tasks created today.
func (v *View) Today(ctx context.Context, f Filter) (Summary, error) {
	ts, err := v.tasks.Today(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(ts, f), nil
}

// All summarizes every task.
func (v *View) All(ctx context.Context, f Filter) (Summary, error) {
	ts, err := v.tasks.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(ts, f), nil
}

// Update is one emission of Watch.
type Update struct {
	Summary Summary
	Err     error
}

// Watch emits a summary of the tasks matching q and f, then one per change.
// The channel closes when ctx is done.
func (v *View) Watch(ctx context.Context, q store.TaskQuery, f Filter) <-chan Update {
	out := make(chan Update, 1)
	go func() {
		defer close(out)
		for snap := range v.tasks.Observe(ctx, q) {
			u := Update{Err: snap.Err}
			if snap.Err == nil {
				u.Summary = Summarize(snap.Items, f)
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
