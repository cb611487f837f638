package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/apperr"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/store"
)

// TaskDraft is the editable part of a task.
type TaskDraft struct {
	Title       string           `json:"title" validate:"required,notblank,max=200"`
	Description string           `json:"description"`
	Priority    model.Priority   `json:"priority" validate:"gte=0,lte=2"`
	Category    string           `json:"category" validate:"max=64"`
	ReminderAt  *time.Time       `json:"reminder_at"`
	Repeat      model.RepeatType `json:"repeat" validate:"repeat"`
	Tags        []string         `json:"tags" validate:"dive,max=64"`
}

// Tasks is the task repository.
type Tasks struct {
	store  store.Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewTasks returns a task repository. Calendar days are taken in loc.
func NewTasks(s store.Store, loc *time.Location, logger *zap.Logger) *Tasks {
	if loc == nil {
		loc = time.Local
	}
	return &Tasks{store: s, loc: loc, logger: logging.OrNop(logger), now: time.Now}
}

func (r *Tasks) Create(ctx context.Context, d TaskDraft) (model.Task, error) {
	const op = "create task"
	d.Title = strings.TrimSpace(d.Title)
	if err := checkDraft(op, d); err != nil {
		return model.Task{}, err
	}
	repeat := d.Repeat
	if repeat == "" {
		repeat = model.RepeatNone
	}

	t := model.Task{
		ID:          r.store.NewID(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		Category:    d.Category,
		ReminderAt:  d.ReminderAt,
		Repeat:      repeat,
		CreatedAt:   r.now(),
		Tags:        cleanTags(d.Tags),
	}
	if err := r.store.PutTask(ctx, t); err != nil {
		return model.Task{}, apperr.Storage(op, err)
	}
	return t, nil
}

// Update rewrites the editable fields. Completion state is kept.
func (r *Tasks) Update(ctx context.Context, id string, d TaskDraft) (model.Task, error) {
	const op = "update task"
	d.Title = strings.TrimSpace(d.Title)
	if err := checkDraft(op, d); err != nil {
		return model.Task{}, err
	}
	t, err := r.Get(ctx, id)
	if err != nil {
		return t, err
	}
	t.Title = d.Title
	t.Description = d.Description
	t.Priority = d.Priority
	t.Category = d.Category
	t.ReminderAt = d.ReminderAt
	if d.Repeat != "" {
		t.Repeat = d.Repeat
	}
	t.Tags = cleanTags(d.Tags)
	if err := r.store.UpdateTask(ctx, t); err != nil {
		return model.Task{}, r.wrap(op, id, err)
	}
	return t, nil
}

func (r *Tasks) Get(ctx context.Context, id string) (model.Task, error) {
	t, err := r.store.GetTask(ctx, id)
	return t, r.wrap("get task", id, err)
}

func (r *Tasks) Delete(ctx context.Context, id string) error {
	return r.wrap("delete task", id, r.store.DeleteTask(ctx, id))
}

// Toggle flips completion. completedAt is set exactly when the task becomes
// done and cleared when it is reopened. The stats row of the completion day
// counts the task while it stays done.
func (r *Tasks) Toggle(ctx context.Context, id string) (model.Task, error) {
	const op = "toggle task"
	t, err := r.Get(ctx, id)
	if err != nil {
		return t, err
	}

	prev := t.CompletedAt
	t.IsCompleted = !t.IsCompleted
	t.CompletedAt = nil
	if t.IsCompleted {
		now := r.now()
		t.CompletedAt = &now
	}
	if err := r.store.SetTaskCompletion(ctx, id, t.IsCompleted, t.CompletedAt); err != nil {
		return model.Task{}, r.wrap(op, id, err)
	}

	switch {
	case t.IsCompleted:
		err = r.adjustCompleted(ctx, *t.CompletedAt, 1)
	case prev != nil:
		err = r.adjustCompleted(ctx, *prev, -1)
	}
	if err != nil {
		// The toggle itself is durable; only the counter is behind.
		r.logger.Warn("update daily stats", zap.String("task", id), zap.Error(err))
	}
	return t, nil
}

// adjustCompleted moves the tasks-completed count of the day containing at
// by delta, never below zero.
func (r *Tasks) adjustCompleted(ctx context.Context, at time.Time, delta int) error {
	key := model.DayKey(at, r.loc)
	st, err := r.store.GetDailyStats(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		if delta < 0 {
			return nil
		}
		st = model.DailyStats{Date: key}
	} else if err != nil {
		return err
	}
	st.TasksCompleted = max(st.TasksCompleted+delta, 0)
	return r.store.UpsertDailyStats(ctx, st)
}

// ClearCompleted deletes every completed task.
func (r *Tasks) ClearCompleted(ctx context.Context) (int, error) {
	n, err := r.store.DeleteCompletedTasks(ctx)
	return n, apperr.Storage("clear completed tasks", err)
}

// All returns every task, newest first.
func (r *Tasks) All(ctx context.Context) ([]model.Task, error) {
	tasks, err := r.store.ListTasks(ctx, store.TaskQuery{})
	return tasks, apperr.Storage("list tasks", err)
}

// Today returns tasks created on the current calendar day.
func (r *Tasks) Today(ctx context.Context) ([]model.Task, error) {
	from, to := dayBounds(r.now(), r.loc)
	tasks, err := r.store.ListTasks(ctx, store.TaskQuery{CreatedFrom: from, CreatedTo: to})
	return tasks, apperr.Storage("list today's tasks", err)
}

// Pending returns open tasks, highest priority first.
func (r *Tasks) Pending(ctx context.Context) ([]model.Task, error) {
	tasks, err := r.store.ListTasks(ctx, store.TaskQuery{Pending: true})
	return tasks, apperr.Storage("list pending tasks", err)
}

func (r *Tasks) Observe(ctx context.Context, q store.TaskQuery) <-chan store.Snapshot[model.Task] {
	return store.ObserveTasks(ctx, r.store, q)
}

func (r *Tasks) wrap(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "task "+id+" not found")
	}
	return apperr.Storage(op, err)
}
