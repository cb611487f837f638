package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/nodemind/internal/model"
)

const taskColumns = `id, title, description, is_completed, priority, category,
	reminder_at, repeat_type, created_at, completed_at, tags`

func (s *SQLiteStore) PutTask(ctx context.Context, t model.Task) error {
	if t.ID == "" {
		return fmt.Errorf("put task: empty id")
	}
	repeat := t.Repeat
	if repeat == "" {
		repeat = model.RepeatNone
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, boolInt(t.IsCompleted), int(t.Priority), t.Category,
		formatTimePtr(t.ReminderAt), string(repeat), formatTime(t.CreatedAt),
		formatTimePtr(t.CompletedAt), encodeList(t.Tags))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	s.notify(KindTask, t.ID)
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListTasks orders pending views by priority then age; other views newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	order := "created_at DESC"

	if q.Pending {
		where = append(where, "is_completed = 0")
		order = "priority DESC, created_at ASC"
	}
	if q.Tag != "" {
		where = append(where, `tags LIKE ? ESCAPE '\'`)
		args = append(args, tagPattern(q.Tag))
	}
	if !q.CreatedFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(q.CreatedFrom))
	}
	if !q.CreatedTo.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, formatTime(q.CreatedTo))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+` ORDER BY `+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t model.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, is_completed = ?, priority = ?, category = ?,
		        reminder_at = ?, repeat_type = ?, completed_at = ?, tags = ?
		 WHERE id = ?`,
		t.Title, t.Description, boolInt(t.IsCompleted), int(t.Priority), t.Category,
		formatTimePtr(t.ReminderAt), string(t.Repeat), formatTimePtr(t.CompletedAt), encodeList(t.Tags), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := checkAffected(res, "task", t.ID); err != nil {
		return err
	}
	s.notify(KindTask, t.ID)
	return nil
}

func (s *SQLiteStore) SetTaskCompletion(ctx context.Context, id string, done bool, at *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET is_completed = ?, completed_at = ? WHERE id = ?`,
		boolInt(done), formatTimePtr(at), id)
	if err != nil {
		return fmt.Errorf("update task completion: %w", err)
	}
	if err := checkAffected(res, "task", id); err != nil {
		return err
	}
	s.notify(KindTask, id)
	return nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := checkAffected(res, "task", id); err != nil {
		return err
	}
	s.notify(KindTask, id)
	return nil
}

func (s *SQLiteStore) DeleteCompletedTasks(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE is_completed = 1`)
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.notify(KindTask, "")
	}
	return int(n), nil
}

func scanTask(row scanner) (model.Task, error) {
	var t model.Task
	var reminder, completedAt, tags sql.NullString
	var createdAt, repeat string
	var done, priority int

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &done, &priority, &t.Category,
		&reminder, &repeat, &createdAt, &completedAt, &tags,
	)
	if err != nil {
		return t, err
	}

	t.IsCompleted = done != 0
	t.Priority = model.Priority(priority)
	t.ReminderAt = parseTimePtr(reminder)
	t.Repeat = model.RepeatType(repeat)
	t.CreatedAt = parseTime(createdAt)
	t.CompletedAt = parseTimePtr(completedAt)
	t.Tags = decodeList(tags)
	return t, nil
}
