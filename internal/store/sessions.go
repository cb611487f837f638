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

const sessionColumns = `id, duration_minutes, start_time, end_time, is_completed,
	session_type, task_id, notes`

func (s *SQLiteStore) PutSession(ctx context.Context, fs model.FocusSession) error {
	if fs.ID == "" {
		return fmt.Errorf("put session: empty id")
	}
	kind := fs.SessionType
	if kind == "" {
		kind = model.SessionFocus
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO focus_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fs.ID, fs.DurationMinutes, formatTime(fs.StartTime), formatTimePtr(fs.EndTime),
		boolInt(fs.IsCompleted), string(kind), nullString(fs.TaskID), fs.Notes)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.notify(KindSession, fs.ID)
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (model.FocusSession, error) {
	fs, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM focus_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return fs, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return fs, err
}

func (s *SQLiteStore) ListSessions(ctx context.Context, q SessionQuery) ([]model.FocusSession, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if !q.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, formatTime(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, formatTime(q.To))
	}
	if !q.EndedFrom.IsZero() {
		where = append(where, "end_time >= ?")
		args = append(args, formatTime(q.EndedFrom))
	}
	if !q.EndedTo.IsZero() {
		where = append(where, "end_time < ?")
		args = append(args, formatTime(q.EndedTo))
	}
	if q.TaskID != "" {
		where = append(where, "task_id = ?")
		args = append(args, q.TaskID)
	}
	if q.CompletedOnly {
		where = append(where, "is_completed = 1")
	}

	query := `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY start_time DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.FocusSession
	for rows.Next() {
		fs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, fs)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, fs model.FocusSession) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE focus_sessions SET duration_minutes = ?, start_time = ?, end_time = ?, is_completed = ?,
		        session_type = ?, task_id = ?, notes = ?
		 WHERE id = ?`,
		fs.DurationMinutes, formatTime(fs.StartTime), formatTimePtr(fs.EndTime), boolInt(fs.IsCompleted),
		string(fs.SessionType), nullString(fs.TaskID), fs.Notes, fs.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if err := checkAffected(res, "session", fs.ID); err != nil {
		return err
	}
	s.notify(KindSession, fs.ID)
	return nil
}

func (s *SQLiteStore) CompleteSession(ctx context.Context, id string, end time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE focus_sessions SET is_completed = 1, end_time = ? WHERE id = ?`, formatTime(end), id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if err := checkAffected(res, "session", id); err != nil {
		return err
	}
	s.notify(KindSession, id)
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM focus_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := checkAffected(res, "session", id); err != nil {
		return err
	}
	s.notify(KindSession, id)
	return nil
}

// TotalFocusMinutes sums completed Focus-kind sessions.
func (s *SQLiteStore) TotalFocusMinutes(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_minutes), 0) FROM focus_sessions
		 WHERE is_completed = 1 AND session_type = ?`, string(model.SessionFocus)).Scan(&total)
	return total, err
}

func (s *SQLiteStore) AverageSessionMinutes(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(duration_minutes), 0.0) FROM focus_sessions WHERE is_completed = 1`).Scan(&avg)
	return avg, err
}

func scanSession(row scanner) (model.FocusSession, error) {
	var fs model.FocusSession
	var endTime, taskID sql.NullString
	var startTime, kind string
	var done int

	err := row.Scan(&fs.ID, &fs.DurationMinutes, &startTime, &endTime, &done, &kind, &taskID, &fs.Notes)
	if err != nil {
		return fs, err
	}

	fs.StartTime = parseTime(startTime)
	fs.EndTime = parseTimePtr(endTime)
	fs.IsCompleted = done != 0
	fs.SessionType = model.SessionType(kind)
	fs.TaskID = taskID.String
	return fs, nil
}
