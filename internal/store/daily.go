package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rcliao/nodemind/internal/model"
)

const statsColumns = `date, tasks_completed, focus_sessions_completed, total_focus_minutes, streak`

func (s *SQLiteStore) UpsertDailyStats(ctx context.Context, st model.DailyStats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_stats (`+statsColumns+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
		   tasks_completed = excluded.tasks_completed,
		   focus_sessions_completed = excluded.focus_sessions_completed,
		   total_focus_minutes = excluded.total_focus_minutes,
		   streak = excluded.streak`,
		st.Date, st.TasksCompleted, st.FocusSessionsCompleted, st.TotalFocusMinutes, st.Streak)
	if err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	s.notify(KindStats, st.Date)
	return nil
}

func (s *SQLiteStore) GetDailyStats(ctx context.Context, date string) (model.DailyStats, error) {
	st, err := scanStats(s.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM daily_stats WHERE date = ?`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("daily stats %s: %w", date, ErrNotFound)
	}
	return st, err
}

func (s *SQLiteStore) ListDailyStats(ctx context.Context, from, to string) ([]model.DailyStats, error) {
	return s.queryStats(ctx,
		`SELECT `+statsColumns+` FROM daily_stats WHERE date BETWEEN ? AND ? ORDER BY date DESC`, from, to)
}

func (s *SQLiteStore) AllDailyStats(ctx context.Context) ([]model.DailyStats, error) {
	return s.queryStats(ctx, `SELECT `+statsColumns+` FROM daily_stats ORDER BY date DESC`)
}

func (s *SQLiteStore) queryStats(ctx context.Context, query string, args ...interface{}) ([]model.DailyStats, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DailyStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func scanStats(row scanner) (model.DailyStats, error) {
	var st model.DailyStats
	err := row.Scan(&st.Date, &st.TasksCompleted, &st.FocusSessionsCompleted, &st.TotalFocusMinutes, &st.Streak)
	return st, err
}
