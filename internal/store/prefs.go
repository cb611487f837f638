package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Preference keys.
const (
	PrefFirstLaunch    = "is_first_launch"
	PrefTheme          = "theme_mode"
	PrefDefaultMinutes = "default_pomodoro_duration"
	PrefStreak         = "current_streak"
)

// GetPref returns the stored value and whether it was set.
func (s *SQLiteStore) GetPref(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLiteStore) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set pref %s: %w", key, err)
	}
	s.notify(KindPref, key)
	return nil
}
