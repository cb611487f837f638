package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string `json:"db_path"`
	DBSizeBytes    int64  `json:"db_size_bytes"`
	Nodes          int    `json:"nodes"`
	Connections    int    `json:"connections"`
	Chunks         int    `json:"chunks"`
	Tasks          int    `json:"tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	Sessions       int    `json:"sessions"`
	DailyStats     int    `json:"daily_stats"`
}

// Stats returns database statistics. Connections counts each undirected
// edge once, assuming neighbor sets are symmetric.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Nodes, `SELECT COUNT(*) FROM nodes`},
		{&st.Chunks, `SELECT COUNT(*) FROM node_chunks`},
		{&st.Tasks, `SELECT COUNT(*) FROM tasks`},
		{&st.CompletedTasks, `SELECT COUNT(*) FROM tasks WHERE is_completed = 1`},
		{&st.Sessions, `SELECT COUNT(*) FROM focus_sessions`},
		{&st.DailyStats, `SELECT COUNT(*) FROM daily_stats`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return st, err
		}
	}

	var ends int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(json_array_length(connected_node_ids)), 0) FROM nodes
		 WHERE connected_node_ids IS NOT NULL AND json_valid(connected_node_ids)`).Scan(&ends)
	if err != nil {
		return st, err
	}
	st.Connections = ends / 2

	return st, nil
}
