package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/nodemind/internal/model"
)

// ExportVersion is bumped when the export layout changes incompatibly.
const ExportVersion = 1

// Export is a full dump of every record kind.
type Export struct {
	Version    int                  `json:"version" yaml:"version"`
	ExportedAt time.Time            `json:"exported_at" yaml:"exported_at"`
	Nodes      []model.Node         `json:"nodes" yaml:"nodes"`
	Tasks      []model.Task         `json:"tasks" yaml:"tasks"`
	Sessions   []model.FocusSession `json:"sessions" yaml:"sessions"`
	DailyStats []model.DailyStats   `json:"daily_stats" yaml:"daily_stats"`
	Prefs      map[string]string    `json:"prefs,omitempty" yaml:"prefs,omitempty"`
}

// ImportResult counts imported records per kind.
type ImportResult struct {
	Nodes      int `json:"nodes"`
	Tasks      int `json:"tasks"`
	Sessions   int `json:"sessions"`
	DailyStats int `json:"daily_stats"`
	Prefs      int `json:"prefs"`
}

// ExportAll returns every stored record.
func (s *SQLiteStore) ExportAll(ctx context.Context) (*Export, error) {
	exp := &Export{Version: ExportVersion, ExportedAt: time.Now().UTC()}

	var err error
	if exp.Nodes, err = s.ListNodes(ctx, NodeQuery{}); err != nil {
		return nil, fmt.Errorf("export nodes: %w", err)
	}
	if exp.Tasks, err = s.ListTasks(ctx, TaskQuery{}); err != nil {
		return nil, fmt.Errorf("export tasks: %w", err)
	}
	if exp.Sessions, err = s.ListSessions(ctx, SessionQuery{}); err != nil {
		return nil, fmt.Errorf("export sessions: %w", err)
	}
	if exp.DailyStats, err = s.AllDailyStats(ctx); err != nil {
		return nil, fmt.Errorf("export daily stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM prefs ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("export prefs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		if exp.Prefs == nil {
			exp.Prefs = map[string]string{}
		}
		exp.Prefs[k] = v
	}
	return exp, rows.Err()
}

// Import writes an export back with insert-or-replace semantics, so
// importing the same document twice leaves one copy of each record.
func (s *SQLiteStore) Import(ctx context.Context, exp *Export) (ImportResult, error) {
	var res ImportResult
	if exp.Version > ExportVersion {
		return res, fmt.Errorf("unsupported export version %d", exp.Version)
	}

	for _, n := range exp.Nodes {
		if err := s.PutNode(ctx, n); err != nil {
			return res, err
		}
		res.Nodes++
	}
	for _, t := range exp.Tasks {
		if err := s.PutTask(ctx, t); err != nil {
			return res, err
		}
		res.Tasks++
	}
	for _, fs := range exp.Sessions {
		if err := s.PutSession(ctx, fs); err != nil {
			return res, err
		}
		res.Sessions++
	}
	for _, st := range exp.DailyStats {
		if err := s.UpsertDailyStats(ctx, st); err != nil {
			return res, err
		}
		res.DailyStats++
	}
	for k, v := range exp.Prefs {
		if err := s.SetPref(ctx, k, v); err != nil {
			return res, err
		}
		res.Prefs++
	}
	return res, nil
}
