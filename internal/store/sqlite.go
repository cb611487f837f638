package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	broker *broker

	idMu    sync.Mutex
	entropy io.Reader
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		logger:  zap.NewNop(),
		broker:  newBroker(),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.logger.Debug("store opened", zap.String("path", dbPath))

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// NewID returns a new ULID string.
func (s *SQLiteStore) NewID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		content            TEXT NOT NULL DEFAULT '',
		emoji              TEXT NOT NULL DEFAULT '',
		tags               TEXT,
		connected_node_ids TEXT,
		position_x         REAL NOT NULL DEFAULT 0,
		position_y         REAL NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL,
		is_markdown        INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_created ON nodes(created_at, id);

	CREATE TABLE IF NOT EXISTS node_chunks (
		id          TEXT PRIMARY KEY,
		node_id     TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_node_chunks_node ON node_chunks(node_id);

	CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		is_completed INTEGER NOT NULL DEFAULT 0,
		priority     INTEGER NOT NULL DEFAULT 1,
		category     TEXT NOT NULL DEFAULT '',
		reminder_at  TEXT,
		repeat_type  TEXT NOT NULL DEFAULT 'none',
		created_at   TEXT NOT NULL,
		completed_at TEXT,
		tags         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
	CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(is_completed);

	CREATE TABLE IF NOT EXISTS focus_sessions (
		id               TEXT PRIMARY KEY,
		duration_minutes INTEGER NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT,
		is_completed     INTEGER NOT NULL DEFAULT 0,
		session_type     TEXT NOT NULL DEFAULT 'focus',
		task_id          TEXT,
		notes            TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON focus_sessions(start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_task ON focus_sessions(task_id);

	CREATE TABLE IF NOT EXISTS daily_stats (
		date                     TEXT PRIMARY KEY,
		tasks_completed          INTEGER NOT NULL DEFAULT 0,
		focus_sessions_completed INTEGER NOT NULL DEFAULT 0,
		total_focus_minutes      INTEGER NOT NULL DEFAULT 0,
		streak                   INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS prefs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	s.logger.Debug("schema migrated")
	return nil
}

// Close stops every subscription and closes the database.
func (s *SQLiteStore) Close() error {
	s.broker.close()
	return s.db.Close()
}

// Subscribe implements Notifier.
func (s *SQLiteStore) Subscribe(ctx context.Context, kinds ...Kind) <-chan Change {
	return s.broker.subscribe(ctx, kinds)
}

func (s *SQLiteStore) notify(kind Kind, id string) {
	s.broker.publish(Change{Kind: kind, ID: id})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// encodeList stores a string list as a JSON array; empty lists are NULL.
func encodeList(list []string) *string {
	if len(list) == 0 {
		return nil
	}
	b, _ := json.Marshal(list)
	s := string(b)
	return &s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeContains builds a pattern for "col LIKE ? ESCAPE '\'" that matches s
// literally anywhere in the column.
func likeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// tagPattern matches one exact element of a list stored by encodeList.
func tagPattern(tag string) string {
	b, _ := json.Marshal(tag)
	return likeContains(string(b))
}

func decodeList(ns sql.NullString) []string {
	if !ns.Valid {
		return nil
	}
	var out []string
	json.Unmarshal([]byte(ns.String), &out)
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func checkAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
