// Package store provides the persistent record store and its SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/nodemind/internal/model"
)

// ErrNotFound is returned by point queries that match no record.
var ErrNotFound = errors.New("record not found")

// Kind names a record kind for change notification.
type Kind string

const (
	KindNode    Kind = "node"
	KindTask    Kind = "task"
	KindSession Kind = "session"
	KindStats   Kind = "daily_stats"
	KindPref    Kind = "pref"
)

// AllKinds lists every record kind.
var AllKinds = []Kind{KindNode, KindTask, KindSession, KindStats, KindPref}

// NodeQuery filters ListNodes. Zero value lists every node.
type NodeQuery struct {
	Tag   string // exact tag
	Query string // substring of title or content
}

// ConnectionUpdate replaces the neighbor set of one node.
type ConnectionUpdate struct {
	ID               string
	ConnectedNodeIDs []string
}

// TaskQuery filters ListTasks.
type TaskQuery struct {
	Pending     bool
	Tag         string
	CreatedFrom time.Time // inclusive, zero means unbounded
	CreatedTo   time.Time // exclusive, zero means unbounded
}

// SessionQuery filters ListSessions. Results are newest first.
type SessionQuery struct {
	From          time.Time // inclusive start_time bound
	To            time.Time // exclusive start_time bound
	EndedFrom     time.Time // inclusive end_time bound
	EndedTo       time.Time // exclusive end_time bound
	TaskID        string
	CompletedOnly bool
	Limit         int
}

// NodeStore holds Note-Node records.
type NodeStore interface {
	// PutNode inserts or replaces a node.
	PutNode(ctx context.Context, n model.Node) error
	GetNode(ctx context.Context, id string) (model.Node, error)
	ListNodes(ctx context.Context, q NodeQuery) ([]model.Node, error)
	// UpdateNode rewrites an existing node. Returns ErrNotFound if absent.
	UpdateNode(ctx context.Context, n model.Node) error
	// UpdateNodePosition writes the position only. Returns ErrNotFound if absent.
	UpdateNodePosition(ctx context.Context, id string, x, y float64) error
	// UpdateConnections rewrites neighbor sets in one transaction, in ascending id order.
	UpdateConnections(ctx context.Context, updates []ConnectionUpdate) error
	DeleteNode(ctx context.Context, id string) error
	// RawNodeTags returns each node's encoded tag column as stored.
	RawNodeTags(ctx context.Context) ([]string, error)
	SearchNodes(ctx context.Context, p SearchParams) ([]SearchResult, error)
}

// TaskStore holds Task records.
type TaskStore interface {
	PutTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	SetTaskCompletion(ctx context.Context, id string, done bool, at *time.Time) error
	DeleteTask(ctx context.Context, id string) error
	DeleteCompletedTasks(ctx context.Context) (int, error)
}

// SessionStore holds FocusSession and DailyStats records.
type SessionStore interface {
	PutSession(ctx context.Context, s model.FocusSession) error
	GetSession(ctx context.Context, id string) (model.FocusSession, error)
	ListSessions(ctx context.Context, q SessionQuery) ([]model.FocusSession, error)
	UpdateSession(ctx context.Context, s model.FocusSession) error
	CompleteSession(ctx context.Context, id string, end time.Time) error
	DeleteSession(ctx context.Context, id string) error
	TotalFocusMinutes(ctx context.Context) (int, error)
	AverageSessionMinutes(ctx context.Context) (float64, error)

	UpsertDailyStats(ctx context.Context, st model.DailyStats) error
	GetDailyStats(ctx context.Context, date string) (model.DailyStats, error)
	// ListDailyStats returns rows with from <= date <= to, newest first.
	ListDailyStats(ctx context.Context, from, to string) ([]model.DailyStats, error)
	// AllDailyStats returns every row, newest first.
	AllDailyStats(ctx context.Context) ([]model.DailyStats, error)
}

// PrefStore is a string key-value table for user preferences.
type PrefStore interface {
	GetPref(ctx context.Context, key string) (string, bool, error)
	SetPref(ctx context.Context, key, value string) error
}

// Notifier delivers change notifications.
type Notifier interface {
	// Subscribe returns a channel receiving a Change whenever a record of
	// one of kinds (all kinds when empty) is mutated. The channel closes when
	// ctx is done or the store is closed.
	Subscribe(ctx context.Context, kinds ...Kind) <-chan Change
}

// Store is the full persistent store.
type Store interface {
	NodeStore
	TaskStore
	SessionStore
	PrefStore
	Notifier

	// NewID returns a fresh sortable record id.
	NewID() string

	// Close closes the store.
	Close() error
}
