package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/nodemind/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err, "create store")
	t.Cleanup(func() { s.Close() })
	return s
}

func newNode(s *SQLiteStore, title string, created time.Time) model.Node {
	return model.Node{
		ID:        s.NewID(),
		Title:     title,
		Emoji:     model.DefaultEmoji,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestNewID_Monotonic(t *testing.T) {
	s := newTestStore(t)
	prev := s.NewID()
	for i := 0; i < 100; i++ {
		id := s.NewID()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestPutAndGetNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC)
	n := newNode(s, "Idea", now)
	n.Content = "body"
	n.Tags = []string{"work", "go"}
	n.PositionX, n.PositionY = 12.5, -3
	require.NoError(t, s.PutNode(ctx, n))

	got, err := s.GetNode(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Idea", got.Title)
	assert.Equal(t, "body", got.Content)
	assert.Equal(t, []string{"work", "go"}, got.Tags)
	assert.Nil(t, got.ConnectedNodeIDs)
	assert.Equal(t, 12.5, got.PositionX)
	assert.Equal(t, -3.0, got.PositionY)
	assert.True(t, now.Equal(got.CreatedAt))
}

func TestGetNode_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetNode(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNodes_CreationOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newNode(s, "c", base.Add(2*time.Second))
	a := newNode(s, "a", base)
	b := newNode(s, "b", base.Add(time.Second))
	for _, n := range []model.Node{c, a, b} {
		require.NoError(t, s.PutNode(ctx, n))
	}

	nodes, err := s.ListNodes(ctx, NodeQuery{})
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{nodes[0].Title, nodes[1].Title, nodes[2].Title})
}

func TestListNodes_Filters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n1 := newNode(s, "Go concurrency", time.Now())
	n1.Tags = []string{"go"}
	n2 := newNode(s, "Groceries", time.Now())
	n2.Content = "buy go-gurt"
	n2.Tags = []string{"home", "gopher"}
	require.NoError(t, s.PutNode(ctx, n1))
	require.NoError(t, s.PutNode(ctx, n2))

	byTag, err := s.ListNodes(ctx, NodeQuery{Tag: "go"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, n1.ID, byTag[0].ID)

	byText, err := s.ListNodes(ctx, NodeQuery{Query: "gurt"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, n2.ID, byText[0].ID)
}

func TestListNodes_TagWildcardsMatchLiterally(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pct := newNode(s, "percent", time.Now())
	pct.Tags = []string{"100%"}
	under := newNode(s, "underscore", time.Now())
	under.Tags = []string{"a_b"}
	other := newNode(s, "other", time.Now())
	other.Tags = []string{"100x", "axb"}
	for _, n := range []model.Node{pct, under, other} {
		require.NoError(t, s.PutNode(ctx, n))
	}

	got, err := s.ListNodes(ctx, NodeQuery{Tag: "100%"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pct.ID, got[0].ID)

	got, err = s.ListNodes(ctx, NodeQuery{Tag: "a_b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, under.ID, got[0].ID)

	got, err = s.ListNodes(ctx, NodeQuery{Tag: "%"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ListNodes(ctx, NodeQuery{Query: "_"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateNodePosition_KeepsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := newNode(s, "n", created)
	require.NoError(t, s.PutNode(ctx, n))
	require.NoError(t, s.UpdateNodePosition(ctx, n.ID, 40, 50))

	got, err := s.GetNode(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.PositionX)
	assert.Equal(t, 50.0, got.PositionY)
	assert.True(t, created.Equal(got.UpdatedAt))

	assert.ErrorIs(t, s.UpdateNodePosition(ctx, "missing", 1, 1), ErrNotFound)
}

func TestUpdateConnections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := newNode(s, "a", created)
	b := newNode(s, "b", created)
	require.NoError(t, s.PutNode(ctx, a))
	require.NoError(t, s.PutNode(ctx, b))

	err := s.UpdateConnections(ctx, []ConnectionUpdate{
		{ID: b.ID, ConnectedNodeIDs: []string{a.ID}},
		{ID: a.ID, ConnectedNodeIDs: []string{b.ID}},
	})
	require.NoError(t, err)

	gotA, _ := s.GetNode(ctx, a.ID)
	gotB, _ := s.GetNode(ctx, b.ID)
	assert.Equal(t, []string{b.ID}, gotA.ConnectedNodeIDs)
	assert.Equal(t, []string{a.ID}, gotB.ConnectedNodeIDs)
	assert.True(t, gotA.UpdatedAt.After(created))
}

func TestUpdateConnections_RollsBackOnMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newNode(s, "a", time.Now())
	require.NoError(t, s.PutNode(ctx, a))

	err := s.UpdateConnections(ctx, []ConnectionUpdate{
		{ID: a.ID, ConnectedNodeIDs: []string{"zzz"}},
		{ID: "zzz", ConnectedNodeIDs: []string{a.ID}},
	})
	require.ErrorIs(t, err, ErrNotFound)

	got, _ := s.GetNode(ctx, a.ID)
	assert.Empty(t, got.ConnectedNodeIDs)
}

func TestDeleteNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n := newNode(s, "gone", time.Now())
	n.Content = "some content"
	require.NoError(t, s.PutNode(ctx, n))
	require.NoError(t, s.DeleteNode(ctx, n.ID))

	_, err := s.GetNode(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteNode(ctx, n.ID), ErrNotFound)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Chunks)
}

func TestRawNodeTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n := newNode(s, "tagged", time.Now())
	n.Tags = []string{"x"}
	require.NoError(t, s.PutNode(ctx, n))
	require.NoError(t, s.PutNode(ctx, newNode(s, "untagged", time.Now())))

	raw, err := s.RawNodeTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{`["x"]`}, raw)
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	low := model.Task{ID: s.NewID(), Title: "low", Priority: model.PriorityLow, CreatedAt: base}
	high := model.Task{ID: s.NewID(), Title: "high", Priority: model.PriorityHigh, CreatedAt: base.Add(time.Hour), Tags: []string{"urgent"}}
	done := model.Task{ID: s.NewID(), Title: "done", IsCompleted: true, CreatedAt: base.Add(2 * time.Hour)}
	for _, tk := range []model.Task{low, high, done} {
		require.NoError(t, s.PutTask(ctx, tk))
	}

	pending, err := s.ListTasks(ctx, TaskQuery{Pending: true})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "high", pending[0].Title)
	assert.Equal(t, model.RepeatNone, pending[0].Repeat)

	tagged, err := s.ListTasks(ctx, TaskQuery{Tag: "urgent"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)

	window, err := s.ListTasks(ctx, TaskQuery{CreatedFrom: base.Add(30 * time.Minute), CreatedTo: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, high.ID, window[0].ID)

	at := base.Add(3 * time.Hour)
	require.NoError(t, s.SetTaskCompletion(ctx, low.ID, true, &at))
	got, err := s.GetTask(ctx, low.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt))

	n, err := s.DeleteCompletedTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.ListTasks(ctx, TaskQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, high.ID, all[0].ID)
}

func TestSessionsAndTotals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	focus := model.FocusSession{ID: s.NewID(), DurationMinutes: 25, StartTime: start, SessionType: model.SessionFocus}
	brk := model.FocusSession{ID: s.NewID(), DurationMinutes: 5, StartTime: start.Add(30 * time.Minute), SessionType: model.SessionShortBreak}
	open := model.FocusSession{ID: s.NewID(), DurationMinutes: 50, StartTime: start.Add(time.Hour), SessionType: model.SessionFocus, TaskID: "t1"}
	for _, fs := range []model.FocusSession{focus, brk, open} {
		require.NoError(t, s.PutSession(ctx, fs))
	}
	require.NoError(t, s.CompleteSession(ctx, focus.ID, start.Add(25*time.Minute)))
	require.NoError(t, s.CompleteSession(ctx, brk.ID, start.Add(35*time.Minute)))

	total, err := s.TotalFocusMinutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, total)

	avg, err := s.AverageSessionMinutes(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, avg, 1e-9)

	recent, err := s.ListSessions(ctx, SessionQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, open.ID, recent[0].ID)

	byTask, err := s.ListSessions(ctx, SessionQuery{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, byTask, 1)

	completed, err := s.ListSessions(ctx, SessionQuery{CompletedOnly: true})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	endedLate, err := s.ListSessions(ctx, SessionQuery{EndedFrom: start.Add(30 * time.Minute), EndedTo: start.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, endedLate, 1)
	assert.Equal(t, brk.ID, endedLate[0].ID)

	require.NoError(t, s.DeleteSession(ctx, open.ID))
	_, err = s.GetSession(ctx, open.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDailyStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertDailyStats(ctx, model.DailyStats{Date: "2026-02-01", FocusSessionsCompleted: 1}))
	require.NoError(t, s.UpsertDailyStats(ctx, model.DailyStats{Date: "2026-02-03", FocusSessionsCompleted: 2}))
	require.NoError(t, s.UpsertDailyStats(ctx, model.DailyStats{Date: "2026-02-01", FocusSessionsCompleted: 4, Streak: 1}))

	got, err := s.GetDailyStats(ctx, "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, 4, got.FocusSessionsCompleted)
	assert.Equal(t, 1, got.Streak)

	_, err = s.GetDailyStats(ctx, "2026-02-02")
	assert.ErrorIs(t, err, ErrNotFound)

	rng, err := s.ListDailyStats(ctx, "2026-02-01", "2026-02-02")
	require.NoError(t, err)
	require.Len(t, rng, 1)

	all, err := s.AllDailyStats(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2026-02-03", all[0].Date)
}

func TestPrefs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetPref(ctx, PrefTheme)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetPref(ctx, PrefTheme, "dark"))
	require.NoError(t, s.SetPref(ctx, PrefTheme, "light"))
	v, ok, err := s.GetPref(ctx, PrefTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	a := newNode(src, "a", time.Now())
	b := newNode(src, "b", time.Now())
	a.ConnectedNodeIDs = []string{b.ID}
	b.ConnectedNodeIDs = []string{a.ID}
	require.NoError(t, src.PutNode(ctx, a))
	require.NoError(t, src.PutNode(ctx, b))
	require.NoError(t, src.PutTask(ctx, model.Task{ID: src.NewID(), Title: "t", CreatedAt: time.Now()}))
	require.NoError(t, src.PutSession(ctx, model.FocusSession{ID: src.NewID(), DurationMinutes: 25, StartTime: time.Now()}))
	require.NoError(t, src.UpsertDailyStats(ctx, model.DailyStats{Date: "2026-02-01"}))
	require.NoError(t, src.SetPref(ctx, PrefFirstLaunch, "false"))

	exp, err := src.ExportAll(ctx)
	require.NoError(t, err)
	assert.Len(t, exp.Nodes, 2)

	dst := newTestStore(t)
	res, err := dst.Import(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Nodes: 2, Tasks: 1, Sessions: 1, DailyStats: 1, Prefs: 1}, res)

	_, err = dst.Import(ctx, exp)
	require.NoError(t, err)

	st, err := dst.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Nodes)
	assert.Equal(t, 1, st.Connections)
	assert.Equal(t, 1, st.Tasks)

	_, err = dst.Import(ctx, &Export{Version: ExportVersion + 1})
	assert.Error(t, err)
}
