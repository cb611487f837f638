package mindmap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

func testOptions() Options {
	return Options{MinScale: 0.3, MaxScale: 3.0, OriginX: 400, OriginY: 400}
}

func newRepo(t *testing.T) *repository.Nodes {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return repository.NewNodes(s, nil)
}

func startEngine(t *testing.T, src NodeSource, opts Options) *Engine {
	t.Helper()
	e := New(src, opts)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Close)
	return e
}

func mustCreate(t *testing.T, r *repository.Nodes, title string) model.Node {
	t.Helper()
	n, err := r.Create(context.Background(), repository.NodeDraft{Title: title})
	require.NoError(t, err)
	return n
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("operation not applied")
	}
}

func waitFor(t *testing.T, e *Engine, cond func(State) bool) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		st = e.State()
		return cond(st)
	}, 3*time.Second, 5*time.Millisecond)
	return st
}

func loaded(n int) func(State) bool {
	return func(s State) bool { return !s.Loading && len(s.NodePositions) == n }
}

func TestLoad_LaysOutUnplacedNodes(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "a")
	mustCreate(t, r, "b")
	c := mustCreate(t, r, "c")
	require.NoError(t, r.UpdatePosition(ctx, c.ID, 10, 20))

	e := startEngine(t, r, testOptions())
	st := waitFor(t, e, loaded(3))

	p, ok := st.Position(a.ID)
	require.True(t, ok)
	assert.InDelta(t, 400+230.0, p.X, 1e-9)
	assert.InDelta(t, 400.0, p.Y, 1e-9)

	p, _ = st.Position(c.ID)
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, 20.0, p.Y)
}

func TestMoveNode_PersistsOnSave(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")
	require.NoError(t, r.Connect(ctx, a.ID, b.ID))

	e := startEngine(t, r, testOptions())
	waitFor(t, e, func(s State) bool { return len(s.Connections) == 1 })

	e.MoveNode(a.ID, 123.5, 456.25)
	st := e.State()
	c := st.Connections[0]
	if c.FromID == a.ID {
		assert.Equal(t, [2]float64{123.5, 456.25}, [2]float64{c.FromX, c.FromY})
	} else {
		assert.Equal(t, [2]float64{123.5, 456.25}, [2]float64{c.ToX, c.ToY})
	}

	wait(t, e.SaveMindMap())
	assert.Equal(t, MsgSaved, e.State().Message)

	fresh := startEngine(t, r, testOptions())
	st = waitFor(t, fresh, loaded(2))
	p, _ := st.Position(a.ID)
	assert.InDelta(t, 123.5, p.X, 1e-9)
	assert.InDelta(t, 456.25, p.Y, 1e-9)

	stored, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.InDelta(t, 123.5, stored.PositionX, 1e-9)
}

func TestMoveNode_SurvivesReloadUntilSaved(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")

	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(1))

	e.MoveNode(a.ID, 7, 8)
	mustCreate(t, r, "b")
	st := waitFor(t, e, loaded(2))

	p, _ := st.Position(a.ID)
	assert.Equal(t, 7.0, p.X)
	assert.Equal(t, 8.0, p.Y)
}

func TestUpdateScale_Clamps(t *testing.T) {
	e := New(newRepo(t), testOptions())
	defer e.Close()

	e.UpdateScale(100)
	assert.Equal(t, 3.0, e.State().Scale)
	e.UpdateScale(0.0001)
	assert.Equal(t, 0.3, e.State().Scale)
	e.UpdateScale(1.5)
	assert.Equal(t, 1.5, e.State().Scale)
}

func TestDragNode_UnderZoom(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")
	require.NoError(t, r.UpdatePosition(context.Background(), a.ID, 100, 100))

	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(1))

	e.UpdateScale(2.0)
	e.DragNode(a.ID, 40, 20)

	p, _ := e.State().Position(a.ID)
	assert.InDelta(t, 120.0, p.X, 1e-9)
	assert.InDelta(t, 110.0, p.Y, 1e-9)
}

func TestConnectionMode_TwoTaps(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")

	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(2))

	require.True(t, e.ToggleConnectionMode())
	wait(t, e.TapNode(a.ID))
	wait(t, e.TapNode(a.ID))

	st := e.State()
	assert.True(t, st.ConnectionMode)
	assert.Equal(t, a.ID, st.PendingStartID)
	assert.Empty(t, st.Connections)
	assert.Empty(t, st.SelectedID)

	wait(t, e.TapNode(b.ID))
	st = waitFor(t, e, func(s State) bool { return s.HasConnection(a.ID, b.ID) })
	assert.False(t, st.ConnectionMode)
	assert.Empty(t, st.PendingStartID)

	stored, err := r.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, stored.ConnectedNodeIDs)
}

func TestConnectionMode_ToggleOffClearsPending(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")

	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(2))

	e.ToggleConnectionMode()
	wait(t, e.TapNode(a.ID))
	assert.False(t, e.ToggleConnectionMode())
	assert.Empty(t, e.State().PendingStartID)

	wait(t, e.TapNode(b.ID))
	st := e.State()
	assert.Equal(t, b.ID, st.SelectedID)
	assert.Empty(t, st.Connections)
}

func TestSelectNode_Toggles(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")

	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(2))

	e.SelectNode(a.ID)
	e.SelectNode(b.ID)
	st := e.State()
	assert.Equal(t, b.ID, st.SelectedID)
	pa, _ := st.Position(a.ID)
	pb, _ := st.Position(b.ID)
	assert.False(t, pa.IsSelected)
	assert.True(t, pb.IsSelected)

	e.SelectNode(b.ID)
	assert.Empty(t, e.State().SelectedID)

	e.SelectNode(a.ID)
	e.ResetView()
	assert.Empty(t, e.State().SelectedID)
}

func TestDeleteNode_DropsDanglingEdgeFromRender(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")
	require.NoError(t, r.Connect(ctx, a.ID, b.ID))

	e := startEngine(t, r, testOptions())
	waitFor(t, e, func(s State) bool { return len(s.Connections) == 1 })

	e.SelectNode(b.ID)
	wait(t, e.DeleteSelected())
	st := waitFor(t, e, loaded(1))
	assert.Empty(t, st.Connections)
	assert.Empty(t, st.SelectedID)

	stored, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, stored.ConnectedNodeIDs)
}

func TestDisconnectNodes(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")
	require.NoError(t, r.Connect(ctx, a.ID, b.ID))

	e := startEngine(t, r, testOptions())
	waitFor(t, e, func(s State) bool { return len(s.Connections) == 1 })

	wait(t, e.DisconnectNodes(b.ID, a.ID))
	waitFor(t, e, func(s State) bool { return len(s.Connections) == 0 })
	wait(t, e.ConnectNodes(a.ID, a.ID))
	assert.Empty(t, e.State().Message)
}

type failingSource struct {
	*repository.Nodes
}

func (failingSource) Connect(context.Context, string, string) error {
	return errors.New("disk full")
}

func (failingSource) UpdatePosition(context.Context, string, float64, float64) error {
	return errors.New("read-only")
}

func TestFailuresBecomeMessages(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")

	e := startEngine(t, failingSource{r}, testOptions())
	waitFor(t, e, loaded(2))

	wait(t, e.ConnectNodes(a.ID, b.ID))
	assert.Equal(t, "Failed to connect nodes: disk full", e.State().Message)

	e.ClearMessage()
	assert.Empty(t, e.State().Message)

	wait(t, e.SaveMindMap())
	assert.Contains(t, e.State().Message, "Failed to save mind map")
}

func TestStatusMessageExpires(t *testing.T) {
	r := newRepo(t)
	mustCreate(t, r, "a")

	opts := testOptions()
	opts.StatusTTL = 200 * time.Millisecond
	e := startEngine(t, r, opts)
	waitFor(t, e, loaded(1))

	wait(t, e.SaveMindMap())
	assert.Equal(t, MsgSaved, e.State().Message)
	waitFor(t, e, func(s State) bool { return s.Message == "" })
}

func TestDialog_CreateAndEdit(t *testing.T) {
	r := newRepo(t)
	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(0))

	e.OpenCreateDialog()
	assert.False(t, e.CanSave())
	e.SetDraftTitle("   ")
	assert.False(t, e.CanSave())
	wait(t, e.SaveNode())
	assert.True(t, e.State().Dialog.Open)

	e.SetDraftTitle("New idea")
	e.SetDraftTags("a, b,, ")
	require.True(t, e.CanSave())
	wait(t, e.SaveNode())

	st := waitFor(t, e, loaded(1))
	assert.False(t, st.Dialog.Open)
	n := st.NodePositions[0].Node
	assert.Equal(t, "New idea", n.Title)
	assert.Equal(t, []string{"a", "b"}, n.Tags)

	require.True(t, e.OpenEditDialog(n.ID))
	assert.Equal(t, "a, b", e.State().Dialog.Tags)
	e.SetDraftTitle("Renamed")
	wait(t, e.SaveNode())

	waitFor(t, e, func(s State) bool {
		return len(s.NodePositions) == 1 && s.NodePositions[0].Node.Title == "Renamed"
	})
	assert.False(t, e.OpenEditDialog("missing"))
}

func TestViewTransform(t *testing.T) {
	e := New(newRepo(t), testOptions())
	defer e.Close()

	e.UpdateOffset(10, 5)
	e.UpdateOffset(-3, 5)
	st := e.State()
	assert.Equal(t, 7.0, st.OffsetX)
	assert.Equal(t, 10.0, st.OffsetY)

	e.CenterMap()
	e.ZoomBy(2, 100, 100)
	st = e.State()
	assert.Equal(t, 2.0, st.Scale)
	assert.Equal(t, -100.0, st.OffsetX)
	assert.Equal(t, Point{X: 100, Y: 100}, st.ToLogical(100, 100))

	e.ZoomBy(10, 0, 0)
	assert.Equal(t, 3.0, e.State().Scale)
}

func TestTapAt(t *testing.T) {
	r := newRepo(t)
	a := mustCreate(t, r, "a")
	require.NoError(t, r.UpdatePosition(context.Background(), a.ID, 100, 100))

	e := startEngine(t, r, testOptions())
	waitFor(t, e, loaded(1))
	e.UpdateScale(2)
	e.UpdateOffset(50, 0)

	wait(t, e.TapAt(10, 10))
	assert.Empty(t, e.State().SelectedID)

	// logical (150, 150) is inside the node box [100, 240].
	wait(t, e.TapAt(350, 300))
	assert.Equal(t, a.ID, e.State().SelectedID)
}

func TestSubscribeAndClose(t *testing.T) {
	r := newRepo(t)
	mustCreate(t, r, "a")
	e := New(r, testOptions())

	ch := e.Subscribe()
	first := <-ch
	assert.True(t, first.Loading)

	require.NoError(t, e.Start(context.Background()))
	assert.Error(t, e.Start(context.Background()))
	require.Eventually(t, func() bool {
		select {
		case s := <-ch:
			return len(s.NodePositions) == 1
		default:
			return false
		}
	}, 3*time.Second, 5*time.Millisecond)

	e.Close()
	e.Close()
	for range ch {
	}
	wait(t, e.SaveMindMap())
	_, ok := <-e.Subscribe()
	assert.False(t, ok)
}

func TestClose_ReleasesQueuedOpsWhenNeverStarted(t *testing.T) {
	e := New(newRepo(t), testOptions())
	done := e.Refresh()
	e.Close()
	wait(t, done)
}
