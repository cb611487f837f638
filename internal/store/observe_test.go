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

func recvNodes(t *testing.T, ch <-chan Snapshot[model.Node]) Snapshot[model.Node] {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[model.Node]{}
}

func TestSubscribe_FiltersKinds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	ch := s.Subscribe(ctx, KindTask)
	require.NoError(t, s.PutNode(ctx, newNode(s, "ignored", time.Now())))
	require.NoError(t, s.PutTask(ctx, model.Task{ID: "t1", Title: "t", CreatedAt: time.Now()}))

	select {
	case c := <-ch:
		assert.Equal(t, Change{Kind: KindTask, ID: "t1"}, c)
	case <-time.After(time.Second):
		t.Fatal("no task change")
	}
}

func TestSubscribe_ClosesOnCancelAndClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestStore(t)

	ch := s.Subscribe(ctx)
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	other := s.Subscribe(context.Background())
	require.NoError(t, s.Close())
	_, ok := <-other
	assert.False(t, ok)

	late := s.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok)
}

func TestObserveNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	require.NoError(t, s.PutNode(ctx, newNode(s, "first", time.Now())))

	ch := ObserveNodes(ctx, s, NodeQuery{})
	snap := recvNodes(t, ch)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Items, 1)

	require.NoError(t, s.PutNode(ctx, newNode(s, "second", time.Now())))
	require.Eventually(t, func() bool {
		select {
		case snap := <-ch:
			return len(snap.Items) == 2
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestObserveTasks_SkipsOtherKinds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	ch := ObserveTasks(ctx, s, TaskQuery{Pending: true})
	first := <-ch
	assert.Empty(t, first.Items)

	require.NoError(t, s.SetPref(ctx, PrefTheme, "dark"))
	select {
	case <-ch:
		t.Fatal("pref change re-emitted tasks")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSearchNodes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n := newNode(s, "Project plan", time.Now())
	n.Content = "# Goals\n\nship the mind map\n\n# Risks\n\nnone yet"
	n.Tags = []string{"work"}
	require.NoError(t, s.PutNode(ctx, n))
	other := newNode(s, "Groceries", time.Now())
	other.Content = "milk"
	require.NoError(t, s.PutNode(ctx, other))

	res, err := s.SearchNodes(ctx, SearchParams{Query: "mind map"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, n.ID, res[0].ID)
	require.NotNil(t, res[0].MatchChunk)
	assert.Contains(t, res[0].MatchChunk.Text, "mind map")

	res, err = s.SearchNodes(ctx, SearchParams{Query: "plan"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Nil(t, res[0].MatchChunk)

	res, err = s.SearchNodes(ctx, SearchParams{Query: "i", Tag: "work"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, n.ID, res[0].ID)
}

func TestWatch_ExternalWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "shared.db")
	watched, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer watched.Close()
	writer, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer writer.Close()

	changes := watched.Subscribe(ctx, KindNode)
	go watched.Watch(ctx)

	require.Eventually(t, func() bool {
		_ = writer.SetPref(ctx, PrefTheme, time.Now().String())
		select {
		case c := <-changes:
			return c.Kind == KindNode && c.ID == ""
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)
}
