package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

func task(id string, done bool, p model.Priority, minute int) model.Task {
	return model.Task{
		ID:          id,
		Title:       "task " + id,
		IsCompleted: done,
		Priority:    p,
		CreatedAt:   time.Date(2026, 1, 1, 9, minute, 0, 0, time.UTC),
	}
}

func ids(ts []model.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestSort(t *testing.T) {
	ts := []model.Task{
		task("done-high", true, model.PriorityHigh, 0),
		task("low", false, model.PriorityLow, 1),
		task("high-late", false, model.PriorityHigh, 5),
		task("high-early", false, model.PriorityHigh, 2),
		task("medium", false, model.PriorityMedium, 0),
	}
	Sort(ts)
	assert.Equal(t, []string{"high-early", "high-late", "medium", "low", "done-high"}, ids(ts))
}

func TestFilter(t *testing.T) {
	high := model.PriorityHigh
	a := task("a", false, model.PriorityHigh, 0)
	a.Category = "Work"
	a.Tags = []string{"q1"}
	a.Description = "Quarterly REPORT"
	b := task("b", true, model.PriorityLow, 1)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero matches all", Filter{}, []string{"a", "b"}},
		{"pending", Filter{Status: StatusPending}, []string{"a"}},
		{"done", Filter{Status: StatusDone}, []string{"b"}},
		{"priority", Filter{Priority: &high}, []string{"a"}},
		{"category folds case", Filter{Category: "work"}, []string{"a"}},
		{"tag", Filter{Tag: "q1"}, []string{"a"}},
		{"query in description", Filter{Query: " report "}, []string{"a"}},
		{"query misses", Filter{Query: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply([]model.Task{b, a}, tt.filter)))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]model.Task{
		task("a", true, model.PriorityLow, 0),
		task("b", false, model.PriorityLow, 1),
		task("c", true, model.PriorityLow, 2),
		task("d", false, model.PriorityLow, 3),
	}, Filter{})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 0.5, s.Progress())
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(s.Tasks))
	assert.Zero(t, Summary{}.Progress())
}

func TestView(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := repository.NewTasks(s, time.UTC, nil)
	v := NewView(repo)

	updates := v.Watch(ctx, store.TaskQuery{}, Filter{Status: StatusPending})
	first := <-updates
	require.NoError(t, first.Err)
	assert.Zero(t, first.Summary.Total)

	low, err := repo.Create(ctx, repository.TaskDraft{Title: "low", Priority: model.PriorityLow})
	require.NoError(t, err)
	_, err = repo.Create(ctx, repository.TaskDraft{Title: "high", Priority: model.PriorityHigh})
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, low.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case u := <-updates:
			return u.Err == nil && u.Summary.Total == 1 && u.Summary.Tasks[0].Title == "high"
		default:
			return false
		}
	}, 3*time.Second, 5*time.Millisecond)

	today, err := v.Today(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, today.Total)
	assert.Equal(t, 1, today.Completed)
	assert.Equal(t, "high", today.Tasks[0].Title)

	all, err := v.All(ctx, Filter{Status: StatusDone})
	require.NoError(t, err)
	assert.Equal(t, []string{low.ID}, ids(all.Tasks))
}
