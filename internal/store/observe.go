package store

import (
	"context"

	"github.com/rcliao/nodemind/internal/model"
)

// Snapshot is one emission of a live query: the full current result set,
// or the error from re-reading it.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// ObserveNodes emits the current node list, then a fresh list after every
// node change. The channel closes when ctx is done or the store closes.
func ObserveNodes(ctx context.Context, s Store, q NodeQuery) <-chan Snapshot[model.Node] {
	return observe(ctx, s, func(ctx context.Context) ([]model.Node, error) {
		return s.ListNodes(ctx, q)
	}, KindNode)
}

// ObserveTasks emits the matching tasks on every task change.
func ObserveTasks(ctx context.Context, s Store, q TaskQuery) <-chan Snapshot[model.Task] {
	return observe(ctx, s, func(ctx context.Context) ([]model.Task, error) {
		return s.ListTasks(ctx, q)
	}, KindTask)
}

// ObserveSessions emits the matching focus sessions on every session change.
func ObserveSessions(ctx context.Context, s Store, q SessionQuery) <-chan Snapshot[model.FocusSession] {
	return observe(ctx, s, func(ctx context.Context) ([]model.FocusSession, error) {
		return s.ListSessions(ctx, q)
	}, KindSession)
}

// observe subscribes before the first read so no change between the read
// and the subscription is lost. Changes that pile up while a snapshot is
// being delivered collapse into a single re-read.
func observe[T any](ctx context.Context, n Notifier, load func(context.Context) ([]T, error), kinds ...Kind) <-chan Snapshot[T] {
	changes := n.Subscribe(ctx, kinds...)
	out := make(chan Snapshot[T], 1)

	go func() {
		defer close(out)

		emit := func() bool {
			items, err := load(ctx)
			if ctx.Err() != nil {
				return false
			}
			select {
			case out <- Snapshot[T]{Items: items, Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				drain(changes)
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}

func drain(ch <-chan Change) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
