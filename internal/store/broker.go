package store

import (
	"context"
	"sync"
)

// Change describes one mutation. ID is empty for bulk or external changes.
type Change struct {
	Kind Kind
	ID   string
}

// changeBuffer bounds pending notifications per subscriber. Overflow is
// dropped: consumers re-read full snapshots, so one pending change suffices.
const changeBuffer = 16

type subscriber struct {
	kinds map[Kind]bool
	ch    chan Change
}

func (s *subscriber) wants(k Kind) bool {
	return len(s.kinds) == 0 || s.kinds[k]
}

type broker struct {
	mu     sync.Mutex
	next   int
	subs   map[int]*subscriber
	closed bool
	done   chan struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[int]*subscriber), done: make(chan struct{})}
}

func (b *broker) subscribe(ctx context.Context, kinds []Kind) <-chan Change {
	sub := &subscriber{ch: make(chan Change, changeBuffer)}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.remove(id)
		case <-b.done:
		}
	}()

	return sub.ch
}

func (b *broker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *broker) publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !sub.wants(c.Kind) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
