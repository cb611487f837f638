// Package mindmap is the interactive mind-map engine: layout of loaded
// nodes, the pan/zoom view transform, selection, the two-tap connection
// protocol and persistence of positions and topology.
//
// Gesture handlers (MoveNode, TapNode, UpdateScale, ...) mutate in-memory
// state and return immediately. Operations that touch storage run one at a
// time on a background worker in the order they were issued; each returns
// a channel that closes once the operation has been applied.
package mindmap

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/apperr"
	"github.com/rcliao/nodemind/internal/config"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

// MsgSaved is the status shown after a successful SaveMindMap.
const MsgSaved = "Mind map saved successfully!"

// NodeSource is the node repository the engine drives.
type NodeSource interface {
	Observe(ctx context.Context) <-chan store.Snapshot[model.Node]
	List(ctx context.Context, q store.NodeQuery) ([]model.Node, error)
	Create(ctx context.Context, d repository.NodeDraft) (model.Node, error)
	Update(ctx context.Context, id string, d repository.NodeDraft) (model.Node, error)
	Delete(ctx context.Context, id string) error
	UpdatePosition(ctx context.Context, id string, x, y float64) error
	Connect(ctx context.Context, a, b string) error
	Disconnect(ctx context.Context, a, b string) error
}

// Options configures an Engine.
type Options struct {
	MinScale  float64
	MaxScale  float64
	OriginX   float64
	OriginY   float64
	StatusTTL time.Duration // zero keeps messages until cleared
	Logger    *zap.Logger
}

// DefaultOptions matches the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().MindMap)
}

// OptionsFromConfig maps the mindmap config section to engine options.
func OptionsFromConfig(c config.MindMapConfig) Options {
	return Options{
		MinScale:  c.MinScale,
		MaxScale:  c.MaxScale,
		OriginX:   c.OriginX,
		OriginY:   c.OriginY,
		StatusTTL: c.StatusTTL,
	}
}

// Engine owns the mind-map state. It is safe for concurrent use; State
// returns copies, so readers never observe a partial update.
type Engine struct {
	nodes  NodeSource
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	st       State
	index    map[string]int   // node id -> NodePositions index
	touching map[string][]int // node id -> Connections indices
	dirty    map[string]point // moved but not yet saved
	msgGen   int
	msgTimer *time.Timer
	subs     []chan State
	started  bool
	closed   bool
	cancel   context.CancelFunc

	queue *opQueue
	wg    sync.WaitGroup
}

// New returns an idle engine. Call Start to load nodes.
func New(nodes NodeSource, opts Options) *Engine {
	if opts.MinScale <= 0 {
		opts.MinScale = 0.3
	}
	if opts.MaxScale < opts.MinScale {
		opts.MaxScale = math.Max(3.0, opts.MinScale)
	}
	return &Engine{
		nodes:    nodes,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger),
		st:       State{Scale: 1, Loading: true},
		index:    map[string]int{},
		touching: map[string][]int{},
		dirty:    map[string]point{},
		queue:    newOpQueue(),
	}
}

// Start subscribes to the live node list and starts the worker. The
// subscription ends when ctx is done or Close is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return errors.New("mindmap: engine already started")
	}
	e.started = true
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(2)
	go e.work(context.WithoutCancel(ctx))
	go e.load(ctx)
	return nil
}

// Close stops the subscription, runs the operations already queued, and
// closes every Subscribe channel.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.msgTimer != nil {
		e.msgTimer.Stop()
	}
	started, cancel := e.started, e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.queue.close()
	if !started {
		e.queue.discard()
	}
	e.wg.Wait()

	e.mu.Lock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.mu.Unlock()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.clone()
}

// Subscribe returns a channel carrying the latest state after every change,
// starting with the current one. A slow reader only misses intermediate
// states.
func (e *Engine) Subscribe() <-chan State {
	ch := make(chan State, 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch
	}
	e.subs = append(e.subs, ch)
	ch <- e.st.clone()
	return ch
}

func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.st.clone()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (e *Engine) load(ctx context.Context) {
	defer e.wg.Done()
	for snap := range e.nodes.Observe(ctx) {
		if snap.Err != nil {
			e.report("Failed to load mind map", snap.Err)
			continue
		}
		e.apply(snap.Items)
	}
}

func (e *Engine) work(ctx context.Context) {
	defer e.wg.Done()
	for {
		o, ok, closed := e.queue.pop()
		if ok {
			o.fn(ctx)
			close(o.done)
			continue
		}
		if closed {
			return
		}
		<-e.queue.wake
	}
}

func (e *Engine) enqueue(name string, fn func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	if !e.queue.push(op{name: name, fn: fn, done: done}) {
		return doneChan()
	}
	return done
}

// apply replaces the loaded nodes, keeping unsaved positions, the
// selection and the pending connection start where their nodes remain.
func (e *Engine) apply(nodes []model.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	for id := range e.dirty {
		if _, ok := index[id]; !ok {
			delete(e.dirty, id)
		}
	}
	if _, ok := index[e.st.SelectedID]; !ok {
		e.st.SelectedID = ""
	}
	if _, ok := index[e.st.PendingStartID]; !ok {
		e.st.PendingStartID = ""
	}

	positions := Layout(nodes, e.opts.OriginX, e.opts.OriginY, e.dirty)
	for i := range positions {
		positions[i].IsSelected = positions[i].Node.ID == e.st.SelectedID
	}
	e.index = index
	e.st.NodePositions = positions
	e.st.Connections, e.touching = buildConnections(positions, index)
	e.st.Loading = false
	e.publishLocked()
}

func (e *Engine) reload(ctx context.Context) {
	nodes, err := e.nodes.List(ctx, store.NodeQuery{})
	if err != nil {
		e.report("Failed to load mind map", err)
		return
	}
	e.apply(nodes)
}

// report turns a failure into the transient message.
func (e *Engine) report(what string, err error) {
	e.logger.Warn(what, zap.Error(err))
	e.setMessage(what + ": " + err.Error())
}

func (e *Engine) setMessage(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Message = msg
	e.st.Loading = false
	e.msgGen++
	gen := e.msgGen

	if e.msgTimer != nil {
		e.msgTimer.Stop()
	}
	if e.opts.StatusTTL > 0 && !e.closed {
		e.msgTimer = time.AfterFunc(e.opts.StatusTTL, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.msgGen == gen && !e.closed {
				e.st.Message = ""
				e.publishLocked()
			}
		})
	}
	e.publishLocked()
}

// ClearMessage dismisses the current message.
func (e *Engine) ClearMessage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Message = ""
	e.msgGen++
	e.publishLocked()
}

// Refresh re-reads every node.
func (e *Engine) Refresh() <-chan struct{} {
	e.mu.Lock()
	e.st.Loading = true
	e.publishLocked()
	e.mu.Unlock()
	return e.enqueue("refresh", e.reload)
}

// SaveMindMap writes every in-memory position back, one node at a time.
// A failure part way leaves earlier nodes saved.
func (e *Engine) SaveMindMap() <-chan struct{} {
	return e.enqueue("save", func(ctx context.Context) {
		e.mu.Lock()
		positions := append([]NodePosition(nil), e.st.NodePositions...)
		e.mu.Unlock()

		var failed int
		var firstErr error
		for _, p := range positions {
			if err := e.nodes.UpdatePosition(ctx, p.Node.ID, p.X, p.Y); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			e.mu.Lock()
			if d, ok := e.dirty[p.Node.ID]; ok && d == (point{p.X, p.Y}) {
				delete(e.dirty, p.Node.ID)
			}
			e.mu.Unlock()
		}

		if firstErr != nil {
			e.logger.Warn("partial save", zap.Int("failed", failed), zap.Int("nodes", len(positions)))
			e.report("Failed to save mind map", firstErr)
			return
		}
		e.logger.Debug("mind map saved", zap.Int("nodes", len(positions)))
		e.setMessage(MsgSaved)
	})
}

// ConnectNodes links a and b. Linking a node to itself does nothing.
func (e *Engine) ConnectNodes(a, b string) <-chan struct{} {
	if a == b {
		return doneChan()
	}
	return e.enqueue("connect", func(ctx context.Context) {
		if err := e.nodes.Connect(ctx, a, b); err != nil {
			e.report("Failed to connect nodes", err)
			return
		}
		e.reload(ctx)
	})
}

// DisconnectNodes removes the link between a and b.
func (e *Engine) DisconnectNodes(a, b string) <-chan struct{} {
	if a == b {
		return doneChan()
	}
	return e.enqueue("disconnect", func(ctx context.Context) {
		if err := e.nodes.Disconnect(ctx, a, b); err != nil {
			e.report("Failed to disconnect nodes", err)
			return
		}
		e.reload(ctx)
	})
}

// DeleteNode removes a node from storage. References to it held by other
// nodes stay stored and are no longer drawn.
func (e *Engine) DeleteNode(id string) <-chan struct{} {
	return e.enqueue("delete", func(ctx context.Context) {
		if err := e.nodes.Delete(ctx, id); err != nil && !apperr.IsNotFound(err) {
			e.report("Failed to delete node", err)
			return
		}
		e.reload(ctx)
	})
}

// DeleteSelected deletes the selected node, if any.
func (e *Engine) DeleteSelected() <-chan struct{} {
	e.mu.Lock()
	id := e.st.SelectedID
	e.mu.Unlock()
	if id == "" {
		return doneChan()
	}
	return e.DeleteNode(id)
}
