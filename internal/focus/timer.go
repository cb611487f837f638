// Package focus drives the countdown of a focus session and records it
// through the focus repository.
package focus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/config"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/model"
)

// MsgCompleted is shown after a session ends, manually or at zero.
const MsgCompleted = "Session completed!"

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("focus: timer closed")

// Sessions records session lifecycles. *repository.Focus satisfies it.
type Sessions interface {
	Start(ctx context.Context, kind model.SessionType, minutes int, taskID string) (model.FocusSession, error)
	Complete(ctx context.Context, id, notes string) (model.FocusSession, error)
	Discard(ctx context.Context, id string) error
}

// State is the timer view-state.
type State struct {
	Kind             model.SessionType   `json:"kind"`
	CustomMinutes    int                 `json:"custom_minutes"`
	TotalSeconds     int                 `json:"total_seconds"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Running          bool                `json:"running"`
	Paused           bool                `json:"paused"`
	TaskID           string              `json:"task_id,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	Session          *model.FocusSession `json:"session,omitempty"`
	LastCompleted    *model.FocusSession `json:"last_completed,omitempty"`
	Message          string              `json:"message,omitempty"`
}

// Progress is the elapsed fraction of the current interval.
func (s State) Progress() float64 {
	if s.TotalSeconds <= 0 {
		return 0
	}
	return float64(s.TotalSeconds-s.RemainingSeconds) / float64(s.TotalSeconds)
}

// FormatRemaining renders the remaining time as mm:ss.
func (s State) FormatRemaining() string {
	return FormatSeconds(s.RemainingSeconds)
}

// FormatSeconds renders n seconds as mm:ss. Minutes are not wrapped at 60.
func FormatSeconds(n int) string {
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%02d:%02d", n/60, n%60)
}

func (s State) clone() State {
	c := s
	if s.Session != nil {
		fs := *s.Session
		c.Session = &fs
	}
	if s.LastCompleted != nil {
		fs := *s.LastCompleted
		c.LastCompleted = &fs
	}
	return c
}

// Options configures a Timer.
type Options struct {
	DefaultMinutes int
	Tick           time.Duration // one countdown second
	Logger         *zap.Logger
}

// OptionsFromConfig maps the focus config section to timer options.
func OptionsFromConfig(c config.FocusConfig) Options {
	return Options{DefaultMinutes: c.DefaultMinutes, Tick: c.Tick}
}

// Timer counts a session down. At most one ticking goroutine runs at a
// time; Pause, Stop and Complete retire it.
type Timer struct {
	sessions Sessions
	opts     Options
	logger   *zap.Logger

	mu     sync.Mutex
	st     State
	base   context.Context
	cancel context.CancelFunc
	gen    int
	subs   []chan State
	closed bool
	wg     sync.WaitGroup
}

// New returns an idle timer set to a Focus interval of DefaultMinutes.
func New(sessions Sessions, opts Options) *Timer {
	if opts.DefaultMinutes <= 0 {
		opts.DefaultMinutes = model.SessionFocus.DefaultMinutes()
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	t := &Timer{
		sessions: sessions,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger),
		base:     context.Background(),
	}
	t.st.Kind = model.SessionFocus
	t.st.CustomMinutes = opts.DefaultMinutes
	t.resetLocked()
	return t
}

// State returns a copy of the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st.clone()
}

// Subscribe returns a channel carrying the latest state after every
// change, starting with the current one.
func (t *Timer) Subscribe() <-chan State {
	ch := make(chan State, 1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	ch <- t.st.clone()
	return ch
}

func (t *Timer) publishLocked() {
	snap := t.st.clone()
	for _, ch := range t.subs {
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

func (t *Timer) minutesLocked() int {
	if t.st.Kind == model.SessionFocus {
		return t.st.CustomMinutes
	}
	return t.st.Kind.DefaultMinutes()
}

// resetLocked rewinds the countdown to the full interval of the selected kind.
func (t *Timer) resetLocked() {
	t.st.TotalSeconds = t.minutesLocked() * 60
	t.st.RemainingSeconds = t.st.TotalSeconds
}

func (t *Timer) idleLocked() bool {
	return !t.st.Running && t.st.Session == nil
}

// SelectKind switches the interval kind. Ignored while a session is active.
func (t *Timer) SelectKind(kind model.SessionType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.idleLocked() {
		return false
	}
	t.st.Kind = kind
	t.resetLocked()
	t.publishLocked()
	return true
}

// SetCustomMinutes sets the Focus interval length. Ignored while a session
// is active or for non-positive values.
func (t *Timer) SetCustomMinutes(minutes int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if minutes <= 0 || !t.idleLocked() {
		return false
	}
	t.st.CustomMinutes = minutes
	t.resetLocked()
	t.publishLocked()
	return true
}

// SelectTask links the next session to a task. An empty id unlinks.
func (t *Timer) SelectTask(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.TaskID = id
	t.publishLocked()
}

// SetNotes sets the notes stored when the session completes.
func (t *Timer) SetNotes(notes string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Notes = notes
	t.publishLocked()
}

// ClearMessage dismisses the current message.
func (t *Timer) ClearMessage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.st.Message = ""
	t.publishLocked()
}

// Start records a new session and begins counting down. It does nothing
// while the timer is running; a paused session is resumed instead.
func (t *Timer) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.st.Running {
		t.mu.Unlock()
		return nil
	}
	if t.st.Paused && t.st.Session != nil {
		t.mu.Unlock()
		t.Resume()
		return nil
	}
	kind, minutes, taskID := t.st.Kind, t.st.TotalSeconds/60, t.st.TaskID
	t.st.Running = true
	t.mu.Unlock()

	fs, err := t.sessions.Start(ctx, kind, minutes, taskID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.st.Running = false
		t.st.Message = "Failed to start session: " + err.Error()
		t.logger.Warn("start session", zap.Error(err))
		t.publishLocked()
		return err
	}
	if t.closed {
		t.st.Running = false
		return ErrClosed
	}
	t.st.Session = &fs
	t.st.Paused = false
	t.st.Message = ""
	t.base = context.WithoutCancel(ctx)
	t.tickLocked()
	t.publishLocked()
	t.logger.Debug("session started", zap.String("id", fs.ID), zap.String("kind", string(kind)))
	return nil
}

// Pause stops the countdown, keeping the session.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.st.Running || t.st.Session == nil {
		return
	}
	t.stopTickLocked()
	t.st.Running = false
	t.st.Paused = true
	t.publishLocked()
}

// Resume continues a paused countdown.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.st.Paused || t.closed {
		return
	}
	t.st.Paused = false
	t.st.Running = true
	t.tickLocked()
	t.publishLocked()
}

// Stop abandons the session. The unfinished session is deleted.
func (t *Timer) Stop(ctx context.Context) error {
	t.mu.Lock()
	t.stopTickLocked()
	fs := t.st.Session
	t.st.Session = nil
	t.st.Running, t.st.Paused = false, false
	t.resetLocked()
	t.publishLocked()
	t.mu.Unlock()

	if fs == nil {
		return nil
	}
	if err := t.sessions.Discard(ctx, fs.ID); err != nil {
		t.logger.Warn("discard session", zap.String("id", fs.ID), zap.Error(err))
		t.mu.Lock()
		t.st.Message = "Failed to discard session: " + err.Error()
		t.publishLocked()
		t.mu.Unlock()
		return err
	}
	return nil
}

// Complete ends the session now, storing the notes. It does nothing when
// no session is active. On failure the session stays, paused.
func (t *Timer) Complete(ctx context.Context) error {
	t.mu.Lock()
	fs := t.st.Session
	if fs == nil {
		t.mu.Unlock()
		return nil
	}
	t.stopTickLocked()
	t.st.Running = false
	notes := t.st.Notes
	t.mu.Unlock()

	done, err := t.sessions.Complete(ctx, fs.ID, notes)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st.Session == nil || t.st.Session.ID != fs.ID {
		return err
	}
	if err != nil {
		t.st.Paused = true
		t.st.Message = "Failed to complete session: " + err.Error()
		t.logger.Warn("complete session", zap.String("id", fs.ID), zap.Error(err))
		t.publishLocked()
		return err
	}
	t.st.Session = nil
	t.st.LastCompleted = &done
	t.st.Paused = false
	t.st.Notes = ""
	t.st.Message = MsgCompleted
	t.resetLocked()
	t.publishLocked()
	return nil
}

// Close retires the ticking goroutine and closes every Subscribe channel.
// A running session is left as stored.
func (t *Timer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.stopTickLocked()
	t.mu.Unlock()

	t.wg.Wait()

	t.mu.Lock()
	for _, ch := range t.subs {
		close(ch)
	}
	t.subs = nil
	t.mu.Unlock()
}

func (t *Timer) tickLocked() {
	t.stopTickLocked()
	ctx, cancel := context.WithCancel(t.base)
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(ctx, t.gen)
}

func (t *Timer) stopTickLocked() {
	t.gen++
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Timer) run(ctx context.Context, gen int) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.st.RemainingSeconds--
		finished := t.st.RemainingSeconds <= 0
		if finished {
			t.st.RemainingSeconds = 0
		}
		t.publishLocked()
		t.mu.Unlock()

		if finished {
			_ = t.Complete(context.WithoutCancel(ctx))
			return
		}
	}
}
