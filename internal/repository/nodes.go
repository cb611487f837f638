// Package repository implements the domain facades over the store: symmetric
// node connections, task completion bookkeeping and focus-session statistics.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/apperr"
	"github.com/rcliao/nodemind/internal/logging"
	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/store"
)

// NodeDraft is the editable part of a node.
type NodeDraft struct {
	Title      string   `json:"title" validate:"required,notblank,max=200"`
	Content    string   `json:"content"`
	Emoji      string   `json:"emoji" validate:"max=32"`
	Tags       []string `json:"tags" validate:"dive,max=64"`
	IsMarkdown bool     `json:"is_markdown"`
}

// Nodes is the node repository. It owns the symmetric-connection invariant.
type Nodes struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewNodes returns a node repository over s.
func NewNodes(s store.Store, logger *zap.Logger) *Nodes {
	return &Nodes{store: s, logger: logging.OrNop(logger), now: time.Now}
}

// Create stores a new unplaced node.
func (r *Nodes) Create(ctx context.Context, d NodeDraft) (model.Node, error) {
	const op = "create node"
	d.Title = strings.TrimSpace(d.Title)
	if err := checkDraft(op, d); err != nil {
		return model.Node{}, err
	}

	now := r.now()
	n := model.Node{
		ID:         r.store.NewID(),
		Title:      d.Title,
		Content:    d.Content,
		Emoji:      d.Emoji,
		Tags:       cleanTags(d.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
		IsMarkdown: d.IsMarkdown,
	}
	if n.Emoji == "" {
		n.Emoji = model.DefaultEmoji
	}
	if err := r.store.PutNode(ctx, n); err != nil {
		return model.Node{}, apperr.Storage(op, err)
	}
	r.logger.Debug("node created", zap.String("id", n.ID))
	return n, nil
}

// Update rewrites the editable fields of an existing node. Neighbors and
// position are kept.
func (r *Nodes) Update(ctx context.Context, id string, d NodeDraft) (model.Node, error) {
	const op = "update node"
	d.Title = strings.TrimSpace(d.Title)
	if err := checkDraft(op, d); err != nil {
		return model.Node{}, err
	}

	n, err := r.Get(ctx, id)
	if err != nil {
		return model.Node{}, err
	}
	n.Title = d.Title
	n.Content = d.Content
	if d.Emoji != "" {
		n.Emoji = d.Emoji
	}
	n.Tags = cleanTags(d.Tags)
	n.IsMarkdown = d.IsMarkdown
	n.UpdatedAt = r.now()

	if err := r.store.UpdateNode(ctx, n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Node{}, apperr.NotFound(op, "node "+id+" not found")
		}
		return model.Node{}, apperr.Storage(op, err)
	}
	return n, nil
}

// Delete removes a node. Other nodes keep any reference to it; see PruneDangling.
func (r *Nodes) Delete(ctx context.Context, id string) error {
	const op = "delete node"
	if err := r.store.DeleteNode(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(op, "node "+id+" not found")
		}
		return apperr.Storage(op, err)
	}
	r.logger.Debug("node deleted", zap.String("id", id))
	return nil
}

// UpdatePosition persists a position. A missing node is a silent no-op.
func (r *Nodes) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	err := r.store.UpdateNodePosition(ctx, id, x, y)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return apperr.Storage("update node position", err)
}

func (r *Nodes) Get(ctx context.Context, id string) (model.Node, error) {
	n, err := r.store.GetNode(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return n, apperr.NotFound("get node", "node "+id+" not found")
	}
	return n, apperr.Storage("get node", err)
}

func (r *Nodes) List(ctx context.Context, q store.NodeQuery) ([]model.Node, error) {
	nodes, err := r.store.ListNodes(ctx, q)
	return nodes, apperr.Storage("list nodes", err)
}

func (r *Nodes) ByTag(ctx context.Context, tag string) ([]model.Node, error) {
	return r.List(ctx, store.NodeQuery{Tag: tag})
}

func (r *Nodes) Search(ctx context.Context, p store.SearchParams) ([]store.SearchResult, error) {
	res, err := r.store.SearchNodes(ctx, p)
	return res, apperr.Storage("search nodes", err)
}

// Observe is the live node list in creation order.
func (r *Nodes) Observe(ctx context.Context) <-chan store.Snapshot[model.Node] {
	return store.ObserveNodes(ctx, r.store, store.NodeQuery{})
}

// Connect adds an undirected edge between a and b. It is idempotent, and a
// no-op when a == b or either node is missing.
func (r *Nodes) Connect(ctx context.Context, a, b string) error {
	return r.relink(ctx, "connect nodes", a, b, func(na, nb model.Node) ([]string, []string, bool) {
		if na.IsConnectedTo(b) && nb.IsConnectedTo(a) {
			return nil, nil, false
		}
		return na.WithNeighbor(b), nb.WithNeighbor(a), true
	})
}

// Disconnect removes the edge between a and b from both sides.
func (r *Nodes) Disconnect(ctx context.Context, a, b string) error {
	return r.relink(ctx, "disconnect nodes", a, b, func(na, nb model.Node) ([]string, []string, bool) {
		if !na.IsConnectedTo(b) && !nb.IsConnectedTo(a) {
			return nil, nil, false
		}
		return na.WithoutNeighbor(b), nb.WithoutNeighbor(a), true
	})
}

func (r *Nodes) relink(ctx context.Context, op, a, b string, change func(na, nb model.Node) ([]string, []string, bool)) error {
	if a == b {
		return nil
	}
	na, err := r.store.GetNode(ctx, a)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Storage(op, err)
	}
	nb, err := r.store.GetNode(ctx, b)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Storage(op, err)
	}

	toA, toB, ok := change(na, nb)
	if !ok {
		return nil
	}
	err = r.store.UpdateConnections(ctx, []store.ConnectionUpdate{
		{ID: a, ConnectedNodeIDs: toA},
		{ID: b, ConnectedNodeIDs: toB},
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Storage(op, err)
	}
	r.logger.Debug(op, zap.String("a", a), zap.String("b", b))
	return nil
}

// AllTags returns the sorted union of every node's tags. Rows whose tag
// column cannot be decoded are skipped.
func (r *Nodes) AllTags(ctx context.Context) ([]string, error) {
	raw, err := r.store.RawNodeTags(ctx)
	if err != nil {
		return nil, apperr.Storage("all tags", err)
	}

	seen := map[string]bool{}
	for _, col := range raw {
		var tags []string
		if err := json.Unmarshal([]byte(col), &tags); err != nil {
			r.logger.Debug("skipping malformed tags", zap.String("raw", col), zap.Error(err))
			continue
		}
		for _, t := range tags {
			seen[t] = true
		}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// PruneDangling removes neighbor ids that reference missing nodes or the
// node itself. It returns the number of ids removed.
func (r *Nodes) PruneDangling(ctx context.Context) (int, error) {
	const op = "prune connections"
	nodes, err := r.store.ListNodes(ctx, store.NodeQuery{})
	if err != nil {
		return 0, apperr.Storage(op, err)
	}

	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}

	var updates []store.ConnectionUpdate
	removed := 0
	for _, n := range nodes {
		var keep []string
		for _, id := range n.ConnectedNodeIDs {
			if exists[id] && id != n.ID {
				keep = append(keep, id)
			}
		}
		if d := len(n.ConnectedNodeIDs) - len(keep); d > 0 {
			removed += d
			updates = append(updates, store.ConnectionUpdate{ID: n.ID, ConnectedNodeIDs: keep})
		}
	}
	if err := r.store.UpdateConnections(ctx, updates); err != nil {
		return 0, apperr.Storage(op, err)
	}
	if removed > 0 {
		r.logger.Info("pruned dangling connections", zap.Int("removed", removed))
	}
	return removed, nil
}
