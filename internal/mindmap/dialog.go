package mindmap

import (
	"context"
	"strings"

	"github.com/rcliao/nodemind/internal/repository"
)

// OpenCreateDialog opens an empty draft for a new node.
func (e *Engine) OpenCreateDialog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Dialog = Dialog{Open: true}
	e.publishLocked()
}

// OpenEditDialog opens a draft filled from node id. It reports false if the
// node is not loaded.
func (e *Engine) OpenEditDialog(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return false
	}
	n := e.st.NodePositions[i].Node
	e.st.Dialog = Dialog{
		Open:      true,
		EditingID: n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      strings.Join(n.Tags, ", "),
	}
	e.publishLocked()
	return true
}

func (e *Engine) SetDraftTitle(s string)   { e.editDraft(func(d *Dialog) { d.Title = s }) }
func (e *Engine) SetDraftContent(s string) { e.editDraft(func(d *Dialog) { d.Content = s }) }
func (e *Engine) SetDraftTags(s string)    { e.editDraft(func(d *Dialog) { d.Tags = s }) }

func (e *Engine) editDraft(fn func(*Dialog)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.st.Dialog.Open {
		return
	}
	fn(&e.st.Dialog)
	e.publishLocked()
}

// CloseDialog discards the draft.
func (e *Engine) CloseDialog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Dialog = Dialog{}
	e.publishLocked()
}

// CanSave reports whether the open draft has a non-blank title.
func (e *Engine) CanSave() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Dialog.Open && strings.TrimSpace(e.st.Dialog.Title) != ""
}

// SaveNode creates or updates the node from the open draft and closes the
// dialog. It does nothing when CanSave is false. If storage fails the
// draft is reopened.
func (e *Engine) SaveNode() <-chan struct{} {
	e.mu.Lock()
	d := e.st.Dialog
	if !d.Open || strings.TrimSpace(d.Title) == "" {
		e.mu.Unlock()
		return doneChan()
	}
	draft := repository.NodeDraft{
		Title:      d.Title,
		Content:    d.Content,
		Tags:       splitTags(d.Tags),
		IsMarkdown: true,
	}
	if i, ok := e.index[d.EditingID]; ok {
		n := e.st.NodePositions[i].Node
		draft.Emoji = n.Emoji
		draft.IsMarkdown = n.IsMarkdown
	}
	e.st.Dialog = Dialog{}
	e.publishLocked()
	e.mu.Unlock()

	return e.enqueue("save node", func(ctx context.Context) {
		var err error
		if d.EditingID == "" {
			_, err = e.nodes.Create(ctx, draft)
		} else {
			_, err = e.nodes.Update(ctx, d.EditingID, draft)
		}
		if err != nil {
			e.mu.Lock()
			if !e.st.Dialog.Open {
				e.st.Dialog = d
			}
			e.mu.Unlock()
			e.report("Failed to save node", err)
			return
		}
		e.reload(ctx)
	})
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
