package mindmap

import "math"

// SelectNode selects id, clearing any other selection. Selecting the
// selected node clears the selection.
func (e *Engine) SelectNode(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selectLocked(id) {
		e.publishLocked()
	}
}

func (e *Engine) selectLocked(id string) bool {
	if _, ok := e.index[id]; !ok {
		return false
	}
	if e.st.SelectedID == id {
		e.st.SelectedID = ""
	} else {
		e.st.SelectedID = id
	}
	e.markSelectionLocked()
	return true
}

func (e *Engine) markSelectionLocked() {
	for i := range e.st.NodePositions {
		p := &e.st.NodePositions[i]
		p.IsSelected = p.Node.ID == e.st.SelectedID
	}
}

// MoveNode sets the logical position of id. The change is in memory only
// until SaveMindMap.
func (e *Engine) MoveNode(id string, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.moveLocked(id, x, y) {
		e.publishLocked()
	}
}

// DragNode moves id by a screen-pixel delta. The delta is divided by the
// current scale so drag speed does not depend on zoom.
func (e *Engine) DragNode(id string, dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return
	}
	p := e.st.NodePositions[i]
	if e.moveLocked(id, p.X+dx/e.st.Scale, p.Y+dy/e.st.Scale) {
		e.publishLocked()
	}
}

// moveLocked touches only the node and its own connections.
func (e *Engine) moveLocked(id string, x, y float64) bool {
	i, ok := e.index[id]
	if !ok {
		return false
	}
	p := &e.st.NodePositions[i]
	p.X, p.Y = x, y
	e.dirty[id] = point{x, y}

	for _, k := range e.touching[id] {
		c := &e.st.Connections[k]
		if c.FromID == id {
			c.FromX, c.FromY = x, y
		} else {
			c.ToX, c.ToY = x, y
		}
	}
	return true
}

// UpdateScale sets the zoom, clamped to the configured bounds.
func (e *Engine) UpdateScale(s float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Scale = e.clampScale(s)
	e.publishLocked()
}

// ZoomBy multiplies the zoom by factor, keeping the screen point
// (focusX, focusY) over the same logical point.
func (e *Engine) ZoomBy(factor, focusX, focusY float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.st.Scale
	next := e.clampScale(old * factor)
	ratio := next / old
	e.st.OffsetX = focusX - (focusX-e.st.OffsetX)*ratio
	e.st.OffsetY = focusY - (focusY-e.st.OffsetY)*ratio
	e.st.Scale = next
	e.publishLocked()
}

func (e *Engine) clampScale(s float64) float64 {
	if math.IsNaN(s) {
		return e.st.Scale
	}
	return math.Max(e.opts.MinScale, math.Min(e.opts.MaxScale, s))
}

// UpdateOffset pans by (dx, dy) screen pixels.
func (e *Engine) UpdateOffset(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.OffsetX += dx
	e.st.OffsetY += dy
	e.publishLocked()
}

// ResetView restores scale 1 and no pan, and clears the selection.
func (e *Engine) ResetView() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Scale, e.st.OffsetX, e.st.OffsetY = 1, 0, 0
	e.st.SelectedID = ""
	e.markSelectionLocked()
	e.publishLocked()
}

// CenterMap restores scale 1 and no pan.
func (e *Engine) CenterMap() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Scale, e.st.OffsetX, e.st.OffsetY = 1, 0, 0
	e.publishLocked()
}
