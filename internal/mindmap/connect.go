package mindmap

// ToggleConnectionMode flips connection mode and returns the new mode.
// Leaving the mode drops any pending start.
func (e *Engine) ToggleConnectionMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.ConnectionMode = !e.st.ConnectionMode
	if !e.st.ConnectionMode {
		e.st.PendingStartID = ""
	}
	e.publishLocked()
	return e.st.ConnectionMode
}

// TapNode routes a tap on node id. Outside connection mode it toggles
// selection. In connection mode the first tap records the start node and a
// tap on a different node links the two and leaves the mode; tapping the
// start node again changes nothing. The returned channel closes once any
// resulting link has been applied.
func (e *Engine) TapNode(id string) <-chan struct{} {
	e.mu.Lock()
	if _, ok := e.index[id]; !ok {
		e.mu.Unlock()
		return doneChan()
	}

	if !e.st.ConnectionMode {
		e.selectLocked(id)
		e.publishLocked()
		e.mu.Unlock()
		return doneChan()
	}

	start := e.st.PendingStartID
	switch start {
	case "":
		e.st.PendingStartID = id
		e.publishLocked()
		e.mu.Unlock()
		return doneChan()
	case id:
		e.mu.Unlock()
		return doneChan()
	}

	e.st.ConnectionMode = false
	e.st.PendingStartID = ""
	e.publishLocked()
	e.mu.Unlock()
	return e.ConnectNodes(start, id)
}

// TapAt routes a tap at a screen point to the node under it. Taps on empty
// canvas are ignored.
func (e *Engine) TapAt(sx, sy float64) <-chan struct{} {
	e.mu.Lock()
	id, ok := e.st.HitTest(sx, sy)
	e.mu.Unlock()
	if !ok {
		return doneChan()
	}
	return e.TapNode(id)
}
