package mindmap

import (
	"github.com/rcliao/nodemind/internal/model"
)

// NodePosition is a loaded node and its logical (unscaled) position.
type NodePosition struct {
	Node       model.Node `json:"node"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	IsSelected bool       `json:"is_selected"`
}

// Connection is one rendered edge. Each undirected edge appears once,
// oriented from the node loaded first.
type Connection struct {
	FromID string  `json:"from_id"`
	ToID   string  `json:"to_id"`
	FromX  float64 `json:"from_x"`
	FromY  float64 `json:"from_y"`
	ToX    float64 `json:"to_x"`
	ToY    float64 `json:"to_y"`
}

// Dialog is the create/edit draft. EditingID is empty when creating.
type Dialog struct {
	Open      bool   `json:"open"`
	EditingID string `json:"editing_id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Tags      string `json:"tags"` // comma separated
}

// State is everything a renderer needs to draw the map.
type State struct {
	NodePositions  []NodePosition `json:"node_positions"`
	Connections    []Connection   `json:"connections"`
	SelectedID     string         `json:"selected_id,omitempty"`
	Scale          float64        `json:"scale"`
	OffsetX        float64        `json:"offset_x"`
	OffsetY        float64        `json:"offset_y"`
	ConnectionMode bool           `json:"connection_mode"`
	PendingStartID string         `json:"pending_start_id,omitempty"`
	Dialog         Dialog         `json:"dialog"`
	Loading        bool           `json:"loading"`
	Message        string         `json:"message,omitempty"`
}

// Position returns the position of node id.
func (s State) Position(id string) (NodePosition, bool) {
	for _, p := range s.NodePositions {
		if p.Node.ID == id {
			return p, true
		}
	}
	return NodePosition{}, false
}

// HasConnection reports whether an edge between a and b is rendered.
func (s State) HasConnection(a, b string) bool {
	for _, c := range s.Connections {
		if (c.FromID == a && c.ToID == b) || (c.FromID == b && c.ToID == a) {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	c := s
	c.NodePositions = make([]NodePosition, len(s.NodePositions))
	for i, p := range s.NodePositions {
		p.Node = p.Node.Clone()
		c.NodePositions[i] = p
	}
	c.Connections = append([]Connection(nil), s.Connections...)
	return c
}
