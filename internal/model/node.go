// Package model defines the core record types shared by the store, repositories and view-state.
package model

import (
	"slices"
	"time"
)

// DefaultEmoji is the marker given to nodes created without one.
const DefaultEmoji = "💡"

// Node is a single note/idea in the mind-map graph.
type Node struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Content          string    `json:"content" yaml:"content"`
	Emoji            string    `json:"emoji" yaml:"emoji"`
	Tags             []string  `json:"tags" yaml:"tags"`
	ConnectedNodeIDs []string  `json:"connected_node_ids" yaml:"connected_node_ids"`
	PositionX        float64   `json:"position_x" yaml:"position_x"`
	PositionY        float64   `json:"position_y" yaml:"position_y"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
	IsMarkdown       bool      `json:"is_markdown" yaml:"is_markdown"`
}

// HasPosition reports whether the node was placed by the user.
// (0,0) means unplaced.
func (n Node) HasPosition() bool {
	return n.PositionX != 0 || n.PositionY != 0
}

// IsConnectedTo reports whether id is in the node's neighbor set.
func (n Node) IsConnectedTo(id string) bool {
	return slices.Contains(n.ConnectedNodeIDs, id)
}

// Clone returns a copy that shares no slices with n.
func (n Node) Clone() Node {
	c := n
	c.Tags = slices.Clone(n.Tags)
	c.ConnectedNodeIDs = slices.Clone(n.ConnectedNodeIDs)
	return c
}

// WithNeighbor returns the neighbor set with id added, de-duplicated.
// Self references are dropped.
func (n Node) WithNeighbor(id string) []string {
	out := make([]string, 0, len(n.ConnectedNodeIDs)+1)
	for _, c := range n.ConnectedNodeIDs {
		if c == n.ID || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	if id != n.ID && !slices.Contains(out, id) {
		out = append(out, id)
	}
	return out
}

// WithoutNeighbor returns the neighbor set with every occurrence of id removed.
func (n Node) WithoutNeighbor(id string) []string {
	out := make([]string, 0, len(n.ConnectedNodeIDs))
	for _, c := range n.ConnectedNodeIDs {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// Chunk is an indexed slice of a node's content used for search.
type Chunk struct {
	ID        string `json:"id"`
	NodeID    string `json:"node_id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}
