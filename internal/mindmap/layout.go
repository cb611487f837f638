package mindmap

import (
	"math"

	"github.com/rcliao/nodemind/internal/model"
)

// CircularPosition places the i-th of n nodes on a circle of radius
// 200 + 10n around (originX, originY).
func CircularPosition(i, n int, originX, originY float64) (float64, float64) {
	if n <= 0 {
		return originX, originY
	}
	angle := 2 * math.Pi * float64(i) / float64(n)
	radius := 200 + 10*float64(n)
	return math.Cos(angle)*radius + originX, math.Sin(angle)*radius + originY
}

// point is a logical position.
type point struct{ x, y float64 }

// Layout positions nodes in order. Unsaved positions in dirty win, then
// stored non-zero positions, then the circular layout.
func Layout(nodes []model.Node, originX, originY float64, dirty map[string]point) []NodePosition {
	out := make([]NodePosition, len(nodes))
	for i, n := range nodes {
		var x, y float64
		switch p, ok := dirty[n.ID]; {
		case ok:
			x, y = p.x, p.y
		case n.HasPosition():
			x, y = n.PositionX, n.PositionY
		default:
			x, y = CircularPosition(i, len(nodes), originX, originY)
		}
		out[i] = NodePosition{Node: n, X: x, Y: y}
	}
	return out
}

// buildConnections resolves neighbor ids against the loaded nodes. Ids of
// nodes that are not loaded are dropped. It also returns, per node id, the
// indices of the connections touching it.
func buildConnections(positions []NodePosition, index map[string]int) ([]Connection, map[string][]int) {
	var conns []Connection
	touching := make(map[string][]int, len(positions))
	seen := make(map[[2]string]bool)

	for i, from := range positions {
		for _, toID := range from.Node.ConnectedNodeIDs {
			j, ok := index[toID]
			if !ok || j == i {
				continue
			}
			key := [2]string{from.Node.ID, toID}
			if j < i {
				key = [2]string{toID, from.Node.ID}
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			a, b := positions[i], positions[j]
			if j < i {
				a, b = b, a
			}
			conns = append(conns, Connection{
				FromID: a.Node.ID, ToID: b.Node.ID,
				FromX: a.X, FromY: a.Y,
				ToX: b.X, ToY: b.Y,
			})
			k := len(conns) - 1
			touching[a.Node.ID] = append(touching[a.Node.ID], k)
			touching[b.Node.ID] = append(touching[b.Node.ID], k)
		}
	}
	return conns, touching
}
