package mindmap

import "math"

const (
	// NodeSize is the side of the square a node occupies, in logical units.
	NodeSize = 140.0
	// nodeCenter offsets a node's top-left corner to its centre.
	nodeCenter   = NodeSize / 2
	maxCurveLift = 100.0
)

// Point is a 2D point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToScreen maps a logical position to screen pixels.
func (s State) ToScreen(x, y float64) Point {
	return Point{X: x*s.Scale + s.OffsetX, Y: y*s.Scale + s.OffsetY}
}

// ToLogical maps screen pixels back to a logical position.
func (s State) ToLogical(sx, sy float64) Point {
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	return Point{X: (sx - s.OffsetX) / scale, Y: (sy - s.OffsetY) / scale}
}

// Curve is a quadratic Bézier in logical units.
type Curve struct {
	Start   Point `json:"start"`
	Control Point `json:"control"`
	End     Point `json:"end"`
}

// EdgeCurve returns the curve drawn for c between node centres. The control
// point is the chord midpoint raised by a quarter of the chord length,
// capped at maxCurveLift.
func EdgeCurve(c Connection) Curve {
	start := Point{X: c.FromX + nodeCenter, Y: c.FromY + nodeCenter}
	end := Point{X: c.ToX + nodeCenter, Y: c.ToY + nodeCenter}
	dist := math.Hypot(end.X-start.X, end.Y-start.Y)
	lift := math.Min(dist/4, maxCurveLift)
	return Curve{
		Start:   start,
		Control: Point{X: (start.X + end.X) / 2, Y: (start.Y+end.Y)/2 - lift},
		End:     end,
	}
}

// At evaluates the curve at t in [0, 1].
func (c Curve) At(t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*c.Start.X + 2*u*t*c.Control.X + t*t*c.End.X,
		Y: u*u*c.Start.Y + 2*u*t*c.Control.Y + t*t*c.End.Y,
	}
}

// HitTest returns the topmost node under a screen point. Later nodes are
// drawn over earlier ones.
func (s State) HitTest(sx, sy float64) (string, bool) {
	p := s.ToLogical(sx, sy)
	for i := len(s.NodePositions) - 1; i >= 0; i-- {
		n := s.NodePositions[i]
		if p.X >= n.X && p.X <= n.X+NodeSize && p.Y >= n.Y && p.Y <= n.Y+NodeSize {
			return n.Node.ID, true
		}
	}
	return "", false
}

// Bounds returns the logical bounding box of every node, or false when
// nothing is loaded.
func (s State) Bounds() (lo, hi Point, ok bool) {
	if len(s.NodePositions) == 0 {
		return Point{}, Point{}, false
	}
	lo = Point{X: math.Inf(1), Y: math.Inf(1)}
	hi = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, n := range s.NodePositions {
		lo.X = math.Min(lo.X, n.X)
		lo.Y = math.Min(lo.Y, n.Y)
		hi.X = math.Max(hi.X, n.X+NodeSize)
		hi.Y = math.Max(hi.Y, n.Y+NodeSize)
	}
	return lo, hi, true
}
