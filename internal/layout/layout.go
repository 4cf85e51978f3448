// Package layout computes the deterministic 2D layout of a conversation's
// node sequence: node box positions, connector routing between consecutive
// nodes, and the overall viewport size.
//
// Compute is a pure function of the node sequence. Position depends only on a
// node's branch level and sequence index, so recomputing after every append
// is cheap (linear) and always yields the same output for the same sequence.
package layout

import "github.com/driftmap/driftmap/internal/graph"

// Layout constants. Branch columns are offset horizontally from the trunk;
// consecutive nodes advance vertically by a fixed gap.
const (
	BaseX            = 80.0
	BaseY            = 60.0
	HorizontalOffset = 180.0
	VerticalGap      = 90.0
	NodeWidth        = 240.0
	NodeHeight       = 48.0

	ViewWidth     = 800.0
	MinViewHeight = 500.0
	viewBottomPad = 120.0
)

// Point is a 2D coordinate in layout space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a straight connector piece between two points.
type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Connector links a consecutive node pair. Same-column pairs use a single
// straight segment between box centers; column changes are routed as a right
// angle: vertical drop at the previous node's column, then horizontal shift
// into the new column.
type Connector struct {
	FromIndex int       `json:"fromIndex"`
	ToIndex   int       `json:"toIndex"`
	Segments  []Segment `json:"segments"`
}

// Result is the full layout of a node sequence.
type Result struct {
	// Positions holds the top-left corner of each node's box,
	// indexed by sequence index.
	Positions []Point `json:"positions"`

	// Connectors holds one entry per consecutive node pair, in order.
	Connectors []Connector `json:"connectors"`

	// Width and Height bound the drawable area. Height grows monotonically
	// with node count; Width is fixed.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Compute lays out nodes and returns their positions, connectors, and the
// bounding viewport size.
func Compute(nodes []graph.Node) Result {
	res := Result{
		Positions:  make([]Point, len(nodes)),
		Connectors: make([]Connector, 0, max(0, len(nodes)-1)),
		Width:      ViewWidth,
		Height:     viewHeight(len(nodes)),
	}

	for i, n := range nodes {
		res.Positions[i] = Point{
			X: BaseX + float64(n.BranchLevel)*HorizontalOffset,
			Y: BaseY + float64(i)*VerticalGap,
		}
	}

	for i := 1; i < len(nodes); i++ {
		prev := center(res.Positions[i-1])
		curr := center(res.Positions[i])

		conn := Connector{FromIndex: i - 1, ToIndex: i}
		if curr.X == prev.X {
			conn.Segments = []Segment{{From: prev, To: curr}}
		} else {
			// Drop down at the previous column, then shift sideways.
			elbow := Point{X: prev.X, Y: curr.Y}
			conn.Segments = []Segment{
				{From: prev, To: elbow},
				{From: elbow, To: curr},
			}
		}
		res.Connectors = append(res.Connectors, conn)
	}

	return res
}

// center returns the center of a node box whose top-left corner is at p.
func center(p Point) Point {
	return Point{X: p.X + NodeWidth/2, Y: p.Y + NodeHeight/2}
}

// viewHeight returns the bounding viewport height for n nodes.
func viewHeight(n int) float64 {
	h := BaseY + float64(n)*VerticalGap + viewBottomPad
	if h < MinViewHeight {
		return MinViewHeight
	}
	return h
}
