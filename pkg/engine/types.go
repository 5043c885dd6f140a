package engine

import (
	"time"

	"github.com/milestoner/milestoner/pkg/style"
)

// OpKind identifies a draw operation.
type OpKind string

const (
	OpConnector OpKind = "connector"
	OpMarker    OpKind = "marker"
	OpLabel     OpKind = "label"
)

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ConnectorOp is a vertical line joining a marker to its label.
type ConnectorOp struct {
	Milestone int     `json:"milestone"`
	X         float64 `json:"x"`
	FromY     float64 `json:"from_y"`
	ToY       float64 `json:"to_y"`
	Color     string  `json:"color,omitempty"`
	Width     float64 `json:"width,omitempty"`
}

// ShapeOp is a marker or label shape with its resolved geometry.
type ShapeOp struct {
	Kind      OpKind `json:"kind"`
	Milestone int    `json:"milestone"`

	// Category is the style category the shape was drawn with.
	Category string         `json:"category"`
	Style    style.Template `json:"style"`

	Center Point   `json:"center"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Text string `json:"text"`

	// Track is the signed track the shape sits on.
	Track int `json:"track"`

	// Zone and Shift are only set for labels.
	Zone  Zone    `json:"zone,omitempty"`
	Shift float64 `json:"shift,omitempty"`
}

// DrawOp is one entry of the flattened plan. Exactly one of Connector and
// Shape is set.
type DrawOp struct {
	Kind      OpKind       `json:"kind"`
	Connector *ConnectorOp `json:"connector,omitempty"`
	Shape     *ShapeOp     `json:"shape,omitempty"`
}

// Summary counts what a layout pass produced.
type Summary struct {
	Milestones      int `json:"milestones"`
	Skipped         int `json:"skipped,omitempty"`
	MarkerOverrides int `json:"marker_overrides"`
	LabelOverrides  int `json:"label_overrides"`
	ClampedDates    int `json:"clamped_dates,omitempty"`

	// Zones counts labels per zone name, overrides included.
	Zones map[string]int `json:"zones"`
}

// DrawPlan is the output of one layout pass. Renderers draw all connectors,
// then all markers, then all labels.
type DrawPlan struct {
	ID         string        `json:"id"`
	Timeline   string        `json:"timeline"`
	CreatedAt  time.Time     `json:"created_at"`
	Connectors []ConnectorOp `json:"connectors"`
	Markers    []ShapeOp     `json:"markers"`
	Labels     []ShapeOp     `json:"labels"`
	Summary    Summary       `json:"summary"`
}

// Ops flattens the plan in draw order.
func (p *DrawPlan) Ops() []DrawOp {
	ops := make([]DrawOp, 0, len(p.Connectors)+len(p.Markers)+len(p.Labels))
	for i := range p.Connectors {
		ops = append(ops, DrawOp{Kind: OpConnector, Connector: &p.Connectors[i]})
	}
	for i := range p.Markers {
		ops = append(ops, DrawOp{Kind: OpMarker, Shape: &p.Markers[i]})
	}
	for i := range p.Labels {
		ops = append(ops, DrawOp{Kind: OpLabel, Shape: &p.Labels[i]})
	}
	return ops
}

// Bounds returns the smallest rectangle containing every op in the plan.
// ok is false for an empty plan.
func (p *DrawPlan) Bounds() (lo, hi Point, ok bool) {
	grow := func(x0, y0, x1, y1 float64) {
		if !ok {
			lo, hi, ok = Point{x0, y0}, Point{x1, y1}, true
			return
		}
		lo = Point{min(lo.X, x0), min(lo.Y, y0)}
		hi = Point{max(hi.X, x1), max(hi.Y, y1)}
	}
	for _, c := range p.Connectors {
		grow(c.X, min(c.FromY, c.ToY), c.X, max(c.FromY, c.ToY))
	}
	for _, shapes := range [][]ShapeOp{p.Markers, p.Labels} {
		for _, s := range shapes {
			grow(s.Left, s.Top, s.Left+s.Width, s.Top+s.Height)
		}
	}
	return lo, hi, ok
}
