package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/style"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// DefaultScale converts centimetres to SVG pixels at 96 dpi.
const DefaultScale = 37.795

const (
	marginUnits     = 1.0
	pointsToPixels  = 96.0 / 72.0
	lineHeightRatio = 1.2
	centreLineStyle = "stroke:#7F7F7F;stroke-width:2"
)

// SVGRenderer draws plans as SVG documents.
type SVGRenderer struct {
	scale float64
}

// NewSVGRenderer creates a renderer. scale <= 0 uses DefaultScale.
func NewSVGRenderer(scale float64) *SVGRenderer {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &SVGRenderer{scale: scale}
}

// Format implements Renderer.
func (r *SVGRenderer) Format() string {
	return "svg"
}

// viewport maps canvas units to integer pixels with a margin around the
// drawing.
type viewport struct {
	scale   float64
	offsetX float64
	offsetY float64
	width   int
	height  int
}

func (r *SVGRenderer) viewport(plan *engine.DrawPlan, cfg timeline.Config) viewport {
	lo := engine.Point{X: cfg.LeftX, Y: cfg.CenterY}
	hi := engine.Point{X: cfg.RightX, Y: cfg.CenterY}
	if plo, phi, ok := plan.Bounds(); ok {
		lo = engine.Point{X: min(lo.X, plo.X), Y: min(lo.Y, plo.Y)}
		hi = engine.Point{X: max(hi.X, phi.X), Y: max(hi.Y, phi.Y)}
	}

	v := viewport{
		scale:   r.scale,
		offsetX: marginUnits - lo.X,
		offsetY: marginUnits - lo.Y,
	}
	v.width = v.px(hi.X - lo.X + 2*marginUnits)
	v.height = v.px(hi.Y - lo.Y + 2*marginUnits)
	return v
}

func (v viewport) px(u float64) int {
	return int(math.Round(u * v.scale))
}

func (v viewport) x(u float64) int { return v.px(u + v.offsetX) }
func (v viewport) y(u float64) int { return v.px(u + v.offsetY) }

// Render implements Renderer.
func (r *SVGRenderer) Render(w io.Writer, plan *engine.DrawPlan, cfg timeline.Config) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	bw := bufio.NewWriter(w)
	v := r.viewport(plan, cfg)
	canvas := svg.New(bw)
	canvas.Start(v.width, v.height)
	if plan.Timeline != "" {
		canvas.Title(plan.Timeline)
	}

	canvas.Line(v.x(cfg.LeftX), v.y(cfg.CenterY), v.x(cfg.RightX), v.y(cfg.CenterY), centreLineStyle)

	for _, op := range plan.Ops() {
		switch op.Kind {
		case engine.OpConnector:
			r.drawConnector(canvas, v, op.Connector)
		case engine.OpMarker, engine.OpLabel:
			r.drawShape(canvas, v, op.Shape)
		}
	}

	canvas.End()
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write svg: %w", err)
	}
	return nil
}

func (r *SVGRenderer) drawConnector(canvas *svg.SVG, v viewport, c *engine.ConnectorOp) {
	color := c.Color
	if color == "" {
		color = "#000000"
	}
	width := max(1, v.px(c.Width))
	canvas.Line(v.x(c.X), v.y(c.FromY), v.x(c.X), v.y(c.ToY),
		fmt.Sprintf("stroke:%s;stroke-width:%d", color, width))
}

func (r *SVGRenderer) drawShape(canvas *svg.SVG, v viewport, s *engine.ShapeOp) {
	left, top := v.x(s.Left), v.y(s.Top)
	w, h := v.px(s.Width), v.px(s.Height)
	fill := shapeStyle(s.Style, v)

	switch s.Style.Shape {
	case style.ShapeEllipse:
		canvas.Ellipse(v.x(s.Center.X), v.y(s.Center.Y), w/2, h/2, fill)
	case style.ShapeRoundRect:
		radius := min(w, h) / 5
		canvas.Roundrect(left, top, w, h, radius, radius, fill)
	default:
		canvas.Rect(left, top, w, h, fill)
	}

	if s.Text == "" {
		return
	}

	lines := strings.Split(s.Text, "\n")
	fontPx := fontPixels(s.Style)
	lineHeight := int(math.Round(float64(fontPx) * lineHeightRatio))
	cx := v.x(s.Center.X)
	// Centre the block of lines vertically in the shape; the baseline sits
	// roughly a third of the font size below each line's centre.
	firstY := v.y(s.Center.Y) - (len(lines)-1)*lineHeight/2 + fontPx/3
	textStyle := fontStyle(s.Style, fontPx)
	for i, line := range lines {
		canvas.Text(cx, firstY+i*lineHeight, line, textStyle)
	}
}

func shapeStyle(t style.Template, v viewport) string {
	fill := t.FillColor
	if fill == "" {
		fill = "none"
	}
	stroke := t.LineColor
	if stroke == "" {
		stroke = "none"
	}
	return fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d", fill, stroke, max(1, v.px(t.LineWidth)))
}

func fontPixels(t style.Template) int {
	size := t.FontSize
	if size <= 0 {
		size = 8
	}
	return max(1, int(math.Round(size*pointsToPixels)))
}

func fontStyle(t style.Template, px int) string {
	parts := []string{"text-anchor:middle", fmt.Sprintf("font-size:%dpx", px)}
	if t.FontName != "" {
		parts = append(parts, "font-family:"+t.FontName)
	}
	if t.FontBold {
		parts = append(parts, "font-weight:bold")
	}
	if t.FontItalic {
		parts = append(parts, "font-style:italic")
	}
	color := t.FontColor
	if color == "" {
		color = "#000000"
	}
	parts = append(parts, "fill:"+color)
	return strings.Join(parts, ";")
}
