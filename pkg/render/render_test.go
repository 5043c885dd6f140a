package render

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/style"
	"github.com/milestoner/milestoner/pkg/timeline"
)

func samplePlan(t *testing.T) (*engine.DrawPlan, timeline.Config) {
	t.Helper()
	cfg := timeline.Config{
		StartDate:             time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		LeftX:                 0.75,
		RightX:                34.81,
		CenterY:               10,
		NumTextTracks:         5,
		IncludeNumberInMarker: true,
		IncludeNumberInLabel:  true,
	}.WithDefaultTracks()

	eng, err := engine.NewLayoutEngine(cfg, style.DefaultCatalog(), engine.WithName("CPT-Render"))
	require.NoError(t, err)
	plan, err := eng.Layout(context.Background(), []timeline.Milestone{
		{Number: 1, Level: 1, Date: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), Text: "R&D start"},
		{Number: 2, Level: 2, Date: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), Text: "Prototype"},
		{Number: 3, Level: 3, Date: time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC), Text: "Launch <v1>"},
	})
	require.NoError(t, err)
	return plan, cfg
}

func TestSVGRendererDrawsInPlanOrder(t *testing.T) {
	plan, cfg := samplePlan(t)

	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer(0).Render(&buf, plan, cfg))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<title>CPT-Render</title>")
	assert.Equal(t, 1+len(plan.Connectors), strings.Count(out, "<line"), "centre line plus connectors")
	assert.Equal(t, 3, strings.Count(out, "<ellipse"), "default markers are ellipses")
	assert.Contains(t, out, "R&amp;D start")
	assert.Contains(t, out, "Launch &lt;v1&gt;")
	assert.Contains(t, out, "[1]-[01-Feb-2020]")

	lastLine := strings.LastIndex(out, "<line")
	firstEllipse := strings.Index(out, "<ellipse")
	lastEllipse := strings.LastIndex(out, "<ellipse")
	firstLabel := strings.Index(out, "[1]-[")
	assert.Less(t, lastLine, firstEllipse, "connectors are drawn before markers")
	assert.Less(t, lastEllipse, firstLabel, "markers are drawn before labels")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</svg>"))
}

func TestSVGRendererShapes(t *testing.T) {
	plan, cfg := samplePlan(t)
	plan.Markers[0].Style.Shape = style.ShapeRoundRect
	plan.Labels[0].Style.Shape = style.ShapeRect

	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer(10).Render(&buf, plan, cfg))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, "<ellipse"))
	assert.Contains(t, out, `rx="`)
	assert.GreaterOrEqual(t, strings.Count(out, "<rect"), 3)
}

func TestViewportCoversPlan(t *testing.T) {
	plan, cfg := samplePlan(t)
	v := NewSVGRenderer(10).viewport(plan, cfg)

	lo, hi, ok := plan.Bounds()
	require.True(t, ok)
	assert.Equal(t, v.px(marginUnits), v.x(lo.X))
	assert.Equal(t, v.px(marginUnits), v.y(lo.Y))
	assert.LessOrEqual(t, v.x(hi.X), v.width)
	assert.LessOrEqual(t, v.y(hi.Y), v.height)
}

func TestJSONRenderer(t *testing.T) {
	plan, cfg := samplePlan(t)

	var buf bytes.Buffer
	require.NoError(t, NewJSONRenderer().Render(&buf, plan, cfg))

	var doc struct {
		Plan engine.DrawPlan `json:"plan"`
		Ops  []engine.DrawOp `json:"ops"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, plan.ID, doc.Plan.ID)
	require.Len(t, doc.Ops, 9)
	assert.Equal(t, engine.OpConnector, doc.Ops[0].Kind)
	assert.Equal(t, engine.OpLabel, doc.Ops[8].Kind)
}

func TestRenderNilPlan(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewSVGRenderer(0).Render(&buf, nil, timeline.Config{}))
	assert.Error(t, NewJSONRenderer().Render(&buf, nil, timeline.Config{}))
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat("SVG", Options{})
	require.NoError(t, err)
	assert.Equal(t, "svg", r.Format())

	r, err = ForFormat("json", Options{})
	require.NoError(t, err)
	assert.Equal(t, "json", r.Format())

	_, err = ForFormat("pptx", Options{})
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out/CPT-Alpha_out.svg", OutputPath("out", "CPT-Alpha", "svg"))
	assert.Equal(t, "out/a_b_out.json", OutputPath("out", "a/b", "json"))
}
