package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// JSONRenderer writes the plan and its timeline parameters as indented JSON.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSON renderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Format implements Renderer.
func (r *JSONRenderer) Format() string {
	return "json"
}

// jsonDocument is the rendered form.
type jsonDocument struct {
	Config timeline.Config  `json:"config"`
	Plan   *engine.DrawPlan `json:"plan"`
	Ops    []engine.DrawOp  `json:"ops"`
}

// Render implements Renderer.
func (r *JSONRenderer) Render(w io.Writer, plan *engine.DrawPlan, cfg timeline.Config) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonDocument{Config: cfg, Plan: plan, Ops: plan.Ops()}); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return nil
}
