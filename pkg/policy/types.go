package policy

import (
	"time"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that fail validation.
	SeverityError Severity = "error"
)

// ParseSeverity maps a name to a Severity. Unknown names yield ok == false.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityInfo, SeverityWarning, SeverityError:
		return Severity(s), true
	case "critical":
		return SeverityError, true
	}
	return "", false
}

// Blocks reports whether the severity fails validation.
func (s Severity) Blocks() bool {
	return s == SeverityError
}

// Policy is a Rego module whose deny set lists violations.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from; empty for built-ins.
	Source string `json:"source,omitempty"`
}

// Violation is one entry of a policy's deny set.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Timeline is the timeline the violation was found in.
	Timeline string `json:"timeline"`

	// Milestone is the offending milestone number, zero for the timeline.
	Milestone int `json:"milestone,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating every enabled policy against one
// timeline.
type Result struct {
	// Allowed is false when any violation blocks.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations in policy name order.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the policies were evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Input is the document policies see as `input`.
type Input struct {
	Timeline TimelineInput `json:"timeline"`

	// Plan is set when the timeline was laid out before evaluation.
	Plan *PlanInput `json:"plan,omitempty"`

	Context Context `json:"context"`
}

// TimelineInput is the timeline as seen by policies. Dates are
// YYYY-MM-DD strings and day numbers are precomputed.
type TimelineInput struct {
	Name          string           `json:"name"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	TotalDays     int              `json:"total_days"`
	NumTextTracks int              `json:"num_text_tracks"`
	Milestones    []MilestoneInput `json:"milestones"`
}

// MilestoneInput is one milestone as seen by policies.
type MilestoneInput struct {
	Number              int    `json:"number"`
	Text                string `json:"text"`
	Date                string `json:"date"`
	Day                 int    `json:"day"`
	Level               int    `json:"level"`
	MarkerTrackOverride *int   `json:"marker_track_override,omitempty"`
	LabelTrackOverride  *int   `json:"label_track_override,omitempty"`
}

// PlanInput is the laid-out plan as seen by policies.
type PlanInput struct {
	ID      string         `json:"id"`
	Summary engine.Summary `json:"summary"`
	Labels  []LabelInput   `json:"labels"`
}

// LabelInput is one placed label.
type LabelInput struct {
	Milestone int     `json:"milestone"`
	Zone      string  `json:"zone"`
	Track     int     `json:"track"`
	Text      string  `json:"text"`
	Left      float64 `json:"left"`
	Width     float64 `json:"width"`
}

// Context describes the evaluation.
type Context struct {
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInput builds the policy input for tl and, optionally, its plan.
func NewInput(tl *timeline.Timeline, plan *engine.DrawPlan, operation string, now time.Time) *Input {
	cfg := tl.Config()
	in := &Input{
		Timeline: TimelineInput{
			Name:          tl.Name(),
			StartDate:     cfg.StartDate.Format(time.DateOnly),
			EndDate:       cfg.EndDate.Format(time.DateOnly),
			TotalDays:     cfg.TotalDays(),
			NumTextTracks: cfg.NumTextTracks,
			Milestones:    []MilestoneInput{},
		},
		Context: Context{Operation: operation, Timestamp: now},
	}

	for _, m := range tl.Milestones() {
		in.Timeline.Milestones = append(in.Timeline.Milestones, MilestoneInput{
			Number:              m.Number,
			Text:                m.Text,
			Date:                m.Date.Format(time.DateOnly),
			Day:                 timeline.DaysBetween(cfg.StartDate, m.Date) + 1,
			Level:               m.Level,
			MarkerTrackOverride: m.MarkerTrackOverride,
			LabelTrackOverride:  m.LabelTrackOverride,
		})
	}

	if plan != nil {
		p := &PlanInput{ID: plan.ID, Summary: plan.Summary, Labels: []LabelInput{}}
		for _, l := range plan.Labels {
			p.Labels = append(p.Labels, LabelInput{
				Milestone: l.Milestone,
				Zone:      l.Zone.String(),
				Track:     l.Track,
				Text:      l.Text,
				Left:      l.Left,
				Width:     l.Width,
			})
		}
		in.Plan = p
	}
	return in
}
