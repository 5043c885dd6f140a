package timeline

import (
	"fmt"
	"time"
)

// Timeline is the immutable aggregate of a timeline's name, its parameters
// and its milestones in insertion order.
type Timeline struct {
	name       string
	config     Config
	milestones []Milestone
}

// NewTimeline validates and copies the inputs into a Timeline.
// Milestone numbers must be unique and levels must be positive.
func NewTimeline(name string, cfg Config, milestones []Milestone) (*Timeline, error) {
	if name == "" {
		return nil, fmt.Errorf("timeline name is required")
	}

	cfg = cfg.WithDefaultTracks()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("timeline %s: %w", name, err)
	}

	seen := make(map[int]struct{}, len(milestones))
	copied := make([]Milestone, 0, len(milestones))
	for _, m := range milestones {
		if _, dup := seen[m.Number]; dup {
			return nil, fmt.Errorf("timeline %s: duplicate milestone number %d", name, m.Number)
		}
		if m.Level < 1 {
			return nil, fmt.Errorf("timeline %s: milestone %d has invalid level %d", name, m.Number, m.Level)
		}
		seen[m.Number] = struct{}{}
		copied = append(copied, m.clone())
	}

	return &Timeline{
		name:       name,
		config:     cfg,
		milestones: copied,
	}, nil
}

// Name returns the timeline name.
func (t *Timeline) Name() string {
	return t.name
}

// Config returns the timeline parameters.
func (t *Timeline) Config() Config {
	return t.config
}

// Milestones returns a copy of the milestones in insertion order.
func (t *Timeline) Milestones() []Milestone {
	out := make([]Milestone, len(t.milestones))
	for i, m := range t.milestones {
		out[i] = m.clone()
	}
	return out
}

// Len returns the number of milestones.
func (t *Timeline) Len() int {
	return len(t.milestones)
}

// Milestone looks up a milestone by number.
func (t *Timeline) Milestone(number int) (Milestone, bool) {
	for _, m := range t.milestones {
		if m.Number == number {
			return m.clone(), true
		}
	}
	return Milestone{}, false
}

// DateSpan returns the earliest and latest milestone dates.
// ok is false for an empty timeline.
func (t *Timeline) DateSpan() (first, last time.Time, ok bool) {
	for i, m := range t.milestones {
		if i == 0 || m.Date.Before(first) {
			first = m.Date
		}
		if i == 0 || m.Date.After(last) {
			last = m.Date
		}
	}
	return first, last, len(t.milestones) > 0
}

// Levels returns the distinct milestone levels in ascending order.
func (t *Timeline) Levels() []int {
	present := make(map[int]bool)
	maxLevel := 0
	for _, m := range t.milestones {
		present[m.Level] = true
		if m.Level > maxLevel {
			maxLevel = m.Level
		}
	}
	levels := make([]int, 0, len(present))
	for l := 1; l <= maxLevel; l++ {
		if present[l] {
			levels = append(levels, l)
		}
	}
	return levels
}
