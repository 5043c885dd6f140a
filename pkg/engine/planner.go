package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/milestoner/milestoner/pkg/style"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// StyleSource resolves style categories to templates. *style.Catalog
// implements it.
type StyleSource interface {
	Lookup(category string) (style.Template, error)
}

// EarlyDatePolicy decides what happens to milestones dated before the
// start of the axis.
type EarlyDatePolicy string

const (
	// EarlyDateReject fails the layout with an invalid input error.
	EarlyDateReject EarlyDatePolicy = "reject"

	// EarlyDateClamp places the milestone on day 1 and logs a warning.
	EarlyDateClamp EarlyDatePolicy = "clamp"
)

// ParseEarlyDatePolicy maps a configuration string to a policy.
func ParseEarlyDatePolicy(s string) (EarlyDatePolicy, error) {
	switch EarlyDatePolicy(s) {
	case EarlyDateReject, "":
		return EarlyDateReject, nil
	case EarlyDateClamp:
		return EarlyDateClamp, nil
	default:
		return "", fmt.Errorf("unknown early date policy %q (want reject or clamp)", s)
	}
}

// Option configures a LayoutEngine.
type Option func(*LayoutEngine)

// WithName sets the timeline name recorded on plans and errors.
func WithName(name string) Option {
	return func(e *LayoutEngine) { e.name = name }
}

// WithLogger sets the logger used for per-milestone debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *LayoutEngine) { e.logger = logger }
}

// WithEarlyDatePolicy sets how dates before the start date are handled.
func WithEarlyDatePolicy(p EarlyDatePolicy) Option {
	return func(e *LayoutEngine) { e.earlyDates = p }
}

// WithZoneSeeds overrides the starting lane and direction of some zones.
func WithZoneSeeds(seeds map[Zone]ZoneSeed) Option {
	return func(e *LayoutEngine) { e.seeds = seeds }
}

// WithDebugLabels replaces label descriptions with the values used to
// place them.
func WithDebugLabels(on bool) Option {
	return func(e *LayoutEngine) { e.debugLabels = on }
}

// WithSkipInvalid makes the engine log and skip milestones it cannot place
// instead of failing the whole layout.
func WithSkipInvalid(on bool) Option {
	return func(e *LayoutEngine) { e.skipInvalid = on }
}

// WithClock sets the time source for plan timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *LayoutEngine) { e.now = now }
}

// LayoutEngine turns a timeline's milestones into a DrawPlan. The engine
// itself holds no per-run state, so Layout may be called repeatedly and each
// call starts with fresh track and orientation state.
type LayoutEngine struct {
	name        string
	cfg         timeline.Config
	styles      StyleSource
	logger      zerolog.Logger
	earlyDates  EarlyDatePolicy
	seeds       map[Zone]ZoneSeed
	debugLabels bool
	skipInvalid bool
	now         func() time.Time
}

// NewLayoutEngine validates cfg and creates an engine for it.
func NewLayoutEngine(cfg timeline.Config, styles StyleSource, opts ...Option) (*LayoutEngine, error) {
	e := &LayoutEngine{
		cfg:        cfg.WithDefaultTracks(),
		styles:     styles,
		logger:     zerolog.Nop(),
		earlyDates: EarlyDateReject,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if styles == nil {
		return nil, NewConfigurationError("no style source configured", nil).
			WithCode(ErrCodeNoStyles).WithTimeline(e.name)
	}
	if err := e.cfg.Validate(); err != nil {
		code := ErrCodeInvalidConfig
		if !e.cfg.StartDate.IsZero() && !e.cfg.EndDate.IsZero() && e.cfg.TotalDays() < 2 {
			code = ErrCodeDegenerateRange
		}
		return nil, NewConfigurationError("invalid timeline configuration", err).
			WithCode(code).WithTimeline(e.name)
	}
	if _, err := NewTrackAllocator(e.cfg.NumTextTracks, e.seeds); err != nil {
		if le, ok := err.(*LayoutError); ok {
			return nil, le.WithTimeline(e.name)
		}
		return nil, err
	}

	e.logger = e.logger.With().Str("component", "layout").Str("timeline", e.name).Logger()
	return e, nil
}

// Config returns the configuration the engine lays out against.
func (e *LayoutEngine) Config() timeline.Config {
	return e.cfg
}

// LayoutTimeline lays out every milestone of t in order.
func (e *LayoutEngine) LayoutTimeline(ctx context.Context, t *timeline.Timeline) (*DrawPlan, error) {
	return e.Layout(ctx, t.Milestones())
}

// layoutRun is the mutable state of one Layout call.
type layoutRun struct {
	tracks      *TrackAllocator
	orientation *OrientationState
	plan        *DrawPlan
}

// placement is the resolved geometry of one milestone before it is emitted.
type placement struct {
	day         int
	proportion  float64
	zone        Zone
	x           float64
	markerStyle style.Template
	labelStyle  style.Template
	clamped     bool
}

// Layout processes milestones in order and returns the buffered plan.
// Processing is sequential because every label allocation depends on the
// milestones before it.
func (e *LayoutEngine) Layout(ctx context.Context, milestones []timeline.Milestone) (*DrawPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracks, err := NewTrackAllocator(e.cfg.NumTextTracks, e.seeds)
	if err != nil {
		return nil, err
	}
	run := &layoutRun{
		tracks:      tracks,
		orientation: NewOrientationState(),
		plan: &DrawPlan{
			ID:         uuid.New().String(),
			Timeline:   e.name,
			CreatedAt:  e.now(),
			Connectors: make([]ConnectorOp, 0, len(milestones)),
			Markers:    make([]ShapeOp, 0, len(milestones)),
			Labels:     make([]ShapeOp, 0, len(milestones)),
			Summary:    Summary{Zones: make(map[string]int)},
		},
	}

	for _, m := range milestones {
		if err := e.place(run, m); err != nil {
			if !e.skipInvalid {
				return nil, err
			}
			run.plan.Summary.Skipped++
			e.logger.Warn().Err(err).Int("milestone", m.Number).Msg("Skipping milestone")
		}
	}

	e.logger.Debug().
		Int("milestones", run.plan.Summary.Milestones).
		Int("skipped", run.plan.Summary.Skipped).
		Msg("Layout complete")
	return run.plan, nil
}

// place lays out one milestone. Everything that can fail is resolved before
// the track allocator or orientation state is touched, so a skipped
// milestone leaves the run state unchanged.
func (e *LayoutEngine) place(run *layoutRun, m timeline.Milestone) error {
	p, err := e.resolve(m)
	if err != nil {
		return err
	}

	side := run.orientation.Current(m.Level)

	markerTrack := (m.Level - 1) * side
	if m.MarkerTrackOverride != nil {
		markerTrack = *m.MarkerTrackOverride
		run.plan.Summary.MarkerOverrides++
	}

	var labelTrack int
	if m.LabelTrackOverride != nil {
		labelTrack = *m.LabelTrackOverride
		run.plan.Summary.LabelOverrides++
	} else {
		labelTrack = run.tracks.Next(p.zone, side)
	}

	markerY := TrackLocation(markerTrack, e.cfg.MarkerTracks)
	labelY := TrackLocation(labelTrack, e.cfg.LabelTracks)
	shift := EdgeShift(e.cfg, p.day, p.labelStyle.Width, p.markerStyle.Width)
	labelX := p.x + shift

	labelText := LabelText(e.cfg, m)
	if e.debugLabels {
		labelText = debugLabelText(m, p.day, p.proportion, shift)
	}

	plan := run.plan
	plan.Connectors = append(plan.Connectors, ConnectorOp{
		Milestone: m.Number,
		X:         p.x,
		FromY:     markerY,
		ToY:       labelY,
		Color:     p.markerStyle.FillColor,
		Width:     p.markerStyle.LineWidth,
	})
	plan.Markers = append(plan.Markers, shapeAt(OpMarker, m.Number, style.MarkerCategory(m.Level),
		p.markerStyle, Point{p.x, markerY}, MarkerText(e.cfg, m), markerTrack))
	label := shapeAt(OpLabel, m.Number, style.LabelCategory(m.Level),
		p.labelStyle, Point{labelX, labelY}, labelText, labelTrack)
	label.Zone = p.zone
	label.Shift = shift
	plan.Labels = append(plan.Labels, label)

	plan.Summary.Milestones++
	if p.clamped {
		plan.Summary.ClampedDates++
	}
	plan.Summary.Zones[p.zone.String()]++

	e.logger.Debug().
		Int("milestone", m.Number).
		Int("level", m.Level).
		Int("day", p.day).
		Float64("proportion", p.proportion).
		Str("zone", p.zone.String()).
		Int("side", side).
		Int("marker_track", markerTrack).
		Int("label_track", labelTrack).
		Float64("x", p.x).
		Float64("shift", shift).
		Msg("Placed milestone")

	run.orientation.Flip(m.Level)
	return nil
}

// resolve computes the date position and style templates of a milestone.
func (e *LayoutEngine) resolve(m timeline.Milestone) (placement, error) {
	if m.Level < 1 {
		return placement{}, NewInvalidInputError(fmt.Sprintf("level must be at least 1, got %d", m.Level), nil).
			WithCode(ErrCodeInvalidLevel).WithTimeline(e.name).WithMilestone(m.Number)
	}

	clamped := false
	day, err := DayNumber(e.cfg, m.Date)
	if err != nil {
		if e.earlyDates != EarlyDateClamp {
			if le, ok := err.(*LayoutError); ok {
				return placement{}, le.WithTimeline(e.name).WithMilestone(m.Number)
			}
			return placement{}, err
		}
		e.logger.Warn().Int("milestone", m.Number).Int("day", day).
			Msg("Milestone precedes start date, placing on day 1")
		day = 1
		clamped = true
	}

	markerCategory := style.MarkerCategory(m.Level)
	markerStyle, err := e.styles.Lookup(markerCategory)
	if err != nil {
		return placement{}, e.missingCategory(m, markerCategory, err)
	}
	labelCategory := style.LabelCategory(m.Level)
	labelStyle, err := e.styles.Lookup(labelCategory)
	if err != nil {
		return placement{}, e.missingCategory(m, labelCategory, err)
	}

	return placement{
		day:         day,
		proportion:  DayProportion(e.cfg, day),
		zone:        ZoneOf(e.cfg, day),
		x:           HorizontalPosition(e.cfg, day),
		markerStyle: markerStyle,
		labelStyle:  labelStyle,
		clamped:     clamped,
	}, nil
}

func (e *LayoutEngine) missingCategory(m timeline.Milestone, category string, err error) error {
	return NewConfigurationError("style category not defined", err).
		WithCode(ErrCodeMissingCategory).
		WithTimeline(e.name).
		WithMilestone(m.Number).
		WithCategory(category)
}

func shapeAt(kind OpKind, number int, category string, tmpl style.Template, center Point, text string, track int) ShapeOp {
	return ShapeOp{
		Kind:      kind,
		Milestone: number,
		Category:  category,
		Style:     tmpl,
		Center:    center,
		Left:      center.X - tmpl.Width/2,
		Top:       center.Y - tmpl.Height/2,
		Width:     tmpl.Width,
		Height:    tmpl.Height,
		Text:      text,
		Track:     track,
	}
}
