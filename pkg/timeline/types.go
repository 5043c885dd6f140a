package timeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid timeline configuration")

// TrackGeometry describes a family of horizontal tracks around a centre line.
type TrackGeometry struct {
	// Separation is the vertical distance between neighbouring tracks.
	Separation float64 `json:"separation" yaml:"separation"`

	// Center is the vertical position of the centre line.
	Center float64 `json:"center" yaml:"center"`

	// StartOffset is the distance from the centre line to track 1.
	// Zero means the centre line itself is track 0.
	StartOffset float64 `json:"start_offset" yaml:"start_offset"`
}

// DefaultMarkerTracks returns the marker track geometry used by the
// standard slide template, anchored on centerY.
func DefaultMarkerTracks(centerY float64) TrackGeometry {
	return TrackGeometry{Separation: 0.8, Center: centerY, StartOffset: 0.8}
}

// DefaultLabelTracks returns the label track geometry used by the
// standard slide template, anchored on centerY.
func DefaultLabelTracks(centerY float64) TrackGeometry {
	return TrackGeometry{Separation: 1.2, Center: centerY, StartOffset: 2.95}
}

// Config is the per-timeline parameter set.
type Config struct {
	// StartDate is the first day of the date axis (day number 1).
	StartDate time.Time `json:"start_date"`

	// EndDate is the last day of the date axis.
	EndDate time.Time `json:"end_date"`

	// LeftX and RightX bound the date axis on the canvas.
	LeftX  float64 `json:"left_x"`
	RightX float64 `json:"right_x"`

	// CenterY is the vertical position of the timeline's centre line.
	CenterY float64 `json:"center_y"`

	// NumTextTracks is the number of label lanes on each side of the centre line.
	NumTextTracks int `json:"num_text_tracks"`

	// IncludeNumberInMarker puts the milestone number inside the marker shape.
	IncludeNumberInMarker bool `json:"include_number_in_marker"`

	// IncludeNumberInLabel prefixes the label text with the milestone number.
	IncludeNumberInLabel bool `json:"include_number_in_label"`

	// MarkerTracks positions marker shapes.
	MarkerTracks TrackGeometry `json:"marker_tracks"`

	// LabelTracks positions label boxes.
	LabelTracks TrackGeometry `json:"label_tracks"`
}

// TotalDays is the inclusive number of days on the date axis.
func (c Config) TotalDays() int {
	return DaysBetween(c.StartDate, c.EndDate) + 1
}

// XRange is the canvas width available to the date axis.
func (c Config) XRange() float64 {
	return c.RightX - c.LeftX
}

// Validate checks the invariants the layout maths depends on.
func (c Config) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidConfig)
	}
	if days := c.TotalDays(); days < 2 {
		return fmt.Errorf("%w: date range %s..%s spans %d day(s), need at least 2",
			ErrInvalidConfig, c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly), days)
	}
	if c.NumTextTracks < 1 {
		return fmt.Errorf("%w: num_text_tracks must be at least 1, got %d", ErrInvalidConfig, c.NumTextTracks)
	}
	if c.RightX <= c.LeftX {
		return fmt.Errorf("%w: right_x (%g) must be greater than left_x (%g)", ErrInvalidConfig, c.RightX, c.LeftX)
	}
	return nil
}

// WithDefaultTracks fills zero-valued track geometry from the defaults.
func (c Config) WithDefaultTracks() Config {
	if c.MarkerTracks == (TrackGeometry{}) {
		c.MarkerTracks = DefaultMarkerTracks(c.CenterY)
	}
	if c.LabelTracks == (TrackGeometry{}) {
		c.LabelTracks = DefaultLabelTracks(c.CenterY)
	}
	return c
}

// Milestone is a single dated, leveled event to place on a timeline.
type Milestone struct {
	// Number is the unique key of the milestone within its timeline.
	Number int `json:"number"`

	// Text is the description shown in the label.
	Text string `json:"text"`

	// Date places the milestone on the date axis.
	Date time.Time `json:"date"`

	// Level selects the visual category (1, 2, 3, ...).
	Level int `json:"level"`

	// MarkerTrackOverride replaces the computed marker track when set.
	MarkerTrackOverride *int `json:"marker_track_override,omitempty"`

	// LabelTrackOverride replaces the allocated label track when set.
	LabelTrackOverride *int `json:"label_track_override,omitempty"`
}

// clone copies the milestone including its override pointers.
func (m Milestone) clone() Milestone {
	if m.MarkerTrackOverride != nil {
		v := *m.MarkerTrackOverride
		m.MarkerTrackOverride = &v
	}
	if m.LabelTrackOverride != nil {
		v := *m.LabelTrackOverride
		m.LabelTrackOverride = &v
	}
	return m
}

// DaysBetween counts calendar days from a to b, ignoring time of day and zone.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
