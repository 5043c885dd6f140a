package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/milestoner/milestoner/pkg/timeline"
)

// Zone is one of the three horizontal thirds of the canvas.
type Zone int

const (
	ZoneLeft   Zone = 1
	ZoneMiddle Zone = 2
	ZoneRight  Zone = 3
)

// Zones lists the zones left to right.
var Zones = []Zone{ZoneLeft, ZoneMiddle, ZoneRight}

// String returns the zone name.
func (z Zone) String() string {
	switch z {
	case ZoneLeft:
		return "left"
	case ZoneMiddle:
		return "middle"
	case ZoneRight:
		return "right"
	default:
		return fmt.Sprintf("zone(%d)", int(z))
	}
}

// DayNumber returns the 1-based position of date on the axis. Dates after
// the end date are allowed; dates before the start date are rejected.
func DayNumber(cfg timeline.Config, date time.Time) (int, error) {
	day := timeline.DaysBetween(cfg.StartDate, date) + 1
	if day <= 0 {
		return day, NewInvalidInputError(
			fmt.Sprintf("date %s precedes start date %s",
				date.Format(time.DateOnly), cfg.StartDate.Format(time.DateOnly)), nil).
			WithCode(ErrCodeDateBeforeStart)
	}
	return day, nil
}

// DayProportion maps a day number onto [0,1] for in-range days. Out of range
// days extrapolate linearly.
func DayProportion(cfg timeline.Config, day int) float64 {
	return float64(day-1) / float64(cfg.TotalDays()-1)
}

// HorizontalPosition is the x coordinate of a day on the canvas.
func HorizontalPosition(cfg timeline.Config, day int) float64 {
	return cfg.LeftX + DayProportion(cfg, day)*cfg.XRange()
}

// TrackLocation is the vertical position of a signed track number.
// Positive tracks lie below the centre line (y grows downwards), negative
// ones above. Track 0 is treated as positive and only lands on the centre
// line when the geometry's start offset equals its separation.
func TrackLocation(track int, g timeline.TrackGeometry) float64 {
	sign := 1.0
	if track < 0 {
		sign = -1.0
	}
	abs := track
	if abs < 0 {
		abs = -abs
	}
	offset := g.StartOffset + float64(abs-1)*g.Separation
	return g.Center + sign*offset
}

// EdgeShift is the horizontal correction applied to a label centre so that
// the label's left edge meets the marker's left edge on the first day and
// its right edge meets the marker's right edge on the last day, with linear
// interpolation between.
func EdgeShift(cfg timeline.Config, day int, labelWidth, markerWidth float64) float64 {
	atLeft := labelWidth/2 - markerWidth/2
	atRight := -labelWidth/2 + markerWidth/2
	return atLeft + DayProportion(cfg, day)*(atRight-atLeft)
}

// ZoneOf returns the zone a day falls in. Days outside the axis are clamped
// to the nearest edge zone, which includes the last day itself (proportion 1).
func ZoneOf(cfg timeline.Config, day int) Zone {
	z := int(math.Floor(DayProportion(cfg, day)*3)) + 1
	switch {
	case z < int(ZoneLeft):
		return ZoneLeft
	case z > int(ZoneRight):
		return ZoneRight
	default:
		return Zone(z)
	}
}
