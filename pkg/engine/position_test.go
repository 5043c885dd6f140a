package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milestoner/milestoner/pkg/timeline"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// yearConfig is a leap year on a 0..1000 canvas with five label lanes.
func yearConfig() timeline.Config {
	return timeline.Config{
		StartDate:            day(2020, 1, 1),
		EndDate:              day(2020, 12, 31),
		LeftX:                0,
		RightX:               1000,
		CenterY:              10,
		NumTextTracks:        5,
		IncludeNumberInLabel: true,
	}.WithDefaultTracks()
}

func TestDayNumber(t *testing.T) {
	cfg := yearConfig()

	n, err := DayNumber(cfg, day(2020, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = DayNumber(cfg, day(2020, 7, 1))
	require.NoError(t, err)
	assert.Equal(t, 183, n)

	n, err = DayNumber(cfg, day(2021, 1, 10))
	require.NoError(t, err, "dates after the end extrapolate")
	assert.Equal(t, 376, n)

	_, err = DayNumber(cfg, day(2019, 12, 31))
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	_, code := ClassOf(err)
	assert.Equal(t, ErrCodeDateBeforeStart, code)
}

func TestDayProportionAndPosition(t *testing.T) {
	cfg := yearConfig()

	assert.Equal(t, 0.0, DayProportion(cfg, 1))
	assert.Equal(t, 1.0, DayProportion(cfg, cfg.TotalDays()))
	assert.Equal(t, 0.0, HorizontalPosition(cfg, 1))
	assert.Equal(t, 1000.0, HorizontalPosition(cfg, 366))
	assert.InDelta(t, 498.63, HorizontalPosition(cfg, 183), 0.01)
	assert.Greater(t, HorizontalPosition(cfg, 400), 1000.0)
}

func TestTrackLocation(t *testing.T) {
	g := timeline.TrackGeometry{Separation: 1.2, Center: 10, StartOffset: 2.95}

	tests := []struct {
		track int
		want  float64
	}{
		{1, 12.95},
		{-1, 7.05},
		{3, 15.35},
		{-3, 4.65},
		{0, 11.75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, TrackLocation(tt.track, g), 1e-9, "track %d", tt.track)
	}

	// With start offset equal to separation, track 0 is the centre line.
	marker := timeline.DefaultMarkerTracks(10)
	assert.Equal(t, 10.0, TrackLocation(0, marker))
	assert.InDelta(t, 10.8, TrackLocation(1, marker), 1e-9)
	assert.InDelta(t, 9.2, TrackLocation(-1, marker), 1e-9)
}

func TestTrackLocationIsSymmetric(t *testing.T) {
	g := timeline.DefaultLabelTracks(4)
	for n := 1; n <= 10; n++ {
		above := g.Center - TrackLocation(-n, g)
		below := TrackLocation(n, g) - g.Center
		assert.InDelta(t, below, above, 1e-9, "track %d", n)
	}
}

func TestEdgeShiftAlignsEdgesAtExtremes(t *testing.T) {
	cfg := yearConfig()
	const labelW, markerW = 4.5, 0.6

	first := HorizontalPosition(cfg, 1)
	shift := EdgeShift(cfg, 1, labelW, markerW)
	assert.InDelta(t, first-markerW/2, first+shift-labelW/2, 1e-9, "left edges meet on day 1")

	lastDay := cfg.TotalDays()
	last := HorizontalPosition(cfg, lastDay)
	shift = EdgeShift(cfg, lastDay, labelW, markerW)
	assert.InDelta(t, last+markerW/2, last+shift+labelW/2, 1e-9, "right edges meet on the last day")

	assert.InDelta(t, 0.0053, EdgeShift(cfg, 183, labelW, markerW), 1e-4)
}

func TestZoneOf(t *testing.T) {
	cfg := yearConfig()

	assert.Equal(t, ZoneLeft, ZoneOf(cfg, 1))
	assert.Equal(t, ZoneLeft, ZoneOf(cfg, 100))
	assert.Equal(t, ZoneMiddle, ZoneOf(cfg, 183))
	assert.Equal(t, ZoneRight, ZoneOf(cfg, 300))
	assert.Equal(t, ZoneRight, ZoneOf(cfg, 366), "last day clamps into the right zone")
	assert.Equal(t, ZoneRight, ZoneOf(cfg, 2000), "far future clamps into the right zone")
	assert.Equal(t, ZoneLeft, ZoneOf(cfg, -50), "far past clamps into the left zone")

	assert.Equal(t, "middle", ZoneMiddle.String())
	assert.Equal(t, "zone(7)", Zone(7).String())
}
