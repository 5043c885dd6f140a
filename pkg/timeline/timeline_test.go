package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validConfig() Config {
	return Config{
		StartDate:     date(2020, 1, 1),
		EndDate:       date(2020, 12, 31),
		LeftX:         0,
		RightX:        1000,
		CenterY:       15,
		NumTextTracks: 5,
	}
}

func TestConfigDerivedValues(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 366, cfg.TotalDays())
	assert.Equal(t, 1000.0, cfg.XRange())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same start and end", func(c *Config) { c.EndDate = c.StartDate }},
		{"reversed range", func(c *Config) { c.EndDate = c.StartDate.AddDate(0, 0, -10) }},
		{"no text tracks", func(c *Config) { c.NumTextTracks = 0 }},
		{"inverted canvas", func(c *Config) { c.RightX = c.LeftX }},
		{"missing start", func(c *Config) { c.StartDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWithDefaultTracks(t *testing.T) {
	cfg := validConfig().WithDefaultTracks()

	assert.Equal(t, TrackGeometry{Separation: 0.8, Center: 15, StartOffset: 0.8}, cfg.MarkerTracks)
	assert.Equal(t, TrackGeometry{Separation: 1.2, Center: 15, StartOffset: 2.95}, cfg.LabelTracks)

	custom := validConfig()
	custom.LabelTracks = TrackGeometry{Separation: 2, Center: 10, StartOffset: 0}
	custom = custom.WithDefaultTracks()
	assert.Equal(t, 2.0, custom.LabelTracks.Separation)
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2021, 3, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2021, 3, 2, 0, 1, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
}

func TestParseTrackOverride(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{"", nil},
		{"   ", nil},
		{"3", Track(3)},
		{" -2 ", Track(-2)},
		{"4.0", Track(4)},
		{"2.5", nil},
		{"NaN", nil},
		{"nan", nil},
		{"abc", nil},
		{"Inf", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTrackOverride(tt.raw))
		})
	}
}

func TestNewTimelineCopiesAndValidates(t *testing.T) {
	override := 2
	input := []Milestone{
		{Number: 10, Text: "Kickoff", Date: date(2020, 2, 1), Level: 1, LabelTrackOverride: &override},
		{Number: 11, Text: "Review", Date: date(2020, 6, 1), Level: 2},
	}

	tl, err := NewTimeline("CPT-01", validConfig(), input)
	require.NoError(t, err)

	// Mutating the caller's data must not leak into the dataset.
	override = 99
	input[0].Text = "changed"

	got := tl.Milestones()
	require.Len(t, got, 2)
	assert.Equal(t, "Kickoff", got[0].Text)
	assert.Equal(t, 2, *got[0].LabelTrackOverride)

	// Nor may mutating a returned copy.
	*got[0].LabelTrackOverride = 7
	again, ok := tl.Milestone(10)
	require.True(t, ok)
	assert.Equal(t, 2, *again.LabelTrackOverride)

	assert.Equal(t, []int{1, 2}, tl.Levels())
	first, last, ok := tl.DateSpan()
	require.True(t, ok)
	assert.Equal(t, date(2020, 2, 1), first)
	assert.Equal(t, date(2020, 6, 1), last)
}

func TestNewTimelineRejectsBadInput(t *testing.T) {
	_, err := NewTimeline("", validConfig(), nil)
	require.Error(t, err)

	_, err = NewTimeline("dup", validConfig(), []Milestone{
		{Number: 1, Level: 1, Date: date(2020, 1, 1)},
		{Number: 1, Level: 1, Date: date(2020, 1, 2)},
	})
	require.ErrorContains(t, err, "duplicate milestone number 1")

	_, err = NewTimeline("level", validConfig(), []Milestone{{Number: 1, Level: 0}})
	require.ErrorContains(t, err, "invalid level")

	bad := validConfig()
	bad.NumTextTracks = 0
	_, err = NewTimeline("cfg", bad, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestManager(t *testing.T) {
	m := NewManager()
	a, err := NewTimeline("b-second", validConfig(), nil)
	require.NoError(t, err)
	b, err := NewTimeline("a-first", validConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, m.Add(a))
	require.NoError(t, m.Add(b))
	require.Error(t, m.Add(a))
	require.Error(t, m.Add(nil))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"b-second", "a-first"}, m.Names())

	got, ok := m.Get("a-first")
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	selected, err := m.Select([]string{"a-first"})
	require.NoError(t, err)
	require.Len(t, selected, 1)

	_, err = m.Select([]string{"missing"})
	require.Error(t, err)

	all, err := m.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
