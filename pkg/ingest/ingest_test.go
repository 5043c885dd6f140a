package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/milestoner/milestoner/pkg/timeline"
)

const sampleYAML = `
timelines:
  - name: CPT-Programme
    parameters:
      start_date: 2020-01-01
      end_date: 2020-12-31
      include_ms_num_in_text: true
      milestone_left: 0.75
      milestone_right: 34.81
      centre_vertical_position: 10
      num_text_tracks: 5
    milestones:
      - number: 1
        name: Kick-off
        date: 2020-07-01
        level: 1
      - number: 2
        name: Design review
        date: 2020-09-15
        level: 2
        textbox_track_override: -3
  - name: CPT-Support
    parameters:
      start_date: 2021-01-01
      end_date: 2021-06-30
      milestone_left: 1
      milestone_right: 30
      centre_vertical_position: 8
      num_text_tracks: 3
    milestones: []
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseYAML(t *testing.T) {
	timelines, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, timelines, 2)

	tl := timelines[0]
	assert.Equal(t, "CPT-Programme", tl.Name())
	cfg := tl.Config()
	assert.Equal(t, 366, cfg.TotalDays())
	assert.True(t, cfg.IncludeNumberInLabel)
	assert.False(t, cfg.IncludeNumberInMarker)
	assert.Equal(t, timeline.DefaultLabelTracks(10), cfg.LabelTracks)

	m, ok := tl.Milestone(2)
	require.True(t, ok)
	assert.Equal(t, "Design review", m.Text)
	assert.Nil(t, m.MarkerTrackOverride)
	require.NotNil(t, m.LabelTrackOverride)
	assert.Equal(t, -3, *m.LabelTrackOverride)

	assert.Equal(t, 0, timelines[1].Len())
}

func TestParseYAMLRejectsBadDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown field": "timelines:\n  - name: x\n    colour: red\n",
		"no tracks": `timelines:
  - name: x
    parameters: {start_date: 2020-01-01, end_date: 2020-02-01, milestone_right: 10}
`,
		"right before left": `timelines:
  - name: x
    parameters: {start_date: 2020-01-01, end_date: 2020-02-01, milestone_left: 5, milestone_right: 1, num_text_tracks: 2}
`,
		"level zero": `timelines:
  - name: x
    parameters: {start_date: 2020-01-01, end_date: 2020-02-01, milestone_right: 10, num_text_tracks: 2}
    milestones:
      - {number: 1, date: 2020-01-05, level: 0}
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseYAML([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := ParseYAML([]byte("timelines: []\n"))
	assert.ErrorIs(t, err, ErrNoTimelines)
}

func TestParseYAMLLenientOverrides(t *testing.T) {
	tests := []struct {
		value string
		want  *int
	}{
		{`""`, nil},
		{`"n/a"`, nil},
		{`x`, nil},
		{`~`, nil},
		{`[1, 2]`, nil},
		{`3.0`, timeline.Track(3)},
		{`"-2"`, timeline.Track(-2)},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			doc := fmt.Sprintf(`timelines:
  - name: CPT-Cells
    parameters: {start_date: 2020-01-01, end_date: 2020-12-31, milestone_right: 10, num_text_tracks: 3}
    milestones:
      - number: 1
        date: 2020-03-01
        level: 1
        milestone_track_override: %[1]s
        textbox_track_override: %[1]s
`, tt.value)

			timelines, err := ParseYAML([]byte(doc))
			require.NoError(t, err)
			m, ok := timelines[0].Milestone(1)
			require.True(t, ok)
			assert.Equal(t, tt.want, m.MarkerTrackOverride)
			assert.Equal(t, tt.want, m.LabelTrackOverride)
		})
	}
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	timelines, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	data, err := MarshalYAML(timelines)
	require.NoError(t, err)

	again, err := ParseYAML(data)
	require.NoError(t, err)
	require.Len(t, again, len(timelines))
	for i := range timelines {
		assert.Equal(t, timelines[i].Config(), again[i].Config())
		assert.Equal(t, timelines[i].Milestones(), again[i].Milestones())
	}
}

// buildWorkbook writes a workbook in the CPT sheet layout.
func buildWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "CPT-Alpha"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	_, err = f.NewSheet("Notes")
	require.NoError(t, err)

	set := func(cell string, v interface{}) {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}

	set("B2", "Parameter Name")
	set("C2", "Value")
	set("D2", "Comment")
	params := []struct {
		name  string
		value interface{}
	}{
		{ParamStartDate, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ParamEndDate, "31-Dec-2020"},
		{ParamNumberInMarker, "No"},
		{ParamNumberInLabel, "Yes"},
		{ParamMilestoneLeft, 0.75},
		{ParamMilestoneRight, 34.81},
		{ParamCentreVertical, 15},
		{ParamNumTextTracks, 4},
	}
	for i, p := range params {
		row := ParamsHeaderRow + 1 + i
		name, _ := excelize.CoordinatesToCellName(2, row)
		value, _ := excelize.CoordinatesToCellName(3, row)
		set(name, p.name)
		set(value, p.value)
	}

	for i, h := range []string{"Milestone Number", "Milestone Name", "Date", "Milestone Level",
		"Milestone Track Override", "Textbox Track Override"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, MilestoneHeaderRow)
		set(cell, h)
	}
	rows := [][]interface{}{
		{1, "Kick-off", time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC), 1, "", ""},
		{2, "Design review", "2020-09-15", 2, 1, "-2"},
		{},
		{3, "Go-live", "15-Nov-2020", 1, "n/a", 3.0},
	}
	for i, r := range rows {
		for j, v := range r {
			cell, _ := excelize.CoordinatesToCellName(j+1, MilestoneHeaderRow+1+i)
			set(cell, v)
		}
	}

	path := filepath.Join(t.TempDir(), "timelines.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadWorkbook(t *testing.T) {
	path := buildWorkbook(t)

	timelines, err := ReadWorkbook(path, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.Len(t, timelines, 1, "only prefixed sheets are timelines")

	tl := timelines[0]
	assert.Equal(t, "CPT-Alpha", tl.Name())

	cfg := tl.Config()
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), cfg.EndDate)
	assert.False(t, cfg.IncludeNumberInMarker)
	assert.True(t, cfg.IncludeNumberInLabel)
	assert.Equal(t, 0.75, cfg.LeftX)
	assert.Equal(t, 34.81, cfg.RightX)
	assert.Equal(t, 15.0, cfg.CenterY)
	assert.Equal(t, 4, cfg.NumTextTracks)

	ms := tl.Milestones()
	require.Len(t, ms, 3)
	assert.Equal(t, time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC), ms[0].Date)
	assert.Nil(t, ms[0].MarkerTrackOverride)
	assert.Nil(t, ms[0].LabelTrackOverride)

	assert.Equal(t, 2, ms[1].Level)
	require.NotNil(t, ms[1].MarkerTrackOverride)
	assert.Equal(t, 1, *ms[1].MarkerTrackOverride)
	require.NotNil(t, ms[1].LabelTrackOverride)
	assert.Equal(t, -2, *ms[1].LabelTrackOverride)

	assert.Equal(t, "Go-live", ms[2].Text)
	assert.Nil(t, ms[2].MarkerTrackOverride, "non-numeric overrides are ignored")
	require.NotNil(t, ms[2].LabelTrackOverride)
	assert.Equal(t, 3, *ms[2].LabelTrackOverride)
}

func TestReadWorkbookPrefix(t *testing.T) {
	path := buildWorkbook(t)

	_, err := ReadWorkbook(path, Options{SheetPrefix: "TL", Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNoTimelines)
}

func TestParseSheetErrors(t *testing.T) {
	_, err := parseSheet("CPT-x", [][]string{{"nothing"}})
	assert.ErrorIs(t, err, ErrBadLayout)

	rows := make([][]string, ParamsHeaderRow+1)
	rows[ParamsHeaderRow-1] = []string{"", "Parameter Name", "Value"}
	rows[ParamsHeaderRow] = []string{"", ParamStartDate, "2020-01-01"}
	_, err = parseSheet("CPT-x", rows)
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"44013", "44013.75", "2020-07-01", "01-Jul-2020", "1 Jul 2020", "2020-07-01 13:45:00"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDate("next tuesday")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	mgr, err := Load(writeFile(t, "timelines.yml", sampleYAML), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CPT-Programme", "CPT-Support"}, mgr.Names())

	mgr, err = Load(buildWorkbook(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CPT-Alpha"}, mgr.Names())

	_, err = Load(writeFile(t, "timelines.csv", "a,b\n"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := writeFile(t, "timelines.yaml", sampleYAML)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- NewWatcher(zerolog.Nop(), 20*time.Millisecond).Watch(ctx, []string{path},
			func(context.Context) error {
				reloaded <- struct{}{}
				return nil
			})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"\n"), 0644))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not triggered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingFile(t *testing.T) {
	err := NewWatcher(zerolog.Nop(), 0).Watch(context.Background(),
		[]string{filepath.Join(t.TempDir(), "absent.yaml")},
		func(context.Context) error { return nil })
	assert.Error(t, err)
}
