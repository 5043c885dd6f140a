package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/milestoner/milestoner/pkg/timeline"
)

// Workbook layout. Rows are 1-based as shown in a spreadsheet.
const (
	ParamsHeaderRow    = 2
	ParamsRowCount     = 8
	MilestoneHeaderRow = 13
	BooleanTrue        = "Yes"
	DefaultSheetPrefix = "CPT"
)

// Parameter names in the parameter table.
const (
	ParamStartDate      = "start_date"
	ParamEndDate        = "end_date"
	ParamNumberInMarker = "include_ms_num_in_ms"
	ParamNumberInLabel  = "include_ms_num_in_text"
	ParamMilestoneLeft  = "milestone_left"
	ParamMilestoneRight = "milestone_right"
	ParamCentreVertical = "centre_vertical_position"
	ParamNumTextTracks  = "num_text_tracks"
)

// Column headers.
const (
	paramNameHeader  = "Parameter Name"
	paramValueHeader = "Value"

	// The parameter table lives in columns B:D.
	paramsFirstColumn = 1
	paramsColumnCount = 3

	colMilestoneNumber   = "Milestone Number"
	colMilestoneName     = "Milestone Name"
	colDate              = "Date"
	colMilestoneLevel    = "Milestone Level"
	colMilestoneOverride = "Milestone Track Override"
	colTextboxOverride   = "Textbox Track Override"
)

// dateLayouts are tried in order for date cells holding text.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02/01/2006",
	"2/1/2006",
}

// ReadWorkbook reads every timeline sheet of an .xlsx workbook. A sheet is a
// timeline when its name starts with the configured prefix.
func ReadWorkbook(path string, opts Options) ([]*timeline.Timeline, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			opts.Logger.Warn().Err(err).Str("path", path).Msg("Failed to close workbook")
		}
	}()

	var out []*timeline.Timeline
	for _, sheet := range f.GetSheetList() {
		if !strings.HasPrefix(sheet, opts.SheetPrefix) {
			opts.Logger.Debug().Str("sheet", sheet).Msg("Skipping sheet without timeline prefix")
			continue
		}

		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}

		tl, err := parseSheet(sheet, rows)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}

		opts.Logger.Info().Str("sheet", sheet).Int("milestones", tl.Len()).Msg("Read timeline sheet")
		out = append(out, tl)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no sheets with prefix %q in %s", ErrNoTimelines, opts.SheetPrefix, path)
	}
	return out, nil
}

func parseSheet(name string, rows [][]string) (*timeline.Timeline, error) {
	params, err := parseParameters(rows)
	if err != nil {
		return nil, err
	}
	cfg, err := params.config()
	if err != nil {
		return nil, err
	}
	milestones, err := parseMilestones(rows)
	if err != nil {
		return nil, err
	}
	return timeline.NewTimeline(name, cfg, milestones)
}

// parameterTable holds the raw values keyed by parameter name.
type parameterTable map[string]string

func parseParameters(rows [][]string) (parameterTable, error) {
	header := cells(rows, ParamsHeaderRow)
	nameCol, valueCol := -1, -1
	for c := paramsFirstColumn; c < paramsFirstColumn+paramsColumnCount && c < len(header); c++ {
		switch strings.TrimSpace(header[c]) {
		case paramNameHeader:
			nameCol = c
		case paramValueHeader:
			valueCol = c
		}
	}
	if nameCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("%w: parameter table header (%q, %q) not found on row %d",
			ErrBadLayout, paramNameHeader, paramValueHeader, ParamsHeaderRow)
	}

	params := make(parameterTable, ParamsRowCount)
	for r := ParamsHeaderRow + 1; r <= ParamsHeaderRow+ParamsRowCount; r++ {
		row := cells(rows, r)
		name := strings.TrimSpace(cell(row, nameCol))
		if name == "" {
			continue
		}
		params[name] = strings.TrimSpace(cell(row, valueCol))
	}
	return params, nil
}

func (p parameterTable) config() (timeline.Config, error) {
	var cfg timeline.Config
	var err error

	if cfg.StartDate, err = p.date(ParamStartDate); err != nil {
		return cfg, err
	}
	if cfg.EndDate, err = p.date(ParamEndDate); err != nil {
		return cfg, err
	}
	if cfg.LeftX, err = p.number(ParamMilestoneLeft); err != nil {
		return cfg, err
	}
	if cfg.RightX, err = p.number(ParamMilestoneRight); err != nil {
		return cfg, err
	}
	if cfg.CenterY, err = p.number(ParamCentreVertical); err != nil {
		return cfg, err
	}
	tracks, err := p.number(ParamNumTextTracks)
	if err != nil {
		return cfg, err
	}
	if cfg.NumTextTracks, err = integral(tracks); err != nil {
		return cfg, fmt.Errorf("parameter %s: %w", ParamNumTextTracks, err)
	}
	cfg.IncludeNumberInMarker = p[ParamNumberInMarker] == BooleanTrue
	cfg.IncludeNumberInLabel = p[ParamNumberInLabel] == BooleanTrue

	return cfg.WithDefaultTracks(), nil
}

func (p parameterTable) required(name string) (string, error) {
	v, ok := p[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: parameter %s", ErrMissingParameter, name)
	}
	return v, nil
}

func (p parameterTable) date(name string) (time.Time, error) {
	v, err := p.required(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parameter %s: %w", name, err)
	}
	return t, nil
}

func (p parameterTable) number(name string) (float64, error) {
	v, err := p.required(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %q is not a number", name, v)
	}
	return f, nil
}

func parseMilestones(rows [][]string) ([]timeline.Milestone, error) {
	header := cells(rows, MilestoneHeaderRow)
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if h = strings.TrimSpace(h); h != "" {
			if _, seen := cols[h]; !seen {
				cols[h] = i
			}
		}
	}
	for _, required := range []string{colMilestoneNumber, colMilestoneName, colDate, colMilestoneLevel} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: milestone column %q not found on row %d",
				ErrBadLayout, required, MilestoneHeaderRow)
		}
	}
	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cell(row, i))
	}

	var out []timeline.Milestone
	for r := MilestoneHeaderRow + 1; r <= len(rows); r++ {
		row := cells(rows, r)
		rawNumber := get(row, colMilestoneNumber)
		if rawNumber == "" {
			continue
		}

		m, err := parseMilestoneRow(
			rawNumber,
			get(row, colMilestoneName),
			get(row, colDate),
			get(row, colMilestoneLevel),
		)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		m.MarkerTrackOverride = timeline.ParseTrackOverride(get(row, colMilestoneOverride))
		m.LabelTrackOverride = timeline.ParseTrackOverride(get(row, colTextboxOverride))
		out = append(out, m)
	}
	return out, nil
}

func parseMilestoneRow(number, name, date, level string) (timeline.Milestone, error) {
	var m timeline.Milestone

	n, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return m, fmt.Errorf("milestone number %q is not a number", number)
	}
	if m.Number, err = integral(n); err != nil {
		return m, fmt.Errorf("milestone number: %w", err)
	}

	if m.Date, err = ParseDate(date); err != nil {
		return m, fmt.Errorf("milestone %d date: %w", m.Number, err)
	}

	l, err := strconv.ParseFloat(level, 64)
	if err != nil {
		return m, fmt.Errorf("milestone %d level %q is not a number", m.Number, level)
	}
	if m.Level, err = integral(l); err != nil {
		return m, fmt.Errorf("milestone %d level: %w", m.Number, err)
	}

	m.Text = name
	return m, nil
}

// ParseDate reads a date cell: an Excel serial number or one of the common
// text layouts. The time of day is dropped.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", raw, err)
		}
		return dateOnly(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func integral(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%g is not a whole number", f)
	}
	return int(f), nil
}

// cells returns a 1-based row, or nil past the end of the sheet.
func cells(rows [][]string, row int) []string {
	if row < 1 || row > len(rows) {
		return nil
	}
	return rows[row-1]
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
