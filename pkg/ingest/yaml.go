package ingest

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/milestoner/milestoner/pkg/timeline"
)

// Document is the YAML form of a set of timelines. Parameter names follow
// the workbook's parameter table.
type Document struct {
	Timelines []TimelineDoc `yaml:"timelines" validate:"dive"`
}

// TimelineDoc is one timeline in a Document.
type TimelineDoc struct {
	Name       string         `yaml:"name" validate:"required"`
	Parameters ParametersDoc  `yaml:"parameters"`
	Milestones []MilestoneDoc `yaml:"milestones" validate:"dive"`
}

// ParametersDoc mirrors the workbook parameter table.
type ParametersDoc struct {
	StartDate              time.Time `yaml:"start_date" validate:"required"`
	EndDate                time.Time `yaml:"end_date" validate:"required"`
	IncludeNumberInMarker  bool      `yaml:"include_ms_num_in_ms"`
	IncludeNumberInLabel   bool      `yaml:"include_ms_num_in_text"`
	MilestoneLeft          float64   `yaml:"milestone_left"`
	MilestoneRight         float64   `yaml:"milestone_right" validate:"gtfield=MilestoneLeft"`
	CentreVerticalPosition float64   `yaml:"centre_vertical_position"`
	NumTextTracks          int       `yaml:"num_text_tracks" validate:"required,min=1"`

	// Optional track geometry; zero values take the defaults.
	MarkerTracks timeline.TrackGeometry `yaml:"marker_tracks"`
	LabelTracks  timeline.TrackGeometry `yaml:"label_tracks"`
}

// MilestoneDoc is one milestone row.
type MilestoneDoc struct {
	Number                 int       `yaml:"number" validate:"required"`
	Name                   string    `yaml:"name"`
	Date                   time.Time `yaml:"date" validate:"required"`
	Level                  int       `yaml:"level" validate:"required,min=1"`
	MilestoneTrackOverride TrackCell `yaml:"milestone_track_override,omitempty"`
	TextboxTrackOverride   TrackCell `yaml:"textbox_track_override,omitempty"`
}

// TrackCell is an override column. Like a workbook cell it accepts any
// scalar; blank and non-numeric values decode as no override.
type TrackCell struct {
	Track *int
}

// UnmarshalYAML implements yaml.Unmarshaler. It never fails.
func (c *TrackCell) UnmarshalYAML(node *yaml.Node) error {
	c.Track = nil
	if node.Kind == yaml.ScalarNode {
		c.Track = timeline.ParseTrackOverride(node.Value)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c TrackCell) MarshalYAML() (any, error) {
	if c.Track == nil {
		return nil, nil
	}
	return *c.Track, nil
}

// IsZero reports whether the cell is empty, so omitempty drops it.
func (c TrackCell) IsZero() bool {
	return c.Track == nil
}

// ReadYAML reads timelines from a YAML document.
func ReadYAML(path string, opts Options) ([]*timeline.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	timelines, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, tl := range timelines {
		opts.Logger.Info().Str("timeline", tl.Name()).Int("milestones", tl.Len()).Msg("Read timeline")
	}
	return timelines, nil
}

// ParseYAML decodes and validates a YAML document.
func ParseYAML(data []byte) ([]*timeline.Timeline, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if len(doc.Timelines) == 0 {
		return nil, ErrNoTimelines
	}

	out := make([]*timeline.Timeline, 0, len(doc.Timelines))
	for _, td := range doc.Timelines {
		tl, err := td.timeline()
		if err != nil {
			return nil, fmt.Errorf("timeline %s: %w", td.Name, err)
		}
		out = append(out, tl)
	}
	return out, nil
}

func (td TimelineDoc) timeline() (*timeline.Timeline, error) {
	p := td.Parameters
	cfg := timeline.Config{
		StartDate:             dateOnly(p.StartDate),
		EndDate:               dateOnly(p.EndDate),
		LeftX:                 p.MilestoneLeft,
		RightX:                p.MilestoneRight,
		CenterY:               p.CentreVerticalPosition,
		NumTextTracks:         p.NumTextTracks,
		IncludeNumberInMarker: p.IncludeNumberInMarker,
		IncludeNumberInLabel:  p.IncludeNumberInLabel,
		MarkerTracks:          p.MarkerTracks,
		LabelTracks:           p.LabelTracks,
	}

	milestones := make([]timeline.Milestone, 0, len(td.Milestones))
	for _, md := range td.Milestones {
		milestones = append(milestones, timeline.Milestone{
			Number:              md.Number,
			Text:                md.Name,
			Date:                dateOnly(md.Date),
			Level:               md.Level,
			MarkerTrackOverride: md.MilestoneTrackOverride.Track,
			LabelTrackOverride:  md.TextboxTrackOverride.Track,
		})
	}
	return timeline.NewTimeline(td.Name, cfg, milestones)
}

// MarshalYAML renders timelines as a Document.
func MarshalYAML(timelines []*timeline.Timeline) ([]byte, error) {
	doc := Document{Timelines: make([]TimelineDoc, 0, len(timelines))}
	for _, tl := range timelines {
		cfg := tl.Config()
		td := TimelineDoc{
			Name: tl.Name(),
			Parameters: ParametersDoc{
				StartDate:              cfg.StartDate,
				EndDate:                cfg.EndDate,
				IncludeNumberInMarker:  cfg.IncludeNumberInMarker,
				IncludeNumberInLabel:   cfg.IncludeNumberInLabel,
				MilestoneLeft:          cfg.LeftX,
				MilestoneRight:         cfg.RightX,
				CentreVerticalPosition: cfg.CenterY,
				NumTextTracks:          cfg.NumTextTracks,
				MarkerTracks:           cfg.MarkerTracks,
				LabelTracks:            cfg.LabelTracks,
			},
		}
		for _, m := range tl.Milestones() {
			td.Milestones = append(td.Milestones, MilestoneDoc{
				Number:                 m.Number,
				Name:                   m.Text,
				Date:                   m.Date,
				Level:                  m.Level,
				MilestoneTrackOverride: TrackCell{Track: m.MarkerTrackOverride},
				TextboxTrackOverride:   TrackCell{Track: m.LabelTrackOverride},
			})
		}
		doc.Timelines = append(doc.Timelines, td)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
