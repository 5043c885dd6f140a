package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/milestoner/milestoner/pkg/timeline"
)

var (
	// ErrUnsupportedFormat is returned for input files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrNoTimelines is returned when an input defines no timelines.
	ErrNoTimelines = errors.New("no timelines found")

	// ErrMissingParameter is returned when a required parameter has no value.
	ErrMissingParameter = errors.New("missing timeline parameter")

	// ErrBadLayout is returned when a workbook sheet does not have the
	// expected tables.
	ErrBadLayout = errors.New("unexpected sheet layout")
)

// Options controls how inputs are read.
type Options struct {
	// SheetPrefix selects workbook sheets that hold timelines.
	SheetPrefix string

	// Logger receives progress and warnings.
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.SheetPrefix == "" {
		o.SheetPrefix = DefaultSheetPrefix
	}
	return o
}

// Format returns the input format implied by a path's extension.
func Format(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Read reads the timelines in path, choosing the reader by extension.
func Read(path string, opts Options) ([]*timeline.Timeline, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "xlsx":
		return ReadWorkbook(path, opts)
	default:
		return ReadYAML(path, opts)
	}
}

// Load reads the timelines in path into a new manager.
func Load(path string, opts Options) (*timeline.Manager, error) {
	timelines, err := Read(path, opts)
	if err != nil {
		return nil, err
	}

	mgr := timeline.NewManager()
	for _, tl := range timelines {
		if err := mgr.Add(tl); err != nil {
			return nil, fmt.Errorf("failed to register timeline: %w", err)
		}
	}
	return mgr, nil
}
