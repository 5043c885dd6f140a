package render

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/milestoner/milestoner/pkg/engine"
	"github.com/milestoner/milestoner/pkg/timeline"
)

// Renderer draws a plan onto an output stream.
type Renderer interface {
	// Format is the short name of the output format, also used as the file
	// extension.
	Format() string

	// Render writes the plan. Operations are drawn in plan order.
	Render(w io.Writer, plan *engine.DrawPlan, cfg timeline.Config) error
}

// Options configures the renderers returned by ForFormat.
type Options struct {
	// Scale is the number of SVG pixels per canvas unit.
	Scale float64
}

// ForFormat returns the renderer for a format name.
func ForFormat(name string, opts Options) (Renderer, error) {
	switch strings.ToLower(name) {
	case "svg":
		return NewSVGRenderer(opts.Scale), nil
	case "json":
		return NewJSONRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want svg or json)", name)
	}
}

// OutputPath is the file a timeline is written to: <name>_out.<format>.
func OutputPath(dir, timelineName, format string) string {
	return filepath.Join(dir, sanitize(timelineName)+"_out."+format)
}

// sanitize replaces characters that are unsafe in file names.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
