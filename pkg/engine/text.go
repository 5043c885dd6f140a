package engine

import (
	"fmt"
	"strconv"

	"github.com/milestoner/milestoner/pkg/timeline"
)

// LabelDateFormat is the date layout used in label headers.
const LabelDateFormat = "02-Jan-2006"

// LabelText is the text shown in a milestone's label box: a header line with
// the date, optionally prefixed by the milestone number, then the description.
func LabelText(cfg timeline.Config, m timeline.Milestone) string {
	return labelHeader(cfg.IncludeNumberInLabel, m) + "\n" + m.Text
}

// MarkerText is the text shown inside a marker shape.
func MarkerText(cfg timeline.Config, m timeline.Milestone) string {
	if !cfg.IncludeNumberInMarker {
		return ""
	}
	return strconv.Itoa(m.Number)
}

// debugLabelText replaces the description with the layout values used to
// place the label.
func debugLabelText(m timeline.Milestone, day int, proportion, shift float64) string {
	return fmt.Sprintf("%s\nday=%d proportion=%.4f shift=%.4f",
		labelHeader(true, m), day, proportion, shift)
}

func labelHeader(withNumber bool, m timeline.Milestone) string {
	date := m.Date.Format(LabelDateFormat)
	if withNumber {
		return fmt.Sprintf("[%d]-[%s]", m.Number, date)
	}
	return fmt.Sprintf("[%s]", date)
}
