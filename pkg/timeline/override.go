package timeline

import (
	"math"
	"strconv"
	"strings"
)

// ParseTrackOverride converts a raw override cell into a track number.
// Blank, NaN and non-numeric cells mean "no override" and yield nil.
// Integral floats such as "3.0" are accepted since spreadsheets often
// export whole numbers that way; fractional values are rejected.
func ParseTrackOverride(raw string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}

	n := int(f)
	return &n
}

// Track returns a pointer to n, for building overrides in code.
func Track(n int) *int {
	return &n
}
