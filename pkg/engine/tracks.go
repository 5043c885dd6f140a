package engine

import "fmt"

// ZoneSeed is the starting state of one zone's label lanes.
type ZoneSeed struct {
	// Track is the first lane handed out, 1..numTracks.
	Track int `json:"track" yaml:"track"`

	// Direction is the step applied after each allocation. Positive values
	// walk outward from the centre line, negative values inward.
	Direction int `json:"direction" yaml:"direction"`
}

// DefaultZoneSeeds returns the seeds used when none are configured. The left
// and middle zones start on the outermost lane and walk inward; the right
// zone starts next to the centre line and walks outward.
func DefaultZoneSeeds(numTracks int) map[Zone]ZoneSeed {
	return map[Zone]ZoneSeed{
		ZoneLeft:   {Track: numTracks, Direction: -1},
		ZoneMiddle: {Track: numTracks, Direction: -1},
		ZoneRight:  {Track: 1, Direction: 1},
	}
}

// TrackAllocator hands out label lanes. Each zone keeps a separate cursor
// for each side of the centre line; the walk direction is shared by both
// sides of a zone. Cursors cycle through 1..numTracks.
type TrackAllocator struct {
	numTracks int
	// cursor[zone-1][side] where side 0 is below the line and 1 above.
	cursor    [3][2]int
	direction [3]int
}

// NewTrackAllocator creates an allocator for numTracks lanes per side. Zones
// missing from seeds use DefaultZoneSeeds. Seed tracks outside 1..numTracks
// wrap into range.
func NewTrackAllocator(numTracks int, seeds map[Zone]ZoneSeed) (*TrackAllocator, error) {
	if numTracks < 1 {
		return nil, NewConfigurationError(
			fmt.Sprintf("number of text tracks must be at least 1, got %d", numTracks), nil).
			WithCode(ErrCodeInvalidConfig)
	}

	defaults := DefaultZoneSeeds(numTracks)
	a := &TrackAllocator{numTracks: numTracks}
	for _, z := range Zones {
		seed, ok := seeds[z]
		if !ok {
			seed = defaults[z]
		}
		switch {
		case seed.Direction > 0:
			seed.Direction = 1
		case seed.Direction < 0:
			seed.Direction = -1
		default:
			return nil, NewConfigurationError(
				fmt.Sprintf("%s zone direction must be non-zero", z), nil).
				WithCode(ErrCodeInvalidSeed)
		}
		seed.Track = wrap(seed.Track-1, numTracks) + 1
		a.cursor[z-1] = [2]int{seed.Track, seed.Track}
		a.direction[z-1] = seed.Direction
	}
	return a, nil
}

// NumTracks returns the number of lanes per side.
func (a *TrackAllocator) NumTracks() int {
	return a.numTracks
}

// Next returns the signed lane for the zone and side, then advances that
// cursor one step in the zone's direction, wrapping at either end.
func (a *TrackAllocator) Next(zone Zone, orientation int) int {
	zi, side := a.index(zone, orientation)
	current := a.cursor[zi][side]
	a.cursor[zi][side] = wrap(current-1+a.direction[zi], a.numTracks) + 1
	return current * sideSign(side)
}

// Peek returns the signed lane Next would return without advancing.
func (a *TrackAllocator) Peek(zone Zone, orientation int) int {
	zi, side := a.index(zone, orientation)
	return a.cursor[zi][side] * sideSign(side)
}

func (a *TrackAllocator) index(zone Zone, orientation int) (int, int) {
	switch {
	case zone < ZoneLeft:
		zone = ZoneLeft
	case zone > ZoneRight:
		zone = ZoneRight
	}
	side := 0
	if orientation < 0 {
		side = 1
	}
	return int(zone) - 1, side
}

func sideSign(side int) int {
	if side == 1 {
		return -1
	}
	return 1
}

// wrap is a modulo that never returns a negative value.
func wrap(v, n int) int {
	return ((v % n) + n) % n
}
