package engine

// OrientationState tracks which side of the centre line the next milestone
// of each level goes to. Levels alternate independently, starting below the
// line (+1).
type OrientationState struct {
	sides map[int]int
}

// NewOrientationState creates a state with every level below the line.
func NewOrientationState() *OrientationState {
	return &OrientationState{sides: make(map[int]int)}
}

// Current returns +1 or -1 for the level.
func (o *OrientationState) Current(level int) int {
	if side, ok := o.sides[level]; ok {
		return side
	}
	return 1
}

// Flip switches the level to the other side.
func (o *OrientationState) Flip(level int) {
	o.sides[level] = -o.Current(level)
}
