package arp

// Velocity walks the configured velocity pattern, one step per note.
type Velocity struct {
	cursor int
}

// next returns the velocity under the cursor and advances it. length is
// already clamped to [1, MaxPatternSteps].
func (v *Velocity) next(pattern *[MaxPatternSteps]float64, length int) uint8 {
	if v.cursor >= length {
		v.cursor %= length
	}
	val := pattern[v.cursor]
	v.cursor = (v.cursor + 1) % length
	switch {
	case val != val || val < 0:
		return 0
	case val > 127:
		return 127
	}
	return uint8(val)
}

func (v *Velocity) reset() { v.cursor = 0 }

// Cursor is the pattern step the next note will use.
func (v *Velocity) Cursor() int { return v.cursor }
