package arp

// Octave produces the semitone offset applied to each emitted note.
// Its index and direction are re-initialised only when the mode changes.
type Octave struct {
	index    int
	up       bool
	prevMode OctaveMode
}

// next returns the offset for the note about to be emitted from slot
// notePlayed and advances the octave state. spread must be at least 1.
func (o *Octave) next(mode OctaveMode, spread, notePlayed int) int {
	if mode != o.prevMode {
		o.enter(mode, spread, notePlayed)
	}
	if spread <= 1 {
		o.index = 0
		return 0
	}

	var offset int
	switch mode {
	case OctaveUp:
		o.index %= spread
		offset = 12 * o.index
		o.index = (o.index + 1) % spread
	case OctaveDown:
		// OctaveDown starts one octave above the top of the range, so the
		// first note after a mode change is allowed to use index == spread.
		o.index = clampInt(o.index, 0, spread)
		offset = 12 * o.index
		o.index--
		if o.index < 0 {
			o.index = spread - 1
		}
	case OctaveUpDown, OctaveDownUp:
		o.index = clampInt(o.index, 0, spread-1)
		offset = 12 * o.index
		if o.up && o.index >= spread-1 {
			o.up = false
		}
		if !o.up && o.index <= 0 {
			o.up = true
		}
		if o.up {
			o.index++
		} else {
			o.index--
		}
	}
	return offset
}

func (o *Octave) enter(mode OctaveMode, spread, notePlayed int) {
	switch mode {
	case OctaveUp:
		o.index = notePlayed % spread
	case OctaveDown:
		o.index = spread
	case OctaveUpDown:
		o.index = notePlayed % (2 * spread)
		if o.index > spread {
			o.index = absInt(spread-(o.index-spread)) % spread
		}
		o.up = true
	case OctaveDownUp:
		o.index = spread
		o.up = false
	}
	o.prevMode = mode
}

func (o *Octave) reset() { o.index = 0 }

// Index is the octave index the next note will use (before clamping).
func (o *Octave) Index() int { return o.index }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
