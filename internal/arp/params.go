package arp

import "math"

const (
	// NumVoices is the capacity of the slot table and of the pending
	// note-off buffer.
	NumVoices = 16
	// MaxPatternSteps is the number of configurable velocity steps.
	MaxPatternSteps = 8
)

// ArpMode selects the direction policy of the note selector.
type ArpMode int

const (
	ArpUp     ArpMode = 0 // cyclic, slot order
	ArpBounce ArpMode = 1 // any non-zero value bounces
)

// OctaveMode selects how the octave offset moves per emitted note.
type OctaveMode int

const (
	OctaveUp OctaveMode = iota
	OctaveDown
	OctaveUpDown
	OctaveDownUp
)

// Params are the control values re-read at every block.
type Params struct {
	BPM           float64 // tempo used when Sync is off
	ArpMode       ArpMode
	Latch         bool
	Divisions     float64 // notes per two beats (4 = sixteenths at 4/4)
	Sync          bool    // follow the host transport tempo and phase
	NoteLength    float64 // fraction of the period a note sounds
	OctaveSpread  int
	OctaveMode    OctaveMode
	PatternLength int
	Velocities    [MaxPatternSteps]float64
}

// DefaultParams returns the values a freshly loaded arpeggiator starts with.
func DefaultParams() Params {
	p := Params{
		BPM:           120,
		ArpMode:       ArpUp,
		Divisions:     4,
		NoteLength:    0.5,
		OctaveSpread:  1,
		OctaveMode:    OctaveUp,
		PatternLength: 1,
	}
	for i := range p.Velocities {
		p.Velocities[i] = 100
	}
	return p
}

// clamped returns a copy safe for modulo and period arithmetic.
func (p Params) clamped() Params {
	if math.IsNaN(p.Divisions) || p.Divisions <= 0 {
		p.Divisions = 1
	}
	if math.IsNaN(p.NoteLength) || p.NoteLength < 0 {
		p.NoteLength = 0
	}
	if p.OctaveSpread < 1 {
		p.OctaveSpread = 1
	}
	if p.OctaveMode < OctaveUp || p.OctaveMode > OctaveDownUp {
		p.OctaveMode = OctaveUp
	}
	if p.PatternLength < 1 {
		p.PatternLength = 1
	}
	if p.PatternLength > MaxPatternSteps {
		p.PatternLength = MaxPatternSteps
	}
	return p
}
