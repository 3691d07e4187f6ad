// Package arp is a sample-accurate MIDI arpeggiator. One Arpeggiator is
// driven by one real-time caller, once per audio block; Process never
// allocates, locks or blocks.
package arp

import (
	"errors"
	"math"
)

// Arpeggiator owns the whole engine state: clock, held notes, octave,
// velocity and direction cursors and the pending note-offs.
type Arpeggiator struct {
	clock Clock
	reg   Registry
	oct   Octave
	vel   Velocity
	sel   Selector
	offs  NoteOffs
}

// New returns an arpeggiator at rest. initial seeds tempo and subdivision
// the way a host's activate call would.
func New(sampleRate float64, initial Params) (*Arpeggiator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, errors.New("sampleRate must be positive")
	}
	a := &Arpeggiator{
		clock: newClock(sampleRate, initial.clamped()),
		reg:   Registry{prevLatch: initial.Latch},
		sel:   Selector{up: true},
	}
	return a, nil
}

// Process runs one block of n samples. Transport updates are applied
// first, then note input in arrival order, then a latch-mode change, then
// the per-sample loop. Emitted events carry their sample offset as Frame
// and are appended to out without exceeding its capacity.
func (a *Arpeggiator) Process(n int, p Params, transport []Transport, in []Event, out *Buffer) {
	p = p.clamped()

	for i := range transport {
		a.clock.apply(transport[i])
	}

	for i := range in {
		ev := in[i]
		switch {
		case ev.IsNoteOn():
			if a.reg.noteOn(ev.Pitch(), p.Latch, p.Sync) {
				a.restart()
			}
		case ev.IsNoteOff():
			a.reg.noteOff(ev.Pitch(), p.Latch)
		}
	}

	a.reg.syncLatch(p.Latch)

	for i := 0; i < n; i++ {
		frame := uint32(i)
		if a.clock.tick(&p) {
			a.trigger(&p, frame, out)
		}
		a.offs.tick(holdSamples(a.clock.period, p.NoteLength), frame, out)
	}
}

// AllNotesOff releases every sounding arpeggiator note at frame. Hosts call
// it when they stop so no note is left hanging.
func (a *Arpeggiator) AllNotesOff(frame uint32, out *Buffer) {
	a.offs.flush(frame, out)
}

// Tempo is the tempo and step length in samples the clock runs at.
func (a *Arpeggiator) Tempo() (bpm float64, period uint32) {
	return a.clock.BPM(), a.clock.Period()
}

// restart rewinds the pattern: clock phase, octave, velocity and slot
// cursors.
func (a *Arpeggiator) restart() {
	a.clock.restart()
	a.oct.reset()
	a.vel.reset()
	a.sel.reset()
}

// Status is a copy of the engine state for display and tests.
type Status struct {
	Slots        [NumVoices]int // held pitch or -1
	Active       int
	Sounding     int
	LatchPlaying bool

	BPM      float64
	Speed    float64
	BarBeat  float64
	Position uint32
	Period   uint32
	Synced   bool

	OctaveIndex int
	PatternStep int
	NextSlot    int
	Ascending   bool
}

// Status snapshots the engine. It must be called from the goroutine that
// calls Process.
func (a *Arpeggiator) Status() Status {
	st := Status{
		Active:       a.reg.Active(),
		Sounding:     a.offs.Sounding(),
		LatchPlaying: a.reg.LatchPlaying(),
		BPM:          a.clock.BPM(),
		Speed:        a.clock.Speed(),
		BarBeat:      a.clock.BarBeat(),
		Position:     a.clock.Position(),
		Period:       a.clock.Period(),
		Synced:       a.clock.Synced(),
		OctaveIndex:  a.oct.Index(),
		PatternStep:  a.vel.Cursor(),
		NextSlot:     a.sel.notePlayed,
		Ascending:    a.sel.up,
	}
	for i := range st.Slots {
		if pitch, held := a.reg.At(i); held {
			st.Slots[i] = int(pitch)
		} else {
			st.Slots[i] = -1
		}
	}
	return st
}
