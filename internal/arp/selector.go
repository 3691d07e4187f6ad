package arp

// Selector walks the slot table to pick the next sounding voice.
type Selector struct {
	notePlayed int  // slot under consideration
	up         bool // bounce direction
	lastPlayed int  // slot of the last emitted note
}

// trigger looks for the next held slot, at most NumVoices attempts, and
// emits its note-on. Nothing is emitted when no slot is held.
func (a *Arpeggiator) trigger(p *Params, frame uint32, out *Buffer) {
	s := &a.sel
	for searched := 0; searched < NumVoices; searched++ {
		found := false
		if pitch, held := a.reg.At(s.notePlayed); held {
			octave := a.oct.next(p.OctaveMode, p.OctaveSpread, s.notePlayed)
			velocity := a.vel.next(&p.Velocities, p.PatternLength)
			note := transpose(pitch, octave)
			a.offs.schedule(note, frame, out)
			out.Append(NoteOn(frame, note, velocity))
			s.lastPlayed = s.notePlayed
			found = true
		}
		s.advance(p.ArpMode, a.reg.Active())
		if found {
			return
		}
	}
}

// advance moves the slot index one step according to the direction mode.
func (s *Selector) advance(mode ArpMode, active int) {
	if mode == ArpUp {
		s.notePlayed = (s.notePlayed + 1) % NumVoices
		return
	}
	if s.up {
		s.notePlayed++
		if s.notePlayed >= NumVoices {
			s.up = false
			if active > 1 {
				s.notePlayed = s.lastPlayed - 1
			} else {
				s.notePlayed = s.lastPlayed
			}
			if s.notePlayed < 0 {
				s.notePlayed = 0
			}
		}
		return
	}
	s.notePlayed--
	if s.notePlayed <= 0 {
		s.notePlayed = 0
		s.up = true
	}
}

func (s *Selector) reset() {
	s.notePlayed = 0
}

// transpose adds an octave offset, folding the result back into the MIDI
// range by whole octaves.
func transpose(pitch uint8, offset int) uint8 {
	n := int(pitch) + offset
	for n > 127 {
		n -= 12
	}
	return uint8(n)
}
