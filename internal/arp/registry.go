package arp

// slot is one voice cell of the held-note table.
type slot struct {
	pitch uint8
	held  bool
}

// Registry is the fixed-capacity table of held pitches. Slots are filled in
// first-free order, so iteration order is insertion order rather than pitch.
type Registry struct {
	slots        [NumVoices]slot
	active       int
	latchPlaying bool
	prevLatch    bool
}

// noteOn stores pitch in the first free slot. It reports whether the
// registry went from idle to one held note with latch off, which is the
// caller's cue to restart the pattern. A full table drops the note.
func (r *Registry) noteOn(pitch uint8, latch, sync bool) (restart bool) {
	if r.active == 0 && !sync && !r.latchPlaying {
		restart = true
	}
	if r.active == 0 && latch {
		r.latchPlaying = true
		r.clear()
	}
	r.active++
	for i := range r.slots {
		if !r.slots[i].held {
			r.slots[i] = slot{pitch: pitch, held: true}
			break
		}
	}
	return restart
}

// noteOff releases one held instance of pitch. Under latch the slot is kept.
// With latch off a note-off that matches no slot only counts against notes
// that never got a slot, so the table never holds more pitches than active.
func (r *Registry) noteOff(pitch uint8, latch bool) {
	if latch {
		if r.active > 0 {
			r.active--
		}
		return
	}
	r.latchPlaying = false
	for i := range r.slots {
		if r.slots[i].held && r.slots[i].pitch == pitch {
			r.slots[i] = slot{}
			r.active--
			return
		}
	}
	if r.active > r.Held() {
		r.active--
	}
}

// syncLatch empties the table when the latch mode changed since the last
// block. The active counter is left alone.
func (r *Registry) syncLatch(latch bool) {
	if latch != r.prevLatch {
		r.clear()
		r.prevLatch = latch
	}
}

func (r *Registry) clear() {
	for i := range r.slots {
		r.slots[i] = slot{}
	}
}

// At returns the pitch in slot i and whether the slot is held.
func (r *Registry) At(i int) (uint8, bool) {
	if i < 0 || i >= NumVoices {
		return 0, false
	}
	s := r.slots[i]
	return s.pitch, s.held
}

// Held counts occupied slots.
func (r *Registry) Held() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].held {
			n++
		}
	}
	return n
}

// Active is the number of note-ons not yet matched by a note-off.
func (r *Registry) Active() int { return r.active }

// LatchPlaying reports whether a latched set is currently sounding.
func (r *Registry) LatchPlaying() bool { return r.latchPlaying }
