package arp

import "math"

type pendingOff struct {
	pitch   uint8
	elapsed uint32
	used    bool
}

// NoteOffs is the table of sounding notes waiting for their release, one
// entry per voice, polled once per sample.
type NoteOffs struct {
	pending [NumVoices]pendingOff
}

// schedule starts timing pitch. A pitch that is still sounding is released
// first (into out at frame) so a pitch never has two pending entries. With
// no free entry the note is not tracked.
func (n *NoteOffs) schedule(pitch uint8, frame uint32, out *Buffer) {
	free := -1
	for i := range n.pending {
		p := &n.pending[i]
		if p.used && p.pitch == pitch {
			out.Append(NoteOff(frame, pitch))
			p.elapsed = 0
			return
		}
		if !p.used && free < 0 {
			free = i
		}
	}
	if free >= 0 {
		n.pending[free] = pendingOff{pitch: pitch, used: true}
	}
}

// tick advances every pending entry by one sample and releases those whose
// elapsed time exceeds hold samples.
func (n *NoteOffs) tick(hold uint32, frame uint32, out *Buffer) {
	for i := range n.pending {
		p := &n.pending[i]
		if !p.used {
			continue
		}
		p.elapsed++
		if p.elapsed > hold {
			out.Append(NoteOff(frame, p.pitch))
			*p = pendingOff{}
		}
	}
}

// flush releases every sounding note immediately.
func (n *NoteOffs) flush(frame uint32, out *Buffer) {
	for i := range n.pending {
		if n.pending[i].used {
			out.Append(NoteOff(frame, n.pending[i].pitch))
			n.pending[i] = pendingOff{}
		}
	}
}

// Sounding counts notes that have been started and not yet released.
func (n *NoteOffs) Sounding() int {
	c := 0
	for i := range n.pending {
		if n.pending[i].used {
			c++
		}
	}
	return c
}

// holdSamples is the number of samples a note sounds for a given period.
func holdSamples(period uint32, noteLength float64) uint32 {
	h := math.Round(float64(period) * noteLength)
	if h <= 0 {
		return 0
	}
	if h >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(h)
}
