package arp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timed is an emitted event with its absolute frame.
type timed struct {
	frame uint64
	ev    Event
}

// rig drives an Arpeggiator block by block and records absolute frames.
type rig struct {
	t      *testing.T
	a      *Arpeggiator
	params Params
	block  int
	now    uint64
	out    *Buffer
	got    []timed
}

func newRig(t *testing.T, p Params) *rig {
	t.Helper()
	a, err := New(48000, p)
	require.NoError(t, err)
	return &rig{t: t, a: a, params: p, block: 256, out: NewBuffer(64)}
}

// run processes frames samples, delivering in (and transport) with the
// first block.
func (r *rig) run(frames int, in []Event, transport []Transport) {
	for frames > 0 {
		n := r.block
		if n > frames {
			n = frames
		}
		r.out.Reset()
		r.a.Process(n, r.params, transport, in, r.out)
		require.Zero(r.t, r.out.Dropped())
		for _, ev := range r.out.Events() {
			r.got = append(r.got, timed{frame: r.now + uint64(ev.Frame), ev: ev})
		}
		in, transport = nil, nil
		r.now += uint64(n)
		frames -= n
	}
}

func (r *rig) noteOns() []timed {
	var ons []timed
	for _, g := range r.got {
		if g.ev.IsNoteOn() {
			ons = append(ons, g)
		}
	}
	return ons
}

func pitches(ts []timed) []uint8 {
	out := make([]uint8, len(ts))
	for i, t := range ts {
		out[i] = t.ev.Pitch()
	}
	return out
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	for _, sr := range []float64{0, -1} {
		_, err := New(sr, DefaultParams())
		require.Error(t, err)
	}
}

func TestSixteenthsAt120BPM(t *testing.T) {
	p := DefaultParams()
	p.NoteLength = 0.25
	r := newRig(t, p)
	r.run(12000*3, []Event{NoteOn(0, 60, 100)}, nil)

	require.Equal(t, uint32(12000), r.a.clock.Period())
	want := []timed{
		{0, NoteOn(0, 60, 100)},
		{3000, NoteOff(0, 60)},
		{12000, NoteOn(0, 60, 100)},
		{15000, NoteOff(0, 60)},
		{24000, NoteOn(0, 60, 100)},
		{27000, NoteOff(0, 60)},
	}
	require.Len(t, r.got, len(want))
	for i := range want {
		assert.Equal(t, want[i].frame, r.got[i].frame, "event %d", i)
		assert.Equal(t, want[i].ev.Msg, r.got[i].ev.Msg, "event %d", i)
	}
}

func TestNoteOffOffsetIsRoundedHold(t *testing.T) {
	for _, length := range []float64{0.1, 0.3333, 0.5, 0.77, 1} {
		p := DefaultParams()
		p.NoteLength = length
		r := newRig(t, p)
		r.run(12000*2+10, []Event{NoteOn(0, 72, 90)}, nil)

		want := uint64(holdSamples(12000, length))
		var on, off []uint64
		for _, g := range r.got {
			if g.ev.IsNoteOn() {
				on = append(on, g.frame)
			} else {
				off = append(off, g.frame)
			}
		}
		require.NotEmpty(t, off, "length %v", length)
		assert.Equal(t, on[0]+want, off[0], "length %v", length)
	}
}

func TestTwoNotesCycleInInsertionOrder(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.run(12000*6, []Event{NoteOn(0, 60, 100), NoteOn(0, 64, 100)}, nil)
	assert.Equal(t, []uint8{60, 64, 60, 64, 60, 64}, pitches(r.noteOns()))
}

func TestSlotOrderIsNotPitchOrder(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.run(12000*3, []Event{NoteOn(0, 67, 100), NoteOn(0, 60, 100), NoteOn(0, 64, 100)}, nil)
	assert.Equal(t, []uint8{67, 60, 64}, pitches(r.noteOns()))
}

func TestBounceDirection(t *testing.T) {
	p := DefaultParams()
	p.ArpMode = ArpBounce
	r := newRig(t, p)
	r.run(12000*9, []Event{NoteOn(0, 60, 100), NoteOn(0, 64, 100), NoteOn(0, 67, 100)}, nil)
	assert.Equal(t, []uint8{60, 64, 67, 64, 60, 64, 67, 64, 60}, pitches(r.noteOns()))
}

func TestBounceReachesLastSlot(t *testing.T) {
	p := DefaultParams()
	p.ArpMode = ArpBounce
	r := newRig(t, p)
	in := make([]Event, 0, NumVoices)
	for i := 0; i < NumVoices; i++ {
		in = append(in, NoteOn(0, uint8(40+i), 100))
	}
	r.run(12000*NumVoices, in, nil)
	ons := pitches(r.noteOns())
	require.Len(t, ons, NumVoices)
	assert.Equal(t, uint8(40+NumVoices-1), ons[NumVoices-1])
}

func TestSilenceWithoutHeldNotes(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.run(48000, nil, nil)
	assert.Empty(t, r.got)
}

func TestReleaseStopsArpeggio(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.run(12000, []Event{NoteOn(0, 60, 100)}, nil)
	r.run(12000*3, []Event{NoteOff(0, 60)}, nil)

	ons := r.noteOns()
	require.Len(t, ons, 1)
	assert.Equal(t, uint64(0), ons[0].frame)
	assert.Equal(t, 0, r.a.reg.Held())
	assert.Equal(t, 0, r.a.offs.Sounding())
}

func TestVelocityZeroNoteOnReleases(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.run(256, []Event{NoteOn(0, 60, 100)}, nil)
	r.run(256, []Event{NoteOn(0, 60, 0)}, nil)
	assert.Equal(t, 0, r.a.reg.Held())
	assert.Equal(t, 0, r.a.reg.Active())
}

func TestLatchScenario(t *testing.T) {
	p := DefaultParams()
	r := newRig(t, p)
	r.params.Latch = true
	r.run(256, nil, nil)
	assert.Equal(t, 0, r.a.reg.Held())

	r.run(256, []Event{NoteOn(0, 67, 100)}, nil)
	assert.True(t, r.a.reg.LatchPlaying())
	assert.Equal(t, [NumVoices]int{67, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, r.a.Status().Slots)

	r.run(256, []Event{NoteOff(0, 67)}, nil)
	pitch, held := r.a.reg.At(0)
	assert.True(t, held)
	assert.Equal(t, uint8(67), pitch)

	r.run(12000*2, nil, nil)
	assert.Equal(t, []uint8{67, 67, 67}, pitches(r.noteOns()))
}

func TestLatchReplacesStaleSet(t *testing.T) {
	p := DefaultParams()
	p.Latch = true
	r := newRig(t, p)
	r.run(256, []Event{NoteOn(0, 60, 100), NoteOn(0, 64, 100)}, nil)
	r.run(256, []Event{NoteOff(0, 60), NoteOff(0, 64)}, nil)
	assert.Equal(t, 2, r.a.reg.Held())

	r.run(256, []Event{NoteOn(0, 70, 100)}, nil)
	assert.Equal(t, 1, r.a.reg.Held())
	pitch, _ := r.a.reg.At(0)
	assert.Equal(t, uint8(70), pitch)
}

func TestLatchToggleClearsTable(t *testing.T) {
	p := DefaultParams()
	p.Latch = true
	r := newRig(t, p)
	r.run(256, []Event{NoteOn(0, 60, 100)}, nil)
	require.Equal(t, 1, r.a.reg.Held())

	r.params.Latch = false
	r.run(256, nil, nil)
	assert.Equal(t, 0, r.a.reg.Held())
}

func TestSlotCountNeverExceedsActive(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.block = 64
	seq := []Event{
		NoteOn(0, 60, 100), NoteOn(0, 62, 100), NoteOff(0, 60),
		NoteOn(0, 64, 100), NoteOn(0, 65, 100), NoteOff(0, 62),
		NoteOff(0, 99), NoteOn(0, 67, 100), NoteOff(0, 64),
		NoteOff(0, 65), NoteOff(0, 67), NoteOn(0, 60, 100),
	}
	for _, ev := range seq {
		r.run(64, []Event{ev}, nil)
		assert.LessOrEqual(t, r.a.reg.Held(), r.a.reg.Active())
	}
}

func TestSeventeenthNoteDropped(t *testing.T) {
	r := newRig(t, DefaultParams())
	in := make([]Event, 0, NumVoices+1)
	for i := 0; i <= NumVoices; i++ {
		in = append(in, NoteOn(0, uint8(30+i), 100))
	}
	r.run(64, in, nil)
	assert.Equal(t, NumVoices, r.a.reg.Held())
	for i := 0; i < NumVoices; i++ {
		pitch, _ := r.a.reg.At(i)
		assert.NotEqual(t, uint8(30+NumVoices), pitch)
	}
}

func TestPitchZeroIsPlayable(t *testing.T) {
	r := newRig(t, DefaultParams())
	r.run(12000, []Event{NoteOn(0, 0, 100)}, nil)
	ons := r.noteOns()
	require.Len(t, ons, 1)
	assert.Equal(t, uint8(0), ons[0].ev.Pitch())
}

func TestOctaveSpreadInArpeggio(t *testing.T) {
	p := DefaultParams()
	p.OctaveSpread = 3
	p.OctaveMode = OctaveUp
	r := newRig(t, p)
	r.run(12000*6, []Event{NoteOn(0, 48, 100)}, nil)
	assert.Equal(t, []uint8{48, 60, 72, 48, 60, 72}, pitches(r.noteOns()))
}

func TestOctaveFoldsIntoMIDIRange(t *testing.T) {
	p := DefaultParams()
	p.OctaveSpread = 4
	r := newRig(t, p)
	r.run(12000*4, []Event{NoteOn(0, 120, 100)}, nil)
	for _, on := range r.noteOns() {
		assert.LessOrEqual(t, on.ev.Pitch(), uint8(127))
	}
}

func TestVelocityPatternInArpeggio(t *testing.T) {
	p := DefaultParams()
	p.PatternLength = 3
	p.Velocities = [MaxPatternSteps]float64{30, 60, 90}
	r := newRig(t, p)
	r.run(12000*6, []Event{NoteOn(0, 60, 100)}, nil)
	var vels []uint8
	for _, on := range r.noteOns() {
		vels = append(vels, on.ev.Velocity())
	}
	assert.Equal(t, []uint8{30, 60, 90, 30, 60, 90}, vels)
}

func TestFirstNoteRestartsPattern(t *testing.T) {
	p := DefaultParams()
	p.PatternLength = 2
	p.Velocities = [MaxPatternSteps]float64{10, 20}
	r := newRig(t, p)
	r.run(12000, []Event{NoteOn(0, 60, 100)}, nil)
	r.run(6000, []Event{NoteOff(0, 60)}, nil)
	r.run(12000, []Event{NoteOn(0, 62, 100)}, nil)

	ons := r.noteOns()
	require.Len(t, ons, 2)
	assert.Equal(t, uint8(10), ons[0].ev.Velocity())
	assert.Equal(t, uint8(10), ons[1].ev.Velocity())
	assert.Equal(t, uint64(18000), ons[1].frame)
}

func TestRetriggerKeepsOnePendingEntry(t *testing.T) {
	p := DefaultParams()
	p.NoteLength = 1.5
	r := newRig(t, p)
	r.run(12000*3, []Event{NoteOn(0, 60, 100)}, nil)

	assert.Equal(t, 1, r.a.offs.Sounding())
	// Each retrigger is preceded by the release of the still-sounding note.
	var kinds []bool
	for _, g := range r.got {
		kinds = append(kinds, g.ev.IsNoteOn())
	}
	assert.Equal(t, []bool{true, false, true, false, true}, kinds)
}

func TestOutputBufferCapacityRespected(t *testing.T) {
	a, err := New(48000, DefaultParams())
	require.NoError(t, err)
	p := DefaultParams()
	p.Divisions = 2000
	p.NoteLength = 0
	out := NewBuffer(3)
	a.Process(4096, p, nil, []Event{NoteOn(0, 60, 100)}, out)
	assert.Equal(t, 3, out.Len())
	assert.Positive(t, out.Dropped())
}

func TestAllNotesOff(t *testing.T) {
	p := DefaultParams()
	p.NoteLength = 1
	r := newRig(t, p)
	r.run(6000, []Event{NoteOn(0, 60, 100), NoteOn(0, 64, 100)}, nil)
	require.Equal(t, 1, r.a.offs.Sounding())

	out := NewBuffer(NumVoices)
	r.a.AllNotesOff(0, out)
	require.Equal(t, 1, out.Len())
	assert.True(t, out.Events()[0].IsNoteOff())
	assert.Equal(t, 0, r.a.offs.Sounding())
}

func TestProcessDoesNotAllocate(t *testing.T) {
	a, err := New(48000, DefaultParams())
	require.NoError(t, err)
	p := DefaultParams()
	out := NewBuffer(256)
	in := []Event{NoteOn(0, 60, 100), NoteOn(0, 64, 100)}
	tr := []Transport{{HasBPM: true, BPM: 128}}
	allocs := testing.AllocsPerRun(50, func() {
		out.Reset()
		a.Process(512, p, tr, in, out)
	})
	assert.Zero(t, allocs)
}
