package arp

// MIDI status nibbles understood by the engine. The low nibble (channel) is
// ignored on input and left zero on output.
const (
	StatusNoteOff uint8 = 0x80
	StatusNoteOn  uint8 = 0x90
)

// Event is a timestamped 3-byte MIDI message. Frame is the sample offset
// inside the block being processed.
type Event struct {
	Frame uint32
	Msg   [3]byte
}

// NoteOn builds a note-on event.
func NoteOn(frame uint32, pitch, velocity uint8) Event {
	return Event{Frame: frame, Msg: [3]byte{StatusNoteOn, pitch, velocity}}
}

// NoteOff builds a note-off event.
func NoteOff(frame uint32, pitch uint8) Event {
	return Event{Frame: frame, Msg: [3]byte{StatusNoteOff, pitch, 0}}
}

func (e Event) Status() uint8 { return e.Msg[0] & 0xF0 }
func (e Event) Channel() uint8 { return e.Msg[0] & 0x0F }
func (e Event) Pitch() uint8 { return e.Msg[1] }
func (e Event) Velocity() uint8 { return e.Msg[2] }

// IsNoteOn reports a note-on with non-zero velocity.
func (e Event) IsNoteOn() bool {
	return e.Status() == StatusNoteOn && e.Msg[2] > 0
}

// IsNoteOff reports a note-off, including note-on with velocity 0.
func (e Event) IsNoteOff() bool {
	s := e.Status()
	return s == StatusNoteOff || (s == StatusNoteOn && e.Msg[2] == 0)
}

// Transport is a host position update. Each field is only applied when its
// Has flag is set.
type Transport struct {
	Frame uint32

	BarBeat    float64
	HasBarBeat bool

	BPM    float64
	HasBPM bool

	// Speed is the transport speed, 0 = stopped, 1 = playing.
	Speed    float64
	HasSpeed bool
}

// Buffer is a fixed-capacity output sequence. Append never grows the
// backing array; events past capacity are counted in Dropped.
type Buffer struct {
	events  []Event
	dropped int
}

// NewBuffer allocates a buffer that holds up to capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{events: make([]Event, 0, capacity)}
}

// Append stores ev and reports whether there was room for it.
func (b *Buffer) Append(ev Event) bool {
	if len(b.events) >= cap(b.events) {
		b.dropped++
		return false
	}
	b.events = append(b.events, ev)
	return true
}

// Reset empties the buffer and the drop counter, keeping the backing array.
func (b *Buffer) Reset() {
	b.events = b.events[:0]
	b.dropped = 0
}

// Events returns the events appended since the last Reset. The slice is
// only valid until the next Reset.
func (b *Buffer) Events() []Event { return b.events }

func (b *Buffer) Len() int { return len(b.events) }
func (b *Buffer) Cap() int { return cap(b.events) }
func (b *Buffer) Dropped() int { return b.dropped }
