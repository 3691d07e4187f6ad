// Package midi adapts the arpeggiator to real MIDI ports: message
// conversion, realtime clock following and port handling on top of gomidi.
package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/arpeggio-go/internal/arp"
)

// Omni accepts input on every channel.
const Omni = -1

// Decode converts a note message into an engine event. channel filters
// input unless it is Omni. Everything that is not a note is rejected.
func Decode(msg gomidi.Message, channel int) (arp.Event, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
	case msg.GetNoteEnd(&ch, &key):
		vel = 0
	default:
		return arp.Event{}, false
	}
	if channel != Omni && int(ch) != channel {
		return arp.Event{}, false
	}
	if vel == 0 {
		return arp.NoteOff(0, key), true
	}
	return arp.NoteOn(0, key, vel), true
}

// Encode converts an emitted engine event into a message on channel.
func Encode(ev arp.Event, channel uint8) (gomidi.Message, bool) {
	switch {
	case ev.IsNoteOn():
		return gomidi.NoteOn(channel&0x0F, ev.Pitch(), ev.Velocity()), true
	case ev.IsNoteOff():
		return gomidi.NoteOff(channel&0x0F, ev.Pitch()), true
	}
	return nil, false
}

// AllNotesOff is the channel-mode panic message sent when a host stops.
func AllNotesOff(channel uint8) gomidi.Message {
	return gomidi.ControlChange(channel&0x0F, gomidi.AllNotesOff, gomidi.Off)
}
