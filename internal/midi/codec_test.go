package midi

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/arpeggio-go/internal/arp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		msg     gomidi.Message
		channel int
		want    arp.Event
		ok      bool
	}{
		{"note on omni", gomidi.NoteOn(2, 60, 100), Omni, arp.NoteOn(0, 60, 100), true},
		{"note on matching channel", gomidi.NoteOn(2, 61, 90), 2, arp.NoteOn(0, 61, 90), true},
		{"note on other channel", gomidi.NoteOn(2, 61, 90), 3, arp.Event{}, false},
		{"note off", gomidi.NoteOff(0, 64), Omni, arp.NoteOff(0, 64), true},
		{"velocity zero", gomidi.Message{0x90, 67, 0}, Omni, arp.NoteOff(0, 67), true},
		{"control change", gomidi.ControlChange(0, 7, 100), Omni, arp.Event{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.msg, tt.channel)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	msg, ok := Encode(arp.NoteOn(5, 72, 80), 9)
	require.True(t, ok)
	assert.Equal(t, []byte{0x99, 72, 80}, []byte(msg))

	msg, ok = Encode(arp.NoteOff(5, 72), 0)
	require.True(t, ok)
	var ch, key uint8
	require.True(t, msg.GetNoteEnd(&ch, &key))
	assert.Equal(t, uint8(72), key)

	_, ok = Encode(arp.Event{Msg: [3]byte{0xB0, 1, 2}}, 0)
	assert.False(t, ok)
}

func TestAllNotesOffMessage(t *testing.T) {
	assert.Equal(t, []byte{0xB1, 123, 0}, []byte(AllNotesOff(1)))
}
