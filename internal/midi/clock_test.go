package midi

import (
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tick      = gomidi.Message{statusTimingClock}
	start     = gomidi.Message{statusStart}
	stop      = gomidi.Message{statusStop}
	cont      = gomidi.Message{statusContinue}
)

func feedClock(c *ClockFollower, from time.Duration, interval time.Duration, n int) time.Duration {
	at := from
	for i := 0; i < n; i++ {
		c.Handle(tick, at)
		at += interval
	}
	return at
}

func TestClockFollowerTempo(t *testing.T) {
	for _, bpm := range []float64{60, 120, 174} {
		c := NewClockFollower()
		interval := time.Duration(float64(time.Minute) / (bpm * PPQN))
		feedClock(c, 0, interval, PPQN+1)

		got, ok := c.BPM()
		require.True(t, ok)
		assert.InDelta(t, bpm, got, 0.01)
	}
}

func TestClockFollowerNeedsTicks(t *testing.T) {
	c := NewClockFollower()
	tr, ok := c.Handle(tick, 0)
	require.True(t, ok)
	assert.False(t, tr.HasBPM)
	_, ok = c.BPM()
	assert.False(t, ok)
}

func TestClockFollowerTransport(t *testing.T) {
	c := NewClockFollower()
	interval := 20 * time.Millisecond

	tr, ok := c.Handle(start, 0)
	require.True(t, ok)
	assert.True(t, tr.HasSpeed)
	assert.Equal(t, float64(1), tr.Speed)
	assert.True(t, c.Running())

	at := feedClock(c, 0, interval, PPQN*5)
	assert.InDelta(t, 1.0, c.BarBeat(), 1e-9)

	tr, _ = c.Handle(stop, at)
	assert.Equal(t, float64(0), tr.Speed)
	at = feedClock(c, at, interval, 10)
	assert.InDelta(t, 1.0, c.BarBeat(), 1e-9)

	tr, _ = c.Handle(cont, at)
	assert.Equal(t, float64(1), tr.Speed)
	assert.InDelta(t, 1.0, tr.BarBeat, 1e-9)
}

func TestClockFollowerSongPosition(t *testing.T) {
	c := NewClockFollower()
	// 18 sixteenths is one bar and a half beat into the next.
	tr, ok := c.Handle(gomidi.Message{statusSPP, 18, 0}, 0)
	require.True(t, ok)
	assert.True(t, tr.HasBarBeat)
	assert.InDelta(t, 0.5, tr.BarBeat, 1e-9)

	_, ok = c.Handle(gomidi.Message{statusSPP, 1}, 0)
	assert.False(t, ok)
}

func TestClockFollowerIgnoresNotes(t *testing.T) {
	c := NewClockFollower()
	_, ok := c.Handle(gomidi.NoteOn(0, 60, 100), 0)
	assert.False(t, ok)
	_, ok = c.Handle(nil, 0)
	assert.False(t, ok)
}
