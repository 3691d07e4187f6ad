package midi

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/arpeggio-go/internal/arp"
)

// PPQN is the MIDI beat clock resolution.
const PPQN = 24

// System realtime and common status bytes.
const (
	statusSPP         = 0xF2
	statusTimingClock = 0xF8
	statusStart       = 0xFA
	statusContinue    = 0xFB
	statusStop        = 0xFC
)

// minIntervals is how many clock intervals are averaged before a tempo is
// reported.
const minIntervals = 6

// ClockFollower turns an incoming MIDI beat clock into transport updates.
// Tempo is the mean of the last PPQN tick intervals, the bar beat is the
// tick count modulo BeatsPerBar. It is not safe for concurrent use.
type ClockFollower struct {
	BeatsPerBar int

	intervals [PPQN]time.Duration
	count     int
	next      int
	last      time.Duration
	haveLast  bool

	ticks   uint64
	running bool
}

// NewClockFollower returns a follower for a 4/4 bar.
func NewClockFollower() *ClockFollower {
	return &ClockFollower{BeatsPerBar: 4}
}

// Handle consumes one message received at the given time offset and
// reports the transport update it implies, if any.
func (c *ClockFollower) Handle(msg gomidi.Message, at time.Duration) (arp.Transport, bool) {
	if len(msg) == 0 {
		return arp.Transport{}, false
	}
	switch msg[0] {
	case statusTimingClock:
		if c.haveLast && at > c.last {
			c.intervals[c.next] = at - c.last
			c.next = (c.next + 1) % PPQN
			if c.count < PPQN {
				c.count++
			}
		}
		c.last = at
		c.haveLast = true
		if c.running {
			c.ticks++
		}
		t := arp.Transport{HasBarBeat: true, BarBeat: c.BarBeat()}
		if bpm, ok := c.BPM(); ok {
			t.HasBPM = true
			t.BPM = bpm
		}
		return t, true
	case statusStart:
		c.ticks = 0
		c.running = true
		return arp.Transport{HasSpeed: true, Speed: 1, HasBarBeat: true, BarBeat: 0}, true
	case statusContinue:
		c.running = true
		return arp.Transport{HasSpeed: true, Speed: 1, HasBarBeat: true, BarBeat: c.BarBeat()}, true
	case statusStop:
		c.running = false
		return arp.Transport{HasSpeed: true, Speed: 0}, true
	case statusSPP:
		if len(msg) < 3 {
			return arp.Transport{}, false
		}
		// Song position counts sixteenth notes, six clocks each.
		sixteenths := uint64(msg[1]&0x7F) | uint64(msg[2]&0x7F)<<7
		c.ticks = sixteenths * (PPQN / 4)
		return arp.Transport{HasBarBeat: true, BarBeat: c.BarBeat()}, true
	}
	return arp.Transport{}, false
}

// BPM is the averaged clock tempo. ok is false until enough ticks have
// been seen.
func (c *ClockFollower) BPM() (bpm float64, ok bool) {
	if c.count < minIntervals {
		return 0, false
	}
	var sum time.Duration
	for i := 0; i < c.count; i++ {
		sum += c.intervals[i]
	}
	mean := sum.Seconds() / float64(c.count)
	if mean <= 0 {
		return 0, false
	}
	return 60 / (mean * PPQN), true
}

// BarBeat is the position inside the bar in beats.
func (c *ClockFollower) BarBeat() float64 {
	bar := c.BeatsPerBar
	if bar < 1 {
		bar = 4
	}
	perBar := uint64(bar * PPQN)
	return float64(c.ticks%perBar) / PPQN
}

func (c *ClockFollower) Running() bool { return c.running }
