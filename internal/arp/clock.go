package arp

import "math"

const defaultBPM = 120

// Clock is the sample-position phase clock. It owns tempo, transport and
// subdivision state and decides on which sample a note fires.
type Clock struct {
	sampleRate float64

	bpm       float64
	pos       uint32
	period    uint32
	half      uint32
	triggered bool

	speed     float64
	prevSpeed float64
	sync      bool
	prevSync  bool
	divisions float64
	barBeat   float64
}

func newClock(sampleRate float64, p Params) Clock {
	c := Clock{sampleRate: sampleRate, bpm: defaultBPM, divisions: p.Divisions}
	c.setBPM(p.BPM)
	c.updatePeriod()
	return c
}

// apply merges a host transport update. Only the reset rule in tick moves
// the sample counter.
func (c *Clock) apply(t Transport) {
	if t.HasBPM {
		c.setBPM(t.BPM)
	}
	if t.HasSpeed {
		c.speed = t.Speed
	}
	if t.HasBarBeat {
		c.barBeat = t.BarBeat
	}
}

// tick advances one sample and reports whether the selector fires on it.
func (c *Clock) tick(p *Params) bool {
	if !p.Sync {
		c.setBPM(p.BPM)
	}
	if c.speed != c.prevSpeed {
		c.pos = c.resetPhase()
		c.prevSpeed = c.speed
	}
	if p.Sync != c.prevSync {
		c.pos = c.resetPhase()
		c.prevSync = p.Sync
	}
	c.sync = p.Sync
	if c.divisions != p.Divisions {
		c.divisions = p.Divisions
		c.pos = c.resetPhase()
	}
	c.updatePeriod()

	if c.pos >= c.period {
		c.pos = 0
	}
	fire := false
	if c.pos < c.half && !c.triggered {
		fire = true
		c.triggered = true
	} else if c.pos > c.half {
		c.triggered = false
	}
	c.pos++
	return fire
}

// restart puts the counter at the start of a period with the gate armed.
func (c *Clock) restart() {
	c.pos = 0
	c.triggered = false
}

// resetPhase aligns the counter with the host's beat position.
func (c *Clock) resetPhase() uint32 {
	beat := c.sampleRate * (60 / c.bpm) * c.barBeat
	pos := math.Mod(beat, c.periodFloat())
	if pos != pos || pos < 0 {
		return 0
	}
	return uint32(pos)
}

func (c *Clock) periodFloat() float64 {
	return c.sampleRate * (60 / (c.bpm * (c.divisions / 2)))
}

func (c *Clock) updatePeriod() {
	period := c.periodFloat()
	switch {
	case period != period || period < 2:
		c.period = 2
	case period > math.MaxUint32/2:
		c.period = math.MaxUint32 / 2
	default:
		c.period = uint32(period)
	}
	c.half = c.period / 2
}

// setBPM ignores tempos that would make the period undefined.
func (c *Clock) setBPM(bpm float64) {
	if bpm > 0 && !math.IsInf(bpm, 0) {
		c.bpm = bpm
	}
}

func (c *Clock) Position() uint32 { return c.pos }
func (c *Clock) Period() uint32 { return c.period }
func (c *Clock) BPM() float64 { return c.bpm }
func (c *Clock) Speed() float64 { return c.speed }
func (c *Clock) BarBeat() float64 { return c.barBeat }
func (c *Clock) Triggered() bool { return c.triggered }
func (c *Clock) Synced() bool { return c.sync }
