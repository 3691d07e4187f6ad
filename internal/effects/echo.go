package effects

// Echo is a ping-pong delay whose time can be moved while running, so it
// can follow the arpeggiator step length.
type Echo struct {
	bufL, bufR []float32
	pos        int
	length     int
	feedback   float32
	cross      float32
	wet        float32
}

// NewEcho allocates room for maxSeconds of delay.
// feedback: feedback amount 0..0.95
// cross: share of feedback sent to the other channel 0..1
// wet: wet/dry mix 0..1
func NewEcho(sampleRate int, maxSeconds float64, feedback, cross, wet float32) *Echo {
	size := int(maxSeconds * float64(sampleRate))
	if size < 1 {
		size = 1
	}
	return &Echo{
		bufL:     make([]float32, size),
		bufR:     make([]float32, size),
		length:   size,
		feedback: clamp(feedback, 0, 0.95),
		cross:    clamp(cross, 0, 1),
		wet:      clamp(wet, 0, 1),
	}
}

// SetDelay sets the delay in samples, clamped to the allocated buffer.
func (d *Echo) SetDelay(samples int) {
	if samples < 1 {
		samples = 1
	}
	if samples > len(d.bufL) {
		samples = len(d.bufL)
	}
	if samples == d.length {
		return
	}
	d.length = samples
	if d.pos >= d.length {
		d.pos = 0
	}
}

func (d *Echo) Delay() int { return d.length }

func (d *Echo) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	fbL := delL*d.feedback*(1-d.cross) + delR*d.feedback*d.cross
	fbR := delR*d.feedback*(1-d.cross) + delL*d.feedback*d.cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= d.length {
		d.pos = 0
	}
	return l*(1-d.wet) + delL*d.wet, r*(1-d.wet) + delR*d.wet
}

func (d *Echo) Reset() {
	clear(d.bufL)
	clear(d.bufR)
	d.pos = 0
}
