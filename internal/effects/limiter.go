package effects

import "math"

// Limiter keeps the monitor output under a ceiling. Both channels share
// one gain so the stereo image does not shift.
type Limiter struct {
	ceiling float32
	release float32 // coefficient
	gain    float32
}

// NewLimiter creates a limiter with an instant attack.
// ceilingDB: maximum output level in dBFS (e.g. -1)
// releaseMs: time for the gain to recover
func NewLimiter(sampleRate int, ceilingDB, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	if releaseMs <= 0 {
		releaseMs = 1
	}
	return &Limiter{
		ceiling: float32(math.Pow(10, float64(ceilingDB)/20)),
		release: float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
		gain:    1,
	}
}

func (c *Limiter) Process(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	target := float32(1)
	if peak > c.ceiling && peak > 0 {
		target = c.ceiling / peak
	}
	if target < c.gain {
		c.gain = target
	} else {
		c.gain += c.release * (target - c.gain)
	}
	return l * c.gain, r * c.gain
}

// Gain is the gain currently applied.
func (c *Limiter) Gain() float32 { return c.gain }

func (c *Limiter) Reset() {
	c.gain = 1
}
