// Package lfo provides the low-frequency oscillator used for monitor
// vibrato. Rate can be set in Hz or locked to the arpeggiator tempo.
package lfo

import "math"

// Shape is the LFO waveform.
type Shape int

const (
	Sine Shape = iota
	Triangle
	Square
	Saw
)

// LFO produces one modulation value per sample in [-depth, +depth].
// A single LFO is shared by every voice of the monitor.
type LFO struct {
	sampleRate float64
	rateHz     float64
	depth      float64
	shape      Shape
	phase      float64 // [0, 1)
}

// New returns a stopped LFO (zero depth) for the given sample rate.
func New(sampleRate float64) *LFO {
	return &LFO{sampleRate: sampleRate, shape: Sine}
}

// Set configures depth, rate and shape. Unknown shapes fall back to Sine.
func (l *LFO) Set(depth, rateHz float64, shape Shape) {
	l.depth = depth
	l.rateHz = rateHz
	if shape < Sine || shape > Saw {
		shape = Sine
	}
	l.shape = shape
}

// SyncToTempo sets the rate so one cycle lasts beats beats at bpm.
func (l *LFO) SyncToTempo(bpm, beats float64) {
	if bpm <= 0 || beats <= 0 {
		return
	}
	l.rateHz = bpm / 60 / beats
}

// Next returns the current value and advances one sample.
func (l *LFO) Next() float64 {
	if !l.Active() || l.sampleRate <= 0 {
		return 0
	}
	v := l.value()
	l.phase += l.rateHz / l.sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

// Fill writes len(dst) consecutive values.
func (l *LFO) Fill(dst []float64) {
	for i := range dst {
		dst[i] = l.Next()
	}
}

func (l *LFO) value() float64 {
	p := l.phase
	switch l.shape {
	case Triangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	case Square:
		if p < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 1 - 2*p
	}
	return math.Sin(2 * math.Pi * p)
}

// Active reports whether the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

func (l *LFO) Rate() float64 { return l.rateHz }

// Reset zeros the phase.
func (l *LFO) Reset() {
	l.phase = 0
}
