// Package monitor is a small pulse synth that renders the arpeggiator
// output so it can be heard without external gear.
package monitor

import (
	"errors"
	"math"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cbegin/arpeggio-go/internal/arp"
	"github.com/cbegin/arpeggio-go/internal/effects"
	"github.com/cbegin/arpeggio-go/internal/lfo"
)

type Params struct {
	Voices       int
	MasterGain   float64
	AttackSec    float64
	DecaySec     float64
	SustainLvl   float64
	ReleaseSec   float64
	PulseDuty    float64
	VelocityAmp  float64
	VibratoDepth float64 // semitones
	VibratoBeats float64 // beats per vibrato cycle
	EchoSteps    int     // echo length in arpeggio steps, 0 = off
	EchoFeedback float64
	EchoWet      float64
	CeilingDB    float64
	MaxBlock     int
}

func DefaultParams() Params {
	return Params{
		Voices:       8,
		MasterGain:   0.3,
		AttackSec:    0.003,
		DecaySec:     0.12,
		SustainLvl:   0.6,
		ReleaseSec:   0.08,
		PulseDuty:    0.25,
		VelocityAmp:  0.85,
		VibratoDepth: 0.08,
		VibratoBeats: 1,
		EchoSteps:    3,
		EchoFeedback: 0.35,
		EchoWet:      0.25,
		CeilingDB:    -1,
		MaxBlock:     4096,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	pitch    uint8
	age      int
	freq     float64
	phase    float64
	velocity float64
	env      float64
	envState envState
}

// Synth is driven from a single audio goroutine. Only SetMasterGain may be
// called concurrently.
type Synth struct {
	sampleRate float64
	params     Params
	voices     []voice
	masterGain uint64

	vibrato *lfo.LFO
	echo    *effects.Echo
	limiter *effects.Limiter
	fx      *effects.Chain

	mix      []float64
	voiceBuf []float64
	pitchMul []float64

	dcPrevIn  float64
	dcPrevOut float64
}

func New(sampleRate int, params Params) (*Synth, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if params.Voices <= 0 {
		params.Voices = 8
	}
	if params.MaxBlock <= 0 {
		params.MaxBlock = 4096
	}
	s := &Synth{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
		vibrato:    lfo.New(float64(sampleRate)),
		echo:       effects.NewEcho(sampleRate, 2, float32(params.EchoFeedback), 0.6, float32(params.EchoWet)),
		limiter:    effects.NewLimiter(sampleRate, float32(params.CeilingDB), 80),
		mix:        make([]float64, params.MaxBlock),
		voiceBuf:   make([]float64, params.MaxBlock),
		pitchMul:   make([]float64, params.MaxBlock),
	}
	s.vibrato.Set(params.VibratoDepth, 0, lfo.Sine)
	s.fx = effects.NewChain(s.limiter)
	if params.EchoSteps > 0 && params.EchoWet > 0 {
		s.fx = effects.NewChain(s.echo, s.limiter)
	}
	s.SetTempo(120, uint32(sampleRate/4))
	return s, nil
}

// SetTempo locks vibrato and echo to the arpeggiator tempo and step length.
func (s *Synth) SetTempo(bpm float64, period uint32) {
	s.vibrato.SyncToTempo(bpm, s.params.VibratoBeats)
	if s.params.EchoSteps > 0 {
		s.echo.SetDelay(int(period) * s.params.EchoSteps)
	}
}

// Handle applies one arpeggiator event immediately.
func (s *Synth) Handle(ev arp.Event) {
	switch {
	case ev.IsNoteOn():
		s.NoteOn(ev.Pitch(), ev.Velocity())
	case ev.IsNoteOff():
		s.NoteOff(ev.Pitch())
	}
}

func (s *Synth) NoteOn(pitch, velocity uint8) {
	v := &s.voices[s.stealVoice(pitch)]
	v.active = true
	v.pitch = pitch
	v.age = 0
	v.freq = midiToFreq(pitch)
	v.phase = 0
	v.velocity = clamp(float64(velocity)/127.0, 0, 1)
	v.env = 0
	v.envState = envAttack
}

func (s *Synth) NoteOff(pitch uint8) {
	for i := range s.voices {
		v := &s.voices[i]
		if v.active && v.pitch == pitch && v.envState != envRelease {
			v.envState = envRelease
		}
	}
}

// AllOff releases every voice.
func (s *Synth) AllOff() {
	for i := range s.voices {
		if s.voices[i].active {
			s.voices[i].envState = envRelease
		}
	}
}

// RenderBlock renders len(dst)/2 stereo frames, applying each event at its
// Frame. events must be in frame order; events past the block apply at
// its end.
func (s *Synth) RenderBlock(dst []float32, events []arp.Event) {
	frames := len(dst) / 2
	for off := 0; off < frames; off += len(s.mix) {
		n := min(len(s.mix), frames-off)
		var chunk []arp.Event
		chunk, events = splitEvents(events, off+n)
		s.renderChunk(dst[off*2:(off+n)*2], chunk, off)
	}
	for _, ev := range events {
		s.Handle(ev)
	}
}

func (s *Synth) renderChunk(dst []float32, events []arp.Event, base int) {
	n := len(dst) / 2
	mix := s.mix[:n]
	clear(mix)

	mul := s.pitchMul[:n]
	if s.vibrato.Active() {
		s.vibrato.Fill(mul)
		for i, semis := range mul {
			mul[i] = math.Exp2(semis / 12)
		}
	} else {
		for i := range mul {
			mul[i] = 1
		}
	}

	start := 0
	for start < n {
		for len(events) > 0 && int(events[0].Frame)-base <= start {
			s.Handle(events[0])
			events = events[1:]
		}
		end := n
		if len(events) > 0 && int(events[0].Frame)-base < end {
			end = int(events[0].Frame) - base
		}
		s.renderVoices(mix[start:end], mul[start:end])
		start = end
	}
	for _, ev := range events {
		s.Handle(ev)
	}

	vecmath.ScaleBlock(mix, mix, s.masterGainValue())
	for i, x := range mix {
		y := float32(clamp(s.dcBlock(x), -1, 1))
		dst[2*i], dst[2*i+1] = s.fx.Process(y, y)
	}
}

func (s *Synth) renderVoices(seg, mul []float64) {
	if len(seg) == 0 {
		return
	}
	buf := s.voiceBuf[:len(seg)]
	for vi := range s.voices {
		v := &s.voices[vi]
		if !v.active {
			continue
		}
		for i := range buf {
			if !v.active {
				buf[i] = 0
				continue
			}
			v.age++
			env := s.advanceEnv(v)
			level := env * (0.15 + v.velocity*s.params.VelocityAmp)
			buf[i] = s.pulse(v, v.freq*mul[i]) * level
		}
		vecmath.AddBlockInPlace(seg, buf)
	}
}

// splitEvents returns the leading events with Frame < end and the rest.
func splitEvents(events []arp.Event, end int) (head, rest []arp.Event) {
	i := 0
	for i < len(events) && int(events[i].Frame) < end {
		i++
	}
	return events[:i], events[i:]
}

func (s *Synth) dcBlock(x float64) float64 {
	const r = 0.995
	y := x - s.dcPrevIn + r*s.dcPrevOut
	s.dcPrevIn = x
	s.dcPrevOut = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (s *Synth) pulse(v *voice, freq float64) float64 {
	dt := freq / s.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	duty := s.params.PulseDuty
	out := -1.0
	if v.phase < duty {
		out = 1
	}
	out += polyBLEP(v.phase, dt)
	out -= polyBLEP(math.Mod(v.phase-duty+1, 1), dt)
	return out
}

// stealVoice prefers a voice already playing pitch, then a free voice, then
// the oldest releasing voice, then the oldest voice.
func (s *Synth) stealVoice(pitch uint8) int {
	for i := range s.voices {
		if s.voices[i].active && s.voices[i].pitch == pitch {
			return i
		}
	}
	for i := range s.voices {
		if !s.voices[i].active {
			return i
		}
	}
	oldestRelease := -1
	oldestReleaseAge := -1
	oldestActive := 0
	oldestActiveAge := -1
	for i := range s.voices {
		v := &s.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease = i
			oldestReleaseAge = v.age
		}
		if v.age > oldestActiveAge {
			oldestActive = i
			oldestActiveAge = v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

func (s *Synth) advanceEnv(v *voice) float64 {
	switch v.envState {
	case envAttack:
		step := 1.0 / (s.params.AttackSec * s.sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		step := (1 - s.params.SustainLvl) / (s.params.DecaySec * s.sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		v.env -= step
		if v.env <= s.params.SustainLvl {
			v.env = s.params.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		step := s.params.SustainLvl / (s.params.ReleaseSec * s.sampleRate)
		if step <= 0 || math.IsInf(step, 0) {
			step = 1
		}
		v.env -= step
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

func midiToFreq(note uint8) float64 {
	return 440 * math.Pow(2, float64(int(note)-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Synth) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&s.masterGain, math.Float64bits(gain))
}

func (s *Synth) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&s.masterGain))
}

func (s *Synth) ActiveVoiceCount() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].active {
			n++
		}
	}
	return n
}
