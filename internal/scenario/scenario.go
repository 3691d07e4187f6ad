// Package scenario describes offline arpeggiator runs in YAML: engine
// settings plus a timeline of notes, transport changes and parameter edits.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/arpeggio-go/internal/arp"
)

type Scenario struct {
	Name       string  `yaml:"name"`
	SampleRate int     `yaml:"sample_rate"`
	BlockSize  int     `yaml:"block_size"`
	Seconds    float64 `yaml:"seconds"`
	Params     Patch   `yaml:"params"`
	Timeline   []Entry `yaml:"timeline"`
}

// Entry is one timeline action at an absolute frame. Exactly one action
// field is set.
type Entry struct {
	At        uint64         `yaml:"at"`
	NoteOn    *Note          `yaml:"note_on,omitempty"`
	NoteOff   *uint8         `yaml:"note_off,omitempty"`
	Transport *TransportSpec `yaml:"transport,omitempty"`
	Set       *Patch         `yaml:"set,omitempty"`
}

type Note struct {
	Pitch    uint8 `yaml:"pitch"`
	Velocity uint8 `yaml:"velocity"`
}

type TransportSpec struct {
	BPM     *float64 `yaml:"bpm,omitempty"`
	BarBeat *float64 `yaml:"bar_beat,omitempty"`
	Speed   *float64 `yaml:"speed,omitempty"`
}

// Patch is a partial parameter set. Unset fields keep their value.
type Patch struct {
	BPM           *float64  `yaml:"bpm,omitempty"`
	ArpMode       *string   `yaml:"arp_mode,omitempty"`
	Latch         *bool     `yaml:"latch,omitempty"`
	Divisions     *float64  `yaml:"divisions,omitempty"`
	Sync          *bool     `yaml:"sync,omitempty"`
	NoteLength    *float64  `yaml:"note_length,omitempty"`
	OctaveSpread  *int      `yaml:"octave_spread,omitempty"`
	OctaveMode    *string   `yaml:"octave_mode,omitempty"`
	PatternLength *int      `yaml:"pattern_length,omitempty"`
	Velocities    []float64 `yaml:"velocities,omitempty"`
}

var arpModes = map[string]arp.ArpMode{
	"up":     arp.ArpUp,
	"bounce": arp.ArpBounce,
}

var octaveModes = map[string]arp.OctaveMode{
	"up":      arp.OctaveUp,
	"down":    arp.OctaveDown,
	"up-down": arp.OctaveUpDown,
	"down-up": arp.OctaveDownUp,
}

// Apply writes the set fields into p.
func (pt Patch) Apply(p *arp.Params) error {
	if pt.BPM != nil {
		p.BPM = *pt.BPM
	}
	if pt.ArpMode != nil {
		m, ok := arpModes[*pt.ArpMode]
		if !ok {
			return fmt.Errorf("unknown arp_mode %q", *pt.ArpMode)
		}
		p.ArpMode = m
	}
	if pt.Latch != nil {
		p.Latch = *pt.Latch
	}
	if pt.Divisions != nil {
		p.Divisions = *pt.Divisions
	}
	if pt.Sync != nil {
		p.Sync = *pt.Sync
	}
	if pt.NoteLength != nil {
		p.NoteLength = *pt.NoteLength
	}
	if pt.OctaveSpread != nil {
		p.OctaveSpread = *pt.OctaveSpread
	}
	if pt.OctaveMode != nil {
		m, ok := octaveModes[*pt.OctaveMode]
		if !ok {
			return fmt.Errorf("unknown octave_mode %q", *pt.OctaveMode)
		}
		p.OctaveMode = m
	}
	if pt.PatternLength != nil {
		p.PatternLength = *pt.PatternLength
	}
	if len(pt.Velocities) > arp.MaxPatternSteps {
		return fmt.Errorf("at most %d velocities, got %d", arp.MaxPatternSteps, len(pt.Velocities))
	}
	copy(p.Velocities[:], pt.Velocities)
	return nil
}

// Transport converts the entry into an engine transport update.
func (t TransportSpec) Transport() arp.Transport {
	var tr arp.Transport
	if t.BPM != nil {
		tr.BPM, tr.HasBPM = *t.BPM, true
	}
	if t.BarBeat != nil {
		tr.BarBeat, tr.HasBarBeat = *t.BarBeat, true
	}
	if t.Speed != nil {
		tr.Speed, tr.HasSpeed = *t.Speed, true
	}
	return tr
}

// Parse decodes a scenario, fills defaults, validates it and sorts the
// timeline by frame (entries at the same frame keep file order).
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.SampleRate == 0 {
		sc.SampleRate = 48000
	}
	if sc.BlockSize == 0 {
		sc.BlockSize = 256
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(sc.Timeline, func(a, b Entry) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return sc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (sc *Scenario) Validate() error {
	if sc.SampleRate <= 0 {
		return errors.New("sample_rate must be positive")
	}
	if sc.BlockSize <= 0 {
		return errors.New("block_size must be positive")
	}
	if sc.Seconds <= 0 {
		return errors.New("seconds must be positive")
	}
	if _, err := sc.Initial(); err != nil {
		return err
	}
	for i, e := range sc.Timeline {
		n := 0
		if e.NoteOn != nil {
			n++
			if e.NoteOn.Pitch > 127 || e.NoteOn.Velocity > 127 {
				return fmt.Errorf("timeline[%d]: note out of MIDI range", i)
			}
		}
		if e.NoteOff != nil {
			n++
			if *e.NoteOff > 127 {
				return fmt.Errorf("timeline[%d]: note out of MIDI range", i)
			}
		}
		if e.Transport != nil {
			n++
		}
		if e.Set != nil {
			n++
			var p arp.Params
			if err := e.Set.Apply(&p); err != nil {
				return fmt.Errorf("timeline[%d]: %w", i, err)
			}
		}
		if n != 1 {
			return fmt.Errorf("timeline[%d]: want exactly one action, got %d", i, n)
		}
	}
	return nil
}

// Initial is the parameter set the run starts with.
func (sc *Scenario) Initial() (arp.Params, error) {
	p := arp.DefaultParams()
	if err := sc.Params.Apply(&p); err != nil {
		return p, fmt.Errorf("params: %w", err)
	}
	return p, nil
}

// Frames is the run length in samples.
func (sc *Scenario) Frames() uint64 {
	return uint64(sc.Seconds * float64(sc.SampleRate))
}
