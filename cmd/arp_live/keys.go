package main

import (
	"math"
	"strconv"

	arpeggio "github.com/cbegin/arpeggio-go"
	"github.com/cbegin/arpeggio-go/internal/arp"
)

type binding struct {
	key  string
	help string
	fn   func(p *arpeggio.Params)
}

var bindings = []binding{
	{"m", "arp mode", func(p *arpeggio.Params) {
		if p.ArpMode == arp.ArpUp {
			p.ArpMode = arp.ArpBounce
		} else {
			p.ArpMode = arp.ArpUp
		}
	}},
	{"l", "latch", func(p *arpeggio.Params) { p.Latch = !p.Latch }},
	{"s", "sync", func(p *arpeggio.Params) { p.Sync = !p.Sync }},
	{"+", "bpm +1", func(p *arpeggio.Params) { p.BPM = math.Min(p.BPM+1, 300) }},
	{"-", "bpm -1", func(p *arpeggio.Params) { p.BPM = math.Max(p.BPM-1, 20) }},
	{"]", "divisions x2", func(p *arpeggio.Params) { p.Divisions = math.Min(p.Divisions*2, 64) }},
	{"[", "divisions /2", func(p *arpeggio.Params) { p.Divisions = math.Max(p.Divisions/2, 1) }},
	{"o", "octave mode", func(p *arpeggio.Params) { p.OctaveMode = (p.OctaveMode + 1) % 4 }},
	{".", "spread +1", func(p *arpeggio.Params) { p.OctaveSpread = min(p.OctaveSpread+1, 4) }},
	{",", "spread -1", func(p *arpeggio.Params) { p.OctaveSpread = max(p.OctaveSpread-1, 1) }},
	{"n", "length +10%", func(p *arpeggio.Params) { p.NoteLength = math.Min(p.NoteLength+0.1, 2) }},
	{"N", "length -10%", func(p *arpeggio.Params) { p.NoteLength = math.Max(p.NoteLength-0.1, 0) }},
	{"v", "pattern +1", func(p *arpeggio.Params) { p.PatternLength = min(p.PatternLength+1, arp.MaxPatternSteps) }},
	{"V", "pattern -1", func(p *arpeggio.Params) { p.PatternLength = max(p.PatternLength-1, 1) }},
}

// applyKey edits p for a bound key and reports whether the key was bound.
func applyKey(p *arpeggio.Params, key string) bool {
	for _, b := range bindings {
		if b.key == key {
			b.fn(p)
			return true
		}
	}
	return false
}

var octaveModeNames = [...]string{"up", "down", "up-down", "down-up"}

func octaveModeName(m arpeggio.OctaveMode) string {
	if m < 0 || int(m) >= len(octaveModeNames) {
		return "?"
	}
	return octaveModeNames[m]
}

func arpModeName(m arpeggio.ArpMode) string {
	if m == arp.ArpUp {
		return "up"
	}
	return "bounce"
}

var noteNames = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteName spells a MIDI pitch with C4 = 60.
func noteName(pitch int) string {
	return noteNames[pitch%12] + strconv.Itoa(pitch/12-1)
}
