package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	arpeggio "github.com/cbegin/arpeggio-go"
	"github.com/cbegin/arpeggio-go/internal/arp"
)

func TestApplyKeyToggles(t *testing.T) {
	p := arpeggio.DefaultParams()
	assert.True(t, applyKey(&p, "m"))
	assert.Equal(t, arp.ArpBounce, p.ArpMode)
	applyKey(&p, "m")
	assert.Equal(t, arp.ArpUp, p.ArpMode)

	applyKey(&p, "l")
	applyKey(&p, "s")
	assert.True(t, p.Latch)
	assert.True(t, p.Sync)
}

func TestApplyKeyLimits(t *testing.T) {
	p := arpeggio.DefaultParams()
	for i := 0; i < 10; i++ {
		applyKey(&p, "]")
		applyKey(&p, ".")
		applyKey(&p, "v")
	}
	assert.Equal(t, float64(64), p.Divisions)
	assert.Equal(t, 4, p.OctaveSpread)
	assert.Equal(t, arp.MaxPatternSteps, p.PatternLength)

	for i := 0; i < 10; i++ {
		applyKey(&p, "[")
		applyKey(&p, ",")
		applyKey(&p, "V")
		applyKey(&p, "N")
	}
	assert.Equal(t, float64(1), p.Divisions)
	assert.Equal(t, 1, p.OctaveSpread)
	assert.Equal(t, 1, p.PatternLength)
	assert.Equal(t, float64(0), p.NoteLength)
}

func TestApplyKeyCyclesOctaveMode(t *testing.T) {
	p := arpeggio.DefaultParams()
	var seen []string
	for i := 0; i < 5; i++ {
		applyKey(&p, "o")
		seen = append(seen, octaveModeName(p.OctaveMode))
	}
	assert.Equal(t, []string{"down", "up-down", "down-up", "up", "down"}, seen)
}

func TestApplyKeyUnbound(t *testing.T) {
	p := arpeggio.DefaultParams()
	assert.False(t, applyKey(&p, "z"))
	assert.Equal(t, arpeggio.DefaultParams(), p)
}

func TestNoteName(t *testing.T) {
	assert.Equal(t, "C4", noteName(60))
	assert.Equal(t, "A4", noteName(69))
	assert.Equal(t, "C-1", noteName(0))
	assert.Equal(t, "G9", noteName(127))
}
