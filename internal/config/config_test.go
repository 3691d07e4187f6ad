package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ARP_MIDI_IN", "ARP_SAMPLE_RATE", "ARP_IN_CHANNEL", "ARP_MONITOR"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "", cfg.MIDIIn)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, -1, cfg.InChannel)
	assert.True(t, cfg.Monitor)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARP_MIDI_IN", "Keystep")
	t.Setenv("ARP_SAMPLE_RATE", "44100")
	t.Setenv("ARP_BLOCK_SIZE", "not a number")
	t.Setenv("ARP_BPM", "97.5")
	t.Setenv("ARP_MONITOR", "off")
	t.Setenv("ARP_CLOCK_FOLLOW", "Yes")

	cfg := Load()
	assert.Equal(t, "Keystep", cfg.MIDIIn)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 256, cfg.BlockSize)
	assert.Equal(t, 97.5, cfg.BPM)
	assert.False(t, cfg.Monitor)
	assert.True(t, cfg.ClockFollow)
}

func TestLoadFromDotEnv(t *testing.T) {
	// Setenv restores the variable afterwards; godotenv only fills unset keys.
	t.Setenv("ARP_OUT_CHANNEL", "")
	require.NoError(t, os.Unsetenv("ARP_OUT_CHANNEL"))
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ARP_OUT_CHANNEL=9\n"), 0o644))
	require.NoError(t, godotenv.Load(path))

	assert.Equal(t, 9, Load().OutChannel)
}
