package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the settings shared by the commands. Flags override it.
type Config struct {
	MIDIIn      string // input port name or index
	MIDIOut     string // output port name or index
	SampleRate  int
	BlockSize   int
	InChannel   int // -1 = omni
	OutChannel  int
	BPM         float64
	Monitor     bool // render the arpeggio through the built-in synth
	ClockFollow bool // follow incoming MIDI beat clock
	Debug       bool
}

func Load() *Config {
	return &Config{
		MIDIIn:      getEnv("ARP_MIDI_IN", ""),
		MIDIOut:     getEnv("ARP_MIDI_OUT", ""),
		SampleRate:  getEnvInt("ARP_SAMPLE_RATE", 48000),
		BlockSize:   getEnvInt("ARP_BLOCK_SIZE", 256),
		InChannel:   getEnvInt("ARP_IN_CHANNEL", -1),
		OutChannel:  getEnvInt("ARP_OUT_CHANNEL", 0),
		BPM:         getEnvFloat("ARP_BPM", 120),
		Monitor:     getEnvBool("ARP_MONITOR", true),
		ClockFollow: getEnvBool("ARP_CLOCK_FOLLOW", false),
		Debug:       getEnvBool("ARP_DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
