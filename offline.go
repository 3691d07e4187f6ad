package arpeggio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cbegin/arpeggio-go/internal/arp"
	"github.com/cbegin/arpeggio-go/internal/monitor"
	"github.com/cbegin/arpeggio-go/internal/scenario"
)

// TimedEvent is an emitted event with its absolute frame.
type TimedEvent struct {
	Frame uint64
	Event arp.Event
}

func (e TimedEvent) String() string {
	kind := "off"
	if e.Event.IsNoteOn() {
		kind = "on "
	}
	return fmt.Sprintf("%10d %s %3d %3d", e.Frame, kind, e.Event.Pitch(), e.Event.Velocity())
}

// blockFunc receives every processed block: its first absolute frame, its
// length and the events it emitted (frame relative to the block).
type blockFunc func(start uint64, n int, out []arp.Event)

// runScenario drives an arpeggiator through sc block by block. Timeline
// entries are delivered with the block that contains their frame.
func runScenario(sc *scenario.Scenario, fn blockFunc) error {
	params, err := sc.Initial()
	if err != nil {
		return err
	}
	engine, err := arp.New(float64(sc.SampleRate), params)
	if err != nil {
		return err
	}
	out := arp.NewBuffer(outputCapacity(sc.BlockSize))
	in := make([]arp.Event, 0, arp.NumVoices)
	var transport []arp.Transport

	total := sc.Frames()
	next := 0
	for start := uint64(0); start < total; {
		n := uint64(sc.BlockSize)
		if start+n > total {
			n = total - start
		}
		in, transport = in[:0], transport[:0]
		for next < len(sc.Timeline) && sc.Timeline[next].At < start+n {
			e := sc.Timeline[next]
			frame := uint32(0)
			if e.At > start {
				frame = uint32(e.At - start)
			}
			switch {
			case e.NoteOn != nil:
				in = append(in, arp.NoteOn(frame, e.NoteOn.Pitch, e.NoteOn.Velocity))
			case e.NoteOff != nil:
				in = append(in, arp.NoteOff(frame, *e.NoteOff))
			case e.Transport != nil:
				tr := e.Transport.Transport()
				tr.Frame = frame
				transport = append(transport, tr)
			case e.Set != nil:
				if err := e.Set.Apply(&params); err != nil {
					return err
				}
			}
			next++
		}
		out.Reset()
		engine.Process(int(n), params, transport, in, out)
		if out.Dropped() > 0 {
			return fmt.Errorf("output buffer overflow at frame %d", start)
		}
		fn(start, int(n), out.Events())
		start += n
	}
	return nil
}

// outputCapacity bounds what one block can emit: a note-on and a note-off
// per sample at the shortest period, plus the release of every voice.
func outputCapacity(blockSize int) int {
	return blockSize + 2*arp.NumVoices
}

// RenderEvents runs sc and returns every emitted event in order.
func RenderEvents(sc *scenario.Scenario) ([]TimedEvent, error) {
	var all []TimedEvent
	err := runScenario(sc, func(start uint64, _ int, out []arp.Event) {
		for _, ev := range out {
			all = append(all, TimedEvent{Frame: start + uint64(ev.Frame), Event: ev})
		}
	})
	return all, err
}

// RenderAudio runs sc through the monitor synth and returns interleaved
// stereo samples.
func RenderAudio(sc *scenario.Scenario, params monitor.Params) ([]float32, error) {
	synth, err := monitor.New(sc.SampleRate, params)
	if err != nil {
		return nil, err
	}
	samples := make([]float32, sc.Frames()*2)
	err = runScenario(sc, func(start uint64, n int, out []arp.Event) {
		synth.RenderBlock(samples[start*2:(start+uint64(n))*2], out)
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
