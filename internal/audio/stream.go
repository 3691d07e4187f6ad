// Package audio drives block-based renderers from an ebiten audio stream
// or, without a sound card, from a wall-clock pacer.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// BlockSource renders one block of interleaved stereo float32 samples.
// len(dst) is always twice the configured block size.
type BlockSource interface {
	RenderBlock(dst []float32)
}

// FinishingSource is a BlockSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	BlockSource
	Finished() bool
}

// StreamReader adapts a BlockSource to the byte stream ebiten pulls. Reads
// of any size are served from whole blocks, so the source always sees the
// same block size regardless of how the audio backend chunks its requests.
type StreamReader struct {
	mu     sync.Mutex
	source BlockSource
	block  []float32
	off    int // next unread sample in block
	closed bool
}

func NewStreamReader(source BlockSource, blockFrames int) (*StreamReader, error) {
	if blockFrames <= 0 {
		return nil, errors.New("blockFrames must be positive")
	}
	b := make([]float32, blockFrames*2)
	return &StreamReader{source: source, block: b, off: len(b)}, nil
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.EOF
	}
	samples := len(p) / 4
	samples -= samples % 2
	if samples == 0 {
		return 0, nil
	}
	n := 0
	for n < samples {
		if r.off == len(r.block) {
			if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
				return n * 4, io.EOF
			}
			r.source.RenderBlock(r.block)
			r.off = 0
		}
		c := min(len(r.block)-r.off, samples-n)
		for i := 0; i < c; i++ {
			binary.LittleEndian.PutUint32(p[(n+i)*4:], math.Float32bits(r.block[r.off+i]))
		}
		r.off += c
		n += c
	}
	return n * 4, nil
}

// Close waits for an in-flight block and stops further rendering.
func (r *StreamReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens an output stream that renders source in blocks of
// blockFrames. buffer sets the backend latency; zero keeps ebiten's default.
func NewPlayer(sampleRate, blockFrames int, buffer time.Duration, source BlockSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader, err := NewStreamReader(source, blockFrames)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	if buffer > 0 {
		pl.SetBufferSize(buffer)
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
