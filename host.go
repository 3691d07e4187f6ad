// Package arpeggio runs the sample-accurate arpeggiator against live MIDI
// ports or offline scenarios.
package arpeggio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/arpeggio-go/internal/arp"
	intaudio "github.com/cbegin/arpeggio-go/internal/audio"
	intmidi "github.com/cbegin/arpeggio-go/internal/midi"
	"github.com/cbegin/arpeggio-go/internal/monitor"
)

type (
	Params     = arp.Params
	ArpMode    = arp.ArpMode
	OctaveMode = arp.OctaveMode
)

// DefaultParams returns the arpeggiator's power-on parameters.
func DefaultParams() Params { return arp.DefaultParams() }

// Sender is where emitted notes go. *midi.Output satisfies it.
type Sender interface {
	Send(msg gomidi.Message) error
}

// HostEvent carries emitted notes from Watch().
type HostEvent struct {
	Kind     int // EventNoteOn, EventNoteOff or EventOverflow
	Frame    uint64
	Pitch    uint8
	Velocity uint8
}

const (
	EventNoteOn int = iota
	EventNoteOff
	EventOverflow
)

type HostOption func(*hostConfig)

type hostConfig struct {
	blockSize     int
	monitor       bool
	monitorParams monitor.Params
	inChannel     int
	outChannel    uint8
	clockFollow   bool
	audioBuffer   time.Duration
	logger        *slog.Logger
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		blockSize:     256,
		monitorParams: monitor.DefaultParams(),
		inChannel:     intmidi.Omni,
		logger:        slog.Default(),
	}
}

// WithBlockSize sets the number of samples per processed block.
func WithBlockSize(frames int) HostOption {
	return func(cfg *hostConfig) {
		cfg.blockSize = frames
	}
}

// WithMonitor renders the arpeggio through the built-in synth on the
// default audio device. The audio callback then becomes the block clock.
func WithMonitor(enabled bool) HostOption {
	return func(cfg *hostConfig) {
		cfg.monitor = enabled
	}
}

func WithMonitorParams(p monitor.Params) HostOption {
	return func(cfg *hostConfig) {
		cfg.monitorParams = p
	}
}

// WithInChannel filters input to one MIDI channel; midi.Omni accepts all.
func WithInChannel(ch int) HostOption {
	return func(cfg *hostConfig) {
		cfg.inChannel = ch
	}
}

func WithOutChannel(ch uint8) HostOption {
	return func(cfg *hostConfig) {
		cfg.outChannel = ch & 0x0F
	}
}

// WithClockFollow derives tempo and transport from incoming MIDI beat
// clock. Combine with Params.Sync to lock the arpeggio to it.
func WithClockFollow(enabled bool) HostOption {
	return func(cfg *hostConfig) {
		cfg.clockFollow = enabled
	}
}

func WithAudioBuffer(d time.Duration) HostOption {
	return func(cfg *hostConfig) {
		cfg.audioBuffer = d
	}
}

func WithLogger(l *slog.Logger) HostOption {
	return func(cfg *hostConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

const (
	inputQueue     = 256
	transportQueue = 64
	outputQueue    = 1024
	statusEvery    = 32 // blocks between status snapshots
)

// Status is the host's view of the running engine.
type Status struct {
	arp.Status
	Frames       uint64
	DroppedIn    uint64
	DroppedOut   uint64
	ClockRunning bool
}

// outEvent is an emitted event on its way to the sender goroutine.
type outEvent struct {
	frame uint64
	ev    arp.Event
}

// Host owns one arpeggiator. MIDI input arrives on driver goroutines and is
// queued; the block goroutine (audio callback or pacer) drains the queues,
// runs the engine and hands output to a sender goroutine, so MIDI I/O never
// runs on the block path.
type Host struct {
	sampleRate int
	cfg        hostConfig
	log        *slog.Logger
	out        Sender

	engine *arp.Arpeggiator
	synth  *monitor.Synth
	clock  *intmidi.ClockFollower

	params atomic.Pointer[arp.Params]
	status atomic.Pointer[Status]

	input      chan arp.Event
	transport  chan arp.Transport
	output     chan outEvent
	droppedIn  atomic.Uint64
	droppedOut atomic.Uint64

	// Block goroutine state.
	inBuf   []arp.Event
	trBuf   []arp.Transport
	outBuf  *arp.Buffer
	frames  uint64
	blocks  uint64
	scratch []float32

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	player   *intaudio.Player
	pacerErr chan error
	sendDone chan struct{}

	clockMu sync.Mutex // ClockFollower is fed from one driver goroutine at a time

	eventCh   chan HostEvent
	eventChMu sync.Mutex
}

// NewHost builds a host. out may be nil when only the monitor is wanted.
func NewHost(sampleRate int, out Sender, initial Params, opts ...HostOption) (*Host, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize <= 0 {
		return nil, errors.New("block size must be positive")
	}
	engine, err := arp.New(float64(sampleRate), initial)
	if err != nil {
		return nil, err
	}
	h := &Host{
		sampleRate: sampleRate,
		cfg:        cfg,
		log:        cfg.logger,
		out:        out,
		engine:     engine,
		clock:      intmidi.NewClockFollower(),
		input:      make(chan arp.Event, inputQueue),
		transport:  make(chan arp.Transport, transportQueue),
		inBuf:      make([]arp.Event, 0, inputQueue),
		trBuf:      make([]arp.Transport, 0, transportQueue),
		outBuf:     arp.NewBuffer(outputCapacity(cfg.blockSize)),
		scratch:    make([]float32, cfg.blockSize*2),
	}
	if cfg.monitor {
		mp := cfg.monitorParams
		if mp.MaxBlock < cfg.blockSize {
			mp.MaxBlock = cfg.blockSize
		}
		h.synth, err = monitor.New(sampleRate, mp)
		if err != nil {
			return nil, err
		}
	}
	h.SetParams(initial)
	h.publishStatus()
	return h, nil
}

// SetParams replaces the live parameters. The engine picks them up at the
// next block.
func (h *Host) SetParams(p Params) {
	h.params.Store(&p)
}

func (h *Host) Params() Params {
	return *h.params.Load()
}

// UpdateParams applies fn to a copy of the live parameters and stores the
// result.
func (h *Host) UpdateParams(fn func(*Params)) Params {
	p := h.Params()
	fn(&p)
	h.SetParams(p)
	return p
}

// Status returns the latest snapshot. It is refreshed every few blocks.
func (h *Host) Status() Status {
	st := *h.status.Load()
	st.DroppedIn = h.droppedIn.Load()
	st.DroppedOut = h.droppedOut.Load()
	return st
}

// SetMasterVolume scales the monitor output. It is a no-op without monitor.
func (h *Host) SetMasterVolume(v float64) {
	if h.synth != nil {
		h.synth.SetMasterGain(h.cfg.monitorParams.MasterGain * v)
	}
}

// HandleMIDI queues one incoming message. It is safe to call from any
// goroutine and never blocks; a full queue drops the message.
func (h *Host) HandleMIDI(msg gomidi.Message, at time.Duration) {
	if ev, ok := intmidi.Decode(msg, h.cfg.inChannel); ok {
		select {
		case h.input <- ev:
		default:
			h.droppedIn.Add(1)
		}
		return
	}
	if !h.cfg.clockFollow {
		return
	}
	h.clockMu.Lock()
	tr, ok := h.clock.Handle(msg, at)
	h.clockMu.Unlock()
	if ok {
		select {
		case h.transport <- tr:
		default:
			h.droppedIn.Add(1)
		}
	}
}

// RenderBlock runs one block and renders the monitor into dst. It is the
// audio callback; tests and the pacer call it directly.
func (h *Host) RenderBlock(dst []float32) {
	h.inBuf = h.inBuf[:0]
drainInput:
	for len(h.inBuf) < cap(h.inBuf) {
		select {
		case ev := <-h.input:
			h.inBuf = append(h.inBuf, ev)
		default:
			break drainInput
		}
	}
	h.trBuf = h.trBuf[:0]
drainTransport:
	for len(h.trBuf) < cap(h.trBuf) {
		select {
		case tr := <-h.transport:
			h.trBuf = append(h.trBuf, tr)
		default:
			break drainTransport
		}
	}

	n := h.cfg.blockSize
	if dst != nil {
		n = len(dst) / 2
	}
	h.outBuf.Reset()
	h.engine.Process(n, *h.params.Load(), h.trBuf, h.inBuf, h.outBuf)
	if d := h.outBuf.Dropped(); d > 0 {
		h.droppedOut.Add(uint64(d))
		h.notify(HostEvent{Kind: EventOverflow, Frame: h.frames})
	}
	h.emit(h.outBuf.Events())

	if h.synth != nil {
		bpm, period := h.engine.Tempo()
		h.synth.SetTempo(bpm, period)
		if dst == nil {
			dst = h.scratch[:n*2]
		}
		h.synth.RenderBlock(dst, h.outBuf.Events())
	} else {
		clear(dst)
	}

	h.frames += uint64(n)
	h.blocks++
	if h.blocks%statusEvery == 0 {
		h.publishStatus()
	}
}

func (h *Host) emit(events []arp.Event) {
	ch := h.output
	for _, ev := range events {
		oe := outEvent{frame: h.frames + uint64(ev.Frame), ev: ev}
		if ch == nil {
			h.deliver(oe)
			continue
		}
		select {
		case ch <- oe:
		default:
			h.droppedOut.Add(1)
		}
	}
}

func (h *Host) publishStatus() {
	st := &Status{Status: h.engine.Status(), Frames: h.frames}
	h.clockMu.Lock()
	st.ClockRunning = h.clock.Running()
	h.clockMu.Unlock()
	h.status.Store(st)
}

// deliver sends one event to the MIDI output and the watcher.
func (h *Host) deliver(oe outEvent) {
	if h.out != nil {
		if msg, ok := intmidi.Encode(oe.ev, h.cfg.outChannel); ok {
			if err := h.out.Send(msg); err != nil {
				h.log.Error("midi send failed", slog.String("err", err.Error()), slog.Int("pitch", int(oe.ev.Pitch())))
			}
		}
	}
	kind := EventNoteOff
	if oe.ev.IsNoteOn() {
		kind = EventNoteOn
	}
	h.notify(HostEvent{Kind: kind, Frame: oe.frame, Pitch: oe.ev.Pitch(), Velocity: oe.ev.Velocity()})
}

func (h *Host) sendLoop(ch <-chan outEvent, done chan<- struct{}) {
	defer close(done)
	for oe := range ch {
		h.deliver(oe)
	}
}

// Start begins processing. With the monitor enabled the audio device
// drives the blocks, otherwise a wall-clock pacer does.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return errors.New("host already running")
	}
	h.output = make(chan outEvent, outputQueue)
	h.sendDone = make(chan struct{})
	go h.sendLoop(h.output, h.sendDone)

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	if h.synth != nil {
		player, err := intaudio.NewPlayer(h.sampleRate, h.cfg.blockSize, h.cfg.audioBuffer, h)
		if err != nil {
			cancel()
			close(h.output)
			<-h.sendDone
			h.output = nil
			return err
		}
		h.player = player
		player.Play()
	} else {
		h.pacerErr = make(chan error, 1)
		go func() {
			h.pacerErr <- intaudio.Pace(ctx, h.sampleRate, h.cfg.blockSize, func() { h.RenderBlock(nil) })
		}()
	}
	h.running = true
	h.log.Info("arpeggiator started",
		slog.Int("sample_rate", h.sampleRate),
		slog.Int("block_size", h.cfg.blockSize),
		slog.Bool("monitor", h.synth != nil),
		slog.Bool("clock_follow", h.cfg.clockFollow))
	return nil
}

// Stop halts the block clock, releases every sounding note and waits for
// pending output to be sent.
func (h *Host) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	h.cancel()
	var err error
	if h.player != nil {
		err = h.player.Stop()
		h.player = nil
	}
	if h.pacerErr != nil {
		if perr := <-h.pacerErr; perr != nil && err == nil {
			err = perr
		}
		h.pacerErr = nil
	}

	// The block clock is stopped, so the engine can be touched here.
	h.outBuf.Reset()
	h.engine.AllNotesOff(0, h.outBuf)
	h.emit(h.outBuf.Events())
	close(h.output)
	<-h.sendDone
	h.output = nil
	if h.out != nil {
		if serr := h.out.Send(intmidi.AllNotesOff(h.cfg.outChannel)); serr != nil && err == nil {
			err = serr
		}
	}
	if h.synth != nil {
		h.synth.AllOff()
	}
	h.publishStatus()
	h.log.Info("arpeggiator stopped", slog.Uint64("frames", h.frames))
	return err
}

// Watch returns a channel that receives every emitted note and overflow
// notices. The channel is buffered (cap 64) and events are dropped when it
// is full. Only the most recent Watch() channel receives events.
func (h *Host) Watch() <-chan HostEvent {
	ch := make(chan HostEvent, 64)
	h.eventChMu.Lock()
	h.eventCh = ch
	h.eventChMu.Unlock()
	return ch
}

func (h *Host) notify(ev HostEvent) {
	h.eventChMu.Lock()
	ch := h.eventCh
	h.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}
