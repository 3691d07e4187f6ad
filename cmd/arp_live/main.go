package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	arpeggio "github.com/cbegin/arpeggio-go"
	"github.com/cbegin/arpeggio-go/internal/config"
	intmidi "github.com/cbegin/arpeggio-go/internal/midi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	var (
		inPort     = flag.String("in", cfg.MIDIIn, "MIDI input port (name or index)")
		outPort    = flag.String("out", cfg.MIDIOut, "MIDI output port (name or index); empty = monitor only")
		sampleRate = flag.Int("sample-rate", cfg.SampleRate, "engine sample rate")
		blockSize  = flag.Int("block", cfg.BlockSize, "samples per processed block")
		inChannel  = flag.Int("in-channel", cfg.InChannel, "input MIDI channel 0-15, -1 = omni")
		outChannel = flag.Int("out-channel", cfg.OutChannel, "output MIDI channel 0-15")
		bpm        = flag.Float64("bpm", cfg.BPM, "tempo when not synced")
		monitor    = flag.Bool("monitor", cfg.Monitor, "play the arpeggio through the built-in synth")
		follow     = flag.Bool("clock", cfg.ClockFollow, "follow incoming MIDI beat clock (enables sync)")
		headless   = flag.Bool("headless", false, "log events instead of showing the status view")
		list       = flag.Bool("list", false, "list MIDI ports and exit")
		logPath    = flag.String("log", "", "write logs to this file (status view mode)")
		debug      = flag.Bool("debug", cfg.Debug, "debug logging")
	)
	flag.Parse()

	if *list {
		ins, outs := intmidi.PortNames()
		printPorts("inputs", ins)
		printPorts("outputs", outs)
		intmidi.CloseDriver()
		return
	}

	logger, closeLog, err := newLogger(*headless, *logPath, *debug)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if *inChannel < intmidi.Omni || *inChannel > 15 || *outChannel < 0 || *outChannel > 15 {
		log.Fatal("MIDI channels must be 0-15 (input may be -1 for omni)")
	}

	in, err := intmidi.FindIn(*inPort)
	if err != nil {
		log.Fatal(err)
	}
	var sender arpeggio.Sender
	if *outPort != "" {
		out, err := intmidi.FindOut(*outPort)
		if err != nil {
			log.Fatal(err)
		}
		o, err := intmidi.Open(out)
		if err != nil {
			log.Fatal(err)
		}
		sender = o
	} else if !*monitor {
		log.Fatal("nothing to play on: give -out or enable -monitor")
	}

	params := arpeggio.DefaultParams()
	params.BPM = *bpm
	params.Sync = *follow
	host, err := arpeggio.NewHost(*sampleRate, sender, params,
		arpeggio.WithBlockSize(*blockSize),
		arpeggio.WithMonitor(*monitor),
		arpeggio.WithInChannel(*inChannel),
		arpeggio.WithOutChannel(uint8(*outChannel)),
		arpeggio.WithClockFollow(*follow),
		arpeggio.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}

	listener, err := intmidi.Listen(in, host.HandleMIDI)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info("listening", slog.String("in", listener.Name()), slog.String("out", *outPort))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := host.Start(ctx); err != nil {
		log.Fatal(err)
	}

	if *headless {
		runHeadless(ctx, host, logger)
	} else {
		p := tea.NewProgram(newModel(host, listener.Name(), *outPort), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			logger.Error("status view failed", slog.String("err", err.Error()))
		}
	}

	listener.Close()
	if err := host.Stop(); err != nil {
		logger.Error("stop failed", slog.String("err", err.Error()))
	}
	intmidi.CloseDriver()
}

func runHeadless(ctx context.Context, host *arpeggio.Host, logger *slog.Logger) {
	events := host.Watch()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case arpeggio.EventNoteOn:
				logger.Debug("note on", slog.Int("pitch", int(ev.Pitch)), slog.Int("velocity", int(ev.Velocity)), slog.Uint64("frame", ev.Frame))
			case arpeggio.EventNoteOff:
				logger.Debug("note off", slog.Int("pitch", int(ev.Pitch)), slog.Uint64("frame", ev.Frame))
			case arpeggio.EventOverflow:
				logger.Warn("output overflow", slog.Uint64("frame", ev.Frame))
			}
		}
	}
}

// newLogger logs to stderr in headless mode. The status view owns the
// terminal, so there logs go to a file or nowhere.
func newLogger(headless bool, path string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	case !headless:
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func printPorts(kind string, names []string) {
	fmt.Printf("%s:\n", kind)
	if len(names) == 0 {
		fmt.Println("  (none)")
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
}
