package midi

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrNoPort is returned when a port name is empty.
var ErrNoPort = errors.New("no MIDI port given")

// PortNames lists the available input and output ports.
func PortNames() (ins, outs []string) {
	for _, p := range gomidi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range gomidi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// FindIn resolves an input port by index or by (partial) name.
func FindIn(name string) (drivers.In, error) {
	if name == "" {
		return nil, ErrNoPort
	}
	if n, err := strconv.Atoi(name); err == nil {
		in, err := gomidi.InPort(n)
		if err != nil {
			return nil, fmt.Errorf("input port %d: %w", n, err)
		}
		return in, nil
	}
	in, err := gomidi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("input port %q: %w", name, err)
	}
	return in, nil
}

// FindOut resolves an output port by index or by (partial) name.
func FindOut(name string) (drivers.Out, error) {
	if name == "" {
		return nil, ErrNoPort
	}
	if n, err := strconv.Atoi(name); err == nil {
		out, err := gomidi.OutPort(n)
		if err != nil {
			return nil, fmt.Errorf("output port %d: %w", n, err)
		}
		return out, nil
	}
	out, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("output port %q: %w", name, err)
	}
	return out, nil
}

// Input listens on one port and hands every message to a callback on the
// driver's goroutine.
type Input struct {
	name string
	stop func()
}

// Listen opens in and starts delivering messages, realtime clock included.
// at is the driver timestamp since the port was opened.
func Listen(in drivers.In, fn func(msg gomidi.Message, at time.Duration)) (*Input, error) {
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		fn(msg, time.Duration(timestampms)*time.Millisecond)
	}, gomidi.UseTimeCode())
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	slog.Debug("midi input open", slog.String("port", in.String()))
	return &Input{name: in.String(), stop: stop}, nil
}

func (i *Input) Name() string { return i.name }

// Close stops the listener.
func (i *Input) Close() {
	if i.stop != nil {
		i.stop()
		i.stop = nil
	}
}

// Output sends messages to one port.
type Output struct {
	name string
	send func(msg gomidi.Message) error
}

// Open prepares out for sending.
func Open(out drivers.Out) (*Output, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	slog.Debug("midi output open", slog.String("port", out.String()))
	return &Output{name: out.String(), send: send}, nil
}

func (o *Output) Name() string { return o.name }

// Send writes one message.
func (o *Output) Send(msg gomidi.Message) error {
	return o.send(msg)
}

// CloseDriver releases the MIDI driver. Call it once, after every port is
// done.
func CloseDriver() {
	gomidi.CloseDriver()
}
